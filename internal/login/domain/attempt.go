package domain

import "time"

// AttemptState is the orchestrator's view of where a login attempt is.
type AttemptState string

const (
	// StateFactorSelectable means capabilities are known and non-empty; the
	// user may pick a factor (again, after a failed challenge).
	StateFactorSelectable AttemptState = "factor_selectable"
	// StateChallenging means one challenge round-trip is outstanding.
	StateChallenging AttemptState = "challenging"
	// StateSucceeded is terminal; the session has been published.
	StateSucceeded AttemptState = "succeeded"
	// StateCancelled is terminal; the user navigated away or the attempt
	// expired. Late verifier responses are dropped.
	StateCancelled AttemptState = "cancelled"
)

// LoginAttempt tracks one login page visit from primary credentials through
// secondary-factor challenges. It is transient: discarded on success,
// cancellation, or expiry. All mutation happens in the orchestrator under the
// attempt's lock.
type LoginAttempt struct {
	ID       string // ULID reference token handed to the client
	UserID   string
	Username string
	IsAdmin  bool

	Capabilities Capabilities
	Selected     Factor // zero until SelectFactor

	// Attempts counts consecutive failed submissions per factor. It is reset
	// to zero when the factor is (re)selected.
	Attempts map[Factor]int
	// Locked marks factors that hit the retry ceiling. A locked factor is
	// never re-offered within this attempt; others remain selectable.
	Locked map[Factor]bool

	// LastError persists across a failed submission so the prompt can show
	// the error next to an empty input box. LastErrorFactor names the factor
	// it belongs to. The submitted value itself is never retained.
	LastError       string
	LastErrorFactor Factor

	Carried CarriedContext

	State     AttemptState
	CreatedAt time.Time
	ExpiresAt time.Time
}

// NewLoginAttempt builds an attempt in the factor-selection state with a
// fresh capability snapshot.
func NewLoginAttempt(id, userID, username string, caps Capabilities, carried CarriedContext, ttl time.Duration) *LoginAttempt {
	now := time.Now().UTC()
	return &LoginAttempt{
		ID:           id,
		UserID:       userID,
		Username:     username,
		Capabilities: caps,
		Attempts:     make(map[Factor]int),
		Locked:       make(map[Factor]bool),
		Carried:      carried,
		State:        StateFactorSelectable,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
}

// Clone returns a deep copy safe to hand outside the orchestrator's lock.
func (a *LoginAttempt) Clone() *LoginAttempt {
	c := *a
	c.Attempts = make(map[Factor]int, len(a.Attempts))
	for f, n := range a.Attempts {
		c.Attempts[f] = n
	}
	c.Locked = make(map[Factor]bool, len(a.Locked))
	for f, l := range a.Locked {
		c.Locked[f] = l
	}
	return &c
}

// Terminal reports whether the attempt can no longer accept submissions.
func (a *LoginAttempt) Terminal() bool {
	return a.State == StateSucceeded || a.State == StateCancelled
}

// Expired reports whether the attempt has outlived its TTL.
func (a *LoginAttempt) Expired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}

// SelectableFactors lists the capabilities that are still offerable, with
// locked factors removed.
func (a *LoginAttempt) SelectableFactors() []Factor {
	methods := a.Capabilities.Methods()
	out := methods[:0]
	for _, f := range methods {
		if !a.Locked[f] {
			out = append(out, f)
		}
	}
	return out
}
