package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ironveil/warden/internal/login/domain"
	"github.com/ironveil/warden/pkg/slogx"
)

// DefaultAttemptCeiling is how many rejected submissions a single factor
// absorbs before it locks for the rest of the attempt.
const DefaultAttemptCeiling = 5

// DefaultAttemptTTL bounds how long a login attempt may sit unfinished.
const DefaultAttemptTTL = 10 * time.Minute

// attemptHandle pairs an attempt with its own lock. inFlight guards the
// single-submission rule; generation invalidates verifier responses that
// land after a cancel.
type attemptHandle struct {
	mu         sync.Mutex
	attempt    *domain.LoginAttempt
	inFlight   bool
	generation uint64
}

// Orchestrator drives a login attempt from factor selection through
// verification to session establishment. Attempts live in memory only;
// restarting the process restarts every login from scratch.
type Orchestrator struct {
	Verifiers    Verifiers
	Sessions     *SessionService
	Capabilities *CapabilityRegistry
	Ceiling      int
	TTL          time.Duration

	mu      sync.Mutex
	handles map[string]*attemptHandle
}

func NewOrchestrator(verifiers Verifiers, sessions *SessionService, caps *CapabilityRegistry) *Orchestrator {
	return &Orchestrator{
		Verifiers:    verifiers,
		Sessions:     sessions,
		Capabilities: caps,
		Ceiling:      DefaultAttemptCeiling,
		TTL:          DefaultAttemptTTL,
		handles:      make(map[string]*attemptHandle),
	}
}

// Begin registers a new attempt for a user whose credentials already
// checked out but who still owes a second factor. Callers with an empty
// capability set must not come here; they establish a session directly.
func (o *Orchestrator) Begin(id string, user domain.User, caps domain.Capabilities, carried domain.CarriedContext) (*domain.LoginAttempt, error) {
	if caps.Empty() {
		return nil, ErrNoCapabilities
	}

	attempt := domain.NewLoginAttempt(id, user.ID, user.Username, caps, carried, o.TTL)
	attempt.IsAdmin = user.IsAdmin
	o.Capabilities.Observe(id, caps)

	o.mu.Lock()
	o.handles[id] = &attemptHandle{attempt: attempt}
	o.mu.Unlock()

	return attempt.Clone(), nil
}

func (o *Orchestrator) handle(id string) (*attemptHandle, error) {
	o.mu.Lock()
	h, ok := o.handles[id]
	o.mu.Unlock()
	if !ok {
		return nil, ErrAttemptNotFound
	}
	return h, nil
}

// Get returns a snapshot of the attempt, expiring it on the way if its
// deadline has passed.
func (o *Orchestrator) Get(id string) (*domain.LoginAttempt, error) {
	h, err := o.handle(id)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.attempt.Expired(time.Now()) {
		o.remove(h, id)
		return nil, ErrAttemptNotFound
	}
	return h.attempt.Clone(), nil
}

// SelectFactor moves the attempt to the chosen factor. Selecting a factor
// outside the attempt's capabilities (recovery is always available) is
// rejected without touching any counter; selecting a locked factor is
// refused too. Switching factors clears the sticky error from the previous
// one and resets the new factor's counter.
func (o *Orchestrator) SelectFactor(id string, f domain.Factor) (*domain.LoginAttempt, error) {
	h, err := o.handle(id)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	a := h.attempt
	switch {
	case a.Expired(time.Now()):
		o.remove(h, id)
		return nil, ErrAttemptNotFound
	case a.Terminal():
		return nil, ErrAttemptNotFound
	case h.inFlight:
		return nil, ErrAlreadyInProgress
	}

	// The registry snapshot, not the caller's view of the attempt, decides
	// what is selectable. It lives exactly as long as the handle does.
	caps, ok := o.Capabilities.Snapshot(id)
	if !ok {
		return nil, ErrAttemptNotFound
	}
	if !f.Valid() || (f != domain.FactorRecovery && !caps.Has(f)) {
		return nil, ErrInvalidFactor
	}
	if a.Locked[f] {
		return nil, ErrLockedOut
	}

	if a.Selected != f {
		a.Attempts[f] = 0
		a.LastError = ""
		a.LastErrorFactor = ""
	}
	a.Selected = f
	a.State = domain.StateFactorSelectable

	return a.Clone(), nil
}

// SubmitResult is what a finished submission reports back to the caller.
type SubmitResult struct {
	Session domain.Session
	Attempt *domain.LoginAttempt
}

// Submit runs the selected factor's verifier against code. Exactly one
// submission may be outstanding per attempt; a second caller gets
// ErrAlreadyInProgress immediately. On acceptance the attempt is consumed
// before the session is published, so no second submission can ever race
// it to a second session.
func (o *Orchestrator) Submit(ctx context.Context, id, code string) (*SubmitResult, error) {
	if code == "" {
		// Locally malformed input never reaches a verifier and never
		// counts against the lockout ceiling.
		return nil, ErrValidation
	}

	h, err := o.handle(id)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	a := h.attempt
	switch {
	case a.Expired(time.Now()):
		o.remove(h, id)
		h.mu.Unlock()
		return nil, ErrAttemptNotFound
	case a.Terminal():
		h.mu.Unlock()
		return nil, ErrAttemptNotFound
	case h.inFlight:
		h.mu.Unlock()
		return nil, ErrAlreadyInProgress
	}

	factor := a.Selected
	if factor == "" {
		h.mu.Unlock()
		return nil, ErrInvalidFactor
	}
	if a.Locked[factor] {
		h.mu.Unlock()
		return nil, ErrLockedOut
	}

	var verify func(context.Context, string, string) error
	if factor == domain.FactorRecovery {
		if o.Verifiers.Recovery == nil {
			h.mu.Unlock()
			return nil, ErrVerifierUnavailable
		}
		verify = o.Verifiers.Recovery.VerifyRecovery
	} else {
		verifier := o.Verifiers.For(factor)
		if verifier == nil {
			h.mu.Unlock()
			return nil, ErrVerifierUnavailable
		}
		verify = verifier.VerifyChallenge
	}

	h.inFlight = true
	gen := h.generation
	userID := a.UserID
	a.State = domain.StateChallenging
	h.mu.Unlock()

	// The submitted value lives only for the duration of this call.
	verr := verify(ctx, userID, code)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.generation != gen {
		// The attempt was cancelled while the verifier was out; its
		// answer, whatever it was, no longer belongs to anything.
		slogx.FromContext(ctx).Debug("dropping verifier response for cancelled attempt", "attempt_id", id)
		return nil, ErrAttemptNotFound
	}
	h.inFlight = false

	switch {
	case verr == nil:
		// Consume ownership first: once the handle is gone the session
		// publish below is unreachable from any other submission.
		o.remove(h, id)
		a.State = domain.StateSucceeded

		identity := domain.Identity{UserID: a.UserID, Username: a.Username, IsAdmin: a.IsAdmin}
		session, serr := o.Sessions.Establish(ctx, identity, string(factor))
		if serr != nil {
			return nil, fmt.Errorf("failed to establish session: %w", serr)
		}
		return &SubmitResult{Session: session, Attempt: a.Clone()}, nil

	case errors.Is(verr, ErrLockedOut):
		// The backing system refused further attempts on its own.
		a.Locked[factor] = true
		a.State = domain.StateFactorSelectable
		return nil, ErrLockedOut

	case isRejection(verr):
		a.Attempts[factor]++
		a.LastError = rejectionMessage(verr)
		a.LastErrorFactor = factor
		a.State = domain.StateFactorSelectable
		if a.Attempts[factor] >= o.Ceiling {
			a.Locked[factor] = true
			return nil, ErrLockedOut
		}
		return nil, verr

	default:
		// Infrastructure failure: no counter moves, the factor stays
		// selected, the caller may simply retry.
		a.State = domain.StateFactorSelectable
		return nil, fmt.Errorf("%w: %v", ErrVerifierUnavailable, verr)
	}
}

// Cancel abandons the attempt. Any in-flight verification keeps running
// but its response is dropped on arrival.
func (o *Orchestrator) Cancel(id string) error {
	h, err := o.handle(id)
	if err != nil {
		return ErrAttemptNotFound
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.generation++
	h.attempt.State = domain.StateCancelled
	o.remove(h, id)
	return nil
}

// PurgeExpired drops attempts past their deadline. Run periodically by
// housekeeping; expiry is also enforced lazily on access.
func (o *Orchestrator) PurgeExpired(now time.Time) int {
	o.mu.Lock()
	ids := make([]string, 0, len(o.handles))
	for id := range o.handles {
		ids = append(ids, id)
	}
	o.mu.Unlock()

	purged := 0
	for _, id := range ids {
		h, err := o.handle(id)
		if err != nil {
			continue
		}
		h.mu.Lock()
		if h.attempt.Expired(now) {
			h.generation++
			o.remove(h, id)
			purged++
		}
		h.mu.Unlock()
	}
	return purged
}

// remove drops the attempt from the registry. Caller holds h.mu.
func (o *Orchestrator) remove(_ *attemptHandle, id string) {
	o.mu.Lock()
	delete(o.handles, id)
	o.mu.Unlock()
	o.Capabilities.Forget(id)
}
