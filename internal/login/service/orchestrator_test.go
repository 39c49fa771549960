package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ironveil/warden/internal/login/domain"
	"github.com/ironveil/warden/internal/login/store/drivers/sqlite"
	"github.com/ironveil/warden/pkg/idx"
	"github.com/ironveil/warden/pkg/jwtx"
)

// stubVerifier accepts one configured code and rejects everything else. An
// optional block channel holds the verifier call open until closed; fail
// overrides the outcome entirely.
type stubVerifier struct {
	mu     sync.Mutex
	accept string
	calls  int
	fail   error
	block  chan struct{}
}

func (v *stubVerifier) VerifyChallenge(_ context.Context, _, code string) error {
	v.mu.Lock()
	v.calls++
	fail := v.fail
	block := v.block
	v.mu.Unlock()

	if block != nil {
		<-block
	}
	if fail != nil {
		return fail
	}
	if code == v.accept {
		return nil
	}
	return ErrRejected
}

func (v *stubVerifier) callCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

type stubRecovery struct {
	mu       sync.Mutex
	accept   string
	consumed bool
}

func (v *stubRecovery) VerifyRecovery(_ context.Context, _, code string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if code != v.accept {
		return ErrRejected
	}
	if v.consumed {
		return ErrAlreadyUsed
	}
	v.consumed = true
	return nil
}

type harness struct {
	orch     *Orchestrator
	totp     *stubVerifier
	email    *stubVerifier
	recovery *stubRecovery
	store    *sqlite.Store
	bcast    *SessionBroadcaster
	user     domain.User
	// published counts broadcaster deliveries.
	published atomic.Int64
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	user := domain.User{
		ID:           idx.New().String(),
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "unused",
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), user))

	signer, err := jwtx.NewHS256Signer([]byte("0123456789abcdef0123456789abcdef"), "warden-test")
	require.NoError(t, err)

	h := &harness{
		totp:     &stubVerifier{accept: "123456"},
		email:    &stubVerifier{accept: "654321"},
		recovery: &stubRecovery{accept: "rescue-me"},
		store:    st,
		bcast:    NewSessionBroadcaster(),
		user:     user,
	}
	h.bcast.Subscribe(func(context.Context, domain.Session) {
		h.published.Add(1)
	})

	sessions := &SessionService{
		Store:       st,
		Signer:      signer,
		Broadcaster: h.bcast,
		Issuer:      "warden-test",
		SessionTTL:  time.Hour,
	}
	h.orch = NewOrchestrator(
		Verifiers{TOTP: h.totp, Email: h.email, Recovery: h.recovery},
		sessions,
		NewCapabilityRegistry(),
	)
	return h
}

func (h *harness) begin(t *testing.T, caps domain.Capabilities) *domain.LoginAttempt {
	t.Helper()
	attempt, err := h.orch.Begin(idx.New().String(), h.user, caps, domain.CarriedContext{})
	require.NoError(t, err)
	return attempt
}

func TestSubmitWrongWrongRight(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	attempt := h.begin(t, domain.Capabilities{TOTP: true})

	_, err := h.orch.SelectFactor(attempt.ID, domain.FactorTOTP)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = h.orch.Submit(ctx, attempt.ID, "000000")
	require.ErrorIs(t, err, ErrRejected)

	a, err := h.orch.Get(attempt.ID)
	require.NoError(t, err)
	require.Equal(t, 1, a.Attempts[domain.FactorTOTP])
	require.NotEmpty(t, a.LastError)
	require.Equal(t, domain.StateFactorSelectable, a.State)

	_, err = h.orch.Submit(ctx, attempt.ID, "999999")
	require.ErrorIs(t, err, ErrRejected)

	a, err = h.orch.Get(attempt.ID)
	require.NoError(t, err)
	require.Equal(t, 2, a.Attempts[domain.FactorTOTP])

	res, err := h.orch.Submit(ctx, attempt.ID, "123456")
	require.NoError(t, err)
	require.NotEmpty(t, res.Session.Token)
	require.Equal(t, h.user.ID, res.Session.Identity.UserID)
	require.Equal(t, "totp", res.Session.Method)
	require.EqualValues(t, 1, h.published.Load())

	// Consumed on success: nothing left to submit against, no second publish.
	_, err = h.orch.Get(attempt.ID)
	require.ErrorIs(t, err, ErrAttemptNotFound)
	_, err = h.orch.Submit(ctx, attempt.ID, "123456")
	require.ErrorIs(t, err, ErrAttemptNotFound)
	require.EqualValues(t, 1, h.published.Load())
}

func TestSelectFactorOutsideCapabilities(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	attempt := h.begin(t, domain.Capabilities{TOTP: true})

	for _, f := range []domain.Factor{domain.FactorEmail, domain.FactorSecurityKey, domain.Factor("bogus")} {
		_, err := h.orch.SelectFactor(attempt.ID, f)
		require.ErrorIs(t, err, ErrInvalidFactor)
	}

	// No counter moved.
	a, err := h.orch.Get(attempt.ID)
	require.NoError(t, err)
	require.Empty(t, a.Attempts)

	// Recovery is always selectable regardless of the snapshot.
	a, err = h.orch.SelectFactor(attempt.ID, domain.FactorRecovery)
	require.NoError(t, err)
	require.Equal(t, domain.FactorRecovery, a.Selected)
}

func TestLockoutExactlyAtCeiling(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.orch.Ceiling = 5
	attempt := h.begin(t, domain.Capabilities{TOTP: true, Email: true})

	_, err := h.orch.SelectFactor(attempt.ID, domain.FactorTOTP)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 1; i <= 4; i++ {
		_, err = h.orch.Submit(ctx, attempt.ID, "000000")
		require.ErrorIs(t, err, ErrRejected, "rejection %d must not lock", i)
	}

	a, err := h.orch.Get(attempt.ID)
	require.NoError(t, err)
	require.Equal(t, 4, a.Attempts[domain.FactorTOTP])
	require.False(t, a.Locked[domain.FactorTOTP])

	// The fifth rejection is the lockout, not the sixth.
	_, err = h.orch.Submit(ctx, attempt.ID, "000000")
	require.ErrorIs(t, err, ErrLockedOut)

	a, err = h.orch.Get(attempt.ID)
	require.NoError(t, err)
	require.True(t, a.Locked[domain.FactorTOTP])

	// The locked factor is never re-offered; the other one still is.
	_, err = h.orch.SelectFactor(attempt.ID, domain.FactorTOTP)
	require.ErrorIs(t, err, ErrLockedOut)
	require.Equal(t, []domain.Factor{domain.FactorEmail}, a.SelectableFactors())

	a, err = h.orch.SelectFactor(attempt.ID, domain.FactorEmail)
	require.NoError(t, err)
	require.Zero(t, a.Attempts[domain.FactorEmail])
	require.Empty(t, a.LastError)

	res, err := h.orch.Submit(ctx, attempt.ID, "654321")
	require.NoError(t, err)
	require.Equal(t, "email", res.Session.Method)
	require.EqualValues(t, 1, h.published.Load())
}

func TestFailedSubmissionKeepsErrorNotInput(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	attempt := h.begin(t, domain.Capabilities{TOTP: true})

	_, err := h.orch.SelectFactor(attempt.ID, domain.FactorTOTP)
	require.NoError(t, err)

	_, err = h.orch.Submit(context.Background(), attempt.ID, "000000")
	require.ErrorIs(t, err, ErrRejected)

	a, err := h.orch.Get(attempt.ID)
	require.NoError(t, err)
	require.NotEmpty(t, a.LastError)
	require.Equal(t, domain.FactorTOTP, a.LastErrorFactor)
}

func TestSubmitEmptyCode(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	attempt := h.begin(t, domain.Capabilities{TOTP: true})

	_, err := h.orch.SelectFactor(attempt.ID, domain.FactorTOTP)
	require.NoError(t, err)

	_, err = h.orch.Submit(context.Background(), attempt.ID, "")
	require.ErrorIs(t, err, ErrValidation)
	require.Zero(t, h.totp.callCount())

	a, err := h.orch.Get(attempt.ID)
	require.NoError(t, err)
	require.Zero(t, a.Attempts[domain.FactorTOTP])
}

func TestBeginRefusesEmptyCapabilities(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	_, err := h.orch.Begin(idx.New().String(), h.user, domain.Capabilities{}, domain.CarriedContext{})
	require.ErrorIs(t, err, ErrNoCapabilities)
}

func TestSecondSubmitWhileInFlight(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.totp.block = make(chan struct{})
	attempt := h.begin(t, domain.Capabilities{TOTP: true})

	_, err := h.orch.SelectFactor(attempt.ID, domain.FactorTOTP)
	require.NoError(t, err)

	ctx := context.Background()
	done := make(chan error, 1)
	go func() {
		_, err := h.orch.Submit(ctx, attempt.ID, "123456")
		done <- err
	}()

	require.Eventually(t, func() bool {
		a, err := h.orch.Get(attempt.ID)
		return err == nil && a.State == domain.StateChallenging
	}, time.Second, time.Millisecond)

	_, err = h.orch.Submit(ctx, attempt.ID, "123456")
	require.ErrorIs(t, err, ErrAlreadyInProgress)

	close(h.totp.block)
	require.NoError(t, <-done)
	require.EqualValues(t, 1, h.published.Load())
}

func TestCancelDropsLateResponse(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.totp.block = make(chan struct{})
	attempt := h.begin(t, domain.Capabilities{TOTP: true})

	_, err := h.orch.SelectFactor(attempt.ID, domain.FactorTOTP)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := h.orch.Submit(context.Background(), attempt.ID, "123456")
		done <- err
	}()

	require.Eventually(t, func() bool {
		a, err := h.orch.Get(attempt.ID)
		return err == nil && a.State == domain.StateChallenging
	}, time.Second, time.Millisecond)

	require.NoError(t, h.orch.Cancel(attempt.ID))

	// The verifier accepted, but the attempt is gone: the acceptance must
	// not establish anything.
	close(h.totp.block)
	require.ErrorIs(t, <-done, ErrAttemptNotFound)
	require.Zero(t, h.published.Load())

	_, err = h.orch.Get(attempt.ID)
	require.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestVerifierUnavailableLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	attempt := h.begin(t, domain.Capabilities{TOTP: true})

	_, err := h.orch.SelectFactor(attempt.ID, domain.FactorTOTP)
	require.NoError(t, err)

	h.totp.mu.Lock()
	h.totp.fail = ErrVerifierUnavailable
	h.totp.mu.Unlock()

	ctx := context.Background()
	_, err = h.orch.Submit(ctx, attempt.ID, "123456")
	require.ErrorIs(t, err, ErrVerifierUnavailable)

	a, err := h.orch.Get(attempt.ID)
	require.NoError(t, err)
	require.Zero(t, a.Attempts[domain.FactorTOTP])
	require.Equal(t, domain.StateFactorSelectable, a.State)

	// Retry succeeds once the verifier is back.
	h.totp.mu.Lock()
	h.totp.fail = nil
	h.totp.mu.Unlock()

	_, err = h.orch.Submit(ctx, attempt.ID, "123456")
	require.NoError(t, err)
}

func TestRecoveryReplayThroughOrchestrator(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	// First attempt redeems the code.
	attempt := h.begin(t, domain.Capabilities{TOTP: true, Recovery: true})
	_, err := h.orch.SelectFactor(attempt.ID, domain.FactorRecovery)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = h.orch.Submit(ctx, attempt.ID, "rescue-me")
	require.NoError(t, err)

	// Replaying the same code in a fresh attempt is always AlreadyUsed.
	attempt = h.begin(t, domain.Capabilities{TOTP: true, Recovery: true})
	_, err = h.orch.SelectFactor(attempt.ID, domain.FactorRecovery)
	require.NoError(t, err)

	for range 3 {
		_, err = h.orch.Submit(ctx, attempt.ID, "rescue-me")
		require.ErrorIs(t, err, ErrAlreadyUsed)
	}

	a, err := h.orch.Get(attempt.ID)
	require.NoError(t, err)
	require.Equal(t, 3, a.Attempts[domain.FactorRecovery])
	require.EqualValues(t, 1, h.published.Load())
}

func TestExpiredAttemptIsGone(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.orch.TTL = -time.Second
	attempt := h.begin(t, domain.Capabilities{TOTP: true})

	_, err := h.orch.Get(attempt.ID)
	require.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestPurgeExpired(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.orch.TTL = time.Minute
	a1 := h.begin(t, domain.Capabilities{TOTP: true})
	a2 := h.begin(t, domain.Capabilities{TOTP: true})

	require.Zero(t, h.orch.PurgeExpired(time.Now()))

	purged := h.orch.PurgeExpired(time.Now().Add(2 * time.Minute))
	require.Equal(t, 2, purged)

	for _, id := range []string{a1.ID, a2.ID} {
		_, err := h.orch.Get(id)
		require.ErrorIs(t, err, ErrAttemptNotFound)
	}
}
