package service

import (
	"context"
	"fmt"

	"github.com/ironveil/warden/internal/login/domain"
	"github.com/ironveil/warden/pkg/idx"
	"github.com/ironveil/warden/pkg/slogx"
)

// BeginResult is the outcome of primary verification. Exactly one of the two
// shapes is populated: a finished login (Session + Redirect), or an open MFA
// attempt the client must continue.
type BeginResult struct {
	MFARequired bool

	// Finished login.
	Session  domain.Session
	Redirect domain.RedirectTarget

	// Open attempt.
	Attempt *domain.LoginAttempt
}

// LoginService fronts the whole sequence: primary credentials in, either a
// session straight away or an MFA attempt to drive through the orchestrator.
type LoginService struct {
	Credentials  CredentialVerifier
	Orchestrator *Orchestrator
	Sessions     *SessionService
}

// Begin verifies primary credentials. Users with no enrolled factor get a
// session immediately; the credential check alone is authoritative for them.
// Everyone else gets a login attempt in factor selection.
func (s *LoginService) Begin(ctx context.Context, username, password string, carried domain.CarriedContext) (BeginResult, error) {
	result, err := s.Credentials.VerifyPrimary(ctx, username, password)
	if err != nil {
		return BeginResult{}, err
	}
	user := result.User

	if !result.MFARequired || result.Capabilities.Empty() {
		// The empty-capability case covers enrollment drift (factor flags
		// set but nothing usable): it never parks the user in factor
		// selection with nothing to select.
		identity := domain.Identity{UserID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin}
		session, err := s.Sessions.Establish(ctx, identity, "password")
		if err != nil {
			return BeginResult{}, fmt.Errorf("failed to establish session: %w", err)
		}
		return BeginResult{
			Session:  session,
			Redirect: ResolveRedirect(session, carried),
		}, nil
	}

	attempt, err := s.Orchestrator.Begin(idx.New().String(), user, result.Capabilities, carried)
	if err != nil {
		return BeginResult{}, err
	}

	slogx.FromContext(ctx).Info("mfa attempt opened",
		"attempt_id", attempt.ID,
		"user_id", user.ID,
		"methods", attempt.SelectableFactors(),
	)
	return BeginResult{MFARequired: true, Attempt: attempt}, nil
}
