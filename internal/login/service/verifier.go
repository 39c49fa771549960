package service

import (
	"context"

	"github.com/ironveil/warden/internal/login/domain"
)

// PrimaryResult is the credential verifier's answer for a username/password
// pair that checked out. MFARequired tells the login service whether to open
// an MFA attempt; Capabilities is the immutable factor snapshot for it.
type PrimaryResult struct {
	User         domain.User
	MFARequired  bool
	Capabilities domain.Capabilities
}

// CredentialVerifier performs primary verification. Implementations return
// ErrInvalidCredentials for a bad pair and ErrVerifierUnavailable when the
// backing system cannot be reached.
type CredentialVerifier interface {
	VerifyPrimary(ctx context.Context, username, password string) (PrimaryResult, error)
}

// FactorVerifier performs one challenge round-trip for a single factor.
// Returns nil on acceptance, ErrRejected for a wrong code, ErrLockedOut when
// the backing system refuses further attempts, ErrVerifierUnavailable when it
// cannot be reached.
type FactorVerifier interface {
	VerifyChallenge(ctx context.Context, userID, code string) error
}

// RecoveryVerifier redeems single-use recovery codes. Returns nil exactly
// once per code, ErrAlreadyUsed on replay, ErrRejected for unknown codes.
type RecoveryVerifier interface {
	VerifyRecovery(ctx context.Context, userID, code string) error
}

// Verifiers binds one handler per factor variant. The factor set is closed,
// so dispatch is an exhaustive switch rather than open-ended registration.
type Verifiers struct {
	TOTP        FactorVerifier
	SecurityKey FactorVerifier
	Email       FactorVerifier
	Recovery    RecoveryVerifier
}

// For returns the challenge verifier for a non-recovery factor, or nil if
// none is configured.
func (v Verifiers) For(f domain.Factor) FactorVerifier {
	switch f {
	case domain.FactorTOTP:
		return v.TOTP
	case domain.FactorSecurityKey:
		return v.SecurityKey
	case domain.FactorEmail:
		return v.Email
	}
	return nil
}
