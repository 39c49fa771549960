package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/ironveil/warden/internal/login/store"
)

var (
	ErrTOTPNotEnrolled    = errors.New("totp not enrolled")
	ErrTOTPAlreadyEnabled = errors.New("totp already enabled")
)

// TOTPEnrollment is what the enrollment endpoint returns: the raw secret for
// manual entry plus the otpauth:// URL for a QR code.
type TOTPEnrollment struct {
	Secret  string
	URL     string
	Issuer  string
	Account string
}

// TOTPService handles authenticator-app enrollment and implements
// FactorVerifier for the login sequence.
type TOTPService struct {
	Store    store.Store
	Recovery *RecoveryService
	Issuer   string
}

// Enroll generates and stores a TOTP secret without enabling the factor.
// The user proves possession via Activate before it counts.
func (s *TOTPService) Enroll(ctx context.Context, userID string) (TOTPEnrollment, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return TOTPEnrollment{}, fmt.Errorf("failed to load user: %w", err)
	}
	if user.TOTPEnabled != nil {
		return TOTPEnrollment{}, ErrTOTPAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: user.Username,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return TOTPEnrollment{}, fmt.Errorf("failed to generate totp key: %w", err)
	}

	if err := s.Store.Users().UpdateTOTPSecret(ctx, userID, key.Secret()); err != nil {
		return TOTPEnrollment{}, fmt.Errorf("failed to store totp secret: %w", err)
	}

	return TOTPEnrollment{
		Secret:  key.Secret(),
		URL:     key.URL(),
		Issuer:  s.Issuer,
		Account: user.Username,
	}, nil
}

// Activate verifies code against the enrolled secret, enables the factor,
// and hands back a fresh batch of recovery codes.
func (s *TOTPService) Activate(ctx context.Context, userID, code string) ([]string, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.TOTPSecret == nil || *user.TOTPSecret == "" {
		return nil, ErrTOTPNotEnrolled
	}
	if user.TOTPEnabled != nil {
		return nil, ErrTOTPAlreadyEnabled
	}

	if !totp.Validate(code, *user.TOTPSecret) {
		return nil, ErrRejected
	}

	if err := s.Store.Users().EnableTOTP(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to enable totp: %w", err)
	}
	return s.Recovery.Generate(ctx, userID)
}

// Disable turns the factor off after a valid code, burns the user's recovery
// codes with it, and revokes every session, so no login established under the
// stronger policy outlives it.
func (s *TOTPService) Disable(ctx context.Context, userID, code string) error {
	if err := s.VerifyChallenge(ctx, userID, code); err != nil {
		return err
	}
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RecoveryCodes().DeleteAllRecoveryCodes(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete recovery codes: %w", err)
		}
		if err := tx.Users().DisableTOTP(ctx, userID); err != nil {
			return fmt.Errorf("failed to disable totp: %w", err)
		}
		if err := tx.Sessions().RevokeUserSessions(ctx, userID); err != nil {
			return fmt.Errorf("failed to revoke sessions: %w", err)
		}
		return nil
	})
}

// VerifyChallenge implements FactorVerifier for the authenticator app.
func (s *TOTPService) VerifyChallenge(ctx context.Context, userID, code string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrRejected
		}
		return fmt.Errorf("%w: %v", ErrVerifierUnavailable, err)
	}
	if user.TOTPEnabled == nil || user.TOTPSecret == nil || *user.TOTPSecret == "" {
		return ErrRejected
	}
	if !totp.Validate(code, *user.TOTPSecret) {
		return ErrRejected
	}
	return nil
}
