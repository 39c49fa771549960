package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ironveil/warden/internal/login/store"
	"github.com/ironveil/warden/pkg/cryptox"
	"github.com/ironveil/warden/pkg/slogx"
)

const (
	emailCodeDigits = 6
	emailCodeTTL    = 10 * time.Minute
)

// EmailSender delivers a one-time code to an address. The SMTP wiring lives
// behind this so tests can capture codes instead of sending mail.
type EmailSender interface {
	SendCode(ctx context.Context, to, code string) error
}

// LogSender is the development fallback: it writes the code to the log
// instead of sending mail.
type LogSender struct{}

func (LogSender) SendCode(ctx context.Context, to, code string) error {
	slogx.FromContext(ctx).Info("email code issued", "to", to, "code", code)
	return nil
}

var ErrEmailMFAAlreadyEnabled = errors.New("email mfa already enabled")

// EmailCodeService issues and verifies emailed one-time codes. Only a
// fingerprint is persisted; a new issue supersedes any outstanding code.
type EmailCodeService struct {
	Store  store.Store
	Sender EmailSender
}

// Enable turns emailed one-time codes on for the user. The account's address
// receives a code whenever the factor is selected from then on.
func (s *EmailCodeService) Enable(ctx context.Context, userID string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user.EmailMFAEnabled != nil {
		return ErrEmailMFAAlreadyEnabled
	}
	if user.Email == "" {
		return fmt.Errorf("%w: account has no email address", ErrValidation)
	}
	return s.Store.Users().EnableEmailMFA(ctx, userID)
}

// IssueCode generates a fresh code and mails it. Called when the email
// factor is selected and on explicit resend.
func (s *EmailCodeService) IssueCode(ctx context.Context, userID string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	code, err := cryptox.GenerateNumericCode(emailCodeDigits)
	if err != nil {
		return fmt.Errorf("failed to generate email code: %w", err)
	}

	expiresAt := time.Now().UTC().Add(emailCodeTTL)
	if err := s.Store.EmailCodes().CreateEmailCode(ctx, userID, cryptox.FingerprintToken(code), expiresAt); err != nil {
		return fmt.Errorf("failed to store email code: %w", err)
	}

	if err := s.Sender.SendCode(ctx, user.Email, code); err != nil {
		return fmt.Errorf("failed to send email code: %w", err)
	}
	return nil
}

// VerifyChallenge implements FactorVerifier for emailed codes. Consumption
// is destructive: a correct code verifies at most once.
func (s *EmailCodeService) VerifyChallenge(ctx context.Context, userID, code string) error {
	err := s.Store.EmailCodes().ConsumeEmailCode(ctx, userID, cryptox.FingerprintToken(code))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrRejected
	default:
		return fmt.Errorf("%w: %v", ErrVerifierUnavailable, err)
	}
}
