package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ironveil/warden/internal/login/store"
	"github.com/ironveil/warden/pkg/cryptox"
)

const (
	recoveryCodeCount = 10
	recoveryCodeBytes = cryptox.TokenSize128
)

// RecoveryService issues single-use recovery codes and implements
// RecoveryVerifier. Only fingerprints are stored; the plaintext batch is
// shown once at generation time.
type RecoveryService struct {
	Store store.Store
}

// Generate replaces the user's recovery codes with a fresh batch and
// returns the plaintext codes.
func (s *RecoveryService) Generate(ctx context.Context, userID string) ([]string, error) {
	codes := make([]string, recoveryCodeCount)
	hashes := make([]string, recoveryCodeCount)
	for i := range codes {
		code, err := cryptox.GenerateToken(recoveryCodeBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to generate recovery code: %w", err)
		}
		codes[i] = code
		hashes[i] = cryptox.FingerprintToken(code)
	}

	if err := s.Store.RecoveryCodes().ReplaceRecoveryCodes(ctx, userID, hashes); err != nil {
		return nil, fmt.Errorf("failed to store recovery codes: %w", err)
	}
	return codes, nil
}

// VerifyRecovery consumes the code whose fingerprint matches. A code that
// exists but was already spent is a replay, not a wrong code; the caller
// tells the user to pick a different one.
func (s *RecoveryService) VerifyRecovery(ctx context.Context, userID, code string) error {
	err := s.Store.RecoveryCodes().ConsumeRecoveryCode(ctx, userID, cryptox.FingerprintToken(code))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrAlreadyConsumed):
		return ErrAlreadyUsed
	case errors.Is(err, store.ErrNotFound):
		return ErrRejected
	default:
		return fmt.Errorf("%w: %v", ErrVerifierUnavailable, err)
	}
}
