package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ironveil/warden/internal/login/store"
	"github.com/ironveil/warden/pkg/cryptox"
)

// PasswordVerifier implements CredentialVerifier against stored argon2id
// hashes. A hash comparison runs even for unknown usernames so lookups take
// the same time either way.
type PasswordVerifier struct {
	Store store.Store
}

// decoyHash absorbs the verification cost for unknown usernames. Lazy so
// the pepper file is configured before it is first needed.
var decoyHash = sync.OnceValue(func() string {
	h, err := cryptox.HashPassword("decoy-not-a-real-password")
	if err != nil {
		panic(fmt.Sprintf("failed to build decoy hash: %v", err))
	}
	return h
})

func (v *PasswordVerifier) VerifyPrimary(ctx context.Context, username, password string) (PrimaryResult, error) {
	if username == "" || password == "" {
		return PrimaryResult{}, ErrValidation
	}

	user, err := v.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = cryptox.VerifyPassword("decoy-not-a-real-password", decoyHash())
			return PrimaryResult{}, ErrInvalidCredentials
		}
		return PrimaryResult{}, fmt.Errorf("failed to load user: %w", err)
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		return PrimaryResult{}, ErrInvalidCredentials
	}

	unused, err := v.Store.RecoveryCodes().CountUnused(ctx, user.ID)
	if err != nil {
		return PrimaryResult{}, fmt.Errorf("failed to count recovery codes: %w", err)
	}

	return PrimaryResult{
		User:         user,
		Capabilities: user.MFACapabilities(unused),
		MFARequired:  user.MFARequired(),
	}, nil
}
