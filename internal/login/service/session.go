package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ironveil/warden/internal/login/domain"
	"github.com/ironveil/warden/internal/login/store"
	"github.com/ironveil/warden/pkg/cryptox"
	"github.com/ironveil/warden/pkg/httpx"
	"github.com/ironveil/warden/pkg/idx"
	"github.com/ironveil/warden/pkg/jwtx"
	"github.com/ironveil/warden/pkg/slogx"
)

// AMRPassword is the authentication-method reference for the primary-only
// path; MFA sessions append the completing factor to it.
const AMRPassword = "pwd"

var ErrSessionInvalid = errors.New("session invalid or revoked")

// SessionService mints, persists, and validates sessions, and hands every
// established session to the broadcaster.
type SessionService struct {
	Store       store.Store
	Signer      *jwtx.HS256Signer
	Broadcaster *SessionBroadcaster
	Issuer      string
	SessionTTL  time.Duration
}

// Establish mints a session for identity, persists it, and publishes it.
// method is "password" for the primary-only path or the completing factor.
func (s *SessionService) Establish(ctx context.Context, identity domain.Identity, method string) (domain.Session, error) {
	now := time.Now().UTC()
	id := idx.New().String()

	amr := []string{AMRPassword}
	if method != "password" {
		amr = append(amr, method)
	}

	claims := jwtx.NewSessionClaims(
		identity.UserID, id, identity.Username, identity.IsAdmin,
		amr, s.Issuer, s.SessionTTL, now,
	)
	token, err := s.Signer.Sign(claims)
	if err != nil {
		return domain.Session{}, fmt.Errorf("failed to sign session token: %w", err)
	}

	session := domain.Session{
		ID:        id,
		Identity:  identity,
		Method:    method,
		Token:     token,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.SessionTTL),
	}

	rec := domain.SessionRecord{
		ID:        id,
		UserID:    identity.UserID,
		Username:  identity.Username,
		IsAdmin:   identity.IsAdmin,
		Method:    method,
		TokenHash: cryptox.FingerprintToken(token),
		IssuedAt:  now,
		ExpiresAt: session.ExpiresAt,
	}
	if err := s.Store.Sessions().CreateSession(ctx, rec); err != nil {
		return domain.Session{}, fmt.Errorf("failed to persist session: %w", err)
	}

	// The swap inside Publish is the supersede point; tearing down the
	// superseded record afterwards keeps its token from validating again.
	// The new session is already persisted and published by now, so a failed
	// teardown must not strand its owner: log it and let housekeeping expire
	// the stale record.
	superseded := s.Broadcaster.Publish(ctx, session)
	if superseded != nil {
		if err := s.Store.Sessions().RevokeSession(ctx, superseded.ID); err != nil {
			slogx.FromContext(ctx).Error("failed to revoke superseded session",
				"session_id", superseded.ID, "err", err)
		}
	}

	return session, nil
}

// ValidateToken implements httpx.SessionValidator: signature, expiry, and
// revocation all have to check out.
func (s *SessionService) ValidateToken(ctx context.Context, token string) (httpx.SessionInfo, error) {
	claims, err := s.Signer.Verify(token)
	if err != nil {
		return httpx.SessionInfo{}, ErrSessionInvalid
	}

	rec, err := s.Store.Sessions().GetSessionByTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return httpx.SessionInfo{}, ErrSessionInvalid
		}
		return httpx.SessionInfo{}, err
	}

	return httpx.SessionInfo{
		UserID:   rec.UserID,
		Username: claims.Username,
		IsAdmin:  rec.IsAdmin,
	}, nil
}

// Logout revokes the session behind token and clears it from the
// broadcaster. Idempotent: unknown tokens are a no-op.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	rec, err := s.Store.Sessions().GetSessionByTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	if err := s.Store.Sessions().RevokeSession(ctx, rec.ID); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	s.Broadcaster.Drop(rec.ID)
	return nil
}
