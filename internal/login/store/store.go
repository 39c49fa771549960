package store

import (
	"context"
	"errors"
	"time"

	"github.com/ironveil/warden/internal/login/domain"
)

var (
	ErrNotFound = errors.New("store: not found")
	// ErrAlreadyConsumed reports a single-use record (recovery code) that was
	// already redeemed. Distinguishable from ErrNotFound so replays can be
	// surfaced as "already used" rather than "invalid".
	ErrAlreadyConsumed = errors.New("store: already consumed")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. Sub-repositories keep concerns separated and make the
// transaction boundary explicit.
type Store interface {
	Users() Users
	RecoveryCodes() RecoveryCodes
	EmailCodes() EmailCodes
	Sessions() Sessions

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing on nil and rolling
	// back on error. Prefer this over Tx for multi-step operations.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during primary credential verification.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateTOTPSecret stores a pending TOTP secret without activating it.
	UpdateTOTPSecret(ctx context.Context, userID, secret string) error

	// EnableTOTP activates TOTP for the user (sets the enabled timestamp).
	EnableTOTP(ctx context.Context, userID string) error

	// DisableTOTP clears both the enabled timestamp and the secret.
	DisableTOTP(ctx context.Context, userID string) error

	// EnableEmailMFA activates emailed one-time codes for the user.
	EnableEmailMFA(ctx context.Context, userID string) error

	// IsEmpty returns true if there are no users (first-run seeding).
	IsEmpty(ctx context.Context) (bool, error)
}

type RecoveryCodes interface {
	// ReplaceRecoveryCodes atomically replaces the user's recovery code set
	// with the given fingerprints, all unused.
	ReplaceRecoveryCodes(ctx context.Context, userID string, hashes []string) error

	// ConsumeRecoveryCode marks the code used. Returns nil exactly once per
	// code; ErrAlreadyConsumed on any replay; ErrNotFound for unknown codes.
	ConsumeRecoveryCode(ctx context.Context, userID, hash string) error

	// CountUnused returns how many recovery codes remain redeemable.
	CountUnused(ctx context.Context, userID string) (int, error)

	DeleteAllRecoveryCodes(ctx context.Context, userID string) error
}

type EmailCodes interface {
	// CreateEmailCode stores a hashed one-time email code with an expiry.
	// Any previous outstanding code for the user is superseded.
	CreateEmailCode(ctx context.Context, userID, hash string, expiresAt time.Time) error

	// ConsumeEmailCode deletes the matching unexpired code. ErrNotFound means
	// wrong, expired, or already consumed.
	ConsumeEmailCode(ctx context.Context, userID, hash string) error

	// DeleteExpiredEmailCodes is housekeeping.
	DeleteExpiredEmailCodes(ctx context.Context) error
}

type Sessions interface {
	// CreateSession persists an established session (token stored hashed).
	CreateSession(ctx context.Context, rec domain.SessionRecord) error

	// GetSessionByTokenHash returns a live (unrevoked, unexpired) session.
	GetSessionByTokenHash(ctx context.Context, hash string) (domain.SessionRecord, error)

	// RevokeSession marks a session revoked (logout or supersede).
	RevokeSession(ctx context.Context, id string) error

	// RevokeUserSessions revokes every live session for a user.
	RevokeUserSessions(ctx context.Context, userID string) error

	// DeleteExpiredSessions is housekeeping.
	DeleteExpiredSessions(ctx context.Context) error
}
