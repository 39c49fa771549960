package sqlite

import (
	"context"
	"database/sql"

	"github.com/ironveil/warden/internal/login/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, username, email, password_hash, is_admin,
	totp_enabled, totp_secret, email_mfa_enabled, security_key_enabled,
	created_at, updated_at`

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	var totpEnabled, emailEnabled, keyEnabled sql.NullTime
	var totpSecret sql.NullString

	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin,
		&totpEnabled, &totpSecret, &emailEnabled, &keyEnabled,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.TOTPEnabled = mapNullTimePtr(totpEnabled)
	u.TOTPSecret = mapNullStringPtr(totpSecret)
	u.EmailMFAEnabled = mapNullTimePtr(emailEnabled)
	u.SecurityKeyEnabled = mapNullTimePtr(keyEnabled)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, is_admin,
		 totp_enabled, totp_secret, email_mfa_enabled, security_key_enabled,
		 created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.IsAdmin,
		u.TOTPEnabled, u.TOTPSecret, u.EmailMFAEnabled, u.SecurityKeyEnabled,
		u.CreatedAt, u.UpdatedAt)
	return err
}

func (r *usersRepo) UpdateTOTPSecret(ctx context.Context, userID, secret string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET totp_secret = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		secret, userID)
	return err
}

func (r *usersRepo) EnableTOTP(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET totp_enabled = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, userID)
	return err
}

func (r *usersRepo) DisableTOTP(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET totp_enabled = NULL, totp_secret = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, userID)
	return err
}

func (r *usersRepo) EnableEmailMFA(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET email_mfa_enabled = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, userID)
	return err
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}
