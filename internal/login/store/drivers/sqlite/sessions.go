package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/ironveil/warden/internal/login/domain"
)

type sessionsRepo struct {
	db dbtx
}

func (r *sessionsRepo) CreateSession(ctx context.Context, rec domain.SessionRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, username, is_admin, method, token_hash, issued_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.Username, rec.IsAdmin, rec.Method,
		rec.TokenHash, rec.IssuedAt.UTC(), rec.ExpiresAt.UTC())
	return err
}

func (r *sessionsRepo) GetSessionByTokenHash(ctx context.Context, hash string) (domain.SessionRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, username, is_admin, method, token_hash, issued_at, expires_at, revoked_at
		 FROM sessions
		 WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > ?`,
		hash, time.Now().UTC())

	var rec domain.SessionRecord
	var revokedAt sql.NullTime
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.Username, &rec.IsAdmin, &rec.Method,
		&rec.TokenHash, &rec.IssuedAt, &rec.ExpiresAt, &revokedAt,
	)
	if err != nil {
		return domain.SessionRecord{}, mapNotFound(err)
	}
	rec.RevokedAt = mapNullTimePtr(revokedAt)
	return rec, nil
}

func (r *sessionsRepo) RevokeSession(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = ?
		 WHERE id = ? AND revoked_at IS NULL`, time.Now().UTC(), id)
	return err
}

func (r *sessionsRepo) RevokeUserSessions(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = ?
		 WHERE user_id = ? AND revoked_at IS NULL`, time.Now().UTC(), userID)
	return err
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ?`, time.Now().UTC())
	return err
}
