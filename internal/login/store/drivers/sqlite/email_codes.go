package sqlite

import (
	"context"
	"time"

	"github.com/ironveil/warden/internal/login/store"
)

type emailCodesRepo struct {
	db dbtx
}

func (r *emailCodesRepo) CreateEmailCode(ctx context.Context, userID, hash string, expiresAt time.Time) error {
	// One outstanding code per user; re-sending supersedes the previous one.
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO email_codes (user_id, code_hash, expires_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   code_hash = excluded.code_hash,
		   expires_at = excluded.expires_at,
		   created_at = CURRENT_TIMESTAMP`,
		userID, hash, expiresAt.UTC())
	return err
}

func (r *emailCodesRepo) ConsumeEmailCode(ctx context.Context, userID, hash string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM email_codes
		 WHERE user_id = ? AND code_hash = ? AND expires_at > ?`,
		userID, hash, time.Now().UTC())
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *emailCodesRepo) DeleteExpiredEmailCodes(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM email_codes WHERE expires_at <= ?`, time.Now().UTC())
	return err
}
