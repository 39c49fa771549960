package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ironveil/warden/internal/login/store"
)

type recoveryCodesRepo struct {
	db dbtx
}

func (r *recoveryCodesRepo) ReplaceRecoveryCodes(ctx context.Context, userID string, hashes []string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM recovery_codes WHERE user_id = ?`, userID); err != nil {
		return err
	}
	for _, hash := range hashes {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO recovery_codes (user_id, code_hash) VALUES (?, ?)`,
			userID, hash); err != nil {
			return err
		}
	}
	return nil
}

// ConsumeRecoveryCode flips used_at in a single UPDATE so a code can be
// redeemed exactly once no matter how many submissions race.
func (r *recoveryCodesRepo) ConsumeRecoveryCode(ctx context.Context, userID, hash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recovery_codes SET used_at = CURRENT_TIMESTAMP
		 WHERE user_id = ? AND code_hash = ? AND used_at IS NULL`,
		userID, hash)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	// Nothing consumed: distinguish a replay from an unknown code.
	var usedAt sql.NullTime
	err = r.db.QueryRowContext(ctx,
		`SELECT used_at FROM recovery_codes WHERE user_id = ? AND code_hash = ?`,
		userID, hash).Scan(&usedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	return store.ErrAlreadyConsumed
}

func (r *recoveryCodesRepo) CountUnused(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recovery_codes WHERE user_id = ? AND used_at IS NULL`,
		userID).Scan(&count)
	return count, err
}

func (r *recoveryCodesRepo) DeleteAllRecoveryCodes(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM recovery_codes WHERE user_id = ?`, userID)
	return err
}
