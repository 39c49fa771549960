package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ironveil/warden/internal/login/domain"
	"github.com/ironveil/warden/internal/login/store/drivers/sqlite"
	"github.com/ironveil/warden/pkg/idx"
)

func newRecoveryService(t *testing.T) (*RecoveryService, string) {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	user := domain.User{
		ID:           idx.New().String(),
		Username:     "bob",
		PasswordHash: "unused",
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), user))

	return &RecoveryService{Store: st}, user.ID
}

func TestRecoveryCodeSingleUse(t *testing.T) {
	t.Parallel()

	svc, userID := newRecoveryService(t)
	ctx := context.Background()

	codes, err := svc.Generate(ctx, userID)
	require.NoError(t, err)
	require.Len(t, codes, recoveryCodeCount)

	require.NoError(t, svc.VerifyRecovery(ctx, userID, codes[0]))

	// Once accepted, the same code is always a replay, never accepted again.
	for range 5 {
		require.ErrorIs(t, svc.VerifyRecovery(ctx, userID, codes[0]), ErrAlreadyUsed)
	}

	// Sibling codes from the same batch are unaffected.
	require.NoError(t, svc.VerifyRecovery(ctx, userID, codes[1]))
}

func TestRecoveryCodeUnknown(t *testing.T) {
	t.Parallel()

	svc, userID := newRecoveryService(t)
	ctx := context.Background()

	_, err := svc.Generate(ctx, userID)
	require.NoError(t, err)

	require.ErrorIs(t, svc.VerifyRecovery(ctx, userID, "not-a-code"), ErrRejected)
}

func TestRecoveryRegenerateInvalidatesOldBatch(t *testing.T) {
	t.Parallel()

	svc, userID := newRecoveryService(t)
	ctx := context.Background()

	old, err := svc.Generate(ctx, userID)
	require.NoError(t, err)

	fresh, err := svc.Generate(ctx, userID)
	require.NoError(t, err)

	require.ErrorIs(t, svc.VerifyRecovery(ctx, userID, old[0]), ErrRejected)
	require.NoError(t, svc.VerifyRecovery(ctx, userID, fresh[0]))
}
