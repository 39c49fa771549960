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

// captureSender records issued codes instead of sending mail.
type captureSender struct {
	to    string
	codes []string
}

func (s *captureSender) SendCode(_ context.Context, to, code string) error {
	s.to = to
	s.codes = append(s.codes, code)
	return nil
}

func newEmailService(t *testing.T) (*EmailCodeService, *captureSender, string) {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	user := domain.User{
		ID:           idx.New().String(),
		Username:     "dave",
		Email:        "dave@example.com",
		PasswordHash: "unused",
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), user))

	sender := &captureSender{}
	return &EmailCodeService{Store: st, Sender: sender}, sender, user.ID
}

func TestEmailCodeIssueAndVerify(t *testing.T) {
	t.Parallel()

	svc, sender, userID := newEmailService(t)
	ctx := context.Background()

	require.NoError(t, svc.IssueCode(ctx, userID))
	require.Equal(t, "dave@example.com", sender.to)
	require.Len(t, sender.codes, 1)
	require.Len(t, sender.codes[0], emailCodeDigits)

	require.ErrorIs(t, svc.VerifyChallenge(ctx, userID, "000000"), ErrRejected)
	require.NoError(t, svc.VerifyChallenge(ctx, userID, sender.codes[0]))

	// Consumption is destructive: the same code never verifies twice.
	require.ErrorIs(t, svc.VerifyChallenge(ctx, userID, sender.codes[0]), ErrRejected)
}

func TestEmailMFAEnable(t *testing.T) {
	t.Parallel()

	svc, _, userID := newEmailService(t)
	ctx := context.Background()

	require.NoError(t, svc.Enable(ctx, userID))

	user, err := svc.Store.Users().GetUserByID(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, user.EmailMFAEnabled)
	require.True(t, user.MFACapabilities(0).Email)

	require.ErrorIs(t, svc.Enable(ctx, userID), ErrEmailMFAAlreadyEnabled)
}

func TestEmailCodeReissueSupersedes(t *testing.T) {
	t.Parallel()

	svc, sender, userID := newEmailService(t)
	ctx := context.Background()

	require.NoError(t, svc.IssueCode(ctx, userID))
	require.NoError(t, svc.IssueCode(ctx, userID))
	require.Len(t, sender.codes, 2)

	if sender.codes[0] != sender.codes[1] {
		require.ErrorIs(t, svc.VerifyChallenge(ctx, userID, sender.codes[0]), ErrRejected)
	}
	require.NoError(t, svc.VerifyChallenge(ctx, userID, sender.codes[1]))
}
