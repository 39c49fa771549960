package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ironveil/warden/internal/login/domain"
	"github.com/ironveil/warden/internal/login/store"
	"github.com/ironveil/warden/internal/login/store/drivers/sqlite"
	"github.com/ironveil/warden/pkg/idx"
	"github.com/ironveil/warden/pkg/jwtx"
)

func newSessionService(t *testing.T) (*SessionService, domain.Identity) {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	user := domain.User{
		ID:           idx.New().String(),
		Username:     "erin",
		PasswordHash: "unused",
		IsAdmin:      true,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), user))

	signer, err := jwtx.NewHS256Signer([]byte("0123456789abcdef0123456789abcdef"), "warden-test")
	require.NoError(t, err)

	svc := &SessionService{
		Store:       st,
		Signer:      signer,
		Broadcaster: NewSessionBroadcaster(),
		Issuer:      "warden-test",
		SessionTTL:  time.Hour,
	}
	return svc, domain.Identity{UserID: user.ID, Username: user.Username, IsAdmin: true}
}

func TestSessionEstablishAndValidate(t *testing.T) {
	t.Parallel()

	svc, identity := newSessionService(t)
	ctx := context.Background()

	session, err := svc.Establish(ctx, identity, "totp")
	require.NoError(t, err)
	require.Equal(t, "totp", session.Method)

	info, err := svc.ValidateToken(ctx, session.Token)
	require.NoError(t, err)
	require.Equal(t, identity.UserID, info.UserID)
	require.Equal(t, "erin", info.Username)
	require.True(t, info.IsAdmin)

	_, err = svc.ValidateToken(ctx, "garbage")
	require.ErrorIs(t, err, ErrSessionInvalid)
}

func TestSessionLogout(t *testing.T) {
	t.Parallel()

	svc, identity := newSessionService(t)
	ctx := context.Background()

	session, err := svc.Establish(ctx, identity, "password")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, session.Token))

	_, err = svc.ValidateToken(ctx, session.Token)
	require.ErrorIs(t, err, ErrSessionInvalid)

	_, ok := svc.Broadcaster.Current()
	require.False(t, ok)

	// Logging out twice is harmless.
	require.NoError(t, svc.Logout(ctx, session.Token))
}

// revokeFailingStore breaks session revocation; everything else passes
// through to the real store.
type revokeFailingStore struct {
	store.Store
}

func (s *revokeFailingStore) Sessions() store.Sessions {
	return &revokeFailingSessions{Sessions: s.Store.Sessions()}
}

type revokeFailingSessions struct {
	store.Sessions
}

func (s *revokeFailingSessions) RevokeSession(context.Context, string) error {
	return errors.New("database went away")
}

func TestSupersedeRevocationFailureKeepsNewSession(t *testing.T) {
	t.Parallel()

	svc, identity := newSessionService(t)
	ctx := context.Background()

	first, err := svc.Establish(ctx, identity, "password")
	require.NoError(t, err)

	svc.Store = &revokeFailingStore{Store: svc.Store}

	// The new session is persisted and published before the superseded one
	// is torn down; a failed teardown must not cost the caller their token.
	second, err := svc.Establish(ctx, identity, "totp")
	require.NoError(t, err)
	require.NotEmpty(t, second.Token)

	info, err := svc.ValidateToken(ctx, second.Token)
	require.NoError(t, err)
	require.Equal(t, identity.UserID, info.UserID)

	current, ok := svc.Broadcaster.Current()
	require.True(t, ok)
	require.Equal(t, second.ID, current.ID)

	// The stale record really was left behind; housekeeping owns it now.
	_, err = svc.ValidateToken(ctx, first.Token)
	require.NoError(t, err)
}

func TestSessionSupersede(t *testing.T) {
	t.Parallel()

	svc, identity := newSessionService(t)
	ctx := context.Background()

	first, err := svc.Establish(ctx, identity, "password")
	require.NoError(t, err)

	second, err := svc.Establish(ctx, identity, "totp")
	require.NoError(t, err)

	// The superseded token is revoked; only the new one validates.
	_, err = svc.ValidateToken(ctx, first.Token)
	require.ErrorIs(t, err, ErrSessionInvalid)

	info, err := svc.ValidateToken(ctx, second.Token)
	require.NoError(t, err)
	require.Equal(t, identity.UserID, info.UserID)

	current, ok := svc.Broadcaster.Current()
	require.True(t, ok)
	require.Equal(t, second.ID, current.ID)
}
