package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Almirante-Ming/Rose/kv"
	kv_mocks "github.com/Almirante-Ming/Rose/kv/mocks"
	"github.com/Almirante-Ming/Rose/role"
	"github.com/Almirante-Ming/Rose/session"
	"github.com/Almirante-Ming/Rose/token"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var now = time.Date(2025, 4, 24, 12, 0, 0, 0, time.UTC)

func issue(t *testing.T, userID int64, level int, exp time.Time) string {
	t.Helper()

	raw, err := token.Issue("test-secret", token.Payload{
		Subject:     "ana@studio.com",
		UserID:      userID,
		HasUserID:   true,
		AccessLevel: level,
		ExpiresAt:   exp,
	})
	require.NoError(t, err)

	return raw
}

func newStore() (*session.Store, *kv.CacheStore) {
	backing := kv.NewMemoryStore()
	return session.NewStore(backing, session.WithClock(func() time.Time { return now })), backing
}

func TestTokenAndUser(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()

	raw, err := store.Token(ctx)
	require.NoError(t, err)
	require.Empty(t, raw)

	user, err := store.User(ctx)
	require.NoError(t, err)
	require.Nil(t, user)

	require.Error(t, store.SaveToken(ctx, ""))
	require.NoError(t, store.SaveToken(ctx, "a.b.c"))

	raw, err = store.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "a.b.c", raw)

	saved := session.User{ID: 42, Email: "ana@studio.com", Role: role.FromLevel(2)}
	require.NoError(t, store.SaveUser(ctx, saved))

	user, err = store.User(ctx)
	require.NoError(t, err)
	require.Equal(t, saved, *user)
}

func TestUnreadableUserIsIgnored(t *testing.T) {
	ctx := context.Background()
	store, backing := newStore()

	require.NoError(t, backing.Set(ctx, "user_data", "{broken"))

	user, err := store.User(ctx)

	require.NoError(t, err)
	require.Nil(t, user)
}

func TestPersistLogin(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()

	persist, err := store.PersistLogin(ctx)
	require.NoError(t, err)
	require.False(t, persist)

	require.NoError(t, store.SetPersistLogin(ctx, true))
	persist, err = store.PersistLogin(ctx)
	require.NoError(t, err)
	require.True(t, persist)

	require.NoError(t, store.SetPersistLogin(ctx, false))
	persist, err = store.PersistLogin(ctx)
	require.NoError(t, err)
	require.False(t, persist)
}

func TestIsExpired(t *testing.T) {
	store, _ := newStore()

	require.False(t, store.IsExpired(issue(t, 1, 0, now.Add(time.Minute))))
	require.False(t, store.IsExpired(issue(t, 1, 0, now.Add(time.Second))))
	require.True(t, store.IsExpired(issue(t, 1, 0, now)))
	require.True(t, store.IsExpired(issue(t, 1, 0, now.Add(-time.Hour))))
	require.True(t, store.IsExpired("garbage"))
}

func TestIsAuthenticated(t *testing.T) {
	ctx := context.Background()

	t.Run("no token", func(t *testing.T) {
		store, _ := newStore()

		ok, err := store.IsAuthenticated(ctx)

		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("valid token", func(t *testing.T) {
		store, _ := newStore()
		require.NoError(t, store.SaveToken(ctx, issue(t, 1, 2, now.Add(time.Hour))))

		ok, err := store.IsAuthenticated(ctx)

		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("expired token logs out", func(t *testing.T) {
		store, _ := newStore()
		require.NoError(t, store.SaveToken(ctx, issue(t, 1, 2, now.Add(-time.Hour))))
		require.NoError(t, store.SaveUser(ctx, session.User{ID: 1}))

		ok, err := store.IsAuthenticated(ctx)

		require.NoError(t, err)
		require.False(t, ok)

		raw, err := store.Token(ctx)
		require.NoError(t, err)
		require.Empty(t, raw)

		user, err := store.User(ctx)
		require.NoError(t, err)
		require.Nil(t, user)
	})

	t.Run("store error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		backing := kv_mocks.NewMockStore(ctrl)
		backing.EXPECT().Get(ctx, "jwt_token").Return("", false, errors.New("keychain locked")).Times(1)

		ok, err := session.NewStore(backing).IsAuthenticated(ctx)

		require.Error(t, err)
		require.False(t, ok)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("persist login off clears everything", func(t *testing.T) {
		store, backing := newStore()
		require.NoError(t, store.SaveToken(ctx, issue(t, 1, 0, now.Add(time.Hour))))
		require.NoError(t, store.SaveUser(ctx, session.User{ID: 1}))
		require.NoError(t, store.SetPersistLogin(ctx, false))

		require.NoError(t, store.Logout(ctx))

		raw, err := store.Token(ctx)
		require.NoError(t, err)
		require.Empty(t, raw)

		user, err := store.User(ctx)
		require.NoError(t, err)
		require.Nil(t, user)

		_, found, err := backing.Get(ctx, "persist_login")
		require.NoError(t, err)
		require.False(t, found)
	})

	t.Run("persist login on survives logout", func(t *testing.T) {
		store, _ := newStore()
		require.NoError(t, store.SaveToken(ctx, issue(t, 1, 0, now.Add(time.Hour))))
		require.NoError(t, store.SaveUser(ctx, session.User{ID: 1}))
		require.NoError(t, store.SetPersistLogin(ctx, true))

		require.NoError(t, store.Logout(ctx))

		raw, err := store.Token(ctx)
		require.NoError(t, err)
		require.Empty(t, raw)

		user, err := store.User(ctx)
		require.NoError(t, err)
		require.Nil(t, user)

		persist, err := store.PersistLogin(ctx)
		require.NoError(t, err)
		require.True(t, persist)
	})

	t.Run("delete error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		backing := kv_mocks.NewMockStore(ctrl)
		backing.EXPECT().Get(ctx, "persist_login").Return("", false, nil).Times(1)
		backing.EXPECT().Delete(ctx, "jwt_token").Return(errors.New("io error")).Times(1)
		backing.EXPECT().Delete(ctx, "user_data").Times(0)

		err := session.NewStore(backing).Logout(ctx)

		require.ErrorContains(t, err, "failed to delete token")
	})
}

func TestUserIDAndRole(t *testing.T) {
	ctx := context.Background()

	t.Run("not authenticated", func(t *testing.T) {
		store, _ := newStore()

		_, err := store.UserID(ctx)
		require.ErrorIs(t, err, session.ErrNotAuthenticated)

		_, err = store.CurrentRole(ctx)
		require.ErrorIs(t, err, session.ErrNotAuthenticated)
	})

	t.Run("undecodable token", func(t *testing.T) {
		store, _ := newStore()
		require.NoError(t, store.SaveToken(ctx, "not-a-token"))

		_, err := store.UserID(ctx)

		require.ErrorIs(t, err, session.ErrNotAuthenticated)
	})

	t.Run("token without user id", func(t *testing.T) {
		store, _ := newStore()
		raw, err := token.Issue("s", token.Payload{Subject: "x", ExpiresAt: now.Add(time.Hour)})
		require.NoError(t, err)
		require.NoError(t, store.SaveToken(ctx, raw))

		_, err = store.UserID(ctx)

		require.ErrorIs(t, err, session.ErrNotAuthenticated)
	})

	t.Run("success", func(t *testing.T) {
		store, _ := newStore()
		require.NoError(t, store.SaveToken(ctx, issue(t, 42, 1, now.Add(time.Hour))))

		id, err := store.UserID(ctx)
		require.NoError(t, err)
		require.Equal(t, int64(42), id)

		r, err := store.CurrentRole(ctx)
		require.NoError(t, err)
		require.Equal(t, role.Trainer, r.Name)
	})
}

func TestUserFromToken(t *testing.T) {
	store, _ := newStore()

	user, err := store.UserFromToken(issue(t, 9, 2, now.Add(time.Hour)))
	require.NoError(t, err)
	require.Equal(t, session.User{ID: 9, Email: "ana@studio.com", Role: role.FromLevel(2)}, user)

	_, err = store.UserFromToken("x.y")
	require.ErrorIs(t, err, token.ErrDecode)
}
