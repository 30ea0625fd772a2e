package kv_test

import (
	"context"
	"testing"

	"github.com/Almirante-Ming/Rose/kv"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	server := miniredis.RunT(t)
	client, err := kv.NewRedisClient(context.Background(), server.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return server, client
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	server, client := newRedis(t)
	store := kv.NewRedisStore(client, "rose:session")

	_, ok, err := store.Get(ctx, "jwt_token")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, "jwt_token", "abc"))

	value, ok, err := store.Get(ctx, "jwt_token")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "abc", value)

	raw, err := server.Get("rose:session:jwt_token")
	require.NoError(t, err)
	require.Equal(t, "abc", raw)
	require.Zero(t, server.TTL("rose:session:jwt_token"))

	require.NoError(t, store.Delete(ctx, "jwt_token"))
	require.NoError(t, store.Delete(ctx, "jwt_token"))
	require.False(t, server.Exists("rose:session:jwt_token"))

	_, ok, err = store.Get(ctx, "jwt_token")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisStoreKeyLayout(t *testing.T) {
	ctx := context.Background()

	prefixes := map[string]string{
		"no prefix":      "",
		"plain prefix":   "rose:session",
		"trailing colon": "rose:session:",
	}

	expected := map[string]string{
		"no prefix":      "persist_login",
		"plain prefix":   "rose:session:persist_login",
		"trailing colon": "rose:session:persist_login",
	}

	for name, prefix := range prefixes {
		t.Run(name, func(t *testing.T) {
			server, client := newRedis(t)
			store := kv.NewRedisStore(client, prefix)

			require.NoError(t, store.Set(ctx, "persist_login", "true"))

			require.Equal(t, []string{expected[name]}, server.Keys())
		})
	}
}

func TestRedisStoreProfilesAreIsolated(t *testing.T) {
	ctx := context.Background()
	_, client := newRedis(t)

	ana := kv.NewRedisStore(client, "rose:ana")
	bob := kv.NewRedisStore(client, "rose:bob")

	require.NoError(t, ana.Set(ctx, "jwt_token", "ana-token"))

	_, ok, err := bob.Get(ctx, "jwt_token")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisStoreServerDown(t *testing.T) {
	ctx := context.Background()
	server, client := newRedis(t)
	store := kv.NewRedisStore(client, "rose:session")

	server.Close()

	_, _, err := store.Get(ctx, "jwt_token")
	require.Error(t, err)
	require.NotErrorIs(t, err, redis.Nil)

	require.Error(t, store.Set(ctx, "jwt_token", "abc"))
}

func TestNewRedisClientUnreachable(t *testing.T) {
	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	_, err := kv.NewRedisClient(context.Background(), addr, "", 0)

	require.ErrorContains(t, err, "failed to reach redis")
}
