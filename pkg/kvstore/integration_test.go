package kvstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/history-engine/pkg/config"
	"github.com/ekaya-inc/history-engine/pkg/testhelpers"
)

func TestPostgresStore_RoundTrip(t *testing.T) {
	pg := testhelpers.GetPostgres(t)
	ctx := context.Background()

	cfg := &config.PostgresConfig{
		Host:           pg.Host,
		Port:           pg.Port,
		User:           testhelpers.PostgresUser,
		Password:       testhelpers.PostgresPassword,
		Database:       testhelpers.PostgresDatabase,
		SSLMode:        "disable",
		MigrationsPath: "../../migrations",
	}

	store, err := NewPostgresStore(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "k", []byte("v1")))
	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), value)

	// Upsert replaces.
	require.NoError(t, store.Set(ctx, "k", []byte("v2")))
	value, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), value)

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_RoundTrip(t *testing.T) {
	rd := testhelpers.GetRedis(t)
	ctx := context.Background()

	store, err := NewRedisStore(ctx, &config.RedisConfig{
		Host: rd.Host,
		Port: rd.Port,
	})
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "k", []byte("v1")))
	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), value)

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}
