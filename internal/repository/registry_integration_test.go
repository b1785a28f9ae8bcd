package repository

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"tictactoe_relay/internal/db"
	"tictactoe_relay/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	tc.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: endpoint})
	require.NoError(t, rdb.Ping(ctx).Err())
	return rdb
}

func setupPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	tc.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("relay"),
		tcpostgres.WithUsername("relay"),
		tcpostgres.WithPassword("relay"),
		tc.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, db.Migrate(dsn, log))
	// повторный запуск миграций не должен падать
	require.NoError(t, db.Migrate(dsn, log))
	return dsn
}

func TestRedisSessionRepository_Contract(t *testing.T) {
	rdb := setupRedis(t)
	r := NewRedisSessionRepository(rdb, "ttt-test", time.Hour)
	t.Cleanup(func() { _ = r.Close() })

	runRegistryContract(t, r)
}

func TestRedisSessionRepository_KeyExpires(t *testing.T) {
	ctx := context.Background()
	rdb := setupRedis(t)
	r := NewRedisSessionRepository(rdb, "ttt-test", time.Hour)

	s, err := r.CreateSession(ctx, "conn-a")
	require.NoError(t, err)

	ttl, err := rdb.PTTL(ctx, r.key(s.GameID)).Result()
	require.NoError(t, err)
	assert.InDelta(t, time.Hour.Seconds(), ttl.Seconds(), 60)

	// срок жизни не продлевается при join
	_, err = r.JoinSession(ctx, s.GameID, "conn-b")
	require.NoError(t, err)
	after, err := rdb.PTTL(ctx, r.key(s.GameID)).Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, after, ttl)

	require.NoError(t, rdb.Del(ctx, r.key(s.GameID)).Err())
	_, err = r.LookupSession(ctx, s.GameID)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestPostgresSessionRepository_Contract(t *testing.T) {
	dsn := setupPostgres(t)

	pool, err := db.Connect(context.Background(), dsn)
	require.NoError(t, err)
	r := NewPostgresSessionRepository(pool, time.Hour)
	t.Cleanup(func() { _ = r.Close() })

	runRegistryContract(t, r)
}

func TestPostgresSessionRepository_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	dsn := setupPostgres(t)

	pool, err := db.Connect(ctx, dsn)
	require.NoError(t, err)
	r := NewPostgresSessionRepository(pool, time.Hour)
	t.Cleanup(func() { _ = r.Close() })

	clock := &fakeClock{now: time.Now().UTC()}
	r.now = clock.Now

	s, err := r.CreateSession(ctx, "conn-a")
	require.NoError(t, err)

	removed, err := r.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	clock.Advance(2 * time.Hour)
	_, err = r.JoinSession(ctx, s.GameID, "conn-b")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	removed, err = r.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}
