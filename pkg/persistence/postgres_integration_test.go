//go:build integration

package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/weave-lang/weave/pkg/persistence"
	"github.com/weave-lang/weave/pkg/runtime"
)

func newTestStore(t *testing.T) *persistence.PostgresStore {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("weave_test"),
		postgres.WithUsername("weave_test"),
		postgres.WithPassword("weave_test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, testcontainers.TerminateContainer(pgContainer))
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := persistence.Config{
		Host: host, Port: port.Int(), User: "weave_test", Password: "weave_test",
		Database: "weave_test", SSLMode: "disable",
		MaxOpenConns: 5, MaxIdleConns: 2,
		ConnMaxLifetime: time.Hour, ConnMaxIdleTime: 15 * time.Minute,
	}

	store, err := persistence.NewPostgresStore(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })
	return store
}

func TestSaveLoadDeleteSnapshotRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	snap := runtime.Snapshot([]byte("fake-snapshot-bytes"))
	require.NoError(t, store.SaveSnapshot(ctx, "story-1", "session-a", snap))

	loaded, err := store.LoadSnapshot(ctx, "story-1", "session-a")
	require.NoError(t, err)
	require.Equal(t, snap, loaded)

	require.NoError(t, store.DeleteSnapshot(ctx, "story-1", "session-a"))
	_, err = store.LoadSnapshot(ctx, "story-1", "session-a")
	require.Error(t, err)
}

func TestSaveSnapshotOverwritesExisting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSnapshot(ctx, "story-1", "session-b", runtime.Snapshot([]byte("v1"))))
	require.NoError(t, store.SaveSnapshot(ctx, "story-1", "session-b", runtime.Snapshot([]byte("v2"))))

	loaded, err := store.LoadSnapshot(ctx, "story-1", "session-b")
	require.NoError(t, err)
	require.Equal(t, runtime.Snapshot([]byte("v2")), loaded)
}
