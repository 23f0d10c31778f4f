package persistence

import (
	"context"
	stdsql "database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/weave-lang/weave/pkg/runtime"
	"github.com/weave-lang/weave/pkg/werrors"
)

//go:embed migrations
var migrationsFS embed.FS

// PostgresStore is the pgx-backed SnapshotStore. It owns a
// *database/sql.DB opened through the pgx stdlib driver and applies its
// embedded migrations on construction.
type PostgresStore struct {
	db  *stdsql.DB
	log *slog.Logger
}

var _ SnapshotStore = (*PostgresStore)(nil)

// NewPostgresStore opens a connection pool against cfg, applies pending
// migrations, and returns a ready store. A nil logger falls back to
// slog.Default().
func NewPostgresStore(ctx context.Context, cfg Config, log *slog.Logger) (*PostgresStore, error) {
	if log == nil {
		log = slog.Default()
	}

	db, err := stdsql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", werrors.ErrLoad, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping: %v", werrors.ErrLoad, err)
	}

	if err := runMigrations(db, cfg.Database); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Debug("persistence store ready", "database", cfg.Database)
	return &PostgresStore{db: db, log: log}, nil
}

func runMigrations(db *stdsql.DB, databaseName string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("%w: migration driver: %v", werrors.ErrLoad, err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("%w: migration source: %v", werrors.ErrLoad, err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, databaseName, driver)
	if err != nil {
		return fmt.Errorf("%w: migrate instance: %v", werrors.ErrLoad, err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%w: apply migrations: %v", werrors.ErrLoad, err)
	}

	// Only close the source driver: closing m also closes the database
	// driver, which would close the shared *sql.DB out from under the
	// store.
	return sourceDriver.Close()
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) SaveSnapshot(ctx context.Context, storyID, sessionID string, snap runtime.Snapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO story_snapshots (story_id, session_id, format_version, snapshot, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (story_id, session_id) DO UPDATE
		SET format_version = EXCLUDED.format_version,
		    snapshot = EXCLUDED.snapshot,
		    updated_at = now()
	`, storyID, sessionID, runtime.FormatVersion, []byte(snap))
	if err != nil {
		s.log.Error("save snapshot failed", "story_id", storyID, "session_id", sessionID, "error", err)
		return fmt.Errorf("%w: %v", werrors.ErrLoad, err)
	}
	return nil
}

func (s *PostgresStore) LoadSnapshot(ctx context.Context, storyID, sessionID string) (runtime.Snapshot, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT snapshot FROM story_snapshots WHERE story_id = $1 AND session_id = $2
	`, storyID, sessionID).Scan(&raw)
	if errors.Is(err, stdsql.ErrNoRows) {
		return nil, werrors.ErrNotFound
	}
	if err != nil {
		s.log.Error("load snapshot failed", "story_id", storyID, "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("%w: %v", werrors.ErrLoad, err)
	}
	return runtime.Snapshot(raw), nil
}

func (s *PostgresStore) DeleteSnapshot(ctx context.Context, storyID, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM story_snapshots WHERE story_id = $1 AND session_id = $2
	`, storyID, sessionID)
	if err != nil {
		s.log.Error("delete snapshot failed", "story_id", storyID, "session_id", sessionID, "error", err)
		return fmt.Errorf("%w: %v", werrors.ErrLoad, err)
	}
	return nil
}
