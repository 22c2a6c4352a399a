// Package sqlbase holds the pieces shared by SQL document stores.
package sqlbase

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"maps"
	"slices"
)

const migrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);
`

// MigrationManager applies numbered schema migrations, each in its own transaction.
type MigrationManager struct {
	db         *sql.DB
	logger     *slog.Logger
	migrations map[int]string
	versions   []int
}

func NewMigrationManager(logger *slog.Logger, db *sql.DB, migrations map[int]string) *MigrationManager {
	return &MigrationManager{
		db:         db,
		logger:     logger,
		migrations: migrations,
		versions:   slices.Sorted(maps.Keys(migrations)),
	}
}

// RunMigrations brings the schema up to LatestVersion.
func (m *MigrationManager) RunMigrations(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, migrationsTable); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var current int

	err := m.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to query current schema version: %w", err)
	}

	pending := m.Pending(current)
	m.logger.InfoContext(ctx, "Checking document schema", "version", current, "pending", len(pending))

	for _, version := range pending {
		if err := m.apply(ctx, version); err != nil {
			return err
		}

		m.logger.InfoContext(ctx, "Applied migration", "version", version)
	}

	return nil
}

// LatestVersion returns the highest registered migration version, or 0 when there are none.
func (m *MigrationManager) LatestVersion() int {
	if len(m.versions) == 0 {
		return 0
	}

	return m.versions[len(m.versions)-1]
}

// Pending returns, in ascending order, the versions newer than current.
func (m *MigrationManager) Pending(current int) []int {
	start, _ := slices.BinarySearch(m.versions, current+1)

	return slices.Clone(m.versions[start:])
}

func (m *MigrationManager) apply(ctx context.Context, version int) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", version, err)
	}

	if _, err := tx.ExecContext(ctx, m.migrations[version]); err != nil {
		_ = tx.Rollback()

		return fmt.Errorf("failed to execute migration %d: %w", version, err)
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
		_ = tx.Rollback()

		return fmt.Errorf("failed to record migration %d: %w", version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", version, err)
	}

	return nil
}
