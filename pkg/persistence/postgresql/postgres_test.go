package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dukex/blockflow/pkg/persistence"
	"github.com/dukex/blockflow/pkg/persistence/persistencetest"
	"github.com/dukex/blockflow/pkg/persistence/postgresql"
	"github.com/dukex/blockflow/pkg/testutil"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"documents", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PostgreSQL container test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("blockflow_test"),
			postgres.WithUsername("blockflow"),
			postgres.WithPassword("blockflow"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	var exists bool

	err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = 'documents')`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists, "documents table should exist")

	var versions []int

	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	require.NoError(t, err)

	for rows.Next() {
		var version int
		require.NoError(t, rows.Scan(&version))
		versions = append(versions, version)
	}

	require.NoError(t, rows.Close())
	assert.Equal(t, []int{1, 2}, versions)
}

func TestNewPersistence_MigrationsAreIdempotent(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	again, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)
	require.NoError(t, again.Close(ctx))
}

func TestPersistence_Conformance(t *testing.T) {
	persistencetest.Run(t, func(t *testing.T) persistence.Persistence {
		t.Helper()

		p, _, _ := setupTestDB(t)

		return p
	})
}

func TestPersistence_DocumentsUsingKind(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	withLoop := testutil.NewDocumentBuilder("root").
		Add("root", "body", "L", testutil.KindLoop, map[string]any{"iterator": "item"}).
		Build()
	withoutLoop := testutil.NewDocumentBuilder("root").
		Add("root", "body", "A", testutil.KindLog, nil).
		Build()

	require.NoError(t, p.SaveDocument(ctx, withLoop))
	require.NoError(t, p.SaveDocument(ctx, withoutLoop))

	ids, err := p.DocumentsUsingKind(ctx, testutil.KindLoop)
	require.NoError(t, err)
	assert.Equal(t, []string{withLoop.ID}, ids)

	ids, err = p.DocumentsUsingKind(ctx, testutil.KindProgram)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}
