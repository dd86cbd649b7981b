package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "board.db")

	database, err := Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	for _, table := range []string{"boards", "board_columns", "users", "cards", "card_reviewers", "card_dependencies", "activity_logs", "rule_settings"} {
		cols, err := tableColumns(ctx, database, table)
		require.NoError(t, err)
		assert.NotEmpty(t, cols, table)
	}

	var fk int
	require.NoError(t, database.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestMigrateAddsMissingColumns(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "old.db")

	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = raw.ExecContext(ctx, `CREATE TABLE rule_settings (
		scope TEXT PRIMARY KEY,
		dependency_check INTEGER NOT NULL DEFAULT 1,
		reviewer_check INTEGER NOT NULL DEFAULT 1
	)`)
	require.NoError(t, err)
	_, err = raw.ExecContext(ctx, `INSERT INTO rule_settings(scope, dependency_check, reviewer_check) VALUES ('default', 0, 1)`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	database, err := Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	cols, err := tableColumns(ctx, database, "rule_settings")
	require.NoError(t, err)
	assert.True(t, cols["version"])
	assert.True(t, cols["last_updated"])

	var version string
	var dependencyCheck int
	require.NoError(t, database.QueryRowContext(ctx, `SELECT version, dependency_check FROM rule_settings WHERE scope = 'default'`).Scan(&version, &dependencyCheck))
	assert.Equal(t, "1.0.0", version)
	assert.Equal(t, 0, dependencyCheck)

	// Running the migration again is a no-op.
	require.NoError(t, Migrate(ctx, database))
}

func TestTableColumnsMissingTable(t *testing.T) {
	ctx := context.Background()
	database, err := Open(ctx, filepath.Join(t.TempDir(), "board.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	cols, err := tableColumns(ctx, database, "swimlanes")
	require.NoError(t, err)
	assert.Empty(t, cols)
}
