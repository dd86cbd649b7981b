package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaFS embed.FS

func DefaultPath() string {
	return filepath.Join(".wb", "board.db")
}

// Open opens the SQLite database at path, creating parent directories, and
// migrates it to the current schema. Transactions take the write lock up
// front so concurrent moves are applied one at a time.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply journal mode: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

func Migrate(ctx context.Context, db *sql.DB) error {
	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(schema)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	for _, add := range addedColumns {
		if err := ensureColumn(ctx, db, add); err != nil {
			return err
		}
	}
	return nil
}

type columnAddition struct {
	table      string
	column     string
	definition string
}

// addedColumns lists columns introduced after a table was first shipped.
// CREATE TABLE IF NOT EXISTS leaves older databases without them.
var addedColumns = []columnAddition{
	{table: "users", column: "avatar", definition: "TEXT NOT NULL DEFAULT ''"},
	{table: "cards", column: "due_date", definition: "TEXT"},
	{table: "cards", column: "estimated_hours", definition: "REAL"},
	{table: "rule_settings", column: "version", definition: "TEXT NOT NULL DEFAULT '1.0.0'"},
	{table: "rule_settings", column: "last_updated", definition: "TEXT NOT NULL DEFAULT ''"},
}

func ensureColumn(ctx context.Context, db *sql.DB, add columnAddition) error {
	columns, err := tableColumns(ctx, db, add.table)
	if err != nil {
		return err
	}
	if len(columns) == 0 || columns[add.column] {
		return nil
	}
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", add.table, add.column, add.definition)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("add column %s.%s: %w", add.table, add.column, err)
	}
	return nil
}

func tableColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	var exists int
	err := db.QueryRowContext(ctx, `SELECT 1 FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&exists)
	if err != nil {
		if err == sql.ErrNoRows {
			return map[string]bool{}, nil
		}
		return nil, fmt.Errorf("inspect %s table: %w", table, err)
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return nil, fmt.Errorf("inspect %s table: %w", table, err)
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, ctype string
		var notNull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		columns[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read table info: %w", err)
	}
	return columns, nil
}
