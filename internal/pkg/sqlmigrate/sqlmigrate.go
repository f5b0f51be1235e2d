// Package sqlmigrate applies embedded .sql migrations once per file. It runs
// against any database/sql driver; bind rewrites the ? placeholders of its
// bookkeeping queries for drivers that use another style.
package sqlmigrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

const migrationTable = "schema_migrations"

// Bind rewrites a query written with ? placeholders.
type Bind func(query string) string

// Apply executes the migrations under root in lexical order, recording each
// applied file in schema_migrations. A nil bind keeps ? placeholders.
func Apply(ctx context.Context, db *sql.DB, migrations fs.FS, root string, bind Bind) error {
	if db == nil {
		return fmt.Errorf("sqlmigrate: sql db is required")
	}
	if bind == nil {
		bind = func(q string) string { return q }
	}
	root = strings.TrimSpace(root)
	if root == "" {
		root = "."
	}

	entries, err := fs.ReadDir(migrations, root)
	if err != nil {
		return fmt.Errorf("sqlmigrate: read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	createSQL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    name TEXT PRIMARY KEY,
    applied_at BIGINT NOT NULL
);`, migrationTable)
	if _, err := db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("sqlmigrate: ensure migration table: %w", err)
	}

	for _, file := range files {
		applied, err := isApplied(ctx, db, bind, file)
		if err != nil {
			return fmt.Errorf("sqlmigrate: check migration %s: %w", file, err)
		}
		if applied {
			continue
		}

		content, err := fs.ReadFile(migrations, path.Join(root, file))
		if err != nil {
			return fmt.Errorf("sqlmigrate: read migration %s: %w", file, err)
		}
		up := ExtractUp(string(content))
		if strings.TrimSpace(up) == "" {
			continue
		}

		if err := applyOne(ctx, db, bind, file, up); err != nil {
			return err
		}
	}
	return nil
}

func applyOne(ctx context.Context, db *sql.DB, bind Bind, file, up string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlmigrate: begin %s: %w", file, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, up); err != nil {
		return fmt.Errorf("sqlmigrate: exec %s: %w", file, err)
	}
	_, err = tx.ExecContext(ctx,
		bind(fmt.Sprintf("INSERT INTO %s (name, applied_at) VALUES (?, ?) ON CONFLICT (name) DO NOTHING", migrationTable)),
		file, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("sqlmigrate: record %s: %w", file, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlmigrate: commit %s: %w", file, err)
	}
	return nil
}

// ExtractUp returns the SQL in the -- +migrate Up section, or the whole
// content when the file has no markers.
func ExtractUp(content string) string {
	upIdx := strings.Index(content, "-- +migrate Up")
	if upIdx == -1 {
		return content
	}
	downIdx := strings.Index(content, "-- +migrate Down")
	if downIdx == -1 {
		return content[upIdx+len("-- +migrate Up"):]
	}
	return content[upIdx+len("-- +migrate Up") : downIdx]
}

func isApplied(ctx context.Context, db *sql.DB, bind Bind, name string) (bool, error) {
	var found int
	err := db.QueryRowContext(ctx, bind("SELECT 1 FROM "+migrationTable+" WHERE name = ?"), name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
