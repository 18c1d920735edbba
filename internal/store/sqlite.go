package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/Somdatta-dev/ace-mail/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// ReplaceAnnotations atomically replaces the stored snapshot with the
// given entries. The overlay always writes its full in-memory state, so
// a plain delete-and-insert inside one transaction is sufficient.
func (s *SQLiteStore) ReplaceAnnotations(
	ctx context.Context,
	entries map[string]model.Annotation,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM annotations"); err != nil {
		return fmt.Errorf("clearing annotations: %w", err)
	}

	stmt, err := tx.PreparexContext(
		ctx,
		"INSERT INTO annotations (composite_key, value) VALUES (?, ?)",
	)
	if err != nil {
		return fmt.Errorf("preparing annotation insert: %w", err)
	}
	defer stmt.Close()

	for key, entry := range entries {
		value, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("encoding annotation %q: %w", key, err)
		}
		if _, err := stmt.ExecContext(ctx, key, string(value)); err != nil {
			return fmt.Errorf("inserting annotation %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing annotations: %w", err)
	}
	return nil
}

// annotationRow mirrors one row of the annotations table.
type annotationRow struct {
	CompositeKey string `db:"composite_key"`
	Value        string `db:"value"`
}

// LoadAnnotations returns the stored snapshot. The snapshot format has
// no version field, so rows are parsed defensively: anything that does
// not decode as an annotation is logged and skipped, and the overlay
// starts from whatever subset survives.
func (s *SQLiteStore) LoadAnnotations(
	ctx context.Context,
) (map[string]model.Annotation, error) {
	var rows []annotationRow
	err := s.db.SelectContext(
		ctx,
		&rows,
		"SELECT composite_key, value FROM annotations",
	)
	if err != nil {
		return nil, fmt.Errorf("loading annotations: %w", err)
	}

	entries := make(map[string]model.Annotation, len(rows))
	for _, row := range rows {
		var entry model.Annotation
		if err := json.Unmarshal([]byte(row.Value), &entry); err != nil {
			slog.Warn("skipping malformed annotation row",
				"key", row.CompositeKey,
				"error", err)
			continue
		}
		entries[row.CompositeKey] = entry
	}

	return entries, nil
}

// SetSetting writes a settings value under a well-known key.
func (s *SQLiteStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO settings (key, value, updated_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value,
		 updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("setting %q: %w", key, err)
	}
	return nil
}

// GetSetting reads a settings value.
func (s *SQLiteStore) GetSetting(
	ctx context.Context,
	key string,
) (string, bool, error) {
	var value string
	err := s.db.GetContext(
		ctx,
		&value,
		"SELECT value FROM settings WHERE key = ?",
		key,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("getting setting %q: %w", key, err)
	}
	return value, true, nil
}
