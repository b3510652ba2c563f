// ABOUTME: SQLite implementation of the binding snapshot and audit log using modernc.org/sqlite
// ABOUTME: Save replaces the bindings table inside one transaction

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/2389/helpdesk-bridge/internal/binding"
)

// timeFormat has a fixed-width fraction so stored timestamps sort as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Snapshotter and AuditLog using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the database at path.
// The schema is created if it doesn't exist and parent directories are created if needed.
// A nil logger means slog.Default().
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store", "driver", "sqlite")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS bindings (
			conversation_id   TEXT PRIMARY KEY,
			thread_message_id TEXT NOT NULL UNIQUE,
			created_at        TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS ticket_audit (
			audit_id          TEXT PRIMARY KEY,
			action            TEXT NOT NULL,
			conversation_id   TEXT NOT NULL,
			thread_message_id TEXT,
			actor             TEXT,
			ts                TEXT NOT NULL,
			detail_json       TEXT,

			CHECK (action IN ('opened', 'closed_by_user', 'closed_by_staff', 'abandoned'))
		);

		CREATE INDEX IF NOT EXISTS idx_ticket_audit_ts ON ticket_audit(ts DESC);
		CREATE INDEX IF NOT EXISTS idx_ticket_audit_conversation ON ticket_audit(conversation_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load returns every saved binding.
func (s *SQLiteStore) Load(ctx context.Context) ([]binding.Binding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT conversation_id, thread_message_id, created_at
		FROM bindings
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying bindings: %v", ErrPersistence, err)
	}
	defer func() { _ = rows.Close() }()

	records := []Record{}
	for rows.Next() {
		var r Record
		var createdAtStr string
		if err := rows.Scan(&r.ConversationID, &r.ThreadMessageID, &createdAtStr); err != nil {
			return nil, fmt.Errorf("%w: scanning binding row: %v", ErrPersistence, err)
		}
		r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing created_at: %v", ErrPersistence, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating binding rows: %v", ErrPersistence, err)
	}

	return FromRecords(records), nil
}

// Save replaces the saved bindings with bindings.
func (s *SQLiteStore) Save(ctx context.Context, bindings []binding.Binding) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bindings`); err != nil {
		return fmt.Errorf("%w: clearing bindings: %v", ErrPersistence, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bindings (conversation_id, thread_message_id, created_at)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: preparing insert: %v", ErrPersistence, err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range ToRecords(bindings) {
		if _, err := stmt.ExecContext(ctx, r.ConversationID, r.ThreadMessageID, r.CreatedAt.Format(timeFormat)); err != nil {
			return fmt.Errorf("%w: inserting binding %s: %v", ErrPersistence, r.ConversationID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing snapshot: %v", ErrPersistence, err)
	}

	s.logger.Debug("saved snapshot", "bindings", len(bindings))
	return nil
}
