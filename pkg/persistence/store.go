// Package persistence provides SQLite-based storage for consultation
// records and conversation history.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"consilium/pkg/history"
	"consilium/pkg/logx"
)

// ConsultRecord is one completed consultation as stored on disk.
type ConsultRecord struct {
	ConsultID   string
	SessionID   string
	Query       string
	Specialty   string // primary routed specialty
	Status      string
	Emergency   bool
	Attempts    map[string]int // specialty -> attempt count
	CompletedAt time.Time
}

// Store wraps a SQLite database holding consult records and exchanges.
// It implements history.Provider for the engine's read side.
type Store struct {
	db     *sql.DB
	logger *logx.Logger
}

// Open opens (and if needed creates) the consultation database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_foreign_keys=ON&_journal_mode=WAL&_busy_timeout=5000", dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{
		db:     db,
		logger: logx.NewLogger("persistence"),
	}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS consults (
		consult_id   TEXT PRIMARY KEY,
		session_id   TEXT NOT NULL,
		query        TEXT NOT NULL,
		specialty    TEXT NOT NULL,
		status       TEXT NOT NULL,
		emergency    INTEGER NOT NULL DEFAULT 0,
		completed_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS consult_attempts (
		consult_id TEXT NOT NULL REFERENCES consults(consult_id) ON DELETE CASCADE,
		specialty  TEXT NOT NULL,
		attempts   INTEGER NOT NULL,
		PRIMARY KEY (consult_id, specialty)
	);
	CREATE TABLE IF NOT EXISTS exchanges (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		speaker    TEXT NOT NULL,
		text       TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_exchanges_session ON exchanges(session_id, id);
	CREATE INDEX IF NOT EXISTS idx_consults_session ON consults(session_id);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordConsult persists one completed consultation and its per-specialty
// attempt counts in a single transaction.
func (s *Store) RecordConsult(ctx context.Context, rec *ConsultRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO consults (consult_id, session_id, query, specialty, status, emergency, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ConsultID, rec.SessionID, rec.Query, rec.Specialty, rec.Status, rec.Emergency, rec.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to insert consult %s: %w", rec.ConsultID, err)
	}

	for specialty, attempts := range rec.Attempts {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO consult_attempts (consult_id, specialty, attempts)
			VALUES (?, ?, ?)`,
			rec.ConsultID, specialty, attempts)
		if err != nil {
			return fmt.Errorf("failed to insert attempts for %s: %w", specialty, err)
		}
	}

	return tx.Commit()
}

// AppendExchange appends one conversation turn to a session.
func (s *Store) AppendExchange(ctx context.Context, sessionID string, ex history.Exchange) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	ts := ex.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exchanges (session_id, speaker, text, created_at)
		VALUES (?, ?, ?, ?)`,
		sessionID, string(ex.Speaker), ex.Text, ts)
	if err != nil {
		return fmt.Errorf("failed to append exchange: %w", err)
	}
	return nil
}

// History implements history.Provider: ordered prior exchanges for a session.
func (s *Store) History(ctx context.Context, sessionID string) ([]history.Exchange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT speaker, text, created_at FROM exchanges
		WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchanges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []history.Exchange
	for rows.Next() {
		var ex history.Exchange
		var speaker string
		if err := rows.Scan(&speaker, &ex.Text, &ex.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan exchange: %w", err)
		}
		ex.Speaker = history.Speaker(speaker)
		out = append(out, ex)
	}
	return out, rows.Err()
}

// ConsultCount returns how many consults are stored for a session.
func (s *Store) ConsultCount(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM consults WHERE session_id = ?`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count consults: %w", err)
	}
	return n, nil
}
