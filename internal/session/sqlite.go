package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Credential keys stored in the credentials table. The two rows are written
// in one transaction so a partial session can never be observed on restore.
const (
	keyToken   = "token"
	keySession = "session"
)

// SQLiteStore implements Store using SQLite via modernc.org/sqlite (pure Go).
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite-backed store.
// dbPath is the path to the SQLite database file; use ":memory:" for testing.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("session: open database: %w", err)
	}

	// Verify the connection works.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: ping database: %w", err)
	}

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS credentials (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save persists the session: the bearer token and the serialized session are
// written atomically, replacing whatever was stored before.
func (s *SQLiteStore) Save(ctx context.Context, sess *Session) error {
	if sess == nil || sess.Token == "" {
		return fmt.Errorf("session: refusing to save empty session")
	}
	if !sess.Role.Valid() {
		return fmt.Errorf("session: refusing to save session with role %q", sess.Role)
	}

	sessionJSON, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: marshal session: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("session: begin save: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO credentials (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, query, keyToken, sess.Token, now); err != nil {
		return fmt.Errorf("session: save token: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, keySession, string(sessionJSON), now); err != nil {
		return fmt.Errorf("session: save session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("session: commit save: %w", err)
	}
	return nil
}

// Load returns the persisted session. Any inconsistency between the two
// stored entries (missing token, missing session, unparseable JSON, token
// mismatch) yields (nil, nil): a partial session is no session.
func (s *SQLiteStore) Load(ctx context.Context) (*Session, error) {
	token, ok, err := s.loadValue(ctx, keyToken)
	if err != nil {
		return nil, err
	}
	if !ok || token == "" {
		return nil, nil
	}

	sessionJSON, ok, err := s.loadValue(ctx, keySession)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var sess Session
	if err := json.Unmarshal([]byte(sessionJSON), &sess); err != nil {
		// Malformed persisted data means "no session", never an error.
		return nil, nil
	}

	if sess.Token != token || !sess.valid() {
		return nil, nil
	}

	return &sess, nil
}

// loadValue reads a single credentials row. The second return value is false
// when the row does not exist.
func (s *SQLiteStore) loadValue(ctx context.Context, key string) (string, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT value FROM credentials WHERE key = ?`, key)

	var value string
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("session: scan row: %w", err)
	}
	return value, true, nil
}

// Clear removes both credential entries. Clearing an empty store is a no-op.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials`); err != nil {
		return fmt.Errorf("session: clear credentials: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
