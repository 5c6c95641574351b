package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists sessions across restarts. It implements the same Store
// contract as MemoryStore; select it with DATABASE_URL.
type SQLiteStore struct {
	db *sql.DB

	// Serializes read-modify-write of state blobs. Each session is expected
	// to have a single writer at a time; this guards the rare overlap.
	mu sync.Mutex
}

// NewSQLiteStore opens (and migrates) a session database.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		app_name TEXT NOT NULL,
		user_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		state TEXT NOT NULL DEFAULT '{}',
		PRIMARY KEY (app_name, user_id, session_id)
	)`)
	return err
}

// Get returns the stored session, or (nil, nil) when absent.
func (s *SQLiteStore) Get(ctx context.Context, app, userID, id string) (*Session, error) {
	var createdAt time.Time
	var stateJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at, state FROM sessions WHERE app_name = ? AND user_id = ? AND session_id = ?`,
		app, userID, id).Scan(&createdAt, &stateJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var state map[string]interface{}
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return nil, fmt.Errorf("corrupt session state: %w", err)
	}
	sess := NewSession(app, userID, id, state)
	sess.CreatedAt = createdAt
	return sess, nil
}

// Create inserts a session if it does not already exist and returns the
// stored session either way.
func (s *SQLiteStore) Create(ctx context.Context, app, userID, id string, state map[string]interface{}) (*Session, error) {
	stateJSON, err := json.Marshal(orEmpty(state))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (app_name, user_id, session_id, created_at, state) VALUES (?, ?, ?, ?, ?)`,
		app, userID, id, time.Now(), string(stateJSON))
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, app, userID, id)
}

// ApplyState merges a delta into the persisted state blob.
func (s *SQLiteStore) ApplyState(ctx context.Context, app, userID, id string, delta map[string]interface{}) error {
	if len(delta) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.Get(ctx, app, userID, id)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}
	sess.Apply(delta)

	stateJSON, err := json.Marshal(sess.State())
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE sessions SET state = ? WHERE app_name = ? AND user_id = ? AND session_id = ?`,
		string(stateJSON), app, userID, id)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func orEmpty(state map[string]interface{}) map[string]interface{} {
	if state == nil {
		return map[string]interface{}{}
	}
	return state
}
