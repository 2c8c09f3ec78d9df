package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteSessionStore persists the user → conversation mapping in a local
// SQLite file, for single-node deployments and geniectl.
type SQLiteSessionStore struct {
	db  *sql.DB
	now func() time.Time
}

func OpenSQLiteSessionStore(path string) (*SQLiteSessionStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("repository: sqlite path must not be empty")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("repository: open sqlite db: %w", err)
	}
	// One writer avoids SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)

	s := &SQLiteSessionStore{db: db, now: time.Now}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteSessionStore) initSchema() error {
	stmts := []string{
		`PRAGMA journal_mode = WAL;`,
		`CREATE TABLE IF NOT EXISTS user_sessions (
			user_id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("repository: init schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteSessionStore) Get(ctx context.Context, userID string) (string, bool, error) {
	if strings.TrimSpace(userID) == "" {
		return "", false, errEmptyUserID
	}
	var convID string
	err := s.db.QueryRowContext(ctx,
		`SELECT conversation_id FROM user_sessions WHERE user_id = ?`, userID,
	).Scan(&convID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("repository: session Get: %w", err)
	}
	return convID, true, nil
}

func (s *SQLiteSessionStore) Set(ctx context.Context, userID, conversationID string) error {
	if strings.TrimSpace(userID) == "" {
		return errEmptyUserID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_sessions (user_id, conversation_id, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			conversation_id = excluded.conversation_id,
			updated_at = excluded.updated_at`,
		userID, conversationID, s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("repository: session Set: %w", err)
	}
	return nil
}

func (s *SQLiteSessionStore) Delete(ctx context.Context, userID string) (bool, error) {
	if strings.TrimSpace(userID) == "" {
		return false, errEmptyUserID
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE user_id = ?`, userID)
	if err != nil {
		return false, fmt.Errorf("repository: session Delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("repository: session Delete rows: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteSessionStore) Close() error {
	return s.db.Close()
}
