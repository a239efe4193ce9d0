package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hupe1980/cognisphere/core"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists chat memory in SQLite.
type SQLiteStore struct {
	db  *sql.DB
	max int
}

var _ core.ChatMemoryStore = (*SQLiteStore)(nil)

// NewSQLiteStore creates a SQLite-backed store and ensures schema.
func NewSQLiteStore(db *sql.DB, optFns ...func(o *Options)) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := ensureChatMemorySchema(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, max: opts.MaxMessages}, nil
}

// OpenSQLiteStore opens the database at dsn with the modernc driver.
func OpenSQLiteStore(dsn string, optFns ...func(o *Options)) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if dsn == ":memory:" {
		// Every connection of an in-memory database is a separate database.
		db.SetMaxOpenConns(1)
	}
	store, err := NewSQLiteStore(db, optFns...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Messages returns the session history, oldest first.
func (s *SQLiteStore) Messages(ctx context.Context, sessionID string) ([]core.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, text FROM chat_messages
		WHERE session_id = ?
		ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query chat memory: %w", err)
	}
	defer rows.Close()

	msgs := []core.Message{}
	for rows.Next() {
		var (
			role string
			msg  core.Message
		)
		if err := rows.Scan(&role, &msg.Text); err != nil {
			return nil, err
		}
		msg.Role = core.Role(role)
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// Add appends messages in one transaction and applies the window.
func (s *SQLiteStore) Add(ctx context.Context, sessionID string, msgs ...core.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, msg := range msgs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chat_messages (session_id, role, text) VALUES (?, ?, ?)`,
			sessionID, string(msg.Role), msg.Text,
		); err != nil {
			return fmt.Errorf("insert chat message: %w", err)
		}
	}

	if s.max > 0 {
		if err := trimSQLite(ctx, tx, sessionID, s.max); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// trimSQLite deletes everything but the newest max rows of a session. A
// leading system message is kept and counts towards max.
func trimSQLite(ctx context.Context, tx *sql.Tx, sessionID string, max int) error {
	var (
		firstID   int64
		firstRole string
	)
	err := tx.QueryRowContext(ctx,
		`SELECT id, role FROM chat_messages WHERE session_id = ? ORDER BY id ASC LIMIT 1`,
		sessionID,
	).Scan(&firstID, &firstRole)
	if err != nil {
		return err
	}

	keep := max
	pinned := int64(-1)
	if core.Role(firstRole) == core.RoleSystem && max > 1 {
		keep = max - 1
		pinned = firstID
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM chat_messages
		WHERE session_id = ? AND id != ? AND id NOT IN (
			SELECT id FROM chat_messages
			WHERE session_id = ? AND id != ?
			ORDER BY id DESC LIMIT ?
		)
	`, sessionID, pinned, sessionID, pinned, keep)
	if err != nil {
		return fmt.Errorf("trim chat memory: %w", err)
	}
	return nil
}

// Evict removes the session history.
func (s *SQLiteStore) Evict(ctx context.Context, sessionID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id = ?`, sessionID)
	if err != nil {
		return false, fmt.Errorf("evict chat memory: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func ensureChatMemorySchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS chat_messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id, id);
	`)
	return err
}
