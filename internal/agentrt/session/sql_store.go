package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/relaycore/agentrt/internal/agentrt/model"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SQLStore is a Store backed by a single "sessions" table. The driver
// name controls both which driver is loaded and which SQL dialect is
// used for the upsert.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// NewSQLStore opens driver ("sqlite" or "postgres") at dsn and ensures
// the sessions table exists.
func NewSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("session: open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("session: ping %s: %w", driver, err)
	}
	s := &SQLStore{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS sessions (
	key TEXT PRIMARY KEY,
	messages TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("session: migrate: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT messages, created_at, updated_at FROM sessions WHERE key = `+s.placeholder(1), key)
	var raw string
	var created, updated time.Time
	switch err := row.Scan(&raw, &created, &updated); {
	case err == sql.ErrNoRows:
		return newSession(key), nil
	case err != nil:
		return nil, fmt.Errorf("session: get %s: %w", key, err)
	}
	var messages []model.Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return newSession(key), nil
	}
	return &model.Session{Key: key, Messages: messages, CreatedAt: created, UpdatedAt: updated}, nil
}

func (s *SQLStore) Append(ctx context.Context, key string, msg model.Message) error {
	sess, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	sess.Messages = append(sess.Messages, msg)
	sess.UpdatedAt = time.Now()
	return s.upsert(ctx, sess)
}

func (s *SQLStore) Trim(ctx context.Context, key string, keep int) error {
	sess, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	sess.Messages = trimKeep(sess.Messages, keep)
	sess.UpdatedAt = time.Now()
	return s.upsert(ctx, sess)
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE key = `+s.placeholder(1), key)
	if err != nil {
		return fmt.Errorf("session: delete %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) upsert(ctx context.Context, sess *model.Session) error {
	data, err := json.Marshal(sess.Messages)
	if err != nil {
		return fmt.Errorf("session: marshal %s: %w", sess.Key, err)
	}
	var query string
	if s.driver == "postgres" {
		query = `INSERT INTO sessions (key, messages, created_at, updated_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (key) DO UPDATE SET messages = $2, updated_at = $4`
	} else {
		query = `INSERT INTO sessions (key, messages, created_at, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (key) DO UPDATE SET messages = excluded.messages, updated_at = excluded.updated_at`
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx, query, sess.Key, string(data), sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return fmt.Errorf("session: upsert %s: %w", sess.Key, err)
	}
	return nil
}

func (s *SQLStore) placeholder(n int) string {
	if s.driver == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Close releases the underlying database connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
