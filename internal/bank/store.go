// Package bank persists each teacher's reusable prompt library in SQLite.
// Writes are serialized through a single goroutine; reads run concurrently
// against the WAL.
package bank

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"thoughtswap/pkg/interfaces"
	"thoughtswap/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS saved_prompts (
	id            TEXT PRIMARY KEY,
	teacher_email TEXT NOT NULL,
	content       TEXT NOT NULL,
	type          TEXT NOT NULL,
	options       TEXT NOT NULL DEFAULT '[]',
	created_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_saved_prompts_teacher
	ON saved_prompts(teacher_email, created_at DESC);
`

type writeOperation struct {
	operation func(*sql.DB) error
	result    chan error
}

// Store implements interfaces.PromptStore on SQLite.
type Store struct {
	db       *sql.DB
	timeout  time.Duration
	writeCh  chan writeOperation
	shutdown chan struct{}
	done     chan struct{}
}

// Open opens or creates the bank database and starts the writer goroutine.
func Open(path string, timeout time.Duration) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s := &Store{
		db:       db,
		timeout:  timeout,
		writeCh:  make(chan writeOperation, 100),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.writeLoop()
	return s, nil
}

func (s *Store) writeLoop() {
	defer close(s.done)
	for {
		select {
		case op := <-s.writeCh:
			op.result <- op.operation(s.db)
		case <-s.shutdown:
			// Drain queued writes before exiting.
			for {
				select {
				case op := <-s.writeCh:
					op.result <- op.operation(s.db)
				default:
					return
				}
			}
		}
	}
}

func (s *Store) executeWrite(ctx context.Context, operation func(*sql.DB) error) error {
	result := make(chan error, 1)
	select {
	case s.writeCh <- writeOperation{operation: operation, result: result}:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.shutdown:
		return fmt.Errorf("store is closed")
	}

	select {
	case err := <-result:
		return err
	case <-time.After(s.timeout):
		return fmt.Errorf("write timed out after %s", s.timeout)
	}
}

// SavePrompt inserts a bank entry, minting an ID and timestamp if unset.
func (s *Store) SavePrompt(ctx context.Context, prompt *types.SavedPrompt) error {
	if prompt.ID == "" {
		prompt.ID = uuid.New().String()
	}
	if prompt.CreatedAt.IsZero() {
		prompt.CreatedAt = time.Now()
	}
	options, err := json.Marshal(prompt.Options)
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}

	return s.executeWrite(ctx, func(db *sql.DB) error {
		_, err := db.Exec(
			`INSERT INTO saved_prompts (id, teacher_email, content, type, options, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			prompt.ID, prompt.TeacherEmail, prompt.Content, prompt.Type, string(options), prompt.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save prompt: %w", err)
		}
		return nil
	})
}

// ListPrompts returns a teacher's bank entries, newest first.
func (s *Store) ListPrompts(ctx context.Context, teacherEmail string) ([]*types.SavedPrompt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, teacher_email, content, type, options, created_at
		 FROM saved_prompts WHERE teacher_email = ? ORDER BY created_at DESC`,
		teacherEmail,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}
	defer rows.Close()

	var prompts []*types.SavedPrompt
	for rows.Next() {
		var p types.SavedPrompt
		var options string
		if err := rows.Scan(&p.ID, &p.TeacherEmail, &p.Content, &p.Type, &options, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prompt: %w", err)
		}
		if err := json.Unmarshal([]byte(options), &p.Options); err != nil {
			return nil, fmt.Errorf("failed to decode options for %s: %w", p.ID, err)
		}
		prompts = append(prompts, &p)
	}
	return prompts, rows.Err()
}

// DeletePrompt removes a bank entry. The owner check is part of the delete
// so one teacher can never remove another's entry.
func (s *Store) DeletePrompt(ctx context.Context, teacherEmail, id string) error {
	return s.executeWrite(ctx, func(db *sql.DB) error {
		res, err := db.Exec(
			`DELETE FROM saved_prompts WHERE id = ? AND teacher_email = ?`,
			id, teacherEmail,
		)
		if err != nil {
			return fmt.Errorf("failed to delete prompt: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check delete result: %w", err)
		}
		if affected == 0 {
			return interfaces.ErrPromptNotFound
		}
		return nil
	})
}

// HealthCheck verifies database connectivity.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close stops the writer goroutine and closes the database.
func (s *Store) Close() error {
	close(s.shutdown)
	select {
	case <-s.done:
	case <-time.After(s.timeout):
	}
	return s.db.Close()
}

var _ interfaces.PromptStore = (*Store)(nil)
