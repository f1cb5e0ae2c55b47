package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"
)

// Record is one persisted prompt/response pair.
type Record struct {
	ID              string
	Server          string
	Model           string
	Prompt          string
	Response        string
	Duration        time.Duration
	EstimatedTokens int
	Temperature     *float64
	CreatedAt       time.Time
}

// Store persists prompt history to a local SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history db: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS prompts (
		id TEXT PRIMARY KEY,
		server_name TEXT NOT NULL,
		model_name TEXT NOT NULL,
		prompt TEXT NOT NULL,
		response TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		estimated_tokens INTEGER,
		temperature REAL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_prompts_created_at ON prompts(created_at);
	`
	_, err := s.db.Exec(query)
	return err
}

// Save inserts one record. A missing ID is generated; a missing token
// estimate falls back to the len/4 heuristic; a zero CreatedAt means now.
func (s *Store) Save(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.EstimatedTokens == 0 {
		rec.EstimatedTokens = EstimateTokens(rec.Response)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	query := `
	INSERT INTO prompts (id, server_name, model_name, prompt, response, duration_ms, estimated_tokens, temperature, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Server, rec.Model, rec.Prompt, rec.Response,
		rec.Duration.Milliseconds(), rec.EstimatedTokens, rec.Temperature, rec.CreatedAt,
	)
	return err
}

// Recent returns up to limit records ordered newest first, skipping offset.
func (s *Store) Recent(ctx context.Context, limit, offset int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `
	SELECT id, server_name, model_name, prompt, response, duration_ms, estimated_tokens, temperature, created_at
	FROM prompts ORDER BY created_at DESC, id LIMIT ? OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var rec Record
		var durMs int64
		if err := rows.Scan(&rec.ID, &rec.Server, &rec.Model, &rec.Prompt, &rec.Response,
			&durMs, &rec.EstimatedTokens, &rec.Temperature, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Duration = time.Duration(durMs) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// EstimateTokens approximates the token count of text. Four characters per
// token is the usual rough figure for English prose.
func EstimateTokens(text string) int {
	return len(text) / 4
}
