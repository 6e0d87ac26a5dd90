package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/tune/internal/settings"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	pool             *pgxpool.Pool
	defaultThreshold float64
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool, defaultThreshold: settings.DefaultThreshold}, nil
}

// SetDefaultThreshold sets the threshold given to users on first sight.
func (s *Store) SetDefaultThreshold(threshold float64) error {
	if !(threshold >= 0 && threshold <= 1) {
		return fmt.Errorf("%w: got %v", settings.ErrInvalidThreshold, threshold)
	}
	s.defaultThreshold = threshold
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS tune_settings (
	user_id          TEXT PRIMARY KEY,
	session_id       TEXT NOT NULL,
	threshold        DOUBLE PRECISION NOT NULL,
	attributes       JSONB NOT NULL,
	subtypes_enabled BOOLEAN NOT NULL DEFAULT false,
	theme            TEXT NOT NULL,
	enabled          BOOLEAN NOT NULL DEFAULT true,
	websites         JSONB NOT NULL,
	install_state    TEXT NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS tune_feedback (
	id              UUID PRIMARY KEY,
	user_id         TEXT NOT NULL,
	session_id      TEXT NOT NULL,
	site            TEXT NOT NULL,
	comment_text    TEXT NOT NULL,
	attribute       TEXT NOT NULL,
	suggested_score DOUBLE PRECISION NOT NULL,
	decision_kind   TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS tune_feedback_user_created_idx ON tune_feedback (user_id, created_at DESC);
`

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
