package artifact

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/encoding"
	"github.com/Car-Pooling-System/Car-Pooling-System-Backend/internal/model"
)

// PostgresStore is a PostgreSQL implementation of Store. Every Save appends
// a new row per kind; Load reads the newest.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL artifact store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the artifact table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS model_artifacts (
			id         BIGSERIAL PRIMARY KEY,
			kind       TEXT        NOT NULL,
			payload    JSONB       NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS model_artifacts_kind_created_idx
			ON model_artifacts (kind, created_at DESC, id DESC);
	`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create model_artifacts: %w", err)
	}
	return nil
}

// Load reads the newest model and encoders.
func (s *PostgresStore) Load(ctx context.Context) (*Bundle, error) {
	var m model.LinearModel
	if err := s.latest(ctx, KindModel, &m); err != nil {
		return nil, err
	}
	var enc encoding.EncoderSet
	if err := s.latest(ctx, KindEncoders, &enc); err != nil {
		return nil, err
	}

	b := &Bundle{Model: &m, Encoders: &enc}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stored artifacts: %w", err)
	}
	return b, nil
}

// Save inserts both artifacts in a single transaction.
func (s *PostgresStore) Save(ctx context.Context, b *Bundle) error {
	if err := b.Validate(); err != nil {
		return err
	}

	modelJSON, err := json.Marshal(b.Model)
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	encodersJSON, err := json.Marshal(b.Encoders)
	if err != nil {
		return fmt.Errorf("encode encoders: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	query := `INSERT INTO model_artifacts (kind, payload) VALUES ($1, $2)`
	if _, err := tx.Exec(ctx, query, KindEncoders, encodersJSON); err != nil {
		return fmt.Errorf("insert encoders: %w", err)
	}
	if _, err := tx.Exec(ctx, query, KindModel, modelJSON); err != nil {
		return fmt.Errorf("insert model: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) latest(ctx context.Context, kind string, v any) error {
	query := `
		SELECT payload
		FROM model_artifacts
		WHERE kind = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var payload []byte
	if err := s.pool.QueryRow(ctx, query, kind).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrNotFound, kind)
		}
		return fmt.Errorf("query %s: %w", kind, err)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode %s: %w", kind, err)
	}
	return nil
}
