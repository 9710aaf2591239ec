package sequence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	txcontext "fieldops/pkg/platform/tx"
)

// PostgresStore keeps counters in sequence_counters. The upsert takes the
// row lock, so concurrent allocators on one key queue behind the first
// transaction and each read a distinct value.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Increment(ctx context.Context, key Key) (uint64, error) {
	var value int64
	err := s.execer(ctx).QueryRowContext(ctx, `
		INSERT INTO sequence_counters (scope_id, month, year, last_value, updated_at)
		VALUES ($1, $2, $3, 1, NOW())
		ON CONFLICT (scope_id, month, year)
		DO UPDATE SET last_value = sequence_counters.last_value + 1, updated_at = NOW()
		RETURNING last_value
	`, string(key.ScopeID), key.Month, key.Year).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("increment sequence counter: %w", txcontext.Classify(err))
	}
	return uint64(value), nil
}

func (s *PostgresStore) Current(ctx context.Context, key Key) (uint64, error) {
	var value int64
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT last_value FROM sequence_counters
		WHERE scope_id = $1 AND month = $2 AND year = $3
	`, string(key.ScopeID), key.Month, key.Year).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read sequence counter: %w", txcontext.Classify(err))
	}
	return uint64(value), nil
}
