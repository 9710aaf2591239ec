package tx

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dErrors "fieldops/pkg/domain-errors"
)

const defaultTxTimeout = 5 * time.Second

// Postgres runs units of work inside a database transaction.
type Postgres struct {
	db        *sql.DB
	timeout   time.Duration
	isolation sql.IsolationLevel
}

// PostgresOption configures a Postgres runner.
type PostgresOption func(*Postgres)

// WithTimeout bounds transactions whose context carries no deadline.
func WithTimeout(d time.Duration) PostgresOption {
	return func(p *Postgres) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithIsolation overrides the default READ COMMITTED isolation level.
func WithIsolation(level sql.IsolationLevel) PostgresOption {
	return func(p *Postgres) {
		p.isolation = level
	}
}

func NewPostgres(db *sql.DB, opts ...PostgresOption) *Postgres {
	p := &Postgres{db: db, timeout: defaultTxTimeout, isolation: sql.LevelDefault}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunInTx begins a transaction, hands fn a context carrying it, and commits
// only if fn succeeds. Nested calls reuse the outer transaction.
func (p *Postgres) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	sqlTx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: p.isolation})
	if err != nil {
		return fmt.Errorf("begin tx: %w", Classify(err))
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", Classify(err))
	}
	return nil
}
