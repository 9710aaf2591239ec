package tx

import (
	"context"
	"sync"

	dErrors "fieldops/pkg/domain-errors"
)

type undoKey struct{}

type undoLog struct {
	steps []func()
}

// InMemory serializes units of work behind one lock and undoes registered
// writes when fn fails. It is the in-memory counterpart of Postgres.
type InMemory struct {
	mu sync.Mutex
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (m *InMemory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(undoKey{}).(*undoLog); ok {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	log := &undoLog{}
	if err := fn(context.WithValue(ctx, undoKey{}, log)); err != nil {
		for i := len(log.steps) - 1; i >= 0; i-- {
			log.steps[i]()
		}
		return err
	}
	return nil
}

// OnRollback registers undo for a write made inside an in-memory unit of
// work. Outside a unit of work the write is final and undo is dropped.
func OnRollback(ctx context.Context, undo func()) {
	if log, ok := ctx.Value(undoKey{}).(*undoLog); ok {
		log.steps = append(log.steps, undo)
	}
}

// InUnit reports whether ctx belongs to an in-memory unit of work.
func InUnit(ctx context.Context) bool {
	_, ok := ctx.Value(undoKey{}).(*undoLog)
	return ok
}
