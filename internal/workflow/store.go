package workflow

import (
	"context"

	id "fieldops/pkg/domain"
)

// Store persists workflow records. Implementations return sentinel.ErrNotFound
// for missing rows and sentinel.ErrConflict when a compare-and-swap loses.
type Store interface {
	Create(ctx context.Context, record *Record) error
	FindByID(ctx context.Context, recordID id.RecordID) (*Record, error)
	FindByCode(ctx context.Context, code string) (*Record, error)
	// LockByID loads the record and holds it for the rest of the unit of work.
	LockByID(ctx context.Context, recordID id.RecordID) (*Record, error)
	// Update writes record if its stored version still equals expectedVersion.
	Update(ctx context.Context, record *Record, expectedVersion int64) error
}
