package records

import (
	"context"
	"time"

	"fieldops/internal/audit"
	"fieldops/internal/sequence"
	"fieldops/internal/workflow"
	id "fieldops/pkg/domain"
)

// Transitioner is the workflow engine surface the service drives.
type Transitioner interface {
	Transition(ctx context.Context, kind workflow.Kind, recordID id.RecordID, to workflow.Status, tc workflow.TransitionContext) (*workflow.Record, error)
}

// CodeAllocator mints tracking codes.
type CodeAllocator interface {
	Allocate(ctx context.Context, scopeID id.JurisdictionID, when time.Time) (sequence.Allocation, error)
}

// AuthorityChecker answers jurisdiction scope questions.
type AuthorityChecker interface {
	HasAuthority(ctx context.Context, assigned []id.JurisdictionID, target id.JurisdictionID) (bool, error)
}

// HistoryTrail is the audit trail surface the service reads and writes.
type HistoryTrail interface {
	Append(ctx context.Context, entry audit.Entry) (*audit.Entry, error)
	ListFor(ctx context.Context, recordID id.RecordID) ([]audit.Entry, error)
}
