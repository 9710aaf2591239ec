package audit

import (
	"context"
	"errors"
	"sort"
	"strings"

	id "fieldops/pkg/domain"
	dErrors "fieldops/pkg/domain-errors"
	"fieldops/pkg/platform/sentinel"
	"fieldops/pkg/requestcontext"
)

// Store persists entries. There is deliberately no update or delete method.
type Store interface {
	// Append persists entry, assigning its Seq. It joins the unit of work
	// carried by ctx when there is one.
	Append(ctx context.Context, entry *Entry) error
	ListByRecord(ctx context.Context, recordID id.RecordID) ([]Entry, error)
}

// Trail is the append-only history sink for workflow records.
type Trail struct {
	store Store
}

func NewTrail(store Store) *Trail {
	return &Trail{store: store}
}

// Append validates and persists one entry. It fails only on invalid input or
// storage failure.
func (t *Trail) Append(ctx context.Context, entry Entry) (*Entry, error) {
	if entry.RecordID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "history entry requires a record id")
	}
	if !entry.Action.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown history action %q", entry.Action)
	}
	if entry.Actor == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "history entry requires an actor")
	}
	entry.Remarks = strings.TrimSpace(entry.Remarks)
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = requestcontext.Now(ctx)
	}
	entry.OccurredAt = entry.OccurredAt.UTC()
	entry.ID = id.NewEntryID()

	if err := t.store.Append(ctx, &entry); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeStorageConflict, "history append lost a concurrent write")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append history entry")
	}
	return &entry, nil
}

// ListFor returns the record's history newest first, ordered by
// (OccurredAt, Seq) so wall-clock ties still have a total order.
func (t *Trail) ListFor(ctx context.Context, recordID id.RecordID) ([]Entry, error) {
	entries, err := t.store.ListByRecord(ctx, recordID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list history")
	}
	SortNewestFirst(entries)
	return entries, nil
}

// SortNewestFirst orders entries by OccurredAt descending, then Seq descending.
func SortNewestFirst(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.OccurredAt.Equal(b.OccurredAt) {
			return a.OccurredAt.After(b.OccurredAt)
		}
		return a.Seq > b.Seq
	})
}
