package sequence

import (
	"context"

	id "fieldops/pkg/domain"
)

// Key partitions counters by scope and calendar month.
type Key struct {
	ScopeID id.JurisdictionID
	Month   int
	Year    int
}

// CounterStore holds one counter row per Key in the shared backing store.
type CounterStore interface {
	// Increment adds one to the counter, creating it at zero first if
	// needed, and returns the new value. It joins the unit of work in ctx.
	Increment(ctx context.Context, key Key) (uint64, error)
	// Current returns the last issued value, or zero if none.
	Current(ctx context.Context, key Key) (uint64, error)
}
