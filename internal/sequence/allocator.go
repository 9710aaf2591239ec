package sequence

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"fieldops/internal/jurisdiction"
	"fieldops/internal/platform/metrics"
	id "fieldops/pkg/domain"
	dErrors "fieldops/pkg/domain-errors"
	"fieldops/pkg/platform/sentinel"
	txcontext "fieldops/pkg/platform/tx"
)

// Allocation is one issued sequence value and the code minted from it.
type Allocation struct {
	Code     string
	Sequence uint64
	ScopeID  id.JurisdictionID
	Month    int
	Year     int
}

// ScopeDirectory resolves a scope id to its jurisdiction node.
type ScopeDirectory interface {
	Node(ctx context.Context, jurisdictionID id.JurisdictionID) (*jurisdiction.Node, error)
}

// Allocator issues gap-free, collision-free sequence values per scope and month.
// It keeps no counter state of its own; every value comes from the store.
type Allocator struct {
	counters CounterStore
	scopes   ScopeDirectory
	tx       txcontext.Runner
	location *time.Location
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

type Option func(a *Allocator)

// WithLocation sets the zone in which "when" is split into month and year.
func WithLocation(loc *time.Location) Option {
	return func(a *Allocator) {
		if loc != nil {
			a.location = loc
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Allocator) {
		a.metrics = m
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(a *Allocator) {
		a.logger = logger
	}
}

func NewAllocator(counters CounterStore, scopes ScopeDirectory, runner txcontext.Runner, opts ...Option) *Allocator {
	a := &Allocator{
		counters: counters,
		scopes:   scopes,
		tx:       runner,
		location: time.UTC,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// KeyFor splits when into the counter key for scopeID.
func (a *Allocator) KeyFor(scopeID id.JurisdictionID, when time.Time) Key {
	local := when.In(a.location)
	return Key{ScopeID: scopeID, Month: int(local.Month()), Year: local.Year()}
}

// Allocate draws the next value for (scopeID, month, year) of when. Called
// inside a caller's unit of work, the value is only consumed if that unit
// commits.
func (a *Allocator) Allocate(ctx context.Context, scopeID id.JurisdictionID, when time.Time) (Allocation, error) {
	start := time.Now()
	alloc, err := a.allocate(ctx, scopeID, when)
	outcome := "ok"
	if err != nil {
		outcome = string(dErrors.CodeOf(err))
	}
	a.metrics.ObserveAllocation(outcome, time.Since(start).Seconds())
	return alloc, err
}

func (a *Allocator) allocate(ctx context.Context, scopeID id.JurisdictionID, when time.Time) (Allocation, error) {
	abbr, err := a.abbreviationFor(ctx, scopeID)
	if err != nil {
		return Allocation{}, err
	}
	key := a.KeyFor(scopeID, when)

	var value uint64
	err = a.tx.RunInTx(ctx, func(ctx context.Context) error {
		v, err := a.counters.Increment(ctx, key)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if err != nil {
		return Allocation{}, translate(err)
	}

	alloc := Allocation{
		Code:     FormatCode(abbr, value, key.Month, key.Year),
		Sequence: value,
		ScopeID:  scopeID,
		Month:    key.Month,
		Year:     key.Year,
	}
	a.logger.Debug().
		Str("scope_id", string(scopeID)).
		Uint64("sequence", value).
		Str("code", alloc.Code).
		Msg("sequence allocated")
	return alloc, nil
}

// Peek returns the last value issued for the key of when without consuming one.
func (a *Allocator) Peek(ctx context.Context, scopeID id.JurisdictionID, when time.Time) (uint64, error) {
	if _, err := a.abbreviationFor(ctx, scopeID); err != nil {
		return 0, err
	}
	v, err := a.counters.Current(ctx, a.KeyFor(scopeID, when))
	if err != nil {
		return 0, translate(err)
	}
	return v, nil
}

func (a *Allocator) abbreviationFor(ctx context.Context, scopeID id.JurisdictionID) (string, error) {
	if scopeID == "" {
		return "", dErrors.New(dErrors.CodeUnknownScope, "scope id is required")
	}
	node, err := a.scopes.Node(ctx, scopeID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", dErrors.Newf(dErrors.CodeUnknownScope, "unknown scope %s", scopeID)
	}
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve scope")
	}
	return Abbreviate(node.Abbreviation), nil
}

func translate(err error) error {
	if dErrors.CodeOf(err) != "" {
		return err
	}
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.Wrap(err, dErrors.CodeStorageConflict, "sequence counter contended; retry")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate sequence")
}
