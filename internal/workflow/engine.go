package workflow

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"fieldops/internal/audit"
	"fieldops/internal/platform/metrics"
	id "fieldops/pkg/domain"
	dErrors "fieldops/pkg/domain-errors"
	"fieldops/pkg/platform/sentinel"
	txcontext "fieldops/pkg/platform/tx"
	"fieldops/pkg/requestcontext"
)

// TransitionContext is the caller-supplied context of a lifecycle operation.
type TransitionContext struct {
	Actor   audit.Actor
	Remarks string
	Geo     *audit.GeoPoint
}

// HistoryAppender is the slice of the audit trail the engine writes to.
type HistoryAppender interface {
	Append(ctx context.Context, entry audit.Entry) (*audit.Entry, error)
}

// Engine guards every status change of every record kind.
type Engine struct {
	records Store
	history HistoryAppender
	tx      txcontext.Runner
	policy  atomic.Pointer[Policy]
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

type Option func(e *Engine)

func WithPolicy(p *Policy) Option {
	return func(e *Engine) {
		if p != nil {
			e.policy.Store(p)
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine builds an engine on the default policy unless WithPolicy is given.
func NewEngine(records Store, history HistoryAppender, runner txcontext.Runner, opts ...Option) *Engine {
	e := &Engine{records: records, history: history, tx: runner, logger: zerolog.Nop()}
	e.policy.Store(DefaultPolicy())
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the policy currently in force.
func (e *Engine) Policy() *Policy {
	return e.policy.Load()
}

// SetPolicy swaps the rule table and role ladder. Transitions already
// running finish against the policy they started with.
func (e *Engine) SetPolicy(p *Policy) {
	if p == nil {
		return
	}
	e.policy.Store(p)
	e.logger.Info().Int("rules", len(p.Rules.Rules())).Msg("workflow policy replaced")
}

// IsModifiable reports whether non-status fields of r may still change.
func (e *Engine) IsModifiable(r *Record) bool {
	return IsModifiable(r)
}

// Allowed lists the statuses reachable from from under the current policy.
func (e *Engine) Allowed(kind Kind, from Status) []Status {
	return e.Policy().Rules.Allowed(kind, from)
}

// Check validates moving r to to without touching storage.
func (e *Engine) Check(r *Record, to Status, tc TransitionContext) (Rule, error) {
	return e.Policy().check(r, to, tc)
}

func (p *Policy) check(r *Record, to Status, tc TransitionContext) (Rule, error) {
	if r.Kind.IsSealed(r.Status) {
		return Rule{}, immutableRecord(r.Kind, r.Status, "status is final; no further transitions are accepted")
	}
	if !r.Kind.HasStatus(to) || to == r.Status {
		return Rule{}, invalidTransition(r.Kind, r.Status, to, p.Rules.Allowed(r.Kind, r.Status))
	}
	rule, ok := p.Rules.Lookup(r.Kind, r.Status, to)
	if !ok {
		return Rule{}, invalidTransition(r.Kind, r.Status, to, p.Rules.Allowed(r.Kind, r.Status))
	}
	if rule.RequiresRemarks && strings.TrimSpace(tc.Remarks) == "" {
		return Rule{}, dErrors.Newf(dErrors.CodeRemarksRequired, "remarks are required to move %s from %s to %s", r.Kind, r.Status, to)
	}
	if rule.RequiredRole != "" {
		officer, isOfficer := audit.AsOfficer(tc.Actor)
		if !isOfficer || !p.Roles.Satisfies(Role(officer.Role), rule.RequiredRole) {
			return Rule{}, dErrors.Newf(dErrors.CodeUnauthorized, "moving %s from %s to %s requires role %s", r.Kind, r.Status, to, rule.RequiredRole)
		}
	}
	return rule, nil
}

// Transition moves the record to status to. The status write and its
// history entry commit together or not at all.
func (e *Engine) Transition(ctx context.Context, kind Kind, recordID id.RecordID, to Status, tc TransitionContext) (*Record, error) {
	if tc.Actor == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "transition requires an actor")
	}
	policy := e.Policy()

	var updated *Record
	err := e.tx.RunInTx(ctx, func(ctx context.Context) error {
		rec, err := e.records.LockByID(ctx, recordID)
		if err != nil {
			return TranslateStoreErr(err, "record not found", "failed to load record")
		}
		if rec.Kind != kind {
			return dErrors.Newf(dErrors.CodeNotFound, "no %s with id %s", kind, recordID)
		}
		if _, err := policy.check(rec, to, tc); err != nil {
			return err
		}

		from := rec.Status
		expected := rec.Version
		rec.applyTransition(to, requestcontext.Now(ctx))
		if err := e.records.Update(ctx, rec, expected); err != nil {
			return TranslateStoreErr(err, "record not found", "failed to update record")
		}
		if _, err := e.history.Append(ctx, audit.Entry{
			RecordID:   rec.ID,
			Action:     audit.ActionStatusChanged,
			FromStatus: string(from),
			ToStatus:   string(to),
			Remarks:    tc.Remarks,
			Actor:      tc.Actor,
			OccurredAt: rec.UpdatedAt,
			Geo:        tc.Geo,
		}); err != nil {
			return err
		}
		updated = rec
		return nil
	})
	if err != nil {
		err = TranslateStoreErr(err, "record not found", "transition failed")
		e.metrics.IncTransition(string(kind), outcomeOf(err))
		e.logger.Debug().Err(err).
			Str("record_id", recordID.String()).
			Str("kind", string(kind)).
			Str("to", string(to)).
			Msg("transition refused")
		return nil, err
	}

	e.metrics.IncTransition(string(kind), "ok")
	e.metrics.IncHistoryAppend(string(audit.ActionStatusChanged))
	e.logger.Info().
		Str("record_id", recordID.String()).
		Str("kind", string(kind)).
		Str("status", string(updated.Status)).
		Str("actor_kind", string(tc.Actor.Kind())).
		Msg("record transitioned")
	return updated, nil
}

// TranslateStoreErr maps store sentinels onto domain codes. Errors that
// already carry a code are returned unchanged.
func TranslateStoreErr(err error, notFound, internal string) error {
	if dErrors.CodeOf(err) != "" {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, notFound)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeStorageConflict, "concurrent update; retry")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, internal)
	}
}

func outcomeOf(err error) string {
	if code := dErrors.CodeOf(err); code != "" {
		return string(code)
	}
	return string(dErrors.CodeInternal)
}
