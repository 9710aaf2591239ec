package records

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"fieldops/internal/audit"
	"fieldops/internal/platform/metrics"
	"fieldops/internal/workflow"
	id "fieldops/pkg/domain"
	dErrors "fieldops/pkg/domain-errors"
	"fieldops/pkg/platform/sentinel"
	txcontext "fieldops/pkg/platform/tx"
	"fieldops/pkg/requestcontext"
)

const (
	defaultMaxRetries     = 4
	defaultInitialBackoff = 20 * time.Millisecond
	defaultMaxBackoff     = 500 * time.Millisecond
)

// CreateRequest opens a new record.
type CreateRequest struct {
	Kind           workflow.Kind
	JurisdictionID id.JurisdictionID
	Actor          audit.Actor
	Remarks        string
	Geo            *audit.GeoPoint
}

// Service orchestrates record lifecycle operations for the surrounding CRUD layer.
type Service struct {
	records   workflow.Store
	engine    Transitioner
	allocator CodeAllocator
	authority AuthorityChecker
	trail     HistoryTrail
	tx        txcontext.Runner

	mintCodes      map[workflow.Kind]bool
	maxRetries     uint64
	initialBackoff time.Duration
	maxBackoff     time.Duration

	tracer  trace.Tracer
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

type Option func(s *Service)

// WithCodeMinting sets which kinds receive a tracking code on creation.
func WithCodeMinting(kinds ...workflow.Kind) Option {
	return func(s *Service) {
		s.mintCodes = make(map[workflow.Kind]bool, len(kinds))
		for _, k := range kinds {
			s.mintCodes[k] = true
		}
	}
}

// WithRetry bounds the StorageConflict retry loop.
func WithRetry(maxRetries uint64, initial, maxInterval time.Duration) Option {
	return func(s *Service) {
		s.maxRetries = maxRetries
		if initial > 0 {
			s.initialBackoff = initial
		}
		if maxInterval > 0 {
			s.maxBackoff = maxInterval
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(records workflow.Store, engine Transitioner, allocator CodeAllocator, authority AuthorityChecker, trail HistoryTrail, runner txcontext.Runner, opts ...Option) *Service {
	s := &Service{
		records:        records,
		engine:         engine,
		allocator:      allocator,
		authority:      authority,
		trail:          trail,
		tx:             runner,
		mintCodes:      map[workflow.Kind]bool{workflow.KindComplaint: true},
		maxRetries:     defaultMaxRetries,
		initialBackoff: defaultInitialBackoff,
		maxBackoff:     defaultMaxBackoff,
		tracer:         otel.Tracer("fieldops/internal/records"),
		logger:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create opens a record in its kind's initial status, minting a tracking
// code for kinds configured to carry one.
func (s *Service) Create(ctx context.Context, req CreateRequest) (_ *workflow.Record, err error) {
	ctx, span := s.tracer.Start(ctx, "records.Create", trace.WithAttributes(
		attribute.String("record.kind", string(req.Kind)),
		attribute.String("jurisdiction.id", string(req.JurisdictionID)),
	))
	defer func() { endSpan(span, err) }()

	if !req.Kind.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown record kind %q", req.Kind)
	}
	if req.Actor == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "create requires an actor")
	}
	if err := s.authorizeCreate(ctx, req); err != nil {
		return nil, err
	}

	var created *workflow.Record
	err = s.retry(ctx, func() error {
		return s.tx.RunInTx(ctx, func(ctx context.Context) error {
			now := requestcontext.Now(ctx)
			rec, err := workflow.NewRecord(req.Kind, req.JurisdictionID, now)
			if err != nil {
				return err
			}
			if s.mintCodes[req.Kind] {
				alloc, err := s.allocator.Allocate(ctx, req.JurisdictionID, now)
				if err != nil {
					return err
				}
				rec.Code = alloc.Code
			}
			if err := s.records.Create(ctx, rec); err != nil {
				if errors.Is(err, sentinel.ErrAlreadyUsed) {
					return dErrors.Wrap(err, dErrors.CodeStorageConflict, "tracking code already issued")
				}
				return workflow.TranslateStoreErr(err, "record not found", "failed to create record")
			}
			if _, err := s.trail.Append(ctx, audit.Entry{
				RecordID:   rec.ID,
				Action:     audit.ActionCreated,
				ToStatus:   string(rec.Status),
				Remarks:    req.Remarks,
				Actor:      req.Actor,
				OccurredAt: rec.CreatedAt,
				Geo:        req.Geo,
			}); err != nil {
				return err
			}
			created = rec
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("record.id", created.ID.String()))
	s.metrics.IncHistoryAppend(string(audit.ActionCreated))
	s.logger.Info().
		Str("request_id", requestcontext.RequestID(ctx)).
		Str("record_id", created.ID.String()).
		Str("kind", string(created.Kind)).
		Str("code", created.Code).
		Str("jurisdiction_id", string(created.JurisdictionID)).
		Msg("record created")
	return created, nil
}

// Transition authorizes the caller against the record's jurisdiction and
// hands the status change to the workflow engine.
func (s *Service) Transition(ctx context.Context, recordID id.RecordID, to workflow.Status, tc workflow.TransitionContext) (_ *workflow.Record, err error) {
	ctx, span := s.tracer.Start(ctx, "records.Transition", trace.WithAttributes(
		attribute.String("record.id", recordID.String()),
		attribute.String("record.to", string(to)),
	))
	defer func() { endSpan(span, err) }()

	rec, err := s.load(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeWrite(ctx, tc.Actor, rec); err != nil {
		return nil, err
	}

	var updated *workflow.Record
	err = s.retry(ctx, func() error {
		var err error
		updated, err = s.engine.Transition(ctx, rec.Kind, recordID, to, tc)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Assign sets the responsible officer. Locked records refuse the edit.
func (s *Service) Assign(ctx context.Context, recordID id.RecordID, officerID id.OfficerID, tc workflow.TransitionContext) (_ *workflow.Record, err error) {
	ctx, span := s.tracer.Start(ctx, "records.Assign", trace.WithAttributes(
		attribute.String("record.id", recordID.String()),
		attribute.String("officer.id", string(officerID)),
	))
	defer func() { endSpan(span, err) }()

	officerID = id.OfficerID(strings.TrimSpace(string(officerID)))
	if officerID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "officer id is required")
	}
	if _, ok := audit.AsOfficer(tc.Actor); !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only officers may assign records")
	}
	rec, err := s.load(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeWrite(ctx, tc.Actor, rec); err != nil {
		return nil, err
	}

	var updated *workflow.Record
	err = s.retry(ctx, func() error {
		return s.tx.RunInTx(ctx, func(ctx context.Context) error {
			rec, err := s.records.LockByID(ctx, recordID)
			if err != nil {
				return workflow.TranslateStoreErr(err, "record not found", "failed to load record")
			}
			if !workflow.IsModifiable(rec) {
				return workflow.ErrImmutable(rec, "record is locked; assignment can no longer change")
			}
			expected := rec.Version
			rec.ApplyAssignment(officerID, requestcontext.Now(ctx))
			if err := s.records.Update(ctx, rec, expected); err != nil {
				return workflow.TranslateStoreErr(err, "record not found", "failed to update record")
			}
			remarks := tc.Remarks
			if strings.TrimSpace(remarks) == "" {
				remarks = "assigned to " + string(officerID)
			}
			if _, err := s.trail.Append(ctx, audit.Entry{
				RecordID:   rec.ID,
				Action:     audit.ActionAssigned,
				Remarks:    remarks,
				Actor:      tc.Actor,
				OccurredAt: rec.UpdatedAt,
				Geo:        tc.Geo,
			}); err != nil {
				return err
			}
			updated = rec
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncHistoryAppend(string(audit.ActionAssigned))
	return updated, nil
}

// AddEvidence records a note about the record. It only appends history, so
// it is accepted in locked statuses too.
func (s *Service) AddEvidence(ctx context.Context, recordID id.RecordID, note string, tc workflow.TransitionContext) (_ *audit.Entry, err error) {
	ctx, span := s.tracer.Start(ctx, "records.AddEvidence", trace.WithAttributes(
		attribute.String("record.id", recordID.String()),
	))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(note) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "evidence note is required")
	}
	rec, err := s.load(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeWrite(ctx, tc.Actor, rec); err != nil {
		return nil, err
	}
	entry, err := s.trail.Append(ctx, audit.Entry{
		RecordID:   rec.ID,
		Action:     audit.ActionEvidenceAdded,
		Remarks:    note,
		Actor:      tc.Actor,
		OccurredAt: requestcontext.Now(ctx),
		Geo:        tc.Geo,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncHistoryAppend(string(audit.ActionEvidenceAdded))
	return entry, nil
}

// History returns the record's entries newest first.
func (s *Service) History(ctx context.Context, recordID id.RecordID, actor audit.Actor) (_ []audit.Entry, err error) {
	ctx, span := s.tracer.Start(ctx, "records.History", trace.WithAttributes(
		attribute.String("record.id", recordID.String()),
	))
	defer func() { endSpan(span, err) }()

	rec, err := s.load(ctx, recordID)
	if err != nil {
		return nil, err
	}
	entries, err := s.trail.ListFor(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(ctx, actor, rec, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Track is the public complaint lookup: anyone holding the tracking code
// sees the complaint's status and history.
func (s *Service) Track(ctx context.Context, code string) (_ *workflow.Record, _ []audit.Entry, err error) {
	ctx, span := s.tracer.Start(ctx, "records.Track")
	defer func() { endSpan(span, err) }()

	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "tracking code is required")
	}
	rec, err := s.records.FindByCode(ctx, code)
	if err != nil {
		return nil, nil, workflow.TranslateStoreErr(err, "no complaint with that tracking code", "failed to look up tracking code")
	}
	if rec.Kind != workflow.KindComplaint {
		return nil, nil, dErrors.New(dErrors.CodeNotFound, "no complaint with that tracking code")
	}
	entries, err := s.trail.ListFor(ctx, rec.ID)
	if err != nil {
		return nil, nil, err
	}
	return rec, entries, nil
}

func (s *Service) load(ctx context.Context, recordID id.RecordID) (*workflow.Record, error) {
	rec, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		return nil, workflow.TranslateStoreErr(err, "record not found", "failed to load record")
	}
	return rec, nil
}

// retry runs op again on StorageConflict with capped exponential backoff.
// Every other error is returned immediately.
func (s *Service) retry(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.initialBackoff
	policy.MaxInterval = s.maxBackoff
	policy.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(policy, s.maxRetries), ctx)
	return backoff.RetryNotify(func() error {
		err := op()
		if err == nil || dErrors.IsRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, b, func(err error, wait time.Duration) {
		s.metrics.IncStorageRetry()
		s.logger.Warn().Err(err).
			Str("request_id", requestcontext.RequestID(ctx)).
			Dur("wait", wait).
			Msg("storage conflict; retrying")
	})
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	span.End()
}
