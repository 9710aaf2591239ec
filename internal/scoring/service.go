package scoring

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"fieldops/internal/audit"
	"fieldops/internal/platform/metrics"
	"fieldops/internal/workflow"
	id "fieldops/pkg/domain"
	dErrors "fieldops/pkg/domain-errors"
	"fieldops/pkg/platform/sentinel"
	txcontext "fieldops/pkg/platform/tx"
	"fieldops/pkg/requestcontext"
)

// RecordLocker loads and locks an inspection for the rest of the unit of work.
type RecordLocker interface {
	LockByID(ctx context.Context, recordID id.RecordID) (*workflow.Record, error)
}

// Service submits an inspection's responses: it scores them against the
// catalog in force and persists the snapshot and its history entry together.
type Service struct {
	records   RecordLocker
	snapshots SnapshotStore
	history   workflow.HistoryAppender
	catalog   *Catalog
	tx        txcontext.Runner
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

type Option func(s *Service)

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

func NewService(records RecordLocker, snapshots SnapshotStore, history workflow.HistoryAppender, catalog *Catalog, runner txcontext.Runner, opts ...Option) *Service {
	s := &Service{
		records:   records,
		snapshots: snapshots,
		history:   history,
		catalog:   catalog,
		tx:        runner,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit scores responses for the inspection. Responses are accepted once;
// a second submission fails with ImmutableRecord.
func (s *Service) Submit(ctx context.Context, inspectionID id.RecordID, responses []IndicatorResponse, tc workflow.TransitionContext) (*Snapshot, error) {
	if tc.Actor == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "submission requires an actor")
	}
	indicators := s.catalog.Indicators()
	cfg := s.catalog.Config()
	if err := validateResponses(responses, indicators); err != nil {
		return nil, err
	}

	var snapshot *Snapshot
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		rec, err := s.records.LockByID(ctx, inspectionID)
		if err != nil {
			return workflow.TranslateStoreErr(err, "inspection not found", "failed to load inspection")
		}
		if rec.Kind != workflow.KindInspection {
			return dErrors.Newf(dErrors.CodeNotFound, "no inspection with id %s", inspectionID)
		}
		if !workflow.IsModifiable(rec) {
			return workflow.ErrImmutable(rec, "inspection is closed; responses can no longer be submitted")
		}
		if _, err := s.snapshots.FindByInspection(ctx, inspectionID); err == nil {
			return workflow.ErrImmutable(rec, "responses were already submitted")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return workflow.TranslateStoreErr(err, "snapshot not found", "failed to check for prior submission")
		}

		snap, err := s.build(ctx, inspectionID, responses, indicators, cfg, tc.Actor)
		if err != nil {
			return err
		}
		if err := s.snapshots.Create(ctx, snap); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return workflow.ErrImmutable(rec, "responses were already submitted")
			}
			return workflow.TranslateStoreErr(err, "inspection not found", "failed to store score snapshot")
		}
		if _, err := s.history.Append(ctx, audit.Entry{
			RecordID:   inspectionID,
			Action:     audit.ActionScoreSubmitted,
			FromStatus: string(rec.Status),
			ToStatus:   string(rec.Status),
			Remarks:    summary(snap.Result),
			Actor:      tc.Actor,
			OccurredAt: snap.SubmittedAt,
			Geo:        tc.Geo,
		}); err != nil {
			return err
		}
		snapshot = snap
		return nil
	})
	if err != nil {
		return nil, workflow.TranslateStoreErr(err, "inspection not found", "score submission failed")
	}

	s.metrics.IncScore(string(snapshot.Result.Classification))
	s.metrics.IncHistoryAppend(string(audit.ActionScoreSubmitted))
	s.logger.Info().
		Str("record_id", inspectionID.String()).
		Int("total_score", snapshot.Result.TotalScore).
		Str("classification", string(snapshot.Result.Classification)).
		Str("digest", snapshot.Digest).
		Msg("inspection scored")
	return snapshot, nil
}

// Snapshot returns the stored submission for an inspection.
func (s *Service) Snapshot(ctx context.Context, inspectionID id.RecordID) (*Snapshot, error) {
	snap, err := s.snapshots.FindByInspection(ctx, inspectionID)
	if err != nil {
		return nil, workflow.TranslateStoreErr(err, "no score submitted for inspection", "failed to load score snapshot")
	}
	return snap, nil
}

func (s *Service) build(ctx context.Context, inspectionID id.RecordID, responses []IndicatorResponse, indicators []Indicator, cfg Config, actor audit.Actor) (*Snapshot, error) {
	digest, err := Digest(responses, indicators, cfg)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to digest scoring input")
	}
	return &Snapshot{
		ID:           id.NewSnapshotID(),
		InspectionID: inspectionID,
		Responses:    append([]IndicatorResponse(nil), responses...),
		Indicators:   indicators,
		Config:       cfg,
		Result:       Score(responses, indicators, cfg),
		Digest:       digest,
		ActorKind:    string(actor.Kind()),
		ActorID:      actor.ActorID(),
		SubmittedAt:  requestcontext.Now(ctx).UTC(),
	}, nil
}

func validateResponses(responses []IndicatorResponse, indicators []Indicator) error {
	known := make(map[id.IndicatorID]struct{}, len(indicators))
	for _, ind := range indicators {
		known[ind.ID] = struct{}{}
	}
	seen := make(map[id.IndicatorID]struct{}, len(responses))
	for _, r := range responses {
		if _, ok := known[r.IndicatorID]; !ok {
			return dErrors.Newf(dErrors.CodeValidation, "unknown indicator %q", r.IndicatorID)
		}
		if _, dup := seen[r.IndicatorID]; dup {
			return dErrors.Newf(dErrors.CodeValidation, "indicator %s answered twice", r.IndicatorID)
		}
		seen[r.IndicatorID] = struct{}{}
		if !r.Response.IsValid() {
			return dErrors.Newf(dErrors.CodeValidation, "indicator %s has invalid response %q", r.IndicatorID, r.Response)
		}
	}
	return nil
}

func summary(r Result) string {
	return fmt.Sprintf("score %d/%d, %d high-risk non-compliant, classified %s",
		r.TotalScore, r.MaxScore, r.HighRiskNonCompliantCount, r.Classification)
}
