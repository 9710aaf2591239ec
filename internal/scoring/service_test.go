package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"fieldops/internal/audit"
	"fieldops/internal/workflow"
	id "fieldops/pkg/domain"
	dErrors "fieldops/pkg/domain-errors"
	"fieldops/pkg/platform/tx"
	"fieldops/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctx       context.Context
	now       time.Time
	records   *workflow.InMemoryStore
	snapshots *InMemoryStore
	trail     *audit.Trail
	catalog   *Catalog
	service   *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

var officer = audit.Officer{ID: "off-9", Role: "inspector"}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2026, time.March, 3, 15, 4, 5, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.records = workflow.NewInMemoryStore()
	s.snapshots = NewInMemoryStore()
	s.trail = audit.NewTrail(audit.NewInMemoryStore())

	catalog, err := NewCatalog([]Indicator{
		indicator("cold-chain", "storage", RiskHigh, 3),
		indicator("labels", "storage", RiskMedium, 2),
		indicator("register", "records", RiskLow, 1),
	}, DefaultConfig())
	s.Require().NoError(err)
	s.catalog = catalog
	s.service = NewService(s.records, s.snapshots, s.trail, s.catalog, tx.NewInMemory())
}

func (s *ServiceSuite) inspection(status workflow.Status) *workflow.Record {
	rec, err := workflow.NewRecord(workflow.KindInspection, "DL-N", s.now)
	s.Require().NoError(err)
	rec.Status = status
	s.Require().NoError(s.records.Create(context.Background(), rec))
	return rec
}

func (s *ServiceSuite) responses() []IndicatorResponse {
	return []IndicatorResponse{
		answer("cold-chain", ResponseNo),
		answer("labels", ResponseYes),
		answer("register", ResponseNA),
	}
}

func (s *ServiceSuite) TestSubmitPersistsSnapshotAndHistory() {
	rec := s.inspection(workflow.InspectionInProgress)

	snap, err := s.service.Submit(s.ctx, rec.ID, s.responses(), workflow.TransitionContext{Actor: officer})
	s.Require().NoError(err)

	s.Equal(3, snap.Result.TotalScore)
	s.Equal(5, snap.Result.MaxScore)
	s.Equal(ClassificationLow, snap.Result.Classification)
	s.Equal(DefaultConfig(), snap.Config)
	s.Len(snap.Digest, 64)
	s.Equal(s.now, snap.SubmittedAt)

	ok, err := snap.Verify()
	s.Require().NoError(err)
	s.True(ok)

	stored, err := s.service.Snapshot(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(snap.Digest, stored.Digest)

	entries, err := s.trail.ListFor(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(audit.ActionScoreSubmitted, entries[0].Action)
	s.Contains(entries[0].Remarks, "classified low")
}

func (s *ServiceSuite) TestSecondSubmissionIsRefused() {
	rec := s.inspection(workflow.InspectionCompleted)
	_, err := s.service.Submit(s.ctx, rec.ID, s.responses(), workflow.TransitionContext{Actor: officer})
	s.Require().NoError(err)

	_, err = s.service.Submit(s.ctx, rec.ID, s.responses(), workflow.TransitionContext{Actor: officer})
	s.True(dErrors.HasCode(err, dErrors.CodeImmutableRecord))
}

func (s *ServiceSuite) TestClosedInspectionRefused() {
	rec := s.inspection(workflow.InspectionClosed)
	_, err := s.service.Submit(s.ctx, rec.ID, s.responses(), workflow.TransitionContext{Actor: officer})
	s.True(dErrors.HasCode(err, dErrors.CodeImmutableRecord))

	_, err = s.service.Snapshot(s.ctx, rec.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestResponseValidation() {
	rec := s.inspection(workflow.InspectionInProgress)
	cases := map[string][]IndicatorResponse{
		"unknown indicator": {answer("fire-exit", ResponseNo)},
		"duplicate answer":  {answer("labels", ResponseNo), answer("labels", ResponseYes)},
		"invalid response":  {answer("labels", "maybe")},
	}
	for name, responses := range cases {
		s.Run(name, func() {
			_, err := s.service.Submit(s.ctx, rec.ID, responses, workflow.TransitionContext{Actor: officer})
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func (s *ServiceSuite) TestNotAnInspection() {
	sample, err := workflow.NewRecord(workflow.KindSample, "DL-N", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.records.Create(context.Background(), sample))

	_, err = s.service.Submit(s.ctx, sample.ID, s.responses(), workflow.TransitionContext{Actor: officer})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.service.Submit(s.ctx, id.NewRecordID(), s.responses(), workflow.TransitionContext{Actor: officer})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestCatalogReplaceAppliesToNextSubmission() {
	s.Require().NoError(s.catalog.Replace(s.catalog.Indicators(), Config{LowRiskMaxScore: 1, MediumRiskMaxScore: 2, HighRiskIndicatorThreshold: 9}))

	rec := s.inspection(workflow.InspectionInProgress)
	snap, err := s.service.Submit(s.ctx, rec.ID, s.responses(), workflow.TransitionContext{Actor: officer})
	s.Require().NoError(err)
	s.Equal(ClassificationHigh, snap.Result.Classification)
	s.Equal(2, snap.Config.MediumRiskMaxScore)

	err = s.catalog.Replace(s.catalog.Indicators(), Config{LowRiskMaxScore: -1})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal(2, s.catalog.Config().MediumRiskMaxScore)
}

func (s *ServiceSuite) TestTamperedSnapshotFailsVerify() {
	rec := s.inspection(workflow.InspectionInProgress)
	snap, err := s.service.Submit(s.ctx, rec.ID, s.responses(), workflow.TransitionContext{Actor: officer})
	s.Require().NoError(err)

	snap.Config.LowRiskMaxScore = 0
	ok, err := snap.Verify()
	s.Require().NoError(err)
	s.False(ok)
}
