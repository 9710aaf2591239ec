package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"fieldops/internal/audit"
	id "fieldops/pkg/domain"
	dErrors "fieldops/pkg/domain-errors"
	"fieldops/pkg/platform/sentinel"
	"fieldops/pkg/platform/tx"
	"fieldops/pkg/requestcontext"
)

type EngineSuite struct {
	suite.Suite
	ctx     context.Context
	now     time.Time
	records *InMemoryStore
	history *audit.InMemoryStore
	trail   *audit.Trail
	engine  *Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.now = time.Date(2026, time.January, 12, 9, 30, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.records = NewInMemoryStore()
	s.history = audit.NewInMemoryStore()
	s.trail = audit.NewTrail(s.history)
	s.engine = NewEngine(s.records, s.trail, tx.NewInMemory())
}

func (s *EngineSuite) seed(kind Kind, status Status) *Record {
	rec, err := NewRecord(kind, "DL-N", s.now.Add(-time.Hour))
	s.Require().NoError(err)
	rec.Status = status
	s.Require().NoError(s.records.Create(context.Background(), rec))
	return rec
}

var (
	inspector  = audit.Officer{ID: "off-1", Role: string(RoleInspector)}
	supervisor = audit.Officer{ID: "off-2", Role: string(RoleSupervisor)}
	stateAdmin = audit.Officer{ID: "off-3", Role: string(RoleStateAdmin)}
)

func (s *EngineSuite) TestClosedInspectionIsImmutable() {
	rec := s.seed(KindInspection, InspectionClosed)

	for _, to := range []Status{InspectionDraft, InspectionInProgress, InspectionCompleted, InspectionRequiresFollowup, "archived"} {
		s.Run(string(to), func() {
			_, err := s.engine.Transition(s.ctx, KindInspection, rec.ID, to, TransitionContext{Actor: stateAdmin, Remarks: "reopen"})
			s.True(dErrors.HasCode(err, dErrors.CodeImmutableRecord))

			var detail *ImmutableRecordError
			s.Require().True(errors.As(err, &detail))
			s.Equal(InspectionClosed, detail.Status)
			s.NotEmpty(detail.Reason)
		})
	}

	entries, err := s.trail.ListFor(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *EngineSuite) TestDispatchedSampleMovesToLab() {
	dispatchedAt := s.now.Add(-48 * time.Hour)
	rec := s.seed(KindSample, SampleDispatched)
	rec.Milestones[MilestoneDispatched] = dispatchedAt
	s.Require().NoError(s.records.Update(context.Background(), rec, rec.Version))

	updated, err := s.engine.Transition(s.ctx, KindSample, rec.ID, SampleAtLab, TransitionContext{Actor: inspector})
	s.Require().NoError(err)

	s.Equal(SampleAtLab, updated.Status)
	got, ok := updated.MilestoneAt(MilestoneDispatched)
	s.Require().True(ok)
	s.Equal(dispatchedAt, got)
	got, ok = updated.MilestoneAt(MilestoneReceivedAtLab)
	s.Require().True(ok)
	s.Equal(s.now, got)
	s.False(s.engine.IsModifiable(updated))

	entries, err := s.trail.ListFor(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(audit.ActionStatusChanged, entries[0].Action)
	s.Equal(string(SampleDispatched), entries[0].FromStatus)
	s.Equal(string(SampleAtLab), entries[0].ToStatus)
}

func (s *EngineSuite) TestMilestoneNeverOverwritten() {
	rec := s.seed(KindComplaint, ComplaintResolved)
	firstResolved := s.now.Add(-72 * time.Hour)
	rec.Milestones[MilestoneResolved] = firstResolved
	s.Require().NoError(s.records.Update(context.Background(), rec, rec.Version))

	_, err := s.engine.Transition(s.ctx, KindComplaint, rec.ID, ComplaintInvestigating, TransitionContext{Actor: inspector, Remarks: "complainant disputes fix"})
	s.Require().NoError(err)
	updated, err := s.engine.Transition(s.ctx, KindComplaint, rec.ID, ComplaintResolved, TransitionContext{Actor: inspector, Remarks: "fixed again"})
	s.Require().NoError(err)

	got, _ := updated.MilestoneAt(MilestoneResolved)
	s.Equal(firstResolved, got)
}

func (s *EngineSuite) TestInvalidTransitionCarriesAllowedSet() {
	rec := s.seed(KindInspection, InspectionDraft)

	s.Run("no rule", func() {
		_, err := s.engine.Transition(s.ctx, KindInspection, rec.ID, InspectionCompleted, TransitionContext{Actor: inspector})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))

		var detail *InvalidTransitionError
		s.Require().True(errors.As(err, &detail))
		s.Equal([]Status{InspectionInProgress, InspectionClosed}, detail.Allowed)
	})

	s.Run("status outside alphabet", func() {
		_, err := s.engine.Transition(s.ctx, KindInspection, rec.ID, SampleAtLab, TransitionContext{Actor: inspector})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("same status", func() {
		_, err := s.engine.Transition(s.ctx, KindInspection, rec.ID, InspectionDraft, TransitionContext{Actor: inspector})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("disabled rule", func() {
		rules := DefaultRules()
		for i := range rules {
			if rules[i].Kind == KindInspection && rules[i].From == InspectionDraft && rules[i].To == InspectionInProgress {
				rules[i].Enabled = false
			}
		}
		policy, err := NewPolicy(rules, DefaultRoleLadder())
		s.Require().NoError(err)
		s.engine.SetPolicy(policy)
		defer s.engine.SetPolicy(DefaultPolicy())

		_, err = s.engine.Transition(s.ctx, KindInspection, rec.ID, InspectionInProgress, TransitionContext{Actor: inspector})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

func (s *EngineSuite) TestRemarksRequired() {
	rec := s.seed(KindComplaint, ComplaintSubmitted)

	_, err := s.engine.Transition(s.ctx, KindComplaint, rec.ID, ComplaintClosed, TransitionContext{Actor: supervisor, Remarks: "   "})
	s.True(dErrors.HasCode(err, dErrors.CodeRemarksRequired))

	updated, err := s.engine.Transition(s.ctx, KindComplaint, rec.ID, ComplaintClosed, TransitionContext{Actor: supervisor, Remarks: "duplicate of an open complaint"})
	s.Require().NoError(err)
	s.Equal(ComplaintClosed, updated.Status)
}

func (s *EngineSuite) TestRequiredRoleUsesLadder() {
	s.Run("junior officer refused", func() {
		rec := s.seed(KindInspection, InspectionCompleted)
		_, err := s.engine.Transition(s.ctx, KindInspection, rec.ID, InspectionClosed, TransitionContext{Actor: inspector})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("exact role accepted", func() {
		rec := s.seed(KindInspection, InspectionCompleted)
		_, err := s.engine.Transition(s.ctx, KindInspection, rec.ID, InspectionClosed, TransitionContext{Actor: supervisor})
		s.NoError(err)
	})

	s.Run("superior role accepted", func() {
		rec := s.seed(KindInspection, InspectionCompleted)
		_, err := s.engine.Transition(s.ctx, KindInspection, rec.ID, InspectionClosed, TransitionContext{Actor: stateAdmin})
		s.NoError(err)
	})

	s.Run("non officer refused", func() {
		rec := s.seed(KindInspection, InspectionCompleted)
		_, err := s.engine.Transition(s.ctx, KindInspection, rec.ID, InspectionClosed, TransitionContext{Actor: audit.System{Process: "auto-close"}})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *EngineSuite) TestNotFound() {
	_, err := s.engine.Transition(s.ctx, KindSample, id.NewRecordID(), SampleCollected, TransitionContext{Actor: inspector})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	s.Run("kind mismatch", func() {
		rec := s.seed(KindSample, SamplePending)
		_, err := s.engine.Transition(s.ctx, KindComplaint, rec.ID, ComplaintAssigned, TransitionContext{Actor: supervisor})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

type failingHistory struct{}

func (failingHistory) Append(context.Context, audit.Entry) (*audit.Entry, error) {
	return nil, dErrors.New(dErrors.CodeInternal, "disk full")
}

func (s *EngineSuite) TestHistoryFailureRollsBackStatus() {
	engine := NewEngine(s.records, failingHistory{}, tx.NewInMemory())
	rec := s.seed(KindSample, SamplePending)

	_, err := engine.Transition(s.ctx, KindSample, rec.ID, SampleCollected, TransitionContext{Actor: inspector})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	stored, err := s.records.FindByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(SamplePending, stored.Status)
	s.Equal(rec.Version, stored.Version)
	_, stamped := stored.MilestoneAt(MilestoneCollected)
	s.False(stamped)
}

func (s *EngineSuite) TestStoreUpdateIsCompareAndSwap() {
	rec := s.seed(KindSample, SamplePending)
	stale := rec.Clone()
	stale.applyTransition(SampleCollected, s.now)

	s.Require().NoError(s.records.Update(s.ctx, stale, rec.Version))
	err := s.records.Update(s.ctx, stale, rec.Version)
	s.ErrorIs(err, sentinel.ErrConflict)
	s.True(dErrors.IsRetryable(TranslateStoreErr(err, "missing", "failed")))

	_, err = s.engine.Transition(s.ctx, KindSample, rec.ID, SampleDispatched, TransitionContext{Actor: inspector})
	s.NoError(err)
}

func (s *EngineSuite) TestMissingActor() {
	rec := s.seed(KindSample, SamplePending)
	_, err := s.engine.Transition(s.ctx, KindSample, rec.ID, SampleCollected, TransitionContext{})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *EngineSuite) TestSetPolicyAppliesToNextTransition() {
	rules := append(DefaultRules(), Rule{Kind: KindSample, From: SamplePending, To: SampleDispatched, Enabled: true, RequiredRole: RoleDistrictAdmin})
	policy, err := NewPolicy(rules, DefaultRoleLadder())
	s.Require().NoError(err)

	rec := s.seed(KindSample, SamplePending)
	_, err = s.engine.Transition(s.ctx, KindSample, rec.ID, SampleDispatched, TransitionContext{Actor: stateAdmin})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))

	s.engine.SetPolicy(policy)
	s.Equal([]Status{SampleCollected, SampleDispatched}, s.engine.Allowed(KindSample, SamplePending))
	updated, err := s.engine.Transition(s.ctx, KindSample, rec.ID, SampleDispatched, TransitionContext{Actor: stateAdmin})
	s.Require().NoError(err)
	s.Equal(SampleDispatched, updated.Status)
}
