package records

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"fieldops/internal/audit"
	"fieldops/internal/jurisdiction"
	"fieldops/internal/sequence"
	"fieldops/internal/workflow"
	id "fieldops/pkg/domain"
	dErrors "fieldops/pkg/domain-errors"
	"fieldops/pkg/platform/tx"
	"fieldops/pkg/requestcontext"
)

// FlowSuite wires the real in-memory components together.
type FlowSuite struct {
	suite.Suite
	ctx     context.Context
	records *workflow.InMemoryStore
	trail   *audit.Trail
	service *Service
}

func TestFlowSuite(t *testing.T) {
	suite.Run(t, new(FlowSuite))
}

var (
	northInspector  = audit.Officer{ID: "off-n", Role: string(workflow.RoleInspector), Jurisdictions: []id.JurisdictionID{"DL-N"}}
	northSupervisor = audit.Officer{ID: "off-ns", Role: string(workflow.RoleSupervisor), Jurisdictions: []id.JurisdictionID{"DL-N"}}
	southInspector  = audit.Officer{ID: "off-s", Role: string(workflow.RoleInspector), Jurisdictions: []id.JurisdictionID{"DL-S"}}
	complainant     = audit.Complainant{Reference: "citizen-42"}
)

func (s *FlowSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, time.January, 9, 10, 0, 0, 0, time.UTC))

	graph, err := jurisdiction.NewInMemoryGraph([]jurisdiction.Node{
		{ID: "DL", Abbreviation: "DL"},
		{ID: "DL-N", ParentID: "DL", Abbreviation: "DEL"},
		{ID: "DL-N-1", ParentID: "DL-N"},
		{ID: "DL-S", ParentID: "DL", Abbreviation: "SDL"},
	})
	s.Require().NoError(err)

	runner := tx.NewInMemory()
	s.records = workflow.NewInMemoryStore()
	s.trail = audit.NewTrail(audit.NewInMemoryStore())
	engine := workflow.NewEngine(s.records, s.trail, runner)
	allocator := sequence.NewAllocator(sequence.NewInMemoryStore(), graph, runner)
	resolver := jurisdiction.NewResolver(graph)
	s.service = New(s.records, engine, allocator, resolver, s.trail, runner)
}

func (s *FlowSuite) TestComplaintLifecycle() {
	rec, err := s.service.Create(s.ctx, CreateRequest{
		Kind: workflow.KindComplaint, JurisdictionID: "DL-N-1", Actor: complainant, Remarks: "stale food sold",
	})
	s.Require().NoError(err)
	s.Equal("GEN0001012026", rec.Code)

	_, err = s.service.Transition(s.ctx, rec.ID, workflow.ComplaintAssigned, workflow.TransitionContext{Actor: northSupervisor})
	s.Require().NoError(err)
	_, err = s.service.Assign(s.ctx, rec.ID, "off-n", workflow.TransitionContext{Actor: northSupervisor})
	s.Require().NoError(err)
	_, err = s.service.Transition(s.ctx, rec.ID, workflow.ComplaintInvestigating, workflow.TransitionContext{Actor: northInspector})
	s.Require().NoError(err)
	_, err = s.service.Transition(s.ctx, rec.ID, workflow.ComplaintResolved, workflow.TransitionContext{Actor: northInspector, Remarks: "vendor fined"})
	s.Require().NoError(err)
	closed, err := s.service.Transition(s.ctx, rec.ID, workflow.ComplaintClosed, workflow.TransitionContext{Actor: northSupervisor})
	s.Require().NoError(err)
	s.False(workflow.IsModifiable(closed))

	s.Run("locked record refuses assignment", func() {
		_, err := s.service.Assign(s.ctx, rec.ID, "off-x", workflow.TransitionContext{Actor: northSupervisor})
		s.True(dErrors.HasCode(err, dErrors.CodeImmutableRecord))
	})

	s.Run("locked record still accepts evidence", func() {
		entry, err := s.service.AddEvidence(s.ctx, rec.ID, "receipt of fine", workflow.TransitionContext{Actor: northInspector})
		s.Require().NoError(err)
		s.Equal(audit.ActionEvidenceAdded, entry.Action)
	})

	s.Run("complainant reads own history", func() {
		entries, err := s.service.History(s.ctx, rec.ID, complainant)
		s.Require().NoError(err)
		s.Len(entries, 7)
		s.Equal(audit.ActionCreated, entries[len(entries)-1].Action)
	})

	s.Run("other complainant refused", func() {
		_, err := s.service.History(s.ctx, rec.ID, audit.Complainant{Reference: "citizen-7"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("public tracking by code", func() {
		tracked, entries, err := s.service.Track(s.ctx, " gen0001012026 ")
		s.Require().NoError(err)
		s.Equal(rec.ID, tracked.ID)
		s.NotEmpty(entries)
	})
}

func (s *FlowSuite) TestOfficerScope() {
	rec, err := s.service.Create(s.ctx, CreateRequest{Kind: workflow.KindInspection, JurisdictionID: "DL-N-1", Actor: northInspector})
	s.Require().NoError(err)

	_, err = s.service.Transition(s.ctx, rec.ID, workflow.InspectionInProgress, workflow.TransitionContext{Actor: southInspector})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = s.service.History(s.ctx, rec.ID, southInspector)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = s.service.Create(s.ctx, CreateRequest{Kind: workflow.KindInspection, JurisdictionID: "DL", Actor: northInspector})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *FlowSuite) TestComplaintCodesAreSequentialPerScope() {
	var codes []string
	for range 3 {
		rec, err := s.service.Create(s.ctx, CreateRequest{Kind: workflow.KindComplaint, JurisdictionID: "DL-N", Actor: complainant})
		s.Require().NoError(err)
		codes = append(codes, rec.Code)
	}
	s.Equal([]string{"DEL0001012026", "DEL0002012026", "DEL0003012026"}, codes)
}

func (s *FlowSuite) TestUnknownJurisdiction() {
	_, err := s.service.Create(s.ctx, CreateRequest{Kind: workflow.KindComplaint, JurisdictionID: "MH", Actor: complainant})
	s.True(dErrors.HasCode(err, dErrors.CodeUnknownScope))
}
