package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	"fieldops/internal/audit"
	"fieldops/internal/jurisdiction"
	"fieldops/internal/platform/config"
	"fieldops/internal/platform/logger"
	"fieldops/internal/platform/metrics"
	"fieldops/internal/records"
	"fieldops/internal/scoring"
	"fieldops/internal/workflow"
	id "fieldops/pkg/domain"
	dErrors "fieldops/pkg/domain-errors"
	"fieldops/pkg/requestcontext"
)

// AppSuite drives the in-memory wiring that serve uses without a database.
type AppSuite struct {
	suite.Suite
	ctx     context.Context
	app     *app
	metrics *metrics.Metrics
}

func TestAppSuite(t *testing.T) {
	suite.Run(t, new(AppSuite))
}

var puneInspector = audit.Officer{ID: "off-1", Role: string(workflow.RoleInspector), Jurisdictions: []id.JurisdictionID{"MH-PUN"}}

func (s *AppSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, time.May, 4, 9, 0, 0, 0, time.UTC))

	rules, err := config.LoadRules("../../configs/rules.yaml")
	s.Require().NoError(err)
	nodes, err := jurisdiction.LoadNodes("../../configs/jurisdictions.yaml")
	s.Require().NoError(err)

	s.metrics = metrics.New(prometheus.NewRegistry())
	cfg := config.FromEnv()
	s.app, err = buildApp(context.Background(), cfg, rules, appDeps{
		Nodes:   nodes,
		Metrics: s.metrics,
		Logger:  zerolog.Nop(),
	})
	s.Require().NoError(err)
}

func (s *AppSuite) TestInspectionScoredAndClosed() {
	rec, err := s.app.records.Create(s.ctx, records.CreateRequest{
		Kind: workflow.KindInspection, JurisdictionID: "MH-PUN-HAV", Actor: puneInspector,
	})
	s.Require().NoError(err)
	s.Empty(rec.Code, "inspections do not mint codes by default")

	_, err = s.app.records.Transition(s.ctx, rec.ID, workflow.InspectionInProgress, workflow.TransitionContext{Actor: puneInspector})
	s.Require().NoError(err)

	snap, err := s.app.scoring.Submit(s.ctx, rec.ID, []scoring.IndicatorResponse{
		{IndicatorID: "cold-chain-intact", Response: scoring.ResponseNo},
		{IndicatorID: "licence-displayed", Response: scoring.ResponseYes},
		{IndicatorID: "handwash-station", Response: scoring.ResponseNA},
	}, workflow.TransitionContext{Actor: puneInspector})
	s.Require().NoError(err)
	s.Equal(3, snap.Result.TotalScore)
	s.Equal(scoring.ClassificationLow, snap.Result.Classification)
	ok, err := snap.Verify()
	s.Require().NoError(err)
	s.True(ok)

	_, err = s.app.records.Transition(s.ctx, rec.ID, workflow.InspectionCompleted, workflow.TransitionContext{Actor: puneInspector})
	s.Require().NoError(err)
	_, err = s.app.records.Transition(s.ctx, rec.ID, workflow.InspectionClosed, workflow.TransitionContext{Actor: puneInspector})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized), "closing needs a supervisor, got %v", err)
}

func (s *AppSuite) TestComplaintGetsDistrictCode() {
	rec, err := s.app.records.Create(s.ctx, records.CreateRequest{
		Kind: workflow.KindComplaint, JurisdictionID: "MH-PUN", Actor: audit.Complainant{Reference: "c-1"},
	})
	s.Require().NoError(err)
	s.Equal("PUN0001052026", rec.Code)
}

func (s *AppSuite) TestApplyRulesSwapsPolicy() {
	reloaded, err := config.ParseRules([]byte(`
transitions:
  - { kind: inspection, from: draft, to: in_progress, enabled: false }
  - { kind: inspection, from: in_progress, to: completed }
`))
	s.Require().NoError(err)
	s.app.applyRules(reloaded, nil)

	rec, err := s.app.records.Create(s.ctx, records.CreateRequest{
		Kind: workflow.KindInspection, JurisdictionID: "MH-PUN", Actor: puneInspector,
	})
	s.Require().NoError(err)
	_, err = s.app.records.Transition(s.ctx, rec.ID, workflow.InspectionInProgress, workflow.TransitionContext{Actor: puneInspector})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition), "got %v", err)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.RuleReloads.WithLabelValues("applied")))
	s.Empty(s.app.catalog.Indicators())
}

func (s *AppSuite) TestDefaultRulesWarnThatScoringIsDisabled() {
	var buf bytes.Buffer
	nodes, err := jurisdiction.LoadNodes("../../configs/jurisdictions.yaml")
	s.Require().NoError(err)

	a, err := buildApp(context.Background(), config.FromEnv(), config.DefaultRules(), appDeps{
		Nodes:  nodes,
		Logger: logger.NewWithWriter(&buf, "info"),
	})
	s.Require().NoError(err)
	s.Contains(buf.String(), "inspection scoring is disabled")

	rec, err := a.records.Create(s.ctx, records.CreateRequest{
		Kind: workflow.KindInspection, JurisdictionID: "MH-PUN", Actor: puneInspector,
	})
	s.Require().NoError(err)
	_, err = a.scoring.Submit(s.ctx, rec.ID, []scoring.IndicatorResponse{{IndicatorID: "cold-chain", Response: scoring.ResponseNo}},
		workflow.TransitionContext{Actor: puneInspector})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation), "got %v", err)
}

func (s *AppSuite) TestShippedRulesDoNotWarn() {
	var buf bytes.Buffer
	s.app.logger = logger.NewWithWriter(&buf, "info")
	rules, err := config.LoadRules("../../configs/rules.yaml")
	s.Require().NoError(err)

	s.app.applyRules(rules, nil)
	s.NotContains(buf.String(), "scoring is disabled")

	empty, err := config.ParseRules(nil)
	s.Require().NoError(err)
	s.app.applyRules(empty, nil)
	s.Contains(buf.String(), "scoring is disabled")
}

func (s *AppSuite) TestApplyRulesRejectionKeepsPolicy() {
	before := s.app.engine.Policy()
	s.app.applyRules(nil, dErrors.New(dErrors.CodeValidation, "bad file"))
	s.Same(before, s.app.engine.Policy())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.RuleReloads.WithLabelValues("rejected")))
}

func (s *AppSuite) TestCheckConfigCommand() {
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"check-config", "--rules", "../../configs/rules.yaml"})
	s.Require().NoError(cmd.Execute())

	s.Contains(out.String(), "roles: field_officer < inspector < supervisor < district_admin < state_admin")
	s.Contains(out.String(), "code minting: complaint")
	s.Contains(out.String(), "transitions sample: 5 enabled, 0 disabled")
	s.NotContains(out.String(), "warning:")
}

func (s *AppSuite) TestCheckConfigRejectsBadFile() {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"check-config", "--rules", "testdata/does-not-exist.yaml"})
	s.Error(cmd.Execute())
}

func (s *AppSuite) TestVersionCommand() {
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	s.Require().NoError(cmd.Execute())
	s.Equal("fieldops dev\n", out.String())
}
