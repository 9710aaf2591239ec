package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"fieldops/internal/scoring"
	"fieldops/internal/workflow"
	id "fieldops/pkg/domain"
	dErrors "fieldops/pkg/domain-errors"
	pstrings "fieldops/pkg/platform/strings"
)

// Rules is the validated admin configuration loaded from the rules file.
type Rules struct {
	Policy      *workflow.Policy
	CodeMinting []workflow.Kind
	Scoring     scoring.Config
	Indicators  []scoring.Indicator
}

type rulesFile struct {
	Roles       []string          `yaml:"roles"`
	CodeMinting []string          `yaml:"code_minting"`
	Transitions []transitionEntry `yaml:"transitions"`
	Scoring     *scoringEntry     `yaml:"scoring"`
	Indicators  []indicatorEntry  `yaml:"indicators"`
}

type transitionEntry struct {
	Kind            string `yaml:"kind"`
	From            string `yaml:"from"`
	To              string `yaml:"to"`
	RequiresRemarks bool   `yaml:"requires_remarks"`
	RequiredRole    string `yaml:"required_role"`
	Enabled         *bool  `yaml:"enabled"`
}

// scoringEntry keeps absent keys distinguishable from explicit zeroes so a
// partial section only overrides what it names.
type scoringEntry struct {
	LowRiskMaxScore            *int `yaml:"low_risk_max_score"`
	MediumRiskMaxScore         *int `yaml:"medium_risk_max_score"`
	HighRiskIndicatorThreshold *int `yaml:"high_risk_indicator_threshold"`
}

func (e *scoringEntry) apply(cfg scoring.Config) scoring.Config {
	if e == nil {
		return cfg
	}
	if e.LowRiskMaxScore != nil {
		cfg.LowRiskMaxScore = *e.LowRiskMaxScore
	}
	if e.MediumRiskMaxScore != nil {
		cfg.MediumRiskMaxScore = *e.MediumRiskMaxScore
	}
	if e.HighRiskIndicatorThreshold != nil {
		cfg.HighRiskIndicatorThreshold = *e.HighRiskIndicatorThreshold
	}
	return cfg
}

type indicatorEntry struct {
	ID        string `yaml:"id"`
	Pillar    string `yaml:"pillar"`
	RiskLevel string `yaml:"risk_level"`
	Weight    int    `yaml:"weight"`
}

// LoadRules reads and validates the rules file at path.
func LoadRules(path string) (*Rules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRules(raw)
}

// ParseRules validates a rules document. Omitted sections and omitted
// scoring keys take the built-in defaults; unknown keys are rejected.
func ParseRules(raw []byte) (*Rules, error) {
	var file rulesFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "malformed rules file")
	}

	ladder := workflow.DefaultRoleLadder()
	if len(file.Roles) > 0 {
		roles := make([]workflow.Role, len(file.Roles))
		for i, r := range file.Roles {
			roles[i] = workflow.Role(r)
		}
		var err error
		if ladder, err = workflow.NewRoleLadder(roles); err != nil {
			return nil, err
		}
	}

	rules := workflow.DefaultRules()
	if len(file.Transitions) > 0 {
		rules = make([]workflow.Rule, len(file.Transitions))
		for i, t := range file.Transitions {
			enabled := true
			if t.Enabled != nil {
				enabled = *t.Enabled
			}
			rules[i] = workflow.Rule{
				Kind:            workflow.Kind(t.Kind),
				From:            workflow.Status(t.From),
				To:              workflow.Status(t.To),
				RequiresRemarks: t.RequiresRemarks,
				RequiredRole:    workflow.Role(t.RequiredRole),
				Enabled:         enabled,
			}
		}
	}
	policy, err := workflow.NewPolicy(rules, ladder)
	if err != nil {
		return nil, err
	}

	minting := []workflow.Kind{workflow.KindComplaint}
	if file.CodeMinting != nil {
		minting = minting[:0]
		for _, k := range pstrings.DedupeAndTrimLower(file.CodeMinting) {
			kind, err := workflow.ParseKind(k)
			if err != nil {
				return nil, err
			}
			minting = append(minting, kind)
		}
	}

	cfg := file.Scoring.apply(scoring.DefaultConfig())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	indicators := make([]scoring.Indicator, len(file.Indicators))
	for i, ind := range file.Indicators {
		indicators[i] = scoring.Indicator{
			ID:        id.IndicatorID(ind.ID),
			PillarID:  id.PillarID(ind.Pillar),
			RiskLevel: scoring.RiskLevel(ind.RiskLevel),
			Weight:    ind.Weight,
		}
	}
	if err := scoring.ValidateIndicators(indicators); err != nil {
		return nil, err
	}

	return &Rules{Policy: policy, CodeMinting: minting, Scoring: cfg, Indicators: indicators}, nil
}

// DefaultRules is what the server runs with when no rules file is configured.
func DefaultRules() *Rules {
	return &Rules{
		Policy:      workflow.DefaultPolicy(),
		CodeMinting: []workflow.Kind{workflow.KindComplaint},
		Scoring:     scoring.DefaultConfig(),
	}
}
