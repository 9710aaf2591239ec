package scoring

import (
	id "fieldops/pkg/domain"
	dErrors "fieldops/pkg/domain-errors"
)

// RiskLevel grades how serious non-compliance with an indicator is.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
)

func (r RiskLevel) IsValid() bool {
	return r == RiskHigh || r == RiskMedium || r == RiskLow
}

// Response is an inspector's answer to one indicator.
type Response string

const (
	ResponseYes Response = "yes"
	ResponseNo  Response = "no"
	ResponseNA  Response = "na"
)

func (r Response) IsValid() bool {
	return r == ResponseYes || r == ResponseNo || r == ResponseNA
}

// Classification is the overall risk band of an inspection.
type Classification string

const (
	ClassificationLow    Classification = "low"
	ClassificationMedium Classification = "medium"
	ClassificationHigh   Classification = "high"
)

// Indicator is one checklist item. Weight is admin data and need not track RiskLevel.
type Indicator struct {
	ID        id.IndicatorID `json:"id"`
	PillarID  id.PillarID    `json:"pillar_id"`
	RiskLevel RiskLevel      `json:"risk_level"`
	Weight    int            `json:"weight"`
}

type IndicatorResponse struct {
	IndicatorID id.IndicatorID `json:"indicator_id"`
	Response    Response       `json:"response"`
}

type PillarScore struct {
	PillarID   id.PillarID `json:"pillar_id"`
	Score      int         `json:"score"`
	MaxScore   int         `json:"max_score"`
	Percentage int         `json:"percentage"`
}

type Result struct {
	TotalScore                int            `json:"total_score"`
	MaxScore                  int            `json:"max_score"`
	Pillars                   []PillarScore  `json:"pillars"`
	HighRiskNonCompliantCount int            `json:"high_risk_non_compliant_count"`
	Classification            Classification `json:"classification"`
}

// Config holds the admin-set classification thresholds.
type Config struct {
	LowRiskMaxScore            int `json:"low_risk_max_score" yaml:"low_risk_max_score"`
	MediumRiskMaxScore         int `json:"medium_risk_max_score" yaml:"medium_risk_max_score"`
	HighRiskIndicatorThreshold int `json:"high_risk_indicator_threshold" yaml:"high_risk_indicator_threshold"`
}

func DefaultConfig() Config {
	return Config{LowRiskMaxScore: 15, MediumRiskMaxScore: 35, HighRiskIndicatorThreshold: 5}
}

// Validate rejects configurations that would make classification meaningless.
func (c Config) Validate() error {
	if c.LowRiskMaxScore < 0 || c.MediumRiskMaxScore < 0 || c.HighRiskIndicatorThreshold < 0 {
		return dErrors.New(dErrors.CodeValidation, "scoring thresholds must not be negative")
	}
	if c.LowRiskMaxScore > c.MediumRiskMaxScore {
		return dErrors.Newf(dErrors.CodeValidation,
			"low risk max score %d exceeds medium risk max score %d", c.LowRiskMaxScore, c.MediumRiskMaxScore)
	}
	if c.HighRiskIndicatorThreshold < 1 {
		return dErrors.New(dErrors.CodeValidation, "high risk indicator threshold must be at least 1")
	}
	return nil
}

// ValidateIndicators checks a checklist before it is put into service.
func ValidateIndicators(indicators []Indicator) error {
	seen := make(map[id.IndicatorID]struct{}, len(indicators))
	for _, ind := range indicators {
		if ind.ID == "" {
			return dErrors.New(dErrors.CodeValidation, "indicator without id")
		}
		if _, dup := seen[ind.ID]; dup {
			return dErrors.Newf(dErrors.CodeValidation, "indicator %s listed twice", ind.ID)
		}
		seen[ind.ID] = struct{}{}
		if ind.PillarID == "" {
			return dErrors.Newf(dErrors.CodeValidation, "indicator %s has no pillar", ind.ID)
		}
		if !ind.RiskLevel.IsValid() {
			return dErrors.Newf(dErrors.CodeValidation, "indicator %s has unknown risk level %q", ind.ID, ind.RiskLevel)
		}
		if ind.Weight < 0 {
			return dErrors.Newf(dErrors.CodeValidation, "indicator %s has negative weight", ind.ID)
		}
	}
	return nil
}
