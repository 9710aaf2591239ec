package scoring

import (
	"math"

	id "fieldops/pkg/domain"
)

// Score converts responses into a Result. It is pure: identical inputs
// always produce an identical Result.
//
// A "no" adds the indicator's weight to the score and to its pillar's
// maximum; a "yes" adds it to the maximum only; "na" and unanswered
// indicators are left out of both. Pillars appear in the order their first
// indicator appears. Only the first response per indicator counts.
func Score(responses []IndicatorResponse, indicators []Indicator, cfg Config) Result {
	answers := make(map[id.IndicatorID]Response, len(responses))
	for _, r := range responses {
		if _, dup := answers[r.IndicatorID]; !dup {
			answers[r.IndicatorID] = r.Response
		}
	}

	var (
		result  Result
		order   []id.PillarID
		pillars = map[id.PillarID]*PillarScore{}
	)
	for _, ind := range indicators {
		p, ok := pillars[ind.PillarID]
		if !ok {
			p = &PillarScore{PillarID: ind.PillarID}
			pillars[ind.PillarID] = p
			order = append(order, ind.PillarID)
		}
		switch answers[ind.ID] {
		case ResponseNo:
			p.Score += ind.Weight
			p.MaxScore += ind.Weight
			result.TotalScore += ind.Weight
			if ind.RiskLevel == RiskHigh {
				result.HighRiskNonCompliantCount++
			}
		case ResponseYes:
			p.MaxScore += ind.Weight
		}
	}

	result.Pillars = make([]PillarScore, 0, len(order))
	for _, pid := range order {
		p := pillars[pid]
		p.Percentage = percentage(p.Score, p.MaxScore)
		result.MaxScore += p.MaxScore
		result.Pillars = append(result.Pillars, *p)
	}
	result.Classification = Classify(result.TotalScore, result.HighRiskNonCompliantCount, cfg)
	return result
}

// Classify applies the bands in fixed order; the high-risk count override wins.
func Classify(total, highRiskNonCompliant int, cfg Config) Classification {
	switch {
	case highRiskNonCompliant >= cfg.HighRiskIndicatorThreshold:
		return ClassificationHigh
	case total <= cfg.LowRiskMaxScore:
		return ClassificationLow
	case total <= cfg.MediumRiskMaxScore:
		return ClassificationMedium
	default:
		return ClassificationHigh
	}
}

func percentage(score, maxScore int) int {
	if maxScore == 0 {
		return 0
	}
	return int(math.Round(100 * float64(score) / float64(maxScore)))
}
