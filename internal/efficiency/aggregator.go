// Package efficiency folds on-time delivery, velocity, and buffer compliance
// into one composite score, and derives the recommendation strings from the
// same thresholds the scoring uses.
package efficiency

import (
	"fmt"
	"math"

	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/model"
)

// Inputs are the per-category (optionally per-stage) components of the
// composite score. Rates are percentages.
type Inputs struct {
	OnTimeRate    float64
	VelocityScore float64

	// Stage scopes the compliance penalty; empty means category level and
	// no penalty is applied.
	Stage         model.Stage
	CompliancePct float64

	AvgLatenessHours    float64
	HasExpedited        bool
	ExpeditedOnTimeRate float64
}

// Aggregator computes composite efficiency scores.
type Aggregator struct {
	cfg model.EfficiencyConfig
}

// New returns an Aggregator bound to the efficiency configuration.
func New(cfg model.EfficiencyConfig) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// Composite blends on-time rate and velocity score, applies the stage's
// buffer-compliance penalty, dampens for chronic lateness, and nudges upward
// for strong expedited performance. Clamped to [0,100], one decimal.
func (a *Aggregator) Composite(in Inputs) float64 {
	score := in.OnTimeRate*a.cfg.OnTimeWeight + in.VelocityScore*a.cfg.VelocityWeight

	if in.Stage != "" {
		weight := a.cfg.StagePenaltyWeights[in.Stage]
		score *= 1 - (1-in.CompliancePct/100)*weight
	}
	if in.AvgLatenessHours > a.cfg.LatenessDampenHours {
		score *= a.cfg.LatenessDampen
	}
	if in.HasExpedited && in.ExpeditedOnTimeRate > a.cfg.ExpediteBonusAbove {
		score *= a.cfg.ExpediteBonus
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return math.Round(score*10) / 10
}

// Overall is the category-weighted throughput figure. Categories below the
// minimum completion count keep their own score but are left out here.
func (a *Aggregator) Overall(reports []model.CategoryReport, completions map[model.Category]int) float64 {
	weighted := 0.0
	total := 0
	for _, r := range reports {
		n := completions[r.Category]
		if n < a.cfg.MinCategorySamples {
			continue
		}
		weighted += r.Composite * float64(n)
		total += n
	}
	if total == 0 {
		return 0
	}
	return math.Round(weighted/float64(total)*10) / 10
}

// Recommendations renders operator guidance for a category from the same
// thresholds the scores were computed with; there is no separate rule set to
// drift out of sync.
func Recommendations(cfg *model.Config, rep *model.CategoryReport) []string {
	var recs []string

	atRisk := 0
	for _, r := range rep.Risks {
		if r.Level == model.RiskHigh || r.Level == model.RiskCritical {
			atRisk++
		}
	}
	if atRisk > 0 {
		recs = append(recs, fmt.Sprintf(
			"%d active %s case(s) at high or critical deadline risk; reprioritize before new intake", atRisk, rep.Category))
	}

	for _, sr := range rep.Stages {
		if sr.Velocity.Insufficient {
			continue
		}
		if sr.Velocity.Score < cfg.Risk.ConfidenceLow {
			recs = append(recs, fmt.Sprintf(
				"%s velocity for %s is %d, below the %d confidence floor; review staffing or benchmark",
				sr.Stage, rep.Category, sr.Velocity.Score, cfg.Risk.ConfidenceLow))
		}
		if sr.Compliance.Checked > 0 && sr.Compliance.Rate < 100 {
			recs = append(recs, fmt.Sprintf(
				"%s exits are breaching the %d-day buffer (%.0f%% compliant); pull transitions earlier",
				sr.Stage, cfg.Buffers.LeadDays[sr.Stage], sr.Compliance.Rate))
		}
	}

	if rep.OnTime.AvgLatenessHours > cfg.Efficiency.LatenessDampenHours {
		recs = append(recs, fmt.Sprintf(
			"average lateness for %s is %.0fh, over the %.0fh dampening threshold",
			rep.Category, rep.OnTime.AvgLatenessHours, cfg.Efficiency.LatenessDampenHours))
	}
	if rep.OnTime.ExpeditedCompleted > 0 && rep.OnTime.ExpeditedRate > cfg.Efficiency.ExpediteBonusAbove {
		recs = append(recs, fmt.Sprintf(
			"expedited %s cases are %.0f%% on time; current rush handling is working", rep.Category, rep.OnTime.ExpeditedRate))
	}
	return recs
}
