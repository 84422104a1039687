// Package risk projects completion times for active cases against their
// deadlines and classifies the resulting exposure.
package risk

import (
	"time"

	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/model"
	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/workclock"
)

// Input is everything needed to assess one active case. AdjustedTarget is the
// velocity benchmark for the case's current stage and category, in working
// minutes; ElapsedMinutes is hold-adjusted working time already spent there.
type Input struct {
	Case           *model.Case
	Stage          model.Stage
	ElapsedMinutes float64
	AdjustedTarget float64

	VelocityScore        int
	VelocityInsufficient bool
	ActiveCount          int
	HistoricalActive     float64

	Now time.Time
}

// Predictor classifies deadline risk for active cases.
type Predictor struct {
	cfg   model.RiskConfig
	clock *workclock.Clock
}

// New returns a Predictor using the given working-time clock.
func New(cfg model.RiskConfig, clock *workclock.Clock) *Predictor {
	return &Predictor{cfg: cfg, clock: clock}
}

// Assess projects the case's completion and grades its risk. Expedited cases
// escalate one level when already at risk, but a low-risk case never
// escalates on the expedite flag alone.
func (p *Predictor) Assess(in Input) model.RiskAssessment {
	remaining := in.AdjustedTarget - in.ElapsedMinutes
	if remaining < 0 {
		remaining = 0
	}
	projected := p.clock.AddWorkingMinutes(in.Now, remaining)
	deadline := in.Case.Deadline()

	res := model.RiskAssessment{
		CaseID:              in.Case.ID,
		Stage:               in.Stage,
		Category:            in.Case.Category,
		Expedited:           in.Case.Expedited(),
		ElapsedMinutes:      in.ElapsedMinutes,
		RemainingMinutes:    remaining,
		ProjectedCompletion: projected,
		Deadline:            deadline,
	}
	if projected.After(deadline) {
		res.ProjectedLateHours = projected.Sub(deadline).Hours()
	}

	late := projected.After(deadline)
	// A case already past its benchmark is at risk even when the zero
	// remaining-time projection says otherwise.
	over := in.AdjustedTarget > 0 && in.ElapsedMinutes >= in.AdjustedTarget
	atRisk := late || over

	daysUntilDue := deadline.Sub(in.Now).Hours() / 24
	slackDays := daysUntilDue - projected.Sub(in.Now).Hours()/24

	switch {
	case atRisk && daysUntilDue < p.cfg.CriticalWithinDays:
		res.Level = model.RiskCritical
	case atRisk && daysUntilDue < p.cfg.HighWithinDays:
		res.Level = model.RiskHigh
	case atRisk || slackDays < p.cfg.SlackThresholdDays:
		res.Level = model.RiskMedium
	default:
		res.Level = model.RiskLow
	}

	if res.Expedited {
		switch res.Level {
		case model.RiskMedium:
			res.Level = model.RiskHigh
		case model.RiskHigh:
			res.Level = model.RiskCritical
		}
	}

	res.Confidence = p.confidence(in)
	return res
}

// confidence grades the projection from the category's velocity score, and
// downgrades to low when current contention exceeds the historical norm by
// the configured ratio.
func (p *Predictor) confidence(in Input) model.Confidence {
	if in.VelocityInsufficient {
		return model.ConfidenceLow
	}
	if in.HistoricalActive > 0 && float64(in.ActiveCount) > p.cfg.ContentionRatio*in.HistoricalActive {
		return model.ConfidenceLow
	}
	switch {
	case in.VelocityScore >= p.cfg.ConfidenceHigh:
		return model.ConfidenceHigh
	case in.VelocityScore < p.cfg.ConfidenceLow:
		return model.ConfidenceLow
	default:
		return model.ConfidenceMedium
	}
}
