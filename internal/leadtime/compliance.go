// Package leadtime checks stage transitions against stage-specific lead-time
// buffers: the minimum time a case must leave before its deadline when
// exiting a stage. Expedited cases get reduced buffers via a historically
// derived rush-reduction factor.
package leadtime

import (
	"time"

	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/model"
	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/stats"
	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/timeline"
)

// FactorResult is the rush-reduction factor with its provenance. Defaulted is
// set when either population was too small to compare and the configured
// fallback was used instead.
type FactorResult struct {
	Factor           float64
	Defaulted        bool
	ExpeditedSamples int
	StandardSamples  int
}

// RushReductionFactor derives the buffer multiplier for expedited cases from
// the ratio of expedited to standard available lead time, over IQR-trimmed
// means, clamped to the configured range.
func RushReductionFactor(cases []*model.Case, cfg model.BufferConfig) FactorResult {
	var expedited, standard []float64
	for _, c := range cases {
		lead := c.Deadline().Sub(c.CreatedAt).Hours()
		if lead <= 0 {
			continue
		}
		if c.Expedited() {
			expedited = append(expedited, lead)
		} else {
			standard = append(standard, lead)
		}
	}

	res := FactorResult{
		ExpeditedSamples: len(expedited),
		StandardSamples:  len(standard),
	}
	if len(expedited) < cfg.MinRushSamples || len(standard) < cfg.MinRushSamples {
		res.Factor = cfg.DefaultRushFactor
		res.Defaulted = true
		return res
	}

	expMean := trimmedMean(expedited)
	stdMean := trimmedMean(standard)
	if stdMean <= 0 {
		res.Factor = cfg.DefaultRushFactor
		res.Defaulted = true
		return res
	}

	factor := expMean / stdMean
	if factor < cfg.RushFactorMin {
		factor = cfg.RushFactorMin
	}
	if factor > cfg.RushFactorMax {
		factor = cfg.RushFactorMax
	}
	res.Factor = factor
	return res
}

// trimmedMean drops values outside the 1.5-IQR fences, then averages.
func trimmedMean(values []float64) float64 {
	_, _, lower, upper := stats.Fences(values, 1.5)
	var kept []float64
	for _, v := range values {
		if v >= lower && v <= upper {
			kept = append(kept, v)
		}
	}
	return stats.Mean(kept)
}

// BoundaryCheck is the compliance verdict for one stage boundary of one case.
// Reached is false when the case never exited the stage; such boundaries
// default to compliant rather than counting as violations.
type BoundaryCheck struct {
	Stage        model.Stage
	TransitionAt time.Time
	RequiredBy   time.Time
	Reached      bool
	Compliant    bool
}

// Analyzer evaluates buffer compliance for individual cases.
type Analyzer struct {
	cfg    model.BufferConfig
	stages []model.Stage
}

// NewAnalyzer returns an Analyzer for the configured stage order.
func NewAnalyzer(cfg model.BufferConfig, stages []model.Stage) *Analyzer {
	return &Analyzer{cfg: cfg, stages: stages}
}

// Evaluate checks every stage boundary the case has crossed against
// deadline minus the stage's required lead time (scaled by rushFactor for
// expedited cases). Lateness is attributed to exactly the stage the case was
// logically in when the deadline passed: a violation occurring entirely after
// the deadline charges only that stage, never an earlier or later one.
func (a *Analyzer) Evaluate(c *model.Case, tl *timeline.Timeline, rushFactor float64, now time.Time) []BoundaryCheck {
	deadline := c.Deadline()
	factor := 1.0
	if c.Expedited() {
		factor = rushFactor
	}

	end := now
	if c.Done && !c.DoneAt.IsZero() {
		end = c.DoneAt
	}
	late := end.After(deadline)
	var attributed model.Stage
	if late {
		attributed, _ = tl.StageAt(deadline)
	}

	checks := make([]BoundaryCheck, 0, len(a.stages))
	for _, s := range a.stages {
		leadHours := float64(a.cfg.LeadDays[s]) * 24 * factor
		check := BoundaryCheck{
			Stage:      s,
			RequiredBy: deadline.Add(-time.Duration(leadHours * float64(time.Hour))),
			Compliant:  true,
		}

		exit, ok := lastExit(tl, s)
		if ok {
			check.Reached = true
			check.TransitionAt = exit
			if exit.After(check.RequiredBy) {
				// Post-deadline slips belong to the attributed stage only.
				if !exit.After(deadline) || (late && s == attributed) {
					check.Compliant = false
				}
			}
		}
		checks = append(checks, check)
	}
	return checks
}

func lastExit(tl *timeline.Timeline, s model.Stage) (time.Time, bool) {
	var exit time.Time
	found := false
	for _, v := range tl.Visits {
		if v.Stage == s && !v.Open {
			exit = v.ExitedAt
			found = true
		}
	}
	return exit, found
}

// Aggregate folds per-case checks into per-stage compliance rates. A stage
// with nothing checked reports 100.
func Aggregate(stages []model.Stage, perCase [][]BoundaryCheck) []model.StageCompliance {
	byStage := make(map[model.Stage]*model.StageCompliance, len(stages))
	out := make([]model.StageCompliance, len(stages))
	for i, s := range stages {
		out[i] = model.StageCompliance{Stage: s, Rate: 100}
		byStage[s] = &out[i]
	}
	for _, checks := range perCase {
		for _, ch := range checks {
			sc, ok := byStage[ch.Stage]
			if !ok || !ch.Reached {
				continue
			}
			sc.Checked++
			if ch.Compliant {
				sc.Compliant++
			}
		}
	}
	for i := range out {
		if out[i].Checked > 0 {
			out[i].Rate = float64(out[i].Compliant) / float64(out[i].Checked) * 100
		}
	}
	return out
}
