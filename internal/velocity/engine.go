// Package velocity maintains the smoothed, concurrency-adjusted time
// benchmark per (stage, category) and scores recent completions plus the
// current active workload against it.
package velocity

import (
	"math"

	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/model"
	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/stats"
)

// ActiveCase is one currently open case of the scored (stage, category).
type ActiveCase struct {
	CaseID      string
	DaysInStage float64
}

// Input is everything one scoring pass needs. Records must already be
// filtered of policy exclusions and statistical outliers. PrevSmoothed is the
// only benchmark state that survives between runs; HasPrev is false on the
// first-ever computation, which seeds the smoothed target from the raw one.
type Input struct {
	Stage        model.Stage
	Category     model.Category
	Records      []model.CompletionRecord
	Active       []ActiveCase
	PrevSmoothed float64
	HasPrev      bool
}

// Engine scores throughput against the adjusted benchmark.
type Engine struct {
	cfg model.VelocityConfig
}

// NewEngine returns an Engine bound to the velocity configuration.
func NewEngine(cfg model.VelocityConfig) *Engine {
	return &Engine{cfg: cfg}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// concurrencyScale stretches the allowed time when more same-category work is
// in flight than the historical norm, via a bounded tanh transform.
func concurrencyScale(active int, historicalAvg float64) float64 {
	ratio := 1.0
	if historicalAvg > 0 {
		ratio = float64(active) / historicalAvg
	}
	return clamp(1.0+0.5*math.Tanh(0.5*(ratio-1)), 0.5, 1.5)
}

// timeWeightedLoad averages a per-case age weight that grows linearly with
// days-in-stage, capped. An empty active set weighs 1.
func (e *Engine) timeWeightedLoad(active []ActiveCase) float64 {
	if len(active) == 0 {
		return 1.0
	}
	sum := 0.0
	for _, a := range active {
		w := 1.0 + e.cfg.AgeWeightPerDay*a.DaysInStage
		if w > e.cfg.AgeWeightCap {
			w = e.cfg.AgeWeightCap
		}
		sum += w
	}
	return sum / float64(len(active))
}

// Score computes the benchmark and velocity score for one (stage, category).
// With no completion records the result is flagged Insufficient; callers must
// check that flag before trusting Score.
func (e *Engine) Score(in Input) model.VelocityResult {
	res := model.VelocityResult{
		Stage:       in.Stage,
		Category:    in.Category,
		SampleSize:  len(in.Records),
		ActiveCount: len(in.Active),
	}
	if len(in.Records) == 0 {
		res.Insufficient = true
		return res
	}

	durations := make([]float64, len(in.Records))
	concurrent := 0.0
	for i, r := range in.Records {
		durations[i] = r.WorkingMinutes
		concurrent += float64(r.ConcurrentAtStart)
	}
	res.HistoricalActive = concurrent / float64(len(in.Records))

	res.RawTarget = stats.Percentile(durations, e.cfg.TargetPercentile)
	if in.HasPrev {
		a := e.cfg.SmoothingAlpha
		res.SmoothedTarget = a*res.RawTarget + (1-a)*in.PrevSmoothed
	} else {
		res.SmoothedTarget = res.RawTarget
	}

	res.ConcurrencyScale = concurrencyScale(res.ActiveCount, res.HistoricalActive)
	res.LoadFactor = e.cfg.LoadFactor(res.ActiveCount)
	res.TimeWeightedLoad = e.timeWeightedLoad(in.Active)
	res.AdjustedTarget = res.SmoothedTarget * res.ConcurrencyScale * res.LoadFactor * math.Sqrt(res.TimeWeightedLoad)

	res.Completions = e.classify(in.Records, res.AdjustedTarget)

	// Percentile targets are not meaningful over a single completion, so
	// one record short-circuits to a fixed high score.
	if len(in.Records) == 1 {
		if res.ActiveCount == 0 {
			res.Score = 100
		} else {
			res.Score = 95
		}
		return res
	}

	ratioSum := 0.0
	for _, r := range in.Records {
		ratio := 1.0
		if r.WorkingMinutes > 0 {
			ratio = res.AdjustedTarget / r.WorkingMinutes
		}
		if ratio > 1 {
			ratio = 1
		}
		ratioSum += ratio
	}
	base := ratioSum / float64(len(in.Records)) * 100

	impact := 100.0
	if denom := res.LoadFactor * res.TimeWeightedLoad; denom > 0 {
		impact = clamp(100/denom, 0, 100)
	}

	w := e.cfg.ActiveLoadWeight
	if len(in.Records) <= e.cfg.SmallSampleSize {
		w /= 2
	}
	res.Score = int(math.Round(clamp(base*(1-w)+impact*w, 0, 100)))
	return res
}

// classify grades each completion against the adjusted target. This detail
// feeds buffer analysis and UI drill-down and is reproducible independent of
// the aggregate score.
func (e *Engine) classify(records []model.CompletionRecord, target float64) []model.CompletionOutcome {
	out := make([]model.CompletionOutcome, 0, len(records))
	for _, r := range records {
		o := model.CompletionOutcome{
			CaseID:        r.CaseID,
			ActualMinutes: r.WorkingMinutes,
			TargetMinutes: target,
			DeltaMinutes:  target - r.WorkingMinutes,
		}
		if target > 0 {
			o.DeltaPercent = o.DeltaMinutes / target * 100
		}
		switch {
		case r.WorkingMinutes <= target*(1-e.cfg.ExceededMargin):
			o.Classification = model.ClassExceeded
		case r.WorkingMinutes <= target:
			o.Classification = model.ClassMet
		default:
			o.Classification = model.ClassMissed
		}
		out = append(out, o)
	}
	return out
}
