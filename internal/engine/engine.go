// Package engine orchestrates one analytics run: snapshot the population,
// replay timelines, derive statistics and benchmarks, score compliance and
// risk, and assemble the report. Every computation is pure over the snapshot;
// a single reference timestamp captured at run start is threaded through all
// "now"-relative math so a multi-second run stays internally consistent.
package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/efficiency"
	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/events"
	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/leadtime"
	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/model"
	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/risk"
	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/stats"
	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/timeline"
	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/velocity"
	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/workclock"
)

// Store supplies the full non-deleted case population for one run. The
// engine never writes; a fetch failure is terminal for the run so a partial
// population can never skew the statistics.
type Store interface {
	FetchPopulation(ctx context.Context) ([]*model.Case, error)
}

// Benchmarks is the only state that survives between runs: the previous
// smoothed target per (category, stage), fed back in as an external
// parameter.
type Benchmarks map[string]float64

// BenchmarkKey builds the map key for one (category, stage).
func BenchmarkKey(cat model.Category, s model.Stage) string {
	return string(cat) + "/" + string(s)
}

// Engine runs the throughput analytics pipeline.
type Engine struct {
	cfg      *model.Config
	store    Store
	bus      *events.Bus
	clock    *workclock.Clock
	replayer *timeline.Replayer

	// nowFn is swapped in tests to pin the reference timestamp.
	nowFn func() time.Time
}

// New builds an Engine. bus may be nil when no one listens for progress.
func New(cfg *model.Config, store Store, bus *events.Bus, loc *time.Location) *Engine {
	return &Engine{
		cfg:      cfg,
		store:    store,
		bus:      bus,
		clock:    workclock.New(cfg.Workday, loc),
		replayer: timeline.NewReplayer(cfg),
		nowFn:    time.Now,
	}
}

func (e *Engine) publish(t events.Type, data map[string]any) {
	if e.bus != nil {
		e.bus.Publish(t, data)
	}
}

// progressTracker keeps published progress monotonic even when category
// workers finish out of order.
type progressTracker struct {
	mu    sync.Mutex
	done  int
	total int
	last  int
	emit  func(percent int)
}

func (p *progressTracker) step() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	pct := 100
	if p.total > 0 {
		pct = p.done * 100 / p.total
	}
	if pct > p.last {
		p.last = pct
		p.emit(pct)
	}
}

// caseState is the replayed view of one case, shared by every downstream
// calculation in the run.
type caseState struct {
	c  *model.Case
	tl timeline.Timeline
}

// Run executes one full analytics pass and returns the report plus the
// updated benchmark state. prev may be nil on the first-ever run.
func (e *Engine) Run(ctx context.Context, prev Benchmarks) (*model.RunReport, Benchmarks, error) {
	now := e.nowFn()

	cases, err := e.store.FetchPopulation(ctx)
	if err != nil {
		e.publish(events.RunFailed, map[string]any{"error": err.Error()})
		return nil, nil, fmt.Errorf("fetch population: %w", err)
	}
	e.publish(events.RunStarted, map[string]any{"cases": len(cases)})

	states := make([]caseState, len(cases))
	for i, c := range cases {
		states[i] = caseState{c: c, tl: e.replayer.Replay(c, now)}
	}

	rush := leadtime.RushReductionFactor(cases, e.cfg.Buffers)

	byCategory := make(map[model.Category][]caseState)
	for _, st := range states {
		byCategory[st.c.Category] = append(byCategory[st.c.Category], st)
	}
	categories := make([]model.Category, 0, len(byCategory))
	for cat := range byCategory {
		categories = append(categories, cat)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	progress := &progressTracker{
		total: len(categories),
		emit: func(pct int) {
			e.publish(events.RunProgress, map[string]any{"percent": pct})
		},
	}

	next := make(Benchmarks)
	var benchMu sync.Mutex

	reports := make([]model.CategoryReport, len(categories))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Engine.Workers)
	for i, cat := range categories {
		i, cat := i, cat
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rep, bench := e.analyzeCategory(cat, byCategory[cat], prev, rush.Factor, now)
			reports[i] = rep
			benchMu.Lock()
			for k, v := range bench {
				next[k] = v
			}
			benchMu.Unlock()
			progress.step()
			e.publish(events.CategoryScored, map[string]any{"category": string(cat), "composite": rep.Composite})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.publish(events.RunFailed, map[string]any{"error": err.Error()})
		return nil, nil, fmt.Errorf("analyze categories: %w", err)
	}

	agg := efficiency.New(e.cfg.Efficiency)
	completions := make(map[model.Category]int)
	for i := range reports {
		completions[reports[i].Category] = reports[i].OnTime.Completed
		reports[i].IncludedInOverall = reports[i].OnTime.Completed >= e.cfg.Efficiency.MinCategorySamples
	}

	report := &model.RunReport{
		GeneratedAt:       now,
		TotalCases:        len(cases),
		Categories:        reports,
		OverallThroughput: agg.Overall(reports, completions),
	}
	e.publish(events.RunCompleted, map[string]any{"categories": len(reports)})
	return report, next, nil
}

// analyzeCategory produces the full report for one category.
func (e *Engine) analyzeCategory(cat model.Category, states []caseState, prev Benchmarks, rushFactor float64, now time.Time) (model.CategoryReport, Benchmarks) {
	rep := model.CategoryReport{Category: cat}
	bench := make(Benchmarks)

	velocityEngine := velocity.NewEngine(e.cfg.Velocity)
	analyzer := leadtime.NewAnalyzer(e.cfg.Buffers, e.cfg.Tracking.Stages)
	predictor := risk.New(e.cfg.Risk, e.clock)

	rep.OnTime = e.onTimeSummary(states, now)

	// Buffer compliance over every case with a timeline.
	var perCase [][]leadtime.BoundaryCheck
	for _, st := range states {
		if len(st.tl.Visits) == 0 {
			continue
		}
		perCase = append(perCase, analyzer.Evaluate(st.c, &st.tl, rushFactor, now))
	}
	complianceByStage := map[model.Stage]model.StageCompliance{}
	for _, sc := range leadtime.Aggregate(e.cfg.Tracking.Stages, perCase) {
		complianceByStage[sc.Stage] = sc
	}

	velocityByStage := map[model.Stage]model.VelocityResult{}
	for _, stage := range e.cfg.Tracking.Stages {
		sr := e.analyzeStage(cat, stage, states, prev, velocityEngine, now)
		sr.Compliance = complianceByStage[stage]
		velocityByStage[stage] = sr.Velocity
		if !sr.Velocity.Insufficient {
			bench[BenchmarkKey(cat, stage)] = sr.Velocity.SmoothedTarget
		}
		rep.Stages = append(rep.Stages, sr)
	}

	// Risk over active cases.
	for _, st := range states {
		if st.c.Done {
			continue
		}
		open := st.tl.OpenVisit()
		stage, ok := st.c.CurrentStage()
		if !ok && open != nil {
			stage, ok = open.Stage, true
		}
		if !ok {
			continue
		}
		elapsed := 0.0
		if open != nil && open.Stage == stage {
			elapsed = timeline.AdjustedWorkingMinutes(*open, st.tl.Holds, e.clock, now)
		}
		vr := velocityByStage[stage]
		rep.Risks = append(rep.Risks, predictor.Assess(risk.Input{
			Case:                 st.c,
			Stage:                stage,
			ElapsedMinutes:       elapsed,
			AdjustedTarget:       vr.AdjustedTarget,
			VelocityScore:        vr.Score,
			VelocityInsufficient: vr.Insufficient,
			ActiveCount:          vr.ActiveCount,
			HistoricalActive:     vr.HistoricalActive,
			Now:                  now,
		}))
	}
	sort.Slice(rep.Risks, func(i, j int) bool { return rep.Risks[i].CaseID < rep.Risks[j].CaseID })

	rep.Composite = e.composite(&rep)
	rep.Recommendations = efficiency.Recommendations(e.cfg, &rep)
	return rep, bench
}

// analyzeStage derives completion records for one (category, stage), runs the
// statistics pass, and scores velocity over the surviving records.
func (e *Engine) analyzeStage(cat model.Category, stage model.Stage, states []caseState, prev Benchmarks, ve *velocity.Engine, now time.Time) model.StageReport {
	sr := model.StageReport{Stage: stage}

	var records []model.CompletionRecord
	var active []velocity.ActiveCase
	for _, st := range states {
		if st.c.ExcludedAll() {
			sr.Exclusions = append(sr.Exclusions, model.Exclusion{
				CaseID: st.c.ID, Stage: stage,
				Reason: "excluded by tag " + model.TagExcludeAll,
			})
			continue
		}
		if st.c.ExcludedForStage(stage) {
			sr.Exclusions = append(sr.Exclusions, model.Exclusion{
				CaseID: st.c.ID, Stage: stage,
				Reason: "excluded by tag " + model.TagExcludeStagePrefix + string(stage),
			})
			continue
		}
		visits := 0
		for _, v := range st.tl.Visits {
			if v.Stage == stage {
				visits++
			}
		}
		if max := e.cfg.Stats.MaxReworkVisits; max > 0 && visits > max {
			sr.Exclusions = append(sr.Exclusions, model.Exclusion{
				CaseID: st.c.ID, Stage: stage,
				Reason: fmt.Sprintf("%d visits to %s, over the rework limit of %d", visits, stage, max),
			})
			continue
		}
		for _, v := range st.tl.Visits {
			if v.Stage != stage {
				continue
			}
			if v.Open {
				minutes := timeline.AdjustedWorkingMinutes(v, st.tl.Holds, e.clock, now)
				active = append(active, velocity.ActiveCase{
					CaseID:      st.c.ID,
					DaysInStage: e.clock.WorkingDays(minutes),
				})
				continue
			}
			records = append(records, model.CompletionRecord{
				CaseID:            st.c.ID,
				Stage:             stage,
				Category:          cat,
				EnteredAt:         v.EnteredAt,
				ExitedAt:          v.ExitedAt,
				WorkingMinutes:    timeline.AdjustedWorkingMinutes(v, st.tl.Holds, e.clock, now),
				CalendarDays:      v.ExitedAt.Sub(v.EnteredAt).Hours() / 24,
				ConcurrentAtStart: e.concurrentAtStart(states, st.c.ID, stage, v.EnteredAt),
			})
		}
	}

	samples := make([]stats.Sample, len(records))
	for i, r := range records {
		samples[i] = stats.Sample{CaseID: r.CaseID, Index: i, Minutes: r.WorkingMinutes, CalendarDays: r.CalendarDays}
	}
	analysis := stats.Analyze(stage, samples, e.cfg.Stats)
	sr.Stats = analysis.Summary
	sr.Exclusions = append(sr.Exclusions, analysis.Excluded...)
	for _, o := range analysis.Outliers {
		sr.Outliers = append(sr.Outliers, o.CaseID)
	}

	kept := make([]model.CompletionRecord, 0, len(analysis.Included))
	for _, s := range analysis.Included {
		kept = append(kept, records[s.Index])
	}

	prevSmoothed, hasPrev := prev[BenchmarkKey(cat, stage)]
	sr.Velocity = ve.Score(velocity.Input{
		Stage:        stage,
		Category:     cat,
		Records:      kept,
		Active:       active,
		PrevSmoothed: prevSmoothed,
		HasPrev:      hasPrev,
	})
	return sr
}

// concurrentAtStart counts other same-category cases logically in the same
// stage at the instant a visit began.
func (e *Engine) concurrentAtStart(states []caseState, selfID string, stage model.Stage, at time.Time) int {
	n := 0
	for _, st := range states {
		if st.c.ID == selfID {
			continue
		}
		if s, ok := st.tl.StageAt(at); ok && s == stage {
			n++
		}
	}
	return n
}

// onTimeSummary computes delivery performance over completed cases. The
// effective rate ignores policy-excluded cases; the actual rate does not.
func (e *Engine) onTimeSummary(states []caseState, now time.Time) model.OnTimeSummary {
	var s model.OnTimeSummary
	latenessSum := 0.0
	late := 0
	effDone, effOnTime := 0, 0
	for _, st := range states {
		c := st.c
		if !c.Done {
			continue
		}
		doneAt := c.DoneAt
		if doneAt.IsZero() {
			doneAt = now
		}
		s.Completed++
		onTime := !doneAt.After(c.Deadline())
		if onTime {
			s.OnTime++
		} else {
			late++
			latenessSum += doneAt.Sub(c.Deadline()).Hours()
		}
		if !c.ExcludedAll() {
			effDone++
			if onTime {
				effOnTime++
			}
		}
		if c.Expedited() {
			s.ExpeditedCompleted++
			if onTime {
				s.ExpeditedOnTime++
			}
		}
	}
	if s.Completed > 0 {
		s.Rate = float64(s.OnTime) / float64(s.Completed) * 100
	}
	if effDone > 0 {
		s.EffectiveRate = float64(effOnTime) / float64(effDone) * 100
	}
	if late > 0 {
		s.AvgLatenessHours = latenessSum / float64(late)
	}
	if s.ExpeditedCompleted > 0 {
		s.ExpeditedRate = float64(s.ExpeditedOnTime) / float64(s.ExpeditedCompleted) * 100
	}
	return s
}

// composite folds the category's stage scores into one number: the mean of
// per-stage composites (each carrying its own compliance penalty), or the
// unpenalized blend when no stage has velocity data.
func (e *Engine) composite(rep *model.CategoryReport) float64 {
	agg := efficiency.New(e.cfg.Efficiency)

	base := efficiency.Inputs{
		OnTimeRate:          rep.OnTime.Rate,
		AvgLatenessHours:    rep.OnTime.AvgLatenessHours,
		HasExpedited:        rep.OnTime.ExpeditedCompleted > 0,
		ExpeditedOnTimeRate: rep.OnTime.ExpeditedRate,
	}

	sum, n := 0.0, 0
	for _, sr := range rep.Stages {
		if sr.Velocity.Insufficient {
			continue
		}
		in := base
		in.VelocityScore = float64(sr.Velocity.Score)
		in.Stage = sr.Stage
		in.CompliancePct = sr.Compliance.Rate
		sum += agg.Composite(in)
		n++
	}
	if n == 0 {
		return agg.Composite(base)
	}
	return math.Round(sum/float64(n)*10) / 10
}
