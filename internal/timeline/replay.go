// Package timeline reconstructs stage-visit history from a case's free-text
// event log. The log is effectively a serialized state-machine transcript;
// replay walks it chronologically and emits typed StageVisit records, with
// phrase matching isolated behind a table of rules so new phrasings are
// additive.
package timeline

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/model"
	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/workclock"
)

// StageVisit is one contiguous interval a case spent in a stage. ExitedAt is
// meaningful only when Open is false. A case may visit the same stage more
// than once (rework).
type StageVisit struct {
	Stage     model.Stage
	EnteredAt time.Time
	ExitedAt  time.Time
	Open      bool

	// ForcedClosed marks a visit closed by stale-tag recovery rather than
	// by a log entry. Heuristic, not ground truth.
	ForcedClosed bool
}

// HoldPeriod is a [start, end) interval during which the case was on hold.
// Holds overlapping a visit are subtracted from its working duration.
type HoldPeriod struct {
	Start time.Time
	End   time.Time
}

// Timeline is the replayed history of one case.
type Timeline struct {
	Visits []StageVisit
	Holds  []HoldPeriod
}

// OpenVisit returns the still-open visit, or nil when the timeline is closed
// or empty.
func (tl *Timeline) OpenVisit() *StageVisit {
	if n := len(tl.Visits); n > 0 && tl.Visits[n-1].Open {
		return &tl.Visits[n-1]
	}
	return nil
}

// StageAt returns the stage the case was logically in at instant t. The
// second return is false when no visit contains t.
func (tl *Timeline) StageAt(t time.Time) (model.Stage, bool) {
	for i := len(tl.Visits) - 1; i >= 0; i-- {
		v := tl.Visits[i]
		if t.Before(v.EnteredAt) {
			continue
		}
		if v.Open || t.Before(v.ExitedAt) {
			return v.Stage, true
		}
	}
	return "", false
}

type actionKind int

const (
	kindMove actionKind = iota
	kindAssign
	kindDone
	kindHoldAdd
	kindHoldRemove
	kindSentOnward
)

type rule struct {
	re   *regexp.Regexp
	kind actionKind
}

// The phrase table. Unrecognized phrasings are skipped, never fatal: the
// system degrades to "no stage data" rather than aborting the population.
var rules = []rule{
	{regexp.MustCompile(`^moved from (.+) to (.+)$`), kindMove},
	{regexp.MustCompile(`^assigned to (.+)$`), kindAssign},
	{regexp.MustCompile(`^marked done$`), kindDone},
	{regexp.MustCompile(`^hold added$`), kindHoldAdd},
	{regexp.MustCompile(`^hold removed$`), kindHoldRemove},
	{regexp.MustCompile(`^sent for inspection$`), kindSentOnward},
}

// Replayer converts event logs into timelines.
type Replayer struct {
	cfg *model.Config
}

// NewReplayer returns a Replayer bound to the configuration.
func NewReplayer(cfg *model.Config) *Replayer {
	return &Replayer{cfg: cfg}
}

func (r *Replayer) parseStage(raw string) (model.Stage, bool) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for _, s := range r.cfg.Tracking.Stages {
		if string(s) == name {
			return s, true
		}
	}
	return "", false
}

// Replay reconstructs the timeline of one case as of the reference instant
// now. Cases that predate stage tracking, or belong to an untracked category,
// yield an empty timeline: explicit non-participation, not an error.
func (r *Replayer) Replay(c *model.Case, now time.Time) Timeline {
	var tl Timeline
	if c.CreatedAt.Before(r.cfg.Tracking.Since) || !r.cfg.Tracking.Tracked(c.Category) {
		return tl
	}

	entries := make([]model.EventEntry, len(c.Events))
	copy(entries, c.Events)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].At.Before(entries[j].At) })

	var holdStart *time.Time
	var onward []time.Time
	closedAt := now

	done := false
	for _, e := range entries {
		action := strings.ToLower(strings.TrimSpace(e.Action))
		for _, rl := range rules {
			m := rl.re.FindStringSubmatch(action)
			if m == nil {
				continue
			}
			switch rl.kind {
			case kindMove, kindAssign:
				// The destination is the last capture group for both
				// phrasings; the from-stage is informational only.
				stage, ok := r.parseStage(m[len(m)-1])
				if !ok {
					break
				}
				tl.closeOpen(e.At, false)
				tl.Visits = append(tl.Visits, StageVisit{Stage: stage, EnteredAt: e.At, Open: true})
			case kindDone:
				tl.closeOpen(e.At, false)
				closedAt = e.At
				done = true
			case kindHoldAdd:
				if holdStart == nil {
					at := e.At
					holdStart = &at
				}
			case kindHoldRemove:
				if holdStart != nil {
					tl.Holds = append(tl.Holds, HoldPeriod{Start: *holdStart, End: e.At})
					holdStart = nil
				}
			case kindSentOnward:
				onward = append(onward, e.At)
			}
			break
		}
		if done {
			break
		}
	}

	if holdStart != nil {
		end := closedAt
		if !done {
			end = now
		}
		if end.After(*holdStart) {
			tl.Holds = append(tl.Holds, HoldPeriod{Start: *holdStart, End: end})
		}
	}

	// The case record may know it is done even when the log lacks the
	// terminal entry.
	if !done && c.Done {
		at := c.DoneAt
		if at.IsZero() {
			at = now
		}
		tl.closeOpen(at, false)
		done = true
	}

	// Stale-transition recovery: when the open visit's stage disagrees with
	// the current stage tag, the tag is the present truth and the open visit
	// is force-closed at now rather than trusted blindly.
	if open := tl.OpenVisit(); open != nil {
		if tag, ok := c.CurrentStage(); ok && tag != open.Stage {
			tl.closeOpen(now, true)
		}
	}

	// The finishing clock stops once the case is sent onward for inspection,
	// even when the move is never logged as a transition.
	for i := range tl.Visits {
		v := &tl.Visits[i]
		if v.Stage != model.StageFinishing {
			continue
		}
		for _, at := range onward {
			if at.Before(v.EnteredAt) {
				continue
			}
			if v.Open || at.Before(v.ExitedAt) {
				v.ExitedAt = at
				v.Open = false
			}
			break
		}
	}

	// Closed visits never run backwards.
	for i := range tl.Visits {
		v := &tl.Visits[i]
		if !v.Open && v.ExitedAt.Before(v.EnteredAt) {
			v.ExitedAt = v.EnteredAt
		}
	}

	return tl
}

func (tl *Timeline) closeOpen(at time.Time, forced bool) {
	if open := tl.OpenVisit(); open != nil {
		open.ExitedAt = at
		open.Open = false
		open.ForcedClosed = forced
	}
}

// AdjustedWorkingMinutes is the visit's working duration with overlapping
// hold periods subtracted, clamped at zero. Open visits are measured up to
// now.
func AdjustedWorkingMinutes(v StageVisit, holds []HoldPeriod, clock *workclock.Clock, now time.Time) float64 {
	end := v.ExitedAt
	if v.Open {
		end = now
	}
	minutes := clock.WorkingMinutes(v.EnteredAt, end)
	for _, h := range holds {
		start := h.Start
		if start.Before(v.EnteredAt) {
			start = v.EnteredAt
		}
		stop := h.End
		if stop.After(end) {
			stop = end
		}
		minutes -= clock.WorkingMinutes(start, stop)
	}
	if minutes < 0 {
		minutes = 0
	}
	return minutes
}
