// Package workclock converts wall-clock intervals into working time: discrete
// time steps that fall on a weekday inside a fixed business-hour window. All
// benchmarking compares working time, never raw elapsed time, so a case idle
// over a weekend does not look slow.
package workclock

import (
	"time"

	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/model"
)

// Clock counts working time in a fixed local calendar. It uses the viewer's
// local calendar fields, not UTC, so daylight-saving transitions do not shift
// the business-hour window.
type Clock struct {
	startHour int
	endHour   int
	step      time.Duration
	loc       *time.Location
}

// New builds a Clock from the workday configuration. A nil location falls
// back to time.Local.
func New(cfg model.WorkdayConfig, loc *time.Location) *Clock {
	if loc == nil {
		loc = time.Local
	}
	step := time.Duration(cfg.StepMinutes) * time.Minute
	if step <= 0 {
		step = 15 * time.Minute
	}
	return &Clock{
		startHour: cfg.StartHour,
		endHour:   cfg.EndHour,
		step:      step,
		loc:       loc,
	}
}

// StepMinutes returns the step length in minutes.
func (c *Clock) StepMinutes() float64 {
	return c.step.Minutes()
}

// working reports whether the step starting at t counts as working time.
func (c *Clock) working(t time.Time) bool {
	lt := t.In(c.loc)
	switch lt.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	h := lt.Hour()
	return h >= c.startHour && h < c.endHour
}

// WorkingMinutes returns the working duration between from and to, in
// minutes. Returns 0 when to is not after from.
func (c *Clock) WorkingMinutes(from, to time.Time) float64 {
	if !to.After(from) {
		return 0
	}
	minutes := 0.0
	for t := from; t.Before(to); t = t.Add(c.step) {
		if c.working(t) {
			minutes += c.step.Minutes()
		}
	}
	return minutes
}

// WorkingDays converts working minutes to working days using the window size.
func (c *Clock) WorkingDays(minutes float64) float64 {
	perDay := float64(c.endHour-c.startHour) * 60
	if perDay <= 0 {
		return 0
	}
	return minutes / perDay
}

// AddWorkingMinutes projects a working duration forward onto the wall clock:
// the instant at which the given number of working minutes will have elapsed
// after from. Used to turn a remaining-time estimate into a projected
// completion timestamp.
func (c *Clock) AddWorkingMinutes(from time.Time, minutes float64) time.Time {
	if minutes <= 0 {
		return from
	}
	t := from
	// Hard bound so malformed input cannot loop forever: ~4 years of steps.
	limit := int(4 * 365 * 24 * time.Hour / c.step)
	for i := 0; i < limit && minutes > 0; i++ {
		if c.working(t) {
			minutes -= c.step.Minutes()
		}
		t = t.Add(c.step)
	}
	return t
}
