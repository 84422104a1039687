// Package model defines the data structures for case records, analytics
// configuration, and the throughput report.
package model

import (
	"strings"
	"time"
)

// Category is the production category of a case.
type Category string

const (
	CategoryGeneral   Category = "general"
	CategorySecondary Category = "secondary"
	CategoryTertiary  Category = "tertiary"
)

// Stage is one step of the production workflow.
type Stage string

const (
	StageDesign     Stage = "design"
	StageProduction Stage = "production"
	StageFinishing  Stage = "finishing"
	StageInspection Stage = "inspection"
)

// Tag conventions. The tag set is the current truth about a case; the event
// log is the historical truth and the two may disagree.
const (
	TagExpedite = "expedite"
	TagRush     = "rush"

	// TagExcludeAll removes a case from every aggregate statistic.
	TagExcludeAll = "exclude-stats"

	// TagExcludeStagePrefix removes a case from one stage's statistics,
	// e.g. "exclude-stage:finishing".
	TagExcludeStagePrefix = "exclude-stage:"

	// TagStagePrefix marks the stage the case is in right now,
	// e.g. "stage:production".
	TagStagePrefix = "stage:"
)

// EventEntry is one timestamped free-text action from a case's append-only
// event log ("moved from design to production", "hold added", ...).
type EventEntry struct {
	At     time.Time `yaml:"at"`
	Action string    `yaml:"action"`
}

// Case is a dental-lab production case.
type Case struct {
	ID        string       `yaml:"id"`
	Category  Category     `yaml:"category"`
	CreatedAt time.Time    `yaml:"created_at"`
	DueDate   time.Time    `yaml:"due_date"`
	Done      bool         `yaml:"done"`
	DoneAt    time.Time    `yaml:"done_at,omitempty"`
	Tags      []string     `yaml:"tags,omitempty"`
	Events    []EventEntry `yaml:"events,omitempty"`
}

// HasTag reports whether the case carries the exact tag.
func (c *Case) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Expedited reports whether the case is flagged for expedited handling.
func (c *Case) Expedited() bool {
	return c.HasTag(TagExpedite) || c.HasTag(TagRush)
}

// ExcludedAll reports whether the case is policy-excluded from all statistics.
func (c *Case) ExcludedAll() bool {
	return c.HasTag(TagExcludeAll)
}

// ExcludedForStage reports whether the case is policy-excluded for one stage.
func (c *Case) ExcludedForStage(s Stage) bool {
	return c.HasTag(TagExcludeStagePrefix + string(s))
}

// CurrentStage returns the stage named by the case's stage tag. The second
// return is false when the case carries no stage tag.
func (c *Case) CurrentStage() (Stage, bool) {
	for _, t := range c.Tags {
		if strings.HasPrefix(t, TagStagePrefix) {
			return Stage(strings.TrimPrefix(t, TagStagePrefix)), true
		}
	}
	return "", false
}

// Deadline is the instant the case becomes late: the end of its due date,
// not the start.
func (c *Case) Deadline() time.Time {
	d := c.DueDate
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location()).AddDate(0, 0, 1)
}

// CompletionRecord is one closed stage visit paired with the workload context
// at the moment the visit started. It is the unit all statistics are computed
// over; a case with zero closed visits for a stage contributes none.
type CompletionRecord struct {
	CaseID            string
	Stage             Stage
	Category          Category
	EnteredAt         time.Time
	ExitedAt          time.Time
	WorkingMinutes    float64
	CalendarDays      float64
	ConcurrentAtStart int
}
