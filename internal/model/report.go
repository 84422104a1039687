package model

import "time"

// Classification grades one completion against the adjusted benchmark.
type Classification string

const (
	ClassExceeded Classification = "exceeded"
	ClassMet      Classification = "met"
	ClassMissed   Classification = "missed"
)

// RiskLevel classifies an active case's deadline risk.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Confidence grades how much a risk projection should be trusted.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Exclusion records a case removed from aggregates, with the reason. Excluded
// cases are never silently dropped; they surface in the report.
type Exclusion struct {
	CaseID  string  `yaml:"case_id" json:"case_id"`
	Stage   Stage   `yaml:"stage" json:"stage"`
	Reason  string  `yaml:"reason" json:"reason"`
	Minutes float64 `yaml:"minutes" json:"minutes"`
}

// StatsSummary is the robust statistical summary of one (stage, category)
// duration population, in working minutes.
type StatsSummary struct {
	SampleSize int     `yaml:"sample_size" json:"sample_size"`
	Mean       float64 `yaml:"mean" json:"mean"`
	StdDev     float64 `yaml:"std_dev" json:"std_dev"`
	Median     float64 `yaml:"median" json:"median"`
	P75        float64 `yaml:"p75" json:"p75"`
	P90        float64 `yaml:"p90" json:"p90"`
	ModeDays   float64 `yaml:"mode_days" json:"mode_days"`
	Q1         float64 `yaml:"q1" json:"q1"`
	Q3         float64 `yaml:"q3" json:"q3"`
	LowerFence float64 `yaml:"lower_fence" json:"lower_fence"`
	UpperFence float64 `yaml:"upper_fence" json:"upper_fence"`
}

// CompletionOutcome is the per-case classification detail behind a velocity
// score. It is reproducible independent of the aggregate.
type CompletionOutcome struct {
	CaseID         string         `yaml:"case_id" json:"case_id"`
	Classification Classification `yaml:"classification" json:"classification"`
	ActualMinutes  float64        `yaml:"actual_minutes" json:"actual_minutes"`
	TargetMinutes  float64        `yaml:"target_minutes" json:"target_minutes"`
	DeltaMinutes   float64        `yaml:"delta_minutes" json:"delta_minutes"`
	DeltaPercent   float64        `yaml:"delta_percent" json:"delta_percent"`
}

// VelocityResult is the benchmark and score for one (stage, category).
// Insufficient is set instead of a meaningless number when the sample is too
// small; callers must check it before trusting Score.
type VelocityResult struct {
	Stage    Stage    `yaml:"stage" json:"stage"`
	Category Category `yaml:"category" json:"category"`

	Insufficient bool `yaml:"insufficient" json:"insufficient"`
	SampleSize   int  `yaml:"sample_size" json:"sample_size"`

	RawTarget      float64 `yaml:"raw_target" json:"raw_target"`
	SmoothedTarget float64 `yaml:"smoothed_target" json:"smoothed_target"`
	AdjustedTarget float64 `yaml:"adjusted_target" json:"adjusted_target"`

	ConcurrencyScale float64 `yaml:"concurrency_scale" json:"concurrency_scale"`
	LoadFactor       float64 `yaml:"load_factor" json:"load_factor"`
	TimeWeightedLoad float64 `yaml:"time_weighted_load" json:"time_weighted_load"`
	ActiveCount      int     `yaml:"active_count" json:"active_count"`
	HistoricalActive float64 `yaml:"historical_active" json:"historical_active"`

	Score       int                 `yaml:"score" json:"score"`
	Completions []CompletionOutcome `yaml:"completions" json:"completions"`
}

// StageCompliance is the buffer-compliance summary for one stage.
type StageCompliance struct {
	Stage     Stage   `yaml:"stage" json:"stage"`
	Checked   int     `yaml:"checked" json:"checked"`
	Compliant int     `yaml:"compliant" json:"compliant"`
	Rate      float64 `yaml:"rate" json:"rate"` // percent, 100 when nothing checked
}

// OnTimeSummary is per-category delivery performance.
type OnTimeSummary struct {
	Completed        int     `yaml:"completed" json:"completed"`
	OnTime           int     `yaml:"on_time" json:"on_time"`
	Rate             float64 `yaml:"rate" json:"rate"` // percent over all completions
	EffectiveRate    float64 `yaml:"effective_rate" json:"effective_rate"`
	AvgLatenessHours float64 `yaml:"avg_lateness_hours" json:"avg_lateness_hours"`

	ExpeditedCompleted int     `yaml:"expedited_completed" json:"expedited_completed"`
	ExpeditedOnTime    int     `yaml:"expedited_on_time" json:"expedited_on_time"`
	ExpeditedRate      float64 `yaml:"expedited_rate" json:"expedited_rate"`
}

// RiskAssessment is the deadline projection for one active case.
type RiskAssessment struct {
	CaseID   string   `yaml:"case_id" json:"case_id"`
	Stage    Stage    `yaml:"stage" json:"stage"`
	Category Category `yaml:"category" json:"category"`

	Level      RiskLevel  `yaml:"level" json:"level"`
	Confidence Confidence `yaml:"confidence" json:"confidence"`
	Expedited  bool       `yaml:"expedited" json:"expedited"`

	ElapsedMinutes      float64   `yaml:"elapsed_minutes" json:"elapsed_minutes"`
	RemainingMinutes    float64   `yaml:"remaining_minutes" json:"remaining_minutes"`
	ProjectedCompletion time.Time `yaml:"projected_completion" json:"projected_completion"`
	Deadline            time.Time `yaml:"deadline" json:"deadline"`
	ProjectedLateHours  float64   `yaml:"projected_late_hours" json:"projected_late_hours"`
}

// StageReport combines everything known about one (category, stage).
type StageReport struct {
	Stage      Stage           `yaml:"stage" json:"stage"`
	Stats      StatsSummary    `yaml:"stats" json:"stats"`
	Velocity   VelocityResult  `yaml:"velocity" json:"velocity"`
	Compliance StageCompliance `yaml:"compliance" json:"compliance"`
	Outliers   []string        `yaml:"outliers,omitempty" json:"outliers,omitempty"`
	Exclusions []Exclusion     `yaml:"exclusions,omitempty" json:"exclusions,omitempty"`
}

// CategoryReport is the full analytics result for one category.
type CategoryReport struct {
	Category          Category         `yaml:"category" json:"category"`
	Stages            []StageReport    `yaml:"stages" json:"stages"`
	OnTime            OnTimeSummary    `yaml:"on_time" json:"on_time"`
	Risks             []RiskAssessment `yaml:"risks,omitempty" json:"risks,omitempty"`
	Composite         float64          `yaml:"composite" json:"composite"`
	IncludedInOverall bool             `yaml:"included_in_overall" json:"included_in_overall"`
	Recommendations   []string         `yaml:"recommendations,omitempty" json:"recommendations,omitempty"`
}

// RunReport is the top-level report a run produces for the presentation layer.
type RunReport struct {
	GeneratedAt       time.Time        `yaml:"generated_at" json:"generated_at"`
	TotalCases        int              `yaml:"total_cases" json:"total_cases"`
	Categories        []CategoryReport `yaml:"categories" json:"categories"`
	OverallThroughput float64          `yaml:"overall_throughput" json:"overall_throughput"`
}
