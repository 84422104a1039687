package model

import "time"

// Config is the single configuration surface for the analytics engine. Every
// threshold the engine consults lives here; callers override fields for
// testing instead of reaching into engine internals.
type Config struct {
	Workday    WorkdayConfig    `yaml:"workday"`
	Tracking   TrackingConfig   `yaml:"tracking"`
	Stats      StatsConfig      `yaml:"stats"`
	Velocity   VelocityConfig   `yaml:"velocity"`
	Buffers    BufferConfig     `yaml:"buffers"`
	Risk       RiskConfig       `yaml:"risk"`
	Efficiency EfficiencyConfig `yaml:"efficiency"`
	Engine     EngineConfig     `yaml:"engine"`
	Watcher    WatcherConfig    `yaml:"watcher"`
}

// WorkdayConfig defines the business-hour window used to convert wall-clock
// intervals into working minutes.
type WorkdayConfig struct {
	StartHour   int `yaml:"start_hour"`
	EndHour     int `yaml:"end_hour"`
	StepMinutes int `yaml:"step_minutes"`
}

// TrackingConfig scopes which cases participate in stage tracking. Cases
// created before Since, or in a category not listed, replay to an empty
// timeline rather than an error.
type TrackingConfig struct {
	Since      time.Time  `yaml:"since"`
	Categories []Category `yaml:"categories"`
	Stages     []Stage    `yaml:"stages"`
}

// Tracked reports whether the category participates in stage tracking.
func (t TrackingConfig) Tracked(c Category) bool {
	for _, tc := range t.Categories {
		if tc == c {
			return true
		}
	}
	return false
}

// StatsConfig controls outlier fencing and data-quality sanity thresholds.
type StatsConfig struct {
	FenceMultiplier float64 `yaml:"fence_multiplier"`
	// MinStageMinutes rejects obviously-broken visits, per stage
	// (e.g. a design visit under 10 working minutes).
	MinStageMinutes map[Stage]float64 `yaml:"min_stage_minutes"`
	// MaxVisitDays rejects any visit longer than this many calendar days.
	MaxVisitDays float64 `yaml:"max_visit_days"`
	// MaxReworkVisits rejects a case's records for a stage it bounced
	// through more than this many times.
	MaxReworkVisits int `yaml:"max_rework_visits"`
	// ModeBucketMinutes buckets durations before computing the mode;
	// defaults to one working day.
	ModeBucketMinutes float64 `yaml:"mode_bucket_minutes"`
}

// LoadBand maps an active-case count band to a throughput multiplier. Bands
// are matched in order; the first band with MaxActive >= count wins.
type LoadBand struct {
	MaxActive int     `yaml:"max_active"`
	Factor    float64 `yaml:"factor"`
}

// VelocityConfig controls the smoothed, load-adjusted benchmark.
type VelocityConfig struct {
	TargetPercentile float64    `yaml:"target_percentile"`
	SmoothingAlpha   float64    `yaml:"smoothing_alpha"`
	MinSamples       int        `yaml:"min_samples"`
	SmallSampleSize  int        `yaml:"small_sample_size"`
	ActiveLoadWeight float64    `yaml:"active_load_weight"`
	AgeWeightPerDay  float64    `yaml:"age_weight_per_day"`
	AgeWeightCap     float64    `yaml:"age_weight_cap"`
	LoadBands        []LoadBand `yaml:"load_bands"`
	// ExceededMargin is the fraction of the adjusted target a completion
	// must beat to classify as "exceeded" rather than "met".
	ExceededMargin float64 `yaml:"exceeded_margin"`
}

// LoadFactor resolves the multiplier for the current active-case count.
func (v VelocityConfig) LoadFactor(active int) float64 {
	for _, b := range v.LoadBands {
		if active <= b.MaxActive {
			return b.Factor
		}
	}
	if n := len(v.LoadBands); n > 0 {
		return v.LoadBands[n-1].Factor
	}
	return 1.0
}

// BufferConfig controls stage lead-time requirements and the rush-reduction
// factor for expedited cases.
type BufferConfig struct {
	LeadDays          map[Stage]int `yaml:"lead_days"`
	MinRushSamples    int           `yaml:"min_rush_samples"`
	DefaultRushFactor float64       `yaml:"default_rush_factor"`
	RushFactorMin     float64       `yaml:"rush_factor_min"`
	RushFactorMax     float64       `yaml:"rush_factor_max"`
}

// RiskConfig controls deadline-risk classification.
type RiskConfig struct {
	CriticalWithinDays float64 `yaml:"critical_within_days"`
	HighWithinDays     float64 `yaml:"high_within_days"`
	SlackThresholdDays float64 `yaml:"slack_threshold_days"`
	ConfidenceHigh     int     `yaml:"confidence_high"`
	ConfidenceLow      int     `yaml:"confidence_low"`
	ContentionRatio    float64 `yaml:"contention_ratio"`
}

// EfficiencyConfig controls the composite score.
type EfficiencyConfig struct {
	OnTimeWeight        float64           `yaml:"on_time_weight"`
	VelocityWeight      float64           `yaml:"velocity_weight"`
	StagePenaltyWeights map[Stage]float64 `yaml:"stage_penalty_weights"`
	LatenessDampenHours float64           `yaml:"lateness_dampen_hours"`
	LatenessDampen      float64           `yaml:"lateness_dampen"`
	ExpediteBonusAbove  float64           `yaml:"expedite_bonus_above"`
	ExpediteBonus       float64           `yaml:"expedite_bonus"`
	MinCategorySamples  int               `yaml:"min_category_samples"`
}

// EngineConfig controls run execution.
type EngineConfig struct {
	Workers int `yaml:"workers"`
}

// WatcherConfig controls the case-store file watcher.
type WatcherConfig struct {
	DebounceSec float64 `yaml:"debounce_sec"`
}

// DefaultConfig returns the configuration the engine ships with. Callers
// override individual fields rather than rebuilding the whole structure.
func DefaultConfig() *Config {
	return &Config{
		Workday: WorkdayConfig{
			StartHour:   8,
			EndHour:     18,
			StepMinutes: 15,
		},
		Tracking: TrackingConfig{
			Since:      time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			Categories: []Category{CategoryGeneral, CategorySecondary, CategoryTertiary},
			Stages:     []Stage{StageDesign, StageProduction, StageFinishing, StageInspection},
		},
		Stats: StatsConfig{
			FenceMultiplier: 1.5,
			MinStageMinutes: map[Stage]float64{
				StageDesign:     10,
				StageProduction: 15,
				StageFinishing:  10,
				StageInspection: 5,
			},
			MaxVisitDays:      30,
			MaxReworkVisits:   4,
			ModeBucketMinutes: 600, // one 10-hour working day
		},
		Velocity: VelocityConfig{
			TargetPercentile: 75,
			SmoothingAlpha:   0.2,
			MinSamples:       2,
			SmallSampleSize:  5,
			ActiveLoadWeight: 0.15,
			AgeWeightPerDay:  0.1,
			AgeWeightCap:     2.0,
			LoadBands: []LoadBand{
				{MaxActive: 0, Factor: 0.9},
				{MaxActive: 5, Factor: 1.0},
				{MaxActive: 10, Factor: 1.1},
				{MaxActive: 15, Factor: 1.25},
				{MaxActive: 20, Factor: 1.4},
				{MaxActive: 30, Factor: 1.7},
				{MaxActive: 1 << 30, Factor: 2.0},
			},
			ExceededMargin: 0.10,
		},
		Buffers: BufferConfig{
			LeadDays: map[Stage]int{
				StageDesign:     2,
				StageProduction: 1,
				StageFinishing:  1,
				StageInspection: 0,
			},
			MinRushSamples:    5,
			DefaultRushFactor: 0.6,
			RushFactorMin:     0.3,
			RushFactorMax:     1.0,
		},
		Risk: RiskConfig{
			CriticalWithinDays: 1,
			HighWithinDays:     2,
			SlackThresholdDays: 0.5,
			ConfidenceHigh:     80,
			ConfidenceLow:      60,
			ContentionRatio:    1.5,
		},
		Efficiency: EfficiencyConfig{
			OnTimeWeight:   0.6,
			VelocityWeight: 0.4,
			StagePenaltyWeights: map[Stage]float64{
				StageDesign:     0.3,
				StageProduction: 0.4,
				StageFinishing:  0.3,
				StageInspection: 0.2,
			},
			LatenessDampenHours: 48,
			LatenessDampen:      0.95,
			ExpediteBonusAbove:  90,
			ExpediteBonus:       1.02,
			MinCategorySamples:  10,
		},
		Engine: EngineConfig{
			Workers: 4,
		},
		Watcher: WatcherConfig{
			DebounceSec: 2,
		},
	}
}
