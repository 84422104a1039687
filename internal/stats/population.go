// Package stats computes robust summary statistics over stage-duration
// populations: mean, sample stddev, interpolated percentiles, bucketed mode,
// and IQR-fence outlier detection. Outliers stay visible in per-case detail
// but are excluded from every aggregate.
package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/model"
)

// Sample is one case's duration for a given stage. Index is an opaque
// caller-owned handle (e.g. into the originating record slice) carried
// through filtering untouched.
type Sample struct {
	CaseID       string
	Index        int
	Minutes      float64
	CalendarDays float64
}

// Analysis is the outcome of analyzing one duration population. Excluded
// holds sanity-rejected samples with their reasons; Outliers holds IQR-fence
// rejects. Included is what every aggregate was computed over.
type Analysis struct {
	Summary  model.StatsSummary
	Included []Sample
	Outliers []Sample
	Excluded []model.Exclusion
}

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the sample standard deviation (n-1 denominator), 0 when
// fewer than two values.
func StdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	mean := Mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(n-1))
}

// Percentile returns the p-th percentile (0-100) using linear interpolation
// between order statistics. Returns 0 for an empty slice.
func Percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[n-1]
	}
	pos := p / 100 * float64(n-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	weight := pos - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Fences returns Q1, Q3 and the IQR outlier fences at k times the
// interquartile range. Computed over the unfiltered input so the fences do
// not drift with the outliers they reject.
func Fences(values []float64, k float64) (q1, q3, lower, upper float64) {
	q1 = Percentile(values, 25)
	q3 = Percentile(values, 75)
	iqr := q3 - q1
	return q1, q3, q1 - k*iqr, q3 + k*iqr
}

// modeBucket returns the most frequent duration bucket, in buckets of
// bucketMinutes. Ties resolve to the smallest bucket so the result does not
// depend on input order.
func modeBucket(values []float64, bucketMinutes float64) float64 {
	if len(values) == 0 || bucketMinutes <= 0 {
		return 0
	}
	counts := make(map[int]int)
	for _, v := range values {
		counts[int(math.Round(v/bucketMinutes))]++
	}
	best, bestCount := 0, -1
	for b, n := range counts {
		if n > bestCount || (n == bestCount && b < best) {
			best, bestCount = b, n
		}
	}
	return float64(best)
}

// Analyze runs the full pass for one stage's duration population: sanity
// thresholds first (rejects recorded with reasons, never silently dropped),
// then IQR-fence outlier detection over the surviving set, then aggregates
// over the non-outlier remainder. Policy-excluded cases must be filtered out
// by the caller before this runs.
func Analyze(stage model.Stage, samples []Sample, cfg model.StatsConfig) Analysis {
	var a Analysis

	minMinutes := cfg.MinStageMinutes[stage]
	sane := make([]Sample, 0, len(samples))
	for _, s := range samples {
		switch {
		case minMinutes > 0 && s.Minutes < minMinutes:
			a.Excluded = append(a.Excluded, model.Exclusion{
				CaseID:  s.CaseID,
				Stage:   stage,
				Reason:  fmt.Sprintf("stage time %.0fm below plausible minimum %.0fm", s.Minutes, minMinutes),
				Minutes: s.Minutes,
			})
		case cfg.MaxVisitDays > 0 && s.CalendarDays > cfg.MaxVisitDays:
			a.Excluded = append(a.Excluded, model.Exclusion{
				CaseID:  s.CaseID,
				Stage:   stage,
				Reason:  fmt.Sprintf("visit spans %.1f calendar days, over the %.0f day limit", s.CalendarDays, cfg.MaxVisitDays),
				Minutes: s.Minutes,
			})
		default:
			sane = append(sane, s)
		}
	}

	values := make([]float64, len(sane))
	for i, s := range sane {
		values[i] = s.Minutes
	}
	q1, q3, lower, upper := Fences(values, cfg.FenceMultiplier)

	var included []float64
	for _, s := range sane {
		if s.Minutes < lower || s.Minutes > upper {
			a.Outliers = append(a.Outliers, s)
			continue
		}
		a.Included = append(a.Included, s)
		included = append(included, s.Minutes)
	}

	a.Summary = model.StatsSummary{
		SampleSize: len(included),
		Mean:       Mean(included),
		StdDev:     StdDev(included),
		Median:     Percentile(included, 50),
		P75:        Percentile(included, 75),
		P90:        Percentile(included, 90),
		ModeDays:   modeBucket(included, cfg.ModeBucketMinutes),
		Q1:         q1,
		Q3:         q3,
		LowerFence: lower,
		UpperFence: upper,
	}
	return a
}
