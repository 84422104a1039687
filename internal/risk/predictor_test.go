package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/model"
	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/workclock"
)

func day(d, hour, min int) time.Time {
	return time.Date(2024, 1, d, hour, min, 0, 0, time.UTC)
}

func newTestPredictor() *Predictor {
	cfg := model.DefaultConfig()
	clock := workclock.New(cfg.Workday, time.UTC)
	return New(cfg.Risk, clock)
}

func activeCase(due time.Time, expedited bool) *model.Case {
	c := &model.Case{ID: "c1", Category: model.CategoryGeneral, CreatedAt: day(1, 8, 0), DueDate: due}
	if expedited {
		c.Tags = []string{model.TagExpedite}
	}
	return c
}

func TestAssess_CriticalWhenOverBenchmarkAndDueToday(t *testing.T) {
	p := newTestPredictor()
	res := p.Assess(Input{
		Case:           activeCase(day(1, 0, 0), false),
		Stage:          model.StageProduction,
		ElapsedMinutes: 600,
		AdjustedTarget: 300,
		VelocityScore:  85,
		Now:            day(1, 9, 0),
	})
	assert.Equal(t, model.RiskCritical, res.Level)
	assert.Equal(t, 0.0, res.RemainingMinutes)
}

func TestAssess_LowWithAmpleSlack(t *testing.T) {
	p := newTestPredictor()
	res := p.Assess(Input{
		Case:           activeCase(day(12, 0, 0), false),
		Stage:          model.StageDesign,
		ElapsedMinutes: 60,
		AdjustedTarget: 300,
		VelocityScore:  85,
		Now:            day(1, 9, 0),
	})
	assert.Equal(t, model.RiskLow, res.Level)
	assert.Equal(t, 240.0, res.RemainingMinutes)
	assert.Zero(t, res.ProjectedLateHours)
}

func TestAssess_MediumOnThinSlack(t *testing.T) {
	p := newTestPredictor()
	in := Input{
		Case:           activeCase(day(1, 0, 0), false),
		Stage:          model.StageFinishing,
		ElapsedMinutes: 0,
		AdjustedTarget: 300,
		VelocityScore:  85,
		Now:            day(1, 9, 0),
	}
	res := p.Assess(in)
	assert.Equal(t, model.RiskMedium, res.Level, "not late, but under half a day of slack")

	in.Case = activeCase(day(1, 0, 0), true)
	assert.Equal(t, model.RiskHigh, p.Assess(in).Level, "expedite escalates medium to high")
}

func TestAssess_HighWhenProjectedLateWithinTwoDays(t *testing.T) {
	p := newTestPredictor()
	in := Input{
		Case:           activeCase(day(2, 0, 0), false),
		Stage:          model.StageProduction,
		ElapsedMinutes: 0,
		AdjustedTarget: 1500, // 25 working hours: lands past the deadline
		VelocityScore:  85,
		Now:            day(1, 9, 0),
	}
	res := p.Assess(in)
	assert.Equal(t, model.RiskHigh, res.Level)
	assert.Greater(t, res.ProjectedLateHours, 0.0)

	in.Case = activeCase(day(2, 0, 0), true)
	assert.Equal(t, model.RiskCritical, p.Assess(in).Level, "expedite escalates high to critical")
}

func TestAssess_ExpediteNeverEscalatesLow(t *testing.T) {
	p := newTestPredictor()
	res := p.Assess(Input{
		Case:           activeCase(day(12, 0, 0), true),
		Stage:          model.StageDesign,
		ElapsedMinutes: 60,
		AdjustedTarget: 300,
		VelocityScore:  85,
		Now:            day(1, 9, 0),
	})
	assert.Equal(t, model.RiskLow, res.Level)
}

func TestConfidence(t *testing.T) {
	p := newTestPredictor()
	base := Input{
		Case:           activeCase(day(12, 0, 0), false),
		Stage:          model.StageDesign,
		AdjustedTarget: 300,
		Now:            day(1, 9, 0),
	}

	testCases := []struct {
		name string
		mod  func(*Input)
		want model.Confidence
	}{
		{"high score", func(in *Input) { in.VelocityScore = 85 }, model.ConfidenceHigh},
		{"mid score", func(in *Input) { in.VelocityScore = 70 }, model.ConfidenceMedium},
		{"low score", func(in *Input) { in.VelocityScore = 40 }, model.ConfidenceLow},
		{"insufficient sample", func(in *Input) { in.VelocityInsufficient = true }, model.ConfidenceLow},
		{"contention downgrade", func(in *Input) {
			in.VelocityScore = 85
			in.ActiveCount = 10
			in.HistoricalActive = 4
		}, model.ConfidenceLow},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.mod(&in)
			assert.Equal(t, tc.want, p.Assess(in).Confidence)
		})
	}
}
