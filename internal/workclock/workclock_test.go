package workclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/model"
)

func testClock() *Clock {
	return New(model.WorkdayConfig{StartHour: 8, EndHour: 18, StepMinutes: 15}, time.UTC)
}

// 2024-01-01 is a Monday.
func day(d, hour, min int) time.Time {
	return time.Date(2024, 1, d, hour, min, 0, 0, time.UTC)
}

func TestWorkingMinutes(t *testing.T) {
	c := testClock()

	testCases := []struct {
		name string
		from time.Time
		to   time.Time
		want float64
	}{
		{"within one day", day(1, 9, 0), day(1, 11, 0), 120},
		{"spans overnight", day(1, 17, 0), day(2, 9, 0), 120},
		{"spans weekend", day(5, 17, 0), day(8, 9, 0), 120},
		{"entirely outside window", day(1, 19, 0), day(1, 22, 0), 0},
		{"weekend only", day(6, 9, 0), day(7, 17, 0), 0},
		{"zero interval", day(1, 9, 0), day(1, 9, 0), 0},
		{"reversed interval", day(1, 11, 0), day(1, 9, 0), 0},
		{"full working day", day(1, 8, 0), day(1, 18, 0), 600},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.WorkingMinutes(tc.from, tc.to))
		})
	}
}

func TestWorkingMinutes_MonotonicAsNowAdvances(t *testing.T) {
	c := testClock()
	start := day(1, 9, 0)

	prev := 0.0
	for now := start; now.Before(day(9, 0, 0)); now = now.Add(90 * time.Minute) {
		got := c.WorkingMinutes(start, now)
		assert.GreaterOrEqual(t, got, prev, "working minutes must never decrease as now advances")
		prev = got
	}
}

func TestAddWorkingMinutes(t *testing.T) {
	c := testClock()

	testCases := []struct {
		name    string
		from    time.Time
		minutes float64
		want    time.Time
	}{
		{"same day", day(1, 9, 0), 120, day(1, 11, 0)},
		{"rolls over weekend", day(5, 17, 0), 120, day(8, 9, 0)},
		{"zero minutes", day(1, 9, 0), 0, day(1, 9, 0)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.AddWorkingMinutes(tc.from, tc.minutes))
		})
	}
}

func TestWorkingDays(t *testing.T) {
	c := testClock()
	assert.Equal(t, 1.0, c.WorkingDays(600))
	assert.Equal(t, 0.5, c.WorkingDays(300))
}
