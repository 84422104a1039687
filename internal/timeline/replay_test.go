package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/model"
	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/workclock"
)

// 2024-01-01 is a Monday.
func day(d, hour, min int) time.Time {
	return time.Date(2024, 1, d, hour, min, 0, 0, time.UTC)
}

func testCase(events ...model.EventEntry) *model.Case {
	return &model.Case{
		ID:        "case-1",
		Category:  model.CategoryGeneral,
		CreatedAt: day(1, 8, 0),
		DueDate:   day(10, 0, 0),
		Events:    events,
	}
}

func ev(at time.Time, action string) model.EventEntry {
	return model.EventEntry{At: at, Action: action}
}

func TestReplay_BasicFlow(t *testing.T) {
	r := NewReplayer(model.DefaultConfig())
	c := testCase(
		ev(day(1, 9, 0), "assigned to design"),
		ev(day(1, 14, 0), "moved from design to production"),
		ev(day(2, 10, 0), "marked done"),
	)

	tl := r.Replay(c, day(3, 9, 0))
	require.Len(t, tl.Visits, 2)

	assert.Equal(t, model.StageDesign, tl.Visits[0].Stage)
	assert.Equal(t, day(1, 9, 0), tl.Visits[0].EnteredAt)
	assert.Equal(t, day(1, 14, 0), tl.Visits[0].ExitedAt)
	assert.False(t, tl.Visits[0].Open)

	assert.Equal(t, model.StageProduction, tl.Visits[1].Stage)
	assert.Equal(t, day(2, 10, 0), tl.Visits[1].ExitedAt)
	assert.Nil(t, tl.OpenVisit())
}

func TestReplay_NonParticipation(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Tracking.Categories = []model.Category{model.CategoryGeneral}
	r := NewReplayer(cfg)

	t.Run("untracked category", func(t *testing.T) {
		c := testCase(ev(day(1, 9, 0), "assigned to design"))
		c.Category = model.CategoryTertiary
		assert.Empty(t, r.Replay(c, day(2, 9, 0)).Visits)
	})

	t.Run("predates tracking", func(t *testing.T) {
		c := testCase(ev(day(1, 9, 0), "assigned to design"))
		c.CreatedAt = cfg.Tracking.Since.AddDate(-1, 0, 0)
		assert.Empty(t, r.Replay(c, day(2, 9, 0)).Visits)
	})
}

func TestReplay_UnrecognizedEntriesIgnored(t *testing.T) {
	r := NewReplayer(model.DefaultConfig())
	c := testCase(
		ev(day(1, 9, 0), "note: patient called"),
		ev(day(1, 10, 0), "assigned to design"),
		ev(day(1, 11, 0), "shade adjusted by technician"),
		ev(day(1, 12, 0), "moved from design to nowhere"),
	)

	tl := r.Replay(c, day(2, 9, 0))
	require.Len(t, tl.Visits, 1)
	assert.Equal(t, model.StageDesign, tl.Visits[0].Stage)
	assert.True(t, tl.Visits[0].Open)
}

func TestReplay_StaleTagForceClose(t *testing.T) {
	r := NewReplayer(model.DefaultConfig())
	now := day(3, 9, 0)

	c := testCase(ev(day(1, 9, 0), "assigned to production"))
	c.Tags = []string{model.TagStagePrefix + "finishing"}

	tl := r.Replay(c, now)
	require.Len(t, tl.Visits, 1)
	assert.False(t, tl.Visits[0].Open)
	assert.True(t, tl.Visits[0].ForcedClosed)
	assert.Equal(t, now, tl.Visits[0].ExitedAt)
}

func TestReplay_TagMatchingOpenVisitStaysOpen(t *testing.T) {
	r := NewReplayer(model.DefaultConfig())
	c := testCase(ev(day(1, 9, 0), "assigned to production"))
	c.Tags = []string{model.TagStagePrefix + "production"}

	tl := r.Replay(c, day(3, 9, 0))
	require.NotNil(t, tl.OpenVisit())
	assert.Equal(t, model.StageProduction, tl.OpenVisit().Stage)
}

func TestReplay_Holds(t *testing.T) {
	r := NewReplayer(model.DefaultConfig())

	t.Run("paired", func(t *testing.T) {
		c := testCase(
			ev(day(1, 9, 0), "assigned to design"),
			ev(day(1, 10, 0), "hold added"),
			ev(day(1, 12, 0), "hold removed"),
		)
		tl := r.Replay(c, day(2, 9, 0))
		require.Len(t, tl.Holds, 1)
		assert.Equal(t, day(1, 10, 0), tl.Holds[0].Start)
		assert.Equal(t, day(1, 12, 0), tl.Holds[0].End)
	})

	t.Run("unclosed hold extends to now", func(t *testing.T) {
		now := day(2, 9, 0)
		c := testCase(
			ev(day(1, 9, 0), "assigned to design"),
			ev(day(1, 10, 0), "hold added"),
		)
		tl := r.Replay(c, now)
		require.Len(t, tl.Holds, 1)
		assert.Equal(t, now, tl.Holds[0].End)
	})
}

func TestReplay_FinishingCappedBySentForInspection(t *testing.T) {
	r := NewReplayer(model.DefaultConfig())
	c := testCase(
		ev(day(1, 9, 0), "assigned to finishing"),
		ev(day(2, 11, 0), "sent for inspection"),
		ev(day(4, 15, 0), "marked done"),
	)

	tl := r.Replay(c, day(5, 9, 0))
	require.Len(t, tl.Visits, 1)
	assert.Equal(t, model.StageFinishing, tl.Visits[0].Stage)
	assert.Equal(t, day(2, 11, 0), tl.Visits[0].ExitedAt)
	assert.False(t, tl.Visits[0].Open)
}

func TestReplay_ReworkVisitsSameStage(t *testing.T) {
	r := NewReplayer(model.DefaultConfig())
	c := testCase(
		ev(day(1, 9, 0), "assigned to design"),
		ev(day(1, 12, 0), "moved from design to production"),
		ev(day(2, 9, 0), "moved from production to design"),
		ev(day(2, 12, 0), "moved from design to production"),
	)

	tl := r.Replay(c, day(3, 9, 0))
	require.Len(t, tl.Visits, 4)
	assert.Equal(t, model.StageDesign, tl.Visits[0].Stage)
	assert.Equal(t, model.StageDesign, tl.Visits[2].Stage)
}

func TestReplay_DoneFlagWithoutDoneEvent(t *testing.T) {
	r := NewReplayer(model.DefaultConfig())
	c := testCase(ev(day(1, 9, 0), "assigned to inspection"))
	c.Done = true
	c.DoneAt = day(2, 10, 0)

	tl := r.Replay(c, day(3, 9, 0))
	require.Len(t, tl.Visits, 1)
	assert.False(t, tl.Visits[0].Open)
	assert.Equal(t, day(2, 10, 0), tl.Visits[0].ExitedAt)
}

func TestStageAt(t *testing.T) {
	r := NewReplayer(model.DefaultConfig())
	c := testCase(
		ev(day(1, 9, 0), "assigned to design"),
		ev(day(2, 9, 0), "moved from design to production"),
	)
	tl := r.Replay(c, day(3, 9, 0))

	s, ok := tl.StageAt(day(1, 15, 0))
	require.True(t, ok)
	assert.Equal(t, model.StageDesign, s)

	s, ok = tl.StageAt(day(2, 15, 0))
	require.True(t, ok)
	assert.Equal(t, model.StageProduction, s)

	_, ok = tl.StageAt(day(1, 8, 30))
	assert.False(t, ok)
}

func TestAdjustedWorkingMinutes(t *testing.T) {
	clock := workclock.New(model.WorkdayConfig{StartHour: 8, EndHour: 18, StepMinutes: 15}, time.UTC)
	now := day(2, 9, 0)

	visit := StageVisit{Stage: model.StageDesign, EnteredAt: day(1, 9, 0), ExitedAt: day(1, 13, 0)}

	t.Run("no holds", func(t *testing.T) {
		assert.Equal(t, 240.0, AdjustedWorkingMinutes(visit, nil, clock, now))
	})

	t.Run("hold subtracted", func(t *testing.T) {
		holds := []HoldPeriod{{Start: day(1, 10, 0), End: day(1, 11, 0)}}
		assert.Equal(t, 180.0, AdjustedWorkingMinutes(visit, holds, clock, now))
	})

	t.Run("hold covering whole visit clamps at zero", func(t *testing.T) {
		holds := []HoldPeriod{{Start: day(1, 8, 0), End: day(1, 18, 0)}}
		assert.Equal(t, 0.0, AdjustedWorkingMinutes(visit, holds, clock, now))
	})
}
