package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCase_Deadline_EndOfDueDate(t *testing.T) {
	c := &Case{DueDate: time.Date(2024, 3, 8, 14, 30, 0, 0, time.UTC)}

	// Late starts at midnight after the due date, not at its start.
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), c.Deadline())

	done := time.Date(2024, 3, 8, 23, 59, 0, 0, time.UTC)
	assert.False(t, done.After(c.Deadline()))
}

func TestCase_Tags(t *testing.T) {
	c := &Case{Tags: []string{TagRush, TagExcludeStagePrefix + "finishing", TagStagePrefix + "production"}}

	assert.True(t, c.Expedited())
	assert.False(t, c.ExcludedAll())
	assert.True(t, c.ExcludedForStage(StageFinishing))
	assert.False(t, c.ExcludedForStage(StageDesign))

	stage, ok := c.CurrentStage()
	require.True(t, ok)
	assert.Equal(t, StageProduction, stage)
}

func TestCase_CurrentStage_NoTag(t *testing.T) {
	c := &Case{Tags: []string{TagExpedite}}
	_, ok := c.CurrentStage()
	assert.False(t, ok)
}

func TestVelocityConfig_LoadFactorBands(t *testing.T) {
	cfg := DefaultConfig().Velocity

	tests := []struct {
		active int
		want   float64
	}{
		{0, 0.9},
		{1, 1.0},
		{5, 1.0},
		{6, 1.1},
		{12, 1.25},
		{18, 1.4},
		{25, 1.7},
		{31, 2.0},
		{500, 2.0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cfg.LoadFactor(tt.active), "active=%d", tt.active)
	}
}

func TestVelocityConfig_LoadFactor_NoBands(t *testing.T) {
	assert.Equal(t, 1.0, VelocityConfig{}.LoadFactor(7))
}

func TestTrackingConfig_Tracked(t *testing.T) {
	cfg := DefaultConfig().Tracking
	assert.True(t, cfg.Tracked(CategoryGeneral))
	assert.False(t, cfg.Tracked(Category("veterinary")))
}
