package store

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/model"
)

// Seed populates the store with a synthetic case population for demos and
// local development: completed cases with plausible stage histories across
// every category, a handful of expedited ones, and a few still in flight.
func (s *Store) Seed(ctx context.Context, cfg *model.Config, n int, seed int64) error {
	rng := rand.New(rand.NewSource(seed))
	now := time.Now().UTC()

	categories := cfg.Tracking.Categories
	stages := cfg.Tracking.Stages

	for i := 0; i < n; i++ {
		created := now.AddDate(0, 0, -(7 + rng.Intn(60)))
		// Align to a weekday morning so stage durations land inside the
		// working window.
		for created.Weekday() == time.Saturday || created.Weekday() == time.Sunday {
			created = created.AddDate(0, 0, 1)
		}
		created = time.Date(created.Year(), created.Month(), created.Day(), 9, 0, 0, 0, time.UTC)

		c := &model.Case{
			ID:        uuid.NewString(),
			Category:  categories[rng.Intn(len(categories))],
			CreatedAt: created,
			DueDate:   created.AddDate(0, 0, 7+rng.Intn(10)),
		}
		if rng.Intn(6) == 0 {
			c.Tags = append(c.Tags, model.TagExpedite)
			c.DueDate = created.AddDate(0, 0, 3+rng.Intn(3))
		}

		at := created
		prev := "intake"
		completedStages := len(stages)
		active := rng.Intn(5) == 0
		if active {
			completedStages = 1 + rng.Intn(len(stages))
		}
		for j := 0; j < completedStages; j++ {
			stage := stages[j]
			c.Events = append(c.Events, model.EventEntry{
				At: at, Action: fmt.Sprintf("moved from %s to %s", prev, stage),
			})
			prev = string(stage)
			at = nextWorkingInstant(at, time.Duration(30+rng.Intn(600))*time.Minute)
			if active && j == completedStages-1 {
				c.Tags = append(c.Tags, model.TagStagePrefix+string(stage))
				break
			}
		}
		if !active {
			c.Events = append(c.Events, model.EventEntry{At: at, Action: "marked done"})
			c.Done = true
			c.DoneAt = at
		}

		if err := s.PutCase(ctx, c); err != nil {
			return fmt.Errorf("seed case %d: %w", i, err)
		}
	}
	return nil
}

// nextWorkingInstant advances by d, spilling past 18:00 onto the next
// weekday morning.
func nextWorkingInstant(t time.Time, d time.Duration) time.Time {
	t = t.Add(d)
	for {
		switch {
		case t.Weekday() == time.Saturday || t.Weekday() == time.Sunday:
			t = time.Date(t.Year(), t.Month(), t.Day(), 9, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
		case t.Hour() >= 18:
			t = time.Date(t.Year(), t.Month(), t.Day(), 9, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
		case t.Hour() < 8:
			t = time.Date(t.Year(), t.Month(), t.Day(), 9, 0, 0, 0, t.Location())
		default:
			return t
		}
	}
}
