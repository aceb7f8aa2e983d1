package repo

import (
	"context"
	"time"

	"github.com/leadline-ai/engine/internal/agent/model"
)

// StaticCalendar offers weekday morning/afternoon interview slots. It stands
// in for a real scheduling backend behind the Calendar contract.
type StaticCalendar struct {
	SlotHours []int // local start hours, e.g. 10 and 14
}

func NewStaticCalendar() *StaticCalendar {
	return &StaticCalendar{SlotHours: []int{10, 14}}
}

func (c *StaticCalendar) Available(ctx context.Context, from time.Time, days int) ([]model.Slot, error) {
	if days <= 0 {
		days = 5
	}

	var slots []model.Slot
	day := from
	for added := 0; added < days; {
		day = day.AddDate(0, 0, 1)
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		for _, h := range c.SlotHours {
			start := time.Date(day.Year(), day.Month(), day.Day(), h, 0, 0, 0, day.Location())
			slots = append(slots, model.Slot{Start: start, End: start.Add(45 * time.Minute)})
		}
		added++
	}
	return slots, nil
}

var _ model.Calendar = (*StaticCalendar)(nil)
