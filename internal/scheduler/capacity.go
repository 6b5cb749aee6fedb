package scheduler

import (
	"time"

	"orgenda/internal/agenda"
	"orgenda/internal/orgdate"
)

// capacityExtensionDays is how far the capacity sequence reaches past
// the last committed item, so the assignment step always has forward
// room even when the existing schedule is light.
const capacityExtensionDays = 31

// dayCapacity is one schedulable day and its remaining budget vector.
type dayCapacity struct {
	day       time.Time
	remaining []int
}

// weightOf sums the story-point vectors of the item's tags into one
// weight per capacity dimension.
func (e *Engine) weightOf(it *agenda.Item) []int {
	w := make([]int, len(e.Config.MaxCapacity))
	for _, tag := range it.Tags {
		sp, ok := e.Config.StoryPoints[tag]
		if !ok {
			continue
		}
		for i, v := range sp {
			if i < len(w) {
				w[i] += v
			}
		}
	}
	return w
}

// dayUnavailable reports whether day cannot host newly scheduled work:
// it is past, its weekday is fully blocked, or it falls in a holiday.
func (e *Engine) dayUnavailable(day, today time.Time) bool {
	if day.Before(today) {
		return true
	}
	if tags := e.Config.AllowedTags[weekdayIndex(day)]; tags != nil && len(tags) == 0 {
		return true
	}
	for _, h := range e.Config.Holidays {
		if h.Contains(day) {
			return true
		}
	}
	return false
}

// computeAvailableCapacity walks forward day by day from the day after
// baseline, giving every day its full budget (zero on unavailable days),
// subtracting the weight of each fixed item on its day, and clamping
// every dimension at zero. The sequence extends capacityExtensionDays
// past the last fixed item. dateOf selects which date a fixed item
// occupies (original or current best, depending on the pass).
func (e *Engine) computeAvailableCapacity(fixed []*agenda.Item, baseline time.Time,
	dateOf func(*agenda.Item) orgdate.Value, today time.Time) []dayCapacity {

	dims := len(e.Config.MaxCapacity)
	consumed := make(map[time.Time][]int)
	lastDay := baseline
	for _, it := range fixed {
		v := dateOf(it)
		if v == nil {
			continue
		}
		day := v.Day()
		if !day.After(baseline) {
			continue
		}
		c := consumed[day]
		if c == nil {
			c = make([]int, dims)
			consumed[day] = c
		}
		for i, w := range e.weightOf(it) {
			c[i] += w
		}
		if day.After(lastDay) {
			lastDay = day
		}
	}

	end := lastDay.AddDate(0, 0, capacityExtensionDays)
	var caps []dayCapacity
	for day := baseline.AddDate(0, 0, 1); !day.After(end); day = day.AddDate(0, 0, 1) {
		remaining := make([]int, dims)
		if !e.dayUnavailable(day, today) {
			copy(remaining, e.Config.MaxCapacity)
		}
		if c, ok := consumed[day]; ok {
			for i := range remaining {
				remaining[i] -= c[i]
				if remaining[i] < 0 {
					remaining[i] = 0
				}
			}
		}
		caps = append(caps, dayCapacity{day: day, remaining: remaining})
	}
	return caps
}
