// Package scheduler reassigns dates to overdue or manually flagged
// agenda items under per-day capacity budgets, weekday tag eligibility,
// holiday blackouts and deadlines. It mutates only each item's
// Rescheduled slot; writing accepted dates back into documents is the
// caller's job.
package scheduler

import (
	"time"
)

// DateRange is an inclusive blackout range of calendar days, both ends
// at UTC midnight.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether day falls inside the range.
func (r DateRange) Contains(day time.Time) bool {
	return !day.Before(r.Start) && !day.After(r.End)
}

// Config carries one buffer's scheduling rules.
type Config struct {
	// AllowedTags restricts which items may be placed on each weekday,
	// Monday first. A nil entry means the day is unrestricted; an empty
	// entry blocks the day entirely; otherwise an item needs at least
	// one of the listed tags to land there.
	AllowedTags [7][]string

	// StoryPoints maps a tag to its weight per capacity dimension. An
	// item's weight is the sum over its tags; tags without an entry and
	// dimensions beyond a tag's vector count as zero.
	StoryPoints map[string][]int

	// MaxCapacity is the daily budget per dimension.
	MaxCapacity []int

	// Holidays are blackout ranges where nothing is scheduled.
	Holidays []DateRange

	// StrictDeadlines additionally refuses target days after an item's
	// own deadline. Kept as an option: the current engine treats a
	// missed deadline as a reported soft violation instead.
	StrictDeadlines bool
}

// weekdayIndex maps a day to the Monday-first index used by AllowedTags.
func weekdayIndex(day time.Time) int {
	return (int(day.Weekday()) + 6) % 7
}
