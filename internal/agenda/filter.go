package agenda

import (
	"time"

	"orgenda/internal/orgdate"
)

// Filter is a predicate over a single item.
type Filter func(*Item) bool

// Apply runs the filters in sequence over items, dropping an item as
// soon as one filter rejects it.
func Apply(items []*Item, filters ...Filter) []*Item {
	out := make([]*Item, 0, len(items))
next:
	for _, it := range items {
		for _, f := range filters {
			if !f(it) {
				continue next
			}
		}
		out = append(out, it)
	}
	return out
}

// HasActiveDate keeps items carrying an active timestamp.
func HasActiveDate(it *Item) bool {
	return it.Date != nil && it.Date.Active()
}

// HasActiveTodo keeps items whose todo keyword is one of the given
// active states.
func HasActiveTodo(active []string) Filter {
	return func(it *Item) bool {
		if it.Todo == "" {
			return false
		}
		for _, s := range active {
			if it.Todo == s {
				return true
			}
		}
		return false
	}
}

// IsRepeating keeps items whose active date carries a repeater.
func IsRepeating(it *Item) bool {
	if !HasActiveDate(it) {
		return false
	}
	_, ok := it.Date.(orgdate.Repeated)
	return ok
}

// WithinDays keeps items whose active date's moment falls before
// midnight `days` days from now.
func WithinDays(now time.Time, days int) Filter {
	limit := orgdate.DayOf(now).AddDate(0, 0, days)
	return func(it *Item) bool {
		if !HasActiveDate(it) {
			return false
		}
		return it.Date.Moment(now).Before(limit)
	}
}

// IsReschedulable keeps items eligible for date reassignment: the item
// carries at least one of the priority tags and is not repeating.
func IsReschedulable(priorityTags []string) Filter {
	return func(it *Item) bool {
		if it.Repeated || IsRepeating(it) {
			return false
		}
		for _, tag := range priorityTags {
			if it.HasTag(tag) {
				return true
			}
		}
		return false
	}
}
