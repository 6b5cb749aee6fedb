// Package agenda builds time-ordered agenda views over the work items
// collected from a set of org documents. Views are read-only; the only
// mutable slot on an item is its Rescheduled date, which is owned by the
// scheduler.
package agenda

import (
	"orgenda/internal/orgdate"
)

// Location points back at the source line an item was scanned from. It
// is owned by the document layer and never modified here.
type Location struct {
	File string
	Line int
}

// Item is one heading-like work item.
type Item struct {
	Title    string
	Todo     string
	Tags     []string
	Date     orgdate.Value // active timestamp putting the item on the agenda
	Deadline orgdate.Value // nearest own-or-ancestor deadline
	Source   Location

	// Repeated marks a synthetic occurrence generated from a repeater
	// during view building. Such occurrences are never rescheduled.
	Repeated bool

	// Rescheduled is the item's pending new date. It is nil until the
	// scheduler assigns one or the user toggles a manual mark, and is
	// cleared again when the assignment resolves back to the original
	// day.
	Rescheduled orgdate.Value
}

// HasTag reports whether the item carries the given tag.
func (it *Item) HasTag(tag string) bool {
	for _, t := range it.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// CurrentDate returns the item's effective date: the rescheduled one
// when set, otherwise the original active date.
func (it *Item) CurrentDate() orgdate.Value {
	if it.Rescheduled != nil {
		return it.Rescheduled
	}
	return it.Date
}

// occurrence returns a synthetic copy representing one future
// occurrence of a repeating item.
func (it *Item) occurrence(date orgdate.Value) *Item {
	dup := *it
	dup.Date = date
	dup.Repeated = true
	dup.Rescheduled = nil
	return &dup
}
