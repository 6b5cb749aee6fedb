package agenda

import (
	"sort"
	"time"

	"orgenda/internal/orgdate"
)

// nextWeekHorizonDays bounds the "next week" view: items before
// midnight eight days out are included.
const nextWeekHorizonDays = 8

// maxOccurrencesPerItem caps repeater expansion so a pathological
// period can never grow a view without bound.
const maxOccurrencesPerItem = 1000

// Document exposes the items of one loaded org document.
type Document interface {
	AllHeadings() []*Item
}

// Manager builds the agenda views. All views are pure: they return
// freshly sorted slices and never mutate the items.
type Manager struct {
	// Now supplies the current wall-clock time; time.Now when nil.
	Now func() time.Time

	// ActiveStates are the todo keywords that count as "active".
	ActiveStates []string
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// AllTodos returns every item carrying an active todo state, sorted by
// moment.
func (m *Manager) AllTodos(docs []Document) []*Item {
	now := m.now()
	var out []*Item
	for _, doc := range docs {
		out = append(out, Apply(doc.AllHeadings(), HasActiveTodo(m.ActiveStates))...)
	}
	return sortByMoment(out, now)
}

// ActiveTodos returns every item with both an active todo state and an
// active date. Repeating items are expanded with synthetic occurrences
// up to the latest moment found in the same document, so recurring work
// is visible as far out as the rest of the schedule reaches.
func (m *Manager) ActiveTodos(docs []Document) []*Item {
	now := m.now()
	var out []*Item
	for _, doc := range docs {
		filtered := Apply(doc.AllHeadings(), HasActiveTodo(m.ActiveStates), HasActiveDate)
		if len(filtered) == 0 {
			continue
		}
		maxMoment := filtered[0].Date.Moment(now)
		for _, it := range filtered[1:] {
			if mom := it.Date.Moment(now); mom.After(maxMoment) {
				maxMoment = mom
			}
		}
		filtered = expandRepeating(filtered, func(it *Item) bool {
			return it.Date.Moment(now).Before(maxMoment)
		})
		out = append(out, filtered...)
	}
	return sortByMoment(out, now)
}

// NextWeek returns the active todos due within the next-week horizon,
// expanding repeating items while their occurrences stay inside it.
func (m *Manager) NextWeek(docs []Document) []*Item {
	return m.Upcoming(docs, nextWeekHorizonDays)
}

// Upcoming is NextWeek with a caller-chosen horizon.
func (m *Manager) Upcoming(docs []Document, horizonDays int) []*Item {
	now := m.now()
	within := WithinDays(now, horizonDays)
	var out []*Item
	for _, doc := range docs {
		filtered := Apply(doc.AllHeadings(),
			HasActiveTodo(m.ActiveStates), HasActiveDate, within)
		filtered = expandRepeating(filtered, within)
		out = append(out, filtered...)
	}
	return sortByMoment(out, now)
}

// Timestamped returns every item with an active date, sorted by moment.
func (m *Manager) Timestamped(docs []Document) []*Item {
	now := m.now()
	var out []*Item
	for _, doc := range docs {
		out = append(out, Apply(doc.AllHeadings(), HasActiveDate)...)
	}
	return sortByMoment(out, now)
}

// expandRepeating appends synthetic future occurrences for every
// repeating item in items, advancing each repeater while the new
// occurrence still satisfies keep.
func expandRepeating(items []*Item, keep Filter) []*Item {
	for _, it := range Apply(items, IsRepeating) {
		items = append(items, expandOne(it, keep)...)
	}
	return items
}

func expandOne(it *Item, keep Filter) []*Item {
	var out []*Item
	rep := it.Date.(orgdate.Repeated)
	for i := 0; i < maxOccurrencesPerItem; i++ {
		rep = rep.Next()
		next := it.occurrence(rep)
		if !keep(next) {
			break
		}
		out = append(out, next)
	}
	return out
}

// sortByMoment sorts items by their coerced moment. The sort is stable
// so items sharing a moment keep their document and source order.
// Items without a date sort first via the zero time.
func sortByMoment(items []*Item, now time.Time) []*Item {
	sort.SliceStable(items, func(i, j int) bool {
		return momentOf(items[i], now).Before(momentOf(items[j], now))
	})
	return items
}

func momentOf(it *Item, now time.Time) time.Time {
	if it.Date == nil {
		return time.Time{}
	}
	return it.Date.Moment(now)
}
