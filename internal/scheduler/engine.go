package scheduler

import (
	"sort"
	"time"

	"orgenda/internal/agenda"
	"orgenda/internal/orgdate"
)

// Notification reasons passed to the Notify sink.
const (
	ReasonNoSlot   = "no free day with enough capacity"
	ReasonDeadline = "best achievable date is past the deadline"
)

// Engine replans the reschedulable items of one buffer. A run assumes
// exclusive access to the item set; callers must not interleave runs
// over overlapping items.
type Engine struct {
	Config Config

	// PriorityTags mark items as eligible for rescheduling.
	PriorityTags []string

	// Now supplies the current wall-clock time; time.Now when nil.
	Now func() time.Time

	// Notify receives non-fatal per-item warnings: unplaceable items
	// and soft deadline violations. Nil disables reporting.
	Notify func(item *agenda.Item, reason string)
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) report(it *agenda.Item, reason string) {
	if e.Notify != nil {
		e.Notify(it, reason)
	}
}

// Toggle flips an item's manual reschedule mark: an unmarked item is
// marked with its own active date, a marked one is cleared. Returns
// false when the item is not reschedulable.
func (e *Engine) Toggle(it *agenda.Item) bool {
	if !agenda.IsReschedulable(e.PriorityTags)(it) || it.Date == nil {
		return false
	}
	if it.Rescheduled != nil {
		it.Rescheduled = nil
	} else {
		it.Rescheduled = it.Date
	}
	return true
}

// MarkOverdue marks every reschedulable item whose day has already
// passed, so a following Reschedule sweeps the backlog forward. Returns
// the number of items marked.
func (e *Engine) MarkOverdue(items []*agenda.Item) int {
	today := orgdate.DayOf(e.now())
	marked := 0
	reschedulable := agenda.IsReschedulable(e.PriorityTags)
	for _, it := range items {
		if it.Date == nil || !it.Date.Active() || !reschedulable(it) {
			continue
		}
		if it.Rescheduled == nil && it.Date.Day().Before(today) {
			it.Rescheduled = it.Date
			marked++
		}
	}
	return marked
}

// Reschedule replans one buffer's items in place. Items that must move
// (manually marked, past, on blocked days or inside holidays) receive a
// new date within capacity; items blocked by a parent deadline are
// placed first against the capacity left by everything staying put,
// then the remaining movers fill what is left. Items that cannot be
// placed keep an unset mark and are reported through Notify.
func (e *Engine) Reschedule(items []*agenda.Item) {
	items = agenda.Apply(items, agenda.HasActiveDate)
	now := e.now()
	today := orgdate.DayOf(now)

	// Baseline: earliest active day among manually marked items. With
	// no marked item there is nothing forcing a replan.
	var baseline time.Time
	haveBaseline := false
	for _, it := range items {
		if it.Rescheduled == nil {
			continue
		}
		if d := it.Date.Day(); !haveBaseline || d.Before(baseline) {
			baseline, haveBaseline = d, true
		}
	}
	if !haveBaseline {
		return
	}

	hasToMove := func(it *agenda.Item) bool {
		return it.Rescheduled != nil || e.dayUnavailable(it.Date.Day(), today)
	}

	urgentSelected := false
	for _, it := range items {
		if hasToMove(it) && it.Deadline != nil {
			urgentSelected = true
			break
		}
	}

	reschedulable := agenda.IsReschedulable(e.PriorityTags)
	toMove := func(it *agenda.Item) bool {
		if !reschedulable(it) {
			return false
		}
		if urgentSelected && it.Deadline != nil && it.Date.Day().After(baseline) {
			return true
		}
		return hasToMove(it)
	}

	// Pass A: place deadline-bound movers against the capacity left by
	// everything that stays, ordered by deadline then own moment.
	var fixed, urgent, nonUrgent []*agenda.Item
	for _, it := range items {
		switch {
		case !toMove(it):
			fixed = append(fixed, it)
		case it.Deadline != nil:
			urgent = append(urgent, it)
		default:
			nonUrgent = append(nonUrgent, it)
		}
	}
	sort.SliceStable(urgent, func(i, j int) bool {
		di, dj := urgent[i].Deadline.Moment(now), urgent[j].Deadline.Moment(now)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return urgent[i].Date.Moment(now).Before(urgent[j].Date.Moment(now))
	})

	caps := e.computeAvailableCapacity(fixed, baseline,
		func(it *agenda.Item) orgdate.Value { return it.Date }, today)
	e.assign(urgent, caps, now, today)

	// Pass B: recompute capacity from everything now holding a date
	// (fixed items plus the placed urgent ones, each at its current
	// best date) and place the remaining movers.
	committed := make([]*agenda.Item, 0, len(fixed)+len(urgent))
	committed = append(committed, fixed...)
	committed = append(committed, urgent...)
	caps = e.computeAvailableCapacity(committed, baseline,
		func(it *agenda.Item) orgdate.Value { return it.CurrentDate() }, today)
	e.assign(nonUrgent, caps, now, today)
}

// canPlaceOn decides item→day eligibility.
func (e *Engine) canPlaceOn(it *agenda.Item, day, today time.Time) bool {
	if allowed := e.Config.AllowedTags[weekdayIndex(day)]; allowed != nil {
		ok := false
		for _, tag := range allowed {
			if it.HasTag(tag) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	current := it.Date.Day()
	if day.Equal(current) {
		// Re-confirming the current day is only meaningful for a
		// deadline-forced move without a manual mark.
		if it.Deadline == nil || it.Rescheduled != nil {
			return false
		}
	}
	// Never pull a future item onto today.
	if day.Equal(today) && !current.Before(today) {
		return false
	}
	if e.Config.StrictDeadlines && it.Deadline != nil && day.After(it.Deadline.Day()) {
		return false
	}
	return true
}

// assign walks the capacity days in order and, per day, picks the
// feasible subset of still-pending items maximizing the number placed.
// Whatever remains after the last day is reported as unplaceable.
func (e *Engine) assign(batch []*agenda.Item, caps []dayCapacity, now, today time.Time) {
	pending := append([]*agenda.Item(nil), batch...)
	for _, dc := range caps {
		if len(pending) == 0 {
			break
		}
		var cands []int
		var weights [][]int
		for i, it := range pending {
			if !e.canPlaceOn(it, dc.day, today) {
				continue
			}
			cands = append(cands, i)
			weights = append(weights, e.weightOf(it))
		}
		if len(cands) == 0 {
			continue
		}
		placed := maxCountSubset(weights, dc.remaining)
		if len(placed) == 0 {
			continue
		}
		taken := make(map[int]bool, len(placed))
		for _, ci := range placed {
			it := pending[cands[ci]]
			e.commit(it, dc.day, now)
			taken[cands[ci]] = true
		}
		rest := pending[:0]
		for i, it := range pending {
			if !taken[i] {
				rest = append(rest, it)
			}
		}
		pending = rest
	}
	for _, it := range pending {
		e.report(it, ReasonNoSlot)
	}
}

// commit records the assignment. Landing back on the item's own day
// clears any previous mark instead of setting one; a resulting date
// past the item's deadline is reported but kept.
func (e *Engine) commit(it *agenda.Item, day, now time.Time) {
	if day.Equal(it.Date.Day()) {
		it.Rescheduled = nil
	} else {
		it.Rescheduled = it.CurrentDate().WithDay(day)
	}
	if it.Deadline != nil && it.CurrentDate().Moment(now).After(it.Deadline.Moment(now)) {
		e.report(it, ReasonDeadline)
	}
}
