package holiday

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "orgenda/internal/log"
	"orgenda/internal/scheduler"
)

// maxOccurrencesPerEvent caps recurrence expansion per event so a
// malformed rule cannot blow up the window.
const maxOccurrencesPerEvent = 500

// Ranges expands holiday events into inclusive day ranges within the
// given window. Recurring events (annual public holidays, typically)
// are expanded through their RRULE with EXDATEs removed; every
// occurrence keeps the base event's day span.
func Ranges(events []Event, windowStart, windowEnd time.Time) ([]scheduler.DateRange, error) {
	if windowEnd.Before(windowStart) {
		return nil, errors.New("holiday window end is before its start")
	}

	ranges := make([]scheduler.DateRange, 0, len(events))
	for _, ev := range events {
		spanDays := eventSpanDays(ev)
		if ev.RawRRule == "" {
			r := rangeFrom(ev.Start, spanDays)
			if r.End.Before(windowStart) || r.Start.After(windowEnd) {
				continue
			}
			ranges = append(ranges, r)
			continue
		}

		r, err := rrule.StrToRRule(ev.RawRRule)
		if err != nil {
			appLog.Error("holiday rrule parse failed", err, "uid", ev.UID, "rrule", ev.RawRRule)
			continue
		}
		r.DTStart(ev.Start)

		var set rrule.Set
		set.RRule(r)
		for _, ex := range ev.ExDates {
			set.ExDate(ex.In(ev.Start.Location()))
		}

		occs := set.Between(windowStart.In(ev.Start.Location()), windowEnd.In(ev.Start.Location()), true)
		if len(occs) > maxOccurrencesPerEvent {
			occs = occs[:maxOccurrencesPerEvent]
			appLog.Error("holiday expansion truncated", errors.New("max occurrences reached"),
				"uid", ev.UID, "cap", maxOccurrencesPerEvent)
		}
		for _, occ := range occs {
			ranges = append(ranges, rangeFrom(occ, spanDays))
		}
	}

	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start.Before(ranges[j].Start) })
	return ranges, nil
}

// eventSpanDays is the number of calendar days an event covers. DTEND
// is exclusive for all-day events, so a one-day holiday has a 24h span.
func eventSpanDays(ev Event) int {
	if ev.End.IsZero() || !ev.End.After(ev.Start) {
		return 1
	}
	days := int(ev.End.Sub(ev.Start).Hours() / 24)
	if !ev.AllDay {
		// A timed event still blocks every day it touches.
		days++
	}
	if days < 1 {
		days = 1
	}
	return days
}

// rangeFrom builds an inclusive day range of spanDays starting at the
// calendar day of t, normalized to UTC midnights.
func rangeFrom(t time.Time, spanDays int) scheduler.DateRange {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return scheduler.DateRange{
		Start: start,
		End:   start.AddDate(0, 0, spanDays-1),
	}
}

// Resolve fetches and parses every feed and returns the combined day
// ranges within the window. Individual feed failures are logged by the
// fetcher and skipped; an empty result with no error means no feed
// contributed holidays.
func Resolve(ctx context.Context, f *Fetcher, feeds []Feed, windowStart, windowEnd time.Time) ([]scheduler.DateRange, error) {
	results, _ := f.FetchAll(ctx, feeds)

	var all []scheduler.DateRange
	for _, res := range results {
		events, err := Parse(res.Feed, res.Body)
		if err != nil {
			continue
		}
		ranges, err := Ranges(events, windowStart, windowEnd)
		if err != nil {
			return nil, err
		}
		all = append(all, ranges...)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Start.Before(all[j].Start) })
	return all, nil
}
