// Package orgdate contains the calendar value model used throughout the
// agenda: plain dates, date-times, time ranges and their repeated
// variants, together with text scanning, canonical rendering and the
// coercion of every value to a single comparable moment.
//
// There are three base kinds, each either active (<...>) or inactive
// ([...]):
//
//   - Date:      <2011-09-07 Wed>
//   - DateTime:  <2011-09-07 Wed 10:30>
//   - TimeRange: <2011-09-07 Wed>--<2011-09-08 Thu>
//     or same-day <2011-09-07 Wed 10:00-13:00>
//
// A Date or DateTime may additionally carry a repeater such as +1w,
// which is modeled by Repeated.
package orgdate

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidDate is returned by constructors when a field is outside the
// calendar-valid range (e.g. day 40). Candidate text matches that fail
// this way are treated as non-matches by the scanner.
var ErrInvalidDate = errors.New("invalid date")

// Value is the closed set of calendar values.
type Value interface {
	fmt.Stringer

	// Active reports whether this is an active timestamp (<...>) rather
	// than an inactive one ([...]). Only active values put an item on
	// the agenda.
	Active() bool

	// Day returns the value's calendar day as a UTC midnight instant.
	Day() time.Time

	// Moment coerces the value to a single comparable instant. A bare
	// Date maps to 23:59 of its day when the day is past, to now when
	// the day is today, and to 00:00 when the day is in the future, so
	// that day-only items sort after, around and before same-day timed
	// items respectively. Ranges map to their start.
	Moment(now time.Time) time.Time

	// WithDay returns a copy of the value with the date fields replaced
	// by day's, keeping the kind and any time-of-day fields.
	WithDay(day time.Time) Value

	// TimeLabel returns the clock portion for agenda rendering, or
	// "--:--" for values without one.
	TimeLabel() string

	isValue()
}

// DayOf normalizes t to the UTC midnight of its civil date. All day
// arithmetic in this package and in the scheduler goes through it so
// values built in different locations still compare by calendar day.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validDate(year int, month time.Month, day int) bool {
	if month < time.January || month > time.December {
		return false
	}
	if day < 1 {
		return false
	}
	// Last day of month: day 0 of the following month.
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return day <= last
}

// Date is a day-precision calendar value like <2011-08-29 Mon>.
type Date struct {
	year   int
	month  time.Month
	day    int
	active bool
}

// NewDate constructs a Date, rejecting calendar-invalid fields.
func NewDate(year int, month time.Month, day int, active bool) (Date, error) {
	if !validDate(year, month, day) {
		return Date{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, month, day)
	}
	return Date{year: year, month: month, day: day, active: active}, nil
}

func (d Date) isValue()     {}
func (d Date) Active() bool { return d.active }

// Fields returns the year, month and day of month.
func (d Date) Fields() (int, time.Month, int) { return d.year, d.month, d.day }

func (d Date) Day() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

func (d Date) Moment(now time.Time) time.Time {
	day := d.Day()
	today := DayOf(now)
	switch {
	case day.Before(today):
		return day.Add(23*time.Hour + 59*time.Minute)
	case day.Equal(today):
		// Sort today's day-only items around "now".
		return time.Date(d.year, d.month, d.day,
			now.Hour(), now.Minute(), now.Second(), 0, time.UTC)
	default:
		return day
	}
}

func (d Date) WithDay(day time.Time) Value {
	y, m, dd := day.Date()
	return Date{year: y, month: m, day: dd, active: d.active}
}

func (d Date) TimeLabel() string { return "--:--" }

func (d Date) String() string {
	if d.active {
		return "<" + d.body() + ">"
	}
	return "[" + d.body() + "]"
}

func (d Date) body() string {
	return d.Day().Format("2006-01-02 Mon")
}

// DateTime is a minute-precision calendar value like <2011-08-29 Mon 10:30>.
type DateTime struct {
	year   int
	month  time.Month
	day    int
	hour   int
	minute int
	active bool
}

// NewDateTime constructs a DateTime, rejecting calendar-invalid fields.
func NewDateTime(year int, month time.Month, day, hour, minute int, active bool) (DateTime, error) {
	if !validDate(year, month, day) || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return DateTime{}, fmt.Errorf("%w: %04d-%02d-%02d %02d:%02d",
			ErrInvalidDate, year, month, day, hour, minute)
	}
	return DateTime{year: year, month: month, day: day, hour: hour, minute: minute, active: active}, nil
}

func (d DateTime) isValue()     {}
func (d DateTime) Active() bool { return d.active }

// Fields returns the year, month and day of month.
func (d DateTime) Fields() (int, time.Month, int) { return d.year, d.month, d.day }

// Clock returns the hour and minute.
func (d DateTime) Clock() (int, int) { return d.hour, d.minute }

func (d DateTime) Day() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

func (d DateTime) Moment(time.Time) time.Time {
	return time.Date(d.year, d.month, d.day, d.hour, d.minute, 0, 0, time.UTC)
}

func (d DateTime) WithDay(day time.Time) Value {
	y, m, dd := day.Date()
	return DateTime{year: y, month: m, day: dd, hour: d.hour, minute: d.minute, active: d.active}
}

func (d DateTime) TimeLabel() string { return fmt.Sprintf("%02d:%02d", d.hour, d.minute) }

func (d DateTime) String() string {
	if d.active {
		return "<" + d.body() + ">"
	}
	return "[" + d.body() + "]"
}

func (d DateTime) body() string {
	return fmt.Sprintf("%s %02d:%02d", d.Day().Format("2006-01-02 Mon"), d.hour, d.minute)
}

// TimeRange spans from a start to an end value. Start and end are both
// Date or both DateTime, never mixed.
type TimeRange struct {
	active bool
	start  Value
	end    Value
}

// NewTimeRange constructs a TimeRange from two values of the same base
// kind. The range's own active flag controls rendering; the flags of
// start and end are ignored.
func NewTimeRange(start, end Value, active bool) (TimeRange, error) {
	switch start.(type) {
	case Date:
		if _, ok := end.(Date); !ok {
			return TimeRange{}, fmt.Errorf("%w: range mixes date and date-time", ErrInvalidDate)
		}
	case DateTime:
		if _, ok := end.(DateTime); !ok {
			return TimeRange{}, fmt.Errorf("%w: range mixes date and date-time", ErrInvalidDate)
		}
	default:
		return TimeRange{}, fmt.Errorf("%w: range endpoints must be dates or date-times", ErrInvalidDate)
	}
	return TimeRange{active: active, start: start, end: end}, nil
}

func (r TimeRange) isValue()     {}
func (r TimeRange) Active() bool { return r.active }

// Start returns the range's start value.
func (r TimeRange) Start() Value { return r.start }

// End returns the range's end value.
func (r TimeRange) End() Value { return r.end }

func (r TimeRange) Day() time.Time { return r.start.Day() }

func (r TimeRange) Moment(now time.Time) time.Time { return r.start.Moment(now) }

func (r TimeRange) WithDay(day time.Time) Value {
	// Shift both endpoints so the range keeps its length.
	delta := DayOf(day).Sub(r.start.Day())
	return TimeRange{
		active: r.active,
		start:  r.start.WithDay(r.start.Day().Add(delta)),
		end:    r.end.WithDay(r.end.Day().Add(delta)),
	}
}

// Duration returns the length of the range.
func (r TimeRange) Duration() time.Duration {
	// Endpoint moments do not depend on "now" for date-times; for
	// day-precision ranges the day difference is what matters.
	if s, ok := r.start.(DateTime); ok {
		return r.end.(DateTime).Moment(time.Time{}).Sub(s.Moment(time.Time{}))
	}
	return r.end.Day().Sub(r.start.Day())
}

func (r TimeRange) TimeLabel() string {
	s, ok := r.start.(DateTime)
	if !ok || !r.sameDay() {
		return "--:--"
	}
	e := r.end.(DateTime)
	return s.TimeLabel() + "-" + e.TimeLabel()
}

func (r TimeRange) sameDay() bool { return r.start.Day().Equal(r.end.Day()) }

func (r TimeRange) String() string {
	lb, rb := "<", ">"
	if !r.active {
		lb, rb = "[", "]"
	}
	if s, ok := r.start.(DateTime); ok && r.sameDay() {
		// Compact same-day form: <2011-09-12 Mon 10:00-13:00>
		return lb + s.body() + "-" + r.end.(DateTime).TimeLabel() + rb
	}
	var sb, eb string
	switch s := r.start.(type) {
	case DateTime:
		sb, eb = s.body(), r.end.(DateTime).body()
	case Date:
		sb, eb = s.body(), r.end.(Date).body()
	}
	return lb + sb + rb + "--" + lb + eb + rb
}
