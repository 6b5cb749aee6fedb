package orgdate

import (
	"fmt"
	"strconv"
	"time"
)

// Unit selects how a repeater advances its base value.
type Unit string

const (
	// UnitDay advances by whole days.
	UnitDay Unit = "d"
	// UnitWeekdayDay advances by whole days and then skips a weekend
	// landing forward to the following Monday.
	UnitWeekdayDay Unit = "wd"
	// UnitWeek advances by whole weeks.
	UnitWeek Unit = "w"
	// UnitMonth advances by calendar months, clamping the day of month
	// to the target month's length.
	UnitMonth Unit = "m"
	// UnitWeekdayMonth advances by calendar months and then aligns to
	// the base value's weekday: forward when that stays inside the
	// target month, otherwise backward.
	UnitWeekdayMonth Unit = "wm"
)

// ParseUnit maps a repeater suffix to its Unit.
func ParseUnit(s string) (Unit, error) {
	switch Unit(s) {
	case UnitDay, UnitWeekdayDay, UnitWeek, UnitMonth, UnitWeekdayMonth:
		return Unit(s), nil
	}
	return "", fmt.Errorf("%w: unknown repeater unit %q", ErrInvalidDate, s)
}

// Repeated wraps a Date or DateTime with a repeater like +1w. The base
// value is the current occurrence; Next produces the following one.
type Repeated struct {
	base   Value
	period int
	unit   Unit
}

// NewRepeated constructs a Repeated over a Date or DateTime base.
func NewRepeated(base Value, period int, unit Unit) (Repeated, error) {
	switch base.(type) {
	case Date, DateTime:
	default:
		return Repeated{}, fmt.Errorf("%w: repeater base must be a date or date-time", ErrInvalidDate)
	}
	if period < 1 {
		return Repeated{}, fmt.Errorf("%w: repeater period %d", ErrInvalidDate, period)
	}
	if _, err := ParseUnit(string(unit)); err != nil {
		return Repeated{}, err
	}
	return Repeated{base: base, period: period, unit: unit}, nil
}

func (r Repeated) isValue()     {}
func (r Repeated) Active() bool { return r.base.Active() }

// Base returns the current occurrence.
func (r Repeated) Base() Value { return r.base }

// Period returns the repeater period.
func (r Repeated) Period() int { return r.period }

// Unit returns the repeater unit.
func (r Repeated) Unit() Unit { return r.unit }

func (r Repeated) Day() time.Time                  { return r.base.Day() }
func (r Repeated) Moment(now time.Time) time.Time  { return r.base.Moment(now) }
func (r Repeated) TimeLabel() string               { return r.base.TimeLabel() }

func (r Repeated) WithDay(day time.Time) Value {
	return Repeated{base: r.base.WithDay(day), period: r.period, unit: r.unit}
}

func (r Repeated) String() string {
	s := r.base.String()
	marker := " +" + strconv.Itoa(r.period) + string(r.unit)
	// The repeater sits inside the closing bracket:
	// <2011-09-12 Mon +1w>
	return s[:len(s)-1] + marker + s[len(s)-1:]
}

// Next returns the repeater advanced by one period.
func (r Repeated) Next() Repeated {
	day := r.base.Day()
	var next time.Time
	switch r.unit {
	case UnitDay:
		next = day.AddDate(0, 0, r.period)
	case UnitWeekdayDay:
		next = day.AddDate(0, 0, r.period)
		switch next.Weekday() {
		case time.Saturday:
			next = next.AddDate(0, 0, 2)
		case time.Sunday:
			next = next.AddDate(0, 0, 1)
		}
	case UnitWeek:
		next = day.AddDate(0, 0, 7*r.period)
	case UnitMonth:
		next = addMonthsClamped(day, r.period)
	case UnitWeekdayMonth:
		next = addMonthsClamped(day, r.period)
		// Align forward to the base's weekday; when that would leave
		// the target month, align backward instead.
		delta := (int(day.Weekday()) - int(next.Weekday()) + 7) % 7
		aligned := next.AddDate(0, 0, delta)
		if aligned.Month() != next.Month() {
			aligned = aligned.AddDate(0, 0, -7)
		}
		next = aligned
	}
	return Repeated{base: r.base.WithDay(next), period: r.period, unit: r.unit}
}

// addMonthsClamped adds months preserving the day of month, clamping to
// the last day of the target month (2024-01-31 +1m is 2024-02-29).
// time.Time.AddDate would normalize such overflows into the next month.
func addMonthsClamped(day time.Time, months int) time.Time {
	y, m, d := day.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}
