package orgdate

import (
	"testing"
	"time"
)

func mustRepeated(t *testing.T, text string) Repeated {
	t.Helper()
	v := scanOne(t, text)
	r, ok := v.(Repeated)
	if !ok {
		t.Fatalf("%q: expected Repeated, got %T", text, v)
	}
	return r
}

func TestNextDayUnit(t *testing.T) {
	r := mustRepeated(t, "<2011-09-12 Mon +3d>")
	if got := r.Next().String(); got != "<2011-09-15 Thu +3d>" {
		t.Fatalf("got %q", got)
	}
}

func TestNextWeekUnit(t *testing.T) {
	r := mustRepeated(t, "<2011-09-12 Mon +2w>")
	next := r.Next()
	if got := next.String(); got != "<2011-09-26 Mon +2w>" {
		t.Fatalf("got %q", got)
	}
	// A week repeater always advances exactly period*7 days.
	if d := next.Day().Sub(r.Day()); d != 14*24*time.Hour {
		t.Fatalf("advanced %v", d)
	}
}

func TestNextWeekdayUnitSkipsWeekend(t *testing.T) {
	// Friday +1wd lands on Saturday and must skip to Monday.
	r := mustRepeated(t, "<2011-09-16 Fri +1wd>")
	if got := r.Next().String(); got != "<2011-09-19 Mon +1wd>" {
		t.Fatalf("Saturday skip: got %q", got)
	}

	// Saturday +1wd lands on Sunday and must skip to Monday.
	r = mustRepeated(t, "<2011-09-17 Sat +1wd>")
	if got := r.Next().String(); got != "<2011-09-19 Mon +1wd>" {
		t.Fatalf("Sunday skip: got %q", got)
	}

	// A mid-week advance stays put.
	r = mustRepeated(t, "<2011-09-12 Mon +2wd>")
	if got := r.Next().String(); got != "<2011-09-14 Wed +2wd>" {
		t.Fatalf("mid-week: got %q", got)
	}
}

func TestNextWeekdayUnitNeverLandsOnWeekend(t *testing.T) {
	r := mustRepeated(t, "<2011-09-12 Mon +1wd>")
	for i := 0; i < 30; i++ {
		r = r.Next()
		wd := r.Day().Weekday()
		if wd == time.Saturday || wd == time.Sunday {
			t.Fatalf("iteration %d landed on %s (%s)", i, wd, r)
		}
	}
}

func TestNextMonthUnit(t *testing.T) {
	r := mustRepeated(t, "<2011-09-12 Mon +1m>")
	if got := r.Next().String(); got != "<2011-10-12 Wed +1m>" {
		t.Fatalf("got %q", got)
	}

	// Day of month is clamped to the target month's length.
	r = mustRepeated(t, "<2024-01-31 Wed +1m>")
	if got := r.Next().String(); got != "<2024-02-29 Thu +1m>" {
		t.Fatalf("clamp: got %q", got)
	}

	// Month arithmetic, not a 30-day approximation.
	r = mustRepeated(t, "<2011-12-15 Thu +2m>")
	if got := r.Next().String(); got != "<2012-02-15 Wed +2m>" {
		t.Fatalf("year wrap: got %q", got)
	}
}

func TestNextWeekdayMonthUnit(t *testing.T) {
	// 2011-09-12 is a Monday; +1m gives 2011-10-12 (Wednesday), which
	// aligns forward to the next Monday, 2011-10-17.
	r := mustRepeated(t, "<2011-09-12 Mon +1wm>")
	if got := r.Next().String(); got != "<2011-10-17 Mon +1wm>" {
		t.Fatalf("forward alignment: got %q", got)
	}

	// 2011-08-31 is a Wednesday; +1m gives 2011-09-30 (Friday). The
	// next Wednesday is 2011-10-05, outside the target month, so the
	// alignment goes backward to 2011-09-28.
	r = mustRepeated(t, "<2011-08-31 Wed +1wm>")
	if got := r.Next().String(); got != "<2011-09-28 Wed +1wm>" {
		t.Fatalf("backward alignment: got %q", got)
	}
}

func TestNextPreservesTimeOfDay(t *testing.T) {
	r := mustRepeated(t, "<2011-09-12 Mon 10:20 +1w>")
	if got := r.Next().String(); got != "<2011-09-19 Mon 10:20 +1w>" {
		t.Fatalf("got %q", got)
	}
}
