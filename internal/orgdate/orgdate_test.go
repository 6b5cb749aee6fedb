package orgdate

import (
	"errors"
	"testing"
	"time"
)

func mustDate(t *testing.T, y int, m time.Month, d int) Date {
	t.Helper()
	v, err := NewDate(y, m, d, true)
	if err != nil {
		t.Fatalf("NewDate(%d, %d, %d): %v", y, m, d, err)
	}
	return v
}

func TestNewDateRejectsInvalidFields(t *testing.T) {
	tests := []struct {
		y int
		m time.Month
		d int
	}{
		{2011, 9, 40},
		{2011, 13, 1},
		{2011, 0, 1},
		{2011, 9, 0},
		{2023, 2, 29}, // not a leap year
	}
	for _, tc := range tests {
		if _, err := NewDate(tc.y, tc.m, tc.d, true); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("NewDate(%d, %d, %d): expected ErrInvalidDate, got %v", tc.y, tc.m, tc.d, err)
		}
	}
	if _, err := NewDate(2024, 2, 29, true); err != nil {
		t.Fatalf("leap day rejected: %v", err)
	}
}

func TestNewDateTimeRejectsInvalidClock(t *testing.T) {
	if _, err := NewDateTime(2011, 9, 12, 24, 0, true); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("hour 24: expected ErrInvalidDate, got %v", err)
	}
	if _, err := NewDateTime(2011, 9, 12, 10, 60, true); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("minute 60: expected ErrInvalidDate, got %v", err)
	}
}

func TestNewTimeRangeRejectsMixedKinds(t *testing.T) {
	d := mustDate(t, 2011, 9, 12)
	dt, _ := NewDateTime(2011, 9, 12, 10, 0, true)
	if _, err := NewTimeRange(d, dt, true); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestDateMomentCoercion(t *testing.T) {
	now := time.Date(2011, 9, 12, 14, 30, 5, 0, time.UTC)

	past := mustDate(t, 2011, 9, 10).Moment(now)
	if want := time.Date(2011, 9, 10, 23, 59, 0, 0, time.UTC); !past.Equal(want) {
		t.Fatalf("past day: got %v, want %v", past, want)
	}

	today := mustDate(t, 2011, 9, 12).Moment(now)
	if want := time.Date(2011, 9, 12, 14, 30, 5, 0, time.UTC); !today.Equal(want) {
		t.Fatalf("today: got %v, want %v", today, want)
	}

	future := mustDate(t, 2011, 9, 14).Moment(now)
	if want := time.Date(2011, 9, 14, 0, 0, 0, 0, time.UTC); !future.Equal(want) {
		t.Fatalf("future day: got %v, want %v", future, want)
	}
}

func TestDateTimeMomentIgnoresNow(t *testing.T) {
	dt, _ := NewDateTime(2011, 9, 12, 10, 20, true)
	got := dt.Moment(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	if want := time.Date(2011, 9, 12, 10, 20, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTimeRangeMomentIsStart(t *testing.T) {
	start, _ := NewDateTime(2011, 9, 12, 10, 0, true)
	end, _ := NewDateTime(2011, 9, 12, 13, 0, true)
	r, err := NewTimeRange(start, end, true)
	if err != nil {
		t.Fatalf("NewTimeRange: %v", err)
	}
	got := r.Moment(time.Now())
	if want := time.Date(2011, 9, 12, 10, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if r.Duration() != 3*time.Hour {
		t.Fatalf("duration: got %v", r.Duration())
	}
}

func TestWithDayKeepsKind(t *testing.T) {
	day := time.Date(2011, 10, 3, 0, 0, 0, 0, time.UTC)

	d := mustDate(t, 2011, 9, 12).WithDay(day)
	if d.String() != "<2011-10-03 Mon>" {
		t.Fatalf("date: got %q", d)
	}

	dt, _ := NewDateTime(2011, 9, 12, 10, 20, true)
	moved := dt.WithDay(day)
	if moved.String() != "<2011-10-03 Mon 10:20>" {
		t.Fatalf("date-time: got %q", moved)
	}

	start, _ := NewDateTime(2011, 9, 12, 10, 0, true)
	end, _ := NewDateTime(2011, 9, 13, 11, 0, true)
	r, _ := NewTimeRange(start, end, true)
	shifted := r.WithDay(day)
	if shifted.String() != "<2011-10-03 Mon 10:00>--<2011-10-04 Tue 11:00>" {
		t.Fatalf("range: got %q", shifted)
	}
}
