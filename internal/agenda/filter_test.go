package agenda

import (
	"testing"
	"time"

	"orgenda/internal/orgdate"
)

func value(t *testing.T, text string) orgdate.Value {
	t.Helper()
	v, ok := orgdate.First(text)
	if !ok {
		t.Fatalf("no calendar value in %q", text)
	}
	return v
}

func item(t *testing.T, title, todo, date string, tags ...string) *Item {
	t.Helper()
	it := &Item{Title: title, Todo: todo, Tags: tags}
	if date != "" {
		it.Date = value(t, date)
	}
	return it
}

func TestApplyShortCircuits(t *testing.T) {
	calls := 0
	counting := func(*Item) bool { calls++; return true }
	items := []*Item{
		item(t, "a", "TODO", "<2011-09-12 Mon>"),
		item(t, "b", "", "<2011-09-12 Mon>"),
	}
	got := Apply(items, HasActiveTodo([]string{"TODO"}), counting)
	if len(got) != 1 || got[0].Title != "a" {
		t.Fatalf("got %d items", len(got))
	}
	// The second filter must not run for the dropped item.
	if calls != 1 {
		t.Fatalf("second filter ran %d times", calls)
	}
}

func TestHasActiveDate(t *testing.T) {
	if !HasActiveDate(item(t, "a", "", "<2011-09-12 Mon>")) {
		t.Fatalf("active date rejected")
	}
	if HasActiveDate(item(t, "b", "", "[2011-09-12 Mon]")) {
		t.Fatalf("inactive date accepted")
	}
	if HasActiveDate(item(t, "c", "", "")) {
		t.Fatalf("missing date accepted")
	}
}

func TestHasActiveTodo(t *testing.T) {
	f := HasActiveTodo([]string{"TODO", "WAITING"})
	if !f(item(t, "a", "WAITING", "")) {
		t.Fatalf("active state rejected")
	}
	if f(item(t, "b", "DONE", "")) {
		t.Fatalf("done state accepted")
	}
	if f(item(t, "c", "", "")) {
		t.Fatalf("stateless item accepted")
	}
}

func TestIsRepeating(t *testing.T) {
	if !IsRepeating(item(t, "a", "", "<2011-09-12 Mon +1w>")) {
		t.Fatalf("repeater not detected")
	}
	if IsRepeating(item(t, "b", "", "<2011-09-12 Mon>")) {
		t.Fatalf("plain date detected as repeating")
	}
}

func TestWithinDays(t *testing.T) {
	now := time.Date(2011, 9, 12, 9, 0, 0, 0, time.UTC)
	f := WithinDays(now, 8)
	if !f(item(t, "soon", "", "<2011-09-19 Mon>")) {
		t.Fatalf("date inside horizon rejected")
	}
	if !f(item(t, "past", "", "<2011-09-01 Thu>")) {
		t.Fatalf("past date rejected; the horizon only bounds the future")
	}
	if f(item(t, "late", "", "<2011-09-20 Tue>")) {
		t.Fatalf("date past horizon accepted")
	}
}

func TestIsReschedulable(t *testing.T) {
	f := IsReschedulable([]string{"p1", "p2", "p3"})
	if !f(item(t, "a", "", "<2011-09-12 Mon>", "p1", "work")) {
		t.Fatalf("priority-tagged item rejected")
	}
	if f(item(t, "b", "", "<2011-09-12 Mon>", "work")) {
		t.Fatalf("untagged item accepted")
	}
	if f(item(t, "c", "", "<2011-09-12 Mon +1w>", "p1")) {
		t.Fatalf("repeating item accepted")
	}
	repeated := item(t, "d", "", "<2011-09-12 Mon>", "p1")
	repeated.Repeated = true
	if f(repeated) {
		t.Fatalf("synthetic occurrence accepted")
	}
}
