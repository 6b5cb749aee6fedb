package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFirstRunWritesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "orgenda.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != "127.0.0.1:8080" {
		t.Fatalf("listen: %q", cfg.Listen)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("perm: %v", perm)
	}
}

func TestLoadParsesBuffers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orgenda.yaml")
	text := `
files:
  - ~/org/*.org
priority_tags: [p1, p2, p3]
todo_states:
  active: [TODO, NEXT]
  done: [DONE]
buffers:
  work:
    allowed_tags_by_weekday:
      thursday: [deepwork]
      saturday: []
    story_points:
      p1: [1]
      p2: [2]
    max_capacity: [3]
    holidays:
      - start: 2024-12-24
        end: 2025-01-02
    strict_deadlines: true
`
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.TodoStates.All(); len(got) != 3 || got[1] != "NEXT" {
		t.Fatalf("states: %v", got)
	}

	buf, ok := cfg.Buffers["work"]
	if !ok {
		t.Fatal("work buffer missing")
	}
	sc, err := buf.SchedulerConfig()
	if err != nil {
		t.Fatal(err)
	}
	if sc.AllowedTags[0] != nil {
		t.Fatalf("monday must stay unrestricted: %v", sc.AllowedTags[0])
	}
	if got := sc.AllowedTags[3]; len(got) != 1 || got[0] != "deepwork" {
		t.Fatalf("thursday: %v", got)
	}
	if got := sc.AllowedTags[5]; got == nil || len(got) != 0 {
		t.Fatalf("saturday must be blocked: %v", got)
	}
	if len(sc.Holidays) != 1 {
		t.Fatalf("holidays: %v", sc.Holidays)
	}
	want := time.Date(2024, 12, 24, 0, 0, 0, 0, time.UTC)
	if !sc.Holidays[0].Start.Equal(want) {
		t.Fatalf("holiday start: %v", sc.Holidays[0].Start)
	}
	if !sc.StrictDeadlines {
		t.Fatal("strict_deadlines not carried over")
	}
}

func TestSchedulerConfigRejectsUnknownWeekday(t *testing.T) {
	b := BufferConfig{AllowedTagsByWeekday: map[string][]string{"caturday": nil}}
	if _, err := b.SchedulerConfig(); err == nil {
		t.Fatal("expected error")
	}
}

func TestSchedulerConfigRejectsDimensionMismatch(t *testing.T) {
	b := BufferConfig{
		StoryPoints: map[string][]int{"p1": {1, 2}},
		MaxCapacity: []int{3},
	}
	if _, err := b.SchedulerConfig(); err == nil {
		t.Fatal("expected error")
	}
}

func TestSchedulerConfigRejectsInvertedHoliday(t *testing.T) {
	b := BufferConfig{Holidays: []HolidayConfig{{Start: "2024-05-02", End: "2024-05-01"}}}
	if _, err := b.SchedulerConfig(); err == nil {
		t.Fatal("expected error")
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	var c Config
	c.Normalize()
	if c.HorizonDays != 8 {
		t.Fatalf("horizon: %d", c.HorizonDays)
	}
	if len(c.TodoStates.Active) == 0 || len(c.TodoStates.Done) == 0 {
		t.Fatalf("todo states: %+v", c.TodoStates)
	}
	if c.Buffers == nil {
		t.Fatal("buffers map not initialized")
	}
}
