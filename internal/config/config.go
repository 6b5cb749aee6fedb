package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"orgenda/internal/scheduler"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions.

// TodoStatesConfig splits the known todo keywords into the states that
// mean "still open" and the states that mean "finished".
type TodoStatesConfig struct {
	Active []string `yaml:"active" json:"active"`
	Done   []string `yaml:"done" json:"done"`
}

// All returns every known keyword, active states first.
func (t TodoStatesConfig) All() []string {
	all := make([]string, 0, len(t.Active)+len(t.Done))
	all = append(all, t.Active...)
	all = append(all, t.Done...)
	return all
}

// FeedConfig describes a single ICS holiday feed.
type FeedConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for caching and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// HolidayConfig is an inclusive blackout range given as YYYY-MM-DD dates.
type HolidayConfig struct {
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// BufferConfig holds the per-buffer scheduling constraints. The buffer
// name is the org file's base name without the .org suffix.
type BufferConfig struct {
	// AllowedTagsByWeekday restricts which items may land on a weekday,
	// keyed by lowercase English weekday name. An absent weekday is
	// unrestricted; an empty list blocks the day entirely; otherwise an
	// item needs at least one of the listed tags.
	AllowedTagsByWeekday map[string][]string `yaml:"allowed_tags_by_weekday" json:"allowed_tags_by_weekday"`

	// StoryPoints maps a tag to its capacity weight vector.
	StoryPoints map[string][]int `yaml:"story_points" json:"story_points"`

	// MaxCapacity is the per-day capacity budget, one entry per
	// dimension of the story-point vectors.
	MaxCapacity []int `yaml:"max_capacity" json:"max_capacity"`

	// Holidays lists inline blackout ranges.
	Holidays []HolidayConfig `yaml:"holidays" json:"holidays"`

	// HolidayFeeds lists ICS feeds whose events extend Holidays.
	HolidayFeeds []FeedConfig `yaml:"holiday_feeds" json:"holiday_feeds"`

	// StrictDeadlines makes days past an item's deadline ineligible
	// instead of merely warning afterwards.
	StrictDeadlines bool `yaml:"strict_deadlines" json:"strict_deadlines"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web API.
	Listen string `yaml:"listen" json:"listen"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// used for periodic rescans in serve mode.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Files lists glob patterns of the org files to scan. ~/ expands to
	// the user's home directory.
	Files []string `yaml:"files" json:"files"`

	// TodoStates configures the recognized todo keywords.
	TodoStates TodoStatesConfig `yaml:"todo_states" json:"todo_states"`

	// PriorityTags mark items as eligible for rescheduling.
	PriorityTags []string `yaml:"priority_tags" json:"priority_tags"`

	// HorizonDays is the number of future days covered by the weekly view.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// Buffers holds the per-buffer scheduling constraints, keyed by
	// buffer name.
	Buffers map[string]BufferConfig `yaml:"buffers" json:"buffers"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		RefreshCron: "*/15 * * * *",
		Files:       []string{"~/org/*.org"},
		TodoStates: TodoStatesConfig{
			Active: []string{"TODO", "STARTED", "WAITING"},
			Done:   []string{"DONE", "CANCELED"},
		},
		PriorityTags: []string{},
		HorizonDays:  8,
		Buffers:      map[string]BufferConfig{},
		BasicAuth:    nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}
	if c.Files == nil {
		c.Files = []string{}
	}
	if len(c.TodoStates.Active) == 0 {
		c.TodoStates.Active = []string{"TODO", "STARTED", "WAITING"}
	}
	if len(c.TodoStates.Done) == 0 {
		c.TodoStates.Done = []string{"DONE", "CANCELED"}
	}
	if c.PriorityTags == nil {
		c.PriorityTags = []string{}
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = 8
	}
	if c.Buffers == nil {
		c.Buffers = map[string]BufferConfig{}
	}
}

// weekdayIndexes maps the YAML weekday keys to Monday-first indexes.
var weekdayIndexes = map[string]int{
	"monday":    0,
	"tuesday":   1,
	"wednesday": 2,
	"thursday":  3,
	"friday":    4,
	"saturday":  5,
	"sunday":    6,
}

// SchedulerConfig converts a buffer's YAML form into the scheduler's
// runtime form. Holiday feeds are not resolved here; the caller appends
// fetched ranges to the returned config.
func (b BufferConfig) SchedulerConfig() (scheduler.Config, error) {
	var cfg scheduler.Config

	for name, tags := range b.AllowedTagsByWeekday {
		idx, ok := weekdayIndexes[name]
		if !ok {
			return cfg, fmt.Errorf("unknown weekday %q", name)
		}
		if tags == nil {
			// An explicit null entry blocks the day, same as [].
			tags = []string{}
		}
		cfg.AllowedTags[idx] = tags
	}

	cfg.StoryPoints = b.StoryPoints
	cfg.MaxCapacity = b.MaxCapacity
	for tag, w := range b.StoryPoints {
		if len(w) != len(b.MaxCapacity) {
			return cfg, fmt.Errorf("story points for %q have %d dimensions, max_capacity has %d",
				tag, len(w), len(b.MaxCapacity))
		}
	}

	for _, h := range b.Holidays {
		r, err := parseRange(h)
		if err != nil {
			return cfg, err
		}
		cfg.Holidays = append(cfg.Holidays, r)
	}

	cfg.StrictDeadlines = b.StrictDeadlines
	return cfg, nil
}

func parseRange(h HolidayConfig) (scheduler.DateRange, error) {
	start, err := time.ParseInLocation("2006-01-02", h.Start, time.UTC)
	if err != nil {
		return scheduler.DateRange{}, fmt.Errorf("holiday start %q: %w", h.Start, err)
	}
	end := start
	if h.End != "" {
		end, err = time.ParseInLocation("2006-01-02", h.End, time.UTC)
		if err != nil {
			return scheduler.DateRange{}, fmt.Errorf("holiday end %q: %w", h.End, err)
		}
	}
	if end.Before(start) {
		return scheduler.DateRange{}, fmt.Errorf("holiday range %s..%s is inverted", h.Start, h.End)
	}
	return scheduler.DateRange{Start: start, End: end}, nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".orgenda-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Set permissions to 0600 on temp file before rename.
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	// Rename over the target path.
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save is a convenience method on Config that delegates to the
// package-level Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
