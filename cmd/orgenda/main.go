package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"orgenda/internal/agenda"
	"orgenda/internal/config"
	"orgenda/internal/holiday"
	appLog "orgenda/internal/log"
	"orgenda/internal/org"
	"orgenda/internal/orgdate"
	"orgenda/internal/scheduler"
	"orgenda/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	view       string
	reschedule string
	apply      bool
	serve      bool
	cacheDir   string
	debug      bool
}

func main() {
	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	appLog.Info("orgenda starting", "version", "0.1.0")

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"files", len(conf.Files),
		"buffers", len(conf.Buffers),
		"horizon_days", conf.HorizonDays,
		"listen", conf.Listen,
		"serve", flags.serve,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	app := &App{cfg: conf, cacheDir: flags.cacheDir}

	switch {
	case flags.serve:
		if err := runServe(ctx, conf, app); err != nil {
			appLog.Error("server failed", err)
			os.Exit(1)
		}
	case flags.reschedule != "":
		if err := runReschedule(ctx, app, flags.reschedule, flags.apply); err != nil {
			appLog.Error("reschedule failed", err, "buffer", flags.reschedule)
			os.Exit(1)
		}
	default:
		if err := printAgenda(ctx, app, flags.view); err != nil {
			appLog.Error("agenda failed", err, "view", flags.view)
			os.Exit(1)
		}
	}

	appLog.Info("orgenda exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", defaultConfigPath(), "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.view, "view", "week", "Agenda view: week, todos, active, timestamped")
	flag.StringVar(&cfg.reschedule, "reschedule", "", "Replan the given buffer instead of printing an agenda")
	flag.BoolVar(&cfg.apply, "apply", false, "Write accepted reschedules back to the org files")
	flag.BoolVar(&cfg.serve, "serve", false, "Run the HTTP API with periodic rescans")
	flag.StringVar(&cfg.cacheDir, "cache-dir", defaultCacheDir(), "Holiday feed cache directory")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}

func defaultConfigPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.config/orgenda/config.yaml"
	}
	return "./orgenda.yaml"
}

func defaultCacheDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.cache/orgenda"
	}
	return "./cache"
}

// App wires the loader, scheduler and holiday resolution together. It
// implements web.Provider so serve mode reuses the same plumbing.
type App struct {
	cfg      *config.Config
	cacheDir string
}

// Documents loads every configured org file fresh from disk.
func (a *App) Documents(_ context.Context) ([]*org.Document, error) {
	l := &org.Loader{TodoStates: a.cfg.TodoStates.All()}
	return l.LoadAll(a.cfg.Files)
}

// Engine builds the scheduling engine for one buffer, resolving its
// holiday feeds into blackout ranges for the coming year.
func (a *App) Engine(ctx context.Context, buffer string) (*scheduler.Engine, error) {
	bufCfg, ok := a.cfg.Buffers[buffer]
	if !ok {
		return nil, fmt.Errorf("no buffer %q in config", buffer)
	}
	sc, err := bufCfg.SchedulerConfig()
	if err != nil {
		return nil, fmt.Errorf("buffer %q: %w", buffer, err)
	}

	if len(bufCfg.HolidayFeeds) > 0 {
		feeds := make([]holiday.Feed, 0, len(bufCfg.HolidayFeeds))
		for _, f := range bufCfg.HolidayFeeds {
			if f.URL == "" {
				continue
			}
			id := f.ID
			if id == "" {
				id = f.Name
			}
			feeds = append(feeds, holiday.Feed{ID: id, URL: f.URL})
		}
		fetcher := holiday.NewFetcher(a.cacheDir)
		start := orgdate.DayOf(time.Now())
		ranges, err := holiday.Resolve(ctx, fetcher, feeds, start, start.AddDate(1, 0, 0))
		if err != nil {
			return nil, fmt.Errorf("buffer %q holiday feeds: %w", buffer, err)
		}
		sc.Holidays = append(sc.Holidays, ranges...)
	}

	return &scheduler.Engine{
		Config:       sc,
		PriorityTags: a.cfg.PriorityTags,
	}, nil
}

// runServe starts the HTTP API plus a cron-driven rescan that keeps the
// log honest about what the agenda currently holds.
func runServe(ctx context.Context, conf *config.Config, app *App) error {
	c := cron.New()
	_, err := c.AddFunc(conf.RefreshCron, func() {
		docs, err := app.Documents(ctx)
		if err != nil {
			appLog.Error("periodic rescan failed", err)
			return
		}
		items := 0
		for _, d := range docs {
			items += len(d.AllHeadings())
		}
		appLog.Info("periodic rescan", "docs", len(docs), "items", items)
	})
	if err != nil {
		return fmt.Errorf("bad refresh schedule %q: %w", conf.RefreshCron, err)
	}
	c.Start()
	defer c.Stop()

	return web.StartServer(ctx, conf, app)
}

// runReschedule replans one buffer: overdue items get marked, the
// scheduler assigns new days, and with -apply the results are written
// back into the org file.
func runReschedule(ctx context.Context, app *App, buffer string, apply bool) error {
	docs, err := app.Documents(ctx)
	if err != nil {
		return err
	}
	var doc *org.Document
	for _, d := range docs {
		if d.Name() == buffer {
			doc = d
			break
		}
	}
	if doc == nil {
		return fmt.Errorf("no org file for buffer %q", buffer)
	}

	eng, err := app.Engine(ctx, buffer)
	if err != nil {
		return err
	}
	eng.Notify = func(it *agenda.Item, reason string) {
		fmt.Printf("  ! %s: %s\n", it.Title, reason)
	}

	items := doc.AllHeadings()
	marked := eng.MarkOverdue(items)
	eng.Reschedule(items)

	moves := 0
	for _, it := range items {
		if it.Rescheduled == nil || it.Date == nil {
			continue
		}
		fmt.Printf("  %s: %s -> %s\n", it.Title, it.Date, it.Rescheduled)
		moves++
	}
	appLog.Info("reschedule computed", "buffer", buffer, "marked", marked, "moves", moves)

	if !apply {
		if moves > 0 {
			fmt.Println("(dry run; pass -apply to write these back)")
		}
		return nil
	}
	applied, err := doc.ApplyReschedules()
	if err != nil {
		return err
	}
	appLog.Info("reschedules written", "buffer", buffer, "applied", applied, "path", doc.Path)
	return nil
}

// printAgenda renders one agenda view to stdout. The week view prints
// day sections with a TODAY marker; the flat views print one line per
// item.
func printAgenda(ctx context.Context, app *App, view string) error {
	docs, err := app.Documents(ctx)
	if err != nil {
		return err
	}
	adocs := make([]agenda.Document, 0, len(docs))
	for _, d := range docs {
		adocs = append(adocs, d)
	}

	mgr := agenda.Manager{ActiveStates: app.cfg.TodoStates.Active}

	var items []*agenda.Item
	switch view {
	case "week":
		items = mgr.Upcoming(adocs, app.cfg.HorizonDays)
	case "todos":
		items = mgr.AllTodos(adocs)
	case "active":
		items = mgr.ActiveTodos(adocs)
	case "timestamped":
		items = mgr.Timestamped(adocs)
	default:
		return fmt.Errorf("unknown view %q", view)
	}

	if view != "week" {
		for _, it := range items {
			fmt.Println(formatItem(it))
		}
		return nil
	}

	printWeek(items, time.Now(), app.cfg.HorizonDays)
	return nil
}

// printWeek groups items into one section per day, covering today
// through the horizon. Undated and already-past items land in the first
// section so nothing silently drops off the top.
func printWeek(items []*agenda.Item, now time.Time, horizonDays int) {
	today := orgdate.DayOf(now)
	for offset := 0; offset < horizonDays; offset++ {
		day := today.AddDate(0, 0, offset)
		header := day.Format("Monday 02. 01. 2006")
		if offset == 0 {
			header += " (TODAY)"
		}
		fmt.Println(header)
		for _, it := range items {
			if it.Date == nil {
				continue
			}
			d := it.Date.Day()
			if offset == 0 && d.Before(today) {
				fmt.Println(formatItem(it))
				continue
			}
			if d.Equal(day) {
				fmt.Println(formatItem(it))
			}
		}
	}
}

// formatItem renders one agenda line: source reference, state, title,
// tags, the item's calendar value plus any pending move, and its
// deadline.
func formatItem(it *agenda.Item) string {
	line := fmt.Sprintf("  %s:%d ", it.Source.File, it.Source.Line)
	if it.Todo != "" {
		line += it.Todo + " "
	}
	line += it.Title
	if len(it.Tags) > 0 {
		line += " :" + strings.Join(it.Tags, ":") + ":"
	}
	if it.Date != nil {
		line += " " + it.Date.String()
	}
	if it.Rescheduled != nil {
		line += " -> " + it.Rescheduled.String()
	}
	if it.Deadline != nil {
		line += " DEADLINE: " + it.Deadline.String()
	}
	return line
}
