package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"orgenda/internal/agenda"
	"orgenda/internal/config"
	appLog "orgenda/internal/log"
	"orgenda/internal/org"
	"orgenda/internal/scheduler"
)

// Provider supplies the server with freshly loaded documents and
// per-buffer scheduling engines. The command wires its own loader and
// holiday resolution behind this.
type Provider interface {
	Documents(ctx context.Context) ([]*org.Document, error)
	Engine(ctx context.Context, buffer string) (*scheduler.Engine, error)
}

// Server provides the HTTP API over the agenda: view listings, a
// reschedule preview, and a health endpoint.
type Server struct {
	cfg      *config.Config
	provider Provider
	mux      *http.ServeMux

	// In-memory cache for agenda responses so bursts of UI requests do
	// not re-scan the org files each time.
	agendaMu    sync.RWMutex
	agendaCache map[string]*agendaCache
}

const agendaCacheTTL = 30 * time.Second

type agendaCache struct {
	resp      agendaResponse
	updatedAt time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, provider Provider) *Server {
	s := &Server{
		cfg:         cfg,
		provider:    provider,
		mux:         http.NewServeMux(),
		agendaCache: make(map[string]*agendaCache),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password counts as disabled.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /health stays unauthenticated for probes.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Orgenda", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer serves the API bound to cfg.Listen until ctx is cancelled.
func StartServer(ctx context.Context, cfg *config.Config, provider Provider) error {
	s := NewServer(cfg, provider)
	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/agenda", s.handleAgenda)
	s.mux.HandleFunc("/api/reschedule", s.handleReschedule)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// itemDTO is a JSON-friendly view of an agenda item.
type itemDTO struct {
	Title    string   `json:"title"`
	Todo     string   `json:"todo,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Date     string   `json:"date,omitempty"`
	Deadline string   `json:"deadline,omitempty"`
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Repeated bool     `json:"repeated,omitempty"`
}

// agendaResponse is the JSON response shape for /api/agenda.
type agendaResponse struct {
	View  string    `json:"view"`
	Days  int       `json:"days"`
	Items []itemDTO `json:"items"`
}

// handleAgenda returns one agenda view over the configured org files.
//
// GET /api/agenda?view=week&days=8
//   - view: week (default), todos, active, timestamped
//   - days: horizon for the week view; defaults to config horizon_days
func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view := q.Get("view")
	if view == "" {
		view = "week"
	}
	days := parseIntDefault(q.Get("days"), s.cfg.HorizonDays)
	if days <= 0 {
		days = s.cfg.HorizonDays
	}

	key := view + "/" + strconv.Itoa(days)
	now := time.Now()

	s.agendaMu.RLock()
	cached := s.agendaCache[key]
	s.agendaMu.RUnlock()
	if cached != nil && now.Sub(cached.updatedAt) < agendaCacheTTL {
		writeJSON(w, http.StatusOK, cached.resp)
		return
	}

	docs, err := s.provider.Documents(r.Context())
	if err != nil {
		appLog.Error("api agenda: document load failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load org files")
		return
	}

	mgr := agenda.Manager{ActiveStates: s.cfg.TodoStates.Active}
	adocs := make([]agenda.Document, 0, len(docs))
	for _, d := range docs {
		adocs = append(adocs, d)
	}

	var items []*agenda.Item
	switch view {
	case "week":
		items = mgr.Upcoming(adocs, days)
	case "todos":
		items = mgr.AllTodos(adocs)
	case "active":
		items = mgr.ActiveTodos(adocs)
	case "timestamped":
		items = mgr.Timestamped(adocs)
	default:
		writeError(w, http.StatusBadRequest, "unknown view "+strconv.Quote(view))
		return
	}

	resp := agendaResponse{View: view, Days: days, Items: toDTOs(items)}

	s.agendaMu.Lock()
	s.agendaCache[key] = &agendaCache{resp: resp, updatedAt: time.Now()}
	s.agendaMu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// moveDTO is one proposed reschedule.
type moveDTO struct {
	Item itemDTO `json:"item"`
	From string  `json:"from"`
	To   string  `json:"to,omitempty"`
}

// noticeDTO is one per-item scheduler warning.
type noticeDTO struct {
	Item   itemDTO `json:"item"`
	Reason string  `json:"reason"`
}

// rescheduleResponse is the JSON response shape for /api/reschedule.
type rescheduleResponse struct {
	Buffer  string      `json:"buffer"`
	Moves   []moveDTO   `json:"moves"`
	Notices []noticeDTO `json:"notices,omitempty"`
}

// handleReschedule previews a replan of one buffer: overdue and
// otherwise displaced items are marked and run through the scheduler,
// and the proposed moves are returned without touching any file.
//
// GET /api/reschedule?buffer=work
func (s *Server) handleReschedule(w http.ResponseWriter, r *http.Request) {
	buffer := r.URL.Query().Get("buffer")
	if buffer == "" {
		writeError(w, http.StatusBadRequest, "buffer parameter is required")
		return
	}
	if _, ok := s.cfg.Buffers[buffer]; !ok {
		writeError(w, http.StatusNotFound, "unknown buffer "+strconv.Quote(buffer))
		return
	}

	docs, err := s.provider.Documents(r.Context())
	if err != nil {
		appLog.Error("api reschedule: document load failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load org files")
		return
	}
	var doc *org.Document
	for _, d := range docs {
		if d.Name() == buffer {
			doc = d
			break
		}
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, "no org file for buffer "+strconv.Quote(buffer))
		return
	}

	eng, err := s.provider.Engine(r.Context(), buffer)
	if err != nil {
		appLog.Error("api reschedule: engine setup failed", err)
		writeError(w, http.StatusInternalServerError, "failed to build scheduler")
		return
	}

	resp := rescheduleResponse{Buffer: buffer, Moves: []moveDTO{}}
	eng.Notify = func(it *agenda.Item, reason string) {
		resp.Notices = append(resp.Notices, noticeDTO{Item: toDTO(it), Reason: reason})
	}

	items := doc.AllHeadings()
	eng.MarkOverdue(items)
	eng.Reschedule(items)

	for _, it := range items {
		if it.Rescheduled == nil || it.Date == nil {
			continue
		}
		resp.Moves = append(resp.Moves, moveDTO{
			Item: toDTO(it),
			From: it.Date.String(),
			To:   it.Rescheduled.String(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func toDTO(it *agenda.Item) itemDTO {
	dto := itemDTO{
		Title:    it.Title,
		Todo:     it.Todo,
		Tags:     it.Tags,
		File:     it.Source.File,
		Line:     it.Source.Line,
		Repeated: it.Repeated,
	}
	if it.Date != nil {
		dto.Date = it.Date.String()
	}
	if it.Deadline != nil {
		dto.Deadline = it.Deadline.String()
	}
	return dto
}

func toDTOs(items []*agenda.Item) []itemDTO {
	dtos := make([]itemDTO, 0, len(items))
	for _, it := range items {
		dtos = append(dtos, toDTO(it))
	}
	return dtos
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
