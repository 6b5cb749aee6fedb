package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"orgenda/internal/config"
	"orgenda/internal/org"
	"orgenda/internal/scheduler"
)

type fakeProvider struct {
	docs   []*org.Document
	engine *scheduler.Engine
}

func (p *fakeProvider) Documents(context.Context) ([]*org.Document, error) {
	return p.docs, nil
}

func (p *fakeProvider) Engine(context.Context, string) (*scheduler.Engine, error) {
	return p.engine, nil
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.PriorityTags = []string{"p1"}
	cfg.Buffers = map[string]config.BufferConfig{
		"work": {
			StoryPoints: map[string][]int{"p1": {1}},
			MaxCapacity: []int{1},
		},
	}
	return cfg
}

func loadDoc(t *testing.T, name, text string) *org.Document {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	l := &org.Loader{TodoStates: []string{"TODO", "DONE"}}
	doc, err := l.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func testServer(t *testing.T, cfg *config.Config) (*Server, *fakeProvider) {
	t.Helper()
	doc := loadDoc(t, "work.org", `* TODO Overdue task :p1:
  <2024-01-08 Mon>
* TODO Later task :p1:
  <2024-01-20 Sat>
`)
	sc, err := cfg.Buffers["work"].SchedulerConfig()
	if err != nil {
		t.Fatal(err)
	}
	p := &fakeProvider{
		docs: []*org.Document{doc},
		engine: &scheduler.Engine{
			Config:       sc,
			PriorityTags: cfg.PriorityTags,
			Now: func() time.Time {
				return time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)
			},
		},
	}
	return NewServer(cfg, p), p
}

func TestHealth(t *testing.T) {
	s, _ := testServer(t, testConfig())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("code=%d body=%q", rec.Code, rec.Body.String())
	}
}

func TestAgendaViews(t *testing.T) {
	s, _ := testServer(t, testConfig())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/agenda?view=todos", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp agendaResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.View != "todos" || len(resp.Items) != 2 {
		t.Fatalf("view=%q items=%d", resp.View, len(resp.Items))
	}
	if resp.Items[0].Title != "Overdue task" {
		t.Fatalf("first item: %q", resp.Items[0].Title)
	}
}

func TestAgendaRejectsUnknownView(t *testing.T) {
	s, _ := testServer(t, testConfig())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/agenda?view=bogus", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code=%d", rec.Code)
	}
}

func TestReschedulePreview(t *testing.T) {
	s, p := testServer(t, testConfig())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reschedule?buffer=work", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp rescheduleResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Moves) != 1 {
		t.Fatalf("moves: %+v", resp.Moves)
	}
	mv := resp.Moves[0]
	if mv.Item.Title != "Overdue task" || mv.From != "<2024-01-08 Mon>" {
		t.Fatalf("move: %+v", mv)
	}
	if mv.To != "<2024-01-10 Wed>" {
		t.Fatalf("target day: %q", mv.To)
	}
	// Preview must not touch the file on disk.
	data, err := os.ReadFile(p.docs[0].Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `* TODO Overdue task :p1:
  <2024-01-08 Mon>
* TODO Later task :p1:
  <2024-01-20 Sat>
` {
		t.Fatalf("file changed:\n%s", data)
	}
}

func TestRescheduleRejectsUnknownBuffer(t *testing.T) {
	s, _ := testServer(t, testConfig())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reschedule?buffer=nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code=%d", rec.Code)
	}
}

func TestBasicAuth(t *testing.T) {
	cfg := testConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "org", Password: "enda"}
	s, _ := testServer(t, cfg)
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/agenda", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated: code=%d", rec.Code)
	}

	// /health bypasses auth for probes.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health: code=%d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/agenda", nil)
	req.SetBasicAuth("org", "enda")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated: code=%d", rec.Code)
	}
}
