package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/medops/hospitalops/internal/config"
	"github.com/medops/hospitalops/internal/domain/history"
	"github.com/medops/hospitalops/internal/platform/websocket"
)

// tableServer answers like an empty PostgREST instance. Tables listed in
// failing return 500.
func tableServer(t *testing.T, failing ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, table := range failing {
			if r.URL.Path == "/"+table {
				http.Error(w, `{"message":"relation is gone"}`, http.StatusInternalServerError)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func restConfig(url string) *config.Config {
	return &config.Config{
		Port:                 "0",
		Env:                  "test",
		StoreBackend:         config.BackendREST,
		RESTURL:              url,
		CORSOrigins:          []string{"*"},
		RateLimitRPS:         100,
		RateLimitBurst:       100,
		RequestTimeout:       5 * time.Second,
		AppointmentRetention: 20 * time.Hour,
		RefreshSchedule:      "@every 30s",
		SweepSchedule:        "@every 15m",
		HospitalName:         "St. Elsewhere",
	}
}

func newTestApp(t *testing.T, failing ...string) *app {
	t.Helper()
	srv := tableServer(t, failing...)
	a, err := newApp(context.Background(), restConfig(srv.URL), zerolog.Nop())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(a.close)
	return a
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	jsonLogger := newLogger(&buf, false)
	jsonLogger.Info().Msg("hello")
	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON output, got %q", buf.String())
	}
	if line["message"] != "hello" {
		t.Errorf("unexpected line %v", line)
	}

	buf.Reset()
	consoleLogger := newLogger(&buf, true)
	consoleLogger.Info().Msg("hello")
	if strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), "hello") {
		t.Errorf("expected console output, got %q", buf.String())
	}
}

func TestNewApp_UnknownBackend(t *testing.T) {
	cfg := restConfig("http://localhost")
	cfg.StoreBackend = "mongo"
	if _, err := newApp(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Fatal("expected an error for an unknown backend")
	}
}

func TestApp_LoadReportsFailedStores(t *testing.T) {
	a := newTestApp(t, "consultations")
	err := a.load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "consultations") {
		t.Fatalf("expected the consultations store to fail, got %v", err)
	}
	if a.patients.Status().Error != "" {
		t.Error("patients store should have loaded")
	}
	if a.consultations.Status().Error == "" {
		t.Error("consultations store should keep its error")
	}
}

func TestApp_Scheduler(t *testing.T) {
	a := newTestApp(t)
	s, err := a.scheduler()
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	names := map[string]bool{}
	for _, e := range s.Entries() {
		names[e.Name] = true
	}
	if !names["dashboard-refresh"] || !names["appointment-sweep"] {
		t.Errorf("unexpected entries %v", names)
	}

	a.cfg.SweepSchedule = "whenever"
	if _, err := a.scheduler(); err == nil {
		t.Error("expected an invalid schedule to fail")
	}
}

func TestServer_Routes(t *testing.T) {
	a := newTestApp(t)
	if err := a.load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	e := a.server(websocket.NewHub(zerolog.Nop()))

	tests := []struct {
		path string
		want int
	}{
		{"/health", http.StatusOK},
		{"/health/db", http.StatusOK},
		{"/api/v1/patients", http.StatusOK},
		{"/api/v1/consultations", http.StatusOK},
		{"/api/v1/appointments", http.StatusOK},
		{"/api/v1/history", http.StatusOK},
		{"/api/v1/history?sort=mrn", http.StatusBadRequest},
		{"/api/v1/reports/summary", http.StatusOK},
		{"/api/v1/dashboard", http.StatusOK},
		{"/api/v1/reports/measures", http.StatusOK},
		{"/api/v1/reports/measures/active-census/evaluate", http.StatusNotImplemented},
		{"/api/v1/reports/export.pdf", http.StatusOK},
		{"/api/v1/openapi.json", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Error("expected a request id")
			}
			if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
				t.Error("expected security headers")
			}
		})
	}
}

func TestServer_HealthReportsBackend(t *testing.T) {
	a := newTestApp(t)
	e := a.server(websocket.NewHub(zerolog.Nop()))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/db", nil))
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["backend"] != config.BackendREST || body["status"] != "healthy" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestReportQuery(t *testing.T) {
	val := func(s string) *string { return &s }

	q, err := reportQuery(map[string]*string{
		"type": val("consultation,appointment"),
		"to":   val("2026-10-19"),
		"sort": val(""),
	})
	if err != nil {
		t.Fatalf("reportQuery: %v", err)
	}
	if len(q.Types) != 2 || q.Sort != history.SortDate {
		t.Errorf("unexpected query %+v", q)
	}
	if q.To == nil || q.To.Hour() != 23 {
		t.Errorf("expected to to cover the whole day, got %v", q.To)
	}

	if _, err := reportQuery(map[string]*string{"dir": val("sideways")}); err == nil {
		t.Error("expected an invalid direction to fail")
	}
}

func TestSeedDryRun(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"seed", "--dry-run", "--patients", "3", "--seed", "5"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("seed --dry-run: %v", err)
	}

	var batch struct {
		Patients []json.RawMessage `json:"patients"`
	}
	if err := json.Unmarshal(out.Bytes(), &batch); err != nil {
		t.Fatalf("expected JSON, got %q", out.String())
	}
	if len(batch.Patients) != 3 {
		t.Errorf("expected 3 patients, got %d", len(batch.Patients))
	}
}

func TestRootCmd_Commands(t *testing.T) {
	want := map[string]bool{"serve": false, "migrate": false, "sweep": false, "seed": false, "report": false}
	for _, c := range rootCmd().Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing command %s", name)
		}
	}
}
