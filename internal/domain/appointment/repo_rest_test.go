package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medops/hospitalops/internal/platform/restdb"
	"github.com/medops/hospitalops/internal/store"
)

type captured struct {
	method string
	query  string
	prefer string
	body   string
}

// tableAPI records the last request and answers with reply.
func tableAPI(t *testing.T, reply string) (*restdb.Client, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/"+table {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		b, _ := io.ReadAll(r.Body)
		*got = captured{method: r.Method, query: r.URL.RawQuery, prefer: r.Header.Get("Prefer"), body: string(b)}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return restdb.New(srv.URL, "key"), got
}

func TestRepoREST_ListSince(t *testing.T) {
	id := uuid.New()
	c, got := tableAPI(t, `[{"id":"`+id.String()+`","mrn":"MRN-1","patient_name":"Ada","specialty":"ENT","type":"urgent","status":"pending","created_at":"2026-10-19T08:00:00Z"}]`)

	since := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	items, err := NewRepoREST(c).List(context.Background(), since)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].ID != id || items[0].Type != TypeUrgent {
		t.Fatalf("unexpected items %+v", items)
	}
	if !strings.Contains(got.query, "created_at=gte.2026-10-18T12%3A00%3A00Z") {
		t.Errorf("expected a created_at filter, got %s", got.query)
	}
	if !strings.Contains(got.query, "order=created_at.desc") {
		t.Errorf("expected newest first, got %s", got.query)
	}
}

func TestRepoREST_Insert(t *testing.T) {
	c, got := tableAPI(t, `[{"id":"00000000-0000-0000-0000-000000000001","mrn":"MRN-1","patient_name":"Ada","specialty":"ENT","type":"routine","status":"pending","created_at":"2026-10-19T08:00:00Z"}]`)

	a := &Appointment{MRN: "MRN-1", PatientName: "Ada", Specialty: "ENT", Type: TypeRoutine, Status: StatusPending}
	if err := NewRepoREST(c).Insert(context.Background(), a); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if got.method != http.MethodPost || got.prefer != "return=representation" {
		t.Errorf("unexpected request %+v", got)
	}
	var sent map[string]interface{}
	if err := json.Unmarshal([]byte(got.body), &sent); err != nil {
		t.Fatal(err)
	}
	if _, ok := sent["created_at"]; ok {
		t.Error("created_at must be left to the database")
	}
	if a.CreatedAt.IsZero() {
		t.Error("expected the stored row to be decoded back")
	}
}

func TestRepoREST_UpdateMissing(t *testing.T) {
	c, got := tableAPI(t, `[]`)
	status := StatusCancelled
	err := NewRepoREST(c).Update(context.Background(), uuid.New(), Patch{Status: &status})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got.method != http.MethodPatch || !strings.Contains(got.body, `"status":"cancelled"`) {
		t.Errorf("unexpected request %+v", got)
	}
}

func TestRepoREST_DeleteCreatedBefore(t *testing.T) {
	c, got := tableAPI(t, `[{"id":"a"},{"id":"b"}]`)
	cutoff := time.Date(2026, 10, 18, 13, 0, 0, 0, time.UTC)

	n, err := NewRepoREST(c).DeleteCreatedBefore(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("DeleteCreatedBefore: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 removed, got %d", n)
	}
	if got.method != http.MethodDelete || !strings.Contains(got.query, "created_at=lt.2026-10-18T13%3A00%3A00Z") {
		t.Errorf("unexpected request %+v", got)
	}
}
