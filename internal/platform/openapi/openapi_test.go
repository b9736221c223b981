package openapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func noop(c echo.Context) error { return nil }

func newTestEcho() *echo.Echo {
	e := echo.New()
	api := e.Group("/api/v1")
	api.GET("/patients", noop)
	api.POST("/patients", noop)
	api.GET("/patients/:id", noop)
	api.PATCH("/patients/:id/admissions/:episodeId", noop)
	api.DELETE("/appointments/:id", noop)
	api.GET("/reports/export.pdf", noop)
	e.GET("/health", noop)
	return e
}

func TestGenerateSpec_Structure(t *testing.T) {
	e := newTestEcho()
	spec := NewGenerator(e.Routes, "Hospital Operations API", "1.0.0").GenerateSpec()

	if spec["openapi"] != "3.0.3" {
		t.Errorf("expected openapi '3.0.3', got %v", spec["openapi"])
	}
	info := spec["info"].(map[string]interface{})
	if info["title"] != "Hospital Operations API" || info["version"] != "1.0.0" {
		t.Errorf("unexpected info %v", info)
	}

	paths := spec["paths"].(map[string]map[string]interface{})
	for _, p := range []string{"/api/v1/patients", "/api/v1/patients/{id}", "/api/v1/appointments/{id}", "/health"} {
		if _, ok := paths[p]; !ok {
			t.Errorf("missing path %s", p)
		}
	}
	if len(paths["/api/v1/patients"]) != 2 {
		t.Errorf("expected get and post on /patients, got %v", paths["/api/v1/patients"])
	}
}

func TestGenerateSpec_PathParameters(t *testing.T) {
	spec := NewGenerator(newTestEcho().Routes, "x", "1").GenerateSpec()
	paths := spec["paths"].(map[string]map[string]interface{})

	op, ok := paths["/api/v1/patients/{id}/admissions/{episodeId}"]["patch"].(map[string]interface{})
	if !ok {
		t.Fatal("expected a patch operation on the episode path")
	}
	params := op["parameters"].([]map[string]interface{})
	if len(params) != 2 || params[0]["name"] != "id" || params[1]["name"] != "episodeId" {
		t.Errorf("unexpected parameters %v", params)
	}
	if _, ok := op["requestBody"]; !ok {
		t.Error("patch operations take a body")
	}
	if tags := op["tags"].([]string); tags[0] != "patients" {
		t.Errorf("expected patients tag, got %v", tags)
	}
	if op["operationId"] != "patchPatientsIdAdmissionsEpisodeId" {
		t.Errorf("unexpected operationId %v", op["operationId"])
	}
}

func TestGenerateSpec_Responses(t *testing.T) {
	spec := NewGenerator(newTestEcho().Routes, "x", "1").GenerateSpec()
	paths := spec["paths"].(map[string]map[string]interface{})

	del := paths["/api/v1/appointments/{id}"]["delete"].(map[string]interface{})
	if _, ok := del["responses"].(map[string]interface{})["204"]; !ok {
		t.Error("delete should document 204")
	}
	pdf := paths["/api/v1/reports/export.pdf"]["get"].(map[string]interface{})
	if pdf["operationId"] != "getReportsExportPdf" {
		t.Errorf("unexpected operationId %v", pdf["operationId"])
	}
}

func TestTemplatePath(t *testing.T) {
	tests := []struct {
		in, want string
		params   int
	}{
		{"/api/v1/patients", "/api/v1/patients", 0},
		{"/api/v1/patients/:id", "/api/v1/patients/{id}", 1},
		{"/a/:x/b/:y", "/a/{x}/b/{y}", 2},
	}
	for _, tt := range tests {
		got, params := templatePath(tt.in)
		if got != tt.want || len(params) != tt.params {
			t.Errorf("templatePath(%q) = %q, %v", tt.in, got, params)
		}
	}
}

func TestRegisterRoutes(t *testing.T) {
	e := newTestEcho()
	NewGenerator(e.Routes, "Hospital Operations API", "1.0.0").RegisterRoutes(e.Group("/api/v1"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/openapi.json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	paths := doc["paths"].(map[string]interface{})
	if _, ok := paths["/api/v1/openapi.json"]; !ok {
		t.Error("the document should list itself")
	}
}
