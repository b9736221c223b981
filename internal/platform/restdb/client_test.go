package restdb

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func TestSelect_EncodesQuery(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(`[{"id":"a","status":"pending"},{"id":"b","status":"completed"}]`))
	}))
	defer srv.Close()

	since := time.Date(2026, 10, 18, 16, 0, 0, 0, time.UTC)
	c := New(srv.URL+"/", "anon-key")

	var rows []row
	err := c.Select(context.Background(), "appointments", Query{
		Filters: []Filter{Gte("created_at", since)},
		Order:   "created_at.desc",
	}, &rows)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "completed", rows[1].Status)

	assert.Equal(t, "/appointments", got.URL.Path)
	assert.Equal(t, "*", got.URL.Query().Get("select"))
	assert.Equal(t, "created_at.desc", got.URL.Query().Get("order"))
	assert.Equal(t, "gte.2026-10-18T16:00:00Z", got.URL.Query().Get("created_at"))
	assert.Equal(t, "anon-key", got.Header.Get("apikey"))
	assert.Equal(t, "Bearer anon-key", got.Header.Get("Authorization"))
}

func TestInsert_ReturnsRepresentation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		body, _ := io.ReadAll(r.Body)
		var in row
		require.NoError(t, json.Unmarshal(body, &in))
		in.Status = "pending"
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode([]row{in})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	var out row
	require.NoError(t, c.Insert(context.Background(), "appointments", row{ID: "x"}, &out))
	assert.Equal(t, "x", out.ID)
	assert.Equal(t, "pending", out.Status)
}

func TestUpdate_CountsRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.abc", r.URL.Query().Get("id"))
		_, _ = w.Write([]byte(`[{"id":"abc","status":"completed"}]`))
	}))
	defer srv.Close()

	n, err := New(srv.URL, "").Update(context.Background(), "consultations",
		[]Filter{Eq("id", "abc")}, map[string]string{"status": "completed"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDelete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "lt.2026-10-18T15:00:00Z", r.URL.Query().Get("created_at"))
		_, _ = w.Write([]byte(`[{"id":"1"},{"id":"2"}]`))
	}))
	defer srv.Close()

	cutoff := time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC)
	n, err := New(srv.URL, "").Delete(context.Background(), "appointments", []Filter{Lt("created_at", cutoff)})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDelete_RequiresFilter(t *testing.T) {
	_, err := New("http://unused", "").Delete(context.Background(), "appointments", nil)
	assert.Error(t, err)
}

func TestErrorBodyIsDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"code":"42501","message":"permission denied for table appointments","details":null,"hint":null}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").Update(context.Background(), "appointments", []Filter{Eq("id", "1")}, map[string]string{})
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "42501", apiErr.Code)
	assert.Equal(t, "permission denied for table appointments", err.Error())
}

func TestErrorWithoutJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := New(srv.URL, "").Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
