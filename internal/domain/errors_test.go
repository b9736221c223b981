package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/medops/hospitalops/internal/store"
)

func TestHTTPError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", Invalidf("mrn is required"), http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("create: %w", Invalidf("bad")), http.StatusBadRequest},
		{"not found", store.ErrNotFound, http.StatusNotFound},
		{"disposed", store.ErrDisposed, http.StatusServiceUnavailable},
		{"remote", errors.New("connection refused"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			he := HTTPError(tt.err, "appointment")
			if he.Code != tt.code {
				t.Errorf("expected %d, got %d", tt.code, he.Code)
			}
		})
	}
}

func TestHTTPError_ValidationMessagePassesThrough(t *testing.T) {
	he := HTTPError(Invalidf("invalid appointment status: %s", "lost"), "appointment")
	if he.Message != "invalid appointment status: lost" {
		t.Errorf("unexpected message %v", he.Message)
	}
}

func TestHTTPError_RemoteMessageIsGeneric(t *testing.T) {
	he := HTTPError(errors.New("password authentication failed for user"), "appointment")
	if msg, _ := he.Message.(string); msg == "password authentication failed for user" {
		t.Error("backend error leaked to client")
	}
}
