package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"bookit/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	router := httprouter.New()
	h.RegisterRoutes(router)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(NewHandler(logger.Discard(), nil), "/health")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReady(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		checks     map[string]Check
		wantStatus int
		wantDeps   map[string]string
	}{
		{"all up", map[string]Check{"mongo": ok, "kafka": ok}, http.StatusOK, map[string]string{"mongo": "ok", "kafka": "ok"}},
		{"one down", map[string]Check{"mongo": ok, "kafka": down}, http.StatusServiceUnavailable, map[string]string{"mongo": "ok", "kafka": "error"}},
		{"no checks", nil, http.StatusOK, map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(NewHandler(logger.Discard(), tt.checks), "/ready")
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}

			var body Response
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			for dep, want := range tt.wantDeps {
				if body.Dependencies[dep] != want {
					t.Errorf("%s = %q, want %q", dep, body.Dependencies[dep], want)
				}
			}
		})
	}
}
