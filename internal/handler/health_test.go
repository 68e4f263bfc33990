package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	up := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name      string
		db, cache Pinger
		status    int
		want      HealthResponse
	}{
		{"all up", up, up, http.StatusOK, HealthResponse{Status: "healthy", Database: "up", Cache: "up"}},
		{"cache down", up, down, http.StatusOK, HealthResponse{Status: "degraded", Database: "up", Cache: "down"}},
		{"database down", down, up, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Database: "down", Cache: "up"}},
		{"unchecked", nil, nil, http.StatusOK, HealthResponse{Status: "healthy", Database: "unchecked", Cache: "unchecked"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&fakeRecommender{}).WithHealthChecks(tt.db, tt.cache)
			rec := httptest.NewRecorder()
			h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, rec.Code)
			}
			var got HealthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
