package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"colony-server/internal/shared/config"
)

type pinger struct{ err error }

func (p pinger) Ping(ctx context.Context) error { return p.err }

func TestHealthReportsStore(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"up", nil, "connected"},
		{"down", errors.New("refused"), "disconnected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler(pinger{tt.err}, "sqlite").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/server/health", nil))

			var resp HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Store != tt.want || resp.Backend != "sqlite" {
				t.Fatalf("unexpected health %+v", resp)
			}
		})
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	h := NewLogoutHandler(config.AuthConfig{CookieName: "auth_token"}, config.FrontendConfig{URL: "http://localhost:3000"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if cookies := rec.Result().Cookies(); len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected an expired auth cookie, got %+v", cookies)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/logout", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET status = %d", rec.Code)
	}
}
