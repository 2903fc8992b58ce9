package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) PingContext(_ context.Context) error {
	return f.err
}

func TestHealthChecker(t *testing.T) {
	t.Parallel()

	unreachableRedis := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = unreachableRedis.Close() })

	tests := []struct {
		name        string
		mode        string
		db          Pinger
		redis       *redis.Client
		wantStatus  int
		wantHealth  string
		wantChecks  map[string]string
		checkPrefix bool
	}{
		{
			name:       "basic mode ignores dependencies",
			db:         &fakePinger{err: errors.New("down")},
			wantStatus: http.StatusOK,
			wantHealth: "healthy",
		},
		{
			name:       "extended mode healthy",
			mode:       "extended",
			db:         &fakePinger{},
			wantStatus: http.StatusOK,
			wantHealth: "healthy",
			wantChecks: map[string]string{"database": "healthy", "redis": "not configured"},
		},
		{
			name:       "extended mode database down",
			mode:       "extended",
			db:         &fakePinger{err: errors.New("connection refused")},
			wantStatus: http.StatusServiceUnavailable,
			wantHealth: "unhealthy",
			wantChecks: map[string]string{"database": "unhealthy: connection refused", "redis": "not configured"},
		},
		{
			name:        "extended mode redis down",
			mode:        "extended",
			db:          &fakePinger{},
			redis:       unreachableRedis,
			wantStatus:  http.StatusServiceUnavailable,
			wantHealth:  "unhealthy",
			wantChecks:  map[string]string{"database": "healthy", "redis": "unhealthy: "},
			checkPrefix: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewHealthChecker(tt.db, tt.redis)
			req := httptest.NewRequest("GET", "/healthz?mode="+tt.mode, nil)
			w := httptest.NewRecorder()
			h.HealthCheck(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}

			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Status != tt.wantHealth {
				t.Errorf("Expected status '%s', got '%s'", tt.wantHealth, resp.Status)
			}
			if len(resp.Checks) != len(tt.wantChecks) {
				t.Errorf("Expected %d checks, got %v", len(tt.wantChecks), resp.Checks)
			}
			for key, want := range tt.wantChecks {
				got := resp.Checks[key]
				if tt.checkPrefix && key == "redis" {
					if len(got) < len(want) || got[:len(want)] != want {
						t.Errorf("Expected check[%s] to start with '%s', got '%s'", key, want, got)
					}
					continue
				}
				if got != want {
					t.Errorf("Expected check[%s] = '%s', got '%s'", key, want, got)
				}
			}
		})
	}
}

func TestVersion(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	Version("1.0.0")(w, httptest.NewRequest("GET", "/version", nil))

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["version"] != "1.0.0" {
		t.Errorf("Expected version '1.0.0', got '%s'", body["version"])
	}
}
