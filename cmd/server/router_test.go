package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"

	"github.com/benvon/opensocial-oauth/internal/authplugin"
	"github.com/benvon/opensocial-oauth/internal/config"
	"github.com/benvon/opensocial-oauth/internal/handlers"
	"github.com/benvon/opensocial-oauth/internal/middleware"
	"github.com/benvon/opensocial-oauth/internal/models"
	"github.com/benvon/opensocial-oauth/internal/services/issuer"
	"github.com/benvon/opensocial-oauth/internal/services/userinfo"
)

type stubLookup struct{}

func (stubLookup) Lookup(_ context.Context, authHeader string) (*models.UserinfoClaims, error) {
	if authHeader == "" {
		return nil, userinfo.ErrMissingToken
	}
	return &models.UserinfoClaims{Sub: "7", Name: "Jane", PreferredUsername: "jane"}, nil
}

type stubSettings struct {
	rate string
}

func (s *stubSettings) GetCors(_ context.Context) (*models.CorsConfig, error) {
	return &models.CorsConfig{AllowedOrigins: "https://lms.example.com", MaxAge: 60}, nil
}

func (s *stubSettings) GetRatelimit(_ context.Context) (*models.RatelimitConfig, error) {
	return &models.RatelimitConfig{Rate: s.rate}, nil
}

func (s *stubSettings) SetRatelimit(_ context.Context, _ *models.RatelimitConfig) error {
	return nil
}

func (s *stubSettings) GetAuthPlugin(_ context.Context) (*models.AuthPluginConfig, error) {
	return &models.AuthPluginConfig{OpenSocialURL: "https://social.example.com/"}, nil
}

type stubIssuers struct{}

func (stubIssuers) GetIssuer(_ context.Context, _ int64) (*models.Issuer, error) {
	return nil, nil
}

func (stubIssuers) Endpoints(_ context.Context, _ *models.Issuer) issuer.Endpoints {
	return issuer.Endpoints{}
}

type okPinger struct{}

func (okPinger) PingContext(_ context.Context) error { return nil }

func newTestRouter(t *testing.T, rate string) http.Handler {
	t.Helper()
	cfg := &config.Config{
		BaseURL:      "https://social.example.com",
		UserinfoPath: "/oauth/userinfo",
		FrontendURL:  "http://localhost:3000",
	}
	settings := &stubSettings{rate: rate}
	log := zap.NewNop()
	return newRouter(cfg, log, routerDeps{
		userinfo:  handlers.NewUserinfoHandler(stubLookup{}, log),
		auth:      handlers.NewAuthHandler(authplugin.New(stubIssuers{}), settings, log),
		health:    handlers.NewHealthChecker(okPinger{}, nil),
		cors:      middleware.NewCORSReloader(settings, cfg.FrontendURL, log, 0),
		rateLimit: middleware.NewRateLimitReloader(memory.NewStore(), settings, "", log, 0),
	})
}

func TestRouter_Routes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		method       string
		path         string
		auth         string
		wantStatus   int
		wantLocation string
	}{
		{name: "health", method: "GET", path: "/healthz", wantStatus: http.StatusOK},
		{name: "version", method: "GET", path: "/version", wantStatus: http.StatusOK},
		{name: "discovery", method: "GET", path: "/.well-known/openid-configuration", wantStatus: http.StatusOK},
		{name: "userinfo without token", method: "GET", path: "/oauth/userinfo", wantStatus: http.StatusUnauthorized},
		{name: "userinfo get", method: "GET", path: "/oauth/userinfo", auth: "Bearer abc", wantStatus: http.StatusOK},
		{name: "userinfo post", method: "POST", path: "/oauth/userinfo", auth: "Bearer abc", wantStatus: http.StatusOK},
		{name: "userinfo wrong method", method: "DELETE", path: "/oauth/userinfo", wantStatus: http.StatusMethodNotAllowed},
		{name: "plugin descriptor", method: "GET", path: "/auth/opensocial", wantStatus: http.StatusOK},
		{name: "login without autoredirect", method: "GET", path: "/auth/opensocial/login", wantStatus: http.StatusNoContent},
		{
			name:         "logout redirects to social site",
			method:       "GET",
			path:         "/auth/opensocial/logout",
			wantStatus:   http.StatusFound,
			wantLocation: "https://social.example.com/user/logout",
		},
	}

	r := newTestRouter(t, "100-M")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d (body %s)", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantLocation != "" && w.Header().Get("Location") != tt.wantLocation {
				t.Errorf("Expected Location %s, got %s", tt.wantLocation, w.Header().Get("Location"))
			}
		})
	}
}

func TestRouter_UserinfoBody(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, "100-M")
	req := httptest.NewRequest("GET", "/oauth/userinfo", nil)
	req.Header.Set("Authorization", "Bearer abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var claims map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &claims); err != nil {
		t.Fatalf("Expected JSON body, got %v", err)
	}
	if claims["sub"] != "7" {
		t.Errorf("Expected sub 7, got %v", claims["sub"])
	}
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("Expected Cache-Control no-store, got %s", w.Header().Get("Cache-Control"))
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID to be set")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("Expected security headers, got X-Content-Type-Options=%q", w.Header().Get("X-Content-Type-Options"))
	}
}

func TestRouter_Preflight(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, "100-M")
	req := httptest.NewRequest(http.MethodOptions, "/oauth/userinfo", nil)
	req.Header.Set("Origin", "https://lms.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://lms.example.com" {
		t.Errorf("Expected allowed origin, got '%s'", got)
	}
}

func TestRouter_RateLimitsTokenRoutesOnly(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, "1-M")

	do := func(path string) int {
		req := httptest.NewRequest("GET", path, nil)
		req.Header.Set("Authorization", "Bearer abc")
		req.RemoteAddr = "203.0.113.5:40000"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := do("/oauth/userinfo"); code != http.StatusOK {
		t.Fatalf("Expected first userinfo request to pass, got %d", code)
	}
	if code := do("/auth/opensocial"); code != http.StatusTooManyRequests {
		t.Errorf("Expected plugin routes to share the userinfo budget, got %d", code)
	}
	if code := do("/healthz"); code != http.StatusOK {
		t.Errorf("Expected health check to be exempt, got %d", code)
	}
}
