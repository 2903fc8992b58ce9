package main

import (
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/benvon/opensocial-oauth/internal/config"
	"github.com/benvon/opensocial-oauth/internal/handlers"
	"github.com/benvon/opensocial-oauth/internal/middleware"
	"github.com/benvon/opensocial-oauth/internal/telemetry"
)

const serviceVersion = "1.0.0"

// routerDeps are the handlers and hot-reloaded middleware the router is built from.
type routerDeps struct {
	userinfo  *handlers.UserinfoHandler
	auth      *handlers.AuthHandler
	health    *handlers.HealthChecker
	cors      *middleware.CORSReloader
	rateLimit *middleware.RateLimitReloader
	tracing   bool
}

// newRouter assembles the middleware chain and routes. Middleware registered
// first wraps outermost.
func newRouter(cfg *config.Config, logger *zap.Logger, deps routerDeps) *mux.Router {
	r := mux.NewRouter()

	if deps.tracing {
		r.Use(otelmux.Middleware(telemetry.ServiceName))
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(deps.cors.Middleware())
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))
	r.Use(middleware.ErrorHandler(logger))
	r.Use(middleware.Audit(logger))
	r.Use(middleware.Logging(logger))

	// Public routes (no rate limiting)
	r.HandleFunc("/healthz", deps.health.HealthCheck).Methods("GET")
	r.HandleFunc("/version", handlers.Version(serviceVersion)).Methods("GET")
	handlers.NewOpenAPIHandler(filepath.Join("api", "openapi", "openapi.yaml")).RegisterRoutes(r)
	handlers.NewDiscoveryHandler(cfg.BaseURL, cfg.UserinfoPath).RegisterRoutes(r)

	// Token and login routes share one rate limiter
	limited := r.NewRoute().Subrouter()
	limited.Use(deps.rateLimit.Middleware())
	deps.userinfo.RegisterRoutes(limited, cfg.UserinfoPath)
	deps.auth.RegisterRoutes(limited.PathPrefix("/auth/opensocial").Subrouter())

	// Preflight requests; the CORS middleware has already answered or set headers
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}
