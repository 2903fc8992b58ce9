package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/benvon/opensocial-oauth/internal/database"
	"github.com/benvon/opensocial-oauth/internal/models"
	"github.com/benvon/opensocial-oauth/internal/request"
)

// CorsSettings loads the persisted CORS configuration. GetCors returns nil, nil when unset.
type CorsSettings interface {
	GetCors(ctx context.Context) (*models.CorsConfig, error)
}

// CORSReloader wraps rs/cors and periodically reloads its configuration from the settings store.
type CORSReloader struct {
	settings CorsSettings
	fallback string // e.g. FRONTEND_URL
	log      *zap.Logger
	interval time.Duration
	once     sync.Once
	mu       sync.RWMutex
	current  *cors.Cors
}

// NewCORSReloader creates a CORS middleware that loads config from the settings store and hot-reloads it.
func NewCORSReloader(settings CorsSettings, frontendURLFallback string, log *zap.Logger, reloadInterval time.Duration) *CORSReloader {
	return &CORSReloader{
		settings: settings,
		fallback: strings.TrimSpace(frontendURLFallback),
		log:      log,
		interval: reloadInterval,
	}
}

// Middleware returns a middleware applying the current CORS configuration.
// The first call loads the configuration; the returned middleware may be
// applied to any number of handlers.
func (r *CORSReloader) Middleware() func(http.Handler) http.Handler {
	r.once.Do(func() { r.load(context.Background()) })
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			r.mu.RLock()
			c := r.current
			r.mu.RUnlock()
			if c == nil {
				next.ServeHTTP(w, req)
				return
			}
			c.Handler(next).ServeHTTP(w, req)
		})
	}
}

// Start runs the reload loop until ctx is cancelled.
func (r *CORSReloader) Start(ctx context.Context) {
	runReloadLoop(ctx, r.interval, r.load)
}

func (r *CORSReloader) load(ctx context.Context) {
	opts := cors.Options{
		AllowedOrigins:   database.AllowedOriginsSlice(r.fallback),
		AllowCredentials: true,
		MaxAge:           86400,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", request.RequestIDHeader},
		ExposedHeaders:   []string{"WWW-Authenticate", request.RequestIDHeader},
	}

	cfg, err := r.settings.GetCors(ctx)
	switch {
	case err != nil:
		r.log.Warn("failed_to_load_cors_config_using_fallback",
			zap.Error(err),
			zap.String("fallback", r.fallback),
		)
	case cfg != nil:
		opts.AllowedOrigins = database.AllowedOriginsSlice(cfg.AllowedOrigins)
		opts.AllowCredentials = cfg.AllowCredentials
		opts.MaxAge = cfg.MaxAge
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"http://localhost:3000"}
	}

	c := cors.New(opts)
	r.mu.Lock()
	r.current = c
	r.mu.Unlock()
}

func runReloadLoop(ctx context.Context, interval time.Duration, load func(context.Context)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			load(ctx)
		}
	}
}
