package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"

	"github.com/benvon/opensocial-oauth/internal/models"
	"github.com/benvon/opensocial-oauth/internal/request"
)

const defaultRatelimitRate = "20-S"

// RatelimitSettings loads and seeds the persisted rate limit. GetRatelimit returns nil, nil when unset.
type RatelimitSettings interface {
	GetRatelimit(ctx context.Context) (*models.RatelimitConfig, error)
	SetRatelimit(ctx context.Context, c *models.RatelimitConfig) error
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// NewRedisStore creates the limiter store shared by every rate limit reload
func NewRedisStore(client *redis.Client) (limiter.Store, error) {
	store, err := redisstore.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: "opensocial_oauth_limiter",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit store: %w", err)
	}
	return store, nil
}

// RateLimitReloader wraps ulule/limiter and periodically reloads the rate from the settings store.
type RateLimitReloader struct {
	store       limiter.Store
	settings    RatelimitSettings
	defaultRate string
	log         *zap.Logger
	interval    time.Duration
	trusted     []netip.Prefix
	once        sync.Once
	mu          sync.RWMutex
	current     *stdlibmw.Middleware
}

// NewRateLimitReloader creates a rate limit middleware that loads the rate from settings and hot-reloads it.
func NewRateLimitReloader(store limiter.Store, settings RatelimitSettings, defaultRate string, log *zap.Logger, reloadInterval time.Duration) *RateLimitReloader {
	if defaultRate == "" {
		defaultRate = defaultRatelimitRate
	}
	return &RateLimitReloader{
		store:       store,
		settings:    settings,
		defaultRate: defaultRate,
		log:         log,
		interval:    reloadInterval,
	}
}

// WithTrustedProxies sets the peers whose X-Forwarded-For and X-Real-IP headers
// name the client. Requests from any other peer are keyed by their own address.
// Call before Middleware.
func (r *RateLimitReloader) WithTrustedProxies(proxies []netip.Prefix) *RateLimitReloader {
	r.trusted = proxies
	return r
}

// Middleware returns a middleware applying the current rate limit. The first
// call loads the rate; every handler wrapped by it shares one limiter.
func (r *RateLimitReloader) Middleware() func(http.Handler) http.Handler {
	r.once.Do(func() { r.load(context.Background()) })
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			r.mu.RLock()
			mw := r.current
			r.mu.RUnlock()
			if mw == nil {
				next.ServeHTTP(w, req)
				return
			}
			mw.Handler(next).ServeHTTP(w, req)
		})
	}
}

// Start runs the reload loop until ctx is cancelled.
func (r *RateLimitReloader) Start(ctx context.Context) {
	runReloadLoop(ctx, r.interval, r.load)
}

func (r *RateLimitReloader) rate(ctx context.Context) string {
	cfg, err := r.settings.GetRatelimit(ctx)
	if err != nil {
		r.log.Warn("failed_to_load_ratelimit_config_using_default",
			zap.Error(err),
			zap.String("default_rate", r.defaultRate),
		)
		return r.defaultRate
	}
	if cfg != nil && cfg.Rate != "" {
		return cfg.Rate
	}

	// Seed the default so the configure CLI shows what is in effect.
	if err := r.settings.SetRatelimit(ctx, &models.RatelimitConfig{Rate: r.defaultRate}); err != nil {
		r.log.Error("failed_to_save_default_ratelimit_config",
			zap.Error(err),
			zap.String("default_rate", r.defaultRate),
		)
	}
	return r.defaultRate
}

func (r *RateLimitReloader) load(ctx context.Context) {
	rateStr := r.rate(ctx)
	rate, err := limiter.NewRateFromFormatted(rateStr)
	if err != nil {
		r.log.Error("failed_to_parse_rate_limit_using_default",
			zap.Error(err),
			zap.String("rate_str", rateStr),
			zap.String("default_rate", r.defaultRate),
		)
		rate, err = limiter.NewRateFromFormatted(r.defaultRate)
		if err != nil {
			r.log.Error("failed_to_parse_default_rate_limit",
				zap.Error(err),
				zap.String("default_rate", r.defaultRate),
			)
			return
		}
	}

	lim := limiter.New(r.store, rate)
	mw := stdlibmw.NewMiddleware(lim,
		stdlibmw.WithKeyGetter(r.clientKey(lim, limiter.New(r.store, rate, limiter.WithTrustForwardHeader(true)))),
		stdlibmw.WithLimitReachedHandler(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusTooManyRequests, "Too many requests")
		}),
		stdlibmw.WithErrorHandler(func(w http.ResponseWriter, req *http.Request, err error) {
			r.log.Error("rate_limit_store_failed",
				zap.Error(err),
				zap.String("request_id", request.RequestID(req)),
			)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}),
	)

	r.mu.Lock()
	r.current = mw
	r.mu.Unlock()
}

// clientKey keys direct peers by RemoteAddr host and trusted proxies by the forwarded client.
func (r *RateLimitReloader) clientKey(direct, forwarded *limiter.Limiter) func(*http.Request) string {
	return func(req *http.Request) string {
		if request.FromTrustedProxy(req, r.trusted) {
			return forwarded.GetIPKey(req)
		}
		return direct.GetIPKey(req)
	}
}
