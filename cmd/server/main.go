package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/benvon/opensocial-oauth/internal/authplugin"
	"github.com/benvon/opensocial-oauth/internal/config"
	"github.com/benvon/opensocial-oauth/internal/database"
	"github.com/benvon/opensocial-oauth/internal/handlers"
	"github.com/benvon/opensocial-oauth/internal/logger"
	"github.com/benvon/opensocial-oauth/internal/middleware"
	"github.com/benvon/opensocial-oauth/internal/services/issuer"
	"github.com/benvon/opensocial-oauth/internal/services/userinfo"
	"github.com/benvon/opensocial-oauth/internal/telemetry"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.New(cfg.LogFormat, debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("base_url", cfg.BaseURL),
		zap.String("userinfo_path", cfg.UserinfoPath),
		zap.Bool("trust_email_verified", cfg.TrustEmailVerified),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	tracing := false
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), telemetry.ServiceName, serviceVersion, cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracing = true
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	logSchemaVersion(db, zapLogger)

	redisClient, err := middleware.NewRedisClient(context.Background(), cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	limiterStore, err := middleware.NewRedisStore(redisClient)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limit_store", zap.Error(err))
	}
	zapLogger.Info("connected_to_redis")

	// Repositories
	tokenRepo := database.NewTokenRepository(db)
	userRepo := database.NewUserRepository(db)
	issuerRepo := database.NewIssuerRepository(db)
	settingsRepo := database.NewSettingsRepository(db)

	// Services
	projector := userinfo.NewProjector(cfg.PublicFilesURL)
	projector.TrustEmailVerification = cfg.TrustEmailVerified
	userinfoService := userinfo.NewService(userinfo.NewResolver(tokenRepo), userRepo, projector)
	issuerProvider := issuer.NewProvider(issuerRepo, cfg.DiscoveryTimeout)
	plugin := authplugin.New(issuerProvider)

	corsReloader := middleware.NewCORSReloader(settingsRepo, cfg.FrontendURL, zapLogger, cfg.SettingsReloadInterval)
	rateLimitReloader := middleware.NewRateLimitReloader(limiterStore, settingsRepo, cfg.DefaultRateLimit, zapLogger, cfg.SettingsReloadInterval).
		WithTrustedProxies(cfg.TrustedProxies)

	r := newRouter(cfg, zapLogger, routerDeps{
		userinfo:  handlers.NewUserinfoHandler(userinfoService, zapLogger),
		auth:      handlers.NewAuthHandler(plugin, settingsRepo, zapLogger),
		health:    handlers.NewHealthChecker(db, redisClient),
		cors:      corsReloader,
		rateLimit: rateLimitReloader,
		tracing:   tracing,
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   35 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// CORS and rate limit hot-reload loops
	reloadCtx, reloadCancel := context.WithCancel(context.Background())
	defer reloadCancel()
	go corsReloader.Start(reloadCtx)
	go rateLimitReloader.Start(reloadCtx)

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	reloadCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
		return
	}

	zapLogger.Info("server_exited")
}

// logSchemaVersion warns when upgrade steps are pending. The server never
// migrates on its own; run 'opensocial-oauth-configure migrate'.
func logSchemaVersion(db *database.DB, zapLogger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	current, err := database.CurrentVersion(ctx, db)
	if err != nil {
		zapLogger.Warn("failed_to_read_schema_version", zap.Error(err))
		return
	}
	latest := database.Migrations[len(database.Migrations)-1].Version
	if current < latest {
		zapLogger.Warn("schema_upgrade_pending",
			zap.Int64("current_version", current),
			zap.Int64("latest_version", latest),
		)
		return
	}
	zapLogger.Info("schema_up_to_date", zap.Int64("version", current))
}
