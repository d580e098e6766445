package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wastetrace/wastetrace/internal/auth"
	"github.com/wastetrace/wastetrace/internal/config"
	"github.com/wastetrace/wastetrace/internal/ratelimit"
	"github.com/wastetrace/wastetrace/internal/server"
	"github.com/wastetrace/wastetrace/internal/service/intake"
	"github.com/wastetrace/wastetrace/internal/service/stats"
	"github.com/wastetrace/wastetrace/internal/service/wallet"
	"github.com/wastetrace/wastetrace/internal/storage"
	"github.com/wastetrace/wastetrace/internal/telemetry"
	"github.com/wastetrace/wastetrace/migrations"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("WASTETRACE_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("wastetrace starting", "version", version, "port", cfg.Port)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	// Connect to database.
	db, err := storage.New(ctx, cfg.DatabaseURL, cfg.NotifyURL, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer db.Close(ctx)

	// Register connection pool OTEL metrics (after telemetry.Init).
	db.RegisterPoolMetrics()

	// Run embedded migrations. RunMigrations tracks applied files in
	// schema_migrations and skips duplicates, so errors here indicate real
	// failures (not "already exists").
	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	// Create JWT manager.
	jwtMgr, err := auth.NewJWTManager(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.JWTExpiration)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	// Create services.
	intakeSvc := intake.New(db, logger, cfg.BaseURL)
	walletSvc := wallet.New(db, logger)
	statsSvc := stats.New(db)

	// Create SSE broker (requires LISTEN/NOTIFY connection).
	var broker *server.Broker
	if db.HasNotifyConn() {
		broker = server.NewBroker(db, logger)
		go broker.Start(ctx)
	} else {
		logger.Info("SSE broker: disabled (no notify connection)")
	}

	// Create rate limiter. Redis when configured, in-process token bucket
	// otherwise.
	limiter := newLimiter(cfg, logger)
	defer func() { _ = limiter.Close() }()

	// Seed demo data on request (idempotent: skipped when users exist).
	if cfg.SeedDemoData {
		if err := seedDemoData(ctx, db, logger); err != nil {
			logger.Warn("demo seed failed", "error", err)
		}
	}

	// Create and start HTTP server.
	srv := server.New(server.ServerConfig{
		DB:                  db,
		JWTMgr:              jwtMgr,
		IntakeSvc:           intakeSvc,
		WalletSvc:           walletSvc,
		StatsSvc:            statsSvc,
		Limiter:             limiter,
		Broker:              broker,
		Logger:              logger,
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	})

	// Start HTTP server in background.
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	// Graceful shutdown. The HTTP drain gets its own timeout so in-flight QC
	// transactions can commit before the pool closes.
	slog.Info("wastetrace shutting down")

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := srv.Shutdown(httpCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	httpCancel()

	slog.Info("wastetrace stopped")
	return nil
}

// newLimiter selects the rate limiter implementation from configuration.
// A Redis failure falls back to the in-memory limiter rather than refusing
// to start.
func newLimiter(cfg config.Config, logger *slog.Logger) ratelimit.Limiter {
	if !cfg.RateLimitEnabled {
		logger.Info("rate limiting: disabled")
		return ratelimit.NoopLimiter{}
	}

	if cfg.RedisURL != "" {
		limiter, err := ratelimit.NewRedisLimiter(cfg.RedisURL, cfg.RateLimitRPM, time.Minute)
		if err != nil {
			logger.Warn("rate limiting: redis unavailable, falling back to memory", "error", err)
		} else {
			logger.Info("rate limiting: redis (fixed window)", "rpm", cfg.RateLimitRPM)
			return limiter
		}
	}

	rate := float64(cfg.RateLimitRPM) / 60.0
	logger.Info("rate limiting: memory (in-process token bucket)", "rpm", cfg.RateLimitRPM)
	return ratelimit.NewMemoryLimiter(rate, cfg.RateLimitRPM)
}
