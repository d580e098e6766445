package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/wastetrace/wastetrace/internal/auth"
	"github.com/wastetrace/wastetrace/internal/model"
	"github.com/wastetrace/wastetrace/internal/ratelimit"
	"github.com/wastetrace/wastetrace/internal/service/intake"
	"github.com/wastetrace/wastetrace/internal/service/stats"
	"github.com/wastetrace/wastetrace/internal/service/wallet"
	"github.com/wastetrace/wastetrace/internal/storage"
)

// Server is the Waste-Trace HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Handlers returns the underlying Handlers.
func (s *Server) Handlers() *Handlers {
	return s.handlers
}

// ServerConfig holds all dependencies and configuration for creating a Server.
// Optional fields (nil-safe): Limiter, Broker.
type ServerConfig struct {
	// Required dependencies.
	DB        *storage.DB
	JWTMgr    *auth.JWTManager
	IntakeSvc *intake.Service
	WalletSvc *wallet.Service
	StatsSvc  *stats.Service
	Logger    *slog.Logger

	// Optional dependencies (nil = disabled).
	Limiter ratelimit.Limiter
	Broker  *Broker

	// HTTP server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		DB:        cfg.DB,
		JWTMgr:    cfg.JWTMgr,
		IntakeSvc: cfg.IntakeSvc,
		WalletSvc: cfg.WalletSvc,
		StatsSvc:  cfg.StatsSvc,
		Broker:    cfg.Broker,
		Logger:    cfg.Logger,
		Version:   cfg.Version,
	})

	reqIDFunc := func(r *http.Request) string {
		return RequestIDFromContext(r.Context())
	}

	// Authenticated traffic is limited per user, the open auth endpoints per IP.
	userRL := ratelimit.Middleware(cfg.Limiter, cfg.Logger, userKeyFunc, reqIDFunc)
	authRL := ratelimit.Middleware(cfg.Limiter, cfg.Logger, ratelimit.IPKeyFunc, reqIDFunc)

	generatorOnly := requireRole(model.RoleGenerator)
	recyclerOnly := requireRole(model.RoleRecycler)
	anyUser := requireRole(model.RoleGenerator, model.RoleRecycler)

	mux := http.NewServeMux()

	// Auth endpoints (no auth required, rate limited by IP).
	mux.Handle("POST /auth/register", authRL(http.HandlerFunc(h.HandleRegister)))
	mux.Handle("POST /auth/login", authRL(http.HandlerFunc(h.HandleLogin)))
	mux.Handle("GET /auth/profile", anyUser(http.HandlerFunc(h.HandleProfile)))

	// Waste intake lifecycle.
	mux.Handle("POST /v1/waste", userRL(generatorOnly(http.HandlerFunc(h.HandleCreateIntake))))
	mux.Handle("GET /v1/waste/my", userRL(generatorOnly(http.HandlerFunc(h.HandleMyIntakes))))
	mux.Handle("GET /v1/waste/incoming", userRL(recyclerOnly(http.HandlerFunc(h.HandleIncomingIntakes))))
	mux.Handle("GET /v1/waste/stats", userRL(generatorOnly(http.HandlerFunc(h.HandleGeneratorStats))))
	mux.Handle("GET /v1/waste/recycler-stats", userRL(recyclerOnly(http.HandlerFunc(h.HandleRecyclerStats))))
	mux.Handle("GET /v1/waste/{id}", userRL(anyUser(http.HandlerFunc(h.HandleGetIntake))))
	mux.Handle("PATCH /v1/waste/{id}/status", userRL(recyclerOnly(http.HandlerFunc(h.HandleAdvanceStatus))))
	mux.Handle("POST /v1/waste/{id}/qc", userRL(recyclerOnly(http.HandlerFunc(h.HandleSubmitQC))))

	// Wallet.
	mux.Handle("GET /v1/wallet/balance", userRL(anyUser(http.HandlerFunc(h.HandleBalance))))
	mux.Handle("GET /v1/wallet/transactions", userRL(anyUser(http.HandlerFunc(h.HandleTransactions))))
	mux.Handle("POST /v1/wallet/transfer", userRL(anyUser(http.HandlerFunc(h.HandleTransfer))))
	mux.Handle("POST /v1/wallet/sell", userRL(anyUser(http.HandlerFunc(h.HandleSell))))

	// Plants.
	mux.Handle("POST /v1/plants", userRL(recyclerOnly(http.HandlerFunc(h.HandleCreatePlant))))
	mux.Handle("GET /v1/plants/my", userRL(recyclerOnly(http.HandlerFunc(h.HandleMyPlants))))
	mux.Handle("GET /v1/plants", userRL(anyUser(http.HandlerFunc(h.HandleListPlants))))
	mux.Handle("PUT /v1/plants/{id}", userRL(recyclerOnly(http.HandlerFunc(h.HandleUpdatePlant))))

	// Marketplace.
	mux.Handle("GET /v1/marketplace", userRL(anyUser(http.HandlerFunc(h.HandleListItems))))
	mux.Handle("POST /v1/marketplace", userRL(recyclerOnly(http.HandlerFunc(h.HandleCreateItem))))
	mux.Handle("POST /v1/marketplace/{id}/redeem", userRL(anyUser(http.HandlerFunc(h.HandleRedeemItem))))

	// Leaderboard.
	mux.Handle("GET /v1/leaderboard", userRL(anyUser(http.HandlerFunc(h.HandleLeaderboard))))

	// Subscription endpoint (no rate limit, long-lived connection).
	mux.Handle("GET /v1/subscribe", anyUser(http.HandlerFunc(h.HandleSubscribe)))

	// Health (no auth, no rate limit).
	mux.HandleFunc("GET /health", h.HandleHealth)

	// Middleware chain (outermost executes first):
	// request ID → security headers → tracing → logging → auth → body limit → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = maxBodyMiddleware(cfg.MaxRequestBodyBytes, handler)
	handler = authMiddleware(cfg.JWTMgr, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}
}

// userKeyFunc extracts the user ID from the request context for rate limiting.
func userKeyFunc(r *http.Request) string {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		return ""
	}
	return "user:" + claims.UserID.String()
}

// maxBodyMiddleware caps request body sizes so a client cannot exhaust memory
// with an oversized payload.
func maxBodyMiddleware(maxBytes int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if maxBytes > 0 && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
