package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/wastetrace/wastetrace/internal/auth"
	"github.com/wastetrace/wastetrace/internal/model"
	"github.com/wastetrace/wastetrace/internal/service/intake"
	"github.com/wastetrace/wastetrace/internal/service/stats"
	"github.com/wastetrace/wastetrace/internal/service/wallet"
	"github.com/wastetrace/wastetrace/internal/storage"
)

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	db        *storage.DB
	jwtMgr    *auth.JWTManager
	intakeSvc *intake.Service
	walletSvc *wallet.Service
	statsSvc  *stats.Service
	broker    *Broker
	logger    *slog.Logger
	startedAt time.Time
	version   string
}

// HandlersDeps holds all dependencies for constructing Handlers.
// Broker is optional (nil disables /v1/subscribe).
type HandlersDeps struct {
	DB        *storage.DB
	JWTMgr    *auth.JWTManager
	IntakeSvc *intake.Service
	WalletSvc *wallet.Service
	StatsSvc  *stats.Service
	Broker    *Broker
	Logger    *slog.Logger
	Version   string
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		db:        d.DB,
		jwtMgr:    d.JWTMgr,
		intakeSvc: d.IntakeSvc,
		walletSvc: d.WalletSvc,
		statsSvc:  d.StatsSvc,
		broker:    d.Broker,
		logger:    d.Logger,
		startedAt: time.Now(),
		version:   d.Version,
	}
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := model.HealthResponse{
		Status:   "ok",
		Version:  h.version,
		Postgres: "ok",
		Uptime:   int64(time.Since(h.startedAt).Seconds()),
	}
	if err := h.db.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Postgres = "unreachable"
	}
	if h.broker != nil {
		resp.Broker = "listening"
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// HandleLeaderboard handles GET /v1/leaderboard.
func (h *Handlers) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	entries, err := h.db.Leaderboard(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, entries)
}

// HandleSubscribe handles GET /v1/subscribe: a long-lived SSE stream of
// intake lifecycle events.
func (h *Handlers) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	if h.broker == nil {
		writeError(w, r, http.StatusServiceUnavailable, model.ErrCodeInternalError,
			"SSE not available (LISTEN/NOTIFY not configured)")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Disable the server's WriteTimeout for this long-lived connection.
	// Without this, idle SSE connections are killed after WriteTimeout (default 30s).
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	ch := h.broker.Subscribe()
	defer h.broker.Unsubscribe(ch)

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			if _, err := w.Write([]byte(":keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case event, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(event); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
