// Package server exposes the bot's read-only HTTP and WebSocket API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/server/handler"
	"github.com/alanyoungcy/limitedbot/internal/server/middleware"
	"github.com/alanyoungcy/limitedbot/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // empty disables authentication
	RateLimit   int    // requests per minute per client; 0 disables
}

// Handlers aggregates the route handlers. Health and Status are required.
type Handlers struct {
	Health  *handler.HealthHandler
	Status  *handler.StatusHandler
	Trades  *handler.TradeHandler
	Events  *handler.EventHandler
	Metrics http.Handler
}

// Server is the headless API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers every route and builds the middleware chain. limiter
// and hub may be nil.
func NewServer(cfg Config, h Handlers, hub *ws.Hub, limiter domain.RateLimiter, obs middleware.RequestObserver, logger *slog.Logger) *Server {
	srv := Routes(cfg, h, hub, limiter, obs, logger)
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      srv,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Routes returns the fully wrapped handler tree.
func Routes(cfg Config, h Handlers, hub *ws.Hub, limiter domain.RateLimiter, obs middleware.RequestObserver, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", h.Health.HealthCheck)
	mux.HandleFunc("GET /api/status", h.Status.GetStatus)
	mux.HandleFunc("GET /api/quota", h.Status.GetQuota)

	if h.Trades != nil {
		mux.HandleFunc("GET /api/trades", h.Trades.ListTrades)
		mux.HandleFunc("GET /api/trades/{id}", h.Trades.GetTrade)
	}
	if h.Events != nil {
		mux.HandleFunc("GET /api/events", h.Events.ListEvents)
	}
	if h.Metrics != nil {
		mux.Handle("GET /metrics", h.Metrics)
	}
	if hub != nil {
		mux.HandleFunc("GET /ws", hub.HandleWS)
	}

	var out http.Handler = mux
	out = middleware.Auth(cfg.APIKey, "/api/health", "/metrics")(out)
	out = middleware.RateLimit(limiter, cfg.RateLimit, time.Minute)(out)
	out = middleware.Logging(logger, obs)(out)
	out = middleware.CORS(cfg.CORSOrigins)(out)
	return out
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server: listen: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return <-errCh
}
