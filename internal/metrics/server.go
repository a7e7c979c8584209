package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const readHeaderTimeout = 5 * time.Second

// Server serves /metrics on its own listener.
type Server struct {
	addr     string
	recorder *Recorder
	logger   *slog.Logger
}

// NewServer returns a Server for recorder on addr.
func NewServer(addr string, recorder *Recorder, logger *slog.Logger) *Server {
	return &Server{addr: addr, recorder: recorder, logger: logger.With(slog.String("component", "metrics"))}
}

// Run blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.recorder.Handler())

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(context.WithoutCancel(ctx)); err != nil {
			s.logger.Error("metrics server shutdown", slog.String("error", err.Error()))
		}
	}()

	s.logger.Info("metrics server started", slog.String("address", s.addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics: listen: %w", err)
	}
	s.logger.Info("metrics server stopped")
	return nil
}
