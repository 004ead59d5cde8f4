package api

import (
	"context"
	"net/http"
	"time"

	"github.com/giftwell-app/giftwell-backend/pkg/config"
	"github.com/giftwell-app/giftwell-backend/pkg/logger"
)

const shutdownGrace = 15 * time.Second

// Server wraps http.Server with graceful shutdown.
type Server struct {
	srv  *http.Server
	logg *logger.Logger
}

func NewServer(cfg *config.Config, logg *logger.Logger, handler http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              ":" + cfg.App.Port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		logg: logg,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logg.Info(ctx, "http server listening on "+s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
