package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/compliance-gateway/internal/config"
)

// errShutdown marks a shutdown that outlived its deadline.
var errShutdown = errors.New("server shutdown")

// serve runs an http.Server on ln and shuts it down gracefully once ctx is
// canceled. A listener failure cancels the shutdown side and is returned.
func serve(ctx context.Context, ln net.Listener, handler http.Handler, cfg config.Config, logger *zap.Logger) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server started", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%w: %w", errShutdown, err)
		}
		logger.Info("shutdown complete")
		return nil
	})
	return g.Wait()
}
