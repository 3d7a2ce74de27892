package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rob0403/LiveVotingRW/pkg/logger"
)

// Run starts the HTTP server and blocks until a shutdown signal arrives or
// the server fails. The cleanup callback runs after the listener has been
// shut down so in-flight requests finish before resources are released.
func Run(srv *http.Server, log *logger.Logger, cleanup func(ctx context.Context) error) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErr:
		log.WithError(err).Error("Server failed, initiating shutdown")
		runErr = err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}

	if cleanup != nil {
		if err := cleanup(ctx); err != nil {
			log.WithError(err).Error("Cleanup completed with errors")
			if runErr == nil {
				runErr = err
			}
		}
	}

	if runErr == nil {
		log.Info("Graceful shutdown complete")
	}
	return runErr
}
