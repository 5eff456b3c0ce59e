package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/server"
	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/syncdriver"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the local read API, live streams, and metrics",
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			return runServer(cmd.Context(), a)
		}),
	}
}

func runServer(ctx context.Context, a *app) error {
	driver, err := newSyncDriver(a)
	if err != nil {
		return err
	}

	deps := server.Dependencies{
		Repositories: a.store.Repositories,
		Bus:          a.store.Bus,
		Metrics:      a.metrics,
		Gatherer:     a.registry,
		Logger:       a.logger,
	}
	if driver != nil {
		deps.Sync = driver
	}
	handler, err := server.NewHTTPHandler(deps)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              a.config.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(signalCtx)
	group.Go(func() error {
		a.logger.Info("server starting", zap.String("address", a.config.HTTPAddress))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	if driver != nil && a.config.SyncInterval > 0 {
		group.Go(func() error {
			runSyncLoop(groupCtx, driver, a.config.SyncInterval, a.logger)
			return nil
		})
	}
	return group.Wait()
}

// runSyncLoop runs a pass every interval until ctx ends. Failed passes are
// logged; their rows are retried by the next pass.
func runSyncLoop(ctx context.Context, driver *syncdriver.Driver, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := driver.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("background sync pass failed", zap.Error(err))
			}
		}
	}
}
