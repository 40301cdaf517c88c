package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	httpapi "github.com/sawpanic/stockrun/internal/interfaces/http"
	"github.com/sawpanic/stockrun/internal/scheduler"
)

// runServe assembles the full pipeline with metrics, Redis, and Postgres (when
// configured) and serves the REST and websocket API until interrupted.
func runServe(cmd *cobra.Command, args []string) error {
	configDir, _ := cmd.Flags().GetString("config")
	host, _ := cmd.Flags().GetString("host")
	port, _ := cmd.Flags().GetInt("port")
	withScheduler, _ := cmd.Flags().GetBool("scheduler")

	metrics := httpapi.NewMetricsRegistry()

	app, err := buildApp(configDir, appOptions{withStore: true, withDB: true, observer: metrics})
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if app.dbm != nil {
		if err := app.dbm.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("database schema: %w", err)
		}
	}

	serverCfg := httpapi.DefaultServerConfig()
	if host != "" {
		serverCfg.Host = host
	}
	if port > 0 {
		serverCfg.Port = port
	}

	server, err := httpapi.NewServer(serverCfg, httpapi.Dependencies{
		Scans:     app.scans,
		Watchlist: app.watch,
		DB:        app.dbm,
		Metrics:   metrics,
		Version:   version,
		MinScore:  app.cfg.Watchlist.MinScore,
		TopLimit:  app.cfg.Watchlist.TopLimit,
	})
	if err != nil {
		return err
	}

	if withScheduler {
		sched, err := scheduler.NewScheduler(filepath.Join(configDir, "scheduler.yaml"), app.scans)
		if err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		go func() {
			if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("scheduler stopped")
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.Info().Str("address", server.GetAddress()).Str("version", version).Msg(appName + " API listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return <-errCh
}
