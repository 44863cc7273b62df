package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kgaudium/tentaclepreview/pkg/api"
	"github.com/kgaudium/tentaclepreview/pkg/config"
	"github.com/kgaudium/tentaclepreview/pkg/events"
	"github.com/kgaudium/tentaclepreview/pkg/fleet"
	"github.com/kgaudium/tentaclepreview/pkg/hosting/github"
	"github.com/kgaudium/tentaclepreview/pkg/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the configuration, build the fleet, and serve the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringP("config", "c", "tentacled.yaml", "Path to the configuration file")
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	logger := log.WithComponent("main")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	host, err := github.New(cfg.GithubToken, cfg.RepoFullName)
	if err != nil {
		return fmt.Errorf("failed to create hosting client: %w", err)
	}

	broker := events.NewBroker()
	levels, err := cfg.LogLevels()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	broker.SetLevelFilter(levels)
	broker.Start()
	defer broker.Stop()

	f := fleet.New(cfg, host, broker)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	err = f.Init(ctx)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to initialize fleet: %w", err)
	}
	logger.Info().Int("tentacles", f.Count()).Msg("fleet initialized")

	server := api.NewServer(f, broker)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		f.StopAll()
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http server did not shut down cleanly")
	}

	f.StopAll()
	logger.Info().Msg("shutdown complete")
	return nil
}
