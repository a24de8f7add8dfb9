package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KevinKickass/HotmockBridge/internal/config"
	"github.com/KevinKickass/HotmockBridge/internal/system"
)

var activateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge with REST, WebSocket and gRPC health endpoints",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&activateOnStart, "activate", false, "Activate the board component on startup")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Config laden
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("Config loaded successfully", zap.String("path", configPath))

	lifecycle, err := system.NewLifecycleManager(cfg, logger)
	if err != nil {
		return err
	}

	// System starten
	if err := lifecycle.Start(); err != nil {
		return fmt.Errorf("failed to start system: %w", err)
	}

	if activateOnStart {
		if err := lifecycle.Activate(cmd.Context()); err != nil {
			// Komponente bleibt im ERROR-Zustand, Reset über die API möglich
			logger.Error("Activation on startup failed", zap.Error(err))
		}
	}

	logger.Info("HotmockBridge started successfully")

	// Graceful Shutdown auf Signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := lifecycle.Shutdown(ctx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
		return err
	}

	logger.Info("HotmockBridge stopped successfully")
	return nil
}
