package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KevinKickass/HotmockBridge/internal/config"
)

var (
	configPath string
	devLogging bool
)

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "HOTMOCK I/O board bridge",
	Long: `HotmockBridge connects to a HOTMOCK I/O board over TCP, exchanges connector
values with it on a fixed cycle and exposes the connectors as named ports over
REST and WebSocket.

Configuration is read from a YAML file and can be overridden with HMB_*
environment variables, e.g. HMB_HOTMOCK_HOST=192.168.0.40.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "Config file")
	rootCmd.PersistentFlags().BoolVar(&devLogging, "dev", false, "Human readable debug logging")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the process logger from the log section.
func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Development || devLogging {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		zc.Level = level
	}

	return zc.Build()
}
