/*
Copyright 2024 SerialLink Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Shoaibashk/serialmonitor/api"
	"github.com/Shoaibashk/serialmonitor/config"
	"github.com/Shoaibashk/serialmonitor/internal/channel"
	"github.com/Shoaibashk/serialmonitor/internal/decode"
	"github.com/Shoaibashk/serialmonitor/internal/eventbus"
	"github.com/Shoaibashk/serialmonitor/internal/macro"
	"github.com/Shoaibashk/serialmonitor/internal/store"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the serial monitor server",
	Long: `Start the serial monitor server to manage serial port connections.

The server listens on a single HTTP address and provides:
  • Port discovery and enumeration
  • Multi-channel open/close with per-channel ring buffers
  • A WebSocket endpoint for real-time streaming
  • A REST surface for connect/disconnect/status/export/macros/profiles

Example:
  serialmonitor serve                          # Start with default settings
  serialmonitor serve --address 0.0.0.0:9000   # Custom address
  serialmonitor serve --tls                    # Enable TLS`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("address", "a", "", "HTTP server address (default: 0.0.0.0:8080)")
	serveCmd.Flags().Bool("tls", false, "enable TLS")
	serveCmd.Flags().String("cert", "", "TLS certificate file")
	serveCmd.Flags().String("key", "", "TLS key file")

	if err := viper.BindPFlag("server.address", serveCmd.Flags().Lookup("address")); err != nil {
		log.Warn("failed to bind address flag", "error", err)
	}
	if err := viper.BindPFlag("tls.enabled", serveCmd.Flags().Lookup("tls")); err != nil {
		log.Warn("failed to bind tls flag", "error", err)
	}
	if err := viper.BindPFlag("tls.cert_file", serveCmd.Flags().Lookup("cert")); err != nil {
		log.Warn("failed to bind cert flag", "error", err)
	}
	if err := viper.BindPFlag("tls.key_file", serveCmd.Flags().Lookup("key")); err != nil {
		log.Warn("failed to bind key flag", "error", err)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := initLogger(cfg)

	if addr, _ := cmd.Flags().GetString("address"); addr != "" {
		cfg.Server.Address = addr
	}

	logger.Info("starting serial monitor server",
		"version", Version,
		"address", cfg.Server.Address,
		"tls", cfg.TLS.Enabled)

	if cfg.TLS.Enabled {
		if err := validateTLSConfig(cfg.TLS, logger); err != nil {
			return fmt.Errorf("TLS validation failed: %w", err)
		}
	}

	defaultSerialConfig, err := cfg.Serial.Defaults.ToPortConfig()
	if err != nil {
		return fmt.Errorf("failed to build serial defaults: %w", err)
	}

	registry := decode.NewRegistry(logger, cfg.Decoders.Enabled)
	bus := eventbus.NewBus()
	sink := eventbus.NewSink(bus, registry)

	manager := channel.NewManager(sink, defaultSerialConfig)
	defer manager.ShutdownAll()

	scanner, err := channel.NewScanner(sink, logger, cfg.Serial.ExcludePatterns)
	if err != nil {
		return fmt.Errorf("failed to create scanner: %w", err)
	}

	macroStore, err := store.NewMacroStore(cfg.Store.MacrosPath)
	if err != nil {
		return fmt.Errorf("failed to load macro store: %w", err)
	}
	profileStore, err := store.NewProfileStore(cfg.Store.ProfilesPath)
	if err != nil {
		return fmt.Errorf("failed to load profile store: %w", err)
	}

	executor := macro.NewExecutor(manager)

	server := api.NewServer(api.Deps{
		Config:       cfg,
		Manager:      manager,
		Scanner:      scanner,
		Registry:     registry,
		Bus:          bus,
		MacroStore:   macroStore,
		ProfileStore: profileStore,
		Executor:     executor,
		Logger:       logger,
	})

	if cfg.Serial.ScanIntervalMs > 0 {
		scanner.Start(cfg.Serial.ScanIntervalMs)
		defer scanner.Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		logger.Info("serial monitor listening", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down gracefully...")
	case <-server.ShutdownRequested():
		logger.Info("shutdown requested via API")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// initLogger creates and configures a charmbracelet logger based on config.
// When a log file is configured, output rotates through lumberjack instead
// of growing an unbounded file.
func initLogger(cfg *config.Config) *log.Logger {
	var out io.Writer = os.Stderr
	if cfg.Logging.File != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.Logging.File,
			MaxSize:    cfg.Logging.MaxSize,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAge:     cfg.Logging.MaxAge,
			Compress:   cfg.Logging.Compress,
		}
	}

	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		ReportCaller:    true,
	})
	if cfg.Logging.Format == "json" {
		logger.SetFormatter(log.JSONFormatter)
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	return logger
}

// validateTLSConfig validates that TLS certificate files exist and are readable
func validateTLSConfig(tlsCfg config.TLSConfig, logger *log.Logger) error {
	if tlsCfg.CertFile != "" {
		if _, err := os.Stat(tlsCfg.CertFile); os.IsNotExist(err) {
			return fmt.Errorf("TLS certificate file not found: %s", tlsCfg.CertFile)
		} else if err != nil {
			return fmt.Errorf("cannot access TLS certificate file: %w", err)
		}
		logger.Debug("TLS certificate file validated", "path", tlsCfg.CertFile)
	}

	if tlsCfg.KeyFile != "" {
		if _, err := os.Stat(tlsCfg.KeyFile); os.IsNotExist(err) {
			return fmt.Errorf("TLS key file not found: %s", tlsCfg.KeyFile)
		} else if err != nil {
			return fmt.Errorf("cannot access TLS key file: %w", err)
		}
		logger.Debug("TLS key file validated", "path", tlsCfg.KeyFile)
	}

	if tlsCfg.CAFile != "" {
		if _, err := os.Stat(tlsCfg.CAFile); os.IsNotExist(err) {
			return fmt.Errorf("TLS CA file not found: %s", tlsCfg.CAFile)
		} else if err != nil {
			return fmt.Errorf("cannot access TLS CA file: %w", err)
		}
		logger.Debug("TLS CA file validated", "path", tlsCfg.CAFile)
	}

	return nil
}
