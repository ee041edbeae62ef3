// Command gridsim serves a catalog fixture over the grid wire protocol so
// the client can be exercised without a real grid.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/dittogrid/internal/logger"
	"github.com/marmos91/dittogrid/pkg/config"
	"github.com/marmos91/dittogrid/pkg/gridsim"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default $XDG_CONFIG_HOME/dittogrid/config.yaml)")
	fixturePath := flag.String("fixture", "", "Catalog fixture to seed (overrides gridsim.fixture)")
	listen := flag.String("listen", "", "Address to listen on (overrides gridsim.server.listen)")
	logLevel := flag.String("log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *fixturePath != "" {
		cfg.Gridsim.Fixture = *fixturePath
	}
	if *listen != "" {
		cfg.Gridsim.Server.Listen = *listen
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)
	if cfg.Logging.Output == "stdout" {
		logger.SetOutput(os.Stdout)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := config.CreateGridStore(ctx, &cfg.Gridsim.Store)
	if err != nil {
		log.Fatalf("Failed to create catalog store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Catalog store close error: %v", err)
		}
	}()

	if cfg.Gridsim.Fixture != "" {
		fixture, err := gridsim.LoadFixture(cfg.Gridsim.Fixture)
		if err != nil {
			log.Fatalf("Failed to load fixture: %v", err)
		}
		if fixture.Zone != cfg.Gridsim.Server.Zone {
			logger.Warn("Fixture zone %s differs from served zone %s; using the fixture's", fixture.Zone, cfg.Gridsim.Server.Zone)
			cfg.Gridsim.Server.Zone = fixture.Zone
		}
		if err := fixture.Seed(ctx, store); err != nil {
			log.Fatalf("Failed to seed fixture: %v", err)
		}
	} else {
		logger.Warn("No fixture configured, serving the existing store contents")
	}

	m := config.InitializeMetrics(cfg)
	if m.Server != nil {
		go func() {
			if err := m.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	srv, err := gridsim.New(store, cfg.Gridsim.Server, m.ServerMetrics)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	serverCfg := cfg.Gridsim.Server
	logger.Info("Server configuration:")
	logger.Info("  Listen: %s", serverCfg.Listen)
	logger.Info("  Zone: %s", serverCfg.Zone)
	logger.Info("  Release: %s (API %s)", serverCfg.ReleaseVersion, serverCfg.APIVersion)
	if serverCfg.MaxConnections > 0 {
		logger.Info("  Max connections: %d", serverCfg.MaxConnections)
	} else {
		logger.Info("  Max connections: unlimited")
	}
	logger.Info("  Idle timeout: %v", serverCfg.IdleTimeout)
	logger.Info("  Shutdown timeout: %v", serverCfg.ShutdownTimeout)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Grid simulator is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
		cancel()

		// Serve force-closes connections after the shutdown timeout
		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error: %v", err)
			os.Exit(1)
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		if err != nil {
			logger.Error("Server error: %v", err)
			os.Exit(1)
		}
		logger.Info("Server stopped")
	}
}
