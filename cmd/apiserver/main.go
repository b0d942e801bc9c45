// Package main runs the deck tracker REST API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ramonehamilton/TCG-Companion/internal/api"
	"github.com/ramonehamilton/TCG-Companion/internal/api/websocket"
	"github.com/ramonehamilton/TCG-Companion/internal/companion"
	"github.com/ramonehamilton/TCG-Companion/internal/config"
	"github.com/ramonehamilton/TCG-Companion/internal/decks"
	"github.com/ramonehamilton/TCG-Companion/internal/metrics"
	"github.com/ramonehamilton/TCG-Companion/internal/version"
)

var (
	configPath  = flag.String("config", "", "Config file (default: ~/.tcg-companion/config.toml)")
	port        = flag.Int("port", 0, "API server port (overrides config)")
	backend     = flag.String("backend", "", "Deck storage backend: sqlite or json (overrides config)")
	storagePath = flag.String("storage-path", "", "Database file or deck directory (overrides config)")
	offline     = flag.Bool("offline", false, "Skip the remote card catalog")
	debug       = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	level := slog.LevelInfo
	if cfg.App.DebugMode {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	fmt.Printf("TCG Companion - REST API Server %s\n", version.GetVersion())
	fmt.Println("===============================")
	fmt.Println()

	hub := websocket.NewHub(websocket.HubOptions{
		AllowedOrigins: cfg.API.AllowedOrigins,
		Logger:         logger,
	})

	observer := websocket.NewDeckObserver(hub)
	serverMetrics := metrics.NewServerMetrics()

	ctx := context.Background()
	app, err := companion.Open(ctx, cfg, companion.Options{
		Logger: logger,
		OnChange: func(event decks.DeckEvent) {
			observer.OnDeckEvent(event)
			serverMetrics.ObserveDeckEvent(event)
		},
	})
	if err != nil {
		log.Fatalf("Failed to open deck store: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("Error closing deck store: %v", err)
		}
	}()

	fmt.Printf("Storage: %s\n", cfg.Storage.Backend)
	fmt.Printf("Catalog: %d cards (%s)\n", app.Catalog.Len(), app.Catalog.Source())
	if warning := app.Catalog.Warning(); warning != "" {
		fmt.Printf("Warning: %s\n", warning)
	}

	server := api.NewServer(&api.Config{
		Port:           cfg.API.Port,
		AllowedOrigins: cfg.API.AllowedOrigins,
		Metrics:        serverMetrics,
	}, app.Decks, hub, logger)

	if err := server.Start(); err != nil {
		log.Fatalf("Failed to start API server: %v", err)
	}

	fmt.Println()
	fmt.Printf("API server running at http://localhost:%d\n", server.Port())
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println()
	fmt.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	fmt.Println("API server stopped.")
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFrom(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if *port != 0 {
		cfg.API.Port = *port
	}
	if *backend != "" {
		cfg.Storage.Backend = *backend
	}
	if *storagePath != "" {
		cfg.Storage.Path = *storagePath
	}
	if *offline {
		cfg.Catalog.RemoteEnabled = false
	}
	if *debug {
		cfg.App.DebugMode = true
	}

	return cfg, cfg.Validate()
}
