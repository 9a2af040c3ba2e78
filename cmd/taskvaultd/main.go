// Command taskvaultd is the taskvault server daemon. It opens the task
// store, wires the event bus, and serves the REST API until signaled.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/GoCodeAlone/taskvault/comms"
	"github.com/GoCodeAlone/taskvault/config"
	"github.com/GoCodeAlone/taskvault/internal/version"
	"github.com/GoCodeAlone/taskvault/server"
	"github.com/GoCodeAlone/taskvault/task"
)

var configPath = flag.String("config", "taskvault.yaml", "path to config file")

func main() {
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config %s: %v", *configPath, err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))

	logger.Info("starting taskvaultd",
		"version", version.Version,
		"commit", version.Commit,
	)

	if dir := filepath.Dir(cfg.Store.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("Failed to create data directory %s: %v", dir, err)
		}
	}

	store, err := task.Open(task.Options{
		Path:      cfg.Store.Path,
		PoolSize:  cfg.Store.PoolSize,
		CacheSize: cfg.Store.CacheSize,
		CacheTTL:  cfg.Store.CacheTTL.Std(),
	})
	if err != nil {
		log.Fatalf("Failed to open task store: %v", err)
	}

	bus := comms.NewInMemoryBus()

	srv := server.New(*cfg, version.Version, logger)
	srv.SetTaskStore(store)
	srv.SetBus(bus)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	fmt.Printf("taskvault server running on %s\n", cfg.Server.Addr)
	fmt.Printf("Version: %s (%s)\n", version.Version, version.Commit)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Error("server stop error", "error", err)
	}
	if err := store.Close(); err != nil {
		logger.Error("store close error", "error", err)
	}
	fmt.Println("Shutdown complete")
}

// loadConfig reads the config file, falling back to defaults when the
// default path does not exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil && os.IsNotExist(errors.Unwrap(err)) {
		return config.DefaultConfig(), nil
	}
	return cfg, err
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
