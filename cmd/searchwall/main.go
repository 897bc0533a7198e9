// Package main provides the searchwall entry point: a security
// filtering proxy in front of a search cluster's HTTP API.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"

	"github.com/searchwall/searchwall/internal/config"
	"github.com/searchwall/searchwall/internal/proxy"
	"github.com/searchwall/searchwall/pkg/auth"
	"github.com/searchwall/searchwall/pkg/backend"
	"github.com/searchwall/searchwall/pkg/directory"
	"github.com/searchwall/searchwall/pkg/inspect"
)

func main() {
	var (
		configPath string
		listenAddr string
		debug      bool
	)

	flag.StringVar(&configPath, "config", "/etc/searchwall/config.yaml", "Path to the config file")
	flag.StringVar(&listenAddr, "listen", "", "Address to listen on (overrides config)")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	_ = flag.Set("logtostderr", "true")

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		glog.Fatalf("Failed to load config: %v", err)
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}

	transport, err := backend.NewHTTPTransport(cfg.Backend, &http.Client{Timeout: 60 * time.Second})
	if err != nil {
		glog.Fatalf("Failed to set up backend transport: %v", err)
	}

	var groups auth.GroupBackend
	if cfg.Directory.URL != "" {
		groups = directory.NewUsergroupBackend(cfg.DirectorySettings())
	}

	manager := auth.NewManager(cfg.AllowFromTable(), groups, auth.NewRoleDirectory(transport))

	registry, err := inspect.NewRegistry(inspect.IndicesEndpoints()...)
	if err != nil {
		glog.Fatalf("Failed to build endpoint registry: %v", err)
	}

	handler := proxy.New(manager, registry, transport, "searchwall")

	logger.Info("starting searchwall",
		"listen", cfg.Listen,
		"backend", cfg.Backend,
		"directory", cfg.Directory.URL != "",
	)

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           proxy.Router(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		glog.Fatalf("Server failed: %v", err)
	}

	logger.Info("searchwall stopped")
}
