// Command browsermcp is the browser-automation MCP tool server.
//
// Usage:
//
//	browsermcp                              # stdio transport, defaults
//	browsermcp -config browsermcp.yaml      # settings from YAML
//	browsermcp -transport http -addr :8931  # streamable HTTP on /mcp
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/browsermcp/browsertools"
	"github.com/hazyhaar/browsermcp/envsubst"
	"github.com/hazyhaar/browsermcp/shield"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to browsermcp.yaml config file")
	transport := flag.String("transport", "", "MCP transport: stdio or http (overrides config)")
	addr := flag.String("addr", "", "listen address for the http transport (overrides config)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	// stdout carries the stdio transport.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *transport, *addr); err != nil {
		logger.Error("browsermcp: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, transport, addr string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if transport != "" {
		cfg.Server.Transport = transport
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	tools, err := browsertools.New(cfg, logger, browsertools.WithEnv(envsubst.FromEnviron(os.Environ())))
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer tools.Close()

	srv := mcp.NewServer(&mcp.Implementation{Name: "browsermcp", Version: version}, nil)
	tools.RegisterMCP(srv)
	logger.Info("browsermcp: ready",
		"transport", cfg.Server.Transport, "session_id", tools.SessionID(),
		"recording", cfg.Recording.Enabled)

	switch cfg.Server.Transport {
	case "http":
		return serveHTTP(ctx, logger, srv, cfg.Server.Addr)
	case "stdio":
		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("stdio: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown transport %q", cfg.Server.Transport)
	}
}

func loadConfig(path string) (*browsertools.Config, error) {
	if path == "" {
		return browsertools.DefaultConfig(os.LookupEnv)
	}
	return browsertools.LoadConfigFile(path)
}

func serveHTTP(ctx context.Context, logger *slog.Logger, srv *mcp.Server, addr string) error {
	r := chi.NewRouter()
	for _, mw := range shield.DefaultStack(logger) {
		r.Use(mw)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// One browser, one MCP server for every client.
	r.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return srv }, nil))

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("browsermcp: http listening", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("browsermcp: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
