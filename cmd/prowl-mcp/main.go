package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/prowl/config"
	"github.com/use-agent/prowl/engine"
	"github.com/use-agent/prowl/scraper"
	"github.com/use-agent/prowl/server"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()

	// stdout carries the MCP protocol; logs go to stderr.
	initLogger(cfg.Log)
	slog.Info("prowl-mcp starting",
		"version", version,
		"maxRetries", cfg.Scraper.MaxRetries,
		"proxyPool", len(cfg.Scraper.ProxyPool),
	)

	browserEngine := engine.NewRodEngine(engine.RodOptions{
		NoSandbox:  cfg.Browser.NoSandbox,
		BrowserBin: cfg.Browser.BrowserBin,
	})
	fastEngine := engine.NewHTTPEngine()

	registry := scraper.NewRegistry(browserEngine, cfg.Session.MaxNamed)
	svc := server.NewService(fastEngine, browserEngine, registry, cfg)

	s := server.NewMCPServer(svc, version)

	// Best-effort browser cleanup on SIGINT/SIGTERM. ServeStdio also
	// returns when stdin closes, which is the normal MCP shutdown path.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())
		registry.CloseAll()
		os.Exit(0)
	}()

	if err := mcpserver.ServeStdio(s); err != nil {
		slog.Error("server error", "error", err)
		registry.CloseAll()
		os.Exit(1)
	}

	registry.CloseAll()
	slog.Info("prowl-mcp stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
