// ABOUTME: Entry point for the lattice-mcp server
// ABOUTME: Loads config, builds the registry, and serves the MCP endpoint

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/2389/lattice-mcp/internal/auth"
	"github.com/2389/lattice-mcp/internal/builtins"
	"github.com/2389/lattice-mcp/internal/config"
	"github.com/2389/lattice-mcp/internal/dispatch"
	"github.com/2389/lattice-mcp/internal/httpserver"
	"github.com/2389/lattice-mcp/internal/registry"
	"github.com/2389/lattice-mcp/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _       _   _   _
| | __ _| |_| |_(_) ___ ___
| |/ _' | __| __| |/ __/ _ \
| | (_| | |_| |_| | (_|  __/
|_|\__,_|\__|\__|_|\___\___|
`

// getConfigPath returns the path to the config file.
// Priority: LATTICE_CONFIG env var > XDG_CONFIG_HOME/lattice/config.yaml > ~/.config/lattice/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("LATTICE_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "lattice", "config.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: lattice-mcp <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve    Start the MCP server")
		fmt.Println("  version  Print the version")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config: %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:   %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Auth:   %s\n", authSummary(cfg.Auth))
	fmt.Println()

	logger.Info("starting lattice-mcp",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
	)

	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer db.Close()

	reg := registry.New(logger)
	if err := builtins.RegisterNotes(reg, db); err != nil {
		return fmt.Errorf("registering notes pack: %w", err)
	}
	if err := builtins.RegisterDocs(reg); err != nil {
		return fmt.Errorf("registering docs pack: %w", err)
	}
	if err := builtins.RegisterPrompts(reg, db); err != nil {
		return fmt.Errorf("registering prompt pack: %w", err)
	}
	reg.Freeze()

	resolver, err := auth.NewResolver(resolverConfig(cfg.Auth), logger)
	if err != nil {
		return fmt.Errorf("configuring auth: %w", err)
	}

	serverName := cfg.Server.Name
	if serverName == "" {
		serverName = "lattice-mcp"
	}
	serverVersion := cfg.Server.Version
	if serverVersion == "" {
		serverVersion = version
	}

	dispatcher, err := dispatch.New(dispatch.Config{
		Registry:      reg,
		Logger:        logger,
		ServerName:    serverName,
		ServerVersion: serverVersion,
	})
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}

	srv, err := httpserver.NewServer(httpserver.Config{
		Dispatcher: dispatcher,
		Resolver:   resolver,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}

// resolverConfig maps the config file's auth section onto the resolver.
// The function strategy is wired to the HS256 JWT verifier.
func resolverConfig(cfg config.AuthConfig) auth.Config {
	out := auth.Config{
		Enabled:  cfg.Enabled,
		Strategy: auth.Strategy(cfg.Strategy),
		Token:    cfg.Token,
		APIKey:   cfg.APIKey,
		Header:   cfg.Header,
	}
	if out.Strategy == "" {
		out.Strategy = auth.StrategyNone
	}
	if out.Strategy == auth.StrategyFunction {
		out.Verify = auth.JWTVerify([]byte(cfg.JWTSecret))
	}
	return out
}

func authSummary(cfg config.AuthConfig) string {
	if !cfg.Enabled || cfg.Strategy == "" || cfg.Strategy == "none" {
		return "disabled"
	}
	return cfg.Strategy
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = newColorHandler(os.Stdout, level)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
