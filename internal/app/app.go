// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app wires the buildwatch components together and owns their
// lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wingedpig/buildwatch/internal/api"
	"github.com/wingedpig/buildwatch/internal/config"
	"github.com/wingedpig/buildwatch/internal/crashes"
	"github.com/wingedpig/buildwatch/internal/diagnostics"
	"github.com/wingedpig/buildwatch/internal/events"
	"github.com/wingedpig/buildwatch/internal/mcp"
	"github.com/wingedpig/buildwatch/internal/monitor"
	"github.com/wingedpig/buildwatch/internal/recorder"
	"github.com/wingedpig/buildwatch/internal/trends"
	"github.com/wingedpig/buildwatch/internal/watcher"
)

// App is the main application container.
type App struct {
	mu sync.Mutex

	configPath   string // Empty when running on defaults
	version      string
	config       *config.Config
	eventBus     events.EventBus
	store        *diagnostics.Store
	recorder     *recorder.Recorder
	runner       *recorder.Runner
	statusCache  *trends.StatusCache
	aggregator   *trends.Aggregator
	crashManager *crashes.Manager
	monitor      *monitor.Monitor
	buildWatcher *watcher.BuildLogWatcher
	apiServer    *api.Server

	initialized bool
	shutdown    bool
	done        chan struct{}
	stopOnce    sync.Once
}

// Options holds configuration options for the app.
type Options struct {
	ConfigPath string // Config file; found in Dir when empty
	Dir        string // Project directory used for config discovery and defaults
	Host       string // Overrides server.host
	Port       int    // Overrides server.port
	Version    string
}

// New loads and validates configuration. No component is started.
func New(opts Options) (*App, error) {
	cfg, path, err := LoadConfig(opts)
	if err != nil {
		return nil, err
	}

	app := &App{
		configPath: path,
		version:    opts.Version,
		config:     cfg,
		done:       make(chan struct{}),
	}
	app.eventBus = events.NewMemoryEventBus(events.MemoryBusConfig{
		HistoryMaxEvents: cfg.Events.History.MaxEvents,
		HistoryMaxAge:    config.ParseDuration(cfg.Events.History.MaxAge, 24*time.Hour),
		Project:          cfg.Project.Name,
	})
	return app, nil
}

// LoadConfig resolves, loads and validates the configuration for opts,
// applying the host and port overrides. The returned path is "" when no
// config file was found and defaults are used.
func LoadConfig(opts Options) (*config.Config, string, error) {
	cfg, path, err := loadConfig(opts)
	if err != nil {
		return nil, "", err
	}

	if opts.Host != "" {
		cfg.Server.Host = opts.Host
	}
	if opts.Port > 0 {
		cfg.Server.Port = opts.Port
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, "", fmt.Errorf("invalid config: %w", err)
	}
	return cfg, path, nil
}

func loadConfig(opts Options) (*config.Config, string, error) {
	loader := config.NewLoader()
	path := opts.ConfigPath
	if path == "" {
		dir := opts.Dir
		if dir == "" {
			dir = "."
		}
		found, err := loader.FindConfig(dir)
		if errors.Is(err, os.ErrNotExist) {
			cfg, err := config.DefaultConfig(dir)
			if err != nil {
				return nil, "", fmt.Errorf("default config: %w", err)
			}
			return cfg, "", nil
		}
		if err != nil {
			return nil, "", err
		}
		path = found
	}

	cfg, err := loader.LoadWithDefaults(context.Background(), path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, path, nil
}

// Config returns the expanded configuration.
func (app *App) Config() *config.Config { return app.config }

// ConfigPath returns the loaded config file, or "" when running on defaults.
func (app *App) ConfigPath() string { return app.configPath }

// Store returns the diagnostics store. Valid after Initialize.
func (app *App) Store() *diagnostics.Store { return app.store }

// Recorder returns the build recorder. Valid after Initialize.
func (app *App) Recorder() *recorder.Recorder { return app.recorder }

// Runner returns the build runner. Valid after Initialize.
func (app *App) Runner() *recorder.Runner { return app.runner }

// Aggregator returns the trend aggregator. Valid after Initialize.
func (app *App) Aggregator() *trends.Aggregator { return app.aggregator }

// CrashManager returns the crash artifact manager. Valid after Initialize.
func (app *App) CrashManager() *crashes.Manager { return app.crashManager }

// Monitor returns the runtime log monitor. Valid after Initialize.
func (app *App) Monitor() *monitor.Monitor { return app.monitor }

// EventBus returns the event bus.
func (app *App) EventBus() events.EventBus { return app.eventBus }

// Initialize opens the store and creates all components. It is idempotent.
func (app *App) Initialize(ctx context.Context) error {
	app.mu.Lock()
	defer app.mu.Unlock()

	if app.initialized {
		return nil
	}
	cfg := app.config

	store, err := diagnostics.Open(diagnostics.Config{
		Path:        cfg.Diagnostics.DBPath,
		ProjectPath: cfg.Project.Root,
	})
	if err != nil {
		return fmt.Errorf("open diagnostics store: %w", err)
	}
	app.store = store

	if err := app.seed(ctx); err != nil {
		store.Close()
		return err
	}

	crashManager, err := crashes.NewManager(crashes.Config{
		ReportsDir:   cfg.Crashes.ReportsDir,
		RecentLogs:   cfg.Crashes.RecentLogs,
		RecentErrors: cfg.Crashes.RecentErrors,
	}, app.eventBus)
	if err != nil {
		store.Close()
		return fmt.Errorf("crash manager: %w", err)
	}
	app.crashManager = crashManager

	app.monitor = monitor.New(monitor.Config{
		BundleID:        cfg.Monitor.BundleID,
		Command:         cfg.Monitor.GetCommand(),
		WorkDir:         cfg.Monitor.WorkDir,
		Env:             cfg.Monitor.Env,
		UsePTY:          cfg.Monitor.UsePTY,
		LogDir:          cfg.Monitor.LogDir,
		LogBufferSize:   cfg.Monitor.LogBufferSize,
		ErrorBufferSize: cfg.Monitor.ErrorBufferSize,
		StopTimeout:     config.ParseDuration(cfg.Monitor.StopTimeout, monitor.DefaultStopTimeout),
	}, crashManager, app.eventBus)

	app.statusCache = trends.NewStatusCache(cfg.Diagnostics.StatusFile)
	app.recorder = recorder.New(store, app.eventBus)
	app.recorder.AddObserver(app.statusCache)
	app.aggregator = trends.NewAggregator(store, app.statusCache, app.monitor.Active)

	app.runner = recorder.NewRunner(recorder.RunnerConfig{
		Command: cfg.Build.GetCommand(),
		WorkDir: cfg.Build.WorkDir,
		Env:     cfg.Build.Env,
		Timeout: config.ParseDuration(cfg.Build.Timeout, recorder.DefaultBuildTimeout),
		Scheme:  cfg.Build.Scheme,
		Target:  cfg.Build.Target,
	}, app.recorder, app.eventBus)

	app.initialized = true
	return nil
}

// seed inserts the built-in known solutions and those of the seed file.
func (app *App) seed(ctx context.Context) error {
	seeds, err := diagnostics.DefaultSeeds()
	if err != nil {
		return fmt.Errorf("built-in seeds: %w", err)
	}
	if path := app.config.Diagnostics.SeedFile; path != "" {
		extra, err := diagnostics.LoadSeedFile(path)
		if err != nil {
			return err
		}
		seeds = append(seeds, extra...)
	}

	n, err := app.store.SeedSolutions(ctx, seeds)
	if err != nil {
		return fmt.Errorf("seed solutions: %w", err)
	}
	if n > 0 {
		log.Printf("Diagnostics: seeded %d known solutions", n)
	}
	return nil
}

// startWatcher starts the build log watcher when build.watch_dir is set.
func (app *App) startWatcher() error {
	cfg := app.config.Build
	if cfg.WatchDir == "" {
		return nil
	}
	if err := os.MkdirAll(cfg.WatchDir, 0755); err != nil {
		return fmt.Errorf("create watch dir: %w", err)
	}
	w, err := watcher.NewBuildLogWatcher(watcher.BuildLogConfig{
		Dir:      cfg.WatchDir,
		Pattern:  cfg.WatchPattern,
		Debounce: config.ParseDuration(cfg.Debounce, watcher.DefaultDebounce),
	}, app.recorder, app.eventBus)
	if err != nil {
		return err
	}
	app.mu.Lock()
	app.buildWatcher = w
	app.mu.Unlock()
	return nil
}

// Serve runs the HTTP API and the build log watcher until ctx is done, a
// signal arrives, or Stop is called.
func (app *App) Serve(ctx context.Context) error {
	if err := app.Initialize(ctx); err != nil {
		return err
	}
	defer app.Shutdown(context.Background())

	if err := app.startWatcher(); err != nil {
		return err
	}

	cfg := app.config.Server
	app.apiServer = api.NewServer(api.ServerConfig{
		Host:         cfg.Host,
		Port:         cfg.Port,
		TLSCert:      cfg.TLSCert,
		TLSKey:       cfg.TLSKey,
		TLSTailscale: cfg.TLSTailscale,
	}, api.Dependencies{
		Store:           app.store,
		Recorder:        app.recorder,
		Aggregator:      app.aggregator,
		Monitor:         app.monitor,
		CrashManager:    app.crashManager,
		EventBus:        app.eventBus,
		TrendWindowDays: app.config.Diagnostics.TrendWindowDays,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := app.apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		app.waitForShutdown(gctx)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return app.apiServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// RunMCP serves the MCP tools on stdio until ctx is done or the client
// disconnects.
func (app *App) RunMCP(ctx context.Context) error {
	if err := app.Initialize(ctx); err != nil {
		return err
	}
	defer app.Shutdown(context.Background())

	if err := app.startWatcher(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := mcp.NewServer(mcp.Dependencies{
		Store:           app.store,
		Recorder:        app.recorder,
		Aggregator:      app.aggregator,
		Monitor:         app.monitor,
		CrashManager:    app.crashManager,
		TrendWindowDays: app.config.Diagnostics.TrendWindowDays,
	}, app.version)
	return srv.Run(ctx)
}

func (app *App) waitForShutdown(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, shutting down...", sig)
	case <-ctx.Done():
		log.Printf("Context cancelled, shutting down...")
	case <-app.done:
		log.Printf("Shutdown requested...")
	}
}

// Shutdown stops the watcher and monitor and closes the store. It is
// safe to call more than once.
func (app *App) Shutdown(ctx context.Context) error {
	app.mu.Lock()
	defer app.mu.Unlock()

	if app.shutdown {
		return nil
	}
	app.shutdown = true

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if app.buildWatcher != nil {
		if err := app.buildWatcher.Close(); err != nil {
			log.Printf("Error closing build log watcher: %v", err)
		}
	}

	if app.monitor != nil {
		if err := app.monitor.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error stopping monitor: %v", err)
		}
	}

	if app.eventBus != nil {
		app.eventBus.Close()
	}

	if app.store != nil {
		if err := app.store.Close(); err != nil {
			log.Printf("Error closing diagnostics store: %v", err)
		}
	}
	return nil
}

// Stop signals Serve to shut down. Safe to call multiple times.
func (app *App) Stop() {
	app.stopOnce.Do(func() {
		close(app.done)
	})
}
