package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/relaycore/agentrt/internal/agentrt/agentloop"
	agentbus "github.com/relaycore/agentrt/internal/agentrt/bus"
	"github.com/relaycore/agentrt/internal/agentrt/channel/discord"
	"github.com/relaycore/agentrt/internal/agentrt/channel/httpapi"
	"github.com/relaycore/agentrt/internal/agentrt/channel/slack"
	"github.com/relaycore/agentrt/internal/agentrt/channel/telegram"
	"github.com/relaycore/agentrt/internal/agentrt/config"
	"github.com/relaycore/agentrt/internal/agentrt/delegate"
	"github.com/relaycore/agentrt/internal/agentrt/depmgr"
	"github.com/relaycore/agentrt/internal/agentrt/health"
	"github.com/relaycore/agentrt/internal/agentrt/memory"
	"github.com/relaycore/agentrt/internal/agentrt/memory/bm25"
	"github.com/relaycore/agentrt/internal/agentrt/memory/substring"
	"github.com/relaycore/agentrt/internal/agentrt/provider"
	"github.com/relaycore/agentrt/internal/agentrt/provider/anthropic"
	"github.com/relaycore/agentrt/internal/agentrt/provider/bedrock"
	"github.com/relaycore/agentrt/internal/agentrt/provider/openaicompat"
	"github.com/relaycore/agentrt/internal/agentrt/safety"
	"github.com/relaycore/agentrt/internal/agentrt/session"
	"github.com/relaycore/agentrt/internal/agentrt/startupguard"
	"github.com/relaycore/agentrt/internal/agentrt/tool"
	"github.com/relaycore/agentrt/internal/agentrt/tool/fstool"
	"github.com/relaycore/agentrt/internal/agentrt/tool/hardware"
	"github.com/relaycore/agentrt/internal/agentrt/tool/memorytool"
	"github.com/relaycore/agentrt/internal/agentrt/tool/payments"
	"github.com/relaycore/agentrt/internal/agentrt/tool/shelltool"
	"github.com/relaycore/agentrt/internal/agentrt/tool/webfetch"
)

const defaultConfigFile = "agentd.yaml"

// configDir resolves the runtime's state directory, creating it if
// needed.
func configDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	dir := filepath.Join(base, "agentd")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

func buildServeCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the agent runtime",
		Long: `Start the agent runtime: channel adapters publish inbound messages
onto the bus, the agent loop drives the configured providers through
the tool loop, and replies flow back out through each adapter.
Graceful shutdown on SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, debug)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigFile, "Path to YAML configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// buildProviders constructs one adapter per configured provider, each
// wrapped in the rate-limit and retry decorators.
func buildProviders(ctx context.Context, cfg *config.Config) ([]provider.Provider, error) {
	var providers []provider.Provider
	for _, pc := range cfg.Providers {
		var (
			p   provider.Provider
			err error
		)
		switch pc.Kind {
		case "anthropic":
			p, err = anthropic.New(anthropic.Config{APIKey: pc.APIKey, BaseURL: pc.BaseURL, DefaultModel: pc.Model})
		case "openai_compat":
			p, err = openaicompat.New(openaicompat.Config{APIKey: pc.APIKey, BaseURL: pc.BaseURL, DefaultModel: pc.Model})
		case "bedrock":
			p, err = bedrock.New(ctx, bedrock.Config{Region: pc.Region, DefaultModel: pc.Model})
		default:
			return nil, fmt.Errorf("provider %q: unknown kind %q", pc.Name, pc.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", pc.Name, err)
		}
		if pc.RateLimit > 0 {
			burst := pc.Burst
			if burst <= 0 {
				burst = 1
			}
			p = provider.WithRateLimit(p, pc.RateLimit, burst)
		}
		providers = append(providers, provider.WithRetry(p, provider.DefaultRetryConfig()))
	}
	return providers, nil
}

func buildSessionStore(ctx context.Context, cfg *config.Config, stateDir string) (session.Store, error) {
	switch cfg.Session.Backend {
	case "", "memory":
		return session.NewMemoryStore(), nil
	case "file":
		dir := cfg.Session.Path
		if dir == "" {
			dir = filepath.Join(stateDir, "sessions")
		}
		return session.NewFileStore(dir)
	case "sql":
		driver := cfg.Session.Driver
		if driver == "" {
			driver = "sqlite"
		}
		dsn := cfg.Session.DSN
		if dsn == "" {
			dsn = filepath.Join(stateDir, "sessions.db")
		}
		return session.NewSQLStore(ctx, driver, dsn)
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}

func buildMemoryStore(cfg *config.Config, stateDir string) (*memory.Store, error) {
	path := cfg.Memory.Path
	if path == "" {
		path = filepath.Join(stateDir, "memory", "longterm.json")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create memory dir: %w", err)
	}
	var scorer memory.Scorer
	switch cfg.Memory.Scorer {
	case "substring":
		scorer = substring.New()
	default:
		scorer = bm25.New()
	}
	return memory.New(path, scorer)
}

// registerTools fills the registry. In degraded mode the registry
// itself refuses dangerous categories, so registration stays
// unconditional here.
func registerTools(reg *tool.Registry, providers []provider.Provider, pipeline *safety.Pipeline, mem *memory.Store, logger *slog.Logger) {
	for _, t := range []tool.Tool{
		memorytool.NewTool(mem),
		webfetch.NewTool(),
		fstool.NewTool(),
		shelltool.NewTool(),
		payments.NewTool(),
		hardware.NewTool(hardware.NewFakeBus()),
		delegate.NewTool(providers, reg, pipeline),
	} {
		if !reg.Register(t) {
			logger.Warn("tool disabled in degraded mode", "tool", t.Name(), "category", t.Category())
		}
	}
}

// toDependency converts a config declaration to the manager's shape.
func toDependency(dc config.DependencyConfig) depmgr.Dependency {
	return depmgr.Dependency{
		Name:       dc.Name,
		Kind:       depmgr.Kind(dc.Kind),
		EntryPoint: dc.EntryPoint,
		Ports:      dc.Ports,
		Env:        dc.Env,
		Args:       dc.Args,
		HealthCheck: depmgr.HealthCheck{
			Kind:   depmgr.HealthCheckKind(dc.HealthKind),
			Target: dc.HealthTarget,
		},
	}
}

// startDependencies installs and starts the declared dependencies,
// returning a running monitor (nil when none are declared). A health
// timeout is surfaced in the log but does not abort startup.
func startDependencies(ctx context.Context, cfg *config.Config, stateDir string, logger *slog.Logger) (*depmgr.Manager, *depmgr.Monitor, error) {
	if len(cfg.Dependencies) == 0 {
		return nil, nil, nil
	}
	depsDir := cfg.DepsDir
	if depsDir == "" {
		depsDir = filepath.Join(stateDir, "deps")
	}
	mgr, err := depmgr.New(depsDir, depmgr.NewShellFetcher(), logger)
	if err != nil {
		return nil, nil, err
	}
	monitor := depmgr.NewMonitor(mgr, cfg.DepMonitorSchedule, logger)
	for _, dc := range cfg.Dependencies {
		dep := toDependency(dc)
		if err := mgr.EnsureInstalled(ctx, dep); err != nil {
			return nil, nil, fmt.Errorf("dependency %q: %w", dep.Name, err)
		}
		if !dc.Autostart {
			continue
		}
		if err := mgr.Start(ctx, dep); err != nil {
			return nil, nil, fmt.Errorf("dependency %q: %w", dep.Name, err)
		}
		if err := mgr.WaitHealthy(ctx, dep, 30*time.Second); err != nil {
			logger.Warn("dependency not healthy at startup", "name", dep.Name, "error", err)
		}
		monitor.Watch(dep)
	}
	if err := monitor.Start(ctx); err != nil {
		return nil, nil, err
	}
	return mgr, monitor, nil
}

func runServe(ctx context.Context, configPath string, debug bool) error {
	logger := newLogger(debug)
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	stateDir, err := configDir()
	if err != nil {
		return err
	}

	guardPath := cfg.StartupGuard.Path
	if guardPath == "" {
		guardPath = filepath.Join(stateDir, "crash_guard.json")
	}
	guard := startupguard.New(guardPath, cfg.StartupGuard.Threshold,
		time.Duration(cfg.StartupGuard.WindowSec)*time.Second)
	degraded := guard.Check(time.Now())
	if degraded {
		logger.Warn("startup guard tripped: running degraded, dangerous tool categories disabled")
	}
	defer func() {
		if r := recover(); r != nil {
			_ = guard.RecordCrash(time.Now())
			panic(r)
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := buildProviders(ctx, cfg)
	if err != nil {
		return err
	}
	sessions, err := buildSessionStore(ctx, cfg, stateDir)
	if err != nil {
		return err
	}
	mem, err := buildMemoryStore(cfg, stateDir)
	if err != nil {
		return err
	}

	depManager, depMonitor, err := startDependencies(ctx, cfg, stateDir, logger)
	if err != nil {
		return err
	}

	pipeline := safety.New(safety.DefaultConfig())
	registry := tool.NewRegistry()
	registry.SetDegraded(degraded)
	registerTools(registry, providers, pipeline, mem, logger)

	b := agentbus.New(64, logger)
	loop := agentloop.New(providers, registry, sessions, pipeline, b, agentloop.Options{
		SystemPrompt:      cfg.SystemPrompt,
		MaxToolIterations: cfg.MaxToolIterations,
		Workspace:         cfg.Workspace,
		Logger:            logger,
	})

	healthServer := health.NewServer(logger)
	if err := healthServer.Start(ctx, cfg.Server.Addr); err != nil {
		return err
	}

	api := httpapi.New(httpapi.Config{
		Addr:      cfg.Server.APIAddr,
		JWTSecret: cfg.Server.JWTSecret,
		Logger:    logger,
	}, b)
	if err := api.Start(ctx); err != nil {
		return err
	}

	var stoppers []func()
	if cc, ok := cfg.Channels["telegram"]; ok && cc.Enabled {
		adapter, err := telegram.New(telegram.Config{Token: cc.Token, Logger: logger}, b)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		adapter.Start(ctx)
		stoppers = append(stoppers, adapter.Stop)
	}
	if cc, ok := cfg.Channels["discord"]; ok && cc.Enabled {
		adapter, err := discord.New(discord.Config{Token: cc.Token, Logger: logger}, b)
		if err != nil {
			return fmt.Errorf("discord: %w", err)
		}
		if err := adapter.Start(ctx); err != nil {
			return fmt.Errorf("discord: %w", err)
		}
		stoppers = append(stoppers, func() { _ = adapter.Stop() })
	}
	if cc, ok := cfg.Channels["slack"]; ok && cc.Enabled {
		adapter := slack.New(slack.Config{BotToken: cc.Token, AppToken: cc.AppToken, Logger: logger}, b)
		if err := adapter.Start(ctx); err != nil {
			return fmt.Errorf("slack: %w", err)
		}
		stoppers = append(stoppers, adapter.Stop)
	}

	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Start(ctx) }()

	healthServer.SetReady(true)
	if err := guard.RecordCleanStart(); err != nil {
		logger.Warn("record clean start failed", "error", err)
	}
	logger.Info("agentd serving",
		"providers", len(providers),
		"tools", len(registry.List()),
		"degraded", degraded,
	)

	<-ctx.Done()
	logger.Info("shutting down")

	loop.Stop()
	<-loopDone
	for _, stopAdapter := range stoppers {
		stopAdapter()
	}
	if depMonitor != nil {
		depMonitor.Stop()
	}
	if depManager != nil {
		if err := depManager.StopAll(); err != nil {
			logger.Warn("stop dependencies failed", "error", err)
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = api.Stop(shutdownCtx)
	_ = healthServer.Stop(shutdownCtx)
	b.Close()
	return nil
}
