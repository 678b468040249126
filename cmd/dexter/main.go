// Package main is the entry point for the dexter arbitrage agent.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dexter-bot/dexter/business/arbitrage"
	arbitrageDI "github.com/dexter-bot/dexter/business/arbitrage/di"
	"github.com/dexter-bot/dexter/business/blockchain"
	"github.com/dexter-bot/dexter/business/execution"
	"github.com/dexter-bot/dexter/business/pricing"
	"github.com/dexter-bot/dexter/internal/apm"
	"github.com/dexter-bot/dexter/internal/config"
	"github.com/dexter-bot/dexter/internal/health"
	"github.com/dexter-bot/dexter/internal/logger"
	"github.com/dexter-bot/dexter/internal/metrics"
	"github.com/dexter-bot/dexter/internal/monolith"
	"github.com/dexter-bot/dexter/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	tuiFlag := flag.Bool("tui", false, "Run with the dashboard UI")
	cliFlag := flag.Bool("cli", false, "Run in console mode with logs (no TUI)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("dexter %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := run(ctx, *configPath, *tuiFlag, *cliFlag); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, tuiFlag, cliFlag bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Flags win over config for the UI mode.
	if tuiFlag {
		cfg.App.UI = "tui"
	}
	if cliFlag {
		cfg.App.UI = "console"
	}
	tuiMode := cfg.App.UI == "tui"

	logLevel := logger.ParseLevel(cfg.App.LogLevel)

	var log *logger.Logger
	if tuiMode {
		// The dashboard owns the terminal; drop log output.
		log = logger.New(io.Discard, logLevel, cfg.App.Name, nil)
	} else {
		log = logger.New(os.Stderr, logLevel, cfg.App.Name, nil)
		log.Info(ctx, "starting dexter",
			"version", version,
			"environment", cfg.App.Environment,
		)
	}

	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}

		traceProvider = apm.NewTraceProvider(log, apm.WithProvider(apm.ZipkinProvider, log))
		log.Info(ctx, "tracing initialized", "provider", "zipkin", "endpoint", cfg.Telemetry.OTLPEndpoint)

		metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{
				Provider: metrics.PrometheusProvider,
			}),
		)

		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	healthPort := cfg.Telemetry.HealthPort
	if healthPort == 0 {
		healthPort = 8081
	}
	healthServer := health.NewServer(healthPort, version)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", healthPort)
	}
	defer healthServer.Stop(ctx)

	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	healthServer.RegisterCheck("ethereum", func(ctx context.Context) (bool, string) {
		head, err := mono.EthClient().BlockNumber(ctx)
		if err != nil {
			return false, err.Error()
		}
		return true, fmt.Sprintf("head %d", head)
	})

	// Dependency order: blockchain provides the eth client plumbing,
	// pricing provides quotes, arbitrage consumes both, execution
	// drafts and validates transactions for detected opportunities.
	blockchainModule := &blockchain.Module{}
	pricingModule := &pricing.Module{}
	arbitrageModule := &arbitrage.Module{}
	executionModule := &execution.Module{}

	if err := mono.RegisterModules(blockchainModule, pricingModule, arbitrageModule, executionModule); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	if tuiMode {
		// Module startup is deferred until the welcome screen is
		// dismissed so the dashboard can show progress.
		startChain := func() error {
			return mono.StartModules(ctx, blockchainModule)
		}
		startRest := func() error {
			return mono.StartModules(ctx, pricingModule, arbitrageModule, executionModule)
		}
		stopFunc := func() {
			scanner := arbitrageDI.GetScanner(mono.Services())
			_ = scanner.Stop()
		}
		return runTUI(startChain, startRest, stopFunc)
	}

	if err := mono.StartModules(ctx, blockchainModule, pricingModule, arbitrageModule, executionModule); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}
	return runConsole(ctx, mono, log)
}

func runConsole(ctx context.Context, mono monolith.Monolith, log *logger.Logger) error {
	log.Info(ctx, "all modules started, scanning for opportunities")

	<-ctx.Done()

	log.Info(ctx, "shutting down")
	scanner := arbitrageDI.GetScanner(mono.Services())
	if err := scanner.Stop(); err != nil {
		log.Error(ctx, "error stopping scanner", "error", err)
	}
	return nil
}

func runTUI(startChain, startRest func() error, stopFunc func()) error {
	errCh := make(chan error, 1)

	ui.OnStartModules = func() {
		ui.Send(ui.StartupMsg{Step: "config", Status: "done"})

		ui.Send(ui.StartupMsg{Step: "ethereum", Status: "running"})
		if err := startChain(); err != nil {
			ui.Send(ui.StartupMsg{Step: "ethereum", Status: "failed", Message: err.Error()})
			errCh <- err
			return
		}
		ui.Send(ui.StartupMsg{Step: "ethereum", Status: "done"})

		ui.Send(ui.StartupMsg{Step: "venues", Status: "running"})
		if err := startRest(); err != nil {
			ui.Send(ui.StartupMsg{Step: "venues", Status: "failed", Message: err.Error()})
			errCh <- err
			return
		}
		ui.Send(ui.StartupMsg{Step: "venues", Status: "done"})
	}

	// Blocks until the user quits.
	if err := ui.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	stopFunc()

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
