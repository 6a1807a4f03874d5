// Command vocalstock is the main entry point for the vocalstock voice
// inventory server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrWong99/vocalstock/internal/app"
	"github.com/MrWong99/vocalstock/internal/config"
	"github.com/MrWong99/vocalstock/internal/observe"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	say := flag.String("say", "", "run one command through the pipeline, print the reply and exit")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "vocalstock: config file %q not found; copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "vocalstock: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	level := new(slog.LevelVar)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	slog.Info("vocalstock starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	telemetry, err := observe.Setup(observe.Deployment{
		Version:            version,
		CatalogBackend:     string(cfg.Catalog.Backend),
		IdempotencyBackend: string(cfg.Idempotency.Backend),
		LLM:                cfg.Providers.LLM.Name,
		STT:                cfg.Providers.STT.Name,
		TTS:                cfg.Providers.TTS.Name,
		UseLLM:             cfg.Structuring.UseLLM,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	application, err := app.New(ctx, cfg, providers,
		app.WithLogLevel(level),
		app.WithConfigPath(*configPath),
	)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── One-shot mode ─────────────────────────────────────────────────────────
	if *say != "" {
		code := sayOnce(ctx, application, *say)
		if err := application.Shutdown(context.Background()); err != nil {
			slog.Warn("shutdown error", "err", err)
		}
		return code
	}

	printStartupSummary(cfg)
	slog.Info("server ready; press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// sayOnce runs text through the pipeline and prints the structured command
// and the reply.
func sayOnce(ctx context.Context, a *app.App, text string) int {
	reply, err := a.Assistant().HandleText(ctx, text)
	if err != nil {
		slog.Error("command failed", "err", err)
		return 1
	}
	fmt.Printf("command : %s item=%q quantity=%s (%s)\n",
		reply.Command.Kind, reply.Command.ItemName(), quantityString(reply.Command.Quantity), reply.Source)
	fmt.Printf("reply   : %s\n", reply.Response.Message)
	if !reply.Response.Success {
		return 2
	}
	return 0
}

func quantityString(q *int) string {
	if q == nil {
		return "-"
	}
	return fmt.Sprint(*q)
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║       vocalstock: startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printRow("LLM fallbacks", fmt.Sprint(len(cfg.LLMFallbacks)))
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	structuring := "rules only"
	if cfg.Structuring.UseLLM {
		structuring = "llm + rules"
	}
	printRow("Structuring", structuring)
	printRow("Catalog", string(cfg.Catalog.Backend))
	printRow("Idempotency", string(cfg.Idempotency.Backend))
	printRow("Listen addr", cfg.Server.ListenAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	printRow(kind, value)
}

func printRow(label, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-14s  : %-19s ║\n", label, value)
}
