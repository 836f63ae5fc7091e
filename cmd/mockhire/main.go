// Command mockhire is the terminal client for mock interview practice.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/mockhire/mockhire/internal/app"
	"github.com/mockhire/mockhire/internal/config"
	"github.com/mockhire/mockhire/internal/observe"
	"github.com/mockhire/mockhire/internal/screen"
	"github.com/mockhire/mockhire/pkg/microphone"
	"github.com/mockhire/mockhire/pkg/voicecall"
	"github.com/mockhire/mockhire/pkg/voicecall/vapi"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "mockhire.yaml", "path to the YAML configuration file (optional when the environment is set)")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.LoadOrEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mockhire: %v\n", err)
		return 1
	}
	if cfg.Telemetry.ServiceVersion == "" {
		cfg.Telemetry.ServiceVersion = version
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("mockhire starting",
		"config", *configPath,
		"version", version,
		"backend", cfg.Backend.Origin,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	tel, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}

	// ── Terminal ──────────────────────────────────────────────────────────────
	console := screen.NewConsole(os.Stdin, os.Stdout)
	if !console.Interactive() {
		slog.Warn("stdin is not a terminal; reading commands from input")
	}

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg, console)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg, providers)

	application, err := app.New(ctx, cfg, providers,
		app.WithConsole(console),
		app.WithMetricsHandler(tel.MetricsHandler()),
	)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		_ = tel.Shutdown(context.Background())
		return 1
	}

	application.OnShutdown(func() error {
		tctx, tcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer tcancel()
		return tel.Shutdown(tctx)
	})

	code := 0
	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		code = 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		code = 1
	}
	slog.Info("goodbye")
	return code
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// The prompt microphone asks on console.
func registerBuiltinProviders(reg *config.Registry, console *screen.Console) {
	reg.RegisterVoice("vapi", func(vc config.VoiceConfig) (voicecall.Client, error) {
		var opts []vapi.Option
		if vc.BaseURL != "" {
			opts = append(opts, vapi.WithBaseURL(vc.BaseURL))
		}
		return vapi.New(vc.PublicKey, opts...), nil
	})

	reg.RegisterMicrophone("prompt", func(config.MicrophoneConfig) (microphone.Requester, error) {
		return microphone.NewPrompt(console), nil
	})
	reg.RegisterMicrophone("static", func(mc config.MicrophoneConfig) (microphone.Requester, error) {
		return microphone.Static{Granted: mc.Granted}, nil
	})
	reg.RegisterMicrophone("alsa", func(mc config.MicrophoneConfig) (microphone.Requester, error) {
		return microphone.ALSA{Dir: mc.Device}, nil
	})

	for _, kind := range []string{"voice", "microphone"} {
		for _, name := range reg.Names(kind) {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// buildProviders instantiates the providers named in cfg using the registry.
// The voice-call client is left nil without a public key; interviews then
// cannot be started but the rest of the client works.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	if cfg.Voice.PublicKey == "" {
		slog.Warn("voice-call client disabled: no public key")
	} else {
		v, err := reg.CreateVoice(cfg.Voice)
		if err != nil {
			return nil, fmt.Errorf("create voice provider %q: %w", cfg.Voice.Provider, err)
		}
		ps.Voice = v
		slog.Info("provider created", "kind", "voice", "name", cfg.Voice.Provider)
	}

	m, err := reg.CreateMicrophone(cfg.Microphone)
	if err != nil {
		return nil, fmt.Errorf("create microphone provider %q: %w", cfg.Microphone.Provider, err)
	}
	ps.Microphone = m
	slog.Info("provider created", "kind", "microphone", "name", cfg.Microphone.Provider)

	return ps, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

// boxWidth is the inner width of the startup summary box, in runes.
const boxWidth = 39

func printStartupSummary(cfg *config.Config, ps *app.Providers) {
	border := strings.Repeat("═", boxWidth)
	fmt.Println("╔" + border + "╗")
	fmt.Println("║" + center("MockHire startup summary", boxWidth) + "║")
	fmt.Println("╠" + border + "╣")
	printRow("Backend", cfg.Backend.Origin)
	voice := cfg.Voice.Provider
	if ps.Voice == nil {
		voice = "(not configured)"
	}
	printRow("Voice", voice)
	switch {
	case cfg.Voice.AssistantID != "":
		printRow("Assistant", cfg.Voice.AssistantID)
	case cfg.Voice.WorkflowID != "":
		printRow("Workflow", cfg.Voice.WorkflowID)
	default:
		printRow("Assistant", "(not configured)")
	}
	printRow("Microphone", cfg.Microphone.Provider)
	if cfg.Server.ListenAddr != "" {
		printRow("Listen addr", cfg.Server.ListenAddr)
	}
	fmt.Println("╚" + border + "╝")
}

func printRow(label, value string) { fmt.Println(row(label, value)) }

// row formats "  label : value " padded to boxWidth. fmt pads by rune.
func row(label, value string) string {
	const labelWidth = 12
	valueWidth := boxWidth - labelWidth - 6
	if value == "" {
		value = "(not configured)"
	}
	return fmt.Sprintf("║  %-*s : %-*s ║", labelWidth, label, valueWidth, truncate(value, valueWidth))
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func center(s string, width int) string {
	pad := width - utf8.RuneCountInString(s)
	if pad <= 0 {
		return s
	}
	left := pad / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
