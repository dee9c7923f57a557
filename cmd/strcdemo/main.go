// Command strcdemo is a minimal wiring example for the streaming
// transcription reconciliation core. It is not a mandated entry point —
// the core is meant to be embedded in an ingestion service — but it shows
// how [config], [observe], [reconcile], and [window] fit together end to
// end: load configuration, wire a decoder, feed silence through a ticking
// loop, and print a one-line summary of the merged transcript (cursor, word
// count, rolling WPM) whenever its word count changes.
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

	"github.com/voxreconcile/strc/internal/config"
	"github.com/voxreconcile/strc/internal/observe"
	"github.com/voxreconcile/strc/internal/reconcile"
	"github.com/voxreconcile/strc/internal/reconcile/window"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "strc.yaml", "path to the YAML configuration file")
	sampleRate := flag.Uint("sample-rate", 16000, "input sample rate in Hz, used to size silent audio chunks")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "strcdemo: config file %q not found — run with -config pointing at a strc.yaml\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "strcdemo: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "strcdemo",
		ServiceVersion: "dev",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown error", "err", err)
		}
	}()

	metrics := observe.DefaultMetrics()
	core := reconcile.New(*cfg, reconcile.WithLogger(logger), reconcile.WithMetrics(metrics))
	decoder := &silentDecoder{}
	controller := window.New(cfg.Window, core, decoder,
		window.WithLogger(logger), window.WithMetrics(metrics))

	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		diff := config.DiffConfig(old, new)
		slog.Info("config reloaded", "log_level_changed", diff.LogLevelChanged,
			"reconcile_changed", diff.ReconcileChanged, "window_changed", diff.WindowChanged,
			"cleaner_changed", diff.CleanerChanged)
		core.UpdateConfig(*new)
		controller.SetConfig(new.Window)
	})
	if err != nil {
		slog.Error("failed to start config watcher", "err", err)
		return 1
	}
	defer watcher.Stop()

	printStartupSummary(cfg)
	slog.Info("strcdemo running — press Ctrl+C to stop")

	if err := ingestLoop(ctx, controller, uint32(*sampleRate)); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("ingest loop error", "err", err)
		return 1
	}

	slog.Info("goodbye")
	return 0
}

// ingestLoop feeds 200ms chunks of silence through the controller once a
// second, printing the cursor, word count and rolling WPM whenever the
// merged transcript's word count changes. Real
// callers replace the silent chunks with microphone or file audio and tick
// on their own cadence.
func ingestLoop(ctx context.Context, controller *window.Controller, sampleRate uint32) error {
	const chunk = 200 * time.Millisecond
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var streamPos time.Duration
	var lastWordCount int
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n := int(chunk.Seconds() * float64(sampleRate))
			controller.Append(window.AudioSegment{
				Samples:    make([]float32, n),
				StartAbs:   streamPos,
				EndAbs:     streamPos + chunk,
				SampleRate: sampleRate,
			})
			streamPos += chunk

			update, err := controller.Tick(ctx, streamPos)
			if err != nil {
				return err
			}
			if update != nil && len(update.Words) != lastWordCount {
				lastWordCount = len(update.Words)
				fmt.Printf("cursor=%s words=%d wpm=%.1f\n",
					update.MatureCursorTime, len(update.Words), update.Stats.RollingWPM)
			}
		}
	}
}

// silentDecoder is a placeholder [window.Decoder] that never produces
// words. Acoustic model inference is outside the reconciliation core's
// scope; a real deployment swaps this for a whisper.cpp binding or a
// cloud STT client.
type silentDecoder struct{}

func (silentDecoder) Decode(ctx context.Context, w window.Window, samples []float32, sampleRate uint32) (window.DecoderResult, error) {
	return window.DecoderResult{}, nil
}

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔══════════════════════════════════════════╗")
	fmt.Println("║   strc — reconciliation core demo         ║")
	fmt.Println("╠══════════════════════════════════════════╣")
	fmt.Printf("║  log level        : %-21s ║\n", cfg.Server.LogLevel)
	fmt.Printf("║  cursor mode       : %-21s ║\n", cfg.Reconcile.CursorBehaviorMode)
	fmt.Printf("║  stability thresh  : %-21d ║\n", cfg.Reconcile.StabilityThreshold)
	fmt.Printf("║  lc range          : %s .. %-10s ║\n", cfg.Window.LCMin, cfg.Window.LCMax)
	fmt.Printf("║  patch decode      : %-21t ║\n", cfg.Window.PatchDecodeEnabled)
	fmt.Println("╚══════════════════════════════════════════╝")
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogLevelDebug:
		lvl = slog.LevelDebug
	case config.LogLevelWarn:
		lvl = slog.LevelWarn
	case config.LogLevelError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
