package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults returns a [Config] populated with every documented default.
// Load and LoadFromReader apply these before decoding so a YAML document
// only needs to specify the overrides it cares about.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			LogLevel: LogLevelInfo,
		},
		Reconcile: ReconcileConfig{
			StabilityThreshold:                   3,
			ConfidenceBias:                        1.15,
			LengthBiasFactor:                      0.01,
			WordConfidenceReplaceThreshold:        0.15,
			MinOverlapDurationForRedundancy:       50 * time.Millisecond,
			FinalizationStabilityThreshold:        2,
			UseAgeFinalization:                    true,
			FinalizationAgeThreshold:              10 * time.Second,
			CursorBehaviorMode:                    CursorSentenceBased,
			MinInitialContextTime:                 3 * time.Second,
			StabilityThresholdForVeto:             1,
			WordMinConfidenceSuperiorityForVeto:   0.20,
			WPMCalculationWindowSeconds:           60,
			MaxRetainedSentences:                  20,
		},
		Window: WindowConfig{
			LCSeconds:             800 * time.Millisecond,
			LCMin:                 800 * time.Millisecond,
			LCMax:                 2400 * time.Millisecond,
			RightWindowSeconds:    1600 * time.Millisecond,
			MinDecodeSeconds:      800 * time.Millisecond,
			InitialBaseSeconds:    4 * time.Second,
			WindowClamp:           30 * time.Second,
			TrimMargin:            50 * time.Millisecond,
			DropFirstBoundaryWord: true,
			LCIncStep:             200 * time.Millisecond,
			LCDecStep:             200 * time.Millisecond,
			LCDecayStableTicks:    3,
			ChurnThreshold:        0.25,
			PatchDecodeEnabled:    false,
			PatchCooldown:         750 * time.Millisecond,
			PatchLeftSeconds:      time.Second,
			PatchRightSeconds:     1200 * time.Millisecond,
		},
		Cleaner: CleanerConfig{
			DuplicateMaxGap:      2 * time.Second,
			RepetitionMinWords:   3,
			RepetitionMaxWords:   8,
			RepetitionMaxSpan:    6 * time.Second,
			RepetitionTailWindow: 80,
		},
	}
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applying [Defaults] first so
// unspecified fields take their documented default, then validates the
// result.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Defaults()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error (via [errors.Join]) listing every validation failure found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if !cfg.Reconcile.CursorBehaviorMode.IsValid() {
		errs = append(errs, fmt.Errorf("reconcile.cursor_behavior_mode %q is invalid; valid values: sentenceBased, lastFinalized", cfg.Reconcile.CursorBehaviorMode))
	}
	if cfg.Reconcile.ConfidenceBias <= 1.0 {
		errs = append(errs, fmt.Errorf("reconcile.confidence_bias must be > 1.0, got %v", cfg.Reconcile.ConfidenceBias))
	}
	if cfg.Reconcile.StabilityThreshold < 0 {
		errs = append(errs, errors.New("reconcile.stability_threshold must be >= 0"))
	}
	if cfg.Reconcile.WPMCalculationWindowSeconds <= 0 {
		errs = append(errs, errors.New("reconcile.wpm_calculation_window_seconds must be > 0"))
	}

	if cfg.Window.LCMin <= 0 || cfg.Window.LCMax < cfg.Window.LCMin {
		errs = append(errs, fmt.Errorf("window.lc_min/lc_max must satisfy 0 < lc_min <= lc_max (got %v, %v)", cfg.Window.LCMin, cfg.Window.LCMax))
	}
	if cfg.Window.LCSeconds < cfg.Window.LCMin || cfg.Window.LCSeconds > cfg.Window.LCMax {
		errs = append(errs, fmt.Errorf("window.lc_seconds %v must be within [lc_min, lc_max]", cfg.Window.LCSeconds))
	}
	if cfg.Window.MinDecodeSeconds <= 0 {
		errs = append(errs, errors.New("window.min_decode_seconds must be > 0"))
	}
	if cfg.Window.WindowClamp < cfg.Window.MinDecodeSeconds {
		errs = append(errs, errors.New("window.window_clamp must be >= window.min_decode_seconds"))
	}

	if cfg.Cleaner.RepetitionMinWords < 1 || cfg.Cleaner.RepetitionMaxWords < cfg.Cleaner.RepetitionMinWords {
		errs = append(errs, fmt.Errorf("cleaner.repetition_min_words/max_words must satisfy 1 <= min <= max (got %d, %d)", cfg.Cleaner.RepetitionMinWords, cfg.Cleaner.RepetitionMaxWords))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
