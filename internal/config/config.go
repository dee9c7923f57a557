// Package config provides the configuration schema, YAML loader, and
// hot-reload watcher for the streaming transcription reconciliation core.
package config

import "time"

// Config is the root configuration structure for the reconciliation core.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Window   WindowConfig   `yaml:"window"`
	Cleaner  CleanerConfig  `yaml:"cleaner"`
}

// ServerConfig holds process-level logging settings.
type ServerConfig struct {
	// LogLevel controls verbosity. Valid values: "debug", "info", "warn", "error".
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is a TCP address for a Prometheus /metrics endpoint
	// (e.g., ":9090"). No code in this module reads it: observe.InitProvider
	// always registers the Prometheus exporter and starts no HTTP listener.
	MetricsAddr string `yaml:"metrics_addr"`
}

// LogLevel is a validated logging verbosity string.
type LogLevel string

// Recognised log levels.
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// IsValid reports whether l is one of the recognised log levels.
func (l LogLevel) IsValid() bool {
	switch l {
	case "", LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	default:
		return false
	}
}

// CursorMode selects the mature-cursor advancement strategy.
type CursorMode string

// Recognised cursor modes.
const (
	CursorSentenceBased CursorMode = "sentenceBased"
	CursorLastFinalized CursorMode = "lastFinalized"
)

// IsValid reports whether m is a recognised cursor mode.
func (m CursorMode) IsValid() bool {
	switch m {
	case "", CursorSentenceBased, CursorLastFinalized:
		return true
	default:
		return false
	}
}

// ReconcileConfig holds every tunable governing the overlap decider,
// reconciler, finalizer, and mature-cursor engine.
type ReconcileConfig struct {
	// StabilityThreshold is the stability count needed to resist a
	// confidence-similar replacement. Default: 3.
	StabilityThreshold int `yaml:"stability_threshold"`

	// ConfidenceBias is the multiplicative superiority required of an
	// incoming word to replace an existing one. Default: 1.15.
	ConfidenceBias float64 `yaml:"confidence_bias"`

	// LengthBiasFactor is the per-word tie-breaker applied to
	// length-adjusted confidence scores. Default: 0.01.
	LengthBiasFactor float64 `yaml:"length_bias_factor"`

	// WordConfidenceReplaceThreshold is the confidence margin required for
	// the boundary-redundancy branch to update in place rather than drop
	// the incoming word. Default: 0.15.
	WordConfidenceReplaceThreshold float64 `yaml:"word_confidence_replace_threshold"`

	// MinOverlapDurationForRedundancy is the minimum temporal overlap that
	// gates boundary-redundancy handling. Default: 50ms.
	MinOverlapDurationForRedundancy time.Duration `yaml:"min_overlap_duration_for_redundancy"`

	// FinalizationStabilityThreshold is the stability count needed to
	// finalize a word via the stability rule. Default: 2.
	FinalizationStabilityThreshold int `yaml:"finalization_stability_threshold"`

	// UseAgeFinalization enables the age-based finalization rule.
	// Default: true.
	UseAgeFinalization bool `yaml:"use_age_finalization"`

	// FinalizationAgeThreshold is the age past which a word is force
	// finalized regardless of stability. Default: 10s.
	FinalizationAgeThreshold time.Duration `yaml:"finalization_age_threshold"`

	// CursorBehaviorMode selects the mature-cursor advancement strategy.
	// Default: sentenceBased.
	CursorBehaviorMode CursorMode `yaml:"cursor_behavior_mode"`

	// MinInitialContextTime holds the cursor at zero until this much
	// absolute stream time has elapsed. Default: 3s.
	MinInitialContextTime time.Duration `yaml:"min_initial_context_time"`

	// StabilityThresholdForVeto gates the veto rule on the stability of the
	// displaced existing word. Default: 1.
	StabilityThresholdForVeto int `yaml:"stability_threshold_for_veto"`

	// WordMinConfidenceSuperiorityForVeto gates the veto rule on the
	// confidence delta between the displaced word and the incoming word.
	// Default: 0.20.
	WordMinConfidenceSuperiorityForVeto float64 `yaml:"word_min_confidence_superiority_for_veto"`

	// WPMCalculationWindowSeconds is the rolling window used for the WPM
	// stat. Default: 60.
	WPMCalculationWindowSeconds float64 `yaml:"wpm_calculation_window_seconds"`

	// MaxRetainedSentences bounds the sentence boundary detector's retained
	// endings. Default: 20.
	MaxRetainedSentences int `yaml:"max_retained_sentences"`
}

// WindowConfig holds the decode window controller's tunables.
type WindowConfig struct {
	LCSeconds            time.Duration `yaml:"lc_seconds"`
	LCMin                time.Duration `yaml:"lc_min"`
	LCMax                time.Duration `yaml:"lc_max"`
	RightWindowSeconds   time.Duration `yaml:"right_window_seconds"`
	MinDecodeSeconds     time.Duration `yaml:"min_decode_seconds"`
	InitialBaseSeconds   time.Duration `yaml:"initial_base_seconds"`
	WindowClamp          time.Duration `yaml:"window_clamp"`
	TrimMargin           time.Duration `yaml:"trim_margin"`
	DropFirstBoundaryWord bool         `yaml:"drop_first_boundary_word"`

	LCIncStep           time.Duration `yaml:"lc_inc_step"`
	LCDecStep           time.Duration `yaml:"lc_dec_step"`
	LCDecayStableTicks  int           `yaml:"lc_decay_stable_ticks"`
	ChurnThreshold      float64       `yaml:"churn_threshold"`

	PatchDecodeEnabled  bool          `yaml:"patch_decode_enabled"`
	PatchCooldown       time.Duration `yaml:"patch_cooldown"`
	PatchLeftSeconds    time.Duration `yaml:"patch_left_seconds"`
	PatchRightSeconds   time.Duration `yaml:"patch_right_seconds"`
}

// CleanerConfig holds the post-merge cleaner's tunables.
type CleanerConfig struct {
	DuplicateMaxGap      time.Duration `yaml:"duplicate_max_gap"`
	RepetitionMinWords   int           `yaml:"repetition_min_words"`
	RepetitionMaxWords   int           `yaml:"repetition_max_words"`
	RepetitionMaxSpan    time.Duration `yaml:"repetition_max_span"`
	RepetitionTailWindow int           `yaml:"repetition_tail_window"`
}
