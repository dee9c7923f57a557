package reconcile

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/voxreconcile/strc/internal/config"
	"github.com/voxreconcile/strc/internal/reconcile/boundary"
	"github.com/voxreconcile/strc/internal/observe"
)

// Payload is one incoming segment hypothesis from a decoder: a run of
// words (and optionally tokens) covering some span of the stream.
type Payload struct {
	SessionID     string
	SequenceNum   int64
	Words         []Word
	Tokens        []Token
	UtteranceText string
	IsFinal       bool
}

// MergedTranscriptionUpdate is the result of one [Core.Merge] call: the
// full current transcript plus the bookkeeping a caller needs to render or
// commit it.
type MergedTranscriptionUpdate struct {
	Words           []Word
	Stats           Stats
	MatureCursorTime time.Duration
	LastSequenceNum int64
	UtteranceText   string
	IsFinal         bool
	TimestampMs     int64
}

// Core is the reconciliation core's entry point: an owned instance holding
// the transcript store, cursor engine, token tail, and cumulative stats.
// All public methods are safe for concurrent use; a single internal mutex
// serializes reconciliation so each call's effect is atomic, matching
// single-threaded-cooperative model by construction.
type Core struct {
	mu sync.Mutex

	cfg config.Config

	store      *Store
	reconciler *Reconciler
	cleaner    *Cleaner
	finalizer  *Finalizer
	cursor     *CursorEngine

	tokenTail []Token

	totalSegments int64
	totalAdded    int64
	totalReplaced int64
	totalKept     int64
	totalFinal    int64
	lastSequence  int64

	lastUtterance string
	lastIsFinal   bool

	log     *slog.Logger
	metrics *observe.Metrics
}

// Option configures a [Core] at construction time.
type Option func(*Core)

// WithLogger overrides the default slog logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Core) { c.log = log }
}

// WithMetrics overrides the default metrics recorder.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Core) { c.metrics = m }
}

// WithBoundaryDetector overrides the sentence boundary detector used in
// SentenceBased cursor mode. Defaults to [boundary.Heuristic].
func WithBoundaryDetector(d boundary.Detector) Option {
	return func(c *Core) {
		c.cursor = NewCursorEngine(c.cfg.Reconcile, d)
	}
}

// New constructs a Core bound to cfg.
func New(cfg config.Config, opts ...Option) *Core {
	log := slog.Default()
	c := &Core{
		cfg:        cfg,
		store:      NewStore(),
		reconciler: NewReconciler(cfg.Reconcile, log),
		cleaner:    NewCleaner(cfg.Cleaner),
		finalizer:  NewFinalizer(cfg.Reconcile),
		cursor:     NewCursorEngine(cfg.Reconcile, boundary.NewHeuristic(cfg.Reconcile.MaxRetainedSentences)),
		log:        log,
		metrics:    observe.DefaultMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Merge reconciles one payload into the transcript and returns the updated
// snapshot along with any non-fatal warnings. A nil or empty payload is not
// an error: it is recorded as a [WarningEmptyPayload] and the current state
// is returned unchanged.
func (c *Core) Merge(ctx context.Context, payload Payload) (*MergedTranscriptionUpdate, []Warning, error) {
	ctx, span := observe.StartSpan(ctx, "strc.merge")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	var warnings []Warning
	var callStats mergeStats

	if len(payload.Words) == 0 {
		warnings = append(warnings, Warning{Kind: WarningEmptyPayload, Message: "payload contained no words"})
		return c.snapshotLocked(payload, warnings), warnings, nil
	}

	valid := make([]Word, 0, len(payload.Words))
	for _, w := range payload.Words {
		if w.End <= w.Start || strings.TrimSpace(w.Text) == "" || w.Confidence < 0 {
			warnings = append(warnings, Warning{Kind: WarningInvalidWord, Message: "dropped word with invalid range, empty text or negative confidence"})
			continue
		}
		valid = append(valid, w)
	}

	if len(valid) > 0 {
		callStats = c.reconciler.Apply(c.store, valid, payload.SessionID, payload.SequenceNum)
		c.totalAdded += int64(callStats.added)
		c.totalReplaced += int64(callStats.replaced)
		c.totalKept += int64(callStats.keptStable)

		lo, _, ok := c.store.FindOverlap(valid[0].Start, valid[len(valid)-1].End)
		if !ok {
			lo = c.store.Len() - len(valid)
			if lo < 0 {
				lo = 0
			}
		}
		c.cleaner.Clean(c.store, lo)
	}

	now := c.cursor.Current()
	if len(valid) > 0 {
		now = valid[len(valid)-1].End
	}
	finalized := c.finalizer.Run(c.store, now, c.cursor.Current(), payload.SequenceNum)
	// Finalization is idempotent; running it twice around cursor advancement
	// ensures a SentenceBased cursor sees the latest Finalized bits both
	// before and after the cursor recomputes sentence eligibility.
	c.cursor.Advance(c.store, now)
	finalized += c.finalizer.Run(c.store, now, c.cursor.Current(), payload.SequenceNum)
	c.totalFinal += int64(finalized)

	if payload.SequenceNum > c.lastSequence {
		c.lastSequence = payload.SequenceNum
	}
	c.totalSegments++
	c.lastUtterance = payload.UtteranceText
	c.lastIsFinal = payload.IsFinal
	if len(payload.Tokens) > 0 {
		if len(c.tokenTail) > 0 {
			steps := Align(c.tokenTail, payload.Tokens)
			c.log.Debug("reconcile: token tail aligned", "prior_len", len(c.tokenTail),
				"incoming_len", len(payload.Tokens), "steps", len(steps))
		}
		c.tokenTail = trimTokenTail(payload.Tokens, 10*time.Second)
	}

	update := c.snapshotLocked(payload, warnings)

	if c.metrics != nil {
		c.metrics.RecordMerge(ctx, payload.SessionID, time.Since(start).Seconds(),
			callStats.added, callStats.replaced, callStats.keptStable, finalized,
			update.MatureCursorTime.Seconds(), update.Stats.RollingWPM)
	}
	return update, warnings, nil
}

// snapshotLocked builds a MergedTranscriptionUpdate from current state.
// Caller must hold c.mu.
func (c *Core) snapshotLocked(payload Payload, warnings []Warning) *MergedTranscriptionUpdate {
	return &MergedTranscriptionUpdate{
		Words:            CloneWords(c.store.Words()),
		Stats:            computeStats(c.store, c.cfg.Reconcile.WPMCalculationWindowSeconds),
		MatureCursorTime: c.cursor.Current(),
		LastSequenceNum:  c.lastSequence,
		UtteranceText:    payload.UtteranceText,
		IsFinal:          payload.IsFinal,
		TimestampMs:      nowMillis(),
	}
}

// Snapshot returns the current state without merging a new payload.
func (c *Core) Snapshot() MergedTranscriptionUpdate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.snapshotLocked(Payload{UtteranceText: c.lastUtterance, IsFinal: c.lastIsFinal}, nil)
}

// UpdateConfig hot-swaps the reconciliation configuration, propagating it
// to every collaborator. Safe to call concurrently with Merge.
func (c *Core) UpdateConfig(cfg config.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	c.reconciler.SetConfig(cfg.Reconcile)
	c.cleaner.SetConfig(cfg.Cleaner)
	c.finalizer.SetConfig(cfg.Reconcile)
	c.cursor.SetConfig(cfg.Reconcile)
}

// Reset discards all transcript state, returning Core to its initial
// condition. Configuration is left unchanged.
func (c *Core) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Reset()
	c.cursor.Reset()
	c.tokenTail = nil
	c.totalSegments, c.totalAdded, c.totalReplaced, c.totalKept, c.totalFinal, c.lastSequence = 0, 0, 0, 0, 0, 0
	c.lastUtterance, c.lastIsFinal = "", false
}

// CumulativeTotals reports the running totals tracked since construction or
// the last [Core.Reset]: segments processed and words added/replaced/kept
// stable/finalized. Used by the decode window controller's adaptive
// left-context churn calculation.
func (c *Core) CumulativeTotals() (segments, added, replaced, keptStable, finalized int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalSegments, c.totalAdded, c.totalReplaced, c.totalKept, c.totalFinal
}

// UpdateWordLock sets or clears the user lock on the word with the given
// id, optionally overwriting its text and history. Returns
// [ErrWordNotFound] when no such word exists. A locked word is immovable to
// the reconciler and cleaner until unlocked.
func (c *Core) UpdateWordLock(wordID string, locked bool, newText string, newHistory []HistoryItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	words := c.store.Words()
	for i := range words {
		if words[i].ID != wordID {
			continue
		}
		words[i].LockedByUser = locked
		if newText != "" {
			words[i].Text = newText
		}
		if newHistory != nil {
			words[i].History = newHistory
		}
		return nil
	}
	return ErrWordNotFound
}

// nowMillis returns the current wall-clock time as Unix milliseconds, used
// only for the advisory TimestampMs field on snapshots.
func nowMillis() int64 { return time.Now().UnixMilli() }

// trimTokenTail replaces the rolling token tail with fresh, trimming entries older than maxSpan
// relative to the newest token's End.
func trimTokenTail(fresh []Token, maxSpan time.Duration) []Token {
	if len(fresh) == 0 {
		return nil
	}
	cutoff := fresh[len(fresh)-1].End - maxSpan
	i := 0
	for i < len(fresh) && fresh[i].End < cutoff {
		i++
	}
	tail := make([]Token, len(fresh)-i)
	copy(tail, fresh[i:])
	return tail
}
