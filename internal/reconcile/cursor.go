package reconcile

import (
	"time"

	"github.com/voxreconcile/strc/internal/config"
	"github.com/voxreconcile/strc/internal/reconcile/boundary"
)

// CursorEngine computes the mature cursor: the time offset before which the
// transcript is guaranteed never to change again, the watermark downstream
// consumers use to safely commit output.
//
// Invariants: the cursor is monotone non-decreasing, never advances past
// the end of the second-to-last finalized sentence-ending word in
// SentenceBased mode, and never advances before min_initial_context_time
// has elapsed in absolute stream time.
type CursorEngine struct {
	cfg        config.ReconcileConfig
	detector   boundary.Detector
	lastCursor time.Duration
}

// NewCursorEngine constructs a CursorEngine. detector may be nil when
// CursorBehaviorMode is LastFinalized; SentenceBased mode falls back to
// LastFinalized behaviour when no detector is configured.
func NewCursorEngine(cfg config.ReconcileConfig, detector boundary.Detector) *CursorEngine {
	return &CursorEngine{cfg: cfg, detector: detector}
}

// SetConfig swaps the active configuration for hot reload, propagating
// MaxRetainedSentences down to the boundary detector so a changed retention
// bound takes effect on the next call without reconstructing the detector.
func (c *CursorEngine) SetConfig(cfg config.ReconcileConfig) {
	c.cfg = cfg
	if c.detector != nil {
		c.detector.UpdateConfig(cfg.MaxRetainedSentences)
	}
}

// Advance recomputes the cursor from the current store contents.
// streamTime is the current absolute stream time (the latest audio time
// known to the caller), used to gate advancement on min_initial_context_time.
// The returned value never regresses relative to the previous call.
func (c *CursorEngine) Advance(store *Store, streamTime time.Duration) time.Duration {
	if streamTime < c.cfg.MinInitialContextTime {
		return c.lastCursor
	}

	var candidate time.Duration
	switch c.cfg.CursorBehaviorMode {
	case config.CursorSentenceBased:
		candidate = c.sentenceBasedCandidate(store)
	default:
		candidate = c.lastFinalizedCandidate(store)
	}
	if candidate > c.lastCursor {
		c.lastCursor = candidate
	}
	return c.lastCursor
}

// Current returns the last computed cursor without recomputing.
func (c *CursorEngine) Current() time.Duration { return c.lastCursor }

// Reset zeroes the cursor and the detector's internal state, used by
// [Core.Reset].
func (c *CursorEngine) Reset() {
	c.lastCursor = 0
	if c.detector != nil {
		c.detector.Reset()
	}
}

// lastFinalizedCandidate returns the End of the last word in the longest
// finalized prefix of the store.
func (c *CursorEngine) lastFinalizedCandidate(store *Store) time.Duration {
	words := store.Words()
	var end time.Duration
	for _, w := range words {
		if !w.Finalized {
			break
		}
		end = w.End
	}
	return end
}

// sentenceBasedCandidate implements the SentenceBased mode: ask the
// detector for all sentence-ending indices among the currently finalized
// words; if at least two exist, the candidate is the end time of the
// second-to-last such word, deliberately leaving the most recent finalized
// sentence revisable. Falls back to LastFinalized when fewer than two
// sentence endings are available or no detector is configured.
func (c *CursorEngine) sentenceBasedCandidate(store *Store) time.Duration {
	if c.detector == nil {
		return c.lastFinalizedCandidate(store)
	}

	words := store.Words()
	finalized := make([]Word, 0, len(words))
	for _, w := range words {
		if !w.Finalized {
			break
		}
		finalized = append(finalized, w)
	}
	if len(finalized) == 0 {
		return 0
	}

	texts := make([]string, len(finalized))
	for i, w := range finalized {
		texts[i] = w.Text
	}
	endings := c.detector.DetectEndings(texts)
	if len(endings) < 2 {
		return c.lastFinalizedCandidate(store)
	}

	secondToLast := endings[len(endings)-2]
	if secondToLast < 0 || secondToLast >= len(finalized) {
		return c.lastFinalizedCandidate(store)
	}
	return finalized[secondToLast].End
}
