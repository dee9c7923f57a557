package reconcile

import (
	"time"

	"github.com/voxreconcile/strc/internal/config"
)

// Finalizer marks words immutable once they meet any of three criteria:
// the cursor rule, the age rule, or the stability rule. Finalization is
// idempotent and must be run twice around cursor
// advancement (once before, once after) so a freshly advanced cursor
// immediately finalizes the words it just passed.
type Finalizer struct {
	cfg config.ReconcileConfig
}

// NewFinalizer constructs a Finalizer bound to cfg.
func NewFinalizer(cfg config.ReconcileConfig) *Finalizer {
	return &Finalizer{cfg: cfg}
}

// SetConfig swaps the active configuration for hot reload.
func (f *Finalizer) SetConfig(cfg config.ReconcileConfig) { f.cfg = cfg }

// cursorFinalizeMargin is the fixed 0.1s margin behind the mature cursor a
// word's End must clear before the cursor rule finalizes it.
const cursorFinalizeMargin = 100 * time.Millisecond

// Run walks store.Words() and finalizes every eligible word in place,
// returning the count newly finalized. latestSegmentEnd is the End of the
// latest word observed this call, used by the age rule. cursor is the
// current mature_cursor_time. currentSequence is the sequence number of the
// payload being processed, used by the stability rule so a word is not
// finalized by the very segment that just placed it.
func (f *Finalizer) Run(store *Store, latestSegmentEnd, cursor time.Duration, currentSequence int64) int {
	words := store.Words()
	count := 0
	for i := range words {
		w := &words[i]
		if w.Finalized {
			continue
		}

		if cursor > 0 && w.End < cursor-cursorFinalizeMargin {
			w.Finalized = true
			count++
			continue
		}

		if f.cfg.UseAgeFinalization && latestSegmentEnd-w.End >= f.cfg.FinalizationAgeThreshold {
			w.Finalized = true
			count++
			continue
		}

		if w.StabilityCounter >= f.cfg.FinalizationStabilityThreshold && w.LastModifiedSequence < currentSequence {
			w.Finalized = true
			count++
		}
	}
	return count
}
