package reconcile

import (
	"log/slog"

	"github.com/voxreconcile/strc/internal/config"
)

// Reconciler applies [Decision] values produced by [Decide] to a [Store],
// handling history capture and stability-counter bookkeeping the pure
// decider does not perform itself.
type Reconciler struct {
	cfg config.ReconcileConfig
	log *slog.Logger
}

// NewReconciler constructs a Reconciler bound to cfg.
func NewReconciler(cfg config.ReconcileConfig, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{cfg: cfg, log: log}
}

// SetConfig swaps the active configuration, used by [Core.UpdateConfig] for
// hot reload.
func (r *Reconciler) SetConfig(cfg config.ReconcileConfig) { r.cfg = cfg }

// mergeStats accumulates per-call counters surfaced in [MergedTranscriptionUpdate].
type mergeStats struct {
	added      int
	replaced   int
	keptStable int
}

// Apply reconciles one incoming run of words against the store, locating
// its overlap (if any) and applying the decision. sequence is the
// monotonically increasing payload sequence number.
func (r *Reconciler) Apply(store *Store, incoming []Word, sourceSegmentID string, sequence int64) mergeStats {
	var stats mergeStats
	if len(incoming) == 0 {
		return stats
	}

	start, end := incoming[0].Start, incoming[len(incoming)-1].End
	lo, hi, ok := store.FindOverlap(start, end)

	if !ok {
		stamped := stampNew(incoming, sourceSegmentID, sequence)
		store.InsertSorted(stamped, lo)
		stats.added += len(stamped)
		return stats
	}

	overlap := store.Words()[lo:hi]
	decision := Decide(overlap, incoming, sequence, r.cfg)

	switch decision.Action {
	case ActionAddNew:
		stamped := stampNew(decision.Incoming, sourceSegmentID, sequence)
		store.InsertSorted(stamped, lo)
		stats.added += len(stamped)

	case ActionKeep:
		kept := bumpStability(overlap, sequence)
		store.Splice(lo, hi, kept)
		stats.keptStable += len(kept)

	case ActionReplaceAll:
		replacement := stampReplacement(overlap, decision.Incoming, sourceSegmentID, sequence)
		store.Splice(lo, hi, replacement)
		stats.replaced += len(replacement)

	case ActionPartialReplace:
		k := decision.K
		if k < 0 || k > len(overlap) {
			r.log.Warn("reconcile: partial replace K out of range, treating as replace_all",
				"k", k, "overlap_len", len(overlap))
			replacement := stampReplacement(overlap, decision.Incoming, sourceSegmentID, sequence)
			store.Splice(lo, hi, replacement)
			stats.replaced += len(replacement)
			break
		}
		kept := bumpStability(overlap[:k], sequence)
		var tail []Word
		if k < len(decision.Incoming) {
			tail = stampReplacement(overlap[k:], decision.Incoming[k:], sourceSegmentID, sequence)
		}
		replacement := append(append([]Word{}, kept...), tail...)
		store.Splice(lo, hi, replacement)
		stats.keptStable += len(kept)
		if k < len(overlap) {
			stats.replaced += len(tail)
		} else {
			stats.added += len(tail)
		}

	default:
		r.log.Warn("reconcile: unknown decision action, keeping overlap unchanged", "action", int(decision.Action))
		kept := bumpStability(overlap, sequence)
		store.Splice(lo, hi, kept)
		stats.keptStable += len(kept)
	}

	if decision.UpdateInPlace != nil {
		// Re-fetch the live slice: the splice above may have reallocated
		// the backing array. The updated word occupies index lo+K-1
		// whenever K > 0 and the action kept that prefix in place.
		if decision.K > 0 {
			words := store.Words()
			idx := lo + decision.K - 1
			if idx >= 0 && idx < len(words) {
				words[idx] = *decision.UpdateInPlace
			}
		}
	}

	return stats
}

// stampNew prepares incoming words for first insertion: assigns provenance
// fields but leaves history empty.
func stampNew(words []Word, sourceSegmentID string, sequence int64) []Word {
	out := make([]Word, len(words))
	for i, w := range words {
		w.SourceSegmentID = sourceSegmentID
		w.LastModifiedSequence = sequence
		w.StabilityCounter = 0
		w.History = nil
		out[i] = w
	}
	return out
}

// stampReplacement builds the replacement run for ActionReplaceAll and the
// tail of ActionPartialReplace, prepending the superseded overlap words'
// texts to the first new word's history so revision history survives.
func stampReplacement(overlap, incoming []Word, sourceSegmentID string, sequence int64) []Word {
	prior := historyFrom(overlap)
	out := make([]Word, len(incoming))
	for i, w := range incoming {
		w.SourceSegmentID = sourceSegmentID
		w.LastModifiedSequence = sequence
		w.StabilityCounter = 0
		if i == 0 {
			w.History = append(append([]HistoryItem{}, prior...), w.History...)
		} else {
			w.History = append([]HistoryItem{}, w.History...)
		}
		out[i] = w
	}
	return out
}

// historyFrom converts a superseded run of overlap words into history
// items, most-recently-stable first.
func historyFrom(overlap []Word) []HistoryItem {
	items := make([]HistoryItem, 0, len(overlap))
	for i := len(overlap) - 1; i >= 0; i-- {
		w := overlap[i]
		items = append(items, HistoryItem{
			Text:       w.Text,
			Confidence: w.Confidence,
			Start:      w.Start,
			End:        w.End,
		})
	}
	return items
}

// bumpStability increments stability counters on a retained run without
// replacing it: every word that is not finalized, not user-locked and not
// already placed or confirmed by this sequence gets its StabilityCounter
// advanced, and every word's LastModifiedSequence is stamped to sequence,
// whether it agreed with the incoming run's prefix or simply won the
// confidence/stability comparison in Decide. Used for ActionKeep, the kept
// prefix of ActionPartialReplace, and the unknown-action fallback.
func bumpStability(words []Word, sequence int64) []Word {
	out := make([]Word, len(words))
	for i, w := range words {
		if !w.Finalized && !w.LockedByUser && w.LastModifiedSequence != sequence {
			w.StabilityCounter++
		}
		w.LastModifiedSequence = sequence
		out[i] = w
	}
	return out
}
