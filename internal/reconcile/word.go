// Package reconcile implements the streaming transcription reconciliation
// core: the Segment Aligner & Reconciler, the Finalization & Mature-Cursor
// Engine, and the supporting transcript store, post-merge cleaner, and
// token aligner.
//
// The top-level entry point is [Core]. Callers feed it [Payload] values
// (one per decoder hypothesis) via [Core.Merge] and receive a
// [MergedTranscriptionUpdate] snapshot after each call.
package reconcile

import "time"

// HistoryItem is a superseded alternative for a word, preserved so that
// revision history survives reconciliation. Value-typed: a [Word]'s History
// is an owned snapshot copy, never a reference into a prior live word.
type HistoryItem struct {
	Text       string
	Confidence float64
	Start      time.Duration
	End        time.Duration
}

// Word is a single transcript element. Zero value is not meaningful; words
// are always constructed by the Reconciler or by tests.
//
// Invariants (enforced by the reconciliation pipeline, never by the type
// itself):
//   - Start <= End.
//   - Finalized implies Text, Start, End, Confidence never change again,
//     except through the explicit user-lock path.
//   - StabilityCounter is monotone non-decreasing for the lifetime of the id.
type Word struct {
	// ID is an opaque unique identifier, stable across updates.
	ID string

	// Text is the word's transcribed text. Never empty after trimming.
	Text string

	// Start and End are offsets in seconds from the stream origin.
	Start time.Duration
	End   time.Duration

	// Confidence is the decoder's confidence score in [0,1].
	Confidence float64

	// Finalized marks the word as immutable to the reconciler.
	Finalized bool

	// StabilityCounter counts the subsequent segments that corroborated
	// this word without modifying it.
	StabilityCounter int

	// LastModifiedSequence is the segment sequence number that last placed
	// or confirmed this word.
	LastModifiedSequence int64

	// SourceSegmentID identifies the payload that first produced this word.
	SourceSegmentID string

	// History holds prior alternatives superseded by this word, ordered
	// oldest-last (newest supersession is prepended).
	History []HistoryItem

	// LockedByUser marks the word immutable to the reconciler entirely;
	// only the explicit user-lock path may change it.
	LockedByUser bool
}

// Clone returns a deep copy of w, including its History slice. Used
// whenever a word crosses the Core boundary so callers never hold a
// reference into the core's internal store.
func (w Word) Clone() Word {
	if len(w.History) > 0 {
		h := make([]HistoryItem, len(w.History))
		copy(h, w.History)
		w.History = h
	}
	return w
}

// Token is a decoder diagnostic unit, finer-grained than a Word. The Token
// DP Aligner (component K) keeps a rolling tail of these for diagnostic
// alignment against freshly decoded tails.
type Token struct {
	Token      string
	Start      time.Duration
	End        time.Duration
	Confidence float64
}

// CloneWords returns a deep copy of a word slice, safe to hand to callers
// without exposing the core's internal backing array.
func CloneWords(words []Word) []Word {
	out := make([]Word, len(words))
	for i, w := range words {
		out[i] = w.Clone()
	}
	return out
}
