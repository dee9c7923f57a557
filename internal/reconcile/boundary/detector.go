// Package boundary provides the pluggable sentence boundary detection
// collaborator used by the Mature-Cursor Engine's SentenceBased mode. Real
// NLP-grade sentence segmentation is explicitly out of scope for the
// reconciliation core; this package supplies a simple heuristic
// implementation and the interface callers can replace it with a
// production-grade one.
package boundary

import (
	"regexp"
	"strings"
	"sync"
)

// Detector finds sentence boundaries in a sequence of word texts. It
// returns the indices of the last word of each detected sentence, in
// ascending order.
//
// Implementations must be safe for repeated calls with growing and
// shrinking input (the reconciler may re-run detection after a prefix of
// the transcript changes) and should be fast enough to run on every merge;
// heavy NLP models belong behind a production Detector, not this one.
//
// DetectEndings takes word texts rather than [reconcile.Word] values: this
// package sits below internal/reconcile in the import graph (reconcile
// constructs detectors and hands them to the cursor engine), so a Detector
// can't depend on the reconcile package's types without creating an import
// cycle. Text is all a boundary detector needs regardless.
type Detector interface {
	DetectEndings(words []string) []int

	// Reset clears any internal state a stateful detector accumulates
	// across calls. The stock [Heuristic] recomputes from scratch every
	// call and has nothing to clear; Reset exists for implementations
	// that cache partial sentence state between calls.
	Reset()

	// UpdateConfig applies a hot-reloaded retention bound, used by
	// [CursorEngine.SetConfig] so a running [Core] picks up a changed
	// max_retained_sentences value without reconstructing the detector.
	UpdateConfig(maxRetained int)
}

// terminalPunct matches a token that ends in sentence-terminal punctuation,
// allowing a single trailing closing quote or parenthesis.
var terminalPunct = regexp.MustCompile(`[.!?]['")\]]?$`)

// abbreviations are common abbreviations whose trailing period should not,
// on its own, be treated as a sentence end.
var abbreviations = map[string]bool{
	"mr.": true, "mrs.": true, "ms.": true, "dr.": true, "prof.": true,
	"sr.": true, "jr.": true, "vs.": true, "etc.": true, "e.g.": true,
	"i.e.": true, "inc.": true, "ltd.": true, "st.": true, "no.": true,
}

// Heuristic is a punctuation-based [Detector]: a word ends a sentence when
// it terminates in '.', '!', or '?' (optionally followed by a closing quote
// or bracket) and is not a recognised abbreviation.
//
// This mirrors the level of sophistication decoders typically emit
// themselves (punctuation tokens attached to the preceding word) and is
// intended as a reasonable default, not a substitute for a real sentence
// segmenter in a production deployment.
type Heuristic struct {
	mu sync.Mutex
	// maxRetained bounds how many trailing sentence boundaries are kept
	// in memory across calls; older ones beyond the bound are dropped
	// from the returned slice to keep the hot path cheap on long
	// streams. Zero means unbounded.
	maxRetained int
}

// NewHeuristic constructs a Heuristic detector with the given retention
// bound (0 for unbounded).
func NewHeuristic(maxRetained int) *Heuristic {
	return &Heuristic{maxRetained: maxRetained}
}

// DetectEndings implements [Detector]. It recomputes from scratch on every
// call; there is no incremental state to carry, so growing or shrinking the
// input between calls is always safe.
func (h *Heuristic) DetectEndings(words []string) []int {
	h.mu.Lock()
	maxRetained := h.maxRetained
	h.mu.Unlock()

	var out []int
	for i, w := range words {
		trimmed := strings.TrimSpace(w)
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)
		if abbreviations[lower] {
			continue
		}
		if terminalPunct.MatchString(trimmed) {
			out = append(out, i)
		}
	}
	if maxRetained > 0 && len(out) > maxRetained {
		out = out[len(out)-maxRetained:]
	}
	return out
}

// Reset implements [Detector]. The heuristic carries no state beyond its
// configured retention bound, so this is a no-op.
func (h *Heuristic) Reset() {}

// UpdateConfig implements [Detector], hot-swapping the retention bound.
func (h *Heuristic) UpdateConfig(maxRetained int) {
	h.mu.Lock()
	h.maxRetained = maxRetained
	h.mu.Unlock()
}
