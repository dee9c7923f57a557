package reconcile

import "github.com/voxreconcile/strc/internal/config"

// Cleaner runs a post-merge sweep over the store removing two artifacts
// reconciliation can introduce at segment boundaries: back-to-back
// duplicate words and short A-A phrase repetitions.
type Cleaner struct {
	cfg config.CleanerConfig
}

// NewCleaner constructs a Cleaner bound to cfg.
func NewCleaner(cfg config.CleanerConfig) *Cleaner {
	return &Cleaner{cfg: cfg}
}

// SetConfig swaps the active configuration for hot reload.
func (c *Cleaner) SetConfig(cfg config.CleanerConfig) { c.cfg = cfg }

// Clean scans store.Words() in place and removes duplicate/repetition
// artifacts found near lo (the left edge of the region just touched by a
// reconciliation), returning the number of words removed. Finalized and
// locked words are never removed.
func (c *Cleaner) Clean(store *Store, lo int) int {
	removed := c.removeDuplicates(store, lo)
	removed += c.removeRepetitions(store, lo)
	return removed
}

// removeDuplicates drops a word that immediately repeats the previous
// word's text (case-insensitive) within DuplicateMaxGap of it. Whichever
// side is finalized or user-locked always survives; when neither is, the
// lower-confidence word is the one dropped.
func (c *Cleaner) removeDuplicates(store *Store, lo int) int {
	start := lo - 1
	if start < 0 {
		start = 0
	}
	removed := 0
	words := store.Words()
	i := start
	for i < len(words)-1 {
		a, b := words[i], words[i+1]
		if !caseInsensitiveEq(a.Text, b.Text) || b.Start-a.End > c.cfg.DuplicateMaxGap {
			i++
			continue
		}
		aLocked, bLocked := a.LockedByUser || a.Finalized, b.LockedByUser || b.Finalized
		if aLocked && bLocked {
			i++
			continue
		}

		dropA := bLocked || (!aLocked && a.Confidence < b.Confidence)
		if dropA {
			store.Splice(i, i+1, nil)
			words = store.Words()
			removed++
			if i > start {
				i--
			}
			continue
		}
		store.Splice(i+1, i+2, nil)
		words = store.Words()
		removed++
	}
	return removed
}

// removeRepetitions looks for a short phrase of length n (between
// RepetitionMinWords and RepetitionMaxWords) immediately followed by an
// identical repetition of itself, the two blocks together spanning at most
// RepetitionMaxSpan, and removes one of the two blocks. At most one
// repetition is removed per call. Scans only within RepetitionTailWindow
// words of lo, since repetition artifacts only occur at segment-merge
// boundaries.
//
// If one block is finalized or user-locked and the other is not, the
// unprotected block is removed. If both or neither are, the
// lower-mean-confidence block is removed; ties favour the earlier block.
func (c *Cleaner) removeRepetitions(store *Store, lo int) int {
	words := store.Words()
	scanStart := lo - c.cfg.RepetitionTailWindow
	if scanStart < 0 {
		scanStart = 0
	}

	for n := c.cfg.RepetitionMaxWords; n >= c.cfg.RepetitionMinWords && n > 0; n-- {
		i := scanStart
		for i+2*n <= len(words) {
			phrase := words[i : i+n]
			candidate := words[i+n : i+2*n]
			if !phraseEquals(phrase, candidate) || candidate[n-1].End-phrase[0].Start > c.cfg.RepetitionMaxSpan {
				i++
				continue
			}

			phraseLocked, candidateLocked := anyLocked(phrase), anyLocked(candidate)
			if phraseLocked && candidateLocked {
				i++
				continue
			}

			dropPhrase := candidateLocked ||
				(!phraseLocked && meanConfidence(phrase) < meanConfidence(candidate))
			if dropPhrase {
				store.Splice(i, i+n, nil)
				return n
			}
			store.Splice(i+n, i+2*n, nil)
			return n
		}
	}
	return 0
}

func phraseEquals(a, b []Word) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !caseInsensitiveEq(a[i].Text, b[i].Text) {
			return false
		}
	}
	return true
}
