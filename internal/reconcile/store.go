package reconcile

import (
	"sort"
	"time"
)

// Store is a time-ordered sequence of [Word] values, always kept strictly
// sorted by Start, ties broken by insertion order. It supports
// binary-search overlap queries and in-place splicing, the two operations
// the Overlap Decider and Reconciler need on every merge.
//
// Store is not safe for concurrent use; callers (the [Core]) serialize
// access externally.
type Store struct {
	words []Word
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Len returns the number of words currently held.
func (s *Store) Len() int { return len(s.words) }

// Words returns the live backing slice. Callers inside this package may
// read and mutate it directly; callers outside the package must go through
// [Core.Snapshot], which clones.
func (s *Store) Words() []Word { return s.words }

// At returns the word at index i.
func (s *Store) At(i int) Word { return s.words[i] }

// Reset discards all words.
func (s *Store) Reset() { s.words = nil }

// FindOverlap returns the indices [lo, hi) of the maximal contiguous run of
// words whose time ranges intersect (start, end) using strict-overlap
// semantics max(a,c) < min(b,d). ok is false when the store
// is empty or no word overlaps.
//
// The left boundary is located via binary search on End (the first word
// whose End is > start is a candidate for overlap); the scan then proceeds
// forward linearly until a word's Start >= end.
func (s *Store) FindOverlap(start, end time.Duration) (lo, hi int, ok bool) {
	if len(s.words) == 0 || end <= start {
		return 0, 0, false
	}

	// Binary search: first index whose End > start.
	i := sort.Search(len(s.words), func(i int) bool {
		return s.words[i].End > start
	})
	if i >= len(s.words) {
		return 0, 0, false
	}
	if s.words[i].Start >= end {
		return 0, 0, false
	}

	j := i
	for j < len(s.words) && s.words[j].Start < end {
		j++
	}
	return i, j, true
}

// InsertSorted inserts words into the store, preserving global sort order.
// hint is an index near which the caller expects the insertion point to
// fall (e.g. the overlap boundary just computed); when the neighbours at
// hint bracket the new words' time range, the splice happens there directly
// without a fresh binary search. A negative or out-of-range hint falls back
// to a binary search on Start.
func (s *Store) InsertSorted(words []Word, hint int) {
	if len(words) == 0 {
		return
	}
	first := words[0].Start

	idx := -1
	if hint >= 0 && hint <= len(s.words) {
		leftOK := hint == 0 || s.words[hint-1].Start <= first
		rightOK := hint == len(s.words) || first < s.words[hint].Start
		if leftOK && rightOK {
			idx = hint
		}
	}
	if idx < 0 {
		idx = sort.Search(len(s.words), func(i int) bool {
			return s.words[i].Start > first
		})
	}

	s.words = append(s.words, make([]Word, len(words))...)
	copy(s.words[idx+len(words):], s.words[idx:])
	copy(s.words[idx:idx+len(words)], words)
}

// Splice removes words[lo:hi) and inserts replacement in their place in a
// single step, preserving sort order of the surrounding words (the caller
// is responsible for ensuring replacement's time range fits between
// words[lo-1] and words[hi], which holds for every Reconciler call site).
func (s *Store) Splice(lo, hi int, replacement []Word) {
	tail := append([]Word{}, s.words[hi:]...)
	s.words = append(s.words[:lo], replacement...)
	s.words = append(s.words, tail...)
}
