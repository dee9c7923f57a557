package reconcile

import (
	"math"
	"strings"
	"time"

	"github.com/voxreconcile/strc/internal/config"
)

// Action is the outcome of an overlap decision.
type Action int

const (
	// ActionAddNew means the incoming words do not overlap the stored
	// transcript at all and should simply be appended.
	ActionAddNew Action = iota

	// ActionKeep means the stored words win; the incoming overlapping
	// words are discarded (but may still feed stability bookkeeping).
	ActionKeep

	// ActionReplaceAll means the incoming words should fully replace the
	// overlapping run of stored words.
	ActionReplaceAll

	// ActionPartialReplace means only the first K stored words of the
	// overlapping run are kept; the remainder is dropped and
	// Decision.Incoming[K:] is inserted in its place.
	ActionPartialReplace
)

// String implements fmt.Stringer for diagnostics and log lines.
func (a Action) String() string {
	switch a {
	case ActionAddNew:
		return "add_new"
	case ActionKeep:
		return "keep"
	case ActionReplaceAll:
		return "replace_all"
	case ActionPartialReplace:
		return "partial_replace"
	default:
		return "unknown"
	}
}

// Decision is the pure result of comparing an incoming run of words against
// the overlapping run already in the store.
type Decision struct {
	Action Action

	// K is the agreement prefix length: the number of leading overlap
	// words that textually match the leading incoming words. Meaningful
	// for Keep and PartialReplace.
	K int

	// Incoming is the incoming word run Decide actually classified,
	// after dropping a redundant boundary word (step 4). The Reconciler
	// must use this slice, not the caller's original incoming, when
	// building AddNew/ReplaceAll/PartialReplace replacements.
	Incoming []Word

	// UpdateInPlace, when non-nil, is an updated copy of overlap[K-1]
	// (new start/end/confidence, same id/history/stability) produced by
	// the boundary-redundancy rule (step 4). The Reconciler applies it
	// regardless of Action.
	UpdateInPlace *Word

	// StampAllOverlap is set by the user-lock short-circuit (step 1): all
	// overlap words, not just the first K, must have
	// LastModifiedSequence advanced to the current sequence.
	StampAllOverlap bool

	// Reason is a short diagnostic tag describing which rule fired.
	Reason string
}

func caseInsensitiveEq(a, b string) bool { return strings.EqualFold(a, b) }

// commonPrefixLen returns the number of leading words with case-insensitive
// text equality shared by overlap and incoming.
func commonPrefixLen(overlap, incoming []Word) int {
	n := len(overlap)
	if len(incoming) < n {
		n = len(incoming)
	}
	i := 0
	for i < n && caseInsensitiveEq(overlap[i].Text, incoming[i].Text) {
		i++
	}
	return i
}

// anyLocked reports whether any word in the run is user-locked or already
// finalized — both are immovable to the reconciler, so they share the
// user-lock short-circuit in step 1.
func anyLocked(words []Word) bool {
	for _, w := range words {
		if w.LockedByUser || w.Finalized {
			return true
		}
	}
	return false
}

// overlapDuration returns the intersection length of [aStart,aEnd) and
// [bStart,bEnd); zero if they do not overlap.
func overlapDuration(aStart, aEnd, bStart, bEnd time.Duration) time.Duration {
	lo := aStart
	if bStart > lo {
		lo = bStart
	}
	hi := aEnd
	if bEnd < hi {
		hi = bEnd
	}
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// Decide compares an incoming run of words against the stored words
// occupying the overlapping range and returns the action the Reconciler
// should take. Decide is a pure function: it never mutates its inputs, so
// it can be unit tested exhaustively without a Store.
func Decide(overlap, incoming []Word, currentSeq int64, cfg config.ReconcileConfig) Decision {
	// Step 1: user-lock / finalized short-circuit.
	if anyLocked(overlap) {
		k := commonPrefixLen(overlap, incoming)
		return Decision{Action: ActionKeep, K: k, Incoming: incoming, StampAllOverlap: true, Reason: "immovable"}
	}

	// Step 2: degenerate cases.
	if len(overlap) == 0 {
		return Decision{Action: ActionAddNew, Incoming: incoming, Reason: "no_overlap"}
	}
	if len(incoming) == 0 {
		return Decision{Action: ActionKeep, K: 0, Incoming: incoming, Reason: "empty_incoming"}
	}

	// Step 3: agreement prefix.
	k := commonPrefixLen(overlap, incoming)

	// Step 4: boundary redundancy.
	adjusted := incoming
	var updateInPlace *Word
	if k > 0 && k < len(incoming) &&
		caseInsensitiveEq(overlap[k-1].Text, incoming[k].Text) &&
		overlapDuration(overlap[k-1].Start, overlap[k-1].End, incoming[k].Start, incoming[k].End) >= cfg.MinOverlapDurationForRedundancy {

		if incoming[k].Confidence > overlap[k-1].Confidence+cfg.WordConfidenceReplaceThreshold {
			u := overlap[k-1]
			u.Start = incoming[k].Start
			u.End = incoming[k].End
			u.Confidence = incoming[k].Confidence
			u.LastModifiedSequence = currentSeq
			updateInPlace = &u
		}
		adjusted = make([]Word, 0, len(incoming)-1)
		adjusted = append(adjusted, incoming[:k]...)
		adjusted = append(adjusted, incoming[k+1:]...)
	}

	d := Decision{K: k, Incoming: adjusted, UpdateInPlace: updateInPlace}

	// Step 5: classify by remaining lengths.
	switch {
	case k >= len(adjusted):
		d.Action = ActionKeep
		d.Reason = "full_agreement"

	case k > 0 && k == len(overlap):
		d.Action = ActionPartialReplace
		d.Reason = "overlap_exhausted"

	case k > 0:
		exTail := overlap[k:]
		inTail := adjusted[k:]
		if tailReplace(exTail, inTail, currentSeq, cfg) {
			d.Action = ActionPartialReplace
			d.Reason = "tail_replace"
		} else {
			d.Action = ActionKeep
			d.Reason = "tail_keep"
		}

	default: // k == 0
		if tailReplace(overlap, adjusted, currentSeq, cfg) {
			d.Action = ActionReplaceAll
			d.Reason = "whole_replace"
		} else {
			d.Action = ActionKeep
			d.Reason = "whole_keep"
		}
	}

	return d
}

// tailReplace runs the confidence/stability comparison between an existing
// ("ex") and incoming ("in") word run, returning whether the incoming run
// should replace the existing one.
func tailReplace(ex, in []Word, currentSeq int64, cfg config.ReconcileConfig) bool {
	if len(in) == 0 {
		return false
	}

	cIn := meanConfidence(in)
	cEx := meanConfidence(ex)
	nIn, nEx := len(in), len(ex)
	stabMin := minStability(ex)
	seqMax := maxLastModifiedSequence(ex)
	recent := seqMax >= currentSeq-1

	biasMul := 1.0
	if recent {
		biasMul = 1.1
	}
	bias := cfg.ConfidenceBias * biasMul

	var replace bool
	switch {
	case cIn > cEx*bias:
		replace = true
	case math.Abs(cIn-cEx) <= (bias-1)*cEx:
		if stabMin >= cfg.StabilityThreshold && !recent {
			replace = false
		} else {
			scoreIn := cIn + cfg.LengthBiasFactor*float64(nIn)
			scoreEx := cEx + cfg.LengthBiasFactor*float64(nEx)
			replace = scoreIn > scoreEx
		}
	case cIn < cEx:
		if stabMin >= 1 && !recent {
			replace = false
		} else {
			replace = true
		}
	default:
		replace = true
	}

	if replace {
		n := 3
		if nIn < n {
			n = nIn
		}
		if nEx < n {
			n = nEx
		}
		for i := 0; i < n; i++ {
			if !caseInsensitiveEq(ex[i].Text, in[i].Text) &&
				ex[i].StabilityCounter >= cfg.StabilityThresholdForVeto &&
				ex[i].Confidence > in[i].Confidence+cfg.WordMinConfidenceSuperiorityForVeto {
				replace = false
				break
			}
		}
	}
	return replace
}

func meanConfidence(words []Word) float64 {
	if len(words) == 0 {
		return 0
	}
	var sum float64
	for _, w := range words {
		sum += w.Confidence
	}
	return sum / float64(len(words))
}

func minStability(words []Word) int {
	if len(words) == 0 {
		return 0
	}
	min := words[0].StabilityCounter
	for _, w := range words[1:] {
		if w.StabilityCounter < min {
			min = w.StabilityCounter
		}
	}
	return min
}

func maxLastModifiedSequence(words []Word) int64 {
	var max int64 = -1
	for _, w := range words {
		if w.LastModifiedSequence > max {
			max = w.LastModifiedSequence
		}
	}
	return max
}
