package reconcile

import "time"

// alignOp classifies one step of an alignment between the stored token tail
// and a freshly decoded token tail.
type alignOp int

const (
	opMatch alignOp = iota
	opSubstitute
	opInsert // present only in the incoming tail
	opDelete // present only in the stored tail
)

// AlignStep is a single aligned pair produced by [Align]. A and B are
// indices into the stored and incoming token slices respectively, or -1
// when the step is a pure insert/delete.
type AlignStep struct {
	Op alignOp
	A  int
	B  int
}

// gapPenalty is the Needleman-Wunsch gap penalty.
const gapPenalty = 1.0

// maxStartDelta and minStartSkew bound how far apart two tokens' Start
// times may be for them to be considered a match candidate, regardless of
// text equality.
const (
	maxStartDelta = 1500 * time.Millisecond
	minStartSkew  = -200 * time.Millisecond
)

// isAlignable reports whether a and b qualify for the positive match formula:
// equal text and a start-time delta within the allowed asymmetric window.
func isAlignable(a, b Token) bool {
	if a.Token != b.Token {
		return false
	}
	delta := b.Start - a.Start
	if delta < -maxStartDelta || delta > maxStartDelta {
		return false
	}
	return delta >= minStartSkew
}

// matchScore returns the Needleman-Wunsch score for aligning stored token a
// with incoming token b: 2.0 + 0.5*mean_confidence when a and b are
// alignable, -gapPenalty (treated as a mismatch, same cost as a gap)
// otherwise.
func matchScore(a, b Token) float64 {
	if !isAlignable(a, b) {
		return -gapPenalty
	}
	mean := (a.Confidence + b.Confidence) / 2
	return 2.0 + 0.5*mean
}

// Align computes a global (Needleman-Wunsch) alignment between the stored
// tail tokens (a) and an incoming token tail (b). This is
// diagnostic only: it does not feed back into reconciliation decisions,
// which operate on Words, not Tokens. The resulting matrix is discarded
// after traceback; only the step sequence is returned for logging/analysis.
// The caller is responsible for replacing the stored tail with b afterward
// and trimming it to a bounded span ([trimTokenTail] does both).
func Align(a, b []Token) []AlignStep {
	n, m := len(a), len(b)

	dp := make([][]float64, n+1)
	for i := range dp {
		dp[i] = make([]float64, m+1)
	}
	for i := 0; i <= n; i++ {
		dp[i][0] = -gapPenalty * float64(i)
	}
	for j := 0; j <= m; j++ {
		dp[0][j] = -gapPenalty * float64(j)
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			diag := dp[i-1][j-1] + matchScore(a[i-1], b[j-1])
			up := dp[i-1][j] - gapPenalty
			left := dp[i][j-1] - gapPenalty
			best := diag
			if up > best {
				best = up
			}
			if left > best {
				best = left
			}
			dp[i][j] = best
		}
	}

	steps := make([]AlignStep, 0, n+m)
	i, j := n, m
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && dp[i][j] == dp[i-1][j-1]+matchScore(a[i-1], b[j-1]):
			op := opSubstitute
			if isAlignable(a[i-1], b[j-1]) {
				op = opMatch
			}
			steps = append(steps, AlignStep{Op: op, A: i - 1, B: j - 1})
			i--
			j--
		case i > 0 && dp[i][j] == dp[i-1][j]-gapPenalty:
			steps = append(steps, AlignStep{Op: opDelete, A: i - 1, B: -1})
			i--
		default:
			steps = append(steps, AlignStep{Op: opInsert, A: -1, B: j - 1})
			j--
		}
	}

	for l, r := 0, len(steps)-1; l < r; l, r = l+1, r-1 {
		steps[l], steps[r] = steps[r], steps[l]
	}
	return steps
}
