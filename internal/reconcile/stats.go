package reconcile

import "time"

// Stats summarizes rolling and overall throughput for the current
// transcript, surfaced on every [MergedTranscriptionUpdate].
type Stats struct {
	// WordCount is the number of words currently held in the store.
	WordCount int

	// OverallWPM is words-per-minute computed over the full transcript
	// span (first word's Start to last word's End).
	OverallWPM float64

	// RollingWPM is words-per-minute computed over only the trailing
	// WPMCalculationWindowSeconds of audio.
	RollingWPM float64
}

// computeStats derives [Stats] from the store's current contents. windowSeconds
// is the configured rolling-window length (ReconcileConfig.WPMCalculationWindowSeconds).
//
// Open question resolved: for a transcript of exactly one word, overall WPM
// has a zero-length span (Start == End trivially, or an arbitrarily short
// one); rather than divide by a near-zero duration and produce a misleading
// spike, a single word reports OverallWPM as 0. Two or more words always
// have a well-defined positive span to divide by.
func computeStats(store *Store, windowSeconds float64) Stats {
	words := store.Words()
	st := Stats{WordCount: len(words)}
	if len(words) == 0 {
		return st
	}

	spanStart := words[0].Start
	spanEnd := words[len(words)-1].End
	if len(words) >= 2 && spanEnd > spanStart {
		minutes := (spanEnd - spanStart).Seconds() / 60
		st.OverallWPM = float64(len(words)) / minutes
	}

	if windowSeconds <= 0 {
		return st
	}
	windowStart := spanEnd - time.Duration(windowSeconds*float64(time.Second))
	if windowStart < spanStart {
		windowStart = spanStart
	}

	count := 0
	for i := len(words) - 1; i >= 0; i-- {
		if words[i].Start < windowStart {
			break
		}
		count++
	}
	actualWindow := (spanEnd - windowStart).Seconds()
	if count > 0 && actualWindow > 0 {
		st.RollingWPM = float64(count) / (actualWindow / 60)
	}
	return st
}
