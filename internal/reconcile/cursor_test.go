package reconcile

import (
	"testing"

	"github.com/voxreconcile/strc/internal/config"
)

// stubDetector reports every word ending in "." as a sentence boundary.
type stubDetector struct{}

func (stubDetector) DetectEndings(words []string) []int {
	var out []int
	for i, w := range words {
		if len(w) > 0 && w[len(w)-1] == '.' {
			out = append(out, i)
		}
	}
	return out
}

func (stubDetector) Reset() {}

func (stubDetector) UpdateConfig(maxRetained int) {}

func TestCursorEngine_GatedByMinInitialContextTime(t *testing.T) {
	cfg := defaultCfg()
	cfg.MinInitialContextTime = sec(3)
	c := NewCursorEngine(cfg, stubDetector{})

	s := NewStore()
	s.InsertSorted([]Word{word("hello", 0, 1)}, 0)
	words := s.Words()
	words[0].Finalized = true

	got := c.Advance(s, sec(1))
	if got != 0 {
		t.Errorf("cursor = %v, want 0 before min_initial_context_time elapses", got)
	}
}

func TestCursorEngine_SentenceBased_NeedsTwoEndings(t *testing.T) {
	cfg := defaultCfg()
	cfg.CursorBehaviorMode = config.CursorSentenceBased
	cfg.MinInitialContextTime = 0
	c := NewCursorEngine(cfg, stubDetector{})

	s := NewStore()
	s.InsertSorted([]Word{word("hi.", 0, 1)}, 0)
	words := s.Words()
	words[0].Finalized = true

	got := c.Advance(s, sec(5))
	// Only one sentence ending available: falls back to last-finalized.
	if got != sec(1) {
		t.Errorf("cursor = %v, want %v (fallback to last finalized)", got, sec(1))
	}
}

func TestCursorEngine_SentenceBased_SecondToLast(t *testing.T) {
	cfg := defaultCfg()
	cfg.CursorBehaviorMode = config.CursorSentenceBased
	cfg.MinInitialContextTime = 0
	c := NewCursorEngine(cfg, stubDetector{})

	s := NewStore()
	s.InsertSorted([]Word{
		word("hi.", 0, 1),
		word("bye.", 1, 2),
		word("ok.", 2, 3),
	}, 0)
	words := s.Words()
	for i := range words {
		words[i].Finalized = true
	}

	got := c.Advance(s, sec(5))
	if got != sec(2) {
		t.Errorf("cursor = %v, want %v (end of second-to-last sentence)", got, sec(2))
	}
}

// recordingDetector embeds stubDetector's boundary logic but records the
// last value passed to UpdateConfig, used to verify hot-reload wiring.
type recordingDetector struct {
	stubDetector
	lastMaxRetained *int
}

func (d *recordingDetector) UpdateConfig(maxRetained int) { *d.lastMaxRetained = maxRetained }

func TestCursorEngine_SetConfigPropagatesMaxRetainedSentences(t *testing.T) {
	var got int
	d := &recordingDetector{lastMaxRetained: &got}
	cfg := defaultCfg()
	c := NewCursorEngine(cfg, d)

	cfg.MaxRetainedSentences = 7
	c.SetConfig(cfg)

	if got != 7 {
		t.Errorf("detector UpdateConfig received %d, want 7", got)
	}
}

func TestCursorEngine_MonotoneNonDecreasing(t *testing.T) {
	cfg := defaultCfg()
	cfg.MinInitialContextTime = 0
	c := NewCursorEngine(cfg, stubDetector{})

	s := NewStore()
	s.InsertSorted([]Word{word("hi", 0, 1)}, 0)
	words := s.Words()
	words[0].Finalized = true

	first := c.Advance(s, sec(5))
	s.Reset()
	second := c.Advance(s, sec(6))
	if second < first {
		t.Errorf("cursor regressed from %v to %v", first, second)
	}
}

func TestCursorEngine_LastFinalizedMode(t *testing.T) {
	cfg := defaultCfg()
	cfg.CursorBehaviorMode = config.CursorLastFinalized
	cfg.MinInitialContextTime = 0
	c := NewCursorEngine(cfg, nil)

	s := NewStore()
	s.InsertSorted([]Word{word("a", 0, 1), word("b", 1, 2)}, 0)
	words := s.Words()
	words[0].Finalized = true

	got := c.Advance(s, sec(5))
	if got != sec(1) {
		t.Errorf("cursor = %v, want %v", got, sec(1))
	}
}
