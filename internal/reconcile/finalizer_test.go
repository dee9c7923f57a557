package reconcile

import "testing"

func TestFinalizer_CursorRule(t *testing.T) {
	s := NewStore()
	s.InsertSorted([]Word{word("hello", 0, 1), word("world", 1, 2)}, 0)

	f := NewFinalizer(defaultCfg())
	count := f.Run(s, sec(2), sec(2.5), 1)
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
	for _, w := range s.Words() {
		if !w.Finalized {
			t.Errorf("word %q not finalized", w.Text)
		}
	}
}

func TestFinalizer_AgeRule(t *testing.T) {
	cfg := defaultCfg()
	cfg.UseAgeFinalization = true
	cfg.FinalizationAgeThreshold = sec(10)

	s := NewStore()
	s.InsertSorted([]Word{word("hello", 0, 1)}, 0)

	f := NewFinalizer(cfg)
	count := f.Run(s, sec(15), 0, 1)
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestFinalizer_StabilityRule(t *testing.T) {
	cfg := defaultCfg()
	cfg.FinalizationStabilityThreshold = 2

	s := NewStore()
	s.InsertSorted([]Word{word("hello", 0, 1)}, 0)
	words := s.Words()
	words[0].StabilityCounter = 2
	words[0].LastModifiedSequence = 1

	f := NewFinalizer(cfg)
	count := f.Run(s, sec(1), 0, 5)
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestFinalizer_StabilityRule_NotSameSequence(t *testing.T) {
	cfg := defaultCfg()
	cfg.FinalizationStabilityThreshold = 2

	s := NewStore()
	s.InsertSorted([]Word{word("hello", 0, 1)}, 0)
	words := s.Words()
	words[0].StabilityCounter = 2
	words[0].LastModifiedSequence = 5

	f := NewFinalizer(cfg)
	count := f.Run(s, sec(1), 0, 5)
	if count != 0 {
		t.Errorf("count = %d, want 0 (word placed by the current sequence must not finalize yet)", count)
	}
}

func TestFinalizer_Idempotent(t *testing.T) {
	s := NewStore()
	s.InsertSorted([]Word{word("hello", 0, 1)}, 0)

	f := NewFinalizer(defaultCfg())
	f.Run(s, sec(2), sec(2.5), 1)
	count := f.Run(s, sec(2), sec(2.5), 1)
	if count != 0 {
		t.Errorf("second run count = %d, want 0 (already finalized)", count)
	}
}

func TestFinalizer_DoesNotFinalizeBeforeCursor(t *testing.T) {
	cfg := defaultCfg()
	cfg.UseAgeFinalization = false

	s := NewStore()
	s.InsertSorted([]Word{word("hello", 0, 1)}, 0)

	f := NewFinalizer(cfg)
	count := f.Run(s, sec(1), 0, 1)
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

