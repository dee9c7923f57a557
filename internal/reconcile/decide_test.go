package reconcile

import (
	"testing"

	"github.com/voxreconcile/strc/internal/config"
)

func defaultCfg() config.ReconcileConfig {
	return config.Defaults().Reconcile
}

func TestDecide_NoOverlap_AddNew(t *testing.T) {
	d := Decide(nil, []Word{word("hello", 0, 1)}, 1, defaultCfg())
	if d.Action != ActionAddNew {
		t.Errorf("action = %v, want AddNew", d.Action)
	}
}

func TestDecide_EmptyIncoming_Keep(t *testing.T) {
	overlap := []Word{word("hello", 0, 1)}
	d := Decide(overlap, nil, 1, defaultCfg())
	if d.Action != ActionKeep {
		t.Errorf("action = %v, want Keep", d.Action)
	}
}

func TestDecide_UserLockShortCircuit(t *testing.T) {
	overlap := []Word{word("hello", 0, 1)}
	overlap[0].LockedByUser = true
	incoming := []Word{word("goodbye", 0, 1)}

	d := Decide(overlap, incoming, 2, defaultCfg())
	if d.Action != ActionKeep {
		t.Errorf("action = %v, want Keep", d.Action)
	}
	if !d.StampAllOverlap {
		t.Error("expected StampAllOverlap for locked words")
	}
}

func TestDecide_FinalizedIsImmovable(t *testing.T) {
	overlap := []Word{word("hello", 0, 1)}
	overlap[0].Finalized = true
	overlap[0].Confidence = 0.1
	incoming := []Word{word("hello", 0, 1)}
	incoming[0].Confidence = 0.99

	d := Decide(overlap, incoming, 2, defaultCfg())
	if d.Action != ActionKeep {
		t.Errorf("action = %v, want Keep (finalized must not be replaced)", d.Action)
	}
}

func TestDecide_AgreementPrefix_Keep(t *testing.T) {
	overlap := []Word{word("the", 0, 0.5), word("cat", 0.5, 1)}
	incoming := []Word{word("the", 0, 0.5), word("cat", 0.5, 1)}

	d := Decide(overlap, incoming, 2, defaultCfg())
	if d.Action != ActionKeep {
		t.Errorf("action = %v, want Keep", d.Action)
	}
	if d.K != 2 {
		t.Errorf("K = %d, want 2", d.K)
	}
}

func TestDecide_HigherConfidenceReplacesAll(t *testing.T) {
	overlap := []Word{word("teh", 0, 0.5)}
	overlap[0].Confidence = 0.5
	incoming := []Word{word("the", 0, 0.5)}
	incoming[0].Confidence = 0.99

	d := Decide(overlap, incoming, 1, defaultCfg())
	if d.Action != ActionReplaceAll {
		t.Errorf("action = %v, want ReplaceAll", d.Action)
	}
}

func TestDecide_SimilarConfidenceTies_Keep(t *testing.T) {
	overlap := []Word{word("the", 0, 0.5)}
	overlap[0].Confidence = 0.90
	incoming := []Word{word("teh", 0, 0.5)}
	incoming[0].Confidence = 0.90

	d := Decide(overlap, incoming, 1, defaultCfg())
	if d.Action != ActionKeep {
		t.Errorf("action = %v, want Keep (ties favour existing transcript)", d.Action)
	}
}

func TestDecide_VetoBlocksReplace(t *testing.T) {
	cfg := defaultCfg()
	// Mean confidence favours replacing the whole overlap, but the first
	// word is a stable, high-confidence outlier the veto rule protects.
	overlap := []Word{word("Apple", 0, 0.5), word("Banana", 0.5, 1)}
	overlap[0].Confidence = 0.95
	overlap[0].StabilityCounter = cfg.StabilityThresholdForVeto
	overlap[1].Confidence = 0.3

	incoming := []Word{word("Apricot", 0, 0.5), word("Berry", 0.5, 1)}
	incoming[0].Confidence = 0.5
	incoming[1].Confidence = 0.99

	d := Decide(overlap, incoming, 5, cfg)
	if d.Action != ActionKeep {
		t.Errorf("action = %v, want Keep (veto should block replacement)", d.Action)
	}
}

func TestDecide_NoVeto_ReplacesAll(t *testing.T) {
	cfg := defaultCfg()
	overlap := []Word{word("Apple", 0, 0.5)}
	overlap[0].Confidence = 0.3

	incoming := []Word{word("Apricot", 0, 0.5)}
	incoming[0].Confidence = 0.95

	d := Decide(overlap, incoming, 5, cfg)
	if d.Action != ActionReplaceAll {
		t.Errorf("action = %v, want ReplaceAll", d.Action)
	}
}

func TestDecide_PartialReplace_OverlapExhausted(t *testing.T) {
	overlap := []Word{word("the", 0, 0.5)}
	incoming := []Word{word("the", 0, 0.5), word("cat", 0.5, 1)}

	d := Decide(overlap, incoming, 1, defaultCfg())
	if d.Action != ActionPartialReplace {
		t.Errorf("action = %v, want PartialReplace", d.Action)
	}
	if d.K != 1 {
		t.Errorf("K = %d, want 1", d.K)
	}
}

func TestDecide_BoundaryRedundancy_DropsIncomingWord(t *testing.T) {
	cfg := defaultCfg()
	// incoming repeats the last agreed word ("cat") as a boundary artifact.
	overlap := []Word{word("the", 0, 0.5), word("cat", 0.5, 1.0)}
	overlap[1].Confidence = 0.9
	incoming := []Word{word("the", 0, 0.5), word("cat", 0.5, 1.0), word("cat", 0.95, 1.1)}
	incoming[2].Confidence = 0.5 // below replace threshold margin -> dropped, not updated

	d := Decide(overlap, incoming, 1, cfg)
	if len(d.Incoming) != 2 {
		t.Fatalf("expected redundant trailing incoming word dropped, got %d incoming words", len(d.Incoming))
	}
	if d.UpdateInPlace != nil {
		t.Error("expected no in-place update when incoming confidence does not clear the replace threshold")
	}
}
