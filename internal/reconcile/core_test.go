package reconcile

import (
	"context"
	"testing"

	"github.com/voxreconcile/strc/internal/config"
)

func TestCore_Merge_AddsWords(t *testing.T) {
	c := New(config.Defaults())
	update, warnings, err := c.Merge(context.Background(), Payload{
		SessionID:   "s1",
		SequenceNum: 1,
		Words:       []Word{word("hello", 0, 0.5), word("world", 0.5, 1)},
	})
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %+v, want none", warnings)
	}
	if len(update.Words) != 2 {
		t.Fatalf("len(Words) = %d, want 2", len(update.Words))
	}
	if update.LastSequenceNum != 1 {
		t.Errorf("LastSequenceNum = %d, want 1", update.LastSequenceNum)
	}
}

func TestCore_Merge_EmptyPayloadWarns(t *testing.T) {
	c := New(config.Defaults())
	_, warnings, err := c.Merge(context.Background(), Payload{SessionID: "s1", SequenceNum: 1})
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if len(warnings) != 1 || warnings[0].Kind != WarningEmptyPayload {
		t.Errorf("warnings = %+v, want one WarningEmptyPayload", warnings)
	}
}

func TestCore_Merge_DropsInvalidWords(t *testing.T) {
	c := New(config.Defaults())
	bad := word("bad", 1, 0.5) // End before Start
	update, warnings, err := c.Merge(context.Background(), Payload{
		SessionID:   "s1",
		SequenceNum: 1,
		Words:       []Word{word("ok", 0, 0.5), bad},
	})
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if len(update.Words) != 1 {
		t.Fatalf("len(Words) = %d, want 1", len(update.Words))
	}
	foundWarning := false
	for _, w := range warnings {
		if w.Kind == WarningInvalidWord {
			foundWarning = true
		}
	}
	if !foundWarning {
		t.Error("expected WarningInvalidWord")
	}
}

func TestCore_Merge_SecondSegmentReinforcesStability(t *testing.T) {
	c := New(config.Defaults())
	ctx := context.Background()
	c.Merge(ctx, Payload{SessionID: "s1", SequenceNum: 1, Words: []Word{word("hello", 0, 0.5)}})
	update, _, err := c.Merge(ctx, Payload{SessionID: "s1", SequenceNum: 2, Words: []Word{word("hello", 0, 0.5)}})
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if update.Words[0].StabilityCounter != 1 {
		t.Errorf("StabilityCounter = %d, want 1", update.Words[0].StabilityCounter)
	}
}

func TestCore_Snapshot_ReturnsClone(t *testing.T) {
	c := New(config.Defaults())
	ctx := context.Background()
	c.Merge(ctx, Payload{SessionID: "s1", SequenceNum: 1, Words: []Word{word("hello", 0, 0.5)}})

	snap := c.Snapshot()
	snap.Words[0].Text = "mutated"

	snap2 := c.Snapshot()
	if snap2.Words[0].Text == "mutated" {
		t.Error("Snapshot leaked internal state; mutation of returned slice affected the store")
	}
}

func TestCore_Reset_ClearsState(t *testing.T) {
	c := New(config.Defaults())
	ctx := context.Background()
	c.Merge(ctx, Payload{SessionID: "s1", SequenceNum: 1, Words: []Word{word("hello", 0, 0.5)}})

	c.Reset()
	snap := c.Snapshot()
	if len(snap.Words) != 0 {
		t.Errorf("len(Words) = %d, want 0 after Reset", len(snap.Words))
	}
	if snap.LastSequenceNum != 0 {
		t.Errorf("LastSequenceNum = %d, want 0 after Reset", snap.LastSequenceNum)
	}
}

func TestCore_UpdateWordLock(t *testing.T) {
	c := New(config.Defaults())
	ctx := context.Background()
	c.Merge(ctx, Payload{SessionID: "s1", SequenceNum: 1, Words: []Word{word("hello", 0, 0.5)}})

	if err := c.UpdateWordLock("hello", true, "corrected", nil); err != nil {
		t.Fatalf("UpdateWordLock error: %v", err)
	}
	snap := c.Snapshot()
	if !snap.Words[0].LockedByUser || snap.Words[0].Text != "corrected" {
		t.Errorf("got %+v, want locked and corrected", snap.Words[0])
	}
}

func TestCore_UpdateWordLock_NotFound(t *testing.T) {
	c := New(config.Defaults())
	if err := c.UpdateWordLock("missing", true, "", nil); err != ErrWordNotFound {
		t.Errorf("err = %v, want ErrWordNotFound", err)
	}
}

func TestCore_CumulativeTotals(t *testing.T) {
	c := New(config.Defaults())
	ctx := context.Background()
	c.Merge(ctx, Payload{SessionID: "s1", SequenceNum: 1, Words: []Word{word("hello", 0, 0.5)}})

	segments, added, _, _, _ := c.CumulativeTotals()
	if segments != 1 || added != 1 {
		t.Errorf("segments=%d added=%d, want 1,1", segments, added)
	}
}
