package window

import (
	"testing"
	"time"
)

func samples(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i)
	}
	return out
}

func TestBuffer_AppendSeamless(t *testing.T) {
	b := NewBuffer()
	b.Append(AudioSegment{Samples: samples(16000), StartAbs: 0, SampleRate: 16000})
	b.Append(AudioSegment{Samples: samples(16000), StartAbs: time.Second, SampleRate: 16000})

	if got, want := b.StreamEndAbs(), 2*time.Second; got != want {
		t.Errorf("StreamEndAbs = %v, want %v", got, want)
	}
	if got := b.Duration(); got != 2*time.Second {
		t.Errorf("Duration = %v, want 2s", got)
	}
}

func TestBuffer_AppendGapKeepsAsIs(t *testing.T) {
	b := NewBuffer()
	b.Append(AudioSegment{Samples: samples(16000), StartAbs: 0, SampleRate: 16000})
	b.Append(AudioSegment{Samples: samples(16000), StartAbs: 2 * time.Second, SampleRate: 16000})

	// Samples concatenated even though a real gap exists; controller handles it.
	if got := len(b.Read(0, 3*time.Second)); got != 32000 {
		t.Errorf("Read length = %d, want 32000", got)
	}
}

func TestBuffer_AppendOverlapDropsLeadingFrames(t *testing.T) {
	b := NewBuffer()
	b.Append(AudioSegment{Samples: samples(16000), StartAbs: 0, SampleRate: 16000})
	// Overlaps the last 0.5s of the previous segment.
	overlapping := AudioSegment{Samples: samples(16000), StartAbs: 500 * time.Millisecond, SampleRate: 16000}
	b.Append(overlapping)

	if got, want := b.StreamEndAbs(), 1500*time.Millisecond; got != want {
		t.Errorf("StreamEndAbs = %v, want %v", got, want)
	}
}

func TestBuffer_ReadClampsToExtent(t *testing.T) {
	b := NewBuffer()
	b.Append(AudioSegment{Samples: samples(16000), StartAbs: 0, SampleRate: 16000})

	got := b.Read(500*time.Millisecond, 5*time.Second)
	if len(got) != 8000 {
		t.Errorf("len = %d, want 8000 (clamped to buffer extent)", len(got))
	}
}

func TestBuffer_ReadOutsideRangeReturnsNil(t *testing.T) {
	b := NewBuffer()
	b.Append(AudioSegment{Samples: samples(16000), StartAbs: 0, SampleRate: 16000})

	if got := b.Read(5*time.Second, 6*time.Second); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestBuffer_EmptySegmentIgnored(t *testing.T) {
	b := NewBuffer()
	b.Append(AudioSegment{Samples: nil, StartAbs: 0, SampleRate: 16000})
	if b.Duration() != 0 {
		t.Errorf("Duration = %v, want 0", b.Duration())
	}
}
