// Package window implements the Stitched Audio Buffer and Decode Window
// Controller: the glue between a raw audio stream and
// the reconciliation core's [reconcile.Core], deciding what span of audio
// to decode on each tick and feeding the result back through the core.
//
// Acoustic model inference itself is outside this package's scope — callers
// supply a [Decoder] implementation, keeping the acoustic backend swappable
// behind an interface.
package window

import "time"

// AudioSegment is one chunk of PCM audio tagged with its absolute position
// in the stream.
type AudioSegment struct {
	Samples    []float32
	StartAbs   time.Duration
	EndAbs     time.Duration
	SampleRate uint32
}

// Buffer is a monotonically growing sequence of PCM samples tagged with an
// absolute start time. It tolerates small timing jitter
// between appended segments and drops overlapping leading frames rather
// than duplicating audio.
//
// Not safe for concurrent use; owned exclusively by the decode window
// controller.
type Buffer struct {
	samples    []float32
	sampleRate uint32
	base       time.Duration
	hasBase    bool
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// jitterTolerance is the maximum gap between the expected and actual start
// of an appended segment that is still treated as a seamless continuation.
const jitterTolerance = time.Millisecond

// Append adds seg to the buffer append rule:
//   - If empty, adopt seg.StartAbs as the base time.
//   - If the segment starts within jitterTolerance of the expected next
//     sample, append directly.
//   - If it starts later (a gap), append as-is; the controller is
//     responsible for deciding whether the gap should be padded.
//   - If it starts earlier (an overlap), drop the overlapping leading
//     frames and append only the remainder.
func (b *Buffer) Append(seg AudioSegment) {
	if len(seg.Samples) == 0 {
		return
	}
	if !b.hasBase {
		b.base = seg.StartAbs
		b.hasBase = true
		b.sampleRate = seg.SampleRate
		b.samples = append(b.samples, seg.Samples...)
		return
	}
	if seg.SampleRate != 0 {
		b.sampleRate = seg.SampleRate
	}

	expected := b.streamEndAbs()
	delta := seg.StartAbs - expected

	switch {
	case delta >= -jitterTolerance && delta <= jitterTolerance:
		b.samples = append(b.samples, seg.Samples...)
	case delta > jitterTolerance:
		// Gap: append as-is, the controller decides whether to pad.
		b.samples = append(b.samples, seg.Samples...)
	default:
		// Overlap: drop the leading frames already present.
		overlap := expected - seg.StartAbs
		dropFrames := int(overlap.Seconds() * float64(b.sampleRate))
		if dropFrames >= len(seg.Samples) {
			return
		}
		if dropFrames < 0 {
			dropFrames = 0
		}
		b.samples = append(b.samples, seg.Samples[dropFrames:]...)
	}
}

// streamEndAbs returns the absolute time one sample past the last sample
// currently buffered.
func (b *Buffer) streamEndAbs() time.Duration {
	if !b.hasBase || b.sampleRate == 0 {
		return b.base
	}
	return b.base + durationFromSamples(len(b.samples), b.sampleRate)
}

// StreamEndAbs returns the absolute end time of the buffered audio.
func (b *Buffer) StreamEndAbs() time.Duration { return b.streamEndAbs() }

// Duration returns the total buffered audio length.
func (b *Buffer) Duration() time.Duration {
	if b.sampleRate == 0 {
		return 0
	}
	return durationFromSamples(len(b.samples), b.sampleRate)
}

// Read returns the samples covering [startAbs, endAbs), clamped to the
// buffer's actual extent. Returns nil if the range lies entirely outside
// the buffer.
func (b *Buffer) Read(startAbs, endAbs time.Duration) []float32 {
	if !b.hasBase || b.sampleRate == 0 || endAbs <= startAbs {
		return nil
	}
	if startAbs < b.base {
		startAbs = b.base
	}
	end := b.streamEndAbs()
	if endAbs > end {
		endAbs = end
	}
	if endAbs <= startAbs {
		return nil
	}
	lo := int((startAbs - b.base).Seconds() * float64(b.sampleRate))
	hi := int((endAbs - b.base).Seconds() * float64(b.sampleRate))
	if lo < 0 {
		lo = 0
	}
	if hi > len(b.samples) {
		hi = len(b.samples)
	}
	if lo >= hi {
		return nil
	}
	out := make([]float32, hi-lo)
	copy(out, b.samples[lo:hi])
	return out
}

// BaseAbs returns the absolute start time of the buffer's first sample.
func (b *Buffer) BaseAbs() time.Duration { return b.base }

func durationFromSamples(n int, sampleRate uint32) time.Duration {
	return time.Duration(float64(n) / float64(sampleRate) * float64(time.Second))
}
