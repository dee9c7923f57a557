package window

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// errBreakerOpen is returned by [decodeBreaker.execute] when the breaker is
// open and the reset timeout has not yet elapsed.
var errBreakerOpen = errors.New("decode breaker is open")

// breakerState is the operating mode of a [decodeBreaker].
type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerClosed:
		return "closed"
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// decodeBreaker is a three-state circuit breaker (closed → open →
// half-open) guarding one decoder so a run of decode failures trips it
// open instead of hammering a struggling acoustic model every tick.
type decodeBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int

	mu              sync.Mutex
	state           breakerState
	consecutiveFail int
	lastFailure     time.Time
	halfOpenCalls   int
	halfOpenFails   int
}

// newDecodeBreaker constructs a decodeBreaker labelled name. Zero
// maxFailures/resetTimeout/halfOpenMax fall back to 5 failures, 10s, 1
// probe — the defaults [Controller] uses for its own decoders.
func newDecodeBreaker(name string, maxFailures int, resetTimeout time.Duration, halfOpenMax int) *decodeBreaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 10 * time.Second
	}
	if halfOpenMax <= 0 {
		halfOpenMax = 1
	}
	return &decodeBreaker{
		name:         name,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		halfOpenMax:  halfOpenMax,
		state:        breakerClosed,
	}
}

// execute runs fn if the breaker allows it. In the open state it returns
// [errBreakerOpen] without calling fn. In half-open, a limited number of
// probe calls are allowed through to decide whether to close or re-open.
func (b *decodeBreaker) execute(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case breakerOpen:
		if time.Since(b.lastFailure) >= b.resetTimeout {
			b.state = breakerHalfOpen
			b.halfOpenCalls = 0
			b.halfOpenFails = 0
			slog.Info("decode breaker transitioning to half-open", "name", b.name)
		} else {
			b.mu.Unlock()
			return errBreakerOpen
		}
	case breakerHalfOpen:
		if b.halfOpenCalls >= b.halfOpenMax {
			b.mu.Unlock()
			return errBreakerOpen
		}
	}

	inHalfOpen := b.state == breakerHalfOpen
	if inHalfOpen {
		b.halfOpenCalls++
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.recordFailure(inHalfOpen)
	} else {
		b.recordSuccess(inHalfOpen)
	}
	return err
}

// recordFailure updates failure accounting. Must be called with b.mu held.
func (b *decodeBreaker) recordFailure(inHalfOpen bool) {
	b.lastFailure = time.Now()
	if inHalfOpen {
		b.halfOpenFails++
		b.state = breakerOpen
		b.consecutiveFail = b.maxFailures
		slog.Warn("decode breaker re-opened from half-open", "name", b.name)
		return
	}
	b.consecutiveFail++
	if b.consecutiveFail >= b.maxFailures {
		b.state = breakerOpen
		slog.Warn("decode breaker opened", "name", b.name, "consecutive_failures", b.consecutiveFail)
	}
}

// recordSuccess updates success accounting. Must be called with b.mu held.
func (b *decodeBreaker) recordSuccess(inHalfOpen bool) {
	if inHalfOpen {
		successes := b.halfOpenCalls - b.halfOpenFails
		if successes >= b.halfOpenMax {
			b.state = breakerClosed
			b.consecutiveFail = 0
			b.halfOpenCalls = 0
			b.halfOpenFails = 0
			slog.Info("decode breaker closed after successful probes", "name", b.name)
		}
		return
	}
	b.consecutiveFail = 0
}

// State reports the current breaker state, resolving an elapsed open
// period to half-open even though the actual transition happens lazily on
// the next execute call.
func (b *decodeBreaker) State() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == breakerOpen && time.Since(b.lastFailure) >= b.resetTimeout {
		return breakerHalfOpen
	}
	return b.state
}

// Reset forces the breaker back to closed, clearing all failure counters.
func (b *decodeBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = breakerClosed
	b.consecutiveFail = 0
	b.halfOpenCalls = 0
	b.halfOpenFails = 0
	slog.Info("decode breaker manually reset", "name", b.name)
}

// errAllDecodersFailed is returned by [decoderFailover.decode] when the
// primary and every registered fallback either errored or had an open
// breaker.
var errAllDecodersFailed = errors.New("all decoders failed")

// decoderFailoverEntry pairs a [Decoder] with the breaker guarding it.
type decoderFailoverEntry struct {
	name    string
	decoder Decoder
	breaker *decodeBreaker
}

// decoderFailover chains a primary [Decoder] with zero or more fallbacks,
// each behind its own [decodeBreaker], and tries them in registration
// order on every decode until one succeeds. Used by [Controller] when
// [WithFallbackDecoders] registers at least one fallback; with none
// registered, Controller talks to its decoder through a bare decodeBreaker
// instead, skipping this chain entirely.
type decoderFailover struct {
	entries []decoderFailoverEntry
}

// newDecoderFailover creates a decoderFailover with primary as the first
// entry, tried before any fallback added via addFallback.
func newDecoderFailover(primaryName string, primary Decoder) *decoderFailover {
	return &decoderFailover{
		entries: []decoderFailoverEntry{
			{name: primaryName, decoder: primary, breaker: newDecodeBreaker(primaryName, 5, 10*time.Second, 1)},
		},
	}
}

// addFallback appends a fallback decoder, tried after the primary and any
// fallback registered earlier.
func (f *decoderFailover) addFallback(name string, d Decoder) {
	f.entries = append(f.entries, decoderFailoverEntry{
		name:    name,
		decoder: d,
		breaker: newDecodeBreaker(name, 5, 10*time.Second, 1),
	})
}

// decode tries each entry in order until one returns without error,
// skipping entries whose breaker is open. Returns [errAllDecodersFailed]
// wrapped with the last error if every entry fails.
func (f *decoderFailover) decode(ctx context.Context, w Window, samples []float32, sampleRate uint32) (DecoderResult, error) {
	var lastErr error
	for i := range f.entries {
		entry := &f.entries[i]
		var result DecoderResult
		err := entry.breaker.execute(func() error {
			r, derr := entry.decoder.Decode(ctx, w, samples, sampleRate)
			if derr != nil {
				return derr
			}
			result = r
			return nil
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, errBreakerOpen) {
			slog.Debug("decode skipped, breaker open", "decoder", entry.name)
		} else {
			slog.Warn("decoder failed, trying next", "decoder", entry.name, "error", err)
		}
	}
	return DecoderResult{}, errors.Join(errAllDecodersFailed, lastErr)
}
