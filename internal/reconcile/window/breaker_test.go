package window

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBreakerTest = errors.New("test error")

func TestDecodeBreaker_Defaults(t *testing.T) {
	b := newDecodeBreaker("test", 0, 0, 0)
	if b.maxFailures != 5 {
		t.Errorf("maxFailures = %d, want 5", b.maxFailures)
	}
	if b.resetTimeout != 10*time.Second {
		t.Errorf("resetTimeout = %v, want 10s", b.resetTimeout)
	}
	if b.halfOpenMax != 1 {
		t.Errorf("halfOpenMax = %d, want 1", b.halfOpenMax)
	}
	if b.State() != breakerClosed {
		t.Errorf("initial state = %v, want closed", b.State())
	}
}

func TestDecodeBreaker_ClosedToOpen(t *testing.T) {
	b := newDecodeBreaker("test", 3, time.Hour, 1)
	for i := 0; i < 3; i++ {
		_ = b.execute(func() error { return errBreakerTest })
	}
	if b.State() != breakerOpen {
		t.Fatalf("state = %v, want open after 3 failures", b.State())
	}

	err := b.execute(func() error { return nil })
	if !errors.Is(err, errBreakerOpen) {
		t.Fatalf("err = %v, want errBreakerOpen", err)
	}
}

func TestDecodeBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := newDecodeBreaker("test", 3, 0, 0)
	_ = b.execute(func() error { return errBreakerTest })
	_ = b.execute(func() error { return errBreakerTest })
	_ = b.execute(func() error { return nil })
	if b.State() != breakerClosed {
		t.Fatalf("state = %v, want closed (success should reset counter)", b.State())
	}
}

func TestDecodeBreaker_OpenToHalfOpenToClosed(t *testing.T) {
	b := newDecodeBreaker("test", 2, 10*time.Millisecond, 2)
	_ = b.execute(func() error { return errBreakerTest })
	_ = b.execute(func() error { return errBreakerTest })
	if b.State() != breakerOpen {
		t.Fatal("expected open")
	}

	time.Sleep(15 * time.Millisecond)
	if b.State() != breakerHalfOpen {
		t.Fatalf("state = %v, want half-open after timeout", b.State())
	}

	for i := 0; i < 2; i++ {
		if err := b.execute(func() error { return nil }); err != nil {
			t.Fatalf("probe %d: unexpected error: %v", i, err)
		}
	}
	if b.State() != breakerClosed {
		t.Fatalf("state = %v, want closed after successful probes", b.State())
	}
}

func TestDecodeBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := newDecodeBreaker("test", 2, 10*time.Millisecond, 3)
	_ = b.execute(func() error { return errBreakerTest })
	_ = b.execute(func() error { return errBreakerTest })
	time.Sleep(15 * time.Millisecond)

	if err := b.execute(func() error { return errBreakerTest }); err == nil {
		t.Fatal("expected error from failing probe")
	}
	if b.State() != breakerOpen {
		t.Fatalf("state = %v, want open after half-open failure", b.State())
	}
}

func TestDecodeBreaker_Reset(t *testing.T) {
	b := newDecodeBreaker("test", 2, time.Hour, 0)
	_ = b.execute(func() error { return errBreakerTest })
	_ = b.execute(func() error { return errBreakerTest })
	if b.State() != breakerOpen {
		t.Fatal("expected open")
	}

	b.Reset()
	if b.State() != breakerClosed {
		t.Fatalf("state = %v, want closed after reset", b.State())
	}
	if err := b.execute(func() error { return nil }); err != nil {
		t.Fatalf("unexpected error after reset: %v", err)
	}
}

func TestDecoderFailover_PrimarySuccess(t *testing.T) {
	primary := &stubDecoder{result: DecoderResult{Words: nil}}
	f := newDecoderFailover("primary", primary)
	secondary := &stubDecoder{}
	f.addFallback("secondary", secondary)

	if _, err := f.decode(context.Background(), Window{}, nil, 16000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if primary.calls != 1 {
		t.Errorf("primary calls = %d, want 1", primary.calls)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary calls = %d, want 0", secondary.calls)
	}
}

func TestDecoderFailover_AllFail(t *testing.T) {
	primary := &stubDecoder{err: errBreakerTest}
	f := newDecoderFailover("primary", primary)
	f.addFallback("secondary", &stubDecoder{err: errBreakerTest})

	_, err := f.decode(context.Background(), Window{}, nil, 16000)
	if !errors.Is(err, errAllDecodersFailed) {
		t.Fatalf("err = %v, want errAllDecodersFailed", err)
	}
}

func TestDecoderFailover_CircuitBreakerSkipsOpenPrimary(t *testing.T) {
	primary := &stubDecoder{err: errBreakerTest}
	f := newDecoderFailover("primary", primary)
	f.entries[0].breaker = newDecodeBreaker("primary", 1, time.Hour, 1)
	secondary := &stubDecoder{}
	f.addFallback("secondary", secondary)

	_, _ = f.decode(context.Background(), Window{}, nil, 16000)
	if f.entries[0].breaker.State() != breakerOpen {
		t.Fatal("expected primary breaker open after one failure")
	}

	if _, err := f.decode(context.Background(), Window{}, nil, 16000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if secondary.calls != 2 {
		t.Errorf("secondary calls = %d, want 2 (first decode falls through after the primary fails, second skips the open primary)", secondary.calls)
	}
}
