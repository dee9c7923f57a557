package window

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/voxreconcile/strc/internal/config"
	"github.com/voxreconcile/strc/internal/observe"
	"github.com/voxreconcile/strc/internal/reconcile"
)

// Window is a span of audio to decode, in absolute stream time.
type Window struct {
	StartAbs time.Duration
	EndAbs   time.Duration
}

// DecoderResult is the decoder's output for one window, in window-relative
// seconds.
type DecoderResult struct {
	Words         []reconcile.Word
	Tokens        []reconcile.Token
	UtteranceText string
	IsFinal       bool
}

// Decoder is the external acoustic-model collaborator this package talks
// to. Supplying a concrete implementation (whisper.cpp, a cloud STT API, a
// test double) is the caller's responsibility — acoustic inference itself
// is out of scope for the reconciliation core.
type Decoder interface {
	Decode(ctx context.Context, w Window, samples []float32, sampleRate uint32) (DecoderResult, error)
}

// NamedDecoder pairs a [Decoder] with the name its circuit breaker logs
// under, used by [WithFallbackDecoders].
type NamedDecoder struct {
	Name    string
	Decoder Decoder
}

// Controller drives the decode window selection and adaptive left-context
// logic, feeding decoder output through a [reconcile.Core].
// Not safe for concurrent Tick calls from multiple goroutines; callers
// should drive it from a single ingestion loop, matching this package's
// single-threaded-cooperative concurrency model.
type Controller struct {
	cfg      config.WindowConfig
	buf      *Buffer
	decoder  Decoder
	core     *reconcile.Core
	breaker  *decodeBreaker
	fallback *decoderFailover
	sf       singleflight.Group

	pendingFallbacks []NamedDecoder

	sequence int64

	lc          time.Duration
	stableTicks int

	prevTotalAdded    int64
	prevTotalReplaced int64

	decoding  bool
	lastPatch time.Time
	hasPatchedOnce bool

	log     *slog.Logger
	metrics *observe.Metrics
}

// Option configures a [Controller] at construction time.
type Option func(*Controller)

// WithLogger overrides the default slog logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// WithMetrics overrides the default metrics recorder.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithFallbackDecoders registers secondary decoders tried, in registration
// order, when the primary decoder's circuit breaker is open or it errors —
// e.g. a smaller local model backing a cloud STT primary, keeping ticks
// flowing while the primary recovers. Each fallback gets its own circuit
// breaker, same as the primary.
func WithFallbackDecoders(fallbacks ...NamedDecoder) Option {
	return func(c *Controller) { c.pendingFallbacks = append(c.pendingFallbacks, fallbacks...) }
}

// New constructs a Controller. core is the reconciliation core decoded
// segments are fed into; decoder is the external acoustic model.
func New(cfg config.WindowConfig, core *reconcile.Core, decoder Decoder, opts ...Option) *Controller {
	c := &Controller{
		cfg:     cfg,
		buf:     NewBuffer(),
		decoder: decoder,
		core:    core,
		lc:      cfg.LCSeconds,
		breaker: newDecodeBreaker("decode-window", 5, 10*time.Second, 1),
		log:     slog.Default(),
		metrics: observe.DefaultMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if len(c.pendingFallbacks) > 0 {
		fo := newDecoderFailover("primary", decoder)
		for _, nd := range c.pendingFallbacks {
			fo.addFallback(nd.Name, nd.Decoder)
		}
		c.fallback = fo
	}
	return c
}

// SetConfig swaps the active window configuration for hot reload.
func (c *Controller) SetConfig(cfg config.WindowConfig) { c.cfg = cfg }

// Append feeds freshly captured audio into the stitched buffer. Safe to
// call from the ingestion loop between ticks.
func (c *Controller) Append(seg AudioSegment) { c.buf.Append(seg) }

// Tick selects the next decode window, runs the decoder (through the
// circuit breaker, coalescing with any in-flight decode), and feeds the
// result through the core. Returns the resulting update, or nil if the
// tick coalesced into an already in-flight decode or had nothing new to
// decode. A failed main decode, including one rejected by an open circuit
// breaker, is returned as an error.
func (c *Controller) Tick(ctx context.Context, cursor time.Duration) (*reconcile.MergedTranscriptionUpdate, error) {
	if c.decoding {
		return nil, nil
	}

	win := c.selectWindow(cursor)
	if win.EndAbs-win.StartAbs < c.cfg.MinDecodeSeconds {
		return nil, nil
	}

	update, err := c.decodeWindow(ctx, win, cursor, false)
	if err != nil {
		return nil, err
	}

	if c.cfg.PatchDecodeEnabled && c.patchDue() {
		patchWin := Window{
			StartAbs: cursor - c.cfg.PatchLeftSeconds,
			EndAbs:   cursor + c.cfg.PatchRightSeconds,
		}
		if patchWin.StartAbs < c.buf.BaseAbs() {
			patchWin.StartAbs = c.buf.BaseAbs()
		}
		if patchUpdate, perr := c.decodeWindow(ctx, patchWin, cursor, true); perr == nil && patchUpdate != nil {
			update = patchUpdate
			c.lastPatch = time.Now()
			c.hasPatchedOnce = true
			if c.metrics != nil {
				c.metrics.PatchDecodes.Add(ctx, 1)
			}
		}
	}

	return update, nil
}

// patchDue reports whether enough time has elapsed since the last patch
// decode for another to be permitted.
func (c *Controller) patchDue() bool {
	if !c.hasPatchedOnce {
		return true
	}
	return time.Since(c.lastPatch) >= c.cfg.PatchCooldown
}

// decodeWindow runs a single decode for win (main or patch), coalescing
// concurrent callers via singleflight and routing failures through the
// circuit breaker.
func (c *Controller) decodeWindow(ctx context.Context, win Window, cursor time.Duration, isPatch bool) (*reconcile.MergedTranscriptionUpdate, error) {
	c.decoding = true
	defer func() { c.decoding = false }()

	samples := c.buf.Read(win.StartAbs, win.EndAbs)
	if len(samples) == 0 {
		return nil, nil
	}

	sfKey := "decode"
	resultCh := c.sf.DoChan(sfKey, func() (any, error) {
		start := time.Now()
		var result DecoderResult
		var err error
		if c.fallback != nil {
			result, err = c.fallback.decode(ctx, win, samples, c.buf.sampleRate)
		} else {
			err = c.breaker.execute(func() error {
				r, derr := c.decoder.Decode(ctx, win, samples, c.buf.sampleRate)
				if derr != nil {
					return derr
				}
				result = r
				return nil
			})
		}
		if c.metrics != nil {
			c.metrics.DecodeDuration.Record(ctx, time.Since(start).Seconds())
		}
		return result, err
	})

	select {
	case res := <-resultCh:
		if res.Err != nil {
			if c.metrics != nil {
				c.metrics.RecordDecodeFailure(ctx, res.Err.Error())
			}
			return nil, res.Err
		}
		result := res.Val.(DecoderResult)
		return c.applyResult(ctx, win, result, cursor, isPatch)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// applyResult absolute-time-shifts the decoded words/tokens, trims to the
// cursor and boundary rules, and feeds the surviving words through the
// reconciliation core.
func (c *Controller) applyResult(ctx context.Context, win Window, result DecoderResult, cursorTime time.Duration, isPatch bool) (*reconcile.MergedTranscriptionUpdate, error) {
	words := shiftWords(result.Words, win.StartAbs)
	words = c.trimToCursor(words, win, cursorTime)

	c.sequence++
	update, warnings, err := c.core.Merge(ctx, reconcile.Payload{
		SequenceNum:   c.sequence,
		Words:         words,
		Tokens:        shiftTokens(result.Tokens, win.StartAbs),
		UtteranceText: result.UtteranceText,
		IsFinal:       result.IsFinal,
	})
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		c.log.Warn("reconcile: merge warning", "kind", string(w.Kind), "message", w.Message)
	}

	if !isPatch {
		c.updateAdaptiveLC(update)
	}
	if c.metrics != nil {
		c.metrics.LeftContextSeconds.Record(ctx, c.lc.Seconds())
	}
	return update, nil
}

// selectWindow implements window selection rule.
func (c *Controller) selectWindow(cursorTime time.Duration) Window {
	streamEnd := c.buf.StreamEndAbs()

	var w Window
	if cursorTime == 0 {
		start := streamEnd - c.cfg.InitialBaseSeconds
		if start < c.buf.BaseAbs() {
			start = c.buf.BaseAbs()
		}
		w = Window{StartAbs: start, EndAbs: streamEnd}
	} else {
		start := cursorTime - c.lc
		end := cursorTime + c.cfg.RightWindowSeconds
		if streamEnd > end {
			end = streamEnd
		}
		if start < c.buf.BaseAbs() {
			start = c.buf.BaseAbs()
		}
		if end > streamEnd {
			end = streamEnd
		}
		w = Window{StartAbs: start, EndAbs: end}
	}

	if w.EndAbs-w.StartAbs < c.cfg.MinDecodeSeconds {
		w.StartAbs = w.EndAbs - c.cfg.MinDecodeSeconds
	}
	if w.EndAbs-w.StartAbs > c.cfg.WindowClamp {
		w.StartAbs = w.EndAbs - c.cfg.WindowClamp
	}
	if w.StartAbs < c.buf.BaseAbs() {
		w.StartAbs = c.buf.BaseAbs()
	}
	return w
}

// trimToCursor drops words fully at or before cursor+trim_margin, and
// optionally drops the first surviving boundary word
func (c *Controller) trimToCursor(words []reconcile.Word, win Window, cursorTime time.Duration) []reconcile.Word {
	threshold := cursorTime + c.cfg.TrimMargin
	out := words[:0:0]
	for _, w := range words {
		if w.End <= threshold {
			continue
		}
		out = append(out, w)
	}

	bootstrap := cursorTime == 0
	if c.cfg.DropFirstBoundaryWord && !bootstrap && len(out) > 0 {
		first := out[0]
		nearWindowStart := first.Start-win.StartAbs <= 50*time.Millisecond
		nearCursor := first.Start <= threshold
		if nearWindowStart || nearCursor {
			out = out[1:]
		}
	}
	return out
}

// updateAdaptiveLC implements adaptive left-context rule:
// churn = Δwords_replaced / max(1, Δwords_added+1) since the previous
// tick. High churn widens the left context; sustained stability decays it
// back down every lc_decay_stable_ticks ticks.
func (c *Controller) updateAdaptiveLC(update *reconcile.MergedTranscriptionUpdate) {
	_, totalAdded, totalReplaced, _, _ := c.core.CumulativeTotals()
	deltaAdded := totalAdded - c.prevTotalAdded
	deltaReplaced := totalReplaced - c.prevTotalReplaced
	c.prevTotalAdded = totalAdded
	c.prevTotalReplaced = totalReplaced

	denom := deltaAdded + 1
	if denom < 1 {
		denom = 1
	}
	churn := float64(deltaReplaced) / float64(denom)

	if churn > c.cfg.ChurnThreshold {
		c.lc += c.cfg.LCIncStep
		if c.lc > c.cfg.LCMax {
			c.lc = c.cfg.LCMax
		}
		c.stableTicks = 0
	} else {
		c.stableTicks++
		if c.cfg.LCDecayStableTicks > 0 && c.stableTicks%c.cfg.LCDecayStableTicks == 0 {
			c.lc -= c.cfg.LCDecStep
			if c.lc < c.cfg.LCMin {
				c.lc = c.cfg.LCMin
			}
		}
	}
}

func shiftWords(words []reconcile.Word, offset time.Duration) []reconcile.Word {
	out := make([]reconcile.Word, len(words))
	for i, w := range words {
		w.Start += offset
		w.End += offset
		out[i] = w
	}
	return out
}

func shiftTokens(tokens []reconcile.Token, offset time.Duration) []reconcile.Token {
	out := make([]reconcile.Token, len(tokens))
	for i, t := range tokens {
		t.Start += offset
		t.End += offset
		out[i] = t
	}
	return out
}
