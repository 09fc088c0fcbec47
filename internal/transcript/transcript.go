// Package transcript owns a player's scrolling game text and the teleprinter
// that reveals it one character at a time.
//
// All output goes through a single writer goroutine. Reveal, Append and
// Replace requests are queued and executed strictly in submission order, so
// concurrent callers never interleave characters.
package transcript

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// ErrClosed is returned by Flush when the transcript was closed or its sink went away
// before the queued work completed.
var ErrClosed = errors.New("transcript closed")

// Sink receives rendered output. A non-nil error means the output target is gone.
type Sink interface {
	Write(data []byte) error
}

// Options configures a Transcript.
type Options struct {
	// BaseDelay is the fixed pause before each revealed character.
	BaseDelay time.Duration
	// MaxJitter is the exclusive bound of the random pause added to BaseDelay.
	MaxJitter time.Duration
	// Source supplies jitter. Nil uses NewCryptoSource.
	Source Source
	// ClearSequence is written to the sink before replacement text.
	ClearSequence string
}

type opKind int

const (
	opAppend opKind = iota
	opReveal
	opReplace
	opBarrier
)

type op struct {
	kind opKind
	text string
	done chan struct{}
}

// Transcript is an append-only text buffer mirrored to a Sink.
//
// Invariant: exactly one goroutine writes to the sink.
type Transcript struct {
	sink   Sink
	opts   Options
	logger *zap.Logger

	mu       sync.Mutex
	buf      strings.Builder
	queue    []op
	detached bool
	closed   bool

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Transcript writing to sink and starts its writer goroutine.
//
// Precondition: sink and logger must be non-nil; delays must be >= 0.
// Postcondition: Close must be called to release the writer goroutine.
func New(sink Sink, opts Options, logger *zap.Logger) *Transcript {
	if opts.Source == nil {
		opts.Source = NewCryptoSource()
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &Transcript{
		sink:   sink,
		opts:   opts,
		logger: logger,
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go t.run()
	return t
}

// Append queues text to be written immediately, without animation.
func (t *Transcript) Append(text string) {
	if text == "" {
		return
	}
	t.enqueue(op{kind: opAppend, text: text})
}

// Reveal queues text to be written one character at a time.
// Empty text is a no-op.
func (t *Transcript) Reveal(text string) {
	if text == "" {
		return
	}
	t.enqueue(op{kind: opReveal, text: text})
}

// Replace queues a full-screen redraw: once all earlier work has been
// written, the buffer and the sink are cleared and text is written.
func (t *Transcript) Replace(text string) {
	t.enqueue(op{kind: opReplace, text: text})
}

// Flush blocks until everything queued before the call has been written.
//
// Postcondition: Returns nil when the work completed, ErrClosed if the
// transcript closed or detached first, or ctx.Err().
func (t *Transcript) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if !t.enqueue(op{kind: opBarrier, done: done}) {
		return ErrClosed
	}
	select {
	case <-done:
		t.mu.Lock()
		gone := t.detached || t.closed
		t.mu.Unlock()
		if gone {
			return ErrClosed
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// String returns the text written so far.
func (t *Transcript) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}

// Detached reports whether the sink failed and output has stopped.
func (t *Transcript) Detached() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.detached
}

// Close stops the writer, abandoning any queued work. Safe to call multiple times.
func (t *Transcript) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.mu.Unlock()

	t.cancel()
	<-t.done
}

func (t *Transcript) enqueue(o op) bool {
	t.mu.Lock()
	if t.closed || t.detached {
		t.mu.Unlock()
		if o.done != nil {
			close(o.done)
		}
		return false
	}
	t.queue = append(t.queue, o)
	t.mu.Unlock()

	select {
	case t.wake <- struct{}{}:
	default:
	}
	return true
}

func (t *Transcript) next() (op, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.queue) == 0 || t.detached {
		return op{}, false
	}
	o := t.queue[0]
	t.queue[0] = op{}
	t.queue = t.queue[1:]
	return o, true
}

func (t *Transcript) run() {
	defer close(t.done)
	defer t.drop()

	for {
		for {
			o, ok := t.next()
			if !ok {
				break
			}
			t.exec(o)
			if t.ctx.Err() != nil {
				return
			}
		}
		select {
		case <-t.ctx.Done():
			return
		case <-t.wake:
		}
	}
}

func (t *Transcript) exec(o op) {
	switch o.kind {
	case opBarrier:
		close(o.done)
	case opAppend:
		t.emit(o.text)
	case opReplace:
		t.mu.Lock()
		t.buf.Reset()
		t.mu.Unlock()
		if t.opts.ClearSequence != "" {
			if !t.write(t.opts.ClearSequence) {
				return
			}
		}
		t.emit(o.text)
	case opReveal:
		t.reveal(o.text)
	}
}

func (t *Transcript) reveal(text string) {
	for len(text) > 0 {
		if !t.pause(t.delay()) {
			return
		}
		_, size := utf8.DecodeRuneInString(text)
		if !t.emit(text[:size]) {
			return
		}
		text = text[size:]
	}
}

// emit records text in the buffer and writes it to the sink.
func (t *Transcript) emit(text string) bool {
	if text == "" {
		return true
	}
	if !t.write(text) {
		return false
	}
	t.mu.Lock()
	t.buf.WriteString(text)
	t.mu.Unlock()
	return true
}

func (t *Transcript) write(text string) bool {
	if err := t.sink.Write([]byte(text)); err != nil {
		t.mu.Lock()
		already := t.detached
		t.detached = true
		t.mu.Unlock()
		if !already {
			t.logger.Debug("transcript sink gone, stopping output", zap.Error(err))
		}
		t.drop()
		return false
	}
	return true
}

// drop discards queued work, releasing any Flush waiters.
func (t *Transcript) drop() {
	t.mu.Lock()
	pending := t.queue
	t.queue = nil
	t.mu.Unlock()
	for _, o := range pending {
		if o.done != nil {
			close(o.done)
		}
	}
}

func (t *Transcript) delay() time.Duration {
	d := t.opts.BaseDelay
	if t.opts.MaxJitter > 0 {
		d += time.Duration(t.opts.Source.Intn(int(t.opts.MaxJitter)))
	}
	return d
}

// pause waits for d or until the transcript closes.
func (t *Transcript) pause(d time.Duration) bool {
	if d <= 0 {
		return t.ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-t.ctx.Done():
		return false
	}
}
