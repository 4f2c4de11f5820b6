// internal/reveal/reveal.go
package reveal

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultChunkSize = 5
	DefaultInterval  = 30 * time.Millisecond
)

// Chunk is one drip tick. Text is the revealed prefix so far.
type Chunk struct {
	Delta string `json:"delta,omitempty"`
	Text  string `json:"text"`
	Final bool   `json:"final,omitempty"`
}

// EmitFunc receives chunks in order from a single goroutine. It is never
// called after Cancel returns and must not call Cancel itself.
type EmitFunc func(Chunk)

// Handle controls one running reveal.
type Handle struct {
	cancel    context.CancelFunc
	done      chan struct{}
	mu        sync.Mutex
	stopped   bool
	completed bool
}

// Cancel stops the reveal and waits for the drip goroutine to exit.
// Safe to call more than once and after completion.
func (h *Handle) Cancel() {
	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()
	h.cancel()
	<-h.done
}

// Done is closed once the reveal finished or was canceled.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Completed reports whether the full text was emitted.
func (h *Handle) Completed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.completed
}

// Start emits text chunkSize runes at a time, one chunk per interval, then
// a Final chunk with the whole text. Empty text yields only the Final chunk.
func Start(ctx context.Context, text string, chunkSize int, interval time.Duration, emit EmitFunc) *Handle {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}
	go h.run(ctx, []rune(text), chunkSize, interval, emit)
	return h
}

func (h *Handle) run(ctx context.Context, runes []rune, chunkSize int, interval time.Duration, emit EmitFunc) {
	defer close(h.done)
	defer h.cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pos := 0
	for pos < len(runes) {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		end := pos + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		if !h.emit(emit, Chunk{Delta: string(runes[pos:end]), Text: string(runes[:end])}) {
			return
		}
		pos = end
	}

	if h.emit(emit, Chunk{Text: string(runes), Final: true}) {
		h.mu.Lock()
		h.completed = true
		h.mu.Unlock()
	}
}

// emit holds the lock across the callback so Cancel cannot return while a
// chunk is being written.
func (h *Handle) emit(fn EmitFunc, c Chunk) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return false
	}
	fn(c)
	return true
}

// Revealer keeps at most one active reveal. Starting a new one cancels the
// one it supersedes.
type Revealer struct {
	chunkSize int
	interval  time.Duration

	mu      sync.Mutex
	current *Handle
}

func NewRevealer(chunkSize int, interval time.Duration) *Revealer {
	return &Revealer{chunkSize: chunkSize, interval: interval}
}

func (r *Revealer) Start(ctx context.Context, text string, emit EmitFunc) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		r.current.Cancel()
	}
	r.current = Start(ctx, text, r.chunkSize, r.interval, emit)
	return r.current
}

// Stop cancels the active reveal, if any.
func (r *Revealer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		r.current.Cancel()
		r.current = nil
	}
}
