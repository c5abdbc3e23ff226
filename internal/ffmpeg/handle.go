package ffmpeg

import (
	"context"
	"io"
	"sync"
)

// LoadState is the lifecycle state of a Handle
type LoadState int

const (
	StateUnloaded LoadState = iota
	StateLoading
	StateReady
)

func (s LoadState) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// LoadFunc initializes an engine runtime
type LoadFunc func(ctx context.Context) (Runtime, error)

// Handle owns the process-wide engine. It loads at most once at a time and
// every concurrent caller waits on the same load. Ready is terminal; a failed
// load returns to Unloaded so it can be retried.
type Handle struct {
	load LoadFunc

	mu      sync.Mutex
	state   LoadState
	rt      Runtime
	pending *loadAttempt
	lastErr error
}

type loadAttempt struct {
	done chan struct{}
	rt   Runtime
	err  error
}

// NewHandle returns an unloaded handle that initializes with load
func NewHandle(load LoadFunc) *Handle {
	return &Handle{load: load}
}

// State reports the current lifecycle state
func (h *Handle) State() LoadState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Err returns the error of the most recent failed load, if any
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr
}

// Start begins loading in the background if the handle is unloaded and
// returns immediately
func (h *Handle) Start(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.startLocked(ctx)
}

// Load returns the ready runtime, starting or joining a load as needed.
// A cancelled ctx stops the wait, not the shared load.
func (h *Handle) Load(ctx context.Context) (Runtime, error) {
	h.mu.Lock()
	if h.state == StateReady {
		rt := h.rt
		h.mu.Unlock()
		return rt, nil
	}
	attempt := h.startLocked(ctx)
	h.mu.Unlock()

	select {
	case <-attempt.done:
		return attempt.rt, attempt.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Handle) startLocked(ctx context.Context) *loadAttempt {
	if h.state == StateLoading {
		return h.pending
	}
	if h.state == StateReady {
		return nil
	}
	attempt := &loadAttempt{done: make(chan struct{})}
	h.pending = attempt
	h.state = StateLoading
	go h.run(context.WithoutCancel(ctx), attempt)
	return attempt
}

func (h *Handle) run(ctx context.Context, attempt *loadAttempt) {
	rt, err := h.load(ctx)

	h.mu.Lock()
	if err != nil {
		h.state = StateUnloaded
		h.lastErr = err
		attempt.err = err
	} else {
		h.state = StateReady
		h.rt = rt
		h.lastErr = nil
		attempt.rt = rt
	}
	h.pending = nil
	h.mu.Unlock()

	close(attempt.done)
}

// Close releases a ready runtime that holds resources
func (h *Handle) Close() error {
	h.mu.Lock()
	rt := h.rt
	h.mu.Unlock()
	if c, ok := rt.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
