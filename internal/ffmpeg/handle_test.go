package ffmpeg

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type stubRuntime struct {
	Runtime
	closed bool
}

func (s *stubRuntime) Close() error {
	s.closed = true
	return nil
}

func TestHandleConcurrentLoadRunsOnce(t *testing.T) {
	release := make(chan struct{})
	var calls int32
	rt := &stubRuntime{}
	h := NewHandle(func(ctx context.Context) (Runtime, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return rt, nil
	})

	if h.State() != StateUnloaded {
		t.Fatalf("state = %s, want unloaded", h.State())
	}

	const waiters = 8
	var wg sync.WaitGroup
	results := make([]Runtime, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := h.Load(context.Background())
			if err != nil {
				t.Errorf("Load: %v", err)
			}
			results[i] = got
		}(i)
	}

	waitForState(t, h, StateLoading)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("loader called %d times, want 1", n)
	}
	for i, got := range results {
		if got != rt {
			t.Fatalf("waiter %d got %v, want shared runtime", i, got)
		}
	}
	if h.State() != StateReady {
		t.Fatalf("state = %s, want ready", h.State())
	}

	// Ready is terminal: later loads never call the loader again
	if _, err := h.Load(context.Background()); err != nil {
		t.Fatalf("Load after ready: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("loader called %d times after ready", n)
	}

	if err := h.Close(); err != nil || !rt.closed {
		t.Fatalf("Close should close the runtime (err=%v closed=%v)", err, rt.closed)
	}
}

func TestHandleFailedLoadCanRetry(t *testing.T) {
	boom := errors.New("primary and fallback unreachable")
	var calls int32
	h := NewHandle(func(ctx context.Context) (Runtime, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, boom
		}
		return &stubRuntime{}, nil
	})

	if _, err := h.Load(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("first Load error = %v, want %v", err, boom)
	}
	if h.State() != StateUnloaded || !errors.Is(h.Err(), boom) {
		t.Fatalf("after failure state=%s err=%v", h.State(), h.Err())
	}

	if _, err := h.Load(context.Background()); err != nil {
		t.Fatalf("retry Load: %v", err)
	}
	if h.State() != StateReady || h.Err() != nil {
		t.Fatalf("after retry state=%s err=%v", h.State(), h.Err())
	}
}

func TestHandleWaitHonoursContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	h := NewHandle(func(ctx context.Context) (Runtime, error) {
		<-release
		return &stubRuntime{}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	h.Start(ctx)
	cancel()

	if _, err := h.Load(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Load error = %v, want context.Canceled", err)
	}
	if h.State() != StateLoading {
		t.Fatalf("cancelled wait must not abort the shared load, state = %s", h.State())
	}
}

func waitForState(t *testing.T, h *Handle, want LoadState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("state = %s, want %s", h.State(), want)
		}
		time.Sleep(time.Millisecond)
	}
}
