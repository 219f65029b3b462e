package frame

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/loov/hrtime"

	"github.com/gogpu/lib2d/internal/logging"
	"github.com/gogpu/lib2d/queue"
)

// DefaultFrameCount is the number of frames in flight.
const DefaultFrameCount = 3

// Ring errors.
var (
	// ErrNoFrame is returned by Submit without a preceding Begin.
	ErrNoFrame = errors.New("frame: submit without begin")

	// ErrFrameIndex is returned by Begin for a negative frame index.
	ErrFrameIndex = errors.New("frame: negative frame index")
)

// Reclaimer frees resources whose last use is covered by a completed fence
// value. descriptor.Pool implements it.
type Reclaimer interface {
	Reclaim(completed queue.FenceValue) int
}

// Stats summarizes how long Begin blocked on the GPU.
type Stats struct {
	Frames     uint64
	Stalls     uint64
	TotalStall time.Duration
	MaxStall   time.Duration
	LastStall  time.Duration
}

// AverageStall returns the mean stall over all frames.
func (s Stats) AverageStall() time.Duration {
	if s.Frames == 0 {
		return 0
	}
	return s.TotalStall / time.Duration(s.Frames)
}

// Ring cycles through a fixed set of contexts.
//
// Ring is driven from one goroutine; Stats may be read from any goroutine.
type Ring struct {
	contexts  []*Context
	reclaimer Reclaimer
	current   *Context

	mu    sync.Mutex
	stats Stats
}

// NewRing creates a ring over contexts. reclaimer may be nil.
func NewRing(contexts []*Context, reclaimer Reclaimer) *Ring {
	return &Ring{contexts: contexts, reclaimer: reclaimer}
}

// Len returns the number of contexts.
func (r *Ring) Len() int { return len(r.contexts) }

// Context returns context i.
func (r *Ring) Context(i int) *Context { return r.contexts[i] }

// Current returns the context between Begin and Submit, or nil.
func (r *Ring) Current() *Context { return r.current }

// Begin prepares the context of frameIndex for recording: it waits for the
// context's previous submission, resets the allocator and reopens the lists
// of stages (every stage when none are given). frameIndex is a frame counter
// and selects context frameIndex mod Len; it must not be negative.
func (r *Ring) Begin(ctx context.Context, frameIndex int, stages ...Stage) (*Context, error) {
	if len(r.contexts) == 0 {
		return nil, fmt.Errorf("frame: ring has no contexts")
	}
	if frameIndex < 0 {
		return nil, fmt.Errorf("%w: %d", ErrFrameIndex, frameIndex)
	}
	c := r.contexts[frameIndex%len(r.contexts)]

	start := hrtime.Now()
	idle := c.IsIdle()
	if err := c.WaitForFence(ctx); err != nil {
		return nil, err
	}
	r.record(hrtime.Since(start), !idle)

	if r.reclaimer != nil && c.queue != nil {
		r.reclaimer.Reclaim(c.queue.CompletedFenceValue())
	}
	if err := c.ResetAllocator(); err != nil {
		return nil, err
	}
	if len(stages) == 0 {
		stages = AllStages
	}
	for _, s := range stages {
		if err := c.ResetList(s); err != nil {
			return nil, err
		}
	}
	r.current = c
	return c, nil
}

// Submit executes the current context's stages on q and returns the fence
// value the context will wait for next time.
func (r *Ring) Submit(q *queue.CommandQueue, stages ...Stage) (queue.FenceValue, error) {
	c := r.current
	if c == nil {
		return 0, ErrNoFrame
	}
	r.current = nil
	return c.Submit(q, stages...)
}

// WaitForIdle waits for every context's last submission.
func (r *Ring) WaitForIdle(ctx context.Context) error {
	for _, c := range r.contexts {
		if err := c.WaitForFence(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *Ring) record(stall time.Duration, stalled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Frames++
	r.stats.LastStall = stall
	if !stalled {
		return
	}
	r.stats.Stalls++
	r.stats.TotalStall += stall
	if stall > r.stats.MaxStall {
		r.stats.MaxStall = stall
	}
	logging.L().Debug("frame: stalled on fence", slog.Duration("stall", stall))
}

// Stats returns a snapshot of the stall statistics.
func (r *Ring) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Destroy releases every context. Call WaitForIdle first.
func (r *Ring) Destroy() {
	for _, c := range r.contexts {
		c.Destroy()
	}
	r.contexts = nil
	r.current = nil
}
