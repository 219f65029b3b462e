package software

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/lib2d/gpucore"
)

// Queue executes submitted work in order on a dedicated goroutine.
type Queue struct {
	device  *Device
	kind    gpucore.QueueKind
	latency time.Duration

	mu      sync.Mutex
	cond    *sync.Cond
	pending []queueItem
	paused  bool
	stopped bool

	done     chan struct{}
	stopOnce sync.Once
}

type queueItem struct {
	run     func()
	delayed bool
}

func newQueue(d *Device, kind gpucore.QueueKind) *Queue {
	q := &Queue{
		device:  d,
		kind:    kind,
		latency: d.latency,
		done:    make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.loop()
	return q
}

func (q *Queue) loop() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for (len(q.pending) == 0 || q.paused) && !q.stopped {
			q.cond.Wait()
		}
		if q.stopped && (len(q.pending) == 0 || q.paused) {
			q.mu.Unlock()
			return
		}
		item := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		if item.delayed && q.latency > 0 {
			time.Sleep(q.latency)
		}
		item.run()
	}
}

func (q *Queue) enqueue(item queueItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return gpucore.ErrDeviceLost
	}
	q.pending = append(q.pending, item)
	q.cond.Signal()
	return nil
}

// Kind returns the queue class.
func (q *Queue) Kind() gpucore.QueueKind { return q.kind }

// Submit schedules closed lists for execution in order.
func (q *Queue) Submit(lists []gpucore.CommandList) error {
	items := make([]queueItem, 0, len(lists))
	for i, l := range lists {
		sl, ok := l.(*CommandList)
		if !ok {
			return ErrForeignObject
		}
		if !sl.closed {
			return fmt.Errorf("software: submit list %d: %w", i, gpucore.ErrListOpen)
		}
		if sl.kind != q.kind {
			return fmt.Errorf("software: %s list on %s queue: %w", sl.kind, q.kind, gpucore.ErrWrongQueue)
		}
		cmds := append([]command(nil), sl.cmds...)
		alloc := sl.alloc
		items = append(items, queueItem{
			delayed: true,
			run: func() {
				for _, c := range cmds {
					c()
				}
				alloc.inFlight.Add(-1)
			},
		})
	}
	for i, l := range lists {
		l.(*CommandList).alloc.inFlight.Add(1)
		if err := q.enqueue(items[i]); err != nil {
			l.(*CommandList).alloc.inFlight.Add(-1)
			return err
		}
	}
	return nil
}

// Pause stops execution after the current item. Work submitted while paused
// stays queued, so fences signaled after it are never reached until Resume.
func (q *Queue) Pause() {
	q.mu.Lock()
	q.paused = true
	q.mu.Unlock()
}

// Resume restarts execution after Pause.
func (q *Queue) Resume() {
	q.mu.Lock()
	q.paused = false
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Pending returns the number of items not yet executed.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Destroy drains the queue unless it is paused and stops its goroutine.
func (q *Queue) Destroy() { q.stop() }

func (q *Queue) stop() {
	q.stopOnce.Do(func() {
		q.mu.Lock()
		q.stopped = true
		q.cond.Broadcast()
		q.mu.Unlock()
		<-q.done
	})
}

// FenceStats counts fence activity.
type FenceStats struct {
	Signals uint64
	Polls   uint64
	Waits   uint64
}

// Fence is a software timeline fence.
type Fence struct {
	queue *Queue

	mu        sync.Mutex
	value     uint64
	requested uint64
	changed   chan struct{}

	signals atomic.Uint64
	polls   atomic.Uint64
	waits   atomic.Uint64
}

var _ gpucore.Fence = (*Fence)(nil)

func newFence(q *Queue, initial uint64) *Fence {
	return &Fence{queue: q, value: initial, requested: initial, changed: make(chan struct{})}
}

// NewManualFence returns a fence that only advances through Complete.
// Signal records the requested value but never reaches it on its own, which
// models a GPU that never finishes.
func NewManualFence(initial uint64) *Fence {
	return newFence(nil, initial)
}

// Signal reaches value once all work submitted to the queue before it has
// executed.
func (f *Fence) Signal(value uint64) error {
	f.signals.Add(1)
	f.mu.Lock()
	if value > f.requested {
		f.requested = value
	}
	f.mu.Unlock()
	if f.queue == nil {
		return nil
	}
	return f.queue.enqueue(queueItem{run: func() { f.Complete(value) }})
}

// Complete advances the fence to value immediately.
// Values lower than the current one are ignored.
func (f *Fence) Complete(value uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if value <= f.value {
		return
	}
	f.value = value
	close(f.changed)
	f.changed = make(chan struct{})
}

// Completed returns the current value.
func (f *Fence) Completed() uint64 {
	f.polls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// Requested returns the highest value passed to Signal.
func (f *Fence) Requested() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requested
}

// Wait blocks until value is reached or ctx is done.
func (f *Fence) Wait(ctx context.Context, value uint64) error {
	f.waits.Add(1)
	for {
		f.mu.Lock()
		if f.value >= value {
			f.mu.Unlock()
			return nil
		}
		ch := f.changed
		f.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stats returns activity counters.
func (f *Fence) Stats() FenceStats {
	return FenceStats{
		Signals: f.signals.Load(),
		Polls:   f.polls.Load(),
		Waits:   f.waits.Load(),
	}
}

// Destroy is a no-op; waiters keep working until their contexts end.
func (f *Fence) Destroy() {}
