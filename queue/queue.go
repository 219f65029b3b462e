package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/lib2d/gpucore"
	"github.com/gogpu/lib2d/internal/logging"
)

// Queue errors.
var (
	// ErrNoLists is returned when ExecuteCommandLists is called with nothing.
	ErrNoLists = errors.New("queue: no command lists to execute")

	// ErrDestroyed is returned by operations on a destroyed queue.
	ErrDestroyed = errors.New("queue: destroyed")

	// ErrTimelinesExhausted is returned when every timeline id of a queue
	// kind belongs to a live queue.
	ErrTimelinesExhausted = errors.New("queue: timeline ids exhausted")

	// ErrForeignFenceValue is returned when a queue is asked to wait on a
	// value from another timeline.
	ErrForeignFenceValue = errors.New("queue: fence value from another timeline")
)

// timelines tracks the tags of live queues so that no two queues share a
// timeline.
var timelines = struct {
	sync.Mutex
	live map[FenceValue]bool
}{live: make(map[FenceValue]bool)}

func acquireTag(kind gpucore.QueueKind) (FenceValue, error) {
	timelines.Lock()
	defer timelines.Unlock()
	for id := 0; id < MaxTimelines; id++ {
		tag := TimelineTag(kind, uint8(id))
		if !timelines.live[tag] {
			timelines.live[tag] = true
			return tag, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrTimelinesExhausted, kind)
}

func releaseTag(tag FenceValue) {
	timelines.Lock()
	delete(timelines.live, tag)
	timelines.Unlock()
}

// CommandQueue submits command lists to one native queue and tracks their
// completion on a fence timeline.
//
// CommandQueue is not safe for concurrent use. All submissions and waits are
// expected from the goroutine that owns the device.
type CommandQueue struct {
	queue    gpucore.Queue
	timeline *Timeline
	kind     gpucore.QueueKind
	label    string

	destroyed bool
}

// New creates a native queue of kind with its own fence.
func New(dev gpucore.Device, kind gpucore.QueueKind, label string) (*CommandQueue, error) {
	q, err := dev.CreateQueue(kind)
	if err != nil {
		return nil, fmt.Errorf("create %s queue: %w", kind, err)
	}
	f, err := dev.CreateFence(q, uint64(Tag(kind)))
	if err != nil {
		q.Destroy()
		return nil, fmt.Errorf("create %s fence: %w", kind, err)
	}
	cq, err := Wrap(q, f, label)
	if err != nil {
		f.Destroy()
		q.Destroy()
		return nil, err
	}
	return cq, nil
}

// Wrap builds a CommandQueue over an existing queue and fence, giving it a
// timeline id no other live queue of the same kind holds.
// The fence must be bound to q and start at or below Tag(q.Kind()).
func Wrap(q gpucore.Queue, fence gpucore.Fence, label string) (*CommandQueue, error) {
	tag, err := acquireTag(q.Kind())
	if err != nil {
		return nil, err
	}
	return &CommandQueue{
		queue:    q,
		timeline: NewTimeline(fence, tag),
		kind:     q.Kind(),
		label:    label,
	}, nil
}

// Kind returns the queue class.
func (q *CommandQueue) Kind() gpucore.QueueKind { return q.kind }

// Tag returns the zero value of the queue's timeline. Every value the queue
// signals carries this tag.
func (q *CommandQueue) Tag() FenceValue { return q.timeline.Tag() }

// Label returns the debug label.
func (q *CommandQueue) Label() string { return q.label }

// Native returns the wrapped backend queue.
func (q *CommandQueue) Native() gpucore.Queue { return q.queue }

// Timeline returns the fence timeline.
func (q *CommandQueue) Timeline() *Timeline { return q.timeline }

// NextFenceValue returns the value the next submission will be tagged with.
func (q *CommandQueue) NextFenceValue() FenceValue { return q.timeline.Next() }

// CompletedFenceValue returns the cached completed value.
func (q *CommandQueue) CompletedFenceValue() FenceValue { return q.timeline.Completed() }

// IsFenceComplete reports without blocking whether v has been reached.
func (q *CommandQueue) IsFenceComplete(v FenceValue) bool {
	return q.timeline.IsComplete(v)
}

// ExecuteCommandList submits one closed list. See ExecuteCommandLists.
func (q *CommandQueue) ExecuteCommandList(list gpucore.CommandList) (FenceValue, error) {
	return q.ExecuteCommandLists(list)
}

// ExecuteCommandLists submits closed lists in order and then signals the next
// fence value, which is returned. It does not wait for the GPU.
//
// A failed submission is not retried.
func (q *CommandQueue) ExecuteCommandLists(lists ...gpucore.CommandList) (FenceValue, error) {
	if q.destroyed {
		return 0, ErrDestroyed
	}
	if len(lists) == 0 {
		return 0, ErrNoLists
	}
	for i, l := range lists {
		if !l.Closed() {
			return 0, fmt.Errorf("queue: list %d: %w", i, gpucore.ErrListOpen)
		}
	}
	if err := q.queue.Submit(lists); err != nil {
		return 0, fmt.Errorf("queue: submit to %s: %w", q.label, err)
	}
	v, err := q.timeline.Signal()
	if err != nil {
		return 0, err
	}
	logging.L().Debug("queue: executed", "queue", q.label, "lists", len(lists), "fence", v)
	return v, nil
}

// WaitForFence blocks until v is reached. The wait is unbounded.
// Waiting on an already reached value returns immediately without touching
// the fence. Values signaled by another queue are rejected with
// ErrForeignFenceValue.
func (q *CommandQueue) WaitForFence(v FenceValue) error {
	return q.WaitForFenceContext(context.Background(), v)
}

// WaitForFenceContext is WaitForFence with cancellation.
func (q *CommandQueue) WaitForFenceContext(ctx context.Context, v FenceValue) error {
	if q.destroyed {
		return ErrDestroyed
	}
	if v != 0 && v.Tag() != q.Tag() {
		return fmt.Errorf("%w: %s waited on %s", ErrForeignFenceValue, q.label, v)
	}
	return q.timeline.Wait(ctx, v)
}

// WaitForIdle signals a fresh fence value and blocks until it is reached,
// so no previously submitted work is still running afterwards.
func (q *CommandQueue) WaitForIdle() error {
	return q.WaitForIdleContext(context.Background())
}

// WaitForIdleContext is WaitForIdle with cancellation.
func (q *CommandQueue) WaitForIdleContext(ctx context.Context) error {
	if q.destroyed {
		return ErrDestroyed
	}
	v, err := q.timeline.Signal()
	if err != nil {
		return err
	}
	return q.timeline.Wait(ctx, v)
}

// Destroy waits for the queue to drain and releases the fence, the queue and
// its timeline id. If the idle wait fails nothing is released and the error
// is returned.
func (q *CommandQueue) Destroy() error {
	if q.destroyed {
		return nil
	}
	if err := q.WaitForIdle(); err != nil {
		logging.L().Warn("queue: not destroyed, idle wait failed",
			slog.String("queue", q.label), slog.Any("err", err))
		return err
	}
	q.timeline.Fence().Destroy()
	q.queue.Destroy()
	releaseTag(q.Tag())
	q.destroyed = true
	return nil
}
