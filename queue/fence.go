package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogpu/lib2d/gpucore"
)

// A FenceValue is laid out as kind:8 | timeline id:8 | sequence:48.
// 48 bits of sequence number last centuries at thousands of submissions per
// second.
const (
	// TagShift is the bit position of the queue-class tag.
	TagShift = 56

	// IDShift is the bit position of the timeline id.
	IDShift = 48

	// MaxTimelines is the number of distinct timeline ids.
	MaxTimelines = 1 << (TagShift - IDShift)
)

const (
	sequenceMask = 1<<IDShift - 1
	idMask       = MaxTimelines - 1
)

// ErrFenceSignal is returned when the fence cannot be signaled.
var ErrFenceSignal = errors.New("queue: fence signal failed")

// FenceValue is a point on a queue's timeline.
type FenceValue uint64

// Tag returns the zero value of timeline 0 of kind.
func Tag(kind gpucore.QueueKind) FenceValue {
	return FenceValue(kind) << TagShift
}

// TimelineTag returns the zero value of timeline id of kind.
func TimelineTag(kind gpucore.QueueKind, id uint8) FenceValue {
	return Tag(kind) | FenceValue(id)<<IDShift
}

// Kind returns the queue class encoded in the value.
func (v FenceValue) Kind() gpucore.QueueKind {
	return gpucore.QueueKind(v >> TagShift)
}

// ID returns the timeline id encoded in the value.
func (v FenceValue) ID() uint8 {
	return uint8(v >> IDShift & idMask)
}

// Tag returns the zero value of the timeline v belongs to. Two values are
// comparable only if their tags are equal.
func (v FenceValue) Tag() FenceValue {
	return v &^ sequenceMask
}

// Sequence returns the sequence number without the tag.
func (v FenceValue) Sequence() uint64 {
	return uint64(v) & sequenceMask
}

// String formats the value as kind:sequence, or kind/id:sequence for
// timelines other than 0.
func (v FenceValue) String() string {
	if id := v.ID(); id != 0 {
		return fmt.Sprintf("%s/%d:%d", v.Kind(), id, v.Sequence())
	}
	return fmt.Sprintf("%s:%d", v.Kind(), v.Sequence())
}

// Timeline pairs a fence with the next value to signal and the cached
// highest value observed complete.
//
// Invariant: completed <= next-1. Neither value ever decreases.
//
// Timeline is not safe for concurrent use.
type Timeline struct {
	fence     gpucore.Fence
	next      FenceValue
	completed FenceValue

	polls  uint64
	blocks uint64
}

// NewTimeline starts the timeline tagged base on fence. The fence must
// currently be at base or lower.
func NewTimeline(fence gpucore.Fence, base FenceValue) *Timeline {
	base = base.Tag()
	return &Timeline{
		fence:     fence,
		next:      base | 1,
		completed: base,
	}
}

// Tag returns the zero value of the timeline.
func (t *Timeline) Tag() FenceValue { return t.next.Tag() }

// Fence returns the underlying fence.
func (t *Timeline) Fence() gpucore.Fence { return t.fence }

// Next returns the value the next Signal will use.
func (t *Timeline) Next() FenceValue { return t.next }

// Completed returns the cached completed value.
func (t *Timeline) Completed() FenceValue { return t.completed }

// Signal signals the next value and advances the counter.
// The returned value is never handed out again, even on error.
func (t *Timeline) Signal() (FenceValue, error) {
	v := t.next
	t.next++
	if err := t.fence.Signal(uint64(v)); err != nil {
		return v, fmt.Errorf("%w: %s: %w", ErrFenceSignal, v, err)
	}
	return v, nil
}

// IsComplete reports whether v has been reached, refreshing the cache from
// the fence if the cached value is behind. It never blocks.
func (t *Timeline) IsComplete(v FenceValue) bool {
	if v <= t.completed {
		return true
	}
	t.refresh()
	return v <= t.completed
}

// Wait blocks until v is reached or ctx is done.
//
// Fast path: the cached completed value already covers v and the fence is
// not touched. Otherwise the cache is refreshed with a non-blocking poll and
// only if that is still short does Wait block on the fence.
func (t *Timeline) Wait(ctx context.Context, v FenceValue) error {
	if v <= t.completed {
		return nil
	}
	t.refresh()
	if v <= t.completed {
		return nil
	}
	t.blocks++
	if err := t.fence.Wait(ctx, uint64(v)); err != nil {
		return fmt.Errorf("queue: wait for %s: %w", v, err)
	}
	t.completed = v
	return nil
}

func (t *Timeline) refresh() {
	t.polls++
	if c := FenceValue(t.fence.Completed()); c > t.completed {
		t.completed = c
	}
}

// Stats reports how often waits had to poll the fence and how often they
// blocked.
func (t *Timeline) Stats() (polls, blocks uint64) {
	return t.polls, t.blocks
}
