package frame

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogpu/lib2d/descriptor"
	"github.com/gogpu/lib2d/gpucore"
	"github.com/gogpu/lib2d/queue"
)

// ErrContextInFlight is returned by ResetAllocator while the GPU may still
// execute commands recorded from the context.
var ErrContextInFlight = errors.New("frame: context still in flight")

// Stage is one of the command lists a frame records.
type Stage int

// Stages, in submission order.
const (
	StagePre Stage = iota
	StageMain
	StagePost

	StageCount
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StagePre:
		return "pre"
	case StageMain:
		return "main"
	case StagePost:
		return "post"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// AllStages lists every stage in submission order.
var AllStages = []Stage{StagePre, StageMain, StagePost}

// Context is the recording state of one in-flight frame.
type Context struct {
	label     string
	kind      gpucore.QueueKind
	allocator gpucore.CommandAllocator
	lists     [StageCount]gpucore.CommandList
	heap      *descriptor.Heap

	queue *queue.CommandQueue
	fence queue.FenceValue

	// used holds the descriptors read by the lists since the last Submit.
	used []*descriptor.Descriptor
}

// NewContext creates an allocator, one closed list per stage and a
// shader-visible CSU heap of heapSize slots.
func NewContext(dev gpucore.Device, kind gpucore.QueueKind, heapSize int, label string) (*Context, error) {
	alloc, err := dev.CreateCommandAllocator(kind)
	if err != nil {
		return nil, fmt.Errorf("frame: create allocator for %s: %w", label, err)
	}
	c := &Context{
		label:     label,
		kind:      kind,
		allocator: alloc,
		heap:      descriptor.NewHeap(gpucore.HeapCSU, heapSize, true, dev.DescriptorStride(gpucore.HeapCSU)),
	}
	for s := range c.lists {
		l, err := dev.CreateCommandList(kind, alloc)
		if err != nil {
			c.Destroy()
			return nil, fmt.Errorf("frame: create %s list for %s: %w", Stage(s), label, err)
		}
		c.lists[s] = l
	}
	return c, nil
}

// Label returns the debug label.
func (c *Context) Label() string { return c.label }

// Kind returns the queue class the context records for.
func (c *Context) Kind() gpucore.QueueKind { return c.kind }

// Allocator returns the command allocator.
func (c *Context) Allocator() gpucore.CommandAllocator { return c.allocator }

// List returns the list of stage.
func (c *Context) List(stage Stage) gpucore.CommandList { return c.lists[stage] }

// Heap returns the per-frame descriptor table heap.
func (c *Context) Heap() *descriptor.Heap { return c.heap }

// Use records that the lists being recorded read ds. The next successful
// Submit marks each of them used with its fence value, so that releasing
// one defers slot reuse until the frame has finished.
func (c *Context) Use(ds ...*descriptor.Descriptor) {
	c.used = append(c.used, ds...)
}

// Bind copies the view of d into slot of the context heap and records the
// use of d.
func (c *Context) Bind(slot int, d *descriptor.Descriptor) {
	c.heap.Set(slot, d.View())
	c.Use(d)
}

// FenceValue returns the value the context was last submitted under.
// Zero means never submitted.
func (c *Context) FenceValue() queue.FenceValue { return c.fence }

// SetFenceValue records that the context's commands were submitted to q and
// complete at v.
func (c *Context) SetFenceValue(q *queue.CommandQueue, v queue.FenceValue) {
	c.queue = q
	c.fence = v
}

// IsIdle reports without blocking whether the last submission has finished.
func (c *Context) IsIdle() bool {
	return c.fence == 0 || c.queue.IsFenceComplete(c.fence)
}

// WaitForFence blocks until the last submission has finished or ctx is done.
func (c *Context) WaitForFence(ctx context.Context) error {
	if c.fence == 0 {
		return nil
	}
	if err := c.queue.WaitForFenceContext(ctx, c.fence); err != nil {
		return fmt.Errorf("frame: %s: %w", c.label, err)
	}
	return nil
}

// ResetAllocator resets the command allocator. It refuses with
// ErrContextInFlight unless the last submission has finished.
func (c *Context) ResetAllocator() error {
	if !c.IsIdle() {
		return fmt.Errorf("%w: %s waits for %s, completed %s",
			ErrContextInFlight, c.label, c.fence, c.queue.CompletedFenceValue())
	}
	if err := c.allocator.Reset(); err != nil {
		return fmt.Errorf("frame: reset %s allocator: %w", c.label, err)
	}
	return nil
}

// ResetList reopens the list of stage for recording. A list that is still
// open is closed first.
func (c *Context) ResetList(stage Stage) error {
	l := c.lists[stage]
	if !l.Closed() {
		_ = l.Close()
	}
	if err := l.Reset(c.allocator); err != nil {
		return fmt.Errorf("frame: reset %s %s list: %w", c.label, stage, err)
	}
	return nil
}

// Submit closes the lists of stages, executes them on q in stage order and
// records the returned fence value. Descriptors passed to Use since the last
// Submit are marked used with that value.
func (c *Context) Submit(q *queue.CommandQueue, stages ...Stage) (queue.FenceValue, error) {
	if len(stages) == 0 {
		stages = AllStages
	}
	lists := make([]gpucore.CommandList, 0, len(stages))
	for _, s := range stages {
		l := c.lists[s]
		if !l.Closed() {
			if err := l.Close(); err != nil {
				return 0, fmt.Errorf("frame: close %s %s list: %w", c.label, s, err)
			}
		}
		lists = append(lists, l)
	}
	v, err := q.ExecuteCommandLists(lists...)
	if err != nil {
		return 0, err
	}
	c.SetFenceValue(q, v)
	for _, d := range c.used {
		d.MarkUsed(v)
	}
	clear(c.used)
	c.used = c.used[:0]
	return v, nil
}

// Destroy releases the lists and the allocator. The caller must wait for the
// last submission first.
func (c *Context) Destroy() {
	for i, l := range c.lists {
		if l != nil {
			l.Destroy()
			c.lists[i] = nil
		}
	}
	if c.allocator != nil {
		c.allocator.Destroy()
		c.allocator = nil
	}
}
