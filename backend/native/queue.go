package native

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/lib2d/gpucore"
	"github.com/gogpu/wgpu/hal"
)

// waitSlice bounds a single blocking HAL wait so that Wait can observe
// context cancellation.
const waitSlice = 10 * time.Millisecond

// Queue submits to the device's HAL queue.
type Queue struct {
	device *Device
	kind   gpucore.QueueKind
}

var _ gpucore.Queue = (*Queue)(nil)

// Kind returns the queue class.
func (q *Queue) Kind() gpucore.QueueKind { return q.kind }

// Submit hands the command buffers of closed lists to the HAL queue. The
// buffers are released when the allocator of each list is reset.
func (q *Queue) Submit(lists []gpucore.CommandList) error {
	bufs := make([]hal.CommandBuffer, 0, len(lists))
	for i, l := range lists {
		nl, ok := l.(*CommandList)
		if !ok {
			return ErrForeignObject
		}
		if !nl.closed {
			return fmt.Errorf("native: submit list %d: %w", i, gpucore.ErrListOpen)
		}
		if nl.kind != q.kind {
			return fmt.Errorf("native: %s list on %s queue: %w", nl.kind, q.kind, gpucore.ErrWrongQueue)
		}
		if nl.buf == nil {
			return fmt.Errorf("native: submit list %d: nothing recorded", i)
		}
		bufs = append(bufs, nl.buf)
	}
	if len(bufs) == 0 {
		return nil
	}
	if err := q.device.submit(bufs, nil, 0); err != nil {
		return fmt.Errorf("native: submit: %w", err)
	}
	for _, l := range lists {
		l.(*CommandList).retire()
	}
	return nil
}

// Destroy is a no-op: the HAL queue belongs to the device.
func (q *Queue) Destroy() {}

// Fence is a HAL timeline fence.
type Fence struct {
	device *Device
	fence  hal.Fence

	mu        sync.Mutex
	completed uint64
	signaled  uint64
	// pending holds signaled values above completed, ascending.
	pending []uint64
}

var _ gpucore.Fence = (*Fence)(nil)

// Signal submits a fence signal after all previously submitted work.
func (f *Fence) Signal(value uint64) error {
	if err := f.device.submit(nil, f.fence, value); err != nil {
		return fmt.Errorf("native: signal %#x: %w", value, err)
	}
	f.mu.Lock()
	if value > f.signaled {
		f.signaled = value
		f.pending = append(f.pending, value)
	}
	f.mu.Unlock()
	return nil
}

// Completed polls the HAL fence for every pending value without blocking.
func (f *Fence) Completed() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.pending) > 0 {
		ok, err := f.device.dev.Wait(f.fence, f.pending[0], 0)
		if err != nil || !ok {
			break
		}
		f.completed = f.pending[0]
		f.pending = f.pending[1:]
	}
	return f.completed
}

// target returns the lowest pending value at or above value.
func (f *Fence) target(value uint64) (uint64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.pending {
		if v >= value {
			return v, true
		}
	}
	return 0, false
}

// Wait blocks until the fence reaches value or ctx is done. A value that has
// not been signaled yet is polled until another goroutine signals it.
func (f *Fence) Wait(ctx context.Context, value uint64) error {
	for {
		if f.Completed() >= value {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		target, ok := f.target(value)
		if !ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitSlice):
			}
			continue
		}
		if _, err := f.device.dev.Wait(f.fence, target, waitSlice); err != nil {
			return fmt.Errorf("native: wait for %#x: %w", value, err)
		}
	}
}

// Destroy releases the HAL fence.
func (f *Fence) Destroy() {
	f.device.dev.DestroyFence(f.fence)
}
