package descriptor

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/lib2d/gpucore"
	"github.com/gogpu/lib2d/internal/logging"
	"github.com/gogpu/lib2d/queue"
)

// Pool hands out descriptors from a heap and defers slot reuse until the GPU
// is done with them.
//
// Pool is not safe for concurrent use.
type Pool struct {
	heap  *Heap
	slots *SlotAllocator

	// pending maps a released slot to the fence values it still waits for,
	// at most one per timeline.
	pending map[int][]queue.FenceValue
}

// NewPool creates a pool over every slot of heap.
func NewPool(heap *Heap) *Pool {
	return &Pool{
		heap:    heap,
		slots:   NewSlotAllocator(heap.Cap()),
		pending: make(map[int][]queue.FenceValue),
	}
}

// Heap returns the backing heap.
func (p *Pool) Heap() *Heap { return p.heap }

// Available returns the number of slots that can be allocated now.
func (p *Pool) Available() int { return p.slots.Available() }

// Pending returns the number of released slots waiting for a fence.
func (p *Pool) Pending() int { return len(p.pending) }

// Allocate reserves a slot. Slots still pending are not considered, so
// ErrSlotExhausted may be returned while Pending is non-zero; call Reclaim
// after waiting on a fence and retry.
func (p *Pool) Allocate() (*Descriptor, error) {
	i, err := p.slots.Allocate()
	if err != nil {
		return nil, err
	}
	return &Descriptor{pool: p, index: i}, nil
}

// Free releases slot index. With no fence values the slot is reusable
// immediately; otherwise it returns to the free list once Reclaim has seen
// every value reached.
func (p *Pool) Free(index int, fences ...queue.FenceValue) error {
	if !p.slots.InUse(index) {
		if index < 0 || index >= p.slots.Cap() {
			return fmt.Errorf("%w: %d", ErrSlotOutOfRange, index)
		}
		return fmt.Errorf("%w: %d", ErrDoubleRelease, index)
	}
	if _, ok := p.pending[index]; ok {
		return fmt.Errorf("%w: %d is already pending", ErrDoubleRelease, index)
	}
	if len(fences) == 0 {
		p.heap.Set(index, nil)
		return p.slots.Deallocate(index)
	}
	p.pending[index] = append([]queue.FenceValue(nil), fences...)
	return nil
}

// Reclaim returns pending slots whose fence values on completed's timeline
// are at or below completed. Values of other timelines, including other
// queues of the same kind, are left alone. It returns the number of slots
// freed.
func (p *Pool) Reclaim(completed queue.FenceValue) int {
	tag := completed.Tag()
	freed := 0
	for index, fences := range p.pending {
		rest := fences[:0]
		for _, v := range fences {
			if v.Tag() != tag || v > completed {
				rest = append(rest, v)
			}
		}
		if len(rest) > 0 {
			p.pending[index] = rest
			continue
		}
		delete(p.pending, index)
		p.heap.Set(index, nil)
		if err := p.slots.Deallocate(index); err != nil {
			logging.L().Warn("descriptor: reclaim failed", slog.Int("slot", index), slog.Any("err", err))
			continue
		}
		freed++
	}
	if freed > 0 {
		logging.L().Debug("descriptor: reclaimed slots", "count", freed, "fence", completed)
	}
	return freed
}

// Descriptor is a handle to one allocated slot of a Pool.
// It does not own the view written into the slot.
type Descriptor struct {
	pool     *Pool
	index    int
	used     []queue.FenceValue
	released bool
}

// Index returns the slot index.
func (d *Descriptor) Index() int { return d.index }

// CPUHandle returns the handle of the slot in the pool's heap.
func (d *Descriptor) CPUHandle() CPUHandle { return d.pool.heap.CPUHandle(d.index) }

// GPUHandle returns the shader-visible handle, or zero.
func (d *Descriptor) GPUHandle() GPUHandle { return d.pool.heap.GPUHandle(d.index) }

// SetView writes view into the slot.
func (d *Descriptor) SetView(view gpucore.View) { d.pool.heap.Set(d.index, view) }

// View returns the view in the slot.
func (d *Descriptor) View() gpucore.View { return d.pool.heap.View(d.index) }

// MarkUsed records that work signaled with v reads the slot. Only the
// highest value per timeline is kept.
func (d *Descriptor) MarkUsed(v queue.FenceValue) {
	for i, u := range d.used {
		if u.Tag() == v.Tag() {
			if v > u {
				d.used[i] = v
			}
			return
		}
	}
	d.used = append(d.used, v)
}

// Released reports whether Release has been called.
func (d *Descriptor) Released() bool { return d.released }

// Release returns the slot to the pool. Only the first call has an effect.
func (d *Descriptor) Release() {
	if d.released {
		return
	}
	d.released = true
	if err := d.pool.Free(d.index, d.used...); err != nil {
		logging.L().Warn("descriptor: release failed", slog.Int("slot", d.index), slog.Any("err", err))
	}
}
