package descriptor

import (
	"errors"
	"fmt"
)

// Slot allocation errors.
var (
	// ErrSlotExhausted is returned when every slot is allocated.
	ErrSlotExhausted = errors.New("descriptor: no free slots")

	// ErrSlotOutOfRange is returned for indices outside [0, capacity).
	ErrSlotOutOfRange = errors.New("descriptor: slot index out of range")

	// ErrDoubleRelease is returned when a slot that is not allocated is freed.
	ErrDoubleRelease = errors.New("descriptor: slot released twice")
)

// SlotAllocator is a free list over the integers [0, capacity).
// It is not safe for concurrent use.
type SlotAllocator struct {
	free  []int
	inUse []bool
}

// NewSlotAllocator returns an allocator with every index free. Indices are
// handed out in ascending order until the first Deallocate.
func NewSlotAllocator(capacity int) *SlotAllocator {
	if capacity < 0 {
		capacity = 0
	}
	free := make([]int, capacity)
	for i := range free {
		free[i] = capacity - 1 - i
	}
	return &SlotAllocator{free: free, inUse: make([]bool, capacity)}
}

// Allocate pops a free index.
func (a *SlotAllocator) Allocate() (int, error) {
	n := len(a.free)
	if n == 0 {
		return -1, fmt.Errorf("%w (capacity %d)", ErrSlotExhausted, len(a.inUse))
	}
	i := a.free[n-1]
	a.free = a.free[:n-1]
	a.inUse[i] = true
	return i, nil
}

// Deallocate pushes i back onto the free list.
func (a *SlotAllocator) Deallocate(i int) error {
	if i < 0 || i >= len(a.inUse) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrSlotOutOfRange, i, len(a.inUse))
	}
	if !a.inUse[i] {
		return fmt.Errorf("%w: %d", ErrDoubleRelease, i)
	}
	a.inUse[i] = false
	a.free = append(a.free, i)
	return nil
}

// InUse reports whether i is currently allocated.
func (a *SlotAllocator) InUse(i int) bool {
	return i >= 0 && i < len(a.inUse) && a.inUse[i]
}

// Len returns the number of allocated indices.
func (a *SlotAllocator) Len() int { return len(a.inUse) - len(a.free) }

// Cap returns the capacity.
func (a *SlotAllocator) Cap() int { return len(a.inUse) }

// Available returns the number of free indices.
func (a *SlotAllocator) Available() int { return len(a.free) }
