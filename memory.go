package lib2d

import (
	"errors"
	"fmt"
	"sync"
)

// ErrMemoryBudgetExceeded is returned by buffer and texture factories when
// the allocation would exceed the device's memory budget.
var ErrMemoryBudgetExceeded = errors.New("lib2d: memory budget exceeded")

// MemoryStats reports the memory allocated through the device factories.
type MemoryStats struct {
	// BudgetBytes is the budget in bytes. Zero means unlimited.
	BudgetBytes uint64

	// UsedBytes is the currently allocated memory in bytes.
	UsedBytes uint64

	// AvailableBytes is the remaining budget.
	AvailableBytes uint64

	// Buffers and Textures count the live allocations.
	Buffers  int
	Textures int

	// Utilization is the fraction of the budget in use (0.0 to 1.0).
	Utilization float64
}

// String returns a human-readable string of memory stats.
func (s MemoryStats) String() string {
	return fmt.Sprintf("Memory[%.1f%% used, %d/%d MB, %d buffers, %d textures]",
		s.Utilization*100,
		s.UsedBytes/(1024*1024),
		s.BudgetBytes/(1024*1024),
		s.Buffers,
		s.Textures)
}

type allocation struct {
	size    uint64
	texture bool
}

// memoryTracker charges allocations against a budget.
//
// memoryTracker is safe for concurrent use.
type memoryTracker struct {
	mu     sync.Mutex
	budget uint64
	used   uint64
	live   map[any]allocation

	buffers  int
	textures int
}

func newMemoryTracker(budget uint64) *memoryTracker {
	return &memoryTracker{budget: budget, live: make(map[any]allocation)}
}

// check reports whether size more bytes fit the budget.
func (m *memoryTracker) check(size uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.budget != 0 && m.used+size > m.budget {
		return fmt.Errorf("%w: need %d bytes, have %d bytes available",
			ErrMemoryBudgetExceeded, size, m.budget-m.used)
	}
	return nil
}

// track records res as using size bytes.
func (m *memoryTracker) track(res any, size uint64, texture bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.live[res] = allocation{size: size, texture: texture}
	m.used += size
	if texture {
		m.textures++
	} else {
		m.buffers++
	}
}

// untrack forgets res. It reports whether res was tracked.
func (m *memoryTracker) untrack(res any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.live[res]
	if !ok {
		return false
	}
	delete(m.live, res)
	m.used -= a.size
	if a.texture {
		m.textures--
	} else {
		m.buffers--
	}
	return true
}

func (m *memoryTracker) stats() MemoryStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := MemoryStats{
		BudgetBytes: m.budget,
		UsedBytes:   m.used,
		Buffers:     m.buffers,
		Textures:    m.textures,
	}
	if m.budget > 0 {
		s.AvailableBytes = m.budget - m.used
		s.Utilization = float64(m.used) / float64(m.budget)
	}
	return s
}
