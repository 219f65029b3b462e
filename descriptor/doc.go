// Package descriptor manages fixed-capacity arrays of view slots.
//
// A [Heap] is an array of view metadata with CPU (and, for shader-visible
// heaps, GPU) handles computed as base + index*stride. A [SlotAllocator] is a
// free list over heap indices. A [Pool] combines the central heap with an
// allocator and hands out [Descriptor] handles.
//
// Slots released while submitted work may still read them are not reused
// until the fence values recorded with [Descriptor.MarkUsed] are reached:
//
//	d, _ := pool.Allocate()
//	d.SetView(srv)
//	v, _ := q.ExecuteCommandList(list) // list reads d
//	d.MarkUsed(v)
//	d.Release()                        // slot is pending
//	...
//	pool.Reclaim(q.CompletedFenceValue()) // slot is free again
//
// Frame contexts do the marking for descriptors passed to their Use method.
// Values of different queues are never compared, even for queues of the same
// kind.
package descriptor
