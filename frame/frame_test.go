package frame

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gogpu/lib2d/backend/software"
	"github.com/gogpu/lib2d/descriptor"
	"github.com/gogpu/lib2d/gpucore"
	"github.com/gogpu/lib2d/queue"
)

func openDevice(t *testing.T) gpucore.Device {
	t.Helper()
	adapters, err := software.New().Adapters()
	if err != nil {
		t.Fatal(err)
	}
	dev, err := adapters[0].Open()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(dev.Destroy)
	return dev
}

func newContexts(t *testing.T, dev gpucore.Device, n int) []*Context {
	t.Helper()
	out := make([]*Context, n)
	for i := range out {
		c, err := NewContext(dev, gpucore.QueueDirect, 64, fmt.Sprintf("frame %d", i))
		if err != nil {
			t.Fatalf("NewContext() error = %v", err)
		}
		out[i] = c
	}
	return out
}

// stuckQueue returns a direct queue whose fence never completes on its own.
func stuckQueue(t *testing.T, dev gpucore.Device) (*queue.CommandQueue, *software.Fence) {
	t.Helper()
	nq, err := dev.CreateQueue(gpucore.QueueDirect)
	if err != nil {
		t.Fatal(err)
	}
	f := software.NewManualFence(uint64(queue.Tag(gpucore.QueueDirect)))
	q, err := queue.Wrap(nq, f, "stuck")
	if err != nil {
		t.Fatal(err)
	}
	return q, f
}

func TestContextCreatesClosedLists(t *testing.T) {
	dev := openDevice(t)
	c := newContexts(t, dev, 1)[0]
	for _, s := range AllStages {
		if !c.List(s).Closed() {
			t.Errorf("%s list open after NewContext", s)
		}
	}
	if c.Heap().Cap() != 64 || !c.Heap().ShaderVisible() {
		t.Errorf("Heap() = %d slots visible=%v, want 64 visible", c.Heap().Cap(), c.Heap().ShaderVisible())
	}
	if !c.IsIdle() {
		t.Errorf("new context not idle")
	}
}

func TestResetAllocatorRefusesWhileInFlight(t *testing.T) {
	dev := openDevice(t)
	q, fence := stuckQueue(t, dev)
	c := newContexts(t, dev, 1)[0]

	if err := c.ResetAllocator(); err != nil {
		t.Fatalf("ResetAllocator() on fresh context error = %v", err)
	}
	if err := c.ResetList(StageMain); err != nil {
		t.Fatal(err)
	}
	v, err := c.Submit(q, StageMain)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if c.FenceValue() != v {
		t.Errorf("FenceValue() = %s, want %s", c.FenceValue(), v)
	}

	if err := c.ResetAllocator(); !errors.Is(err, ErrContextInFlight) {
		t.Fatalf("ResetAllocator() in flight error = %v, want ErrContextInFlight", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := c.WaitForFence(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("WaitForFence() error = %v, want DeadlineExceeded", err)
	}

	fence.Complete(uint64(v))
	if err := c.ResetAllocator(); err != nil {
		t.Errorf("ResetAllocator() after completion error = %v", err)
	}
}

func TestRingBeginBlocksOnStuckFence(t *testing.T) {
	dev := openDevice(t)
	q, fence := stuckQueue(t, dev)
	ring := NewRing(newContexts(t, dev, 1), nil)

	if _, err := ring.Begin(context.Background(), 0); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	v, err := ring.Submit(q)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := ring.Begin(context.Background(), 1)
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("Begin() returned %v before the fence completed", err)
	case <-time.After(30 * time.Millisecond):
	}

	fence.Complete(uint64(v))
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Begin() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Begin() did not return after the fence completed")
	}

	st := ring.Stats()
	if st.Frames != 2 || st.Stalls != 1 {
		t.Errorf("Stats() = %+v, want 2 frames and 1 stall", st)
	}
	if st.MaxStall < 20*time.Millisecond {
		t.Errorf("MaxStall = %v, want at least 20ms", st.MaxStall)
	}
}

func TestRingPipelinesFrames(t *testing.T) {
	dev := openDevice(t)
	q, err := queue.New(dev, gpucore.QueueDirect, "direct")
	if err != nil {
		t.Fatal(err)
	}
	ring := NewRing(newContexts(t, dev, DefaultFrameCount), nil)

	seen := make(map[*Context]queue.FenceValue)
	for frame := 0; frame < 9; frame++ {
		c, err := ring.Begin(context.Background(), frame)
		if err != nil {
			t.Fatalf("frame %d: Begin() error = %v", frame, err)
		}
		if prev, ok := seen[c]; ok && !q.IsFenceComplete(prev) {
			t.Fatalf("frame %d: context reused before %s completed", frame, prev)
		}
		v, err := ring.Submit(q)
		if err != nil {
			t.Fatalf("frame %d: Submit() error = %v", frame, err)
		}
		seen[c] = v
	}
	if len(seen) != DefaultFrameCount {
		t.Errorf("ring used %d contexts, want %d", len(seen), DefaultFrameCount)
	}
	if err := ring.WaitForIdle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := ring.Submit(q); !errors.Is(err, ErrNoFrame) {
		t.Errorf("Submit() without Begin error = %v, want ErrNoFrame", err)
	}
}

func TestRingReclaimsDescriptors(t *testing.T) {
	dev := openDevice(t)
	q, fence := stuckQueue(t, dev)
	pool := descriptor.NewPool(descriptor.NewHeap(gpucore.HeapCSU, 1, false, 32))
	ring := NewRing(newContexts(t, dev, 1), pool)

	if _, err := ring.Begin(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	d, _ := pool.Allocate()
	v, err := ring.Submit(q)
	if err != nil {
		t.Fatal(err)
	}
	d.MarkUsed(v)
	d.Release()
	if pool.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1", pool.Pending())
	}

	fence.Complete(uint64(v))
	if _, err := ring.Begin(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if pool.Pending() != 0 || pool.Available() != 1 {
		t.Errorf("after Begin: Pending() = %d, Available() = %d, want 0, 1", pool.Pending(), pool.Available())
	}
}

func TestRingRejectsNegativeFrameIndex(t *testing.T) {
	dev := openDevice(t)
	ring := NewRing(newContexts(t, dev, DefaultFrameCount), nil)
	if _, err := ring.Begin(context.Background(), -1); !errors.Is(err, ErrFrameIndex) {
		t.Errorf("Begin(-1) error = %v, want ErrFrameIndex", err)
	}
	if ring.Current() != nil {
		t.Error("Current() set after a rejected Begin")
	}
}

func TestSubmitMarksBoundDescriptors(t *testing.T) {
	dev := openDevice(t)
	q, fence := stuckQueue(t, dev)
	pool := descriptor.NewPool(descriptor.NewHeap(gpucore.HeapCSU, 1, false, 32))
	ring := NewRing(newContexts(t, dev, 1), pool)

	c, err := ring.Begin(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	d, _ := pool.Allocate()
	view, err := dev.CreateView(nil, &gpucore.ViewDesc{Kind: gpucore.ViewShaderResource, Format: gpucore.FormatRGBA8Unorm})
	if err != nil {
		t.Fatal(err)
	}
	d.SetView(view)
	c.Bind(3, d)
	if c.Heap().View(3) != view {
		t.Errorf("Bind did not copy the view into slot 3")
	}
	v, err := ring.Submit(q)
	if err != nil {
		t.Fatal(err)
	}

	d.Release()
	if n := pool.Reclaim(q.CompletedFenceValue()); n != 0 || pool.Pending() != 1 {
		t.Fatalf("slot reclaimed while %s in flight: freed %d, pending %d", v, n, pool.Pending())
	}

	fence.Complete(uint64(v))
	if _, err := ring.Begin(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if pool.Available() != 1 {
		t.Errorf("Available() = %d after the frame finished, want 1", pool.Available())
	}
	if _, err := ring.Submit(q); err != nil {
		t.Fatal(err)
	}
	if len(c.used) != 0 {
		t.Errorf("%d descriptors still recorded after Submit", len(c.used))
	}
}
