// Package frame pipelines CPU recording against GPU execution.
//
// Each of the N in-flight frames owns a [Context]: one command allocator, one
// list per [Stage] and a small shader-visible descriptor table. A context is
// reused only after the fence value of its previous submission is reached,
// which bounds the CPU to at most N frames ahead of the GPU. [Ring] drives
// the per-frame sequence:
//
//	c, err := ring.Begin(ctx, frame) // wait, reset allocator, reset lists
//	c.List(frame.StageMain)...       // record
//	v, err := ring.Submit(q)         // close, execute, remember v
package frame
