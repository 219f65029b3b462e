// Package queue implements the fence timeline and the command queue that
// order CPU submissions against GPU completion.
//
// Every submission is tagged with a [FenceValue]. Values strictly increase
// per queue and are never reused; waiting for a value implies every value
// submitted before it on the same queue has also completed.
//
// The queue keeps a cached completed value so that waiting on work the GPU
// has already finished never touches the fence object:
//
//	v, err := q.ExecuteCommandLists(list)
//	...
//	q.WaitForFence(v) // blocks only if the GPU is still behind
package queue
