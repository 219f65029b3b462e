// Package gpucore defines the backend-neutral capability interfaces that the
// lib2d resource layer is written against.
//
// Every GPU API binding implements the same small set of interfaces:
// [Backend] enumerates [Adapter]s, an adapter opens a [Device], and the
// device creates queues, fences, command lists, buffers, textures and views.
// The synchronization core (package queue), the per-frame contexts (package
// frame) and the upload pipeline (package texture) only ever see these
// interfaces, so the same code runs on:
//   - gogpu/wgpu HAL (backend/native)
//   - the pure Go software GPU (backend/software), which also serves as the
//     test double for fences that complete late or never
//
// # Architecture
//
//	               +------------------+
//	               |      lib2d       |
//	               | Device, Loader,  |
//	               |  Ring, Queue     |
//	               +--------+---------+
//	                        |
//	               +--------v---------+
//	               |     gpucore      |
//	               | Fence, Queue,    |
//	               | CommandList ...  |
//	               +--------+---------+
//	                        |
//	         +--------------+--------------+
//	         |                             |
//	+--------v--------+          +--------v--------+
//	| backend/native  |          |backend/software |
//	|  (hal.Device)   |          |  (goroutine)    |
//	+--------+--------+          +-----------------+
//	         |
//	+--------v--------+
//	|   gogpu/wgpu    |
//	+-----------------+
//
// # Fences
//
// A [Fence] is the only CPU/GPU synchronization primitive. It exposes exactly
// three capabilities: Signal (queue-ordered, after all previously submitted
// work), Completed (non-blocking poll of the highest reached value) and Wait
// (block the calling goroutine until a value is reached). Fence values are
// never decremented.
//
// # Resource Lifetime
//
// Resources are exclusively owned by whoever created them and must be
// released with Destroy. Destroying a resource still referenced by submitted
// but unfinished work is undefined behavior; the layers above gpucore wait on
// fences before releasing anything.
package gpucore
