// Package native implements the gpucore interfaces on the gogpu/wgpu HAL.
//
// The backend registers itself as "native" when the HAL reports a Vulkan
// backend. Tests construct it over the HAL noop API with NewWithAPI.
//
// # Queues
//
// The HAL exposes a single queue per device. Every gpucore queue created on a
// Device shares it, so work submitted on the copy queue and the direct queue
// executes in one stream. Fences keep the per-queue contract: Signal is
// submitted on the shared queue after all previously submitted work.
//
// # Descriptors
//
// WebGPU binds resources through bind groups rather than descriptor heaps.
// The stride reported by DescriptorStride only spaces the opaque handles the
// descriptor package hands out.
package native
