// Package lib2d is a GPU resource and command-submission layer for 2D
// renderers.
//
// # Overview
//
// lib2d sits between an application's sprite, text and pipeline-state
// renderers and a graphics accelerator. It owns the device, hands out
// descriptor slots, uploads textures through staging buffers and keeps a
// small ring of per-frame command contexts in flight against a single GPU
// timeline.
//
// # Quick Start
//
//	import (
//		"github.com/gogpu/lib2d"
//		"github.com/gogpu/lib2d/backend/software"
//	)
//
//	dev := lib2d.New(software.New())
//	res, err := dev.Initialize(1 << 30)
//	if res == lib2d.ResultMemoryReservationFailed {
//		log.Fatal("insufficient GPU memory")
//	}
//	defer dev.Destroy()
//
//	tex, err := dev.LoadTexture("sprites.png")
//
// # Frames
//
// Each frame records into one of Frames().Len() contexts. Begin waits for
// the fence value the context was last submitted under before resetting its
// allocator, so the CPU can run at most that many frames ahead of the GPU:
//
//	c, err := dev.Frames().Begin(ctx, n)
//	list := c.List(frame.StageMain)
//	// record ...
//	_, err = dev.Frames().Submit(direct)
//
// # Descriptors
//
// Shader-visible resource slots come from a central heap of WithCSUCapacity
// entries. A released descriptor that was marked as used by submitted work
// is only reused after that work's fence value has been reached.
//
// # Backends
//
// The device is written against the interfaces in package gpucore. Two
// implementations ship with lib2d:
//   - backend/native: gogpu/wgpu HAL (Vulkan, Metal, DX12, GLES)
//   - backend/software: a pure Go GPU emulation used headless and in tests
//
// # Logging
//
// lib2d is silent by default. SetLogger enables structured logging for the
// device and every sub-package.
package lib2d
