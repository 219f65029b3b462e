// Package pipeline builds graphics pipeline state objects from WGSL shader
// files.
//
// Shaders are compiled to SPIR-V with naga and kept in an explicit
// [ShaderCache] that callers own and pass to a [Factory]. Clearing or
// invalidating the cache forces recompilation, and [ShaderCache.Watch]
// invalidates entries automatically when their files change on disk.
package pipeline
