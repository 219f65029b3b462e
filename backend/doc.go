// Package backend is the registry of GPU backends.
//
// Backend packages register themselves from init(), so importing a backend
// for side effects makes it selectable by name:
//
//	import _ "github.com/gogpu/lib2d/backend/software"
//
//	b, err := backend.Get(backend.BackendSoftware)
//
// Default prefers the native HAL backend and falls back to the software GPU.
package backend
