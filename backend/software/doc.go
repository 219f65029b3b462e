// Package software is a pure Go GPU that implements the gpucore interfaces.
//
// Each queue runs submitted command lists on its own goroutine, so fence
// completion is genuinely asynchronous with respect to the recording
// goroutine. Texture and buffer contents live in ordinary byte slices and can
// be read back with ReadTexture, which makes the backend suitable both as a
// headless renderer and as a test double.
//
// The backend validates what a real driver would silently corrupt: resetting
// a command allocator whose lists are still executing, copying into a
// texture that is not in the copy destination state, and transitions whose
// before state does not match. Validation failures are returned where the
// API allows it and collected in Device.ValidationErrors otherwise.
//
// Queues can be paused to model a GPU that never reaches a fence value.
package software
