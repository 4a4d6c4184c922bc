package metalgs

import "errors"

// Errors returned by the device. Contract violations (a draw with no
// vertex buffer bound, a copy into an undersized destination, a dynamic
// flush against a static buffer) indicate host bugs; the hostapi layer
// logs them at Error level and returns a degenerate value, and does not
// abort the process. Invalid handles are soft failures that the device
// logs and absorbs.
var (
	// ErrInvalidHandle marks a lookup of an unknown or released handle.
	ErrInvalidHandle = errors.New("metalgs: invalid handle")

	// ErrNoCommandBuffer marks an operation that needs an active scene.
	ErrNoCommandBuffer = errors.New("metalgs: no active command buffer")

	// ErrNoVertexBuffer marks a draw with no vertex buffer bound.
	ErrNoVertexBuffer = errors.New("metalgs: no vertex buffer bound")

	// ErrNoShader marks a draw with a missing vertex or fragment shader.
	ErrNoShader = errors.New("metalgs: no shader bound")

	// ErrMissingStream marks a vertex buffer that lacks a stream the
	// bound vertex shader consumes.
	ErrMissingStream = errors.New("metalgs: vertex buffer missing stream")

	// ErrNotDynamic marks a flush against a static buffer.
	ErrNotDynamic = errors.New("metalgs: buffer is not dynamic")

	// ErrCopyBounds marks a texture copy whose destination cannot hold
	// the source region.
	ErrCopyBounds = errors.New("metalgs: copy destination too small")

	// ErrFormatMismatch marks a texture copy between incompatible pixel
	// formats.
	ErrFormatMismatch = errors.New("metalgs: pixel format mismatch")

	// ErrPipeline marks a render pipeline that failed to compile. The
	// descriptor is structurally invalid and the host has no recovery
	// path.
	ErrPipeline = errors.New("metalgs: pipeline compilation failed")

	// ErrUnsupportedFormat marks a host color format with no Metal
	// counterpart.
	ErrUnsupportedFormat = errors.New("metalgs: unsupported color format")
)
