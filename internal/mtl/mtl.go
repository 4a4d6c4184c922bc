// Package mtl defines the narrow seam between the graphics backend and the
// underlying Metal driver.
//
// The backend never talks to Metal directly; it drives these interfaces,
// which a platform layer implements on top of the real device, command
// queue, encoders and CAMetalLayer. The mtltest subpackage provides an
// in-memory implementation that records every call, which is what the
// package tests run against.
//
// Descriptor structs reuse the WebGPU-shaped enums from
// github.com/gogpu/gputypes wherever Metal and WebGPU agree (load/store
// actions, compare functions, blend factors, cull modes). Concepts WebGPU
// cannot express — Metal pixel formats, storage modes, border-color
// sampler addressing — are local types.
package mtl

import "github.com/gogpu/gputypes"

// Device is the subset of MTLDevice the backend needs.
type Device interface {
	// Name returns the driver-reported device name.
	Name() string

	NewCommandQueue() CommandQueue

	// NewBuffer allocates a linear buffer of the given length.
	// writeCombined selects the write-combined CPU cache mode; it is
	// meaningful only for shared and managed storage.
	NewBuffer(length int, storage StorageMode, writeCombined bool) (Buffer, error)

	// NewBufferWithBytes allocates a buffer initialized with data.
	NewBufferWithBytes(data []byte, storage StorageMode) (Buffer, error)

	NewTexture(desc TextureDescriptor) (Texture, error)

	// NewTextureFromIOSurface wraps an externally owned surface. The
	// texture aliases the surface memory; the caller retains the surface.
	NewTextureFromIOSurface(surface IOSurface, desc TextureDescriptor) (Texture, error)

	NewSamplerState(desc SamplerDescriptor) (SamplerState, error)

	NewDepthStencilState(desc DepthStencilDescriptor) DepthStencilState

	// NewLibrary compiles MSL source into a shader library.
	NewLibrary(source string) (Library, error)

	NewRenderPipelineState(desc RenderPipelineDescriptor) (RenderPipelineState, error)

	// NewLayer creates a drawable-backed layer bound to a windowing-system
	// view. The view handle is opaque to the backend.
	NewLayer(view uintptr, width, height int, format PixelFormat) (Layer, error)
}

// CommandQueue mirrors MTLCommandQueue.
type CommandQueue interface {
	CommandBuffer() CommandBuffer
}

// CommandBuffer mirrors MTLCommandBuffer. A command buffer is recorded on
// the graphics thread and committed once; completion handlers may fire on
// an arbitrary driver thread.
type CommandBuffer interface {
	RenderCommandEncoder(desc RenderPassDescriptor) RenderCommandEncoder
	BlitCommandEncoder() BlitCommandEncoder

	// PresentDrawable schedules the drawable for presentation when the
	// command buffer completes.
	PresentDrawable(d Drawable)

	// AddCompletedHandler registers fn to run after the GPU finishes the
	// buffer. fn runs on a driver thread.
	AddCompletedHandler(fn func())

	Commit()
	WaitUntilCompleted()
}

// RenderCommandEncoder mirrors MTLRenderCommandEncoder scoped to a single
// render pass.
type RenderCommandEncoder interface {
	SetRenderPipelineState(ps RenderPipelineState)
	SetViewport(vp Viewport)
	SetFrontFacingWinding(w gputypes.FrontFace)
	SetCullMode(m gputypes.CullMode)
	SetScissorRect(r ScissorRect)
	SetDepthStencilState(ds DepthStencilState)
	SetStencilReference(ref uint32)

	SetVertexBuffer(buf Buffer, offset, index int)
	SetVertexBytes(data []byte, index int)
	SetFragmentBuffer(buf Buffer, offset, index int)
	SetFragmentBytes(data []byte, index int)
	SetFragmentTexture(tex Texture, index int)
	SetFragmentSamplerState(s SamplerState, index int)

	DrawPrimitives(prim gputypes.PrimitiveTopology, vertexStart, vertexCount int)
	DrawIndexedPrimitives(prim gputypes.PrimitiveTopology, indexCount int, format gputypes.IndexFormat, indexBuffer Buffer, indexOffset int)

	EndEncoding()
}

// BlitCommandEncoder mirrors MTLBlitCommandEncoder.
type BlitCommandEncoder interface {
	CopyTexture(src Texture, srcSlice, srcLevel int, srcOrigin gputypes.Origin3D,
		size gputypes.Extent3D,
		dst Texture, dstSlice, dstLevel int, dstOrigin gputypes.Origin3D)
	GenerateMipmaps(tex Texture)

	// Synchronize flushes GPU writes to a managed resource back to its
	// CPU-visible copy.
	Synchronize(tex Texture)

	EndEncoding()
}

// Buffer mirrors MTLBuffer. Contents exposes the CPU-visible backing
// store; it is valid only for shared and managed storage.
type Buffer interface {
	Contents() []byte
	Length() int

	// DidModifyRange notifies the driver that [offset, offset+length) of a
	// managed buffer was written by the CPU.
	DidModifyRange(offset, length int)
}

// Texture mirrors MTLTexture.
type Texture interface {
	Kind() TextureKind
	Width() int
	Height() int
	PixelFormat() PixelFormat
	MipLevelCount() int

	// ReplaceRegion uploads data into one mip level of one slice.
	ReplaceRegion(region Region, level, slice int, data []byte, bytesPerRow int)

	// GetBytes downloads one mip level of slice 0 into dst.
	GetBytes(dst []byte, bytesPerRow int, region Region, level int)
}

// SamplerState mirrors MTLSamplerState. Immutable after creation.
type SamplerState interface {
	MaxAnisotropy() int
}

// DepthStencilState mirrors MTLDepthStencilState. Immutable after creation.
type DepthStencilState interface{}

// Library mirrors MTLLibrary.
type Library interface {
	// Function returns the named entry point.
	Function(name string) (Function, error)
}

// Function mirrors MTLFunction.
type Function interface {
	Name() string
}

// RenderPipelineState mirrors MTLRenderPipelineState. Immutable; compiled
// once per distinct descriptor and cached by the backend.
type RenderPipelineState interface{}

// Drawable mirrors CAMetalDrawable.
type Drawable interface {
	Texture() Texture
}

// Layer mirrors CAMetalLayer.
type Layer interface {
	// NextDrawable acquires the next drawable. It may block at display
	// refresh and may fail transiently.
	NextDrawable() (Drawable, error)

	SetDrawableSize(width, height int)
	DrawableSize() (width, height int)
	PixelFormat() PixelFormat
}

// IOSurface is the backend's view of an externally owned IOSurfaceRef.
type IOSurface interface {
	ID() uint32
	Width() int
	Height() int

	// FourCC returns the surface pixel format code ('BGRA', 'l10r', ...).
	FourCC() uint32
}
