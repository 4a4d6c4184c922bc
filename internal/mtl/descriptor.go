package mtl

import "github.com/gogpu/gputypes"

// StorageMode selects where a resource's memory lives, following
// MTLStorageMode.
type StorageMode uint8

const (
	// StorageShared places the resource in memory visible to both CPU and
	// GPU. Transient pool buffers and IOSurface-backed textures use it.
	StorageShared StorageMode = iota

	// StorageManaged keeps a CPU copy synchronized explicitly with the GPU
	// copy. Stage surfaces, sampled textures and static vertex and index
	// buffers use it.
	StorageManaged

	// StoragePrivate is GPU-only memory. Render-target textures and
	// depth-stencil attachments use it; static buffers are not moved
	// into it after their upload.
	StoragePrivate
)

// TextureKind distinguishes the texture shapes the backend supports.
type TextureKind uint8

const (
	Texture2D TextureKind = iota
	TextureCube
)

// Region is a 2D texel rectangle within one mip level.
type Region struct {
	X, Y          int
	Width, Height int
}

// Viewport follows MTLViewport.
type Viewport struct {
	OriginX, OriginY float64
	Width, Height    float64
	ZNear, ZFar      float64
}

// ScissorRect follows MTLScissorRect.
type ScissorRect struct {
	X, Y          int
	Width, Height int
}

// TextureDescriptor describes a texture to create.
type TextureDescriptor struct {
	Kind      TextureKind
	Width     int
	Height    int
	Format    PixelFormat
	MipLevels int

	// Usage combines gputypes.TextureUsage flags; every texture is at
	// least TextureUsageTextureBinding, render targets additionally carry
	// TextureUsageRenderAttachment.
	Usage gputypes.TextureUsage

	Storage StorageMode
}

// SamplerAddressMode follows MTLSamplerAddressMode. WebGPU has no
// border-color addressing, so this is a local type.
type SamplerAddressMode uint8

const (
	AddressClampToEdge SamplerAddressMode = iota
	AddressRepeat
	AddressMirrorRepeat
	AddressClampToZero
	AddressClampToBorderColor
)

// SamplerBorderColor follows MTLSamplerBorderColor.
type SamplerBorderColor uint8

const (
	BorderTransparentBlack SamplerBorderColor = iota
	BorderOpaqueBlack
	BorderOpaqueWhite
)

// MipFilter follows MTLSamplerMipFilter; WebGPU cannot express
// notMipmapped.
type MipFilter uint8

const (
	MipFilterNotMipmapped MipFilter = iota
	MipFilterNearest
	MipFilterLinear
)

// FilterMode selects min/mag filtering.
type FilterMode uint8

const (
	FilterNearest FilterMode = iota
	FilterLinear
)

// SamplerDescriptor describes an immutable sampler state.
type SamplerDescriptor struct {
	AddressU, AddressV, AddressW SamplerAddressMode
	MinFilter, MagFilter         FilterMode
	MipFilter                    MipFilter
	MaxAnisotropy                int
	BorderColor                  SamplerBorderColor
}

// StencilDescriptor configures one stencil face.
type StencilDescriptor struct {
	Compare          gputypes.CompareFunction
	FailOp           gputypes.StencilOperation
	DepthFailOp      gputypes.StencilOperation
	PassOp           gputypes.StencilOperation
	ReadMask         uint32
	WriteMask        uint32
}

// DepthStencilDescriptor configures the depth/stencil stage of a draw.
type DepthStencilDescriptor struct {
	DepthCompare      gputypes.CompareFunction
	DepthWriteEnabled bool

	// StencilEnabled gates both faces; when false the stencil descriptors
	// are ignored.
	StencilEnabled bool
	FrontStencil   StencilDescriptor
	BackStencil    StencilDescriptor
}

// BlendDescriptor configures color-attachment blending. A nil
// *BlendDescriptor in the pipeline descriptor disables blending.
type BlendDescriptor struct {
	SrcRGB, DstRGB     gputypes.BlendFactor
	SrcAlpha, DstAlpha gputypes.BlendFactor
	OpRGB, OpAlpha     gputypes.BlendOperation
}

// RenderPipelineDescriptor mirrors MTLRenderPipelineDescriptor restricted
// to one color attachment, as the host API exposes a single render target.
type RenderPipelineDescriptor struct {
	VertexFunction   Function
	FragmentFunction Function

	// VertexLayouts holds one layout per vertex stream, each carrying a
	// single attribute whose ShaderLocation is the attribute index.
	VertexLayouts []gputypes.VertexBufferLayout

	ColorFormat PixelFormat
	Blend       *BlendDescriptor
	WriteMask   gputypes.ColorWriteMask

	DepthFormat   PixelFormat
	StencilFormat PixelFormat
}

// RenderPassColorAttachment binds one color target with its load/store
// behavior.
type RenderPassColorAttachment struct {
	Texture    Texture
	LoadOp     gputypes.LoadOp
	StoreOp    gputypes.StoreOp
	ClearColor gputypes.Color
}

// RenderPassDepthAttachment binds the depth aspect.
type RenderPassDepthAttachment struct {
	Texture    Texture
	LoadOp     gputypes.LoadOp
	StoreOp    gputypes.StoreOp
	ClearDepth float64
}

// RenderPassStencilAttachment binds the stencil aspect.
type RenderPassStencilAttachment struct {
	Texture      Texture
	LoadOp       gputypes.LoadOp
	StoreOp      gputypes.StoreOp
	ClearStencil uint32
}

// RenderPassDescriptor describes one render command encoder. Nil
// attachments are absent.
type RenderPassDescriptor struct {
	Color   *RenderPassColorAttachment
	Depth   *RenderPassDepthAttachment
	Stencil *RenderPassStencilAttachment
}
