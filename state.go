package metalgs

import (
	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/metalgs/internal/mtl"
	"github.com/gogpu/metalgs/msl"
)

// maxTextureSlots is the number of fragment texture and sampler units the
// host may address.
const maxTextureSlots = 8

// Handle identifies a resource owned by the device. Zero means absent.
type Handle = uint32

// Rect is an integer pixel rectangle.
type Rect struct {
	X, Y          int
	Width, Height int
}

// StencilSide selects which stencil faces a setter configures.
type StencilSide uint8

const (
	StencilFront StencilSide = 1 << iota
	StencilBack

	StencilBoth = StencilFront | StencilBack
)

// deviceState is the mutable state block every setter writes and every
// draw reads. It persists across scenes; begin_scene only replaces the
// command buffer.
type deviceState struct {
	renderTarget Handle
	zstencil     Handle

	vertexBuffer   Handle
	indexBuffer    Handle
	vertexShader   Handle
	fragmentShader Handle

	textures [maxTextureSlots]Handle
	samplers [maxTextureSlots]Handle

	viewport       mtl.Viewport
	scissorEnabled bool
	scissor        mtl.ScissorRect
	cullMode       gputypes.CullMode

	blendEnabled   bool
	blend          mtl.BlendDescriptor
	colorWriteMask gputypes.ColorWriteMask

	depthTestEnabled  bool
	depthCompare      gputypes.CompareFunction
	depthWriteEnabled bool

	stencilTestEnabled  bool
	stencilWriteEnabled bool
	frontStencil        mtl.StencilDescriptor
	backStencil         mtl.StencilDescriptor

	projection f32.Mat4
}

// defaultDeviceState returns the explicit initial state applied at device
// creation. Fields not set here keep their zero values (depth and
// stencil tests off, scissor off, nothing bound); the host relies on
// these exact defaults between scenes.
func defaultDeviceState() deviceState {
	stencil := mtl.StencilDescriptor{
		Compare:     gputypes.CompareFunctionAlways,
		FailOp:      gputypes.StencilOperationKeep,
		DepthFailOp: gputypes.StencilOperationKeep,
		PassOp:      gputypes.StencilOperationKeep,
		ReadMask:    0xFFFFFFFF,
		WriteMask:   0xFFFFFFFF,
	}
	return deviceState{
		cullMode: gputypes.CullModeBack,

		blendEnabled: true,
		blend: mtl.BlendDescriptor{
			SrcRGB:   gputypes.BlendFactorSrcAlpha,
			DstRGB:   gputypes.BlendFactorOneMinusSrcAlpha,
			SrcAlpha: gputypes.BlendFactorSrcAlpha,
			DstAlpha: gputypes.BlendFactorOneMinusSrcAlpha,
			OpRGB:    gputypes.BlendOperationAdd,
			OpAlpha:  gputypes.BlendOperationAdd,
		},
		colorWriteMask: gputypes.ColorWriteMaskAll,

		depthCompare:      gputypes.CompareFunctionLessEqual,
		depthWriteEnabled: true,

		frontStencil: stencil,
		backStencil:  stencil,

		projection: identityMat4,
	}
}

// SetBlendFunction sets one source and destination factor pair for both
// the color and alpha channels.
func (d *Device) SetBlendFunction(src, dst gputypes.BlendFactor) {
	d.SetBlendFunctionSeparate(src, dst, src, dst)
}

// SetBlendFunctionSeparate sets independent color and alpha blend
// factors.
func (d *Device) SetBlendFunctionSeparate(srcColor, dstColor, srcAlpha, dstAlpha gputypes.BlendFactor) {
	d.state.blend.SrcRGB = srcColor
	d.state.blend.DstRGB = dstColor
	d.state.blend.SrcAlpha = srcAlpha
	d.state.blend.DstAlpha = dstAlpha
}

// SetBlendOp sets the blend operation for both channels.
func (d *Device) SetBlendOp(op gputypes.BlendOperation) {
	d.state.blend.OpRGB = op
	d.state.blend.OpAlpha = op
}

// EnableBlending toggles color-attachment blending.
func (d *Device) EnableBlending(enable bool) { d.state.blendEnabled = enable }

// EnableColor sets the per-channel color write mask.
func (d *Device) EnableColor(red, green, blue, alpha bool) {
	var mask gputypes.ColorWriteMask
	if red {
		mask |= gputypes.ColorWriteMaskRed
	}
	if green {
		mask |= gputypes.ColorWriteMaskGreen
	}
	if blue {
		mask |= gputypes.ColorWriteMaskBlue
	}
	if alpha {
		mask |= gputypes.ColorWriteMaskAlpha
	}
	d.state.colorWriteMask = mask
}

// EnableDepthTest toggles the depth test.
func (d *Device) EnableDepthTest(enable bool) { d.state.depthTestEnabled = enable }

// EnableDepthWrite toggles depth writes.
func (d *Device) EnableDepthWrite(enable bool) { d.state.depthWriteEnabled = enable }

// SetDepthFunction sets the depth compare function.
func (d *Device) SetDepthFunction(fn gputypes.CompareFunction) { d.state.depthCompare = fn }

// EnableStencilTest toggles the stencil test.
func (d *Device) EnableStencilTest(enable bool) { d.state.stencilTestEnabled = enable }

// EnableStencilWrite toggles stencil writes. Disabling zeroes the write
// masks; enabling restores full masks.
func (d *Device) EnableStencilWrite(enable bool) {
	d.state.stencilWriteEnabled = enable
	mask := uint32(0)
	if enable {
		mask = 0xFFFFFFFF
	}
	d.state.frontStencil.WriteMask = mask
	d.state.backStencil.WriteMask = mask
}

// SetStencilFunction sets the stencil compare function for the selected
// faces.
func (d *Device) SetStencilFunction(side StencilSide, fn gputypes.CompareFunction) {
	if side&StencilFront != 0 {
		d.state.frontStencil.Compare = fn
	}
	if side&StencilBack != 0 {
		d.state.backStencil.Compare = fn
	}
}

// SetStencilOp sets the stencil operations for the selected faces.
func (d *Device) SetStencilOp(side StencilSide, fail, depthFail, pass gputypes.StencilOperation) {
	if side&StencilFront != 0 {
		d.state.frontStencil.FailOp = fail
		d.state.frontStencil.DepthFailOp = depthFail
		d.state.frontStencil.PassOp = pass
	}
	if side&StencilBack != 0 {
		d.state.backStencil.FailOp = fail
		d.state.backStencil.DepthFailOp = depthFail
		d.state.backStencil.PassOp = pass
	}
}

// SetCullMode sets the face culling mode.
func (d *Device) SetCullMode(mode gputypes.CullMode) { d.state.cullMode = mode }

// CullMode returns the current face culling mode.
func (d *Device) CullMode() gputypes.CullMode { return d.state.cullMode }

// SetViewport sets the viewport in pixels. Depth always spans [0, 1].
func (d *Device) SetViewport(x, y, width, height int) {
	d.state.viewport = mtl.Viewport{
		OriginX: float64(x),
		OriginY: float64(y),
		Width:   float64(width),
		Height:  float64(height),
		ZNear:   0,
		ZFar:    1,
	}
}

// Viewport returns the current viewport in pixels.
func (d *Device) Viewport() (x, y, width, height int) {
	vp := d.state.viewport
	return int(vp.OriginX), int(vp.OriginY), int(vp.Width), int(vp.Height)
}

// SetScissorRect sets the scissor rectangle. A nil rect disables
// scissoring.
func (d *Device) SetScissorRect(r *Rect) {
	if r == nil {
		d.state.scissorEnabled = false
		return
	}
	d.state.scissorEnabled = true
	d.state.scissor = mtl.ScissorRect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

// SetRenderTarget binds a color render target and a depth-stencil
// attachment. Handle zero resets the corresponding slot; a zero color
// target also resets the depth-stencil slot.
func (d *Device) SetRenderTarget(tex, zstencil Handle) {
	if tex == 0 {
		d.state.renderTarget = 0
		d.state.zstencil = 0
		return
	}
	if _, ok := d.textures.Lookup(tex); !ok {
		Logger().Warn("metalgs: set_render_target with invalid texture", "handle", tex)
		return
	}
	d.state.renderTarget = tex
	if zstencil != 0 {
		if _, ok := d.zstencils.Lookup(zstencil); !ok {
			Logger().Warn("metalgs: set_render_target with invalid zstencil", "handle", zstencil)
			zstencil = 0
		}
	}
	d.state.zstencil = zstencil
}

// RenderTarget returns the bound color render target handle.
func (d *Device) RenderTarget() Handle { return d.state.renderTarget }

// ZStencilTarget returns the bound depth-stencil attachment handle.
func (d *Device) ZStencilTarget() Handle { return d.state.zstencil }

// LoadVertexBuffer binds a vertex buffer for subsequent draws. Zero
// unbinds.
func (d *Device) LoadVertexBuffer(h Handle) {
	if h != 0 {
		if _, ok := d.vertexBuffers.Lookup(h); !ok {
			Logger().Warn("metalgs: load_vertexbuffer with invalid handle", "handle", h)
			return
		}
	}
	d.state.vertexBuffer = h
}

// LoadIndexBuffer binds an index buffer for subsequent draws. Zero
// unbinds.
func (d *Device) LoadIndexBuffer(h Handle) {
	if h != 0 {
		if _, ok := d.indexBuffers.Lookup(h); !ok {
			Logger().Warn("metalgs: load_indexbuffer with invalid handle", "handle", h)
			return
		}
	}
	d.state.indexBuffer = h
}

// LoadVertexShader binds the vertex shader. Zero unbinds.
func (d *Device) LoadVertexShader(h Handle) {
	if h != 0 {
		s, ok := d.shaders.Lookup(h)
		if !ok || s.kind != msl.VertexShader {
			Logger().Warn("metalgs: load_vertexshader with invalid handle", "handle", h)
			return
		}
	}
	d.state.vertexShader = h
}

// LoadPixelShader binds the fragment shader and resets the texture and
// sampler units it no longer covers. Zero unbinds.
func (d *Device) LoadPixelShader(h Handle) {
	if h == 0 {
		d.state.fragmentShader = 0
		return
	}
	s, ok := d.shaders.Lookup(h)
	if !ok || s.kind != msl.FragmentShader {
		Logger().Warn("metalgs: load_pixelshader with invalid handle", "handle", h)
		return
	}
	d.state.fragmentShader = h
	for i := s.textureCount; i < maxTextureSlots; i++ {
		d.state.textures[i] = 0
	}
}

// LoadTexture binds a texture to a fragment texture unit. Zero unbinds.
func (d *Device) LoadTexture(h Handle, unit int) {
	if unit < 0 || unit >= maxTextureSlots {
		Logger().Warn("metalgs: load_texture unit out of range", "unit", unit)
		return
	}
	if h != 0 {
		if _, ok := d.textures.Lookup(h); !ok {
			Logger().Warn("metalgs: load_texture with invalid handle", "handle", h)
			return
		}
	}
	d.state.textures[unit] = h
}

// LoadSamplerState binds a sampler state to a fragment sampler unit.
// Zero unbinds.
func (d *Device) LoadSamplerState(h Handle, unit int) {
	if unit < 0 || unit >= maxTextureSlots {
		Logger().Warn("metalgs: load_samplerstate unit out of range", "unit", unit)
		return
	}
	if h != 0 {
		if _, ok := d.samplerStates.Lookup(h); !ok {
			Logger().Warn("metalgs: load_samplerstate with invalid handle", "handle", h)
			return
		}
	}
	d.state.samplers[unit] = h
}
