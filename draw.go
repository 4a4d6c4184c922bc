package metalgs

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/metalgs/internal/mtl"
	"github.com/gogpu/metalgs/msl"
)

// DrawMode selects the primitive topology of a draw.
type DrawMode uint8

const (
	DrawPoints DrawMode = iota
	DrawLines
	DrawLineStrip
	DrawTriangles
	DrawTriangleStrip
)

func (m DrawMode) topology() gputypes.PrimitiveTopology {
	switch m {
	case DrawPoints:
		return gputypes.PrimitiveTopologyPointList
	case DrawLines:
		return gputypes.PrimitiveTopologyLineList
	case DrawLineStrip:
		return gputypes.PrimitiveTopologyLineStrip
	case DrawTriangleStrip:
		return gputypes.PrimitiveTopologyTriangleStrip
	default:
		return gputypes.PrimitiveTopologyTriangleList
	}
}

// ClearFlags selects which aspects a clear touches. Any nonzero bit
// counts; combined flags clear every named aspect.
type ClearFlags uint8

const (
	ClearColor ClearFlags = 1 << iota
	ClearDepth
	ClearStencil
)

// pendingClear is a deferred clear recorded against a render target.
// It becomes the load action of the next render pass drawn to that
// target.
type pendingClear struct {
	target  Handle
	flags   ClearFlags
	color   gputypes.Color
	depth   float64
	stencil uint32
}

// Clear records a clear against the current render target. No GPU work
// happens until the next draw (or present) to that target.
func (d *Device) Clear(flags ClearFlags, color gputypes.Color, depth float64, stencil uint32) {
	d.pendingClears = append(d.pendingClears, pendingClear{
		target:  d.state.renderTarget,
		flags:   flags,
		color:   color,
		depth:   depth,
		stencil: stencil,
	})
}

// maxInlineUniformBytes is Metal's setBytes limit; larger blocks go
// through the transient pool.
const maxInlineUniformBytes = 4096

// uniformBufferIndex is the buffer binding the transpiler reserves for
// the uniform block, above the vertex stream bindings.
const uniformBufferIndex = 30

// renderTargets resolves the bound attachments into driver textures and
// their pixel formats.
func (d *Device) renderTargets() (color mtl.Texture, colorFormat mtl.PixelFormat, depth mtl.Texture, depthFormat, stencilFormat mtl.PixelFormat, err error) {
	t, ok := d.textures.Lookup(d.state.renderTarget)
	if !ok {
		return nil, 0, nil, 0, 0, fmt.Errorf("render target %d: %w", d.state.renderTarget, ErrInvalidHandle)
	}
	color = t.tex
	colorFormat = t.format.PixelFormat()

	if d.state.zstencil != 0 {
		zb, ok := d.zstencils.Lookup(d.state.zstencil)
		if !ok {
			return nil, 0, nil, 0, 0, fmt.Errorf("zstencil %d: %w", d.state.zstencil, ErrInvalidHandle)
		}
		depth = zb.tex
		pf := zb.format.PixelFormat()
		depthFormat = pf
		if pf.HasStencil() {
			stencilFormat = pf
		}
	}
	return color, colorFormat, depth, depthFormat, stencilFormat, nil
}

// passDescriptor builds the render pass for the current attachments.
// If the head of the pending-clear FIFO names the current render
// target it is consumed and becomes the pass's clear load actions;
// otherwise the pass loads existing contents. Clears recorded against
// other targets stay queued in order.
func (d *Device) passDescriptor(color mtl.Texture, depth mtl.Texture, stencilFormat mtl.PixelFormat) mtl.RenderPassDescriptor {
	desc := mtl.RenderPassDescriptor{
		Color: &mtl.RenderPassColorAttachment{
			Texture: color,
			LoadOp:  gputypes.LoadOpLoad,
			StoreOp: gputypes.StoreOpStore,
		},
	}
	if depth != nil {
		desc.Depth = &mtl.RenderPassDepthAttachment{
			Texture: depth,
			LoadOp:  gputypes.LoadOpLoad,
			StoreOp: gputypes.StoreOpStore,
		}
		if stencilFormat != mtl.PixelFormatInvalid {
			desc.Stencil = &mtl.RenderPassStencilAttachment{
				Texture: depth,
				LoadOp:  gputypes.LoadOpLoad,
				StoreOp: gputypes.StoreOpStore,
			}
		}
	}

	if len(d.pendingClears) > 0 && d.pendingClears[0].target == d.state.renderTarget {
		pc := d.pendingClears[0]
		d.pendingClears = d.pendingClears[1:]
		if pc.flags&ClearColor != 0 {
			desc.Color.LoadOp = gputypes.LoadOpClear
			desc.Color.ClearColor = pc.color
		}
		if pc.flags&ClearDepth != 0 && desc.Depth != nil {
			desc.Depth.LoadOp = gputypes.LoadOpClear
			desc.Depth.ClearDepth = pc.depth
		}
		if pc.flags&ClearStencil != 0 && desc.Stencil != nil {
			desc.Stencil.LoadOp = gputypes.LoadOpClear
			desc.Stencil.ClearStencil = pc.stencil
		}
	}
	return desc
}

// flushPendingClear realizes a queued clear as an empty render pass.
// Present uses it when a frame draws nothing.
func (d *Device) flushPendingClear() {
	color, _, depth, _, stencilFormat, err := d.renderTargets()
	if err != nil {
		Logger().Warn("metalgs: clear with no render target")
		return
	}
	desc := d.passDescriptor(color, depth, stencilFormat)
	enc := d.cmdBuffer.RenderCommandEncoder(desc)
	enc.EndEncoding()
}

func (d *Device) depthStencilDescriptor() mtl.DepthStencilDescriptor {
	desc := mtl.DepthStencilDescriptor{
		DepthCompare: gputypes.CompareFunctionAlways,
	}
	if d.state.depthTestEnabled {
		desc.DepthCompare = d.state.depthCompare
		desc.DepthWriteEnabled = d.state.depthWriteEnabled
	}
	if d.state.stencilTestEnabled {
		desc.StencilEnabled = true
		desc.FrontStencil = d.state.frontStencil
		desc.BackStencil = d.state.backStencil
	}
	return desc
}

// bindUniforms packs a shader's dirty parameters and uploads the block
// to the given stage. Blocks under the inline limit ride in the command
// stream; larger ones borrow a transient buffer.
func (d *Device) bindUniforms(enc mtl.RenderCommandEncoder, s *Shader) error {
	s.writeDirtyParams()
	if s.blockSize == 0 {
		return nil
	}
	if s.blockSize < maxInlineUniformBytes {
		if s.kind == msl.VertexShader {
			enc.SetVertexBytes(s.scratch, uniformBufferIndex)
		} else {
			enc.SetFragmentBytes(s.scratch, uniformBufferIndex)
		}
		return nil
	}
	buf, err := d.pool.BufferForSize(s.blockSize)
	if err != nil {
		return fmt.Errorf("uniform block: %w", err)
	}
	copy(buf.Contents(), s.scratch)
	buf.DidModifyRange(0, s.blockSize)
	if s.kind == msl.VertexShader {
		enc.SetVertexBuffer(buf, 0, uniformBufferIndex)
	} else {
		enc.SetFragmentBuffer(buf, 0, uniformBufferIndex)
	}
	return nil
}

// bindShaderTextures binds a fragment shader's texture uniforms and
// their per-uniform samplers.
func (d *Device) bindShaderTextures(enc mtl.RenderCommandEncoder, s *Shader) {
	for _, p := range s.params {
		if p.Type != msl.ParamTexture || p.textureSlot < 0 {
			continue
		}
		if t, ok := d.textures.Lookup(p.texture); ok {
			enc.SetFragmentTexture(t.tex, p.textureSlot)
		}
		if p.nextSampler != 0 {
			if ss, ok := d.samplerStates.Lookup(p.nextSampler); ok {
				enc.SetFragmentSamplerState(ss.state, p.textureSlot)
			}
		}
	}
}

// Draw encodes one draw call with the current device state. With an
// index buffer bound the draw is indexed and count zero means the whole
// buffer; otherwise start and count address raw vertices.
func (d *Device) Draw(mode DrawMode, start, count int) error {
	// A draw outside a scene is tolerated; some host call orders probe
	// state before the first begin_scene.
	if d.cmdBuffer == nil {
		return nil
	}

	vb, ok := d.vertexBuffers.Lookup(d.state.vertexBuffer)
	if !ok {
		return fmt.Errorf("draw: %w", ErrNoVertexBuffer)
	}
	vs, ok := d.shaders.Lookup(d.state.vertexShader)
	if !ok {
		return fmt.Errorf("draw: vertex shader: %w", ErrNoShader)
	}
	fs, ok := d.shaders.Lookup(d.state.fragmentShader)
	if !ok {
		return fmt.Errorf("draw: fragment shader: %w", ErrNoShader)
	}

	color, colorFormat, depth, depthFormat, stencilFormat, err := d.renderTargets()
	if err != nil {
		return fmt.Errorf("draw: %w", err)
	}

	pipeline, err := d.pipelineFor(colorFormat, depthFormat, stencilFormat, vs, fs)
	if err != nil {
		return fmt.Errorf("draw: %w", err)
	}

	desc := d.passDescriptor(color, depth, stencilFormat)
	enc := d.cmdBuffer.RenderCommandEncoder(desc)
	enc.SetRenderPipelineState(pipeline)

	if d.effectUpdate != nil {
		d.effectUpdate()
	}

	vp := d.state.viewport
	if vp.Width == 0 && vp.Height == 0 {
		vp = mtl.Viewport{Width: float64(color.Width()), Height: float64(color.Height()), ZFar: 1}
	}
	enc.SetViewport(vp)
	enc.SetFrontFacingWinding(gputypes.FrontFaceCCW)
	enc.SetCullMode(d.state.cullMode)
	if d.state.scissorEnabled {
		enc.SetScissorRect(d.state.scissor)
	}
	enc.SetDepthStencilState(d.dev.NewDepthStencilState(d.depthStencilDescriptor()))

	if vs.viewProj != nil {
		vs.viewProj.SetMat4(mat4Mul(d.world, d.state.projection))
	}

	if err := d.bindUniforms(enc, vs); err != nil {
		enc.EndEncoding()
		return fmt.Errorf("draw: %w", err)
	}
	if err := d.bindUniforms(enc, fs); err != nil {
		enc.EndEncoding()
		return fmt.Errorf("draw: %w", err)
	}

	bufs, err := vb.buffersForShader(vs)
	if err != nil {
		enc.EndEncoding()
		return fmt.Errorf("draw: %w", err)
	}
	for i, buf := range bufs {
		enc.SetVertexBuffer(buf, 0, i)
	}

	d.bindShaderTextures(enc, fs)
	for i := 0; i < maxTextureSlots; i++ {
		if i < len(fs.samplers) {
			enc.SetFragmentSamplerState(fs.samplers[i], i)
		}
		if h := d.state.textures[i]; h != 0 {
			if t, ok := d.textures.Lookup(h); ok {
				enc.SetFragmentTexture(t.tex, i)
			}
		}
		if h := d.state.samplers[i]; h != 0 {
			if ss, ok := d.samplerStates.Lookup(h); ok {
				enc.SetFragmentSamplerState(ss.state, i)
			}
		}
	}

	prim := mode.topology()
	if ib, ok := d.indexBuffers.Lookup(d.state.indexBuffer); ok {
		n := count
		if n == 0 {
			n = ib.num
		}
		enc.DrawIndexedPrimitives(prim, n, ib.typ.Format(), ib.buf, start*ib.typ.Width())
	} else {
		enc.DrawPrimitives(prim, start, count)
	}
	enc.EndEncoding()
	d.drawCount++
	return nil
}
