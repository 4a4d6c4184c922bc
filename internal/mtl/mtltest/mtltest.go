// Package mtltest provides an in-memory implementation of the mtl driver
// seam that records every call. Package tests across the backend run
// against it instead of a real GPU.
//
// GPU completion is modeled explicitly: by default a command buffer runs
// its completed handlers during Commit. Tests that need to observe the
// window between commit and completion construct the device with
// ManualCompletion and fire Complete themselves.
package mtltest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/metalgs/internal/mtl"
)

// Device records resource creation and hands out recording command
// buffers. It implements mtl.Device.
type Device struct {
	// ManualCompletion suppresses the automatic completion-handler run at
	// Commit; tests drive CommandBuffer.Complete instead.
	ManualCompletion bool

	// FailPipelines makes NewRenderPipelineState return an error,
	// modeling a structurally invalid descriptor.
	FailPipelines bool

	mu sync.Mutex

	Buffers         []*Buffer
	Textures        []*Texture
	Samplers        []*Sampler
	Libraries       []string
	PipelinesMade   int
	PipelineDescs   []mtl.RenderPipelineDescriptor
	CommandBuffers  []*CommandBuffer
	DepthStencils   []mtl.DepthStencilDescriptor
}

var _ mtl.Device = (*Device)(nil)

// NewDevice creates a recording device.
func NewDevice() *Device { return &Device{} }

// Name implements mtl.Device.
func (d *Device) Name() string { return "mtltest" }

// NewCommandQueue implements mtl.Device.
func (d *Device) NewCommandQueue() mtl.CommandQueue { return &queue{dev: d} }

// NewBuffer implements mtl.Device.
func (d *Device) NewBuffer(length int, storage mtl.StorageMode, writeCombined bool) (mtl.Buffer, error) {
	if length <= 0 {
		return nil, fmt.Errorf("mtltest: invalid buffer length %d", length)
	}
	b := &Buffer{data: make([]byte, length), Storage: storage, WriteCombined: writeCombined}
	d.mu.Lock()
	d.Buffers = append(d.Buffers, b)
	d.mu.Unlock()
	return b, nil
}

// NewBufferWithBytes implements mtl.Device.
func (d *Device) NewBufferWithBytes(data []byte, storage mtl.StorageMode) (mtl.Buffer, error) {
	b, err := d.NewBuffer(len(data), storage, false)
	if err != nil {
		return nil, err
	}
	copy(b.Contents(), data)
	return b, nil
}

// NewTexture implements mtl.Device.
func (d *Device) NewTexture(desc mtl.TextureDescriptor) (mtl.Texture, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("mtltest: invalid texture size %dx%d", desc.Width, desc.Height)
	}
	t := newTexture(desc)
	d.mu.Lock()
	d.Textures = append(d.Textures, t)
	d.mu.Unlock()
	return t, nil
}

// NewTextureFromIOSurface implements mtl.Device.
func (d *Device) NewTextureFromIOSurface(surface mtl.IOSurface, desc mtl.TextureDescriptor) (mtl.Texture, error) {
	t, err := d.NewTexture(desc)
	if err != nil {
		return nil, err
	}
	t.(*Texture).Surface = surface
	return t, nil
}

// NewSamplerState implements mtl.Device.
func (d *Device) NewSamplerState(desc mtl.SamplerDescriptor) (mtl.SamplerState, error) {
	s := &Sampler{Desc: desc}
	d.mu.Lock()
	d.Samplers = append(d.Samplers, s)
	d.mu.Unlock()
	return s, nil
}

// NewDepthStencilState implements mtl.Device.
func (d *Device) NewDepthStencilState(desc mtl.DepthStencilDescriptor) mtl.DepthStencilState {
	d.mu.Lock()
	d.DepthStencils = append(d.DepthStencils, desc)
	d.mu.Unlock()
	return &depthStencil{desc: desc}
}

// NewLibrary implements mtl.Device. Compilation always succeeds for
// non-empty source.
func (d *Device) NewLibrary(source string) (mtl.Library, error) {
	if source == "" {
		return nil, errors.New("mtltest: empty shader source")
	}
	d.mu.Lock()
	d.Libraries = append(d.Libraries, source)
	d.mu.Unlock()
	return &Library{Source: source}, nil
}

// NewRenderPipelineState implements mtl.Device.
func (d *Device) NewRenderPipelineState(desc mtl.RenderPipelineDescriptor) (mtl.RenderPipelineState, error) {
	if d.FailPipelines {
		return nil, errors.New("mtltest: pipeline compilation failed")
	}
	d.mu.Lock()
	d.PipelinesMade++
	d.PipelineDescs = append(d.PipelineDescs, desc)
	d.mu.Unlock()
	return &pipelineState{desc: desc}, nil
}

// NewLayer implements mtl.Device.
func (d *Device) NewLayer(view uintptr, width, height int, format mtl.PixelFormat) (mtl.Layer, error) {
	return &Layer{dev: d, view: view, width: width, height: height, format: format}, nil
}

type queue struct{ dev *Device }

func (q *queue) CommandBuffer() mtl.CommandBuffer {
	cb := &CommandBuffer{dev: q.dev}
	q.dev.mu.Lock()
	q.dev.CommandBuffers = append(q.dev.CommandBuffers, cb)
	q.dev.mu.Unlock()
	return cb
}

// CommandBuffer records encoders, presents and completion handlers.
type CommandBuffer struct {
	dev *Device

	mu        sync.Mutex
	Passes    []*RenderPass
	Blits     []*Blit
	Presented []mtl.Drawable
	Committed bool
	Completed bool
	handlers  []func()
}

var _ mtl.CommandBuffer = (*CommandBuffer)(nil)

// RenderCommandEncoder implements mtl.CommandBuffer.
func (c *CommandBuffer) RenderCommandEncoder(desc mtl.RenderPassDescriptor) mtl.RenderCommandEncoder {
	p := &RenderPass{Desc: desc}
	c.mu.Lock()
	c.Passes = append(c.Passes, p)
	c.mu.Unlock()
	return p
}

// BlitCommandEncoder implements mtl.CommandBuffer.
func (c *CommandBuffer) BlitCommandEncoder() mtl.BlitCommandEncoder {
	b := &Blit{}
	c.mu.Lock()
	c.Blits = append(c.Blits, b)
	c.mu.Unlock()
	return b
}

// PresentDrawable implements mtl.CommandBuffer.
func (c *CommandBuffer) PresentDrawable(d mtl.Drawable) {
	c.mu.Lock()
	c.Presented = append(c.Presented, d)
	c.mu.Unlock()
}

// AddCompletedHandler implements mtl.CommandBuffer.
func (c *CommandBuffer) AddCompletedHandler(fn func()) {
	c.mu.Lock()
	c.handlers = append(c.handlers, fn)
	c.mu.Unlock()
}

// Commit implements mtl.CommandBuffer. Unless the device is in
// ManualCompletion mode the completed handlers run synchronously here.
func (c *CommandBuffer) Commit() {
	c.mu.Lock()
	c.Committed = true
	c.mu.Unlock()
	if !c.dev.ManualCompletion {
		c.Complete()
	}
}

// WaitUntilCompleted implements mtl.CommandBuffer.
func (c *CommandBuffer) WaitUntilCompleted() {
	c.Complete()
}

// Complete marks the buffer's GPU work finished and fires the completed
// handlers exactly once.
func (c *CommandBuffer) Complete() {
	c.mu.Lock()
	if c.Completed {
		c.mu.Unlock()
		return
	}
	c.Completed = true
	handlers := c.handlers
	c.handlers = nil
	c.mu.Unlock()
	for _, fn := range handlers {
		fn()
	}
}

// DrawCall records one draw issued on a render pass.
type DrawCall struct {
	Prim        gputypes.PrimitiveTopology
	VertexStart int
	VertexCount int

	Indexed     bool
	IndexCount  int
	IndexFormat gputypes.IndexFormat
	IndexBuffer mtl.Buffer
	IndexOffset int
}

// RenderPass records the state set on one render command encoder.
type RenderPass struct {
	Desc mtl.RenderPassDescriptor

	Pipeline      mtl.RenderPipelineState
	Viewport      *mtl.Viewport
	Winding       gputypes.FrontFace
	CullMode      gputypes.CullMode
	Scissor       *mtl.ScissorRect
	DepthStencil  mtl.DepthStencilState
	StencilRef    uint32

	VertexBuffers    map[int]mtl.Buffer
	VertexBytes      map[int][]byte
	FragmentBuffers  map[int]mtl.Buffer
	FragmentBytes    map[int][]byte
	FragmentTextures map[int]mtl.Texture
	FragmentSamplers map[int]mtl.SamplerState

	Draws []DrawCall
	Ended bool
}

var _ mtl.RenderCommandEncoder = (*RenderPass)(nil)

func (p *RenderPass) SetRenderPipelineState(ps mtl.RenderPipelineState) { p.Pipeline = ps }
func (p *RenderPass) SetViewport(vp mtl.Viewport)                      { p.Viewport = &vp }
func (p *RenderPass) SetFrontFacingWinding(w gputypes.FrontFace)       { p.Winding = w }
func (p *RenderPass) SetCullMode(m gputypes.CullMode)                  { p.CullMode = m }
func (p *RenderPass) SetScissorRect(r mtl.ScissorRect)                 { p.Scissor = &r }
func (p *RenderPass) SetDepthStencilState(ds mtl.DepthStencilState)    { p.DepthStencil = ds }
func (p *RenderPass) SetStencilReference(ref uint32)                   { p.StencilRef = ref }

func (p *RenderPass) SetVertexBuffer(buf mtl.Buffer, offset, index int) {
	if p.VertexBuffers == nil {
		p.VertexBuffers = make(map[int]mtl.Buffer)
	}
	p.VertexBuffers[index] = buf
}

func (p *RenderPass) SetVertexBytes(data []byte, index int) {
	if p.VertexBytes == nil {
		p.VertexBytes = make(map[int][]byte)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	p.VertexBytes[index] = cp
}

func (p *RenderPass) SetFragmentBuffer(buf mtl.Buffer, offset, index int) {
	if p.FragmentBuffers == nil {
		p.FragmentBuffers = make(map[int]mtl.Buffer)
	}
	p.FragmentBuffers[index] = buf
}

func (p *RenderPass) SetFragmentBytes(data []byte, index int) {
	if p.FragmentBytes == nil {
		p.FragmentBytes = make(map[int][]byte)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	p.FragmentBytes[index] = cp
}

func (p *RenderPass) SetFragmentTexture(tex mtl.Texture, index int) {
	if p.FragmentTextures == nil {
		p.FragmentTextures = make(map[int]mtl.Texture)
	}
	p.FragmentTextures[index] = tex
}

func (p *RenderPass) SetFragmentSamplerState(s mtl.SamplerState, index int) {
	if p.FragmentSamplers == nil {
		p.FragmentSamplers = make(map[int]mtl.SamplerState)
	}
	p.FragmentSamplers[index] = s
}

func (p *RenderPass) DrawPrimitives(prim gputypes.PrimitiveTopology, vertexStart, vertexCount int) {
	p.Draws = append(p.Draws, DrawCall{Prim: prim, VertexStart: vertexStart, VertexCount: vertexCount})
}

func (p *RenderPass) DrawIndexedPrimitives(prim gputypes.PrimitiveTopology, indexCount int, format gputypes.IndexFormat, indexBuffer mtl.Buffer, indexOffset int) {
	p.Draws = append(p.Draws, DrawCall{
		Prim:        prim,
		Indexed:     true,
		IndexCount:  indexCount,
		IndexFormat: format,
		IndexBuffer: indexBuffer,
		IndexOffset: indexOffset,
	})
}

func (p *RenderPass) EndEncoding() { p.Ended = true }

// CopyCall records one texture copy on a blit encoder.
type CopyCall struct {
	Src                mtl.Texture
	SrcSlice, SrcLevel int
	SrcOrigin          gputypes.Origin3D
	Size               gputypes.Extent3D
	Dst                mtl.Texture
	DstSlice, DstLevel int
	DstOrigin          gputypes.Origin3D
}

// Blit records blit-encoder activity and performs texture copies in
// memory so readback tests observe the data.
type Blit struct {
	Copies       []CopyCall
	MipmapsFor   []mtl.Texture
	Synchronized []mtl.Texture
	Ended        bool
}

var _ mtl.BlitCommandEncoder = (*Blit)(nil)

func (b *Blit) CopyTexture(src mtl.Texture, srcSlice, srcLevel int, srcOrigin gputypes.Origin3D,
	size gputypes.Extent3D,
	dst mtl.Texture, dstSlice, dstLevel int, dstOrigin gputypes.Origin3D) {
	b.Copies = append(b.Copies, CopyCall{
		Src: src, SrcSlice: srcSlice, SrcLevel: srcLevel, SrcOrigin: srcOrigin,
		Size: size,
		Dst: dst, DstSlice: dstSlice, DstLevel: dstLevel, DstOrigin: dstOrigin,
	})
	st, sok := src.(*Texture)
	dt, dok := dst.(*Texture)
	if sok && dok {
		copyTexels(st, srcSlice, srcLevel, srcOrigin, size, dt, dstSlice, dstLevel, dstOrigin)
	}
}

func (b *Blit) GenerateMipmaps(tex mtl.Texture) { b.MipmapsFor = append(b.MipmapsFor, tex) }
func (b *Blit) Synchronize(tex mtl.Texture)     { b.Synchronized = append(b.Synchronized, tex) }
func (b *Blit) EndEncoding()                    { b.Ended = true }

// Buffer is an in-memory mtl.Buffer.
type Buffer struct {
	data          []byte
	Storage       mtl.StorageMode
	WriteCombined bool
	Modified      []int // offsets passed to DidModifyRange
}

var _ mtl.Buffer = (*Buffer)(nil)

func (b *Buffer) Contents() []byte { return b.data }
func (b *Buffer) Length() int      { return len(b.data) }
func (b *Buffer) DidModifyRange(offset, length int) {
	b.Modified = append(b.Modified, offset)
}

// Texture is an in-memory mtl.Texture holding per-slice, per-mip texel
// storage.
type Texture struct {
	Desc    mtl.TextureDescriptor
	Surface mtl.IOSurface

	// levels[slice][mip] is tightly packed texel data.
	levels [][][]byte
}

var _ mtl.Texture = (*Texture)(nil)

func newTexture(desc mtl.TextureDescriptor) *Texture {
	if desc.MipLevels < 1 {
		desc.MipLevels = 1
	}
	slices := 1
	if desc.Kind == mtl.TextureCube {
		slices = 6
	}
	t := &Texture{Desc: desc, levels: make([][][]byte, slices)}
	for s := 0; s < slices; s++ {
		t.levels[s] = make([][]byte, desc.MipLevels)
		w, h := desc.Width, desc.Height
		for m := 0; m < desc.MipLevels; m++ {
			t.levels[s][m] = make([]byte, desc.Format.RowBytes(w)*rowsForHeight(desc.Format, h))
			w = halve(w)
			h = halve(h)
		}
	}
	return t
}

func halve(v int) int {
	if v > 1 {
		return v / 2
	}
	return 1
}

func rowsForHeight(f mtl.PixelFormat, h int) int {
	bd := f.BlockDim()
	return (h + bd - 1) / bd
}

func (t *Texture) Kind() mtl.TextureKind        { return t.Desc.Kind }
func (t *Texture) Width() int                   { return t.Desc.Width }
func (t *Texture) Height() int                  { return t.Desc.Height }
func (t *Texture) PixelFormat() mtl.PixelFormat { return t.Desc.Format }
func (t *Texture) MipLevelCount() int           { return t.Desc.MipLevels }

// levelDim returns the dimensions of a mip level.
func (t *Texture) levelDim(level int) (w, h int) {
	w, h = t.Desc.Width, t.Desc.Height
	for i := 0; i < level; i++ {
		w = halve(w)
		h = halve(h)
	}
	return w, h
}

// ReplaceRegion implements mtl.Texture.
func (t *Texture) ReplaceRegion(region mtl.Region, level, slice int, data []byte, bytesPerRow int) {
	if slice >= len(t.levels) || level >= len(t.levels[slice]) {
		return
	}
	w, _ := t.levelDim(level)
	dst := t.levels[slice][level]
	f := t.Desc.Format
	rowLen := f.RowBytes(region.Width)
	dstPitch := f.RowBytes(w)
	rows := rowsForHeight(f, region.Height)
	xOff := f.RowBytes(region.X)
	yOff := region.Y / f.BlockDim()
	for r := 0; r < rows; r++ {
		di := (yOff+r)*dstPitch + xOff
		si := r * bytesPerRow
		if di+rowLen > len(dst) || si+rowLen > len(data) {
			return
		}
		copy(dst[di:di+rowLen], data[si:si+rowLen])
	}
}

// GetBytes implements mtl.Texture.
func (t *Texture) GetBytes(dst []byte, bytesPerRow int, region mtl.Region, level int) {
	if level >= len(t.levels[0]) {
		return
	}
	w, _ := t.levelDim(level)
	src := t.levels[0][level]
	f := t.Desc.Format
	rowLen := f.RowBytes(region.Width)
	srcPitch := f.RowBytes(w)
	rows := rowsForHeight(f, region.Height)
	xOff := f.RowBytes(region.X)
	yOff := region.Y / f.BlockDim()
	for r := 0; r < rows; r++ {
		si := (yOff+r)*srcPitch + xOff
		di := r * bytesPerRow
		if si+rowLen > len(src) || di+rowLen > len(dst) {
			return
		}
		copy(dst[di:di+rowLen], src[si:si+rowLen])
	}
}

func copyTexels(src *Texture, srcSlice, srcLevel int, srcOrigin gputypes.Origin3D,
	size gputypes.Extent3D,
	dst *Texture, dstSlice, dstLevel int, dstOrigin gputypes.Origin3D) {
	f := src.Desc.Format
	rowLen := f.RowBytes(int(size.Width))
	rows := rowsForHeight(f, int(size.Height))
	sw, _ := src.levelDim(srcLevel)
	dw, _ := dst.levelDim(dstLevel)
	sPitch := f.RowBytes(sw)
	dPitch := dst.Desc.Format.RowBytes(dw)
	sData := src.levels[srcSlice][srcLevel]
	dData := dst.levels[dstSlice][dstLevel]
	sx := f.RowBytes(int(srcOrigin.X))
	dx := dst.Desc.Format.RowBytes(int(dstOrigin.X))
	sy := int(srcOrigin.Y) / f.BlockDim()
	dy := int(dstOrigin.Y) / dst.Desc.Format.BlockDim()
	for r := 0; r < rows; r++ {
		si := (sy+r)*sPitch + sx
		di := (dy+r)*dPitch + dx
		if si+rowLen > len(sData) || di+rowLen > len(dData) {
			return
		}
		copy(dData[di:di+rowLen], sData[si:si+rowLen])
	}
}

// Sampler is an in-memory mtl.SamplerState.
type Sampler struct{ Desc mtl.SamplerDescriptor }

var _ mtl.SamplerState = (*Sampler)(nil)

func (s *Sampler) MaxAnisotropy() int { return s.Desc.MaxAnisotropy }

type depthStencil struct{ desc mtl.DepthStencilDescriptor }

type pipelineState struct{ desc mtl.RenderPipelineDescriptor }

// Library is an in-memory mtl.Library.
type Library struct{ Source string }

var _ mtl.Library = (*Library)(nil)

// Function implements mtl.Library. Any name resolves.
func (l *Library) Function(name string) (mtl.Function, error) {
	return &Function{Named: name, Lib: l}, nil
}

// Function is an in-memory mtl.Function.
type Function struct {
	Named string
	Lib   *Library
}

var _ mtl.Function = (*Function)(nil)

func (f *Function) Name() string { return f.Named }

// Drawable is an in-memory mtl.Drawable.
type Drawable struct{ Tex mtl.Texture }

var _ mtl.Drawable = (*Drawable)(nil)

func (d *Drawable) Texture() mtl.Texture { return d.Tex }

// Layer is an in-memory mtl.Layer. Each NextDrawable call yields a fresh
// drawable backed by a texture of the layer's current size.
type Layer struct {
	dev    *Device
	view   uintptr
	width  int
	height int
	format mtl.PixelFormat

	Acquired int
}

var _ mtl.Layer = (*Layer)(nil)

func (l *Layer) NextDrawable() (mtl.Drawable, error) {
	tex, err := l.dev.NewTexture(mtl.TextureDescriptor{
		Kind:      mtl.Texture2D,
		Width:     l.width,
		Height:    l.height,
		Format:    l.format,
		MipLevels: 1,
		Usage:     gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding,
		Storage:   mtl.StoragePrivate,
	})
	if err != nil {
		return nil, err
	}
	l.Acquired++
	return &Drawable{Tex: tex}, nil
}

func (l *Layer) SetDrawableSize(width, height int) { l.width, l.height = width, height }
func (l *Layer) DrawableSize() (int, int)          { return l.width, l.height }
func (l *Layer) PixelFormat() mtl.PixelFormat      { return l.format }

// IOSurface is a test double for mtl.IOSurface.
type IOSurface struct {
	SurfaceID      uint32
	W, H           int
	PixelFormatTag uint32
}

var _ mtl.IOSurface = (*IOSurface)(nil)

func (s *IOSurface) ID() uint32     { return s.SurfaceID }
func (s *IOSurface) Width() int     { return s.W }
func (s *IOSurface) Height() int    { return s.H }
func (s *IOSurface) FourCC() uint32 { return s.PixelFormatTag }
