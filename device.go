package metalgs

import (
	"errors"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/metalgs/internal/bufferpool"
	"github.com/gogpu/metalgs/internal/handletable"
	"github.com/gogpu/metalgs/internal/mtl"
	"github.com/gogpu/metalgs/internal/pipecache"
)

// DeviceOptions configures platform hooks a Device cannot provide
// itself.
type DeviceOptions struct {
	// OpenIOSurface resolves a surface ID shared by another process
	// into an IOSurface. Required for OpenSharedTexture.
	OpenIOSurface func(id uint32) (mtl.IOSurface, error)

	// PipelineCapacity is the per-shard pipeline cache capacity, 0 for
	// the default.
	PipelineCapacity int
}

// Device owns every GPU resource and the mutable draw state. All
// methods must be called from the host's graphics thread; the only
// concurrent access is the transient buffer pool's rotation from
// command-buffer completion handlers.
type Device struct {
	dev   mtl.Device
	queue mtl.CommandQueue
	pool  *bufferpool.Pool
	opts  DeviceOptions

	vertexBuffers *handletable.Table[*VertexBuffer]
	indexBuffers  *handletable.Table[*IndexBuffer]
	textures      *handletable.Table[*Texture]
	zstencils     *handletable.Table[*ZStencilBuffer]
	stageSurfaces *handletable.Table[*StageSurface]
	samplerStates *handletable.Table[*SamplerState]
	swapChains    *handletable.Table[*SwapChain]
	shaders       *handletable.Table[*Shader]

	pipelines *pipecache.Cache[mtl.RenderPipelineState]

	// cmdBuffer is the active scene's command buffer, nil between
	// scenes.
	cmdBuffer mtl.CommandBuffer

	state        deviceState
	projStack    []f32.Mat4
	world        f32.Mat4
	curSwapChain Handle

	pendingClears []pendingClear
	drawCount     int

	// effectUpdate runs right before each draw's uniforms are packed,
	// so the host's effect system can push parameter values.
	effectUpdate func()
}

// NewDevice creates a device on top of a driver device.
func NewDevice(dev mtl.Device, opts DeviceOptions) (*Device, error) {
	if dev == nil {
		return nil, errors.New("metalgs: nil driver device")
	}
	d := &Device{
		dev:   dev,
		queue: dev.NewCommandQueue(),
		pool:  bufferpool.New(dev),
		opts:  opts,

		vertexBuffers: handletable.New[*VertexBuffer](),
		indexBuffers:  handletable.New[*IndexBuffer](),
		textures:      handletable.New[*Texture](),
		zstencils:     handletable.New[*ZStencilBuffer](),
		stageSurfaces: handletable.New[*StageSurface](),
		samplerStates: handletable.New[*SamplerState](),
		swapChains:    handletable.New[*SwapChain](),
		shaders:       handletable.New[*Shader](),

		pipelines: pipecache.New[mtl.RenderPipelineState](opts.PipelineCapacity),

		state: defaultDeviceState(),
		world: identityMat4,
	}
	Logger().Info("metalgs: device created", "name", dev.Name())
	return d, nil
}

// Name returns the driver-reported device name.
func (d *Device) Name() string { return d.dev.Name() }

// SetEffectCallback registers the host hook invoked before each draw
// packs its uniforms. A nil fn removes the hook.
func (d *Device) SetEffectCallback(fn func()) { d.effectUpdate = fn }

// BeginFrame resets the per-frame draw counter.
func (d *Device) BeginFrame() { d.drawCount = 0 }

// BeginScene allocates a fresh command buffer. Device state carries
// over from the previous scene.
func (d *Device) BeginScene() {
	d.cmdBuffer = d.queue.CommandBuffer()
}

// EndScene marks the scene finished. Submission happens in Present or
// Flush.
func (d *Device) EndScene() {}

// Present schedules the current swap chain's drawable for presentation
// and commits the scene's command buffer. A frame that issued no draws
// gets a synthesized clear, since presenting a drawable no encoder
// touched leaves stale contents on screen.
func (d *Device) Present() {
	if d.cmdBuffer == nil {
		Logger().Warn("metalgs: present without begin_scene")
		return
	}
	if d.drawCount == 0 {
		if len(d.pendingClears) == 0 {
			d.Clear(ClearColor, gputypes.Color{A: 1}, 1, 0)
		}
		d.flushPendingClear()
	}

	if sc, ok := d.swapChains.Lookup(d.curSwapChain); ok && sc.drawable != nil {
		d.cmdBuffer.PresentDrawable(sc.drawable)
		sc.drawable = nil
	}

	pool := d.pool
	d.cmdBuffer.AddCompletedHandler(func() { pool.Rotate() })
	d.cmdBuffer.Commit()
	d.cmdBuffer = nil
	d.drawCount = 0
}

// Flush commits the active command buffer and blocks until the GPU
// finishes it, then recycles the frame's transient buffers.
func (d *Device) Flush() {
	if d.cmdBuffer == nil {
		return
	}
	d.cmdBuffer.Commit()
	d.cmdBuffer.WaitUntilCompleted()
	d.pool.Rotate()
	d.cmdBuffer = nil
	d.drawCount = 0
}

// Width returns the current swap chain's width.
func (d *Device) Width() int {
	w, _ := d.Size()
	return w
}

// Height returns the current swap chain's height.
func (d *Device) Height() int {
	_, h := d.Size()
	return h
}
