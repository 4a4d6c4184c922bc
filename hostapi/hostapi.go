// Package hostapi adapts the device API to the host's flat,
// value-returning calling convention.
//
// The host addresses every GPU object through an opaque pointer. Each
// pointer is a *Resource: a stable-address wrapper tagging the owning
// device, the resource kind and the small integer handle the device
// issued. The host never inspects it; it only round-trips it back into
// these functions. Failures never propagate as errors across this
// boundary. Following the host contract, a failed call logs and
// returns nil, zero or false, and the host carries on.
package hostapi

import (
	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/metalgs"
	"github.com/gogpu/metalgs/internal/mtl"
)

// Kind tags the resource table a handle belongs to.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindVertexBuffer
	KindIndexBuffer
	KindTexture
	KindZStencil
	KindStageSurface
	KindSamplerState
	KindSwapChain
	KindShader
)

// Device wraps one graphics device for the host.
type Device struct {
	d *metalgs.Device
}

// Resource is the opaque object the host holds for every GPU resource.
type Resource struct {
	dev  *Device
	kind Kind
	h    metalgs.Handle
}

func (dev *Device) wrap(kind Kind, h metalgs.Handle, err error) *Resource {
	if err != nil {
		metalgs.Logger().Error("hostapi: resource creation failed", "kind", kind, "err", err)
		return nil
	}
	return &Resource{dev: dev, kind: kind, h: h}
}

// handleOf validates a resource against the expected kind and returns
// its device handle, 0 for nil or mismatched resources.
func handleOf(r *Resource, kind Kind) metalgs.Handle {
	if r == nil || r.kind != kind {
		return 0
	}
	return r.h
}

// DeviceCreate opens a device on a driver device.
func DeviceCreate(drv mtl.Device, opts metalgs.DeviceOptions) *Device {
	d, err := metalgs.NewDevice(drv, opts)
	if err != nil {
		metalgs.Logger().Error("hostapi: device create failed", "err", err)
		return nil
	}
	return &Device{d: d}
}

// DeviceDestroy flushes outstanding work and drops the device.
func DeviceDestroy(dev *Device) {
	if dev == nil {
		return
	}
	dev.d.Flush()
	dev.d = nil
}

func DeviceGetName(dev *Device) string { return dev.d.Name() }

// DeviceGetType identifies the backend to the host.
func DeviceGetType() string { return "metal" }

// DevicePreprocessorName is the shader-language preprocessor define the
// host injects for this backend.
func DevicePreprocessorName() string { return "_Metal" }

// DeviceEnterContext and DeviceLeaveContext are no-ops: the device has
// no implicit thread context.
func DeviceEnterContext(dev *Device) {}
func DeviceLeaveContext(dev *Device) {}

// Scene control.

func DeviceBeginFrame(dev *Device) { dev.d.BeginFrame() }
func DeviceBeginScene(dev *Device) { dev.d.BeginScene() }
func DeviceEndScene(dev *Device)   { dev.d.EndScene() }
func DevicePresent(dev *Device)    { dev.d.Present() }
func DeviceFlush(dev *Device)      { dev.d.Flush() }

// DeviceIsPresentReady always reports ready; drawable pacing happens
// inside LoadSwapChain.
func DeviceIsPresentReady(dev *Device) bool { return true }

func DeviceDraw(dev *Device, mode metalgs.DrawMode, start, count int) {
	if err := dev.d.Draw(mode, start, count); err != nil {
		metalgs.Logger().Error("hostapi: draw failed", "err", err)
	}
}

func DeviceClear(dev *Device, flags metalgs.ClearFlags, color gputypes.Color, depth float64, stencil uint32) {
	dev.d.Clear(flags, color, depth, stencil)
}

// Render targets.

func DeviceSetRenderTarget(dev *Device, tex, zstencil *Resource) {
	dev.d.SetRenderTarget(handleOf(tex, KindTexture), handleOf(zstencil, KindZStencil))
}

// DeviceSetRenderTargetWithColorSpace ignores the color space; the
// backend renders in the swap chain's native space.
func DeviceSetRenderTargetWithColorSpace(dev *Device, tex, zstencil *Resource, _ uint32) {
	DeviceSetRenderTarget(dev, tex, zstencil)
}

func DeviceGetRenderTarget(dev *Device) *Resource {
	h := dev.d.RenderTarget()
	if h == 0 {
		return nil
	}
	return &Resource{dev: dev, kind: KindTexture, h: h}
}

func DeviceGetZStencilTarget(dev *Device) *Resource {
	h := dev.d.ZStencilTarget()
	if h == 0 {
		return nil
	}
	return &Resource{dev: dev, kind: KindZStencil, h: h}
}

// DeviceSetCubeRenderTarget is unimplemented; cube faces cannot be
// render targets here.
func DeviceSetCubeRenderTarget(dev *Device, tex *Resource, side int, zstencil *Resource) {}

func DeviceEnableFramebufferSRGB(dev *Device, enable bool) {}
func DeviceFramebufferSRGBEnabled(dev *Device) bool        { return false }

// Pipeline state setters.

func DeviceBlendFunction(dev *Device, src, dst gputypes.BlendFactor) {
	dev.d.SetBlendFunction(src, dst)
}

func DeviceBlendFunctionSeparate(dev *Device, srcC, dstC, srcA, dstA gputypes.BlendFactor) {
	dev.d.SetBlendFunctionSeparate(srcC, dstC, srcA, dstA)
}

func DeviceBlendOp(dev *Device, op gputypes.BlendOperation) { dev.d.SetBlendOp(op) }
func DeviceEnableBlending(dev *Device, enable bool)         { dev.d.EnableBlending(enable) }

func DeviceEnableColor(dev *Device, r, g, b, a bool) { dev.d.EnableColor(r, g, b, a) }

func DeviceDepthFunction(dev *Device, fn gputypes.CompareFunction) { dev.d.SetDepthFunction(fn) }
func DeviceEnableDepthTest(dev *Device, enable bool)               { dev.d.EnableDepthTest(enable) }
func DeviceEnableStencilTest(dev *Device, enable bool)             { dev.d.EnableStencilTest(enable) }
func DeviceEnableStencilWrite(dev *Device, enable bool)            { dev.d.EnableStencilWrite(enable) }

func DeviceStencilFunction(dev *Device, side metalgs.StencilSide, fn gputypes.CompareFunction) {
	dev.d.SetStencilFunction(side, fn)
}

func DeviceStencilOp(dev *Device, side metalgs.StencilSide, fail, depthFail, pass gputypes.StencilOperation) {
	dev.d.SetStencilOp(side, fail, depthFail, pass)
}

func DeviceSetCullMode(dev *Device, mode gputypes.CullMode) { dev.d.SetCullMode(mode) }
func DeviceGetCullMode(dev *Device) gputypes.CullMode       { return dev.d.CullMode() }

func DeviceSetViewport(dev *Device, x, y, width, height int) { dev.d.SetViewport(x, y, width, height) }

func DeviceGetViewport(dev *Device) (x, y, width, height int) { return dev.d.Viewport() }

func DeviceSetScissorRect(dev *Device, r *metalgs.Rect) { dev.d.SetScissorRect(r) }

func DeviceOrtho(dev *Device, left, right, top, bottom, near, far float32) {
	dev.d.Ortho(left, right, top, bottom, near, far)
}

func DeviceFrustum(dev *Device, left, right, top, bottom, near, far float32) {
	dev.d.Frustum(left, right, top, bottom, near, far)
}

func DeviceProjectionPush(dev *Device) { dev.d.ProjectionPush() }
func DeviceProjectionPop(dev *Device)  { dev.d.ProjectionPop() }

func DeviceGetProjection(dev *Device) f32.Mat4       { return dev.d.Projection() }
func DeviceSetWorldMatrix(dev *Device, m f32.Mat4)   { dev.d.SetWorldMatrix(m) }
func DeviceGetWorldMatrix(dev *Device) f32.Mat4      { return dev.d.WorldMatrix() }
func DeviceSetEffectCallback(dev *Device, fn func()) { dev.d.SetEffectCallback(fn) }
