package hostapi

import (
	"testing"

	"github.com/gogpu/metalgs"
	"github.com/gogpu/metalgs/internal/mtl/mtltest"
)

func newHostDevice(t *testing.T) *Device {
	t.Helper()
	dev := DeviceCreate(mtltest.NewDevice(), metalgs.DeviceOptions{})
	if dev == nil {
		t.Fatal("DeviceCreate returned nil")
	}
	return dev
}

func TestResourceRoundTrip(t *testing.T) {
	dev := newHostDevice(t)

	tex := TextureCreate(dev, 4, 4, metalgs.ColorFormatRGBA, 1, nil, metalgs.TextureRenderTarget)
	if tex == nil {
		t.Fatal("TextureCreate returned nil")
	}
	if TextureGetWidth(tex) != 4 || TextureGetHeight(tex) != 4 {
		t.Error("texture extent lost across the boundary")
	}
	if TextureGetColorFormat(tex) != metalgs.ColorFormatRGBA {
		t.Error("texture format lost across the boundary")
	}

	DeviceSetRenderTarget(dev, tex, nil)
	got := DeviceGetRenderTarget(dev)
	if got == nil || got.h != tex.h {
		t.Error("render target did not round-trip")
	}
}

func TestKindMismatchIsRejected(t *testing.T) {
	dev := newHostDevice(t)

	tex := TextureCreate(dev, 2, 2, metalgs.ColorFormatRGBA, 1, nil, 0)
	if h := handleOf(tex, KindVertexBuffer); h != 0 {
		t.Errorf("mismatched kind resolved to %d, want 0", h)
	}
	if h := handleOf(nil, KindTexture); h != 0 {
		t.Errorf("nil resource resolved to %d, want 0", h)
	}

	// Loading a texture as a vertex buffer must leave state untouched.
	DeviceLoadVertexBuffer(dev, tex)
	DeviceDraw(dev, metalgs.DrawTriangleStrip, 0, 4)
}

func TestFailedCreateReturnsNil(t *testing.T) {
	dev := newHostDevice(t)

	if tex := TextureCreate(dev, 2, 2, metalgs.ColorFormatUnknown, 1, nil, 0); tex != nil {
		t.Error("unsupported format must produce a nil resource")
	}
	if zs := ZStencilCreate(dev, 2, 2, metalgs.ZStencilNone); zs != nil {
		t.Error("no-format zstencil must produce a nil resource")
	}
}

func TestNilResourceAccessorsAreZero(t *testing.T) {
	if TextureGetWidth(nil) != 0 || IndexBufferGetNumIndices(nil) != 0 {
		t.Error("nil resources must report zero")
	}
	if data, _, ok := TextureMap(nil); ok || data != nil {
		t.Error("mapping nil must fail softly")
	}
	if VertexBufferGetData(nil) != nil {
		t.Error("nil vertex buffer must have nil data")
	}
	TextureDestroy(nil)
	VertexBufferDestroy(nil)
	ShaderSetFloat(nil, 1)
}

func TestDeviceIdentity(t *testing.T) {
	if DeviceGetType() != "metal" {
		t.Error("backend type mismatch")
	}
	if DevicePreprocessorName() != "_Metal" {
		t.Error("preprocessor define mismatch")
	}
	if !DeviceSharedTextureAvailable() {
		t.Error("shared textures must be available")
	}
	dev := newHostDevice(t)
	if DeviceIsMonitorHDR(dev, 0) {
		t.Error("monitor HDR must report false")
	}
	if !DeviceIsPresentReady(dev) {
		t.Error("present must always be ready")
	}
}
