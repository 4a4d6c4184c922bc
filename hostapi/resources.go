package hostapi

import (
	"github.com/gogpu/metalgs"
	"github.com/gogpu/metalgs/internal/mtl"
	"github.com/gogpu/metalgs/msl"
)

// Vertex buffers.

func VertexBufferCreate(dev *Device, data *metalgs.VertexData, dynamic bool) *Resource {
	h, err := dev.d.CreateVertexBuffer(data, dynamic)
	return dev.wrap(KindVertexBuffer, h, err)
}

func VertexBufferDestroy(vb *Resource) {
	if vb == nil {
		return
	}
	vb.dev.d.DestroyVertexBuffer(vb.h)
}

func VertexBufferGetData(vb *Resource) *metalgs.VertexData {
	if vb == nil {
		return nil
	}
	return vb.dev.d.VertexBufferData(vb.h)
}

func VertexBufferFlush(vb *Resource) {
	if vb == nil {
		return
	}
	if err := vb.dev.d.FlushVertexBuffer(vb.h); err != nil {
		metalgs.Logger().Error("hostapi: vertex buffer flush failed", "err", err)
	}
}

// VertexBufferFlushDirect uploads caller-owned data without touching the
// buffer's retained copy.
func VertexBufferFlushDirect(vb *Resource, data *metalgs.VertexData) {
	if vb == nil {
		return
	}
	if err := vb.dev.d.FlushVertexBufferData(vb.h, data); err != nil {
		metalgs.Logger().Error("hostapi: vertex buffer flush failed", "err", err)
	}
}

func DeviceLoadVertexBuffer(dev *Device, vb *Resource) {
	dev.d.LoadVertexBuffer(handleOf(vb, KindVertexBuffer))
}

// Index buffers.

func IndexBufferCreate(dev *Device, typ metalgs.IndexType, data []byte, num int, dynamic bool) *Resource {
	h, err := dev.d.CreateIndexBuffer(typ, data, num, dynamic)
	return dev.wrap(KindIndexBuffer, h, err)
}

func IndexBufferDestroy(ib *Resource) {
	if ib == nil {
		return
	}
	ib.dev.d.DestroyIndexBuffer(ib.h)
}

func IndexBufferGetData(ib *Resource) []byte {
	if ib == nil {
		return nil
	}
	return ib.dev.d.IndexBufferData(ib.h)
}

func IndexBufferGetNumIndices(ib *Resource) int {
	if ib == nil {
		return 0
	}
	return ib.dev.d.IndexBufferNum(ib.h)
}

func IndexBufferFlush(ib *Resource) {
	if ib == nil {
		return
	}
	if err := ib.dev.d.FlushIndexBuffer(ib.h); err != nil {
		metalgs.Logger().Error("hostapi: index buffer flush failed", "err", err)
	}
}

func IndexBufferFlushDirect(ib *Resource, data []byte) {
	if ib == nil {
		return
	}
	if err := ib.dev.d.FlushIndexBufferData(ib.h, data); err != nil {
		metalgs.Logger().Error("hostapi: index buffer flush failed", "err", err)
	}
}

func DeviceLoadIndexBuffer(dev *Device, ib *Resource) {
	dev.d.LoadIndexBuffer(handleOf(ib, KindIndexBuffer))
}

// Textures.

func TextureCreate(dev *Device, width, height int, format metalgs.ColorFormat, levels int, data [][]byte, flags metalgs.TextureFlags) *Resource {
	h, err := dev.d.CreateTexture2D(width, height, format, levels, data, flags)
	return dev.wrap(KindTexture, h, err)
}

func CubeTextureCreate(dev *Device, size int, format metalgs.ColorFormat, levels int, data [][]byte, flags metalgs.TextureFlags) *Resource {
	h, err := dev.d.CreateCubeTexture(size, format, levels, data, flags)
	return dev.wrap(KindTexture, h, err)
}

// VolumeTextureCreate is unsupported; 3D textures never appear in the
// host's render path.
func VolumeTextureCreate(dev *Device, width, height, depth int, format metalgs.ColorFormat, levels int, data [][]byte, flags metalgs.TextureFlags) *Resource {
	return nil
}

func TextureDestroy(tex *Resource) {
	if tex == nil {
		return
	}
	tex.dev.d.DestroyTexture(tex.h)
}

func CubeTextureDestroy(tex *Resource) { TextureDestroy(tex) }

func TextureGetWidth(tex *Resource) int {
	if tex == nil {
		return 0
	}
	return tex.dev.d.TextureWidth(tex.h)
}

func TextureGetHeight(tex *Resource) int {
	if tex == nil {
		return 0
	}
	return tex.dev.d.TextureHeight(tex.h)
}

func TextureGetColorFormat(tex *Resource) metalgs.ColorFormat {
	if tex == nil {
		return metalgs.ColorFormatUnknown
	}
	return tex.dev.d.TextureColorFormat(tex.h)
}

func CubeTextureGetSize(tex *Resource) int { return TextureGetWidth(tex) }

func CubeTextureGetColorFormat(tex *Resource) metalgs.ColorFormat {
	return TextureGetColorFormat(tex)
}

// TextureIsRect reports whether a texture uses rectangle addressing,
// which Metal textures never do.
func TextureIsRect(tex *Resource) bool { return false }

// TextureGetType distinguishes 2D from cube textures.
func TextureGetType(tex *Resource) mtl.TextureKind {
	if tex == nil {
		return mtl.Texture2D
	}
	return tex.dev.d.TextureKind(tex.h)
}

// TextureGetObj exposes the native Metal texture for interop.
func TextureGetObj(tex *Resource) mtl.Texture {
	if tex == nil {
		return nil
	}
	return tex.dev.d.TextureObject(tex.h)
}

func TextureMap(tex *Resource) (data []byte, linesize int, ok bool) {
	if tex == nil {
		return nil, 0, false
	}
	data, linesize, err := tex.dev.d.MapTexture(tex.h)
	if err != nil {
		metalgs.Logger().Error("hostapi: texture map failed", "err", err)
		return nil, 0, false
	}
	return data, linesize, true
}

func TextureUnmap(tex *Resource) {
	if tex == nil {
		return
	}
	tex.dev.d.UnmapTexture(tex.h)
}

func DeviceCopyTexture(dev *Device, dst, src *Resource) {
	err := dev.d.CopyTexture(handleOf(dst, KindTexture), handleOf(src, KindTexture))
	if err != nil {
		metalgs.Logger().Error("hostapi: texture copy failed", "err", err)
	}
}

func DeviceCopyTextureRegion(dev *Device, dst *Resource, dstX, dstY int, src *Resource, srcX, srcY, width, height int) {
	err := dev.d.CopyTextureRegion(handleOf(dst, KindTexture), dstX, dstY,
		handleOf(src, KindTexture), srcX, srcY, width, height)
	if err != nil {
		metalgs.Logger().Error("hostapi: texture region copy failed", "err", err)
	}
}

func DeviceStageTexture(dev *Device, dst, src *Resource) {
	err := dev.d.StageTexture(handleOf(dst, KindStageSurface), handleOf(src, KindTexture))
	if err != nil {
		metalgs.Logger().Error("hostapi: texture stage failed", "err", err)
	}
}

func DeviceLoadTexture(dev *Device, tex *Resource, unit int) {
	dev.d.LoadTexture(handleOf(tex, KindTexture), unit)
}

// TextureCreateFromIOSurface wraps an existing IOSurface as a texture.
func TextureCreateFromIOSurface(dev *Device, surface mtl.IOSurface) *Resource {
	h, err := dev.d.CreateTextureFromIOSurface(surface)
	return dev.wrap(KindTexture, h, err)
}

func TextureRebindIOSurface(tex *Resource, surface mtl.IOSurface) bool {
	if tex == nil {
		return false
	}
	if err := tex.dev.d.RebindIOSurface(tex.h, surface); err != nil {
		metalgs.Logger().Error("hostapi: iosurface rebind failed", "err", err)
		return false
	}
	return true
}

func DeviceTextureOpenShared(dev *Device, surfaceID uint32) *Resource {
	h, err := dev.d.OpenSharedTexture(surfaceID)
	return dev.wrap(KindTexture, h, err)
}

// DeviceSharedTextureAvailable reports IOSurface sharing support, which
// every Metal device has.
func DeviceSharedTextureAvailable() bool { return true }

// Z-stencil surfaces.

func ZStencilCreate(dev *Device, width, height int, format metalgs.ZStencilFormat) *Resource {
	h, err := dev.d.CreateZStencil(width, height, format)
	return dev.wrap(KindZStencil, h, err)
}

func ZStencilDestroy(zs *Resource) {
	if zs == nil {
		return
	}
	zs.dev.d.DestroyZStencil(zs.h)
}

// Stage surfaces.

func StageSurfaceCreate(dev *Device, width, height int, format metalgs.ColorFormat) *Resource {
	h, err := dev.d.CreateStageSurface(width, height, format)
	return dev.wrap(KindStageSurface, h, err)
}

func StageSurfaceDestroy(ss *Resource) {
	if ss == nil {
		return
	}
	ss.dev.d.DestroyStageSurface(ss.h)
}

func StageSurfaceGetWidth(ss *Resource) int {
	if ss == nil {
		return 0
	}
	return ss.dev.d.StageSurfaceWidth(ss.h)
}

func StageSurfaceGetHeight(ss *Resource) int {
	if ss == nil {
		return 0
	}
	return ss.dev.d.StageSurfaceHeight(ss.h)
}

func StageSurfaceGetColorFormat(ss *Resource) metalgs.ColorFormat {
	if ss == nil {
		return metalgs.ColorFormatUnknown
	}
	return ss.dev.d.StageSurfaceColorFormat(ss.h)
}

func StageSurfaceMap(ss *Resource) (data []byte, linesize int, ok bool) {
	if ss == nil {
		return nil, 0, false
	}
	data, linesize, err := ss.dev.d.MapStageSurface(ss.h)
	if err != nil {
		metalgs.Logger().Error("hostapi: stage surface map failed", "err", err)
		return nil, 0, false
	}
	return data, linesize, true
}

func StageSurfaceUnmap(ss *Resource) {
	if ss == nil {
		return
	}
	ss.dev.d.UnmapStageSurface(ss.h)
}

// Sampler states.

func SamplerStateCreate(dev *Device, info msl.SamplerInfo) *Resource {
	h, err := dev.d.CreateSamplerState(info)
	return dev.wrap(KindSamplerState, h, err)
}

func SamplerStateDestroy(ss *Resource) {
	if ss == nil {
		return
	}
	ss.dev.d.DestroySamplerState(ss.h)
}

func DeviceLoadSamplerState(dev *Device, ss *Resource, unit int) {
	dev.d.LoadSamplerState(handleOf(ss, KindSamplerState), unit)
}

// DeviceLoadDefaultSamplerState is a no-op; shaders declare their own
// samplers and the host never relies on an implicit default.
func DeviceLoadDefaultSamplerState(dev *Device, b bool, unit int) {}

// Swap chains.

func SwapChainCreate(dev *Device, view uintptr, width, height int, format metalgs.ColorFormat) *Resource {
	h, err := dev.d.CreateSwapChain(view, width, height, format)
	return dev.wrap(KindSwapChain, h, err)
}

func SwapChainDestroy(sc *Resource) {
	if sc == nil {
		return
	}
	sc.dev.d.DestroySwapChain(sc.h)
}

func DeviceLoadSwapChain(dev *Device, sc *Resource) {
	if err := dev.d.LoadSwapChain(handleOf(sc, KindSwapChain)); err != nil {
		metalgs.Logger().Error("hostapi: swap chain load failed", "err", err)
	}
}

func DeviceResize(dev *Device, width, height int) { dev.d.Resize(width, height) }

func DeviceGetSize(dev *Device) (width, height int) { return dev.d.Size() }

func DeviceGetWidth(dev *Device) int  { return dev.d.Width() }
func DeviceGetHeight(dev *Device) int { return dev.d.Height() }

// Shaders.

func VertexShaderCreate(dev *Device, shader *msl.Shader) *Resource {
	h, err := dev.d.CreateVertexShader(shader)
	return dev.wrap(KindShader, h, err)
}

func PixelShaderCreate(dev *Device, shader *msl.Shader) *Resource {
	h, err := dev.d.CreatePixelShader(shader)
	return dev.wrap(KindShader, h, err)
}

func ShaderDestroy(s *Resource) {
	if s == nil {
		return
	}
	s.dev.d.DestroyShader(s.h)
}

func DeviceLoadVertexShader(dev *Device, s *Resource) {
	dev.d.LoadVertexShader(handleOf(s, KindShader))
}

func DeviceLoadPixelShader(dev *Device, s *Resource) {
	dev.d.LoadPixelShader(handleOf(s, KindShader))
}

func DeviceGetVertexShader(dev *Device) *Resource {
	h := dev.d.VertexShader()
	if h == 0 {
		return nil
	}
	return &Resource{dev: dev, kind: KindShader, h: h}
}

func DeviceGetPixelShader(dev *Device) *Resource {
	h := dev.d.PixelShader()
	if h == 0 {
		return nil
	}
	return &Resource{dev: dev, kind: KindShader, h: h}
}
