package metalgs

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/metalgs/internal/mtl"
)

// StageSurface is a CPU-readable 2D surface used to download texture
// contents.
type StageSurface struct {
	tex    mtl.Texture
	format ColorFormat
	width  int
	height int

	mapped []byte
}

// CreateStageSurface creates a stage surface and returns its handle.
func (d *Device) CreateStageSurface(width, height int, format ColorFormat) (Handle, error) {
	pf := format.PixelFormat()
	if pf == mtl.PixelFormatInvalid {
		return 0, fmt.Errorf("stage surface format %d: %w", format, ErrUnsupportedFormat)
	}
	tex, err := d.dev.NewTexture(mtl.TextureDescriptor{
		Kind:      mtl.Texture2D,
		Width:     width,
		Height:    height,
		Format:    pf,
		MipLevels: 1,
		Usage:     gputypes.TextureUsageCopyDst,
		Storage:   mtl.StorageManaged,
	})
	if err != nil {
		return 0, fmt.Errorf("create stage surface: %w", err)
	}
	ss := &StageSurface{tex: tex, format: format, width: width, height: height}
	return d.stageSurfaces.Insert(ss), nil
}

// DestroyStageSurface releases the surface. An unknown handle is a soft
// failure.
func (d *Device) DestroyStageSurface(h Handle) {
	if !d.stageSurfaces.Remove(h) {
		Logger().Warn("metalgs: destroy of invalid stage surface", "handle", h)
	}
}

// StageTexture copies a texture into a stage surface so a later map can
// read it back.
func (d *Device) StageTexture(dst Handle, src Handle) error {
	ss, ok := d.stageSurfaces.Lookup(dst)
	if !ok {
		return fmt.Errorf("stage to surface %d: %w", dst, ErrInvalidHandle)
	}
	t, ok := d.textures.Lookup(src)
	if !ok {
		return fmt.Errorf("stage texture %d: %w", src, ErrInvalidHandle)
	}
	if t.width > ss.width || t.height > ss.height {
		return fmt.Errorf("stage %dx%d into %dx%d: %w", t.width, t.height, ss.width, ss.height, ErrCopyBounds)
	}

	d.withBlit(func(enc mtl.BlitCommandEncoder) {
		enc.CopyTexture(
			t.tex, 0, 0, gputypes.Origin3D{},
			gputypes.Extent3D{Width: uint32(t.width), Height: uint32(t.height), DepthOrArrayLayers: 1},
			ss.tex, 0, 0, gputypes.Origin3D{},
		)
		enc.Synchronize(ss.tex)
	})
	return nil
}

// MapStageSurface downloads the surface contents and returns the bytes
// with their row pitch. The bytes stay valid until UnmapStageSurface.
func (d *Device) MapStageSurface(h Handle) ([]byte, int, error) {
	ss, ok := d.stageSurfaces.Lookup(h)
	if !ok {
		return nil, 0, fmt.Errorf("map stage surface %d: %w", h, ErrInvalidHandle)
	}
	pf := ss.format.PixelFormat()
	pitch := pf.RowBytes(ss.width)
	rows := (ss.height + pf.BlockDim() - 1) / pf.BlockDim()
	if ss.mapped == nil {
		ss.mapped = make([]byte, pitch*rows)
	}
	ss.tex.GetBytes(ss.mapped, pitch, mtl.Region{Width: ss.width, Height: ss.height}, 0)
	return ss.mapped, pitch, nil
}

// UnmapStageSurface ends a map. The download scratch stays allocated for
// the next map.
func (d *Device) UnmapStageSurface(h Handle) {
	if _, ok := d.stageSurfaces.Lookup(h); !ok {
		Logger().Warn("metalgs: unmap of invalid stage surface", "handle", h)
	}
}

// StageSurfaceWidth returns the surface width, 0 for unknown handles.
func (d *Device) StageSurfaceWidth(h Handle) int {
	ss, ok := d.stageSurfaces.Lookup(h)
	if !ok {
		return 0
	}
	return ss.width
}

// StageSurfaceHeight returns the surface height, 0 for unknown handles.
func (d *Device) StageSurfaceHeight(h Handle) int {
	ss, ok := d.stageSurfaces.Lookup(h)
	if !ok {
		return 0
	}
	return ss.height
}

// StageSurfaceColorFormat returns the surface format, unknown for
// unknown handles.
func (d *Device) StageSurfaceColorFormat(h Handle) ColorFormat {
	ss, ok := d.stageSurfaces.Lookup(h)
	if !ok {
		return ColorFormatUnknown
	}
	return ss.format
}
