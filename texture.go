package metalgs

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/metalgs/internal/mtl"
)

// TextureFlags modify texture creation.
type TextureFlags uint32

const (
	// TextureBuildMipmaps requests a mip generation pass over the initial
	// data.
	TextureBuildMipmaps TextureFlags = 1 << iota

	// TextureDynamic marks a texture the host rewrites frequently.
	TextureDynamic

	// TextureRenderTarget makes the texture usable as a color attachment.
	TextureRenderTarget

	// TextureShared marks a texture backed by an externally owned
	// IOSurface.
	TextureShared
)

// Texture wraps one 2D or cube texture.
type Texture struct {
	dev    *Device
	kind   mtl.TextureKind
	width  int
	height int
	format ColorFormat
	levels int
	flags  TextureFlags

	tex     mtl.Texture
	surface mtl.IOSurface

	// mapped holds the level-0 download between Map and Unmap.
	mapped []byte
}

// CreateTexture2D creates a 2D texture and returns its handle. data, if
// non-nil, holds one byte slice per mip level, tightly packed, with
// width and height halving per level.
func (d *Device) CreateTexture2D(width, height int, format ColorFormat, levels int, data [][]byte, flags TextureFlags) (Handle, error) {
	t, err := d.newTexture(mtl.Texture2D, width, height, format, levels, flags)
	if err != nil {
		return 0, err
	}
	t.upload(0, data)
	if flags&TextureBuildMipmaps != 0 && t.levels > 1 {
		d.withBlit(func(enc mtl.BlitCommandEncoder) {
			enc.GenerateMipmaps(t.tex)
		})
	}
	return d.textures.Insert(t), nil
}

// CreateCubeTexture creates a cube texture of six square faces. data, if
// non-nil, holds the faces' mip chains in face-major order: 6*levels
// slices.
func (d *Device) CreateCubeTexture(size int, format ColorFormat, levels int, data [][]byte, flags TextureFlags) (Handle, error) {
	t, err := d.newTexture(mtl.TextureCube, size, size, format, levels, flags)
	if err != nil {
		return 0, err
	}
	for face := 0; face < 6; face++ {
		if len(data) < (face+1)*t.levels {
			break
		}
		t.upload(face, data[face*t.levels:(face+1)*t.levels])
	}
	if flags&TextureBuildMipmaps != 0 && t.levels > 1 {
		d.withBlit(func(enc mtl.BlitCommandEncoder) {
			enc.GenerateMipmaps(t.tex)
		})
	}
	return d.textures.Insert(t), nil
}

func (d *Device) newTexture(kind mtl.TextureKind, width, height int, format ColorFormat, levels int, flags TextureFlags) (*Texture, error) {
	pf := format.PixelFormat()
	if pf == mtl.PixelFormatInvalid {
		return nil, fmt.Errorf("texture format %d: %w", format, ErrUnsupportedFormat)
	}
	if levels < 1 {
		levels = 1
	}

	usage := gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst
	storage := mtl.StorageManaged
	if flags&TextureRenderTarget != 0 {
		usage |= gputypes.TextureUsageRenderAttachment
		storage = mtl.StoragePrivate
	}

	tex, err := d.dev.NewTexture(mtl.TextureDescriptor{
		Kind:      kind,
		Width:     width,
		Height:    height,
		Format:    pf,
		MipLevels: levels,
		Usage:     usage,
		Storage:   storage,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture: %w", err)
	}
	return &Texture{
		dev:    d,
		kind:   kind,
		width:  width,
		height: height,
		format: format,
		levels: levels,
		flags:  flags,
		tex:    tex,
	}, nil
}

// upload writes one slice's mip chain, halving dimensions per level.
func (t *Texture) upload(slice int, data [][]byte) {
	pf := t.format.PixelFormat()
	w, h := t.width, t.height
	for level := 0; level < t.levels && level < len(data); level++ {
		if data[level] != nil {
			region := mtl.Region{Width: w, Height: h}
			t.tex.ReplaceRegion(region, level, slice, data[level], pf.RowBytes(w))
		}
		if w > 1 {
			w /= 2
		}
		if h > 1 {
			h /= 2
		}
	}
}

// DestroyTexture releases the texture. An unknown handle is a soft
// failure.
func (d *Device) DestroyTexture(h Handle) {
	if d.state.renderTarget == h {
		d.state.renderTarget = 0
	}
	for i := range d.state.textures {
		if d.state.textures[i] == h {
			d.state.textures[i] = 0
		}
	}
	if !d.textures.Remove(h) {
		Logger().Warn("metalgs: destroy of invalid texture", "handle", h)
	}
}

// TextureKind returns the texture shape; 2D for unknown handles.
func (d *Device) TextureKind(h Handle) mtl.TextureKind {
	t, ok := d.textures.Lookup(h)
	if !ok {
		return mtl.Texture2D
	}
	return t.kind
}

// TextureObject returns the underlying Metal texture, nil for unknown
// handles. The host passes it to interop layers that consume native
// texture objects.
func (d *Device) TextureObject(h Handle) mtl.Texture {
	t, ok := d.textures.Lookup(h)
	if !ok {
		return nil
	}
	return t.tex
}

// TextureWidth returns the level-0 width, 0 for unknown handles.
func (d *Device) TextureWidth(h Handle) int {
	t, ok := d.textures.Lookup(h)
	if !ok {
		Logger().Warn("metalgs: get_width of invalid texture", "handle", h)
		return 0
	}
	return t.width
}

// TextureHeight returns the level-0 height, 0 for unknown handles.
func (d *Device) TextureHeight(h Handle) int {
	t, ok := d.textures.Lookup(h)
	if !ok {
		Logger().Warn("metalgs: get_height of invalid texture", "handle", h)
		return 0
	}
	return t.height
}

// TextureColorFormat returns the host format, unknown for unknown
// handles.
func (d *Device) TextureColorFormat(h Handle) ColorFormat {
	t, ok := d.textures.Lookup(h)
	if !ok {
		Logger().Warn("metalgs: get_color_format of invalid texture", "handle", h)
		return ColorFormatUnknown
	}
	return t.format
}

// MapTexture downloads the level-0 image of a 2D texture and returns the
// bytes with their row pitch. The bytes stay valid until UnmapTexture.
func (d *Device) MapTexture(h Handle) ([]byte, int, error) {
	t, ok := d.textures.Lookup(h)
	if !ok {
		return nil, 0, fmt.Errorf("map texture %d: %w", h, ErrInvalidHandle)
	}
	if t.kind != mtl.Texture2D {
		return nil, 0, fmt.Errorf("map texture %d: cube textures cannot be mapped", h)
	}

	d.withBlit(func(enc mtl.BlitCommandEncoder) {
		enc.Synchronize(t.tex)
	})

	pf := t.format.PixelFormat()
	pitch := pf.RowBytes(t.width)
	rows := (t.height + pf.BlockDim() - 1) / pf.BlockDim()
	if t.mapped == nil {
		t.mapped = make([]byte, pitch*rows)
	}
	t.tex.GetBytes(t.mapped, pitch, mtl.Region{Width: t.width, Height: t.height}, 0)
	return t.mapped, pitch, nil
}

// UnmapTexture re-uploads the bytes returned by MapTexture.
func (d *Device) UnmapTexture(h Handle) {
	t, ok := d.textures.Lookup(h)
	if !ok {
		Logger().Warn("metalgs: unmap of invalid texture", "handle", h)
		return
	}
	if t.mapped == nil {
		return
	}
	pf := t.format.PixelFormat()
	t.tex.ReplaceRegion(mtl.Region{Width: t.width, Height: t.height}, 0, 0, t.mapped, pf.RowBytes(t.width))
}

// CopyTexture copies the full source texture into the destination.
func (d *Device) CopyTexture(dst, src Handle) error {
	return d.CopyTextureRegion(dst, 0, 0, src, 0, 0, 0, 0)
}

// CopyTextureRegion copies a region of src into dst at (dstX, dstY). A
// zero width or height extends the region to the source's remainder.
// The destination must hold the region and share the source's pixel
// format; violations are contract errors.
func (d *Device) CopyTextureRegion(dst Handle, dstX, dstY int, src Handle, srcX, srcY, width, height int) error {
	st, ok := d.textures.Lookup(src)
	if !ok {
		return fmt.Errorf("copy from texture %d: %w", src, ErrInvalidHandle)
	}
	dt, ok := d.textures.Lookup(dst)
	if !ok {
		return fmt.Errorf("copy to texture %d: %w", dst, ErrInvalidHandle)
	}
	if st.format.PixelFormat() != dt.format.PixelFormat() {
		return fmt.Errorf("copy texture: %w", ErrFormatMismatch)
	}

	if width == 0 {
		width = st.width - srcX
	}
	if height == 0 {
		height = st.height - srcY
	}
	if srcX+width > st.width || srcY+height > st.height ||
		dstX+width > dt.width || dstY+height > dt.height {
		return fmt.Errorf("copy texture %dx%d at (%d,%d): %w", width, height, dstX, dstY, ErrCopyBounds)
	}

	d.withBlit(func(enc mtl.BlitCommandEncoder) {
		enc.CopyTexture(
			st.tex, 0, 0, gputypes.Origin3D{X: uint32(srcX), Y: uint32(srcY)},
			gputypes.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
			dt.tex, 0, 0, gputypes.Origin3D{X: uint32(dstX), Y: uint32(dstY)},
		)
	})
	return nil
}

// CreateTextureFromIOSurface wraps an externally owned surface in a
// texture. The surface's pixel format code selects the texture format.
func (d *Device) CreateTextureFromIOSurface(surface mtl.IOSurface) (Handle, error) {
	t, err := d.textureForSurface(surface)
	if err != nil {
		return 0, err
	}
	return d.textures.Insert(t), nil
}

// RebindIOSurface points an IOSurface-backed texture at a new surface,
// keeping its handle stable.
func (d *Device) RebindIOSurface(h Handle, surface mtl.IOSurface) error {
	t, ok := d.textures.Lookup(h)
	if !ok {
		return fmt.Errorf("rebind texture %d: %w", h, ErrInvalidHandle)
	}
	nt, err := d.textureForSurface(surface)
	if err != nil {
		return err
	}
	*t = *nt
	return nil
}

// OpenSharedTexture wraps the IOSurface with the given surface ID. It
// requires the DeviceOptions.OpenIOSurface hook.
func (d *Device) OpenSharedTexture(surfaceID uint32) (Handle, error) {
	if d.opts.OpenIOSurface == nil {
		return 0, fmt.Errorf("open shared texture: no IOSurface lookup configured")
	}
	surface, err := d.opts.OpenIOSurface(surfaceID)
	if err != nil {
		return 0, fmt.Errorf("open shared texture %d: %w", surfaceID, err)
	}
	return d.CreateTextureFromIOSurface(surface)
}

func (d *Device) textureForSurface(surface mtl.IOSurface) (*Texture, error) {
	pf := mtl.PixelFormatForFourCC(surface.FourCC())
	if pf == mtl.PixelFormatInvalid {
		return nil, fmt.Errorf("iosurface fourcc %#x: %w", surface.FourCC(), ErrUnsupportedFormat)
	}
	tex, err := d.dev.NewTextureFromIOSurface(surface, mtl.TextureDescriptor{
		Kind:      mtl.Texture2D,
		Width:     surface.Width(),
		Height:    surface.Height(),
		Format:    pf,
		MipLevels: 1,
		Usage:     gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopySrc,
		Storage:   mtl.StorageShared,
	})
	if err != nil {
		return nil, fmt.Errorf("wrap iosurface: %w", err)
	}
	return &Texture{
		dev:     d,
		kind:    mtl.Texture2D,
		width:   surface.Width(),
		height:  surface.Height(),
		format:  colorFormatFor(pf),
		levels:  1,
		flags:   TextureShared,
		tex:     tex,
		surface: surface,
	}, nil
}

// withBlit runs fn on a blit encoder. Inside a scene the encoder records
// onto the active command buffer; outside, a one-shot buffer is
// committed and waited on so the copy is complete on return.
func (d *Device) withBlit(fn func(enc mtl.BlitCommandEncoder)) {
	if d.cmdBuffer != nil {
		enc := d.cmdBuffer.BlitCommandEncoder()
		fn(enc)
		enc.EndEncoding()
		return
	}
	cb := d.queue.CommandBuffer()
	enc := cb.BlitCommandEncoder()
	fn(enc)
	enc.EndEncoding()
	cb.Commit()
	cb.WaitUntilCompleted()
}
