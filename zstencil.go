package metalgs

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/metalgs/internal/mtl"
)

// ZStencilBuffer is a depth-stencil attachment.
type ZStencilBuffer struct {
	tex    mtl.Texture
	format ZStencilFormat
	width  int
	height int
}

// CreateZStencil creates a depth-stencil attachment and returns its
// handle.
func (d *Device) CreateZStencil(width, height int, format ZStencilFormat) (Handle, error) {
	pf := format.PixelFormat()
	if pf == mtl.PixelFormatInvalid {
		return 0, fmt.Errorf("zstencil format %d: %w", format, ErrUnsupportedFormat)
	}
	tex, err := d.dev.NewTexture(mtl.TextureDescriptor{
		Kind:      mtl.Texture2D,
		Width:     width,
		Height:    height,
		Format:    pf,
		MipLevels: 1,
		Usage:     gputypes.TextureUsageRenderAttachment,
		Storage:   mtl.StoragePrivate,
	})
	if err != nil {
		return 0, fmt.Errorf("create zstencil: %w", err)
	}
	zb := &ZStencilBuffer{tex: tex, format: format, width: width, height: height}
	return d.zstencils.Insert(zb), nil
}

// DestroyZStencil releases the attachment. An unknown handle is a soft
// failure.
func (d *Device) DestroyZStencil(h Handle) {
	if d.state.zstencil == h {
		d.state.zstencil = 0
	}
	if !d.zstencils.Remove(h) {
		Logger().Warn("metalgs: destroy of invalid zstencil", "handle", h)
	}
}
