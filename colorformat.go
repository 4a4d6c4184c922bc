package metalgs

import "github.com/gogpu/metalgs/internal/mtl"

// ColorFormat enumerates the host's texture color formats.
type ColorFormat uint8

const (
	ColorFormatUnknown ColorFormat = iota
	ColorFormatA8
	ColorFormatR8
	ColorFormatRGBA
	ColorFormatBGRX
	ColorFormatBGRA
	ColorFormatR10G10B10A2
	ColorFormatRGBA16
	ColorFormatR16
	ColorFormatRGBA16F
	ColorFormatRGBA32F
	ColorFormatRG16F
	ColorFormatRG32F
	ColorFormatR16F
	ColorFormatR32F
	ColorFormatDXT1
	ColorFormatDXT3
	ColorFormatDXT5
	ColorFormatR8G8
)

// PixelFormat maps the host format onto the Metal pixel format. Unknown
// formats map to mtl.PixelFormatInvalid.
func (f ColorFormat) PixelFormat() mtl.PixelFormat {
	switch f {
	case ColorFormatA8:
		return mtl.PixelFormatA8Unorm
	case ColorFormatR8:
		return mtl.PixelFormatR8Unorm
	case ColorFormatRGBA:
		return mtl.PixelFormatRGBA8Unorm
	case ColorFormatBGRX, ColorFormatBGRA:
		return mtl.PixelFormatBGRA8Unorm
	case ColorFormatR10G10B10A2:
		return mtl.PixelFormatRGB10A2Unorm
	case ColorFormatRGBA16:
		return mtl.PixelFormatRGBA16Unorm
	case ColorFormatR16:
		return mtl.PixelFormatR16Unorm
	case ColorFormatRGBA16F:
		return mtl.PixelFormatRGBA16Float
	case ColorFormatRGBA32F:
		return mtl.PixelFormatRGBA32Float
	case ColorFormatRG16F:
		return mtl.PixelFormatRG16Float
	case ColorFormatRG32F:
		return mtl.PixelFormatRG32Float
	case ColorFormatR16F:
		return mtl.PixelFormatR16Float
	case ColorFormatR32F:
		return mtl.PixelFormatR32Float
	case ColorFormatDXT1:
		return mtl.PixelFormatBC1RGBA
	case ColorFormatDXT3:
		return mtl.PixelFormatBC2RGBA
	case ColorFormatDXT5:
		return mtl.PixelFormatBC3RGBA
	case ColorFormatR8G8:
		return mtl.PixelFormatRG8Unorm
	default:
		return mtl.PixelFormatInvalid
	}
}

// colorFormatFor inverts the host mapping for textures adopted from the
// driver, such as drawables and IOSurface-backed textures.
func colorFormatFor(f mtl.PixelFormat) ColorFormat {
	switch f {
	case mtl.PixelFormatA8Unorm:
		return ColorFormatA8
	case mtl.PixelFormatR8Unorm:
		return ColorFormatR8
	case mtl.PixelFormatRGBA8Unorm:
		return ColorFormatRGBA
	case mtl.PixelFormatBGRA8Unorm:
		return ColorFormatBGRA
	case mtl.PixelFormatRGB10A2Unorm, mtl.PixelFormatBGR10A2Unorm:
		return ColorFormatR10G10B10A2
	case mtl.PixelFormatRGBA16Unorm:
		return ColorFormatRGBA16
	case mtl.PixelFormatR16Unorm:
		return ColorFormatR16
	case mtl.PixelFormatRGBA16Float:
		return ColorFormatRGBA16F
	case mtl.PixelFormatRGBA32Float:
		return ColorFormatRGBA32F
	case mtl.PixelFormatRG16Float:
		return ColorFormatRG16F
	case mtl.PixelFormatRG32Float:
		return ColorFormatRG32F
	case mtl.PixelFormatR16Float:
		return ColorFormatR16F
	case mtl.PixelFormatR32Float:
		return ColorFormatR32F
	case mtl.PixelFormatBC1RGBA:
		return ColorFormatDXT1
	case mtl.PixelFormatBC2RGBA:
		return ColorFormatDXT3
	case mtl.PixelFormatBC3RGBA:
		return ColorFormatDXT5
	case mtl.PixelFormatRG8Unorm:
		return ColorFormatR8G8
	default:
		return ColorFormatUnknown
	}
}

// ZStencilFormat enumerates the host's depth-stencil formats.
type ZStencilFormat uint8

const (
	ZStencilNone ZStencilFormat = iota
	ZStencilZ16
	ZStencilZ24S8
	ZStencilZ32F
	ZStencilZ32FS8X24
)

// PixelFormat maps the host depth-stencil format onto the Metal pixel
// format.
func (f ZStencilFormat) PixelFormat() mtl.PixelFormat {
	switch f {
	case ZStencilZ16:
		return mtl.PixelFormatDepth16Unorm
	case ZStencilZ24S8:
		return mtl.PixelFormatDepth24UnormStencil8
	case ZStencilZ32F:
		return mtl.PixelFormatDepth32Float
	case ZStencilZ32FS8X24:
		return mtl.PixelFormatDepth32FloatStencil8
	default:
		return mtl.PixelFormatInvalid
	}
}
