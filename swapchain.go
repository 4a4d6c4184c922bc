package metalgs

import (
	"fmt"

	"github.com/gogpu/metalgs/internal/mtl"
)

// SwapChain binds a drawable-backed layer to a windowing-system view.
// Its render target is a texture handle that stays stable while the
// texture behind it is rebound to each frame's drawable.
type SwapChain struct {
	dev    *Device
	layer  mtl.Layer
	format ColorFormat
	width  int
	height int

	// target is the texture slot rebound to the current drawable.
	target   Handle
	drawable mtl.Drawable
}

// CreateSwapChain creates a layer on the given view and returns the swap
// chain's handle.
func (d *Device) CreateSwapChain(view uintptr, width, height int, format ColorFormat) (Handle, error) {
	pf := format.PixelFormat()
	if pf == mtl.PixelFormatInvalid {
		return 0, fmt.Errorf("swap chain format %d: %w", format, ErrUnsupportedFormat)
	}
	layer, err := d.dev.NewLayer(view, width, height, pf)
	if err != nil {
		return 0, fmt.Errorf("create swap chain: %w", err)
	}
	sc := &SwapChain{dev: d, layer: layer, format: format, width: width, height: height}

	// The target texture starts empty; LoadSwapChain points it at the
	// first drawable.
	sc.target = d.textures.Insert(&Texture{
		dev:    d,
		kind:   mtl.Texture2D,
		width:  width,
		height: height,
		format: format,
		levels: 1,
		flags:  TextureRenderTarget,
	})
	return d.swapChains.Insert(sc), nil
}

// DestroySwapChain releases the swap chain and its target texture slot.
// An unknown handle is a soft failure.
func (d *Device) DestroySwapChain(h Handle) {
	sc, ok := d.swapChains.Lookup(h)
	if !ok {
		Logger().Warn("metalgs: destroy of invalid swap chain", "handle", h)
		return
	}
	if d.curSwapChain == h {
		d.curSwapChain = 0
	}
	d.DestroyTexture(sc.target)
	d.swapChains.Remove(h)
}

// LoadSwapChain makes a swap chain current, acquires its next drawable
// and targets rendering at it.
func (d *Device) LoadSwapChain(h Handle) error {
	sc, ok := d.swapChains.Lookup(h)
	if !ok {
		return fmt.Errorf("load swap chain %d: %w", h, ErrInvalidHandle)
	}
	if sc.drawable == nil {
		drawable, err := sc.layer.NextDrawable()
		if err != nil {
			return fmt.Errorf("load swap chain %d: %w", h, err)
		}
		sc.drawable = drawable
		if t, ok := d.textures.Lookup(sc.target); ok {
			t.tex = drawable.Texture()
			t.width = sc.width
			t.height = sc.height
		}
	}
	d.curSwapChain = h
	d.state.renderTarget = sc.target
	d.state.zstencil = 0
	return nil
}

// Resize resizes the current swap chain's layer and drawable size.
func (d *Device) Resize(width, height int) {
	sc, ok := d.swapChains.Lookup(d.curSwapChain)
	if !ok {
		Logger().Warn("metalgs: resize with no current swap chain")
		return
	}
	sc.width = width
	sc.height = height
	sc.layer.SetDrawableSize(width, height)
	if t, ok := d.textures.Lookup(sc.target); ok {
		t.width = width
		t.height = height
	}
}

// Size returns the current swap chain's extent, zeros when none is
// loaded.
func (d *Device) Size() (width, height int) {
	sc, ok := d.swapChains.Lookup(d.curSwapChain)
	if !ok {
		return 0, 0
	}
	return sc.width, sc.height
}
