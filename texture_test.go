package metalgs

import (
	"bytes"
	"errors"
	"testing"
)

// quadPixels is a 2x2 RGBA image: red, green, blue, white.
func quadPixels() []byte {
	return []byte{
		0xFF, 0x00, 0x00, 0xFF, 0x00, 0xFF, 0x00, 0xFF,
		0x00, 0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	}
}

func TestTextureMapRoundTrip(t *testing.T) {
	d, _ := newTestDevice(t)
	pixels := quadPixels()

	tex, err := d.CreateTexture2D(2, 2, ColorFormatRGBA, 1, [][]byte{pixels}, 0)
	if err != nil {
		t.Fatalf("CreateTexture2D: %v", err)
	}

	data, pitch, err := d.MapTexture(tex)
	if err != nil {
		t.Fatalf("MapTexture: %v", err)
	}
	if pitch != 8 {
		t.Errorf("pitch = %d, want 8", pitch)
	}
	if !bytes.Equal(data, pixels) {
		t.Errorf("mapped bytes = % x, want % x", data, pixels)
	}
	d.UnmapTexture(tex)

	// Mapping again without intervening writes yields the same bytes.
	data, _, err = d.MapTexture(tex)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, pixels) {
		t.Error("second map returned different bytes")
	}
	d.UnmapTexture(tex)
}

func TestTextureMapWriteback(t *testing.T) {
	d, _ := newTestDevice(t)
	tex, err := d.CreateTexture2D(2, 2, ColorFormatRGBA, 1, [][]byte{quadPixels()}, TextureDynamic)
	if err != nil {
		t.Fatal(err)
	}

	data, _, err := d.MapTexture(tex)
	if err != nil {
		t.Fatal(err)
	}
	for i := range data {
		data[i] = 0xAA
	}
	d.UnmapTexture(tex)

	data, _, err = d.MapTexture(tex)
	if err != nil {
		t.Fatal(err)
	}
	for i, b := range data {
		if b != 0xAA {
			t.Fatalf("byte %d = %#x after writeback, want 0xAA", i, b)
		}
	}
	d.UnmapTexture(tex)
}

func TestCubeTextureRejectsMap(t *testing.T) {
	d, _ := newTestDevice(t)
	cube, err := d.CreateCubeTexture(4, ColorFormatRGBA, 1, nil, 0)
	if err != nil {
		t.Fatalf("CreateCubeTexture: %v", err)
	}
	if _, _, err := d.MapTexture(cube); err == nil {
		t.Error("mapping a cube texture must fail")
	}
}

func TestCopyTextureFormatMismatch(t *testing.T) {
	d, _ := newTestDevice(t)
	src, _ := d.CreateTexture2D(2, 2, ColorFormatRGBA, 1, nil, 0)
	dst, _ := d.CreateTexture2D(2, 2, ColorFormatR8, 1, nil, 0)

	if err := d.CopyTexture(dst, src); !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("copy across formats: got %v, want ErrFormatMismatch", err)
	}
}

func TestCopyTextureRegionBounds(t *testing.T) {
	d, _ := newTestDevice(t)
	src, _ := d.CreateTexture2D(4, 4, ColorFormatRGBA, 1, nil, 0)
	dst, _ := d.CreateTexture2D(2, 2, ColorFormatRGBA, 1, nil, 0)

	if err := d.CopyTextureRegion(dst, 0, 0, src, 0, 0, 4, 4); !errors.Is(err, ErrCopyBounds) {
		t.Errorf("oversized copy: got %v, want ErrCopyBounds", err)
	}
	if err := d.CopyTextureRegion(dst, 0, 0, src, 1, 1, 2, 2); err != nil {
		t.Errorf("in-bounds region copy: %v", err)
	}
}

func TestStageSurfaceDownload(t *testing.T) {
	d, _ := newTestDevice(t)
	pixels := quadPixels()
	tex, err := d.CreateTexture2D(2, 2, ColorFormatRGBA, 1, [][]byte{pixels}, 0)
	if err != nil {
		t.Fatal(err)
	}
	ss, err := d.CreateStageSurface(2, 2, ColorFormatRGBA)
	if err != nil {
		t.Fatal(err)
	}

	if err := d.StageTexture(ss, tex); err != nil {
		t.Fatalf("StageTexture: %v", err)
	}
	data, pitch, err := d.MapStageSurface(ss)
	if err != nil {
		t.Fatalf("MapStageSurface: %v", err)
	}
	if pitch != 8 {
		t.Errorf("pitch = %d, want 8", pitch)
	}
	if !bytes.Equal(data, pixels) {
		t.Errorf("staged bytes = % x, want % x", data, pixels)
	}
	d.UnmapStageSurface(ss)

	if d.StageSurfaceWidth(ss) != 2 || d.StageSurfaceHeight(ss) != 2 {
		t.Error("stage surface extent mismatch")
	}
	if d.StageSurfaceColorFormat(ss) != ColorFormatRGBA {
		t.Error("stage surface format mismatch")
	}
}

func TestStageTextureTooLarge(t *testing.T) {
	d, _ := newTestDevice(t)
	tex, _ := d.CreateTexture2D(4, 4, ColorFormatRGBA, 1, nil, 0)
	ss, _ := d.CreateStageSurface(2, 2, ColorFormatRGBA)

	if err := d.StageTexture(ss, tex); !errors.Is(err, ErrCopyBounds) {
		t.Errorf("oversized stage: got %v, want ErrCopyBounds", err)
	}
}

func TestTextureGetters(t *testing.T) {
	d, _ := newTestDevice(t)
	tex, err := d.CreateTexture2D(8, 4, ColorFormatBGRA, 1, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if d.TextureWidth(tex) != 8 || d.TextureHeight(tex) != 4 {
		t.Error("texture extent mismatch")
	}
	if d.TextureColorFormat(tex) != ColorFormatBGRA {
		t.Error("texture format mismatch")
	}
	if d.TextureWidth(12345) != 0 {
		t.Error("unknown handle must report zero width")
	}
}

func TestUnsupportedFormat(t *testing.T) {
	d, _ := newTestDevice(t)
	if _, err := d.CreateTexture2D(2, 2, ColorFormatUnknown, 1, nil, 0); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("unknown format: got %v, want ErrUnsupportedFormat", err)
	}
	if _, err := d.CreateStageSurface(2, 2, ColorFormatUnknown); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("unknown stage format: got %v, want ErrUnsupportedFormat", err)
	}
	if _, err := d.CreateZStencil(2, 2, ZStencilNone); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("no zstencil format: got %v, want ErrUnsupportedFormat", err)
	}
}
