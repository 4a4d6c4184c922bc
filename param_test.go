package metalgs

import (
	"testing"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/metalgs/msl"
)

func TestParamLookup(t *testing.T) {
	d, _ := newTestDevice(t)
	_, _, vs, fs := quadScene(t, d)

	if got := d.ParamCount(vs); got != 1 {
		t.Errorf("vertex param count = %d, want 1", got)
	}
	p := d.ParamByIndex(vs, 0)
	if p == nil || p.Name != "ViewProj" {
		t.Fatalf("ParamByIndex(0) = %+v, want ViewProj", p)
	}
	if p.Type != msl.ParamMat4 {
		t.Errorf("ViewProj type = %v, want mat4", p.Type)
	}
	if d.ParamByName(vs, "ViewProj") != p {
		t.Error("ParamByName must return the same descriptor")
	}
	if d.ParamByName(vs, "missing") != nil {
		t.Error("unknown name must return nil")
	}
	if d.ParamByIndex(vs, 5) != nil {
		t.Error("out-of-range index must return nil")
	}
	if d.ViewProjParam(vs) != p {
		t.Error("ViewProjParam must find the ViewProj uniform")
	}
	if d.WorldParam(vs) != nil {
		t.Error("shader without World must report nil")
	}

	img := d.ParamByName(fs, "image")
	if img == nil || img.Type != msl.ParamTexture {
		t.Fatalf("fragment image param = %+v", img)
	}
}

func TestParamSettersMarkDirty(t *testing.T) {
	p := &ShaderParam{Name: "x", Type: msl.ParamFloat}

	p.SetFloat(1.5)
	if !p.dirty {
		t.Fatal("setter must mark dirty")
	}
	if float32FromBytes(p.cur) != 1.5 {
		t.Errorf("cur = % x, want 1.5", p.cur)
	}

	p.dirty = false
	p.SetInt(-3)
	if !p.dirty || len(p.cur) != 4 {
		t.Error("SetInt must store 4 dirty bytes")
	}

	p.SetBool(true)
	if len(p.cur) != 1 || p.cur[0] != 1 {
		t.Errorf("SetBool stored % x", p.cur)
	}

	p.SetVec4(f32.Vec4{1, 2, 3, 4})
	if len(p.cur) != 16 || float32FromBytes(p.cur[12:]) != 4 {
		t.Errorf("SetVec4 stored % x", p.cur)
	}
}

func TestSetMat3Widens(t *testing.T) {
	p := &ShaderParam{Name: "m", Type: msl.ParamMat4}
	p.SetMat3(f32.Mat3{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	})
	if len(p.cur) != 64 {
		t.Fatalf("mat3 stored %d bytes, want 64", len(p.cur))
	}
	// Row 0 keeps its three values with a zero pad.
	if float32FromBytes(p.cur[0:]) != 1 || float32FromBytes(p.cur[8:]) != 3 || float32FromBytes(p.cur[12:]) != 0 {
		t.Error("row 0 not widened correctly")
	}
	// The fourth row is the identity's.
	if float32FromBytes(p.cur[60:]) != 1 {
		t.Error("m[15] must be 1")
	}
}

func TestSetDefaultRestores(t *testing.T) {
	def := []byte{1, 2, 3, 4}
	p := &ShaderParam{Name: "x", Type: msl.ParamInt, def: append([]byte(nil), def...)}

	p.SetInt(99)
	p.dirty = false
	p.SetDefault()
	if !p.dirty {
		t.Error("SetDefault must mark dirty")
	}
	for i, b := range def {
		if p.cur[i] != b {
			t.Fatalf("cur[%d] = %d, want %d", i, p.cur[i], b)
		}
	}

	// No declared default: value stays.
	q := &ShaderParam{Name: "y", Type: msl.ParamInt}
	q.SetInt(7)
	q.SetDefault()
	if len(q.cur) != 4 {
		t.Error("SetDefault without a default must keep the value")
	}
}

func TestDirtyParamsPackIntoScratch(t *testing.T) {
	d, _ := newTestDevice(t)
	_, _, vs, _ := quadScene(t, d)

	s, _ := d.shaders.Lookup(vs)
	p := d.ParamByName(vs, "ViewProj")
	m := identityMat4
	m[0] = 42
	p.SetMat4(m)

	s.writeDirtyParams()
	if p.dirty {
		t.Error("pack must clear the dirty flag")
	}
	if float32FromBytes(s.scratch[0:]) != 42 {
		t.Error("value not packed at offset 0")
	}

	// Clean parameters are not re-copied.
	s.scratch[0] = 0
	s.writeDirtyParams()
	if s.scratch[0] != 0 {
		t.Error("clean parameter must not repack")
	}
}

func TestTextureParamBindsAtDraw(t *testing.T) {
	d, fake := newTestDevice(t)
	quadScene(t, d)

	tex, err := d.CreateTexture2D(2, 2, ColorFormatRGBA, 1, [][]byte{quadPixels()}, 0)
	if err != nil {
		t.Fatal(err)
	}
	sampler, err := d.CreateSamplerState(msl.SamplerInfo{Filter: msl.FilterPoint})
	if err != nil {
		t.Fatal(err)
	}

	img := d.ParamByName(d.state.fragmentShader, "image")
	img.SetTexture(tex)
	img.SetNextSampler(sampler)

	d.BeginScene()
	if err := d.Draw(DrawTriangleStrip, 0, 4); err != nil {
		t.Fatal(err)
	}
	d.Flush()

	pass := fake.CommandBuffers[0].Passes[0]
	if pass.FragmentTextures[0] == nil {
		t.Error("texture uniform not bound at slot 0")
	}
	if pass.FragmentSamplers[0] == nil {
		t.Error("sampler not bound at slot 0")
	}
}
