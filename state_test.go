package metalgs

import (
	"testing"

	"github.com/gogpu/gputypes"
)

func TestDefaultState(t *testing.T) {
	s := defaultDeviceState()

	if !s.blendEnabled {
		t.Error("blending should default on")
	}
	if s.blend.SrcRGB != gputypes.BlendFactorSrcAlpha || s.blend.DstRGB != gputypes.BlendFactorOneMinusSrcAlpha {
		t.Error("default blend is not src-alpha over")
	}
	if s.colorWriteMask != gputypes.ColorWriteMaskAll {
		t.Error("default write mask should cover all channels")
	}
	if s.cullMode != gputypes.CullModeBack {
		t.Error("default cull mode should be back")
	}
	if s.depthTestEnabled {
		t.Error("depth test should default off")
	}
	if s.depthCompare != gputypes.CompareFunctionLessEqual {
		t.Error("default depth compare should be less-equal")
	}
	if !s.depthWriteEnabled {
		t.Error("depth writes should default on")
	}
	if s.frontStencil.Compare != gputypes.CompareFunctionAlways {
		t.Error("default stencil compare should be always")
	}
	if s.frontStencil.ReadMask != 0xFFFFFFFF || s.frontStencil.WriteMask != 0xFFFFFFFF {
		t.Error("default stencil masks should be full")
	}
	if s.projection != identityMat4 {
		t.Error("default projection should be identity")
	}
}

func TestEnableColor(t *testing.T) {
	d, _ := newTestDevice(t)

	d.EnableColor(true, false, true, false)
	want := gputypes.ColorWriteMaskRed | gputypes.ColorWriteMaskBlue
	if d.state.colorWriteMask != want {
		t.Errorf("mask = %v, want red|blue", d.state.colorWriteMask)
	}

	d.EnableColor(false, false, false, false)
	if d.state.colorWriteMask != 0 {
		t.Error("all-false should zero the mask")
	}
}

func TestEnableStencilWriteTogglesMasks(t *testing.T) {
	d, _ := newTestDevice(t)

	d.EnableStencilWrite(false)
	if d.state.frontStencil.WriteMask != 0 || d.state.backStencil.WriteMask != 0 {
		t.Error("disabling stencil writes should zero the write masks")
	}
	d.EnableStencilWrite(true)
	if d.state.frontStencil.WriteMask != 0xFFFFFFFF {
		t.Error("enabling stencil writes should restore full masks")
	}
}

func TestSetStencilPerFace(t *testing.T) {
	d, _ := newTestDevice(t)

	d.SetStencilFunction(StencilFront, gputypes.CompareFunctionLess)
	if d.state.frontStencil.Compare != gputypes.CompareFunctionLess {
		t.Error("front compare not set")
	}
	if d.state.backStencil.Compare != gputypes.CompareFunctionAlways {
		t.Error("back compare must be untouched")
	}

	d.SetStencilOp(StencilBoth, gputypes.StencilOperationZero, gputypes.StencilOperationKeep, gputypes.StencilOperationReplace)
	if d.state.frontStencil.PassOp != gputypes.StencilOperationReplace || d.state.backStencil.PassOp != gputypes.StencilOperationReplace {
		t.Error("both-face op not applied to both faces")
	}
}

func TestSetRenderTargetValidation(t *testing.T) {
	d, _ := newTestDevice(t)
	rt, err := d.CreateTexture2D(4, 4, ColorFormatRGBA, 1, nil, TextureRenderTarget)
	if err != nil {
		t.Fatal(err)
	}

	d.SetRenderTarget(rt, 0)
	if d.RenderTarget() != rt {
		t.Fatal("render target not bound")
	}

	// Unknown handles keep the previous binding.
	d.SetRenderTarget(9999, 0)
	if d.RenderTarget() != rt {
		t.Error("invalid target must not replace the binding")
	}

	// An unknown zstencil binds the color target with no depth.
	d.SetRenderTarget(rt, 9999)
	if d.ZStencilTarget() != 0 {
		t.Error("invalid zstencil must bind as none")
	}

	// Zero resets both slots.
	d.SetRenderTarget(0, 0)
	if d.RenderTarget() != 0 || d.ZStencilTarget() != 0 {
		t.Error("zero target must reset both attachments")
	}
}

func TestLoadPixelShaderResetsHighTextureUnits(t *testing.T) {
	d, _ := newTestDevice(t)
	_, _, _, fs := quadScene(t, d)

	tex, err := d.CreateTexture2D(2, 2, ColorFormatRGBA, 1, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < maxTextureSlots; i++ {
		d.LoadTexture(tex, i)
	}

	// The quad shader consumes one texture; reloading it must drop the
	// units beyond its binding count.
	d.LoadPixelShader(fs)
	if d.state.textures[0] != tex {
		t.Error("unit 0 must survive")
	}
	for i := 1; i < maxTextureSlots; i++ {
		if d.state.textures[i] != 0 {
			t.Errorf("unit %d must be reset", i)
		}
	}
}

func TestLoadVertexShaderRejectsKindMismatch(t *testing.T) {
	d, _ := newTestDevice(t)
	_, _, vs, fs := quadScene(t, d)

	d.LoadVertexShader(fs)
	if d.state.vertexShader != vs {
		t.Error("loading a fragment shader as vertex must keep the prior binding")
	}
	d.LoadPixelShader(vs)
	if d.state.fragmentShader != fs {
		t.Error("loading a vertex shader as pixel must keep the prior binding")
	}
}

func TestLoadTextureUnitRange(t *testing.T) {
	d, _ := newTestDevice(t)
	tex, err := d.CreateTexture2D(2, 2, ColorFormatRGBA, 1, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	d.LoadTexture(tex, maxTextureSlots)
	d.LoadTexture(tex, -1)
	for i := range d.state.textures {
		if d.state.textures[i] != 0 {
			t.Fatalf("out-of-range unit wrote slot %d", i)
		}
	}
}

func TestDestroyUnbindsState(t *testing.T) {
	d, _ := newTestDevice(t)
	rt, vb, vs, fs := quadScene(t, d)

	d.DestroyVertexBuffer(vb)
	if d.state.vertexBuffer != 0 {
		t.Error("destroy must unbind the vertex buffer")
	}
	d.DestroyShader(vs)
	d.DestroyShader(fs)
	if d.state.vertexShader != 0 || d.state.fragmentShader != 0 {
		t.Error("destroy must unbind shaders")
	}
	d.DestroyTexture(rt)
	if d.state.renderTarget != 0 {
		t.Error("destroy must unbind the render target")
	}
}
