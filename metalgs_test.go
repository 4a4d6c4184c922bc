package metalgs

import (
	"encoding/binary"
	"math"
	"testing"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/metalgs/internal/mtl/mtltest"
	"github.com/gogpu/metalgs/msl"
)

// tokenize produces the token stream the external lexer would hand
// over for a shader body.
func tokenize(src string) []msl.Token {
	var toks []msl.Token
	i := 0
	isIdent := func(b byte, first bool) bool {
		switch {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b == '_':
			return true
		case b >= '0' && b <= '9':
			return !first
		}
		return false
	}
	for i < len(src) {
		b := src[i]
		switch {
		case b == '\n':
			toks = append(toks, msl.Token{Kind: msl.TokenNewline, Text: "\n"})
			i++
		case b == ' ' || b == '\t':
			j := i
			for j < len(src) && (src[j] == ' ' || src[j] == '\t') {
				j++
			}
			toks = append(toks, msl.Token{Kind: msl.TokenSpacetab, Text: src[i:j]})
			i = j
		case isIdent(b, true):
			j := i
			for j < len(src) && isIdent(src[j], false) {
				j++
			}
			toks = append(toks, msl.Token{Kind: msl.TokenName, Text: src[i:j]})
			i = j
		case b >= '0' && b <= '9':
			j := i
			for j < len(src) && src[j] >= '0' && src[j] <= '9' {
				j++
			}
			toks = append(toks, msl.Token{Kind: msl.TokenOther, Text: src[i:j]})
			i = j
		default:
			toks = append(toks, msl.Token{Kind: msl.TokenOther, Text: src[i : i+1]})
			i++
		}
	}
	return toks
}

// quadVertexSource is a pass-through vertex shader consuming positions
// and one texcoord stream.
func quadVertexSource() *msl.Shader {
	return &msl.Shader{
		Kind: msl.VertexShader,
		Uniforms: []*msl.Uniform{
			{Name: "ViewProj", Type: "float4x4"},
		},
		Structs: []*msl.Struct{
			{Name: "VertInOut", Fields: []msl.StructField{
				{Name: "pos", Type: "float4", Mapping: "POSITION"},
				{Name: "uv", Type: "float2", Mapping: "TEXCOORD0"},
			}},
		},
		Functions: []*msl.Function{
			{
				Name:       "main",
				ReturnType: "VertInOut",
				Params:     []msl.Param{{Name: "vert_in", Type: "VertInOut"}},
				Body: tokenize("\n\tVertInOut vert_out;\n" +
					"\tvert_out.pos = mul(float4(vert_in.pos.xyz, 1.0), ViewProj);\n" +
					"\tvert_out.uv = vert_in.uv;\n" +
					"\treturn vert_out;\n"),
			},
		},
	}
}

// quadFragmentSource samples one texture through one declared sampler.
func quadFragmentSource() *msl.Shader {
	return &msl.Shader{
		Kind: msl.FragmentShader,
		Uniforms: []*msl.Uniform{
			{Name: "image", Type: "texture2d"},
		},
		Structs: []*msl.Struct{
			{Name: "VertInOut", Fields: []msl.StructField{
				{Name: "pos", Type: "float4", Mapping: "POSITION"},
				{Name: "uv", Type: "float2", Mapping: "TEXCOORD0"},
			}},
		},
		Samplers: []*msl.Sampler{
			{Name: "def_sampler", Info: msl.SamplerInfo{Filter: msl.FilterLinear}},
		},
		Functions: []*msl.Function{
			{
				Name:       "main",
				ReturnType: "float4",
				Mapping:    "TARGET",
				Params:     []msl.Param{{Name: "vert_in", Type: "VertInOut"}},
				Body:       tokenize("\n\treturn image.Sample(def_sampler, vert_in.uv);\n"),
			},
		},
	}
}

func quadVertexData() *VertexData {
	return &VertexData{
		Points: []f32.Vec4{
			{-1, -1, 0, 1},
			{1, -1, 0, 1},
			{-1, 1, 0, 1},
			{1, 1, 0, 1},
		},
		TexCoords: []TexCoordArray{
			{Width: 2, Data: []float32{0, 0, 1, 0, 0, 1, 1, 1}},
		},
	}
}

func float32FromBytes(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func newTestDevice(t *testing.T) (*Device, *mtltest.Device) {
	t.Helper()
	fake := mtltest.NewDevice()
	d, err := NewDevice(fake, DeviceOptions{})
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	return d, fake
}

// quadScene binds everything a draw needs: an offscreen render target,
// a static quad vertex buffer and the pass-through shader pair.
func quadScene(t *testing.T, d *Device) (rt, vb, vs, fs Handle) {
	t.Helper()
	rt, err := d.CreateTexture2D(4, 4, ColorFormatRGBA, 1, nil, TextureRenderTarget)
	if err != nil {
		t.Fatalf("CreateTexture2D: %v", err)
	}
	vb, err = d.CreateVertexBuffer(quadVertexData(), false)
	if err != nil {
		t.Fatalf("CreateVertexBuffer: %v", err)
	}
	vs, err = d.CreateVertexShader(quadVertexSource())
	if err != nil {
		t.Fatalf("CreateVertexShader: %v", err)
	}
	fs, err = d.CreatePixelShader(quadFragmentSource())
	if err != nil {
		t.Fatalf("CreatePixelShader: %v", err)
	}
	d.SetRenderTarget(rt, 0)
	d.LoadVertexBuffer(vb)
	d.LoadVertexShader(vs)
	d.LoadPixelShader(fs)
	return rt, vb, vs, fs
}
