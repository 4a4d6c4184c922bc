package msl

import (
	"errors"
	"strings"
	"testing"
)

// tokenize produces the token stream the external lexer would hand over:
// identifier runs as Name tokens, digit runs and single punctuation
// characters as Other tokens, whitespace preserved.
func tokenize(src string) []Token {
	var toks []Token
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
			toks = append(toks, Token{Kind: TokenNewline, Text: "\n"})
			i++
		case b == ' ' || b == '\t':
			j := i
			for j < len(src) && (src[j] == ' ' || src[j] == '\t') {
				j++
			}
			toks = append(toks, Token{Kind: TokenSpacetab, Text: src[i:j]})
			i = j
		case isIdent(b, true):
			j := i
			for j < len(src) && isIdent(src[j], false) {
				j++
			}
			toks = append(toks, Token{Kind: TokenName, Text: src[i:j]})
			i = j
		case b >= '0' && b <= '9':
			j := i
			for j < len(src) && src[j] >= '0' && src[j] <= '9' {
				j++
			}
			toks = append(toks, Token{Kind: TokenOther, Text: src[i:j]})
			i = j
		default:
			toks = append(toks, Token{Kind: TokenOther, Text: src[i : i+1]})
			i++
		}
	}
	return toks
}

func mustContain(t *testing.T, src, want string) {
	t.Helper()
	if !strings.Contains(src, want) {
		t.Errorf("emitted source missing %q\n---\n%s", want, src)
	}
}

func defaultVertexShader() *Shader {
	return &Shader{
		Kind: VertexShader,
		Uniforms: []*Uniform{
			{Name: "ViewProj", Type: "float4x4"},
		},
		Structs: []*Struct{
			{Name: "VertInOut", Fields: []StructField{
				{Name: "pos", Type: "float4", Mapping: "POSITION"},
				{Name: "uv", Type: "float2", Mapping: "TEXCOORD0"},
			}},
		},
		Functions: []*Function{
			{
				Name:       "main",
				ReturnType: "VertInOut",
				Params:     []Param{{Name: "vert_in", Type: "VertInOut"}},
				Body: tokenize("\n\tVertInOut vert_out;\n" +
					"\tvert_out.pos = mul(float4(vert_in.pos.xyz, 1.0), ViewProj);\n" +
					"\tvert_out.uv = vert_in.uv;\n" +
					"\treturn vert_out;\n"),
			},
		},
	}
}

func defaultFragmentShader() *Shader {
	return &Shader{
		Kind: FragmentShader,
		Uniforms: []*Uniform{
			{Name: "image", Type: "texture2d"},
		},
		Structs: []*Struct{
			{Name: "VertInOut", Fields: []StructField{
				{Name: "pos", Type: "float4", Mapping: "POSITION"},
				{Name: "uv", Type: "float2", Mapping: "TEXCOORD0"},
			}},
		},
		Samplers: []*Sampler{
			{Name: "def_sampler", Info: SamplerInfo{Filter: FilterLinear}},
		},
		Functions: []*Function{
			{
				Name:       "main",
				ReturnType: "float4",
				Mapping:    "TARGET",
				Params:     []Param{{Name: "vert_in", Type: "VertInOut"}},
				Body:       tokenize("\n\treturn image.Sample(def_sampler, vert_in.uv);\n"),
			},
		},
	}
}

func TestVertexShaderTranslation(t *testing.T) {
	out, err := Transpile(defaultVertexShader())
	if err != nil {
		t.Fatalf("Transpile: %v", err)
	}
	if out.EntryPoint != "_main" {
		t.Errorf("EntryPoint = %q, want _main", out.EntryPoint)
	}

	mustContain(t, out.Source, "struct UniformData {\n    float4x4 ViewProj;\n};")
	mustContain(t, out.Source, "struct VertInOut_In {\n    float4 pos [[attribute(0)]];\n    float2 uv [[attribute(1)]];\n};")
	mustContain(t, out.Source, "struct VertInOut_Out {\n    float4 pos [[position]];\n    float2 uv [[user(TEXCOORD0)]];\n};")
	mustContain(t, out.Source, "vertex VertInOut_Out _main(VertInOut_In vert_in [[stage_in]], constant UniformData &uniforms [[buffer(30)]])")
	mustContain(t, out.Source, "VertInOut_Out vert_out;")
	mustContain(t, out.Source, "vert_out.pos = (float4(vert_in.pos.xyz, 1.0)) * (uniforms.ViewProj);")
	mustContain(t, out.Source, "return vert_out;")
}

func TestVertexShaderMetadata(t *testing.T) {
	out, err := Transpile(defaultVertexShader())
	if err != nil {
		t.Fatalf("Transpile: %v", err)
	}

	if out.UniformBlockSize != 64 {
		t.Errorf("UniformBlockSize = %d, want 64", out.UniformBlockSize)
	}
	if len(out.Uniforms) != 1 || out.Uniforms[0].Name != "ViewProj" ||
		out.Uniforms[0].Type != ParamMat4 || out.Uniforms[0].Offset != 0 {
		t.Errorf("Uniforms = %+v, want single ViewProj mat4 at offset 0", out.Uniforms)
	}

	if len(out.VertexLayout) != 2 {
		t.Fatalf("VertexLayout has %d entries, want 2", len(out.VertexLayout))
	}
	if out.VertexLayout[0].ArrayStride != 16 || out.VertexLayout[0].Attributes[0].ShaderLocation != 0 {
		t.Errorf("position layout = %+v", out.VertexLayout[0])
	}
	if out.VertexLayout[1].ArrayStride != 8 || out.VertexLayout[1].Attributes[0].ShaderLocation != 1 {
		t.Errorf("texcoord layout = %+v", out.VertexLayout[1])
	}

	want := []StreamUse{{Stream: StreamPosition, Count: 1}, {Stream: StreamTexcoord, Count: 1}}
	if len(out.Streams) != len(want) {
		t.Fatalf("Streams = %+v, want %+v", out.Streams, want)
	}
	for i := range want {
		if out.Streams[i] != want[i] {
			t.Errorf("Streams[%d] = %+v, want %+v", i, out.Streams[i], want[i])
		}
	}
}

func TestFragmentShaderTranslation(t *testing.T) {
	out, err := Transpile(defaultFragmentShader())
	if err != nil {
		t.Fatalf("Transpile: %v", err)
	}

	mustContain(t, out.Source, "struct VertInOut {\n    float4 pos [[position]];\n    float2 uv [[user(TEXCOORD0)]];\n};")
	mustContain(t, out.Source, "fragment float4 _main(VertInOut vert_in [[stage_in]], texture2d<float> image [[texture(0)]], sampler def_sampler [[sampler(0)]])")
	mustContain(t, out.Source, "return image.sample(def_sampler, vert_in.uv);")

	if strings.Contains(out.Source, "UniformData") {
		t.Error("texture-only shader emitted a uniform block")
	}
	if out.TextureCount != 1 {
		t.Errorf("TextureCount = %d, want 1", out.TextureCount)
	}
	if len(out.Samplers) != 1 {
		t.Fatalf("Samplers has %d entries, want 1", len(out.Samplers))
	}
	if len(out.Uniforms) != 1 || out.Uniforms[0].TextureSlot != 0 || out.Uniforms[0].Type != ParamTexture {
		t.Errorf("Uniforms = %+v, want image at texture slot 0", out.Uniforms)
	}
}

func TestTextureLoadRewrite(t *testing.T) {
	sh := defaultFragmentShader()
	sh.Functions[0].Body = tokenize("\n\treturn image.Load(int3(uv.x, uv.y, 0));\n")
	out, err := Transpile(sh)
	if err != nil {
		t.Fatalf("Transpile: %v", err)
	}
	mustContain(t, out.Source, "image.read(uint2(uv.x, uv.y), uint(0))")

	sh.Functions[0].Body = tokenize("\n\treturn image.Load(int2(x, y));\n")
	out, err = Transpile(sh)
	if err != nil {
		t.Fatalf("Transpile: %v", err)
	}
	mustContain(t, out.Source, "image.read(uint2(x, y), uint(0))")

	sh.Functions[0].Body = tokenize("\n\treturn image.Load(coords);\n")
	out, err = Transpile(sh)
	if err != nil {
		t.Fatalf("Transpile: %v", err)
	}
	mustContain(t, out.Source, "image.read(uint2((coords).xy), uint(0))")
}

func TestSampleVariants(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{"image.SampleBias(def_sampler, uv, 0.5)", "image.sample(def_sampler, uv, bias(0.5))"},
		{"image.SampleGrad(def_sampler, uv, dx, dy)", "image.sample(def_sampler, uv, gradient2d(dx, dy))"},
		{"image.SampleLevel(def_sampler, uv, 2.0)", "image.sample(def_sampler, uv, level(2.0))"},
	}
	for _, tt := range tests {
		sh := defaultFragmentShader()
		sh.Functions[0].Body = tokenize("\n\treturn " + tt.body + ";\n")
		out, err := Transpile(sh)
		if err != nil {
			t.Fatalf("Transpile(%s): %v", tt.body, err)
		}
		mustContain(t, out.Source, tt.want)
	}
}

func TestFloat3FragmentReturn(t *testing.T) {
	sh := defaultFragmentShader()
	sh.Functions[0].ReturnType = "float3"
	sh.Functions[0].Body = tokenize("\n\tfloat3 c = image.Sample(def_sampler, vert_in.uv).rgb;\n\treturn c;\n")
	out, err := Transpile(sh)
	if err != nil {
		t.Fatalf("Transpile: %v", err)
	}
	mustContain(t, out.Source, "fragment float4 _main(")
	mustContain(t, out.Source, "return float4(c, 1);")
}

func TestUniformLayoutPadding(t *testing.T) {
	sh := &Shader{
		Kind: VertexShader,
		Uniforms: []*Uniform{
			{Name: "a", Type: "float"},
			{Name: "b", Type: "float3"},
			{Name: "c", Type: "float"},
			{Name: "m", Type: "float4x4"},
		},
		Functions: []*Function{
			{Name: "main", ReturnType: "float4", Mapping: "POSITION",
				Params: []Param{{Name: "pos", Type: "float4", Mapping: "POSITION"}},
				Body:   tokenize("\n\treturn pos;\n")},
		},
	}
	out, err := Transpile(sh)
	if err != nil {
		t.Fatalf("Transpile: %v", err)
	}

	wantOffsets := map[string]int{"a": 0, "b": 4, "c": 16, "m": 32}
	for _, u := range out.Uniforms {
		if u.Offset != wantOffsets[u.Name] {
			t.Errorf("uniform %s offset = %d, want %d", u.Name, u.Offset, wantOffsets[u.Name])
		}
	}
	if out.UniformBlockSize != 96 {
		t.Errorf("UniformBlockSize = %d, want 96", out.UniformBlockSize)
	}

	// Identical uniform lists must produce identical layouts.
	again, err := Transpile(sh)
	if err != nil {
		t.Fatalf("Transpile (second run): %v", err)
	}
	for i := range out.Uniforms {
		if again.Uniforms[i].Offset != out.Uniforms[i].Offset {
			t.Errorf("layout not deterministic for %s", out.Uniforms[i].Name)
		}
	}
}

func TestIntrinsicRemaps(t *testing.T) {
	sh := defaultFragmentShader()
	sh.Functions[0].Body = tokenize("\n\tfloat2 g = frac(lerp(a, b, ddx(t)));\n" +
		"\tfloat4 m = mad(x, y, z);\n\treturn image.Sample(def_sampler, g);\n")
	out, err := Transpile(sh)
	if err != nil {
		t.Fatalf("Transpile: %v", err)
	}
	mustContain(t, out.Source, "fract(mix(a, b, dfdx(t)))")
	mustContain(t, out.Source, "((x) * (y)) + (z)")
}

func TestClipIsUnsupported(t *testing.T) {
	sh := defaultFragmentShader()
	sh.Functions[0].Body = tokenize("\n\tclip(v);\n\treturn image.Sample(def_sampler, uv);\n")
	_, err := Transpile(sh)
	if !errors.Is(err, ErrUnsupportedIntrinsic) {
		t.Errorf("Transpile error = %v, want ErrUnsupportedIntrinsic", err)
	}
}

func TestUnsupportedTypes(t *testing.T) {
	sh := defaultVertexShader()
	sh.Uniforms = append(sh.Uniforms, &Uniform{Name: "d", Type: "double"})
	if _, err := Transpile(sh); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("double uniform: error = %v, want ErrUnsupportedType", err)
	}

	sh = defaultVertexShader()
	sh.Functions[0].Body = tokenize("\n\tmin10float x;\n\treturn vert_in;\n")
	if _, err := Transpile(sh); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("min10float local: error = %v, want ErrUnsupportedType", err)
	}
}

func TestReducedPrecisionTypes(t *testing.T) {
	sh := defaultFragmentShader()
	sh.Functions[0].Body = tokenize("\n\tmin16float4 h = min16float4(0, 0, 0, 0);\n" +
		"\thalf2 f = half2(1, 1);\n\treturn image.Sample(def_sampler, f);\n")
	out, err := Transpile(sh)
	if err != nil {
		t.Fatalf("Transpile: %v", err)
	}
	mustContain(t, out.Source, "half4 h = half4(0, 0, 0, 0);")
	mustContain(t, out.Source, "float2 f = float2(1, 1);")
}

func TestHelperFunctionPropagation(t *testing.T) {
	sh := &Shader{
		Kind: FragmentShader,
		Uniforms: []*Uniform{
			{Name: "color", Type: "float4"},
			{Name: "image", Type: "texture2d"},
		},
		Structs: []*Struct{
			{Name: "VertInOut", Fields: []StructField{
				{Name: "pos", Type: "float4", Mapping: "POSITION"},
				{Name: "uv", Type: "float2", Mapping: "TEXCOORD0"},
			}},
		},
		Samplers: []*Sampler{
			{Name: "samp", Info: SamplerInfo{Filter: FilterLinear}},
		},
		Functions: []*Function{
			{
				Name:       "tint",
				ReturnType: "float4",
				Params:     []Param{{Name: "uv", Type: "float2"}},
				Body:       tokenize("\n\treturn image.Sample(samp, uv) * color;\n"),
			},
			{
				Name:       "main",
				ReturnType: "float4",
				Mapping:    "TARGET",
				Params:     []Param{{Name: "vert_in", Type: "VertInOut"}},
				Body:       tokenize("\n\treturn tint(vert_in.uv);\n"),
			},
		},
	}
	out, err := Transpile(sh)
	if err != nil {
		t.Fatalf("Transpile: %v", err)
	}

	mustContain(t, out.Source, "float4 tint(float2 uv, constant UniformData &uniforms, texture2d<float> image, sampler samp)")
	mustContain(t, out.Source, "return image.sample(samp, uv) * uniforms.color;")
	mustContain(t, out.Source, "fragment float4 _main(VertInOut vert_in [[stage_in]], constant UniformData &uniforms [[buffer(30)]], texture2d<float> image [[texture(0)]], sampler samp [[sampler(0)]])")
	mustContain(t, out.Source, "return tint(vert_in.uv, uniforms, image, samp);")
}

func TestComparatorWrap(t *testing.T) {
	sh := defaultFragmentShader()
	sh.Uniforms = append(sh.Uniforms, &Uniform{Name: "key", Type: "float4"})
	sh.Functions[0].Body = tokenize("\n\tfloat4 v = image.Sample(def_sampler, vert_in.uv);\n" +
		"\tif (v == key)\n\t\tdiscard_fragment();\n\treturn v;\n")
	out, err := Transpile(sh)
	if err != nil {
		t.Fatalf("Transpile: %v", err)
	}
	mustContain(t, out.Source, "if (all(v == uniforms.key))")
}

func TestObsGlslCompileIsFalse(t *testing.T) {
	sh := defaultVertexShader()
	sh.Functions[0].Body = tokenize("\n\tif (obs_glsl_compile)\n\t\treturn vert_in;\n\treturn vert_in;\n")
	out, err := Transpile(sh)
	if err != nil {
		t.Fatalf("Transpile: %v", err)
	}
	mustContain(t, out.Source, "if (false)")
}

func TestNoMainIsAnError(t *testing.T) {
	sh := &Shader{Kind: VertexShader, Functions: []*Function{
		{Name: "helper", ReturnType: "float4", Body: tokenize("return x;")},
	}}
	if _, err := Transpile(sh); !errors.Is(err, ErrNoMain) {
		t.Errorf("Transpile error = %v, want ErrNoMain", err)
	}
}

func TestVertexIDParameter(t *testing.T) {
	sh := &Shader{
		Kind: VertexShader,
		Structs: []*Struct{
			{Name: "VertOut", Fields: []StructField{
				{Name: "pos", Type: "float4", Mapping: "POSITION"},
			}},
		},
		Functions: []*Function{
			{
				Name:       "main",
				ReturnType: "VertOut",
				Params:     []Param{{Name: "id", Type: "uint", Mapping: "VERTEXID"}},
				Body:       tokenize("\n\tVertOut v;\n\treturn v;\n"),
			},
		},
	}
	out, err := Transpile(sh)
	if err != nil {
		t.Fatalf("Transpile: %v", err)
	}
	mustContain(t, out.Source, "vertex VertOut _main(uint id [[vertex_id]])")
	if len(out.VertexLayout) != 0 {
		t.Errorf("VertexLayout = %+v, want empty for generated vertices", out.VertexLayout)
	}
}
