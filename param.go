package metalgs

import (
	"encoding/binary"
	"math"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/metalgs/msl"
)

// ShaderParam is one uniform of a compiled shader. Value setters store
// bytes on the CPU side; the next draw packs dirty values into the
// shader's uniform block.
type ShaderParam struct {
	Name string
	Type msl.ParamType

	// offset is the byte offset in the uniform block, -1 for texture
	// uniforms.
	offset      int
	textureSlot int
	arrayCount  int

	cur   []byte
	def   []byte
	dirty bool

	texture     Handle
	nextSampler Handle
}

// ArrayCount returns the declared element count, 0 for non-arrays.
func (p *ShaderParam) ArrayCount() int { return p.arrayCount }

// ParamCount returns the number of uniforms in a shader, 0 for unknown
// handles.
func (d *Device) ParamCount(shader Handle) int {
	s, ok := d.shaders.Lookup(shader)
	if !ok {
		return 0
	}
	return len(s.params)
}

// ParamByIndex returns a shader's uniform by declaration order, nil
// when out of range.
func (d *Device) ParamByIndex(shader Handle, index int) *ShaderParam {
	s, ok := d.shaders.Lookup(shader)
	if !ok || index < 0 || index >= len(s.params) {
		return nil
	}
	return s.params[index]
}

// ParamByName returns a shader's uniform by name, nil when absent.
func (d *Device) ParamByName(shader Handle, name string) *ShaderParam {
	s, ok := d.shaders.Lookup(shader)
	if !ok {
		return nil
	}
	for _, p := range s.params {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// ViewProjParam returns a vertex shader's ViewProj uniform, nil when
// the shader does not declare one.
func (d *Device) ViewProjParam(shader Handle) *ShaderParam {
	s, ok := d.shaders.Lookup(shader)
	if !ok {
		return nil
	}
	return s.viewProj
}

// WorldParam returns a shader's World uniform, nil when the shader does
// not declare one.
func (d *Device) WorldParam(shader Handle) *ShaderParam {
	s, ok := d.shaders.Lookup(shader)
	if !ok {
		return nil
	}
	return s.world
}

func (p *ShaderParam) setBytes(b []byte) {
	p.cur = append(p.cur[:0], b...)
	p.dirty = true
}

// SetBool sets a bool uniform.
func (p *ShaderParam) SetBool(v bool) {
	var b byte
	if v {
		b = 1
	}
	p.setBytes([]byte{b})
}

// SetInt sets an int uniform.
func (p *ShaderParam) SetInt(v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	p.setBytes(b[:])
}

// SetFloat sets a float uniform.
func (p *ShaderParam) SetFloat(v float32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	p.setBytes(b[:])
}

func putFloats(dst []byte, vals []float32) {
	for i, v := range vals {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}

// SetVec2 sets a float2 uniform.
func (p *ShaderParam) SetVec2(v f32.Vec2) {
	var b [8]byte
	putFloats(b[:], v[:])
	p.setBytes(b[:])
}

// SetVec3 sets a float3 uniform.
func (p *ShaderParam) SetVec3(v f32.Vec3) {
	var b [12]byte
	putFloats(b[:], v[:])
	p.setBytes(b[:])
}

// SetVec4 sets a float4 uniform.
func (p *ShaderParam) SetVec4(v f32.Vec4) {
	var b [16]byte
	putFloats(b[:], v[:])
	p.setBytes(b[:])
}

// SetMat3 sets a matrix uniform from a 3x3 value, widened to 4x4 with
// an identity fourth row and column.
func (p *ShaderParam) SetMat3(v f32.Mat3) {
	m := identityMat4
	for row := 0; row < 3; row++ {
		copy(m[row*4:row*4+3], v[row*3:row*3+3])
	}
	p.SetMat4(m)
}

// SetMat4 sets a matrix uniform.
func (p *ShaderParam) SetMat4(v f32.Mat4) {
	var b [64]byte
	putFloats(b[:], v[:])
	p.setBytes(b[:])
}

// SetValue sets a uniform from raw bytes in uniform-block layout.
func (p *ShaderParam) SetValue(b []byte) {
	p.setBytes(b)
}

// SetDefault restores the uniform's declared default. A uniform with no
// default is left unchanged.
func (p *ShaderParam) SetDefault() {
	if p.def == nil {
		return
	}
	p.setBytes(p.def)
}

// SetTexture points a texture uniform at a texture handle. The next
// draw binds it at the uniform's slot.
func (p *ShaderParam) SetTexture(tex Handle) {
	p.texture = tex
	p.dirty = true
}

// SetNextSampler assigns the sampler state bound alongside the texture
// uniform on the next draw.
func (p *ShaderParam) SetNextSampler(sampler Handle) {
	p.nextSampler = sampler
}
