package hostapi

import (
	"golang.org/x/image/math/f32"

	"github.com/gogpu/metalgs"
	"github.com/gogpu/metalgs/msl"
)

// Shader parameters cross the boundary as *metalgs.ShaderParam directly;
// descriptors have stable addresses for a shader's lifetime, so no
// wrapper is needed.

func ShaderGetNumParams(s *Resource) int {
	if s == nil {
		return 0
	}
	return s.dev.d.ParamCount(s.h)
}

func ShaderGetParamByIdx(s *Resource, index int) *metalgs.ShaderParam {
	if s == nil {
		return nil
	}
	return s.dev.d.ParamByIndex(s.h, index)
}

func ShaderGetParamByName(s *Resource, name string) *metalgs.ShaderParam {
	if s == nil {
		return nil
	}
	return s.dev.d.ParamByName(s.h, name)
}

func ShaderGetViewProjMatrix(s *Resource) *metalgs.ShaderParam {
	if s == nil {
		return nil
	}
	return s.dev.d.ViewProjParam(s.h)
}

func ShaderGetWorldMatrix(s *Resource) *metalgs.ShaderParam {
	if s == nil {
		return nil
	}
	return s.dev.d.WorldParam(s.h)
}

// ParamInfo is the host-visible description of one parameter.
type ParamInfo struct {
	Name string
	Type msl.ParamType
}

func ShaderGetParamInfo(p *metalgs.ShaderParam) ParamInfo {
	if p == nil {
		return ParamInfo{}
	}
	return ParamInfo{Name: p.Name, Type: p.Type}
}

func ShaderSetBool(p *metalgs.ShaderParam, v bool) {
	if p != nil {
		p.SetBool(v)
	}
}

func ShaderSetFloat(p *metalgs.ShaderParam, v float32) {
	if p != nil {
		p.SetFloat(v)
	}
}

func ShaderSetInt(p *metalgs.ShaderParam, v int32) {
	if p != nil {
		p.SetInt(v)
	}
}

func ShaderSetMatrix3(p *metalgs.ShaderParam, v f32.Mat3) {
	if p != nil {
		p.SetMat3(v)
	}
}

func ShaderSetMatrix4(p *metalgs.ShaderParam, v f32.Mat4) {
	if p != nil {
		p.SetMat4(v)
	}
}

func ShaderSetVec2(p *metalgs.ShaderParam, v f32.Vec2) {
	if p != nil {
		p.SetVec2(v)
	}
}

func ShaderSetVec3(p *metalgs.ShaderParam, v f32.Vec3) {
	if p != nil {
		p.SetVec3(v)
	}
}

func ShaderSetVec4(p *metalgs.ShaderParam, v f32.Vec4) {
	if p != nil {
		p.SetVec4(v)
	}
}

func ShaderSetTexture(p *metalgs.ShaderParam, tex *Resource) {
	if p == nil {
		return
	}
	p.SetTexture(handleOf(tex, KindTexture))
}

func ShaderSetVal(p *metalgs.ShaderParam, data []byte) {
	if p != nil {
		p.SetValue(data)
	}
}

func ShaderSetDefault(p *metalgs.ShaderParam) {
	if p != nil {
		p.SetDefault()
	}
}

func ShaderSetNextSampler(p *metalgs.ShaderParam, ss *Resource) {
	if p == nil {
		return
	}
	p.SetNextSampler(handleOf(ss, KindSamplerState))
}
