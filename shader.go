package metalgs

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/metalgs/internal/mtl"
	"github.com/gogpu/metalgs/msl"
)

// Shader is a compiled vertex or fragment shader together with its
// binding metadata and CPU-side uniform state.
type Shader struct {
	dev  *Device
	kind msl.Kind
	lib  mtl.Library
	fn   mtl.Function

	params []*ShaderParam

	// scratch is the packed uniform block, blockSize bytes. Dirty
	// parameter values land here before a draw encodes it.
	scratch   []byte
	blockSize int

	// layouts and streams are the vertex input descriptor. Vertex
	// shaders only.
	layouts []gputypes.VertexBufferLayout
	streams []msl.StreamUse

	// samplers are the shader-declared sampler states in declaration
	// order. Fragment shaders only.
	samplers     []mtl.SamplerState
	textureCount int

	viewProj *ShaderParam
	world    *ShaderParam
}

// CreateVertexShader transpiles and compiles a vertex shader and
// returns its handle.
func (d *Device) CreateVertexShader(in *msl.Shader) (Handle, error) {
	in.Kind = msl.VertexShader
	return d.createShader(in)
}

// CreatePixelShader transpiles and compiles a fragment shader and
// returns its handle.
func (d *Device) CreatePixelShader(in *msl.Shader) (Handle, error) {
	in.Kind = msl.FragmentShader
	return d.createShader(in)
}

func (d *Device) createShader(in *msl.Shader) (Handle, error) {
	out, err := msl.Transpile(in)
	if err != nil {
		return 0, fmt.Errorf("transpile %v shader: %w", in.Kind, err)
	}
	lib, err := d.dev.NewLibrary(out.Source)
	if err != nil {
		Logger().Error("metalgs: shader compile failed", "kind", in.Kind.String(), "err", err)
		return 0, fmt.Errorf("compile %v shader: %w", in.Kind, err)
	}
	fn, err := lib.Function(out.EntryPoint)
	if err != nil {
		return 0, fmt.Errorf("entry point %s: %w", out.EntryPoint, err)
	}

	s := &Shader{
		dev:          d,
		kind:         in.Kind,
		lib:          lib,
		fn:           fn,
		scratch:      make([]byte, out.UniformBlockSize),
		blockSize:    out.UniformBlockSize,
		layouts:      out.VertexLayout,
		streams:      out.Streams,
		textureCount: out.TextureCount,
	}
	for _, desc := range out.Samplers {
		state, err := d.dev.NewSamplerState(desc)
		if err != nil {
			return 0, fmt.Errorf("shader sampler: %w", err)
		}
		s.samplers = append(s.samplers, state)
	}
	for _, u := range out.Uniforms {
		p := &ShaderParam{
			Name:        u.Name,
			Type:        u.Type,
			offset:      u.Offset,
			textureSlot: u.TextureSlot,
			arrayCount:  u.ArrayCount,
		}
		if len(u.DefaultValue) > 0 {
			p.def = append([]byte(nil), u.DefaultValue...)
			p.cur = append([]byte(nil), u.DefaultValue...)
			p.dirty = true
		}
		s.params = append(s.params, p)
		switch u.Name {
		case "ViewProj":
			s.viewProj = p
		case "World":
			s.world = p
		}
	}
	return d.shaders.Insert(s), nil
}

// DestroyShader releases the shader. An unknown handle is a soft
// failure.
func (d *Device) DestroyShader(h Handle) {
	if d.state.vertexShader == h {
		d.state.vertexShader = 0
	}
	if d.state.fragmentShader == h {
		d.state.fragmentShader = 0
	}
	if !d.shaders.Remove(h) {
		Logger().Warn("metalgs: destroy of invalid shader", "handle", h)
	}
}

// VertexShader returns the currently loaded vertex shader handle.
func (d *Device) VertexShader() Handle { return d.state.vertexShader }

// PixelShader returns the currently loaded fragment shader handle.
func (d *Device) PixelShader() Handle { return d.state.fragmentShader }

// writeDirtyParams packs every dirty block uniform into the scratch
// buffer and clears the dirty flags. Texture uniforms are untouched.
func (s *Shader) writeDirtyParams() {
	for _, p := range s.params {
		if p.Type == msl.ParamTexture || !p.dirty {
			continue
		}
		if p.offset >= 0 && p.offset+len(p.cur) <= len(s.scratch) {
			copy(s.scratch[p.offset:], p.cur)
		}
		p.dirty = false
	}
}
