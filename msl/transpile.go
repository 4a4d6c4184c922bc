// Package msl translates the host's HLSL-like shader language into Metal
// Shading Language.
//
// Input is the pre-tokenized intermediate form an external parser
// produces: tables of uniforms, structs, functions with token-level
// bodies, and legacy sampler states. Transpile rewrites it into a single
// MSL translation unit whose entry point is always named _main, and
// returns the metadata the device needs to bind it: the packed uniform
// block layout, the vertex input descriptor, sampler descriptors, and
// the ordered list of vertex streams the shader consumes.
package msl

import (
	"errors"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/metalgs/internal/mtl"
)

var (
	// ErrUnsupportedType marks a source type with no MSL counterpart.
	ErrUnsupportedType = errors.New("msl: unsupported type")

	// ErrUnsupportedIntrinsic marks an intrinsic that cannot be
	// expressed in the emitted shader.
	ErrUnsupportedIntrinsic = errors.New("msl: unsupported intrinsic")

	// ErrMalformedBody marks a function body the rewriter cannot walk,
	// such as an unbalanced argument list.
	ErrMalformedBody = errors.New("msl: malformed function body")

	// ErrNoMain marks a shader without a main function.
	ErrNoMain = errors.New("msl: shader has no main function")
)

// UniformEntry describes one uniform in the transpiled shader.
type UniformEntry struct {
	Name string
	Type ParamType

	// Offset is the byte offset inside the uniform block, -1 for
	// texture uniforms.
	Offset int

	// TextureSlot is the fragment texture binding index, -1 for block
	// uniforms.
	TextureSlot int

	// ArrayCount is the declared element count, 0 for non-arrays.
	ArrayCount int

	// DefaultValue holds the initializer bytes, or nil.
	DefaultValue []byte
}

// Output is the result of a successful transpilation.
type Output struct {
	// Source is the MSL translation unit.
	Source string

	// EntryPoint is the emitted entry function name, always "_main".
	EntryPoint string

	// Uniforms lists every uniform in declaration order.
	Uniforms []UniformEntry

	// UniformBlockSize is the padded byte size of the uniform block,
	// 0 when the shader has no block uniforms.
	UniformBlockSize int

	// VertexLayout holds one single-attribute buffer layout per vertex
	// stream, in binding order. Vertex shaders only.
	VertexLayout []gputypes.VertexBufferLayout

	// Streams lists the vertex streams the shader consumes, in order.
	// Vertex shaders only.
	Streams []StreamUse

	// Samplers holds the declared sampler states in declaration order.
	// Fragment shaders only.
	Samplers []mtl.SamplerDescriptor

	// TextureCount is the number of fragment texture bindings.
	TextureCount int
}

// Transpile rewrites a parsed shader into MSL and its binding metadata.
func Transpile(in *Shader) (*Output, error) {
	tr, err := analyze(in)
	if err != nil {
		return nil, err
	}

	src, err := newWriter(tr).emit()
	if err != nil {
		return nil, err
	}

	out := &Output{
		Source:           src,
		EntryPoint:       "_main",
		Uniforms:         buildUniforms(tr),
		UniformBlockSize: tr.blockSize,
		TextureCount:     len(tr.textureUniforms),
	}
	switch in.Kind {
	case VertexShader:
		out.VertexLayout = buildVertexLayout(tr)
		out.Streams = buildStreams(tr)
	case FragmentShader:
		out.Samplers = buildSamplers(tr)
	}
	return out, nil
}
