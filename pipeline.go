package metalgs

import (
	"fmt"
	"hash/fnv"

	"github.com/gogpu/metalgs/internal/mtl"
)

// pipelineKey fingerprints everything that feeds render pipeline
// compilation: attachment formats, blend configuration, write mask,
// vertex layout and the two shader handles. Identical state yields the
// same key, so repeated draws reuse the compiled pipeline.
func (d *Device) pipelineKey(colorFormat, depthFormat, stencilFormat mtl.PixelFormat, vs *Shader) uint64 {
	h := fnv.New64a()
	var buf [8]byte

	w32 := func(v uint32) {
		buf[0] = byte(v)
		buf[1] = byte(v >> 8)
		buf[2] = byte(v >> 16)
		buf[3] = byte(v >> 24)
		h.Write(buf[:4])
	}

	w32(uint32(colorFormat))
	w32(uint32(depthFormat))
	w32(uint32(stencilFormat))

	if d.state.blendEnabled {
		b := d.state.blend
		w32(1)
		w32(uint32(b.SrcRGB))
		w32(uint32(b.DstRGB))
		w32(uint32(b.SrcAlpha))
		w32(uint32(b.DstAlpha))
		w32(uint32(b.OpRGB))
		w32(uint32(b.OpAlpha))
	} else {
		w32(0)
	}
	w32(uint32(d.state.colorWriteMask))

	for _, layout := range vs.layouts {
		w32(uint32(layout.ArrayStride))
		for _, attr := range layout.Attributes {
			w32(uint32(attr.Format))
			w32(uint32(attr.ShaderLocation))
		}
	}

	w32(d.state.vertexShader)
	w32(d.state.fragmentShader)
	return h.Sum64()
}

// pipelineFor returns the compiled pipeline state for the current device
// state and the given attachment formats, compiling and caching it on
// first use.
func (d *Device) pipelineFor(colorFormat, depthFormat, stencilFormat mtl.PixelFormat, vs, fs *Shader) (mtl.RenderPipelineState, error) {
	key := d.pipelineKey(colorFormat, depthFormat, stencilFormat, vs)
	return d.pipelines.GetOrCreate(key, func() (mtl.RenderPipelineState, error) {
		desc := mtl.RenderPipelineDescriptor{
			VertexFunction:   vs.fn,
			FragmentFunction: fs.fn,
			VertexLayouts:    vs.layouts,
			ColorFormat:      colorFormat,
			WriteMask:        d.state.colorWriteMask,
			DepthFormat:      depthFormat,
			StencilFormat:    stencilFormat,
		}
		if d.state.blendEnabled {
			blend := d.state.blend
			desc.Blend = &blend
		}
		state, err := d.dev.NewRenderPipelineState(desc)
		if err != nil {
			return nil, fmt.Errorf("compile pipeline: %w", err)
		}
		return state, nil
	})
}

// PipelineCount returns the number of cached compiled pipelines.
func (d *Device) PipelineCount() int { return d.pipelines.Len() }
