package msl

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/metalgs/internal/mtl"
)

// buildUniforms lists every uniform in declaration order with its block
// offset or texture slot.
func buildUniforms(tr *transpiler) []UniformEntry {
	var entries []UniformEntry
	textureSlot := 0
	for _, u := range tr.in.Uniforms {
		pt := paramTypeFor(u.Type)
		if pt == ParamTexture {
			if tr.in.Kind != FragmentShader {
				continue
			}
			entries = append(entries, UniformEntry{
				Name:         u.Name,
				Type:         pt,
				Offset:       -1,
				TextureSlot:  textureSlot,
				DefaultValue: u.DefaultValue,
			})
			textureSlot++
			continue
		}
		entries = append(entries, UniformEntry{
			Name:         u.Name,
			Type:         pt,
			Offset:       tr.offsets[u.Name],
			TextureSlot:  -1,
			ArrayCount:   u.ArrayCount,
			DefaultValue: u.DefaultValue,
		})
	}
	return entries
}

// buildVertexLayout derives one single-attribute buffer layout per
// stream field of the main function's struct parameters. Attribute index
// and buffer index share the same running counter.
func buildVertexLayout(tr *transpiler) []gputypes.VertexBufferLayout {
	var layouts []gputypes.VertexBufferLayout
	counter := 0
	for _, p := range tr.main.fn.Params {
		si, ok := tr.structByName[p.Type]
		if !ok {
			continue
		}
		for _, f := range si.st.Fields {
			_, format, ok := streamForMapping(f.Mapping, f.Type)
			if !ok {
				continue
			}
			stride := vertexFormatSize(format)
			layouts = append(layouts, gputypes.VertexBufferLayout{
				ArrayStride: uint64(stride),
				StepMode:    gputypes.VertexStepModeVertex,
				Attributes: []gputypes.VertexAttribute{
					{Format: format, Offset: 0, ShaderLocation: uint32(counter)},
				},
			})
			counter++
		}
	}
	return layouts
}

// buildStreams lists the streams the vertex shader consumes, in field
// order of main's first struct parameter. Texcoord fields collapse into
// one entry counting the units.
func buildStreams(tr *transpiler) []StreamUse {
	var streams []StreamUse
	for _, p := range tr.main.fn.Params {
		si, ok := tr.structByName[p.Type]
		if !ok {
			continue
		}
		for _, f := range si.st.Fields {
			stream, _, ok := streamForMapping(f.Mapping, f.Type)
			if !ok {
				continue
			}
			if stream == StreamTexcoord {
				if n := len(streams); n > 0 && streams[n-1].Stream == StreamTexcoord {
					streams[n-1].Count++
					continue
				}
			}
			streams = append(streams, StreamUse{Stream: stream, Count: 1})
		}
		break
	}
	return streams
}

// buildSamplers translates each declared sampler into a driver
// descriptor, declaration order.
func buildSamplers(tr *transpiler) []mtl.SamplerDescriptor {
	descs := make([]mtl.SamplerDescriptor, 0, len(tr.in.Samplers))
	for _, s := range tr.in.Samplers {
		descs = append(descs, samplerDescriptor(s.Info))
	}
	return descs
}

// Descriptor converts the host's legacy sampler description into the
// driver form. The device uses the same translation for standalone
// sampler states as the transpiler uses for shader-declared ones.
func (info SamplerInfo) Descriptor() mtl.SamplerDescriptor {
	return samplerDescriptor(info)
}

// samplerDescriptor converts the host's legacy sampler description into
// the driver form.
func samplerDescriptor(info SamplerInfo) mtl.SamplerDescriptor {
	d := mtl.SamplerDescriptor{
		AddressU:    addressMode(info.AddressU),
		AddressV:    addressMode(info.AddressV),
		AddressW:    addressMode(info.AddressW),
		BorderColor: borderColor(info.BorderColor),
	}
	d.MinFilter, d.MagFilter, d.MipFilter = filterModes(info.Filter)

	d.MaxAnisotropy = info.MaxAnisotropy
	if d.MaxAnisotropy < 1 {
		d.MaxAnisotropy = 1
	}
	if d.MaxAnisotropy > 16 {
		d.MaxAnisotropy = 16
	}
	return d
}

func addressMode(m AddressMode) mtl.SamplerAddressMode {
	switch m {
	case AddressWrap:
		return mtl.AddressRepeat
	case AddressMirror, AddressMirrorOnce:
		return mtl.AddressMirrorRepeat
	case AddressBorder:
		return mtl.AddressClampToBorderColor
	default:
		return mtl.AddressClampToEdge
	}
}

// filterModes decomposes the host's combined filter enum into the
// separate min, mag and mip filters Metal configures.
func filterModes(f SampleFilter) (mtl.FilterMode, mtl.FilterMode, mtl.MipFilter) {
	switch f {
	case FilterLinear, FilterAnisotropic:
		return mtl.FilterLinear, mtl.FilterLinear, mtl.MipFilterLinear
	case FilterMinMagPointMipLinear:
		return mtl.FilterNearest, mtl.FilterNearest, mtl.MipFilterLinear
	case FilterMinPointMagLinearMipPoint:
		return mtl.FilterNearest, mtl.FilterLinear, mtl.MipFilterNearest
	case FilterMinPointMagMipLinear:
		return mtl.FilterNearest, mtl.FilterLinear, mtl.MipFilterLinear
	case FilterMinLinearMagMipPoint:
		return mtl.FilterLinear, mtl.FilterNearest, mtl.MipFilterNearest
	case FilterMinLinearMagPointMipLinear:
		return mtl.FilterLinear, mtl.FilterNearest, mtl.MipFilterLinear
	case FilterMinMagLinearMipPoint:
		return mtl.FilterLinear, mtl.FilterLinear, mtl.MipFilterNearest
	default:
		return mtl.FilterNearest, mtl.FilterNearest, mtl.MipFilterNearest
	}
}

// borderColor maps the packed RGBA border color (red in the low byte)
// onto the closest Metal border constant.
func borderColor(packed uint32) mtl.SamplerBorderColor {
	if packed>>24 == 0 {
		return mtl.BorderTransparentBlack
	}
	if packed == 0xFFFFFFFF {
		return mtl.BorderOpaqueWhite
	}
	return mtl.BorderOpaqueBlack
}
