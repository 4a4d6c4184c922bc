package metalgs

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/metalgs/internal/mtl"
	"github.com/gogpu/metalgs/msl"
)

// TexCoordArray is one texture-coordinate stream of a vertex buffer.
type TexCoordArray struct {
	// Width is the number of floats per vertex, 1 to 4.
	Width int

	// Data holds Width floats per vertex.
	Data []float32
}

// VertexData is the host-supplied source of a vertex buffer. Points is
// mandatory; the remaining streams are optional and, when present, run
// parallel to Points. The wrapping buffer takes ownership.
//
// Positions, normals and tangents carry a fourth padding component so
// the CPU layout matches the float4 attribute format the shaders read.
type VertexData struct {
	Points   []f32.Vec4
	Normals  []f32.Vec4
	Tangents []f32.Vec4

	// Colors are packed RGBA8 values, red in the low byte. They unpack
	// to four floats per vertex at upload time.
	Colors []uint32

	TexCoords []TexCoordArray
}

// Num returns the vertex count.
func (v *VertexData) Num() int { return len(v.Points) }

// VertexBuffer wraps the per-stream GPU buffers of one vertex source.
// Static buffers fill their GPU storage once at creation; dynamic
// buffers refresh per frame from the transient pool.
type VertexBuffer struct {
	dev     *Device
	dynamic bool
	data    *VertexData

	points   mtl.Buffer
	normals  mtl.Buffer
	tangents mtl.Buffer
	colors   mtl.Buffer
	texCoords []mtl.Buffer
}

// CreateVertexBuffer wraps data in a new vertex buffer and returns its
// handle. Static buffers upload immediately; dynamic buffers defer to
// the first flush.
func (d *Device) CreateVertexBuffer(data *VertexData, dynamic bool) (Handle, error) {
	vb := &VertexBuffer{
		dev:       d,
		dynamic:   dynamic,
		data:      data,
		texCoords: make([]mtl.Buffer, len(data.TexCoords)),
	}
	if !dynamic {
		if err := vb.uploadStatic(); err != nil {
			return 0, fmt.Errorf("create vertex buffer: %w", err)
		}
	}
	return d.vertexBuffers.Insert(vb), nil
}

// DestroyVertexBuffer releases the buffer. An unknown handle is a soft
// failure.
func (d *Device) DestroyVertexBuffer(h Handle) {
	if d.state.vertexBuffer == h {
		d.state.vertexBuffer = 0
	}
	if !d.vertexBuffers.Remove(h) {
		Logger().Warn("metalgs: destroy of invalid vertex buffer", "handle", h)
	}
}

// VertexBufferData returns the retained source of a vertex buffer so the
// host can rewrite it before a flush. Nil for unknown handles.
func (d *Device) VertexBufferData(h Handle) *VertexData {
	vb, ok := d.vertexBuffers.Lookup(h)
	if !ok {
		Logger().Warn("metalgs: get_data of invalid vertex buffer", "handle", h)
		return nil
	}
	return vb.data
}

// FlushVertexBuffer refreshes a dynamic buffer's GPU storage from its
// retained source.
func (d *Device) FlushVertexBuffer(h Handle) error {
	vb, ok := d.vertexBuffers.Lookup(h)
	if !ok {
		return fmt.Errorf("flush vertex buffer %d: %w", h, ErrInvalidHandle)
	}
	return vb.flush(vb.data)
}

// FlushVertexBufferData refreshes a dynamic buffer's GPU storage from
// caller-supplied data instead of the retained source.
func (d *Device) FlushVertexBufferData(h Handle, data *VertexData) error {
	vb, ok := d.vertexBuffers.Lookup(h)
	if !ok {
		return fmt.Errorf("flush vertex buffer %d: %w", h, ErrInvalidHandle)
	}
	return vb.flush(data)
}

// uploadStatic creates one GPU-resident buffer per present stream and
// fills it once.
func (vb *VertexBuffer) uploadStatic() error {
	dev := vb.dev.dev
	mk := func(data []byte) (mtl.Buffer, error) {
		return dev.NewBufferWithBytes(data, mtl.StorageManaged)
	}

	var err error
	if vb.points, err = mk(vec4Bytes(vb.data.Points)); err != nil {
		return err
	}
	if len(vb.data.Normals) > 0 {
		if vb.normals, err = mk(vec4Bytes(vb.data.Normals)); err != nil {
			return err
		}
	}
	if len(vb.data.Tangents) > 0 {
		if vb.tangents, err = mk(vec4Bytes(vb.data.Tangents)); err != nil {
			return err
		}
	}
	if len(vb.data.Colors) > 0 {
		if vb.colors, err = mk(colorBytes(vb.data.Colors)); err != nil {
			return err
		}
	}
	for i, tc := range vb.data.TexCoords {
		if vb.texCoords[i], err = mk(floatBytes(tc.Data)); err != nil {
			return err
		}
	}
	return nil
}

// flush copies data into fresh transient pool buffers, one per present
// stream. Only dynamic buffers may flush.
func (vb *VertexBuffer) flush(data *VertexData) error {
	if !vb.dynamic {
		return fmt.Errorf("flush vertex buffer: %w", ErrNotDynamic)
	}
	if data == nil {
		data = vb.data
	}

	pool := vb.dev.pool
	fill := func(raw []byte) (mtl.Buffer, error) {
		buf, err := pool.BufferForSize(len(raw))
		if err != nil {
			return nil, err
		}
		copy(buf.Contents(), raw)
		return buf, nil
	}

	var err error
	if vb.points, err = fill(vec4Bytes(data.Points)); err != nil {
		return err
	}
	if len(data.Normals) > 0 {
		if vb.normals, err = fill(vec4Bytes(data.Normals)); err != nil {
			return err
		}
	}
	if len(data.Tangents) > 0 {
		if vb.tangents, err = fill(vec4Bytes(data.Tangents)); err != nil {
			return err
		}
	}
	if len(data.Colors) > 0 {
		if vb.colors, err = fill(colorBytes(data.Colors)); err != nil {
			return err
		}
	}
	for i, tc := range data.TexCoords {
		if i >= len(vb.texCoords) {
			break
		}
		if vb.texCoords[i], err = fill(floatBytes(tc.Data)); err != nil {
			return err
		}
	}
	return nil
}

// buffersForShader resolves the per-stream GPU buffers in the order the
// vertex shader consumes them. A stream the shader needs but the buffer
// lacks is a contract violation.
func (vb *VertexBuffer) buffersForShader(s *Shader) ([]mtl.Buffer, error) {
	var out []mtl.Buffer
	for _, use := range s.streams {
		switch use.Stream {
		case msl.StreamPosition:
			if vb.points == nil {
				return nil, fmt.Errorf("stream position: %w", ErrMissingStream)
			}
			out = append(out, vb.points)
		case msl.StreamNormal:
			if vb.normals == nil {
				return nil, fmt.Errorf("stream normal: %w", ErrMissingStream)
			}
			out = append(out, vb.normals)
		case msl.StreamTangent:
			if vb.tangents == nil {
				return nil, fmt.Errorf("stream tangent: %w", ErrMissingStream)
			}
			out = append(out, vb.tangents)
		case msl.StreamColor:
			if vb.colors == nil {
				return nil, fmt.Errorf("stream color: %w", ErrMissingStream)
			}
			out = append(out, vb.colors)
		case msl.StreamTexcoord:
			if use.Count > len(vb.texCoords) {
				return nil, fmt.Errorf("stream texcoord needs %d units, have %d: %w",
					use.Count, len(vb.texCoords), ErrMissingStream)
			}
			for i := 0; i < use.Count; i++ {
				if vb.texCoords[i] == nil {
					return nil, fmt.Errorf("stream texcoord %d: %w", i, ErrMissingStream)
				}
				out = append(out, vb.texCoords[i])
			}
		}
	}
	return out, nil
}

func vec4Bytes(vs []f32.Vec4) []byte {
	out := make([]byte, len(vs)*16)
	for i, v := range vs {
		for j, c := range v {
			binary.LittleEndian.PutUint32(out[i*16+j*4:], math.Float32bits(c))
		}
	}
	return out
}

func floatBytes(fs []float32) []byte {
	out := make([]byte, len(fs)*4)
	for i, f := range fs {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

// colorBytes unpacks packed RGBA8 colors (red in the low byte) to four
// floats per vertex.
func colorBytes(cs []uint32) []byte {
	out := make([]byte, len(cs)*16)
	for i, c := range cs {
		for j := 0; j < 4; j++ {
			f := float32(c>>(8*j)&0xFF) / 255
			binary.LittleEndian.PutUint32(out[i*16+j*4:], math.Float32bits(f))
		}
	}
	return out
}
