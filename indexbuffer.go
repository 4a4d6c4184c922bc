package metalgs

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/metalgs/internal/mtl"
)

// IndexType selects the index element width.
type IndexType uint8

const (
	Index16 IndexType = iota
	Index32
)

// Width returns the byte size of one index element.
func (t IndexType) Width() int {
	if t == Index32 {
		return 4
	}
	return 2
}

// Format returns the driver index format.
func (t IndexType) Format() gputypes.IndexFormat {
	if t == Index32 {
		return gputypes.IndexFormatUint32
	}
	return gputypes.IndexFormatUint16
}

// IndexBuffer wraps one GPU index buffer. The retained source holds raw
// little-endian index bytes, Width bytes per element.
type IndexBuffer struct {
	dev     *Device
	typ     IndexType
	num     int
	dynamic bool
	data    []byte
	buf     mtl.Buffer
}

// CreateIndexBuffer wraps num indices of the given width and returns the
// buffer's handle. data holds the raw index bytes and becomes owned by
// the buffer.
func (d *Device) CreateIndexBuffer(typ IndexType, data []byte, num int, dynamic bool) (Handle, error) {
	ib := &IndexBuffer{dev: d, typ: typ, num: num, dynamic: dynamic, data: data}
	if !dynamic {
		buf, err := d.dev.NewBufferWithBytes(data, mtl.StorageManaged)
		if err != nil {
			return 0, fmt.Errorf("create index buffer: %w", err)
		}
		ib.buf = buf
	}
	return d.indexBuffers.Insert(ib), nil
}

// DestroyIndexBuffer releases the buffer. An unknown handle is a soft
// failure.
func (d *Device) DestroyIndexBuffer(h Handle) {
	if d.state.indexBuffer == h {
		d.state.indexBuffer = 0
	}
	if !d.indexBuffers.Remove(h) {
		Logger().Warn("metalgs: destroy of invalid index buffer", "handle", h)
	}
}

// IndexBufferData returns the retained index bytes. Nil for unknown
// handles.
func (d *Device) IndexBufferData(h Handle) []byte {
	ib, ok := d.indexBuffers.Lookup(h)
	if !ok {
		Logger().Warn("metalgs: get_data of invalid index buffer", "handle", h)
		return nil
	}
	return ib.data
}

// IndexBufferNum returns the element count, 0 for unknown handles.
func (d *Device) IndexBufferNum(h Handle) int {
	ib, ok := d.indexBuffers.Lookup(h)
	if !ok {
		Logger().Warn("metalgs: num_indices of invalid index buffer", "handle", h)
		return 0
	}
	return ib.num
}

// FlushIndexBuffer refreshes a dynamic index buffer from its retained
// source.
func (d *Device) FlushIndexBuffer(h Handle) error {
	ib, ok := d.indexBuffers.Lookup(h)
	if !ok {
		return fmt.Errorf("flush index buffer %d: %w", h, ErrInvalidHandle)
	}
	return ib.flush(ib.data)
}

// FlushIndexBufferData refreshes a dynamic index buffer from
// caller-supplied bytes.
func (d *Device) FlushIndexBufferData(h Handle, data []byte) error {
	ib, ok := d.indexBuffers.Lookup(h)
	if !ok {
		return fmt.Errorf("flush index buffer %d: %w", h, ErrInvalidHandle)
	}
	return ib.flush(data)
}

func (ib *IndexBuffer) flush(data []byte) error {
	if !ib.dynamic {
		return fmt.Errorf("flush index buffer: %w", ErrNotDynamic)
	}
	if data == nil {
		data = ib.data
	}
	buf, err := ib.dev.pool.BufferForSize(len(data))
	if err != nil {
		return err
	}
	copy(buf.Contents(), data)
	ib.buf = buf
	return nil
}
