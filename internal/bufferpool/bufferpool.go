// Package bufferpool recycles GPU-visible linear buffers across frames.
//
// Dynamic vertex, index and uniform data is rewritten every frame, so the
// pool hands out shared, write-combined buffers and reclaims them once the
// command buffer that referenced them has completed on the GPU. Buffers
// move through three partitions:
//
//   - available: idle buffers whose GPU work has completed
//   - current: buffers handed out during the frame being recorded
//   - retired: a FIFO of prior frames' current sets, one entry per frame,
//     each awaiting completion of its owning command buffer
//
// Rotate runs inside the command buffer's completion handler, which Metal
// may invoke on an arbitrary driver thread, so every partition mutation
// holds the pool mutex.
package bufferpool

import (
	"sync"

	"github.com/gogpu/metalgs/internal/mtl"
)

// alignment rounds every request up so that buffers of nearby sizes are
// interchangeable when scanning the available set.
const alignment = 16

// Pool recycles transient buffers allocated from a single device.
type Pool struct {
	dev mtl.Device

	mu        sync.Mutex
	available []mtl.Buffer
	current   []mtl.Buffer
	retired   [][]mtl.Buffer

	allocated uint64
	reused    uint64
}

// New returns an empty pool allocating from dev.
func New(dev mtl.Device) *Pool {
	return &Pool{dev: dev}
}

// BufferForSize returns a buffer of at least size bytes, rounded up to the
// pool alignment. An available buffer of sufficient length is reused in
// preference to allocating; either way the buffer joins the current set and
// stays out of circulation until the frame's command buffer completes and
// Rotate returns it.
func (p *Pool) BufferForSize(size int) (mtl.Buffer, error) {
	size = (size + alignment - 1) &^ (alignment - 1)

	p.mu.Lock()
	for i, buf := range p.available {
		if buf.Length() >= size {
			p.available = append(p.available[:i], p.available[i+1:]...)
			p.current = append(p.current, buf)
			p.reused++
			p.mu.Unlock()
			return buf, nil
		}
	}
	p.mu.Unlock()

	buf, err := p.dev.NewBuffer(size, mtl.StorageShared, true)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.current = append(p.current, buf)
	p.allocated++
	p.mu.Unlock()
	return buf, nil
}

// Rotate migrates the frame's current set to the retired FIFO and reclaims
// the oldest retired set into available. The newest set always waits out one
// further rotation before its buffers circulate again, keeping a frame of
// headroom between the CPU writing a buffer and the GPU last reading it.
//
// Called from the command buffer completion handler on the present path and
// synchronously after WaitUntilCompleted on the flush path.
func (p *Pool) Rotate() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.retired = append(p.retired, p.current)
	p.current = nil

	if len(p.retired) > 1 {
		head := p.retired[0]
		p.retired = p.retired[1:]
		p.available = append(p.available, head...)
	}
}

// Allocated returns the number of fresh device allocations performed.
func (p *Pool) Allocated() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocated
}

// Reused returns the number of requests satisfied from the available set.
func (p *Pool) Reused() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reused
}

// Counts reports the sizes of the three partitions. Retired counts buffers
// across all pending frame sets.
func (p *Pool) Counts() (available, current, retired int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, set := range p.retired {
		retired += len(set)
	}
	return len(p.available), len(p.current), retired
}
