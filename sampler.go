package metalgs

import (
	"fmt"

	"github.com/gogpu/metalgs/internal/mtl"
	"github.com/gogpu/metalgs/msl"
)

// SamplerState wraps one immutable driver sampler.
type SamplerState struct {
	state mtl.SamplerState
	info  msl.SamplerInfo
}

// CreateSamplerState creates a sampler from the host's legacy sampler
// description and returns its handle.
func (d *Device) CreateSamplerState(info msl.SamplerInfo) (Handle, error) {
	state, err := d.dev.NewSamplerState(info.Descriptor())
	if err != nil {
		return 0, fmt.Errorf("create sampler state: %w", err)
	}
	s := &SamplerState{state: state, info: info}
	return d.samplerStates.Insert(s), nil
}

// DestroySamplerState releases the sampler. An unknown handle is a soft
// failure.
func (d *Device) DestroySamplerState(h Handle) {
	for i := range d.state.samplers {
		if d.state.samplers[i] == h {
			d.state.samplers[i] = 0
		}
	}
	if !d.samplerStates.Remove(h) {
		Logger().Warn("metalgs: destroy of invalid sampler state", "handle", h)
	}
}
