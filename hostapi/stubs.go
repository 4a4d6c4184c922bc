package hostapi

// GPU timer queries are not implemented; the host checks the boolean
// results and falls back to CPU timing.

type Timer struct{}
type TimerRange struct{}

func TimerCreate(dev *Device) *Timer              { return nil }
func TimerDestroy(t *Timer)                       {}
func TimerBegin(t *Timer)                         {}
func TimerEnd(t *Timer)                           {}
func TimerGetData(t *Timer) (uint64, bool)        { return 0, false }
func TimerRangeCreate(dev *Device) *TimerRange    { return nil }
func TimerRangeDestroy(tr *TimerRange)            {}
func TimerRangeBegin(tr *TimerRange)              {}
func TimerRangeEnd(tr *TimerRange)                {}
func TimerRangeGetData(tr *TimerRange) (disjoint bool, frequency uint64, ok bool) {
	return false, 0, false
}

// Debug markers are accepted and dropped.

func DeviceDebugMarkerBegin(dev *Device, name string, color [4]float32) {}
func DeviceDebugMarkerEnd(dev *Device)                                 {}

// DeviceIsMonitorHDR always reports SDR; tone mapping happens upstream.
func DeviceIsMonitorHDR(dev *Device, monitor uintptr) bool { return false }

// DeviceGetColorSpace reports sRGB, the only space the backend renders
// in.
func DeviceGetColorSpace(dev *Device) uint32 { return 0 }

func DeviceUpdateColorSpace(dev *Device) {}

// DeviceCanAdapterFastClear reports whether clears are free; pass load
// actions make them so.
func DeviceCanAdapterFastClear(dev *Device) bool { return true }
