package sampling

// Axis positions inside one packed sample.
const (
	AxisVoltage = iota
	AxisCurrent
	AxisPower
	AxisRelay

	packedAxes
)

// FeatureBuffer is the classifier input for one window: samples×axes values,
// rewritten in place each window.
type FeatureBuffer struct {
	samples int
	axes    int
	n       int
	data    []float64
}

// NewFeatureBuffer allocates a buffer for samples×axes values. Sizes below
// one are raised to one.
func NewFeatureBuffer(samples, axes int) *FeatureBuffer {
	samples = max(samples, 1)
	axes = max(axes, 1)
	return &FeatureBuffer{samples: samples, axes: axes, data: make([]float64, samples*axes)}
}

// Put packs one sample into the next slot. Axes past the relay axis are
// zero; with fewer than four axes the trailing measurements are left out.
// Put reports false when the window is already full.
func (b *FeatureBuffer) Put(voltage, current, power float64, relayOn bool) bool {
	if b.n >= b.samples {
		return false
	}
	relay := 0.0
	if relayOn {
		relay = 1
	}
	packed := [packedAxes]float64{voltage, current, power, relay}

	row := b.data[b.n*b.axes : (b.n+1)*b.axes]
	for axis := range row {
		if axis < packedAxes {
			row[axis] = packed[axis]
		} else {
			row[axis] = 0
		}
	}
	b.n++
	return true
}

// Len returns the number of samples packed in the current window.
func (b *FeatureBuffer) Len() int { return b.n }

// Samples returns the window size.
func (b *FeatureBuffer) Samples() int { return b.samples }

// Axes returns the number of values per sample.
func (b *FeatureBuffer) Axes() int { return b.axes }

// Full reports whether every slot of the window has been written.
func (b *FeatureBuffer) Full() bool { return b.n == b.samples }

// Values returns the backing slice. It is overwritten by the next window.
func (b *FeatureBuffer) Values() []float64 { return b.data }

// Reset starts a new window. Old values stay until overwritten.
func (b *FeatureBuffer) Reset() { b.n = 0 }
