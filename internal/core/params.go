// Pipeline parameter model with range clamping
package core

// Parameter ranges exposed by the UI sliders.
const (
	MinScale = 0.1
	MaxScale = 1.0

	MinKernel = 1
	MaxKernel = 21

	MinThreshold1 = 0
	MaxThreshold1 = 200

	MinThreshold2 = 0
	MaxThreshold2 = 300
)

// Params holds the four tunable values of the edge pipeline. The stored
// kernel may be even (sliders step by 2, but values arrive from config and
// tests too); EffectiveKernel coerces it before the blur ever sees it.
type Params struct {
	Scale      float64
	Kernel     int
	Threshold1 int
	Threshold2 int
}

// DefaultParams mirrors the slider defaults.
func DefaultParams() Params {
	return Params{
		Scale:      0.5,
		Kernel:     5,
		Threshold1: 50,
		Threshold2: 100,
	}
}

// Clamp forces every value into its legal range and returns the result.
func (p Params) Clamp() Params {
	if p.Scale < MinScale {
		p.Scale = MinScale
	}
	if p.Scale > MaxScale {
		p.Scale = MaxScale
	}
	if p.Kernel < MinKernel {
		p.Kernel = MinKernel
	}
	if p.Kernel > MaxKernel {
		p.Kernel = MaxKernel
	}
	if p.Threshold1 < MinThreshold1 {
		p.Threshold1 = MinThreshold1
	}
	if p.Threshold1 > MaxThreshold1 {
		p.Threshold1 = MaxThreshold1
	}
	if p.Threshold2 < MinThreshold2 {
		p.Threshold2 = MinThreshold2
	}
	if p.Threshold2 > MaxThreshold2 {
		p.Threshold2 = MaxThreshold2
	}
	return p
}

// EffectiveKernel returns the kernel size actually passed to the blur step:
// the stored size if odd, otherwise the next odd value.
func (p Params) EffectiveKernel() int {
	if p.Kernel%2 == 1 {
		return p.Kernel
	}
	return p.Kernel + 1
}

// ScaledDims computes the downscale target for a source of w x h. Dimensions
// are rounded and clamped to at least 1 so a tiny source with a small scale
// can never produce a zero-sized buffer.
func (p Params) ScaledDims(w, h int) (int, int) {
	sw := int(float64(w)*p.Scale + 0.5)
	sh := int(float64(h)*p.Scale + 0.5)
	if sw < 1 {
		sw = 1
	}
	if sh < 1 {
		sh = 1
	}
	return sw, sh
}
