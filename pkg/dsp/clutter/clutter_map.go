package clutter

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
)

// Map tracks the near-static part of the return with a per-range-bin complex
// exponential moving average. It only observes; it never modifies a pulse.
type Map struct {
	estimate   []complex64
	magnitudes []float64
	alpha      float32
}

func NewMap(nFast int, alpha float32) (*Map, error) {
	if nFast <= 0 {
		return nil, fmt.Errorf("clutter: map length must be positive, got %d", nFast)
	}
	if err := validateAlpha(alpha); err != nil {
		return nil, err
	}
	return &Map{
		estimate:   make([]complex64, nFast),
		magnitudes: make([]float64, nFast),
		alpha:      alpha,
	}, nil
}

// Process folds one raw (pre-cancellation) pulse into the estimate.
func (m *Map) Process(impulse []complex64) {
	mustMatch("clutter map", len(impulse), len(m.estimate))
	a := complex(m.alpha, 0)
	for i, x := range impulse {
		m.estimate[i] = (1-a)*m.estimate[i] + a*x
	}
}

// Argmax returns the bin with the largest estimate magnitude, preferring the
// lowest index on ties.
func (m *Map) Argmax() int {
	for i, x := range m.estimate {
		m.magnitudes[i] = cmplx.Abs(complex128(x))
	}
	return floats.MaxIdx(m.magnitudes)
}

// Estimate exposes the current estimate. Callers must not modify it.
func (m *Map) Estimate() []complex64 {
	return m.estimate
}

func (m *Map) Alpha() float32 {
	return m.alpha
}

func (m *Map) Reset() {
	for i := range m.estimate {
		m.estimate[i] = 0
	}
}
