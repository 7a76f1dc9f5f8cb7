package matched

import (
	"errors"
	"fmt"
	"math/cmplx"

	"github.com/norasector/sonar/pkg/dsp/mixer"
	"github.com/norasector/sonar/pkg/dsp/plan"
	"gonum.org/v1/gonum/dsp/fourier"
)

var (
	ErrEmptyImpulse        = errors.New("matched: reference pulse is empty")
	ErrInvalidDecimation   = errors.New("matched: decimation must be at least 1")
	ErrInputLengthMismatch = errors.New("matched: input length does not match reference pulse")
)

// MatchedFilter compresses one pulse frame against a fixed reference pulse by
// frequency-domain correlation, then decimates and shifts the carrier to
// baseband.
//
// Only the non-negative half of the spectrum is kept before the inverse
// transform, so the correlation comes out as an analytic (complex) signal.
type MatchedFilter struct {
	inputLength  int
	outputLength int
	decimation   int

	impulseFFT []complex128
	forward    *fourier.FFT
	inverse    *fourier.CmplxFFT
	carrier    *mixer.Derotator

	// scratch, reused for every pulse
	realBuf  []float64
	spectrum []complex128
	xcorr    []complex128
}

func NewMatchedFilter(impulse []float32, normalizedCarrier float64, decimation int, planner *plan.Planner) (*MatchedFilter, error) {
	if len(impulse) == 0 {
		return nil, ErrEmptyImpulse
	}
	if decimation < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDecimation, decimation)
	}
	if planner == nil {
		planner = plan.NewPlanner()
	}

	n := len(impulse)
	ret := &MatchedFilter{
		inputLength:  n,
		outputLength: OutputLength(n, decimation),
		decimation:   decimation,
		forward:      planner.Real(n),
		inverse:      planner.Complex(n),
		carrier:      mixer.NewDerotator(n, normalizedCarrier),
		realBuf:      make([]float64, n),
		spectrum:     make([]complex128, n),
		xcorr:        make([]complex128, n),
	}

	for i, x := range impulse {
		ret.realBuf[i] = float64(x)
	}
	ret.impulseFFT = ret.forward.Coefficients(nil, ret.realBuf)

	return ret, nil
}

// OutputLength is the number of range bins, ceil(inputLength / decimation).
func OutputLength(inputLength, decimation int) int {
	return (inputLength + decimation - 1) / decimation
}

func (m *MatchedFilter) InputLength() int {
	return m.inputLength
}

func (m *MatchedFilter) OutputLength() int {
	return m.outputLength
}

func (m *MatchedFilter) Decimation() int {
	return m.decimation
}

// HandleImpulse correlates input against the reference pulse and writes the
// decimated, de-rotated result to output. A wrong input length is rejected
// before anything is written. output must hold exactly OutputLength samples.
func (m *MatchedFilter) HandleImpulse(input []float32, output []complex64) error {
	if len(input) != m.inputLength {
		return fmt.Errorf("%w: got %d, want %d", ErrInputLengthMismatch, len(input), m.inputLength)
	}
	if len(output) != m.outputLength {
		panic(fmt.Sprintf("matched: output length %d, want %d", len(output), m.outputLength))
	}

	for i, x := range input {
		m.realBuf[i] = float64(x)
	}

	half := len(m.impulseFFT)
	m.forward.Coefficients(m.spectrum[:half], m.realBuf)
	for i := range m.spectrum[:half] {
		m.spectrum[i] *= cmplx.Conj(m.impulseFFT[i])
	}
	for i := half; i < len(m.spectrum); i++ {
		m.spectrum[i] = 0
	}

	m.inverse.Sequence(m.xcorr, m.spectrum)

	// The carrier phasor is indexed by the full-rate sample, not the output
	// bin, so phase stays continuous across range bins.
	for i := range output {
		n := i * m.decimation
		output[i] = complex64(m.xcorr[n] * m.carrier.At(n))
	}

	return nil
}
