package doppler

import (
	"errors"
	"fmt"
	"math"

	"github.com/norasector/sonar/pkg/dsp/plan"
	"gonum.org/v1/gonum/dsp/fourier"
)

var (
	ErrInvalidShape  = errors.New("doppler: slow and fast time lengths must be positive")
	ErrInvalidWindow = errors.New("doppler: invalid slow-time window")
)

// Matrix is a row-major complex matrix. Rows index slow time (Doppler) and
// columns index fast time (range).
type Matrix struct {
	Rows, Cols int
	Data       []complex64
}

func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{Rows: rows, Cols: cols, Data: make([]complex64, rows*cols)}
}

func (m *Matrix) At(row, col int) complex64 {
	return m.Data[row*m.Cols+col]
}

// Row returns row r as a view into Data.
func (m *Matrix) Row(r int) []complex64 {
	return m.Data[r*m.Cols : (r+1)*m.Cols : (r+1)*m.Cols]
}

// Processor keeps the last nSlow pulses in a circular data cube and turns
// them into a range-Doppler matrix on demand.
type Processor struct {
	nSlow, nFast  int
	cursor        int
	fastTimeShift int

	cube   []complex64
	window []float32

	fft    *fourier.CmplxFFT
	fftIn  []complex128
	fftOut []complex128
}

// NewProcessor builds a processor with nSlow pulses of history, each nFast
// range bins wide. window weights the slow-time history from oldest to newest
// pulse before the transform; nil means no weighting.
func NewProcessor(nSlow, nFast int, window []float32, planner *plan.Planner) (*Processor, error) {
	if nSlow <= 0 || nFast <= 0 {
		return nil, fmt.Errorf("%w: got %d x %d", ErrInvalidShape, nSlow, nFast)
	}
	if window != nil {
		if len(window) != nSlow {
			return nil, fmt.Errorf("%w: length %d, want %d", ErrInvalidWindow, len(window), nSlow)
		}
		for i, w := range window {
			if math.IsNaN(float64(w)) || math.IsInf(float64(w), 0) {
				return nil, fmt.Errorf("%w: non-finite weight at %d", ErrInvalidWindow, i)
			}
		}
		window = append([]float32(nil), window...)
	}
	if planner == nil {
		planner = plan.NewPlanner()
	}

	return &Processor{
		nSlow:  nSlow,
		nFast:  nFast,
		cube:   make([]complex64, nSlow*nFast),
		window: window,
		fft:    planner.Complex(nSlow),
		fftIn:  make([]complex128, nSlow),
		fftOut: make([]complex128, nSlow),
	}, nil
}

func (p *Processor) NSlow() int { return p.nSlow }
func (p *Processor) NFast() int { return p.nFast }

// Cursor is the row the next pulse is written to. It also holds the oldest
// retained pulse.
func (p *Processor) Cursor() int { return p.cursor }

func (p *Processor) FastTimeShift() int { return p.fastTimeShift }

// InputBuffer returns the row at the cursor for the next pulse to be written
// into directly.
func (p *Processor) InputBuffer() []complex64 {
	start := p.cursor * p.nFast
	return p.cube[start : start+p.nFast : start+p.nFast]
}

// NextImpulse commits the row at the cursor and moves on.
func (p *Processor) NextImpulse() {
	p.cursor++
	if p.cursor == p.nSlow {
		p.cursor = 0
	}
}

// Pulse returns the pulse committed age pulses ago, 0 being the latest.
func (p *Processor) Pulse(age int) []complex64 {
	if age < 0 || age >= p.nSlow {
		panic(fmt.Sprintf("doppler: pulse age %d out of range [0, %d)", age, p.nSlow))
	}
	row := (p.cursor - 1 - age + 2*p.nSlow) % p.nSlow
	start := row * p.nFast
	return p.cube[start : start+p.nFast : start+p.nFast]
}

// SetFastTimeShift makes output column 0 correspond to range bin shift.
func (p *Processor) SetFastTimeShift(shift int) {
	if shift < 0 || shift >= p.nFast {
		panic(fmt.Sprintf("doppler: fast time shift %d out of range [0, %d)", shift, p.nFast))
	}
	p.fastTimeShift = shift
}

// RangeDoppler writes the Doppler spectrum of every range bin into output,
// zero Doppler centred on row nSlow/2 and the range axis rotated left by the
// fast time shift. It does not advance the cursor.
func (p *Processor) RangeDoppler(output *Matrix) {
	if output.Rows != p.nSlow || output.Cols != p.nFast || len(output.Data) != p.nSlow*p.nFast {
		panic(fmt.Sprintf("doppler: output is %dx%d (%d), want %dx%d",
			output.Rows, output.Cols, len(output.Data), p.nSlow, p.nFast))
	}
	p.rangeDopplerSlice(output, p.fastTimeShift, p.nFast, 0)
	p.rangeDopplerSlice(output, 0, p.fastTimeShift, p.nFast-p.fastTimeShift)
}

func (p *Processor) rangeDopplerSlice(output *Matrix, inStart, inEnd, outStart int) {
	for col := inStart; col < inEnd; col++ {
		// Oldest pulse first.
		for r := 0; r < p.nSlow; r++ {
			row := p.cursor + r
			if row >= p.nSlow {
				row -= p.nSlow
			}
			x := complex128(p.cube[row*p.nFast+col])
			if p.window != nil {
				x *= complex(float64(p.window[r]), 0)
			}
			p.fftIn[r] = x
		}

		p.fft.Coefficients(p.fftOut, p.fftIn)
		// fftIn is free again and takes the shifted spectrum.
		ShiftInto(p.fftOut, p.fftIn)

		outCol := outStart + col - inStart
		for j, x := range p.fftIn {
			output.Data[j*p.nFast+outCol] = complex64(x)
		}
	}
}

// ShiftInto writes input to output with the zero-frequency bin moved to the
// centre, on index len/2. For odd lengths the split falls after the middle
// element, so [1..7] becomes [5 6 7 1 2 3 4].
func ShiftInto[T any](input, output []T) {
	if len(input) != len(output) {
		panic(fmt.Sprintf("doppler: shift length %d into %d", len(input), len(output)))
	}
	split := shiftSplit(len(input))
	n := copy(output, input[split:])
	copy(output[n:], input[:split])
}

func shiftSplit(n int) int {
	if n%2 == 0 {
		return n / 2
	}
	return n/2 + 1
}

// ZeroDopplerRow is the output row holding the zero-Doppler bin.
func ZeroDopplerRow(nSlow int) int {
	return nSlow / 2
}
