package doppler

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	dspfft "github.com/mjibson/go-dsp/fft"
	"github.com/norasector/sonar/pkg/dsp/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShiftInto(t *testing.T) {
	tests := []struct {
		name  string
		input []int
		want  []int
	}{
		{"even", []int{1, 2, 3, 4, 5, 6}, []int{4, 5, 6, 1, 2, 3}},
		{"odd", []int{1, 2, 3, 4, 5, 6, 7}, []int{5, 6, 7, 1, 2, 3, 4}},
		{"single", []int{1}, []int{1}},
		{"pair", []int{1, 2}, []int{2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := make([]int, len(tt.input))
			ShiftInto(tt.input, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewProcessorValidation(t *testing.T) {
	_, err := NewProcessor(0, 4, nil, nil)
	assert.True(t, errors.Is(err, ErrInvalidShape))
	_, err = NewProcessor(4, 0, nil, nil)
	assert.True(t, errors.Is(err, ErrInvalidShape))
	_, err = NewProcessor(4, 4, []float32{1, 1, 1}, nil)
	assert.True(t, errors.Is(err, ErrInvalidWindow))
	_, err = NewProcessor(2, 4, []float32{1, float32(math.Inf(1))}, nil)
	assert.True(t, errors.Is(err, ErrInvalidWindow))
}

// feed writes a pulse whose bins encode the pulse number and bin index.
func feed(p *Processor, pulse int) {
	row := p.InputBuffer()
	for i := range row {
		row[i] = complex(float32(pulse), float32(i))
	}
	p.NextImpulse()
}

func TestCursorWraparound(t *testing.T) {
	p, err := NewProcessor(5, 3, nil, nil)
	require.NoError(t, err)

	for start := 0; start < 7; start++ {
		before := p.Cursor()
		for i := 0; i < p.NSlow(); i++ {
			p.NextImpulse()
			assert.Less(t, p.Cursor(), p.NSlow())
		}
		assert.Equal(t, before, p.Cursor())
		p.NextImpulse()
	}
}

func TestCubeHoldsLatestPulses(t *testing.T) {
	p, err := NewProcessor(5, 3, nil, plan.NewPlanner())
	require.NoError(t, err)

	const total = 13
	for n := 0; n < total; n++ {
		feed(p, n)
	}
	for age := 0; age < p.NSlow(); age++ {
		pulse := p.Pulse(age)
		for i, x := range pulse {
			assert.Equal(t, complex(float32(total-1-age), float32(i)), x)
		}
	}
	assert.Panics(t, func() { p.Pulse(p.NSlow()) })
}

func TestInputBufferIsBounded(t *testing.T) {
	p, err := NewProcessor(3, 4, nil, nil)
	require.NoError(t, err)
	row := p.InputBuffer()
	assert.Len(t, row, 4)
	assert.Equal(t, 4, cap(row))
}

func referenceColumn(p *Processor, col int) []complex128 {
	in := make([]complex128, p.NSlow())
	for r := range in {
		in[r] = complex128(p.Pulse(p.NSlow() - 1 - r)[col])
		if p.window != nil {
			in[r] *= complex(float64(p.window[r]), 0)
		}
	}
	out := dspfft.FFT(in)
	shifted := make([]complex128, len(out))
	ShiftInto(out, shifted)
	return shifted
}

func fillRandomish(p *Processor, pulses int) {
	for n := 0; n < pulses; n++ {
		row := p.InputBuffer()
		for i := range row {
			phase := 0.37*float64(n*n) + 1.3*float64(i)
			row[i] = complex64(cmplx.Rect(1+0.1*float64(i), phase))
		}
		p.NextImpulse()
	}
}

func TestRangeDopplerMatchesReference(t *testing.T) {
	for _, nSlow := range []int{6, 7} {
		p, err := NewProcessor(nSlow, 5, nil, nil)
		require.NoError(t, err)
		fillRandomish(p, 2*nSlow+3)

		out := NewMatrix(nSlow, 5)
		p.RangeDoppler(out)

		for col := 0; col < 5; col++ {
			want := referenceColumn(p, col)
			for row := 0; row < nSlow; row++ {
				assert.InDelta(t, 0, cmplx.Abs(want[row]-complex128(out.At(row, col))), 1e-4,
					"nSlow %d row %d col %d", nSlow, row, col)
			}
		}
	}
}

func TestRangeDopplerWindow(t *testing.T) {
	w := []float32{0.1, 0.5, 1, 0.5, 0.1}
	p, err := NewProcessor(5, 2, w, nil)
	require.NoError(t, err)
	fillRandomish(p, 8)

	out := NewMatrix(5, 2)
	p.RangeDoppler(out)
	for col := 0; col < 2; col++ {
		want := referenceColumn(p, col)
		for row := 0; row < 5; row++ {
			assert.InDelta(t, 0, cmplx.Abs(want[row]-complex128(out.At(row, col))), 1e-4)
		}
	}
}

func TestStaticReturnLandsOnZeroDoppler(t *testing.T) {
	for _, nSlow := range []int{8, 9} {
		p, err := NewProcessor(nSlow, 3, nil, nil)
		require.NoError(t, err)
		for n := 0; n < nSlow; n++ {
			row := p.InputBuffer()
			row[1] = 2 + 1i
			p.NextImpulse()
		}

		out := NewMatrix(nSlow, 3)
		p.RangeDoppler(out)
		zero := ZeroDopplerRow(nSlow)
		for r := 0; r < nSlow; r++ {
			if r == zero {
				assert.InDelta(t, float64(nSlow)*math.Sqrt(5), cmplx.Abs(complex128(out.At(r, 1))), 1e-4)
			} else {
				assert.InDelta(t, 0, cmplx.Abs(complex128(out.At(r, 1))), 1e-4)
			}
		}
	}
}

func TestFastTimeShiftRotation(t *testing.T) {
	const nSlow, nFast = 6, 7
	p, err := NewProcessor(nSlow, nFast, nil, nil)
	require.NoError(t, err)
	fillRandomish(p, 9)

	base := NewMatrix(nSlow, nFast)
	p.RangeDoppler(base)

	for k := 0; k < nFast; k++ {
		p.SetFastTimeShift(k)
		shifted := NewMatrix(nSlow, nFast)
		p.RangeDoppler(shifted)
		for row := 0; row < nSlow; row++ {
			for j := 0; j < nFast; j++ {
				assert.Equal(t, base.At(row, (j+k)%nFast), shifted.At(row, j), "k %d row %d col %d", k, row, j)
			}
		}
	}

	assert.Panics(t, func() { p.SetFastTimeShift(nFast) })
	assert.Panics(t, func() { p.SetFastTimeShift(-1) })
}

func TestRangeDopplerIsPureRead(t *testing.T) {
	p, err := NewProcessor(4, 3, nil, nil)
	require.NoError(t, err)
	fillRandomish(p, 6)
	cursor := p.Cursor()

	a := NewMatrix(4, 3)
	b := NewMatrix(4, 3)
	p.RangeDoppler(a)
	p.RangeDoppler(b)
	assert.Equal(t, cursor, p.Cursor())
	assert.Equal(t, a.Data, b.Data)
}

func TestRangeDopplerShapeMismatchPanics(t *testing.T) {
	p, err := NewProcessor(4, 3, nil, nil)
	require.NoError(t, err)
	assert.Panics(t, func() { p.RangeDoppler(NewMatrix(3, 4)) })
}

func TestRangeDopplerDoesNotAllocate(t *testing.T) {
	p, err := NewProcessor(16, 32, nil, nil)
	require.NoError(t, err)
	fillRandomish(p, 20)
	p.SetFastTimeShift(5)
	out := NewMatrix(16, 32)

	allocs := testing.AllocsPerRun(10, func() { p.RangeDoppler(out) })
	assert.Zero(t, allocs)
}
