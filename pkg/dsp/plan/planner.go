// Package plan caches gonum FFT plans by length so that components built from
// the same Planner share twiddle tables and work space.
//
// A Planner and the plans it hands out are not safe for concurrent use. All
// components sharing a Planner must be driven from a single goroutine.
package plan

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

type Planner struct {
	real    map[int]*fourier.FFT
	complex map[int]*fourier.CmplxFFT
}

func NewPlanner() *Planner {
	return &Planner{
		real:    make(map[int]*fourier.FFT),
		complex: make(map[int]*fourier.CmplxFFT),
	}
}

// Real returns the real-input plan of length n.
func (p *Planner) Real(n int) *fourier.FFT {
	f, ok := p.real[n]
	if !ok {
		f = fourier.NewFFT(n)
		p.real[n] = f
	}
	return f
}

// Complex returns the complex plan of length n. The same plan serves forward
// (Coefficients) and unnormalized inverse (Sequence) transforms.
func (p *Planner) Complex(n int) *fourier.CmplxFFT {
	f, ok := p.complex[n]
	if !ok {
		f = fourier.NewCmplxFFT(n)
		p.complex[n] = f
	}
	return f
}

// Len reports how many distinct plans have been built.
func (p *Planner) Len() int {
	return len(p.real) + len(p.complex)
}
