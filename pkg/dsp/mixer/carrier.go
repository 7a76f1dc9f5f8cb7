package mixer

import (
	"math"
)

const (
	tau float64 = math.Pi * 2
)

// Derotator holds cis(-2π·n·f) for every full-rate sample index n of a pulse,
// where f is the carrier frequency in cycles per sample. Multiplying a sample
// by the entry at its own index shifts the carrier down to baseband.
type Derotator struct {
	frequency float64
	table     []complex128
}

func NewDerotator(length int, normalizedFreq float64) *Derotator {
	ret := &Derotator{
		frequency: normalizedFreq,
		table:     make([]complex128, length),
	}

	for n := range ret.table {
		// Wrap the phase before Sincos so long pulses keep full precision.
		phase := -tau * math.Mod(float64(n)*normalizedFreq, 1.0)
		sin, cos := math.Sincos(phase)
		ret.table[n] = complex(cos, sin)
	}

	return ret
}

func (d *Derotator) Len() int {
	return len(d.table)
}

func (d *Derotator) Frequency() float64 {
	return d.frequency
}

// At returns the phasor for full-rate sample index n.
func (d *Derotator) At(n int) complex128 {
	return d.table[n]
}
