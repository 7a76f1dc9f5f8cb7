// Package chirp generates Hann-windowed logarithmic chirps for use as the
// transmitted reference pulse.
package chirp

import (
	"fmt"
	"math"
)

// Generate returns n samples of a chirp sweeping from fc-bandwidth/2 to
// fc+bandwidth/2 at sample rate fs.
func Generate(fc, bandwidth, fs float64, n int) ([]float32, error) {
	f0 := fc - bandwidth/2
	f1 := fc + bandwidth/2
	switch {
	case n <= 0:
		return nil, fmt.Errorf("chirp: length must be positive, got %d", n)
	case fs <= 0:
		return nil, fmt.Errorf("chirp: sample rate must be positive, got %f", fs)
	case bandwidth <= 0:
		return nil, fmt.Errorf("chirp: bandwidth must be positive, got %f", bandwidth)
	case f0 <= 0:
		return nil, fmt.Errorf("chirp: band %f-%f Hz reaches below 0 Hz", f0, f1)
	case f1 > fs/2:
		return nil, fmt.Errorf("chirp: band %f-%f Hz exceeds Nyquist %f Hz", f0, f1, fs/2)
	}

	duration := float64(n) / fs
	k := 2 * math.Pi * (-f0 * f1 * duration) / bandwidth

	ret := make([]float32, n)
	for i := range ret {
		t := float64(i) / fs
		phase := k * math.Log(1-(bandwidth/(f1*duration))*t)
		win := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n)))
		ret[i] = float32(math.Sin(phase) * win)
	}
	return ret, nil
}

// MustGenerate is Generate for known-good parameters.
func MustGenerate(fc, bandwidth, fs float64, n int) []float32 {
	ret, err := Generate(fc, bandwidth, fs, n)
	if err != nil {
		panic(err)
	}
	return ret
}
