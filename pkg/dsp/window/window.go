// Package window builds symmetric tapering windows used to weight the
// slow-time history before the Doppler transform.
package window

import (
	"fmt"
	"strings"

	gwindow "gonum.org/v1/gonum/dsp/window"
)

type Type int

const (
	Rectangular Type = iota
	Hann
	Hamming
	Blackman
	BlackmanHarris
)

var typeNames = map[Type]string{
	Rectangular:    "rectangular",
	Hann:           "hann",
	Hamming:        "hamming",
	Blackman:       "blackman",
	BlackmanHarris: "blackman-harris",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "none" {
		return Rectangular, nil
	}
	for t, name := range typeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("window: unknown type %q", s)
}

// New returns n symmetric weights of the given type.
func New(t Type, n int) ([]float32, error) {
	if n <= 0 {
		return nil, fmt.Errorf("window: length must be positive, got %d", n)
	}

	var apply func([]float64) []float64
	switch t {
	case Rectangular:
		apply = gwindow.Rectangular
	case Hann:
		apply = gwindow.Hann
	case Hamming:
		apply = gwindow.Hamming
	case Blackman:
		apply = gwindow.Blackman
	case BlackmanHarris:
		apply = gwindow.BlackmanHarris
	default:
		return nil, fmt.Errorf("window: unknown type %v", t)
	}

	seq := make([]float64, n)
	for i := range seq {
		seq[i] = 1
	}
	// A single tap would divide by n-1.
	if n > 1 {
		apply(seq)
	}

	ret := make([]float32, n)
	for i, x := range seq {
		ret[i] = float32(x)
	}
	return ret, nil
}

// CoherentGain is the mean weight, the amplitude a pure tone keeps after
// windowing.
func CoherentGain(w []float32) float64 {
	if len(w) == 0 {
		return 0
	}
	var sum float64
	for _, x := range w {
		sum += float64(x)
	}
	return sum / float64(len(w))
}
