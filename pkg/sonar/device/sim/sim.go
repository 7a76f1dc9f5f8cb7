// Package sim synthesises the echo stream of a looping transmit pulse.
package sim

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Target is a point reflector. Velocity is positive when receding.
type Target struct {
	Range     float64 `yaml:"range"`
	Velocity  float64 `yaml:"velocity"`
	Amplitude float64 `yaml:"amplitude"`
}

type Options struct {
	SampleRate   float64
	SpeedOfSound float64
	// Pulse is transmitted back to back, so every frame of len(Pulse)
	// samples starts with a transmission.
	Pulse   []float32
	Targets []Target
	// DirectPath is the amplitude of the undelayed speaker to microphone leak.
	DirectPath float64
	NoiseLevel float64
	Seed       int64
}

// Generator produces the received signal sample by sample. It is
// deterministic for a given Options.
type Generator struct {
	opts  Options
	pulse []float64
	noise *rand.Rand
	n     int64
}

func NewGenerator(opts Options) (*Generator, error) {
	switch {
	case len(opts.Pulse) == 0:
		return nil, fmt.Errorf("sim: pulse is empty")
	case opts.SampleRate <= 0:
		return nil, fmt.Errorf("sim: sample rate must be positive, got %f", opts.SampleRate)
	case opts.SpeedOfSound <= 0:
		return nil, fmt.Errorf("sim: speed of sound must be positive, got %f", opts.SpeedOfSound)
	case opts.NoiseLevel < 0:
		return nil, fmt.Errorf("sim: noise level must not be negative, got %f", opts.NoiseLevel)
	}
	for i, t := range opts.Targets {
		if t.Range < 0 {
			return nil, fmt.Errorf("sim: target %d has negative range %f", i, t.Range)
		}
	}

	pulse := make([]float64, len(opts.Pulse))
	for i, x := range opts.Pulse {
		pulse[i] = float64(x)
	}
	return &Generator{
		opts:  opts,
		pulse: pulse,
		noise: rand.New(rand.NewSource(opts.Seed)),
	}, nil
}

// Delay returns the two-way delay in samples of target t at sample n.
func (g *Generator) Delay(t Target, n int64) float64 {
	seconds := float64(n) / g.opts.SampleRate
	r := t.Range + t.Velocity*seconds
	return 2 * r / g.opts.SpeedOfSound * g.opts.SampleRate
}

// at samples the looping pulse at a fractional position.
func (g *Generator) at(pos float64) float64 {
	l := float64(len(g.pulse))
	pos = math.Mod(pos, l)
	if pos < 0 {
		pos += l
	}
	i := int(pos)
	frac := pos - float64(i)
	j := i + 1
	if j == len(g.pulse) {
		j = 0
	}
	return g.pulse[i]*(1-frac) + g.pulse[j]*frac
}

// Read fills dst with the next len(dst) samples.
func (g *Generator) Read(dst []float32) {
	for i := range dst {
		n := g.n
		x := g.opts.DirectPath * g.at(float64(n))
		for _, t := range g.opts.Targets {
			x += t.Amplitude * g.at(float64(n)-g.Delay(t, n))
		}
		if g.opts.NoiseLevel > 0 {
			x += g.noise.NormFloat64() * g.opts.NoiseLevel
		}
		dst[i] = float32(x)
		g.n++
	}
}

// Position is the number of samples generated so far.
func (g *Generator) Position() int64 {
	return g.n
}

// SimDevice streams a Generator as if it were a capture device.
type SimDevice struct {
	gen         *Generator
	chunkSize   int
	timeBetween time.Duration
	maxSamples  int64
}

// NewSimDevice streams chunkSize samples every timeBetween (as fast as
// possible when zero). maxSamples bounds the stream; zero runs forever.
func NewSimDevice(opts Options, chunkSize int, timeBetween time.Duration, maxSamples int64) (*SimDevice, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("sim: chunk size must be positive, got %d", chunkSize)
	}
	gen, err := NewGenerator(opts)
	if err != nil {
		return nil, err
	}
	return &SimDevice{
		gen:         gen,
		chunkSize:   chunkSize,
		timeBetween: timeBetween,
		maxSamples:  maxSamples,
	}, nil
}

func (s *SimDevice) Start(ctx context.Context, samples chan<- []float32) error {
	var tick <-chan time.Time
	if s.timeBetween > 0 {
		ticker := time.NewTicker(s.timeBetween)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		n := int64(s.chunkSize)
		if s.maxSamples > 0 {
			left := s.maxSamples - s.gen.Position()
			if left <= 0 {
				return nil
			}
			if left < n {
				n = left
			}
		}

		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}

		chunk := make([]float32, n)
		s.gen.Read(chunk)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case samples <- chunk:
		}
	}
}

func (s *SimDevice) Stop() error {
	return nil
}

func (s *SimDevice) SampleRate() int {
	return int(s.gen.opts.SampleRate)
}
