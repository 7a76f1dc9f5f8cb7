package sim

import (
	"context"
	"math/cmplx"
	"testing"

	"github.com/norasector/sonar/pkg/dsp/chirp"
	"github.com/norasector/sonar/pkg/dsp/matched"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sampleRate = 48000.0
	c          = 343.0
	pulseLen   = 512
)

func testPulse() []float32 {
	return chirp.MustGenerate(10000, 4000, sampleRate, pulseLen)
}

// rangeForDelay is the range whose echo arrives delay samples late.
func rangeForDelay(delay float64) float64 {
	return delay * c / (2 * sampleRate)
}

func TestGeneratorValidation(t *testing.T) {
	base := Options{SampleRate: sampleRate, SpeedOfSound: c, Pulse: []float32{1}}

	tests := []struct {
		name   string
		modify func(o *Options)
	}{
		{"empty pulse", func(o *Options) { o.Pulse = nil }},
		{"sample rate", func(o *Options) { o.SampleRate = 0 }},
		{"speed of sound", func(o *Options) { o.SpeedOfSound = -1 }},
		{"noise", func(o *Options) { o.NoiseLevel = -0.1 }},
		{"range", func(o *Options) { o.Targets = []Target{{Range: -1}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := base
			tt.modify(&o)
			_, err := NewGenerator(o)
			assert.Error(t, err)
		})
	}

	_, err := NewGenerator(base)
	assert.NoError(t, err)
}

func TestDirectPathRepeatsPulse(t *testing.T) {
	pulse := []float32{1, 2, 3, 4}
	g, err := NewGenerator(Options{SampleRate: sampleRate, SpeedOfSound: c, Pulse: pulse, DirectPath: 0.5})
	require.NoError(t, err)

	out := make([]float32, 10)
	g.Read(out)
	assert.Equal(t, []float32{0.5, 1, 1.5, 2, 0.5, 1, 1.5, 2, 0.5, 1}, out)
	assert.Equal(t, int64(10), g.Position())
}

func TestFractionalDelayInterpolates(t *testing.T) {
	pulse := []float32{0, 2, 0, 0}
	g, err := NewGenerator(Options{
		SampleRate:   sampleRate,
		SpeedOfSound: c,
		Pulse:        pulse,
		Targets:      []Target{{Range: rangeForDelay(1.5), Amplitude: 1}},
	})
	require.NoError(t, err)

	out := make([]float32, 4)
	g.Read(out)
	assert.InDeltaSlice(t, []float32{0, 0, 1, 1}, out, 1e-5)
}

func TestChunkingIsSeamless(t *testing.T) {
	opts := Options{
		SampleRate:   sampleRate,
		SpeedOfSound: c,
		Pulse:        testPulse(),
		Targets:      []Target{{Range: 1.3, Velocity: 0.4, Amplitude: 0.3}},
		DirectPath:   1,
		NoiseLevel:   0.01,
		Seed:         7,
	}
	whole, err := NewGenerator(opts)
	require.NoError(t, err)
	pieces, err := NewGenerator(opts)
	require.NoError(t, err)

	want := make([]float32, 1000)
	whole.Read(want)

	got := make([]float32, 0, 1000)
	for _, n := range []int{1, 99, 400, 500} {
		buf := make([]float32, n)
		pieces.Read(buf)
		got = append(got, buf...)
	}
	assert.Equal(t, want, got)
}

func TestStaticEchoCompressesToDelay(t *testing.T) {
	pulse := testPulse()
	g, err := NewGenerator(Options{
		SampleRate:   sampleRate,
		SpeedOfSound: c,
		Pulse:        pulse,
		Targets:      []Target{{Range: rangeForDelay(40), Amplitude: 0.5}},
	})
	require.NoError(t, err)

	frame := make([]float32, pulseLen)
	g.Read(frame)

	mf, err := matched.NewMatchedFilter(pulse, 10000/sampleRate, 1, nil)
	require.NoError(t, err)
	out := make([]complex64, mf.OutputLength())
	require.NoError(t, mf.HandleImpulse(frame, out))

	best := 0
	for i := range out {
		if cmplx.Abs(complex128(out[i])) > cmplx.Abs(complex128(out[best])) {
			best = i
		}
	}
	assert.Equal(t, 40, best)
}

func TestSimDeviceStopsAtLimit(t *testing.T) {
	dev, err := NewSimDevice(Options{SampleRate: sampleRate, SpeedOfSound: c, Pulse: []float32{1, 0}}, 3, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 48000, dev.SampleRate())

	ch := make(chan []float32, 8)
	require.NoError(t, dev.Start(context.Background(), ch))
	close(ch)

	var sizes []int
	for c := range ch {
		sizes = append(sizes, len(c))
	}
	assert.Equal(t, []int{3, 3, 3, 1}, sizes)
	assert.NoError(t, dev.Stop())
}

func TestSimDeviceCancel(t *testing.T) {
	dev, err := NewSimDevice(Options{SampleRate: sampleRate, SpeedOfSound: c, Pulse: []float32{1}}, 4, 0, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = dev.Start(ctx, make(chan []float32))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSimDeviceValidation(t *testing.T) {
	_, err := NewSimDevice(Options{SampleRate: sampleRate, SpeedOfSound: c, Pulse: []float32{1}}, 0, 0, 0)
	assert.Error(t, err)
}
