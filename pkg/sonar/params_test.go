package sonar

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveParameters(t *testing.T) {
	p, err := DeriveParameters(44100, 18000, 512, 8, 20, 0)
	require.NoError(t, err)

	assert.Equal(t, 64, p.NFast)
	assert.InDelta(t, 18000.0/44100, p.NormalizedCarrier, 1e-12)
	assert.InDelta(t, 343.0/(2*44100)*8, p.RangeResolution, 1e-12)
	assert.InDelta(t, p.RangeResolution*64, p.MaxRange, 1e-12)
	assert.InDelta(t, 512.0*20/44100, p.CPI, 1e-12)
	assert.InDelta(t, 44100.0/(512*20), p.DopplerResolution, 1e-9)
	assert.InDelta(t, 343.0/18000, p.Wavelength, 1e-12)
	assert.InDelta(t, p.DopplerResolution*p.Wavelength/2, p.VelocityResolution, 1e-12)
}

func TestDeriveParametersErrors(t *testing.T) {
	tests := []struct {
		name                        string
		fs, fc                      float64
		pulse, decimation, slowTime int
	}{
		{"sample rate", 0, 1000, 512, 1, 1},
		{"carrier above nyquist", 48000, 24000, 512, 1, 1},
		{"carrier zero", 48000, 0, 512, 1, 1},
		{"pulse", 48000, 1000, 0, 1, 1},
		{"decimation", 48000, 1000, 512, 0, 1},
		{"slow time", 48000, 1000, 512, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeriveParameters(tt.fs, tt.fc, tt.pulse, tt.decimation, tt.slowTime, DefaultSpeedOfSound)
			assert.True(t, errors.Is(err, ErrConfiguration))
		})
	}
}

func TestDecimationForBandwidth(t *testing.T) {
	tests := []struct {
		fs, bw float64
		want   int
	}{
		{44100, 1000, 33},
		{44100, 4000, 8},
		{44100, 16000, 2},
		{48000, 4000, 9},
		{48000, 40000, 1},
		{48000, 0, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DecimationForBandwidth(tt.fs, tt.bw), "fs %v bw %v", tt.fs, tt.bw)
	}
}

func TestRangeAndVelocityOf(t *testing.T) {
	p, err := DeriveParameters(48000, 12000, 480, 1, 10, DefaultSpeedOfSound)
	require.NoError(t, err)

	assert.InDelta(t, 5*p.RangeResolution, p.RangeOf(5, 0), 1e-12)
	assert.InDelta(t, 2*p.RangeResolution, p.RangeOf(478, 4), 1e-12)
	assert.Zero(t, p.VelocityOf(5))
	assert.InDelta(t, -2*p.VelocityResolution, p.VelocityOf(3), 1e-12)
}
