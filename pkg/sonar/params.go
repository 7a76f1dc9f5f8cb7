package sonar

import (
	"fmt"
	"math"
)

// DefaultSpeedOfSound is the speed of sound in air at about 20 °C, in m/s.
const DefaultSpeedOfSound = 343.0

// bandwidthOversample is how far the decimated rate stays above the pulse
// bandwidth.
const bandwidthOversample = 1.3

// Parameters are the physical resolutions that follow from a configuration.
type Parameters struct {
	SampleRate        float64
	CarrierFreq       float64
	NormalizedCarrier float64
	PulseLength       int
	Decimation        int
	NFast             int
	NSlow             int

	RangeResolution    float64 // metres per range bin
	MaxRange           float64 // metres covered by the range axis
	CPI                float64 // seconds of history in one map
	DopplerResolution  float64 // Hz per Doppler bin
	Wavelength         float64 // metres
	VelocityResolution float64 // m/s per Doppler bin
}

func DeriveParameters(sampleRate, carrierFreq float64, pulseLength, decimation, nSlow int, speedOfSound float64) (Parameters, error) {
	switch {
	case sampleRate <= 0:
		return Parameters{}, fmt.Errorf("%w: sample rate must be positive, got %v", ErrConfiguration, sampleRate)
	case carrierFreq <= 0 || carrierFreq >= sampleRate/2:
		return Parameters{}, fmt.Errorf("%w: carrier %v Hz outside (0, %v)", ErrConfiguration, carrierFreq, sampleRate/2)
	case pulseLength < 1 || decimation < 1 || nSlow < 1:
		return Parameters{}, fmt.Errorf("%w: pulse length, decimation and slow time length must be positive", ErrConfiguration)
	}
	if speedOfSound <= 0 {
		speedOfSound = DefaultSpeedOfSound
	}

	p := Parameters{
		SampleRate:        sampleRate,
		CarrierFreq:       carrierFreq,
		NormalizedCarrier: carrierFreq / sampleRate,
		PulseLength:       pulseLength,
		Decimation:        decimation,
		NFast:             (pulseLength + decimation - 1) / decimation,
		NSlow:             nSlow,
	}
	// Echoes travel out and back, so one sample of delay is half a sample
	// of sound travel in range.
	p.RangeResolution = speedOfSound / (2 * sampleRate) * float64(decimation)
	p.MaxRange = p.RangeResolution * float64(p.NFast)
	p.CPI = float64(pulseLength*nSlow) / sampleRate
	p.DopplerResolution = 1 / p.CPI
	p.Wavelength = speedOfSound / carrierFreq
	p.VelocityResolution = p.DopplerResolution * p.Wavelength / 2
	return p, nil
}

// DecimationForBandwidth picks the largest decimation that keeps the
// decimated rate 30% above bandwidth.
func DecimationForBandwidth(sampleRate, bandwidth float64) int {
	if bandwidth <= 0 {
		return 1
	}
	d := int(math.Floor(sampleRate / (bandwidth * bandwidthOversample)))
	if d < 1 {
		return 1
	}
	return d
}

// RangeOf returns the range in metres of map column col, given the applied
// fast time shift.
func (p Parameters) RangeOf(col, shift int) float64 {
	return float64((col+shift)%p.NFast) * p.RangeResolution
}

// VelocityOf returns the radial velocity of map row row. Row NSlow/2 is zero.
func (p Parameters) VelocityOf(row int) float64 {
	return float64(row-p.NSlow/2) * p.VelocityResolution
}
