package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/norasector/sonar/pkg/dsp/chirp"
	"github.com/norasector/sonar/pkg/dsp/window"
	"github.com/norasector/sonar/pkg/sonar"
	"github.com/norasector/sonar/pkg/sonar/device/sim"
)

type Config struct {
	Device           string        `yaml:"device"`
	PlaybackLocation string        `yaml:"playback_location"`
	WavChannel       int           `yaml:"wav_channel"`
	SampleRate       int           `yaml:"sample_rate"`
	ChunkSize        int           `yaml:"chunk_size"`
	ChunkInterval    time.Duration `yaml:"chunk_interval"`

	Pulse struct {
		Length      int     `yaml:"length"`
		CarrierFreq float64 `yaml:"carrier_freq"`
		Bandwidth   float64 `yaml:"bandwidth"`
	} `yaml:"pulse"`
	// Decimation of 0 is derived from the pulse bandwidth.
	Decimation     int `yaml:"decimation"`
	SlowTimeWindow struct {
		Length int    `yaml:"length"`
		Type   string `yaml:"type"`
	} `yaml:"slow_time_window"`

	ClutterFilter      string  `yaml:"clutter_filter"`
	ClutterFilterAlpha float32 `yaml:"clutter_filter_alpha"`
	ClutterMapAlpha    float32 `yaml:"clutter_map_alpha"`
	TrackOffset        bool    `yaml:"track_offset"`
	FastTimeShift      int     `yaml:"fast_time_shift"`
	RemoveZeroDoppler  bool    `yaml:"remove_zero_doppler"`

	PublishEvery int     `yaml:"publish_every"`
	SpeedOfSound float64 `yaml:"speed_of_sound"`
	TextOutput   struct {
		Enabled bool `yaml:"enabled"`
		Columns int  `yaml:"columns"`
	} `yaml:"text_output"`

	Sim struct {
		Targets    []sim.Target `yaml:"targets"`
		DirectPath float64      `yaml:"direct_path"`
		NoiseLevel float64      `yaml:"noise_level"`
		Seed       int64        `yaml:"seed"`
		// Pulses stops the simulation after this many pulses; 0 runs forever.
		Pulses int64 `yaml:"pulses"`
	} `yaml:"sim"`

	InfluxDB struct {
		Host         string `yaml:"host"`
		Organization string `yaml:"organization"`
		Bucket       string `yaml:"bucket"`
	} `yaml:"influxdb"`
	Debug bool `yaml:"debug"`
}

// Default returns the configuration used for anything a file leaves out.
func Default() Config {
	var c Config
	c.Device = "sim"
	c.SampleRate = 48000
	c.ChunkSize = 128
	c.Pulse.Length = 512
	c.Pulse.CarrierFreq = 18000
	c.Pulse.Bandwidth = 4000
	c.SlowTimeWindow.Length = 20
	c.SlowTimeWindow.Type = "rectangular"
	c.ClutterFilter = "two-pulse"
	c.ClutterFilterAlpha = 0.1
	c.ClutterMapAlpha = 0.1
	c.PublishEvery = 4
	c.SpeedOfSound = sonar.DefaultSpeedOfSound
	c.Sim.DirectPath = 1
	return c
}

func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(contents)
}

// Parse decodes YAML on top of Default.
func Parse(contents []byte) (Config, error) {
	c := Default()
	if err := yaml.UnmarshalStrict(contents, &c); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if c.PlaybackLocation != "" && c.Device == "sim" {
		c.Device = "file"
	}
	return c, nil
}

// Impulse generates the reference chirp.
func (c Config) Impulse() ([]float32, error) {
	return chirp.Generate(c.Pulse.CarrierFreq, c.Pulse.Bandwidth, float64(c.SampleRate), c.Pulse.Length)
}

// EngineOptions turns the file settings into engine options and the physical
// parameters they imply.
func (c Config) EngineOptions() (sonar.Options, sonar.Parameters, error) {
	impulse, err := c.Impulse()
	if err != nil {
		return sonar.Options{}, sonar.Parameters{}, fmt.Errorf("%w: %v", sonar.ErrConfiguration, err)
	}

	decimation := c.Decimation
	if decimation == 0 {
		decimation = sonar.DecimationForBandwidth(float64(c.SampleRate), c.Pulse.Bandwidth)
	}

	windowType, err := window.ParseType(c.SlowTimeWindow.Type)
	if err != nil {
		return sonar.Options{}, sonar.Parameters{}, fmt.Errorf("%w: %v", sonar.ErrConfiguration, err)
	}
	var slowTimeWindow []float32
	if windowType != window.Rectangular {
		slowTimeWindow, err = window.New(windowType, c.SlowTimeWindow.Length)
		if err != nil {
			return sonar.Options{}, sonar.Parameters{}, fmt.Errorf("%w: %v", sonar.ErrConfiguration, err)
		}
	}

	variant, removeZero, err := sonar.ParseClutterOption(c.ClutterFilter)
	if err != nil {
		return sonar.Options{}, sonar.Parameters{}, err
	}

	params, err := sonar.DeriveParameters(float64(c.SampleRate), c.Pulse.CarrierFreq,
		c.Pulse.Length, decimation, c.SlowTimeWindow.Length, c.SpeedOfSound)
	if err != nil {
		return sonar.Options{}, sonar.Parameters{}, err
	}

	opts := sonar.Options{
		Impulse:            impulse,
		NormalizedCarrier:  params.NormalizedCarrier,
		Decimation:         decimation,
		SlowTimeLength:     c.SlowTimeWindow.Length,
		SlowTimeWindow:     slowTimeWindow,
		ClutterFilter:      variant,
		ClutterFilterAlpha: c.ClutterFilterAlpha,
		ClutterMapAlpha:    c.ClutterMapAlpha,
		TrackOffset:        c.TrackOffset,
		FastTimeShift:      c.FastTimeShift,
		RemoveZeroDoppler:  c.RemoveZeroDoppler || removeZero,
	}
	if err := opts.Validate(); err != nil {
		return sonar.Options{}, sonar.Parameters{}, err
	}
	return opts, params, nil
}

// SimOptions describes the simulated scene around impulse.
func (c Config) SimOptions(impulse []float32) sim.Options {
	return sim.Options{
		SampleRate:   float64(c.SampleRate),
		SpeedOfSound: c.SpeedOfSound,
		Pulse:        impulse,
		Targets:      c.Sim.Targets,
		DirectPath:   c.Sim.DirectPath,
		NoiseLevel:   c.Sim.NoiseLevel,
		Seed:         c.Sim.Seed,
	}
}
