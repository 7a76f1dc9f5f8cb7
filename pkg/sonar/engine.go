package sonar

import (
	"fmt"
	"math/cmplx"

	"github.com/rs/zerolog"

	"github.com/norasector/sonar/pkg/dsp/buffer"
	"github.com/norasector/sonar/pkg/dsp/clutter"
	"github.com/norasector/sonar/pkg/dsp/doppler"
	"github.com/norasector/sonar/pkg/dsp/matched"
	"github.com/norasector/sonar/pkg/dsp/plan"
	"github.com/norasector/sonar/pkg/dsp/window"
)

/*
	accumulator ---> matched filter ---+---> clutter filter ---> range doppler ---> map
	                                   |                            ^
	                                   |                            | (argmax)
	                                   +---> clutter map -----------+
*/

// Engine is the per-pulse signal chain. It is not safe for concurrent use;
// drive it from a single goroutine.
type Engine struct {
	accumulator   *buffer.Accumulator
	matchedFilter *matched.MatchedFilter
	clutterMap    *clutter.Map
	clutterFilter clutter.Filter
	rangeDoppler  *doppler.Processor
	output        *doppler.Matrix

	trackOffset bool
	removeZero  bool

	pulses   uint64
	rejected uint64
	logger   zerolog.Logger
}

type EngineOption func(e *Engine) error

func WithEngineLogger(logger zerolog.Logger) EngineOption {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// NewEngine validates opts and builds every stage. FFT plans, the carrier
// table and all buffers are allocated here and reused for the lifetime of the
// engine.
func NewEngine(opts Options, engineOpts ...EngineOption) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		trackOffset: opts.TrackOffset,
		removeZero:  opts.RemoveZeroDoppler,
		logger:      zerolog.Nop(),
	}
	for _, opt := range engineOpts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	planner := plan.NewPlanner()
	var err error

	e.matchedFilter, err = matched.NewMatchedFilter(opts.Impulse, opts.NormalizedCarrier, opts.Decimation, planner)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	nFast := e.matchedFilter.OutputLength()
	nSlow := opts.slowTimeLength()

	e.rangeDoppler, err = doppler.NewProcessor(nSlow, nFast, opts.SlowTimeWindow, planner)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	e.rangeDoppler.SetFastTimeShift(opts.FastTimeShift)

	e.clutterMap, err = clutter.NewMap(nFast, opts.ClutterMapAlpha)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	e.clutterFilter, err = clutter.New(opts.ClutterFilter, nFast, opts.ClutterFilterAlpha)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	e.accumulator = buffer.NewAccumulator(len(opts.Impulse))
	e.output = doppler.NewMatrix(nSlow, nFast)

	gain := 1.0
	if opts.SlowTimeWindow != nil {
		gain = window.CoherentGain(opts.SlowTimeWindow)
	}
	e.logger.Info().
		Int("pulse_length", len(opts.Impulse)).
		Int("decimation", opts.Decimation).
		Int("n_fast", nFast).
		Int("n_slow", nSlow).
		Float64("window_gain", gain).
		Str("clutter_filter", opts.ClutterFilter.String()).
		Bool("track_offset", opts.TrackOffset).
		Bool("remove_zero_doppler", opts.RemoveZeroDoppler).
		Msg("sonar engine ready")

	return e, nil
}

// FeedSamples accepts an arbitrarily sized chunk of raw samples and reports
// whether a pulse was completed and processed.
func (e *Engine) FeedSamples(samples []float32) bool {
	frame, ok := e.accumulator.HandleInput(samples)
	if !ok {
		return false
	}
	if err := e.ProcessPulse(frame); err != nil {
		e.logger.Debug().Err(err).Msg("dropped pulse")
		return false
	}
	return true
}

// ProcessPulse runs one pulse-aligned frame through the chain. A frame of the
// wrong length is rejected with ErrInputLengthMismatch and changes nothing.
func (e *Engine) ProcessPulse(frame []float32) error {
	row := e.rangeDoppler.InputBuffer()
	if err := e.matchedFilter.HandleImpulse(frame, row); err != nil {
		e.rejected++
		return err
	}

	e.clutterMap.Process(row)
	e.clutterFilter.ProcessInplace(row)
	e.rangeDoppler.NextImpulse()

	if e.trackOffset {
		e.rangeDoppler.SetFastTimeShift(e.clutterMap.Argmax())
	}
	e.pulses++

	return nil
}

// RangeDopplerMap computes magnitudes of the current range-Doppler matrix.
// dst is reused when it has the right shape, otherwise a new Map is returned.
func (e *Engine) RangeDopplerMap(dst *Map) *Map {
	e.rangeDoppler.RangeDoppler(e.output)

	if e.removeZero {
		row := e.output.Row(doppler.ZeroDopplerRow(e.output.Rows))
		for i := range row {
			row[i] = 0
		}
	}

	if !dst.fits(e.output.Rows, e.output.Cols) {
		dst = NewMap(e.output.Rows, e.output.Cols)
	}
	for i, x := range e.output.Data {
		dst.Data[i] = float32(cmplx.Abs(complex128(x)))
	}
	return dst
}

// SetFastTimeShift fixes the range rotation. It is overridden after the next
// pulse when offset tracking is on.
func (e *Engine) SetFastTimeShift(shift int) error {
	if shift < 0 || shift >= e.NFast() {
		return fmt.Errorf("%w: fast time shift %d outside [0, %d)", ErrConfiguration, shift, e.NFast())
	}
	e.rangeDoppler.SetFastTimeShift(shift)
	return nil
}

func (e *Engine) FastTimeShift() int { return e.rangeDoppler.FastTimeShift() }

// DominantBin is the range bin with the strongest tracked clutter.
func (e *Engine) DominantBin() int { return e.clutterMap.Argmax() }

func (e *Engine) PulseLength() int { return e.matchedFilter.InputLength() }
func (e *Engine) NFast() int       { return e.rangeDoppler.NFast() }
func (e *Engine) NSlow() int       { return e.rangeDoppler.NSlow() }

// Pulses is the number of pulses processed so far.
func (e *Engine) Pulses() uint64 { return e.pulses }

// Rejected is the number of frames refused for having the wrong length.
func (e *Engine) Rejected() uint64 { return e.rejected }
