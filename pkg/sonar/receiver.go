package sonar

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/norasector/sonar/pkg/sonar/device"
	"github.com/norasector/sonar/pkg/util"
	"golang.org/x/sync/errgroup"
)

// DefaultPeakDecay is the per-chunk decay of the input level meter.
const DefaultPeakDecay = 0.001

type ReceiverOptions struct {
	// PublishEvery is the number of completed pulses between published maps.
	PublishEvery int
	// PeakDecay is the input level meter decay per chunk. Zero selects
	// DefaultPeakDecay.
	PeakDecay float64
	// Params, when set, converts the map peak into metres and m/s for
	// telemetry.
	Params  *Parameters
	Outputs []MapOutput
}

// Receiver pumps samples from a device through an Engine and hands
// range-Doppler frames to its outputs. The engine is only ever touched from
// the processing goroutine.
type Receiver struct {
	device   device.Device
	engine   *Engine
	opts     ReceiverOptions
	writeAPI api.WriteAPI
	logger   zerolog.Logger

	inputPeak float32
	published uint64
	drained   bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

type ReceiverOption func(r *Receiver) error

func WithInfluxDB(writeAPI api.WriteAPI) ReceiverOption {
	return func(r *Receiver) error {
		r.writeAPI = writeAPI
		return nil
	}
}

func WithLogger(logger zerolog.Logger) ReceiverOption {
	return func(r *Receiver) error {
		r.logger = logger
		return nil
	}
}

func NewReceiver(dev device.Device, engine *Engine, options ReceiverOptions, opts ...ReceiverOption) (*Receiver, error) {
	if dev == nil || engine == nil {
		return nil, fmt.Errorf("%w: receiver needs a device and an engine", ErrConfiguration)
	}
	if options.PublishEvery < 1 {
		return nil, fmt.Errorf("%w: publish interval must be at least 1 pulse, got %d", ErrConfiguration, options.PublishEvery)
	}
	if options.PeakDecay == 0 {
		options.PeakDecay = DefaultPeakDecay
	}
	if options.PeakDecay < 0 || options.PeakDecay >= 1 {
		return nil, fmt.Errorf("%w: peak decay must be in [0, 1), got %v", ErrConfiguration, options.PeakDecay)
	}

	r := &Receiver{
		device:   dev,
		engine:   engine,
		opts:     options,
		writeAPI: &util.DiscardWriteAPI{}, // overwritten with option
		logger:   log.Logger,
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Receiver) Stop() error {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()
	return r.device.Stop()
}

// Start runs until ctx is done, an error occurs or the device runs out of
// samples. Running out of samples is not an error.
func (r *Receiver) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()
	defer cancel()

	eg, ctx := errgroup.WithContext(ctx)

	chunks := make(chan []float32, 1)
	eg.Go(func() error {
		if err := r.device.Start(ctx, chunks); err != nil {
			return err
		}
		close(chunks)
		return nil
	})

	eg.Go(func() error {
		return r.processChunks(ctx, cancel, chunks)
	})

	for _, output := range r.opts.Outputs {
		thisOutput := output
		eg.Go(func() error {
			return thisOutput.Start(ctx)
		})
	}

	ev := r.logger.Info().
		Int("sample_rate", r.device.SampleRate()).
		Int("pulse_length", r.engine.PulseLength()).
		Int("n_fast", r.engine.NFast()).
		Int("n_slow", r.engine.NSlow()).
		Int("publish_every", r.opts.PublishEvery)
	if p := r.opts.Params; p != nil {
		ev = ev.
			Str("carrier", util.HzToString(p.CarrierFreq)).
			Float64("range_resolution_m", p.RangeResolution).
			Float64("max_range_m", p.MaxRange).
			Float64("velocity_resolution_mps", p.VelocityResolution).
			Dur("cpi", time.Duration(p.CPI*float64(time.Second)))
	}
	ev.Msg("Starting")

	err := eg.Wait()
	if r.drained && errors.Is(err, context.Canceled) {
		r.logger.Info().
			Uint64("pulses", r.engine.Pulses()).
			Uint64("rejected", r.engine.Rejected()).
			Uint64("published", r.published).
			Msg("end of stream")
		return nil
	}
	return err
}

func (r *Receiver) processChunks(ctx context.Context, cancel context.CancelFunc, chunks <-chan []float32) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				r.drained = true
				cancel()
				return nil
			}
			r.meterInput(chunk)

			before := r.engine.Pulses()
			r.engine.FeedSamples(chunk)
			pulses := r.engine.Pulses()
			if pulses != before && pulses%uint64(r.opts.PublishEvery) == 0 {
				r.publish(pulses)
			}
		}
	}
}

func (r *Receiver) meterInput(chunk []float32) {
	r.inputPeak *= float32(1 - r.opts.PeakDecay)
	for _, x := range chunk {
		if a := float32(math.Abs(float64(x))); a > r.inputPeak {
			r.inputPeak = a
		}
	}
}

func (r *Receiver) publish(pulse uint64) {
	var m *Map
	durationUs := util.TimeOperation(func() {
		// Outputs keep the map, so it is never reused.
		m = r.engine.RangeDopplerMap(nil)
	}).Microseconds()

	frame := &Frame{
		Map:           m,
		Pulse:         pulse,
		Timestamp:     time.Now(),
		FastTimeShift: r.engine.FastTimeShift(),
		DominantBin:   r.engine.DominantBin(),
		InputPeak:     r.inputPeak,
	}

	overwritten := 0
	for _, output := range r.opts.Outputs {
		if output.Mailbox().Publish(frame) {
			overwritten++
		}
	}
	r.published++

	row, col, value := m.Peak()
	fields := map[string]interface{}{
		"pulses":          int64(pulse),
		"rejected":        int64(r.engine.Rejected()),
		"peak_row":        row,
		"peak_col":        col,
		"peak_value":      value,
		"input_peak":      r.inputPeak,
		"fast_time_shift": frame.FastTimeShift,
		"dominant_bin":    frame.DominantBin,
		"duration_us":     durationUs,
		"overwritten":     overwritten,
	}
	if p := r.opts.Params; p != nil {
		fields["peak_range_m"] = p.RangeOf(col, frame.FastTimeShift)
		fields["peak_velocity_mps"] = p.VelocityOf(row)
	}

	go r.writeAPI.WritePoint(influxdb2.NewPoint("sonar.range_doppler",
		map[string]string{
			"n_fast": strconv.Itoa(m.Cols),
			"n_slow": strconv.Itoa(m.Rows),
		},
		fields, frame.Timestamp))

	r.logger.Debug().
		Uint64("pulse", pulse).
		Int("peak_bin", col).
		Int("peak_row", row).
		Float32("peak_value", value).
		Int64("duration_us", durationUs).
		Msg("published map")
}
