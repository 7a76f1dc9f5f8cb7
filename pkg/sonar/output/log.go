package output

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/norasector/sonar/pkg/sonar"
)

// LogOutput logs the strongest cell of every frame it gets to see.
type LogOutput struct {
	mailbox *sonar.Mailbox
	params  *sonar.Parameters
	logger  zerolog.Logger
}

// NewLogOutput logs at Info. params is optional and adds range and
// velocity to each line.
func NewLogOutput(logger zerolog.Logger, params *sonar.Parameters) *LogOutput {
	return &LogOutput{
		mailbox: sonar.NewMailbox(),
		params:  params,
		logger:  logger,
	}
}

func (l *LogOutput) Mailbox() *sonar.Mailbox {
	return l.mailbox
}

func (l *LogOutput) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.mailbox.Updates():
			frame, ok := l.mailbox.Take()
			if !ok {
				continue
			}
			l.logFrame(frame)
		}
	}
}

func (l *LogOutput) logFrame(frame *sonar.Frame) {
	row, col, value := frame.Map.Peak()
	ev := l.logger.Info().
		Uint64("pulse", frame.Pulse).
		Int("peak_row", row).
		Int("peak_bin", col).
		Float32("peak_value", value).
		Int("fast_time_shift", frame.FastTimeShift).
		Float32("input_peak", frame.InputPeak).
		Uint64("dropped", l.mailbox.Overwritten())
	if l.params != nil {
		ev = ev.
			Float64("range_m", l.params.RangeOf(col, frame.FastTimeShift)).
			Float64("velocity_mps", l.params.VelocityOf(row))
	}
	ev.Msg("range doppler peak")
}
