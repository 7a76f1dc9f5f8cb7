package sonar

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/norasector/sonar/pkg/dsp/clutter"
	"github.com/norasector/sonar/pkg/dsp/matched"
)

var (
	// ErrConfiguration wraps every construction-time validation failure.
	ErrConfiguration = errors.New("sonar: invalid configuration")
	// ErrInputLengthMismatch is returned for a pulse frame whose length is
	// not the reference pulse length. The engine state is left untouched.
	ErrInputLengthMismatch = matched.ErrInputLengthMismatch
)

// Options configures an Engine.
type Options struct {
	// Impulse is the transmitted reference pulse. Its length L is the frame
	// length for every incoming pulse.
	Impulse []float32
	// NormalizedCarrier is the carrier frequency in cycles per sample.
	NormalizedCarrier float64
	// Decimation keeps every Decimation-th correlation sample, giving
	// ceil(L/Decimation) range bins.
	Decimation int

	// SlowTimeLength is the number of retained pulses. It may be left zero
	// when SlowTimeWindow is set.
	SlowTimeLength int
	// SlowTimeWindow weights the retained pulses, oldest first. nil means no
	// weighting.
	SlowTimeWindow []float32

	ClutterFilter      clutter.Variant
	ClutterFilterAlpha float32
	ClutterMapAlpha    float32

	// TrackOffset drives the fast time shift from the strongest clutter map
	// bin after every pulse.
	TrackOffset bool
	// FastTimeShift is the fixed range rotation used when TrackOffset is off.
	FastTimeShift int
	// RemoveZeroDoppler clears the zero-Doppler row before magnitudes are
	// taken.
	RemoveZeroDoppler bool
}

func (o Options) slowTimeLength() int {
	if o.SlowTimeLength == 0 && o.SlowTimeWindow != nil {
		return len(o.SlowTimeWindow)
	}
	return o.SlowTimeLength
}

// Validate checks o and returns an error wrapping ErrConfiguration.
func (o Options) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
	}

	if len(o.Impulse) == 0 {
		return invalid("reference pulse is empty")
	}
	for i, x := range o.Impulse {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return invalid("reference pulse sample %d is not finite", i)
		}
	}
	if math.IsNaN(o.NormalizedCarrier) || math.IsInf(o.NormalizedCarrier, 0) {
		return invalid("normalized carrier %v is not finite", o.NormalizedCarrier)
	}
	if o.Decimation < 1 {
		return invalid("decimation must be at least 1, got %d", o.Decimation)
	}

	nSlow := o.slowTimeLength()
	if nSlow < 1 {
		return invalid("slow time length must be at least 1, got %d", nSlow)
	}
	if o.SlowTimeWindow != nil && len(o.SlowTimeWindow) != nSlow {
		return invalid("slow time window has %d weights for %d pulses", len(o.SlowTimeWindow), nSlow)
	}

	if !validAlpha(o.ClutterMapAlpha) {
		return invalid("clutter map alpha must be in (0, 1), got %v", o.ClutterMapAlpha)
	}
	if !o.ClutterFilter.Valid() {
		return invalid("unknown clutter filter %v", o.ClutterFilter)
	}
	if o.ClutterFilter == clutter.VariantLeakyIntegrator && !validAlpha(o.ClutterFilterAlpha) {
		return invalid("clutter filter alpha must be in (0, 1), got %v", o.ClutterFilterAlpha)
	}

	nFast := matched.OutputLength(len(o.Impulse), o.Decimation)
	if o.FastTimeShift < 0 || o.FastTimeShift >= nFast {
		return invalid("fast time shift %d outside [0, %d)", o.FastTimeShift, nFast)
	}

	return nil
}

func validAlpha(alpha float32) bool {
	return alpha > 0 && alpha < 1
}

// ParseClutterOption maps a configuration selector to a filter variant.
// "remove-zero" selects no cancellation plus zero-Doppler suppression.
func ParseClutterOption(s string) (variant clutter.Variant, removeZero bool, err error) {
	if strings.EqualFold(strings.TrimSpace(s), "remove-zero") {
		return clutter.VariantNone, true, nil
	}
	variant, err = clutter.ParseVariant(s)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return variant, false, nil
}
