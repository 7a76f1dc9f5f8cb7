package clutter

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidAlpha   = errors.New("clutter: alpha must be in (0, 1)")
	ErrUnknownVariant = errors.New("clutter: unknown filter variant")
)

// Variant selects a cancellation strategy.
type Variant int

const (
	VariantNone Variant = iota
	VariantTwoPulse
	VariantThreePulse
	VariantLeakyIntegrator
)

var variantNames = map[Variant]string{
	VariantNone:            "none",
	VariantTwoPulse:        "two-pulse",
	VariantThreePulse:      "three-pulse",
	VariantLeakyIntegrator: "slow",
}

func (v Variant) String() string {
	if name, ok := variantNames[v]; ok {
		return name
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

// Valid reports whether v is one of the known variants.
func (v Variant) Valid() bool {
	_, ok := variantNames[v]
	return ok
}

// ParseVariant accepts the configuration names. "leaky" is an alias for "slow".
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return VariantNone, nil
	case "two-pulse":
		return VariantTwoPulse, nil
	case "three-pulse":
		return VariantThreePulse, nil
	case "slow", "leaky":
		return VariantLeakyIntegrator, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVariant, s)
}

// Filter cancels clutter from one pulse's range-bin vector in place.
// The set of implementations is closed; use New to build one.
type Filter interface {
	ProcessInplace(impulse []complex64)
	Variant() Variant
	sealed()
}

// New builds the filter for variant. alpha is only used by the leaky
// integrator.
func New(variant Variant, nFast int, alpha float32) (Filter, error) {
	if nFast <= 0 {
		return nil, fmt.Errorf("clutter: filter length must be positive, got %d", nFast)
	}
	switch variant {
	case VariantNone:
		return Passthrough{}, nil
	case VariantTwoPulse:
		return NewTwoPulseCanceller(nFast), nil
	case VariantThreePulse:
		return NewThreePulseCanceller(nFast), nil
	case VariantLeakyIntegrator:
		return NewLeakyIntegrator(nFast, alpha)
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownVariant, variant)
}

type Passthrough struct{}

func (Passthrough) ProcessInplace([]complex64) {}
func (Passthrough) Variant() Variant           { return VariantNone }
func (Passthrough) sealed()                    {}

// TwoPulseCanceller subtracts the previous raw pulse from the current one.
type TwoPulseCanceller struct {
	prev []complex64
}

func NewTwoPulseCanceller(nFast int) *TwoPulseCanceller {
	return &TwoPulseCanceller{prev: make([]complex64, nFast)}
}

func (c *TwoPulseCanceller) ProcessInplace(impulse []complex64) {
	mustMatch("two-pulse canceller", len(impulse), len(c.prev))
	for i, x := range impulse {
		impulse[i] = x - c.prev[i]
		c.prev[i] = x
	}
}

func (c *TwoPulseCanceller) Variant() Variant { return VariantTwoPulse }
func (c *TwoPulseCanceller) sealed()          {}

// ThreePulseCanceller cascades two two-pulse cancellers, giving a second
// difference across pulses.
type ThreePulseCanceller struct {
	first, second *TwoPulseCanceller
}

func NewThreePulseCanceller(nFast int) *ThreePulseCanceller {
	return &ThreePulseCanceller{
		first:  NewTwoPulseCanceller(nFast),
		second: NewTwoPulseCanceller(nFast),
	}
}

func (c *ThreePulseCanceller) ProcessInplace(impulse []complex64) {
	c.first.ProcessInplace(impulse)
	c.second.ProcessInplace(impulse)
}

func (c *ThreePulseCanceller) Variant() Variant { return VariantThreePulse }
func (c *ThreePulseCanceller) sealed()          {}

// LeakyIntegrator keeps its own moving-average clutter estimate and removes it
// from every pulse.
type LeakyIntegrator struct {
	estimate []complex64
	alpha    float32
}

func NewLeakyIntegrator(nFast int, alpha float32) (*LeakyIntegrator, error) {
	if err := validateAlpha(alpha); err != nil {
		return nil, err
	}
	return &LeakyIntegrator{
		estimate: make([]complex64, nFast),
		alpha:    alpha,
	}, nil
}

func (c *LeakyIntegrator) ProcessInplace(impulse []complex64) {
	mustMatch("leaky integrator", len(impulse), len(c.estimate))
	a := complex(c.alpha, 0)
	for i, x := range impulse {
		c.estimate[i] = (1-a)*c.estimate[i] + a*x
		impulse[i] = x - c.estimate[i]
	}
}

func (c *LeakyIntegrator) Variant() Variant { return VariantLeakyIntegrator }
func (c *LeakyIntegrator) sealed()          {}

func validateAlpha(alpha float32) error {
	// Written so that NaN fails too.
	if !(alpha > 0 && alpha < 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidAlpha, alpha)
	}
	return nil
}

func mustMatch(stage string, got, want int) {
	if got != want {
		panic(fmt.Sprintf("%s: pulse length %d, want %d", stage, got, want))
	}
}
