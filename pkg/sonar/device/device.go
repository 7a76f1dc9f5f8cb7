package device

import (
	"context"
)

// Device produces mono audio samples in arbitrary chunk sizes.
type Device interface {
	// Start sends chunks until ctx is done, the source ends (nil error) or
	// an error occurs. Chunks are not reused by the device after sending.
	Start(ctx context.Context, samples chan<- []float32) error
	Stop() error
	SampleRate() int
}
