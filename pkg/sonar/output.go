package sonar

import (
	"context"
)

// MapOutput consumes published range-Doppler frames.
type MapOutput interface {
	// Start receives a context and should run in a loop, terminating upon ctx closing or on any errors.
	Start(ctx context.Context) error
	// Mailbox is where the receiver publishes frames for this output.
	Mailbox() *Mailbox
}
