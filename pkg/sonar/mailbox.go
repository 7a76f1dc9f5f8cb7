package sonar

import (
	"sync"
	"time"
)

// Frame is one published range-Doppler map with the state it was taken in.
type Frame struct {
	Map           *Map
	Pulse         uint64
	Timestamp     time.Time
	FastTimeShift int
	DominantBin   int
	InputPeak     float32
}

// Mailbox is a single-slot handoff where the latest value wins. Publish never
// blocks; a frame that was not taken before the next Publish is dropped.
type Mailbox struct {
	mu          sync.Mutex
	latest      *Frame
	overwritten uint64
	updates     chan struct{}
}

func NewMailbox() *Mailbox {
	return &Mailbox{updates: make(chan struct{}, 1)}
}

// Publish stores f and reports whether an unread frame was replaced.
func (m *Mailbox) Publish(f *Frame) bool {
	m.mu.Lock()
	replaced := m.latest != nil
	if replaced {
		m.overwritten++
	}
	m.latest = f
	m.mu.Unlock()

	select {
	case m.updates <- struct{}{}:
	default:
		// A wakeup is already pending.
	}
	return replaced
}

// Take returns the newest unread frame, if any, and empties the slot.
func (m *Mailbox) Take() (*Frame, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := m.latest
	m.latest = nil
	return f, f != nil
}

// Updates signals that a frame may be waiting. Signals coalesce.
func (m *Mailbox) Updates() <-chan struct{} {
	return m.updates
}

// Overwritten counts frames dropped because the reader was too slow.
func (m *Mailbox) Overwritten() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overwritten
}
