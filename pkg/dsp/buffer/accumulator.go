package buffer

// Accumulator turns an arbitrarily chunked sample stream into fixed-length
// pulse frames. The frame returned by HandleInput aliases internal storage and
// is only valid until the next call.
type Accumulator struct {
	buf          []float32
	outputLength int
}

func NewAccumulator(outputLength int) *Accumulator {
	if outputLength <= 0 {
		panic("buffer: accumulator output length must be positive")
	}
	return &Accumulator{
		buf:          make([]float32, 0, 2*outputLength),
		outputLength: outputLength,
	}
}

func (a *Accumulator) OutputLength() int {
	return a.outputLength
}

// Buffered returns the number of samples currently held.
func (a *Accumulator) Buffered() int {
	return len(a.buf)
}

// HandleInput appends samples and returns the oldest outputLength buffered
// samples once enough have arrived. The previously emitted frame is dropped
// from the front before appending, and after an oversized chunk any further
// whole stale frames are dropped with it.
func (a *Accumulator) HandleInput(samples []float32) ([]float32, bool) {
	if len(a.buf) >= a.outputLength {
		a.discard(a.outputLength)

		// A chunk larger than a frame leaves a backlog. Whole stale frames are
		// dropped so the buffer stays bounded and frame alignment is kept.
		if len(a.buf) >= a.outputLength {
			a.discard(len(a.buf) - len(a.buf)%a.outputLength)
		}
	}

	a.buf = append(a.buf, samples...)

	if len(a.buf) < a.outputLength {
		return nil, false
	}
	return a.buf[:a.outputLength:a.outputLength], true
}

// Reset drops everything buffered.
func (a *Accumulator) Reset() {
	a.buf = a.buf[:0]
}

func (a *Accumulator) discard(n int) {
	remaining := copy(a.buf, a.buf[n:])
	a.buf = a.buf[:remaining]
}
