package file

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"
)

// FileDevice replays raw little-endian float32 mono samples.
type FileDevice struct {
	reader      io.ReadCloser
	chunkSize   int
	timeBetween time.Duration
	sampleRate  int
}

func NewFileDevice(file string, chunkSize int, sampleRate int, timeBetween time.Duration) (*FileDevice, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	return NewReaderDevice(f, chunkSize, sampleRate, timeBetween)
}

// NewReaderDevice replays samples from any reader. A zero timeBetween replays
// as fast as the consumer takes chunks.
func NewReaderDevice(r io.ReadCloser, chunkSize int, sampleRate int, timeBetween time.Duration) (*FileDevice, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("file device: chunk size must be positive, got %d", chunkSize)
	}
	return &FileDevice{
		reader:      r,
		chunkSize:   chunkSize,
		timeBetween: timeBetween,
		sampleRate:  sampleRate,
	}, nil
}

func (f *FileDevice) Start(ctx context.Context, samples chan<- []float32) error {
	var tick <-chan time.Time
	if f.timeBetween > 0 {
		ticker := time.NewTicker(f.timeBetween)
		defer ticker.Stop()
		tick = ticker.C
	}

	buf := make([]byte, f.chunkSize*4)
	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}

		n, err := io.ReadFull(f.reader, buf)
		n -= n % 4
		if n > 0 {
			chunk := make([]float32, n/4)
			for i := range chunk {
				chunk[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case samples <- chunk:
			}
		}

		switch {
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return nil
		case err != nil:
			return err
		}
	}
}

func (f *FileDevice) Stop() error {
	return f.reader.Close()
}

func (f *FileDevice) SampleRate() int {
	return f.sampleRate
}
