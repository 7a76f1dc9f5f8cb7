package wav

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVE format tags.
const (
	formatPCM        = 1
	formatIEEEFloat  = 3
	formatExtensible = 0xFFFE
)

// WavDevice replays one channel of a PCM WAV file.
type WavDevice struct {
	closer      io.Closer
	decoder     *wav.Decoder
	channel     int
	numChannels int
	float       bool
	scale       float32
	chunkSize   int
	timeBetween time.Duration
	sampleRate  int
}

func NewWavDevice(file string, channel, chunkSize int, timeBetween time.Duration) (*WavDevice, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	dev, err := NewReaderDevice(f, channel, chunkSize, timeBetween)
	if err != nil {
		f.Close()
		return nil, err
	}
	dev.closer = f
	return dev, nil
}

func NewReaderDevice(r io.ReadSeeker, channel, chunkSize int, timeBetween time.Duration) (*WavDevice, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("wav device: chunk size must be positive, got %d", chunkSize)
	}

	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, errors.New("wav device: not a valid WAV file")
	}
	if err := decoder.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("wav device: seeking to PCM data: %w", err)
	}

	bitDepth := int(decoder.BitDepth)
	var float bool
	switch decoder.WavAudioFormat {
	case formatPCM, formatExtensible:
		switch bitDepth {
		case 16, 24, 32:
		default:
			return nil, fmt.Errorf("wav device: unsupported bit depth %d", bitDepth)
		}
	case formatIEEEFloat:
		if bitDepth != 32 {
			return nil, fmt.Errorf("wav device: unsupported float bit depth %d", bitDepth)
		}
		float = true
	default:
		return nil, fmt.Errorf("wav device: unsupported audio format %d", decoder.WavAudioFormat)
	}
	numChannels := int(decoder.NumChans)
	if channel < 0 || channel >= numChannels {
		return nil, fmt.Errorf("wav device: channel %d not in file with %d channels", channel, numChannels)
	}

	return &WavDevice{
		decoder:     decoder,
		channel:     channel,
		numChannels: numChannels,
		float:       float,
		scale:       1 / float32(int64(1)<<(bitDepth-1)),
		chunkSize:   chunkSize,
		timeBetween: timeBetween,
		sampleRate:  int(decoder.SampleRate),
	}, nil
}

func (w *WavDevice) Start(ctx context.Context, samples chan<- []float32) error {
	var tick <-chan time.Time
	if w.timeBetween > 0 {
		ticker := time.NewTicker(w.timeBetween)
		defer ticker.Stop()
		tick = ticker.C
	}

	buf := &audio.IntBuffer{
		Format: w.decoder.Format(),
		Data:   make([]int, w.chunkSize*w.numChannels),
	}

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}

		n, err := w.decoder.PCMBuffer(buf)
		if n == 0 || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		frames := n / w.numChannels
		chunk := make([]float32, frames)
		for i := range chunk {
			v := buf.Data[i*w.numChannels+w.channel]
			if w.float {
				// The decoder hands 32-bit samples over as int32 bit patterns.
				chunk[i] = math.Float32frombits(uint32(int32(v)))
			} else {
				chunk[i] = float32(v) * w.scale
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case samples <- chunk:
		}
	}
}

func (w *WavDevice) Stop() error {
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}

func (w *WavDevice) SampleRate() int {
	return w.sampleRate
}
