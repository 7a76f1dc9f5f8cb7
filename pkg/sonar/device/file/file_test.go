package file

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderDeviceChunks(t *testing.T) {
	want := []float32{0.5, -0.25, 1, 2, 3, 4, 5}
	var raw bytes.Buffer
	require.NoError(t, binary.Write(&raw, binary.LittleEndian, want))

	dev, err := NewReaderDevice(io.NopCloser(&raw), 3, 48000, 0)
	require.NoError(t, err)
	assert.Equal(t, 48000, dev.SampleRate())

	ch := make(chan []float32, 8)
	require.NoError(t, dev.Start(context.Background(), ch))
	close(ch)

	var got []float32
	var sizes []int
	for c := range ch {
		got = append(got, c...)
		sizes = append(sizes, len(c))
	}
	assert.Equal(t, want, got)
	assert.Equal(t, []int{3, 3, 1}, sizes)
	assert.NoError(t, dev.Stop())
}

func TestReaderDeviceCancel(t *testing.T) {
	raw := bytes.NewReader(make([]byte, 4*64))
	dev, err := NewReaderDevice(io.NopCloser(raw), 4, 48000, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = dev.Start(ctx, make(chan []float32))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReaderDeviceRejectsChunkSize(t *testing.T) {
	_, err := NewReaderDevice(io.NopCloser(&bytes.Buffer{}), 0, 48000, 0)
	assert.Error(t, err)
}
