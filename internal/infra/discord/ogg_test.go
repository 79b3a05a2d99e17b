package discord

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFrames = [][]byte{
	{0xfc, 0x01, 0x02},
	{0xfc, 0x03, 0x04, 0x05},
	{0xfc, 0x06},
}

// writeOpusFile writes frames as an Ogg/Opus file, one packet per page.
func writeOpusFile(t *testing.T, frames [][]byte) string {
	t.Helper()

	var buf bytes.Buffer
	w, err := oggwriter.NewWith(&buf, 48000, 2)
	require.NoError(t, err)
	for i, f := range frames {
		require.NoError(t, w.WriteRTP(&rtp.Packet{
			Header: rtp.Header{
				SequenceNumber: uint16(i),
				Timestamp:      uint32(i * 960),
			},
			Payload: f,
		}))
	}

	path := filepath.Join(t.TempDir(), "track.opus")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func TestFrameProvider_ReadsAudioPages(t *testing.T) {
	f, err := os.Open(writeOpusFile(t, testFrames))
	require.NoError(t, err)

	p, err := NewFrameProvider(f)
	require.NoError(t, err)

	for _, want := range testFrames {
		got, err := p.ProvideOpusFrame()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err = p.ProvideOpusFrame()
	assert.ErrorIs(t, err, io.EOF)
	assert.True(t, p.Done())
}

func TestFrameProvider_Close(t *testing.T) {
	f, err := os.Open(writeOpusFile(t, testFrames))
	require.NoError(t, err)

	p, err := NewFrameProvider(f)
	require.NoError(t, err)
	assert.False(t, p.Done())

	p.Close()
	p.Close()
	assert.True(t, p.Done())

	_, err = p.ProvideOpusFrame()
	assert.ErrorIs(t, err, io.EOF)
}

func TestNewFrameProvider_RejectsGarbage(t *testing.T) {
	_, err := NewFrameProvider(io.NopCloser(bytes.NewReader([]byte("not an ogg stream at all"))))
	require.Error(t, err)
}
