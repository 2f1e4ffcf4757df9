package record

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, path string) (*wav.Decoder, []int) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	d := wav.NewDecoder(f)
	require.True(t, d.IsValidFile())
	buf, err := d.FullPCMBuffer()
	require.NoError(t, err)
	return d, buf.Data
}

func TestWritePCM16(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mic.wav")
	require.NoError(t, WritePCM16(path, []int16{0, 100, -100, 32767, -32768}, SampleRate, Channels))

	d, data := decode(t, path)
	assert.Equal(t, uint32(SampleRate), d.SampleRate)
	assert.Equal(t, uint16(Channels), d.NumChans)
	assert.Equal(t, uint16(16), d.BitDepth)
	assert.Equal(t, []int{0, 100, -100, 32767, -32768}, data)
}

func TestWriteFloatClipsAndScales(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sys.wav")
	require.NoError(t, WriteFloat(path, []float32{0, 0.5, -0.5, 1, -1, 2, -3}, SampleRate, Channels))

	_, data := decode(t, path)
	assert.Equal(t, []int{0, 16384, -16384, 32767, -32767, 32767, -32767}, data)
}
