package ffmpeg

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgsLossy(t *testing.T) {
	c := Converter{Codec: "Opus", BitRate: 32, SampleRate: 16000}
	args, out, err := c.Args(filepath.Join("tmp", "RecordTemp_x_mic.wav"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("tmp", "RecordTemp_x_mic.upload.ogg"), out)
	assert.Equal(t, []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", filepath.Join("tmp", "RecordTemp_x_mic.wav"),
		"-ac", "1", "-ar", "16000",
		"-c:a", "libopus", "-b:a", "32k",
		out,
	}, args)
}

func TestArgsLosslessSkipsBitrate(t *testing.T) {
	args, out, err := Converter{Codec: "flac", BitRate: 128}.Args("a.wav")
	require.NoError(t, err)
	assert.Equal(t, "a.upload.flac", out)
	assert.NotContains(t, args, "-b:a")
	assert.NotContains(t, args, "-ar")
}

func TestUnsupportedCodec(t *testing.T) {
	_, _, err := Converter{Codec: "wma"}.Args("a.wav")
	assert.Error(t, err)
	assert.False(t, Supported("wma"))
	assert.True(t, Supported("MP3"))
}

func TestConvertMissingBinary(t *testing.T) {
	c := Converter{Binary: filepath.Join(t.TempDir(), "no-ffmpeg"), Codec: "mp3", Log: zerolog.Nop()}
	_, err := c.Convert(context.Background(), filepath.Join(t.TempDir(), "in.wav"))
	assert.Error(t, err)
}
