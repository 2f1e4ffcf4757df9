// Package ffmpeg re-encodes captured WAV files into a smaller upload codec.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Converter shells out to ffmpeg. The zero Binary means "ffmpeg" on PATH.
type Converter struct {
	Binary     string
	Codec      string
	BitRate    int // kbit/s, ignored by lossless codecs
	Channels   int
	SampleRate int
	Log        zerolog.Logger
}

type codec struct {
	name       string
	ext        string
	hasBitrate bool
}

var codecs = map[string]codec{
	"opus":      {"libopus", "ogg", true},
	"libopus":   {"libopus", "ogg", true},
	"vorbis":    {"libvorbis", "ogg", true},
	"libvorbis": {"libvorbis", "ogg", true},
	"aac":       {"aac", "m4a", true},
	"mp3":       {"libmp3lame", "mp3", true},
	"flac":      {"flac", "flac", false},
	"pcm":       {"pcm_s16le", "wav", false},
}

// Supported reports whether key names a known codec.
func Supported(key string) bool {
	_, ok := codecs[strings.ToLower(key)]
	return ok
}

// Args builds the ffmpeg argument list and returns it with the output path.
func (c Converter) Args(inPath string) ([]string, string, error) {
	cd, ok := codecs[strings.ToLower(c.Codec)]
	if !ok {
		return nil, "", fmt.Errorf("unsupported codec: %s", c.Codec)
	}
	channels := c.Channels
	if channels <= 0 {
		channels = 1
	}
	outPath := strings.TrimSuffix(inPath, filepath.Ext(inPath)) + ".upload." + cd.ext

	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", inPath, "-ac", strconv.Itoa(channels)}
	if c.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(c.SampleRate))
	}
	args = append(args, "-c:a", cd.name)
	if cd.hasBitrate {
		bitrate := c.BitRate
		if bitrate <= 0 {
			bitrate = 64
		}
		args = append(args, "-b:a", fmt.Sprintf("%dk", bitrate))
	}
	args = append(args, outPath)
	return args, outPath, nil
}

// Convert encodes inPath next to itself and returns the new file's path.
func (c Converter) Convert(ctx context.Context, inPath string) (string, error) {
	args, outPath, err := c.Args(inPath)
	if err != nil {
		return "", err
	}
	bin := c.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	c.Log.Debug().Str("cmd", bin+" "+strings.Join(args, " ")).Msg("executing")

	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		_ = os.Remove(outPath)
		return "", fmt.Errorf("ffmpeg failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return outPath, nil
}
