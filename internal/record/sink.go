package record

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WritePCM16 writes 16-bit interleaved samples to a RIFF/WAVE file.
func WritePCM16(path string, samples []int16, sampleRate, channels int) error {
	data := make([]int, len(samples))
	for i, v := range samples {
		data[i] = int(v)
	}
	return writeWav(path, data, sampleRate, channels)
}

// WriteFloat writes float32 samples in [-1, 1] as 16-bit PCM WAV. Values
// outside the range are clipped.
func WriteFloat(path string, samples []float32, sampleRate, channels int) error {
	data := make([]int, len(samples))
	for i, v := range samples {
		data[i] = floatToPCM16(v)
	}
	return writeWav(path, data, sampleRate, channels)
}

func floatToPCM16(v float32) int {
	f := float64(v)
	if math.IsNaN(f) {
		return 0
	}
	if f > 1 {
		f = 1
	} else if f < -1 {
		f = -1
	}
	return int(math.Round(f * math.MaxInt16))
}

func writeWav(path string, data []int, sampleRate, channels int) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav failed: %w", err)
	}
	enc := wav.NewEncoder(file, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		_ = file.Close()
		_ = os.Remove(path)
		return fmt.Errorf("wav write failed: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return fmt.Errorf("wav close failed: %w", err)
	}
	return file.Close()
}
