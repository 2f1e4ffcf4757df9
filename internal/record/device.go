package record

import "strings"

// Kind identifies an audio source.
type Kind int

const (
	Microphone Kind = iota
	SystemLoopback
)

func (k Kind) String() string {
	switch k {
	case Microphone:
		return "microphone"
	case SystemLoopback:
		return "system"
	default:
		return "unknown"
	}
}

// Capture format shared by every stream.
const (
	SampleRate      = 44100
	Channels        = 1
	FramesPerBuffer = 1024
)

// DeviceInfo describes an input-capable device.
type DeviceInfo struct {
	ID                int
	Name              string
	HostAPI           string
	MaxInputChannels  int
	DefaultSampleRate float64
	Loopback          bool
}

// PCMStream yields 16-bit interleaved chunks. Read blocks until one chunk is
// available; the returned slice belongs to the caller.
type PCMStream interface {
	Read() ([]int16, error)
	Close() error
}

// FloatStream yields float32 interleaved chunks in [-1, 1].
type FloatStream interface {
	Read() ([]float32, error)
	Close() error
}

// Device is the shared audio-device handle. It is opened once and reused by
// every capture; Close releases it.
type Device interface {
	Inputs() ([]DeviceInfo, error)
	OpenMicrophone(sampleRate, channels, frames int) (PCMStream, error)
	OpenInput(info DeviceInfo, sampleRate, channels, frames int) (FloatStream, error)
	Close() error
}

var loopbackMarkers = []string{
	"loopback",
	"monitor of",
	"stereo mix",
	"what u hear",
	"wave out mix",
}

// IsLoopbackName guesses from a device name whether it records what the
// system is playing.
func IsLoopbackName(name string) bool {
	n := strings.ToLower(name)
	for _, m := range loopbackMarkers {
		if strings.Contains(n, m) {
			return true
		}
	}
	return false
}

// SelectLoopback returns the first device flagged as loopback. This is a
// heuristic: it does not follow the current default output device.
func SelectLoopback(inputs []DeviceInfo) (DeviceInfo, bool) {
	for _, d := range inputs {
		if d.Loopback && d.MaxInputChannels > 0 {
			return d, true
		}
	}
	return DeviceInfo{}, false
}
