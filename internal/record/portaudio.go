package record

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/hashicorp/go-multierror"
)

// PortAudio is a Device backed by the PortAudio library.
type PortAudio struct {
	mu     sync.Mutex
	closed bool
}

// OpenPortAudio initialises PortAudio. Callers must Close the handle when the
// application shuts down.
func OpenPortAudio() (*PortAudio, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init failed: %w", err)
	}
	return &PortAudio{}, nil
}

// Inputs lists devices that can capture audio.
func (p *PortAudio) Inputs() ([]DeviceInfo, error) {
	devs, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	var out []DeviceInfo
	for i, d := range devs {
		if d.MaxInputChannels <= 0 {
			continue
		}
		info := DeviceInfo{
			ID:                i,
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
			Loopback:          IsLoopbackName(d.Name),
		}
		if d.HostApi != nil {
			info.HostAPI = d.HostApi.Name
		}
		out = append(out, info)
	}
	return out, nil
}

// OpenMicrophone opens and starts the default input device.
func (p *PortAudio) OpenMicrophone(sampleRate, channels, frames int) (PCMStream, error) {
	if err := p.checkOpen(); err != nil {
		return nil, err
	}
	buf := make([]int16, frames*channels)
	stream, err := portaudio.OpenDefaultStream(channels, 0, float64(sampleRate), frames, buf)
	if err != nil {
		return nil, fmt.Errorf("open stream failed: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("start stream failed: %w", err)
	}
	return &pcmStream{stream: stream, buf: buf}, nil
}

// OpenInput opens and starts a specific input device with float32 frames.
func (p *PortAudio) OpenInput(info DeviceInfo, sampleRate, channels, frames int) (FloatStream, error) {
	if err := p.checkOpen(); err != nil {
		return nil, err
	}
	devs, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	if info.ID < 0 || info.ID >= len(devs) || devs[info.ID].Name != info.Name {
		return nil, fmt.Errorf("device %q is no longer available", info.Name)
	}
	dev := devs[info.ID]

	buf := make([]float32, frames*channels)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: channels,
			Latency:  dev.DefaultHighInputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: frames,
	}
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, fmt.Errorf("open %q failed: %w", info.Name, err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("start %q failed: %w", info.Name, err)
	}
	return &floatStream{stream: stream, buf: buf}, nil
}

// Close terminates PortAudio. Further opens fail.
func (p *PortAudio) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return portaudio.Terminate()
}

func (p *PortAudio) checkOpen() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("audio device closed")
	}
	return nil
}

type pcmStream struct {
	stream *portaudio.Stream
	buf    []int16
}

func (s *pcmStream) Read() ([]int16, error) {
	if err := s.stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
		return nil, err
	}
	out := make([]int16, len(s.buf))
	copy(out, s.buf)
	return out, nil
}

func (s *pcmStream) Close() error {
	return closeStream(s.stream)
}

type floatStream struct {
	stream *portaudio.Stream
	buf    []float32
}

func (s *floatStream) Read() ([]float32, error) {
	if err := s.stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
		return nil, err
	}
	out := make([]float32, len(s.buf))
	copy(out, s.buf)
	return out, nil
}

func (s *floatStream) Close() error {
	return closeStream(s.stream)
}

func closeStream(s *portaudio.Stream) error {
	var result *multierror.Error
	if err := s.Stop(); err != nil {
		result = multierror.Append(result, fmt.Errorf("stop stream: %w", err))
	}
	if err := s.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close stream: %w", err))
	}
	return result.ErrorOrNil()
}
