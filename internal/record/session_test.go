package record

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDevice struct {
	mu       sync.Mutex
	inputs   []DeviceInfo
	micErr   error
	failRead map[Kind]int // read number that fails, 0 = never
	reads    map[Kind]int
	opens    map[Kind]int
	closed   bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		inputs: []DeviceInfo{
			{ID: 0, Name: "Microphone (USB)", MaxInputChannels: 1},
			{ID: 3, Name: "Speakers (Loopback)", MaxInputChannels: 2, Loopback: true},
		},
		failRead: map[Kind]int{},
		reads:    map[Kind]int{},
		opens:    map[Kind]int{},
	}
}

func (d *fakeDevice) Inputs() ([]DeviceInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inputs, nil
}

func (d *fakeDevice) OpenMicrophone(sampleRate, channels, frames int) (PCMStream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.micErr != nil {
		return nil, d.micErr
	}
	d.opens[Microphone]++
	return &fakePCM{dev: d, frames: frames * channels}, nil
}

func (d *fakeDevice) OpenInput(info DeviceInfo, sampleRate, channels, frames int) (FloatStream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens[SystemLoopback]++
	return &fakeFloat{dev: d, frames: frames * channels}, nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDevice) read(k Kind) error {
	time.Sleep(time.Millisecond)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reads[k]++
	if n := d.failRead[k]; n > 0 && d.reads[k] >= n {
		return errors.New("device unplugged")
	}
	return nil
}

func (d *fakeDevice) readCount(k Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reads[k]
}

type fakePCM struct {
	dev    *fakeDevice
	frames int
}

func (s *fakePCM) Read() ([]int16, error) {
	if err := s.dev.read(Microphone); err != nil {
		return nil, err
	}
	out := make([]int16, s.frames)
	for i := range out {
		out[i] = int16(i)
	}
	return out, nil
}

func (s *fakePCM) Close() error { return nil }

type fakeFloat struct {
	dev    *fakeDevice
	frames int
}

func (s *fakeFloat) Read() ([]float32, error) {
	if err := s.dev.read(SystemLoopback); err != nil {
		return nil, err
	}
	out := make([]float32, s.frames)
	for i := range out {
		out[i] = 0.25
	}
	return out, nil
}

func (s *fakeFloat) Close() error { return nil }

func waitReads(t *testing.T, d *fakeDevice, k Kind, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return d.readCount(k) >= n }, 2*time.Second, time.Millisecond)
}

func fileSize(t *testing.T, path string) int64 {
	t.Helper()
	fi, err := os.Stat(path)
	require.NoError(t, err)
	return fi.Size()
}

func TestStopBeforeStartReturnsNil(t *testing.T) {
	s := NewSession(newFakeDevice(), Dictation, t.TempDir(), zerolog.Nop())
	assert.Nil(t, s.Stop())
	assert.False(t, s.Running())
}

func TestStartTwiceIsNoop(t *testing.T) {
	dev := newFakeDevice()
	dir := t.TempDir()
	s := NewSession(dev, Dictation, dir, zerolog.Nop())

	require.True(t, s.Start(context.Background()))
	assert.False(t, s.Start(context.Background()))
	waitReads(t, dev, Microphone, 3)

	res := s.Stop()
	require.NotNil(t, res)
	assert.Equal(t, 1, dev.opens[Microphone])
	assert.Empty(t, res.System)
	require.NotEmpty(t, res.Microphone)
	assert.True(t, strings.HasPrefix(filepath.Base(res.Microphone), TempPrefix))
	assert.Greater(t, fileSize(t, res.Microphone), int64(1000))

	assert.Nil(t, s.Stop(), "second stop is a no-op")
}

func TestConferenceCapturesBothStreams(t *testing.T) {
	dev := newFakeDevice()
	s := NewSession(dev, Conference, t.TempDir(), zerolog.Nop())

	require.True(t, s.Start(context.Background()))
	waitReads(t, dev, Microphone, 2)
	waitReads(t, dev, SystemLoopback, 2)
	res := s.Stop()

	require.NotNil(t, res)
	assert.Len(t, res.Paths(), 2)
	assert.Equal(t, res.Microphone, res.Paths()[0])
	assert.Contains(t, res.System, "_sys.wav")

	_, data := decode(t, res.System)
	require.NotEmpty(t, data)
	assert.Equal(t, 8192, data[0])
}

func TestMissingLoopbackDegradesGracefully(t *testing.T) {
	dev := newFakeDevice()
	dev.inputs = dev.inputs[:1]
	s := NewSession(dev, Conference, t.TempDir(), zerolog.Nop())

	require.True(t, s.Start(context.Background()))
	waitReads(t, dev, Microphone, 2)
	res := s.Stop()

	require.NotNil(t, res)
	assert.NotEmpty(t, res.Microphone)
	assert.Empty(t, res.System)
	assert.Zero(t, dev.opens[SystemLoopback])
}

func TestStreamFailureDoesNotAffectOtherStream(t *testing.T) {
	dev := newFakeDevice()
	dev.failRead[SystemLoopback] = 2
	s := NewSession(dev, Conference, t.TempDir(), zerolog.Nop())

	require.True(t, s.Start(context.Background()))
	waitReads(t, dev, Microphone, 4)
	waitReads(t, dev, SystemLoopback, 2)
	res := s.Stop()

	require.NotNil(t, res)
	assert.NotEmpty(t, res.Microphone)
	assert.Empty(t, res.System, "partially failed stream yields no file")
}

func TestMicrophoneOpenFailure(t *testing.T) {
	dev := newFakeDevice()
	dev.micErr = errors.New("no default input")
	s := NewSession(dev, Conference, t.TempDir(), zerolog.Nop())

	require.True(t, s.Start(context.Background()))
	waitReads(t, dev, SystemLoopback, 2)
	res := s.Stop()

	require.NotNil(t, res)
	assert.Empty(t, res.Microphone)
	assert.NotEmpty(t, res.System)
}

func TestSessionRestartsAndKeepsDevice(t *testing.T) {
	dev := newFakeDevice()
	s := NewSession(dev, Dictation, t.TempDir(), zerolog.Nop())

	require.True(t, s.Start(context.Background()))
	waitReads(t, dev, Microphone, 2)
	first := s.Stop()

	before := dev.readCount(Microphone)
	require.True(t, s.Start(context.Background()))
	waitReads(t, dev, Microphone, before+2)
	second := s.Stop()

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.NotEqual(t, first.Microphone, second.Microphone)
	assert.Equal(t, 2, dev.opens[Microphone])
	assert.False(t, dev.closed)
}

func TestSelectLoopback(t *testing.T) {
	inputs := []DeviceInfo{
		{Name: "Mic", MaxInputChannels: 1},
		{Name: "Monitor of Built-in Audio", MaxInputChannels: 2, Loopback: IsLoopbackName("Monitor of Built-in Audio")},
		{Name: "Stereo Mix", MaxInputChannels: 2, Loopback: true},
	}
	got, ok := SelectLoopback(inputs)
	require.True(t, ok)
	assert.Equal(t, "Monitor of Built-in Audio", got.Name)

	_, ok = SelectLoopback(inputs[:1])
	assert.False(t, ok)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Conference")
	require.NoError(t, err)
	assert.Equal(t, []Kind{Microphone, SystemLoopback}, m.Sources())

	_, err = ParseMode("karaoke")
	assert.Error(t, err)
}

func TestCleanupTempFiles(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, TempPrefix+"abc_mic.wav")
	keep := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(keep, []byte("x"), 0644))

	CleanupTempFiles(dir, 0, zerolog.Nop())

	assert.NoFileExists(t, stale)
	assert.FileExists(t, keep)
}
