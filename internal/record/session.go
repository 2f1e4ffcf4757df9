package record

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dictate/internal/observability"
)

// TempPrefix starts the name of every capture file so stale ones can be
// cleaned up on startup.
const TempPrefix = "RecordTemp_"

// Mode selects which sources a session captures.
type Mode int

const (
	Dictation  Mode = iota // microphone only
	Interview              // system loopback only
	Conference             // microphone and system loopback
)

// ParseMode maps a config string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dictation", "":
		return Dictation, nil
	case "interview":
		return Interview, nil
	case "conference":
		return Conference, nil
	}
	return Dictation, fmt.Errorf("unknown recording mode %q", s)
}

func (m Mode) String() string {
	switch m {
	case Dictation:
		return "dictation"
	case Interview:
		return "interview"
	case Conference:
		return "conference"
	default:
		return "unknown"
	}
}

// Sources lists the streams captured in this mode, microphone first.
func (m Mode) Sources() []Kind {
	switch m {
	case Interview:
		return []Kind{SystemLoopback}
	case Conference:
		return []Kind{Microphone, SystemLoopback}
	default:
		return []Kind{Microphone}
	}
}

// Result holds the files written by one capture. A path is empty when the
// stream was not captured or produced no audio.
type Result struct {
	Microphone string
	System     string
}

// Paths returns the non-empty paths, microphone first.
func (r *Result) Paths() []string {
	if r == nil {
		return nil
	}
	var out []string
	for _, p := range []string{r.Microphone, r.System} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Session captures one or two streams between Start and Stop. The Device is
// shared and is not closed by the session.
type Session struct {
	dev     Device
	mode    Mode
	tempDir string
	log     zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	paths   map[Kind]string
	pathsMu sync.Mutex
}

// NewSession creates an idle session. tempDir receives the capture files.
func NewSession(dev Device, mode Mode, tempDir string, log zerolog.Logger) *Session {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Session{dev: dev, mode: mode, tempDir: tempDir, log: log}
}

// Mode returns the session mode.
func (s *Session) Mode() Mode { return s.mode }

// Running reports whether a capture is in progress.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start launches one capture goroutine per source. It reports false and does
// nothing when a capture is already running.
func (s *Session) Start(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	captureCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.paths = make(map[Kind]string)

	id := strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	for _, kind := range s.mode.Sources() {
		path := filepath.Join(s.tempDir, fmt.Sprintf("%s%s_%s.wav", TempPrefix, id, sinkSuffix(kind)))
		s.wg.Add(1)
		go func(kind Kind, path string) {
			defer s.wg.Done()
			out := s.capture(captureCtx, kind, path)
			s.pathsMu.Lock()
			s.paths[kind] = out
			s.pathsMu.Unlock()
		}(kind, path)
	}
	s.log.Debug().Str("mode", s.mode.String()).Str("id", id).Msg("capture started")
	return true
}

// Stop ends the capture and waits until every stream has written its file.
// It returns nil when nothing was running.
func (s *Session) Stop() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.cancel()
	s.wg.Wait()
	s.running = false
	s.cancel = nil

	s.pathsMu.Lock()
	res := &Result{Microphone: s.paths[Microphone], System: s.paths[SystemLoopback]}
	s.paths = nil
	s.pathsMu.Unlock()

	s.log.Debug().Str("microphone", res.Microphone).Str("system", res.System).Msg("capture stopped")
	return res
}

func sinkSuffix(k Kind) string {
	if k == SystemLoopback {
		return "sys"
	}
	return "mic"
}

func (s *Session) capture(ctx context.Context, kind Kind, path string) string {
	log := s.log.With().Str("source", kind.String()).Logger()
	var (
		frames int
		err    error
	)
	switch kind {
	case Microphone:
		frames, err = s.captureMicrophone(ctx, path)
	case SystemLoopback:
		frames, err = s.captureLoopback(ctx, log, path)
	}
	seconds := float64(frames) / float64(SampleRate)
	if err != nil {
		log.Error().Err(err).Msg("recording error")
		observability.RecordCapture(kind.String(), "failed", 0)
		return ""
	}
	if frames == 0 {
		observability.RecordCapture(kind.String(), "empty", 0)
		return ""
	}
	observability.RecordCapture(kind.String(), "ok", seconds)
	log.Debug().Str("path", path).Float64("seconds", seconds).Msg("stream saved")
	return path
}

func (s *Session) captureMicrophone(ctx context.Context, path string) (int, error) {
	stream, err := s.dev.OpenMicrophone(SampleRate, Channels, FramesPerBuffer)
	if err != nil {
		return 0, err
	}
	samples, err := readUntilDone(ctx, stream.Read)
	if cerr := stream.Close(); cerr != nil {
		s.log.Warn().Err(cerr).Msg("closing microphone stream")
	}
	if err != nil {
		return 0, err
	}
	if len(samples) == 0 {
		return 0, nil
	}
	if err := WritePCM16(path, samples, SampleRate, Channels); err != nil {
		return 0, err
	}
	return len(samples) / Channels, nil
}

func (s *Session) captureLoopback(ctx context.Context, log zerolog.Logger, path string) (int, error) {
	inputs, err := s.dev.Inputs()
	if err != nil {
		return 0, err
	}
	info, ok := SelectLoopback(inputs)
	if !ok {
		log.Warn().Msg("no loopback device found; system audio will not be recorded")
		return 0, nil
	}
	log.Debug().Str("device", info.Name).Str("host_api", info.HostAPI).Msg("using loopback device")

	stream, err := s.dev.OpenInput(info, SampleRate, Channels, FramesPerBuffer)
	if err != nil {
		return 0, err
	}
	samples, err := readUntilDone(ctx, stream.Read)
	if cerr := stream.Close(); cerr != nil {
		log.Warn().Err(cerr).Msg("closing loopback stream")
	}
	if err != nil {
		return 0, err
	}
	if len(samples) == 0 {
		return 0, nil
	}
	if err := WriteFloat(path, samples, SampleRate, Channels); err != nil {
		return 0, err
	}
	return len(samples) / Channels, nil
}

// readUntilDone reads chunks until ctx is cancelled. A read in progress when
// ctx ends is completed and kept.
func readUntilDone[T int16 | float32](ctx context.Context, read func() ([]T, error)) ([]T, error) {
	var chunks [][]T
	total := 0
	for ctx.Err() == nil {
		chunk, err := read()
		if err != nil {
			return nil, fmt.Errorf("stream read error: %w", err)
		}
		chunks = append(chunks, chunk)
		total += len(chunk)
	}
	out := make([]T, 0, total)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out, nil
}

// CleanupTempFiles removes capture files left behind by earlier runs.
func CleanupTempFiles(dir string, olderThan time.Duration, log zerolog.Logger) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("read dir failed")
		return
	}
	cutoff := time.Now().Add(-olderThan)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, TempPrefix) {
			continue
		}
		if info, err := e.Info(); err == nil && info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to remove stale capture")
		} else {
			log.Debug().Str("path", path).Msg("removed stale capture")
		}
	}
}
