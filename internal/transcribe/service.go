// Package transcribe turns recorded audio files into text using either the
// OpenAI transcription API or a local faster-whisper model.
package transcribe

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"dictate/internal/observability"
)

// Backend identifiers.
const (
	BackendLocal  = "local"
	BackendOpenAI = "openai_api"
)

// Options configure a Service.
type Options struct {
	Backend string

	APIKey         string
	Endpoint       string
	RemoteModel    string
	Prompt         string
	TextPath       string
	SegmentsPath   string
	MaxRetry       int
	RetryBaseDelay time.Duration

	ModelSize string
	Device    string
}

// Service dispatches transcription requests to the configured backend.
type Service struct {
	mu      sync.RWMutex
	backend string
	size    string

	remote *remoteBackend
	local  *localBackend
	log    zerolog.Logger
}

// New builds a Service. httpClient and converter serve the remote backend,
// loader serves the local one; any of them may be nil when that backend is
// never selected.
func New(opts Options, httpClient *http.Client, converter Converter, loader Loader, log zerolog.Logger) *Service {
	s := &Service{
		backend: opts.Backend,
		size:    opts.ModelSize,
		remote: &remoteBackend{
			opts:       opts,
			httpClient: httpClient,
			converter:  converter,
			log:        log.With().Str("backend", BackendOpenAI).Logger(),
		},
		log: log,
	}
	if loader != nil {
		s.local = &localBackend{
			loader: loader,
			device: opts.Device,
			log:    log.With().Str("backend", BackendLocal).Logger(),
		}
	}
	return s
}

// setModelSize changes the local model size. The cached model is replaced on
// the next local transcription.
func (s *Service) setModelSize(size string) {
	s.mu.Lock()
	s.size = size
	s.mu.Unlock()
}

func (s *Service) current() (string, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backend, s.size
}

// Transcribe returns the plain text spoken in the audio file at path.
// language "Auto" or "" lets the backend detect it.
func (s *Service) Transcribe(ctx context.Context, path, language string) (string, error) {
	backend, size := s.current()
	language = NormalizeLanguage(language)
	start := time.Now()

	var (
		text string
		err  error
	)
	switch backend {
	case BackendOpenAI:
		text, err = s.remote.text(ctx, path, language)
	case BackendLocal:
		if s.local == nil {
			err = fmt.Errorf("%w: %s (no local loader)", ErrUnknownBackend, backend)
			break
		}
		text, err = s.local.text(ctx, size, path, language)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
	observability.RecordTranscription(backend, err, time.Since(start))
	if err != nil {
		return "", err
	}
	return text, nil
}

// TranscribeSegments returns timed segments for the audio file at path.
func (s *Service) TranscribeSegments(ctx context.Context, path, language string) ([]Segment, error) {
	backend, size := s.current()
	language = NormalizeLanguage(language)
	start := time.Now()

	var (
		segs []Segment
		err  error
	)
	switch backend {
	case BackendOpenAI:
		segs, err = s.remote.segments(ctx, path, language)
	case BackendLocal:
		if s.local == nil {
			err = fmt.Errorf("%w: %s (no local loader)", ErrUnknownBackend, backend)
			break
		}
		segs, err = s.local.segments(ctx, size, path, language)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
	observability.RecordTranscription(backend, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return segs, nil
}

// Close releases the cached local model, if any.
func (s *Service) Close() error {
	if s.local == nil {
		return nil
	}
	return s.local.close()
}
