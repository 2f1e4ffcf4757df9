package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"dictate/internal/observability"
)

// ModelSpec identifies how a local model is constructed.
type ModelSpec struct {
	Size        string
	Device      string
	ComputeType string
}

// Loader constructs local speech-to-text models.
type Loader interface {
	Load(ctx context.Context, spec ModelSpec) (Model, error)
	// CUDADevices reports how many CUDA devices the engine can see.
	CUDADevices(ctx context.Context) (int, error)
}

// Model is a loaded local model. Transcribe returns a lazy reader; segments
// are produced while the caller iterates.
type Model interface {
	Transcribe(ctx context.Context, path, language string) (SegmentReader, error)
	Close() error
}

// SegmentReader yields segments until io.EOF.
type SegmentReader interface {
	Next() (RawSegment, error)
}

const defaultComputeType = "default"

// localBackend caches one model keyed by size. Callers hold mu for the
// whole transcription so a model is never shared between two requests.
type localBackend struct {
	mu     sync.Mutex
	loader Loader
	device string
	log    zerolog.Logger

	model     Model
	modelSize string
}

func (l *localBackend) name() string { return BackendLocal }

func (l *localBackend) text(ctx context.Context, size, path, language string) (string, error) {
	segs, err := l.segments(ctx, size, path, language)
	if err != nil {
		return "", err
	}
	return JoinText(segs), nil
}

func (l *localBackend) segments(ctx context.Context, size, path, language string) ([]Segment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, &BackendError{Backend: l.name(), Err: err}
	}

	model, err := l.ensureModel(ctx, size)
	if err != nil {
		return nil, err
	}

	reader, err := model.Transcribe(ctx, path, language)
	if err != nil {
		l.discard()
		return nil, &BackendError{Backend: l.name(), Err: err}
	}

	// Drain before returning: the engine only does the work while iterated.
	var out []Segment
	for {
		raw, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A decode or pipe failure leaves the worker out of sync.
			var we *WorkerError
			if !errors.As(err, &we) {
				l.discard()
			}
			return nil, &BackendError{Backend: l.name(), Err: err}
		}
		out = append(out, segmentFromRaw(raw))
	}
	if out == nil {
		out = []Segment{}
	}
	return out, nil
}

// ensureModel returns the cached model when its size matches, otherwise
// loads a new one. Must be called with mu held.
func (l *localBackend) ensureModel(ctx context.Context, size string) (Model, error) {
	if l.model != nil && l.modelSize == size {
		return l.model, nil
	}

	device := l.resolveDevice(ctx)
	spec := ModelSpec{Size: size, Device: device, ComputeType: computeTypeFor(device)}
	l.log.Info().Str("size", spec.Size).Str("device", spec.Device).Str("compute_type", spec.ComputeType).Msg("loading local model")

	model, err := l.loader.Load(ctx, spec)
	observability.RecordModelLoad(spec.Size, spec.Device, spec.ComputeType, err)
	if err != nil {
		l.log.Warn().Err(err).Str("compute_type", spec.ComputeType).Msg("model load failed, retrying with default precision")
		spec.ComputeType = defaultComputeType
		model, err = l.loader.Load(ctx, spec)
		observability.RecordModelLoad(spec.Size, spec.Device, spec.ComputeType, err)
		if err != nil {
			return nil, fmt.Errorf("%w: size %s on %s: %w", ErrModelLoad, spec.Size, spec.Device, err)
		}
	}

	l.discard()
	l.model = model
	l.modelSize = size
	return model, nil
}

func (l *localBackend) resolveDevice(ctx context.Context) string {
	switch strings.ToLower(l.device) {
	case "cpu":
		return "cpu"
	case "cuda":
		return "cuda"
	}
	n, err := l.loader.CUDADevices(ctx)
	if err != nil {
		l.log.Debug().Err(err).Msg("cuda probe failed, using cpu")
		return "cpu"
	}
	if n > 0 {
		return "cuda"
	}
	return "cpu"
}

func computeTypeFor(device string) string {
	if device == "cuda" {
		return "float16"
	}
	return "int8"
}

// discard drops the cached model. Must be called with mu held.
func (l *localBackend) discard() {
	if l.model == nil {
		return
	}
	if err := l.model.Close(); err != nil {
		l.log.Debug().Err(err).Msg("closing local model")
	}
	l.model = nil
	l.modelSize = ""
}

func (l *localBackend) close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.model == nil {
		return nil
	}
	err := l.model.Close()
	l.model = nil
	l.modelSize = ""
	return err
}
