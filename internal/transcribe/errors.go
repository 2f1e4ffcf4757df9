package transcribe

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential is returned by the remote backend when no API key is configured.
	ErrMissingCredential = errors.New("transcribe: OpenAI API key is not configured")
	// ErrNotFound is returned when the audio file does not exist.
	ErrNotFound = errors.New("transcribe: audio file not found")
	// ErrModelLoad is returned when the local model cannot be constructed even
	// with the default precision.
	ErrModelLoad = errors.New("transcribe: failed to load local model")
	// ErrUnknownBackend is returned for a backend name other than local or openai_api.
	ErrUnknownBackend = errors.New("transcribe: unknown backend")
)

// BackendError wraps any other failure raised while talking to a backend.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("transcribe: %s backend: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// WorkerError is a failure the local engine reported for a single request.
// The engine stays usable afterwards.
type WorkerError struct {
	Message string
}

func (e *WorkerError) Error() string { return e.Message }

// RetryExhaustedError reports that every upload attempt failed.
type RetryExhaustedError struct {
	Attempts   int
	MaxRetry   int
	StatusCode int
	Response   string
}

func (e *RetryExhaustedError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("exceeded max retries (%d/%d), last status %d: %s", e.Attempts, e.MaxRetry, e.StatusCode, e.Response)
	}
	return fmt.Sprintf("exceeded max retries (%d/%d): %s", e.Attempts, e.MaxRetry, e.Response)
}
