package transcribe

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

//go:embed assets/whisper_worker.py
var workerScript []byte

// WorkerLoader runs faster-whisper in a Python child process that stays up
// for the lifetime of the loaded model.
type WorkerLoader struct {
	Python string
	Log    zerolog.Logger

	once       sync.Once
	scriptPath string
	scriptErr  error
}

// NewWorkerLoader returns a loader that invokes python.
func NewWorkerLoader(python string, log zerolog.Logger) *WorkerLoader {
	if python == "" {
		python = "python3"
	}
	return &WorkerLoader{Python: python, Log: log}
}

func (w *WorkerLoader) script() (string, error) {
	w.once.Do(func() {
		f, err := os.CreateTemp("", "dictate_whisper_*.py")
		if err != nil {
			w.scriptErr = err
			return
		}
		if _, err := f.Write(workerScript); err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
			w.scriptErr = err
			return
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(f.Name())
			w.scriptErr = err
			return
		}
		w.scriptPath = f.Name()
	})
	return w.scriptPath, w.scriptErr
}

// CUDADevices asks the engine how many CUDA devices it can use.
func (w *WorkerLoader) CUDADevices(ctx context.Context) (int, error) {
	script, err := w.script()
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, w.Python, script, "--probe-cuda").Output()
	if err != nil {
		return 0, fmt.Errorf("cuda probe: %w", err)
	}
	return parseDeviceCount(out)
}

func parseDeviceCount(out []byte) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0, fmt.Errorf("cuda probe output %q: %w", bytes.TrimSpace(out), err)
	}
	return n, nil
}

// Load starts a worker and waits until the model reports ready.
func (w *WorkerLoader) Load(ctx context.Context, spec ModelSpec) (Model, error) {
	script, err := w.script()
	if err != nil {
		return nil, err
	}
	// Not bound to ctx: the process outlives this call.
	cmd := exec.Command(w.Python, script,
		"--model", spec.Size,
		"--device", spec.Device,
		"--compute-type", spec.ComputeType,
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr := &tailBuffer{max: 4096}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker: %w", err)
	}

	m := &workerModel{cmd: cmd, stdin: stdin, dec: json.NewDecoder(bufio.NewReader(stdout)), stderr: stderr, log: w.Log}

	ready := make(chan error, 1)
	go func() {
		var msg workerMessage
		if err := m.dec.Decode(&msg); err != nil {
			ready <- fmt.Errorf("worker exited before ready: %w (%s)", err, stderr.String())
			return
		}
		switch msg.Event {
		case "ready":
			ready <- nil
		case "error":
			ready <- errors.New(msg.Message)
		default:
			ready <- fmt.Errorf("unexpected worker event %q", msg.Event)
		}
	}()

	select {
	case err := <-ready:
		if err != nil {
			_ = m.Close()
			return nil, err
		}
	case <-ctx.Done():
		_ = m.Close()
		return nil, ctx.Err()
	}
	w.Log.Debug().Int("pid", cmd.Process.Pid).Msg("whisper worker ready")
	return m, nil
}

// Close removes the extracted worker script.
func (w *WorkerLoader) Close() error {
	if w.scriptPath == "" {
		return nil
	}
	return os.Remove(w.scriptPath)
}

type workerRequest struct {
	ID       string `json:"id"`
	Audio    string `json:"audio"`
	Language string `json:"language,omitempty"`
	BeamSize int    `json:"beam_size"`
}

type workerMessage struct {
	Event    string  `json:"event"`
	ID       string  `json:"id,omitempty"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Text     string  `json:"text"`
	Message  string  `json:"message,omitempty"`
	Language string  `json:"language,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

type workerModel struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	dec    *json.Decoder
	stderr *tailBuffer
	log    zerolog.Logger

	closeOnce sync.Once
	closeErr  error
}

func (m *workerModel) Transcribe(_ context.Context, path, language string) (SegmentReader, error) {
	req := workerRequest{ID: uuid.NewString(), Audio: path, Language: language, BeamSize: 5}
	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if _, err := m.stdin.Write(append(b, '\n')); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	return &workerReader{m: m, id: req.ID}, nil
}

func (m *workerModel) Close() error {
	m.closeOnce.Do(func() {
		var result *multierror.Error
		if err := m.stdin.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		done := make(chan error, 1)
		go func() { done <- m.cmd.Wait() }()
		select {
		case err := <-done:
			if err != nil {
				m.log.Debug().Err(err).Str("stderr", m.stderr.String()).Msg("whisper worker exit")
			}
		case <-time.After(5 * time.Second):
			if err := m.cmd.Process.Kill(); err != nil {
				result = multierror.Append(result, err)
			}
			<-done
		}
		m.closeErr = result.ErrorOrNil()
	})
	return m.closeErr
}

type workerReader struct {
	m    *workerModel
	id   string
	done bool
}

func (r *workerReader) Next() (RawSegment, error) {
	if r.done {
		return RawSegment{}, io.EOF
	}
	for {
		var msg workerMessage
		if err := r.m.dec.Decode(&msg); err != nil {
			r.done = true
			return RawSegment{}, fmt.Errorf("read worker: %w (%s)", err, r.m.stderr.String())
		}
		if msg.ID != "" && msg.ID != r.id {
			continue
		}
		switch msg.Event {
		case "segment":
			return RawSegment{Start: msg.Start, End: msg.End, Text: msg.Text}, nil
		case "done":
			r.done = true
			r.m.log.Debug().Str("language", msg.Language).Float64("duration", msg.Duration).Msg("worker finished")
			return RawSegment{}, io.EOF
		case "error":
			r.done = true
			return RawSegment{}, &WorkerError{Message: msg.Message}
		}
	}
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}
