package transcribe

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"dictate/internal/jsonpath"
)

// Converter re-encodes an audio file before upload and returns the path of
// the converted copy.
type Converter interface {
	Convert(ctx context.Context, inPath string) (string, error)
}

type remoteBackend struct {
	opts       Options
	httpClient *http.Client
	converter  Converter
	log        zerolog.Logger
}

func (r *remoteBackend) name() string { return BackendOpenAI }

func (r *remoteBackend) text(ctx context.Context, path, language string) (string, error) {
	body, err := r.request(ctx, path, language, false)
	if err != nil {
		return "", err
	}
	return jsonpath.ExtractTextFromResponse(body, r.opts.TextPath), nil
}

func (r *remoteBackend) segments(ctx context.Context, path, language string) ([]Segment, error) {
	body, err := r.request(ctx, path, language, true)
	if err != nil {
		return nil, err
	}
	var root interface{}
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, &BackendError{Backend: r.name(), Err: fmt.Errorf("decode response: %w", err)}
	}
	segPath := r.opts.SegmentsPath
	if segPath == "" {
		segPath = "segments"
	}
	raw, ok := jsonpath.Lookup(root, segPath)
	if !ok {
		r.log.Debug().Str("path", segPath).Msg("response carries no segments")
		return []Segment{}, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, &BackendError{Backend: r.name(), Err: fmt.Errorf("field %q is %T, not an array", segPath, raw)}
	}
	out := make([]Segment, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, segmentFromMap(m))
	}
	return out, nil
}

// request uploads the audio and returns the raw JSON body. Attempts are
// bounded by MaxRetry with exponential backoff between them.
func (r *remoteBackend) request(ctx context.Context, path, language string, verbose bool) ([]byte, error) {
	if r.opts.APIKey == "" {
		return nil, ErrMissingCredential
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, &BackendError{Backend: r.name(), Err: err}
	}
	if r.opts.Endpoint == "" {
		return nil, &BackendError{Backend: r.name(), Err: errors.New("API endpoint is empty")}
	}

	uploadPath := path
	if r.converter != nil {
		converted, err := r.converter.Convert(ctx, path)
		if err != nil {
			return nil, &BackendError{Backend: r.name(), Err: err}
		}
		defer os.Remove(converted)
		uploadPath = converted
	}

	maxRetry := r.opts.MaxRetry
	if maxRetry < 1 {
		maxRetry = 1
	}
	delay := r.opts.RetryBaseDelay
	try := 0
	for {
		try++
		status, res, err := r.doUpload(ctx, uploadPath, language, verbose)
		if err == nil && status == http.StatusOK {
			return res, nil
		}

		detail := formatResponse(res)
		if err != nil {
			detail = err.Error()
		}
		r.log.Debug().Int("attempt", try).Int("status", status).Str("response", detail).Msg("upload attempt failed")

		if try >= maxRetry || ctx.Err() != nil {
			return nil, &BackendError{Backend: r.name(), Err: &RetryExhaustedError{
				Attempts:   try,
				MaxRetry:   maxRetry,
				StatusCode: status,
				Response:   detail,
			}}
		}
		select {
		case <-ctx.Done():
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func (r *remoteBackend) doUpload(ctx context.Context, filePath, language string, verbose bool) (int, []byte, error) {
	r.log.Debug().Str("file", filePath).Str("endpoint", r.opts.Endpoint).Msg("uploading")
	f, err := os.Open(filePath)
	if err != nil {
		return 0, nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return 0, nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return 0, nil, fmt.Errorf("copy file: %w", err)
	}

	fields := map[string]string{"model": r.opts.RemoteModel}
	if fields["model"] == "" {
		fields["model"] = "whisper-1"
	}
	if language != "" {
		fields["language"] = language
	}
	if r.opts.Prompt != "" {
		fields["prompt"] = r.opts.Prompt
	}
	if verbose {
		fields["response_format"] = "verbose_json"
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return 0, nil, fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return 0, nil, fmt.Errorf("close multipart: %w", err)
	}

	client := r.httpClient
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.opts.Endpoint, body)
	if err != nil {
		return 0, nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+r.opts.APIKey)
	req.Header.Set("User-Agent", "dictate-go-client/1.0")

	start := time.Now()
	resp, err := client.Do(req)
	r.log.Debug().Dur("elapsed", time.Since(start)).Msg("request finished")
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func formatResponse(b []byte) string {
	if len(b) == 0 {
		return "<empty>"
	}
	const maxText = 1000
	const maxBin = 256

	if utf8.Valid(b) {
		s := string(b)
		if len(s) > maxText {
			return fmt.Sprintf("%s... (truncated, total %d bytes)", s[:maxText], len(b))
		}
		return s
	}

	if len(b) > maxBin {
		return fmt.Sprintf("<binary %d bytes, prefix hex: %s...>", len(b), hex.EncodeToString(b[:maxBin]))
	}
	return fmt.Sprintf("<binary %d bytes, hex: %s>", len(b), hex.EncodeToString(b))
}
