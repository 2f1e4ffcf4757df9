// Package app wires capture, transcription and delivery into the two run
// modes: hotkey-driven recording and one-shot file processing.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"dictate/internal/audio/ffmpeg"
	"dictate/internal/clipboard"
	"dictate/internal/conference"
	"dictate/internal/config"
	"dictate/internal/hotkey"
	"dictate/internal/notify"
	"dictate/internal/observability"
	"dictate/internal/record"
	"dictate/internal/transcribe"
)

// staleCapture is how old a leftover capture file must be before startup
// removes it.
const staleCapture = 10 * time.Minute

// NewTranscriber builds the transcription service described by cfg. The
// returned loader only starts a worker once the local backend is used, but
// must be closed on shutdown either way.
func NewTranscriber(cfg config.Config, log zerolog.Logger) (*transcribe.Service, *transcribe.WorkerLoader) {
	uploadLog := observability.Component(log, "upload", cfg.UploadDebug)
	opts := transcribe.Options{
		Backend:        cfg.TranscriberBackend,
		APIKey:         cfg.OpenAIAPIKey,
		Endpoint:       cfg.APIEndpoint,
		RemoteModel:    cfg.RemoteModel,
		Prompt:         cfg.Prompt,
		TextPath:       cfg.TextPath,
		SegmentsPath:   cfg.SegmentsPath,
		MaxRetry:       cfg.MaxRetry,
		RetryBaseDelay: time.Duration(cfg.RetryBaseDelay * float64(time.Second)),
		ModelSize:      strings.ToLower(cfg.LocalModelSize),
		Device:         cfg.LocalDevice,
	}
	httpClient := transcribe.NewHTTPClient(time.Duration(cfg.RequestTimeout)*time.Second, cfg.EnableHTTP2, cfg.VerifySSL)

	var conv transcribe.Converter
	if cfg.UploadCodec != "" {
		conv = ffmpeg.Converter{
			Codec:    cfg.UploadCodec,
			BitRate:  cfg.UploadBitRate,
			Channels: record.Channels,
			Log:      observability.Component(log, "ffmpeg", cfg.FFmpegDebug),
		}
	}
	loader := transcribe.NewWorkerLoader(cfg.PythonPath, log.With().Str("component", "whisper").Logger())
	return transcribe.New(opts, httpClient, conv, loader, uploadLog), loader
}

// RunRecordMode registers the hotkeys and serves them until ctx is done.
func RunRecordMode(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	tempDir := config.TempDir(&cfg)
	recLog := observability.Component(log, "record", cfg.RecordDebug)
	record.CleanupTempFiles(tempDir, staleCapture, recLog)

	mode, err := record.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}

	dev, err := record.OpenPortAudio()
	if err != nil {
		return err
	}
	svc, loader := NewTranscriber(cfg, log)

	notifier := notify.New(cfg.Notification, log)
	status := NewStatus(os.Stdout)
	ctrl := NewController(cfg,
		record.NewSession(dev, mode, tempDir, recLog),
		svc,
		clipboard.New(log.With().Str("component", "inject").Logger()),
		notifier, status, log)

	observability.ServeMetrics(ctx, cfg.MetricsAddr, log)

	bindings := []hotkey.Binding{{ID: HotkeyToggle, Spec: cfg.Hotkey}}
	if cfg.StealthHotkey != "" {
		bindings = append(bindings, hotkey.Binding{ID: HotkeyQuiet, Spec: cfg.StealthHotkey})
	}
	hkLog := observability.Component(log, "hotkey", cfg.HotkeyDebug)
	if err := hotkey.Register(bindings, cfg.HotKeyHook, ctrl.HandleHotkey, hkLog); err != nil {
		return multierror.Append(fmt.Errorf("register hotkeys: %w", err), teardown(dev, svc, loader)).ErrorOrNil()
	}

	log.Info().Str("mode", mode.String()).Str("backend", cfg.TranscriberBackend).Msg("ready")
	status.Ready(cfg.Hotkey)
	<-ctx.Done()

	if res := ctrl.rec.Stop(); res != nil {
		handleCache(cfg.CacheDir, cfg.KeepCache, res.Paths(), "", time.Now(), log)
	}
	return teardown(dev, svc, loader)
}

func teardown(dev record.Device, svc *transcribe.Service, loader *transcribe.WorkerLoader) error {
	var result *multierror.Error
	if err := svc.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := loader.Close(); err != nil && !os.IsNotExist(err) {
		result = multierror.Append(result, err)
	}
	if err := dev.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// FileJob describes one-shot processing of existing recordings.
type FileJob struct {
	// Input is the microphone-side (or only) recording.
	Input string
	// System, when set, is transcribed as the other side of a conference.
	System string
	// Output overrides the default output path.
	Output string
}

// RunFileMode transcribes existing files. A single file becomes a .txt next
// to the working directory; with conference mode or a system file the pair
// becomes a markdown report. It returns the path written. When only one side
// of a pair fails, the partial report is still written and its path is
// returned together with the error.
func RunFileMode(ctx context.Context, cfg config.Config, job FileJob, tr Transcriber, log zerolog.Logger) (string, error) {
	for _, p := range []string{job.Input, job.System} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("file '%s' stat failed: %w", p, err)
		}
	}

	if job.System != "" || cfg.Mode == config.ModeConference {
		segs, err := conference.NewTranscriber(tr, log).Transcribe(ctx, job.Input, job.System, cfg.Language)
		if err != nil && len(segs) == 0 {
			return "", err
		}
		path, werr := conference.WriteReport(segs, job.Output, cfg.ReportDir, time.Now())
		if werr != nil {
			return "", multierror.Append(werr, err).ErrorOrNil()
		}
		if err != nil {
			return path, fmt.Errorf("partial report %s: %w", path, err)
		}
		return path, nil
	}

	text, err := tr.Transcribe(ctx, job.Input, cfg.Language)
	if err != nil {
		return "", err
	}
	outPath := job.Output
	if outPath == "" {
		base := strings.TrimSuffix(filepath.Base(job.Input), filepath.Ext(job.Input))
		outPath = filepath.Join(".", base+".txt")
	}
	if err := os.WriteFile(outPath, []byte(text), 0o644); err != nil {
		return "", err
	}
	return outPath, nil
}
