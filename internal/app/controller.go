package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"dictate/internal/conference"
	"dictate/internal/config"
	"dictate/internal/notify"
	"dictate/internal/record"
	"dictate/internal/transcribe"
)

// Hotkey ids.
const (
	HotkeyToggle = 1
	HotkeyQuiet  = 2
)

// Recorder is the capture session driven by the controller.
type Recorder interface {
	Start(ctx context.Context) bool
	Stop() *record.Result
	Running() bool
	Mode() record.Mode
}

// Transcriber turns a capture file into text or timed segments.
type Transcriber interface {
	Transcribe(ctx context.Context, path, language string) (string, error)
	TranscribeSegments(ctx context.Context, path, language string) ([]transcribe.Segment, error)
}

// Injector delivers text to the focused application.
type Injector interface {
	Inject(text string, modes []string, appendEnter bool) error
}

// Controller reacts to hotkeys: the first toggle starts a capture, the
// second stops it and delivers the result for the session's mode.
type Controller struct {
	cfg      config.Config
	rec      Recorder
	tr       Transcriber
	conf     *conference.Transcriber
	inject   Injector
	notifier *notify.Notifier
	status   *Status
	log      zerolog.Logger
	now      func() time.Time

	// actionMu serializes hotkey actions, including the processing that
	// follows a stop.
	actionMu sync.Mutex
	quiet    bool
}

// NewController wires a controller.
func NewController(cfg config.Config, rec Recorder, tr Transcriber, inject Injector, notifier *notify.Notifier, status *Status, log zerolog.Logger) *Controller {
	if status == nil {
		status = NewStatus(io.Discard)
	}
	return &Controller{
		cfg:      cfg,
		rec:      rec,
		tr:       tr,
		conf:     conference.NewTranscriber(tr, log),
		inject:   inject,
		notifier: notifier,
		status:   status,
		log:      log,
		now:      time.Now,
	}
}

// HandleHotkey dispatches a hotkey id.
func (c *Controller) HandleHotkey(id int) {
	switch id {
	case HotkeyToggle:
		if err := c.Toggle(context.Background()); err != nil {
			c.log.Error().Err(err).Msg("toggle failed")
		}
	case HotkeyQuiet:
		c.ToggleQuiet()
	default:
		c.log.Debug().Int("id", id).Msg("unknown hotkey id")
	}
}

// ToggleQuiet flips quiet mode, which hides notifications and status lines,
// and returns the new state.
func (c *Controller) ToggleQuiet() bool {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()
	c.quiet = !c.quiet
	if c.notifier != nil {
		c.notifier.SetQuiet(c.quiet)
	}
	c.status.SetQuiet(c.quiet)
	c.log.Info().Bool("quiet", c.quiet).Msg("quiet mode toggled")
	return c.quiet
}

// Toggle starts a capture when idle, otherwise stops it and processes the
// result.
func (c *Controller) Toggle(ctx context.Context) error {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	if !c.rec.Running() {
		if c.rec.Start(ctx) {
			c.log.Info().Str("mode", c.rec.Mode().String()).Msg("recording started")
			c.status.Recording(c.rec.Mode().String())
			c.notifier.Notify("Recording started")
		}
		return nil
	}

	res := c.rec.Stop()
	if res == nil {
		return nil
	}
	c.log.Info().Strs("files", res.Paths()).Msg("recording stopped")
	c.notifier.Notify("Recording finished")
	return c.Process(ctx, c.rec.Mode(), res)
}

// Process delivers the result of one capture according to mode and then
// cleans up the capture files.
func (c *Controller) Process(ctx context.Context, mode record.Mode, res *record.Result) error {
	var (
		transcript string
		err        error
	)
	switch mode {
	case record.Conference:
		transcript, err = c.processConference(ctx, res, "")
	case record.Interview:
		transcript, err = c.processSingle(ctx, res.System)
	default:
		transcript, err = c.processSingle(ctx, res.Microphone)
	}
	handleCache(c.cfg.CacheDir, c.cfg.KeepCache, res.Paths(), transcript, c.now(), c.log)
	if err != nil {
		c.status.Failed(err)
	}
	return err
}

func (c *Controller) processSingle(ctx context.Context, path string) (string, error) {
	if path == "" {
		c.notifier.Notify("Nothing was recorded")
		return "", errors.New("no audio captured")
	}
	c.status.Working("transcribing")
	text, err := c.tr.Transcribe(ctx, path, c.cfg.Language)
	if err != nil {
		c.notifier.Notify(failureMessage(err))
		return "", fmt.Errorf("transcribe: %w", err)
	}
	if text == "" {
		c.notifier.Notify("Empty transcription")
		c.status.Done("no speech recognized")
		return "", nil
	}
	if err := c.inject.Inject(text, c.cfg.OutputModes, c.cfg.AppendEnter); err != nil {
		c.notifier.Notify("Paste failed")
		return text, fmt.Errorf("inject: %w", err)
	}
	c.status.Done("%d characters delivered", len([]rune(text)))
	c.notifier.Notify("Transcription delivered")
	return text, nil
}

// processConference writes the meeting report and returns its path.
func (c *Controller) processConference(ctx context.Context, res *record.Result, out string) (string, error) {
	c.status.Working("transcribing both sides")
	segs, err := c.conf.Transcribe(ctx, res.Microphone, res.System, c.cfg.Language)
	if err != nil && len(segs) == 0 {
		c.notifier.Notify(failureMessage(err))
		return "", fmt.Errorf("transcribe conference: %w", err)
	}
	path, werr := conference.WriteReport(segs, out, c.cfg.ReportDir, c.now())
	if werr != nil {
		return "", multierror.Append(werr, err).ErrorOrNil()
	}
	c.log.Info().Str("path", path).Int("segments", len(segs)).Msg("report written")
	if err != nil {
		// One side failed; the report only holds the other speaker.
		c.notifier.Notify(failureMessage(err))
		return "", fmt.Errorf("transcribe conference (partial report %s): %w", path, err)
	}
	c.status.Done("report saved to %s", path)
	c.notifier.Notify("Report saved")
	return "", nil
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, transcribe.ErrMissingCredential):
		return "OpenAI API key is missing"
	case errors.Is(err, transcribe.ErrModelLoad):
		return "Local model failed to load"
	case errors.Is(err, transcribe.ErrNotFound):
		return "Recording file is missing"
	default:
		return "Transcription failed"
	}
}
