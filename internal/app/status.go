package app

import (
	"io"
	"sync/atomic"

	"github.com/fatih/color"
)

// Status prints short coloured state lines for the person at the keyboard.
// It is silent while quiet mode is on.
type Status struct {
	out   io.Writer
	quiet atomic.Bool

	rec  *color.Color
	busy *color.Color
	ok   *color.Color
	fail *color.Color
}

// NewStatus writes status lines to out.
func NewStatus(out io.Writer) *Status {
	return &Status{
		out:  out,
		rec:  color.New(color.FgRed, color.Bold),
		busy: color.New(color.FgYellow),
		ok:   color.New(color.FgGreen),
		fail: color.New(color.FgHiRed),
	}
}

// SetQuiet silences or restores status output.
func (s *Status) SetQuiet(on bool) { s.quiet.Store(on) }

func (s *Status) print(c *color.Color, format string, args ...interface{}) {
	if s.quiet.Load() {
		return
	}
	_, _ = c.Fprintf(s.out, format+"\n", args...)
}

// Recording announces that capture started.
func (s *Status) Recording(mode string) { s.print(s.rec, "● recording (%s)", mode) }

// Working announces a long step such as transcription.
func (s *Status) Working(what string) { s.print(s.busy, "… %s", what) }

// Done reports a finished step.
func (s *Status) Done(format string, args ...interface{}) { s.print(s.ok, "✓ "+format, args...) }

// Failed reports an error.
func (s *Status) Failed(err error) { s.print(s.fail, "✗ %v", err) }

// Ready prints the idle prompt.
func (s *Status) Ready(hotkey string) { s.print(s.ok, "ready, press %s to start/stop", hotkey) }
