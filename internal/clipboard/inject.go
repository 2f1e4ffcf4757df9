// Package clipboard delivers transcribed text to the user: onto the system
// clipboard and, in cursor mode, pasted into the focused window.
package clipboard

import (
	"errors"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog"
)

// Output modes.
const (
	ModeCursor    = "cursor"
	ModeClipboard = "clipboard"
)

// ErrUnsupported is returned where synthetic key presses are unavailable.
var ErrUnsupported = errors.New("clipboard: key injection not supported on this platform")

// Board reads and writes the system clipboard.
type Board interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// Keyboard sends synthetic key presses to the focused window.
type Keyboard interface {
	Paste() error
	Enter() error
}

type systemBoard struct{}

func (systemBoard) ReadAll() (string, error)   { return clipboard.ReadAll() }
func (systemBoard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// Injector implements one-shot text delivery.
type Injector struct {
	board Board
	keys  Keyboard
	// settle is the pause between clipboard writes and key presses.
	settle time.Duration
	log    zerolog.Logger
}

// New returns an Injector for the system clipboard and keyboard.
func New(log zerolog.Logger) *Injector {
	return &Injector{board: systemBoard{}, keys: platformKeyboard{}, settle: 100 * time.Millisecond, log: log}
}

// NewWith returns an Injector using the given clipboard and keyboard.
func NewWith(board Board, keys Keyboard, settle time.Duration, log zerolog.Logger) *Injector {
	return &Injector{board: board, keys: keys, settle: settle, log: log}
}

// Inject copies text to the clipboard and, when modes contains cursor,
// pastes it at the cursor, optionally pressing Enter afterwards. Without the
// clipboard mode the previous clipboard content is restored after pasting.
// Empty text is ignored.
func (i *Injector) Inject(text string, modes []string, appendEnter bool) error {
	if text == "" {
		return nil
	}
	cursor, keep := hasMode(modes, ModeCursor), hasMode(modes, ModeClipboard)
	i.log.Debug().Strs("modes", modes).Int("chars", len(text)).Msg("injecting text")

	var (
		orig    string
		haveOld bool
	)
	if cursor && !keep {
		if s, err := i.board.ReadAll(); err == nil {
			orig, haveOld = s, true
		}
	}
	if err := i.board.WriteAll(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	if !cursor {
		return nil
	}

	time.Sleep(i.settle)
	if err := i.keys.Paste(); err != nil {
		return fmt.Errorf("paste: %w", err)
	}
	if appendEnter {
		time.Sleep(i.settle)
		if err := i.keys.Enter(); err != nil {
			return fmt.Errorf("enter: %w", err)
		}
	}
	if haveOld {
		// The target reads the clipboard asynchronously after Ctrl+V.
		time.Sleep(i.settle)
		if err := i.board.WriteAll(orig); err != nil {
			i.log.Debug().Err(err).Msg("restoring clipboard failed")
		}
	}
	return nil
}

func hasMode(modes []string, mode string) bool {
	for _, m := range modes {
		if m == mode {
			return true
		}
	}
	return false
}
