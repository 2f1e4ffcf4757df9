// Package notify shows desktop notifications.
package notify

import (
	"sync/atomic"

	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog"
)

// Title is shown on every notification.
const Title = "Dictate"

// Notifier sends desktop notifications unless disabled or quieted.
type Notifier struct {
	enabled bool
	quiet   atomic.Bool
	send    func(title, message string) error
	log     zerolog.Logger
}

// New returns a Notifier backed by beeep.
func New(enabled bool, log zerolog.Logger) *Notifier {
	return NewWithSender(enabled, func(title, message string) error {
		return beeep.Notify(title, message, "")
	}, log)
}

// NewWithSender returns a Notifier that hands messages to send.
func NewWithSender(enabled bool, send func(title, message string) error, log zerolog.Logger) *Notifier {
	return &Notifier{enabled: enabled, send: send, log: log}
}

// SetQuiet suppresses notifications while on.
func (n *Notifier) SetQuiet(on bool) { n.quiet.Store(on) }

// Quiet reports whether notifications are suppressed.
func (n *Notifier) Quiet() bool { return n.quiet.Load() }

// Notify shows message unless notifications are off.
func (n *Notifier) Notify(message string) {
	if n == nil || !n.enabled || n.quiet.Load() {
		return
	}
	if err := n.send(Title, message); err != nil {
		n.log.Debug().Err(err).Msg("notification failed")
	}
}
