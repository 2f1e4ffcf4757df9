package notify

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNotifierRespectsQuietAndEnabled(t *testing.T) {
	var got []string
	n := New(true, zerolog.Nop())
	n.send = func(_, message string) error {
		got = append(got, message)
		return nil
	}

	n.Notify("one")
	n.SetQuiet(true)
	assert.True(t, n.Quiet())
	n.Notify("hidden")
	n.SetQuiet(false)
	n.Notify("two")
	assert.Equal(t, []string{"one", "two"}, got)

	off := New(false, zerolog.Nop())
	off.send = n.send
	off.Notify("never")
	assert.Equal(t, []string{"one", "two"}, got)

	var nilNotifier *Notifier
	nilNotifier.Notify("safe")
}
