package clipboard

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memBoard struct {
	content string
	writes  []string
}

func (b *memBoard) ReadAll() (string, error) { return b.content, nil }
func (b *memBoard) WriteAll(s string) error {
	b.content = s
	b.writes = append(b.writes, s)
	return nil
}

type recKeys struct {
	events   []string
	pasteErr error
}

func (k *recKeys) Paste() error {
	k.events = append(k.events, "paste")
	return k.pasteErr
}

func (k *recKeys) Enter() error {
	k.events = append(k.events, "enter")
	return nil
}

func TestInjectClipboardOnly(t *testing.T) {
	board, keys := &memBoard{content: "old"}, &recKeys{}
	require.NoError(t, NewWith(board, keys, 0, zerolog.Nop()).Inject("hello", []string{ModeClipboard}, true))
	assert.Equal(t, "hello", board.content)
	assert.Empty(t, keys.events)
}

func TestInjectCursorRestoresClipboard(t *testing.T) {
	board, keys := &memBoard{content: "old"}, &recKeys{}
	require.NoError(t, NewWith(board, keys, 0, zerolog.Nop()).Inject("hello", []string{ModeCursor}, false))
	assert.Equal(t, []string{"hello", "old"}, board.writes)
	assert.Equal(t, []string{"paste"}, keys.events)
}

func TestInjectCursorAndClipboardKeepsText(t *testing.T) {
	board, keys := &memBoard{content: "old"}, &recKeys{}
	require.NoError(t, NewWith(board, keys, 0, zerolog.Nop()).Inject("hi", []string{ModeCursor, ModeClipboard}, true))
	assert.Equal(t, "hi", board.content)
	assert.Equal(t, []string{"paste", "enter"}, keys.events)
}

func TestInjectEmptyIsNoop(t *testing.T) {
	board, keys := &memBoard{content: "old"}, &recKeys{}
	require.NoError(t, NewWith(board, keys, 0, zerolog.Nop()).Inject("", []string{ModeCursor}, true))
	assert.Empty(t, board.writes)
	assert.Empty(t, keys.events)
}

func TestInjectPasteFailure(t *testing.T) {
	board, keys := &memBoard{}, &recKeys{pasteErr: errors.New("no display")}
	err := NewWith(board, keys, 0, zerolog.Nop()).Inject("x", []string{ModeCursor}, true)
	require.Error(t, err)
	assert.Equal(t, []string{"paste"}, keys.events)
}
