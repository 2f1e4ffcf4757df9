package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dictate/internal/config"
	"dictate/internal/transcribe"
)

func TestRunFileModeWritesText(t *testing.T) {
	dir := t.TempDir()
	in := capture(t, dir, "meeting.wav")
	out := filepath.Join(dir, "meeting.txt")

	path, err := RunFileMode(context.Background(), config.DefaultConfig(), FileJob{Input: in, Output: out}, &fakeTranscriber{text: "file text"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, out, path)
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "file text", string(b))
	assert.FileExists(t, in, "input files are never deleted")
}

func TestRunFileModeConferencePair(t *testing.T) {
	dir := t.TempDir()
	mic := capture(t, dir, "me.wav")
	sys := capture(t, dir, "them.wav")
	cfg := config.DefaultConfig()
	cfg.ReportDir = dir

	tr := &fakeTranscriber{segs: map[string][]transcribe.Segment{
		mic: {{Start: 2, Text: "hi"}},
		sys: {{Start: 0, Text: "hello"}},
	}}
	path, err := RunFileMode(context.Background(), cfg, FileJob{Input: mic, System: sys}, tr, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "> **[00:00] System**: hello\n>\n> **[00:02] User**: hi\n>\n")
}

func TestRunFileModeConferencePartialFailure(t *testing.T) {
	dir := t.TempDir()
	mic := capture(t, dir, "me.wav")
	sys := capture(t, dir, "them.wav")
	cfg := config.DefaultConfig()
	cfg.ReportDir = dir

	tr := &fakeTranscriber{
		errs: map[string]error{sys: transcribe.ErrNotFound},
		segs: map[string][]transcribe.Segment{mic: {{Start: 0, Text: "just me"}}},
	}
	path, err := RunFileMode(context.Background(), cfg, FileJob{Input: mic, System: sys}, tr, zerolog.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, transcribe.ErrNotFound)
	require.NotEmpty(t, path)
	assert.FileExists(t, path)
	assert.Contains(t, err.Error(), path)
}

func TestRunFileModeMissingInput(t *testing.T) {
	_, err := RunFileMode(context.Background(), config.DefaultConfig(), FileJob{Input: filepath.Join(t.TempDir(), "nope.wav")}, &fakeTranscriber{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestCacheSuffix(t *testing.T) {
	assert.Equal(t, "-mic.wav", cacheSuffix("/tmp/RecordTemp_abc_mic.wav"))
	assert.Equal(t, ".wav", cacheSuffix("plain.wav"))
}

func TestHandleCacheRemovesWithoutCacheDir(t *testing.T) {
	dir := t.TempDir()
	p := capture(t, dir, "RecordTemp_x_sys.wav")
	handleCache("", true, []string{p, ""}, "text", testNow, zerolog.Nop())
	assert.NoFileExists(t, p)
}

func TestNewTranscriberUsesConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.OpenAIAPIKey = ""
	svc, loader := NewTranscriber(cfg, zerolog.Nop())
	require.NotNil(t, loader)
	_, err := svc.Transcribe(context.Background(), capture(t, t.TempDir(), "a.wav"), "Auto")
	assert.ErrorIs(t, err, transcribe.ErrMissingCredential)
	assert.NoError(t, loader.Close())
}
