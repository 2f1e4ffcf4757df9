package conference

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dictate/internal/transcribe"
)

type fakeTranscriber struct {
	byPath map[string][]transcribe.Segment
	errs   map[string]error
	calls  []string
}

func (f *fakeTranscriber) TranscribeSegments(_ context.Context, path, _ string) ([]transcribe.Segment, error) {
	f.calls = append(f.calls, path)
	if err := f.errs[path]; err != nil {
		return nil, err
	}
	return f.byPath[path], nil
}

func writeCapture(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return path
}

func TestTranscribeMergesAndLabels(t *testing.T) {
	dir := t.TempDir()
	mic := writeCapture(t, dir, "mic.wav", 4096)
	sys := writeCapture(t, dir, "sys.wav", 4096)
	fake := &fakeTranscriber{byPath: map[string][]transcribe.Segment{
		mic: {{Start: 0, End: 2, Text: "Hi"}, {Start: 5, End: 6, Text: "Bye"}},
		sys: {{Start: 1, End: 3, Text: "Hello"}, {Start: 5, End: 7, Text: "See you"}},
	}}

	segs, err := NewTranscriber(fake, zerolog.Nop()).Transcribe(context.Background(), mic, sys, "Auto")
	require.NoError(t, err)

	assert.Equal(t, []transcribe.Segment{
		{Start: 0, End: 2, Text: "Hi", Speaker: SpeakerUser},
		{Start: 1, End: 3, Text: "Hello", Speaker: SpeakerSystem},
		{Start: 5, End: 6, Text: "Bye", Speaker: SpeakerUser},
		{Start: 5, End: 7, Text: "See you", Speaker: SpeakerSystem},
	}, segs)
}

func TestTranscribeSkipsSmallAndMissing(t *testing.T) {
	dir := t.TempDir()
	mic := writeCapture(t, dir, "mic.wav", 4096)
	tiny := writeCapture(t, dir, "sys.wav", MinCaptureBytes)
	fake := &fakeTranscriber{byPath: map[string][]transcribe.Segment{
		mic: {{Start: 0, End: 1, Text: "only me"}},
	}}
	tr := NewTranscriber(fake, zerolog.Nop())

	segs, err := tr.Transcribe(context.Background(), mic, tiny, "")
	require.NoError(t, err)
	assert.Equal(t, []string{mic}, fake.calls)
	require.Len(t, segs, 1)
	assert.Equal(t, SpeakerUser, segs[0].Speaker)

	fake.calls = nil
	segs, err = tr.Transcribe(context.Background(), "", filepath.Join(dir, "missing.wav"), "")
	require.NoError(t, err)
	assert.Empty(t, fake.calls)
	assert.NotNil(t, segs)
	assert.Empty(t, segs)
}

func TestTranscribeKeepsOtherSideOnFailure(t *testing.T) {
	dir := t.TempDir()
	mic := writeCapture(t, dir, "mic.wav", 2048)
	sys := writeCapture(t, dir, "sys.wav", 2048)
	boom := errors.New("upstream 500")
	fake := &fakeTranscriber{
		byPath: map[string][]transcribe.Segment{sys: {{Start: 2, Text: "remote"}}},
		errs:   map[string]error{mic: boom},
	}

	segs, err := NewTranscriber(fake, zerolog.Nop()).Transcribe(context.Background(), mic, sys, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	require.Len(t, segs, 1)
	assert.Equal(t, SpeakerSystem, segs[0].Speaker)
}

func TestFormatTimestamp(t *testing.T) {
	cases := map[float64]string{
		0:       "00:00",
		5:       "00:05",
		5.99:    "00:05",
		75:      "01:15",
		3599.9:  "59:59",
		3600:    "01:00:00",
		3725:    "01:02:05",
		-3:      "00:00",
		36000.4: "10:00:00",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatTimestamp(in), "seconds=%v", in)
	}
}

func TestRenderReport(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 7, 0, 0, time.UTC)
	var buf bytes.Buffer
	require.NoError(t, RenderReport(&buf, []transcribe.Segment{
		{Start: 75, Text: " Hello ", Speaker: SpeakerUser},
		{Start: 3725, Text: "Late reply", Speaker: SpeakerSystem},
	}, now))

	want := "# Conference Report\n\n" +
		"**Date:** 2024-03-09 14:07\n\n" +
		"---\n\n" +
		"> **[01:15] User**: Hello\n>\n" +
		"> **[01:02:05] System**: Late reply\n>\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteReportDefaultName(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 9, 14, 7, 5, 0, time.Local)

	path, err := WriteReport(nil, "", dir, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Conference_Report_2024-03-09_14-07-05.md"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "# Conference Report")
}

func TestWriteReportExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "meeting.md")
	got, err := WriteReport([]transcribe.Segment{{Start: 1, Text: "x", Speaker: SpeakerUser}}, path, "ignored", time.Now())
	require.NoError(t, err)
	assert.Equal(t, path, got)
	assert.FileExists(t, path)
}

func TestEndToEndReport(t *testing.T) {
	dir := t.TempDir()
	mic := writeCapture(t, dir, "RecordTemp_a_mic.wav", 1500)
	sys := writeCapture(t, dir, "RecordTemp_a_sys.wav", 1500)
	fake := &fakeTranscriber{byPath: map[string][]transcribe.Segment{
		mic: {{Start: 10, End: 12, Text: "question?"}},
		sys: {{Start: 3, End: 8, Text: "intro"}},
	}}

	segs, err := NewTranscriber(fake, zerolog.Nop()).Transcribe(context.Background(), mic, sys, "Auto")
	require.NoError(t, err)
	path, err := WriteReport(segs, "", dir, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "> **[00:03] System**: intro\n>\n> **[00:10] User**: question?\n>\n")
}

func TestInterleavedSpeakers(t *testing.T) {
	dir := t.TempDir()
	mic := writeCapture(t, dir, "mic.wav", 1001)
	sys := writeCapture(t, dir, "sys.wav", 1001)
	fake := &fakeTranscriber{byPath: map[string][]transcribe.Segment{
		mic: {{Start: 0, End: 5, Text: "hello"}, {Start: 6, End: 10, Text: "world"}},
		sys: {{Start: 2, End: 4, Text: "hi"}},
	}}

	segs, err := NewTranscriber(fake, zerolog.Nop()).Transcribe(context.Background(), mic, sys, "Auto")
	require.NoError(t, err)

	var got []string
	for _, s := range segs {
		got = append(got, s.Speaker+":"+s.Text)
	}
	assert.Equal(t, []string{"User:hello", "System:hi", "User:world"}, got)
}
