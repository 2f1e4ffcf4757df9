// Package conference merges two-sided recordings into one speaker-labelled
// transcript and renders it as a markdown report.
package conference

import (
	"context"
	"os"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"dictate/internal/transcribe"
)

// MinCaptureBytes is the smallest file considered to hold audio. Anything at
// or below it is a bare WAV header and is skipped.
const MinCaptureBytes = 1000

// Speaker labels.
const (
	SpeakerUser   = "User"
	SpeakerSystem = "System"
)

// SegmentTranscriber produces timed segments for one audio file.
type SegmentTranscriber interface {
	TranscribeSegments(ctx context.Context, path, language string) ([]transcribe.Segment, error)
}

// Transcriber labels and merges the segments of a microphone and a system
// recording.
type Transcriber struct {
	tr  SegmentTranscriber
	log zerolog.Logger
}

// NewTranscriber returns a Transcriber backed by tr.
func NewTranscriber(tr SegmentTranscriber, log zerolog.Logger) *Transcriber {
	return &Transcriber{tr: tr, log: log}
}

// Transcribe returns the segments of both recordings labelled User and
// System, ordered by start time. A missing or header-only file contributes
// nothing. If one side fails the other side's segments are still returned
// together with the failure.
func (t *Transcriber) Transcribe(ctx context.Context, micPath, sysPath, language string) ([]transcribe.Segment, error) {
	var (
		all  []transcribe.Segment
		errs *multierror.Error
	)
	sides := []struct {
		path    string
		speaker string
	}{
		{micPath, SpeakerUser},
		{sysPath, SpeakerSystem},
	}
	for _, side := range sides {
		if !hasAudio(side.path) {
			t.log.Debug().Str("speaker", side.speaker).Str("path", side.path).Msg("no usable audio")
			continue
		}
		segs, err := t.tr.TranscribeSegments(ctx, side.path, language)
		if err != nil {
			t.log.Error().Err(err).Str("speaker", side.speaker).Msg("transcription failed")
			errs = multierror.Append(errs, err)
			continue
		}
		for _, s := range segs {
			s.Speaker = side.speaker
			all = append(all, s)
		}
	}

	// Stable so equal starts keep User before System.
	sort.SliceStable(all, func(i, j int) bool { return all[i].Start < all[j].Start })
	if all == nil {
		all = []transcribe.Segment{}
	}
	return all, errs.ErrorOrNil()
}

func hasAudio(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Size() > MinCaptureBytes
}
