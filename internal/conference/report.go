package conference

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dictate/internal/transcribe"
)

const reportTitle = "# Conference Report"

// FormatTimestamp renders seconds as MM:SS, or HH:MM:SS from one hour on.
// Fractions are truncated.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// RenderReport writes the markdown report for segs to w.
func RenderReport(w io.Writer, segs []transcribe.Segment, now time.Time) error {
	var b strings.Builder
	b.WriteString(reportTitle + "\n\n")
	fmt.Fprintf(&b, "**Date:** %s\n\n", now.Format("2006-01-02 15:04"))
	b.WriteString("---\n\n")
	for _, s := range segs {
		speaker := s.Speaker
		if speaker == "" {
			speaker = "Unknown"
		}
		fmt.Fprintf(&b, "> **[%s] %s**: %s\n>\n", FormatTimestamp(s.Start), speaker, strings.TrimSpace(s.Text))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// DefaultReportName is the filename used when no output path is given.
func DefaultReportName(now time.Time) string {
	return fmt.Sprintf("Conference_Report_%s.md", now.Format("2006-01-02_15-04-05"))
}

// WriteReport renders segs to path, or to DefaultReportName inside dir when
// path is empty. It returns the path written.
func WriteReport(segs []transcribe.Segment, path, dir string, now time.Time) (string, error) {
	if path == "" {
		path = filepath.Join(dir, DefaultReportName(now))
	}
	if parent := filepath.Dir(path); parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return "", fmt.Errorf("create report dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	if err := RenderReport(f, segs, now); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close report: %w", err)
	}
	return path, nil
}
