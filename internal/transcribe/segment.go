package transcribe

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Segment is a timed span of recognized speech. Speaker is empty until a
// caller labels it.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
}

// RawSegment is what the local engine yields per recognized span.
type RawSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

func segmentFromRaw(r RawSegment) Segment {
	return normalize(Segment{Start: r.Start, End: r.End, Text: r.Text})
}

// segmentFromMap converts one mapping-shaped segment from a JSON response.
// Missing or malformed fields default to zero values.
func segmentFromMap(m map[string]interface{}) Segment {
	var s Segment
	s.Start, _ = toFloat(m["start"])
	s.End, _ = toFloat(m["end"])
	if t, ok := m["text"].(string); ok {
		s.Text = t
	}
	return normalize(s)
}

func normalize(s Segment) Segment {
	if s.Start < 0 {
		s.Start = 0
	}
	if s.End < s.Start {
		s.End = s.Start
	}
	s.Text = strings.TrimSpace(s.Text)
	return s
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// JoinText joins the trimmed texts of segs with single spaces.
func JoinText(segs []Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// NormalizeLanguage maps "Auto" (any case) and blank values to the empty
// string, meaning the backend detects the language itself.
func NormalizeLanguage(lang string) string {
	lang = strings.TrimSpace(lang)
	if strings.EqualFold(lang, "auto") {
		return ""
	}
	return lang
}
