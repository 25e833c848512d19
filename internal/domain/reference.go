package domain

import (
	"regexp"
	"strings"
)

// SourceReference is a parsed video reference. Raw is what gets typed into
// the converter; VideoID is only used for validation and bookkeeping.
type SourceReference struct {
	VideoID string `json:"video_id"`
	Raw     string `json:"raw"`
}

// referencePatterns are tried in order; the first match wins.
var referencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:v=|/v/|/embed/|youtu\.be/)([^&?/#\s]+)`),
	regexp.MustCompile(`youtube\.com/shorts/([^&?/#\s]+)`),
	regexp.MustCompile(`youtube\.com/live/([^&?/#\s]+)`),
}

// ParseReference extracts the video identifier from a YouTube URL
func ParseReference(raw string) (SourceReference, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return SourceReference{}, NewError(KindInvalidReference, "empty reference", nil)
	}

	for _, pattern := range referencePatterns {
		m := pattern.FindStringSubmatch(trimmed)
		if len(m) < 2 {
			continue
		}
		return SourceReference{VideoID: m[1], Raw: trimmed}, nil
	}

	return SourceReference{}, NewError(KindInvalidReference, "no recognizable video id in "+trimmed, nil)
}
