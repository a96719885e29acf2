// Package vtt extracts plain transcript text from WebVTT subtitle tracks.
package vtt

import (
	"strings"
)

// ExtractText strips WebVTT structure from raw track content and returns
// the joined cue text. A line survives only if, after trimming, it is
// non-empty, does not start with the WEBVTT header token, does not contain
// a cue-timing delimiter, and is not a bare cue sequence number.
//
// This is a lossy, best-effort extraction: overlapping cues common in
// auto-generated captions are not deduplicated, and inline formatting tags
// are kept as-is.
func ExtractText(raw string) string {
	lines := strings.Split(raw, "\n")
	kept := make([]string, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "WEBVTT") {
			continue
		}
		if strings.Contains(trimmed, "-->") {
			continue
		}
		if isDigits(trimmed) {
			continue
		}
		kept = append(kept, trimmed)
	}

	return strings.TrimSpace(strings.Join(kept, " "))
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
