// Package intent recognizes device-control requests embedded in generated replies.
package intent

import (
	"regexp"
	"strings"
)

var (
	markerRe    = regexp.MustCompile(`(?i)\[DEVICE_CTL\]\s*room=(\S+)\s+action=(on|off)`)
	blankRunsRe = regexp.MustCompile(`\n\s*\n`)
)

// RoomAll targets every enabled device regardless of room.
const RoomAll = "all"

// Intent is a structured device-control request.
type Intent struct {
	Room   string
	TurnOn bool
}

// Extractor turns free-form generated text into an optional Intent and the speakable remainder.
type Extractor interface {
	Parse(reply string) (Intent, bool)
	Strip(reply string) string
}

// MarkerExtractor recognizes the `[DEVICE_CTL] room=<room> action=on|off` marker.
type MarkerExtractor struct{}

// NewMarkerExtractor creates a marker-based Extractor.
func NewMarkerExtractor() MarkerExtractor { return MarkerExtractor{} }

// Parse returns the first marker in reply.
func (MarkerExtractor) Parse(reply string) (Intent, bool) {
	m := markerRe.FindStringSubmatch(reply)
	if m == nil {
		return Intent{}, false
	}
	return Intent{Room: m[1], TurnOn: strings.EqualFold(m[2], "on")}, true
}

// Strip removes every marker, collapses the blank lines left behind and trims.
func (MarkerExtractor) Strip(reply string) string {
	if reply == "" {
		return ""
	}
	out := markerRe.ReplaceAllString(reply, "")
	out = blankRunsRe.ReplaceAllString(out, "\n")
	return strings.TrimSpace(out)
}

// IsAll reports whether room addresses every device.
func IsAll(room string) bool { return strings.EqualFold(room, RoomAll) }
