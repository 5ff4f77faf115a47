package titlekey

import (
	"regexp"
	"strings"
)

// Canonical platform keys.
const (
	PlatformPC      = "pc"
	PlatformMac     = "mac"
	PlatformPS5     = "ps5"
	PlatformPS4     = "ps4"
	PlatformXSX     = "xsx"
	PlatformXboxOne = "xboxone"
	PlatformSwitch  = "switch"
	PlatformLinux   = "linux"
	PlatformUnknown = "unknown"
)

type alias struct {
	pattern *regexp.Regexp
	key     string
}

// First match wins, so broader store names sit ahead of OS names.
var platformAliases = []alias{
	{regexp.MustCompile(`(?i)windows|\bpc\b|steam|epic|\bgog\b|\bitch(\.io)?\b|linux/win`), PlatformPC},
	{regexp.MustCompile(`(?i)\bmac(os)?\b|osx|macintosh`), PlatformMac},
	{regexp.MustCompile(`(?i)playstation\s*5|\bps5\b`), PlatformPS5},
	{regexp.MustCompile(`(?i)playstation\s*4|\bps4\b`), PlatformPS4},
	{regexp.MustCompile(`(?i)xbox\s*series|xsx|xss`), PlatformXSX},
	{regexp.MustCompile(`(?i)xbox\s*one`), PlatformXboxOne},
	{regexp.MustCompile(`(?i)switch`), PlatformSwitch},
	{regexp.MustCompile(`(?i)linux|steam deck`), PlatformLinux},
}

// Platform maps a free-form platform label to a canonical key, or "unknown".
func Platform(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return PlatformUnknown
	}
	for _, a := range platformAliases {
		if a.pattern.MatchString(label) {
			return a.key
		}
	}
	return PlatformUnknown
}

// PlatformMatches reports whether a dataset platform cell is compatible with
// the wanted platform. An empty or unknown wanted platform matches anything.
func PlatformMatches(wanted, candidate string) bool {
	w := Platform(wanted)
	if w == PlatformUnknown {
		return true
	}
	for _, part := range strings.FieldsFunc(candidate, func(r rune) bool { return r == ',' || r == ';' || r == '|' }) {
		if Platform(part) == w {
			return true
		}
	}
	return false
}
