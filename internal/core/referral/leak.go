package referral

import (
	"regexp"
	"strings"
)

// rawURL spots an absolute or protocol-relative URL in unencoded text
var rawURL = regexp.MustCompile(`(?i)([a-z][a-z0-9+.-]*:)?//`)

// MaskedLeaks reports whether a masked value exposes anything but a RefPrefix link
func (c Config) MaskedLeaks(v string) bool {
	if v == "" {
		return false
	}
	rest, ok := strings.CutPrefix(v, c.RefPrefix)
	if !ok {
		return true
	}
	return rawURL.MatchString(rest)
}

// TrackLeaks reports whether a track value is not a same-origin track link or
// carries a raw URL in its query
func (c Config) TrackLeaks(v string) bool {
	if v == "" {
		return false
	}
	rest, ok := strings.CutPrefix(v, c.TrackBase()+"?")
	if !ok {
		rest, ok = strings.CutPrefix(v, TrackRoute+"?")
	}
	if !ok {
		return true
	}
	return rawURL.MatchString(rest)
}
