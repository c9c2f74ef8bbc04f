package referral

import (
	"net/url"
	"strings"
	"unicode"
)

// EncodeComponent percent-encodes s as a URL component: everything outside
// A-Z a-z 0-9 - _ . ~ is escaped and spaces become %20
func EncodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// ValidSourceURL reports whether s is a well-formed absolute http(s) URL with a host.
// Whitespace or control characters anywhere make it invalid; nothing is trimmed or guessed
func ValidSourceURL(s string) bool {
	if s == "" || strings.IndexFunc(s, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0 {
		return false
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || u.Opaque != "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// Masked derives the masked link for a source URL; "" for an empty source
func (c Config) Masked(sourceURL string) string {
	if sourceURL == "" {
		return ""
	}
	return c.RefPrefix + EncodeComponent(sourceURL)
}

// TrackPath derives the same-origin track link; "" when there is nothing to redirect to
func (c Config) TrackPath(slug, category, masked string) string {
	if masked == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString(c.TrackBase())
	b.WriteString("?deal=")
	b.WriteString(EncodeComponent(slug))
	b.WriteString("&cat=")
	b.WriteString(EncodeComponent(category))
	b.WriteString("&redirect=")
	b.WriteString(EncodeComponent(masked))
	return b.String()
}

// Unmask strips RefPrefix from masked and percent-decodes the remainder.
// ok is false when the prefix is missing or the remainder does not decode
func (c Config) Unmask(masked string) (dest string, ok bool) {
	rest, found := strings.CutPrefix(masked, c.RefPrefix)
	if !found {
		return "", false
	}
	dest, err := url.QueryUnescape(rest)
	if err != nil {
		return "", false
	}
	return dest, true
}

// TrackParams holds the decoded query of a track link
type TrackParams struct {
	Deal     string
	Category string
	Redirect string
}

// ParseTrackPath decodes a track link in absolute (SiteOrigin) or relative form.
// ok is false for anything that is not a same-origin track link
func (c Config) ParseTrackPath(p string) (TrackParams, bool) {
	query, found := strings.CutPrefix(p, c.TrackBase()+"?")
	if !found {
		query, found = strings.CutPrefix(p, TrackRoute+"?")
	}
	if !found {
		return TrackParams{}, false
	}
	q, err := url.ParseQuery(query)
	if err != nil {
		return TrackParams{}, false
	}
	return TrackParams{Deal: q.Get("deal"), Category: q.Get("cat"), Redirect: q.Get("redirect")}, true
}
