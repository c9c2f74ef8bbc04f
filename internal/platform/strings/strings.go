// Package strings provides string and slice helpers shared by config and http wiring
package strings

import std "strings"

// IfEmpty returns def if in is empty, otherwise returns in
func IfEmpty[T any](in []T, def []T) []T {
	if len(in) == 0 {
		return def
	}
	return in
}

// SplitTrim splits s on sep, trims each part and drops blanks. nil when nothing remains
func SplitTrim(s, sep string) []string {
	var out []string
	for p := range std.SplitSeq(s, sep) {
		if v := std.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// MustPrefix normalizes and asserts a route prefix like /api
// ensures a single leading slash and no trailing slash; "" and "/" mean the root
func MustPrefix(s string) string {
	s = std.Trim(std.TrimSpace(s), "/")
	if s == "" {
		return ""
	}
	if std.ContainsAny(s, " ?#") {
		panic("route prefix " + s + " must be a plain path")
	}
	return "/" + s
}
