// Package canon turns arbitrary strings into canonical deal slugs and categories.
// Slug pipeline
// 1 drop invalid UTF-8
// 2 Unicode NFKD (compatibility decomposition)
// 3 strip combining marks and format chars
// 4 lowercase
// 5 keep letters and digits, map whitespace and hyphens to '-', drop the rest
// 6 collapse hyphen runs and trim edge hyphens
package canon

import (
	"slices"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultCategory is what unknown or missing categories fall back to
const DefaultCategory = "software"

// categories is the enumerated set, sorted
var categories = []string{
	"ai",
	"business",
	"courses",
	"creative",
	"ecommerce",
	"marketing",
	"productivity",
	"software",
	"web",
}

// transformer chains are stateful, so each call borrows one
var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKD,
			runes.Remove(runes.In(unicode.Mn)),
			runes.Remove(runes.In(unicode.Cf)),
			cases.Lower(language.Und),
		)
	},
}

// Slug returns the canonical slug for raw, or "" when nothing usable remains
func Slug(raw string) string {
	if raw == "" {
		return ""
	}
	s := strings.ToValidUTF8(raw, "")

	tr := chainPool.Get().(transform.Transformer)
	ns, _, err := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		ns = strings.ToLower(s)
	}

	var b strings.Builder
	b.Grow(len(ns))
	pendingHyphen := false
	for _, r := range ns {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			pendingHyphen = true
		}
	}
	return b.String()
}

// Category lowercases and trims raw; unknown values become DefaultCategory.
// fellBack reports whether the fallback was applied
func Category(raw string) (cat string, fellBack bool) {
	c := strings.ToLower(strings.TrimSpace(raw))
	if IsCategory(c) {
		return c, false
	}
	return DefaultCategory, true
}

// IsCategory reports whether c is exactly a member of the enumerated set
func IsCategory(c string) bool {
	_, found := slices.BinarySearch(categories, c)
	return found
}

// Categories returns a copy of the enumerated set, sorted
func Categories() []string { return slices.Clone(categories) }
