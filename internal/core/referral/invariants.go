package referral

import (
	"fmt"

	"refguard/internal/core/canon"
)

// Violation names one broken invariant on one entry
type Violation struct {
	Key       string
	Invariant string
	Detail    string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s (%s)", v.Key, v.Invariant, v.Detail)
}

// Invariant identifiers
const (
	InvKeyIsSlug        = "key_is_canonical_slug"
	InvCategoryMember   = "category_in_set"
	InvArchivedNoSource = "no_source_means_archived"
	InvMaskedDerived    = "masked_derived_from_source"
	InvTrackDerived     = "trackpath_encodes_masked"
	InvNoRawURL         = "no_raw_url_in_public_fields"
)

// Verify checks a repaired entry stored under key against every entry invariant.
// An empty result means the entry is compliant
func Verify(key string, e Entry, cfg Config) []Violation {
	var out []Violation
	add := func(inv, format string, a ...any) {
		out = append(out, Violation{Key: key, Invariant: inv, Detail: fmt.Sprintf(format, a...)})
	}

	if key == "" || key != e.Slug || canon.Slug(key) != key {
		add(InvKeyIsSlug, "key %q slug %q", key, e.Slug)
	}
	if !canon.IsCategory(e.Category) {
		add(InvCategoryMember, "category %q", e.Category)
	}
	if e.SourceURL == "" {
		if e.Masked != "" || e.TrackPath != "" || !e.Archived {
			add(InvArchivedNoSource, "masked=%q trackPath=%q archived=%v", e.Masked, e.TrackPath, e.Archived)
		}
	} else {
		if want := cfg.Masked(e.SourceURL); e.Masked != want {
			add(InvMaskedDerived, "masked %q, want %q", e.Masked, want)
		}
		p, ok := cfg.ParseTrackPath(e.TrackPath)
		if !ok || p.Redirect != e.Masked || p.Deal != e.Slug || p.Category != e.Category {
			add(InvTrackDerived, "trackPath %q", e.TrackPath)
		}
	}
	if cfg.MaskedLeaks(e.Masked) || cfg.TrackLeaks(e.TrackPath) {
		add(InvNoRawURL, "masked=%q trackPath=%q", e.Masked, e.TrackPath)
	}
	return out
}

// VerifyMap checks every entry and the derived aggregate fields
func VerifyMap(m Map, cfg Config) []Violation {
	var out []Violation
	for k, e := range m.Items {
		out = append(out, Verify(k, e, cfg)...)
	}
	if m.Total != len(m.Items) {
		out = append(out, Violation{Key: "*", Invariant: "total_matches_items", Detail: fmt.Sprintf("total %d items %d", m.Total, len(m.Items))})
	}
	want := NewMap(m.Items, m.GeneratedAt).Categories
	if fmt.Sprint(want) != fmt.Sprint(m.Categories) {
		out = append(out, Violation{Key: "*", Invariant: "categories_match_items", Detail: fmt.Sprintf("categories %v want %v", m.Categories, want)})
	}
	return out
}
