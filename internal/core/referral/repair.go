package referral

import (
	"refguard/internal/core/canon"
	perr "refguard/internal/platform/errors"
)

// ChangeKind names one kind of correction applied to an entry
type ChangeKind string

// Change kinds, in the order the repairer applies them
const (
	ChangeSlug            ChangeKind = "slug_fixed"
	ChangeCategory        ChangeKind = "category_fixed"
	ChangeSourceNullified ChangeKind = "source_nullified"
	ChangeMasked          ChangeKind = "masked_repaired"
	ChangeTrackPath       ChangeKind = "trackpath_repaired"
	ChangeRawURLStripped  ChangeKind = "raw_url_stripped"
	ChangeArchived        ChangeKind = "archived_fixed"
)

// ChangeKinds lists every kind in application order
var ChangeKinds = []ChangeKind{
	ChangeSlug, ChangeCategory, ChangeSourceNullified, ChangeMasked,
	ChangeTrackPath, ChangeRawURLStripped, ChangeArchived,
}

// ErrEmptySlug marks an entry whose key and embedded slug both canonicalize to ""
var ErrEmptySlug = perr.New(perr.ErrorCodeInvalidArgument, "slug is empty after canonicalization")

// Result is the outcome of repairing one entry
type Result struct {
	Key     string // raw map key as loaded
	Slug    string // canonical key to store the entry under
	Entry   Entry
	Changes []ChangeKind
	Err     error // ErrEmptySlug, or nil
}

// Changed reports whether any correction was applied
func (r Result) Changed() bool { return len(r.Changes) > 0 }

// Has reports whether kind was applied
func (r Result) Has(kind ChangeKind) bool {
	for _, k := range r.Changes {
		if k == kind {
			return true
		}
	}
	return false
}

// Repair returns the corrected form of one raw entry. It never fails: malformed data
// is coerced to a safe value and recorded in Changes. Applying Repair to its own
// output yields the same entry and no changes
func Repair(rawKey string, raw RawEntry, cfg Config) Result {
	res := Result{Key: rawKey}
	if raw == nil {
		raw = RawEntry{}
	}
	mark := func(k ChangeKind) { res.Changes = append(res.Changes, k) }

	// 1 slug: map key first, embedded slug second
	storedSlug, _, _ := raw.Lookup(FieldSlug)
	slug := canon.Slug(rawKey)
	if slug == "" {
		slug = canon.Slug(storedSlug)
	}
	if slug == "" {
		res.Err = ErrEmptySlug
	}
	if rawKey != slug || storedSlug != slug || !isStringField(raw, FieldSlug) {
		mark(ChangeSlug)
	}

	// 2 category
	storedCat, _, _ := raw.Lookup(FieldCategory)
	cat, _ := canon.Category(storedCat)
	if storedCat != cat || !isStringField(raw, FieldCategory) {
		mark(ChangeCategory)
	}

	// 3 source
	storedSrc, srcPresent, srcIsString := raw.Lookup(FieldSourceURL)
	src := storedSrc
	if !ValidSourceURL(src) {
		src = ""
	}
	if srcPresent && (storedSrc != src || !srcIsString) {
		mark(ChangeSourceNullified)
	}

	// 4 derive links; no source means archived and unroutable
	masked := cfg.Masked(src)
	track := cfg.TrackPath(slug, cat, masked)
	forceArchived := src == ""

	storedMasked, maskedOK := stringOrEmpty(raw, FieldMasked)
	if !maskedOK || storedMasked != masked {
		mark(ChangeMasked)
	}
	storedTrack, trackOK := stringOrEmpty(raw, FieldTrackPath)
	if !trackOK || storedTrack != track {
		mark(ChangeTrackPath)
	}

	// 5 no raw URL may survive in the public fields
	if cfg.MaskedLeaks(storedMasked) || cfg.TrackLeaks(storedTrack) {
		mark(ChangeRawURLStripped)
	}
	if cfg.MaskedLeaks(masked) || cfg.TrackLeaks(track) {
		masked, track, forceArchived = "", "", true
		if !res.Has(ChangeRawURLStripped) {
			mark(ChangeRawURLStripped)
		}
	}

	// 6 archived must be a real boolean
	storedArchived, isBool := raw.Bool(FieldArchived)
	archived := storedArchived || forceArchived
	if !isBool || archived != storedArchived {
		mark(ChangeArchived)
	}

	res.Slug = slug
	res.Entry = Entry{
		Slug:      slug,
		Category:  cat,
		SourceURL: src,
		Masked:    masked,
		TrackPath: track,
		Archived:  archived,
		Extra:     raw.extras(),
	}
	return res
}

// RepairEntry re-runs Repair over an already typed entry; handy for fixed-point checks
func RepairEntry(key string, e Entry, cfg Config) Result {
	return Repair(key, e.Raw(), cfg)
}

// Raw converts a typed entry back to its on-disk form
func (e Entry) Raw() RawEntry {
	b, err := e.MarshalJSON()
	if err != nil {
		return RawEntry{}
	}
	return DecodeRawEntry(b)
}

func isStringField(raw RawEntry, key string) bool {
	_, _, isString := raw.Lookup(key)
	return isString
}

// stringOrEmpty reads an optional string field. Absent or null counts as "" and
// ok; any other JSON type is not ok
func stringOrEmpty(raw RawEntry, key string) (string, bool) {
	s, present, isString := raw.Lookup(key)
	if !present {
		return "", true
	}
	return s, isString
}
