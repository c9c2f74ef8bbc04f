// Package referral holds the referral entry model, link derivation and the entry repairer
package referral

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
	"time"
)

// JSON field names of the managed entry fields
const (
	FieldSlug      = "slug"
	FieldCategory  = "category"
	FieldSourceURL = "sourceUrl"
	FieldMasked    = "masked"
	FieldTrackPath = "trackPath"
	FieldArchived  = "archived"
)

var managedFields = []string{FieldSlug, FieldCategory, FieldSourceURL, FieldMasked, FieldTrackPath, FieldArchived}

// Entry is one repaired referral record. Extra carries fields written by ingestion
// (titles, images, prices) verbatim; managed fields always win over Extra on encode
type Entry struct {
	Slug      string
	Category  string
	SourceURL string
	Masked    string
	TrackPath string
	Archived  bool
	Extra     map[string]json.RawMessage
}

// Active reports whether the entry is publicly routable
func (e Entry) Active() bool { return !e.Archived && e.SourceURL != "" }

// MarshalJSON writes managed and extra fields as one object with sorted keys
func (e Entry) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Extra)+len(managedFields))
	for k, v := range e.Extra {
		out[k] = v
	}
	out[FieldSlug] = e.Slug
	out[FieldCategory] = e.Category
	out[FieldSourceURL] = e.SourceURL
	out[FieldMasked] = e.Masked
	out[FieldTrackPath] = e.TrackPath
	out[FieldArchived] = e.Archived
	return json.Marshal(out)
}

// UnmarshalJSON reads a repaired entry strictly; use RawEntry for untrusted input
func (e *Entry) UnmarshalJSON(b []byte) error {
	raw := RawEntry{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*e = Entry{
		Slug:      raw.String(FieldSlug),
		Category:  raw.String(FieldCategory),
		SourceURL: raw.String(FieldSourceURL),
		Masked:    raw.String(FieldMasked),
		TrackPath: raw.String(FieldTrackPath),
	}
	e.Archived, _ = raw.Bool(FieldArchived)
	e.Extra = raw.extras()
	return nil
}

// RawEntry is an entry as found on disk, before any repair. Values are kept undecoded
// so wrong JSON types can be detected and unknown fields round-trip byte for byte
type RawEntry map[string]json.RawMessage

// DecodeRawEntry decodes one item; anything that is not a JSON object yields an empty entry
func DecodeRawEntry(b json.RawMessage) RawEntry {
	raw := RawEntry{}
	if err := json.Unmarshal(b, &raw); err != nil || raw == nil {
		return RawEntry{}
	}
	return raw
}

// Lookup returns the string value of key. present is false when the key is absent or null;
// isString is false when the value has another JSON type
func (r RawEntry) Lookup(key string) (s string, present, isString bool) {
	v, ok := r[key]
	if !ok || isNull(v) {
		return "", false, false
	}
	if err := json.Unmarshal(v, &s); err != nil {
		return "", true, false
	}
	return s, true, true
}

// String returns the string value of key or ""
func (r RawEntry) String(key string) string {
	s, _, _ := r.Lookup(key)
	return s
}

// Bool returns the value of key when it is a JSON boolean
func (r RawEntry) Bool(key string) (v, ok bool) {
	raw, found := r[key]
	if !found {
		return false, false
	}
	switch string(bytes.TrimSpace(raw)) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

func (r RawEntry) extras() map[string]json.RawMessage {
	var out map[string]json.RawMessage
	for k, v := range r {
		if slices.Contains(managedFields, k) {
			continue
		}
		if out == nil {
			out = make(map[string]json.RawMessage, len(r))
		}
		out[k] = v
	}
	return out
}

func isNull(v json.RawMessage) bool { return string(bytes.TrimSpace(v)) == "null" }

// Map is the persisted aggregate. Total and Categories are derived, never edited
type Map struct {
	Items       map[string]Entry `json:"items"`
	Total       int              `json:"total"`
	Categories  []string         `json:"categories"`
	GeneratedAt time.Time        `json:"generatedAt"`
}

// NewMap builds the aggregate from repaired entries keyed by slug
func NewMap(items map[string]Entry, now time.Time) Map {
	if items == nil {
		items = map[string]Entry{}
	}
	seen := map[string]struct{}{}
	for _, e := range items {
		seen[e.Category] = struct{}{}
	}
	cats := slices.Sorted(maps.Keys(seen))
	if cats == nil {
		cats = []string{}
	}
	return Map{
		Items:       items,
		Total:       len(items),
		Categories:  cats,
		GeneratedAt: now.UTC(),
	}
}

// Counts returns the number of active and archived entries
func (m Map) Counts() (active, archived int) {
	for _, e := range m.Items {
		if e.Archived {
			archived++
		} else {
			active++
		}
	}
	return active, archived
}
