// Package domain defines the types and ports of the map repair pass
package domain

import (
	"encoding/json"

	"refguard/internal/core/referral"
)

// Document is a referral map as loaded from disk, before any repair
type Document struct {
	Path  string
	Raw   []byte // file bytes, written back verbatim as the rollback snapshot
	Items map[string]json.RawMessage

	// stored aggregates, nil when absent or not decodable
	Total      *int
	Categories []string
}

// Mode selects what a pass is allowed to do
type Mode struct {
	DryRun bool // repair and report, never write
	Check  bool // like DryRun, and fail when anything would change
}

// Writes reports whether the mode persists anything
func (m Mode) Writes() bool { return !m.DryRun && !m.Check }

// Collision names a raw key whose canonical slug was already claimed
type Collision struct {
	Key    string `json:"key"`
	Slug   string `json:"slug"`
	Winner string `json:"winner"`
}

// Excluded lists entries dropped from the repaired map
type Excluded struct {
	EmptySlug []string    `json:"empty_slug"`
	Collision []Collision `json:"collision"`
}

// Count returns how many entries were dropped
func (e Excluded) Count() int { return len(e.EmptySlug) + len(e.Collision) }

// Fixes counts corrections by kind
type Fixes struct {
	Slug            int `json:"slug_fixed"`
	Category        int `json:"category_fixed"`
	SourceNullified int `json:"source_nullified"`
	Masked          int `json:"masked_repaired"`
	TrackPath       int `json:"trackpath_repaired"`
	RawURLStripped  int `json:"raw_url_stripped"`
	Archived        int `json:"archived_fixed"`
}

// Add counts every change kind of one repaired entry
func (f *Fixes) Add(kinds []referral.ChangeKind) {
	for _, k := range kinds {
		switch k {
		case referral.ChangeSlug:
			f.Slug++
		case referral.ChangeCategory:
			f.Category++
		case referral.ChangeSourceNullified:
			f.SourceNullified++
		case referral.ChangeMasked:
			f.Masked++
		case referral.ChangeTrackPath:
			f.TrackPath++
		case referral.ChangeRawURLStripped:
			f.RawURLStripped++
		case referral.ChangeArchived:
			f.Archived++
		}
	}
}

// Report is the outcome of one pass
type Report struct {
	RunID  string `json:"run_id"`
	Path   string `json:"path"`
	DryRun bool   `json:"dry_run"`

	Fixes           Fixes `json:"fixes"`
	ChangedEntries  int   `json:"changed_entries"`
	AggregatesDrift bool  `json:"aggregates_drift"`

	TotalBefore int `json:"total_before"`
	TotalAfter  int `json:"total_after"`
	Active      int `json:"active"`
	Archived    int `json:"archived"`

	Excluded Excluded `json:"excluded"`

	Wrote    bool   `json:"wrote"`
	PrevPath string `json:"prev_path,omitempty"`
	Snapshot string `json:"snapshot,omitempty"`
	Pruned   int    `json:"snapshots_pruned,omitempty"`
}

// Changed reports whether the pass altered anything besides generatedAt
func (r Report) Changed() bool {
	return r.ChangedEntries > 0 || r.Excluded.Count() > 0 || r.AggregatesDrift
}
