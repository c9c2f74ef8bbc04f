// Package service implements the map repair pass
package service

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"strings"
	"time"

	"refguard/internal/core/referral"
	perr "refguard/internal/platform/errors"
	"refguard/internal/platform/logger"
	dom "refguard/internal/services/repair/domain"

	"github.com/google/uuid"
)

// Service implements dom.RunnerPort
type Service struct {
	store dom.Store
	snaps dom.Snapshotter // optional
	cfg   referral.Config

	now   func() time.Time
	newID func() string
}

// New constructs the pass. snaps may be nil
func New(store dom.Store, snaps dom.Snapshotter, cfg referral.Config) *Service {
	return &Service{
		store: store,
		snaps: snaps,
		cfg:   cfg,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// ErrDrift is returned in check mode when the map is not at its fixed point
var ErrDrift = perr.New(perr.ErrorCodeInvariant, "referral map is not at its repair fixed point")

// Run loads the map at path, repairs every entry, rebuilds the aggregates and, when mode
// allows, writes the rollback snapshot and then the repaired map
func (s *Service) Run(ctx context.Context, path string, mode dom.Mode) (dom.Report, error) {
	runID := s.newID()
	ctx = logger.WithRun(ctx, runID)
	log := logger.C(ctx).With().Str("path", path).Logger()

	rep := dom.Report{RunID: runID, Path: path, DryRun: !mode.Writes()}

	if err := s.cfg.Validate(); err != nil {
		return rep, err
	}

	doc, err := s.store.Load(ctx, path)
	if err != nil {
		log.Error().Err(err).Msg("load failed; nothing written")
		return rep, err
	}
	rep.TotalBefore = len(doc.Items)

	out := RepairItems(doc.Items, s.cfg)
	m := referral.NewMap(out.Items, s.now())

	if vs := referral.VerifyMap(m, s.cfg); len(vs) > 0 {
		for _, v := range vs {
			log.Error().Str("key", v.Key).Str("invariant", v.Invariant).Str("detail", v.Detail).Msg("repaired map violates invariant")
		}
		return rep, perr.Invariantf("repaired map violates %d invariant(s); first: %s", len(vs), vs[0])
	}

	rep.Fixes = out.Fixes
	rep.ChangedEntries = out.Changed
	rep.Excluded = out.Excluded
	rep.TotalAfter = m.Total
	rep.Active, rep.Archived = m.Counts()
	rep.AggregatesDrift = doc.Total == nil || *doc.Total != m.Total || !slices.Equal(doc.Categories, m.Categories)

	for _, k := range out.Excluded.EmptySlug {
		log.Warn().Str("key", k).Msg("entry excluded: empty slug")
	}
	for _, c := range out.Excluded.Collision {
		log.Warn().Str("key", c.Key).Str("slug", c.Slug).Str("winner", c.Winner).Msg("entry excluded: slug collision")
	}

	if mode.Check && rep.Changed() {
		logSummary(&log, rep, "check failed: map would change")
		return rep, ErrDrift
	}
	if !mode.Writes() {
		logSummary(&log, rep, "dry run complete")
		return rep, nil
	}

	if rep.PrevPath, err = s.store.SavePrev(ctx, doc); err != nil {
		return rep, err
	}
	if s.snaps != nil {
		snap, pruned, err := s.snaps.Snapshot(ctx, doc, s.now())
		if err != nil {
			return rep, err
		}
		rep.Snapshot, rep.Pruned = snap, pruned
	}
	if err := s.store.Save(ctx, path, m); err != nil {
		return rep, err
	}
	rep.Wrote = true
	logSummary(&log, rep, "repair pass complete")
	return rep, nil
}

func logSummary(log *logger.Logger, rep dom.Report, msg string) {
	log.Info().
		Int("slug_fixed", rep.Fixes.Slug).
		Int("category_fixed", rep.Fixes.Category).
		Int("source_nullified", rep.Fixes.SourceNullified).
		Int("masked_repaired", rep.Fixes.Masked).
		Int("trackpath_repaired", rep.Fixes.TrackPath).
		Int("raw_url_stripped", rep.Fixes.RawURLStripped).
		Int("archived_fixed", rep.Fixes.Archived).
		Int("changed_entries", rep.ChangedEntries).
		Int("total_before", rep.TotalBefore).
		Int("total_after", rep.TotalAfter).
		Int("active", rep.Active).
		Int("archived", rep.Archived).
		Int("excluded", rep.Excluded.Count()).
		Bool("wrote", rep.Wrote).
		Msg(msg)
}

// Outcome is the repaired item set of one map
type Outcome struct {
	Items    map[string]referral.Entry
	Fixes    dom.Fixes
	Changed  int // entries with at least one correction
	Excluded dom.Excluded
}

// RepairItems repairs every raw entry and resolves slug collisions deterministically:
// the entry whose raw key already is the slug wins, else the smallest raw key
func RepairItems(items map[string]json.RawMessage, cfg referral.Config) Outcome {
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	bySlug := make(map[string][]referral.Result, len(items))
	out := Outcome{Items: make(map[string]referral.Entry, len(items))}
	for _, k := range keys {
		res := referral.Repair(k, referral.DecodeRawEntry(items[k]), cfg)
		if res.Err != nil {
			out.Excluded.EmptySlug = append(out.Excluded.EmptySlug, k)
			continue
		}
		bySlug[res.Slug] = append(bySlug[res.Slug], res)
	}

	for _, group := range bySlug {
		win := 0
		for i, r := range group {
			if r.Key == r.Slug {
				win = i
				break
			}
		}
		w := group[win]
		out.Items[w.Slug] = w.Entry
		out.Fixes.Add(w.Changes)
		if w.Changed() {
			out.Changed++
		}
		for i, r := range group {
			if i != win {
				out.Excluded.Collision = append(out.Excluded.Collision, dom.Collision{Key: r.Key, Slug: r.Slug, Winner: w.Key})
			}
		}
	}
	sort.Slice(out.Excluded.Collision, func(i, j int) bool {
		return strings.Compare(out.Excluded.Collision[i].Key, out.Excluded.Collision[j].Key) < 0
	})
	return out
}
