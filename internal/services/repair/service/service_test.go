package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"refguard/internal/core/referral"
	perr "refguard/internal/platform/errors"
	"refguard/internal/platform/testkit"
	dom "refguard/internal/services/repair/domain"
	"refguard/internal/services/repair/repo"
)

const (
	testOrigin = "https://deals.example.com"
	testPrefix = "https://ref.example.net/go?u="
)

const messyMap = `{
  "items": {
    "  Côté Deal!!  ": {"slug": "whatever", "category": "SAAS", "sourceUrl": "https://product.example.com/x", "title": "Cote"},
    "broken": {"slug": "broken", "category": "ai", "sourceUrl": "not-a-url",
      "masked": "https://ref.example.net/go?u=zzz", "trackPath": "https://evil.example.org/x", "archived": false},
    "Gone Deal": {"slug": "gone-deal", "category": "web", "sourceUrl": "", "archived": "yes"}
  },
  "total": 1,
  "categories": ["software"]
}
`

func testConfig(t *testing.T) referral.Config {
	t.Helper()
	cfg, err := referral.NewConfig(testOrigin, testPrefix)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	return cfg
}

func newPass(t *testing.T, snaps dom.Snapshotter) *Service {
	t.Helper()
	s := New(repo.NewFiles(), snaps, testConfig(t))
	base := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s
}

func loadMap(t *testing.T, path string) referral.Map {
	t.Helper()
	var m referral.Map
	if err := json.Unmarshal([]byte(testkit.ReadFile(t, path)), &m); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return m
}

func TestRunRepairsAndWrites(t *testing.T) {
	path := testkit.WriteFile(t, "referrals.json", messyMap)
	s := newPass(t, nil)

	rep, err := s.Run(context.Background(), path, dom.Mode{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !rep.Wrote || rep.DryRun {
		t.Fatalf("wrote=%v dryRun=%v", rep.Wrote, rep.DryRun)
	}
	if rep.RunID == "" {
		t.Fatal("missing run id")
	}

	// rollback snapshot holds the exact pre-repair bytes
	if rep.PrevPath != filepath.Join(filepath.Dir(path), "referrals-prev.json") {
		t.Fatalf("prev path = %q", rep.PrevPath)
	}
	if got := testkit.ReadFile(t, rep.PrevPath); got != messyMap {
		t.Fatal("-prev snapshot differs from loaded bytes")
	}

	m := loadMap(t, path)
	if m.Total != 3 || len(m.Items) != 3 {
		t.Fatalf("total=%d items=%d", m.Total, len(m.Items))
	}
	want := []string{"ai", "software", "web"}
	if strings.Join(m.Categories, ",") != strings.Join(want, ",") {
		t.Fatalf("categories = %v", m.Categories)
	}

	cd, ok := m.Items["cote-deal"]
	if !ok {
		t.Fatalf("cote-deal missing: %v", m.Items)
	}
	if cd.Category != "software" || cd.Archived {
		t.Fatalf("cote-deal = %+v", cd)
	}
	if cd.Masked != testPrefix+"https%3A%2F%2Fproduct.example.com%2Fx" {
		t.Fatalf("masked = %q", cd.Masked)
	}
	testkit.MustContain(t, cd.TrackPath, "deal=cote-deal&cat=software&redirect=")
	if string(cd.Extra["title"]) != `"Cote"` {
		t.Fatalf("title not preserved: %v", cd.Extra)
	}

	br := m.Items["broken"]
	if br.SourceURL != "" || br.Masked != "" || br.TrackPath != "" || !br.Archived {
		t.Fatalf("broken = %+v", br)
	}
	gd := m.Items["gone-deal"]
	if !gd.Archived || gd.Masked != "" {
		t.Fatalf("gone-deal = %+v", gd)
	}

	f := rep.Fixes
	if f.Slug != 2 || f.Category != 1 || f.SourceNullified != 1 || f.RawURLStripped != 1 {
		t.Fatalf("fixes = %+v", f)
	}
	if f.Archived != 3 {
		t.Fatalf("archived fixes = %d, want 3", f.Archived)
	}
	if rep.ChangedEntries != 3 || rep.TotalBefore != 3 || rep.TotalAfter != 3 {
		t.Fatalf("report = %+v", rep)
	}
	if rep.Active != 1 || rep.Archived != 2 {
		t.Fatalf("active=%d archived=%d", rep.Active, rep.Archived)
	}
	if !rep.AggregatesDrift {
		t.Fatal("stale total should count as drift")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	path := testkit.WriteFile(t, "referrals.json", messyMap)
	s := newPass(t, nil)
	ctx := context.Background()

	if _, err := s.Run(ctx, path, dom.Mode{}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := loadMap(t, path)

	rep, err := s.Run(ctx, path, dom.Mode{Check: true})
	if err != nil {
		t.Fatalf("check after repair: %v (report %+v)", err, rep)
	}
	if rep.Changed() {
		t.Fatalf("second pass changed something: %+v", rep)
	}

	if _, err := s.Run(ctx, path, dom.Mode{}); err != nil {
		t.Fatalf("second write: %v", err)
	}
	second := loadMap(t, path)
	a, _ := json.Marshal(first.Items)
	b, _ := json.Marshal(second.Items)
	if string(a) != string(b) {
		t.Fatalf("items differ between passes\n%s\n%s", a, b)
	}
}

func TestRunDryRunAndCheckDoNotWrite(t *testing.T) {
	for _, mode := range []dom.Mode{{DryRun: true}, {Check: true}} {
		path := testkit.WriteFile(t, "referrals.json", messyMap)
		s := newPass(t, nil)

		rep, err := s.Run(context.Background(), path, mode)
		if mode.Check {
			if !errors.Is(err, ErrDrift) || !perr.IsCode(err, perr.ErrorCodeInvariant) {
				t.Fatalf("check mode err = %v, want ErrDrift", err)
			}
		} else if err != nil {
			t.Fatalf("dry run: %v", err)
		}
		if rep.Wrote || !rep.DryRun {
			t.Fatalf("mode %+v wrote=%v dryRun=%v", mode, rep.Wrote, rep.DryRun)
		}
		if rep.Fixes.Slug != 2 {
			t.Fatalf("mode %+v should still report fixes: %+v", mode, rep.Fixes)
		}
		if got := testkit.ReadFile(t, path); got != messyMap {
			t.Fatalf("mode %+v modified the map", mode)
		}
		if _, err := os.Stat(repo.PrevPath(path)); !os.IsNotExist(err) {
			t.Fatalf("mode %+v wrote a -prev snapshot", mode)
		}
	}
}

func TestRunFatalLoadWritesNothing(t *testing.T) {
	cases := []struct {
		name string
		body string
		code perr.ErrorCode
	}{
		{"not json", "{items: nope", perr.ErrorCodeJSON},
		{"no items", `{"total": 0}`, perr.ErrorCodeJSON},
		{"items not an object", `{"items": [1, 2]}`, perr.ErrorCodeJSON},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := testkit.WriteFile(t, "referrals.json", tc.body)
			_, err := newPass(t, nil).Run(context.Background(), path, dom.Mode{})
			if !perr.IsCode(err, tc.code) {
				t.Fatalf("code = %v, want %v (err %v)", perr.CodeOf(err), tc.code, err)
			}
			if testkit.ReadFile(t, path) != tc.body {
				t.Fatal("map modified after failed load")
			}
			entries, _ := os.ReadDir(filepath.Dir(path))
			if len(entries) != 1 {
				t.Fatalf("unexpected files after failed load: %d", len(entries))
			}
		})
	}

	t.Run("missing", func(t *testing.T) {
		dir := t.TempDir()
		_, err := newPass(t, nil).Run(context.Background(), filepath.Join(dir, "nope.json"), dom.Mode{})
		if !perr.IsCode(err, perr.ErrorCodeNotFound) {
			t.Fatalf("code = %v, want NotFound", perr.CodeOf(err))
		}
		if perr.Exit(err) != perr.ExitIO {
			t.Fatalf("exit = %d, want %d", perr.Exit(err), perr.ExitIO)
		}
		entries, _ := os.ReadDir(dir)
		if len(entries) != 0 {
			t.Fatalf("files written for a missing map: %d", len(entries))
		}
	})
}

func TestRunSnapshotsArePruned(t *testing.T) {
	path := testkit.WriteFile(t, "referrals.json", messyMap)
	snapDir := filepath.Join(t.TempDir(), "history")
	snaps := repo.NewSnapshots(snapDir, 2)
	s := newPass(t, snaps)

	var last dom.Report
	for i := 0; i < 3; i++ {
		rep, err := s.Run(context.Background(), path, dom.Mode{})
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		last = rep
	}
	if last.Snapshot == "" || last.Pruned != 1 {
		t.Fatalf("snapshot=%q pruned=%d", last.Snapshot, last.Pruned)
	}
	got, err := snaps.List(path)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[1] != last.Snapshot {
		t.Fatalf("snapshots = %v", got)
	}
}

func TestRepairItemsCollisions(t *testing.T) {
	entry := func(src string) json.RawMessage {
		return json.RawMessage(`{"category":"web","sourceUrl":"` + src + `"}`)
	}
	items := map[string]json.RawMessage{
		"Cote Deal": entry("https://a.example.com/"),
		"cote-deal": entry("https://b.example.com/"),
		"COTE  DEAL": entry("https://c.example.com/"),
		"Beta Deal":  entry("https://d.example.com/"),
		"beta deal":  entry("https://e.example.com/"),
		"!!!":        entry("https://f.example.com/"),
	}
	out := RepairItems(items, testConfig(t))

	if len(out.Items) != 2 {
		t.Fatalf("items = %v", out.Items)
	}
	if out.Items["cote-deal"].SourceURL != "https://b.example.com/" {
		t.Fatalf("exact key should win: %+v", out.Items["cote-deal"])
	}
	if out.Items["beta-deal"].SourceURL != "https://d.example.com/" {
		t.Fatalf("smallest raw key should win: %+v", out.Items["beta-deal"])
	}
	if len(out.Excluded.EmptySlug) != 1 || out.Excluded.EmptySlug[0] != "!!!" {
		t.Fatalf("empty slug = %v", out.Excluded.EmptySlug)
	}
	want := []dom.Collision{
		{Key: "COTE  DEAL", Slug: "cote-deal", Winner: "cote-deal"},
		{Key: "Cote Deal", Slug: "cote-deal", Winner: "cote-deal"},
		{Key: "beta deal", Slug: "beta-deal", Winner: "Beta Deal"},
	}
	if len(out.Excluded.Collision) != len(want) {
		t.Fatalf("collisions = %+v", out.Excluded.Collision)
	}
	for i := range want {
		if out.Excluded.Collision[i] != want[i] {
			t.Fatalf("collision[%d] = %+v, want %+v", i, out.Excluded.Collision[i], want[i])
		}
	}
}
