package repo

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	perr "refguard/internal/platform/errors"
	"refguard/internal/platform/logger"
	dom "refguard/internal/services/repair/domain"
)

const stampLayout = "20060102T150405.000Z"

// Snapshots keeps the newest Keep pre-repair maps in Dir. A zero Dir disables it
type Snapshots struct {
	Dir  string
	Keep int
}

// NewSnapshots returns a snapshot history rooted at dir
func NewSnapshots(dir string, keep int) Snapshots {
	if keep <= 0 {
		keep = 1
	}
	return Snapshots{Dir: dir, Keep: keep}
}

// Enabled reports whether snapshots are written at all
func (s Snapshots) Enabled() bool { return s.Dir != "" }

// Snapshot writes doc.Raw as <dir>/<stem>-<stamp><ext> and prunes older ones beyond Keep
func (s Snapshots) Snapshot(ctx context.Context, doc dom.Document, at time.Time) (string, int, error) {
	if !s.Enabled() {
		return "", 0, nil
	}
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	stem, ext := splitName(doc.Path)
	path := filepath.Join(s.Dir, stem+"-"+at.UTC().Format(stampLayout)+ext)
	if err := WriteAtomic(path, doc.Raw); err != nil {
		return "", 0, perr.Wrapf(err, perr.ErrorCodeIO, "write snapshot %s", path)
	}
	pruned, err := s.prune(stem, ext)
	if err != nil {
		// the snapshot itself landed; a failed prune only grows the history
		logger.C(ctx).Warn().Err(err).Str("dir", s.Dir).Msg("snapshot prune failed")
	}
	return path, pruned, nil
}

// List returns snapshot paths for the map at mapPath, oldest first
func (s Snapshots) List(mapPath string) ([]string, error) {
	stem, ext := splitName(mapPath)
	names, err := s.names(stem, ext)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = filepath.Join(s.Dir, n)
	}
	return out, nil
}

func (s Snapshots) prune(stem, ext string) (int, error) {
	names, err := s.names(stem, ext)
	if err != nil {
		return 0, err
	}
	n := 0
	for len(names)-n > s.Keep {
		if err := os.Remove(filepath.Join(s.Dir, names[n])); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// names lists stamped snapshot file names, oldest first
func (s Snapshots) names(stem, ext string) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		stamp, ok := strings.CutPrefix(name, stem+"-")
		if !ok || !strings.HasSuffix(stamp, ext) {
			continue
		}
		// skips -prev and anything else that is not ours
		if _, err := time.Parse(stampLayout, strings.TrimSuffix(stamp, ext)); err != nil {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func splitName(path string) (stem, ext string) {
	base := filepath.Base(path)
	ext = filepath.Ext(base)
	if ext == "" {
		ext = ".json"
	}
	return strings.TrimSuffix(base, filepath.Ext(base)), ext
}
