// Package repo serves deal lookups from the persisted referral map
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"refguard/internal/core/referral"
	"refguard/internal/platform/logger"
	maprepo "refguard/internal/services/repair/repo"
)

// Index is a domain.DealIndex over the map file. It reloads when the file's
// modification time changes, so a repair pass is picked up without a restart.
// A missing file means no deal is known
type Index struct {
	path  string
	files maprepo.Files

	mu    sync.RWMutex
	mod   time.Time
	items map[string]referral.Entry
}

// NewIndex returns an index over path; "" disables lookups
func NewIndex(path string) *Index {
	return &Index{path: path, files: maprepo.NewFiles()}
}

// Lookup returns the entry stored under slug
func (i *Index) Lookup(ctx context.Context, slug string) (referral.Entry, bool, error) {
	if i.path == "" {
		return referral.Entry{}, false, nil
	}
	if err := i.refresh(ctx); err != nil {
		return referral.Entry{}, false, err
	}
	i.mu.RLock()
	e, ok := i.items[slug]
	i.mu.RUnlock()
	return e, ok, nil
}

// Len returns the number of loaded deals
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.items)
}

func (i *Index) refresh(ctx context.Context) error {
	fi, err := os.Stat(i.path)
	if errors.Is(err, fs.ErrNotExist) {
		i.mu.Lock()
		i.items, i.mod = nil, time.Time{}
		i.mu.Unlock()
		return nil
	}
	if err != nil {
		return err
	}

	i.mu.RLock()
	fresh := fi.ModTime().Equal(i.mod) && i.items != nil
	i.mu.RUnlock()
	if fresh {
		return nil
	}

	doc, err := i.files.Load(ctx, i.path)
	if err != nil {
		return err
	}
	items := make(map[string]referral.Entry, len(doc.Items))
	for k, raw := range doc.Items {
		var e referral.Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			// unrepaired garbage; the repair pass owns fixing it
			continue
		}
		items[k] = e
	}

	i.mu.Lock()
	i.items, i.mod = items, fi.ModTime()
	i.mu.Unlock()
	logger.C(ctx).Debug().Str("path", i.path).Int("deals", len(items)).Msg("deal index loaded")
	return nil
}
