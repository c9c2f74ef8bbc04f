// Package repo persists referral maps as JSON files
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"refguard/internal/core/referral"
	perr "refguard/internal/platform/errors"
	dom "refguard/internal/services/repair/domain"
)

// Files is a dom.Store over the local filesystem
type Files struct{}

// NewFiles returns a file store
func NewFiles() Files { return Files{} }

// PrevPath returns the rollback snapshot path for a map path: data/x.json -> data/x-prev.json
func PrevPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-prev" + ext
}

// Load reads and decodes the map at path. Entries stay raw so the repairer sees every defect
func (Files) Load(ctx context.Context, path string) (dom.Document, error) {
	if err := ctx.Err(); err != nil {
		return dom.Document{}, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return dom.Document{}, perr.Wrapf(err, perr.ErrorCodeNotFound, "referral map %s not found", path)
		}
		return dom.Document{}, perr.Wrapf(err, perr.ErrorCodeIO, "read referral map %s", path)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(b, &top); err != nil {
		return dom.Document{}, perr.Wrapf(err, perr.ErrorCodeJSON, "decode referral map %s", path)
	}
	rawItems, ok := top["items"]
	if !ok {
		return dom.Document{}, perr.Newf(perr.ErrorCodeJSON, "referral map %s has no items object", path)
	}
	var items map[string]json.RawMessage
	if err := json.Unmarshal(rawItems, &items); err != nil {
		return dom.Document{}, perr.Wrapf(err, perr.ErrorCodeJSON, "decode items of %s", path)
	}
	if items == nil {
		return dom.Document{}, perr.Newf(perr.ErrorCodeJSON, "referral map %s has null items", path)
	}

	doc := dom.Document{Path: path, Raw: b, Items: items}
	var total int
	if v, ok := top["total"]; ok && json.Unmarshal(v, &total) == nil {
		doc.Total = &total
	}
	if v, ok := top["categories"]; ok {
		var cats []string
		if json.Unmarshal(v, &cats) == nil {
			doc.Categories = cats
		}
	}
	return doc, nil
}

// SavePrev writes the loaded bytes verbatim next to the map under the -prev name
func (Files) SavePrev(ctx context.Context, doc dom.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	prev := PrevPath(doc.Path)
	if err := WriteAtomic(prev, doc.Raw); err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeIO, "write rollback snapshot %s", prev)
	}
	return prev, nil
}

// Save encodes m and replaces the file at path atomically
func (Files) Save(ctx context.Context, path string, m referral.Map) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := Encode(m)
	if err != nil {
		return err
	}
	if err := WriteAtomic(path, b); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeIO, "write referral map %s", path)
	}
	return nil
}

// Encode renders m the way it is stored: two-space indent, trailing newline
func Encode(m referral.Map) ([]byte, error) {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeJSON, "encode referral map")
	}
	return append(b, '\n'), nil
}

// WriteAtomic writes data to a temp file in the target directory, syncs it and renames it
// over path. Readers see either the old or the new content, never a torn file
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.part")
	if err != nil {
		return err
	}
	tmp := f.Name()
	fail := func(err error) error {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if _, err := f.Write(data); err != nil {
		return fail(err)
	}
	if err := f.Sync(); err != nil {
		return fail(err)
	}
	if err := f.Chmod(0o644); err != nil {
		return fail(err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
