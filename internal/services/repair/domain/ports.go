package domain

import (
	"context"
	"time"

	"refguard/internal/core/referral"
)

// Store loads and persists referral maps
type Store interface {
	Load(ctx context.Context, path string) (Document, error)
	// SavePrev writes the pre-repair bytes under the rollback name and returns that path
	SavePrev(ctx context.Context, doc Document) (string, error)
	Save(ctx context.Context, path string, m referral.Map) error
}

// Snapshotter keeps a bounded history of pre-repair maps
type Snapshotter interface {
	Snapshot(ctx context.Context, doc Document, at time.Time) (path string, pruned int, err error)
}

// RunnerPort runs one repair pass
type RunnerPort interface {
	Run(ctx context.Context, path string, mode Mode) (Report, error)
}
