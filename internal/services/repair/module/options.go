package module

import "refguard/internal/platform/config"

// Options holds configuration settings for the repair module
type Options struct {
	MapPath      string
	SnapshotDir  string
	SnapshotKeep int
}

// FromConfig reads REPAIR_* settings
func FromConfig(cfg config.Conf) Options {
	rc := cfg.Prefix("REPAIR_")
	return Options{
		MapPath:      rc.MayString("MAP_PATH", "data/referrals.json"),
		SnapshotDir:  rc.MayString("SNAPSHOT_DIR", ""),
		SnapshotKeep: rc.MayInt("SNAPSHOT_KEEP", 5),
	}
}
