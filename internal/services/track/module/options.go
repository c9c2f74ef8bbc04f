package module

import (
	"refguard/internal/core/referral"
	"refguard/internal/platform/config"
)

// Options holds TRACK_* settings
type Options struct {
	AllowedOrigins []string
	MapPath        string
}

// FromConfig reads TRACK_* settings. Origins default to SITE_ORIGIN; the map path
// follows REPAIR_MAP_PATH so the endpoint sees what the repair pass wrote
func FromConfig(cfg config.Conf, ref referral.Config) Options {
	tc := cfg.Prefix("TRACK_")
	return Options{
		AllowedOrigins: tc.MayCSV("ALLOWED_ORIGINS", []string{ref.SiteOrigin}),
		MapPath:        tc.MayString("MAP_PATH", cfg.Prefix("REPAIR_").MayString("MAP_PATH", "")),
	}
}
