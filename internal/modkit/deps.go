// Package modkit provides module wiring and core deps
package modkit

import (
	"refguard/internal/core/referral"
	"refguard/internal/platform/config"
	"refguard/internal/platform/logger"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	Ref referral.Config
}

// NewDeps reads SITE_ORIGIN and REF_PREFIX from cfg and validates them.
// A bad value is a configuration error, never a silent default
func NewDeps(cfg config.Conf) (Deps, error) {
	ref, err := referral.NewConfig(
		cfg.MayString("SITE_ORIGIN", referral.DefaultSiteOrigin),
		cfg.MayString("REF_PREFIX", referral.DefaultRefPrefix),
	)
	if err != nil {
		return Deps{}, err
	}
	return Deps{Log: *logger.Get(), Cfg: cfg, Ref: ref}, nil
}
