package referral

import (
	"strings"

	perr "refguard/internal/platform/errors"
	"refguard/internal/platform/validate"
)

// Defaults used when the environment does not override them
const (
	DefaultSiteOrigin = "https://deals.tinmanapps.com"
	DefaultRefPrefix  = "https://referral.tinmanapps.com/go?u="

	// TrackRoute is the same-origin path of the redirect endpoint
	TrackRoute = "/api/track"
)

// Config carries the two values every derived link depends on. It is passed
// explicitly so repairs under different origins can run side by side
type Config struct {
	SiteOrigin string `env:"SITE_ORIGIN" validate:"required,abshttp"`
	RefPrefix  string `env:"REF_PREFIX" validate:"required,abshttp"`
}

// NewConfig normalizes and validates origin and prefix. Trailing slashes are
// stripped from the origin; the prefix is kept verbatim since it is concatenated
func NewConfig(siteOrigin, refPrefix string) (Config, error) {
	c := Config{
		SiteOrigin: strings.TrimRight(strings.TrimSpace(siteOrigin), "/"),
		RefPrefix:  strings.TrimSpace(refPrefix),
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks both URLs are absolute and the prefix is not itself a raw partner link
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return perr.WithOp(err, "referral.config")
	}
	if p, hit := DefaultPatterns().Match(c.RefPrefix); hit {
		return perr.WithField(perr.Validationf("REF_PREFIX matches forbidden pattern %s", p), "REF_PREFIX")
	}
	return nil
}

// TrackBase is the absolute track endpoint under SiteOrigin
func (c Config) TrackBase() string { return c.SiteOrigin + TrackRoute }
