package module

import (
	"time"

	"refguard/internal/core/referral"
	"refguard/internal/platform/config"
	"refguard/internal/platform/validate"
)

// Options holds REFCHECK_* settings
type Options struct {
	Endpoint    string        `env:"REFCHECK_ENDPOINT" validate:"required,abshttp"`
	Timeout     time.Duration `env:"REFCHECK_TIMEOUT" validate:"min=100ms"`
	Attempts    int           `env:"REFCHECK_ATTEMPTS" validate:"min=1,max=10"`
	RetryBase   time.Duration `env:"REFCHECK_RETRY_BASE"`
	Concurrency int           `env:"REFCHECK_CONCURRENCY" validate:"min=1,max=64"`
	Destination string        `env:"REFCHECK_DESTINATION" validate:"required,abshttp"`
	CasesPath   string        `env:"REFCHECK_CASES"`
	Forbidden   []string      `env:"REFCHECK_FORBIDDEN"`
}

// FromConfig reads REFCHECK_* settings; the endpoint defaults to the track route under SITE_ORIGIN
func FromConfig(cfg config.Conf, ref referral.Config) Options {
	rc := cfg.Prefix("REFCHECK_")
	return Options{
		Endpoint:    rc.MayString("ENDPOINT", ref.TrackBase()),
		Timeout:     rc.MayDuration("TIMEOUT", 8*time.Second),
		Attempts:    rc.MayInt("ATTEMPTS", 3),
		RetryBase:   rc.MayDuration("RETRY_BASE", 250*time.Millisecond),
		Concurrency: rc.MayInt("CONCURRENCY", 4),
		Destination: rc.MayString("DESTINATION", "https://example.com/"),
		CasesPath:   rc.MayString("CASES", ""),
		Forbidden:   rc.MayCSV("FORBIDDEN", nil),
	}
}

// Validate checks ranges and URLs with translated messages naming the env key
func (o Options) Validate() error { return validate.Struct(o) }
