// Package service implements the redirect-chain validator: a black-box check of the
// live redirect endpoint that never reads or repairs the persisted map
package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"refguard/internal/core/canon"
	"refguard/internal/core/referral"
	perr "refguard/internal/platform/errors"
	"refguard/internal/platform/logger"
	dom "refguard/internal/services/linkcheck/domain"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Config for the validator
type Config struct {
	Ref         referral.Config
	Endpoint    string
	Concurrency int
	Patterns    *referral.Patterns // nil means referral.DefaultPatterns
}

// Service implements dom.CheckerPort
type Service struct {
	prober dom.Prober
	cfg    Config
	newID  func() string
	now    func() time.Time
}

// New constructs a validator
func New(p dom.Prober, cfg Config) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Patterns == nil {
		cfg.Patterns = referral.DefaultPatterns()
	}
	return &Service{prober: p, cfg: cfg, newID: uuid.NewString, now: time.Now}
}

// Check validates configuration and then runs every case with bounded fan-out.
// Every case runs to completion; the returned error summarizes all failures
func (s *Service) Check(ctx context.Context, cases []dom.Case) (dom.Summary, error) {
	runID := s.newID()
	ctx = logger.WithRun(ctx, runID)
	log := logger.C(ctx).With().Str("endpoint", s.cfg.Endpoint).Logger()

	sum := dom.Summary{RunID: runID, Endpoint: s.cfg.Endpoint}
	if err := s.validateConfig(); err != nil {
		log.Error().Err(err).Str("invariant", string(dom.InvConfig)).Msg("configuration invalid")
		return sum, err
	}
	if len(cases) == 0 {
		return sum, perr.InvalidArgf("no probe cases")
	}

	sum.Results = make([]dom.Result, len(cases))
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, c := range cases {
		g.Go(func() error {
			sum.Results[i] = s.checkCase(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	var first *dom.Failure
	for _, r := range sum.Results {
		evt := log.Info()
		if !r.OK() {
			sum.Failed++
			if first == nil {
				first = r.Failure
			}
			evt = log.Error().Str("invariant", string(r.Failure.Invariant)).Str("detail", r.Failure.Detail)
		}
		evt.Str("case", r.Case.Label()).
			Int("status", r.Status).
			Str("location", r.Location).
			Int("destination_status", r.DestStatus).
			Dur("elapsed", r.Elapsed).
			Bool("ok", r.OK()).
			Msg("probe case")
	}
	if sum.Failed > 0 {
		return sum, perr.Invariantf("%d of %d probe case(s) failed; first: %s", sum.Failed, len(cases), first)
	}
	log.Info().Int("cases", len(cases)).Msg("redirect chain ok")
	return sum, nil
}

func (s *Service) validateConfig() error {
	if err := s.cfg.Ref.Validate(); err != nil {
		return err
	}
	if !referral.ValidSourceURL(s.cfg.Endpoint) {
		return perr.WithField(perr.Validationf("endpoint %q is not an absolute http(s) URL", s.cfg.Endpoint), "REFCHECK_ENDPOINT")
	}
	if p, hit := s.cfg.Patterns.Match(s.cfg.Ref.RefPrefix); hit {
		return perr.WithField(perr.Validationf("REF_PREFIX matches forbidden pattern %s", p), "REF_PREFIX")
	}
	return nil
}

// RequestURL builds the endpoint call for a case along with the masked value the
// endpoint must echo back in Location
func (s *Service) RequestURL(c dom.Case) (reqURL, expected string) {
	slug := canon.Slug(c.Slug)
	cat, _ := canon.Category(c.Category)
	expected = s.cfg.Ref.Masked(c.Destination)

	sep := "?"
	if strings.Contains(s.cfg.Endpoint, "?") {
		sep = "&"
	}
	reqURL = s.cfg.Endpoint + sep +
		"deal=" + referral.EncodeComponent(slug) +
		"&cat=" + referral.EncodeComponent(cat) +
		"&redirect=" + referral.EncodeComponent(expected)
	return reqURL, expected
}

func (s *Service) checkCase(ctx context.Context, c dom.Case) (res dom.Result) {
	start := s.now()
	defer func() { res.Elapsed = s.now().Sub(start) }()

	res.Case = c
	fail := func(inv dom.Invariant, format string, a ...any) dom.Result {
		res.Failure = &dom.Failure{Invariant: inv, Detail: fmt.Sprintf(format, a...)}
		return res
	}

	reqURL, expected := s.RequestURL(c)
	res.Request = reqURL

	hop, err := s.prober.Redirect(ctx, reqURL)
	if err != nil {
		return fail(dom.InvEndpoint, "request failed: %v", err)
	}
	res.Status = hop.Status
	res.Location = hop.Location

	if hop.Status < 300 || hop.Status > 399 {
		return fail(dom.InvRedirect, "missing redirect: expected a 3xx response, got %d", hop.Status)
	}
	if hop.Location == "" {
		return fail(dom.InvLocation, "redirect %d carries no Location header", hop.Status)
	}
	if !strings.HasPrefix(hop.Location, s.cfg.Ref.RefPrefix) {
		return fail(dom.InvPrefix, "prefix mismatch: Location %q does not start with %q", hop.Location, s.cfg.Ref.RefPrefix)
	}
	if hop.Location != expected {
		return fail(dom.InvMaskedExact, "Location %q differs from the expected masked value %q", hop.Location, expected)
	}

	dest, ok := s.cfg.Ref.Unmask(hop.Location)
	res.Destination = dest
	if !ok || !absolute(dest) {
		return fail(dom.InvDestination, "Location does not decode to an absolute URL (got %q)", dest)
	}
	if dest != c.Destination {
		return fail(dom.InvDestination, "decoded destination %q differs from requested %q", dest, c.Destination)
	}

	final, err := s.prober.Reachable(ctx, dest)
	res.DestStatus = final.Status
	if err != nil {
		return fail(dom.InvReachable, "destination %s unreachable: %v", dest, err)
	}
	if final.Status >= 400 {
		return fail(dom.InvReachable, "destination %s answered %d to %s", dest, final.Status, final.Method)
	}

	for _, seen := range []string{hop.Location, dest, final.Location} {
		if seen == "" {
			continue
		}
		if p, hit := s.cfg.Patterns.Match(seen); hit {
			return fail(dom.InvForbidden, "%q matches forbidden raw-affiliate pattern %s", seen, p)
		}
	}
	return res
}

func absolute(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.IsAbs() && u.Host != ""
}
