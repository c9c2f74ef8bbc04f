// Package http serves the reference redirect endpoint
package http

import (
	stdhttp "net/http"
	"strings"

	"refguard/internal/core/canon"
	"refguard/internal/core/referral"
	perr "refguard/internal/platform/errors"
	"refguard/internal/platform/logger"
	phttp "refguard/internal/platform/net/http"
	"refguard/internal/services/track/domain"
)

// Handlers holds the endpoint's dependencies
type Handlers struct {
	Ref      referral.Config
	Patterns *referral.Patterns
	Deals    domain.DealIndex // optional
}

// Register mounts the track route relative to r
func Register(r phttp.Router, h *Handlers) {
	r.Get("/track", h.Track)
	r.Head("/track", h.Track)
	// answered by the CORS middleware for preflights
	r.Options("/track", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) { w.WriteHeader(stdhttp.StatusNoContent) })
}

// Track validates deal, cat and redirect and answers 302 with Location set to
// redirect verbatim. Archived deals get 410
func (h *Handlers) Track(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	p, err := h.Parse(r)
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}
	log := logger.C(r.Context())

	if h.Deals != nil {
		e, found, err := h.Deals.Lookup(r.Context(), p.Deal)
		if err != nil {
			log.Error().Err(err).Msg("deal index unavailable")
			phttp.RespondError(w, r, perr.Wrap(err, perr.ErrorCodeUnavailable, "deal index unavailable"))
			return
		}
		if found && !e.Active() {
			phttp.RespondError(w, r, perr.WithField(perr.Gonef("deal %s is archived", p.Deal), "deal"))
			return
		}
		if found && e.Masked != p.Redirect {
			log.Warn().Str("deal", p.Deal).Msg("redirect differs from the stored masked link")
		}
	}

	log.Info().Str("deal", p.Deal).Str("cat", p.Category).Str("dest", p.Dest).Msg("track")
	phttp.Redirect(w, stdhttp.StatusFound, p.Redirect)
}

// Parse reads and checks the query. Every failure is a validation error naming the parameter
func (h *Handlers) Parse(r *stdhttp.Request) (domain.Params, error) {
	q := r.URL.Query()
	bad := func(field, format string, a ...any) (domain.Params, error) {
		return domain.Params{}, perr.WithField(perr.Validationf(format, a...), field)
	}

	deal := canon.Slug(q.Get("deal"))
	if deal == "" {
		return bad("deal", "deal is required")
	}
	cat, _ := canon.Category(q.Get("cat"))

	redirect := q.Get("redirect")
	if redirect == "" {
		return bad("redirect", "redirect is required")
	}
	if !strings.HasPrefix(redirect, h.Ref.RefPrefix) {
		return bad("redirect", "redirect must start with the referral prefix")
	}
	dest, ok := h.Ref.Unmask(redirect)
	if !ok || !referral.ValidSourceURL(dest) {
		return bad("redirect", "redirect does not decode to an absolute http(s) URL")
	}
	if h.Ref.MaskedLeaks(redirect) {
		return bad("redirect", "redirect carries an unencoded URL")
	}
	if pat, hit := h.patterns().Match(redirect); hit {
		return bad("redirect", "redirect matches forbidden pattern %s", pat)
	}
	return domain.Params{Deal: deal, Category: cat, Redirect: redirect, Dest: dest}, nil
}

func (h *Handlers) patterns() *referral.Patterns {
	if h.Patterns == nil {
		return referral.DefaultPatterns()
	}
	return h.Patterns
}
