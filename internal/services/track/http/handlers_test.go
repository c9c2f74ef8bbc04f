package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"refguard/internal/core/referral"
	perr "refguard/internal/platform/errors"
	phttp "refguard/internal/platform/net/http"
)

const (
	testOrigin = "https://deals.example.com"
	testPrefix = "https://ref.example.net/go?u="
)

type fakeDeals map[string]referral.Entry

func (f fakeDeals) Lookup(_ context.Context, slug string) (referral.Entry, bool, error) {
	e, ok := f[slug]
	return e, ok, nil
}

type brokenDeals struct{}

func (brokenDeals) Lookup(context.Context, string) (referral.Entry, bool, error) {
	return referral.Entry{}, false, perr.New(perr.ErrorCodeIO, "disk gone")
}

func newHandlers(t *testing.T, deals fakeDeals) *Handlers {
	t.Helper()
	ref, err := referral.NewConfig(testOrigin, testPrefix)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	h := &Handlers{Ref: ref}
	if deals != nil {
		h.Deals = deals
	}
	return h
}

func trackURL(deal, cat, redirect string) string {
	q := url.Values{}
	q.Set("deal", deal)
	q.Set("cat", cat)
	q.Set("redirect", redirect)
	return "/track?" + q.Encode()
}

func serve(h *Handlers, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.Track(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestTrackRedirectsVerbatim(t *testing.T) {
	h := newHandlers(t, nil)
	masked := testPrefix + referral.EncodeComponent("https://shop.example.com/x?q=a b")
	for _, method := range []string{stdhttp.MethodGet, stdhttp.MethodHead} {
		rec := serve(h, method, trackURL("Cote Deal", "ai", masked))
		if rec.Code != stdhttp.StatusFound {
			t.Fatalf("%s status = %d body %s", method, rec.Code, rec.Body.String())
		}
		if got := rec.Header().Get("Location"); got != masked {
			t.Fatalf("%s location = %q, want %q", method, got, masked)
		}
	}
}

func TestTrackRejects(t *testing.T) {
	h := newHandlers(t, nil)
	ok := testPrefix + referral.EncodeComponent("https://shop.example.com/x")
	cases := []struct {
		name   string
		target string
		field  string
	}{
		{"no deal", trackURL("!!", "ai", ok), "deal"},
		{"no redirect", "/track?deal=a", "redirect"},
		{"foreign prefix", trackURL("a", "ai", "https://shop.example.com/x"), "redirect"},
		{"not a url", trackURL("a", "ai", testPrefix+"hello"), "redirect"},
		{"raw url after prefix", trackURL("a", "ai", testPrefix+"https://shop.example.com/x"), "redirect"},
		{"affiliate", trackURL("a", "ai", testPrefix+referral.EncodeComponent("https://shop.example.com/x?aff_id=3")), "redirect"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(h, stdhttp.MethodGet, tc.target)
			if rec.Code != stdhttp.StatusBadRequest {
				t.Fatalf("status = %d", rec.Code)
			}
			if rec.Header().Get("Location") != "" {
				t.Fatal("rejected request carries a Location")
			}
			var env phttp.Envelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Field != tc.field || env.Code != perr.ErrorCodeValidation {
				t.Fatalf("env = %+v", env)
			}
		})
	}
}

func TestTrackArchivedDealIsGone(t *testing.T) {
	masked := testPrefix + referral.EncodeComponent("https://shop.example.com/x")
	h := newHandlers(t, fakeDeals{
		"old-deal":  {Slug: "old-deal", Category: "web", Archived: true},
		"live-deal": {Slug: "live-deal", Category: "web", SourceURL: "https://shop.example.com/x", Masked: masked},
	})

	if rec := serve(h, stdhttp.MethodGet, trackURL("Old Deal", "web", masked)); rec.Code != stdhttp.StatusGone {
		t.Fatalf("archived status = %d", rec.Code)
	}
	if rec := serve(h, stdhttp.MethodGet, trackURL("live-deal", "web", masked)); rec.Code != stdhttp.StatusFound {
		t.Fatalf("live status = %d", rec.Code)
	}
	if rec := serve(h, stdhttp.MethodGet, trackURL("unknown", "web", masked)); rec.Code != stdhttp.StatusFound {
		t.Fatalf("unknown deal status = %d", rec.Code)
	}
}

func TestTrackIndexFailure(t *testing.T) {
	h := newHandlers(t, nil)
	h.Deals = brokenDeals{}
	masked := testPrefix + referral.EncodeComponent("https://shop.example.com/x")
	if rec := serve(h, stdhttp.MethodGet, trackURL("a", "web", masked)); rec.Code != stdhttp.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}
