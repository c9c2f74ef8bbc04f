package modkit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"refguard/internal/core/referral"
	"refguard/internal/platform/config"
	perr "refguard/internal/platform/errors"
	phttp "refguard/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
)

func TestNewDepsDefaults(t *testing.T) {
	d, err := NewDeps(config.New().Prefix("MODKIT_TEST_UNSET_"))
	if err != nil {
		t.Fatalf("NewDeps: %v", err)
	}
	if d.Ref.SiteOrigin != referral.DefaultSiteOrigin || d.Ref.RefPrefix != referral.DefaultRefPrefix {
		t.Fatalf("ref = %+v", d.Ref)
	}
}

func TestNewDepsFromEnv(t *testing.T) {
	t.Setenv("SITE_ORIGIN", "https://deals.example.com/")
	t.Setenv("REF_PREFIX", "https://ref.example.net/go?u=")
	d, err := NewDeps(config.New())
	if err != nil {
		t.Fatalf("NewDeps: %v", err)
	}
	if d.Ref.SiteOrigin != "https://deals.example.com" {
		t.Fatalf("origin = %q", d.Ref.SiteOrigin)
	}
}

func TestNewDepsRejectsAffiliatePrefix(t *testing.T) {
	t.Setenv("REF_PREFIX", "https://shop.example.com/p?aff_id=1&u=")
	_, err := NewDeps(config.New())
	if err == nil {
		t.Fatal("expected an error for a raw affiliate prefix")
	}
	if perr.Exit(err) != perr.ExitConfig {
		t.Fatalf("exit = %d, want %d", perr.Exit(err), perr.ExitConfig)
	}
}

func TestBuildMountScopesMiddleware(t *testing.T) {
	var hits int
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits++
			next.ServeHTTP(w, r)
		})
	}
	m := chi.NewRouter()
	r := phttp.AdaptChi(m)
	r.Get("/outside", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	b := Build(WithPrefix("/api"), WithMiddlewares(mw))
	b.Mount(r, func(sub phttp.Router) {
		sub.Get("/track", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	})

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/track", nil))
	if rec.Code != http.StatusNoContent || hits != 1 {
		t.Fatalf("status=%d hits=%d", rec.Code, hits)
	}
	rec = httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/outside", nil))
	if rec.Code != http.StatusOK || hits != 1 {
		t.Fatalf("middleware leaked outside the module: status=%d hits=%d", rec.Code, hits)
	}
}
