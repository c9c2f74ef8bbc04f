package modkit

import (
	"net/http"

	phttp "refguard/internal/platform/net/http"
	pstrings "refguard/internal/platform/strings"
)

// Option mutates build configuration for a module
type Option func(*buildCfg)

// buildCfg is internal wiring state for options
type buildCfg struct {
	prefix string
	mw     []func(http.Handler) http.Handler
}

// WithPrefix mounts a module under a path prefix; panics on a malformed prefix
func WithPrefix(prefix string) Option {
	p := pstrings.MustPrefix(prefix)
	return func(c *buildCfg) { c.prefix = p }
}

// WithMiddlewares attaches per module middleware in order
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(c *buildCfg) { c.mw = append(c.mw, mw...) }
}

// Built is a plain struct with the fields modules care about
type Built struct {
	Prefix string
	Mw     []func(http.Handler) http.Handler
}

// Build applies Option funcs and returns a plain struct
func Build(opts ...Option) Built {
	var c buildCfg
	for _, o := range opts {
		o(&c)
	}
	return Built{
		Prefix: c.prefix,
		Mw:     append([]func(http.Handler) http.Handler(nil), c.mw...),
	}
}

// Mount attaches register under b's prefix with b's middleware scoped to it
func (b Built) Mount(r phttp.Router, register func(phttp.Router)) {
	scoped := func(sub phttp.Router) {
		sub.Group(func(g phttp.Router) {
			g.Use(b.Mw...)
			register(g)
		})
	}
	if b.Prefix == "" {
		scoped(r)
		return
	}
	r.Route(b.Prefix, scoped)
}
