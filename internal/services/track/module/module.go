// Package module wires the reference redirect endpoint
package module

import (
	"refguard/internal/core/referral"
	"refguard/internal/modkit"
	phttp "refguard/internal/platform/net/http"
	"refguard/internal/platform/net/middleware"
	"refguard/internal/services/track/domain"
	thttp "refguard/internal/services/track/http"
	"refguard/internal/services/track/repo"
)

// Ports exposed by the track module
type Ports struct {
	Deals domain.DealIndex
}

// Module implements modkit.Module for the track endpoint
type Module struct {
	deps  modkit.Deps
	opts  Options
	h     *thttp.Handlers
	build modkit.Built
	ports Ports
}

// New constructs the module. Routes mount under /api with CORS for the allowed origins
func New(deps modkit.Deps, opts Options, extra ...modkit.Option) *Module {
	var deals domain.DealIndex
	if opts.MapPath != "" {
		deals = repo.NewIndex(opts.MapPath)
	}
	h := &thttp.Handlers{Ref: deps.Ref, Patterns: referral.DefaultPatterns(), Deals: deals}

	bopts := append([]modkit.Option{
		modkit.WithPrefix("/api"),
		modkit.WithMiddlewares(middleware.CORS(middleware.CORSOptions{
			AllowedOrigins: opts.AllowedOrigins,
			MaxAge:         300,
		})),
	}, extra...)

	return &Module{
		deps:  deps,
		opts:  opts,
		h:     h,
		build: modkit.Build(bopts...),
		ports: Ports{Deals: deals},
	}
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "track" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

// MountRoutes satisfies modkit.Module
func (m *Module) MountRoutes(r phttp.Router) {
	m.build.Mount(r, func(sub phttp.Router) { thttp.Register(sub, m.h) })
}
