// Package module wires the redirect-chain validator
package module

import (
	"context"

	"refguard/internal/adapters/probe"
	"refguard/internal/core/referral"
	"refguard/internal/modkit"
	phttp "refguard/internal/platform/net/http"
	"refguard/internal/platform/version"
	"refguard/internal/services/linkcheck/domain"
	"refguard/internal/services/linkcheck/service"
)

// Ports exposed by the linkcheck module
type Ports struct {
	Checker domain.CheckerPort
}

// Module implements modkit.Module for the validator
type Module struct {
	deps  modkit.Deps
	opts  Options
	ports Ports
}

// New validates options, compiles the forbidden patterns and wires the prober
func New(deps modkit.Deps, opts Options) (*Module, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	pats, err := referral.CompilePatterns(opts.Forbidden...)
	if err != nil {
		return nil, err
	}
	client := probe.NewClient(probe.Options{
		UserAgent: version.UserAgent("refguard-check"),
		Timeout:   opts.Timeout,
		Attempts:  opts.Attempts,
		RetryBase: opts.RetryBase,
	})
	svc := service.New(prober{c: client}, service.Config{
		Ref:         deps.Ref,
		Endpoint:    opts.Endpoint,
		Concurrency: opts.Concurrency,
		Patterns:    pats,
	})
	return &Module{deps: deps, opts: opts, ports: Ports{Checker: svc}}, nil
}

// Options returns the resolved options
func (m *Module) Options() Options { return m.opts }

// Checker returns the validator
func (m *Module) Checker() domain.CheckerPort { return m.ports.Checker }

// Cases loads the configured cases file, or builds the synthetic default case
func (m *Module) Cases() ([]domain.Case, error) {
	if m.opts.CasesPath != "" {
		return service.LoadCases(m.opts.CasesPath)
	}
	return []domain.Case{service.DefaultCase(m.opts.Destination)}, nil
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "linkcheck" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op; the validator is a client only
func (m *Module) MountRoutes(phttp.Router) {}

// prober adapts the probe client to domain.Prober
type prober struct{ c *probe.Client }

func (p prober) Redirect(ctx context.Context, url string) (domain.Hop, error) {
	r, err := p.c.Get(ctx, url)
	return domain.Hop{Method: r.Method, Status: r.Status, Location: r.Location}, err
}

func (p prober) Reachable(ctx context.Context, url string) (domain.Hop, error) {
	r, err := p.c.Head(ctx, url)
	return domain.Hop{Method: r.Method, Status: r.Status, Location: r.Location}, err
}
