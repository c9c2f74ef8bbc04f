// Package module wires the map repair pass
package module

import (
	"refguard/internal/modkit"
	phttp "refguard/internal/platform/net/http"
	"refguard/internal/services/repair/domain"
	"refguard/internal/services/repair/repo"
	"refguard/internal/services/repair/service"
)

// Ports exposed by the repair module
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements modkit.Module for the repair pass
type Module struct {
	deps  modkit.Deps
	opts  Options
	ports Ports
}

// New constructs the repair module from deps.Cfg (REPAIR_*) and deps.Ref
func New(deps modkit.Deps) *Module {
	opts := FromConfig(deps.Cfg)

	var snaps domain.Snapshotter
	if opts.SnapshotDir != "" {
		snaps = repo.NewSnapshots(opts.SnapshotDir, opts.SnapshotKeep)
	}
	svc := service.New(repo.NewFiles(), snaps, deps.Ref)

	return &Module{deps: deps, opts: opts, ports: Ports{Runner: svc}}
}

// Options returns the resolved options; the CLI uses MapPath as its default
func (m *Module) Options() Options { return m.opts }

// Runner returns the pass
func (m *Module) Runner() domain.RunnerPort { return m.ports.Runner }

// Name satisfies modkit.Module
func (m *Module) Name() string { return "repair" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op; the pass has no routes
func (m *Module) MountRoutes(phttp.Router) {}
