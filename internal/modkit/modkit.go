package modkit

import (
	phttp "refguard/internal/platform/net/http"
)

// Module is what repair, linkcheck and track all satisfy
type Module interface {
	// MountRoutes registers HTTP routes; repair and linkcheck are CLI-only and register nothing
	MountRoutes(r phttp.Router)
	// Ports returns the module's port set (a Ports struct)
	Ports() any

	// Name returns the module name
	Name() string
}
