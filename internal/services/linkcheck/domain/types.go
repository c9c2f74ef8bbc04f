// Package domain defines the types and ports of the redirect-chain validator
package domain

import (
	"context"
	"fmt"
	"time"
)

// Case is one synthetic deal sent through the redirect endpoint
type Case struct {
	Name        string `yaml:"name"`
	Slug        string `yaml:"slug" validate:"required"`
	Category    string `yaml:"category"`
	Destination string `yaml:"destination" validate:"required,abshttp"`
}

// Label names the case in diagnostics
func (c Case) Label() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Slug
}

// Invariant names one property of the live redirect chain
type Invariant string

// Invariants, in the order they are asserted
const (
	InvConfig      Invariant = "config_valid"
	InvEndpoint    Invariant = "endpoint_reachable"
	InvRedirect    Invariant = "redirect_status"
	InvLocation    Invariant = "location_present"
	InvPrefix      Invariant = "prefix_match"
	InvMaskedExact Invariant = "location_matches_masked"
	InvDestination Invariant = "destination_decodes"
	InvReachable   Invariant = "destination_reachable"
	InvForbidden   Invariant = "no_raw_affiliate"
)

// Failure is a violated invariant and what was observed
type Failure struct {
	Invariant Invariant `json:"invariant"`
	Detail    string    `json:"detail"`
}

func (f Failure) Error() string { return fmt.Sprintf("%s: %s", f.Invariant, f.Detail) }

// Result is the outcome of one case. Failure is nil when every invariant held
type Result struct {
	Case        Case          `json:"case"`
	Request     string        `json:"request"`
	Status      int           `json:"status"`
	Location    string        `json:"location,omitempty"`
	Destination string        `json:"destination,omitempty"`
	DestStatus  int           `json:"destination_status,omitempty"`
	Elapsed     time.Duration `json:"elapsed"`
	Failure     *Failure      `json:"failure,omitempty"`
}

// OK reports whether the case passed
func (r Result) OK() bool { return r.Failure == nil }

// Summary collects every case of one run
type Summary struct {
	RunID    string   `json:"run_id"`
	Endpoint string   `json:"endpoint"`
	Results  []Result `json:"results"`
	Failed   int      `json:"failed"`
}

// Hop is one HTTP exchange as seen by a Prober
type Hop struct {
	Method   string
	Status   int
	Location string
}

// Prober talks to the network. Redirect must not follow redirects
type Prober interface {
	Redirect(ctx context.Context, url string) (Hop, error)
	Reachable(ctx context.Context, url string) (Hop, error)
}

// CheckerPort runs the validator
type CheckerPort interface {
	Check(ctx context.Context, cases []Case) (Summary, error)
}
