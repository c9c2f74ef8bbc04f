// Package domain defines the ports of the reference redirect endpoint
package domain

import (
	"context"

	"refguard/internal/core/referral"
)

// DealIndex answers whether a deal is known and in which state
type DealIndex interface {
	Lookup(ctx context.Context, slug string) (e referral.Entry, found bool, err error)
}

// Params is a parsed and checked track request
type Params struct {
	Deal     string
	Category string
	Redirect string // masked link, forwarded verbatim
	Dest     string // decoded destination, for logs only
}
