// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"

	"github.com/dexter-bot/dexter/business/pricing/domain"
	"github.com/dexter-bot/dexter/internal/asset"
)

// VenueProvider is implemented by each pricing venue adapter.
type VenueProvider interface {
	// ID returns the stable venue identifier (e.g. "uniswap_v3").
	ID() string

	// FetchQuote returns the venue's quote for selling size of the
	// pair's base asset into its quote asset.
	FetchQuote(ctx context.Context, pair domain.Pair, size asset.Amount) (*domain.Quote, error)
}
