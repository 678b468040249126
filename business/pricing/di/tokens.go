// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/dexter-bot/dexter/business/pricing/app"
	"github.com/dexter-bot/dexter/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Aggregator = di.NewToken[*app.Aggregator]("pricing.Aggregator")
)

// Private dependency tokens - internal to pricing module
var (
	VenueProviders = di.NewToken[[]app.VenueProvider]("pricing:venueProviders")
)

// Helper functions for type-safe access
func GetAggregator(c di.ServiceRegistry) *app.Aggregator {
	return di.GetToken(c, Aggregator)
}

func GetVenueProviders(c di.ServiceRegistry) []app.VenueProvider {
	return di.GetToken(c, VenueProviders)
}
