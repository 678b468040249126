// Package pricing implements the pricing bounded context: concurrent
// quote collection across DEX venues.
package pricing

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/dexter-bot/dexter/business/pricing/app"
	pricingDI "github.com/dexter-bot/dexter/business/pricing/di"
	"github.com/dexter-bot/dexter/business/pricing/infra/curve"
	"github.com/dexter-bot/dexter/business/pricing/infra/oneinch"
	"github.com/dexter-bot/dexter/business/pricing/infra/sushiswap"
	"github.com/dexter-bot/dexter/business/pricing/infra/uniswap"
	"github.com/dexter-bot/dexter/internal/config"
	"github.com/dexter-bot/dexter/internal/di"
	"github.com/dexter-bot/dexter/internal/logger"
	"github.com/dexter-bot/dexter/internal/monolith"
)

// Module implements the pricing bounded context.
type Module struct{}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Venue providers - private dependency
	di.RegisterToken(c, pricingDI.VenueProviders, func(sr di.ServiceRegistry) []app.VenueProvider {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ethClient := sr.Get("ethClient").(*ethclient.Client)

		var providers []app.VenueProvider

		if cfg.Venues.UniswapV3.Enabled {
			p, err := uniswap.NewProvider(ethClient, cfg.Venues.UniswapV3, log)
			if err != nil {
				panic("failed to create uniswap provider: " + err.Error())
			}
			providers = append(providers, p)
		}

		if cfg.Venues.Sushiswap.Enabled {
			p, err := sushiswap.NewProvider(ethClient, cfg.Venues.Sushiswap, log)
			if err != nil {
				panic("failed to create sushiswap provider: " + err.Error())
			}
			providers = append(providers, p)
		}

		if cfg.Venues.Curve.Enabled {
			p, err := curve.NewProvider(ethClient, cfg.Venues.Curve, log)
			if err != nil {
				panic("failed to create curve provider: " + err.Error())
			}
			providers = append(providers, p)
		}

		if cfg.Venues.OneInch.Enabled {
			p, err := oneinch.NewProvider(cfg.Venues.OneInch, log)
			if err != nil {
				panic("failed to create oneinch provider: " + err.Error())
			}
			providers = append(providers, p)
		}

		return providers
	})

	// Aggregator (public - exposed to other modules)
	di.RegisterToken(c, pricingDI.Aggregator, func(sr di.ServiceRegistry) *app.Aggregator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		agg, err := app.NewAggregator(pricingDI.GetVenueProviders(sr), app.AggregatorConfig{
			VenueTimeout: cfg.Pricing.VenueTimeout,
		}, log)
		if err != nil {
			panic("failed to create aggregator: " + err.Error())
		}
		return agg
	})

	return nil
}

// Startup initializes the pricing module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	providers := pricingDI.GetVenueProviders(mono.Services())
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.ID())
	}

	log.Info(ctx, "pricing module started", "venues", names)
	return nil
}
