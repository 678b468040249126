// Package arbitrage implements the arbitrage bounded context: cross-venue
// spread detection over the quotes collected by the pricing context.
package arbitrage

import (
	"context"
	"fmt"
	"strings"

	"github.com/dexter-bot/dexter/business/arbitrage/app"
	arbitrageDI "github.com/dexter-bot/dexter/business/arbitrage/di"
	"github.com/dexter-bot/dexter/business/arbitrage/infra"
	blockchainDI "github.com/dexter-bot/dexter/business/blockchain/di"
	executionDI "github.com/dexter-bot/dexter/business/execution/di"
	pricingDI "github.com/dexter-bot/dexter/business/pricing/di"
	pricingDomain "github.com/dexter-bot/dexter/business/pricing/domain"
	"github.com/dexter-bot/dexter/internal/apperror"
	"github.com/dexter-bot/dexter/internal/asset"
	"github.com/dexter-bot/dexter/internal/config"
	"github.com/dexter-bot/dexter/internal/di"
	"github.com/dexter-bot/dexter/internal/logger"
	"github.com/dexter-bot/dexter/internal/monolith"
)

// Module implements the arbitrage bounded context.
type Module struct{}

// RegisterServices registers all arbitrage services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, arbitrageDI.Detector, func(sr di.ServiceRegistry) *app.Detector {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		d, err := app.NewDetector(app.DetectorConfig{
			MinProfitPct:       cfg.Arbitrage.MinProfitPctDecimal(),
			GasCostEstimateETH: cfg.Arbitrage.GasCostEstimateETHDecimal(),
		}, log)
		if err != nil {
			panic("failed to create detector: " + err.Error())
		}
		return d
	})

	di.RegisterToken(c, arbitrageDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		cfg := sr.Get("config").(*config.Config)
		if cfg.App.UI == "tui" {
			return infra.NewTUIReporter()
		}
		return infra.NewConsoleReporter()
	})

	di.RegisterToken(c, arbitrageDI.Scanner, func(sr di.ServiceRegistry) *app.Scanner {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		pairs, err := parsePairs(cfg.Arbitrage.Pairs, registry, cfg.Ethereum.ChainID)
		if err != nil {
			panic("failed to parse trading pairs: " + err.Error())
		}

		var drafter app.OpportunityDrafter
		var validator app.DraftValidator
		if cfg.Arbitrage.AutoDraft {
			drafter = executionDI.GetDrafter(sr)
			validator = executionDI.GetOptimizer(sr)
		}

		return app.NewScanner(
			blockchainDI.GetBlockchainService(sr),
			pricingDI.GetAggregator(sr),
			arbitrageDI.GetDetector(sr),
			arbitrageDI.GetReporter(sr),
			drafter,
			validator,
			app.ScannerConfig{
				Pairs:       pairs,
				TradeSizes:  cfg.Arbitrage.TradeSizesDecimal(),
				ScanTimeout: cfg.Pricing.OverallTimeout,
				AutoDraft:   cfg.Arbitrage.AutoDraft,
			},
			log,
		)
	})

	return nil
}

// Startup starts the scanner loop.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	scanner := arbitrageDI.GetScanner(mono.Services())
	if err := scanner.Start(ctx); err != nil {
		return err
	}
	mono.Logger().Info(ctx, "arbitrage module started")
	return nil
}

// parsePairs resolves "BASE/QUOTE" symbol strings against the asset registry.
func parsePairs(raw []string, registry *asset.Registry, chainID uint64) ([]pricingDomain.Pair, error) {
	pairs := make([]pricingDomain.Pair, 0, len(raw))
	for _, s := range raw {
		base, quote, ok := strings.Cut(s, "/")
		if !ok {
			return nil, apperror.New(apperror.CodeInvalidFormat,
				apperror.WithContext(fmt.Sprintf("pair %q is not BASE/QUOTE", s)))
		}
		baseAsset, found := registry.GetBySymbolAndChain(strings.TrimSpace(base), chainID)
		if !found {
			return nil, apperror.New(apperror.CodeUnknownToken,
				apperror.WithContext(fmt.Sprintf("asset %q not registered on chain %d", base, chainID)))
		}
		quoteAsset, found := registry.GetBySymbolAndChain(strings.TrimSpace(quote), chainID)
		if !found {
			return nil, apperror.New(apperror.CodeUnknownToken,
				apperror.WithContext(fmt.Sprintf("asset %q not registered on chain %d", quote, chainID)))
		}
		pairs = append(pairs, pricingDomain.NewPair(baseAsset, quoteAsset))
	}
	return pairs, nil
}
