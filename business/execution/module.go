// Package execution implements the execution bounded context:
// transaction drafting, the evaluation/optimization loop, and the
// chain-facing collaborators around them.
package execution

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"

	blockchainApp "github.com/dexter-bot/dexter/business/blockchain/app"
	blockchainDI "github.com/dexter-bot/dexter/business/blockchain/di"
	"github.com/dexter-bot/dexter/business/execution/app"
	"github.com/dexter-bot/dexter/business/execution/domain"
	executionDI "github.com/dexter-bot/dexter/business/execution/di"
	"github.com/dexter-bot/dexter/business/execution/infra/alchemy"
	executionEthereum "github.com/dexter-bot/dexter/business/execution/infra/ethereum"
	"github.com/dexter-bot/dexter/internal/asset"
	"github.com/dexter-bot/dexter/internal/config"
	"github.com/dexter-bot/dexter/internal/di"
	"github.com/dexter-bot/dexter/internal/logger"
	"github.com/dexter-bot/dexter/internal/monolith"
)

// Module implements the execution bounded context.
type Module struct{}

// RegisterServices registers all execution services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, executionDI.WalletResolver, func(sr di.ServiceRegistry) *executionEthereum.WalletResolver {
		cfg := sr.Get("config").(*config.Config)
		return executionEthereum.NewWalletResolver(cfg.Wallet)
	})

	di.RegisterToken(c, executionDI.Encoder, func(sr di.ServiceRegistry) app.SwapEncoder {
		cfg := sr.Get("config").(*config.Config)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		enc, err := executionEthereum.NewEncoder(registry, cfg.Ethereum.ChainID,
			cfg.Venues.UniswapV3.RouterAddressHex())
		if err != nil {
			panic("failed to create encoder: " + err.Error())
		}
		return enc
	})

	di.RegisterToken(c, executionDI.Simulator, func(sr di.ServiceRegistry) app.Simulator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		if !cfg.Alchemy.Enabled {
			return nil
		}
		sim, err := alchemy.NewSimulator(cfg.Alchemy, log)
		if err != nil {
			panic("failed to create simulator: " + err.Error())
		}
		return sim
	})

	di.RegisterToken(c, executionDI.Drafter, func(sr di.ServiceRegistry) *app.Drafter {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewDrafter(
			executionDI.GetEncoder(sr),
			executionDI.GetWalletResolver(sr),
			blockchainDI.GetBlockchainService(sr),
			app.DrafterConfig{
				DefaultGasLimit: cfg.Arbitrage.DefaultGasLimit,
				DefaultFeeTier:  cfg.Venues.UniswapV3.DefaultFeeTier,
			},
			log,
		)
	})

	di.RegisterToken(c, executionDI.Evaluator, func(sr di.ServiceRegistry) *app.Evaluator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		rules := app.DefaultEvaluatorRules()
		rules.MaxSlippagePct = cfg.Evaluator.MaxSlippagePctDecimal()
		rules.MaxValueWithoutReview = cfg.Evaluator.MaxValueWithoutReviewWei()
		rules.GasThresholds = gasThresholds(cfg.Evaluator.GasThresholds)

		ev, err := app.NewEvaluator(rules, log)
		if err != nil {
			panic("failed to create evaluator: " + err.Error())
		}
		return ev
	})

	di.RegisterToken(c, executionDI.Optimizer, func(sr di.ServiceRegistry) *app.Optimizer {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewOptimizer(
			executionDI.GetDrafter(sr),
			executionDI.GetEvaluator(sr),
			executionDI.GetSimulator(sr),
			&gasPricerAdapter{svc: blockchainDI.GetBlockchainService(sr)},
			app.OptimizerConfig{MaxRetries: cfg.Evaluator.MaxRetries},
			log,
		)
	})

	di.RegisterToken(c, executionDI.Submitter, func(sr di.ServiceRegistry) *executionEthereum.Submitter {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		client := sr.Get("ethClient").(*ethclient.Client)

		return executionEthereum.NewSubmitter(client, executionDI.GetWalletResolver(sr),
			cfg.Ethereum.ChainID, log)
	})

	di.RegisterToken(c, executionDI.BalanceReader, func(sr di.ServiceRegistry) *executionEthereum.BalanceReader {
		cfg := sr.Get("config").(*config.Config)
		client := sr.Get("ethClient").(*ethclient.Client)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		reader, err := executionEthereum.NewBalanceReader(client, registry, cfg.Ethereum.ChainID)
		if err != nil {
			panic("failed to create balance reader: " + err.Error())
		}
		return reader
	})

	return nil
}

// Startup initializes the execution module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	// Fail early on a misconfigured wallet rather than on the first
	// draft.
	resolver := executionDI.GetWalletResolver(mono.Services())
	addr, err := resolver.OwnAddress(ctx)
	if err != nil {
		log.Warn(ctx, "wallet not configured, drafting disabled", "error", err)
		return nil
	}

	log.Info(ctx, "execution module started", "wallet", addr.Hex())
	return nil
}

// gasPricerAdapter exposes the blockchain service's typed gas price as
// the raw wei value the optimizer snapshot needs.
type gasPricerAdapter struct {
	svc *blockchainApp.BlockchainService
}

func (a *gasPricerAdapter) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	price, err := a.svc.GetGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	return price.Wei, nil
}

func gasThresholds(cfg config.GasThresholdsConfig) map[domain.TxKind]uint64 {
	return map[domain.TxKind]uint64{
		domain.KindETHTransfer:   cfg.EthTransfer,
		domain.KindERC20Transfer: cfg.ERC20Transfer,
		domain.KindSimpleSwap:    cfg.SimpleSwap,
		domain.KindComplexSwap:   cfg.ComplexSwap,
	}
}
