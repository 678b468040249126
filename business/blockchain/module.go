// Package blockchain implements the blockchain bounded context for Ethereum integration.
package blockchain

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/dexter-bot/dexter/business/blockchain/app"
	blockchainDI "github.com/dexter-bot/dexter/business/blockchain/di"
	"github.com/dexter-bot/dexter/business/blockchain/infra/ethereum"
	"github.com/dexter-bot/dexter/internal/config"
	"github.com/dexter-bot/dexter/internal/di"
	"github.com/dexter-bot/dexter/internal/logger"
	"github.com/dexter-bot/dexter/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct{}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Block subscriber - private dependency. Prefers the websocket
	// newHeads stream when an endpoint is configured, otherwise falls
	// back to polling over HTTP.
	di.RegisterToken(c, blockchainDI.BlockSubscriber, func(sr di.ServiceRegistry) app.BlockSubscriber {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ethClient := sr.Get("ethClient").(*ethclient.Client)

		if wsURL := cfg.Ethereum.WSURL; wsURL != "" {
			sub, err := ethereum.NewWSSubscriber(ethClient, ethereum.DefaultWSSubscriberConfig(wsURL), log)
			if err != nil {
				panic("failed to create ws subscriber: " + err.Error())
			}
			return sub
		}

		sub, err := ethereum.NewSubscriber(ethClient, ethereum.DefaultSubscriberConfig(), log)
		if err != nil {
			panic("failed to create subscriber: " + err.Error())
		}
		return sub
	})

	// Gas oracle - private dependency
	di.RegisterToken(c, blockchainDI.GasOracle, func(sr di.ServiceRegistry) app.GasOracle {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ethClient := sr.Get("ethClient").(*ethclient.Client)

		oracleCfg := ethereum.DefaultGasOracleConfig()
		oracleCfg.DefaultGas = cfg.Arbitrage.DefaultGasLimit

		oracle, err := ethereum.NewGasOracle(ethClient, oracleCfg, log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		return oracle
	})

	// BlockchainService (public - exposed to other modules)
	di.RegisterToken(c, blockchainDI.BlockchainService, func(sr di.ServiceRegistry) *app.BlockchainService {
		sub := blockchainDI.GetBlockSubscriber(sr)
		oracle := blockchainDI.GetGasOracle(sr)
		return app.NewBlockchainService(sub, oracle)
	})

	return nil
}

// Startup initializes the blockchain module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	svc := blockchainDI.GetBlockchainService(mono.Services())
	if block, err := svc.LatestBlock(ctx); err != nil {
		log.Warn(ctx, "node not reachable at startup", "error", err)
	} else {
		log.Info(ctx, "blockchain module started", "head", block.Number)
	}

	return nil
}
