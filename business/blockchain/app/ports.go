// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dexter-bot/dexter/business/blockchain/domain"
)

// BlockSubscriber defines the interface for observing new blocks.
type BlockSubscriber interface {
	// Subscribe starts watching for new blocks and returns a channel of blocks.
	Subscribe(ctx context.Context) (<-chan *domain.Block, error)

	// LatestBlock retrieves the most recent block.
	LatestBlock(ctx context.Context) (*domain.Block, error)

	// State returns the current connection state.
	State() domain.ConnectionState
}

// GasOracle defines the interface for gas price information.
type GasOracle interface {
	// GetGasPrice retrieves the current gas price.
	GetGasPrice(ctx context.Context) (*domain.GasPrice, error)

	// GetGasTipCap retrieves the suggested EIP-1559 priority fee.
	GetGasTipCap(ctx context.Context) (*big.Int, error)

	// EstimateGas estimates the gas units needed for a call.
	EstimateGas(ctx context.Context, from, to common.Address, value *big.Int, data []byte) (uint64, error)

	// GetGasEstimate returns a full estimate including current price.
	GetGasEstimate(ctx context.Context, from, to common.Address, value *big.Int, data []byte) (*domain.GasEstimate, error)
}
