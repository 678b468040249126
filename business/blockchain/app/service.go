// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dexter-bot/dexter/business/blockchain/domain"
)

// BlockchainService coordinates blockchain interactions.
type BlockchainService struct {
	subscriber BlockSubscriber
	gasOracle  GasOracle
}

// NewBlockchainService creates a new BlockchainService.
func NewBlockchainService(subscriber BlockSubscriber, gasOracle GasOracle) *BlockchainService {
	return &BlockchainService{
		subscriber: subscriber,
		gasOracle:  gasOracle,
	}
}

// SubscribeBlocks starts the block subscription and returns the channel.
func (s *BlockchainService) SubscribeBlocks(ctx context.Context) (<-chan *domain.Block, error) {
	return s.subscriber.Subscribe(ctx)
}

// LatestBlock retrieves the most recent block.
func (s *BlockchainService) LatestBlock(ctx context.Context) (*domain.Block, error) {
	return s.subscriber.LatestBlock(ctx)
}

// GetGasPrice retrieves the current gas price.
func (s *BlockchainService) GetGasPrice(ctx context.Context) (*domain.GasPrice, error) {
	return s.gasOracle.GetGasPrice(ctx)
}

// GetGasTipCap retrieves the suggested EIP-1559 priority fee.
func (s *BlockchainService) GetGasTipCap(ctx context.Context) (*big.Int, error) {
	return s.gasOracle.GetGasTipCap(ctx)
}

// EstimateGas estimates the gas units for a call.
func (s *BlockchainService) EstimateGas(ctx context.Context, from, to common.Address, value *big.Int, data []byte) (uint64, error) {
	return s.gasOracle.EstimateGas(ctx, from, to, value, data)
}

// GetGasEstimate returns a full estimate including current price.
func (s *BlockchainService) GetGasEstimate(ctx context.Context, from, to common.Address, value *big.Int, data []byte) (*domain.GasEstimate, error) {
	return s.gasOracle.GetGasEstimate(ctx, from, to, value, data)
}

// ConnectionState returns the current connection state.
func (s *BlockchainService) ConnectionState() domain.ConnectionState {
	return s.subscriber.State()
}
