package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/dexter-bot/dexter/internal/apperror"
	"github.com/dexter-bot/dexter/internal/asset"
)

// BalanceReader reads ETH and ERC-20 balances for the agent wallet.
type BalanceReader struct {
	client   *ethclient.Client
	registry *asset.Registry
	chainID  uint64
	erc20ABI abi.ABI
}

// NewBalanceReader creates a BalanceReader.
func NewBalanceReader(client *ethclient.Client, registry *asset.Registry, chainID uint64) (*BalanceReader, error) {
	erc20ABI, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 ABI: %w", err)
	}
	return &BalanceReader{
		client:   client,
		registry: registry,
		chainID:  chainID,
		erc20ABI: erc20ABI,
	}, nil
}

// Balance returns the holder's balance of a token symbol as a typed
// amount. "ETH" reads the native balance.
func (b *BalanceReader) Balance(ctx context.Context, holder common.Address, symbol string) (asset.Amount, error) {
	a, ok := b.registry.GetBySymbolAndChain(strings.ToUpper(symbol), b.chainID)
	if !ok {
		return asset.Amount{}, apperror.New(apperror.CodeUnknownToken,
			apperror.WithContext(fmt.Sprintf("token %q not registered on chain %d", symbol, b.chainID)))
	}

	if a.IsNative() {
		raw, err := b.client.BalanceAt(ctx, holder, nil)
		if err != nil {
			return asset.Amount{}, apperror.New(apperror.CodeEthereumRPCError,
				apperror.WithContext(err.Error()))
		}
		return asset.NewAmount(a, raw), nil
	}

	callData, err := b.erc20ABI.Pack("balanceOf", holder)
	if err != nil {
		return asset.Amount{}, fmt.Errorf("failed to encode balanceOf: %w", err)
	}

	tokenAddr := a.Address()
	out, err := b.client.CallContract(ctx, ethereum.CallMsg{
		To:   &tokenAddr,
		Data: callData,
	}, nil)
	if err != nil {
		return asset.Amount{}, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithContext(err.Error()))
	}

	results, err := b.erc20ABI.Unpack("balanceOf", out)
	if err != nil || len(results) != 1 {
		return asset.Amount{}, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithContext("unexpected balanceOf response"))
	}
	raw, ok := results[0].(*big.Int)
	if !ok {
		return asset.Amount{}, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithContext("balanceOf returned a non-integer value"))
	}
	return asset.NewAmount(a, raw), nil
}
