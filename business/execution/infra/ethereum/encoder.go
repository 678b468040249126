package ethereum

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/dexter-bot/dexter/internal/apperror"
	"github.com/dexter-bot/dexter/internal/asset"
)

// ExactInputSingleParams mirrors the router's struct argument.
type ExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int // uint24
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int // uint160, 0 for no limit
}

// Encoder packs calldata for swaps, transfers, and approvals. Token
// symbols are resolved via the asset registry; native ETH is routed
// through its wrapped form where the contract requires a token.
type Encoder struct {
	registry *asset.Registry
	chainID  uint64
	router   common.Address

	routerABI abi.ABI
	erc20ABI  abi.ABI
}

// NewEncoder creates an Encoder bound to a chain and a Uniswap V3
// router address.
func NewEncoder(registry *asset.Registry, chainID uint64, router common.Address) (*Encoder, error) {
	routerABI, err := abi.JSON(strings.NewReader(RouterABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}
	erc20ABI, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 ABI: %w", err)
	}
	return &Encoder{
		registry:  registry,
		chainID:   chainID,
		router:    router,
		routerABI: routerABI,
		erc20ABI:  erc20ABI,
	}, nil
}

// EncodeSwap packs an exactInputSingle call. Swapping from native ETH
// attaches the input amount as transaction value; token inputs assume a
// prior approval. The slippage tolerance is enforced on-chain: the
// router reverts unless at least expectedOut less the tolerance comes
// back. A nil expectedOut leaves the minimum at zero.
func (e *Encoder) EncodeSwap(tokenIn, tokenOut string, amountIn, expectedOut *big.Int,
	slippagePct decimal.Decimal, recipient common.Address, feeTier int,
	deadline time.Time) (common.Address, []byte, *big.Int, error) {

	in, err := e.lookup(tokenIn)
	if err != nil {
		return common.Address{}, nil, nil, err
	}
	out, err := e.lookup(tokenOut)
	if err != nil {
		return common.Address{}, nil, nil, err
	}

	params := ExactInputSingleParams{
		TokenIn:           asset.WrappedNative(in).Address(),
		TokenOut:          asset.WrappedNative(out).Address(),
		Fee:               big.NewInt(int64(feeTier)),
		Recipient:         recipient,
		Deadline:          big.NewInt(deadline.Unix()),
		AmountIn:          amountIn,
		AmountOutMinimum:  minAmountOut(expectedOut, slippagePct),
		SqrtPriceLimitX96: big.NewInt(0),
	}

	data, err := e.routerABI.Pack("exactInputSingle", params)
	if err != nil {
		return common.Address{}, nil, nil, apperror.New(apperror.CodeEncodingFailed,
			apperror.WithContext(err.Error()))
	}

	value := big.NewInt(0)
	if in.IsNative() {
		value = new(big.Int).Set(amountIn)
	}
	return e.router, data, value, nil
}

// EncodeTransfer packs an ERC-20 transfer, or returns an empty payload
// targeting the recipient for native ETH.
func (e *Encoder) EncodeTransfer(token string, amount *big.Int, recipient common.Address) (common.Address, []byte, *big.Int, error) {
	a, err := e.lookup(token)
	if err != nil {
		return common.Address{}, nil, nil, err
	}

	if a.IsNative() {
		return recipient, nil, new(big.Int).Set(amount), nil
	}

	data, err := e.erc20ABI.Pack("transfer", recipient, amount)
	if err != nil {
		return common.Address{}, nil, nil, apperror.New(apperror.CodeEncodingFailed,
			apperror.WithContext(err.Error()))
	}
	return a.Address(), data, big.NewInt(0), nil
}

// EncodeApprove packs an ERC-20 approve.
func (e *Encoder) EncodeApprove(token string, spender common.Address, amount *big.Int) (common.Address, []byte, error) {
	a, err := e.lookup(token)
	if err != nil {
		return common.Address{}, nil, err
	}
	if a.IsNative() {
		return common.Address{}, nil, apperror.New(apperror.CodeInvalidIntent,
			apperror.WithContext("native ETH cannot be approved"))
	}

	data, err := e.erc20ABI.Pack("approve", spender, amount)
	if err != nil {
		return common.Address{}, nil, apperror.New(apperror.CodeEncodingFailed,
			apperror.WithContext(err.Error()))
	}
	return a.Address(), data, nil
}

// minAmountOut is expectedOut reduced by the slippage tolerance,
// floored. A tolerance of 100% or more disables the bound.
func minAmountOut(expectedOut *big.Int, slippagePct decimal.Decimal) *big.Int {
	if expectedOut == nil || expectedOut.Sign() <= 0 {
		return big.NewInt(0)
	}
	keep := decimal.NewFromInt(100).Sub(slippagePct)
	if keep.Sign() <= 0 {
		return big.NewInt(0)
	}
	return decimal.NewFromBigInt(expectedOut, 0).
		Mul(keep).
		Div(decimal.NewFromInt(100)).
		Floor().
		BigInt()
}

func (e *Encoder) lookup(symbol string) (*asset.Asset, error) {
	a, ok := e.registry.GetBySymbolAndChain(strings.ToUpper(symbol), e.chainID)
	if !ok {
		return nil, apperror.New(apperror.CodeUnknownToken,
			apperror.WithContext(fmt.Sprintf("token %q not registered on chain %d", symbol, e.chainID)))
	}
	return a, nil
}
