package app

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/dexter-bot/dexter/business/execution/domain"
)

// WalletResolver resolves recipient strings, including the agent-wallet
// placeholder, to checksummed addresses.
type WalletResolver interface {
	// Resolve maps a recipient string to an address. The wallet
	// placeholder resolves to the agent's own address.
	Resolve(ctx context.Context, recipient string) (common.Address, error)

	// OwnAddress returns the agent's wallet address.
	OwnAddress(ctx context.Context) (common.Address, error)
}

// GasEstimator estimates gas for a call. Satisfied by the blockchain
// context's service.
type GasEstimator interface {
	EstimateGas(ctx context.Context, from, to common.Address, value *big.Int, data []byte) (uint64, error)
}

// SwapEncoder produces calldata for the supported operations.
type SwapEncoder interface {
	// EncodeSwap encodes a Uniswap V3 exactInputSingle call. Returns
	// the router address, calldata, and the ETH value to attach. The
	// minimum output is derived from expectedOut and the slippage
	// tolerance; a nil expectedOut leaves it at zero.
	EncodeSwap(tokenIn, tokenOut string, amountIn, expectedOut *big.Int,
		slippagePct decimal.Decimal, recipient common.Address,
		feeTier int, deadline time.Time) (common.Address, []byte, *big.Int, error)

	// EncodeTransfer encodes an ERC-20 transfer, or returns an empty
	// payload with the recipient as target for native ETH.
	EncodeTransfer(token string, amount *big.Int, recipient common.Address) (common.Address, []byte, *big.Int, error)

	// EncodeApprove encodes an ERC-20 approve.
	EncodeApprove(token string, spender common.Address, amount *big.Int) (common.Address, []byte, error)
}

// Simulator predicts the asset changes of a draft without submitting
// it. A failed simulation is returned as data, not as an error.
type Simulator interface {
	Simulate(ctx context.Context, draft domain.Draft) (*domain.Simulation, error)
}

// GasPricer supplies the current gas price for evaluation snapshots.
type GasPricer interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// MarketSnapshot is the immutable external state one evaluation round
// runs against. Criteria read it, never refresh it.
type MarketSnapshot struct {
	GasPrice   *big.Int
	Simulation *domain.Simulation

	// ExpectedChanges maps asset symbols to the balance delta the
	// draft should produce, for the correctness criterion.
	ExpectedChanges map[string]decimal.Decimal

	TakenAt time.Time
}
