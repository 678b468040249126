// Package domain contains the transaction drafting and evaluation model.
package domain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	arbitrageDomain "github.com/dexter-bot/dexter/business/arbitrage/domain"
)

// WalletPlaceholder is the sentinel recipient meaning "the agent's own
// wallet". It is matched case-insensitively and must be resolved before
// a draft leaves the drafter.
const WalletPlaceholder = "0xYourWalletAddress"

// TxKind classifies a draft for gas threshold selection.
type TxKind string

const (
	KindETHTransfer   TxKind = "eth_transfer"
	KindERC20Transfer TxKind = "erc20_transfer"
	KindSimpleSwap    TxKind = "simple_swap"
	KindComplexSwap   TxKind = "complex_swap"
)

// IntentKind is the operation a structured intent asks for.
type IntentKind string

const (
	IntentSwap     IntentKind = "swap"
	IntentTransfer IntentKind = "transfer"
	IntentApprove  IntentKind = "approve"
)

// Intent is a structured user intent with all fields already resolved
// by the caller, except the recipient which may still be the wallet
// placeholder.
type Intent struct {
	Kind        IntentKind
	TokenIn     string // symbol; "ETH" means native
	TokenOut    string // symbol; swap only
	Amount      *big.Int
	ExpectedOut *big.Int // swap only; anchors the on-chain minimum output, nil if unknown
	Recipient   string   // address or WalletPlaceholder
	Spender     string   // approve only
	SlippagePct decimal.Decimal
	Deadline    time.Duration // from now; zero means default
}

// Validate reports whether the intent has the fields its kind requires.
func (i Intent) Validate() error {
	if i.Amount == nil || i.Amount.Sign() <= 0 {
		return fmt.Errorf("intent amount must be positive")
	}
	switch i.Kind {
	case IntentSwap:
		if i.TokenIn == "" || i.TokenOut == "" {
			return fmt.Errorf("swap intent requires token_in and token_out")
		}
	case IntentTransfer:
		if i.Recipient == "" {
			return fmt.Errorf("transfer intent requires a recipient")
		}
	case IntentApprove:
		if i.TokenIn == "" || i.Spender == "" {
			return fmt.Errorf("approve intent requires a token and a spender")
		}
	default:
		return fmt.Errorf("unknown intent kind %q", i.Kind)
	}
	return nil
}

// Draft is an unsigned, not-yet-validated transaction descriptor. Each
// optimization round derives a new value; drafts are never mutated in
// place.
type Draft struct {
	From     common.Address
	To       common.Address
	Value    *big.Int
	Data     []byte
	GasLimit uint64

	// GasEstimated is false when the estimator failed and GasLimit
	// holds the configured conservative default.
	GasEstimated bool

	Kind        TxKind
	SlippagePct decimal.Decimal
	Revision    int

	// Origin is the opportunity this draft executes, nil for drafts
	// built from a direct intent.
	Origin *arbitrageDomain.Opportunity

	CreatedAt time.Time
}

// WithRevision returns a copy of the draft with the revision counter
// advanced. Callers mutate the copy before evaluation.
func (d Draft) WithRevision() Draft {
	next := d
	next.Revision++
	if d.Value != nil {
		next.Value = new(big.Int).Set(d.Value)
	}
	next.Data = append([]byte(nil), d.Data...)
	next.CreatedAt = time.Now()
	return next
}

// ValueOrZero returns the draft value, never nil.
func (d Draft) ValueOrZero() *big.Int {
	if d.Value == nil {
		return big.NewInt(0)
	}
	return d.Value
}

func (d Draft) String() string {
	return fmt.Sprintf("draft[%s rev=%d to=%s gas=%d estimated=%t]",
		d.Kind, d.Revision, d.To.Hex(), d.GasLimit, d.GasEstimated)
}
