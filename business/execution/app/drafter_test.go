package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/dexter-bot/dexter/business/execution/domain"
	"github.com/dexter-bot/dexter/internal/logger"
)

var (
	testWallet = common.HexToAddress("0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf")
	testRouter = common.HexToAddress("0xE592427A0AEce92De3Edee1F18E0157C05861564")
	testToken  = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
)

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

type fakeWallet struct {
	resolved []string
}

func (f *fakeWallet) Resolve(_ context.Context, recipient string) (common.Address, error) {
	f.resolved = append(f.resolved, recipient)
	if strings.EqualFold(recipient, domain.WalletPlaceholder) {
		return testWallet, nil
	}
	if !common.IsHexAddress(recipient) {
		return common.Address{}, errors.New("bad recipient")
	}
	return common.HexToAddress(recipient), nil
}

func (f *fakeWallet) OwnAddress(context.Context) (common.Address, error) {
	return testWallet, nil
}

type fakeEncoder struct {
	lastRecipient   common.Address
	lastExpectedOut *big.Int
	lastSlippage    decimal.Decimal
}

func (f *fakeEncoder) EncodeSwap(_, _ string, amountIn, expectedOut *big.Int,
	slippagePct decimal.Decimal, recipient common.Address,
	_ int, _ time.Time) (common.Address, []byte, *big.Int, error) {
	f.lastRecipient = recipient
	f.lastExpectedOut = expectedOut
	f.lastSlippage = slippagePct
	return testRouter, append([]byte{0x41, 0x4b}, recipient.Bytes()...), big.NewInt(0), nil
}

func (f *fakeEncoder) EncodeTransfer(token string, amount *big.Int, recipient common.Address) (common.Address, []byte, *big.Int, error) {
	f.lastRecipient = recipient
	if token == "ETH" {
		return recipient, nil, amount, nil
	}
	return testToken, append([]byte{0xa9, 0x05}, recipient.Bytes()...), big.NewInt(0), nil
}

func (f *fakeEncoder) EncodeApprove(_ string, spender common.Address, _ *big.Int) (common.Address, []byte, error) {
	f.lastRecipient = spender
	return testToken, append([]byte{0x09, 0x5e}, spender.Bytes()...), nil
}

type fakeEstimator struct {
	gas uint64
	err error
}

func (f *fakeEstimator) EstimateGas(context.Context, common.Address, common.Address, *big.Int, []byte) (uint64, error) {
	return f.gas, f.err
}

func newTestDrafter(wallet *fakeWallet, encoder *fakeEncoder, estimator *fakeEstimator) *Drafter {
	return NewDrafter(encoder, wallet, estimator, DrafterConfig{
		DefaultGasLimit: 200000,
		DefaultFeeTier:  3000,
	}, testLogger())
}

func TestDraftFromIntent_ResolvesWalletPlaceholder(t *testing.T) {
	placeholders := []string{
		"0xYourWalletAddress",
		"0xyourwalletaddress",
		"0xYOURWALLETADDRESS",
	}

	for _, placeholder := range placeholders {
		t.Run(placeholder, func(t *testing.T) {
			wallet := &fakeWallet{}
			encoder := &fakeEncoder{}
			d := newTestDrafter(wallet, encoder, &fakeEstimator{gas: 50000})

			draft, err := d.DraftFromIntent(context.Background(), domain.Intent{
				Kind:      domain.IntentTransfer,
				TokenIn:   "USDC",
				Amount:    big.NewInt(1000000),
				Recipient: placeholder,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if encoder.lastRecipient != testWallet {
				t.Errorf("placeholder resolved to %s, want %s", encoder.lastRecipient.Hex(), testWallet.Hex())
			}
			if bytes.Contains(draft.Data, []byte(domain.WalletPlaceholder)) {
				t.Error("draft data contains unresolved placeholder")
			}
			if !bytes.Contains(draft.Data, testWallet.Bytes()) {
				t.Error("draft data does not contain the resolved wallet address")
			}
		})
	}
}

func TestDraftFromIntent_GasEstimationFailureUsesDefault(t *testing.T) {
	wallet := &fakeWallet{}
	d := newTestDrafter(wallet, &fakeEncoder{}, &fakeEstimator{err: errors.New("node down")})

	draft, err := d.DraftFromIntent(context.Background(), domain.Intent{
		Kind:      domain.IntentTransfer,
		TokenIn:   "ETH",
		Amount:    big.NewInt(1e15),
		Recipient: testToken.Hex(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if draft.GasEstimated {
		t.Error("GasEstimated = true, want false after estimator failure")
	}
	if draft.GasLimit != 200000 {
		t.Errorf("GasLimit = %d, want configured default 200000", draft.GasLimit)
	}
}

func TestDraftFromIntent_GasEstimationAddsMargin(t *testing.T) {
	d := newTestDrafter(&fakeWallet{}, &fakeEncoder{}, &fakeEstimator{gas: 100000})

	draft, err := d.DraftFromIntent(context.Background(), domain.Intent{
		Kind:      domain.IntentTransfer,
		TokenIn:   "ETH",
		Amount:    big.NewInt(1e15),
		Recipient: testToken.Hex(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !draft.GasEstimated {
		t.Error("GasEstimated = false, want true")
	}
	if draft.GasLimit != 110000 {
		t.Errorf("GasLimit = %d, want 110000 (estimate plus 10%%)", draft.GasLimit)
	}
}

func TestDraftFromIntent_InvalidIntent(t *testing.T) {
	d := newTestDrafter(&fakeWallet{}, &fakeEncoder{}, &fakeEstimator{gas: 50000})

	tests := []struct {
		name   string
		intent domain.Intent
	}{
		{"zero amount", domain.Intent{Kind: domain.IntentSwap, TokenIn: "ETH", TokenOut: "USDC", Amount: big.NewInt(0)}},
		{"nil amount", domain.Intent{Kind: domain.IntentSwap, TokenIn: "ETH", TokenOut: "USDC"}},
		{"swap missing token_out", domain.Intent{Kind: domain.IntentSwap, TokenIn: "ETH", Amount: big.NewInt(1)}},
		{"transfer missing recipient", domain.Intent{Kind: domain.IntentTransfer, TokenIn: "ETH", Amount: big.NewInt(1)}},
		{"approve missing spender", domain.Intent{Kind: domain.IntentApprove, TokenIn: "USDC", Amount: big.NewInt(1)}},
		{"unknown kind", domain.Intent{Kind: "stake", Amount: big.NewInt(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := d.DraftFromIntent(context.Background(), tt.intent); err == nil {
				t.Error("expected error for invalid intent")
			}
		})
	}
}

func TestDraftFromIntent_KindClassification(t *testing.T) {
	d := newTestDrafter(&fakeWallet{}, &fakeEncoder{}, &fakeEstimator{gas: 50000})

	ethTransfer, err := d.DraftFromIntent(context.Background(), domain.Intent{
		Kind: domain.IntentTransfer, TokenIn: "ETH", Amount: big.NewInt(1), Recipient: testToken.Hex(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ethTransfer.Kind != domain.KindETHTransfer {
		t.Errorf("ETH transfer kind = %s, want %s", ethTransfer.Kind, domain.KindETHTransfer)
	}

	erc20Transfer, err := d.DraftFromIntent(context.Background(), domain.Intent{
		Kind: domain.IntentTransfer, TokenIn: "USDC", Amount: big.NewInt(1), Recipient: testToken.Hex(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if erc20Transfer.Kind != domain.KindERC20Transfer {
		t.Errorf("ERC20 transfer kind = %s, want %s", erc20Transfer.Kind, domain.KindERC20Transfer)
	}

	swap, err := d.DraftFromIntent(context.Background(), domain.Intent{
		Kind: domain.IntentSwap, TokenIn: "ETH", TokenOut: "USDC", Amount: big.NewInt(1),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if swap.Kind != domain.KindSimpleSwap {
		t.Errorf("swap kind = %s, want %s", swap.Kind, domain.KindSimpleSwap)
	}
}

func TestDraftFromIntent_SlippageReachesEncoder(t *testing.T) {
	enc := &fakeEncoder{}
	d := newTestDrafter(&fakeWallet{}, enc, &fakeEstimator{gas: 100000})

	expected := new(big.Int).SetUint64(1e18)
	_, err := d.DraftFromIntent(context.Background(), domain.Intent{
		Kind:        domain.IntentSwap,
		TokenIn:     "USDC",
		TokenOut:    "ETH",
		Amount:      big.NewInt(3_245_500_000),
		ExpectedOut: expected,
		SlippagePct: decimal.RequireFromString("0.5"),
	})
	if err != nil {
		t.Fatalf("DraftFromIntent: %v", err)
	}
	if enc.lastExpectedOut == nil || enc.lastExpectedOut.Cmp(expected) != 0 {
		t.Errorf("expected out = %v, want %s", enc.lastExpectedOut, expected)
	}
	if !enc.lastSlippage.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("slippage = %s, want 0.5", enc.lastSlippage)
	}
}

func TestRevise_AppliesFixes(t *testing.T) {
	d := newTestDrafter(&fakeWallet{}, &fakeEncoder{}, &fakeEstimator{gas: 50000})

	base := domain.Draft{
		From:        testWallet,
		To:          testRouter,
		Value:       big.NewInt(1000),
		GasLimit:    400000,
		SlippagePct: decimal.RequireFromString("0.5"),
	}

	t.Run("reduce_size", func(t *testing.T) {
		revised, err := d.Revise(context.Background(), base, []domain.SuggestedFix{
			{Kind: domain.FixReduceSize},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if revised.Value.Cmp(big.NewInt(800)) != 0 {
			t.Errorf("Value = %s, want 800 (80%% of original)", revised.Value)
		}
		if base.Value.Cmp(big.NewInt(1000)) != 0 {
			t.Error("original draft was mutated")
		}
		if revised.Revision != 1 {
			t.Errorf("Revision = %d, want 1", revised.Revision)
		}
	})

	t.Run("split_value", func(t *testing.T) {
		revised, err := d.Revise(context.Background(), base, []domain.SuggestedFix{
			{Kind: domain.FixSplitValue},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if revised.Value.Cmp(big.NewInt(500)) != 0 {
			t.Errorf("Value = %s, want 500", revised.Value)
		}
	})

	t.Run("raise_slippage", func(t *testing.T) {
		revised, err := d.Revise(context.Background(), base, []domain.SuggestedFix{
			{Kind: domain.FixRaiseSlippage},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := decimal.RequireFromString("1.0")
		if !revised.SlippagePct.Equal(want) {
			t.Errorf("SlippagePct = %s, want %s", revised.SlippagePct, want)
		}
	})

	t.Run("reestimate_gas", func(t *testing.T) {
		revised, err := d.Revise(context.Background(), base, []domain.SuggestedFix{
			{Kind: domain.FixReestimateGas},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if revised.GasLimit != 55000 {
			t.Errorf("GasLimit = %d, want 55000", revised.GasLimit)
		}
	})
}
