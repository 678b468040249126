package ethereum

import (
	"bytes"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/dexter-bot/dexter/internal/apperror"
	"github.com/dexter-bot/dexter/internal/asset"
)

var testRouter = common.HexToAddress("0xE592427A0AEce92De3Edee1F18E0157C05861564")

func newTestEncoder(t *testing.T) *Encoder {
	t.Helper()
	e, err := NewEncoder(asset.DefaultRegistry(), asset.ChainIDEthereum, testRouter)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	return e
}

func TestEncodeSwap_NativeInputAttachesValue(t *testing.T) {
	e := newTestEncoder(t)
	recipient := common.HexToAddress("0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf")
	amountIn := big.NewInt(1e18)

	to, data, value, err := e.EncodeSwap("ETH", "USDC", amountIn, nil, decimal.Zero,
		recipient, 3000, time.Now().Add(20*time.Minute))
	if err != nil {
		t.Fatalf("EncodeSwap: %v", err)
	}
	if to != testRouter {
		t.Errorf("to = %s, want router %s", to.Hex(), testRouter.Hex())
	}
	if value.Cmp(amountIn) != 0 {
		t.Errorf("value = %s, want %s for native input", value, amountIn)
	}
	if len(data) < 4 {
		t.Fatal("calldata too short")
	}
	// The native leg must be expressed as WETH in the params.
	if !bytes.Contains(data, asset.AddrWETHEthereum.Bytes()) {
		t.Error("calldata does not reference WETH for the native leg")
	}
	if !bytes.Contains(data, asset.AddrUSDCEthereum.Bytes()) {
		t.Error("calldata does not reference the output token")
	}
	if !bytes.Contains(data, recipient.Bytes()) {
		t.Error("calldata does not reference the recipient")
	}
}

func TestEncodeSwap_TokenInputNoValue(t *testing.T) {
	e := newTestEncoder(t)
	recipient := common.HexToAddress("0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf")

	_, _, value, err := e.EncodeSwap("USDC", "ETH", big.NewInt(1_000_000), nil, decimal.Zero,
		recipient, 500, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("EncodeSwap: %v", err)
	}
	if value.Sign() != 0 {
		t.Errorf("value = %s, want 0 for token input", value)
	}
}

func TestEncodeSwap_UnknownToken(t *testing.T) {
	e := newTestEncoder(t)

	_, _, _, err := e.EncodeSwap("SHIB", "USDC", big.NewInt(1), nil, decimal.Zero,
		common.Address{}, 3000, time.Now())
	if apperror.GetCode(err) != apperror.CodeUnknownToken {
		t.Errorf("code = %s, want %s", apperror.GetCode(err), apperror.CodeUnknownToken)
	}
}

func TestEncodeSwap_MinimumOutAppliesSlippage(t *testing.T) {
	e := newTestEncoder(t)
	recipient := common.HexToAddress("0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf")

	// Buying 1 ETH with 0.5% tolerance: the router must return at
	// least 0.995 ETH.
	expected := new(big.Int).SetUint64(1e18)
	_, data, _, err := e.EncodeSwap("USDC", "ETH", big.NewInt(3_245_500_000), expected,
		decimal.RequireFromString("0.5"), recipient, 3000, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("EncodeSwap: %v", err)
	}

	wantMin := new(big.Int).SetUint64(995_000_000_000_000_000)
	if !bytes.Contains(data, common.LeftPadBytes(wantMin.Bytes(), 32)) {
		t.Errorf("calldata does not encode minimum out %s", wantMin)
	}
}

func TestMinAmountOut(t *testing.T) {
	cases := []struct {
		name     string
		expected *big.Int
		slippage string
		want     string
	}{
		{"half percent", new(big.Int).SetUint64(1e18), "0.5", "995000000000000000"},
		{"zero tolerance", big.NewInt(1_000_000), "0", "1000000"},
		{"floors fractions", big.NewInt(999), "0.1", "998"},
		{"full tolerance disables", big.NewInt(1_000_000), "100", "0"},
		{"nil expected", nil, "0.5", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := minAmountOut(tc.expected, decimal.RequireFromString(tc.slippage))
			if got.String() != tc.want {
				t.Errorf("minAmountOut = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestEncodeTransfer(t *testing.T) {
	e := newTestEncoder(t)
	recipient := common.HexToAddress("0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf")

	t.Run("native", func(t *testing.T) {
		to, data, value, err := e.EncodeTransfer("ETH", big.NewInt(42), recipient)
		if err != nil {
			t.Fatalf("EncodeTransfer: %v", err)
		}
		if to != recipient {
			t.Errorf("to = %s, want recipient", to.Hex())
		}
		if len(data) != 0 {
			t.Errorf("native transfer carries calldata: %x", data)
		}
		if value.Cmp(big.NewInt(42)) != 0 {
			t.Errorf("value = %s, want 42", value)
		}
	})

	t.Run("erc20", func(t *testing.T) {
		to, data, value, err := e.EncodeTransfer("USDC", big.NewInt(1_000_000), recipient)
		if err != nil {
			t.Fatalf("EncodeTransfer: %v", err)
		}
		if to != asset.AddrUSDCEthereum {
			t.Errorf("to = %s, want token contract", to.Hex())
		}
		if value.Sign() != 0 {
			t.Errorf("value = %s, want 0", value)
		}
		// transfer(address,uint256) selector.
		if !bytes.Equal(data[:4], []byte{0xa9, 0x05, 0x9c, 0xbb}) {
			t.Errorf("selector = %x, want a9059cbb", data[:4])
		}
		if !bytes.Contains(data, recipient.Bytes()) {
			t.Error("calldata does not reference the recipient")
		}
	})
}

func TestEncodeApprove_RejectsNative(t *testing.T) {
	e := newTestEncoder(t)

	_, _, err := e.EncodeApprove("ETH", testRouter, big.NewInt(1))
	if apperror.GetCode(err) != apperror.CodeInvalidIntent {
		t.Errorf("code = %s, want %s", apperror.GetCode(err), apperror.CodeInvalidIntent)
	}
}
