package domain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewGasCost(t *testing.T) {
	tests := []struct {
		name           string
		gasLimit       uint64
		gasPriceWei    string // in wei
		ethPriceQuote  string
		wantTotalETH   string
		wantTotalQuote string
	}{
		{
			name:           "standard_gas_25gwei_3400eth",
			gasLimit:       200_000,
			gasPriceWei:    "25000000000", // 25 gwei
			ethPriceQuote:  "3400",
			wantTotalETH:   "0.005", // 200000 * 25 gwei = 0.005 ETH
			wantTotalQuote: "17",    // 0.005 * 3400
		},
		{
			name:           "high_gas_100gwei",
			gasLimit:       200_000,
			gasPriceWei:    "100000000000", // 100 gwei
			ethPriceQuote:  "3400",
			wantTotalETH:   "0.02",
			wantTotalQuote: "68",
		},
		{
			name:           "low_gas_5gwei",
			gasLimit:       200_000,
			gasPriceWei:    "5000000000", // 5 gwei
			ethPriceQuote:  "3400",
			wantTotalETH:   "0.001",
			wantTotalQuote: "3.4",
		},
		{
			name:           "complex_swap_300k_gas",
			gasLimit:       300_000,
			gasPriceWei:    "30000000000", // 30 gwei
			ethPriceQuote:  "3500",
			wantTotalETH:   "0.009",
			wantTotalQuote: "31.5",
		},
		{
			name:           "zero_gas_limit",
			gasLimit:       0,
			gasPriceWei:    "25000000000",
			ethPriceQuote:  "3400",
			wantTotalETH:   "0",
			wantTotalQuote: "0",
		},
		{
			name:           "zero_gas_price",
			gasLimit:       200_000,
			gasPriceWei:    "0",
			ethPriceQuote:  "3400",
			wantTotalETH:   "0",
			wantTotalQuote: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gasPrice, ok := new(big.Int).SetString(tt.gasPriceWei, 10)
			if !ok {
				t.Fatalf("bad gas price %q", tt.gasPriceWei)
			}
			ethPrice := decimal.RequireFromString(tt.ethPriceQuote)

			gc := NewGasCost(tt.gasLimit, gasPrice, ethPrice)

			if !gc.ETH.Equal(decimal.RequireFromString(tt.wantTotalETH)) {
				t.Errorf("ETH = %s, want %s", gc.ETH, tt.wantTotalETH)
			}
			if !gc.Quote.Equal(decimal.RequireFromString(tt.wantTotalQuote)) {
				t.Errorf("Quote = %s, want %s", gc.Quote, tt.wantTotalQuote)
			}

			wantWei := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(tt.gasLimit))
			if gc.TotalWei.Cmp(wantWei) != 0 {
				t.Errorf("TotalWei = %s, want %s", gc.TotalWei, wantWei)
			}
		})
	}
}

func TestFlatGasCostQuote(t *testing.T) {
	got := FlatGasCostQuote(
		decimal.RequireFromString("0.01"),
		decimal.RequireFromString("3245.50"),
	)
	if !got.Equal(decimal.RequireFromString("32.455")) {
		t.Errorf("FlatGasCostQuote = %s, want 32.455", got)
	}
}
