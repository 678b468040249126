package config

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DEXTER_ETH_HTTP_URL", "http://localhost:8545")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.App.Name != "dexter" {
		t.Errorf("App.Name = %q, want %q", cfg.App.Name, "dexter")
	}
	if cfg.Ethereum.ChainID != 1 {
		t.Errorf("Ethereum.ChainID = %d, want 1", cfg.Ethereum.ChainID)
	}
	if got := cfg.Arbitrage.MinProfitPctDecimal(); !got.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("MinProfitPct = %s, want 0.5", got)
	}
	if got := cfg.Arbitrage.GasCostEstimateETHDecimal(); !got.Equal(decimal.RequireFromString("0.01")) {
		t.Errorf("GasCostEstimateETH = %s, want 0.01", got)
	}
	if len(cfg.Arbitrage.Pairs) != 1 || cfg.Arbitrage.Pairs[0] != "ETH/USDC" {
		t.Errorf("Arbitrage.Pairs = %v, want [ETH/USDC]", cfg.Arbitrage.Pairs)
	}
	if cfg.Arbitrage.AutoDraft {
		t.Error("Arbitrage.AutoDraft should default to false")
	}
	if cfg.Evaluator.MaxRetries != 3 {
		t.Errorf("Evaluator.MaxRetries = %d, want 3", cfg.Evaluator.MaxRetries)
	}
	if cfg.Evaluator.GasThresholds.SimpleSwap != 150000 {
		t.Errorf("GasThresholds.SimpleSwap = %d, want 150000", cfg.Evaluator.GasThresholds.SimpleSwap)
	}
	if cfg.Venues.UniswapV3.DefaultFeeTier != 3000 {
		t.Errorf("DefaultFeeTier = %d, want 3000", cfg.Venues.UniswapV3.DefaultFeeTier)
	}
}

func TestLoadMissingEthereumURL(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("Load() expected error for missing ethereum.http_url")
	}
}

func TestValidateRejectsBadAddresses(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad quoter", func(c *Config) { c.Venues.UniswapV3.QuoterAddress = "nope" }},
		{"bad sushi router", func(c *Config) { c.Venues.Sushiswap.RouterAddress = "0x12" }},
		{"bad token", func(c *Config) {
			c.Tokens["WETH"] = TokenConfig{Address: "not-hex", Decimals: 18}
		}},
		{"bad wallet", func(c *Config) { c.Wallet.Address = "0xZZ" }},
		{"empty pairs", func(c *Config) { c.Arbitrage.Pairs = nil }},
		{"negative retries", func(c *Config) { c.Evaluator.MaxRetries = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DEXTER_ETH_HTTP_URL", "http://localhost:8545")
			cfg, err := Load("")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() expected error")
			}
		})
	}
}

func TestCurveFindPool(t *testing.T) {
	cc := CurveConfig{Pools: []CurvePoolConfig{
		{
			Address: "0xD51a44d3FaE010294C616388b506AcdA1bfAAE46",
			Tokens:  []string{"USDT", "WBTC", "ETH"},
			Name:    "tricrypto2",
		},
	}}

	pool, i, j, ok := cc.FindPool("eth", "usdt")
	if !ok {
		t.Fatal("FindPool() ok = false, want true")
	}
	if pool.Name != "tricrypto2" {
		t.Errorf("pool.Name = %q, want tricrypto2", pool.Name)
	}
	if i != 2 || j != 0 {
		t.Errorf("indexes = (%d, %d), want (2, 0)", i, j)
	}

	if _, _, _, ok := cc.FindPool("ETH", "USDC"); ok {
		t.Error("FindPool() found pool for pair not in any pool")
	}
}
