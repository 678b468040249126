// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig              `mapstructure:"app"`
	Ethereum  EthereumConfig         `mapstructure:"ethereum"`
	Wallet    WalletConfig           `mapstructure:"wallet"`
	Tokens    map[string]TokenConfig `mapstructure:"tokens"`
	Venues    VenuesConfig           `mapstructure:"venues"`
	Pricing   PricingConfig          `mapstructure:"pricing"`
	Arbitrage ArbitrageConfig        `mapstructure:"arbitrage"`
	Evaluator EvaluatorConfig        `mapstructure:"evaluator"`
	Alchemy   AlchemyConfig          `mapstructure:"alchemy"`
	Telemetry TelemetryConfig        `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	UI          string `mapstructure:"ui"` // "console" or "tui"
}

// EthereumConfig holds Ethereum node configuration.
type EthereumConfig struct {
	HTTPURL     string        `mapstructure:"http_url"`
	WSURL       string        `mapstructure:"ws_url"` // optional, enables the newHeads stream
	ChainID     uint64        `mapstructure:"chain_id"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

// WalletConfig holds the agent wallet configuration. The private key is
// read from the environment, never from the config file.
type WalletConfig struct {
	Address       string `mapstructure:"address"`
	PrivateKeyEnv string `mapstructure:"private_key_env"`
}

// AddressHex returns the configured wallet address as common.Address.
func (c *WalletConfig) AddressHex() common.Address {
	return common.HexToAddress(c.Address)
}

// TokenConfig describes one token the agent can trade.
type TokenConfig struct {
	Address  string `mapstructure:"address"`
	Decimals uint8  `mapstructure:"decimals"`
	Name     string `mapstructure:"name"`
}

// AddressHex returns the token address as common.Address.
func (c *TokenConfig) AddressHex() common.Address {
	return common.HexToAddress(c.Address)
}

// VenuesConfig holds per-venue contract addresses.
type VenuesConfig struct {
	UniswapV3 UniswapV3Config `mapstructure:"uniswap_v3"`
	Sushiswap SushiswapConfig `mapstructure:"sushiswap"`
	Curve     CurveConfig     `mapstructure:"curve"`
	OneInch   OneInchConfig   `mapstructure:"oneinch"`
}

// UniswapV3Config holds Uniswap V3 contract addresses.
type UniswapV3Config struct {
	Enabled        bool   `mapstructure:"enabled"`
	QuoterAddress  string `mapstructure:"quoter_address"`
	RouterAddress  string `mapstructure:"router_address"`
	FactoryAddress string `mapstructure:"factory_address"`
	DefaultFeeTier int    `mapstructure:"default_fee_tier"`
}

// QuoterAddressHex returns the quoter address as common.Address.
func (c *UniswapV3Config) QuoterAddressHex() common.Address {
	return common.HexToAddress(c.QuoterAddress)
}

// RouterAddressHex returns the router address as common.Address.
func (c *UniswapV3Config) RouterAddressHex() common.Address {
	return common.HexToAddress(c.RouterAddress)
}

// SushiswapConfig holds the SushiSwap V2 router address.
type SushiswapConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	RouterAddress string `mapstructure:"router_address"`
}

// RouterAddressHex returns the router address as common.Address.
func (c *SushiswapConfig) RouterAddressHex() common.Address {
	return common.HexToAddress(c.RouterAddress)
}

// CurvePoolConfig describes one Curve pool and the tokens it holds, in
// coin-index order.
type CurvePoolConfig struct {
	Address string   `mapstructure:"address"`
	Tokens  []string `mapstructure:"tokens"`
	Name    string   `mapstructure:"name"`
}

// AddressHex returns the pool address as common.Address.
func (c *CurvePoolConfig) AddressHex() common.Address {
	return common.HexToAddress(c.Address)
}

// CurveConfig holds Curve pool configuration.
type CurveConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	Pools   []CurvePoolConfig `mapstructure:"pools"`
}

// FindPool returns the first pool containing both token symbols and the
// coin indexes of each, or ok=false.
func (c *CurveConfig) FindPool(base, quote string) (pool CurvePoolConfig, i, j int, ok bool) {
	for _, p := range c.Pools {
		bi, qi := -1, -1
		for idx, sym := range p.Tokens {
			switch strings.ToUpper(sym) {
			case strings.ToUpper(base):
				bi = idx
			case strings.ToUpper(quote):
				qi = idx
			}
		}
		if bi >= 0 && qi >= 0 {
			return p, bi, qi, true
		}
	}
	return CurvePoolConfig{}, 0, 0, false
}

// OneInchConfig holds 1inch spot price API configuration.
type OneInchConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	BaseURL           string `mapstructure:"base_url"`
	APIKeyEnv         string `mapstructure:"api_key_env"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
}

// PricingConfig holds aggregator fan-out settings.
type PricingConfig struct {
	VenueTimeout   time.Duration `mapstructure:"venue_timeout"`
	OverallTimeout time.Duration `mapstructure:"overall_timeout"`
}

// ArbitrageConfig holds arbitrage detection configuration.
type ArbitrageConfig struct {
	Pairs              []string  `mapstructure:"pairs"`
	TradeSizes         []float64 `mapstructure:"trade_sizes"`
	MinProfitPct       float64   `mapstructure:"min_profit_pct"`
	GasCostEstimateETH float64   `mapstructure:"gas_cost_estimate_eth"`
	DefaultGasLimit    uint64    `mapstructure:"default_gas_limit"`

	// AutoDraft runs the top detected opportunity through the drafting
	// and evaluation loop and reports the outcome. Nothing is submitted.
	AutoDraft bool `mapstructure:"auto_draft"`
}

// TradeSizesDecimal returns trade sizes as decimal.Decimal slice.
func (c *ArbitrageConfig) TradeSizesDecimal() []decimal.Decimal {
	result := make([]decimal.Decimal, len(c.TradeSizes))
	for i, s := range c.TradeSizes {
		result[i] = decimal.NewFromFloat(s)
	}
	return result
}

// MinProfitPctDecimal returns the minimum profit threshold as decimal.
func (c *ArbitrageConfig) MinProfitPctDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinProfitPct)
}

// GasCostEstimateETHDecimal returns the flat gas estimate as decimal.
func (c *ArbitrageConfig) GasCostEstimateETHDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.GasCostEstimateETH)
}

// EvaluatorConfig holds draft evaluation settings.
type EvaluatorConfig struct {
	MaxRetries            int     `mapstructure:"max_retries"`
	MaxSlippagePct        float64 `mapstructure:"max_slippage_pct"`
	MaxValueWithoutReview string  `mapstructure:"max_value_without_review"` // wei, decimal string
	GasThresholds         GasThresholdsConfig `mapstructure:"gas_thresholds"`
}

// MaxSlippagePctDecimal returns the slippage ceiling as decimal.
func (c *EvaluatorConfig) MaxSlippagePctDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxSlippagePct)
}

// MaxValueWithoutReviewWei returns the value ceiling as a big integer.
// Falls back to 1 ETH when the configured string is unparseable.
func (c *EvaluatorConfig) MaxValueWithoutReviewWei() *big.Int {
	v, ok := new(big.Int).SetString(c.MaxValueWithoutReview, 10)
	if !ok {
		return new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	}
	return v
}

// AlchemyConfig holds the transaction simulation endpoint settings.
type AlchemyConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	BaseURL   string `mapstructure:"base_url"`
	APIKeyEnv string `mapstructure:"api_key_env"`
}

// GasThresholdsConfig holds per-transaction-kind gas limit ceilings.
type GasThresholdsConfig struct {
	EthTransfer   uint64 `mapstructure:"eth_transfer"`
	ERC20Transfer uint64 `mapstructure:"erc20_transfer"`
	SimpleSwap    uint64 `mapstructure:"simple_swap"`
	ComplexSwap   uint64 `mapstructure:"complex_swap"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
	HealthPort     int    `mapstructure:"health_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("DEXTER")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "DEXTER_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "DEXTER_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "DEXTER_LOG_LEVEL", "LOG_LEVEL")
	v.BindEnv("app.ui", "DEXTER_UI")

	// Ethereum
	v.BindEnv("ethereum.http_url", "DEXTER_ETH_HTTP_URL", "ETH_HTTP_URL")
	v.BindEnv("ethereum.ws_url", "DEXTER_ETH_WS_URL", "ETH_WS_URL")
	v.BindEnv("ethereum.chain_id", "DEXTER_ETH_CHAIN_ID", "ETH_CHAIN_ID")

	// Wallet
	v.BindEnv("wallet.address", "DEXTER_WALLET_ADDRESS")

	// Venues
	v.BindEnv("venues.uniswap_v3.quoter_address", "DEXTER_UNISWAP_QUOTER")
	v.BindEnv("venues.uniswap_v3.router_address", "DEXTER_UNISWAP_ROUTER")
	v.BindEnv("venues.sushiswap.router_address", "DEXTER_SUSHISWAP_ROUTER")
	v.BindEnv("venues.oneinch.base_url", "DEXTER_ONEINCH_BASE_URL")

	// Arbitrage
	v.BindEnv("arbitrage.pairs", "DEXTER_PAIRS")
	v.BindEnv("arbitrage.min_profit_pct", "DEXTER_MIN_PROFIT_PCT")
	v.BindEnv("arbitrage.gas_cost_estimate_eth", "DEXTER_GAS_COST_ESTIMATE_ETH")
	v.BindEnv("arbitrage.auto_draft", "DEXTER_AUTO_DRAFT")

	// Evaluator
	v.BindEnv("evaluator.max_retries", "DEXTER_MAX_RETRIES")

	// Telemetry
	v.BindEnv("telemetry.enabled", "DEXTER_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "DEXTER_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "DEXTER_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "dexter")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.ui", "console")

	// Ethereum defaults
	v.SetDefault("ethereum.chain_id", 1)
	v.SetDefault("ethereum.call_timeout", "10s")

	// Wallet defaults
	v.SetDefault("wallet.private_key_env", "AGENT_ETH_KEY")

	// Token defaults (Ethereum mainnet)
	v.SetDefault("tokens.WETH.address", "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	v.SetDefault("tokens.WETH.decimals", 18)
	v.SetDefault("tokens.USDC.address", "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	v.SetDefault("tokens.USDC.decimals", 6)
	v.SetDefault("tokens.USDT.address", "0xdAC17F958D2ee523a2206206994597C13D831ec7")
	v.SetDefault("tokens.USDT.decimals", 6)
	v.SetDefault("tokens.DAI.address", "0x6B175474E89094C44Da98b954EedeAC495271d0F")
	v.SetDefault("tokens.DAI.decimals", 18)

	// Uniswap V3 mainnet defaults
	v.SetDefault("venues.uniswap_v3.enabled", true)
	v.SetDefault("venues.uniswap_v3.quoter_address", "0x61fFE014bA17989E743c5F6cB21bF9697530B21e")
	v.SetDefault("venues.uniswap_v3.router_address", "0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45")
	v.SetDefault("venues.uniswap_v3.factory_address", "0x1F98431c8aD98523631AE4a59f267346ea31F984")
	v.SetDefault("venues.uniswap_v3.default_fee_tier", 3000) // 0.3%

	// SushiSwap V2 mainnet defaults
	v.SetDefault("venues.sushiswap.enabled", true)
	v.SetDefault("venues.sushiswap.router_address", "0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F")

	// Curve mainnet defaults (TriCrypto USDT/WBTC/ETH)
	v.SetDefault("venues.curve.enabled", true)
	v.SetDefault("venues.curve.pools", []map[string]any{
		{
			"address": "0xD51a44d3FaE010294C616388b506AcdA1bfAAE46",
			"tokens":  []string{"USDT", "WBTC", "ETH"},
			"name":    "tricrypto2",
		},
	})

	// 1inch spot price API defaults
	v.SetDefault("venues.oneinch.enabled", true)
	v.SetDefault("venues.oneinch.base_url", "https://api.1inch.dev")
	v.SetDefault("venues.oneinch.api_key_env", "ONEINCH_API_KEY")
	v.SetDefault("venues.oneinch.requests_per_minute", 60)

	// Pricing defaults
	v.SetDefault("pricing.venue_timeout", "5s")
	v.SetDefault("pricing.overall_timeout", "15s")

	// Arbitrage defaults
	v.SetDefault("arbitrage.pairs", []string{"ETH/USDC"})
	v.SetDefault("arbitrage.trade_sizes", []float64{0.1, 0.5, 1.0})
	v.SetDefault("arbitrage.min_profit_pct", 0.5)
	v.SetDefault("arbitrage.gas_cost_estimate_eth", 0.01)
	v.SetDefault("arbitrage.default_gas_limit", 200000)
	v.SetDefault("arbitrage.auto_draft", false)

	// Evaluator defaults
	v.SetDefault("evaluator.max_retries", 3)
	v.SetDefault("evaluator.max_slippage_pct", 2.0)
	v.SetDefault("evaluator.max_value_without_review", "1000000000000000000") // 1 ETH
	v.SetDefault("evaluator.gas_thresholds.eth_transfer", 21000)
	v.SetDefault("evaluator.gas_thresholds.erc20_transfer", 65000)
	v.SetDefault("evaluator.gas_thresholds.simple_swap", 150000)
	v.SetDefault("evaluator.gas_thresholds.complex_swap", 300000)

	v.SetDefault("alchemy.enabled", false)
	v.SetDefault("alchemy.base_url", "https://eth-mainnet.g.alchemy.com")
	v.SetDefault("alchemy.api_key_env", "ALCHEMY_API_KEY")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "dexter")
	v.SetDefault("telemetry.prometheus_port", 9090)
	v.SetDefault("telemetry.health_port", 8081)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ethereum.HTTPURL == "" {
		return fmt.Errorf("ethereum.http_url is required")
	}
	if c.Venues.UniswapV3.Enabled && !common.IsHexAddress(c.Venues.UniswapV3.QuoterAddress) {
		return fmt.Errorf("invalid venues.uniswap_v3.quoter_address: %s", c.Venues.UniswapV3.QuoterAddress)
	}
	if c.Venues.UniswapV3.Enabled && !common.IsHexAddress(c.Venues.UniswapV3.RouterAddress) {
		return fmt.Errorf("invalid venues.uniswap_v3.router_address: %s", c.Venues.UniswapV3.RouterAddress)
	}
	if c.Venues.Sushiswap.Enabled && !common.IsHexAddress(c.Venues.Sushiswap.RouterAddress) {
		return fmt.Errorf("invalid venues.sushiswap.router_address: %s", c.Venues.Sushiswap.RouterAddress)
	}
	for _, p := range c.Venues.Curve.Pools {
		if !common.IsHexAddress(p.Address) {
			return fmt.Errorf("invalid curve pool address: %s", p.Address)
		}
		if len(p.Tokens) < 2 {
			return fmt.Errorf("curve pool %s needs at least two tokens", p.Address)
		}
	}
	for sym, tok := range c.Tokens {
		if !common.IsHexAddress(tok.Address) {
			return fmt.Errorf("invalid address for token %s: %s", sym, tok.Address)
		}
	}
	if c.Wallet.Address != "" && !common.IsHexAddress(c.Wallet.Address) {
		return fmt.Errorf("invalid wallet.address: %s", c.Wallet.Address)
	}
	if len(c.Arbitrage.Pairs) == 0 {
		return fmt.Errorf("arbitrage.pairs cannot be empty")
	}
	if c.Evaluator.MaxRetries < 0 {
		return fmt.Errorf("evaluator.max_retries cannot be negative")
	}
	return nil
}
