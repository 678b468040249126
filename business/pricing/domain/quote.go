// Package domain contains the core domain types for the pricing context.
package domain

import (
	"time"

	"github.com/dexter-bot/dexter/internal/asset"
	"github.com/shopspring/decimal"
)

// Pair represents a trading pair using typed assets.
type Pair struct {
	Base  *asset.Asset // e.g., ETH
	Quote *asset.Asset // e.g., USDC
}

// NewPair creates a new trading pair.
func NewPair(base, quote *asset.Asset) Pair {
	if base == nil || quote == nil {
		panic("pricing: nil asset in pair")
	}
	return Pair{Base: base, Quote: quote}
}

// String returns the pair symbol (e.g., "ETH-USDC").
func (p Pair) String() string {
	return p.Base.Symbol() + "-" + p.Quote.Symbol()
}

// Invert returns the inverted pair (e.g., ETH-USDC -> USDC-ETH).
func (p Pair) Invert() Pair {
	return Pair{Base: p.Quote, Quote: p.Base}
}

// Quote is one venue's answer to "what does one unit of base cost in
// quote currency, for this trade size".
type Quote struct {
	Venue         string       // venue identifier, e.g. "uniswap_v3"
	Pair          Pair
	Size          asset.Amount // base amount the quote is valid for
	AmountOut     asset.Amount // quote amount received for Size
	Price         asset.Price  // effective price (quote per base)
	LiquidityHint decimal.Decimal
	GasEstimate   uint64
	Timestamp     time.Time
	Latency       time.Duration
}

// NewQuote builds a Quote from a swap result, deriving the effective
// price from the in/out amounts.
func NewQuote(venue string, pair Pair, size, amountOut asset.Amount, gasEstimate uint64, latency time.Duration) Quote {
	rate := decimal.Zero
	if !size.IsZero() {
		rate = amountOut.ToDecimal().Div(size.ToDecimal())
	}
	return Quote{
		Venue:         venue,
		Pair:          pair,
		Size:          size,
		AmountOut:     amountOut,
		Price:         asset.NewPriceNow(pair.Base, pair.Quote, rate),
		LiquidityHint: amountOut.ToDecimal(),
		GasEstimate:   gasEstimate,
		Timestamp:     time.Now(),
		Latency:       latency,
	}
}

// Valid reports whether the quote carries a usable positive price.
func (q Quote) Valid() bool {
	return q.Venue != "" && q.Price.Rate().IsPositive()
}

// Age returns how old the quote is.
func (q Quote) Age() time.Duration {
	return time.Since(q.Timestamp)
}
