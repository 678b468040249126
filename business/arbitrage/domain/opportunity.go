// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	"fmt"
	"time"

	pricingDomain "github.com/dexter-bot/dexter/business/pricing/domain"
	"github.com/shopspring/decimal"
)

// Opportunity is a buy-low/sell-high pairing across two venues.
type Opportunity struct {
	ID        string
	Pair      pricingDomain.Pair
	TradeSize decimal.Decimal // in base units

	BuyVenue  string
	BuyPrice  decimal.Decimal
	SellVenue string
	SellPrice decimal.Decimal

	GrossProfitPct decimal.Decimal
	GasCostPct     decimal.Decimal
	NetProfitPct   decimal.Decimal

	BuyQuote  *pricingDomain.Quote
	SellQuote *pricingDomain.Quote

	Timestamp time.Time
}

// NewOpportunity builds an Opportunity from a buy and sell quote,
// deriving the profit percentages. gasCostQuote is the flat gas
// estimate expressed in the pair's quote currency.
//
//	gross = (sell - buy) / buy * 100
//	net   = gross - gasCostQuote / (buy * size) * 100
func NewOpportunity(buy, sell pricingDomain.Quote, tradeSize, gasCostQuote decimal.Decimal) Opportunity {
	buyPrice := buy.Price.Rate()
	sellPrice := sell.Price.Rate()

	hundred := decimal.NewFromInt(100)
	gross := sellPrice.Sub(buyPrice).Div(buyPrice).Mul(hundred)

	notional := buyPrice.Mul(tradeSize)
	gasPct := decimal.Zero
	if notional.IsPositive() {
		gasPct = gasCostQuote.Div(notional).Mul(hundred)
	}

	return Opportunity{
		ID:             fmt.Sprintf("%s:%s>%s:%d", buy.Pair, buy.Venue, sell.Venue, time.Now().UnixNano()),
		Pair:           buy.Pair,
		TradeSize:      tradeSize,
		BuyVenue:       buy.Venue,
		BuyPrice:       buyPrice,
		SellVenue:      sell.Venue,
		SellPrice:      sellPrice,
		GrossProfitPct: gross,
		GasCostPct:     gasPct,
		NetProfitPct:   gross.Sub(gasPct),
		BuyQuote:       &buy,
		SellQuote:      &sell,
		Timestamp:      time.Now(),
	}
}

// Route returns a human-readable venue routing, e.g.
// "buy sushiswap, sell uniswap_v3".
func (o *Opportunity) Route() string {
	return fmt.Sprintf("buy %s, sell %s", o.BuyVenue, o.SellVenue)
}

// GrossProfitQuote returns the gross profit in quote currency for the
// trade size.
func (o *Opportunity) GrossProfitQuote() decimal.Decimal {
	return o.SellPrice.Sub(o.BuyPrice).Mul(o.TradeSize)
}

// NetProfitQuote returns the net profit in quote currency for the
// trade size.
func (o *Opportunity) NetProfitQuote() decimal.Decimal {
	return o.NetProfitPct.Div(decimal.NewFromInt(100)).Mul(o.BuyPrice.Mul(o.TradeSize))
}
