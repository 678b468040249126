package app

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/dexter-bot/dexter/business/arbitrage/domain"
	pricingDomain "github.com/dexter-bot/dexter/business/pricing/domain"
	"github.com/dexter-bot/dexter/internal/asset"
	"github.com/dexter-bot/dexter/internal/logger"
	"github.com/shopspring/decimal"
)

func ethUSDCPair() pricingDomain.Pair {
	return pricingDomain.NewPair(asset.ETH, asset.USDC)
}

// makeQuote builds a quote at the given price for 1 ETH of size.
func makeQuote(t *testing.T, venue, price string) pricingDomain.Quote {
	t.Helper()
	pair := ethUSDCPair()
	size, err := asset.ParseString(asset.ETH, "1")
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	out, err := asset.ParseDecimal(asset.USDC, decimal.RequireFromString(price))
	if err != nil {
		t.Fatalf("ParseDecimal: %v", err)
	}
	return pricingDomain.NewQuote(venue, pair, size, out, 150000, time.Millisecond)
}

func newTestDetector(t *testing.T, minProfitPct, gasCostETH string) *Detector {
	t.Helper()
	d, err := NewDetector(DetectorConfig{
		MinProfitPct:       decimal.RequireFromString(minProfitPct),
		GasCostEstimateETH: decimal.RequireFromString(gasCostETH),
	}, logger.New(io.Discard, logger.LevelError, "test", nil))
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}
	return d
}

func TestFindOpportunitiesCrossVenueSpread(t *testing.T) {
	// Gas equivalent to 0.1% of notional: 0.01 ETH flat over a 10 ETH trade.
	d := newTestDetector(t, "0.3", "0.01")
	quotes := []pricingDomain.Quote{
		makeQuote(t, "venue_a", "3245.50"),
		makeQuote(t, "venue_b", "3262.75"),
	}

	opps := d.FindOpportunities(context.Background(), quotes, decimal.RequireFromString("10"))
	if len(opps) != 1 {
		t.Fatalf("got %d opportunities, want 1", len(opps))
	}

	opp := opps[0]
	if opp.BuyVenue != "venue_a" || opp.SellVenue != "venue_b" {
		t.Errorf("route = %s, want buy venue_a, sell venue_b", opp.Route())
	}

	wantGross := decimal.RequireFromString("17.25").
		Div(decimal.RequireFromString("3245.50")).
		Mul(decimal.NewFromInt(100))
	if !opp.GrossProfitPct.Equal(wantGross) {
		t.Errorf("gross = %s, want %s", opp.GrossProfitPct, wantGross)
	}

	// gross ~ 0.531%, net ~ 0.431%
	if opp.GrossProfitPct.Sub(decimal.RequireFromString("0.531")).Abs().GreaterThan(decimal.RequireFromString("0.001")) {
		t.Errorf("gross = %s, want ~0.531", opp.GrossProfitPct)
	}
	if opp.NetProfitPct.Sub(decimal.RequireFromString("0.431")).Abs().GreaterThan(decimal.RequireFromString("0.001")) {
		t.Errorf("net = %s, want ~0.431", opp.NetProfitPct)
	}
}

func TestFindOpportunitiesBelowThreshold(t *testing.T) {
	d := newTestDetector(t, "1.0", "0.01")
	quotes := []pricingDomain.Quote{
		makeQuote(t, "venue_a", "3245.50"),
		makeQuote(t, "venue_b", "3262.75"),
	}

	opps := d.FindOpportunities(context.Background(), quotes, decimal.RequireFromString("10"))
	if len(opps) != 0 {
		t.Fatalf("got %d opportunities, want 0", len(opps))
	}
}

func TestFindOpportunitiesNoSpread(t *testing.T) {
	// Every venue quotes the same price; no ordered pair sells above
	// its buy, so even a zero threshold yields nothing.
	quotes := []pricingDomain.Quote{
		makeQuote(t, "venue_a", "3250"),
		makeQuote(t, "venue_b", "3250"),
		makeQuote(t, "venue_c", "3250"),
	}

	opps := findOpportunities(quotes, decimal.NewFromInt(1), decimal.Zero, decimal.Zero)
	if len(opps) != 0 {
		t.Fatalf("got %d opportunities from equal prices, want 0", len(opps))
	}

	d := newTestDetector(t, "0.1", "0")
	opps = d.FindOpportunities(context.Background(), quotes, decimal.NewFromInt(1))
	if len(opps) != 0 {
		t.Fatalf("detector found %d opportunities from equal prices, want 0", len(opps))
	}

	// A lone quote has no counterparty.
	opps = findOpportunities(quotes[:1], decimal.NewFromInt(1), decimal.Zero, decimal.Zero)
	if len(opps) != 0 {
		t.Fatalf("got %d opportunities from a single venue, want 0", len(opps))
	}
}

func TestFindOpportunitiesNetEqualsGrossMinusGas(t *testing.T) {
	quotes := []pricingDomain.Quote{
		makeQuote(t, "venue_a", "3245.50"),
		makeQuote(t, "venue_b", "3262.75"),
		makeQuote(t, "venue_c", "3258.10"),
	}

	opps := findOpportunities(quotes, decimal.NewFromInt(10),
		decimal.Zero, decimal.RequireFromString("0.01"))
	if len(opps) == 0 {
		t.Fatal("expected opportunities")
	}
	for _, opp := range opps {
		want := opp.GrossProfitPct.Sub(opp.GasCostPct)
		if !opp.NetProfitPct.Equal(want) {
			t.Errorf("%s: net = %s, want gross - gas = %s", opp.Route(), opp.NetProfitPct, want)
		}
	}
}

func TestFindOpportunitiesSortedAndPermutationInvariant(t *testing.T) {
	a := makeQuote(t, "venue_a", "3240.00")
	b := makeQuote(t, "venue_b", "3255.00")
	c := makeQuote(t, "venue_c", "3262.75")

	orderings := [][]pricingDomain.Quote{
		{a, b, c},
		{c, b, a},
		{b, c, a},
	}

	type key struct {
		buy, sell string
		net       string
	}
	var first []key
	for i, quotes := range orderings {
		opps := findOpportunities(quotes, decimal.NewFromInt(10),
			decimal.RequireFromString("0.05"), decimal.RequireFromString("0.01"))

		keys := make([]key, len(opps))
		for j, opp := range opps {
			keys[j] = key{opp.BuyVenue, opp.SellVenue, opp.NetProfitPct.String()}
		}

		// Sorted by net profit descending.
		for j := 1; j < len(opps); j++ {
			if opps[j].NetProfitPct.GreaterThan(opps[j-1].NetProfitPct) {
				t.Errorf("ordering %d: result not sorted at index %d", i, j)
			}
		}

		if i == 0 {
			first = keys
			continue
		}
		if len(keys) != len(first) {
			t.Fatalf("ordering %d: got %d opportunities, want %d", i, len(keys), len(first))
		}
		for j := range keys {
			if keys[j] != first[j] {
				t.Errorf("ordering %d: result differs at index %d: %+v vs %+v", i, j, keys[j], first[j])
			}
		}
	}
}

func TestFindOpportunitiesInclusiveBoundary(t *testing.T) {
	// buy 3200, sell 3232: gross = 1% exactly. No gas. Threshold 1%.
	quotes := []pricingDomain.Quote{
		makeQuote(t, "venue_a", "3200"),
		makeQuote(t, "venue_b", "3232"),
	}

	opps := findOpportunities(quotes, decimal.NewFromInt(1),
		decimal.NewFromInt(1), decimal.Zero)
	if len(opps) != 1 {
		t.Fatalf("net profit equal to threshold must pass, got %d opportunities", len(opps))
	}
	if !opps[0].NetProfitPct.Equal(decimal.NewFromInt(1)) {
		t.Errorf("net = %s, want exactly 1", opps[0].NetProfitPct)
	}
}

func TestNewOpportunityGasConversion(t *testing.T) {
	buy := makeQuote(t, "venue_a", "3245.50")
	sell := makeQuote(t, "venue_b", "3262.75")

	// 0.01 ETH of gas over a 10 ETH trade is 0.1% of notional
	// regardless of the ETH price.
	gasQuote := domain.FlatGasCostQuote(decimal.RequireFromString("0.01"), buy.Price.Rate())
	opp := domain.NewOpportunity(buy, sell, decimal.NewFromInt(10), gasQuote)

	if !opp.GasCostPct.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("gas pct = %s, want 0.1", opp.GasCostPct)
	}
}
