// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/dexter-bot/dexter/business/arbitrage/domain"
	pricingDomain "github.com/dexter-bot/dexter/business/pricing/domain"
	"github.com/dexter-bot/dexter/internal/logger"
	"github.com/shopspring/decimal"
)

const (
	tracerName = "arbitrage"
	meterName  = "arbitrage"
)

// DetectorConfig holds detection thresholds.
type DetectorConfig struct {
	// MinProfitPct is the minimum net profit percentage for an
	// opportunity to be kept. The comparison is inclusive: an
	// opportunity whose net profit equals the threshold passes.
	MinProfitPct decimal.Decimal

	// GasCostEstimateETH is the flat per-trade gas estimate in ETH.
	GasCostEstimateETH decimal.Decimal
}

type detectorMetrics struct {
	scansTotal         metric.Int64Counter
	opportunitiesFound metric.Int64Counter
}

// Detector finds profitable cross-venue pairings in a set of quotes.
type Detector struct {
	cfg     DetectorConfig
	logger  logger.LoggerInterface
	tracer  trace.Tracer
	metrics *detectorMetrics
}

// NewDetector creates a new Detector.
func NewDetector(cfg DetectorConfig, log logger.LoggerInterface) (*Detector, error) {
	d := &Detector{
		cfg:    cfg,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}
	if err := d.initMetrics(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Detector) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	d.metrics = &detectorMetrics{}

	d.metrics.scansTotal, err = meter.Int64Counter(
		"arbitrage_scans_total",
		metric.WithDescription("Total detection scans"),
	)
	if err != nil {
		return err
	}

	d.metrics.opportunitiesFound, err = meter.Int64Counter(
		"arbitrage_opportunities_total",
		metric.WithDescription("Opportunities clearing the profit threshold"),
	)
	return err
}

// FindOpportunities examines every ordered venue pairing in quotes and
// returns those whose net profit clears the configured threshold,
// sorted by net profit descending. Ties break by gross profit
// descending, then by buy/sell venue id for determinism. An empty
// result is a normal outcome, not an error.
func (d *Detector) FindOpportunities(ctx context.Context, quotes []pricingDomain.Quote, tradeSize decimal.Decimal) []domain.Opportunity {
	ctx, span := d.tracer.Start(ctx, "arbitrage.find_opportunities",
		trace.WithAttributes(
			attribute.Int("quotes", len(quotes)),
			attribute.String("trade_size", tradeSize.String()),
		),
	)
	defer span.End()

	d.metrics.scansTotal.Add(ctx, 1)

	opps := findOpportunities(quotes, tradeSize, d.cfg.MinProfitPct, d.cfg.GasCostEstimateETH)

	span.SetAttributes(attribute.Int("opportunities", len(opps)))
	if len(opps) > 0 {
		d.metrics.opportunitiesFound.Add(ctx, int64(len(opps)))
		best := opps[0]
		d.logger.Info(ctx, "opportunities detected",
			"pair", best.Pair.String(),
			"count", len(opps),
			"best_route", best.Route(),
			"best_net_pct", best.NetProfitPct.StringFixed(4),
		)
	}

	return opps
}

// findOpportunities is the pure detection core, separated so its
// semantics are testable without a Detector.
func findOpportunities(quotes []pricingDomain.Quote, tradeSize, minProfitPct, gasCostETH decimal.Decimal) []domain.Opportunity {
	opps := make([]domain.Opportunity, 0)

	for _, buy := range quotes {
		for _, sell := range quotes {
			if buy.Venue == sell.Venue {
				continue
			}
			if sell.Price.Rate().LessThanOrEqual(buy.Price.Rate()) {
				continue
			}

			// The flat ETH gas estimate converts to quote currency at
			// the buy price when the pair's base is ETH; otherwise the
			// buy quote's view of ETH is unavailable and the estimate
			// is treated as already quote-denominated.
			gasCostQuote := gasCostETH
			if buy.Pair.Base.Symbol() == "ETH" || buy.Pair.Base.Symbol() == "WETH" {
				gasCostQuote = domain.FlatGasCostQuote(gasCostETH, buy.Price.Rate())
			}

			opp := domain.NewOpportunity(buy, sell, tradeSize, gasCostQuote)
			if opp.NetProfitPct.GreaterThanOrEqual(minProfitPct) {
				opps = append(opps, opp)
			}
		}
	}

	sort.SliceStable(opps, func(i, j int) bool {
		if !opps[i].NetProfitPct.Equal(opps[j].NetProfitPct) {
			return opps[i].NetProfitPct.GreaterThan(opps[j].NetProfitPct)
		}
		if !opps[i].GrossProfitPct.Equal(opps[j].GrossProfitPct) {
			return opps[i].GrossProfitPct.GreaterThan(opps[j].GrossProfitPct)
		}
		if opps[i].BuyVenue != opps[j].BuyVenue {
			return opps[i].BuyVenue < opps[j].BuyVenue
		}
		return opps[i].SellVenue < opps[j].SellVenue
	})

	return opps
}
