package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/dexter-bot/dexter/business/pricing/domain"
	"github.com/dexter-bot/dexter/internal/asset"
	"github.com/dexter-bot/dexter/internal/cache"
	"github.com/dexter-bot/dexter/internal/logger"
)

const (
	tracerName = "pricing"
	meterName  = "pricing"

	defaultVenueTimeout = 5 * time.Second
	quoteCacheTTL       = 2 * time.Second
)

// AggregatorConfig holds aggregator tuning.
type AggregatorConfig struct {
	VenueTimeout time.Duration
	CacheTTL     time.Duration
}

type aggregatorMetrics struct {
	fetchesTotal  metric.Int64Counter
	venueFailures metric.Int64Counter
	fetchLatency  metric.Float64Histogram
}

// Aggregator fans a quote request out to all registered venues and
// collects the valid responses.
type Aggregator struct {
	providers    []VenueProvider
	venueTimeout time.Duration

	cache    *cache.Cache[string, []domain.Quote]
	cacheTTL time.Duration

	logger  logger.LoggerInterface
	tracer  trace.Tracer
	metrics *aggregatorMetrics
}

// NewAggregator creates an Aggregator over the given venue providers.
func NewAggregator(providers []VenueProvider, cfg AggregatorConfig, log logger.LoggerInterface) (*Aggregator, error) {
	if cfg.VenueTimeout <= 0 {
		cfg.VenueTimeout = defaultVenueTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = quoteCacheTTL
	}

	a := &Aggregator{
		providers:    providers,
		venueTimeout: cfg.VenueTimeout,
		cache:        cache.New[string, []domain.Quote](30 * time.Second),
		cacheTTL:     cfg.CacheTTL,
		logger:       log,
		tracer:       otel.Tracer(tracerName),
	}

	if err := a.initMetrics(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Aggregator) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	a.metrics = &aggregatorMetrics{}

	a.metrics.fetchesTotal, err = meter.Int64Counter(
		"pricing_fetches_total",
		metric.WithDescription("Total quote fan-out requests"),
	)
	if err != nil {
		return err
	}

	a.metrics.venueFailures, err = meter.Int64Counter(
		"pricing_venue_failures_total",
		metric.WithDescription("Venue fetch failures, by venue"),
	)
	if err != nil {
		return err
	}

	a.metrics.fetchLatency, err = meter.Float64Histogram(
		"pricing_fetch_latency_ms",
		metric.WithDescription("Fan-out latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	return err
}

// FetchAll queries every venue concurrently and returns the valid
// quotes, ordered by venue id. Venue failures are logged and skipped;
// when every venue fails the result is empty, not an error.
func (a *Aggregator) FetchAll(ctx context.Context, pair domain.Pair, size asset.Amount) []domain.Quote {
	ctx, span := a.tracer.Start(ctx, "pricing.fetch_all",
		trace.WithAttributes(
			attribute.String("pair", pair.String()),
			attribute.String("size", size.String()),
		),
	)
	defer span.End()

	cacheKey := pair.String() + "/" + size.Raw().String()
	if cached, ok := a.cache.Get(ctx, cacheKey); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return cached
	}

	start := time.Now()
	a.metrics.fetchesTotal.Add(ctx, 1)

	results := make([]*domain.Quote, len(a.providers))
	var wg sync.WaitGroup
	for i, p := range a.providers {
		wg.Add(1)
		go func(i int, p VenueProvider) {
			defer wg.Done()

			vctx, cancel := context.WithTimeout(ctx, a.venueTimeout)
			defer cancel()

			q, err := p.FetchQuote(vctx, pair, size)
			if err != nil {
				a.metrics.venueFailures.Add(ctx, 1,
					metric.WithAttributes(attribute.String("venue", p.ID())))
				a.logger.Warn(ctx, "venue quote failed",
					"venue", p.ID(),
					"pair", pair.String(),
					"error", err)
				return
			}
			if q == nil || !q.Valid() {
				a.logger.Warn(ctx, "venue returned invalid quote",
					"venue", p.ID(),
					"pair", pair.String())
				return
			}
			results[i] = q
		}(i, p)
	}
	wg.Wait()

	quotes := make([]domain.Quote, 0, len(results))
	for _, q := range results {
		if q != nil {
			quotes = append(quotes, *q)
		}
	}
	sort.Slice(quotes, func(i, j int) bool {
		return quotes[i].Venue < quotes[j].Venue
	})

	a.metrics.fetchLatency.Record(ctx, float64(time.Since(start).Milliseconds()))
	span.SetAttributes(
		attribute.Int("venues_queried", len(a.providers)),
		attribute.Int("quotes_returned", len(quotes)),
	)

	if len(quotes) == 0 {
		a.logger.Warn(ctx, "all venues failed", "pair", pair.String())
		return quotes
	}

	a.cache.Set(ctx, cacheKey, quotes, a.cacheTTL)
	return quotes
}

// Close releases the aggregator's cache resources.
func (a *Aggregator) Close() {
	a.cache.Close()
}
