package app

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/dexter-bot/dexter/business/pricing/domain"
	"github.com/dexter-bot/dexter/internal/asset"
	"github.com/dexter-bot/dexter/internal/logger"
)

type stubProvider struct {
	id    string
	price string
	err   error
	delay time.Duration
	calls int
}

func (s *stubProvider) ID() string { return s.id }

func (s *stubProvider) FetchQuote(ctx context.Context, pair domain.Pair, size asset.Amount) (*domain.Quote, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	out, err := asset.ParseString(pair.Quote, s.price)
	if err != nil {
		return nil, err
	}
	q := domain.NewQuote(s.id, pair, size, out, 150000, time.Millisecond)
	return &q, nil
}

func testPairAndSize(t *testing.T) (domain.Pair, asset.Amount) {
	t.Helper()
	reg := asset.DefaultRegistry()
	eth, ok := reg.GetBySymbolAndChain("ETH", asset.ChainIDEthereum)
	if !ok {
		t.Fatal("ETH not in default registry")
	}
	usdc, ok := reg.GetBySymbolAndChain("USDC", asset.ChainIDEthereum)
	if !ok {
		t.Fatal("USDC not in default registry")
	}
	size, err := asset.ParseString(eth, "1")
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	return domain.NewPair(eth, usdc), size
}

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

func newTestAggregator(t *testing.T, providers ...VenueProvider) *Aggregator {
	t.Helper()
	agg, err := NewAggregator(providers, AggregatorConfig{
		VenueTimeout: 50 * time.Millisecond,
		CacheTTL:     time.Minute,
	}, testLogger())
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}
	t.Cleanup(agg.Close)
	return agg
}

func TestFetchAllSkipsFailedVenues(t *testing.T) {
	pair, size := testPairAndSize(t)

	agg := newTestAggregator(t,
		&stubProvider{id: "uniswap_v3", price: "3250"},
		&stubProvider{id: "sushiswap", price: "3245"},
		&stubProvider{id: "curve", err: errors.New("pool unavailable")},
	)

	quotes := agg.FetchAll(context.Background(), pair, size)
	if len(quotes) != 2 {
		t.Fatalf("got %d quotes, want 2", len(quotes))
	}
	// Ordered by venue id.
	if quotes[0].Venue != "sushiswap" || quotes[1].Venue != "uniswap_v3" {
		t.Errorf("venue order = [%s, %s], want [sushiswap, uniswap_v3]",
			quotes[0].Venue, quotes[1].Venue)
	}
}

func TestFetchAllTimesOutSlowVenue(t *testing.T) {
	pair, size := testPairAndSize(t)

	agg := newTestAggregator(t,
		&stubProvider{id: "uniswap_v3", price: "3250"},
		&stubProvider{id: "oneinch", price: "3248", delay: 500 * time.Millisecond},
	)

	quotes := agg.FetchAll(context.Background(), pair, size)
	if len(quotes) != 1 {
		t.Fatalf("got %d quotes, want 1", len(quotes))
	}
	if quotes[0].Venue != "uniswap_v3" {
		t.Errorf("venue = %s, want uniswap_v3", quotes[0].Venue)
	}
}

func TestFetchAllEmptyWhenAllFail(t *testing.T) {
	pair, size := testPairAndSize(t)

	agg := newTestAggregator(t,
		&stubProvider{id: "uniswap_v3", err: errors.New("rpc down")},
		&stubProvider{id: "sushiswap", err: errors.New("rpc down")},
	)

	quotes := agg.FetchAll(context.Background(), pair, size)
	if quotes == nil {
		t.Fatal("FetchAll returned nil, want empty slice")
	}
	if len(quotes) != 0 {
		t.Fatalf("got %d quotes, want 0", len(quotes))
	}
}

func TestFetchAllSkipsInvalidQuote(t *testing.T) {
	pair, size := testPairAndSize(t)

	agg := newTestAggregator(t,
		&stubProvider{id: "uniswap_v3", price: "3250"},
		&stubProvider{id: "sushiswap", price: "0"},
	)

	quotes := agg.FetchAll(context.Background(), pair, size)
	if len(quotes) != 1 {
		t.Fatalf("got %d quotes, want 1", len(quotes))
	}
	if quotes[0].Venue != "uniswap_v3" {
		t.Errorf("venue = %s, want uniswap_v3", quotes[0].Venue)
	}
}

func TestFetchAllCachesResults(t *testing.T) {
	pair, size := testPairAndSize(t)

	uni := &stubProvider{id: "uniswap_v3", price: "3250"}
	agg := newTestAggregator(t, uni)

	agg.FetchAll(context.Background(), pair, size)
	agg.FetchAll(context.Background(), pair, size)

	if uni.calls != 1 {
		t.Errorf("provider called %d times, want 1 (second fetch cached)", uni.calls)
	}
}
