// Package curve implements the pricing VenueProvider for Curve pools.
//
// Pools are looked up from configuration by the symbols of the pair;
// Curve identifies native ETH in pool coin lists with the sentinel
// address 0xEeee...EEeE rather than the zero address.
package curve

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dexter-bot/dexter/business/pricing/app"
	"github.com/dexter-bot/dexter/business/pricing/domain"
	"github.com/dexter-bot/dexter/internal/apperror"
	"github.com/dexter-bot/dexter/internal/asset"
	"github.com/dexter-bot/dexter/internal/circuitbreaker"
	"github.com/dexter-bot/dexter/internal/config"
	"github.com/dexter-bot/dexter/internal/logger"
)

const (
	// VenueID is the stable identifier this provider reports in quotes.
	VenueID = "curve"

	tracerName = "curve"
)

var _ app.VenueProvider = (*Provider)(nil)

// Provider implements VenueProvider for Curve.
type Provider struct {
	client  *ethclient.Client
	cfg     config.CurveConfig
	poolABI abi.ABI

	logger logger.LoggerInterface
	cb     *circuitbreaker.CircuitBreaker[[]byte]
	tracer trace.Tracer
}

// NewProvider creates a new Curve provider.
func NewProvider(client *ethclient.Client, cfg config.CurveConfig, log logger.LoggerInterface) (*Provider, error) {
	parsedABI, err := abi.JSON(strings.NewReader(PoolABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool ABI: %w", err)
	}

	return &Provider{
		client:  client,
		cfg:     cfg,
		poolABI: parsedABI,
		logger:  log,
		cb:      circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("curve-pool")),
		tracer:  otel.Tracer(tracerName),
	}, nil
}

// ID returns the venue identifier.
func (p *Provider) ID() string { return VenueID }

// FetchQuote quotes selling size of the pair's base into its quote
// asset via the first configured pool holding both coins.
func (p *Provider) FetchQuote(ctx context.Context, pair domain.Pair, size asset.Amount) (*domain.Quote, error) {
	ctx, span := p.tracer.Start(ctx, "curve.fetch_quote",
		trace.WithAttributes(
			attribute.String("pair", pair.String()),
			attribute.String("size", size.String()),
		),
	)
	defer span.End()

	pool, i, j, ok := p.cfg.FindPool(pair.Base.Symbol(), pair.Quote.Symbol())
	if !ok {
		span.SetStatus(codes.Error, "no pool")
		return nil, apperror.New(apperror.CodePoolNotFound,
			apperror.WithContext(fmt.Sprintf("no curve pool holds %s", pair)))
	}

	start := time.Now()

	callData, err := p.poolABI.Pack("get_dy", big.NewInt(int64(i)), big.NewInt(int64(j)), size.Raw())
	if err != nil {
		return nil, fmt.Errorf("failed to encode call: %w", err)
	}

	poolAddr := pool.AddressHex()
	result, err := p.cb.Execute(func() ([]byte, error) {
		return p.client.CallContract(ctx, ethereum.CallMsg{
			To:   &poolAddr,
			Data: callData,
		}, nil)
	})
	if err != nil {
		span.SetStatus(codes.Error, "pool call failed")
		return nil, apperror.New(apperror.CodeVenueQuoteFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("get_dy failed on pool %s", pool.Name)))
	}

	outputs, err := p.poolABI.Unpack("get_dy", result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	dy, ok := outputs[0].(*big.Int)
	if !ok {
		return nil, apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext("unexpected get_dy output"))
	}

	latency := time.Since(start)
	amtOut := asset.NewAmount(pair.Quote, dy)
	quote := domain.NewQuote(VenueID, pair, size, amtOut, swapGasEstimate, latency)

	span.SetAttributes(
		attribute.String("pool", pool.Name),
		attribute.String("amount_out", dy.String()),
	)
	span.SetStatus(codes.Ok, "quote received")

	p.logger.Debug(ctx, "curve quote",
		"pair", pair.String(),
		"pool", pool.Name,
		"amount_in", size.Raw().String(),
		"amount_out", dy.String(),
	)

	return &quote, nil
}
