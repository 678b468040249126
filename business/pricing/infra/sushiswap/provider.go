// Package sushiswap implements the pricing VenueProvider for the
// SushiSwap V2 router.
package sushiswap

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
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
	VenueID = "sushiswap"

	tracerName = "sushiswap"
)

var _ app.VenueProvider = (*Provider)(nil)

// Provider implements VenueProvider for SushiSwap V2.
type Provider struct {
	client    *ethclient.Client
	router    common.Address
	routerABI abi.ABI

	logger logger.LoggerInterface
	cb     *circuitbreaker.CircuitBreaker[[]byte]
	tracer trace.Tracer
}

// NewProvider creates a new SushiSwap provider.
func NewProvider(client *ethclient.Client, cfg config.SushiswapConfig, log logger.LoggerInterface) (*Provider, error) {
	parsedABI, err := abi.JSON(strings.NewReader(RouterABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}

	return &Provider{
		client:    client,
		router:    cfg.RouterAddressHex(),
		routerABI: parsedABI,
		logger:    log,
		cb:        circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("sushiswap-router")),
		tracer:    otel.Tracer(tracerName),
	}, nil
}

// ID returns the venue identifier.
func (p *Provider) ID() string { return VenueID }

// FetchQuote quotes selling size of the pair's base into its quote
// asset along the direct V2 path.
func (p *Provider) FetchQuote(ctx context.Context, pair domain.Pair, size asset.Amount) (*domain.Quote, error) {
	ctx, span := p.tracer.Start(ctx, "sushiswap.fetch_quote",
		trace.WithAttributes(
			attribute.String("pair", pair.String()),
			attribute.String("size", size.String()),
		),
	)
	defer span.End()

	start := time.Now()

	path := []common.Address{
		asset.WrappedNative(pair.Base).Address(),
		asset.WrappedNative(pair.Quote).Address(),
	}

	callData, err := p.routerABI.Pack("getAmountsOut", size.Raw(), path)
	if err != nil {
		return nil, fmt.Errorf("failed to encode call: %w", err)
	}

	result, err := p.cb.Execute(func() ([]byte, error) {
		return p.client.CallContract(ctx, ethereum.CallMsg{
			To:   &p.router,
			Data: callData,
		}, nil)
	})
	if err != nil {
		span.SetStatus(codes.Error, "router call failed")
		return nil, apperror.New(apperror.CodeVenueQuoteFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("getAmountsOut failed for %s", pair)))
	}

	outputs, err := p.routerABI.Unpack("getAmountsOut", result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	amounts, ok := outputs[0].([]*big.Int)
	if !ok || len(amounts) < 2 {
		return nil, apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext("unexpected getAmountsOut shape"))
	}

	latency := time.Since(start)
	amtOut := asset.NewAmount(pair.Quote, amounts[len(amounts)-1])
	quote := domain.NewQuote(VenueID, pair, size, amtOut, swapGasEstimate, latency)

	span.SetAttributes(attribute.String("amount_out", amtOut.Raw().String()))
	span.SetStatus(codes.Ok, "quote received")

	p.logger.Debug(ctx, "sushiswap quote",
		"pair", pair.String(),
		"amount_in", size.Raw().String(),
		"amount_out", amtOut.Raw().String(),
	)

	return &quote, nil
}
