// Package oneinch implements the pricing VenueProvider on top of the
// 1inch aggregation API.
package oneinch

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dexter-bot/dexter/business/pricing/app"
	"github.com/dexter-bot/dexter/business/pricing/domain"
	"github.com/dexter-bot/dexter/internal/apperror"
	"github.com/dexter-bot/dexter/internal/asset"
	"github.com/dexter-bot/dexter/internal/config"
	"github.com/dexter-bot/dexter/internal/httpclient"
	"github.com/dexter-bot/dexter/internal/logger"
	"github.com/dexter-bot/dexter/internal/ratelimit"
)

const (
	// VenueID is the stable identifier this provider reports in quotes.
	VenueID = "oneinch"

	tracerName = "oneinch"

	quoteEndpoint = "/swap/v6.0/1/quote"

	httpTimeout = 10 * time.Second

	// Aggregated routes touch several pools.
	swapGasEstimate = 300000
)

var _ app.VenueProvider = (*Provider)(nil)

// Provider implements VenueProvider against the 1inch REST API.
type Provider struct {
	client  httpclient.Client
	limiter *ratelimit.Limiter
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

// NewProvider creates a new 1inch provider. The API key is read from
// the environment variable named in the config.
func NewProvider(cfg config.OneInchConfig, log logger.LoggerInterface) (*Provider, error) {
	headers := map[string]string{
		"Accept": "application/json",
	}
	if key := os.Getenv(cfg.APIKeyEnv); key != "" {
		headers["Authorization"] = "Bearer " + key
	}

	tracer := otel.Tracer(tracerName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("oneinch"),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(httpTimeout),
		httpclient.WithTraceOptions(tracer, httpclient.TraceRequest, httpclient.TraceResponse),
		httpclient.WithHeaders(headers),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}

	return &Provider{
		client:  client,
		limiter: ratelimit.New(rpm),
		logger:  log,
		tracer:  tracer,
	}, nil
}

// ID returns the venue identifier.
func (p *Provider) ID() string { return VenueID }

// quoteResponse is the 1inch quote payload.
type quoteResponse struct {
	DstAmount string `json:"dstAmount"`
}

// apiError is an error payload from the 1inch API.
type apiError struct {
	Status      int    `json:"statusCode"`
	Description string `json:"description"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("1inch API error %d: %s", e.Status, e.Description)
}

func oneInchErrorHandler(statusCode int, body []byte) error {
	if statusCode >= 400 {
		var apiErr apiError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Description != "" {
			return &apiErr
		}
		return fmt.Errorf("HTTP %d: %s", statusCode, string(body))
	}
	return nil
}

// FetchQuote quotes selling size of the pair's base into its quote
// asset through the aggregator's best route.
func (p *Provider) FetchQuote(ctx context.Context, pair domain.Pair, size asset.Amount) (*domain.Quote, error) {
	ctx, span := p.tracer.Start(ctx, "oneinch.fetch_quote",
		trace.WithAttributes(
			attribute.String("pair", pair.String()),
			attribute.String("size", size.String()),
		),
	)
	defer span.End()

	if err := p.limiter.Wait(ctx); err != nil {
		span.SetStatus(codes.Error, "rate limit wait aborted")
		return nil, apperror.New(apperror.CodeRateLimitExceeded, apperror.WithCause(err))
	}

	start := time.Now()

	src := asset.WrappedNative(pair.Base).Address()
	dst := asset.WrappedNative(pair.Quote).Address()

	var result quoteResponse
	resp, err := p.client.NewRequestWithOptions(
		httpclient.WithLabels(
			httpclient.NewLabel("endpoint", "quote"),
			httpclient.NewLabel("pair", pair.String()),
		),
		httpclient.WithResponseErrorHandler(oneInchErrorHandler),
	).
		SetQueryParam("src", src.Hex()).
		SetQueryParam("dst", dst.Hex()).
		SetQueryParam("amount", size.Raw().String()).
		SetResult(&result).
		Get(ctx, quoteEndpoint)

	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeVenueUnavailable,
			apperror.WithCause(err),
			apperror.WithContext("1inch quote request failed"))
	}
	if resp.IsError() {
		return nil, apperror.New(apperror.CodeVenueQuoteFailed,
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.String())))
	}

	dstAmount, ok := new(big.Int).SetString(result.DstAmount, 10)
	if !ok || dstAmount.Sign() <= 0 {
		return nil, apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext(fmt.Sprintf("bad dstAmount %q", result.DstAmount)))
	}

	latency := time.Since(start)
	amtOut := asset.NewAmount(pair.Quote, dstAmount)
	quote := domain.NewQuote(VenueID, pair, size, amtOut, swapGasEstimate, latency)

	span.SetAttributes(attribute.String("amount_out", dstAmount.String()))
	span.SetStatus(codes.Ok, "quote received")

	p.logger.Debug(ctx, "oneinch quote",
		"pair", pair.String(),
		"amount_in", size.Raw().String(),
		"amount_out", dstAmount.String(),
	)

	return &quote, nil
}
