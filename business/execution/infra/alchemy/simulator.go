// Package alchemy implements draft simulation through Alchemy's
// simulateAssetChanges JSON-RPC method.
package alchemy

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shopspring/decimal"

	"github.com/dexter-bot/dexter/business/execution/domain"
	"github.com/dexter-bot/dexter/internal/apperror"
	"github.com/dexter-bot/dexter/internal/config"
	"github.com/dexter-bot/dexter/internal/httpclient"
	"github.com/dexter-bot/dexter/internal/logger"
	"github.com/dexter-bot/dexter/internal/ratelimit"
)

const (
	tracerName = "alchemy"

	httpTimeout = 15 * time.Second

	// Alchemy's free tier allows ~330 compute units/s; simulation
	// calls are expensive, so stay well below that.
	requestsPerMinute = 60
)

// Simulator predicts the asset changes of a draft via the Alchemy API.
// Simulation failure is returned as data: the correctness criterion
// treats it as a failed check, not a crashed evaluation.
type Simulator struct {
	client  httpclient.Client
	path    string
	limiter *ratelimit.Limiter

	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewSimulator creates a Simulator. The API key is read from the
// environment variable named in the config and becomes part of the
// request path, as Alchemy's API requires.
func NewSimulator(cfg config.AlchemyConfig, log logger.LoggerInterface) (*Simulator, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext(fmt.Sprintf("alchemy enabled but %s not set", cfg.APIKeyEnv)))
	}

	tracer := otel.Tracer(tracerName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("alchemy"),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(httpTimeout),
		httpclient.WithTraceOptions(tracer, httpclient.TraceRequest, httpclient.TraceResponse),
		httpclient.WithHeaders(map[string]string{
			"Accept":       "application/json",
			"Content-Type": "application/json",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &Simulator{
		client:  client,
		path:    "/v2/" + key,
		limiter: ratelimit.New(requestsPerMinute),
		logger:  log,
		tracer:  tracer,
	}, nil
}

type rpcRequest struct {
	ID      int           `json:"id"`
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type simulateCall struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
	Data  string `json:"data"`
}

type rpcResponse struct {
	Result *simulateResult `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type simulateResult struct {
	Changes []assetChange `json:"changes"`
	GasUsed string        `json:"gasUsed"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type assetChange struct {
	AssetType       string `json:"assetType"`
	From            string `json:"from"`
	To              string `json:"to"`
	Amount          string `json:"amount"`
	Symbol          string `json:"symbol"`
	Decimals        int    `json:"decimals"`
	ContractAddress string `json:"contractAddress"`
}

// Simulate runs the draft through alchemy_simulateAssetChanges.
// Transport failures are errors; a reverting transaction is a
// successful call returning Success=false.
func (s *Simulator) Simulate(ctx context.Context, draft domain.Draft) (*domain.Simulation, error) {
	ctx, span := s.tracer.Start(ctx, "alchemy.simulate",
		trace.WithAttributes(attribute.String("to", draft.To.Hex())))
	defer span.End()

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload := rpcRequest{
		ID:      1,
		JSONRPC: "2.0",
		Method:  "alchemy_simulateAssetChanges",
		Params: []interface{}{
			simulateCall{
				From:  draft.From.Hex(),
				To:    draft.To.Hex(),
				Value: fmt.Sprintf("0x%x", draft.ValueOrZero()),
				Data:  "0x" + fmt.Sprintf("%x", draft.Data),
			},
		},
	}

	var result rpcResponse
	resp, err := s.client.NewRequestWithOptions(
		httpclient.WithLabels(httpclient.NewLabel("method", "simulateAssetChanges")),
	).
		SetBody(payload).
		SetResult(&result).
		Post(ctx, s.path)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, apperror.New(apperror.CodeSimulationFailed,
			apperror.WithCause(err),
			apperror.WithContext("simulation request failed"))
	}
	if resp.IsError() {
		span.SetStatus(codes.Error, "http error")
		return nil, apperror.New(apperror.CodeSimulationFailed,
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.String())))
	}

	if result.Error != nil {
		// The node rejected the call outright; fails correctness closed.
		span.SetStatus(codes.Ok, "rpc error as data")
		return &domain.Simulation{
			Success:      false,
			RevertReason: result.Error.Message,
		}, nil
	}
	if result.Result == nil {
		return nil, apperror.New(apperror.CodeSimulationFailed,
			apperror.WithContext("empty simulation response"))
	}
	if result.Result.Error != nil {
		span.SetStatus(codes.Ok, "revert as data")
		return &domain.Simulation{
			Success:      false,
			RevertReason: result.Result.Error.Message,
		}, nil
	}

	sim := &domain.Simulation{Success: true}
	for _, c := range result.Result.Changes {
		amount, err := decimal.NewFromString(c.Amount)
		if err != nil {
			s.logger.Warn(ctx, "skipping unparseable asset change",
				"symbol", c.Symbol, "amount", c.Amount)
			continue
		}
		sim.Changes = append(sim.Changes, domain.AssetChange{
			AssetType:       c.AssetType,
			Symbol:          c.Symbol,
			ContractAddress: c.ContractAddress,
			From:            c.From,
			To:              c.To,
			Amount:          amount,
			Decimals:        c.Decimals,
		})
	}
	if gas, ok := parseHexUint(result.Result.GasUsed); ok {
		sim.GasUsed = gas
	}

	span.SetAttributes(attribute.Int("changes", len(sim.Changes)))
	span.SetStatus(codes.Ok, "")
	return sim, nil
}

func parseHexUint(s string) (uint64, bool) {
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		var v uint64
		if _, err := fmt.Sscanf(s[2:], "%x", &v); err == nil {
			return v, true
		}
		return 0, false
	}
	var v uint64
	if _, err := fmt.Sscanf(s, "%d", &v); err == nil {
		return v, true
	}
	return 0, false
}
