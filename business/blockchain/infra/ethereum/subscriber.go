// Package ethereum provides Ethereum blockchain infrastructure adapters.
package ethereum

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/dexter-bot/dexter/business/blockchain/domain"
	"github.com/dexter-bot/dexter/internal/apperror"
	"github.com/dexter-bot/dexter/internal/circuitbreaker"
	"github.com/dexter-bot/dexter/internal/logger"
)

const (
	tracerName = "blockchain"
	meterName  = "blockchain"
)

// SubscriberConfig holds configuration for the block watcher.
type SubscriberConfig struct {
	PollInterval time.Duration // how often to poll for new heads
	BufferSize   int           // block channel buffer size
}

// DefaultSubscriberConfig returns sensible defaults.
func DefaultSubscriberConfig() SubscriberConfig {
	return SubscriberConfig{
		PollInterval: 12 * time.Second, // ~1 block time
		BufferSize:   16,
	}
}

// subscriberMetrics holds OTEL metric instruments.
type subscriberMetrics struct {
	blocksReceived metric.Int64Counter
	pollErrors     metric.Int64Counter
	blockNumber    metric.Int64Gauge
}

// Subscriber implements BlockSubscriber by polling the node for new
// heads over the shared HTTP client.
type Subscriber struct {
	config SubscriberConfig
	client *ethclient.Client
	logger logger.LoggerInterface

	state     domain.ConnectionState
	stateMu   sync.RWMutex
	lastBlock atomic.Uint64

	blocks    chan *domain.Block
	startOnce sync.Once

	cb *circuitbreaker.CircuitBreaker[*types.Header]

	tracer  trace.Tracer
	metrics *subscriberMetrics
}

// NewSubscriber creates a new block watcher on the given client.
func NewSubscriber(client *ethclient.Client, cfg SubscriberConfig, log logger.LoggerInterface) (*Subscriber, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 12 * time.Second
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 16
	}

	s := &Subscriber{
		config: cfg,
		client: client,
		logger: log,
		state:  domain.StateDisconnected,
		blocks: make(chan *domain.Block, cfg.BufferSize),
		cb:     circuitbreaker.New[*types.Header](circuitbreaker.DefaultConfig("block-watcher")),
		tracer: otel.Tracer(tracerName),
	}

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return s, nil
}

func (s *Subscriber) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &subscriberMetrics{}

	s.metrics.blocksReceived, err = meter.Int64Counter(
		"blocks_received_total",
		metric.WithDescription("New blocks observed"),
	)
	if err != nil {
		return err
	}

	s.metrics.pollErrors, err = meter.Int64Counter(
		"block_poll_errors_total",
		metric.WithDescription("Head poll failures"),
	)
	if err != nil {
		return err
	}

	s.metrics.blockNumber, err = meter.Int64Gauge(
		"latest_block_number",
		metric.WithDescription("Latest observed block number"),
	)
	return err
}

// Subscribe starts the polling loop on first call and returns the
// block channel. Subsequent calls return the same channel.
func (s *Subscriber) Subscribe(ctx context.Context) (<-chan *domain.Block, error) {
	s.startOnce.Do(func() {
		go s.poll(ctx)
	})
	return s.blocks, nil
}

func (s *Subscriber) poll(ctx context.Context) {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.setState(domain.StateDisconnected)
			close(s.blocks)
			return
		case <-ticker.C:
			s.pollOnce(ctx)
		}
	}
}

func (s *Subscriber) pollOnce(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "blockchain.poll_head")
	defer span.End()

	header, err := s.cb.Execute(func() (*types.Header, error) {
		return s.client.HeaderByNumber(ctx, nil)
	})
	if err != nil {
		s.metrics.pollErrors.Add(ctx, 1)
		s.setState(domain.StateDegraded)
		span.SetStatus(codes.Error, "poll failed")
		s.logger.Warn(ctx, "head poll failed", "error", err)
		return
	}

	s.setState(domain.StateConnected)

	num := header.Number.Uint64()
	if num <= s.lastBlock.Load() {
		return // no new head
	}
	s.lastBlock.Store(num)

	block := headerToBlock(header)
	s.metrics.blocksReceived.Add(ctx, 1)
	s.metrics.blockNumber.Record(ctx, int64(num))
	span.SetAttributes(attribute.Int64("block_number", int64(num)))

	select {
	case s.blocks <- block:
	default:
		// Consumer is behind; drop the oldest pending block.
		select {
		case <-s.blocks:
		default:
		}
		s.blocks <- block
	}
}

// LatestBlock retrieves the most recent block header.
func (s *Subscriber) LatestBlock(ctx context.Context) (*domain.Block, error) {
	header, err := s.cb.Execute(func() (*types.Header, error) {
		return s.client.HeaderByNumber(ctx, nil)
	})
	if err != nil {
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to fetch latest header"))
	}
	return headerToBlock(header), nil
}

// State returns the current connection state.
func (s *Subscriber) State() domain.ConnectionState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

func (s *Subscriber) setState(state domain.ConnectionState) {
	s.stateMu.Lock()
	s.state = state
	s.stateMu.Unlock()
}

func headerToBlock(h *types.Header) *domain.Block {
	return &domain.Block{
		Number:     h.Number.Uint64(),
		Hash:       h.Hash(),
		ParentHash: h.ParentHash,
		Timestamp:  time.Unix(int64(h.Time), 0),
		GasLimit:   h.GasLimit,
		GasUsed:    h.GasUsed,
		BaseFee:    h.BaseFee,
	}
}
