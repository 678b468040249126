package ethereum

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/dexter-bot/dexter/business/blockchain/domain"
	"github.com/dexter-bot/dexter/internal/apperror"
	"github.com/dexter-bot/dexter/internal/logger"
	"github.com/dexter-bot/dexter/internal/wsconn"
)

// WSSubscriberConfig holds configuration for the websocket head stream.
type WSSubscriberConfig struct {
	WSURL       string
	BufferSize  int           // block channel buffer size
	ReadTimeout time.Duration // max silence before the stream is considered dead
}

// DefaultWSSubscriberConfig returns sensible defaults for the given endpoint.
func DefaultWSSubscriberConfig(wsURL string) WSSubscriberConfig {
	return WSSubscriberConfig{
		WSURL:       wsURL,
		BufferSize:  16,
		ReadTimeout: 60 * time.Second, // heads arrive every ~12s
	}
}

type wsSubscriberMetrics struct {
	blocksReceived metric.Int64Counter
	streamErrors   metric.Int64Counter
	blockNumber    metric.Int64Gauge
}

// WSSubscriber implements BlockSubscriber over an eth_subscribe newHeads
// stream. Compared to the polling Subscriber it observes heads as the
// node announces them instead of on a fixed interval.
type WSSubscriber struct {
	config WSSubscriberConfig
	client *ethclient.Client // JSON-RPC over HTTP, used for LatestBlock
	logger logger.LoggerInterface

	conn *wsconn.Client

	state     domain.ConnectionState
	stateMu   sync.RWMutex
	lastBlock atomic.Uint64
	nextID    atomic.Int64

	blocks    chan *domain.Block
	startOnce sync.Once

	tracer  trace.Tracer
	metrics *wsSubscriberMetrics
}

// NewWSSubscriber creates a head stream over the node's websocket endpoint.
func NewWSSubscriber(client *ethclient.Client, cfg WSSubscriberConfig, log logger.LoggerInterface) (*WSSubscriber, error) {
	if cfg.WSURL == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("websocket URL is required"))
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 16
	}

	s := &WSSubscriber{
		config: cfg,
		client: client,
		logger: log,
		state:  domain.StateDisconnected,
		blocks: make(chan *domain.Block, cfg.BufferSize),
		tracer: otel.Tracer(tracerName),
	}

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return s, nil
}

func (s *WSSubscriber) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &wsSubscriberMetrics{}

	s.metrics.blocksReceived, err = meter.Int64Counter(
		"blocks_received_total",
		metric.WithDescription("New blocks observed"),
	)
	if err != nil {
		return err
	}

	s.metrics.streamErrors, err = meter.Int64Counter(
		"head_stream_errors_total",
		metric.WithDescription("Head stream failures"),
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

// Subscribe connects the websocket and subscribes to newHeads on first
// call. Subsequent calls return the same channel.
func (s *WSSubscriber) Subscribe(ctx context.Context) (<-chan *domain.Block, error) {
	var startErr error

	s.startOnce.Do(func() {
		wsCfg := wsconn.DefaultConfig(s.config.WSURL, "eth-newheads")
		wsCfg.ReadTimeout = s.config.ReadTimeout

		conn, err := wsconn.New(wsCfg)
		if err != nil {
			startErr = apperror.New(apperror.CodeEthereumConnectionFailed,
				apperror.WithCause(err),
				apperror.WithContext("failed to create head stream connection"))
			return
		}

		conn.OnMessage(s.handleMessage)
		conn.OnStateChange(func(state wsconn.State, cause error) {
			s.onConnState(ctx, state, cause)
		})
		s.conn = conn

		if err := conn.ConnectWithRetry(ctx); err != nil {
			startErr = apperror.New(apperror.CodeEthereumConnectionFailed,
				apperror.WithCause(err),
				apperror.WithContext("failed to connect head stream"))
			return
		}

		go func() {
			<-ctx.Done()
			s.conn.Close()
			s.setState(domain.StateDisconnected)
			close(s.blocks)
		}()
	})

	if startErr != nil {
		return nil, startErr
	}
	return s.blocks, nil
}

// onConnState mirrors the transport state into the domain and renews
// the newHeads subscription after every (re)connect.
func (s *WSSubscriber) onConnState(ctx context.Context, state wsconn.State, cause error) {
	switch state {
	case wsconn.StateConnected:
		s.setState(domain.StateConnected)
		go s.subscribeNewHeads(ctx)
	case wsconn.StateReconnecting:
		s.setState(domain.StateDegraded)
		s.metrics.streamErrors.Add(ctx, 1)
		s.logger.Warn(ctx, "head stream dropped, reconnecting", "error", cause)
	case wsconn.StateDisconnected, wsconn.StateClosed:
		s.setState(domain.StateDisconnected)
	}
}

func (s *WSSubscriber) subscribeNewHeads(ctx context.Context) {
	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      s.nextID.Add(1),
		"method":  "eth_subscribe",
		"params":  []string{"newHeads"},
	}
	if err := s.conn.SendJSON(ctx, req); err != nil {
		s.logger.Error(ctx, "newHeads subscription failed", "error", err)
	}
}

// wsNotification is the JSON-RPC envelope for subscription pushes.
type wsNotification struct {
	Method string `json:"method"`
	Params struct {
		Subscription string          `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	} `json:"params"`
}

func (s *WSSubscriber) handleMessage(ctx context.Context, data []byte) {
	var note wsNotification
	if err := json.Unmarshal(data, &note); err != nil || note.Method != "eth_subscription" {
		// Subscription confirmation or unrelated response.
		s.logger.Debug(ctx, "non-subscription message on head stream")
		return
	}

	var header types.Header
	if err := json.Unmarshal(note.Params.Result, &header); err != nil {
		s.metrics.streamErrors.Add(ctx, 1)
		s.logger.Warn(ctx, "failed to parse head", "error", err)
		return
	}

	num := header.Number.Uint64()
	if num <= s.lastBlock.Load() {
		return // stale or duplicate head
	}
	s.lastBlock.Store(num)

	block := headerToBlock(&header)
	s.metrics.blocksReceived.Add(ctx, 1)
	s.metrics.blockNumber.Record(ctx, int64(num))

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

// LatestBlock retrieves the most recent block header over HTTP.
func (s *WSSubscriber) LatestBlock(ctx context.Context) (*domain.Block, error) {
	header, err := s.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to fetch latest header"))
	}
	return headerToBlock(header), nil
}

// State returns the current connection state.
func (s *WSSubscriber) State() domain.ConnectionState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

func (s *WSSubscriber) setState(state domain.ConnectionState) {
	s.stateMu.Lock()
	s.state = state
	s.stateMu.Unlock()
}
