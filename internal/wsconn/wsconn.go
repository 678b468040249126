// Package wsconn provides a production-grade WebSocket client with reconnection.
package wsconn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// State represents the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// ErrClosed is returned when operating on a closed client.
var ErrClosed = errors.New("wsconn: client closed")

// MessageHandler receives raw messages from the read loop.
type MessageHandler func(ctx context.Context, msg []byte)

// StateChangeHandler is notified on every state transition. The error is
// non-nil when the transition was caused by a failure.
type StateChangeHandler func(state State, err error)

// Config holds WebSocket client configuration.
type Config struct {
	URL            string
	Name           string // identifies the connection in errors
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReconnects  int // 0 = infinite
	PingInterval   time.Duration // 0 disables pings
	ReadTimeout    time.Duration // max silence between messages, 0 = none
	WriteTimeout   time.Duration
	MaxMessageSize int64 // 0 = transport default
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url, name string) Config {
	return Config{
		URL:            url,
		Name:           name,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		MaxReconnects:  0, // infinite
		PingInterval:   30 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxMessageSize: 1 << 20,
	}
}

// Client is a WebSocket client with automatic reconnection.
type Client struct {
	config Config

	mu    sync.RWMutex
	conn  *websocket.Conn
	state State

	handlerMu     sync.RWMutex
	onMessage     MessageHandler
	onStateChange StateChangeHandler

	// writeMu serializes writes; the transport allows only one
	// concurrent writer.
	writeMu sync.Mutex

	runCtx    context.Context
	runCancel context.CancelFunc
	closeOnce sync.Once
}

// New creates a new WebSocket client.
func New(config Config) (*Client, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("wsconn: URL is required")
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = 1 * time.Second
	}
	if config.MaxBackoff < config.InitialBackoff {
		config.MaxBackoff = config.InitialBackoff
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		config:    config,
		state:     StateDisconnected,
		runCtx:    ctx,
		runCancel: cancel,
	}, nil
}

// OnMessage registers the handler invoked for every received message.
// Must be called before Connect.
func (c *Client) OnMessage(handler MessageHandler) {
	c.handlerMu.Lock()
	c.onMessage = handler
	c.handlerMu.Unlock()
}

// OnStateChange registers a handler for connection state transitions.
func (c *Client) OnStateChange(handler StateChangeHandler) {
	c.handlerMu.Lock()
	c.onStateChange = handler
	c.handlerMu.Unlock()
}

// Connect establishes the WebSocket connection and starts the read loop.
func (c *Client) Connect(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}

	c.setState(StateConnecting, nil)

	conn, err := c.dial(ctx)
	if err != nil {
		c.setState(StateDisconnected, err)
		return fmt.Errorf("wsconn %s: dial %s: %w", c.config.Name, c.config.URL, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setState(StateConnected, nil)

	go c.readLoop()
	if c.config.PingInterval > 0 {
		go c.pingLoop()
	}

	return nil
}

// ConnectWithRetry keeps dialing with exponential backoff until the
// connection succeeds, the context is canceled, or the reconnect budget
// runs out.
func (c *Client) ConnectWithRetry(ctx context.Context) error {
	backoff := c.config.InitialBackoff
	attempts := 0

	for {
		err := c.Connect(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrClosed) {
			return err
		}

		attempts++
		if c.config.MaxReconnects > 0 && attempts >= c.config.MaxReconnects {
			return fmt.Errorf("wsconn %s: gave up after %d attempts: %w",
				c.config.Name, attempts, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.runCtx.Done():
			return ErrClosed
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > c.config.MaxBackoff {
			backoff = c.config.MaxBackoff
		}
	}
}

// Send writes a raw text message.
func (c *Client) Send(ctx context.Context, msg []byte) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("wsconn %s: not connected", c.config.Name)
	}

	if c.config.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.WriteTimeout)
		defer cancel()
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.Write(ctx, websocket.MessageText, msg)
}

// SendJSON marshals v and sends it as a text message.
func (c *Client) SendJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("wsconn %s: marshal: %w", c.config.Name, err)
	}
	return c.Send(ctx, data)
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected reports whether the connection is currently established.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Close gracefully closes the WebSocket connection. Safe to call more
// than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.runCancel()

		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		c.mu.Unlock()

		if conn != nil {
			conn.Close(websocket.StatusNormalClosure, "client shutdown")
		}
		c.setState(StateClosed, nil)
	})
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, c.config.URL, nil)
	if err != nil {
		return nil, err
	}
	if c.config.MaxMessageSize > 0 {
		conn.SetReadLimit(c.config.MaxMessageSize)
	}
	return conn, nil
}

// readLoop pumps messages to the handler and drives reconnection when
// the connection drops.
func (c *Client) readLoop() {
	for {
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		if conn == nil || c.isClosed() {
			return
		}

		readCtx := c.runCtx
		var cancel context.CancelFunc
		if c.config.ReadTimeout > 0 {
			readCtx, cancel = context.WithTimeout(readCtx, c.config.ReadTimeout)
		}
		_, data, err := conn.Read(readCtx)
		if cancel != nil {
			cancel()
		}

		if err != nil {
			if c.isClosed() {
				return
			}
			if !c.reconnect(err) {
				return
			}
			continue
		}

		c.handlerMu.RLock()
		handler := c.onMessage
		c.handlerMu.RUnlock()
		if handler != nil {
			handler(c.runCtx, data)
		}
	}
}

// reconnect redials with exponential backoff after a dropped connection.
// It reports whether the read loop should keep going.
func (c *Client) reconnect(cause error) bool {
	c.setState(StateReconnecting, cause)

	backoff := c.config.InitialBackoff
	attempts := 0

	for {
		select {
		case <-c.runCtx.Done():
			return false
		case <-time.After(backoff):
		}

		conn, err := c.dial(c.runCtx)
		if err == nil {
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
			c.setState(StateConnected, nil)
			return true
		}

		attempts++
		if c.config.MaxReconnects > 0 && attempts >= c.config.MaxReconnects {
			c.setState(StateDisconnected, err)
			return false
		}

		backoff *= 2
		if backoff > c.config.MaxBackoff {
			backoff = c.config.MaxBackoff
		}
	}
}

func (c *Client) pingLoop() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.runCtx.Done():
			return
		case <-ticker.C:
			c.mu.RLock()
			conn := c.conn
			c.mu.RUnlock()
			if conn == nil {
				continue
			}

			pingCtx, cancel := context.WithTimeout(c.runCtx, c.config.WriteTimeout)
			if err := conn.Ping(pingCtx); err != nil {
				cancel()
				// The read loop notices the broken connection and
				// handles reconnection.
				continue
			}
			cancel()
		}
	}
}

func (c *Client) isClosed() bool {
	select {
	case <-c.runCtx.Done():
		return true
	default:
		return false
	}
}

func (c *Client) setState(state State, err error) {
	c.mu.Lock()
	// Closed is terminal.
	if c.state == StateClosed && state != StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = state
	c.mu.Unlock()

	c.handlerMu.RLock()
	handler := c.onStateChange
	c.handlerMu.RUnlock()
	if handler != nil {
		handler(state, err)
	}
}
