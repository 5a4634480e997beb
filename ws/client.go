/*
Package ws implements a streaming client for the mempool.space websocket API.

The client keeps one long-lived connection, re-sends the configured
subscription set after every (re)connect (the remote session is not
persisted server-side), and reconnects on transport failures with
exponential backoff and jitter up to a retry budget. Inbound messages are
JSON objects forwarded to the consumer in arrival order; malformed messages
are logged and discarded.
*/
package ws

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"math"
	"math/rand"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultURL is the public mempool.space websocket endpoint.
const DefaultURL = "wss://mempool.space/api/v1/ws"

// ErrRetriesExceeded is returned by Run when the reconnect budget is spent.
// This is terminal; a new Run call is required to resume streaming.
var ErrRetriesExceeded = errors.New("ws: max retries exceeded")

// State is the connection-loop state, exposed for observability.
type State int32

const (
	Disconnected State = iota
	Connecting
	Subscribing
	Streaming
	BackingOff
	Stopped
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Subscribing:
		return "subscribing"
	case Streaming:
		return "streaming"
	case BackingOff:
		return "backoff"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Handler consumes one inbound message. Handlers are invoked sequentially,
// in arrival order.
type Handler func(msg json.RawMessage)

type Config struct {
	URL string `yaml:"url" json:"url"`

	// Reconnect budget and backoff ceiling (seconds).
	MaxRetries int `yaml:"maxretries" json:"maxretries"`
	MaxBackoff int `yaml:"maxbackoff" json:"maxbackoff"`

	// HandshakeTimeout in seconds for the websocket dial.
	HandshakeTimeout int `yaml:"handshaketimeout" json:"handshaketimeout"`

	// Subscription state, re-sent on every (re)connect. A zero value for a
	// category means no subscription message is sent for it.
	Want              []string `yaml:"want" json:"want"`
	TrackAddress      string   `yaml:"trackaddress" json:"trackaddress"`
	TrackAddresses    []string `yaml:"trackaddresses" json:"trackaddresses"`
	TrackMempool      bool     `yaml:"trackmempool" json:"trackmempool"`
	TrackMempoolTxids bool     `yaml:"trackmempooltxids" json:"trackmempooltxids"`
	TrackMempoolBlock *int     `yaml:"trackmempoolblock" json:"trackmempoolblock"`
	TrackRBF          string   `yaml:"trackrbf" json:"trackrbf"` // "all" or "fullRbf"

	// QueueSize > 0 decouples the read loop from the handler through a
	// bounded queue; the reader blocks once the queue is full.
	QueueSize int `yaml:"queuesize" json:"queuesize"`

	Logger *log.Logger `yaml:"-" json:"-"`
}

type Client struct {
	cfg    Config
	dialer *websocket.Dialer
	jitter func() float64
	state  int32

	stopc    chan struct{}
	stopOnce sync.Once
	connMux  sync.Mutex
	conn     *websocket.Conn
}

// NewClient returns a streaming client. Zero-value config fields get
// defaults: the public endpoint, 5 retries, a 60s backoff ceiling, and a
// want-list of mempool-blocks and stats.
func NewClient(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 60
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10
	}
	if cfg.Want == nil {
		cfg.Want = []string{"mempool-blocks", "stats"}
	}
	dialer := &websocket.Dialer{
		HandshakeTimeout: time.Duration(cfg.HandshakeTimeout) * time.Second,
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Client{cfg: cfg, dialer: dialer, jitter: rng.Float64, stopc: make(chan struct{})}
}

// Stop terminates a running stream; Run returns nil once the active session
// unwinds. Stop is idempotent, and terminal for this client.
func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopc)
		c.connMux.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.connMux.Unlock()
	})
}

func (c *Client) stopped() bool {
	select {
	case <-c.stopc:
		return true
	default:
		return false
	}
}

// State reports the current connection-loop state.
func (c *Client) State() State {
	return State(atomic.LoadInt32(&c.state))
}

func (c *Client) setState(s State) {
	atomic.StoreInt32(&c.state, int32(s))
}

// Run blocks for the lifetime of the stream, delivering each inbound JSON
// message to handler. A nil handler logs messages and discards them. Run
// returns ErrRetriesExceeded once the reconnect budget is spent, or the
// causing error for failures that are not transport-level.
func (c *Client) Run(handler Handler) error {
	if handler == nil {
		handler = c.logMessage
	}

	deliver := handler
	var (
		msgc chan json.RawMessage
		wg   sync.WaitGroup
	)
	if c.cfg.QueueSize > 0 {
		msgc = make(chan json.RawMessage, c.cfg.QueueSize)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range msgc {
				handler(m)
			}
		}()
		deliver = func(m json.RawMessage) { msgc <- m }
	}

	err := c.loop(deliver)
	if msgc != nil {
		close(msgc)
		wg.Wait()
	}
	return err
}

func (c *Client) loop(deliver Handler) error {
	defer c.setState(Stopped)

	retries := 0
	for {
		connected, err := c.session(deliver)
		if c.stopped() {
			return nil
		}
		if !recoverable(err) {
			c.logf("[ERROR] ws: unexpected error: %v", err)
			return err
		}
		if connected {
			retries = 0
		}
		retries++
		if retries > c.cfg.MaxRetries {
			c.logf("[ERROR] ws: %v; max retries exceeded, stopping", err)
			return ErrRetriesExceeded
		}
		d := NextBackoff(retries, time.Duration(c.cfg.MaxBackoff)*time.Second, c.jitter())
		c.logf("[WARNING] ws: %v; retrying in %v", err, d)
		c.setState(BackingOff)
		select {
		case <-c.stopc:
			return nil
		case <-time.After(d):
		}
	}
}

// session runs one connect/subscribe/stream cycle. connected reports
// whether the websocket handshake completed, which resets the retry budget.
func (c *Client) session(deliver Handler) (connected bool, err error) {
	c.setState(Connecting)
	conn, _, err := c.dialer.Dial(c.cfg.URL, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()
	c.connMux.Lock()
	c.conn = conn
	c.connMux.Unlock()
	c.logf("[DEBUG] ws: connected to %s", c.cfg.URL)

	c.setState(Subscribing)
	for _, msg := range c.subscriptions() {
		if err := conn.WriteJSON(msg); err != nil {
			return true, err
		}
	}

	c.setState(Streaming)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		if !json.Valid(raw) {
			c.logf("[WARNING] ws: discarding non-JSON message (%d bytes)", len(raw))
			continue
		}
		deliver(json.RawMessage(raw))
	}
}

// subscriptions builds the outbound subscription batch in the fixed order
// the service expects: want list first, then the tracking intents.
func (c *Client) subscriptions() []interface{} {
	var msgs []interface{}
	if len(c.cfg.Want) > 0 {
		msgs = append(msgs, struct {
			Action string   `json:"action"`
			Data   []string `json:"data"`
		}{Action: "want", Data: c.cfg.Want})
	}
	if c.cfg.TrackAddress != "" {
		msgs = append(msgs, map[string]interface{}{"track-address": c.cfg.TrackAddress})
	}
	if len(c.cfg.TrackAddresses) > 0 {
		msgs = append(msgs, map[string]interface{}{"track-addresses": c.cfg.TrackAddresses})
	}
	if c.cfg.TrackMempool {
		msgs = append(msgs, map[string]interface{}{"track-mempool": true})
	}
	if c.cfg.TrackMempoolTxids {
		msgs = append(msgs, map[string]interface{}{"track-mempool-txids": true})
	}
	if c.cfg.TrackMempoolBlock != nil {
		msgs = append(msgs, map[string]interface{}{"track-mempool-block": *c.cfg.TrackMempoolBlock})
	}
	if c.cfg.TrackRBF == "all" || c.cfg.TrackRBF == "fullRbf" {
		msgs = append(msgs, map[string]interface{}{"track-rbf": c.cfg.TrackRBF})
	}
	return msgs
}

// NextBackoff computes the sleep before reconnect attempt retry (1-based):
// min(max, 2^retry + jitter) seconds, jitter in [0, 1).
func NextBackoff(retry int, max time.Duration, jitter float64) time.Duration {
	d := time.Duration((math.Pow(2, float64(retry)) + jitter) * float64(time.Second))
	if d > max {
		return max
	}
	return d
}

// recoverable classifies session errors. Transport-level failures (refused
// or dropped connections, handshake rejections, timeouts, closed sockets)
// are retried; anything else stops the run loop to avoid spinning on a
// programming error.
func recoverable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, websocket.ErrBadHandshake) {
		return true
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var oe *net.OpError
	if errors.As(err, &oe) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	return false
}

func (c *Client) logMessage(msg json.RawMessage) {
	c.logf("[DEBUG] ws: message: %s", msg)
}

func (c *Client) logf(format string, args ...interface{}) {
	logger := c.cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	logger.Printf(format, args...)
}
