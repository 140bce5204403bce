// Package stream owns the logsSubscribe WebSocket subscription: connect,
// subscribe, deliver notifications on a channel, and reconnect with bounded
// exponential backoff when the transport drops.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/observability"
)

// State is the lifecycle state of the stream client.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribing
	StateSubscribed
	StateReconnecting
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateSubscribing:
		return "SUBSCRIBING"
	case StateSubscribed:
		return "SUBSCRIBED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("STATE(%d)", int32(s))
	}
}

// Config configures stream client behavior.
type Config struct {
	// BaseReconnectDelay is the delay before the first reconnect attempt;
	// attempt n waits BaseReconnectDelay * 2^(n-1).
	BaseReconnectDelay time.Duration
	// MaxReconnectDelay caps the backoff delay.
	MaxReconnectDelay time.Duration
	// MaxReconnectAttempts bounds consecutive failed attempts. The counter
	// resets to zero once a subscription is confirmed.
	MaxReconnectAttempts int
	// SubscribeTimeout bounds the wait for a subscription confirmation.
	SubscribeTimeout time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is the timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing messages.
	WriteTimeout time.Duration
	// Buffer is the notification channel capacity.
	Buffer int
}

// DefaultConfig returns default stream configuration.
func DefaultConfig() Config {
	return Config{
		BaseReconnectDelay:   3 * time.Second,
		MaxReconnectDelay:    5 * time.Minute,
		MaxReconnectAttempts: 10,
		SubscribeTimeout:     30 * time.Second,
		PingInterval:         30 * time.Second,
		ReadTimeout:          60 * time.Second,
		WriteTimeout:         10 * time.Second,
		Buffer:               1024,
	}
}

// Notification is one decoded logsNotification message.
type Notification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{}
}

// Client maintains a single logsSubscribe subscription over a reconnecting
// WebSocket connection. Notifications are delivered on the channel returned
// by Notifications; a terminal failure (reconnect attempts exhausted) is
// published on the channel returned by Fatal.
type Client struct {
	endpoint string
	mentions []string
	cfg      Config
	log      *logrus.Logger

	conn   *websocket.Conn
	connMu sync.Mutex

	notifs chan Notification
	fatal  chan error

	state       atomic.Int32
	manualClose atomic.Bool
	subID       atomic.Int64

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a stream client for the given ws(s) endpoint watching the
// given addresses. Start must be called to begin delivering notifications.
func New(endpoint string, mentions []string, cfg Config, log *logrus.Logger) *Client {
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultConfig().Buffer
	}
	return &Client{
		endpoint: endpoint,
		mentions: mentions,
		cfg:      cfg,
		log:      log,
		notifs:   make(chan Notification, cfg.Buffer),
		fatal:    make(chan error, 1),
		done:     make(chan struct{}),
	}
}

// Notifications returns the delivery channel. It is closed when the client
// terminates, whether by Close or by a terminal failure.
func (c *Client) Notifications() <-chan Notification {
	return c.notifs
}

// Fatal returns a channel that receives the terminal error when reconnect
// attempts are exhausted. Nothing is ever sent on it for an explicit Close.
func (c *Client) Fatal() <-chan error {
	return c.fatal
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
	observability.SetStreamState(int32(s))
}

// Start launches the connection lifecycle in the background.
func (c *Client) Start(ctx context.Context) {
	c.wg.Add(1)
	go c.run(ctx)
}

// Close shuts the client down. The manual-close flag is set before the
// transport is closed so the run loop does not treat it as a failure.
func (c *Client) Close() error {
	c.manualClose.Store(true)
	c.closeOnce.Do(func() { close(c.done) })

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()
	return nil
}

// BackoffDelay returns the reconnect delay for a 1-based attempt number:
// base * 2^(attempt-1), capped at max when max > 0.
func BackoffDelay(base time.Duration, attempt int, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base << (attempt - 1)
	if max > 0 && delay > max {
		delay = max
	}
	return delay
}

// run drives the connect/subscribe/read/reconnect cycle until explicit
// shutdown or attempt exhaustion.
func (c *Client) run(ctx context.Context) {
	defer c.wg.Done()
	defer close(c.notifs)

	attempt := 0

	for {
		if c.closing(ctx) {
			c.setState(StateClosed)
			return
		}

		err := c.connectAndServe(ctx, &attempt)

		if c.closing(ctx) {
			c.setState(StateClosed)
			return
		}

		attempt++
		if attempt > c.cfg.MaxReconnectAttempts {
			c.setState(StateClosed)
			c.log.WithFields(logrus.Fields{
				"attempts": attempt - 1,
				"endpoint": c.endpoint,
			}).Error("[stream] reconnect attempts exhausted")
			c.fatal <- fmt.Errorf("reconnect attempts exhausted after %d tries: %w",
				attempt-1, err)
			return
		}

		c.setState(StateReconnecting)
		observability.RecordStreamReconnect()
		delay := BackoffDelay(c.cfg.BaseReconnectDelay, attempt, c.cfg.MaxReconnectDelay)
		c.log.WithFields(logrus.Fields{
			"attempt": attempt,
			"delay":   delay,
			"error":   err,
		}).Warn("[stream] connection lost, reconnecting")

		select {
		case <-time.After(delay):
		case <-c.done:
			c.setState(StateClosed)
			return
		case <-ctx.Done():
			c.setState(StateClosed)
			return
		}
	}
}

// connectAndServe performs one full connection cycle: dial, subscribe,
// then read until the transport fails. Resets the attempt counter once
// the subscription is confirmed.
func (c *Client) connectAndServe(ctx context.Context, attempt *int) error {
	c.setState(StateConnecting)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	defer func() {
		c.connMu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.connMu.Unlock()
		conn.Close()
	}()

	c.setState(StateSubscribing)
	subID, err := c.subscribe(conn)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	c.subID.Store(subID)

	c.setState(StateSubscribed)
	*attempt = 0
	c.log.WithFields(logrus.Fields{
		"subscription": subID,
		"addresses":    len(c.mentions),
	}).Info("[stream] subscribed")

	stopPing := make(chan struct{})
	defer close(stopPing)
	go c.pingLoop(conn, stopPing)

	return c.readLoop(ctx, conn, subID)
}

// subscribeRequestID is the JSON-RPC request id of the logsSubscribe frame.
// Each connection carries exactly one request, so the id is fixed.
const subscribeRequestID = 1

// subscribe sends the logsSubscribe request and waits for the correlated
// confirmation carrying the subscription id.
func (c *Client) subscribe(conn *websocket.Conn) (int64, error) {
	const reqID = subscribeRequestID
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "logsSubscribe",
		Params: []interface{}{
			map[string]interface{}{"mentions": c.mentions},
			map[string]string{"commitment": "confirmed"},
		},
	}

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := conn.WriteJSON(req); err != nil {
		return 0, fmt.Errorf("write subscribe: %w", err)
	}

	deadline := time.Now().Add(c.cfg.SubscribeTimeout)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)
		_, message, err := conn.ReadMessage()
		if err != nil {
			return 0, fmt.Errorf("read confirmation: %w", err)
		}

		var errResp wsErrorResponse
		if err := json.Unmarshal(message, &errResp); err == nil &&
			errResp.ID == reqID && errResp.Error != nil {
			return 0, fmt.Errorf("subscribe rejected: code=%d msg=%s",
				errResp.Error.Code, errResp.Error.Message)
		}

		var resp wsSubscribeResponse
		if err := json.Unmarshal(message, &resp); err == nil &&
			resp.ID == reqID && resp.Result > 0 {
			return resp.Result, nil
		}

		// Anything else before the confirmation is dropped.
	}

	return 0, fmt.Errorf("subscription confirmation timeout after %s", c.cfg.SubscribeTimeout)
}

// readLoop reads messages until the transport fails, decoding notifications
// and delivering them on the channel. Decode failures are dropped without
// tearing the connection down.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, subID int64) error {
	for {
		conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var notif wsNotification
		if err := json.Unmarshal(message, &notif); err != nil {
			observability.RecordNotificationDropped("undecodable")
			c.log.WithField("error", err).Warn("[stream] dropping undecodable message")
			continue
		}
		if notif.Method != "logsNotification" || notif.Params == nil {
			continue
		}
		if notif.Params.Subscription != subID {
			continue
		}

		value := notif.Params.Result.Value
		n := Notification{
			Signature: value.Signature,
			Logs:      value.Logs,
			Err:       value.Err,
		}
		if notif.Params.Result.Context != nil {
			n.Slot = notif.Params.Result.Context.Slot
		}

		// Block until delivered; the buffer absorbs bursts.
		select {
		case c.notifs <- n:
		case <-c.done:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *Client) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-c.done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				// Connection is likely dead; the read loop will notice.
				return
			}
		}
	}
}

// closing reports whether shutdown was requested.
func (c *Client) closing(ctx context.Context) bool {
	if c.manualClose.Load() || ctx.Err() != nil {
		return true
	}
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// WebSocket message types.

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Result  int64  `json:"result"` // subscription ID
}

type wsErrorResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext  `json:"context"`
	Value   wsLogsValue `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string      `json:"signature"`
	Logs      []string    `json:"logs"`
	Err       interface{} `json:"err"`
}
