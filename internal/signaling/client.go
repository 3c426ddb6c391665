package signaling

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/alamayub/omagle-clone/internal/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// DefaultMaxMessageSize is enough for WebRTC SDP messages.
	DefaultMaxMessageSize = 64 * 1024

	DefaultSendQueue = 256
)

// ClientOptions tunes a single connection.
type ClientOptions struct {
	SendQueue      int
	MaxMessageSize int64

	// MessagesPerSecond and Burst size the inbound token bucket. A zero rate
	// disables limiting.
	MessagesPerSecond float64
	Burst             int
}

// Client is a wrapper for a single websocket connection (a participant).
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	id      string
	limiter *rate.Limiter
	log     *zap.Logger

	maxMessageSize int64

	// send is a buffered channel for all outbound messages. The hub writes
	// to it and WritePump drains it to the websocket.
	mu     sync.Mutex
	send   chan *Message
	closed bool
}

// NewClient wraps conn with a fresh connection identity.
func NewClient(hub *Hub, conn *websocket.Conn, opts ClientOptions) *Client {
	if opts.SendQueue <= 0 {
		opts.SendQueue = DefaultSendQueue
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = DefaultMaxMessageSize
	}

	var limiter *rate.Limiter
	if opts.MessagesPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = int(opts.MessagesPerSecond)
		}
		limiter = rate.NewLimiter(rate.Limit(opts.MessagesPerSecond), burst)
	}

	id := uuid.NewString()
	return &Client{
		hub:            hub,
		conn:           conn,
		id:             id,
		limiter:        limiter,
		log:            hub.Logger().With(zap.String("conn", id)),
		maxMessageSize: opts.MaxMessageSize,
		send:           make(chan *Message, opts.SendQueue),
	}
}

// ID returns the connection identity.
func (c *Client) ID() string {
	return c.id
}

// Send queues msg for WritePump. It never blocks: a full queue means the
// participant is not keeping up and Send reports false.
func (c *Client) Send(msg *Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Close closes the send channel, which makes WritePump send a close frame and
// exit.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) ReadPump() {
	// When this function exits (e.g., connection closes), unregister the client
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Warn("read failed", zap.Error(err))
			}
			return
		}

		if c.limiter != nil && !c.limiter.Allow() {
			c.hub.Metrics().IncDropped(metrics.DropRateLimited)
			c.log.Debug("rate limited, message dropped")
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			c.log.Debug("malformed message", zap.Error(err))
			c.hub.Reject(c, "malformed message")
			continue
		}

		if err := c.hub.Dispatch(c, &msg); err != nil {
			return
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.log.Debug("write failed", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
