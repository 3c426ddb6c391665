package signaling

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/alamayub/omagle-clone/internal/metrics"
)

// expiryInterval is how often the hub looks for sessions stuck in negotiation.
const expiryInterval = time.Second

// Hub is the central brain of the signaling server.
// It owns the Relay and is the single goroutine that touches it: connection
// lifecycle events and inbound messages arrive on channels and are applied
// one at a time, in order.
type Hub struct {
	register chan Conn
	events   chan event
	stats    chan chan Stats

	relay   *Relay
	opts    Options
	log     *zap.Logger
	metrics *metrics.Metrics
	started time.Time

	done chan struct{}
}

type eventKind int

const (
	eventMessage eventKind = iota
	eventReject
	eventLeave
)

// event is anything a connection reports after registering. All of them share
// one channel so a connection's messages and its departure are applied in the
// order they happened.
type event struct {
	kind eventKind
	from Conn
	msg  *Message
	text string
}

// NewHub creates a Hub. Run must be called to start processing.
func NewHub(opts Options) *Hub {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Hub{
		register: make(chan Conn),
		events:   make(chan event, 256),
		stats:    make(chan chan Stats),
		relay:    NewRelay(opts),
		opts:     opts,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		done:     make(chan struct{}),
	}
}

// Run starts the hub's main processing loop and blocks until ctx is done.
// On return every remaining connection has been closed.
func (h *Hub) Run(ctx context.Context) {
	h.started = time.Now()
	defer close(h.done)

	var expire <-chan time.Time
	if h.opts.NegotiationTimeout > 0 {
		ticker := time.NewTicker(expiryInterval)
		defer ticker.Stop()
		expire = ticker.C
	}

	for {
		select {
		case c := <-h.register:
			if err := h.relay.Connect(c); err != nil {
				h.log.Warn("register failed", zap.String("conn", c.ID()), zap.Error(err))
				c.Close()
			}

		case ev := <-h.events:
			if !h.owns(ev.from) {
				// A connection that lost a duplicate registration has no
				// say over the one that won it.
				continue
			}
			switch ev.kind {
			case eventMessage:
				h.relay.Handle(ev.from.ID(), ev.msg)
			case eventReject:
				h.relay.Reject(ev.from, ev.text)
			case eventLeave:
				h.relay.Disconnect(ev.from.ID())
			}

		case reply := <-h.stats:
			s := h.relay.Stats()
			s.UptimeSeconds = time.Since(h.started).Seconds()
			reply <- s

		case now := <-expire:
			h.relay.ExpireNegotiations(now)

		case <-ctx.Done():
			h.log.Info("hub stopping", zap.Int("connections", h.relay.Stats().Connections))
			h.relay.Close()
			return
		}
	}
}

func (h *Hub) owns(c Conn) bool {
	cur, ok := h.relay.reg.Lookup(c.ID())
	return ok && cur == c
}

// Register hands a new connection to the hub.
func (h *Hub) Register(c Conn) error {
	select {
	case h.register <- c:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

// Unregister reports that the transport of c went away.
func (h *Hub) Unregister(c Conn) {
	h.post(event{kind: eventLeave, from: c})
}

// Dispatch hands an inbound message from c to the hub. Messages from one
// connection are applied in the order Dispatch is called.
func (h *Hub) Dispatch(c Conn, msg *Message) error {
	return h.post(event{kind: eventMessage, from: c, msg: msg})
}

// Reject answers c with an error message, e.g. for a frame that could not be
// parsed. The error is queued behind c's earlier messages.
func (h *Hub) Reject(c Conn, text string) {
	h.post(event{kind: eventReject, from: c, text: text})
}

func (h *Hub) post(ev event) error {
	select {
	case <-h.done:
		return ErrHubClosed
	default:
	}
	select {
	case h.events <- ev:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

// Stats returns a snapshot of the relay.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	select {
	case h.stats <- reply:
	case <-h.done:
		return Stats{}, ErrHubClosed
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Metrics returns the collectors the hub records into, possibly nil.
func (h *Hub) Metrics() *metrics.Metrics {
	return h.metrics
}

// Logger returns the hub's logger.
func (h *Hub) Logger() *zap.Logger {
	return h.log
}

// IsClosed reports whether err means the hub is gone.
func IsClosed(err error) bool {
	return errors.Is(err, ErrHubClosed)
}
