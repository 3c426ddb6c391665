package signaling

import (
	"errors"

	"go.uber.org/zap"

	"github.com/alamayub/omagle-clone/internal/metrics"
)

// Router delivers a connection's messages to its current partner. It only
// looks at the message kind; payloads are forwarded as received.
type Router struct {
	reg      *Registry
	pairer   *Pairer
	buf      *CandidateBuffer
	teardown *Teardown
	out      *outbox
	log      *zap.Logger
	metrics  *metrics.Metrics
}

// Route handles one inbound message from the connection registered as from.
func (r *Router) Route(from string, msg *Message) {
	e := r.reg.get(from)
	if e == nil {
		return
	}

	switch msg.Type {
	case MessageTypeOffer:
		p := r.partner(from, msg.Type, metrics.DropNoPartner)
		if p == nil {
			return
		}
		// A new offer starts a negotiation round on the receiving side.
		p.ready = false
		r.forward(p, msg)

	case MessageTypeAnswer:
		p := r.partner(from, msg.Type, metrics.DropNoPartner)
		if p == nil {
			return
		}
		r.forward(p, msg)
		// Answering means the offer was already applied as the remote description.
		r.markReady(from)

	case MessageTypeCandidate:
		p := r.partner(from, msg.Type, metrics.DropStaleCandidate)
		if p == nil {
			return
		}
		queued, err := r.buf.Offer(from, p.ready, msg, func(m *Message) { r.forward(p, m) })
		switch {
		case errors.Is(err, ErrQueueFull):
			r.metrics.IncDropped(metrics.DropQueueFull)
			r.log.Warn("pending candidate queue full", zap.String("conn", from))
		case queued:
			r.metrics.IncBuffered()
			r.log.Debug("candidate held", zap.String("conn", from), zap.Int("pending", r.buf.Len(from)))
		}

	case MessageTypeDescriptionSet:
		r.markReady(from)

	case MessageTypeHangUp:
		r.teardown.HangUp(from)

	case MessageTypeNext:
		switch e.state {
		case StatePaired:
			r.teardown.HangUp(from)
			r.pairer.Join(from)
		case StateIdle:
			r.pairer.Join(from)
		}

	default:
		r.metrics.IncDropped(metrics.DropInvalid)
		r.log.Debug("unknown message type", zap.String("conn", from), zap.String("type", msg.Type))
		r.out.send(e.conn, newError("unknown message type: "+msg.Type))
	}
}

// markReady records that id applied its remote description and releases the
// candidates its partner sent meanwhile, in arrival order. Only the first
// report per negotiation round flushes.
func (r *Router) markReady(id string) {
	e := r.reg.get(id)
	if e == nil || e.state != StatePaired || e.ready {
		return
	}
	e.ready = true
	e.negotiated = true

	n := r.buf.Flush(e.partner, func(m *Message) { r.forward(e, m) })
	if n > 0 {
		r.log.Debug("pending candidates flushed", zap.String("conn", id), zap.Int("count", n))
	}
}

// partner resolves the partner of from. A missing partner is expected when the
// other side already left, so the message is dropped with reason.
func (r *Router) partner(from, kind, reason string) *entry {
	var p *entry
	if e := r.reg.get(from); e.state == StatePaired {
		p = r.reg.get(e.partner)
	}
	if p == nil {
		r.metrics.IncDropped(reason)
		r.log.Debug("no partner, message dropped", zap.String("conn", from), zap.String("type", kind))
	}
	return p
}

func (r *Router) forward(to *entry, msg *Message) {
	if r.out.send(to.conn, relayed(msg)) {
		r.metrics.IncForwarded(msg.Type)
	}
}
