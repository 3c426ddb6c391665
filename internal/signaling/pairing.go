package signaling

import (
	"time"

	"go.uber.org/zap"

	"github.com/alamayub/omagle-clone/internal/metrics"
)

// Pairer matches connections into sessions, first come first served.
// It owns the waiting slot, which holds at most one connection.
type Pairer struct {
	reg     *Registry
	out     *outbox
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	waiting string
}

func newPairer(reg *Registry, out *outbox, log *zap.Logger, m *metrics.Metrics) *Pairer {
	return &Pairer{
		reg:     reg,
		out:     out,
		log:     log,
		metrics: m,
		now:     time.Now,
	}
}

// Join puts an Idle connection into pairing. When another connection is
// waiting the two are paired, both receive partner_found, and the partner's
// id is returned with true. Otherwise id takes the waiting slot.
//
// Join does nothing for unknown, Waiting or Paired connections.
func (p *Pairer) Join(id string) (string, bool) {
	e := p.reg.get(id)
	if e == nil || e.state != StateIdle {
		return "", false
	}

	if w := p.waiting; w != "" && w != id {
		p.waiting = ""
		if we := p.reg.get(w); we != nil && we.state == StateWaiting {
			session := newSessionKey(p.reg.hasSession)
			p.reg.link(w, id, session, p.now())
			p.metrics.IncPairing()

			p.log.Info("partner found",
				zap.String("session", session),
				zap.String("waiting", w),
				zap.String("joined", id))

			// The connection that waited longest makes the offer.
			p.out.send(we.conn, newPartnerFound(session, id, true))
			p.out.send(e.conn, newPartnerFound(session, w, false))
			return w, true
		}
	}

	e.state = StateWaiting
	p.waiting = id
	p.log.Debug("waiting for partner", zap.String("conn", id))
	return "", false
}

// Leave takes id out of the waiting slot, returning it to Idle. It reports
// whether id was waiting.
func (p *Pairer) Leave(id string) bool {
	if p.waiting != id || id == "" {
		return false
	}
	p.waiting = ""
	if e := p.reg.get(id); e != nil && e.state == StateWaiting {
		e.state = StateIdle
	}
	return true
}

// Waiting returns the id holding the waiting slot, or "".
func (p *Pairer) Waiting() string {
	return p.waiting
}
