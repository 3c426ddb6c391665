package signaling

import (
	"time"

	"go.uber.org/zap"

	"github.com/alamayub/omagle-clone/internal/metrics"
)

// Options configures a Relay.
type Options struct {
	// MaxPendingCandidates bounds each pending candidate queue.
	MaxPendingCandidates int

	// RequeueOnHangUp returns the surviving partner of a session to pairing
	// after it has been told about the hang-up.
	RequeueOnHangUp bool

	// NegotiationTimeout ends sessions whose members have not both applied a
	// remote description in time. Zero disables it.
	NegotiationTimeout time.Duration

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Stats is a point-in-time view of the relay.
type Stats struct {
	Connections       int     `json:"connections"`
	Sessions          int     `json:"sessions"`
	Waiting           bool    `json:"waiting"`
	PendingCandidates int     `json:"pending_candidates"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// Relay is the pairing and signaling state machine. It composes the
// connection registry, pairing engine, candidate buffer, router and teardown.
//
// A Relay is not safe for concurrent use; Hub serializes access to it.
type Relay struct {
	reg      *Registry
	pairer   *Pairer
	buf      *CandidateBuffer
	router   *Router
	teardown *Teardown
	out      *outbox

	opts    Options
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewRelay creates an empty Relay.
func NewRelay(opts Options) *Relay {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	reg := NewRegistry()
	out := &outbox{}
	buf := NewCandidateBuffer(opts.MaxPendingCandidates)
	pairer := newPairer(reg, out, log, opts.Metrics)
	teardown := &Teardown{
		reg:     reg,
		pairer:  pairer,
		buf:     buf,
		out:     out,
		log:     log,
		metrics: opts.Metrics,
		requeue: opts.RequeueOnHangUp,
	}

	return &Relay{
		reg:    reg,
		pairer: pairer,
		buf:    buf,
		router: &Router{
			reg:      reg,
			pairer:   pairer,
			buf:      buf,
			teardown: teardown,
			out:      out,
			log:      log,
			metrics:  opts.Metrics,
		},
		teardown: teardown,
		out:      out,
		opts:     opts,
		log:      log,
		metrics:  opts.Metrics,
	}
}

// Connect registers c, tells it its identity and puts it into pairing.
func (r *Relay) Connect(c Conn) error {
	if err := r.reg.Register(c); err != nil {
		return err
	}
	r.log.Info("connection registered", zap.String("conn", c.ID()))

	r.out.send(c, &Message{Type: MessageTypeConnected, PeerID: c.ID()})
	r.pairer.Join(c.ID())
	r.settle()
	return nil
}

// Disconnect tears down id's session, forgets id and closes its connection.
// It is a no-op for unknown ids.
func (r *Relay) Disconnect(id string) {
	r.disconnect(id, metrics.CauseDisconnect)
	r.settle()
}

// Handle routes one inbound message from id.
func (r *Relay) Handle(id string, msg *Message) {
	r.router.Route(id, msg)
	r.settle()
}

// Reject answers c with an error message without routing anything.
func (r *Relay) Reject(c Conn, text string) {
	r.metrics.IncDropped(metrics.DropInvalid)
	r.out.send(c, newError(text))
	r.settle()
}

// ExpireNegotiations ends every session that was paired longer than the
// negotiation timeout ago and has a member that never reported its remote
// description. It returns the number of sessions ended.
func (r *Relay) ExpireNegotiations(now time.Time) int {
	timeout := r.opts.NegotiationTimeout
	if timeout <= 0 {
		return 0
	}

	var expired []string
	seen := make(map[string]struct{})
	for id, e := range r.reg.conns {
		if e.state != StatePaired {
			continue
		}
		if _, ok := seen[e.session]; ok {
			continue
		}
		seen[e.session] = struct{}{}

		p := r.reg.get(e.partner)
		if now.Sub(e.pairedAt) < timeout || (e.negotiated && p != nil && p.negotiated) {
			continue
		}
		expired = append(expired, id)
	}

	for _, id := range expired {
		r.log.Info("negotiation timed out", zap.String("conn", id), zap.String("session", r.reg.Session(id)))
		r.teardown.Expire(id)
	}
	r.settle()
	return len(expired)
}

// Stats returns the current occupancy. UptimeSeconds is left to the caller.
func (r *Relay) Stats() Stats {
	return Stats{
		Connections:       r.reg.Len(),
		Sessions:          r.reg.Sessions(),
		Waiting:           r.pairer.Waiting() != "",
		PendingCandidates: r.buf.Total(),
	}
}

// State returns the pairing state of id and whether id is registered.
func (r *Relay) State(id string) (PairState, bool) {
	return r.reg.State(id)
}

// Partner returns the id of id's partner, or "".
func (r *Relay) Partner(id string) string {
	if p, ok := r.reg.LookupPartner(id); ok {
		return p.ID()
	}
	return ""
}

// Close disconnects every connection without notifying partners.
func (r *Relay) Close() {
	for id, e := range r.reg.conns {
		e.conn.Close()
		r.reg.Remove(id)
		r.buf.Release(id)
	}
	r.pairer.waiting = ""
	r.out.failed = nil
	r.metrics.SetOccupancy(0, 0, false)
}

func (r *Relay) disconnect(id, cause string) {
	c, ok := r.reg.Lookup(id)
	if !ok {
		return
	}
	r.teardown.Disconnect(id, cause)
	c.Close()
}

// settle evicts connections whose outbound queue rejected a message, then
// refreshes the occupancy gauges. Evicting may make further sends fail, so it
// repeats until nothing is left.
func (r *Relay) settle() {
	for len(r.out.failed) > 0 {
		failed := r.out.failed
		r.out.failed = nil
		for _, id := range failed {
			if _, ok := r.reg.Lookup(id); !ok {
				continue
			}
			r.metrics.IncDropped(metrics.DropQueueFull)
			r.log.Warn("evicting slow connection", zap.String("conn", id))
			r.disconnect(id, metrics.CauseEvicted)
		}
	}
	s := r.Stats()
	r.metrics.SetOccupancy(s.Connections, s.Sessions, s.Waiting)
}

// outbox sends on behalf of the relay components and remembers connections
// that could not take a message, so the relay can evict them once the current
// event is fully applied.
type outbox struct {
	failed []string
}

func (o *outbox) send(c Conn, msg *Message) bool {
	if c.Send(msg) {
		return true
	}
	o.failed = append(o.failed, c.ID())
	return false
}
