package signaling

import "time"

// Conn is one live transport-level endpoint (one participant) as seen by the
// relay.
type Conn interface {
	ID() string

	// Send queues msg for delivery without blocking. It reports false when
	// the connection can no longer accept messages.
	Send(msg *Message) bool

	// Close stops delivery to the connection. It must be safe to call more
	// than once.
	Close()
}

// PairState is the pairing state of a registered connection.
type PairState int

const (
	StateIdle PairState = iota
	StateWaiting
	StatePaired
)

func (s PairState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	case StatePaired:
		return "paired"
	default:
		return "unknown"
	}
}

type entry struct {
	conn    Conn
	state   PairState
	partner string
	session string

	// ready is set while the connection's remote description is applied for
	// the current negotiation round.
	ready bool

	// negotiated records that ready was reported at least once in this session.
	negotiated bool
	pairedAt   time.Time
}

// Registry tracks every live connection and the pairing edges between them.
//
// A Registry is not safe for concurrent use. It is owned by a single Relay,
// which in turn is driven by one Hub goroutine, so an edge is always written on
// both ends before any lookup can observe it.
type Registry struct {
	conns    map[string]*entry
	sessions map[string]struct{}
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:    make(map[string]*entry),
		sessions: make(map[string]struct{}),
	}
}

// Register adds c as an Idle connection.
func (r *Registry) Register(c Conn) error {
	if _, ok := r.conns[c.ID()]; ok {
		return ErrDuplicateConnection
	}
	r.conns[c.ID()] = &entry{conn: c}
	return nil
}

// Lookup returns the connection registered under id.
func (r *Registry) Lookup(id string) (Conn, bool) {
	e, ok := r.conns[id]
	if !ok {
		return nil, false
	}
	return e.conn, true
}

// LookupPartner returns the partner of id when id is Paired. An unpaired or
// unknown connection has no partner; that is not an error.
func (r *Registry) LookupPartner(id string) (Conn, bool) {
	e, ok := r.conns[id]
	if !ok || e.state != StatePaired {
		return nil, false
	}
	p, ok := r.conns[e.partner]
	if !ok {
		return nil, false
	}
	return p.conn, true
}

// State returns the pairing state of id and whether id is registered.
func (r *Registry) State(id string) (PairState, bool) {
	e, ok := r.conns[id]
	if !ok {
		return StateIdle, false
	}
	return e.state, true
}

// Session returns the session key id currently belongs to, or "".
func (r *Registry) Session(id string) string {
	if e, ok := r.conns[id]; ok {
		return e.session
	}
	return ""
}

// Remove forgets id and clears any pairing edge it held, leaving the former
// partner Idle. Removing an unknown id does nothing.
func (r *Registry) Remove(id string) {
	if _, ok := r.conns[id]; !ok {
		return
	}
	r.unlink(id)
	delete(r.conns, id)
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	return len(r.conns)
}

// Sessions returns the number of live sessions.
func (r *Registry) Sessions() int {
	return len(r.sessions)
}

func (r *Registry) get(id string) *entry {
	return r.conns[id]
}

func (r *Registry) hasSession(key string) bool {
	_, ok := r.sessions[key]
	return ok
}

// link pairs a and b under session. Both ends are written before returning.
func (r *Registry) link(a, b, session string, now time.Time) {
	ea, eb := r.conns[a], r.conns[b]
	for _, e := range []*entry{ea, eb} {
		e.state = StatePaired
		e.session = session
		e.ready = false
		e.negotiated = false
		e.pairedAt = now
	}
	ea.partner = b
	eb.partner = a
	r.sessions[session] = struct{}{}
}

// unlink clears the pairing edge of id on both ends and returns the former
// partner, or "" when id was not paired.
func (r *Registry) unlink(id string) string {
	e, ok := r.conns[id]
	if !ok || e.state != StatePaired {
		return ""
	}
	partner := e.partner
	delete(r.sessions, e.session)
	e.reset()
	if p, ok := r.conns[partner]; ok && p.partner == id {
		p.reset()
	}
	return partner
}

func (e *entry) reset() {
	e.state = StateIdle
	e.partner = ""
	e.session = ""
	e.ready = false
	e.negotiated = false
	e.pairedAt = time.Time{}
}
