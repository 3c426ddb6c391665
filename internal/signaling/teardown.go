package signaling

import (
	"go.uber.org/zap"

	"github.com/alamayub/omagle-clone/internal/metrics"
)

// Teardown ends sessions when a member hangs up or goes away.
//
// Every path checks the current pairing state before acting, so a hang-up
// followed by a disconnect of the same connection notifies the partner once.
type Teardown struct {
	reg     *Registry
	pairer  *Pairer
	buf     *CandidateBuffer
	out     *outbox
	log     *zap.Logger
	metrics *metrics.Metrics

	// requeue returns the surviving partner to pairing after it is notified.
	requeue bool
}

// HangUp ends id's session on its own request. id stays registered and
// becomes Idle. A Waiting connection simply leaves the waiting slot. It
// reports whether a partner was notified.
func (t *Teardown) HangUp(id string) bool {
	return t.end(id, metrics.CauseExplicit, t.requeue)
}

// Disconnect ends id's session and forgets id. Calling it again for the same
// id does nothing. It reports whether id was registered.
func (t *Teardown) Disconnect(id, cause string) bool {
	if t.reg.get(id) == nil {
		return false
	}
	t.end(id, cause, t.requeue)
	t.reg.Remove(id)
	t.log.Info("connection removed", zap.String("conn", id), zap.String("cause", cause))
	return true
}

// Expire ends id's session and notifies both members. Neither is requeued, so
// two connections that failed to negotiate are not paired again straight away.
func (t *Teardown) Expire(id string) bool {
	e := t.reg.get(id)
	if e == nil || e.state != StatePaired {
		return false
	}
	t.out.send(e.conn, newHangUp())
	return t.end(id, metrics.CauseTimeout, false)
}

func (t *Teardown) end(id, cause string, requeue bool) bool {
	e := t.reg.get(id)
	if e == nil {
		return false
	}

	switch e.state {
	case StateWaiting:
		t.pairer.Leave(id)
		t.buf.Release(id)
		return false

	case StatePaired:
		session := e.session
		partner := t.reg.unlink(id)
		t.buf.Release(id)
		t.buf.Release(partner)
		t.metrics.IncHangUp(cause)

		p := t.reg.get(partner)
		if p == nil {
			return false
		}
		t.log.Info("session ended",
			zap.String("session", session),
			zap.String("conn", id),
			zap.String("partner", partner),
			zap.String("cause", cause))

		if !t.out.send(p.conn, newHangUp()) {
			return true
		}
		if requeue {
			t.pairer.Join(partner)
		}
		return true

	default:
		t.buf.Release(id)
		return false
	}
}
