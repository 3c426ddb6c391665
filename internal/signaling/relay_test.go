package signaling

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alamayub/omagle-clone/internal/metrics"
)

type fixture struct {
	relay   *Relay
	metrics *metrics.Metrics
	conns   map[string]*fakeConn
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	return &fixture{
		relay:   NewRelay(opts),
		metrics: opts.Metrics,
		conns:   make(map[string]*fakeConn),
	}
}

func defaultOptions() Options {
	return Options{RequeueOnHangUp: true}
}

func (f *fixture) connect(t *testing.T, id string) *fakeConn {
	t.Helper()
	c := newFakeConn(id)
	require.NoError(t, f.relay.Connect(c))
	f.conns[id] = c
	return c
}

// pair connects a then b and discards the greeting messages.
func (f *fixture) pair(t *testing.T, a, b string) (*fakeConn, *fakeConn) {
	t.Helper()
	ca := f.connect(t, a)
	cb := f.connect(t, b)
	require.Equal(t, b, f.relay.Partner(a))
	ca.take()
	cb.take()
	return ca, cb
}

func (f *fixture) send(id, kind, payload string) {
	msg := &Message{Type: kind}
	if payload != "" {
		msg.Payload = json.RawMessage(payload)
	}
	f.relay.Handle(id, msg)
}

func (f *fixture) state(t *testing.T, id string) PairState {
	t.Helper()
	s, ok := f.relay.State(id)
	require.True(t, ok, "connection %s not registered", id)
	return s
}

func TestRelay_PairsInArrivalOrder(t *testing.T) {
	f := newFixture(t, defaultOptions())

	const n = 7
	for i := 0; i < n; i++ {
		f.connect(t, fmt.Sprintf("c%d", i))
	}

	for i := 0; i+1 < n; i += 2 {
		a, b := fmt.Sprintf("c%d", i), fmt.Sprintf("c%d", i+1)
		assert.Equal(t, b, f.relay.Partner(a))
		assert.Equal(t, a, f.relay.Partner(b))
	}
	assert.Equal(t, StateWaiting, f.state(t, "c6"))

	stats := f.relay.Stats()
	assert.Equal(t, n, stats.Connections)
	assert.Equal(t, 3, stats.Sessions)
	assert.True(t, stats.Waiting)
	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.Pairings))
}

func TestRelay_EvenArrivalsLeaveNobodyWaiting(t *testing.T) {
	f := newFixture(t, defaultOptions())
	for i := 0; i < 6; i++ {
		f.connect(t, fmt.Sprintf("c%d", i))
	}
	assert.False(t, f.relay.Stats().Waiting)
	assert.Equal(t, 3, f.relay.Stats().Sessions)
}

func TestRelay_PartnerFoundReferencesEachOther(t *testing.T) {
	f := newFixture(t, defaultOptions())
	a := f.connect(t, "a")
	b := f.connect(t, "b")

	ma := a.take()
	require.Equal(t, []string{MessageTypeConnected, MessageTypePartnerFound}, types(ma))
	assert.Equal(t, "a", ma[0].PeerID)
	aFound := partnerInfo(t, ma[1])
	assert.Equal(t, "b", aFound.PartnerID)
	assert.True(t, aFound.Initiator)

	mb := b.take()
	require.Equal(t, []string{MessageTypeConnected, MessageTypePartnerFound}, types(mb))
	assert.Equal(t, "b", mb[0].PeerID)
	bFound := partnerInfo(t, mb[1])
	assert.Equal(t, "a", bFound.PartnerID)
	assert.False(t, bFound.Initiator)
}

func TestRelay_SessionKeyShared(t *testing.T) {
	f := newFixture(t, defaultOptions())
	a := f.connect(t, "a")
	b := f.connect(t, "b")

	sa := a.last(MessageTypePartnerFound).SessionID
	sb := b.last(MessageTypePartnerFound).SessionID
	require.NotEmpty(t, sa)
	assert.Equal(t, sa, sb)
	assert.Len(t, strings.Split(sa, "-"), sessionKeyWords)
}

func TestRelay_OfferAnswerVerbatim(t *testing.T) {
	f := newFixture(t, defaultOptions())
	a, b := f.pair(t, "a", "b")

	f.send("a", MessageTypeOffer, `{"sdp":"x"}`)
	got := b.take()
	require.Len(t, got, 1)
	assert.Equal(t, MessageTypeOffer, got[0].Type)
	assert.Equal(t, `{"sdp":"x"}`, string(got[0].Payload))
	assert.Empty(t, got[0].PeerID)

	f.send("b", MessageTypeAnswer, `{"sdp":"y"}`)
	got = a.take()
	require.Len(t, got, 1)
	assert.Equal(t, MessageTypeAnswer, got[0].Type)
	assert.Equal(t, `{"sdp":"y"}`, string(got[0].Payload))

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Forwarded.WithLabelValues(MessageTypeOffer)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Forwarded.WithLabelValues(MessageTypeAnswer)))
}

func TestRelay_CandidateHeldUntilDescriptionSet(t *testing.T) {
	f := newFixture(t, defaultOptions())
	_, b := f.pair(t, "a", "b")

	f.send("a", MessageTypeCandidate, `{"c":1}`)
	assert.Empty(t, b.take())
	assert.Equal(t, 1, f.relay.Stats().PendingCandidates)

	f.send("b", MessageTypeDescriptionSet, "")
	got := b.take()
	require.Len(t, got, 1)
	assert.Equal(t, MessageTypeCandidate, got[0].Type)
	assert.Equal(t, `{"c":1}`, string(got[0].Payload))

	// Reporting again does not deliver the candidate twice.
	f.send("b", MessageTypeDescriptionSet, "")
	assert.Empty(t, b.take())
	assert.Equal(t, 0, f.relay.Stats().PendingCandidates)
}

func TestRelay_CandidatesFlushInArrivalOrder(t *testing.T) {
	f := newFixture(t, defaultOptions())
	_, b := f.pair(t, "a", "b")

	for i := 0; i < 5; i++ {
		f.relay.Handle("a", candidate(i))
	}
	f.send("b", MessageTypeDescriptionSet, "")

	got := b.take()
	require.Len(t, got, 5)
	for i, m := range got {
		assert.JSONEq(t, string(candidate(i).Payload), string(m.Payload))
	}
	assert.Equal(t, 5.0, testutil.ToFloat64(f.metrics.CandidatesBuffered))
}

func TestRelay_CandidatesAfterReadyAreNotBuffered(t *testing.T) {
	f := newFixture(t, defaultOptions())
	_, b := f.pair(t, "a", "b")

	f.send("b", MessageTypeDescriptionSet, "")
	f.relay.Handle("a", candidate(1))
	f.relay.Handle("a", candidate(2))

	got := b.take()
	require.Len(t, got, 2)
	assert.Equal(t, 0, f.relay.Stats().PendingCandidates)
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.CandidatesBuffered))
}

func TestRelay_AnswerMarksAnswererReady(t *testing.T) {
	f := newFixture(t, defaultOptions())
	a, b := f.pair(t, "a", "b")

	f.send("a", MessageTypeOffer, `{"sdp":"o"}`)
	f.relay.Handle("a", candidate(1))
	b.take()

	f.send("b", MessageTypeAnswer, `{"sdp":"a"}`)
	got := b.take()
	require.Len(t, got, 1)
	assert.Equal(t, MessageTypeCandidate, got[0].Type)
	assert.Len(t, a.take(), 1)
}

func TestRelay_NewOfferStartsNewRound(t *testing.T) {
	f := newFixture(t, defaultOptions())
	_, b := f.pair(t, "a", "b")

	f.send("b", MessageTypeDescriptionSet, "")
	f.send("a", MessageTypeOffer, `{"sdp":"renegotiate"}`)
	b.take()

	f.relay.Handle("a", candidate(7))
	assert.Empty(t, b.take())

	f.send("b", MessageTypeDescriptionSet, "")
	assert.Len(t, b.take(), 1)
}

func TestRelay_CandidateQueueBounded(t *testing.T) {
	f := newFixture(t, Options{MaxPendingCandidates: 2})
	_, b := f.pair(t, "a", "b")

	for i := 0; i < 4; i++ {
		f.relay.Handle("a", candidate(i))
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.Dropped.WithLabelValues(metrics.DropQueueFull)))

	f.send("b", MessageTypeDescriptionSet, "")
	assert.Len(t, b.take(), 2)
}

func TestRelay_NoPartnerDrops(t *testing.T) {
	f := newFixture(t, defaultOptions())
	a := f.connect(t, "a")
	a.take()

	assert.NotPanics(t, func() {
		f.send("a", MessageTypeOffer, `{"sdp":"x"}`)
		f.send("a", MessageTypeAnswer, `{"sdp":"y"}`)
		f.relay.Handle("a", candidate(1))
		f.send("a", MessageTypeDescriptionSet, "")
		f.send("ghost", MessageTypeOffer, `{}`)
	})
	assert.Empty(t, a.take())
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.Dropped.WithLabelValues(metrics.DropNoPartner)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Dropped.WithLabelValues(metrics.DropStaleCandidate)))
	assert.Equal(t, 0, f.relay.Stats().PendingCandidates)
}

func TestRelay_DisconnectNotifiesPartnerOnce(t *testing.T) {
	f := newFixture(t, defaultOptions())
	a, b := f.pair(t, "a", "b")

	f.relay.Disconnect("a")
	f.relay.Disconnect("a")

	assert.True(t, a.isClosed())
	assert.Equal(t, 1, b.count(MessageTypeHangUp))
	assert.Empty(t, f.relay.Partner("b"))
	_, ok := f.relay.State("a")
	assert.False(t, ok)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.HangUps.WithLabelValues(metrics.CauseDisconnect)))

	// b was freed, not left paired with a ghost.
	f.connect(t, "c")
	assert.Equal(t, "c", f.relay.Partner("b"))
}

func TestRelay_HangUpThenDisconnectNotifiesOnce(t *testing.T) {
	f := newFixture(t, defaultOptions())
	_, b := f.pair(t, "a", "b")

	f.send("a", MessageTypeHangUp, "")
	assert.Equal(t, StateIdle, f.state(t, "a"))
	f.send("a", MessageTypeHangUp, "")
	f.relay.Disconnect("a")

	assert.Equal(t, 1, b.count(MessageTypeHangUp))
	assert.Equal(t, StateWaiting, f.state(t, "b"))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.HangUps.WithLabelValues(metrics.CauseExplicit)))
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.HangUps.WithLabelValues(metrics.CauseDisconnect)))
}

func TestRelay_HangUpReleasesBuffers(t *testing.T) {
	f := newFixture(t, defaultOptions())
	f.pair(t, "a", "b")

	f.relay.Handle("a", candidate(1))
	f.relay.Handle("b", candidate(2))
	require.Equal(t, 2, f.relay.Stats().PendingCandidates)

	f.send("b", MessageTypeHangUp, "")
	assert.Equal(t, 0, f.relay.Stats().PendingCandidates)
	assert.Equal(t, 0, f.relay.Stats().Sessions)
}

func TestRelay_WaitingDisconnectClearsSlot(t *testing.T) {
	f := newFixture(t, defaultOptions())
	a := f.connect(t, "a")
	require.True(t, f.relay.Stats().Waiting)

	f.relay.Disconnect("a")

	assert.False(t, f.relay.Stats().Waiting)
	assert.Equal(t, 0, a.count(MessageTypeHangUp))
	assert.Equal(t, 0, f.relay.Stats().Connections)

	// The next arrival waits rather than pairing with a ghost.
	f.connect(t, "b")
	assert.Equal(t, StateWaiting, f.state(t, "b"))
}

func TestRelay_HangUpWhileWaitingLeavesQueue(t *testing.T) {
	f := newFixture(t, defaultOptions())
	a := f.connect(t, "a")
	a.take()

	f.send("a", MessageTypeHangUp, "")
	assert.Equal(t, StateIdle, f.state(t, "a"))
	assert.False(t, f.relay.Stats().Waiting)
	assert.Empty(t, a.take())

	f.send("a", MessageTypeNext, "")
	assert.Equal(t, StateWaiting, f.state(t, "a"))
}

func TestRelay_NextFindsAnotherPartner(t *testing.T) {
	f := newFixture(t, defaultOptions())
	_, b := f.pair(t, "a", "b")
	c := f.connect(t, "c")
	c.take()

	f.send("a", MessageTypeNext, "")

	assert.Equal(t, 1, b.count(MessageTypeHangUp))
	assert.Equal(t, "c", f.relay.Partner("b"))
	assert.Equal(t, 1, c.count(MessageTypePartnerFound))
	assert.Equal(t, StateWaiting, f.state(t, "a"))

	// next while waiting does nothing.
	f.send("a", MessageTypeNext, "")
	assert.Equal(t, StateWaiting, f.state(t, "a"))
}

func TestRelay_NoRequeueLeavesSurvivorIdle(t *testing.T) {
	f := newFixture(t, Options{})
	_, b := f.pair(t, "a", "b")

	f.relay.Disconnect("a")
	assert.Equal(t, 1, b.count(MessageTypeHangUp))
	assert.Equal(t, StateIdle, f.state(t, "b"))

	f.connect(t, "c")
	assert.Equal(t, StateWaiting, f.state(t, "c"))
}

func TestRelay_DuplicateConnection(t *testing.T) {
	f := newFixture(t, defaultOptions())
	f.connect(t, "a")

	err := f.relay.Connect(newFakeConn("a"))
	assert.ErrorIs(t, err, ErrDuplicateConnection)
	assert.Equal(t, 1, f.relay.Stats().Connections)
}

func TestRelay_UnknownTypeAnswersError(t *testing.T) {
	f := newFixture(t, defaultOptions())
	a := f.connect(t, "a")
	a.take()

	f.send("a", "bogus", "")
	got := a.take()
	require.Len(t, got, 1)
	assert.Equal(t, MessageTypeError, got[0].Type)

	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(got[0].Payload, &payload))
	assert.Contains(t, payload.Error, "bogus")
}

func TestRelay_SlowPartnerIsEvicted(t *testing.T) {
	f := newFixture(t, defaultOptions())
	a, b := f.pair(t, "a", "b")

	b.setFull(true)
	f.send("a", MessageTypeOffer, `{"sdp":"x"}`)

	assert.True(t, b.isClosed())
	_, ok := f.relay.State("b")
	assert.False(t, ok)
	assert.Equal(t, 1, a.count(MessageTypeHangUp))
	assert.Equal(t, StateWaiting, f.state(t, "a"))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.HangUps.WithLabelValues(metrics.CauseEvicted)))
}

func TestRelay_NegotiationTimeout(t *testing.T) {
	f := newFixture(t, Options{RequeueOnHangUp: true, NegotiationTimeout: 10 * time.Second})
	a, b := f.pair(t, "a", "b")
	c, d := f.pair(t, "c", "d")

	f.send("d", MessageTypeDescriptionSet, "")
	f.send("c", MessageTypeDescriptionSet, "")

	now := time.Now()
	assert.Equal(t, 0, f.relay.ExpireNegotiations(now))
	assert.Equal(t, 1, f.relay.ExpireNegotiations(now.Add(11*time.Second)))

	assert.Equal(t, 1, a.count(MessageTypeHangUp))
	assert.Equal(t, 1, b.count(MessageTypeHangUp))
	assert.Equal(t, StateIdle, f.state(t, "a"))
	assert.Equal(t, StateIdle, f.state(t, "b"))
	assert.Equal(t, "d", f.relay.Partner("c"))
	assert.Equal(t, 0, c.count(MessageTypeHangUp))
	assert.Equal(t, 0, d.count(MessageTypeHangUp))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.HangUps.WithLabelValues(metrics.CauseTimeout)))
}

func TestRelay_NegotiationTimeoutDisabled(t *testing.T) {
	f := newFixture(t, defaultOptions())
	f.pair(t, "a", "b")
	assert.Equal(t, 0, f.relay.ExpireNegotiations(time.Now().Add(time.Hour)))
}

func TestRelay_CloseDropsEverything(t *testing.T) {
	f := newFixture(t, defaultOptions())
	a, b := f.pair(t, "a", "b")
	c := f.connect(t, "c")

	f.relay.Close()

	for _, conn := range []*fakeConn{a, b, c} {
		assert.True(t, conn.isClosed())
	}
	assert.Equal(t, Stats{}, f.relay.Stats())
	assert.Equal(t, 0, b.count(MessageTypeHangUp))
}
