package signaling

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeConn records everything the relay sends to it.
type fakeConn struct {
	id string

	mu     sync.Mutex
	msgs   []*Message
	full   bool
	closed bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(msg *Message) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.full {
		return false
	}
	f.msgs = append(f.msgs, msg)
	return true
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) setFull(full bool) {
	f.mu.Lock()
	f.full = full
	f.mu.Unlock()
}

// take returns the messages received so far and forgets them.
func (f *fakeConn) take() []*Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.msgs
	f.msgs = nil
	return msgs
}

func (f *fakeConn) count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.msgs {
		if m.Type == kind {
			n++
		}
	}
	return n
}

func (f *fakeConn) last(kind string) *Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.msgs) - 1; i >= 0; i-- {
		if f.msgs[i].Type == kind {
			return f.msgs[i]
		}
	}
	return nil
}

func types(msgs []*Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Type
	}
	return out
}

func partnerInfo(t *testing.T, msg *Message) PartnerInfo {
	t.Helper()
	require.NotNil(t, msg)
	require.Equal(t, MessageTypePartnerFound, msg.Type)
	var info PartnerInfo
	require.NoError(t, json.Unmarshal(msg.Payload, &info))
	return info
}

func candidate(n int) *Message {
	payload, _ := json.Marshal(map[string]any{"candidate": n})
	return &Message{Type: MessageTypeCandidate, Payload: payload}
}
