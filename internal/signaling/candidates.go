package signaling

// DefaultMaxPendingCandidates bounds each pending candidate queue.
const DefaultMaxPendingCandidates = 64

// CandidateBuffer holds the candidates a connection sent before its partner
// could apply them. Queues are created on the first held candidate and keep
// arrival order.
type CandidateBuffer struct {
	limit  int
	queues map[string][]*Message
}

// NewCandidateBuffer creates a buffer holding at most limit candidates per
// connection. A non-positive limit selects DefaultMaxPendingCandidates.
func NewCandidateBuffer(limit int) *CandidateBuffer {
	if limit <= 0 {
		limit = DefaultMaxPendingCandidates
	}
	return &CandidateBuffer{
		limit:  limit,
		queues: make(map[string][]*Message),
	}
}

// Offer hands msg to forward right away when ready is set, otherwise appends
// it to id's queue. It reports whether msg was queued, and returns
// ErrQueueFull when the queue is at capacity; msg is then discarded.
func (b *CandidateBuffer) Offer(id string, ready bool, msg *Message, forward func(*Message)) (bool, error) {
	if ready {
		b.Flush(id, forward)
		forward(msg)
		return false, nil
	}
	q := b.queues[id]
	if len(q) >= b.limit {
		return false, ErrQueueFull
	}
	b.queues[id] = append(q, msg)
	return true, nil
}

// Flush forwards every candidate queued for id in arrival order and discards
// the queue. It returns the number of candidates forwarded.
func (b *CandidateBuffer) Flush(id string, forward func(*Message)) int {
	q := b.queues[id]
	delete(b.queues, id)
	for _, msg := range q {
		forward(msg)
	}
	return len(q)
}

// Release drops id's queue without forwarding anything.
func (b *CandidateBuffer) Release(id string) {
	delete(b.queues, id)
}

// Len returns the number of candidates queued for id.
func (b *CandidateBuffer) Len(id string) int {
	return len(b.queues[id])
}

// Total returns the number of candidates queued across all connections.
func (b *CandidateBuffer) Total() int {
	n := 0
	for _, q := range b.queues {
		n += len(q)
	}
	return n
}
