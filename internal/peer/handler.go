package peer

import (
	"encoding/json"
	"sync"

	"github.com/alamayub/omagle-clone/internal/signaling"
)

// Partner describes the connection the relay paired us with.
type Partner struct {
	ID        string
	SessionID string
	Initiator bool
}

// Handler routes incoming relay messages to appropriate channels.
type Handler struct {
	client *Client

	Connected    chan string
	PartnerFound chan Partner
	Signal       chan *signaling.Message
	HangUp       chan struct{}
	Error        chan string

	// Done is closed once the relay connection is gone.
	Done     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

// NewHandler creates a new message handler.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:       client,
		Connected:    make(chan string, 1),
		PartnerFound: make(chan Partner, 1),
		Signal:       make(chan *signaling.Message, 64),
		HangUp:       make(chan struct{}, 1),
		Error:        make(chan string, 4),
		Done:         make(chan struct{}),
		stop:         make(chan struct{}),
	}
}

// Start begins listening to incoming messages and routing them. It returns
// when the connection ends or Close is called.
func (h *Handler) Start() {
	defer close(h.Done)

	for msg := range h.client.Incoming() {
		switch msg.Type {
		case signaling.MessageTypeConnected:
			h.deliverString(h.Connected, msg.PeerID)

		case signaling.MessageTypePartnerFound:
			h.handlePartnerFound(msg)

		case signaling.MessageTypeOffer, signaling.MessageTypeAnswer, signaling.MessageTypeCandidate:
			select {
			case h.Signal <- msg:
			case <-h.stop:
				return
			}

		case signaling.MessageTypeHangUp:
			select {
			case h.HangUp <- struct{}{}:
			case <-h.stop:
				return
			}

		case signaling.MessageTypeError:
			h.handleError(msg)

		default:
		}
	}
}

func (h *Handler) handlePartnerFound(msg *signaling.Message) {
	var info signaling.PartnerInfo
	if err := json.Unmarshal(msg.Payload, &info); err != nil || info.PartnerID == "" {
		h.deliverString(h.Error, "malformed partner_found from relay")
		return
	}

	select {
	case h.PartnerFound <- Partner{ID: info.PartnerID, SessionID: msg.SessionID, Initiator: info.Initiator}:
	case <-h.stop:
	}
}

// handleError parses the error message and sends it through the Error channel.
func (h *Handler) handleError(msg *signaling.Message) {
	var errPayload signaling.ErrorPayload
	if err := json.Unmarshal(msg.Payload, &errPayload); err != nil || errPayload.Error == "" {
		h.deliverString(h.Error, "Unknown error from server")
		return
	}
	h.deliverString(h.Error, errPayload.Error)
}

func (h *Handler) deliverString(ch chan string, s string) {
	select {
	case ch <- s:
	case <-h.stop:
	}
}

// Close stops routing. Messages still arriving are discarded.
func (h *Handler) Close() {
	h.stopOnce.Do(func() { close(h.stop) })
}
