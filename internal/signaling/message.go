package signaling

import "encoding/json"

// Message defines the structure for all C2S (Client to Server)
// and S2C (Server to Client) websocket messages.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	PeerID    string          `json:"peer_id,omitempty"`
}

// Message type constants.
const (
	// Relayed between partners. Payloads are opaque.
	MessageTypeOffer     = "offer"
	MessageTypeAnswer    = "answer"
	MessageTypeCandidate = "candidate"
	MessageTypeHangUp    = "hang_up"

	// Client to relay only.
	MessageTypeDescriptionSet = "description_set"
	MessageTypeNext           = "next"

	// Relay to client only.
	MessageTypeConnected    = "connected"
	MessageTypePartnerFound = "partner_found"
	MessageTypeError        = "error"
)

// PartnerInfo is the payload of a partner_found message.
type PartnerInfo struct {
	PartnerID string `json:"partner_id"`
	Initiator bool   `json:"initiator"`
}

// ErrorPayload is the payload of an error message.
type ErrorPayload struct {
	Error string `json:"error"`
}

func newPartnerFound(sessionID, partnerID string, initiator bool) *Message {
	payload, _ := json.Marshal(PartnerInfo{PartnerID: partnerID, Initiator: initiator})
	return &Message{
		Type:      MessageTypePartnerFound,
		SessionID: sessionID,
		Payload:   payload,
	}
}

func newHangUp() *Message {
	return &Message{Type: MessageTypeHangUp}
}

func newError(text string) *Message {
	payload, _ := json.Marshal(ErrorPayload{Error: text})
	return &Message{Type: MessageTypeError, Payload: payload}
}

// relayed copies only the kind and the opaque payload, so nothing the sender
// put in the envelope besides those reaches the partner.
func relayed(msg *Message) *Message {
	return &Message{Type: msg.Type, Payload: msg.Payload}
}
