package peer

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Data channel message types.
const (
	ChannelMessageHello = "hello"
	ChannelMessagePing  = "ping"
	ChannelMessagePong  = "pong"
	ChannelMessageBye   = "bye"
)

// ChannelMessage represents all data channel messages between partners
type ChannelMessage struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// HelloPayload introduces one side to the other once the channel opens
type HelloPayload struct {
	Name    string `msgpack:"name"`
	Version string `msgpack:"version"`
}

// PingPayload is carried by ping and echoed back unchanged by pong
type PingPayload struct {
	Seq    uint32 `msgpack:"seq"`
	SentAt int64  `msgpack:"sentAt"`
}

// DecodePayload decodes the message payload into the provided struct
func (m ChannelMessage) DecodePayload(v any) error {
	return msgpack.Unmarshal(m.Payload, v)
}

// EncodeChannelMessage wraps payload into a message of type t and encodes it
// for the wire.
func EncodeChannelMessage(t string, payload any) ([]byte, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(ChannelMessage{Type: t, Payload: b})
}

// DecodeChannelMessage parses one data channel frame.
func DecodeChannelMessage(data []byte) (ChannelMessage, error) {
	var m ChannelMessage
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return ChannelMessage{}, fmt.Errorf("decode channel message: %w", err)
	}
	if m.Type == "" {
		return ChannelMessage{}, ErrUnknownMessage
	}
	return m, nil
}
