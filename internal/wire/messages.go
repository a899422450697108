// Package wire defines the framed messages exchanged between host and
// joiner once a session is connected.
package wire

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Channel tags one frame as control, game or chat traffic. Delivery is
// FIFO per channel; nothing is guaranteed across channels.
type Channel byte

const (
	ChannelControl Channel = 0x01
	ChannelGame    Channel = 0x02
	ChannelChat    Channel = 0x03
)

func (c Channel) Valid() bool {
	return c == ChannelControl || c == ChannelGame || c == ChannelChat
}

const (
	TypeHello = "Hello"
	TypeBye   = "Bye"
	TypeMove  = "Move"
	TypeChat  = "Chat"
)

// Bye reasons. A mid-game bye forfeits the remaining rounds.
const (
	ByeMidGame  = "mid_game"
	ByeFinished = "finished"
)

// Message is the envelope inside every non-heartbeat frame.
type Message struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// HelloPayload opens a session. The host's rounds value is
// authoritative; a joiner adopts it before the first round starts.
type HelloPayload struct {
	Name   string `msgpack:"name"`
	Rounds int    `msgpack:"rounds"`
}

type MovePayload struct {
	Round int    `msgpack:"round"`
	Move  string `msgpack:"move"`
}

type ChatPayload struct {
	Sender string    `msgpack:"sender"`
	SentAt time.Time `msgpack:"sent_at"`
	Text   string    `msgpack:"text"`
}

type ByePayload struct {
	Reason string `msgpack:"reason"`
}

func NewMessage(t string, payload any) (Message, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: t, Payload: b}, nil
}

func (m Message) DecodePayload(v any) error {
	return msgpack.Unmarshal(m.Payload, v)
}

func Encode(t string, payload any) ([]byte, error) {
	msg, err := NewMessage(t, payload)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(msg)
}

func Decode(data []byte) (Message, error) {
	var msg Message
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
