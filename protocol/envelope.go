// Package protocol defines the wire-level unit exchanged between a client and
// the server: a typed Envelope carried inside a length-prefixed, versioned
// frame. Payloads are either raw bytes (submitted drawings), UTF-8 text
// (names, room ids, system notices) or small JSON objects (chat, exchange).
// The server never deserializes anything richer than these shapes.
package protocol

import (
	"encoding/json"
	"fmt"

	"sketchswap/errors"
)

// Type tags an Envelope. Unknown tags are rejected, never silently dropped.
type Type byte

const (
	TypeIdentify Type = iota + 1
	TypeSystem
	TypeChat
	TypeJoinRoom
	TypeRoomJoined
	TypeRoomFull
	TypeRoomError
	TypeSubmitPayload
	TypeExchange
)

var typeNames = map[Type]string{
	TypeIdentify:      "identify",
	TypeSystem:        "system",
	TypeChat:          "chat",
	TypeJoinRoom:      "join_room",
	TypeRoomJoined:    "room_joined",
	TypeRoomFull:      "room_full",
	TypeRoomError:     "room_error",
	TypeSubmitPayload: "submit_payload",
	TypeExchange:      "exchange",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%02x)", byte(t))
}

// Valid reports whether t is one of the enumerated envelope types.
func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// Envelope is the tagged-union message unit. The payload interpretation
// depends entirely on the type tag.
type Envelope struct {
	Type    Type
	Payload []byte
}

// ChatPayload is the structured body of a chat envelope. Username and
// Timestamp are attached server-side; Text is untrusted display data.
type ChatPayload struct {
	Text      string `json:"text"`
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
}

// ExchangePayload is the structured body of an exchange envelope: the other
// room member's last submitted drawing, tagged with their display name.
type ExchangePayload struct {
	ImageData []byte `json:"image_data"`
	Username  string `json:"username"`
}

func NewIdentify(name string) Envelope {
	return Envelope{Type: TypeIdentify, Payload: []byte(name)}
}

func NewSystem(text string) Envelope {
	return Envelope{Type: TypeSystem, Payload: []byte(text)}
}

func NewJoinRoom(roomID string) Envelope {
	return Envelope{Type: TypeJoinRoom, Payload: []byte(roomID)}
}

func NewRoomJoined(roomID string) Envelope {
	return Envelope{Type: TypeRoomJoined, Payload: []byte(roomID)}
}

func NewRoomFull(roomID string) Envelope {
	return Envelope{Type: TypeRoomFull, Payload: []byte(roomID)}
}

func NewRoomError(text string) Envelope {
	return Envelope{Type: TypeRoomError, Payload: []byte(text)}
}

func NewSubmitPayload(blob []byte) Envelope {
	return Envelope{Type: TypeSubmitPayload, Payload: blob}
}

// NewChat builds an outbound chat envelope. The timestamp format follows the
// HH:MM:SS convention clients render verbatim.
func NewChat(p ChatPayload) (Envelope, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding chat payload: %w", err)
	}
	return Envelope{Type: TypeChat, Payload: body}, nil
}

func NewExchange(p ExchangePayload) (Envelope, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding exchange payload: %w", err)
	}
	return Envelope{Type: TypeExchange, Payload: body}, nil
}

// DecodeChat parses the structured body of a chat envelope.
func DecodeChat(env Envelope) (ChatPayload, error) {
	if env.Type != TypeChat {
		return ChatPayload{}, fmt.Errorf("decoding %s envelope as chat: %w", env.Type, errors.ErrUnknownEnvelope)
	}
	var p ChatPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return ChatPayload{}, fmt.Errorf("decoding chat payload: %w", err)
	}
	return p, nil
}

// DecodeExchange parses the structured body of an exchange envelope.
func DecodeExchange(env Envelope) (ExchangePayload, error) {
	if env.Type != TypeExchange {
		return ExchangePayload{}, fmt.Errorf("decoding %s envelope as exchange: %w", env.Type, errors.ErrUnknownEnvelope)
	}
	var p ExchangePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return ExchangePayload{}, fmt.Errorf("decoding exchange payload: %w", err)
	}
	return p, nil
}

// Text returns the payload as a string, for the envelope types whose body is
// plain UTF-8 (identify, system, room ids, errors).
func (e Envelope) Text() string {
	return string(e.Payload)
}
