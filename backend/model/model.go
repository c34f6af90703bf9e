package model

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Message types exchanged with clients.
const (
	MessageTypeJoin     = "join"
	MessageTypeSignal   = "signal"
	MessageTypeRoomInfo = "room-info"
	MessageTypeRoomFull = "room-full"
	MessageTypePeerLeft = "peer-left"
)

var (
	ErrMalformed = errors.New("malformed message")
	ErrNoRoomID  = errors.New("message has no room id")
)

// Message is the signaling envelope used in both directions.
// Payload is kept raw so that relayed signals are forwarded without being parsed.
type Message struct {
	Type    string          `json:"type"`
	RoomID  string          `json:"roomId"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type RoomInfo struct {
	Count       int  `json:"count"`
	IsInitiator bool `json:"isInitiator"`
}

// Decode is the only place where inbound frames are parsed.
// Anything it rejects is dropped by the caller without a reply.
// Field names are matched exactly, unlike struct tags in encoding/json.
func Decode(b []byte) (Message, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return Message{}, errors.Join(ErrMalformed, err)
	}

	var msg Message
	if raw, ok := fields["type"]; ok {
		if err := json.Unmarshal(raw, &msg.Type); err != nil {
			return Message{}, errors.Join(ErrMalformed, err)
		}
	}
	if raw, ok := fields["roomId"]; ok {
		if err := json.Unmarshal(raw, &msg.RoomID); err != nil {
			return Message{}, errors.Join(ErrMalformed, err)
		}
	}
	if msg.RoomID == "" {
		return Message{}, ErrNoRoomID
	}
	if raw, ok := fields["payload"]; ok {
		msg.Payload = raw
	}
	return msg, nil
}

// Encode marshals msg for the wire. HTML characters in relayed payloads
// are left as is; whitespace inside the payload is compacted.
func (m *Message) Encode() ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func NewRoomInfo(roomID string, count int, isInitiator bool) Message {
	// RoomInfo has only plain fields, marshal cannot fail.
	b, _ := json.Marshal(&RoomInfo{Count: count, IsInitiator: isInitiator})
	return Message{
		Type:    MessageTypeRoomInfo,
		RoomID:  roomID,
		Payload: b,
	}
}

func NewRoomFull(roomID string) Message {
	return Message{Type: MessageTypeRoomFull, RoomID: roomID}
}

func NewPeerLeft(roomID string) Message {
	return Message{Type: MessageTypePeerLeft, RoomID: roomID}
}

func NewSignal(roomID string, payload json.RawMessage) Message {
	return Message{Type: MessageTypeSignal, RoomID: roomID, Payload: payload}
}
