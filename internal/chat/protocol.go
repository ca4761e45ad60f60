package chat

import (
	"encoding/json"
	"fmt"
)

// Event names carried in the envelope.
const (
	EventJoin      = "join"
	EventMessage   = "message"
	EventUserCount = "userCount"
)

// Envelope is the JSON object carried by every WebSocket text frame.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// InboundKind identifies what a client asked for.
type InboundKind int

const (
	// InboundJoin announces the connection's display name.
	InboundJoin InboundKind = iota + 1
	// InboundMessage submits a chat line.
	InboundMessage
)

// Inbound is a decoded client event. Only the field matching Kind is set.
type Inbound struct {
	Kind        InboundKind
	DisplayName string
	Content     string
}

// messagePayload is the data of an inbound message event. The author field
// sent by browser clients is decoded and deliberately ignored.
type messagePayload struct {
	Content string `json:"content"`
	Author  string `json:"author,omitempty"`
}

// DecodeInbound parses one client frame.
func DecodeInbound(raw []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch env.Event {
	case EventJoin:
		var name string
		if err := json.Unmarshal(env.Data, &name); err != nil {
			return Inbound{}, fmt.Errorf("%w: join payload: %v", ErrMalformedEvent, err)
		}
		return Inbound{Kind: InboundJoin, DisplayName: name}, nil

	case EventMessage:
		var p messagePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return Inbound{}, fmt.Errorf("%w: message payload: %v", ErrMalformedEvent, err)
		}
		return Inbound{Kind: InboundMessage, Content: p.Content}, nil

	default:
		return Inbound{}, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
}

// EncodeUserCount builds the userCount frame.
func EncodeUserCount(n int) ([]byte, error) {
	return encode(EventUserCount, n)
}

// EncodeMessage builds the message frame for m.
func EncodeMessage(m Message) ([]byte, error) {
	return encode(EventMessage, m)
}

func encode(event string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}
