package chat

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType names the push-channel event variants.
type EventType string

const (
	// Inbound and outbound message echo.
	EventMessageNew EventType = "message:new"
	// Read receipt for a single message.
	EventMessageRead EventType = "message:read"
	// Typing indicators.
	EventTypingStart EventType = "typing:start"
	EventTypingStop  EventType = "typing:stop"
	// Room membership (outbound only).
	EventRoomJoin  EventType = "room:join"
	EventRoomLeave EventType = "room:leave"
	// Synthesized locally on manager state transitions, never sent on the wire.
	EventConnectionChange EventType = "connection:change"
)

// Envelope is the wire framing for push-channel events: a type tag, the room
// (thread) the event is scoped to, and a raw payload decoded per type.
type Envelope struct {
	Type     EventType       `json:"event"`
	ThreadID string          `json:"thread_id,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// ReadReceipt is the payload of a message:read event.
type ReadReceipt struct {
	MessageID string    `json:"message_id"`
	ThreadID  string    `json:"thread_id"`
	ReaderID  string    `json:"reader_id"`
	ReadAt    time.Time `json:"read_at"`
}

// Typing is the payload of typing:start / typing:stop events.
type Typing struct {
	ThreadID string `json:"thread_id"`
	UserID   string `json:"user_id"`
	Active   bool   `json:"active"`
}

// Event is the decoded form handed to the router: exactly one of the variant
// fields is set, according to Type.
type Event struct {
	Type        EventType
	Message     *Message
	ReadReceipt *ReadReceipt
	Typing      *Typing
	ConnState   ConnState
}

// DecodeEnvelope turns a wire envelope into a routed Event. Unknown event
// types return an error so the router can count and skip them.
func DecodeEnvelope(env Envelope) (Event, error) {
	switch env.Type {
	case EventMessageNew:
		var msg Message
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return Event{}, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
		if msg.ThreadID == "" {
			msg.ThreadID = env.ThreadID
		}
		return Event{Type: env.Type, Message: &msg}, nil
	case EventMessageRead:
		var rr ReadReceipt
		if err := json.Unmarshal(env.Payload, &rr); err != nil {
			return Event{}, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
		if rr.ThreadID == "" {
			rr.ThreadID = env.ThreadID
		}
		return Event{Type: env.Type, ReadReceipt: &rr}, nil
	case EventTypingStart, EventTypingStop:
		var ty Typing
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &ty); err != nil {
				return Event{}, fmt.Errorf("decode %s payload: %w", env.Type, err)
			}
		}
		if ty.ThreadID == "" {
			ty.ThreadID = env.ThreadID
		}
		ty.Active = env.Type == EventTypingStart
		return Event{Type: env.Type, Typing: &ty}, nil
	default:
		return Event{}, fmt.Errorf("unknown push event type %q", env.Type)
	}
}

// EncodeEnvelope frames an outbound payload for the wire.
func EncodeEnvelope(eventType EventType, threadID string, payload any) (Envelope, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
		}
		raw = data
	}
	return Envelope{Type: eventType, ThreadID: threadID, Payload: raw}, nil
}
