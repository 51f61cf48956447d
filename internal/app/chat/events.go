/*
Package chat contains the realtime core: the connection registry, the online
roster, and the broadcast fan-out loop.

This file defines the wire protocol. Every frame is a JSON envelope carrying
an event type and an event-specific payload.
*/
package chat

import "encoding/json"

// EventType discriminates the envelope payload.
type EventType string

// Client -> server events. Disconnect is implicit (socket close).
const (
	EventJoin        EventType = "join"
	EventChatMessage EventType = "chatMessage"
	EventTyping      EventType = "typing"
	EventStopTyping  EventType = "stopTyping"
)

// Server -> client events.
const (
	EventUserJoined     EventType = "userJoined"
	EventUserLeft       EventType = "userLeft"
	EventUserList       EventType = "userList"
	EventUserTyping     EventType = "userTyping"
	EventUserStopTyping EventType = "userStopTyping"
)

// Envelope wraps every frame on the realtime channel.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ChatMessagePayload is the shape clients send for EventChatMessage. The
// server relays the payload verbatim and never validates it against this
// struct; it exists for clients and tests.
type ChatMessagePayload struct {
	UserName  string `json:"userName"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// TypingPayload is the shape clients send for typing and stopTyping events.
// Relayed verbatim, like chat messages.
type TypingPayload struct {
	UserName string `json:"userName"`
}

// encodeEvent marshals a payload into an enveloped frame ready to fan out.
func encodeEvent(eventType EventType, payload any) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Envelope{
		Type:    eventType,
		Payload: payloadBytes,
	})
}

// encodeRelay wraps an already-encoded payload in a fresh envelope, used when
// an inbound payload is echoed out under a different event type.
func encodeRelay(eventType EventType, payload json.RawMessage) ([]byte, error) {
	return json.Marshal(Envelope{
		Type:    eventType,
		Payload: payload,
	})
}
