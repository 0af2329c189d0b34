package channel

import (
	"encoding/json"
	"errors"
	"fmt"

	"ligdichat/client/internal/models"
)

// Event names carried in the envelope, client to server.
const (
	EventUserConnected     = "user_connected"
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
)

// Event names used in both directions or server to client.
const (
	EventTyping         = "typing"
	EventStopTyping     = "stop_typing"
	EventUserStatus     = "user_status"
	EventNewMessage     = "new_message"
	EventMessageDeleted = "message_deleted"
)

// Envelope is the wire frame for every channel event.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound is the closed union of events the server can push. Payloads are
// validated at this boundary; the engine never sees a raw frame.
type Inbound interface {
	inbound()
}

// UserStatus reports a presence transition for one user.
type UserStatus struct {
	UserID int64  `json:"userId"`
	Status string `json:"status"` // "online" or "offline"
}

// NewMessage carries a freshly created message, either the echo of our own
// send or a message from the peer.
type NewMessage struct {
	Message models.Message
}

// MessageDeleted names a message removed on the server.
type MessageDeleted struct {
	ID int64 `json:"id"`
}

// TypingPayload scopes a typing signal to a conversation.
type TypingPayload struct {
	ConversationID int64       `json:"conversationId"`
	User           models.User `json:"user"`
}

// Typing reports that a member of the active conversation started typing.
type Typing TypingPayload

// StopTyping reports that a member stopped typing.
type StopTyping TypingPayload

// Reconnected is synthesized by the client after it re-establishes a dropped
// connection, so the consumer can re-issue room membership.
type Reconnected struct{}

func (UserStatus) inbound()     {}
func (NewMessage) inbound()     {}
func (MessageDeleted) inbound() {}
func (Typing) inbound()         {}
func (StopTyping) inbound()     {}
func (Reconnected) inbound()    {}

// ErrUnknownEvent marks a frame whose event name is outside the union.
var ErrUnknownEvent = errors.New("channel: unknown event")

// DecodeInbound parses one wire frame into its typed event.
func DecodeInbound(data []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("channel: malformed frame: %w", err)
	}

	switch env.Event {
	case EventUserStatus:
		var ev UserStatus
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, fmt.Errorf("channel: bad %s payload: %w", env.Event, err)
		}
		return ev, nil
	case EventNewMessage:
		var msg models.Message
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return nil, fmt.Errorf("channel: bad %s payload: %w", env.Event, err)
		}
		return NewMessage{Message: msg}, nil
	case EventMessageDeleted:
		var ev MessageDeleted
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, fmt.Errorf("channel: bad %s payload: %w", env.Event, err)
		}
		return ev, nil
	case EventTyping:
		var ev Typing
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, fmt.Errorf("channel: bad %s payload: %w", env.Event, err)
		}
		return ev, nil
	case EventStopTyping:
		var ev StopTyping
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, fmt.Errorf("channel: bad %s payload: %w", env.Event, err)
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
}

// encodeOutbound builds a wire frame for an outbound event.
func encodeOutbound(event string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("channel: encode %s: %w", event, err)
	}
	return Envelope{Event: event, Payload: raw}, nil
}
