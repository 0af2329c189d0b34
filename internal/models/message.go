package models

import "time"

// MessageKind tells how Content should be interpreted: plain text, or a
// resource locator for media kinds.
type MessageKind string

const (
	KindText  MessageKind = "TEXT"
	KindImage MessageKind = "IMAGE"
	KindAudio MessageKind = "AUDIO"
	KindVideo MessageKind = "VIDEO"
)

// Known reports whether k is one of the supported message kinds.
func (k MessageKind) Known() bool {
	switch k {
	case KindText, KindImage, KindAudio, KindVideo:
		return true
	}
	return false
}

// Message is a single chat message. ID is globally unique and stable, which
// is what timeline deduplication keys on.
type Message struct {
	ID             int64       `json:"id"`
	ConversationID int64       `json:"conversationId"`
	SenderID       int64       `json:"senderId"`
	Content        string      `json:"content"`
	Kind           MessageKind `json:"type"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// Preview builds the conversation-list summary for this message.
func (m Message) Preview() Preview {
	return Preview{Content: m.Content, CreatedAt: m.CreatedAt}
}

// DisplayContent returns what the UI should render for this message. An
// unsupported kind falls back to a placeholder instead of failing the
// timeline.
func (m Message) DisplayContent() string {
	if m.Kind.Known() {
		return m.Content
	}
	return "[unsupported message]"
}
