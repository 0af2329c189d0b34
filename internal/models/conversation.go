package models

import "time"

// Preview is the cached last-message summary shown in the conversation list
// without loading the full history.
type Preview struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Conversation is a 1-on-1 thread between two users.
// It always has exactly two distinct participants. The server creates it on
// first contact; the client never deletes it.
type Conversation struct {
	// ID is the unique identifier assigned by the server.
	ID int64 `json:"id"`
	// UserA is the first participant.
	UserA User `json:"userA"`
	// UserB is the second participant.
	UserB User `json:"userB"`
	// LastMessage is the cached preview of the latest message, if any.
	LastMessage *Preview `json:"lastMessage,omitempty"`
}

// Other returns the participant that is not me.
func (c Conversation) Other(me User) User {
	if c.UserA.ID == me.ID {
		return c.UserB
	}
	return c.UserA
}
