package engine

// roomEmitter is the slice of the channel the membership component needs.
type roomEmitter interface {
	Join(conversationID int64)
	Leave(conversationID int64)
}

// ChannelMembership keeps this session subscribed to exactly the active
// conversation's room, so the server scopes per-conversation events (typing)
// to members. Every switch leaves the old room before joining the new one,
// and teardown leaves the last room so no server-side membership leaks.
type ChannelMembership struct {
	emitter roomEmitter
	current int64 // 0 means no room joined
}

func NewChannelMembership(emitter roomEmitter) *ChannelMembership {
	return &ChannelMembership{emitter: emitter}
}

// Switch moves membership to conversationID, leave-before-join.
func (m *ChannelMembership) Switch(conversationID int64) {
	if m.current == conversationID {
		return
	}
	if m.current != 0 {
		m.emitter.Leave(m.current)
	}
	m.current = conversationID
	if m.current != 0 {
		m.emitter.Join(m.current)
	}
}

// Rejoin re-issues the join for the current room after a reconnect, since
// the new connection starts with no subscriptions.
func (m *ChannelMembership) Rejoin() {
	if m.current != 0 {
		m.emitter.Join(m.current)
	}
}

// Teardown leaves the current room at session end.
func (m *ChannelMembership) Teardown() {
	if m.current != 0 {
		m.emitter.Leave(m.current)
		m.current = 0
	}
}

// Current returns the joined conversation id, 0 if none.
func (m *ChannelMembership) Current() int64 { return m.current }
