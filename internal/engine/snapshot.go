package engine

import "ligdichat/client/internal/models"

// ActiveState is the lifecycle of the active-conversation pointer.
type ActiveState int

const (
	// StateNone means no conversation is selected.
	StateNone ActiveState = iota
	// StateLoading means a history fetch for the active conversation is in
	// flight.
	StateLoading
	// StateReady means the timeline holds the active conversation's history.
	StateReady
)

func (s ActiveState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "none"
	}
}

// Snapshot is the immutable view the UI renders from, copied out of the
// stores after every mutation. Mutating a snapshot never affects the engine.
type Snapshot struct {
	Conversations []models.Conversation
	Users         []models.User
	Timeline      []models.Message
	Online        []int64
	Typing        []string

	Active      *models.Conversation
	ActiveState ActiveState
	Uploading   bool
}

// snapshot builds the current view. Engine goroutine only.
func (e *Engine) snapshot() Snapshot {
	snap := Snapshot{
		Conversations: e.directory.List(),
		Users:         append([]models.User(nil), e.users...),
		Timeline:      e.timeline.Messages(),
		Online:        e.presence.List(),
		Typing:        e.typing.List(),
		ActiveState:   e.state,
		Uploading:     e.uploading,
	}
	if e.active != nil {
		active := *e.active
		snap.Active = &active
	}
	return snap
}
