package engine

import "ligdichat/client/internal/models"

// Timeline is the ordered, deduplicated message sequence for the one active
// conversation. Messages keep arrival order; server timestamps are display
// data, never a sort key. Only the engine goroutine mutates it.
type Timeline struct {
	messages []models.Message
	seen     map[int64]struct{}
}

func NewTimeline() *Timeline {
	return &Timeline{seen: make(map[int64]struct{})}
}

// Append adds msg unless a message with the same id is already present.
// It reports whether the timeline changed. This is the dedup rule that makes
// the send-confirmation and the channel echo of the same message collapse
// into one entry, in either arrival order.
func (t *Timeline) Append(msg models.Message) bool {
	if _, ok := t.seen[msg.ID]; ok {
		return false
	}
	t.seen[msg.ID] = struct{}{}
	t.messages = append(t.messages, msg)
	return true
}

// Get looks a message up by id.
func (t *Timeline) Get(id int64) (models.Message, bool) {
	if _, ok := t.seen[id]; !ok {
		return models.Message{}, false
	}
	for _, m := range t.messages {
		if m.ID == id {
			return m, true
		}
	}
	return models.Message{}, false
}

// Remove deletes the message with the given id, reporting whether it was
// present.
func (t *Timeline) Remove(id int64) bool {
	if _, ok := t.seen[id]; !ok {
		return false
	}
	delete(t.seen, id)
	for i, m := range t.messages {
		if m.ID == id {
			t.messages = append(t.messages[:i], t.messages[i+1:]...)
			break
		}
	}
	return true
}

// Replace swaps the whole timeline for a freshly fetched history. The fetch
// is trusted to be in causal order; duplicates within it are still dropped.
func (t *Timeline) Replace(msgs []models.Message) {
	t.messages = t.messages[:0]
	t.seen = make(map[int64]struct{}, len(msgs))
	for _, m := range msgs {
		t.Append(m)
	}
}

// Messages returns a copy of the current sequence.
func (t *Timeline) Messages() []models.Message {
	out := make([]models.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Timeline) Len() int { return len(t.messages) }
