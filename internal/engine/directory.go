package engine

import "ligdichat/client/internal/models"

// Directory is the ordered conversation list with cached last-message
// previews. Only the engine goroutine mutates it.
type Directory struct {
	conversations []models.Conversation
}

func NewDirectory() *Directory {
	return &Directory{}
}

// Seed replaces the whole directory with a fetched listing.
func (d *Directory) Seed(convs []models.Conversation) {
	d.conversations = make([]models.Conversation, len(convs))
	copy(d.conversations, convs)
}

// Upsert inserts an unknown conversation at the front (freshly started
// conversations list newest-first) and updates a known one in place without
// reordering.
func (d *Directory) Upsert(conv models.Conversation) {
	for i := range d.conversations {
		if d.conversations[i].ID == conv.ID {
			d.conversations[i] = conv
			return
		}
	}
	d.conversations = append([]models.Conversation{conv}, d.conversations...)
}

// UpsertPreview overwrites the preview for a known conversation with the
// latest processed value. This is deliberately last-write-wins with no
// timestamp comparison: a late push for an older message can regress the
// preview, a known ordering gap inherited from the upstream behavior.
// Unknown conversation ids are ignored.
func (d *Directory) UpsertPreview(conversationID int64, p models.Preview) bool {
	for i := range d.conversations {
		if d.conversations[i].ID == conversationID {
			preview := p
			d.conversations[i].LastMessage = &preview
			return true
		}
	}
	return false
}

// DropPreview clears a conversation's preview when it still shows the given
// value, so a deleted message does not linger in the list. It reports whether
// anything was cleared.
func (d *Directory) DropPreview(conversationID int64, p models.Preview) bool {
	for i := range d.conversations {
		if d.conversations[i].ID != conversationID {
			continue
		}
		last := d.conversations[i].LastMessage
		if last != nil && last.Content == p.Content && last.CreatedAt.Equal(p.CreatedAt) {
			d.conversations[i].LastMessage = nil
			return true
		}
		return false
	}
	return false
}

// Get looks a conversation up by id.
func (d *Directory) Get(id int64) (models.Conversation, bool) {
	for _, c := range d.conversations {
		if c.ID == id {
			return c, true
		}
	}
	return models.Conversation{}, false
}

// List returns a copy of the directory in display order.
func (d *Directory) List() []models.Conversation {
	out := make([]models.Conversation, len(d.conversations))
	copy(out, d.conversations)
	return out
}

func (d *Directory) Len() int { return len(d.conversations) }
