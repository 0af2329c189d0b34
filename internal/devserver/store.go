package devserver

import (
	"errors"
	"sync"
	"time"

	"ligdichat/client/internal/models"
)

// Errors surfaced to handlers, mapped onto 4xx responses.
var (
	ErrUnknownConversation = errors.New("conversation not found")
	ErrUnknownMessage      = errors.New("message not found")
	ErrUnknownUser         = errors.New("user not found")
	ErrSelfConversation    = errors.New("cannot start a conversation with yourself")
)

// Store is the stub's in-memory state: users, conversations and message
// history, with auto-increment ids. Nothing is persisted; the devserver
// exists to exercise the client, not to keep data.
type Store struct {
	mu sync.Mutex

	users  map[int64]models.User
	emails map[string]int64

	conversations []models.Conversation
	messages      map[int64][]models.Message

	nextUserID int64
	nextConvID int64
	nextMsgID  int64
}

func NewStore() *Store {
	return &Store{
		users:    make(map[int64]models.User),
		emails:   make(map[string]int64),
		messages: make(map[int64][]models.Message),
	}
}

// EnsureUser returns the user for email, creating it on first sight.
func (s *Store) EnsureUser(email string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureUserLocked(email)
}

func (s *Store) ensureUserLocked(email string) models.User {
	if id, ok := s.emails[email]; ok {
		return s.users[id]
	}
	s.nextUserID++
	u := models.User{ID: s.nextUserID, Email: email}
	s.users[u.ID] = u
	s.emails[email] = u.ID
	return u
}

// Users lists every known user in id order.
func (s *Store) Users() []models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.User, 0, len(s.users))
	for id := int64(1); id <= s.nextUserID; id++ {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out
}

// ConversationsFor lists the conversations the user participates in.
func (s *Store) ConversationsFor(userID int64) []models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Conversation
	for _, c := range s.conversations {
		if c.UserA.ID == userID || c.UserB.ID == userID {
			out = append(out, c)
		}
	}
	return out
}

// Conversation fetches one conversation by id.
func (s *Store) Conversation(id int64) (models.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationLocked(id)
}

func (s *Store) conversationLocked(id int64) (models.Conversation, bool) {
	for _, c := range s.conversations {
		if c.ID == id {
			return c, true
		}
	}
	return models.Conversation{}, false
}

// StartConversation finds or creates the conversation between me and the
// user behind peerEmail.
func (s *Store) StartConversation(me models.User, peerEmail string) (models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if peerEmail == me.Email {
		return models.Conversation{}, ErrSelfConversation
	}
	peerID, ok := s.emails[peerEmail]
	if !ok {
		return models.Conversation{}, ErrUnknownUser
	}
	peer := s.users[peerID]

	for _, c := range s.conversations {
		if (c.UserA.ID == me.ID && c.UserB.ID == peer.ID) ||
			(c.UserA.ID == peer.ID && c.UserB.ID == me.ID) {
			return c, nil
		}
	}

	s.nextConvID++
	conv := models.Conversation{ID: s.nextConvID, UserA: me, UserB: peer}
	s.conversations = append(s.conversations, conv)
	return conv, nil
}

// Messages returns the history of one conversation in creation order.
func (s *Store) Messages(conversationID int64) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversationLocked(conversationID); !ok {
		return nil, ErrUnknownConversation
	}
	history := s.messages[conversationID]
	out := make([]models.Message, len(history))
	copy(out, history)
	return out, nil
}

// AppendMessage creates a message with a fresh id and updates the owning
// conversation's preview.
func (s *Store) AppendMessage(conversationID, senderID int64, content string, kind models.MessageKind) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversationLocked(conversationID); !ok {
		return models.Message{}, ErrUnknownConversation
	}

	s.nextMsgID++
	msg := models.Message{
		ID:             s.nextMsgID,
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Kind:           kind,
		CreatedAt:      time.Now().UTC(),
	}
	s.messages[conversationID] = append(s.messages[conversationID], msg)

	for i := range s.conversations {
		if s.conversations[i].ID == conversationID {
			preview := msg.Preview()
			s.conversations[i].LastMessage = &preview
			break
		}
	}
	return msg, nil
}

// DeleteMessage removes a message by id and returns it, so the caller can
// notify the right conversation. The conversation's preview is recomputed
// from the remaining history, so a deleted latest message never survives in
// the listing.
func (s *Store) DeleteMessage(messageID int64) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for convID, history := range s.messages {
		for i, m := range history {
			if m.ID == messageID {
				s.messages[convID] = append(history[:i], history[i+1:]...)
				s.refreshPreviewLocked(convID)
				return m, nil
			}
		}
	}
	return models.Message{}, ErrUnknownMessage
}

func (s *Store) refreshPreviewLocked(conversationID int64) {
	for i := range s.conversations {
		if s.conversations[i].ID != conversationID {
			continue
		}
		history := s.messages[conversationID]
		if len(history) == 0 {
			s.conversations[i].LastMessage = nil
			return
		}
		preview := history[len(history)-1].Preview()
		s.conversations[i].LastMessage = &preview
		return
	}
}
