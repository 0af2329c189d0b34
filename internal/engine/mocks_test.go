package engine_test

import (
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"

	"ligdichat/client/internal/channel"
	"ligdichat/client/internal/models"
)

// MockAPI is a testify mock of the engine.API collaborator, so tests can set
// per-call expectations, inject failures and gate responses.
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) Conversations() ([]models.Conversation, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Conversation), args.Error(1)
}

func (m *MockAPI) Users() ([]models.User, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockAPI) Messages(conversationID int64) ([]models.Message, error) {
	args := m.Called(conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockAPI) SendMessage(conversationID int64, content string) (models.Message, error) {
	args := m.Called(conversationID, content)
	return args.Get(0).(models.Message), args.Error(1)
}

func (m *MockAPI) UploadAttachment(conversationID int64, filename string, file []byte, kind models.MessageKind) (models.Message, error) {
	args := m.Called(conversationID, filename, file, kind)
	return args.Get(0).(models.Message), args.Error(1)
}

func (m *MockAPI) DeleteMessage(messageID int64) error {
	args := m.Called(messageID)
	return args.Error(0)
}

func (m *MockAPI) StartConversation(participantEmail string) (models.Conversation, error) {
	args := m.Called(participantEmail)
	return args.Get(0).(models.Conversation), args.Error(1)
}

// MockChannel is a hand-rolled engine.Channel: it records outbound emissions
// in order and lets tests push inbound events.
type MockChannel struct {
	mu         sync.Mutex
	emissions  []string
	connectErr error

	events chan channel.Inbound
}

func NewMockChannel() *MockChannel {
	return &MockChannel{events: make(chan channel.Inbound, 32)}
}

func (c *MockChannel) record(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emissions = append(c.emissions, s)
}

// Emissions returns a copy of every outbound signal in emission order.
func (c *MockChannel) Emissions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.emissions...)
}

// Push delivers an inbound event as if the server sent it.
func (c *MockChannel) Push(ev channel.Inbound) {
	c.events <- ev
}

func (c *MockChannel) Connect() error                 { return c.connectErr }
func (c *MockChannel) Events() <-chan channel.Inbound { return c.events }
func (c *MockChannel) Close() error                   { return nil }

func (c *MockChannel) Announce(me models.User) {
	c.record("announce:" + me.Email)
}

func (c *MockChannel) Join(conversationID int64) {
	c.record(fmt.Sprintf("join:%d", conversationID))
}

func (c *MockChannel) Leave(conversationID int64) {
	c.record(fmt.Sprintf("leave:%d", conversationID))
}

func (c *MockChannel) Typing(conversationID int64, user models.User) {
	c.record(fmt.Sprintf("typing:%d:%s", conversationID, user.Email))
}

func (c *MockChannel) StopTyping(conversationID int64, user models.User) {
	c.record(fmt.Sprintf("stop_typing:%d:%s", conversationID, user.Email))
}
