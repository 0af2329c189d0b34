package devserver

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ligdichat/client/internal/channel"
	"ligdichat/client/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

// hubClient is one connected session and the rooms it has joined.
type hubClient struct {
	user  models.User
	conn  *websocket.Conn
	send  chan channel.Envelope
	rooms map[int64]bool
}

// Hub tracks connected clients and routes channel events: presence to
// everyone, messages to conversation participants, typing only to joined
// room members.
type Hub struct {
	store *Store

	mu      sync.Mutex
	clients map[int64]*hubClient // one connection per user in the stub
}

func NewHub(store *Store) *Hub {
	return &Hub{
		store:   store,
		clients: make(map[int64]*hubClient),
	}
}

// Serve owns one upgraded connection until it drops.
func (h *Hub) Serve(conn *websocket.Conn, user models.User) {
	c := &hubClient{
		user:  user,
		conn:  conn,
		send:  make(chan channel.Envelope, 256),
		rooms: make(map[int64]bool),
	}

	h.mu.Lock()
	if prev, ok := h.clients[user.ID]; ok {
		prev.conn.Close()
	}
	h.clients[user.ID] = c
	h.mu.Unlock()

	h.broadcastStatus(user.ID, "online")

	go c.writePump()
	h.readPump(c)
}

func (h *Hub) readPump(c *hubClient) {
	defer func() {
		h.mu.Lock()
		// A redial replaces the map entry before this pump notices its
		// connection died; only the current session may announce offline,
		// or the replacement would be reported gone while still connected.
		current := h.clients[c.user.ID] == c
		if current {
			delete(h.clients, c.user.ID)
		}
		h.mu.Unlock()
		close(c.send)
		c.conn.Close()
		if current {
			h.broadcastStatus(c.user.ID, "offline")
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("devserver: read error from %s: %v", c.user.Email, err)
			}
			return
		}

		var env channel.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("devserver: malformed frame from %s: %v", c.user.Email, err)
			continue
		}
		h.handleFrame(c, env)
	}
}

func (h *Hub) handleFrame(c *hubClient, env channel.Envelope) {
	switch env.Event {
	case channel.EventUserConnected:
		// Identity already comes from the bearer token; the announce frame
		// is accepted for protocol compatibility.

	case channel.EventJoinConversation, channel.EventLeaveConversation:
		var payload struct {
			ConversationID int64 `json:"conversationId"`
		}
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return
		}
		h.mu.Lock()
		if env.Event == channel.EventJoinConversation {
			c.rooms[payload.ConversationID] = true
		} else {
			delete(c.rooms, payload.ConversationID)
		}
		h.mu.Unlock()

	case channel.EventTyping, channel.EventStopTyping:
		var payload channel.TypingPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return
		}
		h.toRoom(payload.ConversationID, c.user.ID, env.Event, payload)

	default:
		log.Printf("devserver: ignoring %q from %s", env.Event, c.user.Email)
	}
}

func (c *hubClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *hubClient) enqueue(env channel.Envelope) {
	select {
	case c.send <- env:
	default:
		// Slow consumer: drop rather than block the hub.
	}
}

func envelope(event string, payload any) (channel.Envelope, bool) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("devserver: encode %s: %v", event, err)
		return channel.Envelope{}, false
	}
	return channel.Envelope{Event: event, Payload: raw}, true
}

// broadcastStatus tells every connected client about a presence transition.
func (h *Hub) broadcastStatus(userID int64, status string) {
	env, ok := envelope(channel.EventUserStatus, channel.UserStatus{UserID: userID, Status: status})
	if !ok {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		c.enqueue(env)
	}
}

// toRoom delivers an event to every member of a conversation room except the
// sender.
func (h *Hub) toRoom(conversationID, senderID int64, event string, payload any) {
	env, ok := envelope(event, payload)
	if !ok {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		if c.user.ID == senderID || !c.rooms[conversationID] {
			continue
		}
		c.enqueue(env)
	}
}

// NotifyMessage pushes new_message to both participants of the message's
// conversation, connected or not joined alike, so previews stay fresh
// everywhere.
func (h *Hub) NotifyMessage(msg models.Message) {
	conv, ok := h.store.Conversation(msg.ConversationID)
	if !ok {
		return
	}
	env, ok := envelope(channel.EventNewMessage, msg)
	if !ok {
		return
	}
	h.toParticipants(conv, env)
}

// NotifyDeleted pushes message_deleted to both participants.
func (h *Hub) NotifyDeleted(msg models.Message) {
	conv, ok := h.store.Conversation(msg.ConversationID)
	if !ok {
		return
	}
	env, ok := envelope(channel.EventMessageDeleted, channel.MessageDeleted{ID: msg.ID})
	if !ok {
		return
	}
	h.toParticipants(conv, env)
}

func (h *Hub) toParticipants(conv models.Conversation, env channel.Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range []int64{conv.UserA.ID, conv.UserB.ID} {
		if c, ok := h.clients[id]; ok {
			c.enqueue(env)
		}
	}
}
