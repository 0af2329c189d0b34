// Package channel implements the persistent bidirectional event connection:
// a websocket client with read/write pumps, a typed inbound event stream and
// automatic reconnection.
package channel

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"ligdichat/client/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192

	sendBuffer        = 256
	reconnectMinDelay = time.Second
	reconnectMaxDelay = 30 * time.Second
)

// Client maintains one authenticated channel connection per session. It owns
// the reconnect policy; after every successful redial it delivers a
// Reconnected event so the consumer can restore room membership.
type Client struct {
	url    string
	token  string
	connID string

	send   chan Envelope
	events chan Inbound

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient prepares a channel client for the given websocket URL and bearer
// token. No connection is made until Connect.
func NewClient(url, token string) *Client {
	return &Client{
		url:    url,
		token:  token,
		connID: uuid.New().String(),
		send:   make(chan Envelope, sendBuffer),
		events: make(chan Inbound, sendBuffer),
		done:   make(chan struct{}),
	}
}

// Events returns the stream of validated inbound events. It is closed when
// the client shuts down for good.
func (c *Client) Events() <-chan Inbound {
	return c.events
}

// Connect dials the server and starts the pumps. An error here means the
// initial dial failed; no background reconnection is attempted in that case.
func (c *Client) Connect() error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	go c.run(conn)
	return nil
}

func (c *Client) dial() (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)
	conn, _, err := websocket.DefaultDialer.Dial(c.url, header)
	return conn, err
}

// run drives one connection at a time: pumps until the read side fails, then
// redials with capped backoff until shutdown.
func (c *Client) run(conn *websocket.Conn) {
	defer close(c.events)

	for {
		connDone := make(chan struct{})
		go c.writePump(conn, connDone)

		c.readLoop(conn)
		close(connDone)
		conn.Close()

		select {
		case <-c.done:
			return
		default:
		}

		delay := reconnectMinDelay
		for {
			log.Printf("channel %s: connection lost, redialing in %v", c.connID, delay)
			select {
			case <-c.done:
				return
			case <-time.After(delay):
			}

			next, err := c.dial()
			if err == nil {
				conn = next
				break
			}
			if delay *= 2; delay > reconnectMaxDelay {
				delay = reconnectMaxDelay
			}
		}

		c.deliver(Reconnected{})
	}
}

// readLoop consumes frames until the connection errors, decoding each one at
// the boundary. Unknown or malformed frames are dropped, never surfaced.
func (c *Client) readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("channel %s: read error: %v", c.connID, err)
			}
			return
		}

		ev, err := DecodeInbound(data)
		if err != nil {
			log.Printf("channel %s: dropping frame: %v", c.connID, err)
			continue
		}
		c.deliver(ev)
	}
}

func (c *Client) deliver(ev Inbound) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// writePump serializes all writes for one connection and keeps it alive with
// periodic pings.
func (c *Client) writePump(conn *websocket.Conn, connDone chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case env := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(env); err != nil {
				log.Printf("channel %s: write error: %v", c.connID, err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-connDone:
			return
		case <-c.done:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// emit queues one outbound event. Membership and typing signals are thin;
// if the connection is down or the buffer is full the frame is dropped and
// the reconnect path restores whatever state matters.
func (c *Client) emit(event string, payload any) {
	env, err := encodeOutbound(event, payload)
	if err != nil {
		log.Printf("channel %s: %v", c.connID, err)
		return
	}
	select {
	case c.send <- env:
	default:
		log.Printf("channel %s: send buffer full, dropping %s", c.connID, event)
	}
}

// Announce identifies this session to the server after connect or reconnect.
func (c *Client) Announce(me models.User) {
	c.emit(EventUserConnected, me)
}

// Join subscribes this session to a conversation's room.
func (c *Client) Join(conversationID int64) {
	c.emit(EventJoinConversation, map[string]int64{"conversationId": conversationID})
}

// Leave unsubscribes this session from a conversation's room.
func (c *Client) Leave(conversationID int64) {
	c.emit(EventLeaveConversation, map[string]int64{"conversationId": conversationID})
}

// Typing signals that we started typing in a conversation.
func (c *Client) Typing(conversationID int64, user models.User) {
	c.emit(EventTyping, TypingPayload{ConversationID: conversationID, User: user})
}

// StopTyping signals that we stopped typing in a conversation.
func (c *Client) StopTyping(conversationID int64, user models.User) {
	c.emit(EventStopTyping, TypingPayload{ConversationID: conversationID, User: user})
}

// Close shuts the client down. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}
