package devserver_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ligdichat/client/internal/channel"
	"ligdichat/client/internal/devserver"
	"ligdichat/client/internal/models"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ts := httptest.NewServer(devserver.NewServer("test-secret").Router())
	t.Cleanup(ts.Close)
	return ts
}

// obtainToken registers email and returns its bearer token and user record.
func obtainToken(t *testing.T, ts *httptest.Server, email string) (string, models.User) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"email": email})
	resp, err := http.Post(ts.URL+"/api/token", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.Token, out.User
}

func request(t *testing.T, ts *httptest.Server, token, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/conversations")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestConversationAndMessageFlow(t *testing.T) {
	ts := newTestServer(t)
	aliceTok, alice := obtainToken(t, ts, "alice@x")
	_, bob := obtainToken(t, ts, "bob@x")

	// Start a conversation and post into it.
	resp := request(t, ts, aliceTok, http.MethodPost, "/api/conversations", map[string]string{"participantEmail": "bob@x"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	conv := decode[models.Conversation](t, resp)
	assert.Equal(t, bob.Email, conv.Other(alice).Email)

	resp = request(t, ts, aliceTok, http.MethodPost, "/api/messages/1", map[string]string{"content": "hi bob"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[models.Message](t, resp)
	assert.Equal(t, alice.ID, created.SenderID)
	assert.Equal(t, models.KindText, created.Kind)

	resp = request(t, ts, aliceTok, http.MethodGet, "/api/messages/1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decode[[]models.Message](t, resp)
	require.Len(t, history, 1)
	assert.Equal(t, "hi bob", history[0].Content)

	// The directory carries the preview.
	resp = request(t, ts, aliceTok, http.MethodGet, "/api/conversations", nil)
	convs := decode[[]models.Conversation](t, resp)
	require.Len(t, convs, 1)
	require.NotNil(t, convs[0].LastMessage)
	assert.Equal(t, "hi bob", convs[0].LastMessage.Content)

	// Delete and verify.
	resp = request(t, ts, aliceTok, http.MethodDelete, "/api/messages/1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = request(t, ts, aliceTok, http.MethodGet, "/api/messages/1", nil)
	assert.Empty(t, decode[[]models.Message](t, resp))
}

func TestEmptyContentRejected(t *testing.T) {
	ts := newTestServer(t)
	tok, _ := obtainToken(t, ts, "alice@x")
	obtainToken(t, ts, "bob@x")
	request(t, ts, tok, http.MethodPost, "/api/conversations", map[string]string{"participantEmail": "bob@x"}).Body.Close()

	resp := request(t, ts, tok, http.MethodPost, "/api/messages/1", map[string]string{"content": "   "})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "content is required", body.Error)
}

func dialWS(t *testing.T, ts *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) channel.Inbound {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	ev, err := channel.DecodeInbound(data)
	require.NoError(t, err)
	return ev
}

func writeEvent(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(channel.Envelope{Event: event, Payload: raw}))
}

// A client redials long before the server's pong timeout notices the old
// connection is dead. The replaced session's teardown must not announce the
// user offline, or peers would drop someone who is still connected.
func TestChannelRedialDoesNotAnnounceOffline(t *testing.T) {
	ts := newTestServer(t)
	aliceTok, alice := obtainToken(t, ts, "alice@x")
	bobTok, bob := obtainToken(t, ts, "bob@x")

	aliceConn := dialWS(t, ts, aliceTok)
	assert.Equal(t, channel.UserStatus{UserID: alice.ID, Status: "online"}, readEvent(t, aliceConn))

	dialWS(t, ts, bobTok)
	assert.Equal(t, channel.UserStatus{UserID: bob.ID, Status: "online"}, readEvent(t, aliceConn))

	// Bob redials; the hub closes his first connection itself. The replaced
	// session must not produce an offline on its way out, so the only thing
	// Alice sees is the fresh online.
	bobConn2 := dialWS(t, ts, bobTok)
	assert.Equal(t, channel.UserStatus{UserID: bob.ID, Status: "online"}, readEvent(t, aliceConn))

	// Dropping the surviving connection reports offline exactly once.
	bobConn2.Close()
	assert.Equal(t, channel.UserStatus{UserID: bob.ID, Status: "offline"}, readEvent(t, aliceConn))

	aliceConn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, err := aliceConn.ReadMessage()
	require.Error(t, err)
	assert.True(t, os.IsTimeout(err), "expected a read timeout, got %v", err)
}

func TestChannelPresenceMessageAndTypingDelivery(t *testing.T) {
	ts := newTestServer(t)
	aliceTok, alice := obtainToken(t, ts, "alice@x")
	bobTok, bob := obtainToken(t, ts, "bob@x")
	request(t, ts, aliceTok, http.MethodPost, "/api/conversations", map[string]string{"participantEmail": "bob@x"}).Body.Close()

	aliceConn := dialWS(t, ts, aliceTok)
	// The hub echoes the dialer's own presence transition too.
	assert.Equal(t, channel.UserStatus{UserID: alice.ID, Status: "online"}, readEvent(t, aliceConn))

	// Bob connecting shows up as a presence transition on Alice's channel.
	bobConn := dialWS(t, ts, bobTok)
	assert.Equal(t, channel.UserStatus{UserID: bob.ID, Status: "online"}, readEvent(t, bobConn))
	assert.Equal(t, channel.UserStatus{UserID: bob.ID, Status: "online"}, readEvent(t, aliceConn))

	// Typing is scoped to joined room members.
	writeEvent(t, aliceConn, channel.EventJoinConversation, map[string]int64{"conversationId": 1})
	writeEvent(t, bobConn, channel.EventJoinConversation, map[string]int64{"conversationId": 1})
	time.Sleep(50 * time.Millisecond) // let joins land before the typing signal
	writeEvent(t, bobConn, channel.EventTyping, channel.TypingPayload{ConversationID: 1, User: bob})

	typing, ok := readEvent(t, aliceConn).(channel.Typing)
	require.True(t, ok)
	assert.Equal(t, bob.Email, typing.User.Email)

	// A REST send fans out as new_message to both participants.
	resp := request(t, ts, aliceTok, http.MethodPost, "/api/messages/1", map[string]string{"content": "hi"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	for _, conn := range []*websocket.Conn{aliceConn, bobConn} {
		nm, ok := readEvent(t, conn).(channel.NewMessage)
		require.True(t, ok)
		assert.Equal(t, "hi", nm.Message.Content)
		assert.Equal(t, alice.ID, nm.Message.SenderID)
	}
}
