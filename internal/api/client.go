// Package api is the REST collaborator of the sync engine: a thin
// authenticated wrapper over the conversation, user and message endpoints.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"ligdichat/client/internal/models"
)

// Error is a non-2xx API response, carrying the server-provided message when
// one was present in the body.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api: unexpected status %d", e.StatusCode)
}

// Client talks to the REST API with a bearer credential attached to every
// call. All methods are safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a Client for the given API base URL and bearer token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// do performs one authenticated request and decodes a JSON response into out.
// A non-2xx status is returned as *Error with the server's "error" field when
// the body carries one.
func (c *Client) do(method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			apiErr.Message = payload.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Conversations fetches the full conversation directory.
func (c *Client) Conversations() ([]models.Conversation, error) {
	var convs []models.Conversation
	if err := c.do(http.MethodGet, "/api/conversations", nil, "", &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// Users fetches the full user directory.
func (c *Client) Users() ([]models.User, error) {
	var users []models.User
	if err := c.do(http.MethodGet, "/api/users", nil, "", &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Messages fetches the full history for one conversation.
func (c *Client) Messages(conversationID int64) ([]models.Message, error) {
	var msgs []models.Message
	path := fmt.Sprintf("/api/messages/%d", conversationID)
	if err := c.do(http.MethodGet, path, nil, "", &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SendMessage posts a text message and returns the created Message with its
// server-assigned id.
func (c *Client) SendMessage(conversationID int64, content string) (models.Message, error) {
	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return models.Message{}, err
	}

	var msg models.Message
	path := fmt.Sprintf("/api/messages/%d", conversationID)
	if err := c.do(http.MethodPost, path, bytes.NewReader(body), "application/json", &msg); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// UploadAttachment posts a media message as a multipart form and returns the
// created Message.
func (c *Client) UploadAttachment(conversationID int64, filename string, file []byte, kind models.MessageKind) (models.Message, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return models.Message{}, err
	}
	if _, err := part.Write(file); err != nil {
		return models.Message{}, err
	}
	if err := w.WriteField("type", string(kind)); err != nil {
		return models.Message{}, err
	}
	if err := w.Close(); err != nil {
		return models.Message{}, err
	}

	var msg models.Message
	path := fmt.Sprintf("/api/messages/%d/upload", conversationID)
	if err := c.do(http.MethodPost, path, &buf, w.FormDataContentType(), &msg); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// DeleteMessage removes a message by id.
func (c *Client) DeleteMessage(messageID int64) error {
	path := fmt.Sprintf("/api/messages/%d", messageID)
	return c.do(http.MethodDelete, path, nil, "", nil)
}

// StartConversation creates (or returns the existing) conversation with the
// user identified by email.
func (c *Client) StartConversation(participantEmail string) (models.Conversation, error) {
	body, err := json.Marshal(map[string]string{"participantEmail": participantEmail})
	if err != nil {
		return models.Conversation{}, err
	}

	var conv models.Conversation
	if err := c.do(http.MethodPost, "/api/conversations", bytes.NewReader(body), "application/json", &conv); err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}
