// Package devserver is a local stand-in for the production backend: it
// implements the REST endpoints and the event channel the client consumes,
// backed by an in-memory store. It exists so the client can be exercised end
// to end on a laptop.
package devserver

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"ligdichat/client/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Local development only; tighten before exposing anywhere.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server glues the gin routes, the store and the hub together.
type Server struct {
	store  *Store
	hub    *Hub
	secret []byte
}

func NewServer(secret string) *Server {
	store := NewStore()
	return &Server{
		store:  store,
		hub:    NewHub(store),
		secret: []byte(secret),
	}
}

// Router builds the full route table.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.POST("/api/token", s.issueToken)

	authed := r.Group("/", s.requireAuth)
	authed.GET("/api/conversations", s.listConversations)
	authed.POST("/api/conversations", s.startConversation)
	authed.GET("/api/users", s.listUsers)
	authed.GET("/api/messages/:conversationId", s.listMessages)
	authed.POST("/api/messages/:conversationId", s.createMessage)
	authed.POST("/api/messages/:conversationId/upload", s.uploadMessage)
	authed.DELETE("/api/messages/:messageId", s.deleteMessage)
	authed.GET("/ws", s.serveChannel)

	return r
}

// issueToken hands out a signed session token for an email, creating the
// user on first sight. There is no password in the stub.
func (s *Server) issueToken(c *gin.Context) {
	var body struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	user := s.store.EnsureUser(strings.TrimSpace(body.Email))

	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     time.Now().Add(72 * time.Hour).Unix(),
		"iss":     "ligdichat-devserver",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// requireAuth validates the bearer token and stashes the caller's identity
// in the request context.
func (s *Server) requireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization token missing"})
		return
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	userID, _ := claims["user_id"].(float64)
	email, _ := claims["email"].(string)
	if userID == 0 || email == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
		return
	}

	c.Set("me", models.User{ID: int64(userID), Email: email})
	c.Next()
}

func me(c *gin.Context) models.User {
	u, _ := c.Get("me")
	return u.(models.User)
}

func (s *Server) listConversations(c *gin.Context) {
	convs := s.store.ConversationsFor(me(c).ID)
	if convs == nil {
		convs = []models.Conversation{}
	}
	c.JSON(http.StatusOK, convs)
}

func (s *Server) startConversation(c *gin.Context) {
	var body struct {
		ParticipantEmail string `json:"participantEmail"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.ParticipantEmail == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "participantEmail is required"})
		return
	}

	conv, err := s.store.StartConversation(me(c), body.ParticipantEmail)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, conv)
}

func (s *Server) listUsers(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Users())
}

func (s *Server) listMessages(c *gin.Context) {
	convID, err := strconv.ParseInt(c.Param("conversationId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	msgs, err := s.store.Messages(convID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	c.JSON(http.StatusOK, msgs)
}

func (s *Server) createMessage(c *gin.Context) {
	convID, err := strconv.ParseInt(c.Param("conversationId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	msg, err := s.store.AppendMessage(convID, me(c).ID, strings.TrimSpace(body.Content), models.KindText)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	s.hub.NotifyMessage(msg)
	c.JSON(http.StatusCreated, msg)
}

// uploadMessage accepts a multipart media upload. The stub does not keep the
// bytes; it answers with a uuid-named locator the way the real CDN path
// would.
func (s *Server) uploadMessage(c *gin.Context) {
	convID, err := strconv.ParseInt(c.Param("conversationId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	kind := models.MessageKind(c.PostForm("type"))
	if !kind.Known() || kind == models.KindText {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported attachment type"})
		return
	}

	locator := "/uploads/" + uuid.New().String() + filepath.Ext(file.Filename)
	msg, err := s.store.AppendMessage(convID, me(c).ID, locator, kind)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	s.hub.NotifyMessage(msg)
	c.JSON(http.StatusCreated, msg)
}

func (s *Server) deleteMessage(c *gin.Context) {
	msgID, err := strconv.ParseInt(c.Param("messageId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	msg, err := s.store.DeleteMessage(msgID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	s.hub.NotifyDeleted(msg)
	c.JSON(http.StatusOK, gin.H{"deleted": msg.ID})
}

// serveChannel upgrades to a websocket and hands the connection to the hub.
func (s *Server) serveChannel(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	s.hub.Serve(conn, me(c))
}
