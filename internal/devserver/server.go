// Package devserver is an in-memory stand-in for the portal's chat API and
// push channel. vcmock serves it for local development and tests use it as
// their backend.
package devserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/matheus3301/vitalchat/internal/chat"
	"go.uber.org/zap"
)

// Fault targets accepted by Fail.
const (
	OpConversations = "conversations"
	OpHistory       = "history"
	OpSend          = "send"
	OpRead          = "read"
	OpSocket        = "socket"
)

const ctxUserID = "userID"

// Options configures a Server.
type Options struct {
	Secret []byte
	Users  []User
	Now    func() time.Time
}

// Server serves /api/chat/* and /ws.
type Server struct {
	store  *memStore
	tokens *Tokens
	router *router
	engine *gin.Engine
	logger *zap.Logger

	mu     sync.Mutex
	faults map[string][]int
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// New builds a server seeded with opts.Users.
func New(opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if len(opts.Secret) == 0 {
		opts.Secret = []byte("vitalchat-dev")
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		store:  newMemStore(opts.Users, opts.Now),
		tokens: NewTokens(opts.Secret),
		router: newRouter(),
		engine: gin.New(),
		logger: logger,
		faults: make(map[string][]int),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.Use(gin.Recovery(), s.accessLog())

	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	s.engine.GET("/ws", s.handleSocket)

	api := s.engine.Group("/api", s.authenticate())
	api.GET("/chat/conversations", s.handleConversations)
	api.GET("/chat/conversation/:partnerId", s.handleHistory)
	api.POST("/chat/send", s.handleSend)
	api.PATCH("/chat/read/:partnerId", s.handleRead)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Token issues a bearer token for a seeded user.
func (s *Server) Token(userID string, ttl time.Duration) (string, error) {
	u, ok := s.store.user(userID)
	if !ok {
		return "", errors.New("unknown user " + userID)
	}
	return s.tokens.Sign(u, ttl)
}

// Fail makes the next call to op answer with status. Calls queue up.
func (s *Server) Fail(op string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = append(s.faults[op], status)
}

// Post stores a message from one user to another as if sent through the API
// and pushes it to the conversation room.
func (s *Server) Post(senderID, receiverID, text string) (chat.Message, error) {
	msg, ok := s.store.append(senderID, receiverID, text)
	if !ok {
		return chat.Message{}, errors.New("unknown sender or receiver")
	}
	s.push(msg, "")
	return msg, nil
}

// RoomSize reports how many sockets joined the conversation between a and b.
func (s *Server) RoomSize(a, b string) int {
	return s.router.roomSize(pairRoom(a, b))
}

// Close disconnects every socket.
func (s *Server) Close() {
	s.router.closeAll()
}

func (s *Server) fault(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.faults[op]
	if len(q) == 0 {
		return 0
	}
	s.faults[op] = q[1:]
	return q[0]
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

func bearer(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := s.tokens.Parse(bearer(c.Request))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, token failed"})
			return
		}
		if _, ok := s.store.user(claims.UserID); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "User not found"})
			return
		}
		c.Set(ctxUserID, claims.UserID)
		c.Next()
	}
}

func (s *Server) injected(c *gin.Context, op string) bool {
	if status := s.fault(op); status != 0 {
		c.AbortWithStatusJSON(status, gin.H{"message": "injected failure"})
		return true
	}
	return false
}

func (s *Server) handleConversations(c *gin.Context) {
	if s.injected(c, OpConversations) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": s.store.conversations(c.GetString(ctxUserID))})
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.injected(c, OpHistory) {
		return
	}
	partnerID := c.Param("partnerId")
	if _, ok := s.store.user(partnerID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}
	c.JSON(http.StatusOK, s.store.history(c.GetString(ctxUserID), partnerID))
}

type sendBody struct {
	ReceiverID string `json:"receiverId"`
	Message    string `json:"message"`
}

func (s *Server) handleSend(c *gin.Context) {
	if s.injected(c, OpSend) {
		return
	}
	var body sendBody
	if err := c.ShouldBindJSON(&body); err != nil || body.ReceiverID == "" || strings.TrimSpace(body.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "receiverId and message are required"})
		return
	}
	msg, err := s.Post(c.GetString(ctxUserID), body.ReceiverID, body.Message)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Receiver not found"})
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (s *Server) handleRead(c *gin.Context) {
	if s.injected(c, OpRead) {
		return
	}
	n := s.store.markRead(c.GetString(ctxUserID), c.Param("partnerId"))
	c.JSON(http.StatusOK, gin.H{"message": "Messages marked as read", "modified": n})
}

// push delivers msg to both sides of its conversation.
func (s *Server) push(msg chat.Message, excludeUserID string) {
	env, err := chat.NewEnvelope(chat.PushMessageReceived, msg)
	if err != nil {
		s.logger.Error("encode push", zap.Error(err))
		return
	}
	payload, err := json.Marshal(env)
	if err != nil {
		s.logger.Error("encode push", zap.Error(err))
		return
	}
	s.router.broadcast(pairRoom(msg.Sender.ID, msg.Receiver.ID), payload, excludeUserID)
}

func (s *Server) handleSocket(c *gin.Context) {
	if s.injected(c, OpSocket) {
		return
	}
	claims, err := s.tokens.Parse(bearer(c.Request))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	cn := newConn(claims.UserID, ws)
	s.router.attach(cn)
	defer func() {
		s.router.detach(cn)
		cn.shutdown(websocket.CloseNormalClosure, "session closed")
	}()

	ws.SetReadLimit(1 << 20)
	_ = ws.SetReadDeadline(time.Now().Add(readWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(readWait))

		var env chat.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.reply(cn, "invalid payload")
			continue
		}
		switch env.Event {
		case chat.PushJoinConversation:
			var partnerID string
			if err := json.Unmarshal(env.Data, &partnerID); err != nil || partnerID == "" {
				s.reply(cn, "conversation id is required")
				continue
			}
			s.router.join(pairRoom(cn.userID, partnerID), cn)
		case chat.PushSendMessage:
			s.relay(cn, env.Data)
		default:
			s.reply(cn, "unknown event "+env.Event)
		}
	}
}

// relay rebroadcasts a message the sender already persisted, to everyone but
// the sender. Unknown or foreign messages are rejected.
func (s *Server) relay(cn *conn, data json.RawMessage) {
	var p chat.RelayPayload
	if err := json.Unmarshal(data, &p); err != nil {
		s.reply(cn, "invalid send_message payload")
		return
	}
	stored, ok := s.store.message(p.Message.ID)
	if !ok || stored.Sender.ID != cn.userID {
		s.reply(cn, "unknown message")
		return
	}
	s.push(stored, cn.userID)
}

func (s *Server) reply(cn *conn, msg string) {
	env, _ := chat.NewEnvelope(chat.PushError, msg)
	if payload, err := json.Marshal(env); err == nil {
		_ = cn.enqueue(payload)
	}
}
