package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"poofmail/backend/internal/domain"
	"poofmail/backend/internal/service"
	"poofmail/backend/internal/token"
)

// upgraderFactory 创建带有 Origin 验证的 WebSocket 升级器
func upgraderFactory(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			for _, origin := range allowedOrigins {
				if origin == "*" {
					return true
				}
			}

			requestOrigin := r.Header.Get("Origin")
			if requestOrigin == "" {
				// 没有 Origin，按同源请求处理
				return true
			}

			for _, origin := range allowedOrigins {
				if requestOrigin == origin {
					return true
				}
			}
			return false
		},
	}
}

// MessageType 定义WebSocket消息类型
type MessageType string

const (
	MessageTypeNewMessage  MessageType = "new_message"
	MessageTypePing        MessageType = "ping"
	MessageTypePong        MessageType = "pong"
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypeSubscribed  MessageType = "subscribed"
	MessageTypeError       MessageType = "error"
)

// Message 定义WebSocket消息结构
type Message struct {
	Type      MessageType     `json:"type"`
	MailboxID string          `json:"mailboxId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp int64           `json:"timestamp"` // 毫秒
}

// Client 代表一个WebSocket客户端连接。
// 客户端用邮箱访问令牌认证，只能订阅令牌对应的邮箱。
type Client struct {
	ID         string
	conn       *websocket.Conn
	send       chan []byte
	hub        *Hub
	mailboxIDs map[string]bool // 已订阅的邮箱ID
	mu         sync.RWMutex
	log        *zap.Logger

	MailboxID string // 令牌对应的邮箱ID
}

// Hub 管理所有WebSocket连接
type Hub struct {
	clients        map[string]*Client            // clientID -> Client
	mailboxes      map[string]map[string]*Client // mailboxID -> clientID -> Client
	register       chan *Client
	unregister     chan *Client
	broadcast      chan *BroadcastMessage
	mu             sync.RWMutex
	log            *zap.Logger
	allowedOrigins []string
	auth           *service.MailboxService
}

// BroadcastMessage 广播消息
type BroadcastMessage struct {
	MailboxID string
	Message   *Message
}

// NewHub 创建WebSocket Hub。
func NewHub(allowedOrigins []string, auth *service.MailboxService, log *zap.Logger) *Hub {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Hub{
		clients:        make(map[string]*Client),
		mailboxes:      make(map[string]map[string]*Client),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		broadcast:      make(chan *BroadcastMessage, 256),
		log:            log,
		allowedOrigins: allowedOrigins,
		auth:           auth,
	}
}

// Run 启动Hub
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info("websocket hub stopped")
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			h.log.Info("client registered", zap.String("id", client.ID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				// 从所有邮箱订阅中移除
				for mailboxID := range client.mailboxIDs {
					if clients, exists := h.mailboxes[mailboxID]; exists {
						delete(clients, client.ID)
						if len(clients) == 0 {
							delete(h.mailboxes, mailboxID)
						}
					}
				}
				delete(h.clients, client.ID)
				close(client.send)
				h.log.Info("client unregistered", zap.String("id", client.ID))
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.broadcastToMailbox(msg.MailboxID, msg.Message)

		case <-ticker.C:
			h.pingAllClients()
		}
	}
}

// NewMessageData 新邮件通知数据
type NewMessageData struct {
	MessageID  string `json:"messageId"`
	MailboxID  string `json:"mailboxId"`
	From       string `json:"from"`
	To         string `json:"to"`
	Subject    string `json:"subject"`
	Preview    string `json:"preview,omitempty"`
	HasHTML    bool   `json:"hasHtml"`
	HasText    bool   `json:"hasText"`
	ReceivedAt int64  `json:"receivedAt"`
}

// NotifyNewMessage 向订阅了邮箱的客户端推送新邮件通知。
// 实现 service.Notifier，由 MessageService 在落库后调用。
func (h *Hub) NotifyNewMessage(mailboxID string, message *domain.Message) {
	preview := message.Text
	if len(preview) > 100 {
		preview = preview[:100]
	}

	data, err := json.Marshal(NewMessageData{
		MessageID:  message.ID,
		MailboxID:  mailboxID,
		From:       message.From,
		To:         message.To,
		Subject:    message.Subject,
		Preview:    preview,
		HasHTML:    message.HTML != "",
		HasText:    message.Text != "",
		ReceivedAt: message.ReceivedAt,
	})
	if err != nil {
		h.log.Error("failed to marshal new message data", zap.Error(err))
		return
	}

	msg := &Message{
		Type:      MessageTypeNewMessage,
		MailboxID: mailboxID,
		Data:      data,
		Timestamp: domain.NowMillis(),
	}

	select {
	case h.broadcast <- &BroadcastMessage{MailboxID: mailboxID, Message: msg}:
	default:
		// 广播队列满时丢弃通知，投递路径不能被推送阻塞
		h.log.Warn("broadcast queue full, dropping notification",
			zap.String("mailbox_id", mailboxID))
	}
}

// broadcastToMailbox 向订阅特定邮箱的客户端广播消息
func (h *Hub) broadcastToMailbox(mailboxID string, msg *Message) {
	h.mu.RLock()
	clients := h.mailboxes[mailboxID]
	h.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to marshal message", zap.Error(err))
		return
	}

	for _, client := range clients {
		select {
		case client.send <- data:
		default:
			// 客户端阻塞，跳过
			h.log.Warn("client channel blocked, skipping", zap.String("clientID", client.ID))
		}
	}
}

// pingAllClients 向所有客户端发送ping
func (h *Hub) pingAllClients() {
	data, err := json.Marshal(&Message{
		Type:      MessageTypePing,
		Timestamp: domain.NowMillis(),
	})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		select {
		case client.send <- data:
		default:
			// 跳过阻塞的客户端
		}
	}
}

// closeAllClients 关闭所有客户端连接
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[string]*Client)
	h.mailboxes = make(map[string]map[string]*Client)
}

// authenticateClient 用邮箱访问令牌认证客户端。
// 过期邮箱和无效令牌一视同仁拒绝连接。
func (h *Hub) authenticateClient(c *gin.Context) (*Client, error) {
	tok := c.Query("token")
	if tok == "" {
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" {
				tok = parts[1]
			}
		}
	}

	if tok == "" {
		return nil, errors.New("missing mailbox token")
	}

	mailbox, err := h.auth.Authenticate(tok)
	if err != nil {
		return nil, errors.New("invalid mailbox token")
	}

	return &Client{
		ID:         generateClientID(),
		MailboxID:  mailbox.ID,
		mailboxIDs: make(map[string]bool),
		log:        h.log,
	}, nil
}

// HandleWebSocket 处理WebSocket连接
func HandleWebSocket(hub *Hub) gin.HandlerFunc {
	upgrader := upgraderFactory(hub.allowedOrigins)

	return func(c *gin.Context) {
		client, err := hub.authenticateClient(c)
		if err != nil {
			hub.log.Warn("websocket authentication failed",
				zap.Error(err),
				zap.String("remote_addr", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Error("failed to upgrade connection",
				zap.Error(err),
				zap.String("origin", c.Request.Header.Get("Origin")),
				zap.String("remote_addr", c.ClientIP()))
			return
		}

		client.conn = conn
		client.hub = hub
		client.send = make(chan []byte, 256)

		hub.register <- client

		go client.writePump()
		go client.readPump()
	}
}

// readPump 处理客户端消息
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Error("websocket error", zap.Error(err))
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump 发送消息给客户端
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			c.conn.WriteMessage(websocket.TextMessage, message)

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage 处理接收到的消息
func (c *Client) handleMessage(msg *Message) {
	switch msg.Type {
	case MessageTypeSubscribe:
		c.subscribeMailbox(msg.MailboxID)
	case MessageTypeUnsubscribe:
		c.unsubscribeMailbox(msg.MailboxID)
	case MessageTypePong:
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	default:
		c.log.Warn("unknown message type", zap.String("type", string(msg.Type)))
	}
}

// subscribeMailbox 订阅邮箱。只允许订阅认证令牌所属的邮箱。
func (c *Client) subscribeMailbox(mailboxID string) {
	if mailboxID == "" {
		mailboxID = c.MailboxID
	}
	if mailboxID != c.MailboxID {
		c.log.Warn("subscription denied: no permission",
			zap.String("clientID", c.ID),
			zap.String("mailboxID", mailboxID))
		c.sendError("no permission to access mailbox: " + mailboxID)
		return
	}

	c.mu.Lock()
	c.mailboxIDs[mailboxID] = true
	c.mu.Unlock()

	c.hub.mu.Lock()
	if c.hub.mailboxes[mailboxID] == nil {
		c.hub.mailboxes[mailboxID] = make(map[string]*Client)
	}
	c.hub.mailboxes[mailboxID][c.ID] = c
	c.hub.mu.Unlock()

	c.log.Info("subscribed to mailbox",
		zap.String("clientID", c.ID),
		zap.String("mailboxID", mailboxID))

	c.sendMessage(&Message{
		Type:      MessageTypeSubscribed,
		MailboxID: mailboxID,
		Timestamp: domain.NowMillis(),
	})
}

// sendError 发送错误消息给客户端
func (c *Client) sendError(errMsg string) {
	c.sendMessage(&Message{
		Type:      MessageTypeError,
		Error:     errMsg,
		Timestamp: domain.NowMillis(),
	})
}

// sendMessage 发送消息给客户端
func (c *Client) sendMessage(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("failed to marshal message", zap.Error(err))
		return
	}

	select {
	case c.send <- data:
	default:
		c.log.Warn("client channel blocked", zap.String("clientID", c.ID))
	}
}

// unsubscribeMailbox 取消订阅邮箱
func (c *Client) unsubscribeMailbox(mailboxID string) {
	c.mu.Lock()
	delete(c.mailboxIDs, mailboxID)
	c.mu.Unlock()

	c.hub.mu.Lock()
	if clients, exists := c.hub.mailboxes[mailboxID]; exists {
		delete(clients, c.ID)
		if len(clients) == 0 {
			delete(c.hub.mailboxes, mailboxID)
		}
	}
	c.hub.mu.Unlock()

	c.log.Info("unsubscribed from mailbox",
		zap.String("clientID", c.ID),
		zap.String("mailboxID", mailboxID))
}

// generateClientID 生成客户端ID
func generateClientID() string {
	suffix, err := token.Generate(8)
	if err != nil {
		suffix = "00000000"
	}
	return time.Now().Format("20060102150405") + "-" + suffix
}
