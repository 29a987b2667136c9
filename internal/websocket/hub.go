package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/wfunc/spin-engine/internal/game"
	"github.com/wfunc/spin-engine/internal/game/slot"
	"github.com/wfunc/spin-engine/internal/metrics"
	"go.uber.org/zap"
)

// 消息类型
const (
	MessageTypeConnected = "connected"
	MessageTypeState     = "state"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeError     = "error"
)

// Message 下行消息
type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// StatePayload 状态推送内容，展示端据此播放动画
type StatePayload struct {
	State      game.State            `json:"state"`
	Outcome    *slot.SpinOutcome     `json:"outcome,omitempty"`
	Transition game.TransitionRecord `json:"transition"`
}

// Options 连接参数，零值使用默认值
type Options struct {
	PingInterval   time.Duration
	PongTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

func (o Options) withDefaults() Options {
	if o.PongTimeout <= 0 {
		o.PongTimeout = 60 * time.Second
	}
	if o.PingInterval <= 0 || o.PingInterval >= o.PongTimeout {
		o.PingInterval = o.PongTimeout * 9 / 10
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 4 * 1024
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	return o
}

// Hub 按会话分组的 WebSocket 连接中心
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	sessions map[string]map[string]*Client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	opts   Options
	logger *zap.Logger
}

// NewHub 创建Hub
func NewHub(opts Options, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		sessions:   make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		opts:       opts.withDefaults(),
		logger:     logger,
	}
}

// Run 运行Hub，ctx 取消时关闭所有连接
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.opts.PingInterval)
	defer ticker.Stop()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			h.logger.Info("WebSocket Hub 已停止")
			return
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case <-ticker.C:
			h.broadcast(&Message{Type: MessageTypePing, Timestamp: time.Now().Unix()})
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	group, ok := h.sessions[client.SessionID]
	if !ok {
		group = make(map[string]*Client)
		h.sessions[client.SessionID] = group
	}
	group[client.ID] = client
	metrics.WebSocketClients.Set(float64(len(h.clients)))
	h.mu.Unlock()

	h.logger.Info("WebSocket客户端连接",
		zap.String("client_id", client.ID),
		zap.String("session_id", client.SessionID))

	data, _ := json.Marshal(map[string]string{"client_id": client.ID})
	h.deliver(client, &Message{
		Type:      MessageTypeConnected,
		SessionID: client.SessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.ID)
	if group, ok := h.sessions[client.SessionID]; ok {
		delete(group, client.ID)
		if len(group) == 0 {
			delete(h.sessions, client.SessionID)
		}
	}
	close(client.Send)
	metrics.WebSocketClients.Set(float64(len(h.clients)))
	h.mu.Unlock()

	h.logger.Info("WebSocket客户端断开",
		zap.String("client_id", client.ID),
		zap.String("session_id", client.SessionID))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		close(client.Send)
		delete(h.clients, id)
	}
	h.sessions = make(map[string]map[string]*Client)
	metrics.WebSocketClients.Set(0)
}

// OnStateChange 状态机监听器：把状态变更推送给订阅该会话的客户端。
// 在状态机的调用链上同步执行，只做非阻塞投递。
func (h *Hub) OnStateChange(n game.Notification) {
	data, err := json.Marshal(StatePayload{State: n.State, Outcome: n.Outcome, Transition: n.Transition})
	if err != nil {
		h.logger.Error("序列化状态消息失败", zap.String("session_id", n.SessionID), zap.Error(err))
		return
	}
	h.SendToSession(n.SessionID, &Message{
		Type:      MessageTypeState,
		SessionID: n.SessionID,
		Data:      data,
		Timestamp: n.Transition.At.UnixMilli(),
	})
}

// SendToSession 发送给某个会话的所有客户端，返回送达数量
func (h *Hub) SendToSession(sessionID string, msg *Message) int {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("序列化消息失败", zap.Error(err))
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for _, client := range h.sessions[sessionID] {
		if h.trySend(client, payload) {
			sent++
		}
	}
	return sent
}

func (h *Hub) broadcast(msg *Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		h.trySend(client, payload)
	}
}

func (h *Hub) deliver(client *Client, msg *Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[client.ID]; ok {
		h.trySend(client, payload)
	}
}

// trySend 调用方持有读锁，保证 Send 未被关闭
func (h *Hub) trySend(client *Client, payload []byte) bool {
	select {
	case client.Send <- payload:
		return true
	default:
		h.logger.Warn("客户端发送缓冲区满，丢弃消息",
			zap.String("client_id", client.ID),
			zap.String("session_id", client.SessionID))
		return false
	}
}

// Register 注册客户端，Hub 已停止时返回false
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister 注销客户端
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount 在线连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SessionClientCount 订阅某会话的连接数
func (h *Hub) SessionClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}
