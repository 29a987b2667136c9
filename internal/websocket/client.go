package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	apperrors "github.com/wfunc/spin-engine/internal/errors"
	"go.uber.org/zap"
)

// Client 一个展示端连接，只订阅一个会话
type Client struct {
	ID        string
	SessionID string
	Hub       *Hub
	Conn      *websocket.Conn
	Send      chan []byte
}

// NewClient 创建客户端
func NewClient(hub *Hub, conn *websocket.Conn, sessionID string) *Client {
	return &Client{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Hub:       hub,
		Conn:      conn,
		Send:      make(chan []byte, hub.opts.SendBuffer),
	}
}

// ReadPump 读取上行消息，连接断开时注销
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	opts := c.Hub.opts
	c.Conn.SetReadLimit(opts.MaxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(opts.PongTimeout))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(opts.PongTimeout))
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("WebSocket读取错误", zap.String("client_id", c.ID), zap.Error(err))
			}
			return
		}
		c.handleMessage(data)
	}
}

// WritePump 写出下行消息并定时发送 ping
func (c *Client) WritePump() {
	opts := c.Hub.opts
	ticker := time.NewTicker(opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(opts.WriteTimeout))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// 每条消息一帧，展示端按帧解析
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(opts.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage 上行只接受心跳，旋转请求走 HTTP
func (c *Client) handleMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.reply(MessageTypeError, apperrors.New(apperrors.ErrMessageFormat, err.Error()))
		return
	}
	switch msg.Type {
	case MessageTypePing:
		c.reply(MessageTypePong, nil)
	case MessageTypePong:
	default:
		c.reply(MessageTypeError, apperrors.Newf(apperrors.ErrMessageFormat, "不支持的消息类型: %s", msg.Type))
	}
}

func (c *Client) reply(msgType string, payload interface{}) {
	msg := &Message{Type: msgType, SessionID: c.SessionID, Timestamp: time.Now().Unix()}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		msg.Data = data
	}
	c.Hub.deliver(c, msg)
}

// Attach 为已升级的连接创建客户端、注册到 Hub 并启动读写协程
func (h *Hub) Attach(conn *websocket.Conn, sessionID string) (*Client, bool) {
	client := NewClient(h, conn, sessionID)
	if !h.Register(client) {
		conn.Close()
		return nil, false
	}
	go client.WritePump()
	go client.ReadPump()
	return client, true
}
