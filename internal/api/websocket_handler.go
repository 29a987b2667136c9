package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	apperrors "github.com/wfunc/spin-engine/internal/errors"
	"github.com/wfunc/spin-engine/internal/game"
	ws "github.com/wfunc/spin-engine/internal/websocket"
	"go.uber.org/zap"
)

// WebSocketHandler 展示端订阅接口
type WebSocketHandler struct {
	hub      *ws.Hub
	sessions *game.SessionManager
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(hub *ws.Hub, sessions *game.SessionManager, readBuffer, writeBuffer int, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readBuffer,
			WriteBufferSize: writeBuffer,
			// 展示端与服务部署在不同源，不校验 Origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Subscribe GET /ws?session_id= 订阅会话的状态变更
func (h *WebSocketHandler) Subscribe(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		fail(c, apperrors.New(apperrors.ErrInvalidParam, "缺少 session_id"))
		return
	}
	// 升级前确认会话存在，失败时还能返回普通的错误响应
	if _, err := h.sessions.Get(c.Request.Context(), sessionID); err != nil {
		fail(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket升级失败", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	if _, attached := h.hub.Attach(conn, sessionID); !attached {
		h.logger.Warn("Hub 已停止，拒绝连接", zap.String("session_id", sessionID))
	}
}
