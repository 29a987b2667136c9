package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/spin-engine/internal/errors"
	"github.com/wfunc/spin-engine/internal/game"
)

// SessionHandler 会话、旋转与账本接口
type SessionHandler struct {
	sessions *game.SessionManager
	spins    *game.SpinService
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(sessions *game.SessionManager, spins *game.SpinService) *SessionHandler {
	return &SessionHandler{sessions: sessions, spins: spins}
}

// Create POST /api/v1/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	var req game.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindError(err))
		return
	}
	info, err := h.sessions.GetOrCreate(c.Request.Context(), req.PlayerID, req.GameID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, info)
}

// Get GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	info, err := h.sessions.Info(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, info)
}

// End DELETE /api/v1/sessions/:id
func (h *SessionHandler) End(c *gin.Context) {
	if err := h.sessions.End(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"session_id": c.Param("id")})
}

// Spin POST /api/v1/spin
func (h *SessionHandler) Spin(c *gin.Context) {
	var req game.SpinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindError(err))
		return
	}
	resp, err := h.spins.Spin(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, resp)
}

// History GET /api/v1/sessions/:id/spins?page=&page_size=
func (h *SessionHandler) History(c *gin.Context) {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		fail(c, err)
		return
	}
	size, err := queryInt(c, "page_size", 20)
	if err != nil {
		fail(c, err)
		return
	}
	history, err := h.spins.History(c.Request.Context(), c.Param("id"), page, size)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, history)
}

// Verify GET /api/v1/sessions/:id/spins/:index/verify
func (h *SessionHandler) Verify(c *gin.Context) {
	index, err := strconv.ParseInt(c.Param("index"), 10, 64)
	if err != nil || index <= 0 {
		fail(c, apperrors.New(apperrors.ErrInvalidParam, "index 必须是正整数"))
		return
	}
	result, err := h.spins.Verify(c.Request.Context(), c.Param("id"), index)
	if err != nil {
		if result != nil {
			failWith(c, err, result)
			return
		}
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, result)
}

// AuditRTP GET /api/v1/audit/rtp/:gameId
func (h *SessionHandler) AuditRTP(c *gin.Context) {
	report, err := h.spins.AuditRTP(c.Request.Context(), c.Param("gameId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, report)
}
