package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/spin-engine/internal/errors"
	"github.com/wfunc/spin-engine/internal/game/catalog"
	"github.com/wfunc/spin-engine/internal/game/slot"
)

// GameHandler 游戏目录接口
type GameHandler struct {
	catalog *catalog.Catalog
}

// NewGameHandler 创建游戏目录处理器
func NewGameHandler(c *catalog.Catalog) *GameHandler {
	return &GameHandler{catalog: c}
}

// GameDetail 单个游戏的摘要和完整配置
type GameDetail struct {
	catalog.GameSummary
	Config *slot.GameConfig `json:"config"`
}

// List GET /api/v1/games
func (h *GameHandler) List(c *gin.Context) {
	games, err := h.catalog.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, games)
}

// Get GET /api/v1/games/:id
func (h *GameHandler) Get(c *gin.Context) {
	resolved, err := h.catalog.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, GameDetail{
		GameSummary: catalog.Summarize(resolved.Config, resolved.Source, resolved.Version),
		Config:      resolved.Config,
	})
}

// Publish PUT /api/v1/admin/games/:id 发布或更新远程配置，enabled=false 时下线
func (h *GameHandler) Publish(c *gin.Context) {
	var cfg slot.GameConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		fail(c, bindError(err))
		return
	}
	id := c.Param("id")
	if cfg.GameID == "" {
		cfg.GameID = id
	}
	if cfg.GameID != id {
		fail(c, apperrors.Newf(apperrors.ErrInvalidParam, "路径 %s 与配置 %s 不一致", id, cfg.GameID))
		return
	}
	enabled := true
	if raw := c.Query("enabled"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			fail(c, apperrors.New(apperrors.ErrInvalidParam, "enabled 必须是布尔值"))
			return
		}
		enabled = v
	}

	if err := h.catalog.Publish(c.Request.Context(), &cfg, enabled); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"game_id": id, "enabled": enabled})
}
