package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wfunc/spin-engine/internal/database"
	"github.com/wfunc/spin-engine/internal/game"
	"github.com/wfunc/spin-engine/internal/game/catalog"
	"github.com/wfunc/spin-engine/internal/metrics"
	"github.com/wfunc/spin-engine/internal/middleware"
	ws "github.com/wfunc/spin-engine/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RouterConfig 路由依赖
type RouterConfig struct {
	DB       *gorm.DB
	Catalog  *catalog.Catalog
	Sessions *game.SessionManager
	Spins    *game.SpinService
	Hub      *ws.Hub

	WebSocketPath   string
	ReadBufferSize  int
	WriteBufferSize int
	// EnableAdmin 开启配置发布接口
	EnableAdmin bool

	Logger *zap.Logger
}

// Router API路由器
type Router struct {
	engine   *gin.Engine
	db       *gorm.DB
	sessions *game.SessionManager
	hub      *ws.Hub
	log      *zap.Logger

	games     *GameHandler
	spins     *SessionHandler
	websocket *WebSocketHandler
}

// NewRouter 创建路由器
func NewRouter(cfg *RouterConfig) *Router {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(
		middleware.RequestID(),
		middleware.AccessLog(log),
		middleware.Recovery(log),
		metrics.GinMiddleware(),
	)

	r := &Router{
		engine:    engine,
		db:        cfg.DB,
		sessions:  cfg.Sessions,
		hub:       cfg.Hub,
		log:       log,
		games:     NewGameHandler(cfg.Catalog),
		spins:     NewSessionHandler(cfg.Sessions, cfg.Spins),
		websocket: NewWebSocketHandler(cfg.Hub, cfg.Sessions, cfg.ReadBufferSize, cfg.WriteBufferSize, log),
	}

	wsPath := cfg.WebSocketPath
	if wsPath == "" {
		wsPath = "/ws"
	}
	r.setupRoutes(wsPath, cfg.EnableAdmin)
	return r
}

// setupRoutes 设置路由
func (r *Router) setupRoutes(wsPath string, admin bool) {
	r.engine.GET("/health", r.healthCheck)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.engine.GET(wsPath, r.websocket.Subscribe)

	v1 := r.engine.Group("/api/v1")
	{
		v1.GET("/games", r.games.List)
		v1.GET("/games/:id", r.games.Get)

		v1.POST("/sessions", r.spins.Create)
		v1.GET("/sessions/:id", r.spins.Get)
		v1.DELETE("/sessions/:id", r.spins.End)
		v1.GET("/sessions/:id/spins", r.spins.History)
		v1.GET("/sessions/:id/spins/:index/verify", r.spins.Verify)

		v1.POST("/spin", r.spins.Spin)
		v1.GET("/audit/rtp/:gameId", r.spins.AuditRTP)

		if admin {
			v1.PUT("/admin/games/:id", r.games.Publish)
		}
	}

	r.engine.NoRoute(notFoundRoute)
	r.engine.NoMethod(methodNotAllowed)
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := database.Ping(ctx, r.db); err != nil {
		r.log.Warn("健康检查失败", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"message": "数据库不可用",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            "healthy",
		"active_sessions":   r.sessions.Count(),
		"websocket_clients": r.hub.ClientCount(),
	})
}

// Handler 返回 http.Handler，供 http.Server 使用
func (r *Router) Handler() http.Handler {
	return r.engine
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
