package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/spin-engine/internal/api"
	"github.com/wfunc/spin-engine/internal/config"
	"github.com/wfunc/spin-engine/internal/database"
	apperrors "github.com/wfunc/spin-engine/internal/errors"
	"github.com/wfunc/spin-engine/internal/game"
	"github.com/wfunc/spin-engine/internal/game/catalog"
	"github.com/wfunc/spin-engine/internal/game/slot"
	"github.com/wfunc/spin-engine/internal/logger"
	"github.com/wfunc/spin-engine/internal/metrics"
	"github.com/wfunc/spin-engine/internal/repository"
	ws "github.com/wfunc/spin-engine/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Server 服务器实例
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	db       *gorm.DB
	catalog  *catalog.Catalog
	sessions *game.SessionManager
	spins    *game.SpinService
	hub      *ws.Hub
	http     *http.Server

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func main() {
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
	)
	flag.Parse()

	if *showVersion {
		printVersion()
		return
	}

	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Get()

	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Cleanup()

	server := NewServer(cfg)
	if err := server.Start(); err != nil {
		logger.Error("服务器启动失败", zap.Error(err))
		server.closeComponents()
		os.Exit(1)
	}

	server.WaitForShutdown()

	if err := server.Shutdown(); err != nil {
		logger.Error("服务器关闭失败", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("服务器已安全关闭")
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:    cfg,
		logger: logger.GetLogger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start 初始化组件并开始监听
func (s *Server) Start() error {
	s.logger.Info("正在启动旋转引擎服务...",
		zap.String("version", Version),
		zap.String("mode", s.cfg.Server.Mode))

	if err := s.initDatabase(); err != nil {
		return err
	}
	if err := s.initGame(); err != nil {
		return err
	}
	s.startServices()

	config.Watch(s.reloadConfig, func(err error) {
		s.logger.Error("配置热更新失败", zap.Error(err))
	})

	s.logger.Info("服务器启动成功", zap.String("http", s.cfg.Server.Addr()))
	return nil
}

// initDatabase 打开数据库并迁移
func (s *Server) initDatabase() error {
	db, err := database.Open(&s.cfg.Database, logger.WithModule(logger.ModuleLedger))
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseConnect, "初始化数据库连接失败")
	}
	s.db = db

	if s.cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db, s.logger); err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabaseConnect, "数据库迁移失败")
		}
	}
	if err := database.Ping(s.ctx, db); err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseConnect, "数据库连接检查失败")
	}
	return nil
}

// initGame 组装游戏目录、会话、旋转流水线和展示推送
func (s *Server) initGame() error {
	gc := s.cfg.Game

	static, err := catalog.NewStaticStore(gc.ConfigDir, logger.WithModule(logger.ModuleCatalog))
	if err != nil {
		// 配置错误在启动时暴露，不带着坏配置运行
		return apperrors.Wrap(err, apperrors.ErrConfigValidate, "加载游戏配置失败")
	}
	repos := repository.NewManager(s.db)
	s.catalog = catalog.New(repos.GameDefinition(), static, catalog.Options{
		CacheSize: gc.CacheSize,
		CacheTTL:  gc.CacheTTL,
	}, logger.WithModule(logger.ModuleCatalog))

	gameLog := logger.WithModule(logger.ModuleGame)
	s.sessions = game.NewSessionManager(&game.SessionConfig{
		Repos:          repos,
		Logger:         gameLog,
		SessionTimeout: gc.SessionTimeout,
		MaxSessions:    gc.MaxSessions,
		InitialBalance: gc.InitialBalance,
	})

	if gc.SeedKey == "" {
		s.logger.Warn("未配置 seed_key，种子派生不带服务端密钥")
	}
	s.spins = game.NewSpinService(&game.SpinServiceConfig{
		Configs:       s.catalog,
		Sessions:      s.sessions,
		Repos:         repos,
		Seeds:         slot.NewSeedSource(gc.SeedKey),
		LedgerTimeout: gc.LedgerTimeout,
		Observer:      metrics.SpinRecorder{},
		Logger:        gameLog,
	})

	wc := s.cfg.WebSocket
	s.hub = ws.NewHub(ws.Options{
		PingInterval:   wc.PingInterval,
		PongTimeout:    wc.PongTimeout,
		WriteTimeout:   wc.WriteTimeout,
		MaxMessageSize: wc.MaxMessageSize,
		SendBuffer:     wc.SendBuffer,
	}, logger.WithModule(logger.ModuleWebSocket))

	s.sessions.AddListener(s.hub.OnStateChange)
	s.sessions.AddListener(game.TransitionMetrics)

	report, err := s.sessions.RecoverSessions(s.ctx)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "恢复会话失败")
	}
	s.logger.Info("游戏组件初始化完成",
		zap.Int("restored_sessions", report.Restored),
		zap.Int64("expired_sessions", report.Expired))
	return nil
}

// startServices 启动后台任务和HTTP服务
func (s *Server) startServices() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.hub.Run(s.ctx)
	}()

	s.sessions.StartCleanupTask(s.ctx, s.cfg.Game.CleanupEvery)

	gin.SetMode(s.cfg.Server.Mode)
	router := api.NewRouter(&api.RouterConfig{
		DB:              s.db,
		Catalog:         s.catalog,
		Sessions:        s.sessions,
		Spins:           s.spins,
		Hub:             s.hub,
		WebSocketPath:   s.cfg.WebSocket.Path,
		ReadBufferSize:  s.cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: s.cfg.WebSocket.WriteBufferSize,
		EnableAdmin:     s.cfg.Server.EnableAdmin,
		Logger:          logger.WithModule(logger.ModuleHTTP),
	})
	s.http = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP服务异常退出", zap.Error(err))
			s.cancel()
		}
	}()
}

// WaitForShutdown 等待退出信号或服务异常
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		s.logger.Info("收到退出信号", zap.String("signal", sig.String()))
	case <-s.ctx.Done():
		s.logger.Warn("服务异常，开始关闭")
	}
}

// Shutdown 优雅关闭：先停止接收请求，等进行中的旋转提交完，再关闭后台任务和数据库
func (s *Server) Shutdown() error {
	s.logger.Info("正在优雅关闭服务器...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	var shutdownErr error
	if s.http != nil {
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			shutdownErr = apperrors.Wrap(err, apperrors.ErrTimeout, "HTTP服务关闭超时")
		}
	}

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		s.logger.Warn("等待后台任务超时")
		if shutdownErr == nil {
			shutdownErr = apperrors.New(apperrors.ErrTimeout, "关闭超时")
		}
	}

	s.closeComponents()
	return shutdownErr
}

// closeComponents 关闭组件
func (s *Server) closeComponents() {
	if err := database.Close(s.db); err != nil {
		s.logger.Error("关闭数据库失败", zap.Error(err))
	}
}

// reloadConfig 热更新：日志级别、模块日志与游戏配置缓存
func (s *Server) reloadConfig(newCfg *config.Config) {
	logger.SetLevel(newCfg.Log.Level)
	s.catalog.Purge()
	s.logger.Info("配置重新加载完成", zap.String("log_level", newCfg.Log.Level))
}

func printVersion() {
	fmt.Printf("旋转引擎服务\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
