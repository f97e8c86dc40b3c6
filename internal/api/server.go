// Package api 为界面提供 HTTP 接口
//
// 每个 Server 持有一个提交流程；状态查询、房产列表与文档认证为只读接口。
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/landverify/client-sdk-go/services/docauth"
	"github.com/landverify/client-sdk-go/services/landtitle"
	"github.com/landverify/client-sdk-go/services/property"
	"github.com/landverify/client-sdk-go/services/state"
)

// Deps 接口依赖
//
// Workflow 为 nil 时必须提供 ConfigErr，流程相关接口统一返回配置指引。
// State、Properties、DocAuth 为 nil 时对应接口返回配置缺失；Health 为 nil 时不检查节点。
type Deps struct {
	Workflow   *landtitle.Workflow
	ConfigErr  error
	State      state.Service
	Properties property.Service
	DocAuth    docauth.Service
	Health     func(ctx context.Context) error
	// Network 网络名，用于生成浏览器链接
	Network string

	Logger   *zap.Logger
	Registry *prometheus.Registry
}

// Server HTTP 服务
type Server struct {
	deps     Deps
	logger   *zap.Logger
	engine   *gin.Engine
	upgrader websocket.Upgrader
	http     *http.Server
}

// NewServer 创建 HTTP 服务并注册路由
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}
	if deps.Workflow == nil && deps.ConfigErr == nil {
		deps.ConfigErr = errWorkflowUnavailable
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		deps:   deps,
		logger: deps.Logger,
		engine: gin.New(),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	metrics := newMetrics(deps.Registry)
	s.engine.Use(
		requestID(),
		gin.CustomRecovery(s.recover),
		metrics.middleware(),
		accessLog(s.logger),
	)
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.engine

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.deps.Registry, promhttp.HandlerOpts{})))
	r.GET("/ws", s.handleStream)

	api := r.Group("/api")
	{
		api.GET("/state", s.handleState)
		api.POST("/verification", s.handleVerification)
		api.POST("/transfer", s.handleTransfer)
		api.POST("/ack", s.handleAcknowledge)
		api.POST("/cancel", s.handleCancel)
		api.POST("/reset", s.handleReset)

		api.GET("/overview", s.handleOverview)
		api.GET("/accounts/:address", s.handleAccount)
		api.GET("/apps/:id", s.handleApp)
		api.GET("/apps/:id/verified-hash", s.handleVerifiedHash)
		api.GET("/apps/:id/history", s.handleHistory)

		api.GET("/properties", s.handleProperties)
		api.GET("/properties/:id", s.handleProperty)

		api.GET("/auth/login", s.handleLoginURL)
		api.POST("/auth/callback", s.handleAuthCallback)
	}
}

// Handler 返回 http.Handler（测试使用）
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start 监听 addr 并阻塞直到服务关闭
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("HTTP server listening", zap.String("addr", addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭，并取消进行中的尝试
func (s *Server) Shutdown(ctx context.Context) error {
	if s.deps.Workflow != nil {
		s.deps.Workflow.Cancel()
	}
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
