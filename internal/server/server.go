package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"camwrapper/internal/camera"
	"camwrapper/internal/config"
	"camwrapper/internal/fixup"
)

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config     *config.Config
	httpServer *http.Server
	engine     *gin.Engine
	handler    *Handler
	logger     *zap.Logger
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, module *camera.Module, fixer *fixup.Fixer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fixer == nil {
		fixer = fixup.New(logger)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		config: cfg,
		engine: engine,
		handler: &Handler{
			vendorID: cfg.Vendor.Module,
			module:   module,
			fixer:    fixer,
		},
		logger: logger,
		httpServer: &http.Server{
			Addr:         cfg.ServerAddress(),
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
	s.setupRoutes()

	return s
}

// Handler はルーティング済みのhttp.Handlerを返す
func (s *Server) Handler() http.Handler {
	return s.engine
}

// setupRoutes はHTTPルートを設定する
func (s *Server) setupRoutes() {
	h := s.handler

	s.engine.GET("/health", h.HealthCheck)

	api := s.engine.Group("/api")
	api.GET("/status", h.GetStatus)
	api.GET("/cameras", h.GetCameras)
	api.POST("/cameras/:id/sessions", h.OpenSession)

	api.GET("/sessions", h.GetSessions)
	api.DELETE("/sessions/:sid", h.CloseSession)
	api.GET("/sessions/:sid/parameters", h.GetParameters)
	api.PUT("/sessions/:sid/parameters", h.SetParameters)
	api.POST("/sessions/:sid/actions/:action", h.RunAction)
	api.GET("/sessions/:sid/dump", h.Dump)

	api.POST("/fixup/:direction", h.Fixup)
}

// Start はサーバーを起動する
func (s *Server) Start(ctx context.Context) error {
	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		s.logger.Info("HTTPサーバーを起動しています", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdownCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		s.logger.Info("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		s.logger.Info("シグナルを受信しました", zap.Stringer("signal", sig))
	case err := <-shutdownCh:
		return err
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
// 開いているカメラセッションも全て閉じる
func (s *Server) Shutdown() error {
	s.logger.Info("サーバーをシャットダウンしています")

	// 5秒のタイムアウトを設定
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	if err := s.handler.module.CloseAll(); err != nil {
		return fmt.Errorf("カメラセッションのクローズに失敗: %w", err)
	}

	s.logger.Info("サーバーが正常にシャットダウンされました")
	return nil
}

// requestLogger はリクエストごとにアクセスログを出力するミドルウェア
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// NewFromConfig は設定からベンダーモジュールとラッパーを組み立ててServerを作成する
func NewFromConfig(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loader, err := camera.LookupVendor(cfg.Vendor.Module)
	if err != nil {
		return nil, fmt.Errorf("ベンダーモジュールの取得に失敗: %w", err)
	}

	fixer := fixup.New(logger.Named("fixup"), fixup.WithModeKey(cfg.Vendor.ModeKey))
	module := camera.NewModule(loader, fixer,
		camera.WithMaxSessions(cfg.Vendor.MaxSessions),
		camera.WithLogger(logger.Named("camera")),
		camera.WithParameterLogging(cfg.Log.Parameters),
	)

	return New(cfg, module, fixer, logger.Named("server")), nil
}
