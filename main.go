package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lightcycle/config"
	"lightcycle/server"
)

// 入口：加载配置，初始化日志与会话管理器，启动 HTTP + WebSocket 服务
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	var addr string
	flag.StringVar(&addr, "addr", cfg.Addr, "server listen address, e.g. :8080")
	flag.Parse()

	// 使用第三方 zap 日志库写入滚动日志文件
	if err := server.InitLogger(cfg.LogFile, cfg.LogLevel, cfg.LogConsole); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	hub := server.NewHub()
	manager, err := server.NewManager(server.ManagerConfig{
		Game: server.GameConfig{
			Cols:              cfg.GridCols,
			Rows:              cfg.GridRows,
			TickInterval:      cfg.TickInterval,
			CountdownFrom:     cfg.CountdownFrom,
			CountdownInterval: cfg.CountdownInterval,
			BroadcastMode:     cfg.BroadcastMode,
			InputBuffer:       64,
		},
		Sender: hub,
	})
	if err != nil {
		server.Log.Fatalf("invalid game config: %v", err)
	}
	gateway := server.NewGateway(manager, hub, cfg.SendQueueSize)

	router := server.NewRouter(server.RouterConfig{
		Mode:        cfg.GinMode,
		StaticDir:   cfg.StaticDir,
		Controllers: []server.Controller{gateway, server.NewAdminController(manager)},
	})
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		server.Log.Infof("light-trail server listening on %s (ws endpoint /ws)", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	server.Log.Info("Shutting down...")

	manager.StopAll()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		server.Log.Errorf("shutdown: %v", err)
	}
}
