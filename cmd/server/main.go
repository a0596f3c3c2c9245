package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aiwuxian/realm-chronicle/internal/api"
	"github.com/aiwuxian/realm-chronicle/internal/app"
	"github.com/aiwuxian/realm-chronicle/internal/catalog"
	"github.com/aiwuxian/realm-chronicle/internal/config"
	"github.com/aiwuxian/realm-chronicle/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config.DefaultPath); err != nil {
		stop()
		log.Fatalf("❌ %v", err)
	}
}

// run 启动服务直到 ctx 结束或监听失败，返回前关闭数据库与链路追踪
func run(ctx context.Context, configPath string) error {
	// 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	// 链路追踪（未配置 endpoint 时为空操作）
	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("初始化链路追踪失败: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("⚠️ 关闭链路追踪失败: %v\n", err)
		}
	}()

	// 事件目录、数据库、服务
	realm, err := app.New(ctx, cfg)
	if err != nil {
		var cfgErr *catalog.ConfigError
		if errors.As(err, &cfgErr) {
			return fmt.Errorf("事件目录配置错误，拒绝启动: %w", err)
		}
		return fmt.Errorf("初始化失败: %w", err)
	}
	defer realm.Close()

	handler := api.NewHandler(realm.World, realm.Story, realm.Meta, cfg.LLM)

	// 设置Gin路由
	r := gin.Default()
	handler.Register(r)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🏰 Realm Chronicle 启动成功！访问 http://%s", addr)
		log.Printf("📜 当前剧情阶段序列: %v", realm.Phases.Names())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("启动服务器失败: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Println("🛑 正在关闭服务器...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("⚠️ 关闭服务器失败: %v\n", err)
		}
		return nil
	}
}
