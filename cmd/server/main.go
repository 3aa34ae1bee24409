// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/edulab-kr/evalassist/internal/api"
	"github.com/edulab-kr/evalassist/internal/app"
	"github.com/edulab-kr/evalassist/internal/config"
	"github.com/edulab-kr/evalassist/internal/di"
	"github.com/edulab-kr/evalassist/internal/storage"
	"github.com/edulab-kr/evalassist/internal/utils"
	"github.com/gin-gonic/gin"
)

const (
	sweepInterval     = 10 * time.Minute
	staleUploadMaxAge = time.Hour
)

func main() {
	log.Println("🚀 启动 evalassist 服务器...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	log.Printf("✅ 配置加载完成，端口: %s", cfg.Port)

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// 2. 初始化日志
	logFile := ""
	if cfg.LogDir != "" {
		logFile = filepath.Join(cfg.LogDir, "server_"+time.Now().Format("2006-01-02")+".log")
	}
	if err := utils.InitLogger(logFile, cfg.LogLevel); err != nil {
		log.Printf("⚠️ 无法初始化日志文件: %v", err)
	}
	defer utils.GetLogger().Close()

	// 3. 初始化所有服务（按依赖顺序）
	container := di.GetContainer()
	if err := app.InitServices(cfg, container); err != nil {
		log.Fatalf("初始化服务失败: %v", err)
	}
	if err := app.CheckServices(container); err != nil {
		log.Printf("⚠️ 服务健康检查警告: %v", err)
	}
	log.Printf("✅ 所有服务初始化完成: %v", container.GetNames())

	// 4. 设置路由
	router, handler, err := api.SetupRouter(container)
	if err != nil {
		log.Fatalf("❌ 设置路由失败: %v", err)
	}
	log.Println("✅ 路由设置完成")

	// 5. 后台清理残留上传文件
	stop := make(chan struct{})
	if uploads, err := di.Resolve[*storage.UploadStore](container, di.ServiceUploads); err == nil {
		if n, err := uploads.Sweep(staleUploadMaxAge); err == nil && n > 0 {
			log.Printf("🧹 清理了 %d 个残留上传文件", n)
		}
		uploads.StartSweeper(sweepInterval, staleUploadMaxAge, stop)
	}

	// 6. 启动服务器
	log.Printf("🌐 服务器启动在端口 %s", cfg.Port)
	log.Printf("🔗 访问地址: http://localhost:%s", cfg.Port)

	setupGracefulShutdown(router, cfg.Port, func() {
		close(stop)
		handler.Sessions.Shutdown()
	})
}

// 优雅关闭函数
func setupGracefulShutdown(router *gin.Engine, port string, onShutdown func()) {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 在新的 goroutine 中启动服务器
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ 启动服务器失败: %v", err)
		}
	}()

	// 等待中断信号以进行优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 正在关闭服务器...")
	onShutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("❌ 服务器强制关闭: %v", err)
		return
	}

	log.Println("✅ 服务器优雅关闭完成")
}
