// internal/api/router.go
package api

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/edulab-kr/evalassist/internal/config"
	"github.com/edulab-kr/evalassist/internal/di"
	"github.com/edulab-kr/evalassist/internal/services"
	"github.com/edulab-kr/evalassist/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter 从容器获取服务并配置HTTP路由
func SetupRouter(container *di.Container) (*gin.Engine, *Handler, error) {
	cfg, err := di.Resolve[*config.Config](container, di.ServiceConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("配置未正确初始化: %w", err)
	}

	documentService, err := di.Resolve[*services.DocumentService](container, di.ServiceDocument)
	if err != nil {
		return nil, nil, fmt.Errorf("文档服务未正确初始化: %w", err)
	}

	refineService, err := di.Resolve[*services.RefineService](container, di.ServiceRefine)
	if err != nil {
		return nil, nil, fmt.Errorf("文本改写服务未正确初始化: %w", err)
	}

	uploads, err := di.Resolve[*storage.UploadStore](container, di.ServiceUploads)
	if err != nil {
		return nil, nil, fmt.Errorf("上传存储未正确初始化: %w", err)
	}

	handler := NewHandler(documentService, refineService, uploads, cfg.MaxUploadBytes())

	// 清理协程随进程退出
	limiter := NewRateLimiter()
	limiter.StartCleanup(10*time.Minute, nil)

	return NewRouter(cfg, handler, limiter), handler, nil
}

// NewRouter 注册中间件和路由
func NewRouter(cfg *config.Config, handler *Handler, limiter *RateLimiter) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = cfg.MaxUploadBytes()

	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(accessLogMiddleware())
	r.Use(metricsMiddleware())
	r.Use(corsMiddleware())

	// 静态文件和模板目录存在时才挂载
	if cfg.StaticDir != "" {
		if info, err := os.Stat(cfg.StaticDir); err == nil && info.IsDir() {
			r.Static("/static", cfg.StaticDir)
		}
	}
	if cfg.TemplatesDir != "" {
		pattern := filepath.Join(cfg.TemplatesDir, "*.html")
		if matches, _ := filepath.Glob(pattern); len(matches) > 0 {
			r.LoadHTMLGlob(pattern)
			handler.hasTemplates = true
		}
	}

	// ===============================
	// 页面和运维路由
	// ===============================
	r.GET("/", handler.IndexPage)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	guarded := r.Group("")
	guarded.Use(RateLimitByIP(limiter, cfg.RateLimitPerMinute, time.Minute))
	guarded.Use(APIKeyMiddleware(cfg.AccessKey))

	// WebSocket 支持
	guarded.GET("/ws/refine", handler.RefineWebSocket)

	// ===============================
	// API路由组
	// ===============================
	api := guarded.Group("/api")
	{
		api.GET("/health", handler.Health)

		// 文档数字化
		api.POST("/analyze-document", handler.AnalyzeDocument)

		// 评价要素改写
		improveGroup := api.Group("/improve-text")
		{
			improveGroup.POST("", handler.ImproveText)
			improveGroup.POST("/options", handler.ImproveOptions)
		}

		// 评价标准
		criteriaGroup := api.Group("/evaluation-criteria")
		{
			criteriaGroup.POST("", handler.GenerateCriteria)
			criteriaGroup.POST("/single", handler.GenerateSingleCriterion)
		}
	}

	return r
}
