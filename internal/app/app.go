// internal/app/app.go
package app

import (
	"fmt"

	"github.com/edulab-kr/evalassist/internal/config"
	"github.com/edulab-kr/evalassist/internal/di"
	"github.com/edulab-kr/evalassist/internal/services"
	"github.com/edulab-kr/evalassist/internal/storage"
)

// InitServices 按依赖顺序创建所有服务并注册到容器
func InitServices(cfg *config.Config, container *di.Container) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	container.Register(di.ServiceConfig, cfg)

	uploads, err := storage.NewUploadStore(cfg.UploadDir)
	if err != nil {
		return fmt.Errorf("初始化上传目录失败: %w", err)
	}
	container.Register(di.ServiceUploads, uploads)

	documentService, err := services.NewDocumentService(cfg)
	if err != nil {
		return fmt.Errorf("初始化文档服务失败: %w", err)
	}
	container.Register(di.ServiceDocument, documentService)

	refineService, err := services.NewRefineService(cfg)
	if err != nil {
		return fmt.Errorf("初始化文本改写服务失败: %w", err)
	}
	container.Register(di.ServiceRefine, refineService)

	return nil
}

// CheckServices 确认关键服务都已注册
func CheckServices(container *di.Container) error {
	for _, name := range []string{di.ServiceConfig, di.ServiceDocument, di.ServiceRefine, di.ServiceUploads} {
		if !container.Has(name) {
			return fmt.Errorf("关键服务未注册: %s", name)
		}
	}
	return nil
}
