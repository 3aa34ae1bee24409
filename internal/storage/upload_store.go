// internal/storage/upload_store.go
package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const uploadPattern = "upload-*"

// UploadStore 把上传文件暂存为临时文件，分析结束后删除
type UploadStore struct {
	BaseDir string
}

// NewUploadStore 创建上传暂存目录
func NewUploadStore(baseDir string) (*UploadStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("创建上传目录失败: %w", err)
	}
	return &UploadStore{BaseDir: baseDir}, nil
}

// Stage 保存上传文件（保留扩展名），返回路径和清理函数
func (us *UploadStore) Stage(header *multipart.FileHeader) (string, func(), error) {
	src, err := header.Open()
	if err != nil {
		return "", nil, fmt.Errorf("打开上传文件失败: %w", err)
	}
	defer src.Close()

	return us.StageReader(src, filepath.Ext(header.Filename))
}

// StageReader 把任意 reader 写入临时文件
func (us *UploadStore) StageReader(src io.Reader, ext string) (string, func(), error) {
	dst, err := os.CreateTemp(us.BaseDir, uploadPattern+strings.ToLower(ext))
	if err != nil {
		return "", nil, fmt.Errorf("创建临时文件失败: %w", err)
	}
	path := dst.Name()
	cleanup := func() {
		os.Remove(path)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		cleanup()
		return "", nil, fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := dst.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("关闭临时文件失败: %w", err)
	}

	return path, cleanup, nil
}

// Sweep 删除超过 maxAge 的残留文件（进程异常退出时留下的），返回删除数量
func (us *UploadStore) Sweep(maxAge time.Duration) (int, error) {
	matches, err := filepath.Glob(filepath.Join(us.BaseDir, uploadPattern))
	if err != nil {
		return 0, err
	}

	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// StartSweeper 周期性清理，stop 关闭时退出
func (us *UploadStore) StartSweeper(interval, maxAge time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				us.Sweep(maxAge)
			case <-stop:
				return
			}
		}
	}()
}
