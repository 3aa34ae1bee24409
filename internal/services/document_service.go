// internal/services/document_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/edulab-kr/evalassist/internal/config"
	apperrors "github.com/edulab-kr/evalassist/internal/errors"
	"github.com/edulab-kr/evalassist/internal/metrics"
	"github.com/edulab-kr/evalassist/internal/models"
	"github.com/edulab-kr/evalassist/internal/utils"
)

// 结果信封中的错误类别
const (
	ErrFileNotFound   = "file not found"
	ErrAnalysisFailed = "analysis failed"
)

// DocumentService 把本地文件提交给文档数字化接口
type DocumentService struct {
	apiKey   string
	endpoint string
	model    string
	client   *http.Client
	logger   *utils.Logger
}

// NewDocumentService 创建文档服务，缺少API密钥时返回配置错误
func NewDocumentService(cfg *config.Config) (*DocumentService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &DocumentService{
		apiKey:   cfg.UpstageAPIKey,
		endpoint: cfg.DigitizeURL,
		model:    cfg.DigitizeModel,
		client:   &http.Client{Timeout: cfg.RequestTimeout},
		logger:   utils.GetLogger(),
	}, nil
}

// Analyze 上传文件并把结果规范化为 AnalysisResult，不会返回 error
func (s *DocumentService) Analyze(ctx context.Context, filePath string) models.AnalysisResult {
	start := time.Now()
	result, err := s.analyze(ctx, filePath)
	metrics.UpstreamDuration.WithLabelValues("digitize").Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.UpstreamFailures.WithLabelValues("digitize", failureKind(err)).Inc()
		s.logger.Warn("文档分析失败", map[string]interface{}{
			"file":        filepath.Base(filePath),
			"error":       result.Error,
			"kind":        failureKind(err),
			"status_code": result.StatusCode,
		})
	}
	return result
}

// failureKind 失败计数的 kind 标签
func failureKind(err error) string {
	if kind := apperrors.TypeOf(err); kind != "" {
		return string(kind)
	}
	return "unknown"
}

// analyze 失败时同时返回带类型的错误，供指标分类
func (s *DocumentService) analyze(ctx context.Context, filePath string) (models.AnalysisResult, error) {
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return models.AnalysisResult{
				Success: false,
				Error:   ErrFileNotFound,
				Message: filePath,
			}, apperrors.NewNotFoundError("file does not exist: "+filePath, err)
		}
		return failedAnalysis(fmt.Errorf("open document: %w", err))
	}
	defer file.Close()

	body, contentType, err := s.buildMultipart(file, filepath.Base(filePath))
	if err != nil {
		return failedAnalysis(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, body)
	if err != nil {
		return failedAnalysis(apperrors.NewTransportError("create request", err))
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return failedAnalysis(apperrors.ClassifyTransport("digitization request failed", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return failedAnalysis(apperrors.ClassifyTransport("read digitization response", err))
	}

	if resp.StatusCode != http.StatusOK {
		remoteErr := apperrors.NewRemoteError(resp.StatusCode, string(raw))
		return models.AnalysisResult{
			Success:    false,
			Error:      remoteErr.Message,
			Message:    remoteErr.Body,
			StatusCode: remoteErr.StatusCode,
		}, remoteErr
	}

	if !json.Valid(raw) {
		return failedAnalysis(apperrors.NewParseError("response body is not valid JSON", nil))
	}

	return models.AnalysisResult{
		Success:    true,
		Data:       json.RawMessage(raw),
		StatusCode: resp.StatusCode,
	}, nil
}

// buildMultipart 构造数字化请求体，参数固定
func (s *DocumentService) buildMultipart(file io.Reader, filename string) (io.Reader, string, error) {
	var buffer bytes.Buffer
	writer := multipart.NewWriter(&buffer)

	part, err := writer.CreateFormFile("document", filename)
	if err != nil {
		return nil, "", fmt.Errorf("create document field: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("copy document: %w", err)
	}

	fields := []struct{ name, value string }{
		{"model", s.model},
		{"ocr", "auto"},
		{"chart_recognition", "true"},
		{"coordinates", "true"},
		{"output_formats", `["html"]`},
		{"base64_encoding", `["figure"]`},
	}
	for _, f := range fields {
		if err := writer.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f.name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buffer, writer.FormDataContentType(), nil
}

func failedAnalysis(err error) (models.AnalysisResult, error) {
	return models.AnalysisResult{
		Success: false,
		Error:   ErrAnalysisFailed,
		Message: err.Error(),
	}, err
}

// FileInfo 读取文件元数据，文件不存在时返回 NotFoundError
func (s *DocumentService) FileInfo(filePath string) (*models.FileInfo, error) {
	return StatFile(filePath)
}

// StatFile 不依赖服务实例的文件元数据读取
func StatFile(filePath string) (*models.FileInfo, error) {
	stat, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError("file does not exist: "+filePath, err)
		}
		return nil, fmt.Errorf("stat file: %w", err)
	}

	return &models.FileInfo{
		Filename: filepath.Base(filePath),
		Size:     stat.Size(),
		Modified: stat.ModTime(),
	}, nil
}

// ExtractHTML 从成功结果中取出 content.html，取不到时返回空串
func ExtractHTML(result models.AnalysisResult) string {
	if !result.Success || len(result.Data) == 0 {
		return ""
	}

	var payload struct {
		Content struct {
			HTML string `json:"html"`
		} `json:"content"`
		HTML string `json:"html"`
	}
	if err := json.Unmarshal(result.Data, &payload); err != nil {
		return ""
	}
	if payload.Content.HTML != "" {
		return payload.Content.HTML
	}
	return payload.HTML
}
