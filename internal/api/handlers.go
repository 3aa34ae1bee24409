// internal/api/handlers.go
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/edulab-kr/evalassist/internal/metrics"
	"github.com/edulab-kr/evalassist/internal/models"
	"github.com/edulab-kr/evalassist/internal/services"
	"github.com/edulab-kr/evalassist/internal/storage"
	"github.com/edulab-kr/evalassist/internal/utils"
	"github.com/gin-gonic/gin"
)

// 允许上传的文档扩展名
var allowedExtensions = map[string]bool{
	".hwp": true,
	".pdf": true,
}

// DocumentAnalyzer 文档数字化
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, filePath string) models.AnalysisResult
	FileInfo(filePath string) (*models.FileInfo, error)
}

// TextRefiner 评价要素改写与评价标准生成
type TextRefiner interface {
	ProviderName() string
	ImproveOne(ctx context.Context, text string, rc *models.ImprovementContext) models.TextImprovementResult
	ImproveOptions(ctx context.Context, text string, rc *models.ImprovementContext, n int) models.TextImprovementResult
	GenerateCriteriaSet(ctx context.Context, element string, existing models.CriteriaSet, rc *models.ImprovementContext) models.TextImprovementResult
	GenerateSingleCriterion(ctx context.Context, level models.Level, element, originalText string, rc *models.ImprovementContext) models.TextImprovementResult
}

// Handler 处理API请求
type Handler struct {
	Documents     DocumentAnalyzer      // 文档数字化服务
	Refiner       TextRefiner           // 文本改写服务
	Uploads       *storage.UploadStore  // 上传暂存
	Sessions      *RefineSessionManager // WebSocket 会话
	Response      *ResponseHelper       // 响应助手
	MaxUploadSize int64
	hasTemplates  bool
}

// NewHandler 创建API处理器
func NewHandler(documents DocumentAnalyzer, refiner TextRefiner, uploads *storage.UploadStore, maxUploadSize int64) *Handler {
	return &Handler{
		Documents:     documents,
		Refiner:       refiner,
		Uploads:       uploads,
		Sessions:      NewRefineSessionManager(),
		Response:      NewResponseHelper(),
		MaxUploadSize: maxUploadSize,
	}
}

// ImproveTextRequest 单句改写 / 多候选改写请求
type ImproveTextRequest struct {
	Text       string                     `json:"text"`
	Context    *models.ImprovementContext `json:"context,omitempty"`
	NumOptions int                        `json:"num_options,omitempty"` // 仅用于多候选
}

// CriteriaSetRequest 生成整套评价标准的请求
type CriteriaSetRequest struct {
	EvaluationElement string                     `json:"evaluation_element"`
	OriginalCriteria  models.CriteriaSet         `json:"original_criteria,omitempty"`
	Context           *models.ImprovementContext `json:"context,omitempty"`
}

// SingleCriterionRequest 生成单个等级评价标准的请求
type SingleCriterionRequest struct {
	Level             string                     `json:"level"`
	EvaluationElement string                     `json:"evaluation_element"`
	OriginalText      string                     `json:"original_text,omitempty"`
	Context           *models.ImprovementContext `json:"context,omitempty"`
}

// analysisFailure 数字化失败时返回给浏览器的结构
type analysisFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// AnalyzeDocument 接收上传的 .hwp/.pdf 文件并返回数字化后的HTML
func (h *Handler) AnalyzeDocument(c *gin.Context) {
	if h.MaxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadSize)
	}

	header, err := c.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			h.Response.TooLarge(c, "file exceeds the upload size limit")
			return
		}
		h.Response.BadRequest(c, ErrorFileMissing, "no file uploaded")
		return
	}

	if header.Filename == "" {
		h.Response.BadRequest(c, ErrorFileMissing, "no file selected")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		h.Response.BadRequest(c, ErrorFileInvalid, "unsupported file type; only .hwp and .pdf are accepted")
		return
	}
	metrics.UploadBytes.Observe(float64(header.Size))

	path, cleanup, err := h.Uploads.Stage(header)
	if err != nil {
		h.Response.InternalError(c, ErrorFileUploadFailed, "failed to store upload", err.Error())
		return
	}
	defer cleanup()

	result := h.Documents.Analyze(c.Request.Context(), path)
	if !result.Success {
		c.JSON(http.StatusOK, analysisFailure{
			Success: false,
			Error:   result.Error,
			Message: result.Message,
		})
		return
	}

	info, err := h.Documents.FileInfo(path)
	if err != nil {
		utils.GetLogger().Warn("读取暂存文件信息失败", map[string]interface{}{"error": err.Error()})
	}

	c.JSON(http.StatusOK, models.DocumentView{
		Success:          true,
		HTMLContent:      services.ExtractHTML(result),
		FileInfo:         info,
		OriginalFilename: header.Filename,
		FullAPIResponse:  &result,
	})
}

// isBodyTooLarge 判断是否因 MaxBytesReader 截断
func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

// ImproveText 把评价要素改写为一句
func (h *Handler) ImproveText(c *gin.Context) {
	var req ImproveTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, ErrorBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		h.Response.BadRequest(c, ErrorTextRequired, "text is required")
		return
	}

	c.JSON(http.StatusOK, h.Refiner.ImproveOne(c.Request.Context(), req.Text, req.Context))
}

// ImproveOptions 生成多个改写候选
func (h *Handler) ImproveOptions(c *gin.Context) {
	var req ImproveTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, ErrorBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		h.Response.BadRequest(c, ErrorTextRequired, "text is required")
		return
	}
	if req.NumOptions > services.MaxOptionCount {
		h.Response.BadRequest(c, ErrorOptionsInvalid, fmt.Sprintf("num_options must be at most %d", services.MaxOptionCount))
		return
	}

	c.JSON(http.StatusOK, h.Refiner.ImproveOptions(c.Request.Context(), req.Text, req.Context, req.NumOptions))
}

// GenerateCriteria 生成四个等级的评价标准
func (h *Handler) GenerateCriteria(c *gin.Context) {
	var req CriteriaSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, ErrorBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.EvaluationElement) == "" {
		h.Response.BadRequest(c, ErrorElementRequired, "evaluation_element is required")
		return
	}

	c.JSON(http.StatusOK, h.Refiner.GenerateCriteriaSet(c.Request.Context(), req.EvaluationElement, req.OriginalCriteria, req.Context))
}

// GenerateSingleCriterion 重新生成某一个等级的评价标准
func (h *Handler) GenerateSingleCriterion(c *gin.Context) {
	var req SingleCriterionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, ErrorBadRequest, "invalid request body", err.Error())
		return
	}
	level, ok := models.ParseLevel(req.Level)
	if !ok {
		h.Response.BadRequest(c, ErrorLevelInvalid, "level must be one of 매우잘함, 잘함, 보통, 노력요함")
		return
	}
	if strings.TrimSpace(req.EvaluationElement) == "" {
		h.Response.BadRequest(c, ErrorElementRequired, "evaluation_element is required")
		return
	}

	c.JSON(http.StatusOK, h.Refiner.GenerateSingleCriterion(c.Request.Context(), level, req.EvaluationElement, req.OriginalText, req.Context))
}

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":             "healthy",
		"message":            "document and refinement service is running",
		"provider":           h.Refiner.ProviderName(),
		"websocket_sessions": h.Sessions.Count(),
		"timestamp":          time.Now().Format(time.RFC3339),
	})
}

// IndexPage 返回主页
func (h *Handler) IndexPage(c *gin.Context) {
	if !h.hasTemplates {
		c.JSON(http.StatusOK, gin.H{
			"message": "evalassist API",
			"routes": []string{
				"POST /api/analyze-document",
				"POST /api/improve-text",
				"POST /api/improve-text/options",
				"POST /api/evaluation-criteria",
				"POST /api/evaluation-criteria/single",
				"GET /ws/refine",
			},
		})
		return
	}
	c.HTML(http.StatusOK, "html_viewer.html", nil)
}
