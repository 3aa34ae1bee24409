// internal/api/response_helpers.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// APIResponse 标准API响应格式（用于入参错误等非适配器结果）
type APIResponse struct {
	Success   bool      `json:"success"`
	Error     *APIError `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"` // 用于调试和追踪
}

// APIError 标准错误格式
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ResponseHelper 响应助手类
type ResponseHelper struct{}

// NewResponseHelper 创建响应助手
func NewResponseHelper() *ResponseHelper {
	return &ResponseHelper{}
}

// 形如凭据的片段：授权头、查询参数或键值对
var credentialPatterns = []string{
	"bearer ",
	"authorization:",
	"x-api-key:",
	"api_key=",
	"apikey=",
	"access_key=",
	"secret=",
	"token=",
}

// sanitizeErrorMessage 含有凭据片段的消息整体替换
func sanitizeErrorMessage(message string) string {
	lower := strings.ToLower(message)
	for _, pattern := range credentialPatterns {
		if strings.Contains(lower, pattern) {
			return "An internal error occurred"
		}
	}
	return message
}

// Error 错误响应
func (rh *ResponseHelper) Error(c *gin.Context, statusCode int, errorCode, message string, details ...string) {
	apiError := &APIError{
		Code:    errorCode,
		Message: sanitizeErrorMessage(message),
	}

	if len(details) > 0 {
		apiError.Details = sanitizeErrorMessage(details[0])
	}

	c.AbortWithStatusJSON(statusCode, &APIResponse{
		Success:   false,
		Error:     apiError,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	})
}

// BadRequest 400错误响应
func (rh *ResponseHelper) BadRequest(c *gin.Context, code, message string, details ...string) {
	if code == "" {
		code = ErrorBadRequest
	}
	rh.Error(c, http.StatusBadRequest, code, message, details...)
}

// Unauthorized 401错误响应
func (rh *ResponseHelper) Unauthorized(c *gin.Context, message string) {
	rh.Error(c, http.StatusUnauthorized, ErrorUnauthorized, message)
}

// TooLarge 413错误响应
func (rh *ResponseHelper) TooLarge(c *gin.Context, message string) {
	rh.Error(c, http.StatusRequestEntityTooLarge, ErrorPayloadTooLarge, message)
}

// InternalError 500错误响应
func (rh *ResponseHelper) InternalError(c *gin.Context, code, message string, details ...string) {
	if code == "" {
		code = ErrorInternalError
	}
	rh.Error(c, http.StatusInternalServerError, code, message, details...)
}

// getRequestID 获取请求ID
func (rh *ResponseHelper) getRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
