// internal/api/error_codes.go
package api

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest      = "BAD_REQUEST"
	ErrorInternalError   = "INTERNAL_ERROR"
	ErrorUnauthorized    = "UNAUTHORIZED"
	ErrorRateLimited     = "RATE_LIMIT_EXCEEDED"
	ErrorPayloadTooLarge = "PAYLOAD_TOO_LARGE"

	// 文件相关错误
	ErrorFileMissing      = "FILE_MISSING"
	ErrorFileInvalid      = "FILE_INVALID"
	ErrorFileUploadFailed = "FILE_UPLOAD_FAILED"

	// 输入校验
	ErrorTextRequired    = "TEXT_REQUIRED"
	ErrorElementRequired = "EVALUATION_ELEMENT_REQUIRED"
	ErrorLevelInvalid    = "LEVEL_INVALID"
	ErrorOptionsInvalid  = "OPTIONS_INVALID"
)
