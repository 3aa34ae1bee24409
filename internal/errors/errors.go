// internal/errors/errors.go
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorType 定义错误类型
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation_error"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeConfiguration ErrorType = "configuration_error"
	ErrorTypeRemote        ErrorType = "remote_error"
	ErrorTypeTransport     ErrorType = "transport_error"
	ErrorTypeParse         ErrorType = "parse_error"
	ErrorTypeTimeout       ErrorType = "timeout"
)

// AppError 应用程序错误结构
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string // 用户友好的错误代码

	// 仅 RemoteError 使用：远端返回的状态码和原始响应体
	StatusCode int
	Body       string
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap 实现错误链接
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError 创建新的 AppError
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

// NewValidationError 创建验证错误
func NewValidationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeValidation, message, originalError)
}

// NewNotFoundError 创建未找到错误
func NewNotFoundError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, originalError)
}

// NewConfigurationError 创建配置错误（启动阶段致命）
func NewConfigurationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeConfiguration, message, originalError)
}

// NewRemoteError 创建远端非2xx响应错误
func NewRemoteError(statusCode int, body string) *AppError {
	e := NewAppError(ErrorTypeRemote, fmt.Sprintf("API error: %d", statusCode), nil)
	e.StatusCode = statusCode
	e.Body = body
	return e
}

// NewTransportError 创建网络/解码错误
func NewTransportError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeTransport, message, originalError)
}

// NewParseError 创建解析错误
func NewParseError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeParse, message, originalError)
}

// NewTimeoutError 创建超时错误
func NewTimeoutError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeTimeout, message, originalError)
}

// ClassifyTransport 出站请求失败时区分超时和其他网络错误
func ClassifyTransport(message string, err error) *AppError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return NewTimeoutError(message, err)
	}
	return NewTransportError(message, err)
}

// TypeOf 返回错误链中第一个 AppError 的类型，非 AppError 返回空字符串
func TypeOf(err error) ErrorType {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type
	}
	return ""
}

// IsNotFoundError 检查是否为未找到错误
func IsNotFoundError(err error) bool {
	return TypeOf(err) == ErrorTypeNotFound
}

// IsConfigurationError 检查是否为配置错误
func IsConfigurationError(err error) bool {
	return TypeOf(err) == ErrorTypeConfiguration
}

// IsRemoteError 检查是否为远端错误
func IsRemoteError(err error) bool {
	return TypeOf(err) == ErrorTypeRemote
}

// IsTransportError 检查是否为传输错误
func IsTransportError(err error) bool {
	return TypeOf(err) == ErrorTypeTransport
}

// IsTimeoutError 检查是否为超时错误
func IsTimeoutError(err error) bool {
	return TypeOf(err) == ErrorTypeTimeout
}

// generateErrorCode 根据错误类型生成错误代码
func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeConfiguration:
		return "CONFIGURATION_ERROR"
	case ErrorTypeRemote:
		return "REMOTE_ERROR"
	case ErrorTypeTransport:
		return "TRANSPORT_ERROR"
	case ErrorTypeParse:
		return "PARSE_ERROR"
	case ErrorTypeTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN_ERROR"
	}
}

// WrapError 包装现有错误
func WrapError(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appError *AppError
	if errors.As(err, &appError) {
		// 如果已经是 AppError，只更新消息
		return &AppError{
			Type:       appError.Type,
			Message:    fmt.Sprintf("%s: %s", message, appError.Message),
			Err:        appError,
			Code:       appError.Code,
			StatusCode: appError.StatusCode,
			Body:       appError.Body,
		}
	}

	return NewAppError(errType, message, err)
}
