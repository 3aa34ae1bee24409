// internal/models/document.go
package models

import (
	"encoding/json"
	"time"
)

// AnalysisResult 表示一次文档数字化调用的结果信封
type AnalysisResult struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data,omitempty"`        // 远端返回的原始JSON
	Error      string          `json:"error,omitempty"`       // 错误类别
	Message    string          `json:"message,omitempty"`     // 错误详情（响应体、路径或异常文本）
	StatusCode int             `json:"status_code,omitempty"` // 远端HTTP状态码
}

// FileInfo 文件元数据，调用时从文件系统读取
type FileInfo struct {
	Filename string    `json:"filename"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// DocumentView 返回给浏览器的文档分析结果
type DocumentView struct {
	Success          bool            `json:"success"`
	HTMLContent      string          `json:"html_content"`
	FileInfo         *FileInfo       `json:"file_info,omitempty"`
	OriginalFilename string          `json:"original_filename"`
	FullAPIResponse  *AnalysisResult `json:"full_api_response,omitempty"`
}
