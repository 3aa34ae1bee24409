// internal/api/auth_middleware.go
package api

import (
	"crypto/subtle"
	"strings"

	"github.com/edulab-kr/evalassist/internal/utils"
	"github.com/gin-gonic/gin"
)

const (
	apiKeyHeader = "X-API-Key"
	apiKeyQuery  = "api_key" // 浏览器 WebSocket 无法设置请求头
)

// APIKeyMiddleware 校验共享访问密钥；accessKey 为空时不启用
func APIKeyMiddleware(accessKey string) gin.HandlerFunc {
	rh := NewResponseHelper()
	expected := []byte(accessKey)

	return func(c *gin.Context) {
		if accessKey == "" || isPublicEndpoint(c) {
			c.Next()
			return
		}

		provided := c.GetHeader(apiKeyHeader)
		if provided == "" {
			provided = c.Query(apiKeyQuery)
		}

		if subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
			utils.GetLogger().Warn("访问密钥校验失败", map[string]interface{}{
				"path":      c.Request.URL.Path,
				"client_ip": c.ClientIP(),
			})
			rh.Unauthorized(c, "invalid or missing API key")
			return
		}

		c.Next()
	}
}

// isPublicEndpoint 页面、静态资源、健康检查和指标无需密钥
func isPublicEndpoint(c *gin.Context) bool {
	publicPaths := []string{
		"/",
		"/api/health",
		"/metrics",
	}

	currentPath := c.Request.URL.Path
	for _, path := range publicPaths {
		if currentPath == path {
			return true
		}
	}

	return c.Request.Method == "GET" && strings.HasPrefix(currentPath, "/static/")
}
