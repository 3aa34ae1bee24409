// internal/config/config.go
package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	apperrors "github.com/edulab-kr/evalassist/internal/errors"
	"github.com/joho/godotenv"
)

// 默认值
const (
	DefaultPort              = "8080"
	DefaultDigitizeURL       = "https://api.upstage.ai/v1/document-digitization"
	DefaultDigitizeModel     = "document-parse-250618"
	DefaultCompletionBaseURL = "https://api.upstage.ai/v1"
	DefaultCompletionModel   = "solar-pro2"
	DefaultRequestTimeout    = 120 * time.Second
	DefaultMaxUploadMB       = 16
	DefaultRateLimit         = 60
)

// Config 存储应用配置，启动时构建一次并注入各个服务
type Config struct {
	Port string

	// Upstage 相关
	UpstageAPIKey     string
	DigitizeURL       string
	DigitizeModel     string
	CompletionBaseURL string
	CompletionModel   string

	// 出站请求的超时时间，同时作为 http.Client.Timeout
	RequestTimeout time.Duration

	// 上传文件的临时目录
	UploadDir   string
	MaxUploadMB int64

	StaticDir    string
	TemplatesDir string
	LogDir       string
	LogLevel     string
	DebugMode    bool

	// 可选的入站访问密钥（X-API-Key），为空时不校验
	AccessKey          string
	RateLimitPerMinute int
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	// 尝试加载.env文件（可选）
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("警告: 读取 .env 文件失败: %v", err)
	}

	timeout, err := getEnvDuration("REQUEST_TIMEOUT", DefaultRequestTimeout)
	if err != nil {
		return nil, err
	}
	maxUpload, err := getEnvInt("MAX_UPLOAD_MB", DefaultMaxUploadMB)
	if err != nil {
		return nil, err
	}
	rateLimit, err := getEnvInt("RATE_LIMIT_PER_MINUTE", DefaultRateLimit)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:               getEnv("PORT", DefaultPort),
		UpstageAPIKey:      getEnv("UPSTAGE_API_KEY", ""),
		DigitizeURL:        getEnv("UPSTAGE_DIGITIZE_URL", DefaultDigitizeURL),
		DigitizeModel:      getEnv("UPSTAGE_DIGITIZE_MODEL", DefaultDigitizeModel),
		CompletionBaseURL:  getEnv("UPSTAGE_BASE_URL", DefaultCompletionBaseURL),
		CompletionModel:    getEnv("UPSTAGE_CHAT_MODEL", DefaultCompletionModel),
		RequestTimeout:     timeout,
		UploadDir:          getEnv("UPLOAD_DIR", filepath.Join(os.TempDir(), "evalassist-uploads")),
		MaxUploadMB:        int64(maxUpload),
		StaticDir:          getEnv("STATIC_DIR", "static"),
		TemplatesDir:       getEnv("TEMPLATES_DIR", "web/templates"),
		LogDir:             getEnv("LOG_DIR", "logs"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DebugMode:          getEnvBool("DEBUG_MODE", false),
		AccessKey:          getEnv("ACCESS_KEY", ""),
		RateLimitPerMinute: rateLimit,
	}

	if cfg.UpstageAPIKey == "" {
		// 只记录警告，由服务构造函数决定是否失败
		log.Println("警告: 未设置 UPSTAGE_API_KEY，文档分析与文本改写服务将无法创建")
	}

	return cfg, nil
}

// Validate 检查服务运行所必需的配置
func (c *Config) Validate() error {
	if c == nil {
		return apperrors.NewConfigurationError("配置未加载", nil)
	}
	if c.UpstageAPIKey == "" {
		return apperrors.NewConfigurationError("UPSTAGE_API_KEY is not set", nil)
	}
	if c.RequestTimeout <= 0 {
		return apperrors.NewConfigurationError("REQUEST_TIMEOUT must be positive", nil)
	}
	return nil
}

// MaxUploadBytes 返回上传大小上限（字节）
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, apperrors.NewConfigurationError("invalid "+key+": "+value, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, apperrors.NewConfigurationError("invalid "+key+": "+value, err)
	}
	return d, nil
}
