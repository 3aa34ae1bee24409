// internal/services/refine_service.go
package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/edulab-kr/evalassist/internal/config"
	apperrors "github.com/edulab-kr/evalassist/internal/errors"
	"github.com/edulab-kr/evalassist/internal/llm"
	"github.com/edulab-kr/evalassist/internal/metrics"
	"github.com/edulab-kr/evalassist/internal/models"
	"github.com/edulab-kr/evalassist/internal/utils"

	// 注册 upstage 提供者
	_ "github.com/edulab-kr/evalassist/internal/llm/providers/upstage"
)

// 每种操作的固定采样参数
type samplingParams struct {
	operation   string
	temperature float32
	maxTokens   int
}

var (
	paramsImprove   = samplingParams{"improve", 0.7, 1024}
	paramsOptions   = samplingParams{"options", 0.8, 1024}
	paramsCriteria  = samplingParams{"criteria", 0.7, 1024}
	paramsCriterion = samplingParams{"criterion", 0.7, 512}
)

const reasoningEffort = "high"

// RefineService 评价要素改写与评价标准生成
type RefineService struct {
	provider llm.Provider
	model    string
	logger   *utils.Logger
}

// NewRefineService 通过注册表创建 upstage 提供者，缺少API密钥时返回配置错误
func NewRefineService(cfg *config.Config) (*RefineService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	provider, err := llm.GetProvider("upstage", map[string]string{
		"api_key":       cfg.UpstageAPIKey,
		"base_url":      cfg.CompletionBaseURL,
		"default_model": cfg.CompletionModel,
		"timeout":       cfg.RequestTimeout.String(),
	})
	if err != nil {
		return nil, apperrors.WrapError(err, "初始化补全服务失败", apperrors.ErrorTypeConfiguration)
	}

	return NewRefineServiceWithProvider(provider, cfg.CompletionModel), nil
}

// NewRefineServiceWithProvider 使用已有的提供者
func NewRefineServiceWithProvider(provider llm.Provider, model string) *RefineService {
	return &RefineService{
		provider: provider,
		model:    model,
		logger:   utils.GetLogger(),
	}
}

// ProviderName 当前提供者名称
func (s *RefineService) ProviderName() string {
	return s.provider.GetName()
}

// ImproveOne 把一句评价要素改写为一句
func (s *RefineService) ImproveOne(ctx context.Context, text string, rc *models.ImprovementContext) models.TextImprovementResult {
	text = normalizeText(text)
	if text == "" {
		return models.Failed(apperrors.NewValidationError("text is required", nil))
	}

	reply, err := s.complete(ctx, paramsImprove, buildImprovePrompt(text, rc))
	if err != nil {
		return models.Failed(err)
	}

	return models.TextImprovementResult{
		Success:  true,
		Original: text,
		Improved: normalizeText(reply),
	}
}

// ImproveOptions 生成恰好 n 个改写候选
func (s *RefineService) ImproveOptions(ctx context.Context, text string, rc *models.ImprovementContext, n int) models.TextImprovementResult {
	text = normalizeText(text)
	if text == "" {
		return models.Failed(apperrors.NewValidationError("text is required", nil))
	}
	if n > MaxOptionCount {
		return models.Failed(apperrors.NewValidationError(
			fmt.Sprintf("num_options must be at most %d, got %d", MaxOptionCount, n), nil))
	}
	if n < 1 {
		n = DefaultOptionCount
	}

	reply, err := s.complete(ctx, paramsOptions, buildOptionsPrompt(text, rc, n))
	if err != nil {
		return models.Failed(err)
	}

	lines := SplitReplyLines(reply)
	if len(lines) != n {
		s.logger.Debug("候选数量与请求不一致", map[string]interface{}{
			"requested": n,
			"received":  len(lines),
		})
	}

	return models.TextImprovementResult{
		Success:  true,
		Original: text,
		Options:  FitOptions(lines, text, n),
	}
}

// GenerateCriteriaSet 生成四个等级的评价标准；缺失的等级不视为错误
func (s *RefineService) GenerateCriteriaSet(ctx context.Context, element string, existing models.CriteriaSet, rc *models.ImprovementContext) models.TextImprovementResult {
	element = normalizeText(element)
	if element == "" {
		return models.Failed(apperrors.NewValidationError("evaluation element is required", nil))
	}

	reply, err := s.complete(ctx, paramsCriteria, buildCriteriaSetPrompt(element, existing, rc))
	if err != nil {
		return models.Failed(err)
	}

	parsed := ParseCriteria(reply)
	if !parsed.Complete() {
		s.logger.Warn("评价标准回复缺少等级", map[string]interface{}{
			"missing":      fmt.Sprint(parsed.Missing),
			"unrecognized": len(parsed.Unrecognized),
		})
	}

	return models.TextImprovementResult{
		Success:       true,
		Criteria:      parsed.Criteria,
		Unrecognized:  parsed.Unrecognized,
		MissingLevels: parsed.Missing,
	}
}

// GenerateSingleCriterion 只生成一个等级的评价标准
func (s *RefineService) GenerateSingleCriterion(ctx context.Context, level models.Level, element, originalText string, rc *models.ImprovementContext) models.TextImprovementResult {
	element = normalizeText(element)
	if element == "" {
		return models.Failed(apperrors.NewValidationError("evaluation element is required", nil))
	}
	if _, ok := models.ParseLevel(string(level)); !ok {
		return models.Failed(apperrors.NewValidationError("unknown level: "+strconv.Quote(string(level)), nil))
	}

	prompt := buildSingleCriterionPrompt(level, element, normalizeText(originalText), rc)
	reply, err := s.complete(ctx, paramsCriterion, prompt)
	if err != nil {
		return models.Failed(err)
	}

	return models.TextImprovementResult{
		Success:  true,
		Criteria: normalizeText(reply),
	}
}

// complete 执行一次补全调用并记录耗时；任何失败都以 error 返回给调用方转换
func (s *RefineService) complete(ctx context.Context, params samplingParams, prompt string) (string, error) {
	start := time.Now()
	resp, err := s.provider.CompleteText(ctx, llm.CompletionRequest{
		Prompt:          prompt,
		Model:           s.model,
		Temperature:     params.temperature,
		MaxTokens:       params.maxTokens,
		ReasoningEffort: reasoningEffort,
	})
	elapsed := time.Since(start)
	metrics.UpstreamDuration.WithLabelValues(params.operation).Observe(elapsed.Seconds())

	if err != nil {
		metrics.UpstreamFailures.WithLabelValues(params.operation, failureKind(err)).Inc()
		s.logger.Error("补全调用失败", map[string]interface{}{
			"operation": params.operation,
			"error":     err.Error(),
		})
		return "", err
	}

	s.logger.Debug("补全调用完成", map[string]interface{}{
		"operation":  params.operation,
		"elapsed_ms": elapsed.Milliseconds(),
		"tokens":     resp.TokensUsed,
	})
	return resp.Text, nil
}
