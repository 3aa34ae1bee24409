// internal/llm/providers/upstage/upstage.go
package upstage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/edulab-kr/evalassist/internal/errors"
	"github.com/edulab-kr/evalassist/internal/llm"
)

const (
	defaultBaseURL = "https://api.upstage.ai/v1"
	defaultModel   = "solar-pro2"
	defaultTimeout = 120 * time.Second
)

func init() {
	llm.Register("upstage", func() llm.Provider {
		return &Provider{
			recommendedModels: []string{
				"solar-pro2",
				"solar-mini",
			},
			baseURL: defaultBaseURL,
		}
	})
}

// Provider Upstage 的 OpenAI 兼容 chat/completions 接口
type Provider struct {
	apiKey            string
	baseURL           string
	client            *http.Client
	defaultModel      string
	recommendedModels []string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model           string        `json:"model"`
	Messages        []chatMessage `json:"messages"`
	Temperature     float32       `json:"temperature"`
	MaxTokens       int           `json:"max_tokens,omitempty"`
	Stream          bool          `json:"stream"`
	ReasoningEffort string        `json:"reasoning_effort,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewProvider 直接构造，供不经过注册表的调用方使用
func NewProvider(apiKey, baseURL, model string, client *http.Client) *Provider {
	p := &Provider{apiKey: apiKey, baseURL: baseURL, defaultModel: model, client: client}
	if p.baseURL == "" {
		p.baseURL = defaultBaseURL
	}
	if p.defaultModel == "" {
		p.defaultModel = defaultModel
	}
	if p.client == nil {
		p.client = &http.Client{Timeout: defaultTimeout}
	}
	return p
}

func (p *Provider) Initialize(config map[string]string) error {
	apiKey, exists := config["api_key"]
	if !exists || apiKey == "" {
		return apperrors.NewConfigurationError("UPSTAGE_API_KEY is not set", nil)
	}
	p.apiKey = apiKey

	timeout := defaultTimeout
	if raw := config["timeout"]; raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return apperrors.NewConfigurationError("invalid timeout: "+raw, err)
		}
		timeout = d
	}
	p.client = &http.Client{Timeout: timeout}

	if model, exists := config["default_model"]; exists && model != "" {
		p.defaultModel = model
	} else {
		p.defaultModel = defaultModel
	}

	if baseURL, exists := config["base_url"]; exists && baseURL != "" {
		p.baseURL = baseURL
	}

	return nil
}

func (p *Provider) GetName() string {
	return "Upstage"
}

func (p *Provider) GetSupportedModels() []string {
	return p.recommendedModels
}

func (p *Provider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages := []chatMessage{{Role: "user", Content: req.Prompt}}
	if req.SystemPrompt != "" {
		messages = append([]chatMessage{{Role: "system", Content: req.SystemPrompt}}, messages...)
	}

	body, err := json.Marshal(chatRequest{
		Model:           model,
		Messages:        messages,
		Temperature:     req.Temperature,
		MaxTokens:       req.MaxTokens,
		Stream:          false,
		ReasoningEffort: req.ReasoningEffort,
	})
	if err != nil {
		return nil, apperrors.NewTransportError("marshal request", err)
	}

	url := strings.TrimRight(p.baseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewTransportError("create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, apperrors.ClassifyTransport("completion request failed", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(httpResp.Body)
		remoteErr := apperrors.NewRemoteError(httpResp.StatusCode, string(raw))
		var errResp errorResponse
		if json.Unmarshal(raw, &errResp) == nil && errResp.Error.Message != "" {
			remoteErr.Message = fmt.Sprintf("API error: %d: %s", httpResp.StatusCode, errResp.Error.Message)
		}
		return nil, remoteErr
	}

	var response chatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&response); err != nil {
		return nil, apperrors.NewTransportError("decode completion response", err)
	}
	if len(response.Choices) == 0 {
		return nil, apperrors.NewTransportError("completion response has no choices", nil)
	}

	if response.Model != "" {
		model = response.Model
	}

	return &llm.CompletionResponse{
		Text:         response.Choices[0].Message.Content,
		FinishReason: response.Choices[0].FinishReason,
		TokensUsed:   response.Usage.TotalTokens,
		PromptTokens: response.Usage.PromptTokens,
		OutputTokens: response.Usage.CompletionTokens,
		ModelName:    model,
		ProviderName: p.GetName(),
	}, nil
}
