package upstage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "github.com/edulab-kr/evalassist/internal/errors"
	"github.com/edulab-kr/evalassist/internal/llm"
)

func TestCompleteText(t *testing.T) {
	var got chatRequest
	var gotAuth, gotPath string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&got)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"model": "solar-pro2-250710",
			"choices": [{"message": {"role": "assistant", "content": "물을 절약하여 사용하기"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 40, "completion_tokens": 8, "total_tokens": 48}
		}`))
	}))
	defer srv.Close()

	p := NewProvider("key-1", srv.URL+"/v1/", "solar-pro2", srv.Client())
	resp, err := p.CompleteText(context.Background(), llm.CompletionRequest{
		Prompt:          "다듬어 주세요",
		Temperature:     0.7,
		MaxTokens:       1024,
		ReasoningEffort: "high",
	})
	if err != nil {
		t.Fatalf("CompleteText: %v", err)
	}

	if gotPath != "/v1/chat/completions" {
		t.Errorf("path: got %q", gotPath)
	}
	if gotAuth != "Bearer key-1" {
		t.Errorf("authorization: got %q", gotAuth)
	}
	if got.Model != "solar-pro2" || got.Stream || got.ReasoningEffort != "high" || got.MaxTokens != 1024 {
		t.Errorf("request: got %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" || got.Messages[0].Content != "다듬어 주세요" {
		t.Errorf("messages: got %+v", got.Messages)
	}

	if resp.Text != "물을 절약하여 사용하기" || resp.TokensUsed != 48 || resp.ModelName != "solar-pro2-250710" {
		t.Errorf("response: got %+v", resp)
	}
}

func TestCompleteTextRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))
	defer srv.Close()

	p := NewProvider("bad", srv.URL, "", srv.Client())
	_, err := p.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "x"})
	if !apperrors.IsRemoteError(err) {
		t.Fatalf("got %v, want remote error", err)
	}
	if !strings.Contains(err.Error(), "401") || !strings.Contains(err.Error(), "invalid api key") {
		t.Errorf("error: got %q", err.Error())
	}
}

func TestCompleteTextEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	p := NewProvider("key", srv.URL, "", srv.Client())
	if _, err := p.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "x"}); !apperrors.IsTransportError(err) {
		t.Errorf("got %v, want transport error", err)
	}
}

func TestCompleteTextTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	p := NewProvider("key", srv.URL, "", &http.Client{Timeout: 50 * time.Millisecond})
	_, err := p.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "x"})
	if !apperrors.IsTimeoutError(err) {
		t.Fatalf("client timeout: got %v (%q), want timeout error", err, apperrors.TypeOf(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	p = NewProvider("key", srv.URL, "", srv.Client())
	if _, err := p.CompleteText(ctx, llm.CompletionRequest{Prompt: "x"}); !apperrors.IsTimeoutError(err) {
		t.Errorf("context deadline: got %v, want timeout error", err)
	}
}

func TestInitialize(t *testing.T) {
	p := &Provider{}
	if err := p.Initialize(map[string]string{}); !apperrors.IsConfigurationError(err) {
		t.Errorf("missing key: got %v", err)
	}
	if err := p.Initialize(map[string]string{"api_key": "k", "timeout": "soon"}); !apperrors.IsConfigurationError(err) {
		t.Errorf("bad timeout: got %v", err)
	}

	err := p.Initialize(map[string]string{"api_key": "k", "timeout": "30s", "base_url": "http://example.test"})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if p.client.Timeout != 30*time.Second || p.baseURL != "http://example.test" || p.defaultModel != defaultModel {
		t.Errorf("got timeout=%v baseURL=%q model=%q", p.client.Timeout, p.baseURL, p.defaultModel)
	}
}

func TestRegisteredInRegistry(t *testing.T) {
	p, err := llm.GetProvider("upstage", map[string]string{"api_key": "k"})
	if err != nil {
		t.Fatalf("GetProvider: %v", err)
	}
	if p.GetName() != "Upstage" {
		t.Errorf("name: got %q", p.GetName())
	}
}
