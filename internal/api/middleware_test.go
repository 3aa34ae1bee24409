package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/edulab-kr/evalassist/internal/config"
	"github.com/edulab-kr/evalassist/internal/models"
)

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter()
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if ok, _ := rl.Allow("1.2.3.4", 3, time.Minute); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	ok, visitor := rl.Allow("1.2.3.4", 3, time.Minute)
	if ok || visitor.Remaining != 0 {
		t.Fatalf("fourth request: allowed=%v remaining=%d", ok, visitor.Remaining)
	}
	if ok, _ := rl.Allow("5.6.7.8", 3, time.Minute); !ok {
		t.Error("other keys have their own window")
	}

	now = now.Add(61 * time.Second)
	if ok, visitor := rl.Allow("1.2.3.4", 3, time.Minute); !ok || visitor.Remaining != 2 {
		t.Errorf("new window: allowed=%v remaining=%d", ok, visitor.Remaining)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter()
	rl.now = func() time.Time { return now }

	rl.Allow("a", 1, time.Second)
	rl.Allow("b", 1, time.Hour)
	now = now.Add(2 * time.Second)
	rl.cleanup()

	if rl.Len() != 1 {
		t.Errorf("tracked keys: got %d, want 1", rl.Len())
	}
}

func TestRateLimitMiddlewareRejects(t *testing.T) {
	refiner := &fakeRefiner{result: models.TextImprovementResult{Success: true}}
	router, _ := newTestRouter(t, &fakeDocuments{}, refiner, func(cfg *config.Config) {
		cfg.RateLimitPerMinute = 2
	})

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = postJSON(router, "/api/improve-text", `{"text":"a"}`)
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("status: got %d, want 429", last.Code)
	}
	if last.Header().Get("X-RateLimit-Limit") != "2" || last.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("headers: %v", last.Header())
	}
	var resp APIResponse
	json.Unmarshal(last.Body.Bytes(), &resp)
	if resp.Error == nil || resp.Error.Code != ErrorRateLimited {
		t.Errorf("got %+v", resp)
	}
	if n := len(refiner.recorded()); n != 2 {
		t.Errorf("service calls: got %d, want 2", n)
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	refiner := &fakeRefiner{result: models.TextImprovementResult{Success: true}}
	router, _ := newTestRouter(t, &fakeDocuments{}, refiner, func(cfg *config.Config) {
		cfg.AccessKey = "s3cret"
	})

	tests := []struct {
		name   string
		method string
		path   string
		header string
		status int
	}{
		{"missing key", http.MethodPost, "/api/improve-text", "", http.StatusUnauthorized},
		{"wrong key", http.MethodPost, "/api/improve-text", "nope", http.StatusUnauthorized},
		{"header key", http.MethodPost, "/api/improve-text", "s3cret", http.StatusOK},
		{"query key", http.MethodPost, "/api/improve-text?api_key=s3cret", "", http.StatusOK},
		{"health is public", http.MethodGet, "/api/health", "", http.StatusOK},
		{"index is public", http.MethodGet, "/", "", http.StatusOK},
		{"metrics is public", http.MethodGet, "/metrics", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body *strings.Reader
			if tt.method == http.MethodPost {
				body = strings.NewReader(`{"text":"a"}`)
			} else {
				body = strings.NewReader("")
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			req.Header.Set("Content-Type", "application/json")
			if tt.header != "" {
				req.Header.Set(apiKeyHeader, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Fatalf("status: got %d, want %d", w.Code, tt.status)
			}
			if tt.status == http.StatusUnauthorized {
				var resp APIResponse
				json.Unmarshal(w.Body.Bytes(), &resp)
				if resp.Error == nil || resp.Error.Code != ErrorUnauthorized {
					t.Errorf("got %+v", resp)
				}
			}
		})
	}
}

func TestRequestIDPropagation(t *testing.T) {
	router, _ := newTestRouter(t, &fakeDocuments{}, &fakeRefiner{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/improve-text", strings.NewReader(`{}`))
	req.Header.Set(requestIDHeader, "req-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get(requestIDHeader); got != "req-42" {
		t.Errorf("header: got %q", got)
	}
	var resp APIResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.RequestID != "req-42" {
		t.Errorf("envelope request id: got %q", resp.RequestID)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("x", 200))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if got := w.Header().Get(requestIDHeader); len(got) != 36 {
		t.Errorf("oversized id should be replaced with a uuid, got %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t, &fakeDocuments{}, &fakeRefiner{}, func(cfg *config.Config) {
		cfg.AccessKey = "s3cret"
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/improve-text", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status: got %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing allow-origin header")
	}
}
