package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/domain"
)

func newTestChat(url string) *Chat {
	return NewChat(&ChatConfig{APIKey: "sk-test", BaseURL: url, Model: "qwen-plus", Logger: zap.NewNop()})
}

func TestChat_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
			Messages  []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Model != "qwen-plus" || req.MaxTokens != 512 {
			t.Errorf("model=%s max_tokens=%d", req.Model, req.MaxTokens)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "开灯" {
			t.Errorf("messages = %+v", req.Messages)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  好的 [DEVICE_CTL] room=客厅 action=on \n"}}]}`))
	}))
	defer server.Close()

	reply, err := newTestChat(server.URL).Generate(context.Background(), "system prompt", "开灯", 512)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if reply != "好的 [DEVICE_CTL] room=客厅 action=on" {
		t.Errorf("reply = %q", reply)
	}
}

func TestChat_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","choices":[]}`))
	}))
	defer server.Close()

	_, err := newTestChat(server.URL).Generate(context.Background(), "s", "u", 512)
	if !errors.Is(err, domain.ErrEmptyResult) {
		t.Errorf("err = %v, want ErrEmptyResult", err)
	}
}

func TestChat_BlankContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"   "}}]}`))
	}))
	defer server.Close()

	_, err := newTestChat(server.URL).Generate(context.Background(), "s", "u", 512)
	if !errors.Is(err, domain.ErrEmptyResult) {
		t.Errorf("err = %v, want ErrEmptyResult", err)
	}
}

func TestChat_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	_, err := newTestChat(server.URL).Generate(context.Background(), "s", "u", 512)
	if !errors.Is(err, domain.ErrTransportFailure) {
		t.Errorf("err = %v, want ErrTransportFailure", err)
	}
}

func TestChat_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestChat(server.URL).Generate(ctx, "s", "u", 512)
	if !errors.Is(err, domain.ErrTransportFailure) {
		t.Errorf("err = %v, want ErrTransportFailure", err)
	}
}

func TestChat_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"qwen-plus","object":"model"}]}`))
	}))
	defer server.Close()

	if err := newTestChat(server.URL).HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}
}
