package siliconflow_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarotlab/tarot-reader/internal/ai/siliconflow"
	"github.com/tarotlab/tarot-reader/internal/config"
	"github.com/tarotlab/tarot-reader/pkg/models"
)

func testConfig(baseURL string) config.SiliconFlowConfig {
	return config.SiliconFlowConfig{
		APIKey:    "sk-test",
		BaseURL:   baseURL,
		Model:     "Qwen/QwQ-32B",
		MaxTokens: 2000,
	}
}

func testMessages() []models.ChatMessage {
	return []models.ChatMessage{
		{Role: "system", Content: "你是一位专业的塔罗牌占卜师。"},
		{Role: "user", Content: "我的问题：爱情运势"},
	}
}

func TestComplete_Success(t *testing.T) {
	var gotReq map[string]any
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(map[string]any{
			"model": "Qwen/QwQ-32B",
			"choices": []map[string]any{
				{"message": map[string]any{"content": "  整体牌面向好。  "}},
			},
			"usage": map[string]any{
				"prompt_tokens":     42,
				"completion_tokens": 128,
				"total_tokens":      170,
			},
		})
	}))
	defer srv.Close()

	p := siliconflow.NewProvider(testConfig(srv.URL), time.Second)
	got, err := p.Complete(context.Background(), testMessages())
	require.NoError(t, err)

	assert.Equal(t, "整体牌面向好。", got.Content, "content should be trimmed")
	assert.Equal(t, "Qwen/QwQ-32B", got.Model)
	assert.Equal(t, models.TokenUsage{PromptTokens: 42, CompletionTokens: 128, TotalTokens: 170}, got.Usage)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "Qwen/QwQ-32B", gotReq["model"])
	assert.Equal(t, false, gotReq["stream"])
	assert.Equal(t, float64(2000), gotReq["max_tokens"])
	assert.Equal(t, 0.7, gotReq["temperature"])
	assert.Equal(t, 0.7, gotReq["top_p"])
	assert.Equal(t, float64(50), gotReq["top_k"])
	assert.Equal(t, 0.5, gotReq["frequency_penalty"])
	msgs, ok := gotReq["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 2)
}

func TestComplete_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := siliconflow.NewProvider(testConfig(srv.URL), time.Second)
	_, err := p.Complete(context.Background(), testMessages())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "status 401")
}

func TestComplete_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	p := siliconflow.NewProvider(testConfig(srv.URL), time.Second)
	_, err := p.Complete(context.Background(), testMessages())
	assert.ErrorIs(t, err, models.ErrEmptyResponse)
}

func TestComplete_BlankContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "   \n "}},
			},
		})
	}))
	defer srv.Close()

	p := siliconflow.NewProvider(testConfig(srv.URL), time.Second)
	_, err := p.Complete(context.Background(), testMessages())
	assert.ErrorIs(t, err, models.ErrEmptyResponse)
}

func TestComplete_ContextTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	p := siliconflow.NewProvider(testConfig(srv.URL), time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Complete(ctx, testMessages())
	assert.ErrorIs(t, err, models.ErrInferenceTimeout)
}

func TestComplete_ClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	p := siliconflow.NewProvider(testConfig(srv.URL), 20*time.Millisecond)
	_, err := p.Complete(context.Background(), testMessages())
	assert.ErrorIs(t, err, models.ErrInferenceTimeout)
}

func TestComplete_Unreachable(t *testing.T) {
	// Reserve a port and close it so the connection is refused
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := siliconflow.NewProvider(testConfig(url), time.Second)
	_, err := p.Complete(context.Background(), testMessages())
	assert.ErrorIs(t, err, models.ErrProviderUnavailable)
}
