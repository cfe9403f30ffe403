// Package siliconflow implements models.Provider against the SiliconFlow
// chat-completions API.
package siliconflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tarotlab/tarot-reader/internal/config"
	"github.com/tarotlab/tarot-reader/pkg/models"
)

// Sampling parameters carried over from the original reading service.
const (
	temperature      = 0.7
	topP             = 0.7
	topK             = 50
	frequencyPenalty = 0.5
)

// Provider implements models.Provider using SiliconFlow's HTTP API.
type Provider struct {
	cfg    config.SiliconFlowConfig
	client *http.Client
}

// NewProvider creates a new SiliconFlow provider. The timeout bounds each
// completion call; it should exceed the model's expected P99 latency.
func NewProvider(cfg config.SiliconFlowConfig, timeout time.Duration) *Provider {
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *Provider) Name() string { return "siliconflow" }

func (p *Provider) Complete(ctx context.Context, messages []models.ChatMessage) (models.Completion, error) {
	body, err := json.Marshal(chatRequest{
		Model:            p.cfg.Model,
		Messages:         messages,
		Stream:           false,
		MaxTokens:        p.cfg.MaxTokens,
		Temperature:      temperature,
		TopP:             topP,
		TopK:             topK,
		FrequencyPenalty: frequencyPenalty,
	})
	if err != nil {
		return models.Completion{}, fmt.Errorf("encoding request: %w", err)
	}

	u := p.cfg.BaseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return models.Completion{}, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return models.Completion{}, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.Completion{}, fmt.Errorf("%w: status %d: %s",
			models.ErrProviderUnavailable, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return models.Completion{}, fmt.Errorf("decoding response: %w", err)
	}

	if len(cr.Choices) == 0 {
		return models.Completion{}, models.ErrEmptyResponse
	}
	content := strings.TrimSpace(cr.Choices[0].Message.Content)
	if content == "" {
		return models.Completion{}, models.ErrEmptyResponse
	}

	return models.Completion{
		Content: content,
		Model:   cr.Model,
		Usage:   cr.Usage,
	}, nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", models.ErrInferenceTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", models.ErrInferenceTimeout, err)
	}

	return fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
}

// --- SiliconFlow wire types ---

type chatRequest struct {
	Model            string               `json:"model"`
	Messages         []models.ChatMessage `json:"messages"`
	Stream           bool                 `json:"stream"`
	MaxTokens        int                  `json:"max_tokens"`
	Temperature      float64              `json:"temperature"`
	TopP             float64              `json:"top_p"`
	TopK             int                  `json:"top_k"`
	FrequencyPenalty float64              `json:"frequency_penalty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage models.TokenUsage `json:"usage"`
}

// Compile-time check that Provider implements models.Provider.
var _ models.Provider = (*Provider)(nil)
