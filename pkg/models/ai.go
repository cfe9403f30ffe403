package models

import (
	"context"
	"errors"
)

// Sentinel errors shared by all provider implementations. The job service
// matches on these to turn a provider failure into a terminal job record.
var (
	ErrProviderUnavailable = errors.New("interpretation provider unavailable")
	ErrInferenceTimeout    = errors.New("interpretation request timed out")
	ErrEmptyResponse       = errors.New("empty response from interpretation service")
)

// ChatMessage is a single message in a chat-completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TokenUsage mirrors the usage block of a chat-completion response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is the result of a single chat-completion call.
type Completion struct {
	Content string
	Model   string
	Usage   TokenUsage
}

// Provider is the core interface all chat-completion integrations must implement.
// Never call a specific provider directly — always inject this interface.
type Provider interface {
	// Complete sends the messages to the model and returns its reply.
	// Implementations perform no retries; a failed call fails the job.
	Complete(ctx context.Context, messages []ChatMessage) (Completion, error)
	// Name returns the provider identifier (e.g., "siliconflow").
	Name() string
}
