// Package mock provides a canned models.Provider for tests and offline demos.
package mock

import (
	"context"

	"github.com/tarotlab/tarot-reader/pkg/models"
)

// Provider satisfies models.Provider with configurable behavior.
type Provider struct {
	Name_        string
	CompleteFunc func(ctx context.Context, messages []models.ChatMessage) (models.Completion, error)
}

func (p *Provider) Name() string { return p.Name_ }

func (p *Provider) Complete(ctx context.Context, messages []models.ChatMessage) (models.Completion, error) {
	if p.CompleteFunc != nil {
		return p.CompleteFunc(ctx, messages)
	}
	return models.Completion{}, nil
}

// NewProvider returns a Provider with a sensible canned interpretation.
func NewProvider() *Provider {
	return &Provider{
		Name_: "mock",
		CompleteFunc: func(_ context.Context, _ []models.ChatMessage) (models.Completion, error) {
			return models.Completion{
				Content: "牌面整体显示当下是一个沉淀与转变的阶段，抽到的牌提示你顺势而为，保持耐心。",
				Model:   "mock-v1",
				Usage: models.TokenUsage{
					PromptTokens:     128,
					CompletionTokens: 64,
					TotalTokens:      192,
				},
			}, nil
		},
	}
}

// NewFailingProvider returns a Provider that always returns the given error.
func NewFailingProvider(err error) *Provider {
	return &Provider{
		Name_: "mock-failing",
		CompleteFunc: func(_ context.Context, _ []models.ChatMessage) (models.Completion, error) {
			return models.Completion{}, err
		},
	}
}

// NewTimeoutProvider returns a Provider that blocks until context is cancelled.
func NewTimeoutProvider() *Provider {
	return &Provider{
		Name_: "mock-timeout",
		CompleteFunc: func(ctx context.Context, _ []models.ChatMessage) (models.Completion, error) {
			<-ctx.Done()
			return models.Completion{}, models.ErrInferenceTimeout
		},
	}
}

// Compile-time check that Provider implements models.Provider.
var _ models.Provider = (*Provider)(nil)
