// Package ai wires chat-completion providers and their shared error vocabulary.
package ai

import (
	"fmt"

	"github.com/tarotlab/tarot-reader/internal/ai/mock"
	"github.com/tarotlab/tarot-reader/internal/ai/siliconflow"
	"github.com/tarotlab/tarot-reader/internal/config"
	"github.com/tarotlab/tarot-reader/pkg/models"
)

// NewProvider constructs the appropriate chat-completion provider based on config.
// Called once at server startup.
func NewProvider(cfg config.AIConfig) (models.Provider, error) {
	switch cfg.Provider {
	case "siliconflow":
		return siliconflow.NewProvider(cfg.SiliconFlow, cfg.RequestTimeout), nil
	case "mock":
		return mock.NewProvider(), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q: must be one of siliconflow, mock", cfg.Provider)
	}
}
