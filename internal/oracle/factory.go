package oracle

import (
	"context"
	"fmt"

	"MarketDigest/internal/config"
)

// NewFromConfig builds the configured backend and refusal classifier.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Client, error) {
	classifier, err := NewPatternClassifier(cfg.Oracle.RefusalPatterns)
	if err != nil {
		return nil, err
	}

	var backend Backend
	switch cfg.Oracle.Provider {
	case "command":
		backend = NewCommandBackend(cfg.Oracle.Command, cfg.Oracle.Args...)
	case "claude":
		backend = NewClaudeBackend(cfg.Oracle.APIKey, cfg.Oracle.Model, cfg.Oracle.MaxTokens)
	case "gemini":
		gb, err := NewGeminiBackend(ctx, cfg.Oracle.APIKey, cfg.Oracle.Model)
		if err != nil {
			return nil, err
		}
		backend = gb
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Oracle.Provider)
	}
	return NewClient(backend, classifier), nil
}
