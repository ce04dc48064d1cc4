package oracle

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ClaudeBackend calls the Anthropic Messages API.
type ClaudeBackend struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

// NewClaudeBackend creates a backend; extra options are passed to the SDK.
func NewClaudeBackend(apiKey, model string, maxTokens int, opts ...option.RequestOption) *ClaudeBackend {
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &ClaudeBackend{client: &client, model: model, maxTokens: maxTokens}
}

func (b *ClaudeBackend) Name() string { return "claude:" + b.model }

func (b *ClaudeBackend) Call(ctx context.Context, prompt string) (string, error) {
	resp, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: int64(b.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", wrapCallErr("claude", ctx.Err(), err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
