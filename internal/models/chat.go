package models

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ChatModelBackend runs single-turn inference on an eino chat model.
type ChatModelBackend struct {
	model  model.BaseChatModel
	system string
}

// ChatOption configures a ChatModelBackend.
type ChatOption func(*ChatModelBackend)

// WithSystemPrompt prepends a system message to every request.
func WithSystemPrompt(prompt string) ChatOption {
	return func(b *ChatModelBackend) {
		b.system = prompt
	}
}

// NewChatModelBackend wraps m.
func NewChatModelBackend(m model.BaseChatModel, opts ...ChatOption) *ChatModelBackend {
	b := &ChatModelBackend{model: m}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Infer sends prompt as a user message and returns the reply content.
func (b *ChatModelBackend) Infer(ctx context.Context, prompt string) (string, error) {
	messages := make([]*schema.Message, 0, 2)
	if b.system != "" {
		messages = append(messages, schema.SystemMessage(b.system))
	}
	messages = append(messages, schema.UserMessage(prompt))

	out, err := b.model.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if out == nil {
		return "", fmt.Errorf("generate: empty response")
	}
	return out.Content, nil
}
