package models

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
)

// Provider names accepted in configuration.
const (
	ProviderTest   = "test"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Spec describes one configured model.
type Spec struct {
	URI       string
	Provider  string
	Model     string
	BaseURL   string
	APIKeyEnv string
	System    string
}

// NewBackend builds the backend described by spec.
func NewBackend(ctx context.Context, spec Spec) (Backend, error) {
	switch spec.Provider {
	case ProviderTest, "":
		return TestModel{}, nil
	case ProviderOpenAI:
		return newOpenAIBackend(ctx, spec)
	case ProviderOllama:
		return newOllamaBackend(ctx, spec)
	default:
		return nil, fmt.Errorf("model %s: unknown provider %q", spec.URI, spec.Provider)
	}
}

func newOpenAIBackend(ctx context.Context, spec Spec) (Backend, error) {
	var apiKey string
	if spec.APIKeyEnv != "" {
		apiKey = os.Getenv(spec.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("model %s: environment variable %s is not set", spec.URI, spec.APIKeyEnv)
		}
	}
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  apiKey,
		BaseURL: spec.BaseURL,
		Model:   spec.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("model %s: create chat model: %w", spec.URI, err)
	}
	var opts []ChatOption
	if spec.System != "" {
		opts = append(opts, WithSystemPrompt(spec.System))
	}
	return NewChatModelBackend(cm, opts...), nil
}

// defaultOllamaURL is used when neither base_url nor OLLAMA_HOST is set.
const defaultOllamaURL = "http://127.0.0.1:11434"

func newOllamaBackend(ctx context.Context, spec Spec) (Backend, error) {
	if spec.Model == "" {
		return nil, fmt.Errorf("model %s: ollama model is required", spec.URI)
	}
	baseURL := spec.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("OLLAMA_HOST")
	}
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	cm, err := ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
		BaseURL: baseURL,
		Model:   spec.Model,
		Timeout: 5 * time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("model %s: create chat model: %w", spec.URI, err)
	}
	var opts []ChatOption
	if spec.System != "" {
		opts = append(opts, WithSystemPrompt(spec.System))
	}
	return NewChatModelBackend(cm, opts...), nil
}
