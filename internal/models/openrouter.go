package models

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// NewOpenRouterModel returns a model.LLM routed through OpenRouter, for
// deployments that want a non-OpenAI chat backend without code changes.
func NewOpenRouterModel(ctx context.Context, modelName string, cfg *genai.ClientConfig) (model.LLM, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL("https://openrouter.ai/api/v1"),
	)

	headerValue := fmt.Sprintf("openrouter-go/%s go/%s",
		"1.0.0", strings.TrimPrefix(runtime.Version(), "go"))

	return &chatModel{
		name:               fmt.Sprintf("openrouter/%s", modelName),
		client:             &client,
		versionHeaderValue: headerValue,
	}, nil
}
