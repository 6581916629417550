package textgen

import (
	"context"

	"github.com/apresai/storybook/internal/openai"
)

const (
	openAIDefaultModel     = "gpt-5.1"
	openRouterDefaultModel = "qwen/qwen3-235b-a22b"
)

// OpenAIGenerator uses the chat completions API.
type OpenAIGenerator struct {
	name   string
	client *openai.Client
	model  string
}

func NewOpenAIGenerator(client *openai.Client, model string) *OpenAIGenerator {
	return &OpenAIGenerator{name: "openai", client: client, model: orDefault(model, openAIDefaultModel)}
}

// NewOpenRouterGenerator uses OpenRouter's OpenAI-compatible endpoint. The
// client must be built with openai.WithBaseURL(openai.OpenRouterBaseURL).
func NewOpenRouterGenerator(client *openai.Client, model string) *OpenAIGenerator {
	return &OpenAIGenerator{name: "openrouter", client: client, model: orDefault(model, openRouterDefaultModel)}
}

func (g *OpenAIGenerator) Name() string { return g.name }

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	chat := openai.ChatRequest{
		Model: g.model,
		Messages: []openai.Message{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		Temperature: req.Temperature,
	}
	// OpenRouter still expects the older max_tokens field.
	if g.name == "openrouter" {
		chat.MaxTokens = tokensOr(req.MaxTokens, storyMaxTokens)
	} else {
		chat.MaxCompletionTokens = tokensOr(req.MaxTokens, storyMaxTokens)
	}
	return g.client.Chat(ctx, chat)
}
