package imagegen

import (
	"context"
	"fmt"
	"time"

	"github.com/apresai/storybook/internal/openai"
)

const (
	openAIDefaultModel = "gpt-image-1-mini"
	openAIAttempts     = 3
	openAIBackoff      = time.Second
)

var openAISizes = map[Size]bool{
	{1024, 1024}: true,
	{1536, 1024}: true,
	{1024, 1536}: true,
}

// OpenAIGenerator calls the Images API. Connection errors are retried with
// exponential backoff; any other error is returned at once.
type OpenAIGenerator struct {
	client   *openai.Client
	model    string
	attempts int
	backoff  time.Duration
}

func NewOpenAIGenerator(client *openai.Client, model string) *OpenAIGenerator {
	if model == "" {
		model = openAIDefaultModel
	}
	return &OpenAIGenerator{client: client, model: model, attempts: openAIAttempts, backoff: openAIBackoff}
}

func (g *OpenAIGenerator) Name() string { return "openai" }

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, size Size) ([]byte, error) {
	if !openAISizes[size] {
		size = OpenAISize
	}
	req := openai.ImageRequest{Model: g.model, Prompt: prompt, Size: size.String(), N: 1}

	var lastErr error
	backoff := g.backoff
	for attempt := 1; attempt <= g.attempts; attempt++ {
		img, err := g.client.Image(ctx, req)
		if err == nil {
			return img, nil
		}
		if !openai.IsConnectionError(err) {
			return nil, err
		}
		lastErr = err
		if attempt < g.attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return nil, fmt.Errorf("OpenAI image generation failed after %d attempts: %w", g.attempts, lastErr)
}
