package imagegen

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const geminiDefaultModel = "gemini-2.5-flash-image"

// GeminiGenerator asks a Gemini image model for inline image data.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(client *genai.Client, model string) *GeminiGenerator {
	if model == "" {
		model = geminiDefaultModel
	}
	return &GeminiGenerator{client: client, model: model}
}

func (g *GeminiGenerator) Name() string { return "gemini" }

// Generate ignores size beyond passing the orientation hint in the prompt;
// the layout engine scales whatever comes back.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, size Size) ([]byte, error) {
	if size.Width > size.Height {
		prompt += " Landscape composition."
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
	})
	if err != nil {
		return nil, fmt.Errorf("Gemini image generation: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("Gemini returned no candidates")
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, nil
		}
	}
	return nil, fmt.Errorf("Gemini response has no inline image data")
}
