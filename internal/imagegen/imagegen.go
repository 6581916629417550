package imagegen

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/apresai/storybook/internal/openai"
	"github.com/apresai/storybook/internal/replicate"
)

// Generator produces one image per call and returns its encoded bytes.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string, size Size) ([]byte, error)
}

// BatchGenerator renders a whole prompt list in one call. Batches from a
// BatchGenerator run under a hard deadline with a smaller-size fallback.
type BatchGenerator interface {
	Generator
	GenerateBatch(ctx context.Context, prompts []string, size Size, steps int) ([][]byte, error)
}

// Deps carries the clients an image generator may need.
type Deps struct {
	Model     string
	OpenAI    *openai.Client
	Replicate *replicate.Client
	Gemini    *genai.Client
	LocalURL  string
}

// Providers lists the accepted provider names.
var Providers = []string{"openai", "replicate", "gemini", "local"}

// New resolves a provider name to a Generator.
func New(name string, d Deps) (Generator, error) {
	switch name {
	case "", "openai":
		if d.OpenAI == nil {
			return nil, fmt.Errorf("image provider openai needs an OpenAI client")
		}
		return NewOpenAIGenerator(d.OpenAI, d.Model), nil
	case "replicate":
		if d.Replicate == nil {
			return nil, fmt.Errorf("image provider replicate needs a Replicate client")
		}
		return NewReplicateGenerator(d.Replicate, d.Model), nil
	case "gemini":
		if d.Gemini == nil {
			return nil, fmt.Errorf("image provider gemini needs a genai client")
		}
		return NewGeminiGenerator(d.Gemini, d.Model), nil
	case "local":
		if d.LocalURL == "" {
			return nil, fmt.Errorf("image provider local needs a server URL")
		}
		return NewLocalGenerator(d.LocalURL), nil
	default:
		return nil, fmt.Errorf("unknown image provider %q: choose %s", name, strings.Join(Providers, ", "))
	}
}
