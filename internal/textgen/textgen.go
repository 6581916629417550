package textgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"google.golang.org/genai"

	"github.com/apresai/storybook/internal/intake"
	"github.com/apresai/storybook/internal/openai"
	"github.com/apresai/storybook/internal/ratelimit"
	"github.com/apresai/storybook/internal/replicate"
	"github.com/apresai/storybook/internal/story"
)

const (
	temperature     = 0.7
	storyMaxTokens  = 3000
	titleMaxTokens  = 50
	maxTitleRunes   = 120
	defaultProvider = "openai"
)

// Request is one text generation call.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Generator produces text from one backend. Implementations do not retry:
// transport failures propagate to the caller.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Deps carries the clients a generator may need. Only the client for the
// selected provider has to be set.
type Deps struct {
	Model      string
	OpenAI     *openai.Client
	OpenRouter *openai.Client
	Replicate  *replicate.Client
	Limiter    *ratelimit.Limiter
	Gemini     *genai.Client
	Bedrock    *bedrockruntime.Client
}

// Providers lists the accepted provider names.
var Providers = []string{"openai", "openrouter", "claude", "gemini", "nova", "replicate"}

// New resolves a provider name to a Generator once, at startup.
func New(name string, d Deps) (Generator, error) {
	if name == "" {
		name = defaultProvider
	}
	switch name {
	case "openai":
		if d.OpenAI == nil {
			return nil, fmt.Errorf("text provider openai needs an OpenAI client")
		}
		return NewOpenAIGenerator(d.OpenAI, d.Model), nil
	case "openrouter":
		if d.OpenRouter == nil {
			return nil, fmt.Errorf("text provider openrouter needs an OpenRouter client")
		}
		return NewOpenRouterGenerator(d.OpenRouter, d.Model), nil
	case "claude":
		return NewClaudeGenerator(d.Model), nil
	case "gemini":
		if d.Gemini == nil {
			return nil, fmt.Errorf("text provider gemini needs a genai client")
		}
		return NewGeminiGenerator(d.Gemini, d.Model), nil
	case "nova":
		if d.Bedrock == nil {
			return nil, fmt.Errorf("text provider nova needs a Bedrock client")
		}
		return NewNovaGenerator(d.Bedrock, d.Model), nil
	case "replicate":
		if d.Replicate == nil {
			return nil, fmt.Errorf("text provider replicate needs a Replicate client")
		}
		return NewReplicateGenerator(d.Replicate, d.Model, d.Limiter), nil
	default:
		return nil, fmt.Errorf("unknown text provider %q: choose %s", name, strings.Join(Providers, ", "))
	}
}

// Story asks g for the raw, delimiter-separated story text for an intake.
func Story(ctx context.Context, g Generator, in intake.Intake) (string, error) {
	text, err := g.Generate(ctx, Request{
		System:      story.SystemPrompt(in.Lang()),
		Prompt:      story.BuildStoryPrompt(in, in.SceneCount()),
		MaxTokens:   storyMaxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%s story generation: %w", g.Name(), err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s returned an empty story", g.Name())
	}
	return text, nil
}

// Title asks g for a single short title for storyText.
func Title(ctx context.Context, g Generator, storyText string) (string, error) {
	raw, err := g.Generate(ctx, Request{
		System:      story.TitleSystemPrompt,
		Prompt:      story.TitlePrompt(storyText),
		MaxTokens:   titleMaxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%s title generation: %w", g.Name(), err)
	}
	title := CleanTitle(raw)
	if title == "" {
		return "", fmt.Errorf("%s returned an empty title", g.Name())
	}
	return title, nil
}

// CleanTitle keeps the first non-empty line of a model's title answer and
// strips quotes, markdown emphasis and a leading "Title:" label.
func CleanTitle(raw string) string {
	var line string
	for _, l := range strings.Split(raw, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}

	line = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(line, "Title:"), "title:"))
	line = strings.Trim(line, "\"'*#“”‘’「」《》 ")

	if r := []rune(line); len(r) > maxTitleRunes {
		line = strings.TrimSpace(string(r[:maxTitleRunes]))
	}
	return line
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func tokensOr(n, fallback int) int {
	if n > 0 {
		return n
	}
	return fallback
}
