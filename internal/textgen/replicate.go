package textgen

import (
	"context"
	"fmt"

	"github.com/apresai/storybook/internal/ratelimit"
	"github.com/apresai/storybook/internal/replicate"
)

const replicateDefaultModel = "meta/llama-2-70b-chat"

// ReplicateGenerator runs a chat model on Replicate. Every call waits on the
// limiter shared with the other Replicate backends, so the title request
// issued right after the story is spaced by the configured interval.
type ReplicateGenerator struct {
	client  *replicate.Client
	model   string
	limiter *ratelimit.Limiter
}

func NewReplicateGenerator(client *replicate.Client, model string, limiter *ratelimit.Limiter) *ReplicateGenerator {
	return &ReplicateGenerator{client: client, model: orDefault(model, replicateDefaultModel), limiter: limiter}
}

func (g *ReplicateGenerator) Name() string { return "replicate" }

func (g *ReplicateGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	raw, err := g.client.Run(ctx, g.model, map[string]any{
		"prompt":      llamaPrompt(req.System, req.Prompt),
		"max_tokens":  tokensOr(req.MaxTokens, storyMaxTokens),
		"temperature": req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("replicate %s: %w", g.model, err)
	}
	return replicate.OutputText(raw)
}

func llamaPrompt(system, user string) string {
	return "<s>[INST]<<SYS>>" + system + "<</SYS>>" + user + "[/INST]"
}
