package imagegen

import (
	"context"
	"fmt"

	"github.com/apresai/storybook/internal/replicate"
)

const replicateDefaultModel = "black-forest-labs/flux-schnell"

// ReplicateGenerator runs an image model on Replicate and downloads the
// first output file.
type ReplicateGenerator struct {
	client *replicate.Client
	model  string
}

func NewReplicateGenerator(client *replicate.Client, model string) *ReplicateGenerator {
	if model == "" {
		model = replicateDefaultModel
	}
	return &ReplicateGenerator{client: client, model: model}
}

func (g *ReplicateGenerator) Name() string { return "replicate" }

func (g *ReplicateGenerator) Generate(ctx context.Context, prompt string, size Size) ([]byte, error) {
	raw, err := g.client.Run(ctx, g.model, map[string]any{
		"prompt": prompt,
		"width":  size.Width,
		"height": size.Height,
	})
	if err != nil {
		return nil, fmt.Errorf("replicate %s: %w", g.model, err)
	}
	url, err := replicate.OutputURL(raw)
	if err != nil {
		return nil, err
	}
	return g.client.Download(ctx, url)
}
