package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// LocalGenerator talks to an on-box SDXL-Turbo server. The server accepts
// POST /generate with {"prompts","width","height","steps"} and answers
// {"images": [base64 PNG, ...]} in prompt order. Deadlines come from ctx, so
// a stuck server is abandoned when the caller's hard timeout fires.
type LocalGenerator struct {
	baseURL    string
	httpClient *http.Client
}

func NewLocalGenerator(baseURL string) *LocalGenerator {
	return &LocalGenerator{baseURL: strings.TrimRight(baseURL, "/"), httpClient: &http.Client{}}
}

func (g *LocalGenerator) Name() string { return "local" }

type localRequest struct {
	Prompts []string `json:"prompts"`
	Width   int      `json:"width"`
	Height  int      `json:"height"`
	Steps   int      `json:"steps"`
}

type localResponse struct {
	Images []string `json:"images"`
}

func (g *LocalGenerator) Generate(ctx context.Context, prompt string, size Size) ([]byte, error) {
	imgs, err := g.GenerateBatch(ctx, []string{prompt}, size, DefaultSteps)
	if err != nil {
		return nil, err
	}
	return imgs[0], nil
}

func (g *LocalGenerator) GenerateBatch(ctx context.Context, prompts []string, size Size, steps int) ([][]byte, error) {
	bodyBytes, err := json.Marshal(localRequest{Prompts: prompts, Width: size.Width, Height: size.Height, Steps: steps})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/generate", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("local image server error (status %d): %s", res.StatusCode, string(errBody))
	}

	var out localResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Images) != len(prompts) {
		return nil, fmt.Errorf("local image server returned %d images for %d prompts", len(out.Images), len(prompts))
	}

	imgs := make([][]byte, len(out.Images))
	for i, b64 := range out.Images {
		imgs[i], err = base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("decode image %d: %w", i, err)
		}
	}
	return imgs, nil
}
