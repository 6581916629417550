package tts

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/apresai/storybook/internal/ratelimit"
	"github.com/apresai/storybook/internal/replicate"
)

const (
	replicateDefaultModel = "jaaari/kokoro-82m"
	replicateStorySpeaker = "af_heart"
	replicateZHSpeaker    = "zf_xiaobei"
)

// ReplicateProvider runs a Kokoro model on Replicate. Each call waits on the
// limiter shared with the other Replicate backends.
type ReplicateProvider struct {
	client  *replicate.Client
	model   string
	speaker string
	limiter *ratelimit.Limiter
}

func NewReplicateProvider(client *replicate.Client, model, speaker string, limiter *ratelimit.Limiter) *ReplicateProvider {
	if model == "" {
		model = replicateDefaultModel
	}
	if speaker == "" {
		speaker = replicateStorySpeaker
	}
	return &ReplicateProvider{client: client, model: model, speaker: speaker, limiter: limiter}
}

func (p *ReplicateProvider) Name() string { return "replicate" }

func (p *ReplicateProvider) VoiceFor(lang string) Voice {
	if isEnglish(lang) {
		return Voice{ID: p.speaker, Name: p.speaker}
	}
	return Voice{ID: replicateZHSpeaker, Name: replicateZHSpeaker}
}

// Synthesize returns an error wrapping replicate.UnrecognizedShapeError when
// the model output holds no audio URL.
func (p *ReplicateProvider) Synthesize(ctx context.Context, text string, voice Voice) (AudioResult, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return AudioResult{}, err
	}

	raw, err := p.client.Run(ctx, p.model, map[string]any{
		"text":    text,
		"speaker": voice.ID,
	})
	if err != nil {
		return AudioResult{}, fmt.Errorf("replicate %s: %w", p.model, err)
	}
	url, err := replicate.OutputURL(raw)
	if err != nil {
		return AudioResult{}, fmt.Errorf("replicate %s audio output: %w", p.model, err)
	}
	data, err := p.client.Download(ctx, url)
	if err != nil {
		return AudioResult{}, err
	}

	format := FormatMP3
	if strings.EqualFold(path.Ext(strings.SplitN(url, "?", 2)[0]), ".wav") {
		format = FormatWAV
	}
	return AudioResult{Data: data, Format: format}, nil
}

func (p *ReplicateProvider) Close() error { return nil }
