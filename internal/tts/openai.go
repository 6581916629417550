package tts

import (
	"context"
	"errors"
	"net/http"

	"github.com/apresai/storybook/internal/openai"
)

const (
	openAIModel        = "tts-1"
	openAIStoryVoice   = "fable"
	openAIDefaultVoice = "alloy"
)

// OpenAIProvider uses the OpenAI speech endpoint.
type OpenAIProvider struct {
	client *openai.Client
	voice  string
}

func NewOpenAIProvider(client *openai.Client, voice string) *OpenAIProvider {
	if voice == "" {
		voice = openAIStoryVoice
	}
	return &OpenAIProvider{client: client, voice: voice}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) VoiceFor(lang string) Voice {
	if isEnglish(lang) {
		return Voice{ID: p.voice, Name: p.voice, Model: openAIModel}
	}
	return Voice{ID: openAIDefaultVoice, Name: openAIDefaultVoice, Model: openAIModel}
}

func (p *OpenAIProvider) Synthesize(ctx context.Context, text string, voice Voice) (AudioResult, error) {
	model := voice.Model
	if model == "" {
		model = openAIModel
	}
	data, err := p.client.Speech(ctx, openai.SpeechRequest{
		Model:          model,
		Input:          text,
		Voice:          voice.ID,
		ResponseFormat: "mp3",
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) &&
			(apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError) {
			return AudioResult{}, &RetryableError{StatusCode: apiErr.StatusCode, Body: apiErr.Body}
		}
		return AudioResult{}, err
	}
	return AudioResult{Data: data, Format: FormatMP3}, nil
}

func (p *OpenAIProvider) Close() error { return nil }
