package tts

import (
	"context"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	texttospeechpb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
)

const (
	googleStoryVoice   = "en-US-Chirp3-HD-Leda"
	googleDefaultVoice = "cmn-CN-Chirp3-HD-Leda"
	googleSpeakingRate = 0.9
)

// GoogleProvider implements Provider using Google Cloud TTS (Chirp 3 HD).
type GoogleProvider struct {
	voice  string
	client *texttospeech.Client
}

func NewGoogleProvider(voice string) (*GoogleProvider, error) {
	if voice == "" {
		voice = googleStoryVoice
	}

	client, err := texttospeech.NewClient(context.Background())
	if err != nil {
		return nil, fmt.Errorf("create Google TTS client: %w", err)
	}

	return &GoogleProvider{voice: voice, client: client}, nil
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) VoiceFor(lang string) Voice {
	if isEnglish(lang) {
		return Voice{ID: p.voice, Name: "Leda", Language: "en-US"}
	}
	return Voice{ID: googleDefaultVoice, Name: "Leda", Language: "cmn-CN"}
}

func (p *GoogleProvider) Synthesize(ctx context.Context, text string, voice Voice) (AudioResult, error) {
	resp, err := p.client.SynthesizeSpeech(ctx, googleRequest(text, voice))
	if err != nil {
		return AudioResult{}, fmt.Errorf("Google TTS synthesize: %w", err)
	}
	return AudioResult{Data: resp.AudioContent, Format: FormatMP3}, nil
}

func googleRequest(text string, voice Voice) *texttospeechpb.SynthesizeSpeechRequest {
	lang := voice.Language
	if lang == "" {
		lang = "en-US"
	}
	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: lang,
			Name:         voice.ID,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			SpeakingRate:  googleSpeakingRate,
		},
	}
}

func (p *GoogleProvider) Close() error { return p.client.Close() }
