package tts

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
)

const (
	pollyStoryVoice   = "Ruth"
	pollyDefaultVoice = "Zhiyu"
)

// pollyVoiceLang maps voice IDs to their language codes.
var pollyVoiceLang = map[string]types.LanguageCode{
	"Matthew":  types.LanguageCodeEnUs,
	"Ruth":     types.LanguageCodeEnUs,
	"Stephen":  types.LanguageCodeEnUs,
	"Danielle": types.LanguageCodeEnUs,
	"Amy":      types.LanguageCodeEnGb,
	"Olivia":   types.LanguageCodeEnAu,
	"Zhiyu":    types.LanguageCodeCmnCn,
}

// Zhiyu has no generative model.
var pollyNeuralOnly = map[string]bool{"Zhiyu": true}

// PollyProvider implements Provider using AWS Polly.
type PollyProvider struct {
	voice  string
	client *polly.Client
}

// NewPollyProvider uses awsCfg when given, else the default credential chain.
func NewPollyProvider(awsCfg *aws.Config, voice string) (*PollyProvider, error) {
	if voice == "" {
		voice = pollyStoryVoice
	}
	if awsCfg == nil {
		cfg, err := config.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, fmt.Errorf("load AWS config for Polly: %w", err)
		}
		awsCfg = &cfg
	}
	return &PollyProvider{voice: voice, client: polly.NewFromConfig(*awsCfg)}, nil
}

func (p *PollyProvider) Name() string { return "polly" }

func (p *PollyProvider) VoiceFor(lang string) Voice {
	if isEnglish(lang) {
		return Voice{ID: p.voice, Name: p.voice}
	}
	return Voice{ID: pollyDefaultVoice, Name: pollyDefaultVoice}
}

func (p *PollyProvider) Synthesize(ctx context.Context, text string, voice Voice) (AudioResult, error) {
	resp, err := p.client.SynthesizeSpeech(ctx, pollyInput(text, voice))
	if err != nil {
		return AudioResult{}, fmt.Errorf("Polly synthesize: %w", err)
	}
	defer resp.AudioStream.Close()

	data, err := io.ReadAll(resp.AudioStream)
	if err != nil {
		return AudioResult{}, fmt.Errorf("Polly read audio: %w", err)
	}

	return AudioResult{Data: data, Format: FormatMP3}, nil
}

func pollyInput(text string, voice Voice) *polly.SynthesizeSpeechInput {
	lang, ok := pollyVoiceLang[voice.ID]
	if !ok {
		lang = types.LanguageCodeEnUs
	}
	engine := types.EngineGenerative
	if pollyNeuralOnly[voice.ID] {
		engine = types.EngineNeural
	}
	return &polly.SynthesizeSpeechInput{
		Engine:       engine,
		OutputFormat: types.OutputFormatMp3,
		SampleRate:   aws.String("24000"),
		Text:         aws.String(text),
		TextType:     types.TextTypeText,
		VoiceId:      types.VoiceId(voice.ID),
		LanguageCode: lang,
	}
}

func (p *PollyProvider) Close() error { return nil }
