package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/apresai/storybook/internal/openai"
	"github.com/apresai/storybook/internal/ratelimit"
	"github.com/apresai/storybook/internal/replicate"
	"github.com/apresai/storybook/internal/story"
)

// AudioFormat represents the audio encoding returned by a provider.
type AudioFormat string

const (
	FormatMP3 AudioFormat = "mp3"
	FormatWAV AudioFormat = "wav"
)

// ContentType returns the MIME type for the format.
func (f AudioFormat) ContentType() string {
	if f == FormatWAV {
		return "audio/wav"
	}
	return "audio/mpeg"
}

// Voice holds a provider-specific voice identifier.
type Voice struct {
	ID       string // Provider-specific voice identifier
	Name     string // Human-readable label
	Language string // Provider language code, if the API wants one
	Model    string // Model to pair with the voice, if any
}

// AudioResult is the output of a synthesis call.
type AudioResult struct {
	Data   []byte
	Format AudioFormat
}

// Provider synthesizes narration.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, text string, voice Voice) (AudioResult, error)
	// VoiceFor picks the narrator for a story language. English gets the
	// provider's storyteller preset; anything else gets its default
	// multilingual voice.
	VoiceFor(lang string) Voice
	Close() error
}

// Retry constants shared by all providers.
const (
	defaultMaxAttempts  = 3
	defaultBackoffMulti = 2
	defaultMaxBackoff   = 10 * time.Second
)

var initialBackoff = 1 * time.Second

// RetryableError signals that the operation can be retried.
type RetryableError struct {
	StatusCode int
	Body       string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

// WithRetry executes fn with exponential backoff on RetryableError.
func WithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= defaultMaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		var re *RetryableError
		if !errors.As(err, &re) {
			return err
		}
		lastErr = err

		if attempt < defaultMaxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= time.Duration(defaultBackoffMulti)
			if backoff > defaultMaxBackoff {
				backoff = defaultMaxBackoff
			}
		}
	}

	return lastErr
}

// Deps carries what the providers need. Only the fields for the selected
// provider have to be set.
type Deps struct {
	// Voice overrides the English preset voice ID.
	Voice          string
	OpenAI         *openai.Client
	Replicate      *replicate.Client
	ReplicateModel string
	Limiter        *ratelimit.Limiter
	AWS            *aws.Config
	ElevenLabsKey  string
}

// Providers lists the accepted provider names.
var Providers = []string{"openai", "replicate", "elevenlabs", "google", "polly"}

// NewProvider creates a TTS provider by name.
func NewProvider(name string, d Deps) (Provider, error) {
	switch name {
	case "", "openai":
		if d.OpenAI == nil {
			return nil, fmt.Errorf("TTS provider openai needs an OpenAI client")
		}
		return NewOpenAIProvider(d.OpenAI, d.Voice), nil
	case "replicate":
		if d.Replicate == nil {
			return nil, fmt.Errorf("TTS provider replicate needs a Replicate client")
		}
		return NewReplicateProvider(d.Replicate, d.ReplicateModel, d.Voice, d.Limiter), nil
	case "elevenlabs":
		return NewElevenLabsProvider(d.ElevenLabsKey, d.Voice), nil
	case "google":
		return NewGoogleProvider(d.Voice)
	case "polly":
		return NewPollyProvider(d.AWS, d.Voice)
	default:
		return nil, fmt.Errorf("unknown TTS provider %q: choose %s", name, strings.Join(Providers, ", "))
	}
}

// Narrate reads the whole story aloud in one synthesis call.
func Narrate(ctx context.Context, p Provider, scenes []story.Scene, lang string) (AudioResult, error) {
	text := story.Narration(scenes)
	if strings.TrimSpace(text) == "" {
		return AudioResult{}, fmt.Errorf("nothing to narrate")
	}

	voice := p.VoiceFor(lang)
	var res AudioResult
	err := WithRetry(ctx, func() error {
		var err error
		res, err = p.Synthesize(ctx, text, voice)
		return err
	})
	if err != nil {
		return AudioResult{}, fmt.Errorf("%s narration: %w", p.Name(), err)
	}
	if len(res.Data) == 0 {
		return AudioResult{}, fmt.Errorf("%s returned no audio", p.Name())
	}
	return res, nil
}

func isEnglish(lang string) bool {
	return lang == "" || lang == "en"
}
