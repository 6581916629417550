// Package app resolves configuration into the concrete collaborators a
// pipeline run needs. Provider names are looked up once, here.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	"google.golang.org/genai"

	"github.com/apresai/storybook/internal/config"
	"github.com/apresai/storybook/internal/document"
	"github.com/apresai/storybook/internal/imagegen"
	"github.com/apresai/storybook/internal/mailer"
	"github.com/apresai/storybook/internal/openai"
	"github.com/apresai/storybook/internal/pipeline"
	"github.com/apresai/storybook/internal/ratelimit"
	"github.com/apresai/storybook/internal/replicate"
	"github.com/apresai/storybook/internal/storage"
	"github.com/apresai/storybook/internal/textgen"
	"github.com/apresai/storybook/internal/tts"
)

// AudioNone disables narration.
const AudioNone = "none"

// App holds resolved collaborators.
type App struct {
	Config *config.Config
	Deps   pipeline.Deps
	AWS    aws.Config
	log    *slog.Logger
}

// Build creates every client the configured providers need.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	awsCfg, err := LoadAWSConfig(ctx, cfg.AWSRegion)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, AWS: awsCfg, log: logger}
	c := newClients(ctx, cfg, awsCfg)
	limits := ratelimit.NewRegistry(nil, cfg.Images.IntervalDuration(), nil)

	textDeps := textgen.Deps{
		Model:      cfg.Providers.TextModel,
		OpenAI:     c.openAI(),
		OpenRouter: c.openRouter(),
		Replicate:  c.replicate(),
		Limiter:    limits.For(ratelimit.BackendReplicate),
		Gemini:     c.gemini(cfg.Providers.Text),
		Bedrock:    c.bedrock(cfg.Providers.Text),
	}
	imageDeps := imagegen.Deps{
		Model:     cfg.Providers.ImageModel,
		OpenAI:    c.openAI(),
		Replicate: c.replicate(),
		Gemini:    c.gemini(cfg.Providers.Image),
		LocalURL:  cfg.Images.LocalURL,
	}
	if c.err != nil {
		return nil, c.err
	}

	text, err := textgen.New(cfg.Providers.Text, textDeps)
	if err != nil {
		return nil, err
	}
	images, err := imagegen.New(cfg.Providers.Image, imageDeps)
	if err != nil {
		return nil, err
	}

	a.Deps = pipeline.Deps{
		Text: text,
		Images: &imagegen.Batch{
			Generator: images,
			Limiter:   limits.For(images.Name()),
			Strength:  cfg.Images.Strength,
			Size:      imagegen.Size{Width: cfg.Images.Width, Height: cfg.Images.Height},
			Steps:     cfg.Images.Steps,
			Logger:    logger,
			Local: imagegen.Local{
				SoftLimit:   cfg.Images.SoftLimitDuration(),
				HardTimeout: cfg.Images.HardTimeoutDuration(),
			},
		},
		Layout: document.Options{
			FontPath: cfg.Layout.FontPath,
			Compress: cfg.Layout.Compress,
			Logger:   logger,
		},
		Logger: logger,
	}

	if cfg.Providers.Audio != AudioNone {
		audio, err := tts.NewProvider(cfg.Providers.Audio, tts.Deps{
			Voice:          cfg.Providers.Voice,
			OpenAI:         c.openAI(),
			Replicate:      c.replicate(),
			ReplicateModel: cfg.Providers.AudioModel,
			Limiter:        limits.For(ratelimit.BackendReplicate),
			AWS:            &awsCfg,
			ElevenLabsKey:  cfg.Keys.ElevenLabs,
		})
		if err != nil {
			return nil, fmt.Errorf("audio provider: %w", err)
		}
		a.Deps.Audio = audio
	}

	if up := newStorage(cfg); up != nil {
		a.Deps.Storage = up
	} else {
		logger.Info("object storage not configured, narration will not be linked")
	}

	sender, err := newSender(cfg, awsCfg)
	if err != nil {
		return nil, err
	}
	if sender != nil {
		a.Deps.Mailer = sender
	}

	logger.Debug("providers resolved",
		"text", text.Name(),
		"image", images.Name(),
		"audio", cfg.Providers.Audio,
		"mail", cfg.Mail.Provider,
	)
	return a, nil
}

// Close releases provider clients.
func (a *App) Close() error {
	if a.Deps.Audio != nil {
		return a.Deps.Audio.Close()
	}
	return nil
}

// LoadAWSConfig loads the default credential chain for region with SDK
// calls traced.
func LoadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	otelaws.AppendMiddlewares(&awsCfg.APIOptions)
	return awsCfg, nil
}

// BuildDelivery resolves only storage and mail, for delivering a book that
// already exists. Either return value may be nil when unconfigured.
func BuildDelivery(ctx context.Context, cfg *config.Config) (pipeline.Uploader, mailer.Sender, error) {
	awsCfg, err := LoadAWSConfig(ctx, cfg.AWSRegion)
	if err != nil {
		return nil, nil, err
	}
	sender, err := newSender(cfg, awsCfg)
	if err != nil {
		return nil, nil, err
	}
	var up pipeline.Uploader
	if s := newStorage(cfg); s != nil {
		up = s
	}
	return up, sender, nil
}

func newStorage(cfg *config.Config) *storage.Storage {
	if !cfg.StorageEnabled() {
		return nil
	}
	switch cfg.Storage.Kind {
	case "s3":
		return storage.NewStorage(
			storage.NewS3Client(cfg.Storage.Endpoint, cfg.Keys.S3AccessKey, cfg.Keys.S3SecretKey),
			cfg.Storage.Bucket, cfg.Storage.PublicBaseURL)
	default:
		return storage.NewStorage(
			storage.NewR2Client(cfg.Storage.AccountID, cfg.Keys.R2AccessKey, cfg.Keys.R2SecretKey),
			cfg.Storage.Bucket, cfg.Storage.PublicBaseURL)
	}
}

func newSender(cfg *config.Config, awsCfg aws.Config) (mailer.Sender, error) {
	switch cfg.Mail.Provider {
	case "":
		return nil, nil
	case "sendgrid":
		if cfg.Keys.SendGrid == "" {
			return nil, errors.New("mail provider sendgrid needs SENDGRID_API_KEY")
		}
		return mailer.NewSendGridSender(cfg.Keys.SendGrid, cfg.Mail.From, cfg.Mail.FromName, cfg.Mail.SendGridHost), nil
	case "ses":
		return mailer.NewSESSender(sesv2.NewFromConfig(awsCfg), cfg.Mail.From, cfg.Mail.FromName), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Mail.Provider)
	}
}

// clients creates each SDK client at most once and only when a selected
// provider asks for it.
type clients struct {
	ctx    context.Context
	cfg    *config.Config
	awsCfg aws.Config
	err    error

	chat   *openai.Client
	router *openai.Client
	rep    *replicate.Client
	gem    *genai.Client
	br     *bedrockruntime.Client
}

func newClients(ctx context.Context, cfg *config.Config, awsCfg aws.Config) *clients {
	return &clients{ctx: ctx, cfg: cfg, awsCfg: awsCfg}
}

func (c *clients) openAI() *openai.Client {
	if c.chat == nil {
		c.chat = openai.NewClient(c.cfg.Keys.OpenAI)
	}
	return c.chat
}

func (c *clients) openRouter() *openai.Client {
	if c.router == nil {
		c.router = openai.NewClient(c.cfg.Keys.OpenRouter,
			openai.WithBaseURL(openai.OpenRouterBaseURL),
			openai.WithHeader("X-Title", "storybook"))
	}
	return c.router
}

func (c *clients) replicate() *replicate.Client {
	if c.rep == nil {
		c.rep = replicate.NewClient(c.cfg.Keys.Replicate)
	}
	return c.rep
}

func (c *clients) gemini(provider string) *genai.Client {
	if provider != "gemini" {
		return nil
	}
	if c.gem == nil {
		client, err := genai.NewClient(c.ctx, &genai.ClientConfig{
			APIKey:  c.cfg.Keys.GoogleAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			c.err = fmt.Errorf("create genai client: %w", err)
			return nil
		}
		c.gem = client
	}
	return c.gem
}

func (c *clients) bedrock(provider string) *bedrockruntime.Client {
	if provider != "nova" {
		return nil
	}
	if c.br == nil {
		c.br = bedrockruntime.NewFromConfig(c.awsCfg)
	}
	return c.br
}
