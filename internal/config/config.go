// Package config loads storybook settings from defaults, an optional TOML
// file and environment overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/apresai/storybook/internal/checkout"
)

// DefaultFile is read when no path is given. It may be absent.
const DefaultFile = "storybook.toml"

// Config is the root configuration.
type Config struct {
	Providers ProvidersConfig `toml:"providers"`
	Images    ImagesConfig    `toml:"images"`
	Storage   StorageConfig   `toml:"storage"`
	Mail      MailConfig      `toml:"mail"`
	Checkout  CheckoutConfig  `toml:"checkout"`
	Layout    LayoutConfig    `toml:"layout"`
	Server    ServerConfig    `toml:"server"`

	AWSRegion    string `toml:"aws_region"`
	SecretPrefix string `toml:"secret_prefix"`

	// Keys never come from the file.
	Keys Keys `toml:"-"`
}

// ProvidersConfig selects one backend per generation kind.
type ProvidersConfig struct {
	Text       string `toml:"text"`
	TextModel  string `toml:"text_model"`
	Image      string `toml:"image"`
	ImageModel string `toml:"image_model"`
	Audio      string `toml:"audio"`
	AudioModel string `toml:"audio_model"`
	Voice      string `toml:"voice"`
}

type ImagesConfig struct {
	Strength float64 `toml:"strength"`
	Width    int     `toml:"width"`
	Height   int     `toml:"height"`
	Steps    int     `toml:"steps"`
	LocalURL string  `toml:"local_url"`
	// Interval spaces calls to a shared backend, e.g. "15s".
	Interval    string `toml:"interval"`
	SoftLimit   string `toml:"soft_limit"`
	HardTimeout string `toml:"hard_timeout"`
}

// StorageConfig points at an S3-compatible bucket. Kind is "r2" or "s3".
type StorageConfig struct {
	Kind          string `toml:"kind"`
	AccountID     string `toml:"account_id"`
	Endpoint      string `toml:"endpoint"`
	Bucket        string `toml:"bucket"`
	PublicBaseURL string `toml:"public_base_url"`
}

// MailConfig picks the email sender. Provider is "sendgrid", "ses" or "".
type MailConfig struct {
	Provider     string `toml:"provider"`
	From         string `toml:"from"`
	FromName     string `toml:"from_name"`
	SendGridHost string `toml:"sendgrid_host"`
}

type CheckoutConfig struct {
	BaseURL string         `toml:"base_url"`
	Links   checkout.Links `toml:"links"`
}

type LayoutConfig struct {
	FontPath string `toml:"font_path"`
	Compress bool   `toml:"compress"`
}

type ServerConfig struct {
	Port        int    `toml:"port"`
	Environment string `toml:"environment"`
}

// Keys are credentials read from the environment.
type Keys struct {
	OpenAI         string
	OpenRouter     string
	Replicate      string
	ElevenLabs     string
	SendGrid       string
	R2AccessKey    string
	R2SecretKey    string
	S3AccessKey    string
	S3SecretKey    string
	GoogleAPIKey   string
	AnthropicKey   string
	HasGoogleCreds bool
}

// Load builds a Config. An empty path reads DefaultFile if it exists; an
// explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.readFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg.LoadEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Providers: ProvidersConfig{
			Text:  "openai",
			Image: "openai",
			Audio: "replicate",
		},
		Images: ImagesConfig{
			Strength:    1.2,
			Width:       1152,
			Height:      648,
			Steps:       4,
			Interval:    "15s",
			SoftLimit:   "25s",
			HardTimeout: "300s",
		},
		Storage: StorageConfig{Kind: "r2"},
		Mail: MailConfig{
			From:     "stories@apresai.dev",
			FromName: "Storybook",
		},
		Checkout:  CheckoutConfig{BaseURL: "http://localhost:8501"},
		Server:    ServerConfig{Port: 8000, Environment: "production"},
		AWSRegion: "us-east-1",
	}
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// LoadEnv applies environment overrides and re-reads keys. Call it again
// after LoadSecrets has populated the environment.
func (c *Config) LoadEnv() {
	c.Providers.Text = envOr("TEXT_PROVIDER", c.Providers.Text)
	c.Providers.TextModel = envOr("TEXT_MODEL", c.Providers.TextModel)
	c.Providers.Image = envOr("IMAGE_PROVIDER", c.Providers.Image)
	c.Providers.ImageModel = envOr("IMAGE_MODEL", c.Providers.ImageModel)
	c.Providers.Audio = envOr("AUDIO_PROVIDER", c.Providers.Audio)
	c.Providers.AudioModel = envOr("AUDIO_MODEL", c.Providers.AudioModel)
	c.Providers.Voice = envOr("AUDIO_VOICE", c.Providers.Voice)

	c.Images.LocalURL = envOr("LOCAL_IMAGE_URL", c.Images.LocalURL)
	c.Images.Interval = envOr("PROVIDER_INTERVAL", c.Images.Interval)
	if v, err := strconv.ParseFloat(os.Getenv("STYLE_STRENGTH"), 64); err == nil {
		c.Images.Strength = v
	}

	c.Storage.Kind = envOr("STORAGE_KIND", c.Storage.Kind)
	c.Storage.AccountID = envOr("R2_ACCOUNT_ID", c.Storage.AccountID)
	c.Storage.Endpoint = envOr("S3_ENDPOINT", c.Storage.Endpoint)
	c.Storage.Bucket = envOr("R2_BUCKET", envOr("S3_BUCKET", c.Storage.Bucket))
	c.Storage.PublicBaseURL = envOr("R2_PUBLIC_BASE_URL", envOr("CDN_BASE_URL", c.Storage.PublicBaseURL))

	c.Mail.Provider = envOr("MAIL_PROVIDER", c.Mail.Provider)
	c.Mail.From = envOr("MAIL_FROM", c.Mail.From)
	c.Mail.FromName = envOr("MAIL_FROM_NAME", c.Mail.FromName)

	c.Checkout.BaseURL = envOr("APP_BASE_URL", c.Checkout.BaseURL)
	c.Checkout.Links.Four = envOr("PAYMENT_LINK_4", c.Checkout.Links.Four)
	c.Checkout.Links.Eight = envOr("PAYMENT_LINK_8", c.Checkout.Links.Eight)
	c.Checkout.Links.Twelve = envOr("PAYMENT_LINK_12", c.Checkout.Links.Twelve)

	c.Layout.FontPath = envOr("STORYBOOK_FONT", c.Layout.FontPath)

	if v, err := strconv.Atoi(os.Getenv("PORT")); err == nil && v > 0 {
		c.Server.Port = v
	}
	c.AWSRegion = envOr("AWS_REGION", c.AWSRegion)
	c.SecretPrefix = envOr("SECRET_PREFIX", c.SecretPrefix)

	c.Keys = Keys{
		OpenAI:         os.Getenv("OPENAI_API_KEY"),
		OpenRouter:     os.Getenv("OPENROUTER_API_KEY"),
		Replicate:      os.Getenv("REPLICATE_API_TOKEN"),
		ElevenLabs:     os.Getenv("ELEVENLABS_API_KEY"),
		SendGrid:       os.Getenv("SENDGRID_API_KEY"),
		R2AccessKey:    os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretKey:    os.Getenv("R2_SECRET_ACCESS_KEY"),
		S3AccessKey:    os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretKey:    os.Getenv("S3_SECRET_ACCESS_KEY"),
		GoogleAPIKey:   envOr("GEMINI_API_KEY", os.Getenv("GOOGLE_API_KEY")),
		AnthropicKey:   os.Getenv("ANTHROPIC_API_KEY"),
		HasGoogleCreds: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "",
	}
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	for name, v := range map[string]string{
		"images.interval":     c.Images.Interval,
		"images.soft_limit":   c.Images.SoftLimit,
		"images.hard_timeout": c.Images.HardTimeout,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if c.Images.Strength < 0 {
		return fmt.Errorf("images.strength must not be negative")
	}
	switch c.Storage.Kind {
	case "r2", "s3", "":
	default:
		return fmt.Errorf("storage.kind must be r2 or s3 (got %q)", c.Storage.Kind)
	}
	switch c.Mail.Provider {
	case "sendgrid", "ses", "":
	default:
		return fmt.Errorf("mail.provider must be sendgrid or ses (got %q)", c.Mail.Provider)
	}
	return nil
}

// IntervalDuration returns the shared backend pacing interval.
func (c ImagesConfig) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.Interval)
	return d
}

func (c ImagesConfig) SoftLimitDuration() time.Duration {
	d, _ := time.ParseDuration(c.SoftLimit)
	return d
}

func (c ImagesConfig) HardTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.HardTimeout)
	return d
}

// StorageEnabled reports whether uploads can work at all.
func (c *Config) StorageEnabled() bool {
	return c.Storage.Bucket != "" && c.Storage.PublicBaseURL != ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
