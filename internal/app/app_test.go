package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/storybook/internal/config"
	"github.com/apresai/storybook/internal/mailer"
	"github.com/apresai/storybook/internal/storage"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func baseConfig() *config.Config {
	cfg := config.Default()
	cfg.Keys.OpenAI = "sk-test"
	cfg.Keys.Replicate = "r8-test"
	return cfg
}

func TestBuild(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		a, err := Build(context.Background(), baseConfig(), quiet)
		require.NoError(t, err)
		defer a.Close()

		assert.Equal(t, "openai", a.Deps.Text.Name())
		assert.Equal(t, "openai", a.Deps.Images.Generator.Name())
		assert.Equal(t, "openai", a.Deps.Images.Limiter.Name())
		assert.InDelta(t, 1.2, a.Deps.Images.Strength, 1e-9)
		require.NotNil(t, a.Deps.Audio)
		assert.Equal(t, "replicate", a.Deps.Audio.Name())
		assert.Nil(t, a.Deps.Storage)
		assert.Nil(t, a.Deps.Mailer)
	})

	t.Run("audio disabled", func(t *testing.T) {
		cfg := baseConfig()
		cfg.Providers.Audio = AudioNone
		a, err := Build(context.Background(), cfg, quiet)
		require.NoError(t, err)
		assert.Nil(t, a.Deps.Audio)
		assert.NoError(t, a.Close())
	})

	t.Run("openrouter and replicate images", func(t *testing.T) {
		cfg := baseConfig()
		cfg.Providers.Text = "openrouter"
		cfg.Providers.Image = "replicate"
		a, err := Build(context.Background(), cfg, quiet)
		require.NoError(t, err)
		assert.Equal(t, "openrouter", a.Deps.Text.Name())
		assert.Equal(t, "replicate", a.Deps.Images.Limiter.Name())
	})

	t.Run("storage and sendgrid", func(t *testing.T) {
		cfg := baseConfig()
		cfg.Storage = config.StorageConfig{Kind: "r2", AccountID: "acct", Bucket: "b", PublicBaseURL: "https://cdn.example.com"}
		cfg.Mail.Provider = "sendgrid"
		cfg.Keys.SendGrid = "SG.key"
		a, err := Build(context.Background(), cfg, quiet)
		require.NoError(t, err)
		assert.IsType(t, &storage.Storage{}, a.Deps.Storage)
		assert.IsType(t, &mailer.SendGridSender{}, a.Deps.Mailer)
	})

	t.Run("ses", func(t *testing.T) {
		cfg := baseConfig()
		cfg.Mail.Provider = "ses"
		a, err := Build(context.Background(), cfg, quiet)
		require.NoError(t, err)
		assert.IsType(t, &mailer.SESSender{}, a.Deps.Mailer)
	})
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown text provider", func(c *config.Config) { c.Providers.Text = "gpt2" }},
		{"unknown image provider", func(c *config.Config) { c.Providers.Image = "dalle" }},
		{"local without url", func(c *config.Config) { c.Providers.Image = "local" }},
		{"unknown audio provider", func(c *config.Config) { c.Providers.Audio = "espeak" }},
		{"sendgrid without key", func(c *config.Config) { c.Mail.Provider = "sendgrid" }},
		{"unknown mail provider", func(c *config.Config) { c.Mail.Provider = "smtp" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(cfg)
			_, err := Build(context.Background(), cfg, quiet)
			assert.Error(t, err)
		})
	}
}

func TestBuildDelivery(t *testing.T) {
	t.Run("nothing configured", func(t *testing.T) {
		up, sender, err := BuildDelivery(context.Background(), config.Default())
		require.NoError(t, err)
		assert.Nil(t, up)
		assert.Nil(t, sender)
	})

	t.Run("storage and ses", func(t *testing.T) {
		cfg := config.Default()
		cfg.Storage = config.StorageConfig{Kind: "s3", Endpoint: "http://localhost:9000", Bucket: "b", PublicBaseURL: "https://cdn.example.com"}
		cfg.Mail.Provider = "ses"
		up, sender, err := BuildDelivery(context.Background(), cfg)
		require.NoError(t, err)
		assert.IsType(t, &storage.Storage{}, up)
		assert.IsType(t, &mailer.SESSender{}, sender)
	})

	t.Run("bad mail provider", func(t *testing.T) {
		cfg := config.Default()
		cfg.Mail.Provider = "sendgrid"
		_, _, err := BuildDelivery(context.Background(), cfg)
		assert.Error(t, err)
	})
}

func TestLoadAWSConfig(t *testing.T) {
	cfg, err := LoadAWSConfig(context.Background(), "eu-west-1")
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Region)
	assert.NotEmpty(t, cfg.APIOptions)
}
