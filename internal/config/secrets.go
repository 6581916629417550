package config

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretEnvVars are fetched from Secrets Manager as prefix+name.
var SecretEnvVars = []string{
	"OPENAI_API_KEY",
	"OPENROUTER_API_KEY",
	"REPLICATE_API_TOKEN",
	"ANTHROPIC_API_KEY",
	"GEMINI_API_KEY",
	"ELEVENLABS_API_KEY",
	"SENDGRID_API_KEY",
	"R2_ACCESS_KEY_ID",
	"R2_SECRET_ACCESS_KEY",
}

type secretsAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// LoadSecrets fetches API keys from Secrets Manager and sets them as env
// vars. Variables already set are left alone; missing secrets are logged.
func LoadSecrets(ctx context.Context, cfg aws.Config, prefix string, logger *slog.Logger) int {
	return loadSecrets(ctx, secretsmanager.NewFromConfig(cfg), prefix, logger)
}

func loadSecrets(ctx context.Context, client secretsAPI, prefix string, logger *slog.Logger) int {
	loaded := 0
	for _, envVar := range SecretEnvVars {
		if os.Getenv(envVar) != "" {
			continue
		}

		secretID := prefix + envVar
		result, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
			SecretId: aws.String(secretID),
		})
		if err != nil {
			logger.Info("Secret not found", "secret_id", secretID, "error", err)
			continue
		}
		if result.SecretString != nil {
			os.Setenv(envVar, *result.SecretString)
			logger.Info("Loaded secret", "secret_id", secretID)
			loaded++
		}
	}
	return loaded
}
