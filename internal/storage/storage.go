package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
)

// Storage uploads narration audio to an S3-compatible bucket whose objects
// are served from a public base URL.
type Storage struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string // e.g. "https://pub-1234.r2.dev"
}

// NewStorage creates a storage handler.
func NewStorage(client *s3.Client, bucket, publicBaseURL string) *Storage {
	return &Storage{client: client, bucket: bucket, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

// R2Endpoint returns the S3 API endpoint of a Cloudflare R2 account.
func R2Endpoint(accountID string) string {
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
}

// NewR2Client creates an S3 client for Cloudflare R2.
func NewR2Client(accountID, accessKey, secretKey string) *s3.Client {
	return NewS3Client(R2Endpoint(accountID), accessKey, secretKey)
}

// NewS3Client creates a path-style S3 client for any S3-compatible endpoint
// using static credentials.
func NewS3Client(endpoint, accessKey, secretKey string) *s3.Client {
	cfg := aws.Config{
		Region:      "auto",
		Credentials: credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
	}
	otelaws.AppendMiddlewares(&cfg.APIOptions)
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
		// R2 rejects the SDK's default trailing checksums.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})
}

// Upload puts data under key and returns the key and its public URL.
func (s *Storage) Upload(ctx context.Context, key string, data []byte, contentType string) (string, string, error) {
	if key == "" {
		key = uuid.NewString()
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", "", fmt.Errorf("upload to bucket %s: %w", s.bucket, err)
	}
	return key, s.PublicURL(key), nil
}

// PublicURL is the address an uploaded key is served from.
func (s *Storage) PublicURL(key string) string {
	return s.publicBaseURL + "/" + url.PathEscape(key)
}

// AudioKey names the narration object after the book title, e.g.
// "Mia_and_the_Moon_audio.mp3". An empty title gets a random name. ext
// defaults to mp3.
func AudioKey(title, ext string) string {
	if ext == "" {
		ext = "mp3"
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return uuid.NewString() + "." + ext
	}
	title = strings.ReplaceAll(title, "/", "-")
	return strings.ReplaceAll(title, " ", "_") + "_audio." + ext
}
