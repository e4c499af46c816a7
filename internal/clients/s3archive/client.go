// Package s3archive uploads audit export artifacts to an S3 bucket so the
// trail survives the host. Optional: the rest of the system runs without it.
package s3archive

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// Client wraps the S3 upload manager for audit archive uploads
type Client struct {
	uploader *manager.Uploader
	bucket   string
	prefix   string
	log      zerolog.Logger
}

// Config holds S3 archive settings
type Config struct {
	Bucket string
	Region string
	Prefix string // Key prefix inside the bucket
}

// New creates an S3 archive client using the default AWS credential chain
func New(ctx context.Context, cfg Config, log zerolog.Logger) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 archive bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return &Client{
		uploader: manager.NewUploader(s3.NewFromConfig(awsCfg)),
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		log:      log.With().Str("client", "s3archive").Logger(),
	}, nil
}

// Upload stores one export artifact under prefix/key and returns the full
// object key.
func (c *Client) Upload(ctx context.Context, key, contentType string, body []byte) (string, error) {
	fullKey := path.Join(c.prefix, key)

	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(fullKey),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to s3://%s: %w", fullKey, c.bucket, err)
	}

	c.log.Info().
		Str("bucket", c.bucket).
		Str("key", fullKey).
		Int("bytes", len(body)).
		Msg("Export uploaded")

	return fullKey, nil
}
