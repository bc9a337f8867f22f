package assets

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Config holds S3 asset storage configuration
type S3Config struct {
	Region    string
	Bucket    string
	Prefix    string
	Endpoint  string // optional, for S3-compatible stores
	AccessKey string
	SecretKey string

	// PublicBaseURL is the URL prefix under which uploaded objects are
	// served. Defaults to the bucket's virtual-hosted S3 URL.
	PublicBaseURL string
}

// S3Store implements Store using an S3 bucket
type S3Store struct {
	client  *s3.Client
	bucket  string
	prefix  string
	baseURL string
}

// NewS3Store creates an S3-backed asset store
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	baseURL := strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return &S3Store{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		baseURL: baseURL,
	}, nil
}

// Upload stores the content under a random key and returns its public URL
func (s *S3Store) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	key := uuid.NewString() + strings.ToLower(path.Ext(name))
	if s.prefix != "" {
		key = s.prefix + "/" + key
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload asset: %w", err)
	}

	return s.baseURL + "/" + key, nil
}

// Delete removes a previously uploaded asset by its public URL
func (s *S3Store) Delete(ctx context.Context, url string) error {
	if !s.Owns(url) {
		return ErrNotOwned
	}

	key := strings.TrimPrefix(strings.TrimPrefix(url, s.baseURL), "/")
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}

	return nil
}

// Owns reports whether the URL points into this store's public prefix
func (s *S3Store) Owns(url string) bool {
	return strings.HasPrefix(url, s.baseURL+"/")
}
