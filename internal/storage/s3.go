package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds the configuration for S3 storage.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional: for custom S3-compatible endpoints
	AccessKeyID     string // Optional: AWS access key ID
	SecretAccessKey string // Optional: AWS secret access key
	KeyPrefix       string // Optional: object key prefix, defaults to "videos/"
}

// Compile-time check that S3Store implements Store.
var _ Store = (*S3Store)(nil)

// S3Store wraps LocalStore and publishes finished videos to S3.
// Scratch images and encoder output stay on local disk; PublicURLFor uploads
// the video and returns the object URL instead of a local /videos/ URL.
type S3Store struct {
	*LocalStore
	client    *s3.Client
	bucket    string
	region    string
	endpoint  string
	keyPrefix string
}

// NewS3Store creates a new S3Store on top of a LocalStore.
func NewS3Store(local *LocalStore, cfg S3Config) (*S3Store, error) {
	var configOpts []func(*config.LoadOptions) error
	configOpts = append(configOpts, config.WithRegion(cfg.Region))

	// Use static credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), configOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = strings.TrimPrefix(PublicPrefix, "/")
	}

	return &S3Store{
		LocalStore: local,
		client:     s3.NewFromConfig(awsCfg, clientOpts...),
		bucket:     cfg.Bucket,
		region:     cfg.Region,
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		keyPrefix:  prefix,
	}, nil
}

// PublicURLFor uploads outputPath to S3 and returns the object URL.
// The local copy is removed once the upload succeeded, since nothing serves
// the video directory in S3 mode.
func (s *S3Store) PublicURLFor(ctx context.Context, _, outputPath string) (string, error) {
	name, err := s.videoName(outputPath)
	if err != nil {
		return "", err
	}
	key := s.keyPrefix + name

	if err := s.upload(ctx, key, outputPath); err != nil {
		return "", err
	}

	if err := s.Delete(outputPath); err != nil {
		slog.Warn("failed to remove local copy of published video",
			slog.String("path", outputPath),
			slog.String("error", err.Error()),
		)
	}

	return s.objectURL(key), nil
}

func (s *S3Store) upload(ctx context.Context, key, path string) error {
	f, err := os.Open(path) // #nosec G304 - path was allocated by this store
	if err != nil {
		return fmt.Errorf("open video: %w", err)
	}
	defer func() { _ = f.Close() }()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("video/mp4"),
	})
	if err != nil {
		return fmt.Errorf("upload to S3: %w", err)
	}
	return nil
}

func (s *S3Store) objectURL(key string) string {
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
