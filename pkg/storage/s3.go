package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Config holds configuration for the Supabase Storage S3 endpoint
type Config struct {
	ProjectURL      string // https://<ref>.supabase.co
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
}

// S3Bucket stores objects in one bucket through the S3 protocol.
type S3Bucket struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// NewS3Bucket creates a client for Supabase Storage's S3-compatible API,
// which requires a custom endpoint and path-style addressing.
func NewS3Bucket(ctx context.Context, cfg Config) (*S3Bucket, error) {
	if cfg.ProjectURL == "" || cfg.Bucket == "" {
		return nil, errors.New("storage: project URL and bucket are required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.ProjectURL + "/storage/v1/s3")
		o.UsePathStyle = true
	})

	return &S3Bucket{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: fmt.Sprintf("%s/storage/v1/object/public/%s", cfg.ProjectURL, cfg.Bucket),
	}, nil
}

func (b *S3Bucket) Upload(ctx context.Context, path, contentType string, body io.Reader, size int64) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(path),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("max-age=3600"),
	})
	if err != nil {
		return fmt.Errorf("storage: upload %s: %w", path, err)
	}
	return nil
}

func (b *S3Bucket) Remove(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}

	objects := make([]types.ObjectIdentifier, 0, len(paths))
	for _, p := range paths {
		objects = append(objects, types.ObjectIdentifier{Key: aws.String(p)})
	}

	out, err := b.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(b.bucket),
		Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return fmt.Errorf("storage: remove: %w", err)
	}
	for _, e := range out.Errors {
		if aws.ToString(e.Code) == "NoSuchKey" {
			continue
		}
		return fmt.Errorf("storage: remove %s: %s", aws.ToString(e.Key), aws.ToString(e.Message))
	}
	return nil
}

func (b *S3Bucket) PublicURL(path string) string {
	return b.publicURL + "/" + strings.TrimPrefix(path, "/")
}

// Ping checks that the bucket is reachable.
func (b *S3Bucket) Ping(ctx context.Context) error {
	_, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(b.bucket),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return fmt.Errorf("failed to access bucket %s: %w", b.bucket, err)
	}
	return nil
}
