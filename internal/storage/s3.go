package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options configures an S3Store
type S3Options struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// Endpoint is set for S3-compatible providers; it switches to path-style addressing.
	Endpoint string
	// PublicURL is the base clients download from. Defaults to the AWS virtual-hosted URL.
	PublicURL string
	KeyPrefix string
}

// S3Store keeps images in an S3 bucket
type S3Store struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
	publicURL string
}

// NewS3Store creates an S3 client from opts
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:    client,
		bucket:    opts.Bucket,
		keyPrefix: opts.KeyPrefix,
		publicURL: publicBaseURL(opts),
	}, nil
}

func publicBaseURL(opts S3Options) string {
	switch {
	case opts.PublicURL != "":
		return strings.TrimSuffix(opts.PublicURL, "/")
	case opts.Endpoint != "":
		return strings.TrimSuffix(opts.Endpoint, "/") + "/" + opts.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, opts.Region)
	}
}

// Save implements ImageStore
func (s *S3Store) Save(ctx context.Context, name string, body io.Reader, size int64, contentType string) (string, error) {
	key := s.keyPrefix + name
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	return s.publicURL + "/" + key, nil
}

// Delete implements ImageStore
func (s *S3Store) Delete(ctx context.Context, url string) error {
	key, err := s.keyFromURL(url)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (s *S3Store) keyFromURL(url string) (string, error) {
	key, ok := strings.CutPrefix(url, s.publicURL+"/")
	if !ok || !strings.HasPrefix(key, s.keyPrefix) || key == s.keyPrefix {
		return "", fmt.Errorf("%q: %w", url, ErrForeignURL)
	}
	return key, nil
}
