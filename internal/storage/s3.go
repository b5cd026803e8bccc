package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/rift/client/internal/config"
)

// S3Presigner signs PUT requests against an S3-compatible bucket.
type S3Presigner struct {
	client  *s3.PresignClient
	bucket  string
	baseURL string
}

// NewS3Presigner configures a presigner targeting the provided object store.
func NewS3Presigner(ctx context.Context, cfg config.ObjectStore, ttl time.Duration) (*S3Presigner, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 presigner: bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if strings.TrimSpace(cfg.Endpoint) != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &S3Presigner{
		client: s3.NewPresignClient(client, func(o *s3.PresignOptions) {
			o.Expires = ttl
		}),
		bucket:  cfg.Bucket,
		baseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}, nil
}

// Presign returns a signed PUT URL for key. Without a public base URL the
// object is assumed to be served from the bucket URL itself.
func (p *S3Presigner) Presign(ctx context.Context, key, contentType string) (Target, error) {
	key, err := cleanKey(key)
	if err != nil {
		return Target{}, err
	}

	req, err := p.client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return Target{}, fmt.Errorf("s3 presign %s: %w", key, err)
	}

	public := p.baseURL + "/" + escapeKey(key)
	if p.baseURL == "" {
		u, err := url.Parse(req.URL)
		if err != nil {
			return Target{}, fmt.Errorf("s3 presign %s: %w", key, err)
		}
		u.RawQuery = ""
		public = u.String()
	}
	return Target{UploadURL: req.URL, PublicURL: public}, nil
}
