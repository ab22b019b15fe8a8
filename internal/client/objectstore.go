package client

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/formdesk/backend/internal/config"
)

const presignExpiry = 15 * time.Minute

// ObjectStore persists form attachments in an S3-compatible bucket
// (AWS S3 or MinIO via a custom endpoint).
type ObjectStore struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

func NewObjectStore(ctx context.Context, cfg config.StorageConfig) (*ObjectStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("objectstore: S3_BUCKET is required")
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
		return nil, fmt.Errorf("objectstore: load aws config: %w", err)
	}

	usePathStyle, _ := strconv.ParseBool(cfg.UsePathStyle)
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = usePathStyle
	})

	return &ObjectStore{
		client:  s3Client,
		presign: s3.NewPresignClient(s3Client),
		bucket:  cfg.Bucket,
	}, nil
}

// NewStorageKey returns a collision-free, date-partitioned object key.
func NewStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("attachments/%d/%02d/%02d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (o *ObjectStore) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := o.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("objectstore: put %s: %w", key, err)
	}
	return nil
}

// PresignGet returns a short-lived download URL for key.
func (o *ObjectStore) PresignGet(ctx context.Context, key string) (string, error) {
	req, err := o.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("objectstore: presign %s: %w", key, err)
	}
	return req.URL, nil
}
