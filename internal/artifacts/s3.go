package artifacts

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultContentType is the MIME type set on uploaded artifacts.
const DefaultContentType = "application/pdf"

// objectPutter is the subset of the S3 client used for uploads.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads artifacts to an S3 bucket under an optional key prefix.
type S3Store struct {
	client  objectPutter
	presign *s3.PresignClient
	bucket  string
	prefix  string
}

// NewS3Store loads the default AWS configuration for region and returns a store for bucket.
func NewS3Store(ctx context.Context, bucket, prefix, region string) (*S3Store, error) {
	if bucket == "" {
		return nil, &Error{Message: "bucket is required"}
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	store := newS3Store(client, bucket, prefix)
	store.presign = s3.NewPresignClient(client)
	return store, nil
}

func newS3Store(client objectPutter, bucket, prefix string) *S3Store {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key used for name.
func (s *S3Store) Key(name string) string {
	return s.prefix + name
}

// Save uploads r as bucket/prefix+name and returns an s3:// locator.
func (s *S3Store) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	key := s.Key(name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(DefaultContentType),
	})
	if err != nil {
		return "", &Error{Message: fmt.Sprintf("failed to upload object to S3: %s", key), Cause: err}
	}
	log.Printf("[artifacts] uploaded s3://%s/%s", s.bucket, key)
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// PresignedURL returns a time-limited download link for name.
func (s *S3Store) PresignedURL(ctx context.Context, name string, lifetime time.Duration) (string, error) {
	if s.presign == nil {
		return "", &Error{Message: "presigning is not configured"}
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.Key(name)),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = lifetime
	})
	if err != nil {
		return "", &Error{Message: "failed to generate presigned URL", Cause: err}
	}
	return req.URL, nil
}
