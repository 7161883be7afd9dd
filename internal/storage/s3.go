package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Config holds the connection settings for an S3-compatible endpoint.
type S3Config struct {
	// Endpoint is the base URL of a non-AWS provider (MinIO, R2, ...).
	// Empty means AWS itself.
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// putObjectAPI is the part of the S3 client the sink uses.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads the archive as a single object.
type S3Sink struct {
	client putObjectAPI
	bucket string
	key    string
	logger *slog.Logger
}

// NewS3Sink creates a sink for bucket/key. Without an access key requests
// are sent anonymously.
func NewS3Sink(cfg S3Config, bucket, key string, logger *slog.Logger) *S3Sink {
	if logger == nil {
		logger = slog.Default()
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg := aws.Config{Region: region}
	if cfg.AccessKeyID != "" {
		awsCfg.Credentials = credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"", // session token not needed
		)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Debug("initialized S3 sink",
		"bucket", bucket,
		"key", key,
		"endpoint", cfg.Endpoint,
		"region", region,
	)

	return &S3Sink{client: client, bucket: bucket, key: key, logger: logger}
}

// Location returns the s3:// URL of the target object.
func (s *S3Sink) Location() string {
	return "s3://" + s.bucket + "/" + s.key
}

// Put uploads r as the target object.
func (s *S3Sink) Put(ctx context.Context, r io.Reader, size int64) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        r,
		ContentType: aws.String("application/zip"),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}

	result, err := s.client.PutObject(ctx, input)
	if err != nil {
		return &StorageError{Op: "Put", Location: s.Location(), Err: wrapS3Error(err)}
	}

	s.logger.Debug("stored archive in S3",
		"bucket", s.bucket,
		"key", s.key,
		"etag", aws.ToString(result.ETag),
	)
	return nil
}

// wrapS3Error maps provider errors onto the package sentinels
func wrapS3Error(err error) error {
	var noBucket *types.NoSuchBucket
	if errors.As(err, &noBucket) {
		return ErrBucketNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket":
			return ErrBucketNotFound
		case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return fmt.Errorf("%w: %s", ErrAccessDenied, apiErr.ErrorMessage())
		}
	}

	var httpErr interface{ HTTPStatusCode() int }
	if errors.As(err, &httpErr) && httpErr.HTTPStatusCode() == http.StatusForbidden {
		return ErrAccessDenied
	}

	return fmt.Errorf("S3 operation failed: %w", err)
}
