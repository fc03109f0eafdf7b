package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"upload-service/config"
)

// s3API is the subset of *s3.Client used by S3Storage
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Provider error codes that mean the credentials themselves were rejected
var credentialErrorCodes = map[string]bool{
	"InvalidAccessKeyId":    true,
	"SignatureDoesNotMatch": true,
	"ExpiredToken":          true,
	"InvalidToken":          true,
	"TokenRefreshRequired":  true,
}

// S3Storage implements Storage interface for AWS S3
type S3Storage struct {
	client      s3API
	credentials aws.CredentialsProvider
}

// NewS3Storage creates a new S3 storage instance
func NewS3Storage(ctx context.Context, cfg *config.Config) (*S3Storage, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
		// One attempt per put
		awsconfig.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	}
	if cfg.HasStaticCredentials() {
		// Use explicit credentials
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKey,
			cfg.AWSSecretKey,
			"",
		)))
	}

	// Without explicit keys the default chain applies (environment, shared config, IAM role)
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Storage(client, awsCfg.Credentials), nil
}

func newS3Storage(client s3API, creds aws.CredentialsProvider) *S3Storage {
	return &S3Storage{client: client, credentials: creds}
}

// PutObject stores content in S3 as a single put
func (s *S3Storage) PutObject(ctx context.Context, bucket, key string, content []byte) (string, error) {
	if err := validateTarget(bucket, key); err != nil {
		return "", err
	}
	if err := s.checkCredentials(ctx); err != nil {
		return "", err
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
		ContentType:   aws.String(ContentTypeOctetStream),
	})
	if err != nil {
		return "", classifyError("upload to", err)
	}

	return ObjectURL(bucket, key), nil
}

// DeleteObject removes an object from S3
func (s *S3Storage) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := validateTarget(bucket, key); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return classifyError("delete from", err)
	}
	return nil
}

// ObjectExists issues a HeadObject for bucket/key. A 404 means the key is free.
func (s *S3Storage) ObjectExists(ctx context.Context, bucket, key string) (bool, error) {
	if err := validateTarget(bucket, key); err != nil {
		return false, err
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey") {
		return false, nil
	}
	return false, classifyError("head object in", err)
}

// checkCredentials resolves credentials before any request goes out so
// a missing key pair surfaces as ErrCredentials instead of a signing failure.
func (s *S3Storage) checkCredentials(ctx context.Context) error {
	if s.credentials == nil {
		return ErrCredentials
	}
	creds, err := s.credentials.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCredentials, err)
	}
	if !creds.HasKeys() {
		return ErrCredentials
	}
	return nil
}

func classifyError(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && credentialErrorCodes[apiErr.ErrorCode()] {
		return fmt.Errorf("%w: %s", ErrCredentials, apiErr.ErrorMessage())
	}
	return fmt.Errorf("%w: failed to %s S3: %w", ErrUploadFailed, op, err)
}
