package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/dittogrid/internal/logger"
)

// S3 part size limits.
const (
	MinPartSize     = 5 * 1024 * 1024
	DefaultPartSize = 10 * 1024 * 1024
)

// S3Config configures an S3 sink.
type S3Config struct {
	// Bucket is the S3 bucket name (required)
	Bucket string `mapstructure:"bucket"`

	// Key is the object key of the export (required)
	Key string `mapstructure:"key"`

	// KeyPrefix is prepended to Key
	KeyPrefix string `mapstructure:"key_prefix"`

	// Region is the AWS region (required)
	Region string `mapstructure:"region"`

	// Endpoint is a custom endpoint for S3-compatible services
	// (MinIO, Localstack). Path-style addressing is used when set.
	Endpoint string `mapstructure:"endpoint"`

	// AccessKeyID and SecretAccessKey select static credentials;
	// the default credential chain is used when either is empty.
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`

	// PartSize is the multipart upload part size (default: 10MB, min 5MB)
	PartSize int64 `mapstructure:"part_size"`

	// MaxRetries bounds retry attempts for transient failures (default: 10)
	MaxRetries int `mapstructure:"max_retries"`
}

// ObjectKey returns the full object key.
func (c S3Config) ObjectKey() string {
	if c.KeyPrefix == "" {
		return c.Key
	}
	return strings.TrimSuffix(c.KeyPrefix, "/") + "/" + strings.TrimPrefix(c.Key, "/")
}

// S3API is the subset of *s3.Client an S3 sink uses.
type S3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// NewS3Client builds an S3 client from cfg.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("S3 sink: region is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error
	configOptions = append(configOptions, awsConfig.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewS3Sink verifies bucket access and returns a writer that uploads to
// cfg.ObjectKey(). Content below one part is sent with a single PutObject;
// larger content goes through a multipart upload, buffering one part at a
// time. The object only becomes visible on a successful Close.
func NewS3Sink(ctx context.Context, client S3API, cfg S3Config) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 sink: bucket is required")
	}
	if cfg.Key == "" {
		return nil, fmt.Errorf("S3 sink: key is required")
	}

	partSize := cfg.PartSize
	if partSize == 0 {
		partSize = DefaultPartSize
	}
	if partSize < MinPartSize {
		return nil, fmt.Errorf("part size must be at least 5MB, got %d bytes", partSize)
	}

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return newS3Writer(ctx, client, cfg.Bucket, cfg.ObjectKey(), partSize), nil
}

// s3Writer implements io.WriteCloser for streaming writes to S3.
type s3Writer struct {
	ctx      context.Context
	client   S3API
	bucket   string
	key      string
	buffer   *bytes.Buffer
	partSize int64
	uploadID string
	parts    []types.CompletedPart
	total    int64
	err      error
	closed   bool
}

func newS3Writer(ctx context.Context, client S3API, bucket, key string, partSize int64) *s3Writer {
	return &s3Writer{
		ctx:      ctx,
		client:   client,
		bucket:   bucket,
		key:      key,
		buffer:   &bytes.Buffer{},
		partSize: partSize,
	}
}

func (w *s3Writer) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	if w.closed {
		return 0, ErrWriterClosed
	}

	n, _ := w.buffer.Write(p)
	w.total += int64(n)

	if int64(w.buffer.Len()) >= w.partSize {
		if err := w.uploadPart(); err != nil {
			w.err = err
			return n, err
		}
	}
	return n, nil
}

func (w *s3Writer) uploadPart() error {
	if w.buffer.Len() == 0 {
		return nil
	}

	if w.uploadID == "" {
		out, err := w.client.CreateMultipartUpload(w.ctx, &s3.CreateMultipartUploadInput{
			Bucket: aws.String(w.bucket),
			Key:    aws.String(w.key),
		})
		if err != nil {
			return fmt.Errorf("failed to create multipart upload: %w", err)
		}
		w.uploadID = aws.ToString(out.UploadId)
	}

	partNumber := int32(len(w.parts) + 1)
	data := append([]byte(nil), w.buffer.Bytes()...)

	out, err := w.client.UploadPart(w.ctx, &s3.UploadPartInput{
		Bucket:     aws.String(w.bucket),
		Key:        aws.String(w.key),
		UploadId:   aws.String(w.uploadID),
		PartNumber: aws.Int32(partNumber),
		Body:       bytes.NewReader(data),
	})
	if err != nil {
		w.abort()
		return fmt.Errorf("failed to upload part %d: %w", partNumber, err)
	}

	w.parts = append(w.parts, types.CompletedPart{ETag: out.ETag, PartNumber: aws.Int32(partNumber)})
	w.buffer.Reset()
	return nil
}

// abort cancels the multipart upload with its own timeout so a cancelled
// write context still cleans up.
func (w *s3Writer) abort() {
	if w.uploadID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := w.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(w.bucket),
		Key:      aws.String(w.key),
		UploadId: aws.String(w.uploadID),
	})
	var noSuchUpload *types.NoSuchUpload
	if err != nil && !errors.As(err, &noSuchUpload) {
		logger.Warn("S3 sink: abort multipart upload %s: %v", w.uploadID, err)
	}
}

func (w *s3Writer) Close() error {
	if w.closed {
		return w.err
	}
	w.closed = true

	if w.err != nil {
		w.abort()
		return w.err
	}

	if w.uploadID == "" {
		_, err := w.client.PutObject(w.ctx, &s3.PutObjectInput{
			Bucket: aws.String(w.bucket),
			Key:    aws.String(w.key),
			Body:   bytes.NewReader(w.buffer.Bytes()),
		})
		if err != nil {
			w.err = fmt.Errorf("failed to put object %q: %w", w.key, err)
			return w.err
		}
		logger.Info("S3 sink: wrote s3://%s/%s (%d bytes)", w.bucket, w.key, w.total)
		return nil
	}

	if err := w.uploadPart(); err != nil {
		w.err = err
		return err
	}

	_, err := w.client.CompleteMultipartUpload(w.ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(w.bucket),
		Key:             aws.String(w.key),
		UploadId:        aws.String(w.uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: w.parts},
	})
	if err != nil {
		w.abort()
		w.err = fmt.Errorf("failed to complete multipart upload: %w", err)
		return w.err
	}

	logger.Info("S3 sink: wrote s3://%s/%s (%d bytes, %d parts)", w.bucket, w.key, w.total, len(w.parts))
	return nil
}
