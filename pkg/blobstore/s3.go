package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

type Config struct {
	Bucket         string        `env:"BACKUP_S3_BUCKET"`
	Region         string        `env:"BACKUP_S3_REGION" envDefault:"us-east-1"`
	AccessKeyID    string        `env:"BACKUP_S3_ACCESS_KEY_ID"`
	SecretKey      string        `env:"BACKUP_S3_SECRET_KEY"`
	Endpoint       string        `env:"BACKUP_S3_ENDPOINT"`
	Prefix         string        `env:"BACKUP_S3_PREFIX" envDefault:"backups/"`
	ForcePathStyle bool          `env:"BACKUP_S3_FORCE_PATH_STYLE" envDefault:"false"`
	UploadTimeout  time.Duration `env:"BACKUP_S3_UPLOAD_TIMEOUT" envDefault:"30s"`
}

// Enabled reports whether a bucket was configured.
func (c Config) Enabled() bool { return c.Bucket != "" }

// S3Client is the subset of the S3 API used by Store.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Object describes an uploaded blob.
type Object struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Size   int    `json:"size"`
	ETag   string `json:"etag,omitempty"`
}

// Store writes objects under a key prefix.
type Store struct {
	client  S3Client
	bucket  string
	prefix  string
	timeout time.Duration
}

type Option func(*options)

type options struct {
	client     S3Client
	loadOpts   []func(*config.LoadOptions) error
	clientOpts []func(*s3.Options)
}

// WithClient uses a pre-built client. Mostly useful in tests.
func WithClient(c S3Client) Option {
	return func(o *options) { o.client = c }
}

func WithLoadOption(opt func(*config.LoadOptions) error) Option {
	return func(o *options) { o.loadOpts = append(o.loadOpts, opt) }
}

// New builds a Store. It returns ErrDisabled when no bucket is configured.
func New(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	client := o.client
	if client == nil {
		loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			loadOpts = append(loadOpts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
			))
		}
		awsCfg, err := config.LoadDefaultConfig(ctx, append(loadOpts, o.loadOpts...)...)
		if err != nil {
			return nil, errors.Join(ErrFailedToLoadConfig, err)
		}
		client = s3.NewFromConfig(awsCfg, func(so *s3.Options) {
			if cfg.Endpoint != "" {
				so.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			so.UsePathStyle = cfg.ForcePathStyle
			for _, fn := range o.clientOpts {
				fn(so)
			}
		})
	}

	prefix := strings.TrimPrefix(cfg.Prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return &Store{client: client, bucket: cfg.Bucket, prefix: prefix, timeout: cfg.UploadTimeout}, nil
}

// Put uploads data under prefix+name.
func (s *Store) Put(ctx context.Context, name, contentType string, data []byte) (Object, error) {
	name = strings.TrimPrefix(name, "/")
	if name == "" || strings.Contains(name, "..") {
		return Object{}, fmt.Errorf("%w: %q", ErrInvalidKey, name)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	key := s.prefix + name
	out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(data),
		ContentType:          aws.String(contentType),
		ContentLength:        aws.Int64(int64(len(data))),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	})
	if err != nil {
		return Object{}, classify(err)
	}

	return Object{Bucket: s.bucket, Key: key, Size: len(data), ETag: aws.ToString(out.ETag)}, nil
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(ErrOperationTimeout, err)
	}

	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return errors.Join(ErrBucketNotFound, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket":
			return errors.Join(ErrBucketNotFound, err)
		case "AccessDenied":
			return errors.Join(ErrAccessDenied, err)
		case "SlowDown", "ServiceUnavailable", "RequestTimeout":
			return errors.Join(ErrServiceUnavailable, err)
		}
	}
	return errors.Join(ErrUploadFailed, err)
}
