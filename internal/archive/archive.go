package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

var ErrDisabled = errors.New("export archive is not configured")

// Archiver stores generated export files.
type Archiver interface {
	Put(ctx context.Context, name, contentType string, body []byte) (string, error)
	Enabled() bool
}

type NoopArchiver struct{}

func (NoopArchiver) Put(context.Context, string, string, []byte) (string, error) {
	return "", ErrDisabled
}

func (NoopArchiver) Enabled() bool { return false }

type S3Config struct {
	Bucket          string
	Region          string
	Prefix          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type S3Archiver struct {
	bucket   string
	prefix   string
	uploader uploader
	now      func() time.Time
	log      zerolog.Logger
}

// NewS3Archiver loads the default AWS credential chain unless static keys
// are given. A custom endpoint switches to path-style addressing for
// S3-compatible stores.
func NewS3Archiver(ctx context.Context, cfg S3Config, log zerolog.Logger) (*S3Archiver, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, ErrDisabled
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Archiver(cfg.Bucket, cfg.Prefix, manager.NewUploader(client), log), nil
}

func newS3Archiver(bucket, prefix string, up uploader, log zerolog.Logger) *S3Archiver {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "exports"
	}
	return &S3Archiver{
		bucket:   bucket,
		prefix:   prefix,
		uploader: up,
		now:      time.Now,
		log:      log.With().Str("component", "archive").Logger(),
	}
}

func (a *S3Archiver) Enabled() bool { return true }

// Key places name under prefix/YYYY/MM/DD.
func (a *S3Archiver) Key(name string) string {
	day := a.now().UTC()
	return path.Join(a.prefix, day.Format("2006"), day.Format("01"), day.Format("02"), path.Base(name))
}

func (a *S3Archiver) Put(ctx context.Context, name, contentType string, body []byte) (string, error) {
	key := a.Key(name)
	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		a.log.Warn().Err(err).Str("key", key).Msg("export archive upload failed")
		return "", fmt.Errorf("archive %s: %w", key, err)
	}
	a.log.Info().Str("key", key).Int("bytes", len(body)).Msg("export archived")
	return key, nil
}
