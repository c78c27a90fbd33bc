package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ImageResolver turns a listing image reference into a URL a browser can load.
type ImageResolver interface {
	ImageURL(ctx context.Context, ref string) string
}

// Uploader stores image content and returns its object key.
type Uploader interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error)
}

type Options struct {
	Endpoint       string
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	Bucket         string
	Region         string
	UseSSL         bool
	PresignTTL     time.Duration
}

// Images serves listing pictures from an S3-compatible bucket.
type Images struct {
	bucket         string
	publicBaseURL  string
	presignTTL     time.Duration
	client         *minio.Client
	logger         *slog.Logger
	bucketInitOnce sync.Once
	bucketInitErr  error
}

func NewImages(opts Options, logger *slog.Logger) (*Images, error) {
	cleanEndpoint := strings.TrimSpace(opts.Endpoint)
	if cleanEndpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	bucket := strings.TrimSpace(opts.Bucket)
	if bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	region := strings.TrimSpace(opts.Region)
	if region == "" {
		region = "us-east-1"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	client, err := minio.New(parseEndpoint(cleanEndpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(opts.AccessKey), strings.TrimSpace(opts.SecretKey), ""),
		Secure: opts.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}

	base := strings.TrimSpace(opts.PublicEndpoint)
	if base == "" {
		base = cleanEndpoint
	}
	return &Images{
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(base, "/"),
		presignTTL:    opts.PresignTTL,
		client:        client,
		logger:        logger,
	}, nil
}

// ImageURL leaves absolute http(s) URLs untouched and signs bucket keys.
// Signing failures fall back to the public object URL.
func (i *Images) ImageURL(ctx context.Context, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || isAbsoluteURL(ref) {
		return ref
	}
	key := objectKey(ref, i.bucket)
	if i.presignTTL > 0 {
		signed, err := i.client.PresignedGetObject(ctx, i.bucket, key, i.presignTTL, url.Values{})
		if err == nil {
			return signed.String()
		}
		i.logger.Warn("image presign failed, using public url", "bucket", i.bucket, "key", key, "error", err)
	}
	return i.objectURL(key)
}

// Upload stores content under key and returns the key for the listing record.
func (i *Images) Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
	if reader == nil {
		return "", errors.New("s3: reader is required")
	}
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("s3: object key is required")
	}
	if err := i.ensureBucket(ctx); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := i.client.PutObject(ctx, i.bucket, key, reader, -1, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("s3: put object: %w", err)
	}
	i.logger.Info("image uploaded", "bucket", i.bucket, "key", key)
	return key, nil
}

func (i *Images) ensureBucket(ctx context.Context) error {
	i.bucketInitOnce.Do(func() {
		exists, err := i.client.BucketExists(ctx, i.bucket)
		if err != nil {
			i.bucketInitErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := i.client.MakeBucket(ctx, i.bucket, minio.MakeBucketOptions{}); err != nil {
			i.bucketInitErr = fmt.Errorf("s3: create bucket: %w", err)
		}
	})
	return i.bucketInitErr
}

func (i *Images) objectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", i.publicBaseURL, i.bucket, strings.TrimLeft(key, "/"))
}

// PassThrough renders references as given. Used when no bucket is configured.
type PassThrough struct{}

func (PassThrough) ImageURL(_ context.Context, ref string) string {
	return strings.TrimSpace(ref)
}

func isAbsoluteURL(ref string) bool {
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// objectKey accepts "key", "/key" and "s3://bucket/key".
func objectKey(ref, bucket string) string {
	if strings.HasPrefix(ref, "s3://") {
		rest := strings.TrimPrefix(ref, "s3://")
		rest = strings.TrimPrefix(rest, bucket+"/")
		return strings.TrimLeft(rest, "/")
	}
	return strings.TrimLeft(ref, "/")
}

func parseEndpoint(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

var (
	_ ImageResolver = (*Images)(nil)
	_ ImageResolver = PassThrough{}
	_ Uploader      = (*Images)(nil)
)
