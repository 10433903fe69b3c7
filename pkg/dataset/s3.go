package dataset

import (
	"context"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/matzehuels/watershed/pkg/cache"
	"github.com/matzehuels/watershed/pkg/errors"
)

// S3Config configures an S3Source.
type S3Config struct {
	Endpoint  string `toml:"endpoint"`
	Bucket    string `toml:"bucket"`
	Prefix    string `toml:"prefix"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Region    string `toml:"region"`
	UseSSL    bool   `toml:"use_ssl"`
}

// S3Source reads datasets from an S3-compatible bucket.
type S3Source struct {
	client *minio.Client
	bucket string
	prefix string
	layout Layout

	mu      sync.Mutex
	checked bool
}

// NewS3Source creates an S3Source. No request is made until first use.
func NewS3Source(cfg S3Config, layout Layout) (*S3Source, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "s3 source needs an endpoint and a bucket")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "create s3 client for %s", cfg.Endpoint)
	}
	return &S3Source{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		layout: layout.WithDefaults(),
	}, nil
}

func (s *S3Source) key(ref Ref) (string, error) {
	rel, err := s.layout.Path(ref)
	if err != nil {
		return "", err
	}
	if s.prefix == "" {
		return rel, nil
	}
	return path.Join(s.prefix, rel), nil
}

func (s *S3Source) checkBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checked {
		return nil
	}
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return cache.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "check bucket %s", s.bucket))
	}
	if !ok {
		return errors.New(errors.ErrCodeDatasetNotFound, "bucket %s does not exist", s.bucket)
	}
	s.checked = true
	return nil
}

// Stat implements Source.
func (s *S3Source) Stat(ctx context.Context, ref Ref) (Info, error) {
	if err := s.checkBucket(ctx); err != nil {
		return Info{}, err
	}
	key, err := s.key(ref)
	if err != nil {
		return Info{}, err
	}
	var oi minio.ObjectInfo
	err = cache.RetryWithBackoff(ctx, func() error {
		var statErr error
		oi, statErr = s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
		return s.classify(ref, key, statErr)
	})
	if err != nil {
		return Info{}, err
	}
	return Info{Version: oi.ETag, Size: oi.Size}, nil
}

// Open implements Source.
func (s *S3Source) Open(ctx context.Context, ref Ref) (io.ReadCloser, error) {
	if err := s.checkBucket(ctx); err != nil {
		return nil, err
	}
	key, err := s.key(ref)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.classify(ref, key, err)
	}
	// GetObject is lazy; Stat surfaces a missing key before decoding starts.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, s.classify(ref, key, err)
	}
	return obj, nil
}

func (s *S3Source) classify(ref Ref, key string, err error) error {
	if err == nil {
		return nil
	}
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return errors.Wrap(errors.ErrCodeDatasetNotFound, err, "%s dataset not found at s3://%s/%s", ref, s.bucket, key)
	case "AccessDenied":
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "access denied to s3://%s/%s", s.bucket, key)
	}
	return cache.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "fetch s3://%s/%s", s.bucket, key))
}

var _ Source = (*S3Source)(nil)
