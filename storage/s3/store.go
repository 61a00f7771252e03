package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/tags"

	"github.com/thriftdb/thriftdb/storage"
)

type Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

const defaultEndpoint = "s3.amazonaws.com"

type client interface {
	Put(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts storage.PutOptions) (storage.ObjectInfo, error)
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, bucket, key string) (storage.ObjectInfo, error)
	ListVersions(ctx context.Context, bucket, prefix string) ([]storage.ObjectVersion, error)
	Delete(ctx context.Context, bucket, key, versionID string) error
	BucketExists(ctx context.Context, bucket string) (bool, error)
	CreateBucket(ctx context.Context, bucket, region string) error
	EnableVersioning(ctx context.Context, bucket string) error
	SetBucketTags(ctx context.Context, bucket string, bucketTags map[string]string) error
}

type Store struct {
	client client
	bucket string
}

func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	mc, err := newMinioClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Store{client: mc, bucket: strings.TrimSpace(cfg.Bucket)}, nil
}

func NewWithClient(bucket string, c client) (*Store, error) {
	if c == nil {
		return nil, fmt.Errorf("client is required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	return &Store{client: c, bucket: strings.TrimSpace(bucket)}, nil
}

func (s *Store) Bucket() string {
	return s.bucket
}

func (s *Store) EnsureBucket(ctx context.Context, opts storage.BucketOptions) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.CreateBucket(ctx, s.bucket, strings.TrimSpace(opts.Region)); err != nil {
			return fmt.Errorf("create bucket %q: %w", s.bucket, err)
		}
	}
	if opts.EnableVersioning {
		if err := s.client.EnableVersioning(ctx, s.bucket); err != nil {
			return fmt.Errorf("enable versioning on %q: %w", s.bucket, err)
		}
	}
	if len(opts.Tags) > 0 {
		if err := s.client.SetBucketTags(ctx, s.bucket, opts.Tags); err != nil {
			return fmt.Errorf("tag bucket %q: %w", s.bucket, err)
		}
	}
	return nil
}

func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, opts storage.PutOptions) (storage.ObjectInfo, error) {
	normalized, err := normalizeKey(key)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	info, err := s.client.Put(ctx, s.bucket, normalized, body, size, opts)
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("put object %q: %w", normalized, err)
	}
	return info, nil
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	normalized, err := normalizeKey(key)
	if err != nil {
		return nil, err
	}
	reader, err := s.client.Get(ctx, s.bucket, normalized)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, storage.ErrObjectNotFound
		}
		return nil, fmt.Errorf("get object %q: %w", normalized, err)
	}
	return reader, nil
}

func (s *Store) Stat(ctx context.Context, key string) (storage.ObjectInfo, error) {
	normalized, err := normalizeKey(key)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	info, err := s.client.Stat(ctx, s.bucket, normalized)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return storage.ObjectInfo{}, storage.ErrObjectNotFound
		}
		return storage.ObjectInfo{}, fmt.Errorf("stat object %q: %w", normalized, err)
	}
	return info, nil
}

func (s *Store) ListVersions(ctx context.Context, prefix string) ([]storage.ObjectVersion, error) {
	normalized, err := normalizeKey(prefix)
	if err != nil {
		return nil, err
	}
	versions, err := s.client.ListVersions(ctx, s.bucket, normalized)
	if err != nil {
		return nil, fmt.Errorf("list versions under %q: %w", normalized, err)
	}
	return versions, nil
}

func (s *Store) DeleteVersion(ctx context.Context, key, versionID string) error {
	normalized, err := normalizeKey(key)
	if err != nil {
		return err
	}
	if err := s.client.Delete(ctx, s.bucket, normalized, versionID); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil
		}
		return fmt.Errorf("delete object %q version %q: %w", normalized, versionID, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.DeleteVersion(ctx, key, "")
}

func normalizeKey(key string) (string, error) {
	trimmed := strings.Trim(strings.TrimSpace(key), "/")
	if trimmed == "" {
		return "", fmt.Errorf("object key is required")
	}
	cleaned := path.Clean(trimmed)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return cleaned, nil
}

func newMinioClient(cfg Config) (*minioClient, error) {
	endpoint, useSSL, err := parseEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	options := &minio.Options{
		Secure: useSSL,
		Region: cfg.Region,
	}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		options.Creds = credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	} else {
		options.Creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.FileAWSCredentials{},
			&credentials.IAM{},
		})
	}
	mc, err := minio.New(endpoint, options)
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &minioClient{client: mc}, nil
}

func parseEndpoint(raw string, useSSL bool) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultEndpoint, true, nil
	}
	if strings.Contains(raw, "://") {
		parsed, err := url.Parse(raw)
		if err != nil {
			return "", false, fmt.Errorf("parse endpoint URL: %w", err)
		}
		if parsed.Host == "" {
			return "", false, fmt.Errorf("endpoint host is required")
		}
		if parsed.Scheme == "https" {
			return parsed.Host, true, nil
		}
		return parsed.Host, useSSL, nil
	}
	return raw, useSSL, nil
}

type minioClient struct {
	client *minio.Client
}

func (m *minioClient) Put(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts storage.PutOptions) (storage.ObjectInfo, error) {
	uploadInfo, err := m.client.PutObject(ctx, bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: opts.ContentType,
		UserTags:    opts.Tags,
	})
	if err != nil {
		return storage.ObjectInfo{}, mapMinioErr(err)
	}
	return storage.ObjectInfo{Key: uploadInfo.Key, Size: uploadInfo.Size, ETag: uploadInfo.ETag, VersionID: uploadInfo.VersionID}, nil
}

func (m *minioClient) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinioErr(err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, mapMinioErr(err)
	}
	return obj, nil
}

func (m *minioClient) Stat(ctx context.Context, bucket, key string) (storage.ObjectInfo, error) {
	obj, err := m.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return storage.ObjectInfo{}, mapMinioErr(err)
	}
	return storage.ObjectInfo{Key: obj.Key, Size: obj.Size, ETag: obj.ETag, VersionID: obj.VersionID, LastModified: obj.LastModified}, nil
}

func (m *minioClient) ListVersions(ctx context.Context, bucket, prefix string) ([]storage.ObjectVersion, error) {
	var versions []storage.ObjectVersion
	for obj := range m.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:       prefix,
		Recursive:    true,
		WithVersions: true,
	}) {
		if obj.Err != nil {
			return nil, mapMinioErr(obj.Err)
		}
		versions = append(versions, storage.ObjectVersion{
			Key:            obj.Key,
			VersionID:      obj.VersionID,
			Size:           obj.Size,
			IsDeleteMarker: obj.IsDeleteMarker,
			LastModified:   obj.LastModified,
		})
	}
	return versions, nil
}

func (m *minioClient) Delete(ctx context.Context, bucket, key, versionID string) error {
	if err := m.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{VersionID: versionID}); err != nil {
		return mapMinioErr(err)
	}
	return nil
}

func (m *minioClient) BucketExists(ctx context.Context, bucket string) (bool, error) {
	exists, err := m.client.BucketExists(ctx, bucket)
	if err != nil {
		return false, mapMinioErr(err)
	}
	return exists, nil
}

func (m *minioClient) CreateBucket(ctx context.Context, bucket, region string) error {
	if err := m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return mapMinioErr(err)
	}
	return nil
}

func (m *minioClient) EnableVersioning(ctx context.Context, bucket string) error {
	if err := m.client.EnableVersioning(ctx, bucket); err != nil {
		return mapMinioErr(err)
	}
	return nil
}

func (m *minioClient) SetBucketTags(ctx context.Context, bucket string, bucketTags map[string]string) error {
	mapped, err := tags.NewTags(bucketTags, false)
	if err != nil {
		return fmt.Errorf("build bucket tags: %w", err)
	}
	if err := m.client.SetBucketTagging(ctx, bucket, mapped); err != nil {
		return mapMinioErr(err)
	}
	return nil
}

func mapMinioErr(err error) error {
	if err == nil {
		return nil
	}
	var response minio.ErrorResponse
	if errors.As(err, &response) {
		switch response.Code {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return storage.ErrObjectNotFound
		}
	}
	return err
}
