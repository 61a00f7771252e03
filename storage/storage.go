package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	VersionID    string
	LastModified time.Time
}

type ObjectVersion struct {
	Key            string
	VersionID      string
	Size           int64
	IsDeleteMarker bool
	LastModified   time.Time
}

type PutOptions struct {
	ContentType string
	Tags        map[string]string
}

type BucketOptions struct {
	Region           string
	EnableVersioning bool
	Tags             map[string]string
}

type ObjectStore interface {
	EnsureBucket(ctx context.Context, opts BucketOptions) error
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	ListVersions(ctx context.Context, prefix string) ([]ObjectVersion, error)
	DeleteVersion(ctx context.Context, key, versionID string) error
	Delete(ctx context.Context, key string) error
}
