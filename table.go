package thriftdb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/thriftdb/thriftdb/catalog"
	"github.com/thriftdb/thriftdb/storage"
)

// Table addresses one catalog table entry and one storage prefix under
// the owning database's bucket. It borrows the database's clients and
// owns nothing.
type Table struct {
	name      string
	prefix    string
	tableName string
	dataKey   string
	keyPrefix string
	database  string

	store   storage.ObjectStore
	catalog catalog.Catalog
	logger  *slog.Logger
}

// Table builds a handle for the named table under prefix. Naming is
// validated here, before any network call.
func (db *Database) Table(name, prefix string) (*Table, error) {
	tableName, err := TableName(prefix, name)
	if err != nil {
		return nil, err
	}
	dataKey, err := DataKey(prefix, name)
	if err != nil {
		return nil, err
	}
	keyPrefix, err := TablePrefix(prefix, name)
	if err != nil {
		return nil, err
	}
	return &Table{
		name:      name,
		prefix:    prefix,
		tableName: tableName,
		dataKey:   dataKey,
		keyPrefix: keyPrefix,
		database:  db.cfg.Name,
		store:     db.store,
		catalog:   db.catalog,
		logger:    db.logger.With(slog.String("table", tableName)),
	}, nil
}

// Name is the computed catalog table identifier.
func (t *Table) Name() string {
	return t.tableName
}

// Key is the storage key of the table's data file.
func (t *Table) Key() string {
	return t.dataKey
}

type UploadOptions struct {
	ContentType string
	Tags        map[string]string
}

// Upload writes the table's data file to its conventional key.
func (t *Table) Upload(ctx context.Context, body io.Reader, size int64, opts UploadOptions) (storage.ObjectInfo, error) {
	if opts.ContentType == "" {
		opts.ContentType = "application/octet-stream"
	}
	t.logger.Info("uploading data file", slog.String("key", t.dataKey), slog.Int64("size", size))
	return t.store.Put(ctx, t.dataKey, body, size, storage.PutOptions{
		ContentType: opts.ContentType,
		Tags:        opts.Tags,
	})
}

// UploadFile uploads a local file to the table's conventional key. The
// file's own name does not influence the key.
func (t *Table) UploadFile(ctx context.Context, path string, opts UploadOptions) (storage.ObjectInfo, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("stat %q: %w", path, err)
	}
	return t.Upload(ctx, f, stat.Size(), opts)
}

// Download streams the table's data file back.
func (t *Table) Download(ctx context.Context) (io.ReadCloser, error) {
	return t.store.Get(ctx, t.dataKey)
}

// Metadata fetches the catalog entry for the table.
func (t *Table) Metadata(ctx context.Context) (catalog.Table, error) {
	return t.catalog.GetTable(ctx, t.database, t.tableName)
}

// Versions lists the catalog's recorded versions of the table, newest
// first as the catalog returns them.
func (t *Table) Versions(ctx context.Context) ([]catalog.TableVersion, error) {
	return t.catalog.ListTableVersions(ctx, t.database, t.tableName)
}

// Delete removes every object version under the table's key prefix and
// then the catalog entry. A table that is already gone from the catalog
// is a no-op.
func (t *Table) Delete(ctx context.Context) error {
	versions, err := t.store.ListVersions(ctx, t.keyPrefix)
	if err != nil {
		return err
	}
	for _, version := range versions {
		if err := t.store.DeleteVersion(ctx, version.Key, version.VersionID); err != nil {
			return err
		}
	}
	t.logger.Info("deleted object versions", slog.Int("count", len(versions)))

	if err := t.catalog.DeleteTable(ctx, t.database, t.tableName); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			t.logger.Warn("catalog entry already deleted")
			return nil
		}
		return err
	}
	return nil
}

// UploadRecords encodes rows as a parquet file and uploads it as the
// table's data file.
func UploadRecords[T any](ctx context.Context, t *Table, rows []T, opts UploadOptions) (storage.ObjectInfo, error) {
	if len(rows) == 0 {
		return storage.ObjectInfo{}, fmt.Errorf("rows are required")
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[T](buf)
	if _, err := writer.Write(rows); err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("close parquet writer: %w", err)
	}

	if opts.ContentType == "" {
		opts.ContentType = "application/vnd.apache.parquet"
	}
	return t.Upload(ctx, bytes.NewReader(buf.Bytes()), int64(buf.Len()), opts)
}
