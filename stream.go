package thriftdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/thriftdb/thriftdb/delivery"
	"github.com/thriftdb/thriftdb/observability"
	"github.com/thriftdb/thriftdb/poll"
)

const defaultStreamWorkers = 4

// Stream addresses one delivery pipeline flushing into a prefix under
// the owning database's bucket.
type Stream struct {
	name    string
	prefix  string
	bucket  string
	roleARN string

	pipelines delivery.Pipelines
	wait      WaitConfig
	workers   int
	logger    *slog.Logger
}

// Stream builds a handle for the named pipeline under prefix. The
// pipeline's storage prefix is prefix/name/.
func (db *Database) Stream(name, prefix string) (*Stream, error) {
	streamPrefix, err := StreamPrefix(prefix, name)
	if err != nil {
		return nil, err
	}
	if db.streams.Pipelines == nil {
		return nil, fmt.Errorf("pipelines client is not configured")
	}
	workers := db.streams.Workers
	if workers <= 0 {
		workers = defaultStreamWorkers
	}
	return &Stream{
		name:      name,
		prefix:    streamPrefix,
		bucket:    db.cfg.Name,
		roleARN:   db.roleARN,
		pipelines: db.streams.Pipelines,
		wait:      db.streams.Wait,
		workers:   workers,
		logger:    db.logger.With(slog.String("stream", name)),
	}, nil
}

// Prefix is the storage prefix the pipeline flushes into.
func (s *Stream) Prefix() string {
	return s.prefix
}

type CreateStreamOptions struct {
	Buffering         delivery.Buffering
	Compression       delivery.Compression
	ErrorOutputPrefix string
	Wait              WaitConfig
}

// Create provisions the delivery pipeline. An existing pipeline under
// the same name short-circuits to its description and no create call is
// issued. Otherwise the call blocks, polling the existence probe, until
// the pipeline reports existing (unless waiting is disabled).
func (s *Stream) Create(ctx context.Context, opts CreateStreamOptions) (delivery.PipelineInfo, error) {
	existing, err := s.pipelines.Describe(ctx, s.name)
	switch {
	case err == nil:
		s.logger.Debug("pipeline already exists, reusing")
		return existing, nil
	case !errors.Is(err, delivery.ErrPipelineNotFound):
		return delivery.PipelineInfo{}, err
	}

	if opts.Buffering.SizeMB <= 0 {
		opts.Buffering.SizeMB = 5
	}
	if opts.Buffering.IntervalSeconds <= 0 {
		opts.Buffering.IntervalSeconds = 300
	}
	if opts.Compression == "" {
		opts.Compression = delivery.CompressionNone
	}

	s.logger.Info("creating pipeline", slog.String("prefix", s.prefix))
	err = s.pipelines.Create(ctx, delivery.CreatePipelineInput{
		Name:              s.name,
		RoleARN:           s.roleARN,
		BucketARN:         fmt.Sprintf("arn:aws:s3:::%s", s.bucket),
		Prefix:            s.prefix,
		ErrorOutputPrefix: opts.ErrorOutputPrefix,
		Buffering:         opts.Buffering,
		Compression:       opts.Compression,
	})
	if err != nil && !errors.Is(err, delivery.ErrPipelineExists) {
		return delivery.PipelineInfo{}, err
	}

	wait := opts.Wait
	if wait.Interval <= 0 {
		wait.Interval = s.wait.Interval
	}
	if wait.MaxWait <= 0 {
		wait.MaxWait = s.wait.MaxWait
	}
	if wait.Disabled {
		return delivery.PipelineInfo{Name: s.name}, nil
	}

	var info delivery.PipelineInfo
	err = poll.Until(ctx, wait.pollConfig(), func(ctx context.Context) (bool, error) {
		described, err := s.pipelines.Describe(ctx, s.name)
		if errors.Is(err, delivery.ErrPipelineNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		info = described
		return true, nil
	})
	if err != nil {
		return delivery.PipelineInfo{}, err
	}
	return info, nil
}

// Describe looks the pipeline up.
func (s *Stream) Describe(ctx context.Context) (delivery.PipelineInfo, error) {
	return s.pipelines.Describe(ctx, s.name)
}

// Exists probes whether the pipeline has been provisioned. A probe
// failure is distinct from absence.
func (s *Stream) Exists(ctx context.Context) (bool, error) {
	_, err := s.pipelines.Describe(ctx, s.name)
	if errors.Is(err, delivery.ErrPipelineNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete tears the pipeline down. A pipeline that is already gone is a
// no-op.
func (s *Stream) Delete(ctx context.Context) error {
	if err := s.pipelines.Delete(ctx, s.name); err != nil {
		if errors.Is(err, delivery.ErrPipelineNotFound) {
			s.logger.Warn("pipeline already deleted")
			return nil
		}
		return err
	}
	return nil
}

// FromRecords serializes records as line-delimited JSON, splits them
// into bounded batches, and submits the batches over a fixed-size
// worker pool. Ordering holds within a batch only; failed submissions
// are not retried.
func (s *Stream) FromRecords(ctx context.Context, records []map[string]any) error {
	encoded, err := encodeRecords(records)
	if err != nil {
		return err
	}
	return s.submit(ctx, encoded)
}

// FromChannel drains records from the channel into the pipeline,
// submitting a batch whenever the ceiling is reached. It returns when
// the channel closes or the context is cancelled.
func (s *Stream) FromChannel(ctx context.Context, records <-chan map[string]any) error {
	chunk := make([]map[string]any, 0, delivery.MaxBatchRecords)
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		if err := s.FromRecords(ctx, chunk); err != nil {
			return err
		}
		chunk = chunk[:0]
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case record, ok := <-records:
			if !ok {
				return flush()
			}
			chunk = append(chunk, record)
			if len(chunk) == delivery.MaxBatchRecords {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
}

// FromSQL streams query rows from db into the pipeline, fetching and
// submitting in chunks so arbitrarily large result sets never fully
// materialize.
func (s *Stream) FromSQL(ctx context.Context, db *sql.DB, sqlText string, args ...any) error {
	if db == nil {
		return fmt.Errorf("sql db is required")
	}
	rows, err := db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return fmt.Errorf("query source: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("read source columns: %w", err)
	}

	chunk := make([]map[string]any, 0, delivery.MaxBatchRecords)
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return fmt.Errorf("scan source row: %w", err)
		}

		record := make(map[string]any, len(columns))
		for i, column := range columns {
			record[column] = normalizeSQLValue(values[i])
		}
		chunk = append(chunk, record)

		if len(chunk) == delivery.MaxBatchRecords {
			if err := s.FromRecords(ctx, chunk); err != nil {
				return err
			}
			chunk = chunk[:0]
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate source rows: %w", err)
	}
	if len(chunk) > 0 {
		return s.FromRecords(ctx, chunk)
	}
	return nil
}

func (s *Stream) submit(ctx context.Context, encoded [][]byte) error {
	if len(encoded) == 0 {
		return nil
	}
	batches := delivery.Chunk(encoded, delivery.MaxBatchRecords)

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(s.workers)
	for _, batch := range batches {
		group.Go(func() error {
			failed, err := s.pipelines.PutRecordBatch(ctx, s.name, batch)
			if err != nil {
				return err
			}
			observability.ObserveIngestBatch(len(batch), failed)
			if failed > 0 {
				s.logger.Warn("pipeline rejected records", slog.Int("failed", failed))
			}
			return nil
		})
	}
	return group.Wait()
}

func encodeRecords(records []map[string]any) ([][]byte, error) {
	encoded := make([][]byte, 0, len(records))
	for i, record := range records {
		raw, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("encode record %d: %w", i, err)
		}
		encoded = append(encoded, append(raw, '\n'))
	}
	return encoded, nil
}

func normalizeSQLValue(value any) any {
	if raw, ok := value.([]byte); ok {
		return string(raw)
	}
	return value
}
