package delivery

import (
	"context"
	"errors"
	"time"
)

var (
	ErrPipelineNotFound = errors.New("delivery: pipeline not found")
	ErrPipelineExists   = errors.New("delivery: pipeline already exists")
)

// MaxBatchRecords is the service ceiling on records per batched put.
const MaxBatchRecords = 500

type Compression string

const (
	CompressionNone   Compression = "UNCOMPRESSED"
	CompressionGZIP   Compression = "GZIP"
	CompressionSnappy Compression = "Snappy"
)

type Buffering struct {
	SizeMB          int32
	IntervalSeconds int32
}

type CreatePipelineInput struct {
	Name              string
	RoleARN           string
	BucketARN         string
	Prefix            string
	ErrorOutputPrefix string
	Buffering         Buffering
	Compression       Compression
}

type PipelineInfo struct {
	Name      string
	Status    string
	Prefix    string
	BucketARN string
	CreatedAt time.Time
}

type Pipelines interface {
	Create(ctx context.Context, in CreatePipelineInput) error
	Describe(ctx context.Context, name string) (PipelineInfo, error)
	Delete(ctx context.Context, name string) error
	// PutRecordBatch submits one bounded batch and reports how many
	// records the service rejected.
	PutRecordBatch(ctx context.Context, name string, records [][]byte) (failed int, err error)
}

// Chunk splits records into batches of at most size records. Order is
// preserved within and across batches.
func Chunk(records [][]byte, size int) [][][]byte {
	if size <= 0 {
		size = MaxBatchRecords
	}
	var batches [][][]byte
	for len(records) > 0 {
		n := size
		if len(records) < n {
			n = len(records)
		}
		batches = append(batches, records[:n:n])
		records = records[n:]
	}
	return batches
}
