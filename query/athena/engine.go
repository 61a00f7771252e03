package athena

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
	"github.com/google/uuid"

	"github.com/thriftdb/thriftdb/poll"
	"github.com/thriftdb/thriftdb/query"
)

type api interface {
	StartQueryExecution(ctx context.Context, in *athena.StartQueryExecutionInput, opts ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, in *athena.GetQueryExecutionInput, opts ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error)
	GetQueryResults(ctx context.Context, in *athena.GetQueryResultsInput, opts ...func(*athena.Options)) (*athena.GetQueryResultsOutput, error)
}

type Config struct {
	// Database is the catalog namespace queries run against.
	Database string
	// OutputLocation is the staging URI results are written to,
	// s3://bucket/results-prefix.
	OutputLocation string
	// PollInterval and MaxWait bound the status poll between start and
	// results.
	PollInterval time.Duration
	MaxWait      time.Duration
}

type Engine struct {
	api      api
	cfg      Config
	newToken func() string
	pollCfg  poll.Config
}

const defaultPollInterval = 2 * time.Second

func New(client *athena.Client, cfg Config) (*Engine, error) {
	return newEngine(client, cfg)
}

func NewWithAPI(a api, cfg Config) (*Engine, error) {
	return newEngine(a, cfg)
}

func newEngine(a api, cfg Config) (*Engine, error) {
	if a == nil {
		return nil, fmt.Errorf("athena api is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("database is required")
	}
	if cfg.OutputLocation == "" {
		return nil, fmt.Errorf("output location is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &Engine{
		api:      a,
		cfg:      cfg,
		newToken: uuid.NewString,
		pollCfg:  poll.Config{Interval: cfg.PollInterval, MaxWait: cfg.MaxWait},
	}, nil
}

func (e *Engine) Run(ctx context.Context, sql string) (query.Rows, error) {
	if sql == "" {
		return nil, fmt.Errorf("sql is required")
	}

	started, err := e.api.StartQueryExecution(ctx, &athena.StartQueryExecutionInput{
		QueryString:           aws.String(sql),
		ClientRequestToken:    aws.String(e.newToken()),
		QueryExecutionContext: &types.QueryExecutionContext{Database: aws.String(e.cfg.Database)},
		ResultConfiguration:   &types.ResultConfiguration{OutputLocation: aws.String(e.cfg.OutputLocation)},
	})
	if err != nil {
		return nil, fmt.Errorf("start query execution: %w", err)
	}
	executionID := aws.ToString(started.QueryExecutionId)

	if err := e.waitForCompletion(ctx, executionID); err != nil {
		return nil, err
	}

	return &rows{api: e.api, ctx: ctx, executionID: executionID}, nil
}

func (e *Engine) waitForCompletion(ctx context.Context, executionID string) error {
	return poll.Until(ctx, e.pollCfg, func(ctx context.Context) (bool, error) {
		out, err := e.api.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{
			QueryExecutionId: aws.String(executionID),
		})
		if err != nil {
			return false, fmt.Errorf("get query execution %q: %w", executionID, err)
		}
		status := out.QueryExecution.Status
		switch status.State {
		case types.QueryExecutionStateQueued, types.QueryExecutionStateRunning:
			return false, nil
		case types.QueryExecutionStateSucceeded:
			return true, nil
		default:
			return false, fmt.Errorf("query execution %q ended %s: %s",
				executionID, status.State, aws.ToString(status.StateChangeReason))
		}
	})
}

// rows pages through GetQueryResults on demand. The first row of the
// first page is the column header and is consumed during the initial
// fetch.
type rows struct {
	api         api
	ctx         context.Context
	executionID string

	columns   []string
	buffer    [][]string
	pos       int
	nextToken *string
	fetched   bool
	done      bool
	err       error
}

func (r *rows) Next() bool {
	if r.err != nil {
		return false
	}
	for r.pos >= len(r.buffer) {
		if r.done {
			return false
		}
		if err := r.fetchPage(); err != nil {
			r.err = err
			return false
		}
	}
	r.pos++
	return true
}

func (r *rows) Row() []string {
	if r.pos == 0 || r.pos > len(r.buffer) {
		return nil
	}
	return r.buffer[r.pos-1]
}

func (r *rows) Columns() []string {
	if !r.fetched {
		if err := r.fetchPage(); err != nil {
			r.err = err
		}
	}
	return r.columns
}

func (r *rows) Err() error {
	return r.err
}

func (r *rows) fetchPage() error {
	out, err := r.api.GetQueryResults(r.ctx, &athena.GetQueryResultsInput{
		QueryExecutionId: aws.String(r.executionID),
		NextToken:        r.nextToken,
	})
	if err != nil {
		return fmt.Errorf("get query results %q: %w", r.executionID, err)
	}

	page := out.ResultSet.Rows
	if !r.fetched {
		r.fetched = true
		if meta := out.ResultSet.ResultSetMetadata; meta != nil {
			for _, column := range meta.ColumnInfo {
				r.columns = append(r.columns, aws.ToString(column.Name))
			}
		}
		// Header row duplicates the column names.
		if len(page) > 0 {
			page = page[1:]
		}
	}

	for _, row := range page {
		values := make([]string, 0, len(row.Data))
		for _, datum := range row.Data {
			values = append(values, aws.ToString(datum.VarCharValue))
		}
		r.buffer = append(r.buffer, values)
	}

	r.nextToken = out.NextToken
	if r.nextToken == nil {
		r.done = true
	}
	return nil
}

var _ query.Engine = (*Engine)(nil)
