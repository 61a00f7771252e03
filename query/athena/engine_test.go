package athena

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsathena "github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
)

func newTestEngine(t *testing.T, fake *fakeAPI) *Engine {
	t.Helper()
	engine, err := NewWithAPI(fake, Config{
		Database:       "thriftdb-demo",
		OutputLocation: "s3://thriftdb-demo/results/",
		PollInterval:   time.Second,
	})
	if err != nil {
		t.Fatalf("NewWithAPI() error = %v", err)
	}
	engine.pollCfg.Sleep = func(context.Context, time.Duration) error { return nil }
	engine.newToken = func() string { return "token-1" }
	return engine
}

func TestRunWaitsForSuccessThenStreamsRows(t *testing.T) {
	fake := &fakeAPI{
		states: []types.QueryExecutionState{
			types.QueryExecutionStateQueued,
			types.QueryExecutionStateRunning,
			types.QueryExecutionStateSucceeded,
		},
		pages: []resultPage{
			{header: true, rows: [][]string{{"a", "1"}, {"b", "2"}}, more: true},
			{rows: [][]string{{"c", "3"}}},
		},
		columns: []string{"name", "n"},
	}
	engine := newTestEngine(t, fake)

	rows, err := engine.Run(context.Background(), "SELECT name, n FROM logs_visits")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if fake.statusCalls != 3 {
		t.Fatalf("status calls = %d, want 3", fake.statusCalls)
	}
	if fake.resultCalls != 0 {
		t.Fatal("results must not be fetched before iteration")
	}

	got := [][]string{}
	for rows.Next() {
		got = append(got, rows.Row())
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows.Err() = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("rows = %d, want 3", len(got))
	}
	if got[0][0] != "a" || got[2][1] != "3" {
		t.Fatalf("rows = %v", got)
	}
	if cols := rows.Columns(); len(cols) != 2 || cols[0] != "name" {
		t.Fatalf("columns = %v", cols)
	}
	if fake.resultCalls != 2 {
		t.Fatalf("result calls = %d, want 2", fake.resultCalls)
	}
}

func TestRunFailsOnFailedExecution(t *testing.T) {
	fake := &fakeAPI{
		states: []types.QueryExecutionState{types.QueryExecutionStateFailed},
		reason: "SYNTAX_ERROR",
	}
	engine := newTestEngine(t, fake)

	_, err := engine.Run(context.Background(), "SELEC broken")
	if err == nil || !strings.Contains(err.Error(), "SYNTAX_ERROR") {
		t.Fatalf("Run() error = %v, want failure with reason", err)
	}
}

func TestRunUsesStagingLocationAndDatabase(t *testing.T) {
	fake := &fakeAPI{states: []types.QueryExecutionState{types.QueryExecutionStateSucceeded}}
	engine := newTestEngine(t, fake)

	if _, err := engine.Run(context.Background(), "SELECT 1"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	start := fake.lastStart
	if aws.ToString(start.ResultConfiguration.OutputLocation) != "s3://thriftdb-demo/results/" {
		t.Fatalf("output location = %q", aws.ToString(start.ResultConfiguration.OutputLocation))
	}
	if aws.ToString(start.QueryExecutionContext.Database) != "thriftdb-demo" {
		t.Fatalf("database = %q", aws.ToString(start.QueryExecutionContext.Database))
	}
	if aws.ToString(start.ClientRequestToken) != "token-1" {
		t.Fatalf("token = %q", aws.ToString(start.ClientRequestToken))
	}
}

func TestEngineRequiresConfig(t *testing.T) {
	if _, err := NewWithAPI(&fakeAPI{}, Config{OutputLocation: "s3://b/r/"}); err == nil {
		t.Fatal("expected error for missing database")
	}
	if _, err := NewWithAPI(&fakeAPI{}, Config{Database: "db"}); err == nil {
		t.Fatal("expected error for missing output location")
	}
}

type resultPage struct {
	header bool
	rows   [][]string
	more   bool
}

type fakeAPI struct {
	states      []types.QueryExecutionState
	reason      string
	pages       []resultPage
	columns     []string
	statusCalls int
	resultCalls int
	lastStart   *awsathena.StartQueryExecutionInput
}

func (f *fakeAPI) StartQueryExecution(_ context.Context, in *awsathena.StartQueryExecutionInput, _ ...func(*awsathena.Options)) (*awsathena.StartQueryExecutionOutput, error) {
	f.lastStart = in
	return &awsathena.StartQueryExecutionOutput{QueryExecutionId: aws.String("exec-1")}, nil
}

func (f *fakeAPI) GetQueryExecution(context.Context, *awsathena.GetQueryExecutionInput, ...func(*awsathena.Options)) (*awsathena.GetQueryExecutionOutput, error) {
	state := f.states[len(f.states)-1]
	if f.statusCalls < len(f.states) {
		state = f.states[f.statusCalls]
	}
	f.statusCalls++
	return &awsathena.GetQueryExecutionOutput{
		QueryExecution: &types.QueryExecution{
			Status: &types.QueryExecutionStatus{State: state, StateChangeReason: aws.String(f.reason)},
		},
	}, nil
}

func (f *fakeAPI) GetQueryResults(context.Context, *awsathena.GetQueryResultsInput, ...func(*awsathena.Options)) (*awsathena.GetQueryResultsOutput, error) {
	page := resultPage{}
	if f.resultCalls < len(f.pages) {
		page = f.pages[f.resultCalls]
	}
	f.resultCalls++

	resultRows := []types.Row{}
	if page.header {
		header := types.Row{}
		for _, column := range f.columns {
			header.Data = append(header.Data, types.Datum{VarCharValue: aws.String(column)})
		}
		resultRows = append(resultRows, header)
	}
	for _, row := range page.rows {
		data := []types.Datum{}
		for _, value := range row {
			data = append(data, types.Datum{VarCharValue: aws.String(value)})
		}
		resultRows = append(resultRows, types.Row{Data: data})
	}

	out := &awsathena.GetQueryResultsOutput{
		ResultSet: &types.ResultSet{Rows: resultRows},
	}
	if len(f.columns) > 0 {
		meta := &types.ResultSetMetadata{}
		for _, column := range f.columns {
			meta.ColumnInfo = append(meta.ColumnInfo, types.ColumnInfo{Name: aws.String(column)})
		}
		out.ResultSet.ResultSetMetadata = meta
	}
	if page.more {
		out.NextToken = aws.String("next")
	}
	return out, nil
}
