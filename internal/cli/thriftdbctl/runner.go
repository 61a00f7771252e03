package thriftdbctl

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/thriftdb/thriftdb"
)

type Options struct {
	Database *thriftdb.Database
	Stdin    io.Reader
	Stdout   io.Writer
	Stderr   io.Writer
}

// Run dispatches one subcommand against an already provisioned database
// handle and returns a process exit code.
func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}
	if defaults.Database == nil {
		_, _ = fmt.Fprintln(stderr, "database handle is required")
		return 1
	}
	if len(args) < 1 {
		writeUsage(stderr)
		return 2
	}

	command := strings.TrimSpace(args[0])
	rest := args[1:]
	switch command {
	case "info":
		return runInfo(defaults.Database, stdout)
	case "crawl":
		return runCrawl(ctx, defaults.Database, rest, stdout, stderr)
	case "query":
		return runQuery(ctx, defaults.Database, rest, stdout, stderr)
	case "ingest":
		return runIngest(ctx, defaults.Database, rest, defaults.Stdin, stdout, stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}
}

func runInfo(db *thriftdb.Database, stdout io.Writer) int {
	payload := map[string]string{
		"database": db.Name(),
		"role_arn": db.RoleARN(),
		"staging":  db.StagingLocation(),
	}
	return printJSON(stdout, payload)
}

func runCrawl(ctx context.Context, db *thriftdb.Database, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("thriftdbctl crawl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	noWait := fs.Bool("no-wait", false, "start the crawler without waiting for completion")
	interval := fs.Duration("interval", 0, "status poll interval (e.g. 30s)")
	maxWait := fs.Duration("max-wait", 0, "abandon waiting after this long (0 waits indefinitely)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		_, _ = fmt.Fprintln(stderr, "usage: thriftdbctl crawl [flags] <crawler>")
		return 2
	}

	outcome, err := db.UpdateTables(ctx, fs.Arg(0), thriftdb.WaitConfig{
		Disabled: *noWait,
		Interval: *interval,
		MaxWait:  *maxWait,
	})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "crawl failed: %v\n", err)
		return 1
	}
	if outcome == nil {
		_, _ = fmt.Fprintln(stdout, "crawler started")
		return 0
	}
	return printJSON(stdout, outcome)
}

func runQuery(ctx context.Context, db *thriftdb.Database, args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		_, _ = fmt.Fprintln(stderr, "usage: thriftdbctl query <sql>")
		return 2
	}

	rows, err := db.Query(ctx, args[0])
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "query failed: %v\n", err)
		return 1
	}

	columns := rows.Columns()
	records := make([]map[string]string, 0)
	for rows.Next() {
		row := rows.Row()
		record := make(map[string]string, len(columns))
		for i, column := range columns {
			if i < len(row) {
				record[column] = row[i]
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		_, _ = fmt.Fprintf(stderr, "query failed: %v\n", err)
		return 1
	}
	return printJSON(stdout, records)
}

func runIngest(ctx context.Context, db *thriftdb.Database, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("thriftdbctl ingest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	prefix := fs.String("prefix", "", "storage prefix the pipeline flushes into")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 || *prefix == "" {
		_, _ = fmt.Fprintln(stderr, "usage: thriftdbctl ingest -prefix <prefix> <stream>")
		return 2
	}
	if stdin == nil {
		_, _ = fmt.Fprintln(stderr, "ingest reads records from stdin")
		return 2
	}

	stream, err := db.Stream(fs.Arg(0), *prefix)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "ingest failed: %v\n", err)
		return 1
	}

	records, err := readRecords(stdin)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "ingest failed: %v\n", err)
		return 1
	}
	if len(records) == 0 {
		_, _ = fmt.Fprintln(stdout, "no records")
		return 0
	}

	if err := stream.FromRecords(ctx, records); err != nil {
		_, _ = fmt.Fprintf(stderr, "ingest failed: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "submitted %d records\n", len(records))
	return 0
}

// readRecords parses line-delimited JSON objects, skipping blank lines.
func readRecords(r io.Reader) ([]map[string]any, error) {
	records := make([]map[string]any, 0)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var record map[string]any
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, fmt.Errorf("parse record on line %d: %w", line, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func printJSON(w io.Writer, value any) int {
	formatted, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return 1
	}
	_, _ = fmt.Fprintln(w, string(formatted))
	return 0
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: thriftdbctl <command> [flags]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  info                          print database, role and staging location")
	_, _ = fmt.Fprintln(w, "  crawl [flags] <crawler>       start a crawler run and wait for it")
	_, _ = fmt.Fprintln(w, "  query <sql>                   run a query and print rows as JSON")
	_, _ = fmt.Fprintln(w, "  ingest -prefix <p> <stream>   submit stdin JSONL records to a pipeline")
}
