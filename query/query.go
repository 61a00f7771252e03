package query

import "context"

// Rows is a lazy, finite, non-restartable cursor over query output. A
// cursor is good for exactly one pass.
type Rows interface {
	// Next advances to the next row, fetching further pages from the
	// engine as needed. It returns false when the result set is exhausted
	// or a fetch failed; Err distinguishes the two.
	Next() bool
	Row() []string
	Columns() []string
	Err() error
}

type Engine interface {
	Run(ctx context.Context, sql string) (Rows, error)
}
