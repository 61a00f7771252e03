package catalog

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("catalog: not found")
	ErrAlreadyExists = errors.New("catalog: already exists")
)

type Table struct {
	Name         string
	DatabaseName string
	Location     string
	VersionID    string
	Parameters   map[string]string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type TableVersion struct {
	VersionID string
	Table     Table
}

type Catalog interface {
	CreateDatabase(ctx context.Context, name, description string) error
	GetTable(ctx context.Context, database, table string) (Table, error)
	ListTableVersions(ctx context.Context, database, table string) ([]TableVersion, error)
	DeleteTable(ctx context.Context, database, table string) error
}

type CrawlerState string

const (
	CrawlerStateReady    CrawlerState = "READY"
	CrawlerStateRunning  CrawlerState = "RUNNING"
	CrawlerStateStopping CrawlerState = "STOPPING"
)

// Active reports whether the crawler is still working and a poll should
// keep waiting.
func (s CrawlerState) Active() bool {
	return s == CrawlerStateRunning || s == CrawlerStateStopping
}

type CrawlStatus string

const (
	CrawlSucceeded CrawlStatus = "SUCCEEDED"
	CrawlCancelled CrawlStatus = "CANCELLED"
	CrawlFailed    CrawlStatus = "FAILED"
)

type LastCrawl struct {
	Status       CrawlStatus
	ErrorMessage string
	StartedAt    time.Time
}

type CrawlerInfo struct {
	Name          string
	Role          string
	DatabaseName  string
	State         CrawlerState
	ElapsedMillis int64
	LastCrawl     *LastCrawl
}

type CreateCrawlerInput struct {
	Name         string
	Role         string
	DatabaseName string
	Description  string
	// TargetPath is the storage path the crawler inspects, bucket/prefix/.
	TargetPath string
}

type Crawlers interface {
	Create(ctx context.Context, in CreateCrawlerInput) error
	Get(ctx context.Context, name string) (CrawlerInfo, error)
	Start(ctx context.Context, name string) error
	Delete(ctx context.Context, name string) error
}
