package glue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"

	"github.com/thriftdb/thriftdb/catalog"
)

type api interface {
	CreateDatabase(ctx context.Context, in *glue.CreateDatabaseInput, opts ...func(*glue.Options)) (*glue.CreateDatabaseOutput, error)
	GetTable(ctx context.Context, in *glue.GetTableInput, opts ...func(*glue.Options)) (*glue.GetTableOutput, error)
	GetTableVersions(ctx context.Context, in *glue.GetTableVersionsInput, opts ...func(*glue.Options)) (*glue.GetTableVersionsOutput, error)
	DeleteTable(ctx context.Context, in *glue.DeleteTableInput, opts ...func(*glue.Options)) (*glue.DeleteTableOutput, error)
	CreateCrawler(ctx context.Context, in *glue.CreateCrawlerInput, opts ...func(*glue.Options)) (*glue.CreateCrawlerOutput, error)
	GetCrawler(ctx context.Context, in *glue.GetCrawlerInput, opts ...func(*glue.Options)) (*glue.GetCrawlerOutput, error)
	StartCrawler(ctx context.Context, in *glue.StartCrawlerInput, opts ...func(*glue.Options)) (*glue.StartCrawlerOutput, error)
	DeleteCrawler(ctx context.Context, in *glue.DeleteCrawlerInput, opts ...func(*glue.Options)) (*glue.DeleteCrawlerOutput, error)
}

// Client implements catalog.Catalog and catalog.Crawlers against the Glue
// data catalog.
type Client struct {
	api api
}

func New(client *glue.Client) *Client {
	return &Client{api: client}
}

func NewWithAPI(a api) (*Client, error) {
	if a == nil {
		return nil, fmt.Errorf("glue api is required")
	}
	return &Client{api: a}, nil
}

func (c *Client) CreateDatabase(ctx context.Context, name, description string) error {
	input := &types.DatabaseInput{Name: aws.String(name)}
	if description != "" {
		input.Description = aws.String(description)
	}
	if _, err := c.api.CreateDatabase(ctx, &glue.CreateDatabaseInput{DatabaseInput: input}); err != nil {
		return fmt.Errorf("create catalog database %q: %w", name, mapErr(err))
	}
	return nil
}

func (c *Client) GetTable(ctx context.Context, database, table string) (catalog.Table, error) {
	out, err := c.api.GetTable(ctx, &glue.GetTableInput{
		DatabaseName: aws.String(database),
		Name:         aws.String(table),
	})
	if err != nil {
		if mapped := mapErr(err); errors.Is(mapped, catalog.ErrNotFound) {
			return catalog.Table{}, catalog.ErrNotFound
		}
		return catalog.Table{}, fmt.Errorf("get table %s.%s: %w", database, table, err)
	}
	return mapTable(out.Table), nil
}

func (c *Client) ListTableVersions(ctx context.Context, database, table string) ([]catalog.TableVersion, error) {
	paginator := glue.NewGetTableVersionsPaginator(c.api, &glue.GetTableVersionsInput{
		DatabaseName: aws.String(database),
		TableName:    aws.String(table),
	})

	var versions []catalog.TableVersion
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if mapped := mapErr(err); errors.Is(mapped, catalog.ErrNotFound) {
				return nil, catalog.ErrNotFound
			}
			return nil, fmt.Errorf("list versions of %s.%s: %w", database, table, err)
		}
		for _, version := range page.TableVersions {
			mapped := catalog.TableVersion{VersionID: aws.ToString(version.VersionId)}
			if version.Table != nil {
				mapped.Table = mapTable(version.Table)
			}
			versions = append(versions, mapped)
		}
	}
	return versions, nil
}

func (c *Client) DeleteTable(ctx context.Context, database, table string) error {
	if _, err := c.api.DeleteTable(ctx, &glue.DeleteTableInput{
		DatabaseName: aws.String(database),
		Name:         aws.String(table),
	}); err != nil {
		if mapped := mapErr(err); errors.Is(mapped, catalog.ErrNotFound) {
			return catalog.ErrNotFound
		}
		return fmt.Errorf("delete table %s.%s: %w", database, table, err)
	}
	return nil
}

func (c *Client) Create(ctx context.Context, in catalog.CreateCrawlerInput) error {
	input := &glue.CreateCrawlerInput{
		Name:         aws.String(in.Name),
		Role:         aws.String(in.Role),
		DatabaseName: aws.String(in.DatabaseName),
		Targets: &types.CrawlerTargets{
			S3Targets: []types.S3Target{{Path: aws.String(in.TargetPath)}},
		},
	}
	if in.Description != "" {
		input.Description = aws.String(in.Description)
	}
	if _, err := c.api.CreateCrawler(ctx, input); err != nil {
		mapped := mapErr(err)
		if errors.Is(mapped, catalog.ErrAlreadyExists) {
			return catalog.ErrAlreadyExists
		}
		return fmt.Errorf("create crawler %q: %w", in.Name, err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, name string) (catalog.CrawlerInfo, error) {
	out, err := c.api.GetCrawler(ctx, &glue.GetCrawlerInput{Name: aws.String(name)})
	if err != nil {
		if mapped := mapErr(err); errors.Is(mapped, catalog.ErrNotFound) {
			return catalog.CrawlerInfo{}, catalog.ErrNotFound
		}
		return catalog.CrawlerInfo{}, fmt.Errorf("get crawler %q: %w", name, err)
	}

	crawler := out.Crawler
	info := catalog.CrawlerInfo{
		Name:          aws.ToString(crawler.Name),
		Role:          aws.ToString(crawler.Role),
		DatabaseName:  aws.ToString(crawler.DatabaseName),
		State:         catalog.CrawlerState(crawler.State),
		ElapsedMillis: crawler.CrawlElapsedTime,
	}
	if crawler.LastCrawl != nil {
		last := &catalog.LastCrawl{
			Status:       catalog.CrawlStatus(crawler.LastCrawl.Status),
			ErrorMessage: aws.ToString(crawler.LastCrawl.ErrorMessage),
		}
		if crawler.LastCrawl.StartTime != nil {
			last.StartedAt = *crawler.LastCrawl.StartTime
		}
		info.LastCrawl = last
	}
	return info, nil
}

func (c *Client) Start(ctx context.Context, name string) error {
	if _, err := c.api.StartCrawler(ctx, &glue.StartCrawlerInput{Name: aws.String(name)}); err != nil {
		return fmt.Errorf("start crawler %q: %w", name, err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, name string) error {
	if _, err := c.api.DeleteCrawler(ctx, &glue.DeleteCrawlerInput{Name: aws.String(name)}); err != nil {
		if mapped := mapErr(err); errors.Is(mapped, catalog.ErrNotFound) {
			return catalog.ErrNotFound
		}
		return fmt.Errorf("delete crawler %q: %w", name, err)
	}
	return nil
}

func mapTable(table *types.Table) catalog.Table {
	if table == nil {
		return catalog.Table{}
	}
	mapped := catalog.Table{
		Name:         aws.ToString(table.Name),
		DatabaseName: aws.ToString(table.DatabaseName),
		VersionID:    aws.ToString(table.VersionId),
		Parameters:   table.Parameters,
	}
	if table.StorageDescriptor != nil {
		mapped.Location = aws.ToString(table.StorageDescriptor.Location)
	}
	if table.CreateTime != nil {
		mapped.CreatedAt = *table.CreateTime
	}
	if table.UpdateTime != nil {
		mapped.UpdatedAt = *table.UpdateTime
	}
	return mapped
}

func mapErr(err error) error {
	var notFound *types.EntityNotFoundException
	if errors.As(err, &notFound) {
		return catalog.ErrNotFound
	}
	var exists *types.AlreadyExistsException
	if errors.As(err, &exists) {
		return catalog.ErrAlreadyExists
	}
	return err
}

var _ catalog.Catalog = (*Client)(nil)
var _ catalog.Crawlers = (*Client)(nil)

// CreatedByDescription renders the description Glue resources are created
// with.
func CreatedByDescription(kind string, now time.Time) string {
	return fmt.Sprintf("%s created by thriftdb on %s", kind, now.UTC().Format("2006-01-02 15:04:05"))
}
