package glue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsglue "github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"

	"github.com/thriftdb/thriftdb/catalog"
)

func TestGetTableMapsNotFound(t *testing.T) {
	client, err := NewWithAPI(&fakeAPI{getTableErr: &types.EntityNotFoundException{}})
	if err != nil {
		t.Fatalf("NewWithAPI() error = %v", err)
	}
	_, err = client.GetTable(context.Background(), "db", "missing")
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("GetTable() error = %v, want ErrNotFound", err)
	}
}

func TestGetTableMapsFields(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	client, err := NewWithAPI(&fakeAPI{table: &types.Table{
		Name:              aws.String("logs_visits"),
		DatabaseName:      aws.String("thriftdb-demo"),
		VersionId:         aws.String("3"),
		CreateTime:        &created,
		StorageDescriptor: &types.StorageDescriptor{Location: aws.String("s3://thriftdb-demo/logs/visits/")},
	}})
	if err != nil {
		t.Fatalf("NewWithAPI() error = %v", err)
	}

	table, err := client.GetTable(context.Background(), "thriftdb-demo", "logs_visits")
	if err != nil {
		t.Fatalf("GetTable() error = %v", err)
	}
	if table.Name != "logs_visits" || table.DatabaseName != "thriftdb-demo" {
		t.Fatalf("table identity = %q.%q", table.DatabaseName, table.Name)
	}
	if table.Location != "s3://thriftdb-demo/logs/visits/" {
		t.Fatalf("location = %q", table.Location)
	}
	if table.VersionID != "3" {
		t.Fatalf("version = %q", table.VersionID)
	}
	if !table.CreatedAt.Equal(created) {
		t.Fatalf("created at = %v", table.CreatedAt)
	}
}

func TestCreateCrawlerMapsAlreadyExists(t *testing.T) {
	client, err := NewWithAPI(&fakeAPI{createCrawlerErr: &types.AlreadyExistsException{}})
	if err != nil {
		t.Fatalf("NewWithAPI() error = %v", err)
	}
	err = client.Create(context.Background(), catalog.CreateCrawlerInput{Name: "c", Role: "r", DatabaseName: "db", TargetPath: "db/logs/"})
	if !errors.Is(err, catalog.ErrAlreadyExists) {
		t.Fatalf("Create() error = %v, want ErrAlreadyExists", err)
	}
}

func TestGetCrawlerMapsStateAndLastCrawl(t *testing.T) {
	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	client, err := NewWithAPI(&fakeAPI{crawler: &types.Crawler{
		Name:             aws.String("thriftdb-demo"),
		State:            types.CrawlerStateReady,
		CrawlElapsedTime: 4200,
		LastCrawl: &types.LastCrawlInfo{
			Status:    types.LastCrawlStatusSucceeded,
			StartTime: &started,
		},
	}})
	if err != nil {
		t.Fatalf("NewWithAPI() error = %v", err)
	}

	info, err := client.Get(context.Background(), "thriftdb-demo")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if info.State != catalog.CrawlerStateReady {
		t.Fatalf("state = %q", info.State)
	}
	if info.State.Active() {
		t.Fatal("READY must not be active")
	}
	if info.ElapsedMillis != 4200 {
		t.Fatalf("elapsed = %d", info.ElapsedMillis)
	}
	if info.LastCrawl == nil || info.LastCrawl.Status != catalog.CrawlSucceeded {
		t.Fatalf("last crawl = %+v", info.LastCrawl)
	}
}

func TestCrawlerStateActive(t *testing.T) {
	for state, want := range map[catalog.CrawlerState]bool{
		catalog.CrawlerStateRunning:  true,
		catalog.CrawlerStateStopping: true,
		catalog.CrawlerStateReady:    false,
	} {
		if state.Active() != want {
			t.Fatalf("%s.Active() = %v, want %v", state, state.Active(), want)
		}
	}
}

func TestListTableVersionsPaginates(t *testing.T) {
	fake := &fakeAPI{versionPages: [][]types.TableVersion{
		{{VersionId: aws.String("1")}, {VersionId: aws.String("2")}},
		{{VersionId: aws.String("3")}},
	}}
	client, err := NewWithAPI(fake)
	if err != nil {
		t.Fatalf("NewWithAPI() error = %v", err)
	}

	versions, err := client.ListTableVersions(context.Background(), "db", "t")
	if err != nil {
		t.Fatalf("ListTableVersions() error = %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("len(versions) = %d, want 3", len(versions))
	}
	if versions[2].VersionID != "3" {
		t.Fatalf("last version = %q", versions[2].VersionID)
	}
}

type fakeAPI struct {
	table            *types.Table
	crawler          *types.Crawler
	getTableErr      error
	createCrawlerErr error
	versionPages     [][]types.TableVersion
	versionCalls     int
}

func (f *fakeAPI) CreateDatabase(context.Context, *awsglue.CreateDatabaseInput, ...func(*awsglue.Options)) (*awsglue.CreateDatabaseOutput, error) {
	return &awsglue.CreateDatabaseOutput{}, nil
}

func (f *fakeAPI) GetTable(context.Context, *awsglue.GetTableInput, ...func(*awsglue.Options)) (*awsglue.GetTableOutput, error) {
	if f.getTableErr != nil {
		return nil, f.getTableErr
	}
	return &awsglue.GetTableOutput{Table: f.table}, nil
}

func (f *fakeAPI) GetTableVersions(context.Context, *awsglue.GetTableVersionsInput, ...func(*awsglue.Options)) (*awsglue.GetTableVersionsOutput, error) {
	if f.versionCalls >= len(f.versionPages) {
		return &awsglue.GetTableVersionsOutput{}, nil
	}
	page := f.versionPages[f.versionCalls]
	f.versionCalls++
	out := &awsglue.GetTableVersionsOutput{TableVersions: page}
	if f.versionCalls < len(f.versionPages) {
		out.NextToken = aws.String("next")
	}
	return out, nil
}

func (f *fakeAPI) DeleteTable(context.Context, *awsglue.DeleteTableInput, ...func(*awsglue.Options)) (*awsglue.DeleteTableOutput, error) {
	return &awsglue.DeleteTableOutput{}, nil
}

func (f *fakeAPI) CreateCrawler(context.Context, *awsglue.CreateCrawlerInput, ...func(*awsglue.Options)) (*awsglue.CreateCrawlerOutput, error) {
	if f.createCrawlerErr != nil {
		return nil, f.createCrawlerErr
	}
	return &awsglue.CreateCrawlerOutput{}, nil
}

func (f *fakeAPI) GetCrawler(context.Context, *awsglue.GetCrawlerInput, ...func(*awsglue.Options)) (*awsglue.GetCrawlerOutput, error) {
	return &awsglue.GetCrawlerOutput{Crawler: f.crawler}, nil
}

func (f *fakeAPI) StartCrawler(context.Context, *awsglue.StartCrawlerInput, ...func(*awsglue.Options)) (*awsglue.StartCrawlerOutput, error) {
	return &awsglue.StartCrawlerOutput{}, nil
}

func (f *fakeAPI) DeleteCrawler(context.Context, *awsglue.DeleteCrawlerInput, ...func(*awsglue.Options)) (*awsglue.DeleteCrawlerOutput, error) {
	return &awsglue.DeleteCrawlerOutput{}, nil
}
