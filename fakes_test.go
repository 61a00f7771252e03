package thriftdb

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/thriftdb/thriftdb/catalog"
	"github.com/thriftdb/thriftdb/delivery"
	"github.com/thriftdb/thriftdb/identity"
	"github.com/thriftdb/thriftdb/query"
	"github.com/thriftdb/thriftdb/storage"
)

type fakeObjectStore struct {
	ensureCalls    int
	lastBucketOpts storage.BucketOptions
	lastPutKey     string
	lastPutOpts    storage.PutOptions
	lastPutBody    []byte
	versions       []storage.ObjectVersion
	deletedKeys    []string
	deletedVers    []string
	getBody        string
}

func (f *fakeObjectStore) EnsureBucket(_ context.Context, opts storage.BucketOptions) error {
	f.ensureCalls++
	f.lastBucketOpts = opts
	return nil
}

func (f *fakeObjectStore) Put(_ context.Context, key string, body io.Reader, size int64, opts storage.PutOptions) (storage.ObjectInfo, error) {
	f.lastPutKey = key
	f.lastPutOpts = opts
	raw, _ := io.ReadAll(body)
	f.lastPutBody = raw
	return storage.ObjectInfo{Key: key, Size: size, ETag: "etag-1"}, nil
}

func (f *fakeObjectStore) Get(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewBufferString(f.getBody)), nil
}

func (f *fakeObjectStore) Stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	return storage.ObjectInfo{Key: key}, nil
}

func (f *fakeObjectStore) ListVersions(context.Context, string) ([]storage.ObjectVersion, error) {
	return f.versions, nil
}

func (f *fakeObjectStore) DeleteVersion(_ context.Context, key, versionID string) error {
	f.deletedKeys = append(f.deletedKeys, key)
	f.deletedVers = append(f.deletedVers, versionID)
	return nil
}

func (f *fakeObjectStore) Delete(ctx context.Context, key string) error {
	return f.DeleteVersion(ctx, key, "")
}

type fakeCatalog struct {
	createCalls   int
	createErr     error
	deleteCalls   int
	deleteErr     error
	table         catalog.Table
	tableVersions []catalog.TableVersion
	lastDeleted   string
}

func (f *fakeCatalog) CreateDatabase(context.Context, string, string) error {
	f.createCalls++
	return f.createErr
}

func (f *fakeCatalog) GetTable(context.Context, string, string) (catalog.Table, error) {
	return f.table, nil
}

func (f *fakeCatalog) ListTableVersions(context.Context, string, string) ([]catalog.TableVersion, error) {
	return f.tableVersions, nil
}

func (f *fakeCatalog) DeleteTable(_ context.Context, _, table string) error {
	f.deleteCalls++
	f.lastDeleted = table
	return f.deleteErr
}

type fakeCrawlers struct {
	createCalls int
	createErr   error
	startCalls  int
	getCalls    int
	deleteErr   error
	infos       []catalog.CrawlerInfo
	lastCreate  catalog.CreateCrawlerInput
}

func (f *fakeCrawlers) Create(_ context.Context, in catalog.CreateCrawlerInput) error {
	f.createCalls++
	f.lastCreate = in
	return f.createErr
}

func (f *fakeCrawlers) Get(context.Context, string) (catalog.CrawlerInfo, error) {
	info := catalog.CrawlerInfo{Name: "thriftdb-demo", State: catalog.CrawlerStateReady}
	if len(f.infos) > 0 {
		info = f.infos[0]
		if len(f.infos) > 1 {
			f.infos = f.infos[1:]
		}
	}
	f.getCalls++
	return info, nil
}

func (f *fakeCrawlers) Start(context.Context, string) error {
	f.startCalls++
	return nil
}

func (f *fakeCrawlers) Delete(context.Context, string) error {
	return f.deleteErr
}

type fakeRoles struct {
	createCalls int
	createErr   error
	role        identity.Role
	getCalls    int
}

func (f *fakeRoles) CreateRole(context.Context, identity.CreateRoleInput) (identity.Role, error) {
	f.createCalls++
	if f.createErr != nil {
		return identity.Role{}, f.createErr
	}
	return f.role, nil
}

func (f *fakeRoles) GetRole(context.Context, string) (identity.Role, error) {
	f.getCalls++
	return f.role, nil
}

func (f *fakeRoles) AttachManagedPolicy(context.Context, string, string) error {
	return nil
}

func (f *fakeRoles) PutInlinePolicy(context.Context, string, string, string) error {
	return nil
}

type fakePipelines struct {
	mu            sync.Mutex
	describeErrs  []error
	describeCalls int
	createCalls   int
	createErr     error
	deleteErr     error
	info          delivery.PipelineInfo
	batches       [][][]byte
	lastCreate    delivery.CreatePipelineInput
	failedPuts    int
}

func (f *fakePipelines) Create(_ context.Context, in delivery.CreatePipelineInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.lastCreate = in
	return f.createErr
}

func (f *fakePipelines) Describe(context.Context, string) (delivery.PipelineInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var err error
	if len(f.describeErrs) > 0 {
		err = f.describeErrs[0]
		f.describeErrs = f.describeErrs[1:]
	}
	f.describeCalls++
	if err != nil {
		return delivery.PipelineInfo{}, err
	}
	return f.info, nil
}

func (f *fakePipelines) Delete(context.Context, string) error {
	return f.deleteErr
}

func (f *fakePipelines) PutRecordBatch(_ context.Context, _ string, records [][]byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	batch := make([][]byte, len(records))
	copy(batch, records)
	f.batches = append(f.batches, batch)
	return f.failedPuts, nil
}

type fakeEngine struct {
	lastSQL string
	rows    query.Rows
	err     error
}

func (f *fakeEngine) Run(_ context.Context, sql string) (query.Rows, error) {
	f.lastSQL = sql
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

type sliceRows struct {
	columns []string
	rows    [][]string
	pos     int
}

func (r *sliceRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *sliceRows) Row() []string {
	return r.rows[r.pos-1]
}

func (r *sliceRows) Columns() []string { return r.columns }

func (r *sliceRows) Err() error { return nil }
