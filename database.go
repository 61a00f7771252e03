package thriftdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/thriftdb/thriftdb/catalog"
	"github.com/thriftdb/thriftdb/delivery"
	"github.com/thriftdb/thriftdb/identity"
	"github.com/thriftdb/thriftdb/observability"
	"github.com/thriftdb/thriftdb/poll"
	"github.com/thriftdb/thriftdb/query"
	"github.com/thriftdb/thriftdb/storage"
)

// DatabaseConfig declares one database: a storage bucket and a catalog
// namespace sharing its name.
type DatabaseConfig struct {
	Name        string
	Region      string
	Description string

	// AutoCreate provisions the bucket and the catalog namespace during
	// NewDatabase.
	AutoCreate       bool
	EnableVersioning bool
	Tags             map[string]string

	// ResultsPrefix is the bucket-relative staging prefix for query
	// results.
	ResultsPrefix string

	// RoleARN skips role provisioning and uses the given role as-is.
	// RoleName provisions (or resolves) a role under a caller-chosen
	// name; a collision on a caller-supplied name is ambiguous and
	// surfaces ErrAmbiguousRole. When both are empty a role named
	// {Name}-ThriftDBExecutionRole is ensured.
	RoleARN  string
	RoleName string

	// CrawlerWait configures the default crawler poll.
	CrawlerWait WaitConfig
}

// Dependencies carries the service clients a Database borrows. Each
// handle receives exactly the clients it needs; ownership stays with the
// caller.
type Dependencies struct {
	ObjectStore storage.ObjectStore
	Catalog     catalog.Catalog
	Crawlers    catalog.Crawlers
	Roles       identity.Roles
	Engine      query.Engine
	Pipelines   PipelineDeps
	Logger      *slog.Logger
	Clock       func() time.Time
}

// PipelineDeps is split out so stream handles can be built without the
// rest of the stack.
type PipelineDeps struct {
	Pipelines delivery.Pipelines
	Wait      WaitConfig
	Workers   int
}

// WaitConfig shapes a poll loop. The zero value waits with package
// defaults; Disabled returns control immediately after triggering.
type WaitConfig struct {
	Disabled bool
	Interval time.Duration
	MaxWait  time.Duration
}

func (w WaitConfig) pollConfig() poll.Config {
	return poll.Config{Interval: w.Interval, MaxWait: w.MaxWait}
}

type Database struct {
	cfg      DatabaseConfig
	store    storage.ObjectStore
	catalog  catalog.Catalog
	crawlers catalog.Crawlers
	engine   query.Engine
	streams  PipelineDeps
	logger   *slog.Logger
	clock    func() time.Time
	roleARN  string
}

// NewDatabase validates the config, resolves the service role, and when
// AutoCreate is set provisions the bucket and catalog namespace.
// Provisioning reuses whatever already exists.
func NewDatabase(ctx context.Context, cfg DatabaseConfig, deps Dependencies) (*Database, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, fmt.Errorf("%w: database name is required", ErrInvalidName)
	}
	if cfg.ResultsPrefix == "" {
		cfg.ResultsPrefix = "results/"
	}
	if strings.HasPrefix(cfg.ResultsPrefix, "/") || strings.Contains(cfg.ResultsPrefix, "://") {
		return nil, fmt.Errorf("%w: results prefix must be bucket-relative", ErrInvalidName)
	}
	if deps.ObjectStore == nil || deps.Catalog == nil {
		return nil, fmt.Errorf("object store and catalog clients are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	db := &Database{
		cfg:      cfg,
		store:    deps.ObjectStore,
		catalog:  deps.Catalog,
		crawlers: deps.Crawlers,
		engine:   deps.Engine,
		streams:  deps.Pipelines,
		logger:   deps.Logger.With(slog.String("database", cfg.Name)),
		clock:    deps.Clock,
	}

	roleARN, err := db.resolveRole(ctx, deps.Roles)
	if err != nil {
		return nil, err
	}
	db.roleARN = roleARN

	if cfg.AutoCreate {
		if err := db.provision(ctx); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func (db *Database) resolveRole(ctx context.Context, roles identity.Roles) (string, error) {
	cfg := db.cfg
	switch {
	case cfg.RoleARN != "":
		return cfg.RoleARN, nil
	case roles == nil:
		return "", nil
	case cfg.RoleName != "":
		trust, err := identity.CrawlerTrustPolicy()
		if err != nil {
			return "", err
		}
		role, err := roles.CreateRole(ctx, identity.CreateRoleInput{
			Name:        cfg.RoleName,
			Path:        "/service-role/",
			Description: db.provisionNote("Role"),
			TrustPolicy: trust,
		})
		if err != nil {
			if errors.Is(err, identity.ErrRoleExists) {
				return "", fmt.Errorf("%w: %q", ErrAmbiguousRole, cfg.RoleName)
			}
			return "", fmt.Errorf("create role %q: %w", cfg.RoleName, err)
		}
		if err := roles.AttachManagedPolicy(ctx, cfg.RoleName, identity.CrawlerManagedPolicyARN); err != nil {
			return "", err
		}
		access, err := identity.BucketAccessPolicy(cfg.Name)
		if err != nil {
			return "", err
		}
		if err := roles.PutInlinePolicy(ctx, cfg.RoleName, "ThriftDBRolePolicy", access); err != nil {
			return "", err
		}
		return role.ARN, nil
	default:
		role, err := identity.EnsureRole(ctx, roles, identity.EnsureRoleInput{
			Name:        fmt.Sprintf("%s-ThriftDBExecutionRole", cfg.Name),
			Bucket:      cfg.Name,
			Description: db.provisionNote("Role"),
		})
		if err != nil {
			return "", err
		}
		db.logger.Debug("service role resolved", slog.String("role_arn", role.ARN))
		return role.ARN, nil
	}
}

func (db *Database) provision(ctx context.Context) error {
	db.logger.Info("creating database", slog.String("region", db.cfg.Region))

	opts := storage.BucketOptions{
		EnableVersioning: db.cfg.EnableVersioning,
		Tags:             db.cfg.Tags,
	}
	// us-east-1 is the implicit default location and must not be sent as
	// a constraint.
	if db.cfg.Region != "" && db.cfg.Region != "us-east-1" {
		opts.Region = db.cfg.Region
	}
	if err := db.store.EnsureBucket(ctx, opts); err != nil {
		return err
	}

	if err := db.catalog.CreateDatabase(ctx, db.cfg.Name, db.cfg.Description); err != nil {
		if errors.Is(err, catalog.ErrAlreadyExists) {
			db.logger.Debug("catalog namespace already exists")
			return nil
		}
		return err
	}
	return nil
}

func (db *Database) Name() string {
	return db.cfg.Name
}

func (db *Database) RoleARN() string {
	return db.roleARN
}

// StagingLocation is the full URI query results are written under.
func (db *Database) StagingLocation() string {
	return fmt.Sprintf("s3://%s/%s", db.cfg.Name, db.cfg.ResultsPrefix)
}

// Query runs sql against the registered tables and returns a one-shot
// row cursor.
func (db *Database) Query(ctx context.Context, sql string) (query.Rows, error) {
	if db.engine == nil {
		return nil, fmt.Errorf("query engine is not configured")
	}
	started := db.clock()
	rows, err := db.engine.Run(ctx, sql)
	if err != nil {
		return nil, err
	}
	observability.ObserveQuery(db.clock().Sub(started))
	return rows, nil
}

// CreateCrawler registers a crawler over bucket/prefix/ and returns its
// name. An existing crawler under the same name is reused.
func (db *Database) CreateCrawler(ctx context.Context, prefix string) (string, error) {
	if db.crawlers == nil {
		return "", fmt.Errorf("crawler client is not configured")
	}
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return "", fmt.Errorf("%w: crawler prefix is required", ErrInvalidName)
	}

	db.logger.Info("creating crawler", slog.String("crawler", db.cfg.Name), slog.String("prefix", prefix))
	err := db.crawlers.Create(ctx, catalog.CreateCrawlerInput{
		Name:         db.cfg.Name,
		Role:         db.roleARN,
		DatabaseName: db.cfg.Name,
		Description:  db.provisionNote("Crawler"),
		TargetPath:   fmt.Sprintf("%s/%s/", db.cfg.Name, prefix),
	})
	if err != nil && !errors.Is(err, catalog.ErrAlreadyExists) {
		return "", err
	}
	if errors.Is(err, catalog.ErrAlreadyExists) {
		db.logger.Warn("crawler already exists", slog.String("crawler", db.cfg.Name))
	}

	info, err := db.crawlers.Get(ctx, db.cfg.Name)
	if err != nil {
		return "", err
	}
	return info.Name, nil
}

func (db *Database) Crawler(ctx context.Context, name string) (catalog.CrawlerInfo, error) {
	if db.crawlers == nil {
		return catalog.CrawlerInfo{}, fmt.Errorf("crawler client is not configured")
	}
	return db.crawlers.Get(ctx, name)
}

// DeleteCrawler removes the named crawler. A crawler that is already
// gone is a no-op.
func (db *Database) DeleteCrawler(ctx context.Context, name string) error {
	if db.crawlers == nil {
		return fmt.Errorf("crawler client is not configured")
	}
	if err := db.crawlers.Delete(ctx, name); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			db.logger.Warn("crawler already deleted", slog.String("crawler", name))
			return nil
		}
		return err
	}
	return nil
}

// CrawlOutcome reports how a triggered crawler run ended.
type CrawlOutcome struct {
	Status        catalog.CrawlStatus
	ErrorMessage  string
	ElapsedMillis int64
	Waited        time.Duration
}

// UpdateTables triggers a crawler run. With waiting enabled it blocks
// until the crawler leaves its active states and reports the last-run
// outcome; with waiting disabled it returns nil immediately after the
// trigger and the run continues unobserved.
func (db *Database) UpdateTables(ctx context.Context, crawlerName string, wait WaitConfig) (*CrawlOutcome, error) {
	if db.crawlers == nil {
		return nil, fmt.Errorf("crawler client is not configured")
	}
	if wait.Interval <= 0 {
		wait.Interval = db.cfg.CrawlerWait.Interval
	}
	if wait.MaxWait <= 0 {
		wait.MaxWait = db.cfg.CrawlerWait.MaxWait
	}

	db.logger.Info("updating tables", slog.String("crawler", crawlerName))
	if err := db.crawlers.Start(ctx, crawlerName); err != nil {
		return nil, err
	}
	if wait.Disabled {
		return nil, nil
	}

	db.logger.Info("waiting for table update to complete")
	started := db.clock()
	var final catalog.CrawlerInfo
	err := poll.Until(ctx, wait.pollConfig(), func(ctx context.Context) (bool, error) {
		info, err := db.crawlers.Get(ctx, crawlerName)
		if err != nil {
			return false, err
		}
		if info.State.Active() {
			db.logger.Info("crawler still working",
				slog.String("state", string(info.State)),
				slog.Int64("elapsed_ms", info.ElapsedMillis))
			return false, nil
		}
		final = info
		return true, nil
	})
	waited := db.clock().Sub(started)
	if err != nil {
		return nil, err
	}

	outcome := &CrawlOutcome{ElapsedMillis: final.ElapsedMillis, Waited: waited}
	if final.LastCrawl != nil {
		outcome.Status = final.LastCrawl.Status
		outcome.ErrorMessage = final.LastCrawl.ErrorMessage
	}
	observability.ObserveCrawlCycle(string(outcome.Status), waited)
	db.logger.Info("table update finished", slog.String("status", string(outcome.Status)))
	return outcome, nil
}

func (db *Database) provisionNote(kind string) string {
	return fmt.Sprintf("%s created by thriftdb on %s", kind, db.clock().UTC().Format("2006-01-02 15:04:05"))
}
