package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/firehose"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/iam"

	"github.com/thriftdb/thriftdb"
	glueclient "github.com/thriftdb/thriftdb/catalog/glue"
	"github.com/thriftdb/thriftdb/config"
	firehoseclient "github.com/thriftdb/thriftdb/delivery/firehose"
	iamclient "github.com/thriftdb/thriftdb/identity/iam"
	"github.com/thriftdb/thriftdb/internal/cli/thriftdbctl"
	"github.com/thriftdb/thriftdb/observability"
	athenaengine "github.com/thriftdb/thriftdb/query/athena"
	s3store "github.com/thriftdb/thriftdb/storage/s3"
)

func main() {
	cfg, err := config.LoadFromEnv("thriftdbctl")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stderr)

	name := strings.TrimSpace(os.Getenv("THRIFTDB_DATABASE"))
	if name == "" {
		logger.Error("THRIFTDB_DATABASE is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg, name, logger)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}

	code := thriftdbctl.Run(ctx, os.Args[1:], thriftdbctl.Options{
		Database: db,
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	})
	os.Exit(code)
}

func openDatabase(ctx context.Context, cfg config.Config, name string, logger *slog.Logger) (*thriftdb.Database, error) {
	store, err := s3store.New(s3store.Config{
		Endpoint:        cfg.ObjectStore.Endpoint,
		Region:          cfg.Region,
		Bucket:          name,
		AccessKeyID:     cfg.ObjectStore.AccessKeyID,
		SecretAccessKey: cfg.ObjectStore.SecretAccessKey,
		UseSSL:          cfg.ObjectStore.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize object store: %w", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	glueClient := glueclient.New(glue.NewFromConfig(awsCfg))
	engine, err := athenaengine.New(athena.NewFromConfig(awsCfg), athenaengine.Config{
		Database:       name,
		OutputLocation: fmt.Sprintf("s3://%s/%s", name, cfg.Query.ResultsPrefix),
		PollInterval:   cfg.Query.PollInterval,
		MaxWait:        cfg.Query.MaxWait,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize query engine: %w", err)
	}

	return thriftdb.NewDatabase(ctx, thriftdb.DatabaseConfig{
		Name:          name,
		Region:        cfg.Region,
		AutoCreate:    envBool("THRIFTDB_AUTO_CREATE"),
		ResultsPrefix: cfg.Query.ResultsPrefix,
		RoleARN:       strings.TrimSpace(os.Getenv("THRIFTDB_ROLE_ARN")),
		CrawlerWait: thriftdb.WaitConfig{
			Interval: cfg.Crawler.PollInterval,
			MaxWait:  cfg.Crawler.MaxWait,
		},
	}, thriftdb.Dependencies{
		ObjectStore: store,
		Catalog:     glueClient,
		Crawlers:    glueClient,
		Roles:       iamclient.New(iam.NewFromConfig(awsCfg)),
		Engine:      engine,
		Pipelines: thriftdb.PipelineDeps{
			Pipelines: firehoseclient.New(firehose.NewFromConfig(awsCfg)),
			Wait: thriftdb.WaitConfig{
				Interval: cfg.Delivery.PollInterval,
				MaxWait:  cfg.Delivery.MaxWait,
			},
			Workers: cfg.Delivery.Workers,
		},
		Logger: logger,
	})
}

func envBool(key string) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return false
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return parsed
}
