package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/firehose"
	"github.com/aws/aws-sdk-go-v2/service/glue"

	"github.com/thriftdb/thriftdb"
	glueclient "github.com/thriftdb/thriftdb/catalog/glue"
	"github.com/thriftdb/thriftdb/config"
	firehoseclient "github.com/thriftdb/thriftdb/delivery/firehose"
	"github.com/thriftdb/thriftdb/internal/demo/producer"
	"github.com/thriftdb/thriftdb/observability"
	s3store "github.com/thriftdb/thriftdb/storage/s3"
)

func main() {
	cfg, err := config.LoadFromEnv("thriftdb-demo-producer")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	demoCfg, err := producer.LoadConfigFromEnv(os.LookupEnv)
	if err != nil {
		slog.Error("failed to load demo config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	name := strings.TrimSpace(os.Getenv("THRIFTDB_DATABASE"))
	if name == "" {
		logger.Error("THRIFTDB_DATABASE is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stream, err := openStream(ctx, cfg, demoCfg, name, logger)
	if err != nil {
		logger.Error("failed to open stream", slog.Any("error", err))
		os.Exit(1)
	}

	svc, err := producer.NewService(demoCfg, logger, stream)
	if err != nil {
		logger.Error("failed to build producer", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("demo producer started", slog.String("stream", demoCfg.StreamName))
	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("demo producer failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("demo producer stopped")
}

func openStream(ctx context.Context, cfg config.Config, demoCfg producer.Config, name string, logger *slog.Logger) (*thriftdb.Stream, error) {
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

	db, err := thriftdb.NewDatabase(ctx, thriftdb.DatabaseConfig{
		Name:    name,
		Region:  cfg.Region,
		RoleARN: strings.TrimSpace(os.Getenv("THRIFTDB_ROLE_ARN")),
	}, thriftdb.Dependencies{
		ObjectStore: store,
		Catalog:     glueclient.New(glue.NewFromConfig(awsCfg)),
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
	if err != nil {
		return nil, err
	}
	return db.Stream(demoCfg.StreamName, demoCfg.Prefix)
}
