package producer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/thriftdb/thriftdb"
	"github.com/thriftdb/thriftdb/delivery"
)

// pipeline is the slice of a stream handle the producer needs.
type pipeline interface {
	Create(ctx context.Context, opts thriftdb.CreateStreamOptions) (delivery.PipelineInfo, error)
	FromRecords(ctx context.Context, records []map[string]any) error
}

type Service struct {
	cfg       Config
	log       *slog.Logger
	stream    pipeline
	generator *Generator
}

func NewService(cfg Config, logger *slog.Logger, stream pipeline) (*Service, error) {
	if stream == nil {
		return nil, fmt.Errorf("stream is required")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be > 0")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval must be > 0")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Service{
		cfg:       cfg,
		log:       logger,
		stream:    stream,
		generator: NewGenerator(cfg.Seed, cfg.ProducerID, cfg.UserCardinality),
	}, nil
}

// Run publishes one batch per tick until the context is cancelled.
// Pipeline provisioning is retried on the same cadence until it
// succeeds; publish failures are logged and the loop keeps going.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	streamReady := !s.cfg.CreateStream

	for {
		if !streamReady {
			if err := s.ensureStream(ctx); err != nil {
				s.log.Error("failed to ensure demo pipeline", slog.Any("error", err))
			} else {
				streamReady = true
			}
		} else {
			if err := s.produceOnce(ctx); err != nil {
				s.log.Error("failed to publish demo batch", slog.Any("error", err))
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) ensureStream(ctx context.Context) error {
	info, err := s.stream.Create(ctx, thriftdb.CreateStreamOptions{})
	if err != nil {
		return err
	}
	s.log.Info("demo pipeline ready", slog.String("pipeline", info.Name))
	return nil
}

func (s *Service) produceOnce(ctx context.Context) error {
	records := make([]map[string]any, 0, s.cfg.BatchSize)
	for i := 0; i < s.cfg.BatchSize; i++ {
		records = append(records, s.generator.NextRecord())
	}

	if err := s.stream.FromRecords(ctx, records); err != nil {
		return err
	}
	s.log.Info(
		"published demo batch",
		slog.String("stream", s.cfg.StreamName),
		slog.Int("batch_size", len(records)),
	)
	return nil
}
