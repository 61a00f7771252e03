package firehose

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/firehose"
	"github.com/aws/aws-sdk-go-v2/service/firehose/types"

	"github.com/thriftdb/thriftdb/delivery"
)

type api interface {
	CreateDeliveryStream(ctx context.Context, in *firehose.CreateDeliveryStreamInput, opts ...func(*firehose.Options)) (*firehose.CreateDeliveryStreamOutput, error)
	DescribeDeliveryStream(ctx context.Context, in *firehose.DescribeDeliveryStreamInput, opts ...func(*firehose.Options)) (*firehose.DescribeDeliveryStreamOutput, error)
	DeleteDeliveryStream(ctx context.Context, in *firehose.DeleteDeliveryStreamInput, opts ...func(*firehose.Options)) (*firehose.DeleteDeliveryStreamOutput, error)
	PutRecordBatch(ctx context.Context, in *firehose.PutRecordBatchInput, opts ...func(*firehose.Options)) (*firehose.PutRecordBatchOutput, error)
}

type Client struct {
	api api
}

func New(client *firehose.Client) *Client {
	return &Client{api: client}
}

func NewWithAPI(a api) (*Client, error) {
	if a == nil {
		return nil, fmt.Errorf("firehose api is required")
	}
	return &Client{api: a}, nil
}

func (c *Client) Create(ctx context.Context, in delivery.CreatePipelineInput) error {
	destination := &types.ExtendedS3DestinationConfiguration{
		RoleARN:   aws.String(in.RoleARN),
		BucketARN: aws.String(in.BucketARN),
		Prefix:    aws.String(in.Prefix),
		BufferingHints: &types.BufferingHints{
			SizeInMBs:         aws.Int32(in.Buffering.SizeMB),
			IntervalInSeconds: aws.Int32(in.Buffering.IntervalSeconds),
		},
		CompressionFormat: types.CompressionFormat(in.Compression),
	}
	if in.ErrorOutputPrefix != "" {
		destination.ErrorOutputPrefix = aws.String(in.ErrorOutputPrefix)
	}

	if _, err := c.api.CreateDeliveryStream(ctx, &firehose.CreateDeliveryStreamInput{
		DeliveryStreamName: aws.String(in.Name),
		DeliveryStreamType: types.DeliveryStreamTypeDirectPut,
		ExtendedS3DestinationConfiguration: destination,
	}); err != nil {
		if mapped := mapErr(err); errors.Is(mapped, delivery.ErrPipelineExists) {
			return delivery.ErrPipelineExists
		}
		return fmt.Errorf("create delivery stream %q: %w", in.Name, err)
	}
	return nil
}

func (c *Client) Describe(ctx context.Context, name string) (delivery.PipelineInfo, error) {
	out, err := c.api.DescribeDeliveryStream(ctx, &firehose.DescribeDeliveryStreamInput{
		DeliveryStreamName: aws.String(name),
	})
	if err != nil {
		if mapped := mapErr(err); errors.Is(mapped, delivery.ErrPipelineNotFound) {
			return delivery.PipelineInfo{}, delivery.ErrPipelineNotFound
		}
		return delivery.PipelineInfo{}, fmt.Errorf("describe delivery stream %q: %w", name, err)
	}

	description := out.DeliveryStreamDescription
	info := delivery.PipelineInfo{
		Name:   aws.ToString(description.DeliveryStreamName),
		Status: string(description.DeliveryStreamStatus),
	}
	if description.CreateTimestamp != nil {
		info.CreatedAt = *description.CreateTimestamp
	}
	for _, dest := range description.Destinations {
		if dest.ExtendedS3DestinationDescription != nil {
			info.Prefix = aws.ToString(dest.ExtendedS3DestinationDescription.Prefix)
			info.BucketARN = aws.ToString(dest.ExtendedS3DestinationDescription.BucketARN)
			break
		}
	}
	return info, nil
}

func (c *Client) Delete(ctx context.Context, name string) error {
	if _, err := c.api.DeleteDeliveryStream(ctx, &firehose.DeleteDeliveryStreamInput{
		DeliveryStreamName: aws.String(name),
	}); err != nil {
		if mapped := mapErr(err); errors.Is(mapped, delivery.ErrPipelineNotFound) {
			return delivery.ErrPipelineNotFound
		}
		return fmt.Errorf("delete delivery stream %q: %w", name, err)
	}
	return nil
}

func (c *Client) PutRecordBatch(ctx context.Context, name string, records [][]byte) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if len(records) > delivery.MaxBatchRecords {
		return 0, fmt.Errorf("batch of %d exceeds the %d record ceiling", len(records), delivery.MaxBatchRecords)
	}

	batch := make([]types.Record, 0, len(records))
	for _, record := range records {
		batch = append(batch, types.Record{Data: record})
	}
	out, err := c.api.PutRecordBatch(ctx, &firehose.PutRecordBatchInput{
		DeliveryStreamName: aws.String(name),
		Records:            batch,
	})
	if err != nil {
		if mapped := mapErr(err); errors.Is(mapped, delivery.ErrPipelineNotFound) {
			return 0, delivery.ErrPipelineNotFound
		}
		return 0, fmt.Errorf("put record batch to %q: %w", name, err)
	}
	return int(aws.ToInt32(out.FailedPutCount)), nil
}

func mapErr(err error) error {
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return delivery.ErrPipelineNotFound
	}
	var inUse *types.ResourceInUseException
	if errors.As(err, &inUse) {
		return delivery.ErrPipelineExists
	}
	return err
}

var _ delivery.Pipelines = (*Client)(nil)
