package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/domain"
)

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Client archives accepted readings to an S3 data lake.
type S3Client struct {
	svc    s3API
	bucket string
}

// NewS3Client creates a new S3 client instance
func NewS3Client(ctx context.Context, region, bucket string) (*S3Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return &S3Client{
		svc:    s3.NewFromConfig(cfg),
		bucket: bucket,
	}, nil
}

// ArchiveKey is the object key for a reading:
// readings/<device>/<yyyy>/<mm>/<dd>/<id>.json, dated by receipt time.
func ArchiveKey(r domain.Reading) string {
	t := r.ReceivedAt.UTC()
	return fmt.Sprintf("readings/%s/%04d/%02d/%02d/%d.json", r.DeviceKey, t.Year(), t.Month(), t.Day(), r.ID)
}

// ArchiveReading stores the persisted reading as JSON.
func (c *S3Client) ArchiveReading(ctx context.Context, r domain.Reading) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}
	return c.UploadDataFile(ctx, ArchiveKey(r), body)
}

// UploadDataFile uploads raw data file to S3 data lake
func (c *S3Client) UploadDataFile(ctx context.Context, key string, data []byte) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	}

	_, err := c.svc.PutObject(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to upload data file: %w", err)
	}

	return nil
}
