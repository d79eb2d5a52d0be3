package objectstore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/opscart/s3-tier-optimizer/pkg/models"
)

// DefaultStorageClass is what S3 omits from listings
const DefaultStorageClass = "STANDARD"

type InventoryOptions struct {
	// Prefix restricts the listing to keys under it
	Prefix string
	// Limit stops listing after this many objects. 0 means all.
	Limit int
	// DefaultTier replaces an empty storage class
	DefaultTier string
	Logger      *zap.Logger
}

// InventorySource materialises the object list of a bucket
type InventorySource struct {
	api  s3.ListObjectsV2APIClient
	opts InventoryOptions
}

func NewInventorySource(api s3.ListObjectsV2APIClient, opts InventoryOptions) *InventorySource {
	if opts.DefaultTier == "" {
		opts.DefaultTier = DefaultStorageClass
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &InventorySource{api: api, opts: opts}
}

// ListObjects pages through the bucket and returns validated records.
// Entries without a key or timestamp are dropped and logged.
func (s *InventorySource) ListObjects(ctx context.Context, bucket string) ([]models.ObjectRecord, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	}
	if s.opts.Prefix != "" {
		input.Prefix = aws.String(s.opts.Prefix)
	}

	paginator := s3.NewListObjectsV2Paginator(s.api, input)

	var records []models.ObjectRecord
	dropped := 0
	pages := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, &models.InventoryFetchError{Bucket: bucket, Err: err}
		}
		pages++

		for _, obj := range page.Contents {
			if obj.Key == nil || obj.LastModified == nil {
				dropped++
				continue
			}

			tier := string(obj.StorageClass)
			if tier == "" {
				tier = s.opts.DefaultTier
			}

			records = append(records, models.ObjectRecord{
				Key:            aws.ToString(obj.Key),
				SizeBytes:      aws.ToInt64(obj.Size),
				CurrentTier:    tier,
				LastModifiedAt: aws.ToTime(obj.LastModified),
			})

			if s.opts.Limit > 0 && len(records) >= s.opts.Limit {
				s.opts.Logger.Info("Reached object limit",
					zap.String("bucket", bucket),
					zap.Int("limit", s.opts.Limit))
				return records, nil
			}
		}

		s.opts.Logger.Debug("Listed page",
			zap.String("bucket", bucket),
			zap.Int("page", pages),
			zap.Int("objects", len(records)))
	}

	if dropped > 0 {
		s.opts.Logger.Warn("Dropped malformed listing entries",
			zap.String("bucket", bucket),
			zap.Int("dropped", dropped))
	}

	return records, nil
}
