package objectstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// BucketAPI is the subset of the S3 client used for bucket discovery
type BucketAPI interface {
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	GetBucketLocation(ctx context.Context, params *s3.GetBucketLocationInput, optFns ...func(*s3.Options)) (*s3.GetBucketLocationOutput, error)
}

// Client wraps the AWS S3 client with configuration
type Client struct {
	S3     *s3.Client
	Config aws.Config

	buckets BucketAPI
}

// NewClient creates a new AWS S3 client with the specified profile and region
func NewClient(ctx context.Context, profile, region string) (*Client, error) {
	var opts []func(*config.LoadOptions) error

	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}

	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(cfg)

	return &Client{
		S3:      s3Client,
		Config:  cfg,
		buckets: s3Client,
	}, nil
}

// Region returns the configured default region
func (c *Client) Region() string {
	return c.Config.Region
}

// GetBucketRegion retrieves the region for a specific bucket
func (c *Client) GetBucketRegion(ctx context.Context, bucket string) (string, error) {
	result, err := c.buckets.GetBucketLocation(ctx, &s3.GetBucketLocationInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return "", fmt.Errorf("get location of bucket %s: %w", bucket, err)
	}

	// Empty constraint means us-east-1
	if result.LocationConstraint == "" {
		return "us-east-1", nil
	}

	return string(result.LocationConstraint), nil
}

// ListBuckets returns the names of all buckets visible to the caller, sorted
func (c *Client) ListBuckets(ctx context.Context) ([]string, error) {
	result, err := c.buckets.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}

	names := make([]string, 0, len(result.Buckets))
	for _, b := range result.Buckets {
		if name := aws.ToString(b.Name); name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	return names, nil
}
