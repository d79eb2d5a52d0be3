package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// TierAPI is the subset of the S3 client used to change tiers
type TierAPI interface {
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// TierMigrator changes an object's storage class with an in-place copy.
// S3 rejects a self-copy that changes nothing; an object already in the
// target class counts as migrated.
type TierMigrator struct {
	api TierAPI
}

func NewTierMigrator(api TierAPI) *TierMigrator {
	return &TierMigrator{api: api}
}

// SetTier copies the object onto itself with the new storage class,
// keeping its metadata
func (m *TierMigrator) SetTier(ctx context.Context, bucket, key, tier string) error {
	_, err := m.api.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:            aws.String(bucket),
		Key:               aws.String(key),
		CopySource:        aws.String(copySource(bucket, key)),
		StorageClass:      types.StorageClass(tier),
		MetadataDirective: types.MetadataDirectiveCopy,
	})
	if err == nil || !isInvalidRequest(err) {
		return err
	}

	current, headErr := m.currentTier(ctx, bucket, key)
	if headErr != nil {
		return fmt.Errorf("%w (head object: %v)", err, headErr)
	}
	if current == tier {
		return nil
	}
	return err
}

func (m *TierMigrator) currentTier(ctx context.Context, bucket, key string) (string, error) {
	out, err := m.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", err
	}
	// HEAD omits the class for STANDARD objects
	if out.StorageClass == "" {
		return string(types.StorageClassStandard), nil
	}
	return string(out.StorageClass), nil
}

func isInvalidRequest(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "InvalidRequest"
}

// copySource URL-encodes each path segment of bucket/key
func copySource(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return bucket + "/" + strings.Join(segments, "/")
}
