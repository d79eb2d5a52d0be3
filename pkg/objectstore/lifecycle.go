package objectstore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/opscart/s3-tier-optimizer/pkg/models"
)

// LifecycleAPI is the subset of the S3 client used for lifecycle rules
type LifecycleAPI interface {
	PutBucketLifecycleConfiguration(ctx context.Context, params *s3.PutBucketLifecycleConfigurationInput, optFns ...func(*s3.Options)) (*s3.PutBucketLifecycleConfigurationOutput, error)
}

// LifecycleApplier writes a lifecycle policy to a bucket. S3 replaces the
// whole configuration, so existing rules are overwritten.
type LifecycleApplier struct {
	api LifecycleAPI
}

func NewLifecycleApplier(api LifecycleAPI) *LifecycleApplier {
	return &LifecycleApplier{api: api}
}

// Apply puts the policy on its bucket
func (a *LifecycleApplier) Apply(ctx context.Context, policy *models.LifecyclePolicy) error {
	if len(policy.Rules) == 0 {
		return fmt.Errorf("lifecycle policy for %s has no rules", policy.Bucket)
	}

	_, err := a.api.PutBucketLifecycleConfiguration(ctx, &s3.PutBucketLifecycleConfigurationInput{
		Bucket: aws.String(policy.Bucket),
		LifecycleConfiguration: &types.BucketLifecycleConfiguration{
			Rules: lifecycleRules(policy),
		},
	})
	if err != nil {
		return fmt.Errorf("put lifecycle configuration on %s: %w", policy.Bucket, err)
	}

	return nil
}

func lifecycleRules(policy *models.LifecyclePolicy) []types.LifecycleRule {
	rules := make([]types.LifecycleRule, 0, len(policy.Rules))
	for _, r := range policy.Rules {
		status := types.ExpirationStatusDisabled
		if r.Status == models.LifecycleRuleEnabled {
			status = types.ExpirationStatusEnabled
		}

		transitions := make([]types.Transition, 0, len(r.Transitions))
		for _, t := range r.Transitions {
			transitions = append(transitions, types.Transition{
				Days:         aws.Int32(int32(t.Days)),
				StorageClass: types.TransitionStorageClass(t.StorageClass),
			})
		}

		rules = append(rules, types.LifecycleRule{
			ID:          aws.String(r.ID),
			Status:      status,
			Filter:      &types.LifecycleRuleFilter{Prefix: aws.String(r.Prefix)},
			Transitions: transitions,
		})
	}
	return rules
}
