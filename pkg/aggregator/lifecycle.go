package aggregator

import (
	"fmt"
	"strings"

	"github.com/opscart/s3-tier-optimizer/pkg/models"
)

// BuildLifecyclePolicy turns lifecycle recommendations into one enabled rule
// per target tier. Tiers assigned from day 0 cannot be a transition target
// and are left out.
func BuildLifecyclePolicy(bucket string, recs []models.LifecyclePolicyRecommendation) *models.LifecyclePolicy {
	policy := &models.LifecyclePolicy{
		Bucket: bucket,
		Rules:  []models.LifecycleRule{},
	}

	for _, rec := range recs {
		if rec.TriggerAgeDays <= 0 || rec.AffectedObjectCount == 0 {
			continue
		}
		policy.Rules = append(policy.Rules, models.LifecycleRule{
			ID:     ruleID(rec.TargetTier),
			Status: models.LifecycleRuleEnabled,
			Transitions: []models.LifecycleTransition{
				{Days: rec.TriggerAgeDays, StorageClass: rec.TargetTier},
			},
		})
	}

	return policy
}

func ruleID(tier string) string {
	return fmt.Sprintf("auto-transition-to-%s", strings.ReplaceAll(strings.ToLower(tier), "_", "-"))
}
