package reporter

import (
	"fmt"
	"io"
)

// GenerateText writes the console report
func GenerateText(report *Report, w io.Writer) error {
	p := &printer{w: w}

	p.printf("=== Storage Tier Recommendations ===\n\n")

	for i, b := range report.Buckets {
		p.printf("%d. %s", i+1, b.Bucket)
		if b.Analysis != nil && b.Analysis.Region != "" {
			p.printf(" [%s]", b.Analysis.Region)
			if pr := b.Analysis.PricingRegion; pr != "" && pr != b.Analysis.Region {
				p.printf(" (priced for %s)", pr)
			}
		}
		p.printf("\n")

		if b.Analysis == nil {
			p.printf("   Outcome: %s\n", b.Outcome)
			p.printf("   Error: %s\n\n", b.Error)
			continue
		}

		a := b.Analysis
		if a.IsEmpty {
			p.printf("   Bucket is empty\n\n")
			continue
		}

		p.printf("   Objects: %d (%s)\n", a.TotalObjects, formatBytes(a.TotalBytes))
		if a.HasSavings() {
			p.printf("   To transition: %d (%d eligible)\n", a.Summary.ObjectsToTransition, a.Summary.EligibleObjects)
			p.printf("   Savings: $%.2f/month ($%.2f/year)\n", a.Summary.MonthlySavings, a.Summary.AnnualSavings)
		} else {
			p.printf("   No transitions recommended\n")
		}
		if a.UnpricedObjects > 0 {
			p.printf("   Unpriced objects skipped: %d\n", a.UnpricedObjects)
		}
		if a.NoGainObjects > 0 {
			p.printf("   Objects with no cheaper tier: %d\n", a.NoGainObjects)
		}

		if len(a.Groups) > 0 {
			p.printf("   Transitions:\n")
			for _, g := range a.Groups {
				p.printf("     %s -> %s: %d objects (%.1f%%), $%.2f/month\n",
					g.FromTier, g.ToTier, g.ObjectCount, g.PercentageOfBucket, g.MonthlySavings)
			}
		}

		if len(a.Lifecycle) > 0 {
			p.printf("   Lifecycle rules:\n")
			for _, l := range a.Lifecycle {
				p.printf("     after %d days -> %s (%d objects, avg age %.1f days)\n",
					l.TriggerAgeDays, l.TargetTier, l.AffectedObjectCount, l.AverageAgeOfAffectedObjects)
			}
		}

		for _, adv := range a.Advisories {
			p.printf("   [%s] %s\n", adv.Priority, adv.Message)
		}

		if m := b.Migration; m != nil {
			mode := "live"
			if m.DryRun {
				mode = "dry-run"
			}
			p.printf("   Migration (%s): %s\n", mode, m.Summary())
			if !m.DryRun {
				p.printf("   Realized savings: $%.2f/month\n", m.RealizedMonthlySavings)
			}
		}
		p.printf("\n")
	}

	p.printf("Buckets: %d analyzed, %d failed\n", report.AnalyzedCount, report.FailedCount)
	p.printf("Total potential savings: $%.2f/month ($%.2f/year)\n", report.TotalSavings, report.AnnualSavings)
	if report.MigratedObjects > 0 || report.FailedObjects > 0 {
		p.printf("Migrated objects: %d (%d failed), realized savings $%.2f/month\n",
			report.MigratedObjects, report.FailedObjects, report.RealizedSavings)
	}

	return p.err
}

// printer remembers the first write error
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
