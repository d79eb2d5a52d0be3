package analyzer

import (
	"fmt"
	"math"
	"sort"

	"github.com/opscart/s3-tier-optimizer/pkg/models"
)

// CalculatePercentiles computes average, P50, P90, P99, min and max
func CalculatePercentiles(values []float64) (*models.Percentiles, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("no values provided")
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return &models.Percentiles{
		Average: calculateAverage(sorted),
		P50:     calculatePercentile(sorted, 50),
		P90:     calculatePercentile(sorted, 90),
		P99:     calculatePercentile(sorted, 99),
		Max:     sorted[len(sorted)-1],
		Min:     sorted[0],
	}, nil
}

// calculatePercentile computes the Nth percentile using linear interpolation
func calculatePercentile(sortedValues []float64, percentile float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}

	if len(sortedValues) == 1 {
		return sortedValues[0]
	}

	n := float64(len(sortedValues))
	rank := (percentile / 100.0) * (n - 1)

	lowerIndex := int(math.Floor(rank))
	upperIndex := int(math.Ceil(rank))

	if lowerIndex == upperIndex {
		return sortedValues[lowerIndex]
	}

	lowerValue := sortedValues[lowerIndex]
	upperValue := sortedValues[upperIndex]
	fraction := rank - float64(lowerIndex)

	return lowerValue + (upperValue-lowerValue)*fraction
}

func calculateAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}
