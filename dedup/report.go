package dedup

import (
	"math"
	"time"

	"storymill/types"
)

// buildReport assembles the run summary. Pure aggregation: every reason code
// is present (zero-filled when unused) and retention is 0 for an empty batch,
// never NaN.
func buildReport(inputCount, uniqueCount int, reasonCounts map[string]int, groupCount int, features types.FeaturesUsed) *types.Report {
	byType := make(map[string]int, len(types.ReasonCodes))
	totalDuplicates := 0
	for _, reason := range types.ReasonCodes {
		byType[reason] = reasonCounts[reason]
		totalDuplicates += reasonCounts[reason]
	}

	retention := 0.0
	if inputCount > 0 {
		retention = roundTo2(float64(uniqueCount) / float64(inputCount) * 100)
	}

	return &types.Report{
		GeneratedAt:      time.Now().UTC(),
		TotalInputItems:  inputCount,
		UniqueItems:      uniqueCount,
		TotalDuplicates:  totalDuplicates,
		DuplicatesByType: byType,
		DuplicateGroups:  groupCount,
		RetentionRate:    retention,
		FeaturesUsed:     features,
	}
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
