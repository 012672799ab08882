package service

import "math"

// RollupResult is a recomputed chapter or course aggregate.
type RollupResult struct {
	TotalLessons       int
	CompletedLessons   int
	TotalTimeSpent     int
	ProgressPercentage int
	IsCompleted        bool
}

// computeRollup derives percentage and completion from raw counts.
// completed is clamped to total so completed <= total holds even if the
// catalog changed underneath the progress rows.
func computeRollup(total, completed, timeSpent int64) RollupResult {
	if total < 0 {
		total = 0
	}
	if completed < 0 {
		completed = 0
	}
	if completed > total {
		completed = total
	}
	if timeSpent < 0 {
		timeSpent = 0
	}

	result := RollupResult{
		TotalLessons:     int(total),
		CompletedLessons: int(completed),
		TotalTimeSpent:   int(timeSpent),
	}

	if total > 0 {
		result.ProgressPercentage = int(math.Round(100 * float64(completed) / float64(total)))
		result.IsCompleted = completed == total
	}

	return result
}
