package observability

import "time"

// Roll-up stage labels.
const (
	StageLesson     = "lesson"
	StageChapter    = "chapter"
	StageCourse     = "course"
	StageEnrollment = "enrollment"
)

// ObserveRollupStage records the outcome and duration of one roll-up stage.
func ObserveRollupStage(stage string, started time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}

	RollupStages().WithLabelValues(stage, outcome).Inc()
	RollupDuration().WithLabelValues(stage).Observe(time.Since(started).Seconds())
}
