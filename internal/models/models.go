package models

// All lists every model migrated by the progress service.
func All() []interface{} {
	return []interface{}{
		&Course{},
		&Chapter{},
		&Lesson{},
		&LessonQuizQuestion{},
		&QuizAttempt{},
		&Enrollment{},
		&LessonProgress{},
		&ChapterProgress{},
		&CourseProgress{},
	}
}
