package models

import "time"

// LessonProgress is the source-of-truth record of one student's work on one lesson.
type LessonProgress struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	StudentID          uint       `gorm:"not null;uniqueIndex:idx_lesson_progress_student_lesson;index:idx_lesson_progress_student_course" json:"student_id"`
	CourseID           uint       `gorm:"not null;index:idx_lesson_progress_student_course" json:"course_id"`
	LessonID           uint       `gorm:"not null;uniqueIndex:idx_lesson_progress_student_lesson" json:"lesson_id"`
	IsCompleted        bool       `gorm:"not null;default:false" json:"is_completed"`
	ProgressPercentage float64    `gorm:"not null;default:0" json:"progress_percentage"`
	TimeSpent          int        `gorm:"not null;default:0" json:"time_spent"`
	CompletedAt        *time.Time `json:"completed_at"`
	LastAccessedAt     time.Time  `gorm:"not null" json:"last_accessed_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// ChapterProgress caches the roll-up of a chapter's lessons for one student.
type ChapterProgress struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	StudentID          uint      `gorm:"not null;uniqueIndex:idx_chapter_progress_student_chapter" json:"student_id"`
	CourseID           uint      `gorm:"not null;index" json:"course_id"`
	ChapterID          uint      `gorm:"not null;uniqueIndex:idx_chapter_progress_student_chapter" json:"chapter_id"`
	IsCompleted        bool      `gorm:"not null;default:false" json:"is_completed"`
	ProgressPercentage int       `gorm:"not null;default:0" json:"progress_percentage"`
	TotalLessons       int       `gorm:"not null;default:0" json:"total_lessons"`
	CompletedLessons   int       `gorm:"not null;default:0" json:"completed_lessons"`
	TotalTimeSpent     int       `gorm:"not null;default:0" json:"total_time_spent"`
	LastAccessedAt     time.Time `gorm:"not null" json:"last_accessed_at"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CourseProgress caches the roll-up of every lesson in a course for one student.
type CourseProgress struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	StudentID          uint      `gorm:"not null;uniqueIndex:idx_course_progress_student_course" json:"student_id"`
	CourseID           uint      `gorm:"not null;uniqueIndex:idx_course_progress_student_course" json:"course_id"`
	IsCompleted        bool      `gorm:"not null;default:false" json:"is_completed"`
	ProgressPercentage int       `gorm:"not null;default:0" json:"progress_percentage"`
	TotalLessons       int       `gorm:"not null;default:0" json:"total_lessons"`
	CompletedLessons   int       `gorm:"not null;default:0" json:"completed_lessons"`
	TotalTimeSpent     int       `gorm:"not null;default:0" json:"total_time_spent"`
	LastAccessedAt     time.Time `gorm:"not null" json:"last_accessed_at"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
