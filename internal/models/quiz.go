package models

import (
	"time"

	"gorm.io/datatypes"
)

// LessonQuizQuestion is a multiple-choice question that gates a completed lesson.
type LessonQuizQuestion struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	LessonID      uint           `gorm:"not null;index" json:"lesson_id"`
	Prompt        string         `gorm:"type:text;not null" json:"prompt"`
	Options       datatypes.JSON `gorm:"type:json" json:"options"`
	CorrectOption int            `gorm:"not null" json:"-"`
	Points        float64        `gorm:"not null;default:1" json:"points"`
	Order         int            `gorm:"column:sort_order;not null;default:0" json:"order"`
	IsActive      bool           `gorm:"not null;index" json:"is_active"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// QuizAttempt stores a graded quiz submission.
type QuizAttempt struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	StudentID  uint           `gorm:"not null;index:idx_quiz_attempt_student_lesson" json:"student_id"`
	LessonID   uint           `gorm:"not null;index:idx_quiz_attempt_student_lesson" json:"lesson_id"`
	Score      float64        `gorm:"not null" json:"score"`
	MaxScore   float64        `gorm:"not null" json:"max_score"`
	Percentage float64        `gorm:"not null" json:"percentage"`
	Passed     bool           `gorm:"not null" json:"passed"`
	Answers    datatypes.JSON `gorm:"type:json" json:"answers"`
	CreatedAt  time.Time      `json:"created_at"`
}
