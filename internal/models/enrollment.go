package models

import "time"

const (
	// EnrollmentStatusActive marks an enrollment that is still in progress.
	EnrollmentStatusActive = "active"
	// EnrollmentStatusCompleted marks an enrollment whose course has been finished.
	EnrollmentStatusCompleted = "completed"
)

// Enrollment is the user-facing summary of a student's registration in a course.
type Enrollment struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	StudentID      uint       `gorm:"not null;uniqueIndex:idx_enrollment_student_course" json:"student_id"`
	CourseID       uint       `gorm:"not null;uniqueIndex:idx_enrollment_student_course" json:"course_id"`
	Status         string     `gorm:"size:32;not null;default:'active'" json:"status"`
	Progress       int        `gorm:"not null;default:0" json:"progress"`
	EnrolledAt     time.Time  `json:"enrolled_at"`
	LastAccessedAt *time.Time `json:"last_accessed_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsCompleted reports whether the enrollment reached the completed state.
func (e Enrollment) IsCompleted() bool {
	return e.Status == EnrollmentStatusCompleted
}
