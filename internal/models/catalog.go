package models

import "time"

// Course is the catalog entry lessons and enrollments hang off.
type Course struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	IsPublished bool      `gorm:"not null;default:false" json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Chapter groups lessons inside a course.
type Chapter struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CourseID  uint      `gorm:"not null;index" json:"course_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Order     int       `gorm:"column:sort_order;not null;default:0" json:"order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Lesson is the unit a student records progress against. Lessons without a
// chapter only count towards course progress.
type Lesson struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CourseID    uint      `gorm:"not null;index" json:"course_id"`
	ChapterID   *uint     `gorm:"index" json:"chapter_id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Order       int       `gorm:"column:sort_order;not null;default:0" json:"order"`
	IsPublished bool      `gorm:"not null;default:false;index" json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasChapter reports whether the lesson belongs to a chapter.
func (l Lesson) HasChapter() bool {
	return l.ChapterID != nil && *l.ChapterID != 0
}
