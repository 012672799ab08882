package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/lms-progress-api/internal/models"
)

// ProgressFilter narrows lesson progress queries.
type ProgressFilter struct {
	StudentID   *uint
	CourseID    *uint
	LessonID    *uint
	IsCompleted *bool
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// ProgressAggregate is the raw read-side aggregate over a filtered progress set.
type ProgressAggregate struct {
	Total           int64
	Completed       int64
	AverageProgress float64
	TotalTimeSpent  int64
}

// RollupCounts holds the figures a chapter or course roll-up derives from progress rows.
type RollupCounts struct {
	CompletedLessons int64
	TotalTimeSpent   int64
}

// LessonProgressRepository persists the source-of-truth lesson progress rows.
type LessonProgressRepository interface {
	FindByStudentAndLesson(ctx context.Context, studentID, lessonID uint) (models.LessonProgress, error)
	Create(ctx context.Context, progress *models.LessonProgress) error
	Update(ctx context.Context, progress *models.LessonProgress) error
	List(ctx context.Context, filter ProgressFilter) ([]models.LessonProgress, int64, error)
	Aggregate(ctx context.Context, filter ProgressFilter) (ProgressAggregate, error)
	ChapterCounts(ctx context.Context, studentID, courseID, chapterID uint) (RollupCounts, error)
	CourseCounts(ctx context.Context, studentID, courseID uint) (RollupCounts, error)
}

type lessonProgressRepository struct {
	db *gorm.DB
}

// NewLessonProgressRepository instantiates a GORM-backed repository.
func NewLessonProgressRepository(db *gorm.DB) LessonProgressRepository {
	return &lessonProgressRepository{db: db}
}

func (r *lessonProgressRepository) FindByStudentAndLesson(ctx context.Context, studentID, lessonID uint) (models.LessonProgress, error) {
	var progress models.LessonProgress
	if err := r.db.WithContext(ctx).
		Where("student_id = ? AND lesson_id = ?", studentID, lessonID).
		First(&progress).Error; err != nil {
		return models.LessonProgress{}, err
	}

	return progress, nil
}

// Create inserts a new row; a concurrent insert for the same (student, lesson)
// is resolved last-write-wins instead of failing on the unique index.
func (r *lessonProgressRepository) Create(ctx context.Context, progress *models.LessonProgress) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "student_id"}, {Name: "lesson_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"course_id", "is_completed", "progress_percentage", "time_spent",
			"completed_at", "last_accessed_at", "updated_at",
		}),
	}).Create(progress).Error
}

func (r *lessonProgressRepository) Update(ctx context.Context, progress *models.LessonProgress) error {
	return r.db.WithContext(ctx).Save(progress).Error
}

func (r *lessonProgressRepository) filtered(ctx context.Context, filter ProgressFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.LessonProgress{})

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.CourseID != nil {
		query = query.Where("course_id = ?", *filter.CourseID)
	}
	if filter.LessonID != nil {
		query = query.Where("lesson_id = ?", *filter.LessonID)
	}
	if filter.IsCompleted != nil {
		query = query.Where("is_completed = ?", *filter.IsCompleted)
	}

	return query
}

func (r *lessonProgressRepository) List(ctx context.Context, filter ProgressFilter) ([]models.LessonProgress, int64, error) {
	query := r.filtered(ctx, filter)

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order(normalizeProgressSort(filter.SortBy, filter.SortOrder)).Order("id ASC")

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var items []models.LessonProgress
	if err := query.Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *lessonProgressRepository) Aggregate(ctx context.Context, filter ProgressFilter) (ProgressAggregate, error) {
	var aggregate ProgressAggregate
	err := r.filtered(ctx, filter).
		Select(`COUNT(*) AS total,
			CAST(COALESCE(SUM(CASE WHEN is_completed THEN 1 ELSE 0 END), 0) AS BIGINT) AS completed,
			CAST(COALESCE(AVG(progress_percentage), 0) AS DOUBLE PRECISION) AS average_progress,
			CAST(COALESCE(SUM(time_spent), 0) AS BIGINT) AS total_time_spent`).
		Scan(&aggregate).Error
	return aggregate, err
}

// ChapterCounts counts completions among the chapter's published lessons and sums
// time over every progress row of the chapter's lessons, completed or not.
func (r *lessonProgressRepository) ChapterCounts(ctx context.Context, studentID, courseID, chapterID uint) (RollupCounts, error) {
	published := r.db.Model(&models.Lesson{}).Select("id").
		Where("chapter_id = ? AND is_published = ?", chapterID, true)
	all := r.db.Model(&models.Lesson{}).Select("id").
		Where("chapter_id = ?", chapterID)

	return r.counts(ctx, studentID, courseID, published, all)
}

// CourseCounts counts completions among the course's published lessons and sums
// time over every progress row of the course.
func (r *lessonProgressRepository) CourseCounts(ctx context.Context, studentID, courseID uint) (RollupCounts, error) {
	published := r.db.Model(&models.Lesson{}).Select("id").
		Where("course_id = ? AND is_published = ?", courseID, true)

	return r.counts(ctx, studentID, courseID, published, nil)
}

func (r *lessonProgressRepository) counts(ctx context.Context, studentID, courseID uint, completedScope, timeScope *gorm.DB) (RollupCounts, error) {
	var counts RollupCounts

	base := func() *gorm.DB {
		return r.db.WithContext(ctx).
			Model(&models.LessonProgress{}).
			Where("student_id = ? AND course_id = ?", studentID, courseID)
	}

	if err := base().
		Where("is_completed = ?", true).
		Where("lesson_id IN (?)", completedScope).
		Count(&counts.CompletedLessons).Error; err != nil {
		return RollupCounts{}, err
	}

	timeQuery := base()
	if timeScope != nil {
		timeQuery = timeQuery.Where("lesson_id IN (?)", timeScope)
	}
	if err := timeQuery.
		Select("CAST(COALESCE(SUM(time_spent), 0) AS BIGINT)").
		Scan(&counts.TotalTimeSpent).Error; err != nil {
		return RollupCounts{}, err
	}

	return counts, nil
}

func normalizeProgressSort(sortBy, sortOrder string) string {
	direction := "DESC"
	if strings.EqualFold(strings.TrimSpace(sortOrder), "asc") {
		direction = "ASC"
	}

	column := "last_accessed_at"
	switch strings.TrimSpace(sortBy) {
	case "createdAt":
		column = "created_at"
	case "updatedAt":
		column = "updated_at"
	case "progressPercentage":
		column = "progress_percentage"
	case "timeSpent":
		column = "time_spent"
	case "completedAt":
		column = "completed_at"
	}

	return column + " " + direction
}
