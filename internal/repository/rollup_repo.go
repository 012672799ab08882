package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/lms-progress-api/internal/models"
)

// RollupRepository stores the chapter and course aggregates. Rows are always
// overwritten with a fresh recomputation, never patched.
type RollupRepository interface {
	UpsertChapter(ctx context.Context, progress *models.ChapterProgress) error
	UpsertCourse(ctx context.Context, progress *models.CourseProgress) error
	GetChapter(ctx context.Context, studentID, chapterID uint) (models.ChapterProgress, error)
	GetCourse(ctx context.Context, studentID, courseID uint) (models.CourseProgress, error)
	ListChapters(ctx context.Context, studentID, courseID uint) ([]models.ChapterProgress, error)
}

type rollupRepository struct {
	db *gorm.DB
}

// NewRollupRepository instantiates a GORM-backed repository.
func NewRollupRepository(db *gorm.DB) RollupRepository {
	return &rollupRepository{db: db}
}

var rollupColumns = []string{
	"course_id", "is_completed", "progress_percentage", "total_lessons",
	"completed_lessons", "total_time_spent", "last_accessed_at", "updated_at",
}

func (r *rollupRepository) UpsertChapter(ctx context.Context, progress *models.ChapterProgress) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "chapter_id"}},
		DoUpdates: clause.AssignmentColumns(rollupColumns),
	}).Create(progress).Error
}

func (r *rollupRepository) UpsertCourse(ctx context.Context, progress *models.CourseProgress) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "course_id"}},
		DoUpdates: clause.AssignmentColumns(rollupColumns[1:]),
	}).Create(progress).Error
}

func (r *rollupRepository) GetChapter(ctx context.Context, studentID, chapterID uint) (models.ChapterProgress, error) {
	var progress models.ChapterProgress
	if err := r.db.WithContext(ctx).
		Where("student_id = ? AND chapter_id = ?", studentID, chapterID).
		First(&progress).Error; err != nil {
		return models.ChapterProgress{}, err
	}

	return progress, nil
}

func (r *rollupRepository) GetCourse(ctx context.Context, studentID, courseID uint) (models.CourseProgress, error) {
	var progress models.CourseProgress
	if err := r.db.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		First(&progress).Error; err != nil {
		return models.CourseProgress{}, err
	}

	return progress, nil
}

func (r *rollupRepository) ListChapters(ctx context.Context, studentID, courseID uint) ([]models.ChapterProgress, error) {
	var items []models.ChapterProgress
	if err := r.db.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Order("chapter_id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}

	return items, nil
}
