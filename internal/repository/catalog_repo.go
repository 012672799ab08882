package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/lms-progress-api/internal/models"
)

// CatalogRepository reads the course/chapter/lesson collections the roll-up depends on.
type CatalogRepository interface {
	GetCourse(ctx context.Context, id uint) (models.Course, error)
	GetLesson(ctx context.Context, id uint) (models.Lesson, error)
	CountPublishedLessonsByCourse(ctx context.Context, courseID uint) (int64, error)
	CountPublishedLessonsByChapter(ctx context.Context, chapterID uint) (int64, error)
	ListChapterIDsByCourse(ctx context.Context, courseID uint) ([]uint, error)
}

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository instantiates a GORM-backed repository.
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) GetCourse(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, id).Error; err != nil {
		return models.Course{}, err
	}

	return course, nil
}

func (r *catalogRepository) GetLesson(ctx context.Context, id uint) (models.Lesson, error) {
	var lesson models.Lesson
	if err := r.db.WithContext(ctx).First(&lesson, id).Error; err != nil {
		return models.Lesson{}, err
	}

	return lesson, nil
}

func (r *catalogRepository) CountPublishedLessonsByCourse(ctx context.Context, courseID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Lesson{}).
		Where("course_id = ? AND is_published = ?", courseID, true).
		Count(&count).Error
	return count, err
}

func (r *catalogRepository) CountPublishedLessonsByChapter(ctx context.Context, chapterID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Lesson{}).
		Where("chapter_id = ? AND is_published = ?", chapterID, true).
		Count(&count).Error
	return count, err
}

// ListChapterIDsByCourse returns every chapter that owns at least one lesson of the course.
func (r *catalogRepository) ListChapterIDsByCourse(ctx context.Context, courseID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Lesson{}).
		Where("course_id = ? AND chapter_id IS NOT NULL", courseID).
		Distinct().
		Order("chapter_id ASC").
		Pluck("chapter_id", &ids).Error
	return ids, err
}
