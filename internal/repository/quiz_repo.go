package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/lms-progress-api/internal/models"
)

// QuizRepository exposes lesson quiz questions and graded attempts.
type QuizRepository interface {
	CountActiveByLesson(ctx context.Context, lessonID uint) (int64, error)
	ListActiveByLesson(ctx context.Context, lessonID uint) ([]models.LessonQuizQuestion, error)
	CreateAttempt(ctx context.Context, attempt *models.QuizAttempt) error
}

type quizRepository struct {
	db *gorm.DB
}

// NewQuizRepository instantiates a GORM-backed repository.
func NewQuizRepository(db *gorm.DB) QuizRepository {
	return &quizRepository{db: db}
}

func (r *quizRepository) CountActiveByLesson(ctx context.Context, lessonID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.LessonQuizQuestion{}).
		Where("lesson_id = ? AND is_active = ?", lessonID, true).
		Count(&count).Error
	return count, err
}

func (r *quizRepository) ListActiveByLesson(ctx context.Context, lessonID uint) ([]models.LessonQuizQuestion, error) {
	var questions []models.LessonQuizQuestion
	if err := r.db.WithContext(ctx).
		Where("lesson_id = ? AND is_active = ?", lessonID, true).
		Order("sort_order ASC").
		Order("id ASC").
		Find(&questions).Error; err != nil {
		return nil, err
	}

	return questions, nil
}

func (r *quizRepository) CreateAttempt(ctx context.Context, attempt *models.QuizAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}
