package service

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-progress-api/internal/models"
	"github.com/noah-isme/lms-progress-api/internal/repository"
)

type progressFixture struct {
	db          *gorm.DB
	mini        *miniredis.Miniredis
	redis       *redis.Client
	catalog     repository.CatalogRepository
	progress    repository.LessonProgressRepository
	rollups     repository.RollupRepository
	enrollments repository.EnrollmentRepository
	quizzes     repository.QuizRepository
	rollup      RollupService
	quiz        QuizService
	stats       StatsCache
	events      EventPublisher
	service     ProgressService
	now         time.Time
}

func newProgressFixture(t *testing.T) *progressFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	f := &progressFixture{
		db:          db,
		mini:        mini,
		redis:       redisClient,
		catalog:     repository.NewCatalogRepository(db),
		progress:    repository.NewLessonProgressRepository(db),
		rollups:     repository.NewRollupRepository(db),
		enrollments: repository.NewEnrollmentRepository(db),
		quizzes:     repository.NewQuizRepository(db),
		now:         time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.Nop()

	f.rollup = NewRollupService(f.catalog, f.progress, f.rollups, f.enrollments, logger)
	f.rollup.(*rollupService).now = f.clock
	f.quiz = NewQuizService(f.catalog, f.quizzes, validate, "/api/v1", 70, logger)
	f.stats = NewStatsCache(redisClient, time.Minute, logger)
	f.events = NewEventPublisher(redisClient, nil, "lms:progress", logger)
	f.service = NewProgressService(f.catalog, f.progress, f.rollup, f.quiz, f.stats, f.events, validate, logger)
	f.service.(*progressService).now = f.clock

	return f
}

func (f *progressFixture) clock() time.Time {
	return f.now
}

func (f *progressFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

type courseLayout struct {
	course   models.Course
	chapters []models.Chapter
	lessons  []models.Lesson
}

// seedCourse creates a published course with the given number of published
// lessons per chapter. A zero chapter count adds one chapterless lesson.
func seedCourse(t *testing.T, db *gorm.DB, lessonsPerChapter ...int) courseLayout {
	t.Helper()

	layout := courseLayout{course: models.Course{Title: "Intro to Go", IsPublished: true}}
	require.NoError(t, db.Create(&layout.course).Error)

	for i, count := range lessonsPerChapter {
		if count == 0 {
			lesson := models.Lesson{CourseID: layout.course.ID, Title: fmt.Sprintf("Standalone %d", i+1), IsPublished: true}
			require.NoError(t, db.Create(&lesson).Error)
			layout.lessons = append(layout.lessons, lesson)
			continue
		}

		chapter := models.Chapter{CourseID: layout.course.ID, Title: fmt.Sprintf("Chapter %d", i+1), Order: i + 1}
		require.NoError(t, db.Create(&chapter).Error)
		layout.chapters = append(layout.chapters, chapter)

		for j := 0; j < count; j++ {
			chapterID := chapter.ID
			lesson := models.Lesson{
				CourseID:    layout.course.ID,
				ChapterID:   &chapterID,
				Title:       fmt.Sprintf("Lesson %d.%d", i+1, j+1),
				Order:       j + 1,
				IsPublished: true,
			}
			require.NoError(t, db.Create(&lesson).Error)
			layout.lessons = append(layout.lessons, lesson)
		}
	}

	return layout
}

func seedEnrollment(t *testing.T, db *gorm.DB, studentID, courseID uint) models.Enrollment {
	t.Helper()

	enrollment := models.Enrollment{
		StudentID:  studentID,
		CourseID:   courseID,
		Status:     models.EnrollmentStatusActive,
		EnrolledAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Create(&enrollment).Error)
	return enrollment
}

func seedQuizQuestion(t *testing.T, db *gorm.DB, lessonID uint, prompt string, options []string, correct int, points float64, active bool) models.LessonQuizQuestion {
	t.Helper()

	encoded, err := json.Marshal(options)
	require.NoError(t, err)

	question := models.LessonQuizQuestion{
		LessonID:      lessonID,
		Prompt:        prompt,
		Options:       datatypes.JSON(encoded),
		CorrectOption: correct,
		Points:        points,
		IsActive:      active,
	}
	require.NoError(t, db.Create(&question).Error)
	return question
}

func boolRef(value bool) *bool {
	return &value
}

func floatRef(value float64) *float64 {
	return &value
}

func intRef(value int) *int {
	return &value
}

func uintRef(value uint) *uint {
	return &value
}
