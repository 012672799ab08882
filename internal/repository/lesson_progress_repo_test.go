package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-progress-api/internal/models"
)

func newRepositoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// seedCatalog builds one course with a chapter of three lessons (the last one
// unpublished) and one published lesson outside any chapter.
func seedCatalog(t *testing.T, db *gorm.DB) (models.Course, models.Chapter, []models.Lesson) {
	t.Helper()

	course := models.Course{Title: "Databases", IsPublished: true}
	require.NoError(t, db.Create(&course).Error)

	chapter := models.Chapter{CourseID: course.ID, Title: "SQL"}
	require.NoError(t, db.Create(&chapter).Error)

	chapterID := chapter.ID
	lessons := []models.Lesson{
		{CourseID: course.ID, ChapterID: &chapterID, Title: "Select", IsPublished: true},
		{CourseID: course.ID, ChapterID: &chapterID, Title: "Join", IsPublished: true},
		{CourseID: course.ID, ChapterID: &chapterID, Title: "Draft", IsPublished: false},
		{CourseID: course.ID, Title: "Wrap-up", IsPublished: true},
	}
	for i := range lessons {
		require.NoError(t, db.Create(&lessons[i]).Error)
	}

	return course, chapter, lessons
}

func TestLessonProgressRepositoryCreateResolvesConflicts(t *testing.T) {
	db := newRepositoryTestDB(t)
	repo := NewLessonProgressRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	first := models.LessonProgress{StudentID: 1, CourseID: 1, LessonID: 1, TimeSpent: 10, LastAccessedAt: now}
	require.NoError(t, repo.Create(ctx, &first))

	second := models.LessonProgress{StudentID: 1, CourseID: 1, LessonID: 1, TimeSpent: 25, IsCompleted: true, LastAccessedAt: now}
	require.NoError(t, repo.Create(ctx, &second))

	var rows []models.LessonProgress
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, 25, rows[0].TimeSpent)
	require.True(t, rows[0].IsCompleted)

	found, err := repo.FindByStudentAndLesson(ctx, 1, 1)
	require.NoError(t, err)
	require.Equal(t, rows[0].ID, found.ID)

	_, err = repo.FindByStudentAndLesson(ctx, 2, 1)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestLessonProgressRepositoryListFiltersSortsAndPaginates(t *testing.T) {
	db := newRepositoryTestDB(t)
	repo := NewLessonProgressRepository(db)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := []models.LessonProgress{
		{StudentID: 1, CourseID: 1, LessonID: 1, IsCompleted: true, TimeSpent: 30, LastAccessedAt: base},
		{StudentID: 1, CourseID: 1, LessonID: 2, TimeSpent: 10, LastAccessedAt: base.Add(2 * time.Hour)},
		{StudentID: 1, CourseID: 2, LessonID: 3, TimeSpent: 20, LastAccessedAt: base.Add(time.Hour)},
		{StudentID: 2, CourseID: 1, LessonID: 1, TimeSpent: 99, LastAccessedAt: base.Add(3 * time.Hour)},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	student := uint(1)
	items, total, err := repo.List(ctx, ProgressFilter{StudentID: &student})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Equal(t, []uint{2, 3, 1}, lessonIDs(items))

	items, _, err = repo.List(ctx, ProgressFilter{StudentID: &student, SortBy: "timeSpent", SortOrder: "asc"})
	require.NoError(t, err)
	require.Equal(t, []uint{2, 3, 1}, lessonIDs(items))

	course := uint(1)
	items, total, err = repo.List(ctx, ProgressFilter{CourseID: &course, Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, items, 1)
	require.Equal(t, uint(1), items[0].StudentID)
	require.Equal(t, uint(1), items[0].LessonID)

	completed := true
	items, total, err = repo.List(ctx, ProgressFilter{IsCompleted: &completed})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, uint(1), items[0].LessonID)

	items, _, err = repo.List(ctx, ProgressFilter{SortBy: "student_id; DROP TABLE lesson_progresses"})
	require.NoError(t, err)
	require.Len(t, items, 4, "unknown sort keys fall back to lastAccessedAt")
}

func TestLessonProgressRepositoryAggregate(t *testing.T) {
	db := newRepositoryTestDB(t)
	repo := NewLessonProgressRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	rows := []models.LessonProgress{
		{StudentID: 1, CourseID: 1, LessonID: 1, IsCompleted: true, ProgressPercentage: 100, TimeSpent: 40, LastAccessedAt: now},
		{StudentID: 1, CourseID: 1, LessonID: 2, ProgressPercentage: 20, TimeSpent: 20, LastAccessedAt: now},
		{StudentID: 2, CourseID: 1, LessonID: 1, IsCompleted: true, ProgressPercentage: 100, TimeSpent: 300, LastAccessedAt: now},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	student := uint(1)
	aggregate, err := repo.Aggregate(ctx, ProgressFilter{StudentID: &student})
	require.NoError(t, err)
	require.Equal(t, int64(2), aggregate.Total)
	require.Equal(t, int64(1), aggregate.Completed)
	require.InDelta(t, 60.0, aggregate.AverageProgress, 0.001)
	require.Equal(t, int64(60), aggregate.TotalTimeSpent)

	missing := uint(42)
	empty, err := repo.Aggregate(ctx, ProgressFilter{StudentID: &missing})
	require.NoError(t, err)
	require.Zero(t, empty.Total)
	require.Zero(t, empty.AverageProgress)
}

func TestLessonProgressRepositoryRollupCounts(t *testing.T) {
	db := newRepositoryTestDB(t)
	repo := NewLessonProgressRepository(db)
	catalog := NewCatalogRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	course, chapter, lessons := seedCatalog(t, db)

	rows := []models.LessonProgress{
		{StudentID: 1, CourseID: course.ID, LessonID: lessons[0].ID, IsCompleted: true, TimeSpent: 10, LastAccessedAt: now},
		{StudentID: 1, CourseID: course.ID, LessonID: lessons[2].ID, IsCompleted: true, TimeSpent: 5, LastAccessedAt: now},
		{StudentID: 1, CourseID: course.ID, LessonID: lessons[3].ID, TimeSpent: 7, LastAccessedAt: now},
		{StudentID: 2, CourseID: course.ID, LessonID: lessons[1].ID, IsCompleted: true, TimeSpent: 100, LastAccessedAt: now},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	chapterTotal, err := catalog.CountPublishedLessonsByChapter(ctx, chapter.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), chapterTotal)

	courseTotal, err := catalog.CountPublishedLessonsByCourse(ctx, course.ID)
	require.NoError(t, err)
	require.Equal(t, int64(3), courseTotal)

	chapterCounts, err := repo.ChapterCounts(ctx, 1, course.ID, chapter.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), chapterCounts.CompletedLessons, "completion of an unpublished lesson is not counted")
	require.Equal(t, int64(15), chapterCounts.TotalTimeSpent)

	courseCounts, err := repo.CourseCounts(ctx, 1, course.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), courseCounts.CompletedLessons)
	require.Equal(t, int64(22), courseCounts.TotalTimeSpent)

	chapterIDs, err := catalog.ListChapterIDsByCourse(ctx, course.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{chapter.ID}, chapterIDs)
}

func TestRollupRepositoryUpsertOverwrites(t *testing.T) {
	db := newRepositoryTestDB(t)
	repo := NewRollupRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.UpsertCourse(ctx, &models.CourseProgress{StudentID: 1, CourseID: 1, ProgressPercentage: 50, TotalLessons: 2, CompletedLessons: 1, LastAccessedAt: now}))
	require.NoError(t, repo.UpsertCourse(ctx, &models.CourseProgress{StudentID: 1, CourseID: 1, IsCompleted: true, ProgressPercentage: 100, TotalLessons: 2, CompletedLessons: 2, LastAccessedAt: now}))

	course, err := repo.GetCourse(ctx, 1, 1)
	require.NoError(t, err)
	require.True(t, course.IsCompleted)
	require.Equal(t, 100, course.ProgressPercentage)

	var courseRows int64
	require.NoError(t, db.Model(&models.CourseProgress{}).Count(&courseRows).Error)
	require.Equal(t, int64(1), courseRows)

	require.NoError(t, repo.UpsertChapter(ctx, &models.ChapterProgress{StudentID: 1, CourseID: 1, ChapterID: 4, ProgressPercentage: 100, IsCompleted: true, LastAccessedAt: now}))
	require.NoError(t, repo.UpsertChapter(ctx, &models.ChapterProgress{StudentID: 1, CourseID: 1, ChapterID: 4, ProgressPercentage: 50, LastAccessedAt: now}))
	require.NoError(t, repo.UpsertChapter(ctx, &models.ChapterProgress{StudentID: 1, CourseID: 1, ChapterID: 2, LastAccessedAt: now}))

	chapter, err := repo.GetChapter(ctx, 1, 4)
	require.NoError(t, err)
	require.False(t, chapter.IsCompleted)
	require.Equal(t, 50, chapter.ProgressPercentage)

	chapters, err := repo.ListChapters(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, chapters, 2)
	require.Equal(t, uint(2), chapters[0].ChapterID)
}

func TestEnrollmentRepositoryUpdate(t *testing.T) {
	db := newRepositoryTestDB(t)
	repo := NewEnrollmentRepository(db)
	ctx := context.Background()

	enrollment := models.Enrollment{StudentID: 1, CourseID: 1, EnrolledAt: time.Now().UTC()}
	require.NoError(t, db.Create(&enrollment).Error)

	loaded, err := repo.GetByStudentAndCourse(ctx, 1, 1)
	require.NoError(t, err)
	require.Equal(t, models.EnrollmentStatusActive, loaded.Status)

	completedAt := time.Now().UTC()
	loaded.Status = models.EnrollmentStatusCompleted
	loaded.Progress = 100
	loaded.CompletedAt = &completedAt
	require.NoError(t, repo.Update(ctx, &loaded))

	reloaded, err := repo.GetByStudentAndCourse(ctx, 1, 1)
	require.NoError(t, err)
	require.True(t, reloaded.IsCompleted())
	require.Equal(t, 100, reloaded.Progress)
	require.NotNil(t, reloaded.CompletedAt)

	missing := models.Enrollment{ID: 999, Status: models.EnrollmentStatusActive}
	require.ErrorIs(t, repo.Update(ctx, &missing), gorm.ErrRecordNotFound)
}

func lessonIDs(items []models.LessonProgress) []uint {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.LessonID)
	}
	return ids
}
