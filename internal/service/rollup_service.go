package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-progress-api/internal/dto"
	"github.com/noah-isme/lms-progress-api/internal/models"
	"github.com/noah-isme/lms-progress-api/internal/observability"
	"github.com/noah-isme/lms-progress-api/internal/repository"
)

// EnrollmentProjection describes what the projector did to an enrollment.
type EnrollmentProjection struct {
	Enrollment models.Enrollment
	Found      bool
	Completed  bool
}

// RollupService recomputes chapter and course aggregates from lesson progress
// and mirrors course completion into the enrollment.
type RollupService interface {
	RecomputeChapter(ctx context.Context, studentID, courseID, chapterID uint) (models.ChapterProgress, error)
	RecomputeCourse(ctx context.Context, studentID, courseID uint) (models.CourseProgress, error)
	ProjectEnrollment(ctx context.Context, studentID uint, course models.CourseProgress) (EnrollmentProjection, error)
	Reconcile(ctx context.Context, studentID, courseID uint) (dto.CourseProgressDetailResponse, error)
	CourseDetail(ctx context.Context, studentID, courseID uint) (dto.CourseProgressDetailResponse, error)
}

type rollupService struct {
	catalog     repository.CatalogRepository
	progress    repository.LessonProgressRepository
	rollups     repository.RollupRepository
	enrollments repository.EnrollmentRepository
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewRollupService builds the chapter/course aggregators and the enrollment projector.
func NewRollupService(catalog repository.CatalogRepository, progress repository.LessonProgressRepository, rollups repository.RollupRepository, enrollments repository.EnrollmentRepository, logger zerolog.Logger) RollupService {
	return &rollupService{
		catalog:     catalog,
		progress:    progress,
		rollups:     rollups,
		enrollments: enrollments,
		logger:      logger.With().Str("component", "rollup_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/lms-progress-api/internal/service/rollup"),
		now:         time.Now,
	}
}

func (s *rollupService) RecomputeChapter(ctx context.Context, studentID, courseID, chapterID uint) (_ models.ChapterProgress, err error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "rollup.chapter", trace.WithAttributes(
		attribute.Int64("rollup.student_id", int64(studentID)),
		attribute.Int64("rollup.course_id", int64(courseID)),
		attribute.Int64("rollup.chapter_id", int64(chapterID)),
	))
	defer func() {
		endSpan(span, err)
		observability.ObserveRollupStage(observability.StageChapter, started, err)
	}()

	total, err := s.catalog.CountPublishedLessonsByChapter(ctx, chapterID)
	if err != nil {
		return models.ChapterProgress{}, err
	}

	counts, err := s.progress.ChapterCounts(ctx, studentID, courseID, chapterID)
	if err != nil {
		return models.ChapterProgress{}, err
	}

	result := computeRollup(total, counts.CompletedLessons, counts.TotalTimeSpent)
	record := models.ChapterProgress{
		StudentID:          studentID,
		CourseID:           courseID,
		ChapterID:          chapterID,
		IsCompleted:        result.IsCompleted,
		ProgressPercentage: result.ProgressPercentage,
		TotalLessons:       result.TotalLessons,
		CompletedLessons:   result.CompletedLessons,
		TotalTimeSpent:     result.TotalTimeSpent,
		LastAccessedAt:     s.now(),
	}

	if err := s.rollups.UpsertChapter(ctx, &record); err != nil {
		return models.ChapterProgress{}, err
	}

	span.SetAttributes(attribute.Int("rollup.progress", result.ProgressPercentage))
	return record, nil
}

func (s *rollupService) RecomputeCourse(ctx context.Context, studentID, courseID uint) (_ models.CourseProgress, err error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "rollup.course", trace.WithAttributes(
		attribute.Int64("rollup.student_id", int64(studentID)),
		attribute.Int64("rollup.course_id", int64(courseID)),
	))
	defer func() {
		endSpan(span, err)
		observability.ObserveRollupStage(observability.StageCourse, started, err)
	}()

	total, err := s.catalog.CountPublishedLessonsByCourse(ctx, courseID)
	if err != nil {
		return models.CourseProgress{}, err
	}

	counts, err := s.progress.CourseCounts(ctx, studentID, courseID)
	if err != nil {
		return models.CourseProgress{}, err
	}

	result := computeRollup(total, counts.CompletedLessons, counts.TotalTimeSpent)
	record := models.CourseProgress{
		StudentID:          studentID,
		CourseID:           courseID,
		IsCompleted:        result.IsCompleted,
		ProgressPercentage: result.ProgressPercentage,
		TotalLessons:       result.TotalLessons,
		CompletedLessons:   result.CompletedLessons,
		TotalTimeSpent:     result.TotalTimeSpent,
		LastAccessedAt:     s.now(),
	}

	if err := s.rollups.UpsertCourse(ctx, &record); err != nil {
		return models.CourseProgress{}, err
	}

	span.SetAttributes(attribute.Int("rollup.progress", result.ProgressPercentage))
	return record, nil
}

// ProjectEnrollment only touches an existing enrollment; a missing one is not an error.
func (s *rollupService) ProjectEnrollment(ctx context.Context, studentID uint, course models.CourseProgress) (_ EnrollmentProjection, err error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "rollup.enrollment", trace.WithAttributes(
		attribute.Int64("rollup.student_id", int64(studentID)),
		attribute.Int64("rollup.course_id", int64(course.CourseID)),
	))
	defer func() {
		endSpan(span, err)
		observability.ObserveRollupStage(observability.StageEnrollment, started, err)
	}()

	enrollment, err := s.enrollments.GetByStudentAndCourse(ctx, studentID, course.CourseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Debug().Uint("student_id", studentID).Uint("course_id", course.CourseID).Msg("no enrollment to project progress into")
			return EnrollmentProjection{}, nil
		}
		return EnrollmentProjection{}, err
	}

	completed := projectEnrollment(&enrollment, course, s.now())

	if err := s.enrollments.Update(ctx, &enrollment); err != nil {
		return EnrollmentProjection{}, err
	}

	if completed {
		observability.Completions().WithLabelValues("course").Inc()
		s.logger.Info().Uint("student_id", studentID).Uint("course_id", course.CourseID).Msg("enrollment completed")
	}

	return EnrollmentProjection{Enrollment: enrollment, Found: true, Completed: completed}, nil
}

// Reconcile re-runs every aggregate of a course for one student. Unlike the
// recorder's roll-up it returns stage errors, since nothing else was written.
func (s *rollupService) Reconcile(ctx context.Context, studentID, courseID uint) (dto.CourseProgressDetailResponse, error) {
	if _, err := s.catalog.GetCourse(ctx, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseProgressDetailResponse{}, ErrCourseNotFound
		}
		return dto.CourseProgressDetailResponse{}, err
	}

	chapterIDs, err := s.catalog.ListChapterIDsByCourse(ctx, courseID)
	if err != nil {
		return dto.CourseProgressDetailResponse{}, err
	}

	for _, chapterID := range chapterIDs {
		if _, err := s.RecomputeChapter(ctx, studentID, courseID, chapterID); err != nil {
			return dto.CourseProgressDetailResponse{}, err
		}
	}

	course, err := s.RecomputeCourse(ctx, studentID, courseID)
	if err != nil {
		return dto.CourseProgressDetailResponse{}, err
	}

	if _, err := s.ProjectEnrollment(ctx, studentID, course); err != nil {
		return dto.CourseProgressDetailResponse{}, err
	}

	s.logger.Info().Uint("student_id", studentID).Uint("course_id", courseID).Int("chapters", len(chapterIDs)).Msg("course progress reconciled")

	return s.CourseDetail(ctx, studentID, courseID)
}

func (s *rollupService) CourseDetail(ctx context.Context, studentID, courseID uint) (dto.CourseProgressDetailResponse, error) {
	response := dto.CourseProgressDetailResponse{
		Course:   dto.CourseProgressResponse{Course: courseID},
		Chapters: []dto.ChapterProgressResponse{},
	}

	course, err := s.rollups.GetCourse(ctx, studentID, courseID)
	switch {
	case err == nil:
		response.Course = dto.NewCourseProgressResponse(course)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return dto.CourseProgressDetailResponse{}, err
	}

	chapters, err := s.rollups.ListChapters(ctx, studentID, courseID)
	if err != nil {
		return dto.CourseProgressDetailResponse{}, err
	}
	for _, chapter := range chapters {
		response.Chapters = append(response.Chapters, dto.NewChapterProgressResponse(chapter))
	}

	enrollment, err := s.enrollments.GetByStudentAndCourse(ctx, studentID, courseID)
	switch {
	case err == nil:
		summary := dto.NewEnrollmentSummary(enrollment)
		response.Enrollment = &summary
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return dto.CourseProgressDetailResponse{}, err
	}

	return response, nil
}

// projectEnrollment mirrors course progress into the enrollment and reports
// whether it transitioned to completed. Completion is one-way: a completed
// enrollment keeps its status even if course progress later drops.
func projectEnrollment(enrollment *models.Enrollment, course models.CourseProgress, now time.Time) bool {
	enrollment.Progress = course.ProgressPercentage
	accessed := now
	enrollment.LastAccessedAt = &accessed

	if enrollment.IsCompleted() {
		return false
	}

	if course.IsCompleted {
		enrollment.Status = models.EnrollmentStatusCompleted
		completedAt := now
		enrollment.CompletedAt = &completedAt
		return true
	}

	enrollment.Status = models.EnrollmentStatusActive
	return false
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
