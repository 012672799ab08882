package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-progress-api/internal/dto"
	"github.com/noah-isme/lms-progress-api/internal/models"
	"github.com/noah-isme/lms-progress-api/internal/observability"
	"github.com/noah-isme/lms-progress-api/internal/repository"
)

const (
	defaultProgressPage  = 1
	defaultProgressLimit = 10
	maxProgressLimit     = 100
)

// ProgressService records lesson progress and serves progress listings.
type ProgressService interface {
	Record(ctx context.Context, user AuthenticatedUser, payload dto.ProgressUpdateRequest) (dto.ProgressRecordResult, error)
	List(ctx context.Context, user AuthenticatedUser, req dto.ProgressListRequest) (dto.ProgressListResponse, error)
	CourseDetail(ctx context.Context, user AuthenticatedUser, courseID uint) (dto.CourseProgressDetailResponse, error)
	Recompute(ctx context.Context, payload dto.RecomputeRequest) (dto.CourseProgressDetailResponse, error)
}

type progressService struct {
	catalog   repository.CatalogRepository
	progress  repository.LessonProgressRepository
	rollups   RollupService
	quizzes   QuizGate
	stats     StatsCache
	events    EventPublisher
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewProgressService wires the lesson completion recorder to the roll-up pipeline.
func NewProgressService(catalog repository.CatalogRepository, progress repository.LessonProgressRepository, rollups RollupService, quizzes QuizGate, stats StatsCache, events EventPublisher, validate *validator.Validate, logger zerolog.Logger) ProgressService {
	return &progressService{
		catalog:   catalog,
		progress:  progress,
		rollups:   rollups,
		quizzes:   quizzes,
		stats:     stats,
		events:    events,
		validator: validate,
		logger:    logger.With().Str("component", "progress_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/lms-progress-api/internal/service/progress"),
		now:       time.Now,
	}
}

func (s *progressService) Record(ctx context.Context, user AuthenticatedUser, payload dto.ProgressUpdateRequest) (dto.ProgressRecordResult, error) {
	if user.ID == 0 {
		return dto.ProgressRecordResult{}, ErrUnauthenticated
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.ProgressRecordResult{}, err
	}

	ctx, span := s.tracer.Start(ctx, "progress.record", trace.WithAttributes(
		attribute.Int64("progress.student_id", int64(user.ID)),
		attribute.Int64("progress.course_id", int64(payload.Course)),
		attribute.Int64("progress.lesson_id", int64(payload.Lesson)),
	))
	defer span.End()

	lesson, err := s.catalog.GetLesson(ctx, payload.Lesson)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProgressRecordResult{}, ErrLessonNotFound
		}
		span.RecordError(err)
		return dto.ProgressRecordResult{}, err
	}
	if lesson.CourseID != payload.Course {
		return dto.ProgressRecordResult{}, ErrLessonCourseMismatch
	}

	started := time.Now()
	record, created, completedNow, err := s.write(ctx, user.ID, payload)
	observability.ObserveRollupStage(observability.StageLesson, started, err)
	if err != nil {
		span.RecordError(err)
		return dto.ProgressRecordResult{}, err
	}
	span.SetAttributes(attribute.Bool("progress.created", created), attribute.Bool("progress.completed", record.IsCompleted))

	s.stats.Invalidate(ctx, user.ID)

	if completedNow {
		observability.Completions().WithLabelValues("lesson").Inc()
		lessonID := lesson.ID
		s.publish(ctx, ProgressEvent{
			Type:      EventLessonCompleted,
			StudentID: user.ID,
			CourseID:  lesson.CourseID,
			LessonID:  &lessonID,
			Progress:  int(math.Round(record.ProgressPercentage)),
		})
	}

	s.rollUp(ctx, user.ID, lesson)

	result := dto.ProgressRecordResult{
		Progress: dto.NewLessonProgressResponse(record),
		Created:  created,
	}

	if record.IsCompleted {
		quiz, err := s.quizzes.Descriptor(ctx, lesson.ID)
		if err != nil {
			s.logger.Warn().Err(err).Uint("lesson_id", lesson.ID).Msg("failed to count quiz questions")
		}
		result.Quiz = quiz
	}

	return result, nil
}

// write finds or creates the (student, lesson) row and applies only the
// provided fields.
func (s *progressService) write(ctx context.Context, studentID uint, payload dto.ProgressUpdateRequest) (models.LessonProgress, bool, bool, error) {
	now := s.now()

	existing, err := s.progress.FindByStudentAndLesson(ctx, studentID, payload.Lesson)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.LessonProgress{}, false, false, err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		record := models.LessonProgress{
			StudentID:      studentID,
			CourseID:       payload.Course,
			LessonID:       payload.Lesson,
			LastAccessedAt: now,
		}
		completedNow := applyProgressUpdate(&record, payload, now)
		if err := s.progress.Create(ctx, &record); err != nil {
			return models.LessonProgress{}, false, false, err
		}
		s.logger.Info().Uint("student_id", studentID).Uint("lesson_id", payload.Lesson).Msg("lesson progress created")
		return record, true, completedNow, nil
	}

	completedNow := applyProgressUpdate(&existing, payload, now)
	existing.LastAccessedAt = now
	if err := s.progress.Update(ctx, &existing); err != nil {
		return models.LessonProgress{}, false, false, err
	}

	return existing, false, completedNow, nil
}

// applyProgressUpdate patches the provided fields and reports a false->true
// completion transition. completedAt is stamped on that transition and
// cleared when completion is revoked.
func applyProgressUpdate(record *models.LessonProgress, payload dto.ProgressUpdateRequest, now time.Time) bool {
	wasCompleted := record.IsCompleted

	if payload.ProgressPercentage != nil {
		record.ProgressPercentage = *payload.ProgressPercentage
	}
	if payload.TimeSpent != nil {
		record.TimeSpent = *payload.TimeSpent
	}
	if payload.IsCompleted != nil {
		record.IsCompleted = *payload.IsCompleted
	}

	switch {
	case record.IsCompleted && !wasCompleted:
		completedAt := now
		record.CompletedAt = &completedAt
		return true
	case !record.IsCompleted && wasCompleted:
		record.CompletedAt = nil
	}

	return false
}

// rollUp runs chapter -> course -> enrollment. The lesson write has already
// succeeded, so stage failures are logged and swallowed.
func (s *progressService) rollUp(ctx context.Context, studentID uint, lesson models.Lesson) {
	logger := s.logger.With().Uint("student_id", studentID).Uint("course_id", lesson.CourseID).Logger()

	if lesson.HasChapter() {
		if _, err := s.rollups.RecomputeChapter(ctx, studentID, lesson.CourseID, *lesson.ChapterID); err != nil {
			logger.Error().Err(err).Str("stage", observability.StageChapter).Uint("chapter_id", *lesson.ChapterID).Msg("chapter roll-up failed")
		}
	}

	course, err := s.rollups.RecomputeCourse(ctx, studentID, lesson.CourseID)
	if err != nil {
		logger.Error().Err(err).Str("stage", observability.StageCourse).Msg("course roll-up failed")
		return
	}

	projection, err := s.rollups.ProjectEnrollment(ctx, studentID, course)
	if err != nil {
		logger.Error().Err(err).Str("stage", observability.StageEnrollment).Msg("enrollment projection failed")
		return
	}

	if projection.Completed {
		s.publish(ctx, ProgressEvent{
			Type:      EventCourseCompleted,
			StudentID: studentID,
			CourseID:  lesson.CourseID,
			Progress:  projection.Enrollment.Progress,
		})
	}
}

func (s *progressService) publish(ctx context.Context, event ProgressEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("type", event.Type).Msg("failed to publish progress event")
	}
}

func (s *progressService) List(ctx context.Context, user AuthenticatedUser, req dto.ProgressListRequest) (dto.ProgressListResponse, error) {
	if user.ID == 0 {
		return dto.ProgressListResponse{}, ErrUnauthenticated
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.ProgressListResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "progress.list")
	defer span.End()

	page := req.Page
	if page <= 0 {
		page = defaultProgressPage
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultProgressLimit
	}
	if limit > maxProgressLimit {
		limit = maxProgressLimit
	}

	filter := repository.ProgressFilter{
		StudentID:   req.StudentID,
		CourseID:    req.CourseID,
		LessonID:    req.LessonID,
		IsCompleted: req.IsCompleted,
		Page:        page,
		PageSize:    limit,
		SortBy:      req.SortBy,
		SortOrder:   req.SortOrder,
	}
	if !user.IsStaff() {
		studentID := user.ID
		filter.StudentID = &studentID
	}

	items, total, err := s.progress.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		return dto.ProgressListResponse{}, err
	}

	stats, err := s.statsFor(ctx, filter)
	if err != nil {
		span.RecordError(err)
		return dto.ProgressListResponse{}, err
	}

	return dto.ProgressListResponse{
		Items: dto.NewLessonProgressResponseSlice(items),
		Pagination: dto.PaginationMeta{
			Page:       page,
			Limit:      limit,
			TotalItems: total,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
		Stats: stats,
	}, nil
}

func (s *progressService) statsFor(ctx context.Context, filter repository.ProgressFilter) (dto.ProgressStats, error) {
	if cached, ok := s.stats.Get(ctx, filter); ok {
		return cached, nil
	}

	aggregate, err := s.progress.Aggregate(ctx, filter)
	if err != nil {
		return dto.ProgressStats{}, err
	}

	stats := buildProgressStats(aggregate)
	s.stats.Set(ctx, filter, stats)
	return stats, nil
}

func buildProgressStats(aggregate repository.ProgressAggregate) dto.ProgressStats {
	stats := dto.ProgressStats{
		TotalRecords:      aggregate.Total,
		CompletedRecords:  aggregate.Completed,
		InProgressRecords: aggregate.Total - aggregate.Completed,
		AverageProgress:   round2(aggregate.AverageProgress),
		TotalTimeSpent:    aggregate.TotalTimeSpent,
	}
	if aggregate.Total > 0 {
		stats.AverageTimeSpent = round2(float64(aggregate.TotalTimeSpent) / float64(aggregate.Total))
		stats.CompletionRate = round2(float64(aggregate.Completed) / float64(aggregate.Total) * 100)
	}
	return stats
}

func (s *progressService) CourseDetail(ctx context.Context, user AuthenticatedUser, courseID uint) (dto.CourseProgressDetailResponse, error) {
	if user.ID == 0 {
		return dto.CourseProgressDetailResponse{}, ErrUnauthenticated
	}

	return s.rollups.CourseDetail(ctx, user.ID, courseID)
}

func (s *progressService) Recompute(ctx context.Context, payload dto.RecomputeRequest) (dto.CourseProgressDetailResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseProgressDetailResponse{}, err
	}

	detail, err := s.rollups.Reconcile(ctx, payload.Student, payload.Course)
	if err != nil {
		return dto.CourseProgressDetailResponse{}, err
	}

	s.stats.Invalidate(ctx, payload.Student)
	return detail, nil
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
