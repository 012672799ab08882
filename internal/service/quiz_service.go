package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/lms-progress-api/internal/dto"
	"github.com/noah-isme/lms-progress-api/internal/models"
	"github.com/noah-isme/lms-progress-api/internal/observability"
	"github.com/noah-isme/lms-progress-api/internal/repository"
)

// QuizGate decides whether a completed lesson must surface a quiz.
type QuizGate interface {
	Descriptor(ctx context.Context, lessonID uint) (*dto.QuizDescriptor, error)
}

// QuizService serves lesson quizzes and grades attempts.
type QuizService interface {
	QuizGate
	Get(ctx context.Context, lessonID uint) (dto.QuizResponse, error)
	Submit(ctx context.Context, user AuthenticatedUser, lessonID uint, payload dto.QuizSubmitRequest) (dto.QuizResultResponse, error)
}

type quizService struct {
	catalog      repository.CatalogRepository
	quizzes      repository.QuizRepository
	validator    *validator.Validate
	sanitizer    *bluemonday.Policy
	basePath     string
	passingScore float64
	logger       zerolog.Logger
	tracer       trace.Tracer
}

// NewQuizService constructs the quiz service. basePath prefixes the fetch and
// submit URLs handed to clients.
func NewQuizService(catalog repository.CatalogRepository, quizzes repository.QuizRepository, validate *validator.Validate, basePath string, passingScore float64, logger zerolog.Logger) QuizService {
	if passingScore <= 0 || passingScore > 100 {
		passingScore = 70
	}

	return &quizService{
		catalog:      catalog,
		quizzes:      quizzes,
		validator:    validate,
		sanitizer:    bluemonday.StrictPolicy(),
		basePath:     strings.TrimRight(basePath, "/"),
		passingScore: passingScore,
		logger:       logger.With().Str("component", "quiz_service").Logger(),
		tracer:       otel.Tracer("github.com/noah-isme/lms-progress-api/internal/service/quiz"),
	}
}

// Descriptor returns nil when the lesson has no active questions.
func (s *quizService) Descriptor(ctx context.Context, lessonID uint) (*dto.QuizDescriptor, error) {
	count, err := s.quizzes.CountActiveByLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	return &dto.QuizDescriptor{
		Required:       true,
		QuestionsCount: count,
		FetchURL:       fmt.Sprintf("%s/lessons/%d/quiz", s.basePath, lessonID),
		SubmitURL:      fmt.Sprintf("%s/lessons/%d/quiz/submit", s.basePath, lessonID),
	}, nil
}

func (s *quizService) Get(ctx context.Context, lessonID uint) (dto.QuizResponse, error) {
	questions, err := s.activeQuestions(ctx, lessonID)
	if err != nil {
		return dto.QuizResponse{}, err
	}

	response := dto.QuizResponse{
		Lesson:       lessonID,
		PassingScore: s.passingScore,
		Questions:    make([]dto.QuizQuestionResponse, 0, len(questions)),
	}
	for _, question := range questions {
		options, err := decodeOptions(question.Options)
		if err != nil {
			s.logger.Warn().Err(err).Uint("question_id", question.ID).Msg("skipping question with malformed options")
			continue
		}
		for i := range options {
			options[i] = s.sanitizer.Sanitize(options[i])
		}

		response.Questions = append(response.Questions, dto.QuizQuestionResponse{
			ID:      question.ID,
			Prompt:  s.sanitizer.Sanitize(question.Prompt),
			Options: options,
			Points:  questionPoints(question),
			Order:   question.Order,
		})
	}

	return response, nil
}

func (s *quizService) Submit(ctx context.Context, user AuthenticatedUser, lessonID uint, payload dto.QuizSubmitRequest) (dto.QuizResultResponse, error) {
	if user.ID == 0 {
		return dto.QuizResultResponse{}, ErrUnauthenticated
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuizResultResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "quiz.submit", trace.WithAttributes(
		attribute.Int64("quiz.lesson_id", int64(lessonID)),
		attribute.Int64("quiz.student_id", int64(user.ID)),
	))
	defer span.End()

	questions, err := s.activeQuestions(ctx, lessonID)
	if err != nil {
		span.RecordError(err)
		return dto.QuizResultResponse{}, err
	}

	answers := make(map[uint]int, len(payload.Answers))
	known := make(map[uint]struct{}, len(questions))
	for _, question := range questions {
		known[question.ID] = struct{}{}
	}
	for _, answer := range payload.Answers {
		if _, ok := known[answer.QuestionID]; !ok {
			return dto.QuizResultResponse{}, ErrUnknownQuizQuestion
		}
		answers[answer.QuestionID] = *answer.Option
	}

	result := dto.QuizResultResponse{
		Lesson:       lessonID,
		PassingScore: s.passingScore,
		Results:      make([]dto.QuizQuestionResult, 0, len(questions)),
	}
	for _, question := range questions {
		points := questionPoints(question)
		result.MaxScore += points

		chosen, answered := answers[question.ID]
		correct := answered && chosen == question.CorrectOption
		awarded := 0.0
		if correct {
			awarded = points
			result.Score += points
		}
		result.Results = append(result.Results, dto.QuizQuestionResult{
			QuestionID: question.ID,
			Correct:    correct,
			Points:     awarded,
		})
	}

	if result.MaxScore > 0 {
		result.Percentage = math.Round(result.Score/result.MaxScore*10000) / 100
	}
	result.Passed = result.Percentage >= s.passingScore

	encoded, err := json.Marshal(payload.Answers)
	if err != nil {
		return dto.QuizResultResponse{}, err
	}

	attempt := models.QuizAttempt{
		StudentID:  user.ID,
		LessonID:   lessonID,
		Score:      result.Score,
		MaxScore:   result.MaxScore,
		Percentage: result.Percentage,
		Passed:     result.Passed,
		Answers:    datatypes.JSON(encoded),
	}
	if err := s.quizzes.CreateAttempt(ctx, &attempt); err != nil {
		span.RecordError(err)
		return dto.QuizResultResponse{}, err
	}
	result.AttemptID = attempt.ID

	outcome := "failed"
	if result.Passed {
		outcome = "passed"
	}
	observability.QuizAttempts().WithLabelValues(outcome).Inc()
	span.SetAttributes(attribute.Float64("quiz.percentage", result.Percentage), attribute.Bool("quiz.passed", result.Passed))

	s.logger.Info().
		Uint("student_id", user.ID).
		Uint("lesson_id", lessonID).
		Float64("percentage", result.Percentage).
		Bool("passed", result.Passed).
		Msg("quiz attempt graded")

	return result, nil
}

func (s *quizService) activeQuestions(ctx context.Context, lessonID uint) ([]models.LessonQuizQuestion, error) {
	if _, err := s.catalog.GetLesson(ctx, lessonID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLessonNotFound
		}
		return nil, err
	}

	questions, err := s.quizzes.ListActiveByLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, ErrQuizNotAvailable
	}

	return questions, nil
}

func decodeOptions(raw datatypes.JSON) ([]string, error) {
	if len(raw) == 0 {
		return []string{}, nil
	}

	var options []string
	if err := json.Unmarshal(raw, &options); err != nil {
		return nil, err
	}
	return options, nil
}

func questionPoints(question models.LessonQuizQuestion) float64 {
	if question.Points <= 0 {
		return 1
	}
	return question.Points
}
