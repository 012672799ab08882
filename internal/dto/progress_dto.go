package dto

import (
	"time"

	"github.com/noah-isme/lms-progress-api/internal/models"
)

// ProgressUpdateRequest is the body of POST /progress.
type ProgressUpdateRequest struct {
	Course             uint     `json:"course" validate:"required,gt=0"`
	Lesson             uint     `json:"lesson" validate:"required,gt=0"`
	IsCompleted        *bool    `json:"isCompleted"`
	ProgressPercentage *float64 `json:"progressPercentage" validate:"omitempty,gte=0,lte=100"`
	TimeSpent          *int     `json:"timeSpent" validate:"omitempty,gte=0"`
}

// ProgressListRequest carries the GET /progress filters.
type ProgressListRequest struct {
	StudentID   *uint  `json:"user"`
	CourseID    *uint  `json:"course"`
	LessonID    *uint  `json:"lesson"`
	IsCompleted *bool  `json:"isCompleted"`
	Page        int    `json:"page" validate:"gte=0"`
	Limit       int    `json:"limit" validate:"gte=0,lte=100"`
	SortBy      string `json:"sortBy" validate:"omitempty,oneof=lastAccessedAt createdAt updatedAt progressPercentage timeSpent completedAt"`
	SortOrder   string `json:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

// RecomputeRequest asks for a full roll-up of one student's course.
type RecomputeRequest struct {
	Student uint `json:"student" validate:"required,gt=0"`
	Course  uint `json:"course" validate:"required,gt=0"`
}

// LessonProgressResponse is the serialized LessonProgress row.
type LessonProgressResponse struct {
	ID                 uint       `json:"id"`
	Student            uint       `json:"student"`
	Course             uint       `json:"course"`
	Lesson             uint       `json:"lesson"`
	IsCompleted        bool       `json:"isCompleted"`
	ProgressPercentage float64    `json:"progressPercentage"`
	TimeSpent          int        `json:"timeSpent"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
	LastAccessedAt     time.Time  `json:"lastAccessedAt"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// QuizDescriptor tells the client that a completed lesson still has a quiz to take.
type QuizDescriptor struct {
	Required       bool   `json:"required"`
	QuestionsCount int64  `json:"questionsCount"`
	FetchURL       string `json:"fetchUrl"`
	SubmitURL      string `json:"submitUrl"`
}

// ProgressRecordResult is returned by the recorder to the HTTP layer.
type ProgressRecordResult struct {
	Progress LessonProgressResponse
	Created  bool
	Quiz     *QuizDescriptor
}

// ProgressRecordEnvelope is the POST /progress response body.
type ProgressRecordEnvelope struct {
	Success bool                   `json:"success"`
	Data    LessonProgressResponse `json:"data"`
	Quiz    *QuizDescriptor        `json:"quiz,omitempty"`
	Message string                 `json:"message"`
}

// ProgressStats is the read-side aggregate attached to progress listings.
type ProgressStats struct {
	TotalRecords      int64   `json:"totalRecords"`
	CompletedRecords  int64   `json:"completedRecords"`
	InProgressRecords int64   `json:"inProgressRecords"`
	AverageProgress   float64 `json:"averageProgress"`
	TotalTimeSpent    int64   `json:"totalTimeSpent"`
	AverageTimeSpent  float64 `json:"averageTimeSpent"`
	CompletionRate    float64 `json:"completionRate"`
}

// ProgressListResponse wraps a page of progress rows with stats.
type ProgressListResponse struct {
	Items      []LessonProgressResponse `json:"items"`
	Pagination PaginationMeta           `json:"pagination"`
	Stats      ProgressStats            `json:"stats"`
}

// ChapterProgressResponse is the serialized ChapterProgress row.
type ChapterProgressResponse struct {
	Chapter            uint      `json:"chapter"`
	Course             uint      `json:"course"`
	IsCompleted        bool      `json:"isCompleted"`
	ProgressPercentage int       `json:"progressPercentage"`
	TotalLessons       int       `json:"totalLessons"`
	CompletedLessons   int       `json:"completedLessons"`
	TotalTimeSpent     int       `json:"totalTimeSpent"`
	LastAccessedAt     time.Time `json:"lastAccessedAt"`
}

// CourseProgressResponse is the serialized CourseProgress row.
type CourseProgressResponse struct {
	Course             uint       `json:"course"`
	IsCompleted        bool       `json:"isCompleted"`
	ProgressPercentage int        `json:"progressPercentage"`
	TotalLessons       int        `json:"totalLessons"`
	CompletedLessons   int        `json:"completedLessons"`
	TotalTimeSpent     int        `json:"totalTimeSpent"`
	LastAccessedAt     *time.Time `json:"lastAccessedAt,omitempty"`
}

// EnrollmentSummary is the user-facing enrollment projection.
type EnrollmentSummary struct {
	ID             uint       `json:"id"`
	Course         uint       `json:"course"`
	Status         string     `json:"status"`
	Progress       int        `json:"progress"`
	LastAccessedAt *time.Time `json:"lastAccessedAt,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// CourseProgressDetailResponse bundles every roll-up level for one course.
type CourseProgressDetailResponse struct {
	Course     CourseProgressResponse    `json:"course"`
	Chapters   []ChapterProgressResponse `json:"chapters"`
	Enrollment *EnrollmentSummary        `json:"enrollment,omitempty"`
}

// NewLessonProgressResponse converts a model into a DTO.
func NewLessonProgressResponse(model models.LessonProgress) LessonProgressResponse {
	return LessonProgressResponse{
		ID:                 model.ID,
		Student:            model.StudentID,
		Course:             model.CourseID,
		Lesson:             model.LessonID,
		IsCompleted:        model.IsCompleted,
		ProgressPercentage: model.ProgressPercentage,
		TimeSpent:          model.TimeSpent,
		CompletedAt:        utcPtr(model.CompletedAt),
		LastAccessedAt:     model.LastAccessedAt.UTC(),
		CreatedAt:          model.CreatedAt.UTC(),
		UpdatedAt:          model.UpdatedAt.UTC(),
	}
}

// NewLessonProgressResponseSlice converts a slice of models into DTOs.
func NewLessonProgressResponseSlice(items []models.LessonProgress) []LessonProgressResponse {
	responses := make([]LessonProgressResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, NewLessonProgressResponse(item))
	}

	return responses
}

// NewChapterProgressResponse converts a model into a DTO.
func NewChapterProgressResponse(model models.ChapterProgress) ChapterProgressResponse {
	return ChapterProgressResponse{
		Chapter:            model.ChapterID,
		Course:             model.CourseID,
		IsCompleted:        model.IsCompleted,
		ProgressPercentage: model.ProgressPercentage,
		TotalLessons:       model.TotalLessons,
		CompletedLessons:   model.CompletedLessons,
		TotalTimeSpent:     model.TotalTimeSpent,
		LastAccessedAt:     model.LastAccessedAt.UTC(),
	}
}

// NewCourseProgressResponse converts a model into a DTO.
func NewCourseProgressResponse(model models.CourseProgress) CourseProgressResponse {
	response := CourseProgressResponse{
		Course:             model.CourseID,
		IsCompleted:        model.IsCompleted,
		ProgressPercentage: model.ProgressPercentage,
		TotalLessons:       model.TotalLessons,
		CompletedLessons:   model.CompletedLessons,
		TotalTimeSpent:     model.TotalTimeSpent,
	}
	if !model.LastAccessedAt.IsZero() {
		accessed := model.LastAccessedAt.UTC()
		response.LastAccessedAt = &accessed
	}

	return response
}

// NewEnrollmentSummary converts an enrollment into its summary DTO.
func NewEnrollmentSummary(model models.Enrollment) EnrollmentSummary {
	return EnrollmentSummary{
		ID:             model.ID,
		Course:         model.CourseID,
		Status:         model.Status,
		Progress:       model.Progress,
		LastAccessedAt: utcPtr(model.LastAccessedAt),
		CompletedAt:    utcPtr(model.CompletedAt),
	}
}

func utcPtr(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	utc := value.UTC()
	return &utc
}
