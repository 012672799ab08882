package service

import "errors"

var (
	// ErrUnauthenticated indicates no student could be resolved for the request.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrLessonNotFound indicates the referenced lesson does not exist.
	ErrLessonNotFound = errors.New("lesson not found")
	// ErrLessonCourseMismatch indicates the lesson belongs to a different course.
	ErrLessonCourseMismatch = errors.New("lesson does not belong to course")
	// ErrCourseNotFound indicates the referenced course does not exist.
	ErrCourseNotFound = errors.New("course not found")
	// ErrQuizNotAvailable indicates the lesson has no active quiz questions.
	ErrQuizNotAvailable = errors.New("quiz not available for lesson")
	// ErrUnknownQuizQuestion indicates an answer references a question outside the lesson quiz.
	ErrUnknownQuizQuestion = errors.New("answer references unknown question")
)
