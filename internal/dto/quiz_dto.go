package dto

// QuizQuestionResponse is a question as shown to a student; the answer key is never serialized.
type QuizQuestionResponse struct {
	ID      uint     `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Points  float64  `json:"points"`
	Order   int      `json:"order"`
}

// QuizResponse lists the active questions for a lesson.
type QuizResponse struct {
	Lesson       uint                   `json:"lesson"`
	PassingScore float64                `json:"passingScore"`
	Questions    []QuizQuestionResponse `json:"questions"`
}

// QuizAnswer is a single chosen option.
type QuizAnswer struct {
	QuestionID uint `json:"questionId" validate:"required,gt=0"`
	Option     *int `json:"option" validate:"required,gte=0"`
}

// QuizSubmitRequest is the body of POST /lessons/:lessonId/quiz/submit.
type QuizSubmitRequest struct {
	Answers []QuizAnswer `json:"answers" validate:"required,min=1,dive"`
}

// QuizQuestionResult reports the outcome of one answered question.
type QuizQuestionResult struct {
	QuestionID uint    `json:"questionId"`
	Correct    bool    `json:"correct"`
	Points     float64 `json:"points"`
}

// QuizResultResponse is the graded attempt.
type QuizResultResponse struct {
	AttemptID    uint                 `json:"attemptId"`
	Lesson       uint                 `json:"lesson"`
	Score        float64              `json:"score"`
	MaxScore     float64              `json:"maxScore"`
	Percentage   float64              `json:"percentage"`
	PassingScore float64              `json:"passingScore"`
	Passed       bool                 `json:"passed"`
	Results      []QuizQuestionResult `json:"results"`
}
