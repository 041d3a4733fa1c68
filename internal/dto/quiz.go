package dto

// GenerateQuizRequest represents the quiz generation request body
// @Description Request body for generating a quiz from ingested documents
type GenerateQuizRequest struct {
	SessionID    string `json:"session_id"`
	Topic        string `json:"topic"`
	Difficulty   string `json:"difficulty"`
	NumQuestions int    `json:"num_questions"`
}

// QuizItemResponse represents a single question in the API response
// @Description A multiple-choice question with its options
type QuizItemResponse struct {
	Index    int               `json:"index"`
	Question string            `json:"question"`
	Options  map[string]string `json:"options"`
}

// GenerateQuizResponse represents a freshly generated quiz
type GenerateQuizResponse struct {
	SessionID string             `json:"session_id"`
	Requested int                `json:"requested"`
	Generated int                `json:"generated"`
	Persisted bool               `json:"persisted"`
	Questions []QuizItemResponse `json:"questions"`
}

// QuizStateResponse represents the current position in a quiz
type QuizStateResponse struct {
	SessionID       string            `json:"session_id"`
	CurrentIndex    int               `json:"current_index"`
	TotalQuestions  int               `json:"total_questions"`
	Score           int               `json:"score"`
	AnswerSubmitted bool              `json:"answer_submitted"`
	Completed       bool              `json:"completed"`
	Question        *QuizItemResponse `json:"question,omitempty"`
}

// SubmitAnswerRequest represents a user's choice for the current question
// @Description Request body for answering the current question
type SubmitAnswerRequest struct {
	Choice string `json:"choice"`
}

// SubmitAnswerResponse represents the grading result for one answer
type SubmitAnswerResponse struct {
	IsCorrect     bool   `json:"is_correct"`
	CorrectChoice string `json:"correct_choice"`
	Explanation   string `json:"explanation"`
	Score         int    `json:"score"`
	Persisted     bool   `json:"persisted"`
}

// AnswerReviewResponse represents one graded answer in the results review
type AnswerReviewResponse struct {
	Index         int    `json:"index"`
	Question      string `json:"question"`
	UserChoice    string `json:"user_choice"`
	CorrectChoice string `json:"correct_choice"`
	IsCorrect     bool   `json:"is_correct"`
	Explanation   string `json:"explanation"`
}

// QuizResultsResponse represents the final report for a session
// @Description Score summary with a per-question review
type QuizResultsResponse struct {
	SessionID  string                 `json:"session_id"`
	Score      int                    `json:"score"`
	MaxScore   int                    `json:"max_score"`
	Percentage float64                `json:"percentage"`
	Tier       string                 `json:"tier"`
	Answered   int                    `json:"answered"`
	Total      int                    `json:"total"`
	Review     []AnswerReviewResponse `json:"review"`
}

// DiscoverTopicsResponse represents suggested quiz topics for a corpus
type DiscoverTopicsResponse struct {
	Topics []string `json:"topics"`
}

// EvaluateElaborationRequest represents a free-text explanation to grade
// @Description Request body for evaluating a written explanation of a question
type EvaluateElaborationRequest struct {
	QuestionIndex int    `json:"question_index"`
	Answer        string `json:"answer"`
}

// EvaluateElaborationResponse represents the rubric-based evaluation result
type EvaluateElaborationResponse struct {
	Score           int      `json:"score"`
	Feedback        string   `json:"feedback"`
	KeywordsPresent []string `json:"keywords_present"`
	KeywordsMissing []string `json:"keywords_missing"`
}

// ErrorResponse represents an error in the API response
type ErrorResponse struct {
	Error string `json:"error"`
}
