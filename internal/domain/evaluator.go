package domain

import "context"

// AnswerEvaluation is the graded result of a free-text answer against the
// source chunk and the question's keywords.
type AnswerEvaluation struct {
	Score           int      `json:"score"`
	Feedback        string   `json:"feedback"`
	KeywordsPresent []string `json:"keywords_present"`
	KeywordsMissing []string `json:"keywords_missing"`
}

// AnswerEvaluator is the port for LLM-backed grading of free-text answers.
// It complements the letter comparison used for multiple-choice scoring.
type AnswerEvaluator interface {
	EvaluateAnswer(ctx context.Context, question, userAnswer, chunkContent string, keywords []string) (*AnswerEvaluation, error)
}
