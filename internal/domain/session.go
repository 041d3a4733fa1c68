package domain

import (
	"context"
	"time"
)

// PointsPerQuestion is awarded once per correctly answered question.
const PointsPerQuestion = 10

// AnswerRecord captures one submitted answer. Records are created once per
// question and are immutable thereafter.
type AnswerRecord struct {
	Question      string `json:"question"`
	UserChoice    string `json:"user_choice"`
	CorrectChoice string `json:"correct_choice"`
	IsCorrect     bool   `json:"is_correct"`
	Explanation   string `json:"explanation"`
}

// QuizSession is the resumable unit of quiz progress, exclusively owned by
// one user. The session store is its sole writer.
type QuizSession struct {
	ID              string
	UserID          string
	Name            string
	CreatedAt       time.Time
	Quiz            []QuizItem
	CurrentIndex    int
	UserAnswers     map[int]AnswerRecord
	Score           int
	AnswerSubmitted bool
}

// Completed reports whether the index has advanced past the last question.
// The store does not enforce this transition; callers observe it.
func (s *QuizSession) Completed() bool {
	return len(s.Quiz) > 0 && s.CurrentIndex >= len(s.Quiz)
}

// MaxScore is the score a perfect run of this session's quiz would yield.
func (s *QuizSession) MaxScore() int {
	return len(s.Quiz) * PointsPerQuestion
}

// Percentage is the score as a fraction of MaxScore, in percent.
func (s *QuizSession) Percentage() float64 {
	max := s.MaxScore()
	if max == 0 {
		return 0
	}
	return float64(s.Score) / float64(max) * 100
}

// Performance tiers for a finished quiz.
const (
	TierExcellent        = "Excellent"
	TierGood             = "Good"
	TierNeedsImprovement = "Needs Improvement"
)

// PerformanceTier maps a percentage to a tier: >=80 Excellent, >=50 Good,
// below that Needs Improvement.
func PerformanceTier(percentage float64) string {
	switch {
	case percentage >= 80:
		return TierExcellent
	case percentage >= 50:
		return TierGood
	default:
		return TierNeedsImprovement
	}
}

// QuizState is the persisted progress tuple for one session. SaveState is
// an upsert keyed by SessionID; saving the same tuple twice is observably
// a no-op.
type QuizState struct {
	SessionID       string
	Quiz            []QuizItem
	CurrentIndex    int
	UserAnswers     map[int]AnswerRecord
	Score           int
	AnswerSubmitted bool
}

// SessionRepository is the port for session metadata and quiz-state
// persistence. Lookups return (nil, nil) when nothing is stored.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *QuizSession) error
	GetSession(ctx context.Context, sessionID string) (*QuizSession, error)
	ListSessionsByUser(ctx context.Context, userID string) ([]*QuizSession, error)
	UpdateSessionName(ctx context.Context, sessionID, name string) error
	DeleteSession(ctx context.Context, sessionID string) error

	SaveState(ctx context.Context, state *QuizState) error
	LoadState(ctx context.Context, sessionID string) (*QuizState, error)
}
