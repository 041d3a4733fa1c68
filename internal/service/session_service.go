package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"knowval/internal/domain"
	"knowval/internal/logger"

	"go.uber.org/zap"
)

// QuizResults summarizes a finished or in-progress session.
type QuizResults struct {
	SessionID  string
	Score      int
	MaxScore   int
	Percentage float64
	Tier       string
	Answered   int
	Total      int
	Review     []ReviewEntry
}

// ReviewEntry pairs a question index with its answer record.
type ReviewEntry struct {
	Index  int
	Record domain.AnswerRecord
}

// SessionService owns quiz session lifecycle and answer flow. Mutating
// operations return a persisted flag: when saving state fails the quiz
// still proceeds in the returned value, and the caller is told the save
// did not stick.
type SessionService interface {
	CreateSession(ctx context.Context, userID, name string) (*domain.QuizSession, error)
	ListSessions(ctx context.Context, userID string) ([]*domain.QuizSession, error)
	RenameSession(ctx context.Context, userID, sessionID, name string) error
	DeleteSession(ctx context.Context, userID, sessionID string) error

	StartQuiz(ctx context.Context, userID, sessionID string, quiz []domain.QuizItem) (*domain.QuizSession, bool, error)
	GetState(ctx context.Context, userID, sessionID string) (*domain.QuizSession, error)
	SubmitAnswer(ctx context.Context, userID, sessionID, choice string) (*domain.AnswerRecord, bool, error)
	Advance(ctx context.Context, userID, sessionID string) (*domain.QuizSession, bool, error)
	Results(ctx context.Context, userID, sessionID string) (*QuizResults, error)

	EvaluateElaboration(ctx context.Context, userID, sessionID string, questionIndex int, answer string) (*domain.AnswerEvaluation, error)
}

type sessionService struct {
	repo      domain.SessionRepository
	evaluator domain.AnswerEvaluator
}

func NewSessionService(repo domain.SessionRepository, evaluator domain.AnswerEvaluator) SessionService {
	return &sessionService{repo: repo, evaluator: evaluator}
}

func (s *sessionService) CreateSession(ctx context.Context, userID, name string) (*domain.QuizSession, error) {
	if userID == "" {
		return nil, domain.NewInvalidInputError("user id must not be empty")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultSessionName(time.Now())
	}
	session := &domain.QuizSession{
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, domain.NewPersistenceError(err)
	}
	return session, nil
}

func (s *sessionService) ListSessions(ctx context.Context, userID string) ([]*domain.QuizSession, error) {
	sessions, err := s.repo.ListSessionsByUser(ctx, userID)
	if err != nil {
		return nil, domain.NewPersistenceError(err)
	}
	return sessions, nil
}

func (s *sessionService) RenameSession(ctx context.Context, userID, sessionID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.NewInvalidInputError("session name must not be empty")
	}
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return err
	}
	if err := s.repo.UpdateSessionName(ctx, sessionID, name); err != nil {
		return domain.NewPersistenceError(err)
	}
	return nil
}

func (s *sessionService) DeleteSession(ctx context.Context, userID, sessionID string) error {
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return err
	}
	if err := s.repo.DeleteSession(ctx, sessionID); err != nil {
		return domain.NewPersistenceError(err)
	}
	return nil
}

// StartQuiz installs a freshly generated quiz into the session, resetting
// progress and score. The session row is created on first use when it does
// not exist yet.
func (s *sessionService) StartQuiz(ctx context.Context, userID, sessionID string, quiz []domain.QuizItem) (*domain.QuizSession, bool, error) {
	if len(quiz) == 0 {
		return nil, false, domain.NewInvalidInputError("quiz must contain at least one question")
	}

	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, false, domain.NewPersistenceError(err)
	}
	if session == nil {
		session = &domain.QuizSession{
			ID:        sessionID,
			UserID:    userID,
			Name:      defaultSessionName(time.Now()),
			CreatedAt: time.Now(),
		}
		if err := s.repo.CreateSession(ctx, session); err != nil {
			return nil, false, domain.NewPersistenceError(err)
		}
	} else if session.UserID != userID {
		return nil, false, domain.NewSessionNotFoundError(sessionID)
	}

	session.Quiz = quiz
	session.CurrentIndex = 0
	session.UserAnswers = make(map[int]domain.AnswerRecord)
	session.Score = 0
	session.AnswerSubmitted = false

	persisted := s.saveState(ctx, session)
	return session, persisted, nil
}

func (s *sessionService) GetState(ctx context.Context, userID, sessionID string) (*domain.QuizSession, error) {
	return s.loadOwnedState(ctx, userID, sessionID)
}

// SubmitAnswer grades the current question. Repeated submissions for the
// same question return the recorded answer without changing the score.
func (s *sessionService) SubmitAnswer(ctx context.Context, userID, sessionID, choice string) (*domain.AnswerRecord, bool, error) {
	choice = strings.ToUpper(strings.TrimSpace(choice))
	if !validChoice(choice) {
		return nil, false, domain.NewInvalidChoiceError(choice)
	}

	session, err := s.loadOwnedState(ctx, userID, sessionID)
	if err != nil {
		return nil, false, err
	}
	if session.Completed() {
		return nil, false, domain.NewError(domain.CodeQuizCompleted, "the quiz has already been completed", nil)
	}

	if session.AnswerSubmitted {
		record, ok := session.UserAnswers[session.CurrentIndex]
		if !ok {
			return nil, false, domain.NewInternalError(fmt.Sprintf("answer flag set but no record at index %d", session.CurrentIndex), nil)
		}
		return &record, true, nil
	}

	item := session.Quiz[session.CurrentIndex]
	record := domain.AnswerRecord{
		Question:      item.Question,
		UserChoice:    choice,
		CorrectChoice: item.CorrectAnswer,
		IsCorrect:     choice == item.CorrectAnswer,
		Explanation:   item.Explanation,
	}
	if session.UserAnswers == nil {
		session.UserAnswers = make(map[int]domain.AnswerRecord)
	}
	session.UserAnswers[session.CurrentIndex] = record
	if record.IsCorrect {
		session.Score += domain.PointsPerQuestion
	}
	session.AnswerSubmitted = true

	persisted := s.saveState(ctx, session)
	return &record, persisted, nil
}

// Advance moves to the next question after an answer has been submitted.
func (s *sessionService) Advance(ctx context.Context, userID, sessionID string) (*domain.QuizSession, bool, error) {
	session, err := s.loadOwnedState(ctx, userID, sessionID)
	if err != nil {
		return nil, false, err
	}
	if session.Completed() {
		return nil, false, domain.NewError(domain.CodeQuizCompleted, "the quiz has already been completed", nil)
	}
	if !session.AnswerSubmitted {
		return nil, false, domain.NewInvalidInputError("submit an answer before advancing")
	}

	session.CurrentIndex++
	session.AnswerSubmitted = false

	persisted := s.saveState(ctx, session)
	return session, persisted, nil
}

func (s *sessionService) Results(ctx context.Context, userID, sessionID string) (*QuizResults, error) {
	session, err := s.loadOwnedState(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	review := make([]ReviewEntry, 0, len(session.UserAnswers))
	for i := 0; i < len(session.Quiz); i++ {
		if record, ok := session.UserAnswers[i]; ok {
			review = append(review, ReviewEntry{Index: i, Record: record})
		}
	}

	percentage := session.Percentage()
	return &QuizResults{
		SessionID:  session.ID,
		Score:      session.Score,
		MaxScore:   session.MaxScore(),
		Percentage: percentage,
		Tier:       domain.PerformanceTier(percentage),
		Answered:   len(session.UserAnswers),
		Total:      len(session.Quiz),
		Review:     review,
	}, nil
}

// EvaluateElaboration scores a free-text explanation of a quiz question
// against its source material.
func (s *sessionService) EvaluateElaboration(ctx context.Context, userID, sessionID string, questionIndex int, answer string) (*domain.AnswerEvaluation, error) {
	if strings.TrimSpace(answer) == "" {
		return nil, domain.NewInvalidInputError("answer must not be empty")
	}
	session, err := s.loadOwnedState(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if questionIndex < 0 || questionIndex >= len(session.Quiz) {
		return nil, domain.NewInvalidInputError(fmt.Sprintf("question index %d is out of range", questionIndex))
	}

	item := session.Quiz[questionIndex]
	evaluation, err := s.evaluator.EvaluateAnswer(ctx, item.Question, answer, item.ChunkContent, item.Keywords)
	if err != nil {
		return nil, err
	}
	return evaluation, nil
}

// loadOwnedState loads the persisted quiz state together with session
// metadata, enforcing ownership.
func (s *sessionService) loadOwnedState(ctx context.Context, userID, sessionID string) (*domain.QuizSession, error) {
	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	state, err := s.repo.LoadState(ctx, sessionID)
	if err != nil {
		return nil, domain.NewPersistenceError(err)
	}
	if state == nil {
		return nil, domain.NewError(domain.CodeNotFound, "no quiz has been started for this session", nil)
	}

	session.Quiz = state.Quiz
	session.CurrentIndex = state.CurrentIndex
	session.UserAnswers = state.UserAnswers
	session.Score = state.Score
	session.AnswerSubmitted = state.AnswerSubmitted
	if session.UserAnswers == nil {
		session.UserAnswers = make(map[int]domain.AnswerRecord)
	}
	return session, nil
}

func (s *sessionService) ownedSession(ctx context.Context, userID, sessionID string) (*domain.QuizSession, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, domain.NewPersistenceError(err)
	}
	if session == nil || session.UserID != userID {
		return nil, domain.NewSessionNotFoundError(sessionID)
	}
	return session, nil
}

// saveState persists quiz state, reporting success. Failures are logged
// and surfaced as a false persisted flag rather than aborting the quiz.
func (s *sessionService) saveState(ctx context.Context, session *domain.QuizSession) bool {
	state := &domain.QuizState{
		SessionID:       session.ID,
		Quiz:            session.Quiz,
		CurrentIndex:    session.CurrentIndex,
		UserAnswers:     session.UserAnswers,
		Score:           session.Score,
		AnswerSubmitted: session.AnswerSubmitted,
	}
	if err := s.repo.SaveState(ctx, state); err != nil {
		logger.Get().Warn("failed to persist quiz state",
			zap.String("session_id", session.ID),
			zap.Error(err))
		return false
	}
	return true
}

func validChoice(choice string) bool {
	for _, letter := range domain.OptionLetters {
		if choice == letter {
			return true
		}
	}
	return false
}

func defaultSessionName(t time.Time) string {
	return "Session " + t.Format("2006-01-02 15:04")
}
