package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"knowval/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testQuiz(n int) []domain.QuizItem {
	quiz := make([]domain.QuizItem, 0, n)
	questions := []string{
		"Which process produces ATP?",
		"Where does glycolysis occur?",
		"What is the role of NADH?",
		"Which membrane hosts the electron transport chain?",
		"What does the Calvin cycle fix?",
		"Which pigment absorbs red light?",
		"What is substrate-level phosphorylation?",
		"Which molecule is the terminal electron acceptor?",
		"What drives ATP synthase?",
		"Where are thylakoids found?",
	}
	for i := 0; i < n; i++ {
		quiz = append(quiz, domain.QuizItem{
			ChunkID:       i + 1,
			ChunkContent:  "source content " + questions[i%len(questions)],
			Question:      questions[i%len(questions)],
			Options:       map[string]string{"A": "one", "B": "two", "C": "three", "D": "four"},
			CorrectAnswer: "A",
			Explanation:   "explanation",
			Keywords:      []string{"keyword"},
		})
	}
	return quiz
}

func storedSession(userID string) *domain.QuizSession {
	return &domain.QuizSession{
		ID:        "sess-1",
		UserID:    userID,
		Name:      "My Session",
		CreatedAt: time.Now(),
	}
}

func storedState(quiz []domain.QuizItem, index, score int, submitted bool, answers map[int]domain.AnswerRecord) *domain.QuizState {
	if answers == nil {
		answers = map[int]domain.AnswerRecord{}
	}
	return &domain.QuizState{
		SessionID:       "sess-1",
		Quiz:            quiz,
		CurrentIndex:    index,
		UserAnswers:     answers,
		Score:           score,
		AnswerSubmitted: submitted,
	}
}

func TestCreateSession_DefaultName(t *testing.T) {
	repo := new(MockSessionRepository)
	repo.On("CreateSession", mock.Anything, mock.MatchedBy(func(s *domain.QuizSession) bool {
		return s.UserID == "user-1" && len(s.Name) > 0
	})).Return(nil)

	svc := NewSessionService(repo, new(MockAnswerEvaluator))
	session, err := svc.CreateSession(context.Background(), "user-1", "   ")

	require.NoError(t, err)
	assert.Contains(t, session.Name, "Session ")
	repo.AssertExpectations(t)
}

func TestSubmitAnswer_ScoresAndPersists(t *testing.T) {
	repo := new(MockSessionRepository)
	repo.On("GetSession", mock.Anything, "sess-1").Return(storedSession("user-1"), nil)
	repo.On("LoadState", mock.Anything, "sess-1").Return(storedState(testQuiz(2), 0, 0, false, nil), nil)
	repo.On("SaveState", mock.Anything, mock.MatchedBy(func(state *domain.QuizState) bool {
		return state.Score == domain.PointsPerQuestion && state.AnswerSubmitted && state.UserAnswers[0].IsCorrect
	})).Return(nil)

	svc := NewSessionService(repo, new(MockAnswerEvaluator))
	record, persisted, err := svc.SubmitAnswer(context.Background(), "user-1", "sess-1", "a")

	require.NoError(t, err)
	assert.True(t, persisted)
	assert.True(t, record.IsCorrect)
	assert.Equal(t, "A", record.UserChoice)
	repo.AssertExpectations(t)
}

func TestSubmitAnswer_RepeatDoesNotDoubleCount(t *testing.T) {
	quiz := testQuiz(2)
	answers := map[int]domain.AnswerRecord{
		0: {Question: quiz[0].Question, UserChoice: "A", CorrectChoice: "A", IsCorrect: true, Explanation: "explanation"},
	}
	repo := new(MockSessionRepository)
	repo.On("GetSession", mock.Anything, "sess-1").Return(storedSession("user-1"), nil)
	repo.On("LoadState", mock.Anything, "sess-1").Return(storedState(quiz, 0, 10, true, answers), nil)

	svc := NewSessionService(repo, new(MockAnswerEvaluator))
	record, persisted, err := svc.SubmitAnswer(context.Background(), "user-1", "sess-1", "B")

	require.NoError(t, err)
	assert.True(t, persisted)
	assert.Equal(t, "A", record.UserChoice, "the original record is returned unchanged")
	repo.AssertNotCalled(t, "SaveState", mock.Anything, mock.Anything)
}

func TestSubmitAnswer_InvalidChoice(t *testing.T) {
	svc := NewSessionService(new(MockSessionRepository), new(MockAnswerEvaluator))

	_, _, err := svc.SubmitAnswer(context.Background(), "user-1", "sess-1", "E")

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.CodeInvalidChoice, domainErr.Code)
}

func TestSubmitAnswer_CompletedQuiz(t *testing.T) {
	quiz := testQuiz(1)
	repo := new(MockSessionRepository)
	repo.On("GetSession", mock.Anything, "sess-1").Return(storedSession("user-1"), nil)
	repo.On("LoadState", mock.Anything, "sess-1").Return(storedState(quiz, 1, 10, false, nil), nil)

	svc := NewSessionService(repo, new(MockAnswerEvaluator))
	_, _, err := svc.SubmitAnswer(context.Background(), "user-1", "sess-1", "A")

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.CodeQuizCompleted, domainErr.Code)
}

func TestSubmitAnswer_PersistFailureStillReturnsRecord(t *testing.T) {
	repo := new(MockSessionRepository)
	repo.On("GetSession", mock.Anything, "sess-1").Return(storedSession("user-1"), nil)
	repo.On("LoadState", mock.Anything, "sess-1").Return(storedState(testQuiz(2), 0, 0, false, nil), nil)
	repo.On("SaveState", mock.Anything, mock.Anything).Return(errors.New("db offline"))

	svc := NewSessionService(repo, new(MockAnswerEvaluator))
	record, persisted, err := svc.SubmitAnswer(context.Background(), "user-1", "sess-1", "B")

	require.NoError(t, err)
	assert.False(t, persisted)
	assert.False(t, record.IsCorrect)
}

func TestAdvance_RequiresSubmittedAnswer(t *testing.T) {
	repo := new(MockSessionRepository)
	repo.On("GetSession", mock.Anything, "sess-1").Return(storedSession("user-1"), nil)
	repo.On("LoadState", mock.Anything, "sess-1").Return(storedState(testQuiz(2), 0, 0, false, nil), nil)

	svc := NewSessionService(repo, new(MockAnswerEvaluator))
	_, _, err := svc.Advance(context.Background(), "user-1", "sess-1")

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.CodeInvalidInput, domainErr.Code)
}

func TestAdvance_MovesToNextQuestion(t *testing.T) {
	repo := new(MockSessionRepository)
	repo.On("GetSession", mock.Anything, "sess-1").Return(storedSession("user-1"), nil)
	repo.On("LoadState", mock.Anything, "sess-1").Return(storedState(testQuiz(3), 0, 10, true, nil), nil)
	repo.On("SaveState", mock.Anything, mock.MatchedBy(func(state *domain.QuizState) bool {
		return state.CurrentIndex == 1 && !state.AnswerSubmitted
	})).Return(nil)

	svc := NewSessionService(repo, new(MockAnswerEvaluator))
	session, persisted, err := svc.Advance(context.Background(), "user-1", "sess-1")

	require.NoError(t, err)
	assert.True(t, persisted)
	assert.Equal(t, 1, session.CurrentIndex)
	assert.False(t, session.AnswerSubmitted)
	repo.AssertExpectations(t)
}

func TestResults_ComputesTier(t *testing.T) {
	quiz := testQuiz(10)
	answers := make(map[int]domain.AnswerRecord, 10)
	for i := 0; i < 10; i++ {
		answers[i] = domain.AnswerRecord{
			Question:      quiz[i].Question,
			UserChoice:    "A",
			CorrectChoice: "A",
			IsCorrect:     i < 7,
		}
	}
	repo := new(MockSessionRepository)
	repo.On("GetSession", mock.Anything, "sess-1").Return(storedSession("user-1"), nil)
	repo.On("LoadState", mock.Anything, "sess-1").Return(storedState(quiz, 10, 70, false, answers), nil)

	svc := NewSessionService(repo, new(MockAnswerEvaluator))
	results, err := svc.Results(context.Background(), "user-1", "sess-1")

	require.NoError(t, err)
	assert.Equal(t, 70, results.Score)
	assert.Equal(t, 100, results.MaxScore)
	assert.InDelta(t, 70.0, results.Percentage, 0.001)
	assert.Equal(t, domain.TierGood, results.Tier)
	assert.Len(t, results.Review, 10)
	// Review is ordered by question index.
	for i, entry := range results.Review {
		assert.Equal(t, i, entry.Index)
	}
}

func TestGetState_OwnershipEnforced(t *testing.T) {
	repo := new(MockSessionRepository)
	repo.On("GetSession", mock.Anything, "sess-1").Return(storedSession("someone-else"), nil)

	svc := NewSessionService(repo, new(MockAnswerEvaluator))
	_, err := svc.GetState(context.Background(), "user-1", "sess-1")

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.CodeSessionNotFound, domainErr.Code)
}

func TestGetState_NoQuizStarted(t *testing.T) {
	repo := new(MockSessionRepository)
	repo.On("GetSession", mock.Anything, "sess-1").Return(storedSession("user-1"), nil)
	repo.On("LoadState", mock.Anything, "sess-1").Return(nil, nil)

	svc := NewSessionService(repo, new(MockAnswerEvaluator))
	_, err := svc.GetState(context.Background(), "user-1", "sess-1")

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.CodeNotFound, domainErr.Code)
}

func TestStartQuiz_CreatesSessionOnFirstUse(t *testing.T) {
	repo := new(MockSessionRepository)
	repo.On("GetSession", mock.Anything, "sess-1").Return(nil, nil)
	repo.On("CreateSession", mock.Anything, mock.MatchedBy(func(s *domain.QuizSession) bool {
		return s.ID == "sess-1" && s.UserID == "user-1"
	})).Return(nil)
	repo.On("SaveState", mock.Anything, mock.MatchedBy(func(state *domain.QuizState) bool {
		return state.SessionID == "sess-1" && state.CurrentIndex == 0 && state.Score == 0
	})).Return(nil)

	svc := NewSessionService(repo, new(MockAnswerEvaluator))
	session, persisted, err := svc.StartQuiz(context.Background(), "user-1", "sess-1", testQuiz(3))

	require.NoError(t, err)
	assert.True(t, persisted)
	assert.Len(t, session.Quiz, 3)
	repo.AssertExpectations(t)
}

func TestEvaluateElaboration(t *testing.T) {
	quiz := testQuiz(2)
	repo := new(MockSessionRepository)
	repo.On("GetSession", mock.Anything, "sess-1").Return(storedSession("user-1"), nil)
	repo.On("LoadState", mock.Anything, "sess-1").Return(storedState(quiz, 0, 0, false, nil), nil)

	eval := new(MockAnswerEvaluator)
	eval.On("EvaluateAnswer", mock.Anything, quiz[1].Question, "my explanation", quiz[1].ChunkContent, quiz[1].Keywords).
		Return(&domain.AnswerEvaluation{Score: 8, Feedback: "solid", KeywordsPresent: []string{"keyword"}}, nil)

	svc := NewSessionService(repo, eval)
	result, err := svc.EvaluateElaboration(context.Background(), "user-1", "sess-1", 1, "my explanation")

	require.NoError(t, err)
	assert.Equal(t, 8, result.Score)
	eval.AssertExpectations(t)
}

func TestEvaluateElaboration_IndexOutOfRange(t *testing.T) {
	repo := new(MockSessionRepository)
	repo.On("GetSession", mock.Anything, "sess-1").Return(storedSession("user-1"), nil)
	repo.On("LoadState", mock.Anything, "sess-1").Return(storedState(testQuiz(1), 0, 0, false, nil), nil)

	svc := NewSessionService(repo, new(MockAnswerEvaluator))
	_, err := svc.EvaluateElaboration(context.Background(), "user-1", "sess-1", 5, "answer")

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.CodeInvalidInput, domainErr.Code)
}
