package service

import (
	"context"
	"time"

	"knowval/internal/domain"

	"github.com/stretchr/testify/mock"
)

// MockRetriever is a mock implementation of domain.Retriever
type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) SimilaritySearch(ctx context.Context, query string, k int, owner domain.OwnerFilter) ([]domain.Chunk, error) {
	args := m.Called(ctx, query, k, owner)
	if chunks, ok := args.Get(0).([]domain.Chunk); ok {
		return chunks, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRetriever) MaxMarginalRelevanceSearch(ctx context.Context, query string, k, fetchK int, lambda float64, owner domain.OwnerFilter) ([]domain.Chunk, error) {
	args := m.Called(ctx, query, k, fetchK, lambda, owner)
	if chunks, ok := args.Get(0).([]domain.Chunk); ok {
		return chunks, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRetriever) CountChunks(ctx context.Context, owner domain.OwnerFilter) (int, error) {
	args := m.Called(ctx, owner)
	return args.Int(0), args.Error(1)
}

// MockGenerator is a mock implementation of domain.TextGenerator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// MockCache is a mock implementation of domain.Cache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCache) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockSessionRepository is a mock implementation of domain.SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) CreateSession(ctx context.Context, session *domain.QuizSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetSession(ctx context.Context, sessionID string) (*domain.QuizSession, error) {
	args := m.Called(ctx, sessionID)
	if session, ok := args.Get(0).(*domain.QuizSession); ok {
		return session, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionRepository) ListSessionsByUser(ctx context.Context, userID string) ([]*domain.QuizSession, error) {
	args := m.Called(ctx, userID)
	if sessions, ok := args.Get(0).([]*domain.QuizSession); ok {
		return sessions, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionRepository) UpdateSessionName(ctx context.Context, sessionID, name string) error {
	args := m.Called(ctx, sessionID, name)
	return args.Error(0)
}

func (m *MockSessionRepository) DeleteSession(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockSessionRepository) SaveState(ctx context.Context, state *domain.QuizState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *MockSessionRepository) LoadState(ctx context.Context, sessionID string) (*domain.QuizState, error) {
	args := m.Called(ctx, sessionID)
	if state, ok := args.Get(0).(*domain.QuizState); ok {
		return state, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockAnswerEvaluator is a mock implementation of domain.AnswerEvaluator
type MockAnswerEvaluator struct {
	mock.Mock
}

func (m *MockAnswerEvaluator) EvaluateAnswer(ctx context.Context, question, userAnswer, chunkContent string, keywords []string) (*domain.AnswerEvaluation, error) {
	args := m.Called(ctx, question, userAnswer, chunkContent, keywords)
	if eval, ok := args.Get(0).(*domain.AnswerEvaluation); ok {
		return eval, args.Error(1)
	}
	return nil, args.Error(1)
}
