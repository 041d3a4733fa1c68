package evaluator

import (
	"context"
	"errors"
	"testing"

	"knowval/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func TestEvaluateAnswer_ParsesResponse(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Complete", mock.Anything, mock.Anything).Return(`{
		"score": 8,
		"feedback": "Good coverage of the main mechanism.",
		"keywords_present": ["osmosis"],
		"keywords_missing": ["diffusion"]
	}`, nil)

	eval := NewLLMEvaluator(gen)
	result, err := eval.EvaluateAnswer(context.Background(), "q", "answer", "chunk", []string{"osmosis", "diffusion"})

	require.NoError(t, err)
	assert.Equal(t, 8, result.Score)
	assert.Equal(t, []string{"osmosis"}, result.KeywordsPresent)
	assert.Equal(t, []string{"diffusion"}, result.KeywordsMissing)
}

func TestEvaluateAnswer_ExtractsObjectFromSurroundingText(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Complete", mock.Anything, mock.Anything).
		Return("Sure, here is my evaluation: {\"score\": 5, \"feedback\": \"Partially correct.\", \"keywords_present\": [], \"keywords_missing\": []} Done.", nil)

	eval := NewLLMEvaluator(gen)
	result, err := eval.EvaluateAnswer(context.Background(), "q", "answer", "chunk", nil)

	require.NoError(t, err)
	assert.Equal(t, 5, result.Score)
}

func TestEvaluateAnswer_ClampsScore(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Complete", mock.Anything, mock.Anything).
		Return(`{"score": 42, "feedback": "overzealous", "keywords_present": [], "keywords_missing": []}`, nil)

	eval := NewLLMEvaluator(gen)
	result, err := eval.EvaluateAnswer(context.Background(), "q", "answer", "chunk", nil)

	require.NoError(t, err)
	assert.Equal(t, 10, result.Score)
}

func TestEvaluateAnswer_FallbackOnUnparseableResponse(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Complete", mock.Anything, mock.Anything).Return("I cannot grade this.", nil)

	eval := NewLLMEvaluator(gen)
	result, err := eval.EvaluateAnswer(context.Background(), "q", "answer", "chunk", []string{"k1", "k2"})

	require.NoError(t, err, "parse failures degrade, they do not error")
	assert.Equal(t, 0, result.Score)
	assert.Equal(t, []string{"k1", "k2"}, result.KeywordsMissing)
}

func TestEvaluateAnswer_GeneratorErrorSurfaces(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("model offline"))

	eval := NewLLMEvaluator(gen)
	_, err := eval.EvaluateAnswer(context.Background(), "q", "answer", "chunk", nil)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.CodeLLMServiceError, domainErr.Code)
}
