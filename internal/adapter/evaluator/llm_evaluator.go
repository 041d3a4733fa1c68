package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"knowval/internal/domain"
	"knowval/internal/logger"

	"go.uber.org/zap"
)

// llmEvaluator implements domain.AnswerEvaluator on top of the text
// generation port. It grades free-text answers against the source chunk
// and the question's keywords.
type llmEvaluator struct {
	generator domain.TextGenerator
}

// NewLLMEvaluator creates a new instance of llmEvaluator
func NewLLMEvaluator(generator domain.TextGenerator) domain.AnswerEvaluator {
	return &llmEvaluator{generator: generator}
}

const evaluationPromptTemplate = `You are Knowval AI, an expert Knowledge Evaluator using Bloom's Taxonomy.

Context (Chunk):
"%s"

Question:
"%s"

User's Answer:
"%s"

Required Keywords/Phrases:
%s

Task:
1. Check if the user's answer is contextually relevant to the provided chunk.
2. Check if the required keywords (or their semantic equivalents) are present.
3. Evaluate the depth of understanding based on Bloom's Taxonomy.
4. Assign a score out of 10 (0 = completely wrong/irrelevant, 10 = perfect).
5. Provide constructive feedback and suggestions for improvement.

Output Format (JSON):
{
    "score": 8,
    "feedback": "Good answer, but you missed the concept of...",
    "keywords_present": ["keyword1"],
    "keywords_missing": ["keyword2", "keyword3"]
}`

// EvaluateAnswer implements domain.AnswerEvaluator. A response that cannot
// be parsed degrades to a zero-score evaluation listing every keyword as
// missing; it never fails the caller.
func (e *llmEvaluator) EvaluateAnswer(ctx context.Context, question, userAnswer, chunkContent string, keywords []string) (*domain.AnswerEvaluation, error) {
	l := logger.Get()

	prompt := fmt.Sprintf(evaluationPromptTemplate, chunkContent, question, userAnswer, strings.Join(keywords, ", "))

	rawResponse, err := e.generator.Complete(ctx, prompt)
	if err != nil {
		l.Error("LLM evaluation call failed", zap.Error(err))
		return nil, domain.NewLLMServiceError(err)
	}

	cleaned := strings.TrimSpace(rawResponse)
	jsonStart := strings.Index(cleaned, "{")
	jsonEnd := strings.LastIndex(cleaned, "}")
	if jsonStart == -1 || jsonEnd <= jsonStart {
		l.Warn("No JSON object found in evaluation response, returning fallback",
			zap.String("raw_response", cleaned))
		return fallbackEvaluation(keywords), nil
	}

	var evaluation domain.AnswerEvaluation
	if errUnmarshal := json.Unmarshal([]byte(cleaned[jsonStart:jsonEnd+1]), &evaluation); errUnmarshal != nil {
		l.Warn("Failed to unmarshal evaluation response, returning fallback",
			zap.Error(errUnmarshal),
			zap.String("raw_response", cleaned))
		return fallbackEvaluation(keywords), nil
	}

	if evaluation.Score < 0 {
		evaluation.Score = 0
	}
	if evaluation.Score > 10 {
		evaluation.Score = 10
	}
	return &evaluation, nil
}

func fallbackEvaluation(keywords []string) *domain.AnswerEvaluation {
	return &domain.AnswerEvaluation{
		Score:           0,
		Feedback:        "Error evaluating answer.",
		KeywordsPresent: []string{},
		KeywordsMissing: keywords,
	}
}
