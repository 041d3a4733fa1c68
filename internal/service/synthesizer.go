package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"knowval/internal/domain"
	"knowval/internal/logger"

	"go.uber.org/zap"
)

// QuestionBatchSize is the number of chunks sent to the generator per call.
const QuestionBatchSize = 5

const questionBatchPromptTemplate = `You are Knowval AI, an expert Knowledge Evaluator.
Your task is to generate exactly one %s level multiple-choice question (MCQ) for each text chunk below, all focused on the topic "%s".

CRITICAL GUIDELINES:
1. Conceptual Focus: Test understanding of concepts, mechanisms, and relationships found in the chunk, not memorization of surface details.
2. Avoid Trivial Details: Never ask about page numbers, section headings, author names, or formatting.
3. Generalizability: The question must make sense to someone who studied the subject, without the chunk in front of them.
4. Self-Contained: Never use phrases like "According to the text" or "In this passage".
5. Distractors: All four options must be plausible, mutually exclusive, and of similar length. Exactly one is correct.
6. Irrelevant Chunks: If a chunk cannot support a quality question on this topic (for example a table of contents, preface, or copyright notice), set its "question" field to null.

Text chunks:
%s

Output Format (JSON):
Return only a JSON array with exactly one object per chunk, in chunk order:
[
  {
    "chunk_index": 0,
    "question": "The question text",
    "options": {"A": "...", "B": "...", "C": "...", "D": "..."},
    "correct_answer": "A",
    "explanation": "Why the correct answer is correct",
    "keywords": ["key", "concepts"]
  }
]
Do not include any text outside the JSON array.`

// QuestionSynthesizer turns batches of chunks into validated question
// candidates via the text generator.
type QuestionSynthesizer struct {
	generator domain.TextGenerator
}

func NewQuestionSynthesizer(generator domain.TextGenerator) *QuestionSynthesizer {
	return &QuestionSynthesizer{generator: generator}
}

// SynthesizeBatch requests one question per chunk and returns the candidates
// that pass structural validation. Candidates the generator marked as
// unanswerable (null question) or that fail validation are dropped silently.
// An error covers the whole batch; callers treat it as an empty batch and
// continue with the remaining chunks.
func (s *QuestionSynthesizer) SynthesizeBatch(ctx context.Context, chunks []domain.Chunk, topic, difficulty string) ([]domain.QuestionCandidate, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	prompt := fmt.Sprintf(questionBatchPromptTemplate, difficulty, topic, formatChunks(chunks))
	raw, err := s.generator.Complete(ctx, prompt)
	if err != nil {
		return nil, domain.NewLLMServiceError(err)
	}

	candidates, err := parseCandidates(raw)
	if err != nil {
		return nil, domain.NewError(domain.CodeLLMServiceError, "failed to parse generated questions", err)
	}

	valid := make([]domain.QuestionCandidate, 0, len(candidates))
	for _, cand := range candidates {
		if err := cand.Validate(); err != nil {
			logger.Get().Debug("dropping invalid question candidate",
				zap.Int("chunk_index", cand.ChunkIndex),
				zap.Error(err))
			continue
		}
		valid = append(valid, cand)
	}
	return valid, nil
}

func formatChunks(chunks []domain.Chunk) string {
	var b strings.Builder
	for i, chunk := range chunks {
		fmt.Fprintf(&b, "Chunk %d:\n\"\"\"\n%s\n\"\"\"\n\n", i, strings.TrimSpace(chunk.Content))
	}
	return b.String()
}

func parseCandidates(raw string) ([]domain.QuestionCandidate, error) {
	cleaned := strings.TrimSpace(raw)
	start := strings.IndexByte(cleaned, '[')
	end := strings.LastIndexByte(cleaned, ']')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in generator output")
	}
	var candidates []domain.QuestionCandidate
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &candidates); err != nil {
		return nil, err
	}
	return candidates, nil
}
