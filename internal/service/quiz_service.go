package service

import (
	"context"
	"math/rand"
	"strings"
	"sync"

	"knowval/internal/domain"
	"knowval/internal/logger"
	"knowval/internal/util"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Dynamic quiz sizing by corpus size.
const (
	smallCorpusLimit  = 50
	mediumCorpusLimit = 150
	smallQuizSize     = 10
	mediumQuizSize    = 20
	largeQuizSize     = 30
)

// minChunkLength filters out fragments too short to support a question.
const minChunkLength = 40

// boilerplateMarkers flag chunks that are usually front-matter noise.
var boilerplateMarkers = []string{
	"table of contents",
	"all rights reserved",
	"copyright ©",
	"isbn",
}

// QuizGenerationService assembles quizzes from an owner's corpus.
type QuizGenerationService interface {
	GenerateQuiz(ctx context.Context, topic, difficulty string, numQuestions int, owner domain.OwnerFilter) ([]domain.QuizItem, error)
	DiscoverTopics(ctx context.Context, owner domain.OwnerFilter) []string
}

type quizService struct {
	gateway   *RetrievalGateway
	topics    *TopicService
	synth     *QuestionSynthesizer
	threshold float64

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewQuizService creates the quiz assembly service. similarityThreshold is
// the ratio above which two question texts count as duplicates. rng drives
// chunk and option shuffling and is injectable for deterministic tests.
func NewQuizService(gateway *RetrievalGateway, topics *TopicService, synth *QuestionSynthesizer, similarityThreshold float64, rng *rand.Rand) QuizGenerationService {
	return &quizService{
		gateway:   gateway,
		topics:    topics,
		synth:     synth,
		threshold: similarityThreshold,
		rng:       rng,
	}
}

// GenerateQuiz builds a quiz of up to numQuestions validated, deduplicated
// questions on the topic. numQuestions <= 0 sizes the quiz from the corpus.
// The result may be shorter than requested when the corpus cannot support
// the full count; that is not an error.
func (s *quizService) GenerateQuiz(ctx context.Context, topic, difficulty string, numQuestions int, owner domain.OwnerFilter) ([]domain.QuizItem, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, domain.NewInvalidInputError("topic must not be empty")
	}
	difficulty = domain.NormalizeDifficulty(difficulty)

	target := numQuestions
	if target <= 0 {
		total, err := s.gateway.Count(ctx, owner)
		if err != nil {
			return nil, err
		}
		if total == 0 {
			return nil, domain.NewError(domain.CodeEmptyCorpus, "no documents have been ingested for this session", nil)
		}
		target = targetQuizSize(total)
	}

	expansion := s.topics.Expand(ctx, topic)
	if expansion.Fallback {
		logger.Get().Info("using original topic as retrieval query",
			zap.String("topic", topic),
			zap.String("reason", expansion.Reason))
	}

	retrieval, err := s.gateway.Search(ctx, expansion.Query, target*2, owner)
	if err != nil {
		return nil, err
	}

	chunks := dedupeChunks(retrieval.Chunks)
	chunks = screenChunks(chunks, expansion.Query)
	if len(chunks) == 0 {
		return nil, domain.NewError(domain.CodeEmptyCorpus, "no usable content found for this topic", nil)
	}

	s.rngMu.Lock()
	s.rng.Shuffle(len(chunks), func(i, j int) {
		chunks[i], chunks[j] = chunks[j], chunks[i]
	})
	s.rngMu.Unlock()

	quiz := make([]domain.QuizItem, 0, target)
	acceptedQuestions := make([]string, 0, target)

	for start := 0; start < len(chunks) && len(quiz) < target; start += QuestionBatchSize {
		end := start + QuestionBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		candidates, err := s.synth.SynthesizeBatch(ctx, batch, topic, difficulty)
		if err != nil {
			logger.Get().Warn("question batch failed, continuing with remaining chunks",
				zap.Int("batch_start", start),
				zap.Error(err))
			continue
		}

		for _, cand := range candidates {
			if len(quiz) >= target {
				break
			}
			if cand.ChunkIndex < 0 || cand.ChunkIndex >= len(batch) {
				continue
			}
			if isDuplicateQuestion(cand.Question, acceptedQuestions, s.threshold) {
				continue
			}
			item := s.toQuizItem(cand, batch[cand.ChunkIndex], len(quiz)+1)
			quiz = append(quiz, item)
			acceptedQuestions = append(acceptedQuestions, cand.Question)
		}
	}

	if len(quiz) < target {
		logger.Get().Info("generated fewer questions than requested",
			zap.Int("requested", target),
			zap.Int("generated", len(quiz)))
	}
	return quiz, nil
}

// DiscoverTopics surfaces the corpus's main themes for topic suggestions.
func (s *quizService) DiscoverTopics(ctx context.Context, owner domain.OwnerFilter) []string {
	return s.topics.DiscoverTopics(ctx, owner)
}

// toQuizItem reshuffles the candidate's options into a fresh letter
// assignment, tracking the correct answer by its text.
func (s *quizService) toQuizItem(cand domain.QuestionCandidate, chunk domain.Chunk, ordinal int) domain.QuizItem {
	correctText := cand.Options[cand.CorrectAnswer]
	texts := make([]string, 0, len(domain.OptionLetters))
	for _, letter := range domain.OptionLetters {
		texts = append(texts, cand.Options[letter])
	}

	s.rngMu.Lock()
	s.rng.Shuffle(len(texts), func(i, j int) {
		texts[i], texts[j] = texts[j], texts[i]
	})
	s.rngMu.Unlock()

	options := make(map[string]string, len(texts))
	correctLetter := ""
	for i, letter := range domain.OptionLetters {
		options[letter] = texts[i]
		if texts[i] == correctText {
			correctLetter = letter
		}
	}

	return domain.QuizItem{
		ChunkID:       ordinal,
		ChunkContent:  chunk.Content,
		Question:      cand.Question,
		Options:       options,
		CorrectAnswer: correctLetter,
		Explanation:   cand.Explanation,
		Keywords:      cand.Keywords,
	}
}

// targetQuizSize maps corpus size to quiz length.
func targetQuizSize(totalChunks int) int {
	switch {
	case totalChunks < smallCorpusLimit:
		return smallQuizSize
	case totalChunks < mediumCorpusLimit:
		return mediumQuizSize
	default:
		return largeQuizSize
	}
}

// dedupeChunks removes exact content duplicates, keeping the first
// occurrence so retrieval ranking survives.
func dedupeChunks(chunks []domain.Chunk) []domain.Chunk {
	seen := make(map[string]struct{}, len(chunks))
	unique := make([]domain.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		key := hashText(chunk.Content)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, chunk)
	}
	return unique
}

// screenChunks drops chunks that cannot support a question: too short, or
// boilerplate front-matter with no fuzzy match against the query terms.
func screenChunks(chunks []domain.Chunk, query string) []domain.Chunk {
	terms := queryTerms(query)
	return lo.Filter(chunks, func(chunk domain.Chunk, _ int) bool {
		return isChunkRelevant(chunk, terms)
	})
}

func isChunkRelevant(chunk domain.Chunk, terms []string) bool {
	content := strings.TrimSpace(chunk.Content)
	if len(content) < minChunkLength {
		return false
	}
	lower := strings.ToLower(content)
	for _, marker := range boilerplateMarkers {
		if !strings.Contains(lower, marker) {
			continue
		}
		// Boilerplate is kept only when it still mentions the topic.
		for _, term := range terms {
			if fuzzy.MatchFold(term, lower) {
				return true
			}
		}
		return false
	}
	return true
}

func queryTerms(query string) []string {
	fields := strings.FieldsFunc(query, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if len(f) > 3 {
			terms = append(terms, f)
		}
	}
	return terms
}

// isDuplicateQuestion reports whether the question is a near copy of one
// already accepted, using character-level sequence similarity.
func isDuplicateQuestion(question string, accepted []string, threshold float64) bool {
	for _, existing := range accepted {
		if util.SimilarityRatio(question, existing) > threshold {
			return true
		}
	}
	return false
}
