package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"knowval/internal/cache"
	"knowval/internal/config"
	"knowval/internal/domain"
	"knowval/internal/logger"

	"go.uber.org/zap"
)

// Expansion is the outcome of a topic expansion attempt. When Fallback is
// true the Query is the original topic unchanged and Reason records why
// expansion was skipped.
type Expansion struct {
	Query    string `json:"query"`
	Fallback bool   `json:"fallback"`
	Reason   string `json:"reason,omitempty"`
}

// topicDiscoveryQuery targets structural front-matter when probing a corpus
// for its main themes.
const topicDiscoveryQuery = "Table of Contents, Chapters, Overview, Syllabus, Introduction"

const (
	topicDiscoveryK        = 15
	topicSampleLength      = 500
	maxDiscoveredTopics    = 5
	defaultDiscoveredTopic = "General Knowledge"
)

const topicExpansionPromptTemplate = `You are Knowval AI, an expert Knowledge Evaluator.
Expand the following quiz topic into a single dense search query.
List the core concepts, sub-topics, and technical keywords a textbook section about this topic would contain, separated by commas.

Topic: "%s"

Return only the expanded query text on one line, with no preamble and no quotes.`

const topicDiscoveryPromptTemplate = `You are Knowval AI, an expert Knowledge Evaluator.
Below are excerpts from a document corpus. Identify the %d main subject areas the corpus covers.

Excerpts:
%s

Output Format (JSON):
Return only a JSON array of short topic name strings, for example: ["Topic One", "Topic Two"]`

// TopicService expands user topics into retrieval queries and discovers
// the main themes of a corpus. Both operations are best-effort: any
// failure degrades to a usable fallback instead of an error.
type TopicService struct {
	generator    domain.TextGenerator
	retriever    domain.Retriever
	cacheAdapter domain.Cache
	expansionTTL time.Duration
	discoveryTTL time.Duration
}

// NewTopicService creates a TopicService. cacheAdapter may be nil, in which
// case results are computed on every call.
func NewTopicService(generator domain.TextGenerator, retriever domain.Retriever, cacheAdapter domain.Cache, cfg *config.Config) *TopicService {
	return &TopicService{
		generator:    generator,
		retriever:    retriever,
		cacheAdapter: cacheAdapter,
		expansionTTL: cfg.ParseTTLStringOrDefault(cfg.CacheTTLs.TopicExpansion, 24*time.Hour),
		discoveryTTL: cfg.ParseTTLStringOrDefault(cfg.CacheTTLs.TopicDiscovery, time.Hour),
	}
}

// Expand turns a topic into an enriched retrieval query. It never returns
// an error: when the generator fails or produces junk, the original topic
// is used verbatim and the Expansion is marked as a fallback.
func (s *TopicService) Expand(ctx context.Context, topic string) Expansion {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Expansion{Query: topic, Fallback: true, Reason: "empty topic"}
	}

	cacheKey := cache.GenerateCacheKey("topic", "expansion", hashText(topic))
	if cached, ok := s.getCachedExpansion(ctx, cacheKey); ok {
		return cached
	}

	raw, err := s.generator.Complete(ctx, fmt.Sprintf(topicExpansionPromptTemplate, topic))
	if err != nil {
		logger.Get().Warn("topic expansion failed, using original topic",
			zap.String("topic", topic),
			zap.Error(err))
		return Expansion{Query: topic, Fallback: true, Reason: err.Error()}
	}

	expanded := sanitizeExpandedQuery(raw)
	if expanded == "" {
		return Expansion{Query: topic, Fallback: true, Reason: "empty expansion result"}
	}

	result := Expansion{Query: expanded}
	s.putCachedExpansion(ctx, cacheKey, result)
	return result
}

// DiscoverTopics probes the owner's corpus for its main subject areas.
// An empty corpus or any intermediate failure yields the default topic.
func (s *TopicService) DiscoverTopics(ctx context.Context, owner domain.OwnerFilter) []string {
	cacheKey := cache.GenerateCacheKey("topic", "discovery", ownerCacheKey(owner))
	if cached, ok := s.getCachedTopics(ctx, cacheKey); ok {
		return cached
	}

	chunks, err := s.retriever.SimilaritySearch(ctx, topicDiscoveryQuery, topicDiscoveryK, owner)
	if err != nil || len(chunks) == 0 {
		if err != nil {
			logger.Get().Warn("topic discovery retrieval failed", zap.Error(err))
		}
		return []string{defaultDiscoveredTopic}
	}

	samples := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		content := strings.TrimSpace(chunk.Content)
		if len(content) > topicSampleLength {
			content = content[:topicSampleLength]
		}
		if content != "" {
			samples = append(samples, content)
		}
	}
	if len(samples) == 0 {
		return []string{defaultDiscoveredTopic}
	}

	prompt := fmt.Sprintf(topicDiscoveryPromptTemplate, maxDiscoveredTopics, strings.Join(samples, "\n---\n"))
	raw, err := s.generator.Complete(ctx, prompt)
	if err != nil {
		logger.Get().Warn("topic discovery generation failed", zap.Error(err))
		return []string{defaultDiscoveredTopic}
	}

	topics := parseTopicList(raw)
	if len(topics) == 0 {
		return []string{defaultDiscoveredTopic}
	}
	s.putCachedTopics(ctx, cacheKey, topics)
	return topics
}

func (s *TopicService) getCachedExpansion(ctx context.Context, key string) (Expansion, bool) {
	if s.cacheAdapter == nil {
		return Expansion{}, false
	}
	data, err := s.cacheAdapter.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			logger.Get().Warn("topic expansion cache read failed", zap.Error(err))
		}
		return Expansion{}, false
	}
	var exp Expansion
	if err := json.Unmarshal([]byte(data), &exp); err != nil {
		return Expansion{}, false
	}
	return exp, true
}

func (s *TopicService) putCachedExpansion(ctx context.Context, key string, exp Expansion) {
	if s.cacheAdapter == nil {
		return
	}
	data, err := json.Marshal(exp)
	if err != nil {
		return
	}
	if err := s.cacheAdapter.Set(ctx, key, string(data), s.expansionTTL); err != nil {
		logger.Get().Warn("topic expansion cache write failed", zap.Error(err))
	}
}

func (s *TopicService) getCachedTopics(ctx context.Context, key string) ([]string, bool) {
	if s.cacheAdapter == nil {
		return nil, false
	}
	data, err := s.cacheAdapter.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			logger.Get().Warn("topic discovery cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var topics []string
	if err := json.Unmarshal([]byte(data), &topics); err != nil {
		return nil, false
	}
	return topics, len(topics) > 0
}

func (s *TopicService) putCachedTopics(ctx context.Context, key string, topics []string) {
	if s.cacheAdapter == nil {
		return
	}
	data, err := json.Marshal(topics)
	if err != nil {
		return
	}
	if err := s.cacheAdapter.Set(ctx, key, string(data), s.discoveryTTL); err != nil {
		logger.Get().Warn("topic discovery cache write failed", zap.Error(err))
	}
}

// sanitizeExpandedQuery collapses a generator reply to a single query line.
func sanitizeExpandedQuery(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if idx := strings.IndexByte(cleaned, '\n'); idx >= 0 {
		cleaned = cleaned[:idx]
	}
	cleaned = strings.Trim(strings.TrimSpace(cleaned), "\"'")
	return strings.TrimSpace(cleaned)
}

func parseTopicList(raw string) []string {
	cleaned := strings.TrimSpace(raw)
	start := strings.IndexByte(cleaned, '[')
	end := strings.LastIndexByte(cleaned, ']')
	if start < 0 || end <= start {
		return nil
	}
	var parsed []string
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &parsed); err != nil {
		return nil
	}
	topics := make([]string, 0, len(parsed))
	for _, t := range parsed {
		t = strings.TrimSpace(t)
		if t != "" {
			topics = append(topics, t)
		}
	}
	if len(topics) > maxDiscoveredTopics {
		topics = topics[:maxDiscoveredTopics]
	}
	return topics
}

func ownerCacheKey(owner domain.OwnerFilter) string {
	if owner.IsZero() {
		return "all"
	}
	return hashText(owner.UserID + "|" + owner.SessionID)
}
