package service

import (
	"context"
	"errors"
	"testing"

	"knowval/internal/config"
	"knowval/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestTopicService(gen domain.TextGenerator, retriever domain.Retriever, cacheAdapter domain.Cache) *TopicService {
	return NewTopicService(gen, retriever, cacheAdapter, &config.Config{})
}

func TestExpand_UsesGeneratorOutput(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Complete", mock.Anything, mock.Anything).
		Return("operating systems, process scheduling, context switching, preemption\n", nil)

	svc := newTestTopicService(gen, new(MockRetriever), nil)
	result := svc.Expand(context.Background(), "OS scheduling")

	assert.False(t, result.Fallback)
	assert.Equal(t, "operating systems, process scheduling, context switching, preemption", result.Query)
}

func TestExpand_FallsBackOnGeneratorError(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("rate limited"))

	svc := newTestTopicService(gen, new(MockRetriever), nil)
	result := svc.Expand(context.Background(), "OS scheduling")

	assert.True(t, result.Fallback)
	assert.Equal(t, "OS scheduling", result.Query)
	assert.Contains(t, result.Reason, "rate limited")
}

func TestExpand_FallsBackOnEmptyResult(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Complete", mock.Anything, mock.Anything).Return("  \"\"  ", nil)

	svc := newTestTopicService(gen, new(MockRetriever), nil)
	result := svc.Expand(context.Background(), "databases")

	assert.True(t, result.Fallback)
	assert.Equal(t, "databases", result.Query)
}

func TestExpand_CacheHitSkipsGenerator(t *testing.T) {
	cacheAdapter := new(MockCache)
	cacheAdapter.On("Get", mock.Anything, mock.Anything).
		Return(`{"query":"cached expansion","fallback":false}`, nil)

	gen := new(MockGenerator)
	svc := newTestTopicService(gen, new(MockRetriever), cacheAdapter)
	result := svc.Expand(context.Background(), "databases")

	assert.Equal(t, "cached expansion", result.Query)
	gen.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestDiscoverTopics_DefaultOnEmptyCorpus(t *testing.T) {
	retriever := new(MockRetriever)
	retriever.On("SimilaritySearch", mock.Anything, topicDiscoveryQuery, topicDiscoveryK, mock.Anything).
		Return([]domain.Chunk{}, nil)

	svc := newTestTopicService(new(MockGenerator), retriever, nil)
	topics := svc.DiscoverTopics(context.Background(), domain.OwnerFilter{UserID: "user-1"})

	assert.Equal(t, []string{defaultDiscoveredTopic}, topics)
}

func TestDiscoverTopics_DefaultOnRetrievalError(t *testing.T) {
	retriever := new(MockRetriever)
	retriever.On("SimilaritySearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("index offline"))

	svc := newTestTopicService(new(MockGenerator), retriever, nil)
	topics := svc.DiscoverTopics(context.Background(), domain.OwnerFilter{UserID: "user-1"})

	assert.Equal(t, []string{defaultDiscoveredTopic}, topics)
}

func TestDiscoverTopics_ParsesTopicList(t *testing.T) {
	retriever := new(MockRetriever)
	retriever.On("SimilaritySearch", mock.Anything, topicDiscoveryQuery, topicDiscoveryK, mock.Anything).
		Return([]domain.Chunk{
			testChunk("c1", longContent("chapter on thermodynamics")),
			testChunk("c2", longContent("chapter on kinetics")),
		}, nil)

	gen := new(MockGenerator)
	gen.On("Complete", mock.Anything, mock.Anything).
		Return(`["Thermodynamics", "Chemical Kinetics", "  ", "Equilibrium"]`, nil)

	svc := newTestTopicService(gen, retriever, nil)
	topics := svc.DiscoverTopics(context.Background(), domain.OwnerFilter{UserID: "user-1", SessionID: "sess-1"})

	assert.Equal(t, []string{"Thermodynamics", "Chemical Kinetics", "Equilibrium"}, topics)
}

func TestDiscoverTopics_DefaultOnUnparseableOutput(t *testing.T) {
	retriever := new(MockRetriever)
	retriever.On("SimilaritySearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.Chunk{testChunk("c1", longContent("some content"))}, nil)

	gen := new(MockGenerator)
	gen.On("Complete", mock.Anything, mock.Anything).Return("no list here", nil)

	svc := newTestTopicService(gen, retriever, nil)
	topics := svc.DiscoverTopics(context.Background(), domain.OwnerFilter{UserID: "user-1"})

	assert.Equal(t, []string{defaultDiscoveredTopic}, topics)
}

func TestSanitizeExpandedQuery(t *testing.T) {
	assert.Equal(t, "a, b, c", sanitizeExpandedQuery("\"a, b, c\"\nextra line"))
	assert.Equal(t, "plain", sanitizeExpandedQuery("  plain  "))
	assert.Equal(t, "", sanitizeExpandedQuery("   "))
}
