package retrieval

import (
	"context"
	"fmt"
	"sync"

	"knowval/internal/config"
	"knowval/internal/domain"
	"knowval/internal/logger"
	"knowval/internal/util"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"
)

// Metadata fields the ingestion collaborator writes on every vector.
const (
	metadataContentKey = "content"
	metadataUserKey    = "user_id"
	metadataSessionKey = "session_id"
)

// PineconeRetriever implements the domain.Retriever port against a Pinecone
// index. Query text is embedded through the configured embedding service;
// MMR re-ranking happens client-side over the fetched candidate pool.
type PineconeRetriever struct {
	client    *pinecone.Client
	embedder  domain.EmbeddingService
	indexName string
	namespace string

	mu   sync.Mutex
	conn *pinecone.IndexConnection
}

// NewPineconeRetriever creates a retriever for the configured index.
// A missing API key is a configuration failure and is rejected here, at
// the point of first use.
func NewPineconeRetriever(cfg config.PineconeConfig, embedder domain.EmbeddingService) (*PineconeRetriever, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("pinecone API key cannot be empty")
	}
	if cfg.IndexName == "" {
		return nil, fmt.Errorf("pinecone index name cannot be empty")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedding service cannot be nil")
	}

	pc, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create Pinecone client: %w", err)
	}

	return &PineconeRetriever{
		client:    pc,
		embedder:  embedder,
		indexName: cfg.IndexName,
		namespace: cfg.Namespace,
	}, nil
}

func (r *PineconeRetriever) indexConn(ctx context.Context) (*pinecone.IndexConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		return r.conn, nil
	}

	idxDesc, err := r.client.DescribeIndex(ctx, r.indexName)
	if err != nil {
		return nil, fmt.Errorf("failed to describe index %s: %w", r.indexName, err)
	}

	conn, err := r.client.Index(pinecone.NewIndexConnParams{
		Host:      idxDesc.Host,
		Namespace: r.namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create index connection: %w", err)
	}

	r.conn = conn
	return conn, nil
}

// ownerFilter builds the conjunctive metadata filter for the owner scope.
// Both fields present produce a logical AND; neither returns nil (unfiltered).
func ownerFilter(owner domain.OwnerFilter) (*structpb.Struct, error) {
	var clauses []interface{}
	if owner.UserID != "" {
		clauses = append(clauses, map[string]interface{}{metadataUserKey: owner.UserID})
	}
	if owner.SessionID != "" {
		clauses = append(clauses, map[string]interface{}{metadataSessionKey: owner.SessionID})
	}

	switch len(clauses) {
	case 0:
		return nil, nil
	case 1:
		return structpb.NewStruct(clauses[0].(map[string]interface{}))
	default:
		return structpb.NewStruct(map[string]interface{}{"$and": clauses})
	}
}

// SimilaritySearch implements domain.Retriever.
func (r *PineconeRetriever) SimilaritySearch(ctx context.Context, query string, k int, owner domain.OwnerFilter) ([]domain.Chunk, error) {
	matches, err := r.query(ctx, query, k, false, owner)
	if err != nil {
		return nil, err
	}
	chunks := make([]domain.Chunk, 0, len(matches))
	for _, m := range matches {
		chunks = append(chunks, toChunk(m))
	}
	return chunks, nil
}

// MaxMarginalRelevanceSearch implements domain.Retriever. It fetches a pool
// of fetchK candidates with their vectors and greedily selects k of them,
// trading query relevance against diversity among the already-selected set.
func (r *PineconeRetriever) MaxMarginalRelevanceSearch(ctx context.Context, query string, k, fetchK int, lambda float64, owner domain.OwnerFilter) ([]domain.Chunk, error) {
	if fetchK < k {
		fetchK = k
	}

	queryVec, err := r.embedder.Generate(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := r.queryByVector(ctx, queryVec, fetchK, true, owner)
	if err != nil {
		return nil, err
	}
	if len(matches) <= k {
		chunks := make([]domain.Chunk, 0, len(matches))
		for _, m := range matches {
			chunks = append(chunks, toChunk(m))
		}
		return chunks, nil
	}

	selected := mmrSelect(queryVec, matches, k, lambda)
	chunks := make([]domain.Chunk, 0, len(selected))
	for _, m := range selected {
		chunks = append(chunks, toChunk(m))
	}
	return chunks, nil
}

// CountChunks implements domain.Retriever using filtered index statistics.
func (r *PineconeRetriever) CountChunks(ctx context.Context, owner domain.OwnerFilter) (int, error) {
	conn, err := r.indexConn(ctx)
	if err != nil {
		return 0, err
	}

	filter, err := ownerFilter(owner)
	if err != nil {
		return 0, fmt.Errorf("failed to build owner filter: %w", err)
	}

	stats, err := conn.DescribeIndexStatsFiltered(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to describe index stats: %w", err)
	}
	return int(stats.TotalVectorCount), nil
}

func (r *PineconeRetriever) query(ctx context.Context, query string, k int, includeValues bool, owner domain.OwnerFilter) ([]*pinecone.ScoredVector, error) {
	queryVec, err := r.embedder.Generate(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return r.queryByVector(ctx, queryVec, k, includeValues, owner)
}

func (r *PineconeRetriever) queryByVector(ctx context.Context, vector []float32, k int, includeValues bool, owner domain.OwnerFilter) ([]*pinecone.ScoredVector, error) {
	conn, err := r.indexConn(ctx)
	if err != nil {
		return nil, err
	}

	filter, err := ownerFilter(owner)
	if err != nil {
		return nil, fmt.Errorf("failed to build owner filter: %w", err)
	}

	result, err := conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(k),
		IncludeValues:   includeValues,
		IncludeMetadata: true,
		MetadataFilter:  filter,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}

	logger.Get().Debug("Pinecone query returned matches",
		zap.Int("requested", k),
		zap.Int("returned", len(result.Matches)))
	return result.Matches, nil
}

// mmrSelect greedily picks k matches maximizing
// lambda*sim(query, c) - (1-lambda)*max(sim(c, selected)).
func mmrSelect(queryVec []float32, matches []*pinecone.ScoredVector, k int, lambda float64) []*pinecone.ScoredVector {
	type candidate struct {
		match    *pinecone.ScoredVector
		querySim float64
	}

	candidates := make([]candidate, 0, len(matches))
	for _, m := range matches {
		if m.Vector == nil || m.Vector.Values == nil {
			continue
		}
		sim, err := util.CosineSimilarity(queryVec, *m.Vector.Values)
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{match: m, querySim: sim})
	}

	var selected []*pinecone.ScoredVector
	for len(selected) < k && len(candidates) > 0 {
		bestIdx := -1
		bestScore := 0.0
		for i, c := range candidates {
			diversityPenalty := 0.0
			for _, s := range selected {
				sim, err := util.CosineSimilarity(*c.match.Vector.Values, *s.Vector.Values)
				if err != nil {
					continue
				}
				if sim > diversityPenalty {
					diversityPenalty = sim
				}
			}
			score := lambda*c.querySim - (1-lambda)*diversityPenalty
			if bestIdx == -1 || score > bestScore {
				bestIdx = i
				bestScore = score
			}
		}
		selected = append(selected, candidates[bestIdx].match)
		candidates = append(candidates[:bestIdx], candidates[bestIdx+1:]...)
	}
	return selected
}

// toChunk maps a Pinecone match onto the domain chunk shape. Unknown
// metadata fields are preserved as source metadata.
func toChunk(m *pinecone.ScoredVector) domain.Chunk {
	chunk := domain.Chunk{Metadata: map[string]string{}}
	if m.Vector == nil {
		return chunk
	}
	chunk.ID = m.Vector.Id

	if m.Vector.Metadata != nil {
		for key, value := range m.Vector.Metadata.AsMap() {
			text, ok := value.(string)
			if !ok {
				continue
			}
			switch key {
			case metadataContentKey:
				chunk.Content = text
			case metadataUserKey:
				chunk.UserID = text
			case metadataSessionKey:
				chunk.SessionID = text
			default:
				chunk.Metadata[key] = text
			}
		}
	}
	return chunk
}

var _ domain.Retriever = (*PineconeRetriever)(nil)
