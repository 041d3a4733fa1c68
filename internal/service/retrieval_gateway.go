package service

import (
	"context"

	"knowval/internal/domain"
	"knowval/internal/logger"

	"go.uber.org/zap"
)

// SearchMode identifies which retrieval strategy actually served a request.
type SearchMode string

const (
	SearchModeMMR        SearchMode = "max_marginal_relevance"
	SearchModeSimilarity SearchMode = "similarity"
)

// RetrievalPoolMultiplier sizes the MMR candidate pool relative to k.
const RetrievalPoolMultiplier = 3

// Retrieval is the result of a gateway search. Fallback marks results that
// were served by plain similarity search because MMR failed; callers can
// continue with degraded diversity.
type Retrieval struct {
	Chunks   []domain.Chunk
	Mode     SearchMode
	Fallback bool
	Reason   string
}

// RetrievalGateway wraps the retriever port with the fallback policy:
// diversity-aware MMR first, plain similarity with the same k when MMR
// fails. Retrieval order beyond the index's own ranking is not guaranteed.
type RetrievalGateway struct {
	retriever domain.Retriever
	mmrLambda float64
}

// NewRetrievalGateway creates a gateway with the given relevance/diversity
// trade-off constant.
func NewRetrievalGateway(retriever domain.Retriever, mmrLambda float64) *RetrievalGateway {
	return &RetrievalGateway{
		retriever: retriever,
		mmrLambda: mmrLambda,
	}
}

// Search retrieves up to k chunks for the query under the owner filter.
func (g *RetrievalGateway) Search(ctx context.Context, query string, k int, owner domain.OwnerFilter) (*Retrieval, error) {
	chunks, err := g.retriever.MaxMarginalRelevanceSearch(ctx, query, k, k*RetrievalPoolMultiplier, g.mmrLambda, owner)
	if err == nil {
		return &Retrieval{Chunks: chunks, Mode: SearchModeMMR}, nil
	}

	logger.Get().Warn("MMR search failed, falling back to similarity search",
		zap.Error(err),
		zap.Int("k", k))

	chunks, simErr := g.retriever.SimilaritySearch(ctx, query, k, owner)
	if simErr != nil {
		return nil, domain.NewRetrievalError(simErr)
	}
	return &Retrieval{
		Chunks:   chunks,
		Mode:     SearchModeSimilarity,
		Fallback: true,
		Reason:   err.Error(),
	}, nil
}

// Count returns the number of chunks owned under the filter.
func (g *RetrievalGateway) Count(ctx context.Context, owner domain.OwnerFilter) (int, error) {
	count, err := g.retriever.CountChunks(ctx, owner)
	if err != nil {
		return 0, domain.NewRetrievalError(err)
	}
	return count, nil
}
