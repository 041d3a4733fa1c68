package domain

import "context"

// Chunk is a bounded span of source-document text with retrieval metadata.
// Chunks are created by the ingestion collaborator and are read-only here.
type Chunk struct {
	ID        string
	Content   string
	Metadata  map[string]string
	UserID    string
	SessionID string
}

// OwnerFilter restricts retrieval to one user's data. Empty fields are
// left out of the filter; both fields present means a conjunctive match.
type OwnerFilter struct {
	UserID    string
	SessionID string
}

// IsZero reports whether the filter imposes no restriction at all.
func (f OwnerFilter) IsZero() bool {
	return f.UserID == "" && f.SessionID == ""
}

// Retriever is the port for the external similarity/MMR search service.
type Retriever interface {
	// SimilaritySearch returns the k chunks closest to the query under the
	// owner filter, in the underlying index's ranking order.
	SimilaritySearch(ctx context.Context, query string, k int, owner OwnerFilter) ([]Chunk, error)

	// MaxMarginalRelevanceSearch selects k chunks from a pool of fetchK
	// candidates, trading relevance against diversity via lambda (1.0 is
	// pure relevance, 0.0 is pure diversity).
	MaxMarginalRelevanceSearch(ctx context.Context, query string, k, fetchK int, lambda float64, owner OwnerFilter) ([]Chunk, error)

	// CountChunks returns the number of chunks owned under the filter.
	CountChunks(ctx context.Context, owner OwnerFilter) (int, error)
}

// TextGenerator is the port for the external text-completion service.
// Implementations must strip code-fence markers before returning so that
// callers can parse the payload as JSON directly.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// EmbeddingService is the port for turning text into a query vector.
type EmbeddingService interface {
	Generate(ctx context.Context, text string) ([]float32, error)
}
