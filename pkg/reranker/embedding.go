package reranker

import (
	"context"
	"fmt"
	"sort"

	"github.com/quarrylabs/stratum/pkg/embedder"
	"github.com/quarrylabs/stratum/pkg/utils"
)

// EmbeddingRerankerClient ranks passages by cosine similarity between
// query and passage embeddings. Not a true cross-encoder (which
// processes query-document pairs together), but it provides good
// reranking performance using bi-encoder embeddings.
type EmbeddingRerankerClient struct {
	embedder embedder.Client
	config   Config
}

// NewEmbeddingRerankerClient creates a new embedding-based reranker client.
func NewEmbeddingRerankerClient(embedderClient embedder.Client, config Config) *EmbeddingRerankerClient {
	return &EmbeddingRerankerClient{
		embedder: embedderClient,
		config:   config,
	}
}

// Rank ranks the given passages by embedding similarity to the query.
func (c *EmbeddingRerankerClient) Rank(ctx context.Context, query string, passages []string) ([]RankedPassage, error) {
	if len(passages) == 0 {
		return []RankedPassage{}, nil
	}
	if c.embedder == nil {
		return nil, fmt.Errorf("embedder client is nil")
	}

	queryEmbedding, err := c.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to create query embedding: %w", err)
	}
	if len(queryEmbedding) == 0 {
		return nil, fmt.Errorf("query embedding is empty")
	}

	passageEmbeddings, err := c.embedder.Embed(ctx, passages)
	if err != nil {
		return nil, fmt.Errorf("failed to create passage embeddings: %w", err)
	}
	if len(passageEmbeddings) != len(passages) {
		return nil, fmt.Errorf("expected %d passage embeddings, got %d", len(passages), len(passageEmbeddings))
	}

	ranked := make([]RankedPassage, len(passages))
	for i, passage := range passages {
		ranked[i] = RankedPassage{
			Passage: passage,
			Score:   utils.CosineSimilarity(queryEmbedding, passageEmbeddings[i]),
		}
	}

	// Stable so equal scores keep their input order.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	return ranked, nil
}

// Close cleans up any resources used by the client.
func (c *EmbeddingRerankerClient) Close() error {
	return nil
}

var _ Client = (*EmbeddingRerankerClient)(nil)
