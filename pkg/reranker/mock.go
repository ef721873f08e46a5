package reranker

import (
	"context"
	"sort"
	"strings"
)

// MockRerankerClient scores passages by token overlap with the query.
// Deterministic, no external dependencies; for tests and local
// development.
type MockRerankerClient struct{}

// NewMockRerankerClient creates a new mock reranker client.
func NewMockRerankerClient() *MockRerankerClient {
	return &MockRerankerClient{}
}

// Rank scores each passage by the fraction of query tokens it contains.
func (c *MockRerankerClient) Rank(ctx context.Context, query string, passages []string) ([]RankedPassage, error) {
	if len(passages) == 0 {
		return []RankedPassage{}, nil
	}

	queryTokens := strings.Fields(strings.ToLower(query))

	ranked := make([]RankedPassage, len(passages))
	for i, passage := range passages {
		ranked[i] = RankedPassage{
			Passage: passage,
			Score:   overlapScore(queryTokens, passage),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	return ranked, nil
}

func overlapScore(queryTokens []string, passage string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	lower := strings.ToLower(passage)
	hits := 0
	for _, token := range queryTokens {
		if strings.Contains(lower, token) {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTokens))
}

// Close cleans up any resources used by the client.
func (c *MockRerankerClient) Close() error {
	return nil
}

var _ Client = (*MockRerankerClient)(nil)
