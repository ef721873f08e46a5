package reranker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrylabs/stratum/pkg/config"
)

func TestMockRerankerRanksByOverlap(t *testing.T) {
	t.Parallel()
	client := NewMockRerankerClient()
	defer client.Close()

	ctx := context.Background()
	query := "bearing vibration analysis"
	passages := []string{
		"The weather is nice today",
		"Bearing vibration readings exceeded the alarm threshold",
		"Vibration analysis of the main bearing assembly",
	}

	results, err := client.Rank(ctx, query, passages)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, passages[2], results[0].Passage)
	assert.Equal(t, passages[1], results[1].Passage)
	assert.Equal(t, passages[0], results[2].Passage)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestMockRerankerEmptyPassages(t *testing.T) {
	t.Parallel()
	client := NewMockRerankerClient()
	results, err := client.Rank(context.Background(), "query", nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

// fixedEmbedder returns canned vectors keyed by text.
type fixedEmbedder struct {
	vectors map[string][]float32
}

func (f *fixedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = f.vectors[text]
	}
	return out, nil
}

func (f *fixedEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return f.vectors[text], nil
}

func (f *fixedEmbedder) Dimensions() int { return 2 }
func (f *fixedEmbedder) Close() error    { return nil }

func TestEmbeddingRerankerOrdersBySimilarity(t *testing.T) {
	t.Parallel()
	embed := &fixedEmbedder{vectors: map[string][]float32{
		"query":     {1, 0},
		"aligned":   {1, 0},
		"diagonal":  {1, 1},
		"unrelated": {0, 1},
	}}

	client := NewEmbeddingRerankerClient(embed, Config{})
	defer client.Close()

	results, err := client.Rank(context.Background(), "query", []string{"unrelated", "diagonal", "aligned"})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "aligned", results[0].Passage)
	assert.Equal(t, "diagonal", results[1].Passage)
	assert.Equal(t, "unrelated", results[2].Passage)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestEmbeddingRerankerStableOnTies(t *testing.T) {
	t.Parallel()
	embed := &fixedEmbedder{vectors: map[string][]float32{
		"query": {1, 0},
		"a":     {1, 0},
		"b":     {1, 0},
	}}

	client := NewEmbeddingRerankerClient(embed, Config{})
	results, err := client.Rank(context.Background(), "query", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "a", results[0].Passage, "ties keep input order")
	assert.Equal(t, "b", results[1].Passage)
}

func TestParseScore(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		content  string
		expected float64
	}{
		{"clean json", `{"score": 0.8}`, 0.8},
		{"code fence", "```json\n{\"score\": 0.3}\n```", 0.3},
		{"trailing comma", `{"score": 0.6,}`, 0.6},
		{"single quotes", `{'score': 0.4}`, 0.4},
		{"clamped high", `{"score": 3.5}`, 1},
		{"clamped low", `{"score": -1}`, 0},
		{"garbage", "definitely relevant!", 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, parseScore(tt.content), 1e-9)
		})
	}
}

func TestNewProviderSelection(t *testing.T) {
	t.Parallel()
	client, err := New(config.RerankerConfig{Provider: "none"}, nil)
	require.NoError(t, err)
	assert.Nil(t, client, "none disables reranking")

	client, err = New(config.RerankerConfig{Provider: "mock"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MockRerankerClient{}, client)

	_, err = New(config.RerankerConfig{Provider: "embedding"}, nil)
	assert.Error(t, err, "embedding provider needs an embedder")

	_, err = New(config.RerankerConfig{Provider: "warp"}, nil)
	assert.Error(t, err)
}
