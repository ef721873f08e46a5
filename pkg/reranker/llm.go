package reranker

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/kaptinlin/jsonrepair"
	"github.com/sashabaranov/go-openai"
)

// LLMRerankerClient scores passages with a chat model. Each passage is
// scored concurrently with a relevance-grading prompt; a semaphore
// bounds in-flight requests.
type LLMRerankerClient struct {
	client    *openai.Client
	config    Config
	semaphore chan struct{}
}

// NewLLMRerankerClient creates a new LLM-based reranker client.
func NewLLMRerankerClient(apiKey string, config Config) (*LLMRerankerClient, error) {
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 10
	}

	var client *openai.Client
	if config.BaseURL != "" {
		if apiKey == "" {
			apiKey = "dummy-key"
		}
		clientConfig := openai.DefaultConfig(apiKey)
		clientConfig.BaseURL = config.BaseURL
		client = openai.NewClientWithConfig(clientConfig)
	} else {
		if apiKey == "" {
			return nil, fmt.Errorf("llm reranker requires an api key")
		}
		client = openai.NewClient(apiKey)
	}

	return &LLMRerankerClient{
		client:    client,
		config:    config,
		semaphore: make(chan struct{}, config.MaxConcurrency),
	}, nil
}

// Rank ranks the given passages based on their relevance to the query.
func (c *LLMRerankerClient) Rank(ctx context.Context, query string, passages []string) ([]RankedPassage, error) {
	if len(passages) == 0 {
		return []RankedPassage{}, nil
	}

	type passageResult struct {
		score float64
		err   error
	}

	results := make([]passageResult, len(passages))
	var wg sync.WaitGroup

	for i, passage := range passages {
		wg.Add(1)
		go func(idx int, p string) {
			defer wg.Done()

			c.semaphore <- struct{}{}
			defer func() { <-c.semaphore }()

			score, err := c.scorePassage(ctx, query, p)
			results[idx] = passageResult{score: score, err: err}
		}(i, passage)
	}

	wg.Wait()

	ranked := make([]RankedPassage, 0, len(passages))
	for i, result := range results {
		if result.err != nil {
			return nil, fmt.Errorf("error scoring passage %d: %w", i, result.err)
		}
		ranked = append(ranked, RankedPassage{
			Passage: passages[i],
			Score:   result.score,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	return ranked, nil
}

const scoringSystemPrompt = "You grade how relevant a passage is to a query. " +
	`Respond with JSON of the form {"score": <number between 0 and 1>} and nothing else.`

// scorePassage asks the model for a relevance score between 0 and 1.
func (c *LLMRerankerClient) scorePassage(ctx context.Context, query, passage string) (float64, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: scoringSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("<PASSAGE>\n%s\n</PASSAGE>\n<QUERY>\n%s\n</QUERY>", passage, query)},
		},
		Temperature: 0,
	})
	if err != nil {
		return 0, fmt.Errorf("relevance scoring request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0, fmt.Errorf("no choices returned from model")
	}

	return parseScore(resp.Choices[0].Message.Content), nil
}

// parseScore extracts the score from a model response. Models wrap the
// JSON in prose or code fences often enough that the payload is run
// through jsonrepair before decoding; an unsalvageable response scores
// neutral rather than failing the whole rank.
func parseScore(content string) float64 {
	repaired, err := jsonrepair.JSONRepair(content)
	if err != nil {
		return 0.5
	}

	var payload struct {
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
		return 0.5
	}

	if payload.Score < 0 {
		return 0
	}
	if payload.Score > 1 {
		return 1
	}
	return payload.Score
}

// Close cleans up any resources used by the client.
func (c *LLMRerankerClient) Close() error {
	return nil
}

var _ Client = (*LLMRerankerClient)(nil)
