/*
Package reranker provides relevance reranking of retrieved passages.

Rerankers reorder a candidate set by scoring each passage against the
query with a stronger model than the first-stage retriever. This package
provides an LLM-based implementation, an embedding-similarity
implementation, and a mock implementation for testing.

Usage:

	client, err := reranker.New(cfg.Reranker, embedClient)
	ranked, err := client.Rank(ctx, "bearing vibration", passages)

Rerankers are an optional stage: callers treat a Rank error as a signal
to fall back to their original ordering, not as a request failure.
*/
package reranker

import (
	"context"
	"fmt"

	"github.com/quarrylabs/stratum/pkg/config"
	"github.com/quarrylabs/stratum/pkg/embedder"
)

// Provider represents the type of reranker provider
type Provider string

const (
	// ProviderLLM scores passages with a chat model
	ProviderLLM Provider = "llm"

	// ProviderEmbedding uses embedding-based similarity for reranking
	ProviderEmbedding Provider = "embedding"

	// ProviderMock uses a deterministic implementation for testing
	ProviderMock Provider = "mock"

	// ProviderNone disables reranking
	ProviderNone Provider = "none"
)

// RankedPassage is one passage with its relevance score.
type RankedPassage struct {
	Passage string  `json:"passage"`
	Score   float64 `json:"score"`
}

// Client ranks passages by relevance to a query.
type Client interface {
	// Rank returns the passages sorted by descending relevance. Every
	// input passage appears exactly once in the result.
	Rank(ctx context.Context, query string, passages []string) ([]RankedPassage, error)

	// Close cleans up any resources.
	Close() error
}

// New builds a Client from application configuration. ProviderNone
// yields a nil Client, meaning reranking is disabled.
func New(cfg config.RerankerConfig, embedClient embedder.Client) (Client, error) {
	switch Provider(cfg.Provider) {
	case ProviderLLM:
		return NewLLMRerankerClient(cfg.APIKey, Config{
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	case ProviderEmbedding:
		if embedClient == nil {
			return nil, fmt.Errorf("embedder client is required for embedding provider")
		}
		return NewEmbeddingRerankerClient(embedClient, Config{Model: cfg.Model}), nil
	case ProviderMock:
		return NewMockRerankerClient(), nil
	case ProviderNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported reranker provider: %s", cfg.Provider)
	}
}

// Config holds provider-independent reranker settings.
type Config struct {
	Model          string
	BaseURL        string
	MaxConcurrency int
}
