// Package embedder provides text embedding clients for vector representations.
//
// This package defines the Client interface and provides implementations for
// various embedding providers.
//
// # Supported Providers
//
// The following embedding providers are supported:
//   - OpenAI: text-embedding-3-small, text-embedding-3-large, text-embedding-ada-002
//   - EmbedEverything: local in-process embedding models
//
// # Usage
//
//	client, err := embedder.NewOpenAIClient(apiKey, embedder.Config{
//	    Model: "text-embedding-3-small",
//	})
//
//	embeddings, err := client.Embed(ctx, []string{"hello world"})
//
// # Batch Processing
//
// The Client interface supports batch embedding for efficiency:
//   - Embed(): Embed multiple texts in a single request
//   - EmbedSingle(): Convenience method for single text
//
// Implementations handle batching internally based on provider limits.
//
// Production deployments should wrap clients with WithCircuitBreaker so
// a failing provider degrades retrieval instead of stalling it.
package embedder
