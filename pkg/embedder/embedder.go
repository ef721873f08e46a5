package embedder

import (
	"context"
	"errors"
	"fmt"

	"github.com/quarrylabs/stratum/pkg/config"
)

// ErrNoEmbeddings is returned when a provider responds without any
// embedding vectors.
var ErrNoEmbeddings = errors.New("no embeddings returned")

// Client generates embedding vectors for text.
type Client interface {
	// Embed generates embeddings for the given texts, one vector per
	// text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle generates an embedding for a single text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector size, or 0 when unknown.
	Dimensions() int

	// Close cleans up any resources.
	Close() error
}

// Config holds provider-independent embedding settings.
type Config struct {
	Model      string
	BaseURL    string
	Dimensions int
	BatchSize  int
}

// New builds a Client from application configuration.
func New(cfg config.EmbeddingConfig) (Client, error) {
	switch cfg.Provider {
	case "none":
		return nil, nil
	case "openai":
		return NewOpenAIClient(cfg.APIKey, Config{
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	case "embedeverything", "":
		return NewEmbedEverythingClient(Config{Model: cfg.Model})
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
	}
}
