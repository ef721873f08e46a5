package stratum

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quarrylabs/stratum/pkg/embedder"
	"github.com/quarrylabs/stratum/pkg/reranker"
	"github.com/quarrylabs/stratum/pkg/store"
	"github.com/quarrylabs/stratum/pkg/types"
)

var (
	// ErrInvalidTenantKey is returned for empty or whitespace-only
	// tenant keys, before any I/O happens.
	ErrInvalidTenantKey = errors.New("invalid tenant key")

	// ErrInvalidFilter is returned for filter expressions with keys
	// outside the recognized set, before any I/O happens.
	ErrInvalidFilter = errors.New("invalid filter expression")

	// ErrStorageUnavailable is returned when the graph or chunk store
	// fails during retrieval. Fatal to the request; retrying is the
	// caller's decision.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ConstructionError reports a failed engine construction for a tenant.
// It is never cached: the next pool lookup for the same tenant retries
// the factory.
type ConstructionError struct {
	TenantKey string
	Err       error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("failed to construct engine for tenant %q: %v", e.TenantKey, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// EngineFactory constructs a ready-to-use engine bound to one tenant's
// stores. Implementations must return an engine only when it is fully
// usable; a partially wired engine must surface as an error instead.
type EngineFactory interface {
	Build(ctx context.Context, tenantKey string) (*Engine, error)
}

// FactoryFunc adapts a function to the EngineFactory interface.
type FactoryFunc func(ctx context.Context, tenantKey string) (*Engine, error)

// Build implements EngineFactory.
func (f FactoryFunc) Build(ctx context.Context, tenantKey string) (*Engine, error) {
	return f(ctx, tenantKey)
}

// Engine executes filtered retrieval against one tenant's corpus. All
// per-tenant bindings (stores, embedding, reranking) are fixed at
// construction; the engine itself holds no per-request state and is
// safe for concurrent use.
type Engine struct {
	tenantKey string
	graph     store.GraphStore
	chunks    store.ChunkStore
	embedder  embedder.Client
	reranker  reranker.Client
	logger    *slog.Logger

	// defaultTopK is the result-size fallback when a request sets
	// neither chunk_top_k nor top_k.
	defaultTopK int
}

// EngineOptions carries the optional bindings of an engine. Embedder
// and Reranker may be nil; retrieval then skips semantic scoring and
// reranking respectively.
type EngineOptions struct {
	Embedder    embedder.Client
	Reranker    reranker.Client
	Logger      *slog.Logger
	DefaultTopK int
}

// NewEngine creates an engine for one tenant. The tenant key is
// normalized; graph and chunk stores are required.
func NewEngine(tenantKey string, graph store.GraphStore, chunks store.ChunkStore, opts *EngineOptions) (*Engine, error) {
	key, err := types.NormalizeTenantKey(tenantKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTenantKey, err)
	}
	if graph == nil {
		return nil, fmt.Errorf("graph store is required")
	}
	if chunks == nil {
		return nil, fmt.Errorf("chunk store is required")
	}

	if opts == nil {
		opts = &EngineOptions{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	topK := opts.DefaultTopK
	if topK <= 0 {
		topK = defaultTopK
	}

	return &Engine{
		tenantKey:   key,
		graph:       graph,
		chunks:      chunks,
		embedder:    opts.Embedder,
		reranker:    opts.Reranker,
		logger:      logger.With("tenant", key),
		defaultTopK: topK,
	}, nil
}

// TenantKey returns the normalized key of the tenant this engine serves.
func (e *Engine) TenantKey() string {
	return e.tenantKey
}
