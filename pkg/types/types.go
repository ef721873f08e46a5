package types

import (
	"errors"
	"strings"
)

// Validation errors
var (
	ErrEmptyTenantKey   = errors.New("tenant key cannot be empty or whitespace-only")
	ErrEmptyChunkID     = errors.New("chunk id cannot be empty")
	ErrInvalidQueryMode = errors.New("invalid query mode")
)

// NormalizeTenantKey trims surrounding whitespace from a tenant key and
// validates the result. Normalization is idempotent; a key that is empty
// after trimming is invalid.
func NormalizeTenantKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrEmptyTenantKey
	}
	return key, nil
}

// EntityRecord is a read-only projection of one entity in a tenant's
// knowledge graph.
type EntityRecord struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties,omitempty"`

	// ChunkIDs are the text chunks this entity was sourced from, in
	// storage order.
	ChunkIDs []string `json:"chunk_ids,omitempty"`
}

// Property returns the named property value and whether it is present.
func (e *EntityRecord) Property(name string) (string, bool) {
	if e.Properties == nil {
		return "", false
	}
	v, ok := e.Properties[name]
	return v, ok
}

// ChunkRecord is a unit of source text associated with an entity.
type ChunkRecord struct {
	ID           string `json:"chunk_id"`
	Content      string `json:"content"`
	SourceEntity string `json:"source_entity"`
	FilePath     string `json:"file_path,omitempty"`

	// Embedding is an optional precomputed vector for the chunk content.
	// When absent the pipeline embeds the content on demand.
	Embedding []float32 `json:"-"`
}

// ScoredChunk is a ChunkRecord with its similarity score and final rank.
// Score is exactly 0.0 when no query text was given.
type ScoredChunk struct {
	ChunkRecord
	Score float64 `json:"similarity_score"`
	Rank  int     `json:"rank"`
}

// QueryMode selects the retrieval strategy requested by the caller. The
// filtered-retrieval pipeline records the mode in result metadata; it
// does not change pipeline behavior at this layer.
type QueryMode string

const (
	ModeLocal  QueryMode = "local"
	ModeGlobal QueryMode = "global"
	ModeHybrid QueryMode = "hybrid"
	ModeNaive  QueryMode = "naive"
	ModeMix    QueryMode = "mix"
)

// ParseQueryMode validates a mode string. An empty string resolves to
// ModeMix.
func ParseQueryMode(s string) (QueryMode, error) {
	switch QueryMode(s) {
	case "":
		return ModeMix, nil
	case ModeLocal, ModeGlobal, ModeHybrid, ModeNaive, ModeMix:
		return QueryMode(s), nil
	default:
		return "", ErrInvalidQueryMode
	}
}

// QueryMetadata describes how a filtered-retrieval result was produced.
type QueryMetadata struct {
	Query                 string              `json:"query"`
	Mode                  QueryMode           `json:"mode"`
	FiltersApplied        map[string][]string `json:"filters_applied"`
	EntitiesFound         int                 `json:"entities_found"`
	EntitiesAfterFilter   int                 `json:"entities_after_filter"`
	TotalChunksAfterFilter int                `json:"total_chunks_after_filter"`
	ChunksReturned        int                 `json:"chunks_returned"`
	RerankingApplied      bool                `json:"reranking_applied"`
	SemanticSearchApplied bool                `json:"semantic_search_applied"`
	SourceEntities        []string            `json:"source_entities,omitempty"`
}

// QueryResult is the ordered, size-bounded outcome of a filtered
// retrieval. Chunks are rank-ascending. Zero chunks is a valid,
// successful result.
type QueryResult struct {
	Chunks   []ScoredChunk `json:"chunks"`
	Metadata QueryMetadata `json:"metadata"`
	Message  string        `json:"message"`
}

// ContextKey is the type used for request-scoped context values.
type ContextKey string

const (
	// ContextKeyTenant carries the tenant key of the current request.
	ContextKeyTenant ContextKey = "tenant_key"
	// ContextKeyRequestSource identifies where a request entered the
	// system (server, cli, background).
	ContextKeyRequestSource ContextKey = "request_source"
)
