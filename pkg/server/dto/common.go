// Package dto defines the wire shapes of the HTTP API. Field names are
// camelCase on the wire regardless of how the internal types serialize.
package dto

import (
	"github.com/quarrylabs/stratum/pkg/types"
)

// ErrorResponse is the error envelope for every failed request.
type ErrorResponse struct {
	Status  string `json:"status"` // always "error"
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// NewErrorResponse builds the standard error envelope.
func NewErrorResponse(message, detail string) ErrorResponse {
	return ErrorResponse{Status: "error", Message: message, Detail: detail}
}

// Chunk is one retrieved chunk on the wire.
type Chunk struct {
	ChunkID         string  `json:"chunkId"`
	SourceEntity    string  `json:"sourceEntity"`
	Content         string  `json:"content"`
	SimilarityScore float64 `json:"similarityScore"`
	Rank            int     `json:"rank"`
	FilePath        string  `json:"filePath,omitempty"`
}

// QueryMetadata describes how a query result was produced.
type QueryMetadata struct {
	Query                  string              `json:"query"`
	Mode                   string              `json:"mode"`
	FiltersApplied         map[string][]string `json:"filtersApplied"`
	EntitiesFound          int                 `json:"entitiesFound"`
	EntitiesAfterFilter    int                 `json:"entitiesAfterFilter"`
	TotalChunksAfterFilter int                 `json:"totalChunksAfterFilter"`
	ChunksReturned         int                 `json:"chunksReturned"`
	RerankingApplied       bool                `json:"rerankingApplied"`
	SemanticSearchApplied  bool                `json:"semanticSearchApplied"`
	SourceEntities         []string            `json:"sourceEntities,omitempty"`
}

// QueryResponse is the success envelope of a filtered-retrieval call.
type QueryResponse struct {
	Status   string        `json:"status"` // always "success"
	Message  string        `json:"message"`
	Chunks   []Chunk       `json:"chunks"`
	Metadata QueryMetadata `json:"metadata"`
}

// FromQueryResult converts an engine result into the wire shape.
func FromQueryResult(r *types.QueryResult) QueryResponse {
	chunks := make([]Chunk, len(r.Chunks))
	for i, c := range r.Chunks {
		chunks[i] = Chunk{
			ChunkID:         c.ID,
			SourceEntity:    c.SourceEntity,
			Content:         c.Content,
			SimilarityScore: c.Score,
			Rank:            c.Rank,
			FilePath:        c.FilePath,
		}
	}
	return QueryResponse{
		Status:  "success",
		Message: r.Message,
		Chunks:  chunks,
		Metadata: QueryMetadata{
			Query:                  r.Metadata.Query,
			Mode:                   string(r.Metadata.Mode),
			FiltersApplied:         r.Metadata.FiltersApplied,
			EntitiesFound:          r.Metadata.EntitiesFound,
			EntitiesAfterFilter:    r.Metadata.EntitiesAfterFilter,
			TotalChunksAfterFilter: r.Metadata.TotalChunksAfterFilter,
			ChunksReturned:         r.Metadata.ChunksReturned,
			RerankingApplied:       r.Metadata.RerankingApplied,
			SemanticSearchApplied:  r.Metadata.SemanticSearchApplied,
			SourceEntities:         r.Metadata.SourceEntities,
		},
	}
}
