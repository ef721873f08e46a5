package stratum

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/quarrylabs/stratum/pkg/metrics"
	"github.com/quarrylabs/stratum/pkg/types"
	"github.com/quarrylabs/stratum/pkg/utils"
)

// defaultTopK applies when a request sets neither ChunkTopK nor TopK
// and the engine has no configured default.
const defaultTopK = 10

// FilterQuery is one filtered-retrieval request against a tenant's
// corpus.
type FilterQuery struct {
	// Query is the free-text query. May be empty; retrieval then
	// returns filter matches without semantic scoring.
	Query string

	// Filter narrows the entity set. Nil matches every entity.
	Filter *types.FilterExpression

	// ChunkTopK bounds the number of chunks returned. Takes precedence
	// over TopK. Zero means unset.
	ChunkTopK int

	// TopK is the general result limit, used when ChunkTopK is unset.
	// Zero means unset.
	TopK int

	// Mode is recorded in result metadata.
	Mode types.QueryMode

	// OnlyNeedContext asks the caller's outer layer to return raw
	// context instead of a generated answer. Recorded, not acted on
	// here.
	OnlyNeedContext bool

	// IncludeReferences keeps source file paths on returned chunks.
	IncludeReferences bool

	// EnableRerank requests reranking when the engine has a reranker.
	EnableRerank bool
}

// FilterData runs the filtered-retrieval pipeline: load the tenant's
// entities, apply the filter, collect and resolve the matching chunks,
// score them against the query, optionally rerank, and return the top
// chunks with metadata describing what actually ran.
//
// Zero matching entities or zero chunks is a successful empty result.
// Embedding and reranking failures degrade gracefully and surface only
// as metadata flags; storage failures abort with ErrStorageUnavailable.
func (e *Engine) FilterData(ctx context.Context, req FilterQuery) (result *types.QueryResult, err error) {
	start := time.Now()
	defer func() {
		returned := 0
		if result != nil {
			returned = len(result.Chunks)
		}
		metrics.RetrievalObserved(start, returned, err)
	}()

	filter := req.Filter
	limit := e.resolveLimit(req)

	entities, err := e.graph.ListEntities(ctx, e.tenantKey)
	if err != nil {
		return nil, fmt.Errorf("%w: listing entities: %v", ErrStorageUnavailable, err)
	}

	// Filter entities, then collect chunk ids and source-entity names
	// in first-occurrence order. Insertion order is what makes results
	// reproducible, so no unordered sets here.
	var (
		matched      int
		chunkIDs     []string
		seenChunks   = make(map[string]bool)
		sourceNames  []string
		seenSources  = make(map[string]bool)
		chunkSources = make(map[string]string)
	)
	for i := range entities {
		entity := &entities[i]
		if !filter.Matches(entity) {
			continue
		}
		matched++
		if !seenSources[entity.Name] {
			seenSources[entity.Name] = true
			sourceNames = append(sourceNames, entity.Name)
		}
		for _, id := range entity.ChunkIDs {
			if seenChunks[id] {
				continue
			}
			seenChunks[id] = true
			chunkIDs = append(chunkIDs, id)
			chunkSources[id] = entity.Name
		}
	}

	records, err := e.chunks.GetChunks(ctx, e.tenantKey, chunkIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving chunks: %v", ErrStorageUnavailable, err)
	}
	if len(records) < len(chunkIDs) {
		e.logger.Debug("some chunk ids did not resolve",
			"requested", len(chunkIDs), "resolved", len(records))
	}
	if len(records) == 0 {
		e.logger.Debug("no chunks after filtering", "filter", filter.String())
	}

	// Backfill the source entity when storage did not record one.
	for i := range records {
		if records[i].SourceEntity == "" {
			records[i].SourceEntity = chunkSources[records[i].ID]
		}
	}

	scored, semanticApplied := e.scoreChunks(ctx, req.Query, records)

	rerankApplied := false
	if req.EnableRerank && e.reranker != nil && len(scored) > 0 {
		if reranked, ok := e.rerankChunks(ctx, req.Query, scored); ok {
			scored = reranked
			rerankApplied = true
		}
	}

	if !rerankApplied {
		// Stable: ties keep the collection order from above.
		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].Score > scored[j].Score
		})
	}

	if len(scored) > limit {
		scored = scored[:limit]
	}
	for i := range scored {
		scored[i].Rank = i + 1
		if !req.IncludeReferences {
			scored[i].FilePath = ""
		}
	}

	rerankNote := "no reranking"
	if rerankApplied {
		rerankNote = fmt.Sprintf("reranked to top %d", limit)
	}

	result = &types.QueryResult{
		Chunks: scored,
		Metadata: types.QueryMetadata{
			Query:                  req.Query,
			Mode:                   req.Mode,
			FiltersApplied:         filter.Raw(),
			EntitiesFound:          len(entities),
			EntitiesAfterFilter:    matched,
			TotalChunksAfterFilter: len(records),
			ChunksReturned:         len(scored),
			RerankingApplied:       rerankApplied,
			SemanticSearchApplied:  semanticApplied,
			SourceEntities:         sourceNames,
		},
		Message: fmt.Sprintf("Retrieved %d filtered chunks (%s)", len(scored), rerankNote),
	}
	return result, nil
}

// resolveLimit picks the effective result size: the first positive
// value among ChunkTopK, TopK, and the engine default. A zero is
// treated as unset and falls through, which means an explicit limit of
// 0 cannot be expressed. That quirk is load-bearing for existing
// callers, so it stays.
func (e *Engine) resolveLimit(req FilterQuery) int {
	if req.ChunkTopK > 0 {
		return req.ChunkTopK
	}
	if req.TopK > 0 {
		return req.TopK
	}
	return e.defaultTopK
}

// scoreChunks assigns similarity scores against the query. An empty
// query, a missing embedder, or an embedder failure all yield zero
// scores with semantic search marked not applied; only the failure case
// warns.
func (e *Engine) scoreChunks(ctx context.Context, query string, records []types.ChunkRecord) ([]types.ScoredChunk, bool) {
	scored := make([]types.ScoredChunk, len(records))
	for i, record := range records {
		scored[i] = types.ScoredChunk{ChunkRecord: record}
	}
	if query == "" || e.embedder == nil || len(records) == 0 {
		return scored, false
	}

	queryEmbedding, err := e.embedder.EmbedSingle(ctx, query)
	if err != nil {
		e.logger.Warn("query embedding failed, returning unscored chunks", "error", err)
		return scored, false
	}

	// Embed chunks without a precomputed vector in one batch.
	var missingIdx []int
	var missingTexts []string
	for i, record := range records {
		if len(record.Embedding) == 0 {
			missingIdx = append(missingIdx, i)
			missingTexts = append(missingTexts, record.Content)
		}
	}
	if len(missingTexts) > 0 {
		embeddings, err := e.embedder.Embed(ctx, missingTexts)
		if err != nil || len(embeddings) != len(missingTexts) {
			e.logger.Warn("chunk embedding failed, returning unscored chunks", "error", err)
			return scored, false
		}
		for j, idx := range missingIdx {
			scored[idx].Embedding = embeddings[j]
		}
	}

	for i := range scored {
		scored[i].Score = utils.CosineSimilarity(queryEmbedding, scored[i].Embedding)
	}
	return scored, true
}

// rerankChunks reorders scored chunks via the reranker, mapping ranked
// passages back to chunks by content. Returns ok=false on any failure;
// the caller keeps the similarity ordering.
func (e *Engine) rerankChunks(ctx context.Context, query string, scored []types.ScoredChunk) ([]types.ScoredChunk, bool) {
	passages := make([]string, len(scored))
	byContent := make(map[string][]int, len(scored))
	for i, chunk := range scored {
		passages[i] = chunk.Content
		byContent[chunk.Content] = append(byContent[chunk.Content], i)
	}

	ranked, err := e.reranker.Rank(ctx, query, passages)
	if err != nil {
		e.logger.Warn("reranking failed, keeping similarity order", "error", err)
		return nil, false
	}
	if len(ranked) != len(scored) {
		e.logger.Warn("reranker returned unexpected passage count, keeping similarity order",
			"expected", len(scored), "got", len(ranked))
		return nil, false
	}

	out := make([]types.ScoredChunk, 0, len(scored))
	for _, passage := range ranked {
		indexes := byContent[passage.Passage]
		if len(indexes) == 0 {
			e.logger.Warn("reranker returned unknown passage, keeping similarity order")
			return nil, false
		}
		// Duplicate contents map back in their original order.
		idx := indexes[0]
		byContent[passage.Passage] = indexes[1:]

		chunk := scored[idx]
		chunk.Score = passage.Score
		out = append(out, chunk)
	}
	return out, true
}
