// Package store defines the storage boundary of the retrieval layer and
// its implementations. GraphStore serves entity projections of a
// tenant's knowledge graph; ChunkStore resolves chunk ids to source
// text. MemoryStore implements both and is the default for tests and
// single-process deployments; Neo4jGraphStore and BadgerChunkStore back
// persistent deployments.
package store

import (
	"context"
	"errors"

	"github.com/quarrylabs/stratum/pkg/types"
)

var (
	// ErrTenantNotFound is returned when an operation references a
	// tenant key that has no stored data.
	ErrTenantNotFound = errors.New("tenant not found in store")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store is closed")
)

// GraphStore provides read access to the entities of one tenant's
// knowledge graph.
type GraphStore interface {
	// ListEntities returns every entity of the tenant in a stable
	// order. An unknown tenant yields an empty slice, not an error:
	// retrieval over a tenant with no data is a valid empty result.
	ListEntities(ctx context.Context, tenantKey string) ([]types.EntityRecord, error)
}

// ChunkStore resolves chunk ids to their records in one batch.
type ChunkStore interface {
	// GetChunks returns the records for the requested ids, preserving
	// request order. Ids that do not resolve are skipped silently;
	// callers that care about gaps compare lengths.
	GetChunks(ctx context.Context, tenantKey string, ids []string) ([]types.ChunkRecord, error)
}

// Store combines both storage roles with lifecycle management.
type Store interface {
	GraphStore
	ChunkStore
	Close(ctx context.Context) error
}
