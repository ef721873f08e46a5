package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrylabs/stratum/pkg/types"
)

func seedEntities() []types.EntityRecord {
	return []types.EntityRecord{
		{ID: "ent-1", Name: "Gas Turbine", Type: "equipment", ChunkIDs: []string{"c1", "c2"}},
		{ID: "ent-2", Name: "Bearing", Type: "component", ChunkIDs: []string{"c2", "c3"}},
	}
}

func seedChunks() []types.ChunkRecord {
	return []types.ChunkRecord{
		{ID: "c1", Content: "turbine startup sequence", SourceEntity: "Gas Turbine"},
		{ID: "c2", Content: "bearing vibration readings", SourceEntity: "Bearing"},
		{ID: "c3", Content: "lubrication schedule", SourceEntity: "Bearing"},
	}
}

func TestMemoryStoreIngestRequiresTenant(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemoryStore()

	err := m.Ingest(ctx, "plant_a", false, seedEntities(), seedChunks())
	assert.ErrorIs(t, err, ErrTenantNotFound)

	require.NoError(t, m.Ingest(ctx, "plant_a", true, seedEntities(), seedChunks()))
	assert.True(t, m.HasTenant("plant_a"))

	// Now that the tenant exists, ingest without the create flag works.
	require.NoError(t, m.Ingest(ctx, "plant_a", false, nil, seedChunks()))
}

func TestMemoryStoreIngestValidatesInput(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemoryStore()

	err := m.Ingest(ctx, "  ", true, seedEntities(), nil)
	assert.ErrorIs(t, err, types.ErrEmptyTenantKey)

	err = m.Ingest(ctx, "plant_a", true, nil, []types.ChunkRecord{{Content: "no id"}})
	assert.ErrorIs(t, err, types.ErrEmptyChunkID)
}

func TestMemoryStoreListEntitiesOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemoryStore()
	require.NoError(t, m.Ingest(ctx, "plant_a", true, seedEntities(), nil))

	// Upserting ent-1 keeps its original position.
	require.NoError(t, m.Ingest(ctx, "plant_a", false, []types.EntityRecord{
		{ID: "ent-1", Name: "Gas Turbine Unit", Type: "equipment"},
		{ID: "ent-3", Name: "Fuel Valve", Type: "component"},
	}, nil))

	entities, err := m.ListEntities(ctx, "plant_a")
	require.NoError(t, err)
	require.Len(t, entities, 3)
	assert.Equal(t, "ent-1", entities[0].ID)
	assert.Equal(t, "Gas Turbine Unit", entities[0].Name)
	assert.Equal(t, "ent-2", entities[1].ID)
	assert.Equal(t, "ent-3", entities[2].ID)
}

func TestMemoryStoreUnknownTenantIsEmpty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemoryStore()

	entities, err := m.ListEntities(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, entities)

	chunks, err := m.GetChunks(ctx, "nobody", []string{"c1"})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestMemoryStoreGetChunksOrderAndGaps(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemoryStore()
	require.NoError(t, m.Ingest(ctx, "plant_a", true, nil, seedChunks()))

	chunks, err := m.GetChunks(ctx, "plant_a", []string{"c3", "missing", "c1"})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "c3", chunks[0].ID)
	assert.Equal(t, "c1", chunks[1].ID)
}

func TestMemoryStoreTenantIsolation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemoryStore()
	require.NoError(t, m.Ingest(ctx, "plant_a", true, seedEntities(), seedChunks()))
	require.NoError(t, m.Ingest(ctx, "plant_b", true, []types.EntityRecord{
		{ID: "ent-9", Name: "Compressor", Type: "equipment"},
	}, nil))

	a, err := m.ListEntities(ctx, "plant_a")
	require.NoError(t, err)
	b, err := m.ListEntities(ctx, "plant_b")
	require.NoError(t, err)
	assert.Len(t, a, 2)
	require.Len(t, b, 1)
	assert.Equal(t, "ent-9", b[0].ID)

	chunks, err := m.GetChunks(ctx, "plant_b", []string{"c1"})
	require.NoError(t, err)
	assert.Empty(t, chunks, "chunks never leak across tenants")
}

func TestMemoryStoreDeleteTenant(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemoryStore()
	require.NoError(t, m.CreateTenant(ctx, "plant_a"))
	require.NoError(t, m.DeleteTenant(ctx, "plant_a"))
	assert.False(t, m.HasTenant("plant_a"))

	assert.ErrorIs(t, m.DeleteTenant(ctx, "plant_a"), ErrTenantNotFound)
}

func TestMemoryStoreClosed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemoryStore()
	require.NoError(t, m.Close(ctx))

	_, err := m.ListEntities(ctx, "plant_a")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, m.Ingest(ctx, "plant_a", true, nil, nil), ErrClosed)
}

func TestMemoryStoreConcurrentIngest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tenant := fmt.Sprintf("tenant_%d", i%4)
			entity := types.EntityRecord{ID: fmt.Sprintf("ent-%d", i), Name: "E", Type: "equipment"}
			assert.NoError(t, m.Ingest(ctx, tenant, true, []types.EntityRecord{entity}, nil))
		}(i)
	}
	wg.Wait()

	total := 0
	for i := 0; i < 4; i++ {
		entities, err := m.ListEntities(ctx, fmt.Sprintf("tenant_%d", i))
		require.NoError(t, err)
		total += len(entities)
	}
	assert.Equal(t, 16, total)
}
