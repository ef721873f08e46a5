package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/quarrylabs/stratum/pkg/types"
)

// MemoryStore is an in-memory Store keyed by tenant. It is safe for
// concurrent use and keeps entities in insertion order so retrieval
// results are deterministic.
type MemoryStore struct {
	mu      sync.RWMutex
	tenants map[string]*tenantData
	closed  bool
}

type tenantData struct {
	// entityOrder preserves insertion order; entities indexes by id for
	// upsert-by-id semantics.
	entityOrder []string
	entities    map[string]types.EntityRecord
	chunks      map[string]types.ChunkRecord
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tenants: make(map[string]*tenantData)}
}

// CreateTenant registers a tenant with no data. Creating an existing
// tenant is a no-op.
func (m *MemoryStore) CreateTenant(ctx context.Context, tenantKey string) error {
	key, err := types.NormalizeTenantKey(tenantKey)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.tenants[key]; !ok {
		m.tenants[key] = newTenantData()
	}
	return nil
}

// DeleteTenant removes a tenant and all its data.
func (m *MemoryStore) DeleteTenant(ctx context.Context, tenantKey string) error {
	key, err := types.NormalizeTenantKey(tenantKey)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.tenants[key]; !ok {
		return fmt.Errorf("%w: %q", ErrTenantNotFound, key)
	}
	delete(m.tenants, key)
	return nil
}

// HasTenant reports whether the tenant exists in the store.
func (m *MemoryStore) HasTenant(tenantKey string) bool {
	key, err := types.NormalizeTenantKey(tenantKey)
	if err != nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.tenants[key]
	return ok
}

// Ingest stores entities and chunks under a tenant. When createIfAbsent
// is false the tenant must already exist; when true a missing tenant is
// created first. Entities upsert by id, keeping the position of the
// original insertion.
func (m *MemoryStore) Ingest(ctx context.Context, tenantKey string, createIfAbsent bool, entities []types.EntityRecord, chunks []types.ChunkRecord) error {
	key, err := types.NormalizeTenantKey(tenantKey)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	td, ok := m.tenants[key]
	if !ok {
		if !createIfAbsent {
			return fmt.Errorf("%w: %q", ErrTenantNotFound, key)
		}
		td = newTenantData()
		m.tenants[key] = td
	}

	for _, e := range entities {
		if _, exists := td.entities[e.ID]; !exists {
			td.entityOrder = append(td.entityOrder, e.ID)
		}
		td.entities[e.ID] = e
	}
	for _, c := range chunks {
		if c.ID == "" {
			return types.ErrEmptyChunkID
		}
		td.chunks[c.ID] = c
	}
	return nil
}

// ListEntities implements GraphStore.
func (m *MemoryStore) ListEntities(ctx context.Context, tenantKey string) ([]types.EntityRecord, error) {
	key, err := types.NormalizeTenantKey(tenantKey)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	td, ok := m.tenants[key]
	if !ok {
		return []types.EntityRecord{}, nil
	}
	out := make([]types.EntityRecord, 0, len(td.entityOrder))
	for _, id := range td.entityOrder {
		out = append(out, td.entities[id])
	}
	return out, nil
}

// GetChunks implements ChunkStore.
func (m *MemoryStore) GetChunks(ctx context.Context, tenantKey string, ids []string) ([]types.ChunkRecord, error) {
	key, err := types.NormalizeTenantKey(tenantKey)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	td, ok := m.tenants[key]
	if !ok {
		return []types.ChunkRecord{}, nil
	}
	out := make([]types.ChunkRecord, 0, len(ids))
	for _, id := range ids {
		if c, found := td.chunks[id]; found {
			out = append(out, c)
		}
	}
	return out, nil
}

// Close implements Store. Subsequent operations return ErrClosed.
func (m *MemoryStore) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.tenants = nil
	return nil
}

func newTenantData() *tenantData {
	return &tenantData{
		entities: make(map[string]types.EntityRecord),
		chunks:   make(map[string]types.ChunkRecord),
	}
}

var _ Store = (*MemoryStore)(nil)
