// Package registry manages the catalog of tenants known to the
// retrieval layer. Each tenant gets a metadata record and a working
// directory under a base directory; the catalog and per-tenant metadata
// persist as YAML so the set of tenants survives restarts.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/quarrylabs/stratum/pkg/normalize"
)

const (
	tenantsDirName   = "tenants"
	catalogFileName  = "catalog.yaml"
	metadataFileName = "metadata.yaml"
)

var (
	// ErrTenantExists is returned by Create when the id is taken.
	ErrTenantExists = errors.New("tenant already exists")

	// ErrTenantUnknown is returned when a tenant id is not registered.
	ErrTenantUnknown = errors.New("tenant not registered")
)

// TenantMetadata describes one registered tenant.
type TenantMetadata struct {
	ID            string    `yaml:"id" json:"id"`
	Name          string    `yaml:"name" json:"name"`
	Description   string    `yaml:"description" json:"description"`
	CreatedAt     time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt     time.Time `yaml:"updated_at" json:"updated_at"`
	DocumentCount int       `yaml:"document_count" json:"document_count"`
	EntityCount   int       `yaml:"entity_count" json:"entity_count"`
	ChunkCount    int       `yaml:"chunk_count" json:"chunk_count"`
}

// catalog is the persisted index of tenant ids.
type catalog struct {
	DefaultTenant string   `yaml:"default_tenant"`
	Tenants       []string `yaml:"tenants"`
}

// Registry is a thread-safe tenant catalog rooted at a base directory.
type Registry struct {
	baseDir    string
	tenantsDir string

	mu        sync.RWMutex
	cache     map[string]*TenantMetadata
	defaultID string
}

// New opens (or initializes) a registry at baseDir. A fresh registry
// gets a "default" tenant so single-tenant deployments work without
// setup.
func New(baseDir string) (*Registry, error) {
	r := &Registry{
		baseDir:    baseDir,
		tenantsDir: filepath.Join(baseDir, tenantsDirName),
		cache:      make(map[string]*TenantMetadata),
	}
	if err := os.MkdirAll(r.tenantsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create registry directory: %w", err)
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	if len(r.cache) == 0 {
		// Create marks the first tenant as default.
		if _, err := r.Create("Default", "Default tenant", "default"); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Create registers a new tenant. An empty id derives one from the name:
// a slug plus a short random suffix for uniqueness.
func (r *Registry) Create(name, description, id string) (*TenantMetadata, error) {
	if id == "" {
		slug := normalize.Slug(name)
		if slug == "" {
			slug = "tenant"
		}
		id = fmt.Sprintf("%s_%s", slug, uuid.NewString()[:8])
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.cache[id]; ok {
		return nil, fmt.Errorf("%w: %q", ErrTenantExists, id)
	}

	now := time.Now().UTC()
	md := &TenantMetadata{
		ID:          id,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	dir := filepath.Join(r.tenantsDir, id)
	if err := os.MkdirAll(filepath.Join(dir, "documents"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create tenant directory: %w", err)
	}
	if err := r.saveMetadata(md); err != nil {
		return nil, err
	}

	r.cache[id] = md
	if r.defaultID == "" {
		r.defaultID = id
	}
	if err := r.saveCatalogLocked(); err != nil {
		return nil, err
	}
	return cloneMetadata(md), nil
}

// List returns all tenants ordered by creation time.
func (r *Registry) List() []*TenantMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*TenantMetadata, 0, len(r.cache))
	for _, md := range r.cache {
		out = append(out, cloneMetadata(md))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Get returns the metadata for a tenant.
func (r *Registry) Get(id string) (*TenantMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	md, ok := r.cache[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTenantUnknown, id)
	}
	return cloneMetadata(md), nil
}

// Exists reports whether a tenant id is registered.
func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.cache[id]
	return ok
}

// Delete unregisters a tenant and removes its working directory. The
// default tenant cannot be deleted.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.cache[id]; !ok {
		return fmt.Errorf("%w: %q", ErrTenantUnknown, id)
	}
	if id == r.defaultID {
		return fmt.Errorf("cannot delete default tenant %q", id)
	}

	if err := os.RemoveAll(filepath.Join(r.tenantsDir, id)); err != nil {
		return fmt.Errorf("failed to remove tenant directory: %w", err)
	}
	delete(r.cache, id)
	return r.saveCatalogLocked()
}

// Default returns the default tenant's metadata.
func (r *Registry) Default() (*TenantMetadata, error) {
	r.mu.RLock()
	id := r.defaultID
	r.mu.RUnlock()
	if id == "" {
		return nil, ErrTenantUnknown
	}
	return r.Get(id)
}

// SetDefault marks an existing tenant as the default.
func (r *Registry) SetDefault(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.cache[id]; !ok {
		return fmt.Errorf("%w: %q", ErrTenantUnknown, id)
	}
	r.defaultID = id
	return r.saveCatalogLocked()
}

// UpdateCounts records ingestion statistics for a tenant and bumps its
// update timestamp.
func (r *Registry) UpdateCounts(id string, documents, entities, chunks int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	md, ok := r.cache[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrTenantUnknown, id)
	}
	md.DocumentCount = documents
	md.EntityCount = entities
	md.ChunkCount = chunks
	md.UpdatedAt = time.Now().UTC()
	return r.saveMetadata(md)
}

// WorkingDir returns the tenant's directory under the registry root.
func (r *Registry) WorkingDir(id string) string {
	return filepath.Join(r.tenantsDir, id)
}

func (r *Registry) load() error {
	data, err := os.ReadFile(filepath.Join(r.baseDir, catalogFileName))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read registry catalog: %w", err)
	}

	var cat catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return fmt.Errorf("failed to parse registry catalog: %w", err)
	}
	r.defaultID = cat.DefaultTenant

	for _, id := range cat.Tenants {
		md, err := r.loadMetadata(id)
		if err != nil {
			// A tenant directory may have been removed out of band;
			// skip it rather than refusing to start.
			continue
		}
		r.cache[id] = md
	}
	return nil
}

func (r *Registry) loadMetadata(id string) (*TenantMetadata, error) {
	data, err := os.ReadFile(filepath.Join(r.tenantsDir, id, metadataFileName))
	if err != nil {
		return nil, err
	}
	md := &TenantMetadata{}
	if err := yaml.Unmarshal(data, md); err != nil {
		return nil, fmt.Errorf("failed to parse metadata for tenant %q: %w", id, err)
	}
	return md, nil
}

func (r *Registry) saveMetadata(md *TenantMetadata) error {
	data, err := yaml.Marshal(md)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata for tenant %q: %w", md.ID, err)
	}
	path := filepath.Join(r.tenantsDir, md.ID, metadataFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata for tenant %q: %w", md.ID, err)
	}
	return nil
}

// saveCatalogLocked writes the catalog; callers hold r.mu.
func (r *Registry) saveCatalogLocked() error {
	ids := make([]string, 0, len(r.cache))
	for id := range r.cache {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	data, err := yaml.Marshal(catalog{
		DefaultTenant: r.defaultID,
		Tenants:       ids,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal registry catalog: %w", err)
	}
	if err := os.WriteFile(filepath.Join(r.baseDir, catalogFileName), data, 0o644); err != nil {
		return fmt.Errorf("failed to write registry catalog: %w", err)
	}
	return nil
}

func cloneMetadata(md *TenantMetadata) *TenantMetadata {
	out := *md
	return &out
}
