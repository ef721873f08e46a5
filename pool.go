package stratum

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/quarrylabs/stratum/pkg/metrics"
	"github.com/quarrylabs/stratum/pkg/types"
)

// Pool lazily constructs and caches one Engine per tenant. It
// guarantees at most one construction per tenant key no matter how many
// callers race on it, and a failed construction is never cached, so the
// next lookup retries cleanly.
//
// GetOrCreate and GetSync share one cache and one set of construction
// locks, so callers on both paths racing on the same key still produce
// a single engine. A sync.Mutex blocks the calling goroutine without
// any scheduler cooperation, which makes the same primitive safe from
// request handlers and from background workers alike.
type Pool struct {
	factory EngineFactory
	logger  *slog.Logger

	// mu guards engines and building. Construction itself runs outside
	// mu, under the per-key lock, so building one tenant never blocks
	// lookups for others.
	mu       sync.RWMutex
	engines  map[string]*Engine
	building map[string]*sync.Mutex
}

// PoolStats is a read-only snapshot of the pool.
type PoolStats struct {
	Count int      `json:"count"`
	Keys  []string `json:"keys"`
}

// NewPool creates an empty pool backed by the given factory.
func NewPool(factory EngineFactory, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		factory:  factory,
		logger:   logger,
		engines:  make(map[string]*Engine),
		building: make(map[string]*sync.Mutex),
	}
}

// GetOrCreate returns the engine for a tenant, constructing it on first
// use. Concurrent callers for the same key block until the single
// winning construction finishes; callers for other keys proceed
// independently. Construction failures surface as *ConstructionError
// and are not cached.
func (p *Pool) GetOrCreate(ctx context.Context, tenantKey string) (*Engine, error) {
	key, err := types.NormalizeTenantKey(tenantKey)
	if err != nil {
		return nil, ErrInvalidTenantKey
	}

	// Fast path: cache hit under a read lock.
	p.mu.RLock()
	engine, ok := p.engines[key]
	p.mu.RUnlock()
	if ok {
		metrics.PoolCacheHit()
		return engine, nil
	}

	// Serialize construction per key.
	keyLock := p.constructionLock(key)
	keyLock.Lock()
	defer keyLock.Unlock()

	// Double-check: another caller may have just finished.
	p.mu.RLock()
	engine, ok = p.engines[key]
	p.mu.RUnlock()
	if ok {
		metrics.PoolCacheHit()
		return engine, nil
	}

	p.logger.Info("constructing engine", "tenant", key)
	engine, err = p.factory.Build(ctx, key)
	metrics.PoolConstruction(err)
	if err != nil {
		p.logger.Error("engine construction failed", "tenant", key, "error", err)
		return nil, &ConstructionError{TenantKey: key, Err: err}
	}

	p.mu.Lock()
	p.engines[key] = engine
	metrics.PoolSize(len(p.engines))
	p.mu.Unlock()

	return engine, nil
}

// GetSync is GetOrCreate for call sites without a context, such as
// cleanup or background code. Same cache, same locks, same
// single-construction guarantee.
func (p *Pool) GetSync(tenantKey string) (*Engine, error) {
	return p.GetOrCreate(context.Background(), tenantKey)
}

// Stats returns a snapshot of the cached tenants, keys sorted.
func (p *Pool) Stats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	keys := make([]string, 0, len(p.engines))
	for key := range p.engines {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return PoolStats{Count: len(keys), Keys: keys}
}

// Evict removes a tenant's engine from the pool and reports whether it
// was present. Teardown of the evicted engine's resources is the
// caller's responsibility; a later GetOrCreate rebuilds from scratch.
func (p *Pool) Evict(tenantKey string) bool {
	key, err := types.NormalizeTenantKey(tenantKey)
	if err != nil {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.engines[key]; !ok {
		return false
	}
	delete(p.engines, key)
	metrics.PoolEviction()
	metrics.PoolSize(len(p.engines))
	p.logger.Info("engine evicted", "tenant", key)
	return true
}

// Clear empties the pool. Like Evict, it does not tear down engines.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for range p.engines {
		metrics.PoolEviction()
	}
	p.engines = make(map[string]*Engine)
	metrics.PoolSize(0)
}

// constructionLock returns the per-key lock, creating it on first use.
// Locks are kept for the pool's lifetime; the per-tenant footprint is
// one mutex.
func (p *Pool) constructionLock(key string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	lock, ok := p.building[key]
	if !ok {
		lock = &sync.Mutex{}
		p.building[key] = lock
	}
	return lock
}
